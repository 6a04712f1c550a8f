// Package models defines the data shapes the plugin runtime persists and
// exchanges with external collaborators: the registry store, remote
// repositories, and submission intake.
//
// Architecture:
//   - Descriptor: the immutable metadata a plugin declares about itself
//   - RegistryRecord: what the registry store persists for an installed
//     plugin
//   - RemoteEntry: a catalog entry returned by a remote repository
//   - Submission: a candidate bundle awaiting validation before install
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PluginKind distinguishes compile-time-linked plugins from out-of-process
// ones exposed over the gRPC surface.
type PluginKind string

const (
	KindInternal PluginKind = "internal"
	KindExternal PluginKind = "external"
)

// RuntimeHint indicates how a plugin's code is hosted.
type RuntimeHint string

const (
	RuntimeBundle  RuntimeHint = "bundle"
	RuntimeService RuntimeHint = "service"
)

// LifecycleState is a plugin instance's position in the install/start/stop
// state machine.
type LifecycleState string

const (
	StateInstalling   LifecycleState = "installing"
	StateActive       LifecycleState = "active"
	StateInactive     LifecycleState = "inactive"
	StateError        LifecycleState = "error"
	StateUninstalling LifecycleState = "uninstalling"
	StateUnknown      LifecycleState = "unknown"
)

// Descriptor is the immutable metadata a plugin declares about itself.
// Descriptors never change for the lifetime of an installed instance.
type Descriptor struct {
	// Name is the plugin's unique identity. Two active instances may
	// never share a name.
	Name string `json:"name"`

	// Version is a semantic version triple, optionally with a
	// pre-release suffix (e.g. "1.2.0", "2.0.0-beta.1").
	Version string `json:"version"`

	// Kind distinguishes internal (compile-time-linked) plugins from
	// external (gRPC-exposed) ones.
	Kind PluginKind `json:"kind"`

	// Runtime indicates whether the plugin ships as a local bundle or
	// runs as its own out-of-process service.
	Runtime RuntimeHint `json:"runtime"`

	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`

	// Capabilities are free-form tags the plugin advertises about
	// features it provides. Not to be confused with Permissions.
	Capabilities []string `json:"capabilities,omitempty"`

	// RequiredPermissions must all be members of the security manager's
	// permission catalog or the descriptor is invalid.
	RequiredPermissions []string `json:"requiredPermissions,omitempty"`

	SubscribedEvents []string `json:"subscribedEvents,omitempty"`
	PublishedEvents  []string `json:"publishedEvents,omitempty"`
}

// RegistryRecord is what the registry store persists for one installed
// plugin. The plugin manager performs read-modify-write on these only
// inside the per-plugin lifecycle mutex.
type RegistryRecord struct {
	ID             string            `json:"id"`
	Descriptor     Descriptor        `json:"descriptor"`
	BundlePath     string            `json:"bundlePath"`
	LastKnownState LifecycleState    `json:"lastKnownState"`
	Config         map[string]string `json:"config,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// RemoteEntry is a single catalog entry returned by a configured remote
// repository, as consumed by the repository client (C6).
type RemoteEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Author      string   `json:"author"`
	DownloadURL string   `json:"downloadUrl"`
	Checksum    string   `json:"checksum"`
	Size        int64    `json:"size"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
	License     string   `json:"license,omitempty"`

	RequiredPermissions []string  `json:"requiredPermissions,omitempty"`
	PublishedAt         time.Time `json:"publishedAt"`
	DownloadCount       int64     `json:"downloadCount"`
	Rating              float64   `json:"rating"`
	Verified            bool      `json:"verified"`

	// SourceRepository is the base URL that produced this entry, set by
	// the repository client and not part of the wire response.
	SourceRepository string `json:"-"`
}

// SubmissionMetadata is the structured metadata a plugin author supplies
// alongside a candidate bundle.
type SubmissionMetadata struct {
	Name          string `json:"name" validate:"required,max=100"`
	Version       string `json:"version" validate:"required,semver"`
	Description   string `json:"description" validate:"required,max=1000"`
	DeveloperEmail string `json:"developerEmail" validate:"required,email"`
	Category      string `json:"category,omitempty"`
	HomepageURL   string `json:"homepageUrl,omitempty"`
	RepositoryURL string `json:"repositoryUrl,omitempty"`
}

// Submission is a candidate bundle awaiting validation (C5) before install.
type Submission struct {
	BundlePath string             `json:"bundlePath"`
	Metadata   SubmissionMetadata `json:"metadata"`
	Result     ValidationResult   `json:"result"`
}

// ValidationResult is the output of the submission validator.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	SecurityOK      bool `json:"securityOk"`
	CompatibilityOK bool `json:"compatibilityOk"`

	ComputedChecksum string `json:"computedChecksum"`
	ComputedSize     int64  `json:"computedSize"`
}

// Accepted reports whether the submission may proceed to install. Warnings
// are advisory and do not block acceptance.
func (v ValidationResult) Accepted() bool {
	return len(v.Errors) == 0
}

// BundleManifest is the structural manifest a bundle must declare,
// read by the local loader (C3) without executing any bundle code.
type BundleManifest struct {
	PluginName     string   `json:"pluginName"`
	PluginVersion  string   `json:"pluginVersion"`
	PluginMainClass string  `json:"pluginMainClass"`
	PluginAPIVersion string `json:"pluginApiVersion"`
	Entrypoints    []string `json:"entrypoints"`
}

// Scan implements sql.Scanner so a Descriptor can be read straight out of
// a JSONB (Postgres) or serialized TEXT/BLOB (SQLite) column.
func (d *Descriptor) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported descriptor column type %T", value)
	}
}

// Value implements driver.Valuer for Descriptor.
func (d Descriptor) Value() (driver.Value, error) {
	return json.Marshal(d)
}
