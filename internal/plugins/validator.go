package plugins

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"os"
	"regexp"
	"strings"

	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/models"
	"github.com/Ikey168/Modulo-sub007/internal/validator"
)

const maxSubmissionSize = 50 * 1024 * 1024

// ValidationResult is the submission validator's output, shared with the
// wire/storage shape in internal/models so a Submission can be persisted
// or returned over the gRPC surface without a conversion step.
type ValidationResult = models.ValidationResult

var (
	semverRe = regexp.MustCompile(`^\d+\.\d+\.\d+(-[A-Za-z0-9]+)?$`)
	urlRe    = regexp.MustCompile(`^https?://`)

	rejectedSuffixes = []string{".exe", ".bat", ".sh", ".dll"}

	// denylistClasses are literal class-name references a bundle's code
	// artifacts must never contain: process execution, reflection, and
	// unsafe memory access.
	denylistClasses = []string{
		"java.lang.Runtime",
		"java.lang.ProcessBuilder",
		"java.lang.reflect",
		"sun.misc.Unsafe",
		"os/exec",
		"unsafe.Pointer",
	}

	// denylistPatterns are small regexes for the same concern, catching
	// dynamic constructs a literal class-name scan would miss.
	denylistPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Runtime\.getRuntime`),
		regexp.MustCompile(`System\.exit`),
		regexp.MustCompile(`Class\.forName`),
		regexp.MustCompile(`ClassLoader`),
		regexp.MustCompile(`ScriptEngine`),
	}
)

// SubmissionValidator performs structural and static screening of a
// candidate bundle and its metadata before it is allowed through to
// install. It never executes any part of the bundle it inspects.
type SubmissionValidator struct {
	currentAPIMajor string
}

// NewSubmissionValidator constructs a SubmissionValidator. currentAPIMajor
// is the major series (e.g. "1") new submissions must be compatible with.
func NewSubmissionValidator(currentAPIMajor string) *SubmissionValidator {
	return &SubmissionValidator{currentAPIMajor: currentAPIMajor}
}

// Validate runs every metadata, bundle, and static-screening check against
// sub and returns the result. sub.Result is also populated in place.
func (v *SubmissionValidator) Validate(sub *Submission) ValidationResult {
	result := ValidationResult{SecurityOK: true, CompatibilityOK: true}

	v.checkMetadata(sub.Metadata, &result)
	v.checkBundle(sub.BundlePath, &result)

	sub.Result = result
	logger.Validator().Debug().
		Str("name", sub.Metadata.Name).
		Bool("accepted", result.Accepted()).
		Int("errors", len(result.Errors)).
		Msg("validated submission")
	return result
}

// Submission is a candidate bundle awaiting validation.
type Submission struct {
	BundlePath string
	Metadata   models.SubmissionMetadata
	Result     ValidationResult
}

func (v *SubmissionValidator) checkMetadata(m models.SubmissionMetadata, result *ValidationResult) {
	if m.Name == "" || len(m.Name) > 100 {
		result.Errors = append(result.Errors, "name must be non-empty and at most 100 characters")
	}
	if !semverRe.MatchString(m.Version) {
		result.Errors = append(result.Errors, "version must match semantic version pattern")
	}
	if m.Description == "" || len(m.Description) > 1000 {
		result.Errors = append(result.Errors, "description must be non-empty and at most 1000 characters")
	}
	if _, err := mail.ParseAddress(m.DeveloperEmail); err != nil {
		result.Errors = append(result.Errors, "developer email is not a valid address")
	}
	for _, u := range []string{m.HomepageURL, m.RepositoryURL} {
		if u == "" {
			continue
		}
		if !urlRe.MatchString(u) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("URL %q does not start with http:// or https://", u))
		}
	}
}

func (v *SubmissionValidator) checkBundle(path string, result *ValidationResult) {
	info, err := os.Stat(path)
	if err != nil {
		result.Errors = append(result.Errors, "bundle file does not exist")
		return
	}
	result.ComputedSize = info.Size()
	if info.Size() > maxSubmissionSize {
		result.Errors = append(result.Errors, "bundle size exceeds 50 MiB")
	}

	sum, err := sha256Path(path)
	if err != nil {
		result.Errors = append(result.Errors, "could not compute checksum")
		return
	}
	result.ComputedChecksum = sum

	manifest, entries, err := readBundleArtifacts(path)
	if err != nil {
		result.Errors = append(result.Errors, "manifest missing or malformed: "+err.Error())
		return
	}

	if manifest.PluginName == "" || manifest.PluginVersion == "" ||
		manifest.PluginMainClass == "" || manifest.PluginAPIVersion == "" {
		result.Errors = append(result.Errors, "manifest missing required attributes (Plugin-Name, Plugin-Version, Plugin-Main-Class, Plugin-API-Version)")
	}

	if !strings.HasPrefix(manifest.PluginAPIVersion, v.currentAPIMajor+".") && manifest.PluginAPIVersion != v.currentAPIMajor {
		result.CompatibilityOK = false
		result.Errors = append(result.Errors, "plugin API version is not compatible with the current major series")
	}

	declaredFound := false
	for name, content := range entries {
		if name == manifest.PluginMainClass {
			declaredFound = true
		}
		for _, suffix := range rejectedSuffixes {
			if strings.HasSuffix(name, suffix) {
				result.SecurityOK = false
				result.Errors = append(result.Errors, fmt.Sprintf("bundle entry %q has a rejected executable suffix", name))
			}
		}
		v.scanArtifact(name, content, result)
	}
	if !declaredFound {
		result.Errors = append(result.Errors, "declared entry point not found among bundle artifacts")
	}
}

// scanArtifact performs static screening: literal denylist class-name
// references and a small regex set for dynamic equivalents. Any match is
// an error and flips SecurityOK, but never executes the scanned bytes.
func (v *SubmissionValidator) scanArtifact(name, content string, result *ValidationResult) {
	for _, cls := range denylistClasses {
		if strings.Contains(content, cls) {
			result.SecurityOK = false
			result.Errors = append(result.Errors, fmt.Sprintf("artifact %q references denylisted class %q", name, cls))
		}
	}
	for _, pat := range denylistPatterns {
		if pat.MatchString(content) {
			result.SecurityOK = false
			result.Errors = append(result.Errors, fmt.Sprintf("artifact %q matches denylisted pattern %q", name, pat.String()))
		}
	}
}

// bundleFile is the on-disk JSON shape a *.bundle file is parsed as: a
// manifest plus named code artifacts (scanned as text, never executed).
type bundleFile struct {
	Manifest  models.BundleManifest `json:"manifest"`
	Artifacts map[string]string     `json:"artifacts"`
}

func readBundleArtifacts(path string) (*models.BundleManifest, map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var bf bundleFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, nil, err
	}
	return &bf.Manifest, bf.Artifacts, nil
}

// ValidateMetadataStruct runs the shared struct-tag validator over the
// raw metadata. It is a separate entry point: Validate does not call it.
func ValidateMetadataStruct(m models.SubmissionMetadata) map[string]string {
	return validator.ValidateRequest(m)
}
