package plugins

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/logger"
)

// PermissionCatalog is the fixed set of resource.action strings a plugin
// may request. Permissions outside this set are always invalid.
var PermissionCatalog = map[string]struct{}{
	"notes.read":             {},
	"notes.write":            {},
	"notes.delete":           {},
	"users.read":             {},
	"system.events.publish":  {},
	"system.events.subscribe": {},
	"blockchain.read":        {},
	"admin.plugins":          {},
}

// IsCatalogPermission reports whether p is a member of PermissionCatalog.
func IsCatalogPermission(p string) bool {
	_, ok := PermissionCatalog[p]
	return ok
}

// tokenClaims are the JWT claims embedded in a minted token. version is
// compared against the security manager's current version for that
// plugin on every lookup, so re-minting or revoking invalidates any
// previously issued token even though its signature still verifies.
type tokenClaims struct {
	PluginID string `json:"pid"`
	Version  uint64 `json:"ver"`
	jwt.RegisteredClaims
}

// endpointPermission is a (endpoint, method) pair mapped to the
// permission required to call it.
type endpointPermission struct {
	endpoint string
	method   string
}

// defaultEndpointPermissions is the static table AuthorizeApiCall
// consults. Endpoints absent from this table deny by default.
var defaultEndpointPermissions = map[endpointPermission]string{
	{"notes", "GET"}:             "notes.read",
	{"notes", "POST"}:            "notes.write",
	{"notes", "PUT"}:             "notes.write",
	{"notes", "DELETE"}:          "notes.delete",
	{"users", "GET"}:             "users.read",
	{"events", "PUBLISH"}:        "system.events.publish",
	{"events", "SUBSCRIBE"}:      "system.events.subscribe",
	{"blockchain", "GET"}:        "blockchain.read",
	{"plugins", "ADMIN"}:         "admin.plugins",
}

// SecurityManager grants and revokes permissions and mints/verifies the
// opaque tokens plugins present on every API call back to the host. All
// operations are total: unknown plugin ids return empty/false, never an
// error.
type SecurityManager struct {
	mu          sync.RWMutex
	permissions map[string]map[string]struct{} // pluginID -> granted permissions
	versions    map[string]uint64              // pluginID -> current token version
	signingKey  []byte
}

// NewSecurityManager constructs a SecurityManager with a fresh random
// HMAC signing key for this process's token issuance.
func NewSecurityManager() (*SecurityManager, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &SecurityManager{
		permissions: make(map[string]map[string]struct{}),
		versions:    make(map[string]uint64),
		signingKey:  key,
	}, nil
}

// Grant intersects the requested permissions with the catalog and adds
// the survivors to pluginID's granted set. Unknown permissions are
// silently dropped and logged as a warning, never an error.
func (s *SecurityManager) Grant(pluginID string, permissions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.permissions[pluginID]
	if !ok {
		set = make(map[string]struct{})
		s.permissions[pluginID] = set
	}

	for _, p := range permissions {
		if !IsCatalogPermission(p) {
			logger.Security().Warn().Str("plugin", pluginID).Str("permission", p).
				Msg("dropped unknown permission outside catalog")
			continue
		}
		set[p] = struct{}{}
	}
}

// Revoke removes the listed permissions from pluginID's granted set.
func (s *SecurityManager) Revoke(pluginID string, permissions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.permissions[pluginID]
	if !ok {
		return
	}
	for _, p := range permissions {
		delete(set, p)
	}
}

// RevokeAll removes every permission granted to pluginID and destroys
// its token by advancing its version, so any outstanding token fails
// LookupByToken from this point on.
func (s *SecurityManager) RevokeAll(pluginID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.permissions, pluginID)
	s.versions[pluginID]++
}

// HasPermission reports whether pluginID currently holds permission p.
func (s *SecurityManager) HasPermission(pluginID, p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.permissions[pluginID]
	if !ok {
		return false
	}
	_, granted := set[p]
	return granted
}

// CanInstall reports whether every permission in requiredPermissions is
// a member of the catalog. Deny-list policy hooks are a future extension.
func (s *SecurityManager) CanInstall(pluginID string, requiredPermissions []string) bool {
	for _, p := range requiredPermissions {
		if !IsCatalogPermission(p) {
			return false
		}
	}
	return true
}

// MintToken issues a fresh signed token for pluginID, replacing any
// previously issued one (advancing the stored version invalidates old
// tokens immediately, even though their signatures still verify).
func (s *SecurityManager) MintToken(pluginID string) (string, error) {
	s.mu.Lock()
	s.versions[pluginID]++
	version := s.versions[pluginID]
	s.mu.Unlock()

	claims := tokenClaims{
		PluginID: pluginID,
		Version:  version,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", apperrors.Internal(err)
	}

	logger.Security().Info().Str("plugin", pluginID).Msg("minted token")
	return signed, nil
}

// LookupByToken verifies token's signature (constant-time via the jwt
// library's HMAC comparison) and checks its embedded version against the
// plugin's current version. A stale but validly-signed token - one
// issued before a subsequent mint or revoke - returns ("", false).
func (s *SecurityManager) LookupByToken(token string) (string, bool) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}

	s.mu.RLock()
	current := s.versions[claims.PluginID]
	s.mu.RUnlock()

	if current == 0 || claims.Version != current {
		return "", false
	}
	return claims.PluginID, true
}

// AuthorizeApiCall consults the static endpoint->permission table;
// endpoints absent from the table deny by default.
func (s *SecurityManager) AuthorizeApiCall(pluginID, endpoint, method string) bool {
	required, ok := defaultEndpointPermissions[endpointPermission{endpoint, method}]
	if !ok {
		return false
	}
	return s.HasPermission(pluginID, required)
}
