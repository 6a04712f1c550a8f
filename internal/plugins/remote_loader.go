package plugins

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/logger"
)

const (
	// MaxBundleSizeBytes is the default cap (see SetMaxBundleSize) on a
	// remote bundle, advertised or actually streamed.
	MaxBundleSizeBytes = 50 * 1024 * 1024

	connectTimeout = 30 * time.Second
	readTimeout    = 60 * time.Second

	cacheKeyHexLen = 16
)

// blockedCIDRs is the SSRF defense host block list: loopback, link-local,
// and the RFC1918 private ranges.
var blockedCIDRs = mustParseCIDRs(
	"127.0.0.0/8",
	"::1/128",
	"169.254.0.0/16",
	"fe80::/10",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

func isBlockedHost(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		// Hostnames (not literal IPs) are only checked against
		// "localhost" here; any other name passes, and the address it
		// resolves to at dial time is not checked against blockedCIDRs.
		return strings.EqualFold(host, "localhost")
	}
	for _, n := range blockedCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// RemoteLoader fetches a bundle over HTTPS with SSRF, size, and checksum
// defenses, caching successful downloads under cacheDir.
type RemoteLoader struct {
	cacheDir string
	client   *http.Client
	local    *LocalLoader

	maxBytes     int64
	extraBlocked []string // additional blocked hostnames/CIDRs from config
}

// NewRemoteLoader constructs a RemoteLoader. cacheDir is created if
// missing.
func NewRemoteLoader(cacheDir string, local *LocalLoader) (*RemoteLoader, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, apperrors.Internal(err)
	}
	return &RemoteLoader{
		cacheDir: cacheDir,
		client: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		local:    local,
		maxBytes: MaxBundleSizeBytes,
	}, nil
}

// SetMaxBundleSize overrides the download size cap. Non-positive keeps
// the current cap.
func (r *RemoteLoader) SetMaxBundleSize(n int64) {
	if n > 0 {
		r.maxBytes = n
	}
}

// BlockHosts appends hostnames or CIDR ranges to this loader's block
// list, on top of the built-in loopback/link-local/RFC1918 set.
func (r *RemoteLoader) BlockHosts(patterns ...string) {
	r.extraBlocked = append(r.extraBlocked, patterns...)
}

func (r *RemoteLoader) isExtraBlocked(host string) bool {
	ip := net.ParseIP(host)
	for _, p := range r.extraBlocked {
		if strings.EqualFold(host, p) {
			return true
		}
		if ip == nil {
			continue
		}
		if _, n, err := net.ParseCIDR(p); err == nil && n.Contains(ip) {
			return true
		}
	}
	return false
}

// cacheKey is the SHA-256 of the URL, truncated to 16 hex chars, as
// specified for the cache layout.
func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:cacheKeyHexLen]
}

func (r *RemoteLoader) cachePath(rawURL string) string {
	return filepath.Join(r.cacheDir, cacheKey(rawURL)+BundleSuffix)
}

// Fetch validates rawURL, returns the cached path if a valid cached copy
// already exists, otherwise streams the download, verifies the checksum,
// and returns the new cache path. expectedChecksum may be empty.
func (r *RemoteLoader) Fetch(ctx context.Context, rawURL, expectedChecksum string) (string, error) {
	if err := r.validateURL(rawURL); err != nil {
		return "", err
	}

	cachePath := r.cachePath(rawURL)
	if r.cacheHit(cachePath, expectedChecksum) {
		logger.Remote().Debug().Str("url", rawURL).Msg("remote bundle cache hit")
		return cachePath, nil
	}

	return r.download(ctx, rawURL, cachePath, expectedChecksum)
}

// validateURL runs the pre-flight checks that must all pass before any
// network I/O is attempted: scheme, suffix, and SSRF host block list.
func (r *RemoteLoader) validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.Invalid("malformed URL")
	}
	if parsed.Scheme != "https" {
		return apperrors.Invalid("only https URLs are accepted")
	}
	if !strings.HasSuffix(parsed.Path, BundleSuffix) {
		return apperrors.Invalid("URL does not end in " + BundleSuffix)
	}
	host := parsed.Hostname()
	if isBlockedHost(host) || r.isExtraBlocked(host) {
		logger.Remote().Warn().Str("host", host).Msg("rejected SSRF-blocked host before any network I/O")
		return apperrors.SecurityViolation("host " + host + " is in the blocked range")
	}
	return nil
}

func (r *RemoteLoader) cacheHit(cachePath, expectedChecksum string) bool {
	f, err := os.Open(cachePath)
	if err != nil {
		return false
	}
	defer f.Close()

	if expectedChecksum == "" {
		return true
	}
	sum, err := sha256File(f)
	if err != nil {
		return false
	}
	return strings.EqualFold(sum, expectedChecksum)
}

func (r *RemoteLoader) download(ctx context.Context, rawURL, cachePath, expectedChecksum string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout+readTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.Invalid("malformed request")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", apperrors.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NetworkError(fmt.Errorf("remote returned status %d", resp.StatusCode))
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, convErr := strconv.ParseInt(cl, 10, 64); convErr == nil && n > r.maxBytes {
			return "", apperrors.IntegrityFailed("advertised size exceeds max bundle size")
		}
	}

	partial := cachePath + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return "", apperrors.Internal(err)
	}

	limited := io.LimitReader(resp.Body, r.maxBytes+1)
	written, err := io.Copy(out, limited)
	out.Close()
	if err != nil {
		os.Remove(partial)
		return "", apperrors.NetworkError(err)
	}
	if written > r.maxBytes {
		os.Remove(partial)
		return "", apperrors.IntegrityFailed("downloaded bundle exceeds max bundle size")
	}

	actualChecksum, err := sha256Path(partial)
	if err != nil {
		os.Remove(partial)
		return "", apperrors.Internal(err)
	}

	if expectedChecksum != "" && !strings.EqualFold(actualChecksum, expectedChecksum) {
		os.Remove(partial)
		return "", apperrors.IntegrityFailed("checksum mismatch")
	}

	if err := os.Rename(partial, cachePath); err != nil {
		os.Remove(partial)
		return "", apperrors.Internal(err)
	}

	logger.Remote().Info().Str("url", rawURL).Str("checksum", actualChecksum).Msg("downloaded and cached remote bundle")
	return cachePath, nil
}

// LoadRemote fetches rawURL and delegates structural loading to the local
// loader, as C4 hands off to C3 after a successful download.
func (r *RemoteLoader) LoadRemote(ctx context.Context, rawURL, expectedChecksum string) (*LoadedBundle, error) {
	path, err := r.Fetch(ctx, rawURL, expectedChecksum)
	if err != nil {
		return nil, err
	}
	return r.local.Load(path)
}

// ClearCache removes every cached bundle. Eviction is manual and
// otherwise the cache is append-only.
func (r *RemoteLoader) ClearCache() error {
	entries, err := os.ReadDir(r.cacheDir)
	if err != nil {
		return apperrors.Internal(err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(r.cacheDir, e.Name())); err != nil {
			return apperrors.Internal(err)
		}
	}
	return nil
}

// ClearCacheOlderThan removes cached bundles whose modification time is
// older than age, still a best-effort manual operation, never implicit.
func (r *RemoteLoader) ClearCacheOlderThan(age time.Duration) error {
	entries, err := os.ReadDir(r.cacheDir)
	if err != nil {
		return apperrors.Internal(err)
	}
	cutoff := time.Now().Add(-age)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(r.cacheDir, e.Name()))
		}
	}
	return nil
}

func sha256File(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sha256Path(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return sha256File(f)
}
