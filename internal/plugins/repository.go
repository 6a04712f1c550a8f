package plugins

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/models"
)

const searchCacheTTL = 30 * time.Second

// RepositoryClient queries a configured list of remote repositories for
// plugin catalog entries, aggregates the results, and ranks them. Search
// results are cached briefly in Redis and Search's outbound calls are
// throttled per repository so one slow or abusive repository can't starve
// the others; Categories, Featured and Details are neither cached nor
// throttled.
type RepositoryClient struct {
	mu    sync.RWMutex
	repos []string

	httpClient *http.Client
	cache      *redis.Client // may be nil: caching is a best-effort optimization
	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
}

// NewRepositoryClient constructs a RepositoryClient seeded with
// defaultRepositories. cache may be nil to disable result caching.
func NewRepositoryClient(defaultRepositories []string, cache *redis.Client) *RepositoryClient {
	return &RepositoryClient{
		repos:      append([]string(nil), defaultRepositories...),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// AddRepository appends url to the configured repository list. Idempotent.
func (c *RepositoryClient) AddRepository(repoURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.repos {
		if u == repoURL {
			return
		}
	}
	c.repos = append(c.repos, repoURL)
}

// RemoveRepository removes url from the configured repository list.
// Idempotent.
func (c *RepositoryClient) RemoveRepository(repoURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.repos[:0]
	for _, u := range c.repos {
		if u != repoURL {
			kept = append(kept, u)
		}
	}
	c.repos = kept
}

func (c *RepositoryClient) repositories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.repos...)
}

func (c *RepositoryClient) limiterFor(repo string) *rate.Limiter {
	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()
	l, ok := c.limiters[repo]
	if !ok {
		l = rate.NewLimiter(rate.Limit(5), 5) // 5 req/s burst 5, per repo
		c.limiters[repo] = l
	}
	return l
}

// Search queries every configured repository in order until the
// aggregate result set reaches max, ranks the result, and returns it.
// A repository that fails is logged and skipped; C6 downgrades per-repo
// failures to warnings rather than failing the whole search.
func (c *RepositoryClient) Search(ctx context.Context, query, category string, max int) ([]models.RemoteEntry, error) {
	cacheK := "plugin-repo:search:" + cacheDigest(query, category, max)
	if cached, ok := c.getCached(ctx, cacheK); ok {
		return cached, nil
	}

	var aggregate []models.RemoteEntry
	for _, repo := range c.repositories() {
		if len(aggregate) >= max {
			break
		}
		if err := c.limiterFor(repo).Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		entries, err := c.queryRepo(ctx, repo, "/search", url.Values{
			"q": {query}, "category": {category}, "limit": {fmt.Sprint(max)},
		})
		if err != nil {
			logger.Repository().Warn().Err(err).Str("repo", repo).Msg("repository search failed, skipping")
			continue
		}
		for i := range entries {
			entries[i].SourceRepository = repo
		}
		aggregate = append(aggregate, entries...)
	}

	ranked := rank(aggregate)
	if len(ranked) > max {
		ranked = ranked[:max]
	}

	c.setCached(ctx, cacheK, ranked)
	return ranked, nil
}

// Categories returns the union of categories across every configured
// repository, deduplicated and sorted.
func (c *RepositoryClient) Categories(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, repo := range c.repositories() {
		var cats []string
		if err := c.getJSON(ctx, repo, "/categories", nil, &cats); err != nil {
			logger.Repository().Warn().Err(err).Str("repo", repo).Msg("categories fetch failed, skipping")
			continue
		}
		for _, cat := range cats {
			seen[cat] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out, nil
}

// Featured returns up to max featured entries, ranked the same way
// Search's aggregate result is.
func (c *RepositoryClient) Featured(ctx context.Context, max int) ([]models.RemoteEntry, error) {
	var aggregate []models.RemoteEntry
	for _, repo := range c.repositories() {
		entries, err := c.queryRepo(ctx, repo, "/featured", nil)
		if err != nil {
			logger.Repository().Warn().Err(err).Str("repo", repo).Msg("featured fetch failed, skipping")
			continue
		}
		aggregate = append(aggregate, entries...)
	}
	ranked := rank(aggregate)
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked, nil
}

// Details fetches a single plugin's catalog entry by id, trying each
// configured repository until one answers.
func (c *RepositoryClient) Details(ctx context.Context, pluginID string) (*models.RemoteEntry, error) {
	for _, repo := range c.repositories() {
		var entry models.RemoteEntry
		if err := c.getJSON(ctx, repo, "/plugin/"+pluginID, nil, &entry); err != nil {
			continue
		}
		entry.SourceRepository = repo
		return &entry, nil
	}
	return nil, fmt.Errorf("plugin %s not found in any configured repository", pluginID)
}

func (c *RepositoryClient) queryRepo(ctx context.Context, repo, path string, params url.Values) ([]models.RemoteEntry, error) {
	var entries []models.RemoteEntry
	err := c.getJSON(ctx, repo, path, params, &entries)
	return entries, err
}

func (c *RepositoryClient) getJSON(ctx context.Context, repo, path string, params url.Values, out interface{}) error {
	u := repo + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("repository %s returned status %d", repo, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *RepositoryClient) getCached(ctx context.Context, key string) ([]models.RemoteEntry, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []models.RemoteEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *RepositoryClient) setCached(ctx context.Context, key string, entries []models.RemoteEntry) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	c.cache.Set(ctx, key, raw, searchCacheTTL)
}

func cacheDigest(parts ...interface{}) string {
	h := sha256.New()
	fmt.Fprint(h, parts...)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// rank applies the aggregated ranking rule once: verified first, then
// higher rating, then higher download count, breaking ties by stable
// original order.
func rank(entries []models.RemoteEntry) []models.RemoteEntry {
	ranked := append([]models.RemoteEntry(nil), entries...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Verified != b.Verified {
			return a.Verified
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if a.DownloadCount != b.DownloadCount {
			return a.DownloadCount > b.DownloadCount
		}
		return false
	})
	return ranked
}
