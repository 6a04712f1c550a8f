package plugins

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ikey168/Modulo-sub007/internal/models"
)

func newCatalogServer(t *testing.T, entries []models.RemoteEntry) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			json.NewEncoder(w).Encode(entries)
		case "/categories":
			json.NewEncoder(w).Encode([]string{"productivity", "notes"})
		case "/featured":
			json.NewEncoder(w).Encode(entries)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRepositoryClient_SearchAggregatesAcrossRepositories(t *testing.T) {
	srvA := newCatalogServer(t, []models.RemoteEntry{{ID: "a", Name: "A"}})
	defer srvA.Close()
	srvB := newCatalogServer(t, []models.RemoteEntry{{ID: "b", Name: "B"}})
	defer srvB.Close()

	client := NewRepositoryClient([]string{srvA.URL, srvB.URL}, nil)
	entries, err := client.Search(context.Background(), "note", "", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRepositoryClient_SearchStopsOnceMaxReached(t *testing.T) {
	srvA := newCatalogServer(t, []models.RemoteEntry{{ID: "a"}, {ID: "b"}})
	defer srvA.Close()
	srvB := newCatalogServer(t, []models.RemoteEntry{{ID: "c"}})
	defer srvB.Close()

	client := NewRepositoryClient([]string{srvA.URL, srvB.URL}, nil)
	entries, err := client.Search(context.Background(), "note", "", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRepositoryClient_SearchSkipsFailingRepository(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := newCatalogServer(t, []models.RemoteEntry{{ID: "a"}})
	defer good.Close()

	client := NewRepositoryClient([]string{bad.URL, good.URL}, nil)
	entries, err := client.Search(context.Background(), "note", "", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRepositoryClient_AddAndRemoveRepositoryIsIdempotent(t *testing.T) {
	client := NewRepositoryClient(nil, nil)
	client.AddRepository("https://repo-one")
	client.AddRepository("https://repo-one")
	assert.Len(t, client.repositories(), 1)

	client.RemoveRepository("https://repo-one")
	client.RemoveRepository("https://repo-one")
	assert.Empty(t, client.repositories())
}

func TestRepositoryClient_Categories(t *testing.T) {
	srv := newCatalogServer(t, nil)
	defer srv.Close()

	client := NewRepositoryClient([]string{srv.URL}, nil)
	cats, err := client.Categories(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notes", "productivity"}, cats)
}

func TestRank_OrdersByVerifiedThenRatingThenDownloads(t *testing.T) {
	entries := []models.RemoteEntry{
		{ID: "unverified-high-rating", Verified: false, Rating: 5.0},
		{ID: "verified-low-rating", Verified: true, Rating: 1.0},
		{ID: "verified-high-rating-low-downloads", Verified: true, Rating: 4.5, DownloadCount: 1},
		{ID: "verified-high-rating-high-downloads", Verified: true, Rating: 4.5, DownloadCount: 100},
	}

	ranked := rank(entries)

	require.Len(t, ranked, 4)
	assert.Equal(t, "verified-high-rating-high-downloads", ranked[0].ID)
	assert.Equal(t, "verified-high-rating-low-downloads", ranked[1].ID)
	assert.Equal(t, "verified-low-rating", ranked[2].ID)
	assert.Equal(t, "unverified-high-rating", ranked[3].ID)
}
