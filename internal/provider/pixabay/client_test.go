package pixabay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/imgsearch/internal/domain"
	"github.com/kitbuilder587/imgsearch/internal/provider"
)

// hitsResponse собирает ответ апстрима: valid валидных записей плюс мусор,
// который фильтр обязан выбросить
func hitsResponse(valid int) pixabayResponse {
	resp := pixabayResponse{Total: 5000, TotalHits: valid + 3}
	for i := 0; i < valid; i++ {
		resp.Hits = append(resp.Hits, pixabayHit{
			ID:            1000 + i,
			PageURL:       fmt.Sprintf("https://pixabay.com/photos/mountain-%d/", i),
			Tags:          "mountain, lake",
			PreviewURL:    fmt.Sprintf("https://cdn.pixabay.com/photo/%d_150.jpg", i),
			LargeImageURL: fmt.Sprintf("https://pixabay.com/get/%d_1280.jpg", i),
			ImageWidth:    1920,
			ImageHeight:   1080,
			ImageSize:     340000,
			User:          "photographer",
		})
	}
	// битые записи: без превью, с не-http ссылкой, совсем пустая
	resp.Hits = append(resp.Hits,
		pixabayHit{ID: 1, LargeImageURL: "https://pixabay.com/get/x.jpg"},
		pixabayHit{ID: 2, LargeImageURL: "ftp://bad/img.jpg", PreviewURL: "https://cdn/p.jpg"},
		pixabayHit{ID: 3},
	)
	return resp
}

func newTestServer(t *testing.T, valid int, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hitsResponse(valid))
	}))
}

func TestClient_Search_FiltersAndCounts(t *testing.T) {
	var calls int64
	server := newTestServer(t, 85, &calls)
	defer server.Close()

	client := New(Config{APIKey: "k", BaseURL: server.URL}, zap.NewNop())

	resp, err := client.Search(context.Background(), domain.SearchRequest{
		Query: "mountains", Count: 10, Start: 1,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// Total - длина отфильтрованного набора, не заявка апстрима
	if resp.Total != 85 {
		t.Errorf("Total = %d, want 85 (filtered)", resp.Total)
	}
	if len(resp.Results) != 10 {
		t.Errorf("len(Results) = %d, want 10", len(resp.Results))
	}
	for _, r := range resp.Results {
		if r.ImageURL == "" || r.ThumbnailURL == "" {
			t.Errorf("filtered set contains invalid entry: %+v", r)
		}
		if r.Provider != Name {
			t.Errorf("Provider = %q, want %q", r.Provider, Name)
		}
	}
	if resp.Results[0].MimeType != "image/jpeg" || resp.Results[0].FileFormat != "jpg" {
		t.Errorf("mime/format = %q/%q, want image/jpeg/jpg", resp.Results[0].MimeType, resp.Results[0].FileFormat)
	}
}

// вторая страница того же запроса не должна ходить в апстрим
func TestClient_Search_ReusesRawSet(t *testing.T) {
	var calls int64
	server := newTestServer(t, 85, &calls)
	defer server.Close()

	client := New(Config{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	ctx := context.Background()

	page1, err := client.Search(ctx, domain.SearchRequest{Query: "mountains", Count: 10, Start: 1})
	if err != nil {
		t.Fatalf("Search() page 1 error = %v", err)
	}
	page2, err := client.Search(ctx, domain.SearchRequest{Query: "mountains", Count: 10, Start: 11})
	if err != nil {
		t.Fatalf("Search() page 2 error = %v", err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (raw set reuse)", got)
	}
	if page1.Results[0].ID == page2.Results[0].ID {
		t.Error("pages should not overlap")
	}
	if page2.Total != 85 {
		t.Errorf("page 2 Total = %d, want 85", page2.Total)
	}

	// другой запрос - отдельный raw set
	if _, err := client.Search(ctx, domain.SearchRequest{Query: "rivers", Count: 10, Start: 1}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("upstream calls = %d, want 2 after new query", got)
	}
	if client.RawCacheLen() != 2 {
		t.Errorf("RawCacheLen() = %d, want 2", client.RawCacheLen())
	}
}

// per_page всегда максимальный batch, что бы ни просил вызывающий
func TestClient_Search_FetchesMaxBatch(t *testing.T) {
	var gotPerPage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPerPage = r.URL.Query().Get("per_page")
		json.NewEncoder(w).Encode(hitsResponse(5))
	}))
	defer server.Close()

	client := New(Config{APIKey: "k", BaseURL: server.URL}, zap.NewNop())

	if _, err := client.Search(context.Background(), domain.SearchRequest{Query: "cats", Count: 3, Start: 1}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotPerPage != "200" {
		t.Errorf("per_page = %q, want 200", gotPerPage)
	}
}

func TestClient_Search_StartBeyondSet(t *testing.T) {
	var calls int64
	server := newTestServer(t, 5, &calls)
	defer server.Close()

	client := New(Config{APIKey: "k", BaseURL: server.URL}, zap.NewNop())

	resp, err := client.Search(context.Background(), domain.SearchRequest{Query: "cats", Count: 10, Start: 50})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("len(Results) = %d, want 0 beyond set", len(resp.Results))
	}
	if resp.Total != 5 {
		t.Errorf("Total = %d, want 5", resp.Total)
	}
}

func TestClient_Search_Orientation(t *testing.T) {
	var gotOrientation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrientation = r.URL.Query().Get("orientation")
		json.NewEncoder(w).Encode(hitsResponse(5))
	}))
	defer server.Close()

	client := New(Config{APIKey: "k", BaseURL: server.URL}, zap.NewNop())

	client.Search(context.Background(), domain.SearchRequest{
		Query: "cats", Orientation: domain.OrientationLandscape, Count: 5, Start: 1,
	})
	if gotOrientation != "horizontal" {
		t.Errorf("orientation = %q, want horizontal", gotOrientation)
	}
}

func TestClient_Search_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"unauthorized", http.StatusUnauthorized, provider.ErrUnauthorized},
		{"rate limit", http.StatusTooManyRequests, provider.ErrRateLimit},
		{"bad request", http.StatusBadRequest, provider.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := New(Config{APIKey: "k", BaseURL: server.URL, Timeout: 2 * time.Second}, zap.NewNop())

			_, err := client.Search(context.Background(), domain.SearchRequest{Query: "cats", Count: 5, Start: 1})
			if err != tt.wantErr {
				t.Errorf("Search() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := New(Config{}, zap.NewNop())

	if _, err := client.Search(context.Background(), domain.SearchRequest{Query: "cats", Count: 5, Start: 1}); err != provider.ErrNotConfigured {
		t.Errorf("Search() error = %v, want ErrNotConfigured", err)
	}
	if client.HealthCheck(context.Background()).Healthy {
		t.Error("HealthCheck() should report unhealthy without API key")
	}
}
