// Package pixabay - bulk-провайдер. Апстрим отдаёт до 200 результатов
// одним вызовом и своей пагинацией мы не пользуемся: фетчим максимум,
// фильтруем мусор, складываем в raw-кеш и нарезаем страницы из него.
package pixabay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/imgsearch/internal/domain"
	"github.com/kitbuilder587/imgsearch/internal/provider"
	"github.com/kitbuilder587/imgsearch/internal/rawcache"
)

const (
	Name = "pixabay"

	// максимальный batch у апстрима
	MaxBatchSize = 200
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	RawTTL  time.Duration
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	raw     *rawcache.Cache
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://pixabay.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		raw:     rawcache.New(cfg.RawTTL),
		logger:  logger,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) PagingSupported() bool { return false }

func (c *Client) HealthCheck(ctx context.Context) provider.HealthStatus {
	if c.apiKey == "" {
		return provider.HealthStatus{Healthy: false, Message: "missing API key"}
	}
	return provider.HealthStatus{Healthy: true, Message: "configured"}
}

// RawCacheLen возвращает число закешированных bulk-наборов
func (c *Client) RawCacheLen() int { return c.raw.Len() }

type pixabayResponse struct {
	Total     int          `json:"total"`
	TotalHits int          `json:"totalHits"`
	Hits      []pixabayHit `json:"hits"`
}

type pixabayHit struct {
	ID            int    `json:"id"`
	PageURL       string `json:"pageURL"`
	Type          string `json:"type"`
	Tags          string `json:"tags"`
	PreviewURL    string `json:"previewURL"`
	WebformatURL  string `json:"webformatURL"`
	LargeImageURL string `json:"largeImageURL"`
	ImageWidth    int    `json:"imageWidth"`
	ImageHeight   int    `json:"imageHeight"`
	ImageSize     int64  `json:"imageSize"`
	User          string `json:"user"`
}

func (c *Client) Search(ctx context.Context, req domain.SearchRequest) (*provider.Response, error) {
	if c.apiKey == "" {
		return nil, provider.ErrNotConfigured
	}

	key := rawcache.Key(req.Query, req.Orientation)
	set, cached, err := c.raw.GetOrFetch(ctx, key, func(ctx context.Context) (*rawcache.RawResultSet, error) {
		return c.fetchAll(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	if !cached {
		c.logger.Debug("pixabay bulk fetch",
			zap.String("query", req.Query),
			zap.Int("filtered_total", set.Total),
			zap.Duration("took", set.FetchDuration),
		)
	}

	return &provider.Response{
		Results: slicePage(set.Results, req.Start, req.Count),
		Total:   set.Total,
		Took:    set.FetchDuration,
	}, nil
}

// fetchAll делает ровно один апстрим-запрос на максимальный batch,
// независимо от count/start вызывающего.
func (c *Client) fetchAll(ctx context.Context, req domain.SearchRequest) (*rawcache.RawResultSet, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", req.Query)
	params.Set("per_page", strconv.Itoa(MaxBatchSize))
	if o := toPixabayOrientation(req.Orientation); o != "" {
		params.Set("orientation", o)
	}
	if req.QualityHint != "" {
		params.Set("image_type", req.QualityHint)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	started := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, provider.ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, provider.ErrRateLimit
	case http.StatusBadRequest:
		return nil, provider.ErrInvalidRequest
	default:
		return nil, fmt.Errorf("%w: status %d", provider.ErrSearchFailed, resp.StatusCode)
	}

	var pixResp pixabayResponse
	if err := json.Unmarshal(body, &pixResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	filtered := c.filter(pixResp.Hits)

	// авторитетен размер отфильтрованного набора, а не total апстрима
	return &rawcache.RawResultSet{
		Results:       filtered,
		Total:         len(filtered),
		Query:         req.Query,
		Orientation:   req.Orientation,
		FetchedAt:     time.Now(),
		FetchDuration: time.Since(started),
	}, nil
}

// filter выбрасывает битые записи: не-http ссылки и результаты без превью
func (c *Client) filter(hits []pixabayHit) []domain.ImageResult {
	results := make([]domain.ImageResult, 0, len(hits))
	for _, h := range hits {
		imageURL := h.LargeImageURL
		if imageURL == "" {
			imageURL = h.WebformatURL
		}
		if !validImageURL(imageURL) || h.PreviewURL == "" {
			continue
		}

		results = append(results, domain.ImageResult{
			ID:            strconv.Itoa(h.ID),
			Title:         h.Tags,
			ImageURL:      imageURL,
			ThumbnailURL:  h.PreviewURL,
			SourcePageURL: h.PageURL,
			SourceDomain:  domain.ExtractDomain(h.PageURL),
			Description:   fmt.Sprintf("%s by %s", h.Tags, h.User),
			Width:         h.ImageWidth,
			Height:        h.ImageHeight,
			ByteSize:      h.ImageSize,
			MimeType:      mimeFromURL(imageURL),
			FileFormat:    formatFromURL(imageURL),
			Provider:      Name,
		})
	}
	return results
}

func slicePage(results []domain.ImageResult, start, count int) []domain.ImageResult {
	from := start - 1
	if from >= len(results) {
		return nil
	}
	to := from + count
	if to > len(results) {
		to = len(results)
	}
	return results[from:to]
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func toPixabayOrientation(o domain.Orientation) string {
	switch o {
	case domain.OrientationLandscape:
		return "horizontal"
	case domain.OrientationPortrait:
		return "vertical"
	}
	return ""
}

func formatFromURL(raw string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(raw)), ".")
	if idx := strings.IndexAny(ext, "?#"); idx != -1 {
		ext = ext[:idx]
	}
	return ext
}

func mimeFromURL(raw string) string {
	switch formatFromURL(raw) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	}
	return "image/jpeg"
}
