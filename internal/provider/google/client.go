// Package google - paged-провайдер поверх Google Custom Search JSON API.
// Апстрим отдаёт максимум 10 результатов за вызов и листается сам,
// поэтому start/count уходят в запрос как есть и каждая страница
// кешируется отдельно на уровне сервиса.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/imgsearch/internal/domain"
	"github.com/kitbuilder587/imgsearch/internal/provider"
)

const (
	Name = "google"

	// апстрим не отдаёт больше 10 за вызов
	MaxPerPage = 10
)

type Config struct {
	APIKey  string
	CX      string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey  string
	cx      string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://customsearch.googleapis.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		cx:      cfg.CX,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) PagingSupported() bool { return true }

func (c *Client) HealthCheck(ctx context.Context) provider.HealthStatus {
	if c.apiKey == "" || c.cx == "" {
		return provider.HealthStatus{Healthy: false, Message: "missing API key or CX"}
	}
	return provider.HealthStatus{Healthy: true, Message: "configured"}
}

type googleResponse struct {
	SearchInformation struct {
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
	Items []googleItem `json:"items"`
}

type googleItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
	Snippet     string `json:"snippet"`
	Mime        string `json:"mime"`
	FileFormat  string `json:"fileFormat"`
	Image       struct {
		ContextLink   string `json:"contextLink"`
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		ByteSize      int64  `json:"byteSize"`
		ThumbnailLink string `json:"thumbnailLink"`
	} `json:"image"`
}

func (c *Client) Search(ctx context.Context, req domain.SearchRequest) (*provider.Response, error) {
	if c.apiKey == "" || c.cx == "" {
		return nil, provider.ErrNotConfigured
	}

	count := req.Count
	if count > MaxPerPage {
		count = MaxPerPage
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", req.Query)
	params.Set("searchType", "image")
	params.Set("num", strconv.Itoa(count))
	params.Set("start", strconv.Itoa(req.Start))
	if req.QualityHint != "" {
		params.Set("imgSize", req.QualityHint)
	}
	// фильтра по ориентации у Custom Search API нет, req.Orientation
	// здесь сознательно не уходит в запрос

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/customsearch/v1?"+params.Encode(), nil)
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

	var googleResp googleResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	total, err := strconv.Atoi(googleResp.SearchInformation.TotalResults)
	if err != nil {
		c.logger.Warn("unparsable totalResults, falling back to item count",
			zap.String("total", googleResp.SearchInformation.TotalResults),
		)
		total = len(googleResp.Items)
	}

	return &provider.Response{
		Results: c.toResults(googleResp.Items, req.Start),
		Total:   total,
		Took:    time.Since(started),
	}, nil
}

func (c *Client) toResults(items []googleItem, start int) []domain.ImageResult {
	results := make([]domain.ImageResult, len(items))
	for i, it := range items {
		results[i] = domain.ImageResult{
			ID:            fmt.Sprintf("%s-%d", Name, start+i),
			Title:         it.Title,
			ImageURL:      it.Link,
			ThumbnailURL:  it.Image.ThumbnailLink,
			SourcePageURL: it.Image.ContextLink,
			SourceDomain:  it.DisplayLink,
			Description:   it.Snippet,
			Width:         it.Image.Width,
			Height:        it.Image.Height,
			ByteSize:      it.Image.ByteSize,
			MimeType:      it.Mime,
			FileFormat:    it.FileFormat,
			Provider:      Name,
		}
	}
	return results
}
