package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/imgsearch/internal/domain"
	"github.com/kitbuilder587/imgsearch/internal/provider"
)

type Client struct {
	ProviderName string
	Paged        bool
	Results      []domain.ImageResult
	Total        int
	Error        error
	Delay        time.Duration
	Health       provider.HealthStatus

	CallCount   int
	LastRequest domain.SearchRequest
	AllRequests []domain.SearchRequest

	mu sync.Mutex
}

func New(name string) *Client {
	return &Client{
		ProviderName: name,
		Health:       provider.HealthStatus{Healthy: true, Message: "mock"},
	}
}

func (c *Client) WithPaging() *Client {
	c.Paged = true
	return c
}

func (c *Client) WithResults(results []domain.ImageResult) *Client {
	c.Results = results
	c.Total = len(results)
	return c
}

func (c *Client) WithTotal(total int) *Client {
	c.Total = total
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) WithHealth(healthy bool, message string) *Client {
	c.Health = provider.HealthStatus{Healthy: healthy, Message: message}
	return c
}

func (c *Client) Name() string { return c.ProviderName }

func (c *Client) PagingSupported() bool { return c.Paged }

func (c *Client) HealthCheck(ctx context.Context) provider.HealthStatus {
	return c.Health
}

func (c *Client) Search(ctx context.Context, req domain.SearchRequest) (*provider.Response, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	err := c.Error
	results := c.Results
	total := c.Total
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	// как и настоящие адаптеры, мок отдаёт запрошенное окно
	from := req.Start - 1
	if from > len(results) {
		from = len(results)
	}
	to := from + req.Count
	if to > len(results) {
		to = len(results)
	}
	results = results[from:to]

	return &provider.Response{
		Results: results,
		Total:   total,
		Took:    delay,
	}, nil
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}
