package provider

import (
	"context"
	"errors"
	"time"

	"github.com/kitbuilder587/imgsearch/internal/domain"
)

var (
	ErrUnauthorized   = errors.New("invalid API key")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrSearchFailed   = errors.New("search request failed")
	ErrNotConfigured  = errors.New("provider not configured")
)

// Provider - один внешний источник картинок. Реализации stateless,
// кроме собственного raw-кеша у bulk-провайдеров.
type Provider interface {
	Name() string
	// PagingSupported: true - провайдер сам умеет листать (start/count
	// уходят в апстрим как есть), false - bulk-провайдер, отдаёт всё
	// одним запросом и страницы нарезаются из raw-кеша.
	PagingSupported() bool
	Search(ctx context.Context, req domain.SearchRequest) (*Response, error)
	HealthCheck(ctx context.Context) HealthStatus
}

type Response struct {
	Results []domain.ImageResult
	// Total: для paged-провайдеров - число, которое сообщил апстрим,
	// для bulk - длина отфильтрованного набора.
	Total int
	Took  time.Duration
}

type HealthStatus struct {
	Healthy bool
	Message string
}
