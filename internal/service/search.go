package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/imgsearch/internal/cache"
	"github.com/kitbuilder587/imgsearch/internal/domain"
	"github.com/kitbuilder587/imgsearch/internal/metrics"
	"github.com/kitbuilder587/imgsearch/internal/pagination"
	"github.com/kitbuilder587/imgsearch/internal/provider"
	"github.com/kitbuilder587/imgsearch/internal/repository"
)

type SearchService interface {
	Search(ctx context.Context, req domain.SearchRequest, userID string) (*domain.SearchResponse, error)
	Invalidate(ctx context.Context, userID, pattern string) (int, error)
	Health(ctx context.Context, providerName string) (*HealthReport, error)
}

type HealthReport struct {
	Healthy   bool
	Providers map[string]provider.HealthStatus
}

type SearchConfig struct {
	ResponseTTL     time.Duration
	ProviderTimeout time.Duration
}

type SearchServiceDeps struct {
	Selector   *EngineSelector
	Aggregator *Aggregator
	Repo       repository.AggregateRepository
	Cache      cache.Cache
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Config     SearchConfig
}

type searchService struct {
	selector   *EngineSelector
	aggregator *Aggregator
	repo       repository.AggregateRepository
	cache      cache.Cache
	logger     *zap.Logger
	metrics    *metrics.Metrics
	config     SearchConfig
}

func NewSearchService(deps SearchServiceDeps) SearchService {
	if deps.Config.ResponseTTL == 0 {
		deps.Config.ResponseTTL = time.Hour
	}
	if deps.Config.ProviderTimeout == 0 {
		deps.Config.ProviderTimeout = 30 * time.Second
	}

	return &searchService{
		selector:   deps.Selector,
		aggregator: deps.Aggregator,
		repo:       deps.Repo,
		cache:      deps.Cache,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		config:     deps.Config,
	}
}

func (s *searchService) Search(ctx context.Context, req domain.SearchRequest, userID string) (*domain.SearchResponse, error) {
	started := time.Now()

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	// валидация строго до любых походов в кеш или к провайдерам
	if err := req.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.RecordRequest("validation", "error", time.Since(started))
		}
		return nil, err
	}
	req.Sanitize()

	selected, err := s.selector.Select(req.ProviderHint)
	if err != nil {
		return nil, err
	}

	var resp *domain.SearchResponse
	mode := ModeAggregate
	if selected != nil {
		mode = "single"
		resp, err = s.searchSingle(ctx, selected, req, started)
	} else {
		resp, err = s.searchAggregate(ctx, req, userID, started)
	}

	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordRequest(mode, status, time.Since(started))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("search processed",
		zap.String("query", req.Query),
		zap.String("mode", mode),
		zap.String("engine", resp.Info.Engine),
		zap.Int("total_results", resp.Pagination.TotalResults),
		zap.Bool("cached", resp.Info.Cached),
	)

	return resp, nil
}

// searchSingle обслуживает запрос одним провайдером с кешированием
// готового ответа
func (s *searchService) searchSingle(ctx context.Context, p provider.Provider, req domain.SearchRequest, started time.Time) (*domain.SearchResponse, error) {
	key := s.cacheKey(p, req)

	if cached, ok := s.cache.Get(key); ok {
		// у bulk-провайдеров ключ не содержит count/start, поэтому под ним
		// может лежать другая страница того же запроса - тогда идём к
		// провайдеру, он отдаст срез из своего raw-кеша без похода наружу
		if prev, ok := cached.(*domain.SearchResponse); ok && sameWindow(prev, req) {
			if s.metrics != nil {
				s.metrics.RecordCacheHit()
			}
			resp := *prev
			resp.Info.Cached = true
			resp.Info.Timestamp = time.Now()
			resp.Info.Took = time.Since(started)
			return &resp, nil
		}
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}

	pctx, cancel := context.WithTimeout(ctx, s.config.ProviderTimeout)
	defer cancel()

	fetchStart := time.Now()
	provResp, err := p.Search(pctx, req)

	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordProviderRequest(p.Name(), status, time.Since(fetchStart))
	}
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.Name(), err)
	}

	resp := &domain.SearchResponse{
		Results:    provResp.Results,
		Pagination: pagination.Compute(req.Start, req.Count, provResp.Total),
		Info: domain.SearchInfo{
			Query:       req.Query,
			Orientation: req.Orientation,
			Took:        time.Since(started),
			Engine:      p.Name(),
			Timestamp:   time.Now(),
		},
	}

	// кеш best-effort: ошибка записи не должна дойти до клиента
	if err := s.cache.Set(key, resp, s.config.ResponseTTL); err != nil {
		s.logger.Warn("cache set failed",
			zap.Error(err),
			zap.String("key", key),
		)
	}

	return resp, nil
}

// searchAggregate читает страницу из персистентного аггрегата,
// при необходимости собирая его
func (s *searchService) searchAggregate(ctx context.Context, req domain.SearchRequest, userID string, started time.Time) (*domain.SearchResponse, error) {
	agg, built, err := s.aggregator.GetOrBuild(ctx, req, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountItems(ctx, agg.ID)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	items, err := s.repo.GetItems(ctx, agg.ID, req.Start-1, req.Count)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return &domain.SearchResponse{
		Results:    items,
		Pagination: pagination.Compute(req.Start, req.Count, total),
		Info: domain.SearchInfo{
			Query:       req.Query,
			Orientation: req.Orientation,
			Took:        time.Since(started),
			Engine:      "aggregate:" + strings.Join(agg.ProvidersUsed, ","),
			Timestamp:   time.Now(),
			Cached:      !built,
		},
	}, nil
}

func sameWindow(resp *domain.SearchResponse, req domain.SearchRequest) bool {
	wantPage := (req.Start + req.Count - 1) / req.Count
	return resp.Pagination.ResultsPerPage == req.Count &&
		resp.Pagination.CurrentPage == wantPage
}

// cacheKey - стабильный hash по отсортированным значимым параметрам.
// Для paged-провайдеров каждая страница - отдельный ответ, поэтому count
// и start входят в ключ; для bulk они намеренно исключены, и все страницы
// одного запроса делят одну запись.
func (s *searchService) cacheKey(p provider.Provider, req domain.SearchRequest) string {
	params := []string{
		"orientation=" + string(req.Orientation),
		"provider=" + p.Name(),
		"quality=" + req.QualityHint,
		"query=" + strings.ToLower(req.Query),
	}
	if p.PagingSupported() {
		params = append(params,
			fmt.Sprintf("count=%d", req.Count),
			fmt.Sprintf("start=%d", req.Start),
		)
	}
	sort.Strings(params)

	hash := sha256.Sum256([]byte(strings.Join(params, "&")))
	return fmt.Sprintf("search:%x", hash[:8])
}

// Invalidate чистит кеш ответов по regex-паттерну (по умолчанию весь
// search-неймспейс) и, если задан userID, его персистентные аггрегаты.
func (s *searchService) Invalidate(ctx context.Context, userID, pattern string) (int, error) {
	if pattern == "" {
		pattern = "^search:"
	}

	removed, err := s.cache.Invalidate(pattern)
	if err != nil {
		// проблемы кеша не фатальны, но кривой паттерн - ошибка вызывающего
		return 0, fmt.Errorf("invalidate cache: %w", err)
	}

	if userID != "" {
		n, err := s.repo.DeleteByOwner(ctx, userID)
		if err != nil {
			s.logger.Warn("delete aggregates by owner failed",
				zap.Error(err),
				zap.String("user_id", userID),
			)
		} else {
			removed += int(n)
		}
	}

	s.logger.Info("cache invalidated",
		zap.String("pattern", pattern),
		zap.String("user_id", userID),
		zap.Int("removed", removed),
	)

	return removed, nil
}

func (s *searchService) Health(ctx context.Context, providerName string) (*HealthReport, error) {
	report := &HealthReport{
		Healthy:   true,
		Providers: make(map[string]provider.HealthStatus),
	}

	if providerName != "" {
		p, ok := s.selector.Provider(providerName)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerName)
		}
		status := p.HealthCheck(ctx)
		report.Healthy = status.Healthy
		report.Providers[providerName] = status
		return report, nil
	}

	for _, p := range s.selector.Providers() {
		status := p.HealthCheck(ctx)
		report.Providers[p.Name()] = status
		if !status.Healthy {
			report.Healthy = false
		}
	}
	return report, nil
}
