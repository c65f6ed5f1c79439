package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/imgsearch/internal/domain"
	"github.com/kitbuilder587/imgsearch/internal/metrics"
	"github.com/kitbuilder587/imgsearch/internal/provider"
	"github.com/kitbuilder587/imgsearch/internal/repository"
)

type AggregatorConfig struct {
	// MaxPagedFetches - сколько страниц подряд выкачивать у paged-провайдера,
	// чтобы приблизить его к bulk-фетчу
	MaxPagedFetches int
	// PagedFetchSize - размер страницы paged-провайдера
	PagedFetchSize  int
	ProviderTimeout time.Duration
	TTL             time.Duration
}

type AggregatorDeps struct {
	Providers []provider.Provider
	Repo      repository.AggregateRepository
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Config    AggregatorConfig
}

// Aggregator владеет жизненным циклом AggregatedResultSet: один раз собирает
// набор под fingerprint, дальше набор только читается до истечения TTL.
type Aggregator struct {
	providers []provider.Provider
	repo      repository.AggregateRepository
	logger    *zap.Logger
	metrics   *metrics.Metrics
	config    AggregatorConfig
}

func NewAggregator(deps AggregatorDeps) *Aggregator {
	if deps.Config.MaxPagedFetches == 0 {
		deps.Config.MaxPagedFetches = 5
	}
	if deps.Config.PagedFetchSize == 0 {
		deps.Config.PagedFetchSize = 10
	}
	if deps.Config.ProviderTimeout == 0 {
		deps.Config.ProviderTimeout = 30 * time.Second
	}
	if deps.Config.TTL == 0 {
		deps.Config.TTL = domain.AggregateTTL
	}

	return &Aggregator{
		providers: deps.Providers,
		repo:      deps.Repo,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		config:    deps.Config,
	}
}

// GetOrBuild возвращает живой аггрегат по fingerprint запроса или собирает
// новый. Второе значение - true, если набор пришлось строить.
func (a *Aggregator) GetOrBuild(ctx context.Context, req domain.SearchRequest, userID string) (*domain.Aggregate, bool, error) {
	fp := domain.Fingerprint(req.Query, req.Orientation, req.QualityHint)

	agg, err := a.repo.GetByFingerprint(ctx, fp)
	if err == nil {
		return agg, false, nil
	}
	if !errors.Is(err, domain.ErrAggregateNotFound) {
		// хранилище недоступно - деградируем до пересборки
		a.logger.Warn("aggregate lookup failed",
			zap.Error(err),
			zap.String("fingerprint", fp),
		)
	}

	agg, err = a.build(ctx, fp, req, userID)
	if err != nil {
		return nil, false, err
	}
	return agg, true, nil
}

type providerFetch struct {
	results []domain.ImageResult
	err     error
}

func (a *Aggregator) build(ctx context.Context, fp string, req domain.SearchRequest, userID string) (*domain.Aggregate, error) {
	started := time.Now()

	// fetches индексируется порядком конфигурации провайдеров: порядок
	// завершения горутин не влияет на tie-break дедупликации
	fetches := make([]providerFetch, len(a.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range a.providers {
		i, p := i, p
		g.Go(func() error {
			results, err := a.fetchProvider(gctx, p, req)
			if err != nil {
				a.logger.Warn("provider fetch failed",
					zap.Error(err),
					zap.String("provider", p.Name()),
				)
				fetches[i] = providerFetch{err: err}
				return nil
			}
			fetches[i] = providerFetch{results: results}
			return nil
		})
	}
	g.Wait()

	var providersUsed []string
	var failures []string
	for i, p := range a.providers {
		if fetches[i].err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), fetches[i].err))
			continue
		}
		providersUsed = append(providersUsed, p.Name())
	}

	if len(providersUsed) == 0 {
		if a.metrics != nil {
			a.metrics.RecordAggregation("all_failed", time.Since(started))
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrAllProvidersFailed, strings.Join(failures, "; "))
	}

	merged := dedupeInOrder(fetches)
	rank(merged)

	now := time.Now()
	agg := &domain.Aggregate{
		ID:            uuid.NewString(),
		Fingerprint:   fp,
		Query:         req.Query,
		Orientation:   req.Orientation,
		QualityHint:   req.QualityHint,
		ProvidersUsed: providersUsed,
		OwnerUserID:   userID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(a.config.TTL),
	}

	if err := a.repo.Save(ctx, agg, merged); err != nil {
		if a.metrics != nil {
			a.metrics.RecordAggregation("save_failed", time.Since(started))
		}
		return nil, fmt.Errorf("save aggregate: %w", err)
	}

	a.logger.Info("aggregate built",
		zap.String("fingerprint", fp),
		zap.Int("merged_total", len(merged)),
		zap.Strings("providers_used", providersUsed),
		zap.Int("providers_failed", len(failures)),
		zap.Duration("took", time.Since(started)),
	)

	if a.metrics != nil {
		a.metrics.RecordAggregation("success", time.Since(started))
	}

	return agg, nil
}

// fetchProvider выкачивает у провайдера максимум, который тот готов отдать:
// bulk - весь отфильтрованный набор, paged - ограниченной серией страниц
func (a *Aggregator) fetchProvider(ctx context.Context, p provider.Provider, req domain.SearchRequest) ([]domain.ImageResult, error) {
	if !p.PagingSupported() {
		// один Search отдаёт не больше MaxCount, а сырой набор bulk-провайдера
		// может быть больше - вычерпываем окнами до конца. Первое окно делает
		// апстрим-фетч, остальные режутся из raw-кеша провайдера.
		var all []domain.ImageResult
		for start := 1; ; start += domain.MaxCount {
			resp, err := a.search(ctx, p, domain.SearchRequest{
				Query:       req.Query,
				Orientation: req.Orientation,
				QualityHint: req.QualityHint,
				Count:       domain.MaxCount,
				Start:       start,
			})
			if err != nil {
				if start == 1 {
					return nil, err
				}
				a.logger.Debug("bulk drain stopped early",
					zap.Error(err),
					zap.String("provider", p.Name()),
					zap.Int("start", start),
				)
				break
			}

			all = append(all, resp.Results...)
			if len(resp.Results) < domain.MaxCount || len(all) >= resp.Total {
				break
			}
		}
		return all, nil
	}

	size := a.config.PagedFetchSize
	var all []domain.ImageResult
	for page := 0; page < a.config.MaxPagedFetches; page++ {
		resp, err := a.search(ctx, p, domain.SearchRequest{
			Query:       req.Query,
			Orientation: req.Orientation,
			QualityHint: req.QualityHint,
			Count:       size,
			Start:       page*size + 1,
		})
		if err != nil {
			// первая страница обязана получиться, хвост - как повезёт
			if page == 0 {
				return nil, err
			}
			a.logger.Debug("paged walk stopped early",
				zap.Error(err),
				zap.String("provider", p.Name()),
				zap.Int("page", page+1),
			)
			break
		}

		all = append(all, resp.Results...)
		if len(resp.Results) < size || len(all) >= resp.Total {
			break
		}
	}
	return all, nil
}

func (a *Aggregator) search(ctx context.Context, p provider.Provider, req domain.SearchRequest) (*provider.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.ProviderTimeout)
	defer cancel()

	started := time.Now()
	resp, err := p.Search(ctx, req)

	if a.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		a.metrics.RecordProviderRequest(p.Name(), status, time.Since(started))
	}

	return resp, err
}

// dedupeInOrder оставляет первое вхождение каждого ImageURL, обходя
// провайдеров строго в сконфигурированном порядке
func dedupeInOrder(fetches []providerFetch) []domain.ImageResult {
	seen := make(map[string]bool)
	var merged []domain.ImageResult
	for _, f := range fetches {
		for _, r := range f.results {
			if r.ImageURL == "" || seen[r.ImageURL] {
				continue
			}
			seen[r.ImageURL] = true
			merged = append(merged, r)
		}
	}
	return merged
}

// rank сортирует по площади по убыванию; записи без известного разрешения
// уходят в хвост, сохраняя взаимный порядок (stable)
func rank(results []domain.ImageResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i].Resolution(), results[j].Resolution()
		if ri == 0 {
			return false
		}
		if rj == 0 {
			return true
		}
		return ri > rj
	})
}
