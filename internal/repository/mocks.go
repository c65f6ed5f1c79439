package repository

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/imgsearch/internal/domain"
)

type storedAggregate struct {
	agg   domain.Aggregate
	items []domain.ImageResult
}

type MockAggregateRepository struct {
	mu   sync.RWMutex
	byFP map[string]*storedAggregate

	SaveErr error
	GetErr  error

	SaveCalls int
	GetCalls  int
}

func NewMockAggregateRepository() *MockAggregateRepository {
	return &MockAggregateRepository{
		byFP: make(map[string]*storedAggregate),
	}
}

func (m *MockAggregateRepository) WithSaveError(err error) *MockAggregateRepository {
	m.SaveErr = err
	return m
}

func (m *MockAggregateRepository) Save(ctx context.Context, agg *domain.Aggregate, items []domain.ImageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}

	copied := make([]domain.ImageResult, len(items))
	copy(copied, items)
	m.byFP[agg.Fingerprint] = &storedAggregate{agg: *agg, items: copied}
	return nil
}

func (m *MockAggregateRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	stored, ok := m.byFP[fingerprint]
	if !ok || stored.agg.Expired(time.Now()) {
		return nil, domain.ErrAggregateNotFound
	}
	agg := stored.agg
	return &agg, nil
}

func (m *MockAggregateRepository) GetItems(ctx context.Context, aggID string, offset, limit int) ([]domain.ImageResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, stored := range m.byFP {
		if stored.agg.ID != aggID {
			continue
		}
		if offset >= len(stored.items) {
			return nil, nil
		}
		end := offset + limit
		if end > len(stored.items) {
			end = len(stored.items)
		}
		page := make([]domain.ImageResult, end-offset)
		copy(page, stored.items[offset:end])
		return page, nil
	}
	return nil, domain.ErrAggregateNotFound
}

func (m *MockAggregateRepository) CountItems(ctx context.Context, aggID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, stored := range m.byFP {
		if stored.agg.ID == aggID {
			return len(stored.items), nil
		}
	}
	return 0, domain.ErrAggregateNotFound
}

func (m *MockAggregateRepository) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byFP, fingerprint)
	return nil
}

func (m *MockAggregateRepository) DeleteByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for fp, stored := range m.byFP {
		if stored.agg.OwnerUserID == ownerUserID {
			delete(m.byFP, fp)
			removed++
		}
	}
	return removed, nil
}

func (m *MockAggregateRepository) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var removed int64
	for fp, stored := range m.byFP {
		if stored.agg.Expired(now) {
			delete(m.byFP, fp)
			removed++
		}
	}
	return removed, nil
}

// Len - число живых аггрегатов (для ассертов в тестах)
func (m *MockAggregateRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byFP)
}
