package repository

import (
	"context"

	"github.com/kitbuilder587/imgsearch/internal/domain"
)

// AggregateRepository - долговременное хранилище слитых наборов.
// Создание/замена набора принадлежит аггрегатору, остальные только читают.
type AggregateRepository interface {
	// Save пишет аггрегат и его элементы в порядке ранжирования одной
	// транзакцией. Существующая запись с тем же fingerprint заменяется.
	Save(ctx context.Context, agg *domain.Aggregate, items []domain.ImageResult) error
	// GetByFingerprint возвращает живой аггрегат; просроченный считается
	// отсутствующим (domain.ErrAggregateNotFound).
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Aggregate, error)
	// GetItems возвращает срез элементов в сохранённом порядке
	GetItems(ctx context.Context, aggID string, offset, limit int) ([]domain.ImageResult, error)
	CountItems(ctx context.Context, aggID string) (int, error)
	DeleteByFingerprint(ctx context.Context, fingerprint string) error
	DeleteByOwner(ctx context.Context, ownerUserID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
