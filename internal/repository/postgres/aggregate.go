package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/imgsearch/internal/domain"
)

type AggregateRepo struct {
	db *DB
}

func NewAggregateRepo(db *DB) *AggregateRepo {
	return &AggregateRepo{db: db}
}

// Save пишет аггрегат и элементы одной транзакцией. Старая запись с тем же
// fingerprint (обычно просроченная) удаляется, каскад убирает её элементы.
func (r *AggregateRepo) Save(ctx context.Context, agg *domain.Aggregate, items []domain.ImageResult) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM aggregated_results WHERE fingerprint = $1`,
		agg.Fingerprint,
	); err != nil {
		return fmt.Errorf("delete stale aggregate: %w", err)
	}

	query := `
        INSERT INTO aggregated_results (id, fingerprint, query, orientation, quality_hint, providers_used, owner_user_id, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
    `
	if _, err := tx.Exec(ctx, query,
		agg.ID,
		agg.Fingerprint,
		agg.Query,
		string(agg.Orientation),
		agg.QualityHint,
		agg.ProvidersUsed,
		agg.OwnerUserID,
		agg.CreatedAt,
		agg.ExpiresAt,
	); err != nil {
		return fmt.Errorf("insert aggregate: %w", err)
	}

	// position фиксирует порядок ранжирования для стабильной пагинации
	batch := &pgx.Batch{}
	itemQuery := `
        INSERT INTO result_items (id, agg_id, position, result_id, title, url, thumbnail_url, source_url, source_domain, description, width, height, file_size, mime_type, file_format, origin_provider)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `
	for i, item := range items {
		batch.Queue(itemQuery,
			uuid.NewString(),
			agg.ID,
			i,
			item.ID,
			item.Title,
			item.ImageURL,
			item.ThumbnailURL,
			item.SourcePageURL,
			item.SourceDomain,
			item.Description,
			item.Width,
			item.Height,
			item.ByteSize,
			item.MimeType,
			item.FileFormat,
			item.Provider,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *AggregateRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Aggregate, error) {
	query := `
        SELECT id, fingerprint, query, orientation, quality_hint, providers_used, COALESCE(owner_user_id, ''), created_at, expires_at
        FROM aggregated_results
        WHERE fingerprint = $1 AND expires_at > NOW()
    `

	var agg domain.Aggregate
	var orientation string
	err := r.db.Pool.QueryRow(ctx, query, fingerprint).Scan(
		&agg.ID,
		&agg.Fingerprint,
		&agg.Query,
		&orientation,
		&agg.QualityHint,
		&agg.ProvidersUsed,
		&agg.OwnerUserID,
		&agg.CreatedAt,
		&agg.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAggregateNotFound
		}
		return nil, fmt.Errorf("get aggregate: %w", err)
	}

	agg.Orientation = domain.Orientation(orientation)
	return &agg, nil
}

func (r *AggregateRepo) GetItems(ctx context.Context, aggID string, offset, limit int) ([]domain.ImageResult, error) {
	query := `
        SELECT result_id, title, url, thumbnail_url, source_url, source_domain, description, width, height, file_size, mime_type, file_format, origin_provider
        FROM result_items
        WHERE agg_id = $1
        ORDER BY position
        OFFSET $2 LIMIT $3
    `

	rows, err := r.db.Pool.Query(ctx, query, aggID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.ImageResult
	for rows.Next() {
		var it domain.ImageResult
		err := rows.Scan(
			&it.ID,
			&it.Title,
			&it.ImageURL,
			&it.ThumbnailURL,
			&it.SourcePageURL,
			&it.SourceDomain,
			&it.Description,
			&it.Width,
			&it.Height,
			&it.ByteSize,
			&it.MimeType,
			&it.FileFormat,
			&it.Provider,
		)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func (r *AggregateRepo) CountItems(ctx context.Context, aggID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM result_items WHERE agg_id = $1`, aggID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

func (r *AggregateRepo) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	if _, err := r.db.Pool.Exec(ctx,
		`DELETE FROM aggregated_results WHERE fingerprint = $1`, fingerprint,
	); err != nil {
		return fmt.Errorf("delete aggregate: %w", err)
	}
	return nil
}

func (r *AggregateRepo) DeleteByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM aggregated_results WHERE owner_user_id = $1`, ownerUserID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete by owner: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *AggregateRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM aggregated_results WHERE expires_at <= NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return result.RowsAffected(), nil
}
