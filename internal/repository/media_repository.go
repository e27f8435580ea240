package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipstream/server/internal/models"
)

const mediaColumns = `
	id, tenant_id, owner_id, title, description, mime_type, size_bytes,
	original_path, processed_path, thumbnail_path,
	duration_seconds, width, height, codec, bit_rate, has_audio,
	sensitivity_level, sensitivity_score, status, progress,
	created_at, updated_at`

type PostgresMediaRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMediaRepository(pool *pgxpool.Pool) *PostgresMediaRepository {
	return &PostgresMediaRepository{pool: pool}
}

func (r *PostgresMediaRepository) Create(ctx context.Context, m models.Media) error {
	const query = `
		INSERT INTO media (
			id, tenant_id, owner_id, title, description, mime_type, size_bytes,
			original_path, processed_path, thumbnail_path,
			duration_seconds, width, height, codec, bit_rate, has_audio,
			sensitivity_level, sensitivity_score, status, progress,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20,
			NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.TenantID,
		m.OwnerID,
		m.Title,
		m.Description,
		m.MimeType,
		m.SizeBytes,
		m.OriginalPath,
		m.ProcessedPath,
		m.ThumbnailPath,
		m.DurationSeconds,
		m.Width,
		m.Height,
		m.Codec,
		m.BitRate,
		m.HasAudio,
		m.SensitivityLevel,
		m.SensitivityScore,
		m.Status,
		m.Progress,
	)
	return err
}

func (r *PostgresMediaRepository) GetByID(ctx context.Context, id string) (models.Media, error) {
	const query = `SELECT` + mediaColumns + ` FROM media WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresMediaRepository) GetForTenant(ctx context.Context, id string, tenantID string) (models.Media, error) {
	const query = `SELECT` + mediaColumns + ` FROM media WHERE id = $1 AND tenant_id = $2`
	return r.scanOne(r.pool.QueryRow(ctx, query, id, tenantID))
}

func (r *PostgresMediaRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Media, error) {
	const query = `
		SELECT` + mediaColumns + `
		FROM media
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Media
	for rows.Next() {
		m, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *PostgresMediaRepository) Update(ctx context.Context, m models.Media) error {
	const query = `
		UPDATE media
		SET title = $2,
		    description = $3,
		    mime_type = $4,
		    size_bytes = $5,
		    original_path = $6,
		    processed_path = $7,
		    thumbnail_path = $8,
		    duration_seconds = $9,
		    width = $10,
		    height = $11,
		    codec = $12,
		    bit_rate = $13,
		    has_audio = $14,
		    sensitivity_level = $15,
		    sensitivity_score = $16,
		    status = $17,
		    progress = $18,
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Title,
		m.Description,
		m.MimeType,
		m.SizeBytes,
		m.OriginalPath,
		m.ProcessedPath,
		m.ThumbnailPath,
		m.DurationSeconds,
		m.Width,
		m.Height,
		m.Codec,
		m.BitRate,
		m.HasAudio,
		m.SensitivityLevel,
		m.SensitivityScore,
		m.Status,
		m.Progress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrMediaNotFound
	}
	return nil
}

func (r *PostgresMediaRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrMediaNotFound
	}
	return nil
}

func (r *PostgresMediaRepository) PromoteStatus(ctx context.Context, id string, from []models.MediaStatus, to models.MediaStatus) (bool, error) {
	const query = `
		UPDATE media
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	tag, err := r.pool.Exec(ctx, query, id, to, states)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresMediaRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.Media, error) {
	const query = `
		SELECT` + mediaColumns + `
		FROM media
		WHERE status = 'processing' AND updated_at < $1
		ORDER BY updated_at ASC
	`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Media
	for rows.Next() {
		m, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *PostgresMediaRepository) scanOne(row pgx.Row) (models.Media, error) {
	var m models.Media
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.OwnerID,
		&m.Title,
		&m.Description,
		&m.MimeType,
		&m.SizeBytes,
		&m.OriginalPath,
		&m.ProcessedPath,
		&m.ThumbnailPath,
		&m.DurationSeconds,
		&m.Width,
		&m.Height,
		&m.Codec,
		&m.BitRate,
		&m.HasAudio,
		&m.SensitivityLevel,
		&m.SensitivityScore,
		&m.Status,
		&m.Progress,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Media{}, models.ErrMediaNotFound
		}
		return models.Media{}, err
	}
	return m, nil
}
