package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"plantprice/database"
	"plantprice/models"
)

var ErrBatchNotFound = errors.New("batch not found")

type ResultRepository struct{}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{}
}

// SaveBatch inserts or updates the batch row
func (r *ResultRepository) SaveBatch(ctx context.Context, b *models.Batch) error {
	query := `
		INSERT INTO batches (id, status, method, pause_on_captcha, selection, excluded_sources, total, processed, message, error, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			processed = EXCLUDED.processed,
			message = EXCLUDED.message,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`

	_, err := database.DB.ExecContext(ctx, query,
		b.ID, b.Status, b.Method, b.PauseOnCaptcha, b.Selection, pq.Array(b.ExcludedSources),
		b.Total, b.Processed, b.Message, b.Error, b.CreatedAt, b.StartedAt, b.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// SaveResult stores one plant result and replaces its ranked candidates
func (r *ResultRepository) SaveResult(ctx context.Context, batchID string, result models.PlantResult) error {
	tx, err := database.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO plant_results (batch_id, position, plant, status, error, price_count, min_price, max_price, avg_price, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (batch_id, position) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			price_count = EXCLUDED.price_count,
			min_price = EXCLUDED.min_price,
			max_price = EXCLUDED.max_price,
			avg_price = EXCLUDED.avg_price,
			processed_at = EXCLUDED.processed_at
		RETURNING id
	`

	var resultID int
	err = tx.QueryRowContext(ctx, query,
		batchID, result.Position, result.Plant, result.Status, result.Error,
		result.Stats.Count, result.Stats.Min, result.Stats.Max, result.Stats.Avg, result.ProcessedAt,
	).Scan(&resultID)
	if err != nil {
		return fmt.Errorf("failed to save plant result: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_candidates WHERE result_id = $1`, resultID); err != nil {
		return fmt.Errorf("failed to clear candidates: %w", err)
	}

	for rank, c := range result.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO price_candidates (result_id, rank, price, source, category, relevance_score, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, resultID, rank+1, c.Price, c.Source, c.Category, c.RelevanceScore, c.ObservedAt)
		if err != nil {
			return fmt.Errorf("failed to save candidate: %w", err)
		}
	}

	return tx.Commit()
}

// ListBatches returns the most recent batches first
func (r *ResultRepository) ListBatches(ctx context.Context, limit int) ([]models.BatchSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, status, method, total, processed, message, created_at, finished_at
		FROM batches
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := database.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := []models.BatchSummary{}
	for rows.Next() {
		var b models.BatchSummary
		err := rows.Scan(&b.ID, &b.Status, &b.Method, &b.Total, &b.Processed, &b.Message, &b.CreatedAt, &b.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}

	return batches, rows.Err()
}

// GetBatchResults returns the stored results of one batch in position order
func (r *ResultRepository) GetBatchResults(ctx context.Context, batchID string) ([]models.PlantResult, error) {
	var exists bool
	err := database.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM batches WHERE id = $1)`, batchID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up batch: %w", err)
	}
	if !exists {
		return nil, ErrBatchNotFound
	}

	query := `
		SELECT r.id, r.position, r.plant, r.status, r.error, r.price_count, r.min_price, r.max_price, r.avg_price, r.processed_at,
			c.price, c.source, c.category, c.relevance_score, c.observed_at
		FROM plant_results r
		LEFT JOIN price_candidates c ON c.result_id = r.id
		WHERE r.batch_id = $1
		ORDER BY r.position, c.rank
	`

	rows, err := database.DB.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch results: %w", err)
	}
	defer rows.Close()

	results := []models.PlantResult{}
	lastID := -1
	for rows.Next() {
		var (
			id        int
			res       models.PlantResult
			price     sql.NullString
			source    sql.NullString
			category  sql.NullString
			score     sql.NullInt64
			observed  sql.NullTime
			minPrice  sql.NullString
			maxPrice  sql.NullString
			avgPrice  sql.NullString
			errorText sql.NullString
		)
		err := rows.Scan(
			&id, &res.Position, &res.Plant, &res.Status, &errorText, &res.Stats.Count, &minPrice, &maxPrice, &avgPrice, &res.ProcessedAt,
			&price, &source, &category, &score, &observed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		if id != lastID {
			res.Error = errorText.String
			res.Stats.Min, res.Stats.Max, res.Stats.Avg = minPrice.String, maxPrice.String, avgPrice.String
			res.Results = []models.SearchCandidate{}
			results = append(results, res)
			lastID = id
		}
		if !price.Valid {
			continue
		}

		current := &results[len(results)-1]
		current.Results = append(current.Results, models.SearchCandidate{
			Query:          current.Plant,
			Price:          price.String,
			Source:         source.String,
			Category:       models.Category(category.String),
			RelevanceScore: int(score.Int64),
			ObservedAt:     observed.Time,
		})
	}

	return results, rows.Err()
}
