package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// InitDatabase opens and pings the PostgreSQL connection
func InitDatabase(dbURL string) error {
	if dbURL == "" {
		return fmt.Errorf("database URL is required")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to database")
	return nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id UUID PRIMARY KEY,
			status VARCHAR(32) NOT NULL,
			method VARCHAR(16) NOT NULL,
			pause_on_captcha BOOLEAN DEFAULT TRUE,
			selection VARCHAR(16) NOT NULL DEFAULT 'diverse',
			excluded_sources TEXT[] DEFAULT '{}',
			total INTEGER NOT NULL DEFAULT 0,
			processed INTEGER NOT NULL DEFAULT 0,
			message TEXT DEFAULT '',
			error TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS plant_results (
			id SERIAL PRIMARY KEY,
			batch_id UUID REFERENCES batches(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			plant TEXT NOT NULL,
			status VARCHAR(20) NOT NULL CHECK (status IN ('found', 'not_found', 'captcha_skipped', 'error')),
			error TEXT DEFAULT '',
			price_count INTEGER DEFAULT 0,
			min_price VARCHAR(20),
			max_price VARCHAR(20),
			avg_price VARCHAR(20),
			processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (batch_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS price_candidates (
			id SERIAL PRIMARY KEY,
			result_id INTEGER REFERENCES plant_results(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			price VARCHAR(40) NOT NULL,
			source TEXT NOT NULL,
			category VARCHAR(20) NOT NULL,
			relevance_score INTEGER DEFAULT 0,
			observed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`ALTER TABLE batches ADD COLUMN IF NOT EXISTS selection VARCHAR(16) NOT NULL DEFAULT 'diverse'`,

		`CREATE INDEX IF NOT EXISTS idx_batches_created ON batches (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_plant_results_batch ON plant_results (batch_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_price_candidates_result ON price_candidates (result_id, rank)`,
	}

	for _, query := range queries {
		_, err := DB.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
