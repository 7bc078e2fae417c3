package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexshd/biotica"
)

// ResultRow is one archived result.
type ResultRow struct {
	ID              string    `db:"id" json:"id"`
	PlotID          string    `db:"plot_id" json:"plot_id"`
	Biome           string    `db:"biome" json:"biome"`
	Score           float64   `db:"score" json:"score"`
	NormalizedScore float64   `db:"normalized_score" json:"normalized_score"`
	Classification  string    `db:"classification" json:"classification"`
	Uncertainty     float64   `db:"uncertainty" json:"uncertainty"`
	Confidence      float64   `db:"confidence" json:"confidence"`
	NWarnings       int       `db:"n_warnings" json:"n_warnings"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	ResultData      string    `db:"result_data" json:"-"`
}

// Result decodes the full result stored with the row.
func (r ResultRow) Result() (biotica.IBRResult, error) {
	var res biotica.IBRResult
	if err := json.Unmarshal([]byte(r.ResultData), &res); err != nil {
		return biotica.IBRResult{}, fmt.Errorf("failed to decode result %s: %w", r.ID, err)
	}
	return res, nil
}

// ResultFilter narrows List. Zero fields match everything.
type ResultFilter struct {
	PlotID         string
	Classification biotica.Classification
	Since          time.Time
	Limit          int
}

// ResultRepository handles result database operations
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save archives r. Saving the same id twice replaces the earlier row.
func (r *ResultRepository) Save(res biotica.IBRResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}

	query := `
		INSERT OR REPLACE INTO results (
			id, plot_id, biome, score, normalized_score, classification,
			uncertainty, confidence, n_warnings, created_at, result_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		res.ID,
		res.PlotID,
		string(res.Biome),
		res.Score,
		res.NormalizedScore,
		string(res.Classification),
		res.Uncertainty,
		res.Confidence,
		len(res.Warnings),
		res.Timestamp.UTC(),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", res.ID, err)
	}
	return nil
}

// SaveAll archives results in one transaction.
func (r *ResultRepository) SaveAll(results []biotica.IBRResult) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`
		INSERT OR REPLACE INTO results (
			id, plot_id, biome, score, normalized_score, classification,
			uncertainty, confidence, n_warnings, created_at, result_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, res := range results {
		data, err := json.Marshal(res)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(res.ID, res.PlotID, string(res.Biome), res.Score,
			res.NormalizedScore, string(res.Classification), res.Uncertainty,
			res.Confidence, len(res.Warnings), res.Timestamp.UTC(), string(data)); err != nil {
			return fmt.Errorf("failed to save result %s: %w", res.ID, err)
		}
	}
	return tx.Commit()
}

// Get retrieves a result by ID
func (r *ResultRepository) Get(id string) (*ResultRow, error) {
	var row ResultRow
	err := r.db.Get(&row, `SELECT * FROM results WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns results matching f, newest first.
func (r *ResultRepository) List(f ResultFilter) ([]ResultRow, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.PlotID != "" {
		where = append(where, "plot_id = ?")
		args = append(args, f.PlotID)
	}
	if f.Classification != "" {
		where = append(where, "classification = ?")
		args = append(args, string(f.Classification))
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}

	query := `SELECT * FROM results`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows := []ResultRow{}
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return rows, nil
}

// Series returns the normalized scores of plotID oldest first with their
// timestamps in days since the first one, ready for a detector.
func (r *ResultRepository) Series(plotID string) (scores, days []float64, err error) {
	var rows []struct {
		NormalizedScore float64   `db:"normalized_score"`
		CreatedAt       time.Time `db:"created_at"`
	}
	err = r.db.Select(&rows,
		`SELECT normalized_score, created_at FROM results WHERE plot_id = ? ORDER BY created_at`, plotID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load series for %s: %w", plotID, err)
	}
	scores = make([]float64, len(rows))
	days = make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = row.NormalizedScore
		days[i] = row.CreatedAt.Sub(rows[0].CreatedAt).Hours() / 24
	}
	return scores, days, nil
}

// CountByClass returns the number of archived results per classification.
func (r *ResultRepository) CountByClass() (map[biotica.Classification]int, error) {
	var rows []struct {
		Classification string `db:"classification"`
		N              int    `db:"n"`
	}
	if err := r.db.Select(&rows, `SELECT classification, COUNT(*) AS n FROM results GROUP BY classification`); err != nil {
		return nil, err
	}
	counts := make(map[biotica.Classification]int, len(biotica.AllClassifications()))
	for _, c := range biotica.AllClassifications() {
		counts[c] = 0
	}
	for _, row := range rows {
		counts[biotica.Classification(row.Classification)] = row.N
	}
	return counts, nil
}
