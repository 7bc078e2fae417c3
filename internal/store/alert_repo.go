package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexshd/biotica"
)

// AlertRow is one archived governor decision.
type AlertRow struct {
	ID             string    `db:"id" json:"id"`
	ResultID       string    `db:"result_id" json:"result_id"`
	PlotID         string    `db:"plot_id" json:"plot_id"`
	Action         string    `db:"action" json:"action"`
	Score          float64   `db:"score" json:"score"`
	Classification string    `db:"classification" json:"classification"`
	WarningLevel   int       `db:"warning_level" json:"warning_level"`
	Velocity       float64   `db:"velocity" json:"velocity"`
	Reason         string    `db:"reason" json:"reason"`
	Mitigation     string    `db:"mitigation" json:"mitigation"`
	Published      bool      `db:"published" json:"published"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// AlertRepository handles alert database operations
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Save archives action, decided for the result resultID, and returns the row.
func (r *AlertRepository) Save(resultID string, a biotica.Action) (*AlertRow, error) {
	row := &AlertRow{
		ID:             uuid.New().String(),
		ResultID:       resultID,
		PlotID:         a.PlotID,
		Action:         string(a.Type),
		Score:          a.Score,
		Classification: string(a.Classification),
		WarningLevel:   a.WarningLevel,
		Velocity:       a.Velocity,
		Reason:         a.Reason,
		Mitigation:     a.Mitigation,
		CreatedAt:      a.Timestamp.UTC(),
	}

	_, err := r.db.NamedExec(`
		INSERT INTO alerts (
			id, result_id, plot_id, action, score, classification,
			warning_level, velocity, reason, mitigation, published, created_at
		) VALUES (
			:id, :result_id, :plot_id, :action, :score, :classification,
			:warning_level, :velocity, :reason, :mitigation, :published, :created_at
		)`, row)
	if err != nil {
		return nil, fmt.Errorf("failed to save alert: %w", err)
	}
	return row, nil
}

// MarkPublished flags an alert as delivered to the broker.
func (r *AlertRepository) MarkPublished(id string) error {
	res, err := r.db.Exec(`UPDATE alerts SET published = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get retrieves an alert by ID
func (r *AlertRepository) Get(id string) (*AlertRow, error) {
	var row AlertRow
	err := r.db.Get(&row, `SELECT * FROM alerts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns the alerts of plotID (all plots when empty), newest first.
func (r *AlertRepository) List(plotID string, limit int) ([]AlertRow, error) {
	query := `SELECT * FROM alerts`
	var args []interface{}
	if plotID != "" {
		query += ` WHERE plot_id = ?`
		args = append(args, plotID)
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows := []AlertRow{}
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return rows, nil
}

// Unpublished returns alerts not yet delivered, oldest first.
func (r *AlertRepository) Unpublished() ([]AlertRow, error) {
	rows := []AlertRow{}
	err := r.db.Select(&rows, `SELECT * FROM alerts WHERE published = 0 ORDER BY created_at, id`)
	return rows, err
}
