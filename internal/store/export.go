package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportKind selects the table written by Export.
type ExportKind string

const (
	ExportResults ExportKind = "results"
	ExportAlerts  ExportKind = "alerts"
)

var resultHeader = []string{
	"id", "plot_id", "biome", "score", "normalized_score", "classification",
	"uncertainty", "confidence", "n_warnings", "timestamp",
}

var alertHeader = []string{
	"id", "result_id", "plot_id", "action", "score", "classification",
	"warning_level", "velocity", "published", "timestamp", "reason",
}

// WriteResultsCSV writes rows with a header line.
func WriteResultsCSV(w io.Writer, rows []ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.ID,
			r.PlotID,
			r.Biome,
			formatFloat(r.Score),
			formatFloat(r.NormalizedScore),
			r.Classification,
			formatFloat(r.Uncertainty),
			formatFloat(r.Confidence),
			strconv.Itoa(r.NWarnings),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAlertsCSV writes rows with a header line.
func WriteAlertsCSV(w io.Writer, rows []AlertRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(alertHeader); err != nil {
		return err
	}
	for _, a := range rows {
		rec := []string{
			a.ID,
			a.ResultID,
			a.PlotID,
			a.Action,
			formatFloat(a.Score),
			a.Classification,
			strconv.Itoa(a.WarningLevel),
			formatFloat(a.Velocity),
			strconv.FormatBool(a.Published),
			a.CreatedAt.UTC().Format(time.RFC3339),
			a.Reason,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the whole table of the given kind as CSV.
func Export(db *DB, kind ExportKind, w io.Writer) error {
	switch kind {
	case ExportResults:
		rows, err := NewResultRepository(db).List(ResultFilter{})
		if err != nil {
			return err
		}
		return WriteResultsCSV(w, rows)
	case ExportAlerts:
		rows, err := NewAlertRepository(db).List("", 0)
		if err != nil {
			return err
		}
		return WriteAlertsCSV(w, rows)
	}
	return fmt.Errorf("unknown export kind %q", kind)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
