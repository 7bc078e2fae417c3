package biotica

import (
	"errors"
	"testing"
)

func buildGrid(cells [][][]float64) [][][]float64 {
	rows, cols := len(cells), len(cells[0])
	n := len(cells[0][0])
	grid := make([][][]float64, n)
	for t := range grid {
		grid[t] = make([][]float64, rows)
		for i := range grid[t] {
			grid[t][i] = make([]float64, cols)
			for j := range grid[t][i] {
				grid[t][i][j] = cells[i][j][t]
			}
		}
	}
	return grid
}

func TestSpatialCoherence(t *testing.T) {
	// Two separate at-risk patches; (0,1) and (1,2) touch only diagonally.
	grid := buildGrid([][][]float64{
		{ar1Series(6, 200), ar1Series(13, 200), whiteNoise(1, 200)},
		{whiteNoise(5, 200), whiteNoise(19, 200), ar1Series(8, 200)},
	})

	report, err := defaultDetector(t).SpatialCoherence(grid)
	if err != nil {
		t.Fatalf("SpatialCoherence failed: %v", err)
	}
	t.Logf("Warning map: %v", report.WarningMap)

	if report.NCoherentRegions() != 2 {
		t.Fatalf("Expected 2 regions, got %d: %+v", report.NCoherentRegions(), report.Regions)
	}
	if report.TotalAreaAtRisk != 3 {
		t.Errorf("Expected 3 cells at risk, got %d", report.TotalAreaAtRisk)
	}

	first := report.Regions[0]
	if first.RowStart != 0 || first.RowStop != 1 || first.ColStart != 0 || first.ColStop != 2 || first.Size != 2 {
		t.Errorf("Unexpected first region %+v", first)
	}
	if first.MaxWarning != 3 {
		t.Errorf("Expected max warning 3, got %d", first.MaxWarning)
	}

	second := report.Regions[1]
	if second.RowStart != 1 || second.ColStart != 2 || second.Size != 1 {
		t.Errorf("Unexpected second region %+v", second)
	}

	total := 0
	for _, r := range report.Regions {
		total += r.Size
		if r.MeanConfidence < 0 || r.MeanConfidence > 1 {
			t.Errorf("Mean confidence %g outside [0,1]", r.MeanConfidence)
		}
	}
	if total != report.TotalAreaAtRisk {
		t.Errorf("Region sizes %d should sum to area at risk %d", total, report.TotalAreaAtRisk)
	}
}

func TestSpatialCoherence_NoRisk(t *testing.T) {
	grid := buildGrid([][][]float64{{whiteNoise(1, 200), whiteNoise(5, 200)}})
	report, err := defaultDetector(t).SpatialCoherence(grid)
	if err != nil {
		t.Fatalf("SpatialCoherence failed: %v", err)
	}
	if report.NCoherentRegions() != 0 || report.TotalAreaAtRisk != 0 || report.Regions == nil {
		t.Errorf("Expected an empty, non-nil region list, got %+v", report.Regions)
	}
}

func TestSpatialCoherence_InvalidGrid(t *testing.T) {
	d := defaultDetector(t)

	if _, err := d.SpatialCoherence(nil); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("Expected ErrEmptySeries, got %v", err)
	}

	ragged := [][][]float64{
		{{1, 2}, {3, 4}},
		{{1, 2}, {3}},
	}
	if _, err := d.SpatialCoherence(ragged); err == nil {
		t.Errorf("Expected error for a ragged grid")
	}
}
