package biotica

import (
	"fmt"
	"sync"
)

// RiskRegion is a 4-connected group of cells at or above the critical
// warning level. Bounds are half-open: [RowStart, RowStop) × [ColStart, ColStop).
type RiskRegion struct {
	RowStart       int     `json:"row_start"`
	RowStop        int     `json:"row_stop"`
	ColStart       int     `json:"col_start"`
	ColStop        int     `json:"col_stop"`
	Size           int     `json:"size"`
	MeanWarning    float64 `json:"mean_warning"`
	MaxWarning     int     `json:"max_warning"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// SpatialReport summarizes tipping-point evidence over a grid of plots.
type SpatialReport struct {
	WarningMap      [][]int      `json:"warning_map"`
	ConfidenceMap   [][]float64  `json:"confidence_map"`
	Regions         []RiskRegion `json:"regions"`
	TotalAreaAtRisk int          `json:"total_area_at_risk"`
}

// NCoherentRegions is the number of connected at-risk regions.
func (r SpatialReport) NCoherentRegions() int {
	return len(r.Regions)
}

// SpatialCoherence runs one detection per cell of grid, indexed
// [time][row][col], and groups neighbouring cells whose warning level is at
// least CriticalWarningLevel. Regions are reported in raster order of their
// first cell. Rows are analyzed concurrently.
func (d *Detector) SpatialCoherence(grid [][][]float64) (SpatialReport, error) {
	if len(grid) == 0 || len(grid[0]) == 0 || len(grid[0][0]) == 0 {
		return SpatialReport{}, fmt.Errorf("spatial grid: %w", ErrEmptySeries)
	}
	rows, cols := len(grid[0]), len(grid[0][0])
	for t, plane := range grid {
		if len(plane) != rows {
			return SpatialReport{}, fmt.Errorf("spatial grid: step %d has %d rows, want %d", t, len(plane), rows)
		}
		for i, row := range plane {
			if len(row) != cols {
				return SpatialReport{}, fmt.Errorf("spatial grid: step %d row %d has %d cols, want %d", t, i, len(row), cols)
			}
		}
	}

	warnings := make([][]int, rows)
	confidence := make([][]float64, rows)
	var wg sync.WaitGroup
	for i := 0; i < rows; i++ {
		warnings[i] = make([]int, cols)
		confidence[i] = make([]float64, cols)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			series := make([]float64, len(grid))
			for j := 0; j < cols; j++ {
				for t := range grid {
					series[t] = grid[t][i][j]
				}
				r := d.DetectNamed(fmt.Sprintf("cell[%d,%d]", i, j), series, nil)
				warnings[i][j] = r.WarningLevel
				confidence[i][j] = r.Confidence
			}
		}(i)
	}
	wg.Wait()

	report := SpatialReport{
		WarningMap:    warnings,
		ConfidenceMap: confidence,
		Regions:       []RiskRegion{},
	}

	visited := make([][]bool, rows)
	for i := range visited {
		visited[i] = make([]bool, cols)
	}
	atRisk := func(i, j int) bool { return warnings[i][j] >= CriticalWarningLevel }

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !atRisk(i, j) {
				continue
			}
			report.TotalAreaAtRisk++
			if visited[i][j] {
				continue
			}
			report.Regions = append(report.Regions, floodRegion(i, j, rows, cols, atRisk, visited, warnings, confidence))
		}
	}
	return report, nil
}

func floodRegion(i0, j0, rows, cols int, atRisk func(i, j int) bool, visited [][]bool, warnings [][]int, confidence [][]float64) RiskRegion {
	region := RiskRegion{RowStart: i0, RowStop: i0 + 1, ColStart: j0, ColStop: j0 + 1}
	var sumWarn, sumConf float64

	stack := [][2]int{{i0, j0}}
	visited[i0][j0] = true
	for len(stack) > 0 {
		cell := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i, j := cell[0], cell[1]

		region.Size++
		sumWarn += float64(warnings[i][j])
		sumConf += confidence[i][j]
		if warnings[i][j] > region.MaxWarning {
			region.MaxWarning = warnings[i][j]
		}
		region.RowStart = min(region.RowStart, i)
		region.RowStop = max(region.RowStop, i+1)
		region.ColStart = min(region.ColStart, j)
		region.ColStop = max(region.ColStop, j+1)

		for _, n := range [][2]int{{i - 1, j}, {i + 1, j}, {i, j - 1}, {i, j + 1}} {
			ni, nj := n[0], n[1]
			if ni < 0 || ni >= rows || nj < 0 || nj >= cols {
				continue
			}
			if visited[ni][nj] || !atRisk(ni, nj) {
				continue
			}
			visited[ni][nj] = true
			stack = append(stack, n)
		}
	}

	region.MeanWarning = sumWarn / float64(region.Size)
	region.MeanConfidence = sumConf / float64(region.Size)
	return region
}
