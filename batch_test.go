package biotica

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func batchPlots() []PlotRecord {
	degraded := uniformPlot(0.5)
	raw := fullRaw()
	return []PlotRecord{
		{PlotID: "A", Parameters: samplePlot()},
		{PlotID: "B", Parameters: map[Parameter]float64{VCA: 0.9}},
		{PlotID: "C", Biome: Tundra, Parameters: degraded},
		{PlotID: "D", Raw: &raw, Parameters: map[Parameter]float64{VCA: 0.99}},
	}
}

func TestBatchProcessor_Process(t *testing.T) {
	b := NewBatchProcessor(NewEngine(), WithWorkers(2))
	items, err := b.Process(context.Background(), batchPlots())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("Expected 4 items, got %d", len(items))
	}

	for i, it := range items {
		if it.Index != i {
			t.Errorf("Item %d carries index %d", i, it.Index)
		}
		if (it.Err == nil) == (it.Result == nil) {
			t.Errorf("Item %d: exactly one of result and error must be set", i)
		}
	}

	var verr *ValidationError
	if !errors.As(items[1].Err, &verr) {
		t.Errorf("Plot B: expected *ValidationError, got %v", items[1].Err)
	}
	if items[2].Result.Biome != Tundra || items[2].Result.PlotID != "C" {
		t.Errorf("Plot C: metadata lost: %+v", items[2].Result)
	}
	AssertClassification(t, *items[2].Result, Degraded)
	if got := items[3].Result.Contributions[VCA]; got != 0.99*0.20 {
		t.Errorf("Plot D: explicit VCA should override the derived value, got contribution %g", got)
	}
}

func TestBatchProcessor_NoValidation(t *testing.T) {
	b := NewBatchProcessor(nil, WithBatchValidation(false))
	items, err := b.Process(context.Background(), batchPlots()[1:2])
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if items[0].Err != nil {
		t.Errorf("Partial plot should score without validation: %v", items[0].Err)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	items, err := NewBatchProcessor(nil).Process(context.Background(), nil)
	if err != nil || len(items) != 0 {
		t.Errorf("Expected no items and no error, got %d %v", len(items), err)
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	plots := make([]PlotRecord, 200)
	for i := range plots {
		plots[i] = PlotRecord{PlotID: fmt.Sprintf("P%03d", i), Parameters: samplePlot()}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBatchProcessor(nil, WithWorkers(1)).Process(ctx, plots)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	items, summary, err := NewBatchProcessor(nil).ProcessAndSummarize(context.Background(), batchPlots())
	if err != nil {
		t.Fatalf("ProcessAndSummarize failed: %v", err)
	}

	if summary.N != 3 || summary.Failed != 1 {
		t.Errorf("Expected 3 scored and 1 failed, got %d and %d", summary.N, summary.Failed)
	}
	if len(summary.Counts) != 5 {
		t.Errorf("Every class should be counted, got %v", summary.Counts)
	}
	if summary.Counts[Functional] < 1 || summary.Counts[Degraded] != 1 {
		t.Errorf("Unexpected class counts %v", summary.Counts)
	}
	if summary.Scores.Min != items[2].Result.NormalizedScore {
		t.Errorf("Expected the degraded plot to be the minimum, got %g", summary.Scores.Min)
	}
	t.Logf("✓ %d plots, mean %.3f, %.0f plots/s", summary.N, summary.Scores.Mean, summary.Throughput)
}

func BenchmarkBatchProcessor(b *testing.B) {
	plots := make([]PlotRecord, 1000)
	for i := range plots {
		plots[i] = PlotRecord{PlotID: fmt.Sprintf("P%04d", i), Parameters: samplePlot()}
	}
	proc := NewBatchProcessor(nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := proc.Process(context.Background(), plots); err != nil {
			b.Fatal(err)
		}
	}
}
