package biotica

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// PlotRecord is one plot in a batch. Raw measurements are derived first and
// explicit Parameters override any derived value.
type PlotRecord struct {
	PlotID     string                `json:"plot_id"`
	Biome      Biome                 `json:"biome,omitempty"`
	Parameters map[Parameter]float64 `json:"parameters,omitempty"`
	Raw        *RawMeasurements      `json:"raw,omitempty"`
}

// Values merges derived and explicit parameters.
func (p PlotRecord) Values() map[Parameter]ParameterValue {
	out := make(map[Parameter]ParameterValue)
	if p.Raw != nil {
		for param, r := range DeriveParameters(*p.Raw) {
			out[param] = ParameterValue{Value: r.Value, Uncertainty: r.Uncertainty, Metadata: r.Metadata}
		}
	}
	for param, v := range p.Parameters {
		out[param] = Value(v)
	}
	return out
}

// ComputeRecord scores one plot record.
func (e *Engine) ComputeRecord(p PlotRecord, validate bool) (IBRResult, error) {
	return e.ComputePlot(PlotMeta{PlotID: p.PlotID, Biome: p.Biome}, p.Values(), validate)
}

// BatchItem is the outcome for one plot. Exactly one of Result and Err is set.
type BatchItem struct {
	Index  int
	PlotID string
	Result *IBRResult
	Err    error
}

// BatchSummary aggregates the successful results of a batch.
type BatchSummary struct {
	N          int                    `json:"n"`
	Failed     int                    `json:"failed"`
	Scores     Statistics             `json:"scores"`
	Counts     map[Classification]int `json:"classification_counts"`
	Duration   time.Duration          `json:"duration_ns"`
	Throughput float64                `json:"plots_per_second"`
}

// BatchProcessor scores plots concurrently with one Engine. Each plot is
// independent; a failing plot never stops the others.
type BatchProcessor struct {
	engine   *Engine
	workers  int
	validate bool
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithWorkers bounds the number of concurrent computations.
func WithWorkers(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBatchValidation toggles strict validation (default on).
func WithBatchValidation(validate bool) BatchOption {
	return func(b *BatchProcessor) { b.validate = validate }
}

// NewBatchProcessor creates a processor with runtime.NumCPU() workers.
func NewBatchProcessor(engine *Engine, opts ...BatchOption) *BatchProcessor {
	if engine == nil {
		engine = NewEngine()
	}
	b := &BatchProcessor{
		engine:   engine,
		workers:  runtime.NumCPU(),
		validate: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Process scores every plot and returns one item per plot in input order.
// It returns ctx.Err() if the context ends before all plots are done.
func (b *BatchProcessor) Process(ctx context.Context, plots []PlotRecord) ([]BatchItem, error) {
	items := make([]BatchItem, len(plots))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := min(b.workers, len(plots))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items[i] = b.processOne(i, plots[i])
			}
		}()
	}

	var err error
feed:
	for i := range plots {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, fmt.Errorf("batch interrupted: %w", err)
	}
	return items, nil
}

func (b *BatchProcessor) processOne(i int, plot PlotRecord) BatchItem {
	item := BatchItem{Index: i, PlotID: plot.PlotID}
	result, err := b.engine.ComputeRecord(plot, b.validate)
	if err != nil {
		item.Err = fmt.Errorf("plot %q: %w", plot.PlotID, err)
		return item
	}
	item.Result = &result
	return item
}

// Summarize aggregates normalized scores and class counts over the
// successful items. Every class is present in Counts.
func Summarize(items []BatchItem) BatchSummary {
	s := BatchSummary{Counts: make(map[Classification]int, 5)}
	for _, c := range AllClassifications() {
		s.Counts[c] = 0
	}

	scores := make([]float64, 0, len(items))
	for _, it := range items {
		if it.Err != nil || it.Result == nil {
			s.Failed++
			continue
		}
		scores = append(scores, it.Result.NormalizedScore)
		s.Counts[it.Result.Classification]++
	}
	s.N = len(scores)
	s.Scores = CalculateStatistics(scores)
	return s
}

// ProcessAndSummarize runs Process and Summarize and records the wall time.
func (b *BatchProcessor) ProcessAndSummarize(ctx context.Context, plots []PlotRecord) ([]BatchItem, BatchSummary, error) {
	start := time.Now()
	items, err := b.Process(ctx, plots)
	if err != nil {
		return nil, BatchSummary{}, err
	}
	summary := Summarize(items)
	summary.Duration = time.Since(start)
	if secs := summary.Duration.Seconds(); secs > 0 {
		summary.Throughput = float64(len(plots)) / secs
	}
	return items, summary, nil
}
