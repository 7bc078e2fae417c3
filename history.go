package biotica

import (
	"sort"
	"sync"
	"time"
)

// DefaultHistorySize keeps twenty years of monthly scores.
const DefaultHistorySize = 240

// ScoreHistory keeps the most recent normalized scores of one plot in a ring
// buffer so that a detector can be run over streamed results.
//
// Example:
//
//	h := NewScoreHistory(0)
//	for _, r := range monthlyResults {
//	    h.RecordResult(r)
//	}
//	tp := h.Detect(detector)
type ScoreHistory struct {
	mu          sync.RWMutex
	scores      []float64
	times       []time.Time
	maxSamples  int
	writeIndex  int
	sampleCount int64
}

// NewScoreHistory creates a history holding at most maxSamples scores
// (DefaultHistorySize if maxSamples <= 0).
func NewScoreHistory(maxSamples int) *ScoreHistory {
	if maxSamples <= 0 {
		maxSamples = DefaultHistorySize
	}
	return &ScoreHistory{
		scores:     make([]float64, maxSamples),
		times:      make([]time.Time, maxSamples),
		maxSamples: maxSamples,
	}
}

// Record appends a score observed at ts, overwriting the oldest when full.
// Scores are expected in time order.
func (h *ScoreHistory) Record(ts time.Time, score float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.scores[h.writeIndex] = score
	h.times[h.writeIndex] = ts
	h.writeIndex = (h.writeIndex + 1) % h.maxSamples
	h.sampleCount++
}

// RecordResult appends the normalized score of r at its timestamp.
func (h *ScoreHistory) RecordResult(r IBRResult) {
	h.Record(r.Timestamp, r.NormalizedScore)
}

// Len is the number of retained scores.
func (h *ScoreHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.effectiveSampleCount()
}

// Total is the number of scores ever recorded.
func (h *ScoreHistory) Total() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sampleCount
}

// Series returns the retained scores oldest first, with timestamps as days
// since the oldest retained score.
func (h *ScoreHistory) Series() (scores, days []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.effectiveSampleCount()
	scores = make([]float64, n)
	days = make([]float64, n)
	if n == 0 {
		return scores, days
	}

	start := 0
	if h.sampleCount > int64(h.maxSamples) {
		start = h.writeIndex
	}
	origin := h.times[start]
	for i := 0; i < n; i++ {
		j := (start + i) % h.maxSamples
		scores[i] = h.scores[j]
		days[i] = h.times[j].Sub(origin).Hours() / 24
	}
	return scores, days
}

// Latest returns the most recent score.
func (h *ScoreHistory) Latest() (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.sampleCount == 0 {
		return 0, false
	}
	last := (h.writeIndex - 1 + h.maxSamples) % h.maxSamples
	return h.scores[last], true
}

// Detect runs d over the retained scores and their spacing.
func (h *ScoreHistory) Detect(d *Detector) TippingPointResult {
	scores, days := h.Series()
	return d.Detect(scores, days)
}

// HistoryStats summarizes a history.
type HistoryStats struct {
	Count  int     `json:"count"`
	Total  int64   `json:"total"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Latest float64 `json:"latest"`
	Slope  float64 `json:"slope"` // least-squares change per observation
}

// Stats returns a snapshot summary.
func (h *ScoreHistory) Stats() HistoryStats {
	scores, _ := h.Series()
	s := CalculateStatistics(scores)
	stats := HistoryStats{
		Count: s.N,
		Total: h.Total(),
		Mean:  s.Mean,
		Min:   s.Min,
		Max:   s.Max,
	}
	if len(scores) > 0 {
		stats.Latest = scores[len(scores)-1]
		stats.Slope, _ = linearFit(scores)
	}
	return stats
}

func (h *ScoreHistory) effectiveSampleCount() int {
	if h.sampleCount < int64(h.maxSamples) {
		return int(h.sampleCount)
	}
	return h.maxSamples
}

// HistoryBook holds one ScoreHistory per plot.
type HistoryBook struct {
	mu         sync.RWMutex
	maxSamples int
	plots      map[string]*ScoreHistory
}

// NewHistoryBook creates an empty book whose histories hold maxSamples scores.
func NewHistoryBook(maxSamples int) *HistoryBook {
	return &HistoryBook{maxSamples: maxSamples, plots: make(map[string]*ScoreHistory)}
}

// Record appends r to the history of its plot. Results without a plot id
// are ignored.
func (b *HistoryBook) Record(r IBRResult) {
	if r.PlotID == "" {
		return
	}
	b.mu.Lock()
	h, ok := b.plots[r.PlotID]
	if !ok {
		h = NewScoreHistory(b.maxSamples)
		b.plots[r.PlotID] = h
	}
	b.mu.Unlock()
	h.RecordResult(r)
}

// Get returns the history of plotID.
func (b *HistoryBook) Get(plotID string) (*ScoreHistory, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.plots[plotID]
	return h, ok
}

// Plots lists plot ids in sorted order.
func (b *HistoryBook) Plots() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.plots))
	for id := range b.plots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
