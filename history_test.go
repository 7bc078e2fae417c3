package biotica

import (
	"sync"
	"testing"
	"time"
)

func at(days int) time.Time {
	return fixedTime.Add(time.Duration(days) * 24 * time.Hour)
}

func TestScoreHistory_RingBuffer(t *testing.T) {
	h := NewScoreHistory(3)
	if _, ok := h.Latest(); ok {
		t.Errorf("Empty history should have no latest score")
	}

	for i := 0; i < 5; i++ {
		h.Record(at(i*10), float64(i)/10)
	}

	if h.Len() != 3 || h.Total() != 5 {
		t.Errorf("Expected 3 retained of 5, got %d of %d", h.Len(), h.Total())
	}
	scores, days := h.Series()
	want := []float64{0.2, 0.3, 0.4}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("Series[%d]: expected %g, got %g", i, want[i], scores[i])
		}
		if days[i] != float64(i*10) {
			t.Errorf("Days[%d]: expected %d, got %g", i, i*10, days[i])
		}
	}
	if latest, _ := h.Latest(); latest != 0.4 {
		t.Errorf("Expected latest 0.4, got %g", latest)
	}
}

func TestScoreHistory_Default(t *testing.T) {
	h := NewScoreHistory(0)
	for i := 0; i < DefaultHistorySize+10; i++ {
		h.Record(at(i), 0.5)
	}
	if h.Len() != DefaultHistorySize {
		t.Errorf("Expected %d retained, got %d", DefaultHistorySize, h.Len())
	}
}

func TestScoreHistory_Detect(t *testing.T) {
	h := NewScoreHistory(DefaultHistorySize)
	e := NewEngine(WithWeights(MustWeightTable(map[Parameter]float64{VCA: 1})))

	series := ar1Series(6, 200)
	for i, v := range series {
		r, _ := e.ComputePlot(PlotMeta{PlotID: "P"}, Values(map[Parameter]float64{VCA: v}), false)
		r.Timestamp = at(i * 30)
		h.RecordResult(r)
	}

	tp := h.Detect(defaultDetector(t))
	AssertWarningLevel(t, tp, 3, 3)
	if tp.EstimatedMonths != 12 {
		t.Errorf("Expected 12 months from monthly spacing, got %d", tp.EstimatedMonths)
	}

	short := NewScoreHistory(0)
	short.Record(at(0), 0.7)
	if r := short.Detect(defaultDetector(t)); r.Status != StatusInsufficientData {
		t.Errorf("Expected insufficient data, got %s", r.Status)
	}
}

func TestScoreHistory_Stats(t *testing.T) {
	h := NewScoreHistory(10)
	if s := h.Stats(); s.Count != 0 || s.Slope != 0 {
		t.Errorf("Expected empty stats, got %+v", s)
	}

	for i := 0; i < 5; i++ {
		h.Record(at(i*30), 0.8-0.02*float64(i))
	}
	s := h.Stats()
	if s.Count != 5 || s.Total != 5 {
		t.Errorf("Expected 5 samples, got %+v", s)
	}
	AssertScoreNear(t, s.Slope, -0.02, 1e-12)
	AssertScoreNear(t, s.Latest, 0.72, 1e-12)
	AssertScoreNear(t, s.Max, 0.8, 0)
}

func TestScoreHistory_Concurrent(t *testing.T) {
	h := NewScoreHistory(50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.Record(at(w*100+i), 0.5)
				h.Series()
			}
		}(w)
	}
	wg.Wait()

	if h.Total() != 800 || h.Len() != 50 {
		t.Errorf("Expected 800 recorded and 50 retained, got %d and %d", h.Total(), h.Len())
	}
}

func TestHistoryBook(t *testing.T) {
	book := NewHistoryBook(5)
	book.Record(IBRResult{NormalizedScore: 0.9, Timestamp: at(0)})
	book.Record(IBRResult{PlotID: "b", NormalizedScore: 0.7, Timestamp: at(0)})
	book.Record(IBRResult{PlotID: "a", NormalizedScore: 0.6, Timestamp: at(0)})
	book.Record(IBRResult{PlotID: "a", NormalizedScore: 0.5, Timestamp: at(30)})

	plots := book.Plots()
	if len(plots) != 2 || plots[0] != "a" || plots[1] != "b" {
		t.Errorf("Expected [a b], got %v", plots)
	}
	h, ok := book.Get("a")
	if !ok || h.Len() != 2 {
		t.Fatalf("Expected two scores for plot a")
	}
	if latest, _ := h.Latest(); latest != 0.5 {
		t.Errorf("Expected latest 0.5, got %g", latest)
	}
	if _, ok := book.Get("missing"); ok {
		t.Errorf("Unknown plot should not exist")
	}
}
