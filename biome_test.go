package biotica

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestBiomeRegistry_List(t *testing.T) {
	r := NewBiomeRegistry()
	list := r.List()

	if len(list) != 12 {
		t.Fatalf("Expected 12 profiled biomes, got %d: %v", len(list), list)
	}
	if list[0] != TropicalRainforest || list[len(list)-1] != Montane {
		t.Errorf("Expected canonical order, got %v", list)
	}
	if len(AllBiomes()) != 22 {
		t.Errorf("Expected 22 biome types, got %d", len(AllBiomes()))
	}

	for _, b := range list {
		p, ok := r.Get(b)
		if !ok {
			t.Fatalf("Get(%s) failed", b)
		}
		if len(p.Thresholds) != 9 {
			t.Errorf("%s: expected 9 parameter ranges, got %d", b, len(p.Thresholds))
		}
		for param, rng := range p.Thresholds {
			if rng.Low >= rng.High || rng.Low < 0 || rng.High > 1 {
				t.Errorf("%s/%s: invalid range %v", b, param, rng)
			}
		}
	}
}

func TestBiomeRegistry_GetReturnsCopy(t *testing.T) {
	r := NewBiomeRegistry()
	if _, ok := r.Get(Woodland); ok {
		t.Errorf("Woodland has no profile")
	}

	p, _ := r.Get(Desert)
	p.DominantVegetation[0] = "cactus"
	p.Thresholds[VCA] = Range{0, 0}

	again, _ := r.Get(Desert)
	if again.DominantVegetation[0] == "cactus" || again.Thresholds[VCA].High == 0 {
		t.Errorf("Mutating a returned profile changed the registry")
	}
}

func TestBiomeRegistry_Normalize(t *testing.T) {
	r := NewBiomeRegistry()

	if got := r.Thresholds(TropicalRainforest, VCA); got != (Range{0.75, 0.95}) {
		t.Errorf("Expected [0.75 0.95], got %v", got)
	}
	if got := r.Thresholds(Woodland, VCA); got != (Range{0, 1}) {
		t.Errorf("Expected [0 1] for an unprofiled biome, got %v", got)
	}

	tests := []struct {
		value, want float64
	}{
		{0.85, 0.5},
		{0.75, 0},
		{0.50, 0},
		{1.00, 1},
	}
	for _, tt := range tests {
		got := r.NormalizeParameter(TropicalRainforest, VCA, tt.value)
		AssertScoreNear(t, got, tt.want, 1e-12)
	}
	AssertScoreNear(t, r.NormalizeParameter(Woodland, VCA, 1.4), 1, 0)
}

func TestBiomeRegistry_Similarity(t *testing.T) {
	r := NewBiomeRegistry()

	for _, b := range r.List() {
		AssertScoreNear(t, r.Similarity(b, b), 1, 1e-12)
	}
	AssertScoreNear(t, r.Similarity(TropicalRainforest, Tundra), 0.2073333333333333, 1e-12)
	AssertScoreNear(t, r.Similarity(TropicalRainforest, Tundra), r.Similarity(Tundra, TropicalRainforest), 1e-15)

	if got := r.Similarity(TropicalRainforest, Woodland); got != 0 {
		t.Errorf("Expected 0 for an unprofiled biome, got %g", got)
	}
	if r.Similarity(BorealForest, TemperateConiferous) <= r.Similarity(BorealForest, TropicalRainforest) {
		t.Errorf("Boreal forest should resemble coniferous forest more than rainforest")
	}
}

func TestBiomeRegistry_FindSimilar(t *testing.T) {
	r := NewBiomeRegistry()

	top := r.FindSimilar(TemperateBroadleaf, 3)
	if len(top) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(top))
	}
	for i, s := range top {
		if s.Biome == TemperateBroadleaf {
			t.Errorf("Result must exclude the query biome")
		}
		if i > 0 && s.Score > top[i-1].Score {
			t.Errorf("Results not sorted: %v", top)
		}
	}

	if all := r.FindSimilar(TemperateBroadleaf, -1); len(all) != 11 {
		t.Errorf("Expected 11 results without a limit, got %d", len(all))
	}
}

func TestBiomeRegistry_ClassifyByCoordinates(t *testing.T) {
	r := NewBiomeRegistry()

	tests := []struct {
		name           string
		lat, lon, elev float64
		want           Biome
	}{
		{"amazon", -3, -60, 100, TropicalRainforest},
		{"andes", -13, -72, 3400, Montane},
		{"sicily", 37.5, 14, 0, Mediterranean},
		{"ohio", 40, -83, 250, TemperateBroadleaf},
		{"poland", 52, 20, 100, TemperateConiferous},
		{"siberia", 66, 100, 200, BorealForest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ClassifyByCoordinates(tt.lat, tt.lon, tt.elev)
			if got[0].Biome != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, got)
			}
			var sum float64
			for _, s := range got {
				sum += s.Score
			}
			AssertScoreNear(t, sum, 1, 1e-12)
		})
	}
}

func TestBiomeRegistry_SaveLoad(t *testing.T) {
	r := NewBiomeRegistry()
	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"VCA": [`) {
		t.Errorf("Expected ranges encoded as arrays")
	}

	loaded, err := LoadBiomeRegistry(&buf)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, b := range r.List() {
		want, _ := r.Get(b)
		got, ok := loaded.Get(b)
		if !ok || !reflect.DeepEqual(got, want) {
			t.Errorf("%s: profile changed across save/load", b)
		}
	}
}

func TestLoadBiomeRegistry_Overlay(t *testing.T) {
	in := `{"woodland": {"code": "WDL", "mean_temperature": 14, "mean_precipitation": 700,
		"dominant_vegetation": ["deciduous_broadleaf", "grasses"], "reference_ibr": 0.74,
		"thresholds": {"VCA": [0.5, 0.8]}}}`

	r, err := LoadBiomeRegistry(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(r.List()) != 13 {
		t.Errorf("Expected 13 biomes after overlay, got %d", len(r.List()))
	}
	p, ok := r.Get(Woodland)
	if !ok || p.Name != Woodland || p.Thresholds[VCA] != (Range{0.5, 0.8}) {
		t.Errorf("Unexpected overlay profile %+v", p)
	}

	_, err = LoadBiomeRegistry(strings.NewReader(`{"atlantis": {}}`))
	if !errors.Is(err, ErrUnknownBiome) {
		t.Errorf("Expected ErrUnknownBiome, got %v", err)
	}
	if _, err := LoadBiomeRegistry(strings.NewReader(`{"desert": {"thresholds": {"VCA": 3}}}`)); err == nil {
		t.Errorf("Expected error for a malformed range")
	}
}

func TestRange_JSON(t *testing.T) {
	data, err := json.Marshal(Range{0.25, 0.75})
	if err != nil || string(data) != "[0.25,0.75]" {
		t.Errorf("Expected [0.25,0.75], got %s %v", data, err)
	}
}

func TestParseBiome(t *testing.T) {
	if b, err := ParseBiome("cloud_forest"); err != nil || b != CloudForest {
		t.Errorf("Expected cloud_forest, got %q %v", b, err)
	}
	if _, err := ParseBiome("Cloud Forest"); !errors.Is(err, ErrUnknownBiome) {
		t.Errorf("Expected ErrUnknownBiome, got %v", err)
	}
}

func TestTransitionZoneResolver(t *testing.T) {
	z := NewTransitionZoneResolver(NewBiomeRegistry())

	if _, ok := z.Resolve(nil, DefaultTransitionThreshold); ok {
		t.Errorf("Expected ok=false for no candidates")
	}

	clear, ok := z.Resolve([]BiomeScore{{TropicalSavanna, 0.2}, {TropicalRainforest, 0.8}}, DefaultTransitionThreshold)
	if !ok || clear.Biome != TropicalRainforest || clear.Score != 0.8 {
		t.Errorf("Expected a clear rainforest at 0.8, got %+v", clear)
	}

	mixed, ok := z.Resolve([]BiomeScore{
		{TemperateBroadleaf, 0.5},
		{TemperateConiferous, 0.3},
		{TemperateGrassland, 0.2},
	}, DefaultTransitionThreshold)
	if !ok || mixed.Biome != TemperateBroadleaf {
		t.Fatalf("Expected temperate broadleaf, got %+v", mixed)
	}
	AssertScoreNear(t, mixed.Score, 0.44774333333333327, 1e-12)
	if mixed.Score >= 0.7 {
		t.Errorf("Transition confidence must be reduced, got %g", mixed.Score)
	}
}

func TestThresholdCorrection(t *testing.T) {
	reg := NewBiomeRegistry()
	profile, _ := reg.Get(TropicalRainforest)

	mid := make(map[Parameter]float64, 9)
	for p, rng := range profile.Thresholds {
		mid[p] = (rng.Low + rng.High) / 2
	}

	corrected := NewEngine(WithBiomeCorrection(ThresholdCorrection(reg, TropicalRainforest, DefaultWeights())))
	r, err := corrected.Compute(Values(mid), true)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	AssertScoreNear(t, r.NormalizedScore, 0.5, 1e-9)
	AssertClassification(t, r, Degraded)

	plain, _ := NewEngine().Compute(Values(mid), true)
	if plain.NormalizedScore <= r.NormalizedScore {
		t.Errorf("Uncorrected score %.3f should exceed the rainforest-relative score", plain.NormalizedScore)
	}

	fn := ThresholdCorrection(reg, Woodland, DefaultWeights())
	if got := fn(0.42, mid); got != 0.42 {
		t.Errorf("Unprofiled biome should leave the score unchanged, got %g", got)
	}
	if got := IdentityCorrection(0.42, mid); got != 0.42 {
		t.Errorf("IdentityCorrection changed the score: %g", got)
	}
	if math.IsNaN(fn(0.5, nil)) {
		t.Errorf("Empty params must not produce NaN")
	}
}
