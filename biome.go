package biotica

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// ErrUnknownBiome is returned for a biome name outside the supported set.
var ErrUnknownBiome = errors.New("unknown biome")

// Biome names a biome type.
type Biome string

const (
	TropicalRainforest  Biome = "tropical_rainforest"
	TropicalDryForest   Biome = "tropical_dry_forest"
	TemperateBroadleaf  Biome = "temperate_broadleaf"
	TemperateConiferous Biome = "temperate_coniferous"
	BorealForest        Biome = "boreal_forest"
	TropicalSavanna     Biome = "tropical_savanna"
	TemperateGrassland  Biome = "temperate_grassland"
	Mediterranean       Biome = "mediterranean"
	Desert              Biome = "desert"
	Tundra              Biome = "tundra"
	Mangrove            Biome = "mangrove"
	Wetland             Biome = "wetland"
	Montane             Biome = "montane"
	CloudForest         Biome = "cloud_forest"
	Alpine              Biome = "alpine"
	Coastal             Biome = "coastal"
	Marine              Biome = "marine"
	Freshwater          Biome = "freshwater"
	Riparian            Biome = "riparian"
	Steppe              Biome = "steppe"
	Scrubland           Biome = "scrubland"
	Woodland            Biome = "woodland"
)

var allBiomes = []Biome{
	TropicalRainforest, TropicalDryForest, TemperateBroadleaf, TemperateConiferous,
	BorealForest, TropicalSavanna, TemperateGrassland, Mediterranean, Desert, Tundra,
	Mangrove, Wetland, Montane, CloudForest, Alpine, Coastal, Marine, Freshwater,
	Riparian, Steppe, Scrubland, Woodland,
}

// AllBiomes returns every supported biome type, with or without a profile.
func AllBiomes() []Biome {
	out := make([]Biome, len(allBiomes))
	copy(out, allBiomes)
	return out
}

// ParseBiome validates a biome name.
func ParseBiome(s string) (Biome, error) {
	for _, b := range allBiomes {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownBiome)
}

// Range is a closed [Low, High] interval. It encodes as a two-element array.
type Range struct {
	Low  float64
	High float64
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Low, r.High})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	r.Low, r.High = pair[0], pair[1]
	return nil
}

// BiomeProfile is the reference description of one biome.
type BiomeProfile struct {
	Name               Biome               `json:"name"`
	Code               string              `json:"code"`
	ClimateZone        string              `json:"climate_zone"`
	MeanTemperature    float64             `json:"mean_temperature"`   // °C
	MeanPrecipitation  float64             `json:"mean_precipitation"` // mm/yr
	DominantVegetation []string            `json:"dominant_vegetation"`
	SoilTypes          []string            `json:"soil_types"`
	BiodiversityIndex  float64             `json:"biodiversity_index"`
	CarbonStorage      float64             `json:"carbon_storage"` // Mg C/ha
	ReferenceIBR       float64             `json:"reference_ibr"`
	Thresholds         map[Parameter]Range `json:"thresholds"`
}

func (p BiomeProfile) clone() BiomeProfile {
	out := p
	out.DominantVegetation = append([]string(nil), p.DominantVegetation...)
	out.SoilTypes = append([]string(nil), p.SoilTypes...)
	out.Thresholds = make(map[Parameter]Range, len(p.Thresholds))
	for k, v := range p.Thresholds {
		out.Thresholds[k] = v
	}
	return out
}

// BiomeScore pairs a biome with a score or confidence.
type BiomeScore struct {
	Biome Biome   `json:"biome"`
	Score float64 `json:"score"`
}

// BiomeRegistry holds biome profiles. It is immutable after construction and
// safe for concurrent use.
type BiomeRegistry struct {
	profiles map[Biome]BiomeProfile
}

// NewBiomeRegistry returns a registry loaded with the reference profiles.
func NewBiomeRegistry() *BiomeRegistry {
	r := &BiomeRegistry{profiles: make(map[Biome]BiomeProfile, len(referenceBiomes))}
	for _, p := range referenceBiomes {
		r.profiles[p.Name] = p.clone()
	}
	return r
}

// Get returns the profile of b.
func (r *BiomeRegistry) Get(b Biome) (BiomeProfile, bool) {
	p, ok := r.profiles[b]
	if !ok {
		return BiomeProfile{}, false
	}
	return p.clone(), true
}

// List returns the biomes with a profile, in canonical order.
func (r *BiomeRegistry) List() []Biome {
	out := make([]Biome, 0, len(r.profiles))
	for _, b := range allBiomes {
		if _, ok := r.profiles[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Thresholds returns the expected range of param in biome b, or [0,1] when
// either is unknown.
func (r *BiomeRegistry) Thresholds(b Biome, param Parameter) Range {
	if p, ok := r.profiles[b]; ok {
		if rng, ok := p.Thresholds[param]; ok {
			return rng
		}
	}
	return Range{Low: 0, High: 1}
}

// NormalizeParameter rescales value onto the biome's expected range of param,
// clipped to [0,1]. A degenerate range clips value directly.
func (r *BiomeRegistry) NormalizeParameter(b Biome, param Parameter, value float64) float64 {
	rng := r.Thresholds(b, param)
	if rng.High <= rng.Low {
		return clamp(value, 0, 1)
	}
	return clamp((value-rng.Low)/(rng.High-rng.Low), 0, 1)
}

// Similarity scores two biomes in [0,1]:
//
//	0.4·climate + 0.4·vegetation + 0.2·(1 - |Δ reference IBR|)
//
// where climate = 1 - (|ΔT|/30 + |ΔP|/3000)/2 and vegetation is the Jaccard
// index of dominant vegetation. Unknown biomes score 0.
func (r *BiomeRegistry) Similarity(a, b Biome) float64 {
	pa, okA := r.profiles[a]
	pb, okB := r.profiles[b]
	if !okA || !okB {
		return 0
	}

	tempDiff := math.Abs(pa.MeanTemperature-pb.MeanTemperature) / 30
	precipDiff := math.Abs(pa.MeanPrecipitation-pb.MeanPrecipitation) / 3000
	climate := 1 - (0.5*tempDiff + 0.5*precipDiff)

	vegetation := jaccard(pa.DominantVegetation, pb.DominantVegetation)
	reference := 1 - math.Abs(pa.ReferenceIBR-pb.ReferenceIBR)

	return clamp(0.4*climate+0.4*vegetation+0.2*reference, 0, 1)
}

func jaccard(a, b []string) float64 {
	set := make(map[string]int, len(a)+len(b))
	for _, s := range a {
		set[s] |= 1
	}
	for _, s := range b {
		set[s] |= 2
	}
	if len(set) == 0 {
		return 0
	}
	var both int
	for _, v := range set {
		if v == 3 {
			both++
		}
	}
	return float64(both) / float64(len(set))
}

// FindSimilar returns up to n other biomes ordered by decreasing similarity
// to b. Ties keep canonical order.
func (r *BiomeRegistry) FindSimilar(b Biome, n int) []BiomeScore {
	var out []BiomeScore
	for _, other := range r.List() {
		if other == b {
			continue
		}
		out = append(out, BiomeScore{Biome: other, Score: r.Similarity(b, other)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ClassifyByCoordinates gives candidate biomes for a location from latitude
// bands, with longitude separating the Mediterranean basin and elevation
// (metres, 0 when unknown) separating tropical montane forest.
func (r *BiomeRegistry) ClassifyByCoordinates(lat, lon, elevation float64) []BiomeScore {
	absLat := math.Abs(lat)
	switch {
	case absLat < 23.5:
		if elevation > 1500 {
			return []BiomeScore{{Montane, 0.7}, {TropicalRainforest, 0.3}}
		}
		return []BiomeScore{{TropicalRainforest, 0.8}, {TropicalSavanna, 0.2}}
	case absLat < 45:
		if lon > -10 && lon < 40 {
			return []BiomeScore{{Mediterranean, 0.7}, {TemperateBroadleaf, 0.3}}
		}
		return []BiomeScore{{TemperateBroadleaf, 0.5}, {TemperateConiferous, 0.3}, {TemperateGrassland, 0.2}}
	case absLat < 60:
		return []BiomeScore{{TemperateConiferous, 0.6}, {BorealForest, 0.4}}
	default:
		return []BiomeScore{{BorealForest, 0.5}, {Tundra, 0.5}}
	}
}

// Save writes every profile as a JSON object keyed by biome name.
func (r *BiomeRegistry) Save(w io.Writer) error {
	out := make(map[Biome]BiomeProfile, len(r.profiles))
	for b, p := range r.profiles {
		out[b] = p
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("save biome registry: %w", err)
	}
	return nil
}

// LoadBiomeRegistry reads profiles written by Save and overlays them on the
// reference profiles. Names outside the supported set are rejected.
func LoadBiomeRegistry(rd io.Reader) (*BiomeRegistry, error) {
	var in map[string]BiomeProfile
	if err := json.NewDecoder(rd).Decode(&in); err != nil {
		return nil, fmt.Errorf("load biome registry: %w", err)
	}
	r := NewBiomeRegistry()
	for name, p := range in {
		b, err := ParseBiome(name)
		if err != nil {
			return nil, fmt.Errorf("load biome registry: %w", err)
		}
		p.Name = b
		r.profiles[b] = p.clone()
	}
	return r, nil
}

// TransitionZoneResolver picks one biome from competing candidate scores.
type TransitionZoneResolver struct {
	registry *BiomeRegistry
}

// NewTransitionZoneResolver creates a resolver using registry for similarity.
func NewTransitionZoneResolver(registry *BiomeRegistry) *TransitionZoneResolver {
	return &TransitionZoneResolver{registry: registry}
}

// DefaultTransitionThreshold is the score lead that makes a classification clear.
const DefaultTransitionThreshold = 0.2

// Resolve returns the top candidate when it leads the runner-up by more than
// threshold. Otherwise the location is in a transition zone: the top three
// scores are normalized, each is reinforced by half its similarity to the
// others, and the strongest wins with confidence scaled by 0.7.
// Empty input returns ok=false.
func (z *TransitionZoneResolver) Resolve(scores []BiomeScore, threshold float64) (BiomeScore, bool) {
	if len(scores) == 0 {
		return BiomeScore{}, false
	}
	sorted := append([]BiomeScore(nil), scores...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	top := sorted[0]
	if len(sorted) == 1 || top.Score-sorted[1].Score > threshold {
		return top, true
	}

	candidates := sorted[:min(3, len(sorted))]
	var total float64
	for _, c := range candidates {
		total += c.Score
	}
	if total == 0 {
		return BiomeScore{Biome: top.Biome}, true
	}

	best := BiomeScore{Score: math.Inf(-1)}
	for _, a := range candidates {
		weighted := a.Score / total
		for _, b := range candidates {
			if a.Biome != b.Biome {
				weighted += 0.5 * z.registry.Similarity(a.Biome, b.Biome) * (b.Score / total)
			}
		}
		if weighted > best.Score {
			best = BiomeScore{Biome: a.Biome, Score: weighted}
		}
	}
	best.Score *= 0.7
	return best, true
}

// IdentityCorrection leaves the score unchanged.
func IdentityCorrection(score float64, _ map[Parameter]float64) float64 {
	return score
}

// ThresholdCorrection rescores a plot against the expected parameter ranges
// of biome b: each value is normalized with NormalizeParameter and the
// weighted mean is taken over the parameters present. When b has no profile
// the score is returned unchanged.
func ThresholdCorrection(registry *BiomeRegistry, b Biome, weights WeightTable) BiomeCorrection {
	return func(score float64, params map[Parameter]float64) float64 {
		if _, ok := registry.profiles[b]; !ok {
			return score
		}
		var sum, total float64
		for _, p := range weights.Parameters() {
			v, ok := params[p]
			if !ok {
				continue
			}
			w, _ := weights.Weight(p)
			sum += w * registry.NormalizeParameter(b, p, v)
			total += w
		}
		if total == 0 {
			return score
		}
		return sum / total
	}
}
