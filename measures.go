package biotica

import (
	"math"
)

// Raw measurement field names accepted by DeriveParameters.
const (
	FieldNDVI                  = "ndvi"
	FieldLAI                   = "lai"
	FieldGPP                   = "gpp"
	FieldShannon               = "shannon"
	FieldChao1                 = "chao1"
	FieldOTUs                  = "otus"
	FieldGreenupDOY            = "greenup_doy"
	FieldSenescenceDOY         = "senescence_doy"
	FieldPrecipitation         = "precipitation"
	FieldEvapotranspiration    = "evapotranspiration"
	FieldSoilMoisture          = "soil_moisture"
	FieldRunoff                = "runoff"
	FieldNitrogen              = "nitrogen"
	FieldPhosphorus            = "phosphorus"
	FieldPotassium             = "potassium"
	FieldOrganicMatter         = "organic_matter"
	FieldHeterozygosity        = "heterozygosity"
	FieldAlleleRichness        = "allele_richness"
	FieldFST                   = "fst"
	FieldPopulationSize        = "population_size"
	FieldHumanFootprint        = "human_footprint"
	FieldFragmentation         = "fragmentation"
	FieldPollutionIndex        = "pollution_index"
	FieldDistanceToDisturbance = "distance_to_disturbance"
	FieldConnectance           = "connectance"
	FieldModularity            = "modularity"
	FieldTrophicLevels         = "trophic_levels"
	FieldOmnivory              = "omnivory"
	FieldRecoveryRate          = "recovery_rate"
	FieldResilience            = "resilience"
	FieldSeedBank              = "seed_bank"
	FieldSoilOrganicCarbon     = "soil_organic_carbon"
)

// RawMeasurements holds field and remote-sensing inputs for one plot.
// HistoricalGreenup lists past green-up days of year for the PTS baseline.
type RawMeasurements struct {
	Values            map[string]float64 `json:"values"`
	HistoricalGreenup []float64          `json:"historical_greenup,omitempty"`
}

func (r RawMeasurements) has(fields ...string) bool {
	for _, f := range fields {
		v, ok := r.Values[f]
		if !ok || math.IsNaN(v) {
			return false
		}
	}
	return true
}

func (r RawMeasurements) get(f string) float64 {
	return r.Values[f]
}

type derivation struct {
	param   Parameter
	fields  []string
	history bool
	compute func(RawMeasurements) ParameterResult
}

var derivations = []derivation{
	{VCA, []string{FieldNDVI, FieldLAI, FieldGPP}, false, func(r RawMeasurements) ParameterResult {
		return ComputeVCA(r.get(FieldNDVI), r.get(FieldLAI), r.get(FieldGPP))
	}},
	{MDI, []string{FieldShannon, FieldChao1, FieldOTUs}, false, func(r RawMeasurements) ParameterResult {
		return ComputeMDI(r.get(FieldShannon), r.get(FieldChao1), r.get(FieldOTUs))
	}},
	{PTS, []string{FieldGreenupDOY}, true, func(r RawMeasurements) ParameterResult {
		return ComputePTS(r.get(FieldGreenupDOY), r.get(FieldSenescenceDOY), r.HistoricalGreenup)
	}},
	{HFI, []string{FieldPrecipitation, FieldEvapotranspiration, FieldSoilMoisture, FieldRunoff}, false, func(r RawMeasurements) ParameterResult {
		return ComputeHFI(r.get(FieldPrecipitation), r.get(FieldEvapotranspiration), r.get(FieldSoilMoisture), r.get(FieldRunoff))
	}},
	{BNC, []string{FieldNitrogen, FieldPhosphorus, FieldPotassium, FieldOrganicMatter}, false, func(r RawMeasurements) ParameterResult {
		return ComputeBNC(r.get(FieldNitrogen), r.get(FieldPhosphorus), r.get(FieldPotassium), r.get(FieldOrganicMatter))
	}},
	{SGH, []string{FieldHeterozygosity, FieldAlleleRichness, FieldFST, FieldPopulationSize}, false, func(r RawMeasurements) ParameterResult {
		return ComputeSGH(r.get(FieldHeterozygosity), r.get(FieldAlleleRichness), r.get(FieldFST), r.get(FieldPopulationSize))
	}},
	{AES, []string{FieldHumanFootprint, FieldFragmentation, FieldPollutionIndex, FieldDistanceToDisturbance}, false, func(r RawMeasurements) ParameterResult {
		return ComputeAES(r.get(FieldHumanFootprint), r.get(FieldFragmentation), r.get(FieldPollutionIndex), r.get(FieldDistanceToDisturbance))
	}},
	{TMI, []string{FieldConnectance, FieldModularity, FieldTrophicLevels, FieldOmnivory}, false, func(r RawMeasurements) ParameterResult {
		return ComputeTMI(r.get(FieldConnectance), r.get(FieldModularity), r.get(FieldTrophicLevels), r.get(FieldOmnivory))
	}},
	{RRC, []string{FieldRecoveryRate, FieldResilience, FieldSeedBank, FieldSoilOrganicCarbon}, false, func(r RawMeasurements) ParameterResult {
		return ComputeRRC(r.get(FieldRecoveryRate), r.get(FieldResilience), r.get(FieldSeedBank), r.get(FieldSoilOrganicCarbon))
	}},
}

// DeriveParameters computes every parameter whose raw inputs are all present.
// Parameters with incomplete inputs are omitted, never an error.
func DeriveParameters(raw RawMeasurements) map[Parameter]ParameterResult {
	out := make(map[Parameter]ParameterResult, len(derivations))
	for _, d := range derivations {
		if !raw.has(d.fields...) {
			continue
		}
		if d.history && len(raw.HistoricalGreenup) == 0 {
			continue
		}
		out[d.param] = d.compute(raw)
	}
	return out
}

// RequiredFields returns the raw fields needed to derive p.
func RequiredFields(p Parameter) []string {
	for _, d := range derivations {
		if d.param == p {
			out := make([]string, len(d.fields))
			copy(out, d.fields)
			return out
		}
	}
	return nil
}

func unitResult(value, uncertainty float64, meta map[string]interface{}) ParameterResult {
	return ParameterResult{
		Value:       clamp(value, 0, 1),
		Uncertainty: uncertainty,
		Confidence:  clamp(1-uncertainty, 0, 1),
		Metadata:    meta,
	}
}

// ComputeVCA scores vegetative carbon absorption from NDVI, leaf area index
// (m²/m²) and gross primary productivity (g C/m²/yr).
func ComputeVCA(ndvi, lai, gpp float64) ParameterResult {
	v := (ndvi + lai/10 + gpp/3000) / 3
	return unitResult(v, DefaultUncertainty, nil)
}

// ComputeMDI scores microbial diversity from the Shannon index, Chao1
// richness and OTU count.
func ComputeMDI(shannon, chao1, otus float64) ParameterResult {
	v := (shannon/5 + math.Min(chao1/200, 1) + math.Min(otus/200, 1)) / 3
	return unitResult(v, DefaultUncertainty, nil)
}

// ComputePTS scores phenological stability as the departure of this season's
// green-up from the historical mean: 0 days → 1, 30 or more days → 0.
// Year-to-year spread in the baseline widens the uncertainty.
func ComputePTS(greenupDOY, senescenceDOY float64, historical []float64) ParameterResult {
	baseline := mean(historical)
	shift := greenupDOY - baseline
	v := 1 - math.Min(math.Abs(shift)/30, 1)

	sigma := DefaultUncertainty
	if len(historical) > 1 {
		sigma = math.Max(sigma, math.Sqrt(sampleVariance(historical))/30)
	}
	meta := map[string]interface{}{
		"shift_days":       shift,
		"baseline_greenup": baseline,
	}
	if senescenceDOY > greenupDOY {
		meta["season_length_days"] = senescenceDOY - greenupDOY
	}
	return unitResult(v, sigma, meta)
}

// ComputeHFI scores hydrological function from annual precipitation,
// evapotranspiration and runoff (mm) and volumetric soil moisture (%).
// Half of the score is water-balance closure, half is soil moisture.
func ComputeHFI(precipitation, evapotranspiration, soilMoisture, runoff float64) ParameterResult {
	balance := 0.0
	if precipitation > 0 {
		residual := math.Abs(precipitation-evapotranspiration-runoff) / precipitation
		balance = 1 - math.Min(residual, 1)
	}
	moisture := clamp(soilMoisture/100, 0, 1)
	return unitResult((balance+moisture)/2, DefaultUncertainty, nil)
}

// ComputeBNC scores nutrient cycling from total nitrogen (%), available
// phosphorus (mg/kg), exchangeable potassium (mg/kg) and organic matter (%),
// each saturating at a fertile reference level.
func ComputeBNC(nitrogen, phosphorus, potassium, organicMatter float64) ParameterResult {
	v := (saturate(nitrogen, 0.5) +
		saturate(phosphorus, 50) +
		saturate(potassium, 250) +
		saturate(organicMatter, 10)) / 4
	return unitResult(v, DefaultUncertainty, nil)
}

// ComputeSGH scores genetic heterogeneity from expected heterozygosity,
// allelic richness, fixation index F_ST and census population size.
func ComputeSGH(heterozygosity, alleleRichness, fst, populationSize float64) ParameterResult {
	size := 0.0
	if populationSize > 1 {
		size = math.Min(math.Log10(populationSize)/4, 1)
	}
	v := (clamp(heterozygosity, 0, 1) +
		saturate(alleleRichness, 10) +
		(1 - clamp(fst, 0, 1)) +
		size) / 4
	return unitResult(v, DefaultUncertainty, nil)
}

// ComputeAES scores freedom from anthropogenic encroachment. Human footprint
// runs 0–50; fragmentation and pollution are fractions; distance to the
// nearest disturbance is in km and saturates at 10 km.
func ComputeAES(humanFootprint, fragmentation, pollutionIndex, distanceToDisturbance float64) ParameterResult {
	v := ((1 - saturate(humanFootprint, 50)) +
		(1 - clamp(fragmentation, 0, 1)) +
		(1 - clamp(pollutionIndex, 0, 1)) +
		saturate(distanceToDisturbance, 10)) / 4
	return unitResult(v, DefaultUncertainty, nil)
}

// ComputeTMI scores food-web integrity from connectance, modularity,
// number of trophic levels and the omnivory fraction.
func ComputeTMI(connectance, modularity, trophicLevels, omnivory float64) ParameterResult {
	v := (saturate(connectance, 0.3) +
		clamp(modularity, 0, 1) +
		saturate(trophicLevels, 5) +
		clamp(omnivory, 0, 1)) / 4
	return unitResult(v, DefaultUncertainty, nil)
}

// ComputeRRC scores regenerative capacity from the observed recovery rate and
// resilience (fractions), seed bank density (seeds/m²) and soil organic
// carbon (%).
func ComputeRRC(recoveryRate, resilience, seedBank, soilOrganicCarbon float64) ParameterResult {
	v := (clamp(recoveryRate, 0, 1) +
		clamp(resilience, 0, 1) +
		saturate(seedBank, 1000) +
		saturate(soilOrganicCarbon, 5)) / 4
	return unitResult(v, DefaultUncertainty, nil)
}

// saturate maps x onto [0,1] linearly, reaching 1 at ref.
func saturate(x, ref float64) float64 {
	return clamp(x/ref, 0, 1)
}
