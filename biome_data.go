package biotica

// referenceBiomes are the published reference profiles. Threshold ranges give
// the expected span of each parameter in an intact example of the biome.
var referenceBiomes = []BiomeProfile{
	{
		Name:               TropicalRainforest,
		Code:               "TRF",
		ClimateZone:        "tropical",
		MeanTemperature:    26.5,
		MeanPrecipitation:  2200,
		DominantVegetation: []string{"evergreen_broadleaf", "lianas", "epiphytes"},
		SoilTypes:          []string{"oxisols", "ultisols"},
		BiodiversityIndex:  0.95,
		CarbonStorage:      250,
		ReferenceIBR:       0.88,
		Thresholds: map[Parameter]Range{
			VCA: {0.75, 0.95},
			MDI: {0.80, 0.98},
			PTS: {0.70, 0.92},
			HFI: {0.65, 0.88},
			BNC: {0.72, 0.94},
			SGH: {0.68, 0.90},
			AES: {0.55, 0.92},
			TMI: {0.65, 0.91},
			RRC: {0.50, 0.88},
		},
	},
	{
		Name:               TemperateBroadleaf,
		Code:               "TBF",
		ClimateZone:        "temperate",
		MeanTemperature:    12,
		MeanPrecipitation:  950,
		DominantVegetation: []string{"deciduous_broadleaf", "shrubs"},
		SoilTypes:          []string{"alfisols", "inceptisols"},
		BiodiversityIndex:  0.75,
		CarbonStorage:      150,
		ReferenceIBR:       0.8,
		Thresholds: map[Parameter]Range{
			VCA: {0.65, 0.88},
			MDI: {0.70, 0.92},
			PTS: {0.60, 0.85},
			HFI: {0.62, 0.86},
			BNC: {0.68, 0.90},
			SGH: {0.63, 0.87},
			AES: {0.48, 0.88},
			TMI: {0.60, 0.86},
			RRC: {0.45, 0.84},
		},
	},
	{
		Name:               TemperateConiferous,
		Code:               "TCF",
		ClimateZone:        "temperate",
		MeanTemperature:    8.5,
		MeanPrecipitation:  850,
		DominantVegetation: []string{"coniferous", "evergreen_needleleaf"},
		SoilTypes:          []string{"spodosols", "inceptisols"},
		BiodiversityIndex:  0.65,
		CarbonStorage:      180,
		ReferenceIBR:       0.78,
		Thresholds: map[Parameter]Range{
			VCA: {0.60, 0.85},
			MDI: {0.65, 0.88},
			PTS: {0.55, 0.82},
			HFI: {0.58, 0.84},
			BNC: {0.62, 0.86},
			SGH: {0.58, 0.83},
			AES: {0.45, 0.85},
			TMI: {0.55, 0.82},
			RRC: {0.42, 0.80},
		},
	},
	{
		Name:               BorealForest,
		Code:               "BOR",
		ClimateZone:        "boreal",
		MeanTemperature:    2,
		MeanPrecipitation:  500,
		DominantVegetation: []string{"coniferous", "deciduous", "mosses"},
		SoilTypes:          []string{"spodosols", "inceptisols", "histosols"},
		BiodiversityIndex:  0.55,
		CarbonStorage:      120,
		ReferenceIBR:       0.72,
		Thresholds: map[Parameter]Range{
			VCA: {0.50, 0.80},
			MDI: {0.55, 0.82},
			PTS: {0.45, 0.75},
			HFI: {0.52, 0.80},
			BNC: {0.52, 0.78},
			SGH: {0.48, 0.75},
			AES: {0.60, 0.90},
			TMI: {0.45, 0.72},
			RRC: {0.35, 0.70},
		},
	},
	{
		Name:               TropicalSavanna,
		Code:               "SAV",
		ClimateZone:        "tropical",
		MeanTemperature:    24,
		MeanPrecipitation:  800,
		DominantVegetation: []string{"grasses", "scattered_trees", "shrubs"},
		SoilTypes:          []string{"inceptisols", "alfisols"},
		BiodiversityIndex:  0.7,
		CarbonStorage:      80,
		ReferenceIBR:       0.75,
		Thresholds: map[Parameter]Range{
			VCA: {0.50, 0.82},
			MDI: {0.60, 0.88},
			PTS: {0.55, 0.80},
			HFI: {0.48, 0.78},
			BNC: {0.55, 0.82},
			SGH: {0.52, 0.80},
			AES: {0.45, 0.85},
			TMI: {0.48, 0.75},
			RRC: {0.48, 0.82},
		},
	},
	{
		Name:               TemperateGrassland,
		Code:               "GRS",
		ClimateZone:        "temperate",
		MeanTemperature:    10,
		MeanPrecipitation:  600,
		DominantVegetation: []string{"grasses", "forbs"},
		SoilTypes:          []string{"mollisols"},
		BiodiversityIndex:  0.6,
		CarbonStorage:      70,
		ReferenceIBR:       0.72,
		Thresholds: map[Parameter]Range{
			VCA: {0.45, 0.78},
			MDI: {0.55, 0.84},
			PTS: {0.50, 0.78},
			HFI: {0.45, 0.75},
			BNC: {0.50, 0.80},
			SGH: {0.48, 0.78},
			AES: {0.42, 0.82},
			TMI: {0.45, 0.72},
			RRC: {0.45, 0.80},
		},
	},
	{
		Name:               Mediterranean,
		Code:               "MED",
		ClimateZone:        "mediterranean",
		MeanTemperature:    16,
		MeanPrecipitation:  550,
		DominantVegetation: []string{"sclerophyll_shrubs", "evergreen_trees"},
		SoilTypes:          []string{"inceptisols", "alfisols"},
		BiodiversityIndex:  0.65,
		CarbonStorage:      60,
		ReferenceIBR:       0.7,
		Thresholds: map[Parameter]Range{
			VCA: {0.40, 0.75},
			MDI: {0.50, 0.80},
			PTS: {0.45, 0.75},
			HFI: {0.35, 0.70},
			BNC: {0.45, 0.75},
			SGH: {0.42, 0.72},
			AES: {0.35, 0.78},
			TMI: {0.40, 0.68},
			RRC: {0.40, 0.75},
		},
	},
	{
		Name:               Desert,
		Code:               "DES",
		ClimateZone:        "arid",
		MeanTemperature:    20,
		MeanPrecipitation:  150,
		DominantVegetation: []string{"xerophytes", "succulents", "shrubs"},
		SoilTypes:          []string{"aridisols", "entisols"},
		BiodiversityIndex:  0.3,
		CarbonStorage:      20,
		ReferenceIBR:       0.55,
		Thresholds: map[Parameter]Range{
			VCA: {0.20, 0.60},
			MDI: {0.30, 0.65},
			PTS: {0.30, 0.65},
			HFI: {0.15, 0.50},
			BNC: {0.25, 0.60},
			SGH: {0.25, 0.60},
			AES: {0.40, 0.85},
			TMI: {0.25, 0.55},
			RRC: {0.25, 0.60},
		},
	},
	{
		Name:               Tundra,
		Code:               "TUN",
		ClimateZone:        "polar",
		MeanTemperature:    -5,
		MeanPrecipitation:  300,
		DominantVegetation: []string{"mosses", "lichens", "dwarf_shrubs"},
		SoilTypes:          []string{"inceptisols", "histosols", "gelisols"},
		BiodiversityIndex:  0.35,
		CarbonStorage:      50,
		ReferenceIBR:       0.6,
		Thresholds: map[Parameter]Range{
			VCA: {0.30, 0.65},
			MDI: {0.35, 0.70},
			PTS: {0.25, 0.60},
			HFI: {0.35, 0.70},
			BNC: {0.30, 0.65},
			SGH: {0.28, 0.62},
			AES: {0.50, 0.90},
			TMI: {0.30, 0.62},
			RRC: {0.20, 0.55},
		},
	},
	{
		Name:               Mangrove,
		Code:               "MAN",
		ClimateZone:        "tropical",
		MeanTemperature:    25,
		MeanPrecipitation:  1800,
		DominantVegetation: []string{"mangroves", "halophytes"},
		SoilTypes:          []string{"inceptisols", "entisols"},
		BiodiversityIndex:  0.6,
		CarbonStorage:      300,
		ReferenceIBR:       0.75,
		Thresholds: map[Parameter]Range{
			VCA: {0.60, 0.88},
			MDI: {0.65, 0.90},
			PTS: {0.55, 0.82},
			HFI: {0.70, 0.95},
			BNC: {0.60, 0.88},
			SGH: {0.50, 0.80},
			AES: {0.30, 0.75},
			TMI: {0.55, 0.82},
			RRC: {0.55, 0.85},
		},
	},
	{
		Name:               Wetland,
		Code:               "WET",
		ClimateZone:        "variable",
		MeanTemperature:    15,
		MeanPrecipitation:  1000,
		DominantVegetation: []string{"hydrophytes", "sedges", "reeds"},
		SoilTypes:          []string{"histosols", "inceptisols"},
		BiodiversityIndex:  0.65,
		CarbonStorage:      200,
		ReferenceIBR:       0.7,
		Thresholds: map[Parameter]Range{
			VCA: {0.50, 0.82},
			MDI: {0.60, 0.88},
			PTS: {0.50, 0.80},
			HFI: {0.65, 0.92},
			BNC: {0.55, 0.84},
			SGH: {0.45, 0.75},
			AES: {0.35, 0.78},
			TMI: {0.50, 0.78},
			RRC: {0.50, 0.82},
		},
	},
	{
		Name:               Montane,
		Code:               "MON",
		ClimateZone:        "montane",
		MeanTemperature:    10,
		MeanPrecipitation:  1200,
		DominantVegetation: []string{"mixed_forest", "cloud_forest"},
		SoilTypes:          []string{"inceptisols", "andisols"},
		BiodiversityIndex:  0.7,
		CarbonStorage:      180,
		ReferenceIBR:       0.78,
		Thresholds: map[Parameter]Range{
			VCA: {0.60, 0.88},
			MDI: {0.65, 0.90},
			PTS: {0.55, 0.85},
			HFI: {0.60, 0.88},
			BNC: {0.60, 0.86},
			SGH: {0.55, 0.82},
			AES: {0.40, 0.82},
			TMI: {0.55, 0.82},
			RRC: {0.45, 0.80},
		},
	},
}
