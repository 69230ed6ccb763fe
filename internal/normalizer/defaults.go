package normalizer

import (
	"report-service/internal/models"
)

// Profile is the built-in sample dataset used to fill contextual sections the raw
// analysis does not carry, so a report is never rendered with empty pages.
type Profile struct {
	Farm            models.FarmSubject
	Health          models.HealthAssessment
	KeyMetrics      models.KeyMetrics
	Soil            models.SoilMetrics
	Weather         models.WeatherMetrics
	Impact          models.ImpactAssessment
	Interventions   []models.Intervention
	Materials       []string
	Equipment       []string
	Logistics       []models.TimelineEntry
	Monitoring      []models.MonitoringPhase
	Communication   []models.CommunicationChannel
	History         []models.HistoricalEvent
	RegionalProfile string
	Provenance      models.Provenance
	Version         string
}

// DefaultProfile builds a fresh copy of the sample dataset on every call.
// Callers may modify what they get back without affecting anyone else.
func DefaultProfile() Profile {
	return Profile{
		Version: "2.1.0",
		Farm: models.FarmSubject{
			FarmID: "pb610-mustard-ludhiana",
			Name:   "Punjab Mustard Farm #610",
			Location: models.Location{
				Name: "Ludhiana, Punjab",
				Lat:  30.9010,
				Lon:  75.8573,
			},
			CropType:     "Mustard",
			AreaHectares: 12.5,
			ScanDate:     "2024-11-18",
		},
		Health: models.HealthAssessment{
			Score:               68,
			Label:               models.DeriveHealthLabel(68),
			PrimaryDiagnosis:    "Nitrogen deficiency with early moisture stress",
			DetailedExplanation: "NDVI values in the north-east blocks trail the field median by 0.12. The pattern follows the irrigation lines and matches low nitrogen readings from the last soil sample.",
			ConfidenceScore:     82,
			ExecutiveSummary:    "The crop is in moderate health. Canopy vigour is uneven across the field with a clear nitrogen deficit in the north-east blocks. Acting within the next 7 days with a split urea application and an adjusted irrigation schedule should recover most of the expected yield.",
		},
		KeyMetrics: models.KeyMetrics{
			TimeToAction: "7 days",
			YieldRisk:    "12-18%",
			NDVIRange:    "0.41 - 0.68",
		},
		Soil: models.SoilMetrics{
			PH:            7.8,
			Nitrogen:      42,
			Phosphorus:    28,
			Potassium:     310,
			Moisture:      18,
			OrganicMatter: 2.4,
		},
		Weather: models.WeatherMetrics{
			Temperature:   24,
			Humidity:      58,
			WindSpeed:     3.2,
			Precipitation: 4,
		},
		Impact: models.ImpactAssessment{
			LimitingFactor:  "Available nitrogen in the root zone is below the crop requirement for the rosette stage.",
			RootCause:       "Alkaline soil (pH 7.8) and low organic matter reduce nitrogen availability, made worse by uneven irrigation coverage.",
			PredictedImpact: "Without intervention yield is expected to fall 12-18% below the district average, mostly through reduced pod count.",
		},
		Interventions: []models.Intervention{
			{
				Priority:        models.PriorityP1,
				Action:          "Apply split urea top dressing",
				Goal:            "Restore nitrogen supply",
				Impact:          "Recovers canopy vigour in 10-14 days",
				Materials:       []string{"Urea (46% N)", "Spreader"},
				Timing:          "Within 7 days",
				CostLevel:       models.CostMedium,
				Confidence:      85,
				ExpectedOutcome: "NDVI +0.08 in affected blocks",
			},
			{
				Priority:        models.PriorityP2,
				Action:          "Rebalance irrigation schedule",
				Goal:            "Even out soil moisture",
				Impact:          "Removes moisture stress on field edges",
				Materials:       []string{"Drip line fittings", "Soil moisture probe"},
				Timing:          "Next 2 weeks",
				CostLevel:       models.CostLow,
				Confidence:      78,
				ExpectedOutcome: "Moisture held at 22-28%",
			},
			{
				Priority:        models.PriorityP3,
				Action:          "Incorporate farmyard manure after harvest",
				Goal:            "Raise organic matter",
				Impact:          "Improves nutrient retention next season",
				Materials:       []string{"Farmyard manure", "Spreader"},
				Timing:          "Post harvest",
				CostLevel:       models.CostMedium,
				Confidence:      70,
				ExpectedOutcome: "Organic matter above 3%",
			},
		},
		Materials: []string{"Urea (46% N)", "Spreader", "Drip line fittings", "Soil moisture probe", "Farmyard manure"},
		Equipment: []string{"Tractor-mounted broadcaster", "Portable soil test kit", "Drone for follow-up NDVI scan"},
		Logistics: []models.TimelineEntry{
			{Week: "Week 1", Action: "Procure urea and calibrate spreader"},
			{Week: "Week 1", Action: "Apply first urea split"},
			{Week: "Week 2", Action: "Adjust drip schedule and install probes"},
			{Week: "Week 3", Action: "Follow-up NDVI scan"},
			{Week: "Week 4", Action: "Second urea split if NDVI gain below 0.05"},
		},
		Monitoring: []models.MonitoringPhase{
			{Phase: "Immediate", Timeframe: "Days 1-7", Actions: []string{"Daily moisture readings", "Visual leaf colour check"}},
			{Phase: "Short term", Timeframe: "Weeks 2-4", Actions: []string{"Weekly NDVI scan", "Tissue nitrogen test"}},
			{Phase: "Season", Timeframe: "Until harvest", Actions: []string{"Fortnightly NDVI scan", "Pest scouting", "Yield estimate update"}},
		},
		Communication: []models.CommunicationChannel{
			{Channel: "SMS alert", Audience: "Farm owner", Frequency: "On threshold breach", Purpose: "Urgent action prompts"},
			{Channel: "WhatsApp group", Audience: "Field workers", Frequency: "Daily", Purpose: "Task assignment"},
			{Channel: "Email report", Audience: "Agronomist", Frequency: "Weekly", Purpose: "Progress review"},
		},
		History: []models.HistoricalEvent{
			{Date: "2023-01", Event: "Cold wave", Impact: "Frost damage on 8% of the area"},
			{Date: "2022-12", Event: "Aphid outbreak", Impact: "Yield loss of 6%"},
			{Date: "2021-11", Event: "Late sowing after paddy harvest", Impact: "Shortened vegetative phase"},
		},
		RegionalProfile: "Central Punjab plains under a rice-wheat-mustard rotation. Soils are alluvial and mildly alkaline with declining organic matter. Rabi rainfall is low, so the crop depends on canal and tube-well irrigation. Nitrogen deficiency and aphid pressure are the most common yield limiters in the district.",
		Provenance: models.Provenance{
			Satellite: "Sentinel-2 L2A",
			Soil:      "State soil health card",
			Weather:   "Open-Meteo",
			AIModel:   "gemini-2.5-pro",
			ReportURL: "https://reports.example.org/r/pb610",
		},
	}
}

// SampleRecord is the canonical record built from the default profile alone.
func SampleRecord(reportID, generatedAt string) *models.AnalysisRecord {
	p := DefaultProfile()
	return &models.AnalysisRecord{
		ReportID:        reportID,
		Version:         p.Version,
		GeneratedAt:     generatedAt,
		Farm:            p.Farm,
		Health:          p.Health,
		KeyMetrics:      p.KeyMetrics,
		Soil:            p.Soil,
		Weather:         p.Weather,
		Impact:          p.Impact,
		Interventions:   p.Interventions,
		Resources:       models.Resources{Materials: p.Materials, Equipment: p.Equipment},
		Logistics:       p.Logistics,
		Monitoring:      p.Monitoring,
		Communication:   p.Communication,
		History:         p.History,
		RegionalProfile: p.RegionalProfile,
		Provenance:      p.Provenance,
	}
}
