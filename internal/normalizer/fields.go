package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type kind int

const (
	kindString kind = iota
	kindNumber
	kindList
	kindObject
)

// rule lists the source paths for one canonical field, canonical path first,
// then legacy aliases in priority order. Paths may be dotted to reach nested objects.
type rule struct {
	kind     kind
	paths    []string
	fallback any
}

func text(fallback string, paths ...string) rule {
	return rule{kind: kindString, paths: paths, fallback: fallback}
}

func number(paths ...string) rule {
	return rule{kind: kindNumber, paths: paths, fallback: 0.0}
}

func list(paths ...string) rule {
	return rule{kind: kindList, paths: paths}
}

func object(paths ...string) rule {
	return rule{kind: kindObject, paths: paths}
}

const unknown = "Unknown"

// ============================================================================
// RECORD FIELD TABLE
// ============================================================================

type field string

const (
	fFarmID          field = "farm.farmId"
	fFarmName        field = "farm.name"
	fLocationName    field = "farm.location.name"
	fLat             field = "farm.location.lat"
	fLon             field = "farm.location.lon"
	fBoundary        field = "farm.boundary"
	fCropType        field = "farm.cropType"
	fArea            field = "farm.areaHectares"
	fScanDate        field = "farm.scanDate"
	fVersion         field = "version"
	fHealthScore     field = "health.score"
	fDiagnosis       field = "health.primaryDiagnosis"
	fExplanation     field = "health.detailedExplanation"
	fConfidence      field = "health.confidenceScore"
	fSummary         field = "health.executiveSummary"
	fTimeToAction    field = "keyMetrics.timeToAction"
	fYieldRisk       field = "keyMetrics.yieldRisk"
	fNDVIRange       field = "keyMetrics.ndviRange"
	fNDVIMap         field = "imagery.ndviMap"
	fOverlay         field = "imagery.deficiencyOverlay"
	fPH              field = "soil.ph"
	fNitrogen        field = "soil.nitrogen"
	fPhosphorus      field = "soil.phosphorus"
	fPotassium       field = "soil.potassium"
	fMoisture        field = "soil.moisture"
	fOrganicMatter   field = "soil.organicMatter"
	fTemperature     field = "weather.temperature"
	fHumidity        field = "weather.humidity"
	fWindSpeed       field = "weather.windSpeed"
	fPrecipitation   field = "weather.precipitation"
	fLimitingFactor  field = "impact.limitingFactor"
	fRootCause       field = "impact.rootCause"
	fPredictedImpact field = "impact.predictedImpact"
	fInterventions   field = "interventions"
	fEquipment       field = "resources.equipment"
	fLogistics       field = "logistics"
	fMonitoring      field = "monitoring"
	fCommunication   field = "communication"
	fHistory         field = "history"
	fRegionalProfile field = "regionalProfile"
	fSatelliteSource field = "provenance.satellite"
	fSoilSource      field = "provenance.soil"
	fWeatherSource   field = "provenance.weather"
	fAIModel         field = "provenance.aiModel"
	fReportURL       field = "provenance.reportUrl"
)

// recordFields is the full canonical ← legacy mapping. Empty-string fallbacks mark
// fields the normalizer fills from the default profile when unresolved.
var recordFields = map[field]rule{
	fFarmID:          text("", "farm.farmId", "farmId", "farm_id", "field_id", "fieldId", "id"),
	fFarmName:        text(unknown, "farm.name", "farmName", "farm_name", "name"),
	fLocationName:    text(unknown, "farm.location.name", "location.name", "locationName", "location_name", "location", "region"),
	fLat:             number("farm.location.lat", "location.lat", "lat", "latitude", "location.latitude"),
	fLon:             number("farm.location.lon", "location.lon", "lon", "lng", "longitude", "location.longitude", "location.lng"),
	fBoundary:        object("farm.boundary", "boundary", "geojson", "geo_json"),
	fCropType:        text(unknown, "farm.cropType", "cropType", "crop_type", "crop", "yieldType"),
	fArea:            number("farm.areaHectares", "areaHectares", "area_hectares", "area_ha", "area"),
	fScanDate:        text(unknown, "farm.scanDate", "scanDate", "scan_date", "analysis_date", "date"),
	fVersion:         text("", "version", "schema_version", "report_version"),
	fHealthScore:     number("health.score", "healthScore", "health_score", "overall_health_score"),
	fDiagnosis:       text(unknown, "health.primaryDiagnosis", "primaryDiagnosis", "primary_diagnosis", "primary_stress"),
	fExplanation:     text("", "health.detailedExplanation", "detailedExplanation", "detailed_explanation", "explanation"),
	fConfidence:      number("health.confidenceScore", "confidenceScore", "confidence_score", "confidence"),
	fSummary:         text("", "health.executiveSummary", "executiveSummary", "executive_summary", "summary"),
	fTimeToAction:    text("", "keyMetrics.timeToAction", "timeToAction", "time_to_action"),
	fYieldRisk:       text("", "keyMetrics.yieldRisk", "yieldRisk", "yield_risk", "yield_loss_risk"),
	fNDVIRange:       text("", "keyMetrics.ndviRange", "ndviRange", "ndvi_range"),
	fNDVIMap:         text("", "imagery.ndviMap", "ndviImage", "ndvi_image", "ndviMapUrl", "ndvi_map"),
	fOverlay:         text("", "imagery.deficiencyOverlay", "deficiencyImage", "deficiency_overlay", "overlayImage", "overlay_image"),
	fPH:              number("soil.ph", "soil_data.ph", "soilPh", "soil_ph", "ph"),
	fNitrogen:        number("soil.nitrogen", "soil_data.nitrogen", "soil_data.n", "nitrogen", "soil_n"),
	fPhosphorus:      number("soil.phosphorus", "soil_data.phosphorus", "soil_data.p", "phosphorus", "soil_p"),
	fPotassium:       number("soil.potassium", "soil_data.potassium", "soil_data.k", "potassium", "soil_k"),
	fMoisture:        number("soil.moisture", "soil_data.moisture", "soilMoisture", "soil_moisture", "moisture"),
	fOrganicMatter:   number("soil.organicMatter", "soil_data.organic_matter", "organicMatter", "organic_matter"),
	fTemperature:     number("weather.temperature", "weather_data.temperature", "temperature", "temperature_deg_c"),
	fHumidity:        number("weather.humidity", "weather_data.humidity", "humidity", "humidity_pct"),
	fWindSpeed:       number("weather.windSpeed", "weather_data.wind_speed", "windSpeed", "wind_speed", "wind_speed_mps"),
	fPrecipitation:   number("weather.precipitation", "weather_data.precipitation", "precipitation", "rainfall"),
	fLimitingFactor:  text("", "impact.limitingFactor", "limitingFactor", "limiting_factor"),
	fRootCause:       text("", "impact.rootCause", "rootCause", "root_cause"),
	fPredictedImpact: text("", "impact.predictedImpact", "predictedImpact", "predicted_impact"),
	fInterventions:   list("interventions", "recommendations", "recommended_actions"),
	fEquipment:       list("resources.equipment", "equipment"),
	fLogistics:       list("logistics", "timeline", "logistics_timeline"),
	fMonitoring:      list("monitoring", "monitoringPhases", "monitoring_phases"),
	fCommunication:   list("communication", "communicationChannels", "communication_channels"),
	fHistory:         list("history", "historicalEvents", "historical_events"),
	fRegionalProfile: text("", "regionalProfile", "regional_profile", "regional_context"),
	fSatelliteSource: text("", "provenance.satellite", "dataSources.satellite", "data_sources.satellite"),
	fSoilSource:      text("", "provenance.soil", "dataSources.soil", "data_sources.soil"),
	fWeatherSource:   text("", "provenance.weather", "dataSources.weather", "data_sources.weather"),
	fAIModel:         text("", "provenance.aiModel", "dataSources.aiModel", "data_sources.ai_model", "model_version"),
	fReportURL:       text("", "provenance.reportUrl", "reportUrl", "report_url", "share_url"),
}

// ============================================================================
// INTERVENTION FIELD TABLE
// ============================================================================

var interventionFields = map[field]rule{
	"priority":        text("", "priority", "tier"),
	"action":          text(unknown, "action", "title", "name"),
	"goal":            text("", "goal", "objective"),
	"impact":          text("", "impact", "expectedImpact", "expected_impact"),
	"materials":       list("materials", "inputs"),
	"timing":          text("", "timing", "timeline", "when"),
	"costLevel":       text("", "costLevel", "cost_level", "cost"),
	"confidence":      number("confidence", "confidenceScore", "confidence_score"),
	"expectedOutcome": text("", "expectedOutcome", "expected_outcome", "outcome"),
}

// ============================================================================
// LOOKUP
// ============================================================================

// resolve walks a rule's paths in order and returns the first value present,
// non-null and convertible to the rule's kind. ok is false when the fallback was used.
func resolve(obj map[string]any, r rule) (any, bool) {
	for _, path := range r.paths {
		raw, found := lookupPath(obj, path)
		if !found || raw == nil {
			continue
		}
		if v, ok := coerce(raw, r.kind); ok {
			return v, true
		}
	}
	return r.fallback, false
}

func lookupPath(obj map[string]any, path string) (any, bool) {
	var cur any = obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func coerce(v any, k kind) (any, bool) {
	switch k {
	case kindString:
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) == "" {
				return nil, false
			}
			return strings.TrimSpace(t), true
		case float64, int, int64, json.Number:
			f, _ := toFloat(t)
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	case kindNumber:
		if f, ok := toFloat(v); ok {
			return f, true
		}
	case kindList:
		if l, ok := v.([]any); ok {
			return l, true
		}
	case kindObject:
		if m, ok := v.(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// toFloat accepts finite numbers only, so NaN and infinities fall through to the
// next alias or the default.
func toFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%")), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// source binds a raw object to a field table so call sites read as typed getters.
type source struct {
	obj   map[string]any
	table map[field]rule
}

func (s source) str(f field) string {
	v, _ := resolve(s.obj, s.table[f])
	str, _ := v.(string)
	return str
}

func (s source) num(f field) float64 {
	v, _ := resolve(s.obj, s.table[f])
	n, _ := v.(float64)
	return n
}

func (s source) numOK(f field) (float64, bool) {
	v, ok := resolve(s.obj, s.table[f])
	n, _ := v.(float64)
	return n, ok
}

func (s source) list(f field) []any {
	v, _ := resolve(s.obj, s.table[f])
	l, _ := v.([]any)
	return l
}

func (s source) object(f field) map[string]any {
	v, _ := resolve(s.obj, s.table[f])
	m, _ := v.(map[string]any)
	return m
}

// ============================================================================
// CONTEXTUAL SECTION TABLES
// ============================================================================

var timelineFields = map[field]rule{
	"week":   text("", "week", "period", "when"),
	"action": text("", "action", "task", "activity"),
}

var monitoringFields = map[field]rule{
	"phase":     text("", "phase", "name", "stage"),
	"timeframe": text("", "timeframe", "duration", "period"),
	"actions":   list("actions", "tasks", "checks"),
}

var communicationFields = map[field]rule{
	"channel":   text("", "channel", "method", "medium"),
	"audience":  text("", "audience", "recipient", "stakeholder"),
	"frequency": text("", "frequency", "cadence"),
	"purpose":   text("", "purpose", "description"),
}

var historyFields = map[field]rule{
	"date":   text("", "date", "year", "period"),
	"event":  text("", "event", "title", "description"),
	"impact": text("", "impact", "effect", "outcome"),
}
