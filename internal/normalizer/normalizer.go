package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"report-service/internal/models"

	"github.com/google/uuid"
)

var ErrNotAnObject = errors.New("analysis payload must be a JSON object")

// Normalizer maps raw or legacy analysis payloads onto the canonical record.
type Normalizer struct {
	now           func() time.Time
	newFarmID     func() string
	reportBaseURL string
}

type Option func(*Normalizer)

// WithClock replaces time.Now for report id and timestamp generation.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithFarmIDGenerator replaces the UUID generator used when the payload has no farm id.
func WithFarmIDGenerator(gen func() string) Option {
	return func(n *Normalizer) { n.newFarmID = gen }
}

// WithReportBaseURL makes missing share links point at <base>/<reportId>.
func WithReportBaseURL(base string) Option {
	return func(n *Normalizer) { n.reportBaseURL = strings.TrimRight(base, "/") }
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		now:       time.Now,
		newFarmID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NormalizeJSON decodes a payload and normalizes it. The only error is a body that
// is not a JSON object; missing or malformed fields never fail.
func (n *Normalizer) NormalizeJSON(data []byte) (*models.AnalysisRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnObject, err)
	}
	if raw == nil {
		return nil, ErrNotAnObject
	}
	return n.Normalize(raw), nil
}

// Normalize always returns a fully populated record.
func (n *Normalizer) Normalize(raw map[string]any) *models.AnalysisRecord {
	if raw == nil {
		raw = map[string]any{}
	}
	src := source{obj: raw, table: recordFields}
	profile := DefaultProfile()
	now := n.now()

	farmID := src.str(fFarmID)
	if farmID == "" {
		farmID = n.newFarmID()
	}
	reportID := BuildReportID(farmID, now)

	score := clampPercent(src.num(fHealthScore))
	interventions := n.interventions(src.list(fInterventions))

	materials := DedupeMaterials(interventions)
	if len(materials) == 0 {
		materials = profile.Materials
	}

	rec := &models.AnalysisRecord{
		ReportID:    reportID,
		Version:     orDefault(src.str(fVersion), profile.Version),
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Farm: models.FarmSubject{
			FarmID:       farmID,
			Name:         src.str(fFarmName),
			Location:     n.location(src),
			CropType:     src.str(fCropType),
			AreaHectares: src.num(fArea),
			ScanDate:     src.str(fScanDate),
		},
		Health: models.HealthAssessment{
			Score:               score,
			Label:               models.DeriveHealthLabel(score),
			PrimaryDiagnosis:    src.str(fDiagnosis),
			DetailedExplanation: src.str(fExplanation),
			ConfidenceScore:     clampPercent(src.num(fConfidence)),
			ExecutiveSummary:    src.str(fSummary),
		},
		KeyMetrics: models.KeyMetrics{
			TimeToAction: orDefault(src.str(fTimeToAction), profile.KeyMetrics.TimeToAction),
			YieldRisk:    orDefault(src.str(fYieldRisk), profile.KeyMetrics.YieldRisk),
			NDVIRange:    orDefault(src.str(fNDVIRange), profile.KeyMetrics.NDVIRange),
		},
		Imagery: models.Imagery{
			NDVIMap:           src.str(fNDVIMap),
			DeficiencyOverlay: src.str(fOverlay),
		},
		Soil: models.SoilMetrics{
			PH:            src.num(fPH),
			Nitrogen:      src.num(fNitrogen),
			Phosphorus:    src.num(fPhosphorus),
			Potassium:     src.num(fPotassium),
			Moisture:      src.num(fMoisture),
			OrganicMatter: src.num(fOrganicMatter),
		},
		Weather: models.WeatherMetrics{
			Temperature:   src.num(fTemperature),
			Humidity:      src.num(fHumidity),
			WindSpeed:     src.num(fWindSpeed),
			Precipitation: src.num(fPrecipitation),
		},
		Impact: models.ImpactAssessment{
			LimitingFactor:  orDefault(src.str(fLimitingFactor), profile.Impact.LimitingFactor),
			RootCause:       orDefault(src.str(fRootCause), profile.Impact.RootCause),
			PredictedImpact: orDefault(src.str(fPredictedImpact), profile.Impact.PredictedImpact),
		},
		Interventions: interventions,
		Resources: models.Resources{
			Materials: materials,
			Equipment: orDefaultList(stringList(src.list(fEquipment)), profile.Equipment),
		},
		Logistics:       orDefaultList(parseTimeline(src.list(fLogistics)), profile.Logistics),
		Monitoring:      orDefaultList(parseMonitoring(src.list(fMonitoring)), profile.Monitoring),
		Communication:   orDefaultList(parseCommunication(src.list(fCommunication)), profile.Communication),
		History:         orDefaultList(parseHistory(src.list(fHistory)), profile.History),
		RegionalProfile: orDefault(src.str(fRegionalProfile), profile.RegionalProfile),
		Provenance: models.Provenance{
			Satellite: orDefault(src.str(fSatelliteSource), profile.Provenance.Satellite),
			Soil:      orDefault(src.str(fSoilSource), profile.Provenance.Soil),
			Weather:   orDefault(src.str(fWeatherSource), profile.Provenance.Weather),
			AIModel:   orDefault(src.str(fAIModel), profile.Provenance.AIModel),
			ReportURL: n.reportURL(src.str(fReportURL), reportID, profile.Provenance.ReportURL),
		},
	}

	slog.Debug("Normalized analysis record",
		"report_id", rec.ReportID,
		"health_score", rec.Health.Score,
		"health_label", rec.Health.Label,
		"intervention_count", len(rec.Interventions))

	return rec
}

// BuildReportID is FARM-<first 8 chars of the farm id, upper-cased>-<YYYYMMDD>.
func BuildReportID(farmID string, at time.Time) string {
	prefix := []rune(farmID)
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "FARM-" + strings.ToUpper(string(prefix)) + "-" + at.Format("20060102")
}

// DedupeMaterials flattens intervention materials keeping first-seen order.
func DedupeMaterials(interventions []models.Intervention) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, iv := range interventions {
		for _, m := range iv.Materials {
			if m == "" {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func (n *Normalizer) location(src source) models.Location {
	loc := models.Location{Name: src.str(fLocationName)}

	lat, latOK := src.numOK(fLat)
	lon, lonOK := src.numOK(fLon)
	if latOK && lonOK && models.ValidCoordinates(lat, lon) {
		loc.Lat, loc.Lon = lat, lon
		return loc
	}

	if boundary := src.object(fBoundary); boundary != nil {
		lat, lon, err := models.BoundaryCenter(boundary)
		if err == nil {
			loc.Lat, loc.Lon = lat, lon
			return loc
		}
		slog.Warn("Ignoring unusable farm boundary", "error", err)
	}
	return loc
}

func (n *Normalizer) reportURL(given, reportID, fallback string) string {
	if given != "" {
		return given
	}
	if n.reportBaseURL != "" {
		return n.reportBaseURL + "/" + reportID
	}
	return fallback
}

func (n *Normalizer) interventions(items []any) []models.Intervention {
	out := make([]models.Intervention, 0, len(items))
	for _, item := range items {
		var obj map[string]any
		switch v := item.(type) {
		case map[string]any:
			obj = v
		case string:
			obj = map[string]any{"action": v}
		default:
			continue
		}
		src := source{obj: obj, table: interventionFields}

		priority, ok := models.ParsePriority(src.str("priority"))
		if !ok {
			priority = models.PriorityForIndex(len(out))
		}

		out = append(out, models.Intervention{
			Priority:        priority,
			Action:          src.str("action"),
			Goal:            src.str("goal"),
			Impact:          src.str("impact"),
			Materials:       materialsOf(src),
			Timing:          src.str("timing"),
			CostLevel:       models.ParseCostLevel(src.str("costLevel")),
			Confidence:      clampPercent(src.num("confidence")),
			ExpectedOutcome: src.str("expectedOutcome"),
		})
	}
	return out
}

// materialsOf accepts either a list or a comma-separated string.
func materialsOf(src source) []string {
	if l := src.list("materials"); l != nil {
		return stringList(l)
	}
	joined, _ := resolve(src.obj, text("", src.table["materials"].paths...))
	out := []string{}
	for _, part := range strings.Split(joined.(string), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTimeline(items []any) []models.TimelineEntry {
	var out []models.TimelineEntry
	for _, obj := range objects(items) {
		src := source{obj: obj, table: timelineFields}
		if src.str("action") == "" {
			continue
		}
		out = append(out, models.TimelineEntry{Week: src.str("week"), Action: src.str("action")})
	}
	return out
}

func parseMonitoring(items []any) []models.MonitoringPhase {
	var out []models.MonitoringPhase
	for _, obj := range objects(items) {
		src := source{obj: obj, table: monitoringFields}
		if src.str("phase") == "" {
			continue
		}
		out = append(out, models.MonitoringPhase{
			Phase:     src.str("phase"),
			Timeframe: src.str("timeframe"),
			Actions:   stringList(src.list("actions")),
		})
	}
	return out
}

func parseCommunication(items []any) []models.CommunicationChannel {
	var out []models.CommunicationChannel
	for _, obj := range objects(items) {
		src := source{obj: obj, table: communicationFields}
		if src.str("channel") == "" {
			continue
		}
		out = append(out, models.CommunicationChannel{
			Channel:   src.str("channel"),
			Audience:  src.str("audience"),
			Frequency: src.str("frequency"),
			Purpose:   src.str("purpose"),
		})
	}
	return out
}

func parseHistory(items []any) []models.HistoricalEvent {
	var out []models.HistoricalEvent
	for _, obj := range objects(items) {
		src := source{obj: obj, table: historyFields}
		if src.str("event") == "" {
			continue
		}
		out = append(out, models.HistoricalEvent{
			Date:   src.str("date"),
			Event:  src.str("event"),
			Impact: src.str("impact"),
		})
	}
	return out
}

func objects(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringList(items []any) []string {
	out := []string{}
	for _, item := range items {
		if v, ok := coerce(item, kindString); ok {
			out = append(out, v.(string))
		}
	}
	return out
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orDefaultList[T any](v, fallback []T) []T {
	if len(v) == 0 {
		return fallback
	}
	return v
}
