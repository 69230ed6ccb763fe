package models

// ============================================================================
// CANONICAL FARM HEALTH ANALYSIS
// ============================================================================

// AnalysisRecord is the canonical farm health analysis consumed by every exporter.
// It is built once by the normalizer and treated as read-only afterwards.
type AnalysisRecord struct {
	ReportID    string `json:"reportId"`
	Version     string `json:"version"`
	GeneratedAt string `json:"generatedAt"`

	Farm          FarmSubject            `json:"farm"`
	Health        HealthAssessment       `json:"health"`
	KeyMetrics    KeyMetrics             `json:"keyMetrics"`
	Imagery       Imagery                `json:"imagery"`
	Soil          SoilMetrics            `json:"soil"`
	Weather       WeatherMetrics         `json:"weather"`
	Impact        ImpactAssessment       `json:"impact"`
	Interventions []Intervention         `json:"interventions"`
	Resources     Resources              `json:"resources"`
	Logistics     []TimelineEntry        `json:"logistics"`
	Monitoring    []MonitoringPhase      `json:"monitoring"`
	Communication []CommunicationChannel `json:"communication"`
	History       []HistoricalEvent      `json:"history"`

	RegionalProfile string     `json:"regionalProfile"`
	Provenance      Provenance `json:"provenance"`
}

type FarmSubject struct {
	FarmID       string   `json:"farmId"`
	Name         string   `json:"name"`
	Location     Location `json:"location"`
	CropType     string   `json:"cropType"`
	AreaHectares float64  `json:"areaHectares"`
	ScanDate     string   `json:"scanDate"`
}

type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// HealthAssessment carries the score and the label derived from it.
type HealthAssessment struct {
	Score               float64     `json:"score"`
	Label               HealthLabel `json:"label"`
	PrimaryDiagnosis    string      `json:"primaryDiagnosis"`
	DetailedExplanation string      `json:"detailedExplanation"`
	ConfidenceScore     float64     `json:"confidenceScore"`
	ExecutiveSummary    string      `json:"executiveSummary"`
}

// KeyMetrics are the display values of the four cover cards.
type KeyMetrics struct {
	TimeToAction string `json:"timeToAction"`
	YieldRisk    string `json:"yieldRisk"`
	NDVIRange    string `json:"ndviRange"`
}

// Imagery references are URLs, data URIs or raw base64 payloads.
type Imagery struct {
	NDVIMap           string `json:"ndviMap"`
	DeficiencyOverlay string `json:"deficiencyOverlay"`
}

type SoilMetrics struct {
	PH            float64 `json:"ph"`
	Nitrogen      float64 `json:"nitrogen"`
	Phosphorus    float64 `json:"phosphorus"`
	Potassium     float64 `json:"potassium"`
	Moisture      float64 `json:"moisture"`
	OrganicMatter float64 `json:"organicMatter"`
}

type WeatherMetrics struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"windSpeed"`
	Precipitation float64 `json:"precipitation"`
}

type ImpactAssessment struct {
	LimitingFactor  string `json:"limitingFactor"`
	RootCause       string `json:"rootCause"`
	PredictedImpact string `json:"predictedImpact"`
}

type Intervention struct {
	Priority        Priority  `json:"priority"`
	Action          string    `json:"action"`
	Goal            string    `json:"goal"`
	Impact          string    `json:"impact"`
	Materials       []string  `json:"materials"`
	Timing          string    `json:"timing"`
	CostLevel       CostLevel `json:"costLevel"`
	Confidence      float64   `json:"confidence"`
	ExpectedOutcome string    `json:"expectedOutcome"`
}

// ============================================================================
// CONTEXTUAL SECTIONS
// ============================================================================

type Resources struct {
	Materials []string `json:"materials"`
	Equipment []string `json:"equipment"`
}

type TimelineEntry struct {
	Week   string `json:"week"`
	Action string `json:"action"`
}

type MonitoringPhase struct {
	Phase     string   `json:"phase"`
	Timeframe string   `json:"timeframe"`
	Actions   []string `json:"actions"`
}

type CommunicationChannel struct {
	Channel   string `json:"channel"`
	Audience  string `json:"audience"`
	Frequency string `json:"frequency"`
	Purpose   string `json:"purpose"`
}

type HistoricalEvent struct {
	Date   string `json:"date"`
	Event  string `json:"event"`
	Impact string `json:"impact"`
}

// Provenance names the data sources behind the analysis and the shareable report URL.
type Provenance struct {
	Satellite string `json:"satellite"`
	Soil      string `json:"soil"`
	Weather   string `json:"weather"`
	AIModel   string `json:"aiModel"`
	ReportURL string `json:"reportUrl"`
}
