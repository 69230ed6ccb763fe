package event

// ReportExportedEvent announces a generated report artifact to downstream notifiers.
type ReportExportedEvent struct {
	ReportID    string   `json:"reportId"`
	FarmID      string   `json:"farmId"`
	FarmName    string   `json:"farmName"`
	HealthScore float64  `json:"healthScore"`
	HealthLabel string   `json:"healthLabel"`
	Formats     []string `json:"formats"`
	Filenames   []string `json:"filenames,omitempty"`
	ReportURL   string   `json:"reportUrl,omitempty"`
	ExportedAt  string   `json:"exportedAt"`
}

const DefaultExportQueue string = "report_exports"
