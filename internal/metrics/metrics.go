package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ExportsTotal counts export calls by format and result.
	ExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "report",
		Name:      "exports_total",
		Help:      "Total number of report exports, labeled by format and result.",
	}, []string{"format", "result"})

	ExportDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agrisa",
		Subsystem: "report",
		Name:      "export_duration_seconds",
		Help:      "Time to render one export artifact.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"format"})

	// PDFDegradationsTotal counts visual elements replaced by placeholders.
	PDFDegradationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "report",
		Name:      "pdf_degradations_total",
		Help:      "Total number of PDF elements replaced by a placeholder, labeled by element.",
	}, []string{"element"})

	// SpreadsheetRejectionsTotal counts uploads or sheets refused by the validator.
	SpreadsheetRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "spreadsheet",
		Name:      "rejections_total",
		Help:      "Total number of spreadsheet rejections, labeled by reason.",
	}, []string{"reason"})

	EventPublishErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "agrisa",
		Subsystem: "report",
		Name:      "event_publish_error_total",
		Help:      "Total number of export events that could not be published.",
	})
)

// Register registers report metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ExportsTotal,
			ExportDurationSeconds,
			PDFDegradationsTotal,
			SpreadsheetRejectionsTotal,
			EventPublishErrorTotal,
		)
	})
}
