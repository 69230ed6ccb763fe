package pdf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"report-service/internal/models"
)

var errNoImageRef = errors.New("no image reference")

const disclaimer = "This report is generated from remote sensing data, soil records and weather " +
	"observations combined with automated analysis. It is provided for decision support only and " +
	"does not replace an on-site inspection by a qualified agronomist. Recommendations should be " +
	"checked against local regulations and product labels before application. The publisher " +
	"accepts no liability for losses arising from actions taken on the basis of this report."

// ============================================================================
// PAGE 1: SITUATION REPORT COVER
// ============================================================================

func (d *document) coverPage() {
	w, _ := d.pdf.GetPageSize()
	rec := d.rec
	cw := d.contentWidth()

	// header band
	d.fill(colorBrand)
	d.pdf.Rect(0, 0, w, 42, "F")
	d.color(RGB{255, 255, 255})
	d.pdf.SetFont("Helvetica", "B", 18)
	d.pdf.SetXY(pageMargin, 9)
	d.pdf.CellFormat(cw-40, 9, d.tr(d.branding.Title), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetXY(pageMargin, 19)
	d.pdf.CellFormat(cw-40, 6, d.tr(d.branding.Subtitle), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 8.5)
	d.pdf.SetXY(pageMargin, 28)
	d.pdf.CellFormat(cw-40, 5, d.tr(fmt.Sprintf("%s  |  Report %s", rec.Farm.Name, rec.ReportID)), "", 0, "L", false, 0, "")

	d.healthBadge(w-pageMargin-17, 21, 15)

	// farm strip
	d.color(colorInk)
	d.pdf.SetFont("Helvetica", "", 8.5)
	d.pdf.SetXY(pageMargin, 46)
	farm := fmt.Sprintf("Location: %s (%.4f, %.4f)   Crop: %s   Area: %s ha   Scan date: %s",
		rec.Farm.Location.Name, rec.Farm.Location.Lat, rec.Farm.Location.Lon,
		rec.Farm.CropType, trimFloat(rec.Farm.AreaHectares), rec.Farm.ScanDate)
	d.pdf.CellFormat(cw, 5, d.tr(farm), "", 1, "L", false, 0, "")

	// imagery
	frames := CardRects(pageMargin, 54, cw, 58, 6, 2)
	d.coverImage("ndvi", rec.Imagery.NDVIMap, frames[0], "NDVI vegetation index")
	d.coverImage("overlay", rec.Imagery.DeficiencyOverlay, frames[1], "Nutrient deficiency overlay")

	// key metric cards
	cards := CardRects(pageMargin, 124, cw, 20, 4, 4)
	figures := [][2]string{
		{"Time to action", rec.KeyMetrics.TimeToAction},
		{"Yield risk", rec.KeyMetrics.YieldRisk},
		{"Confidence", trimFloat(rec.Health.ConfidenceScore) + "%"},
		{"NDVI range", rec.KeyMetrics.NDVIRange},
	}
	for i, card := range cards {
		d.metricCard(card, figures[i][0], figures[i][1])
	}

	d.pdf.SetXY(pageMargin, 150)
	d.sectionTitle("Primary Diagnosis")
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetX(pageMargin)
	d.pdf.CellFormat(cw, 6, d.tr(rec.Health.PrimaryDiagnosis), "", 1, "L", false, 0, "")
	if rec.Health.DetailedExplanation != "" {
		d.paragraph(rec.Health.DetailedExplanation, 9)
	}

	d.sectionTitle("Executive Summary")
	d.paragraph(rec.Health.ExecutiveSummary, 10)
}

func (d *document) healthBadge(cx, cy, r float64) {
	health := d.rec.Health
	d.fill(SeverityColor(health.Score))
	d.draw(RGB{255, 255, 255})
	d.pdf.SetLineWidth(0.8)
	d.pdf.Circle(cx, cy, r, "FD")

	d.color(RGB{255, 255, 255})
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.SetXY(cx-r, cy-7)
	d.pdf.CellFormat(2*r, 8, trimFloat(health.Score), "", 0, "C", false, 0, "")
	d.pdf.SetFont("Helvetica", "B", 6.5)
	d.pdf.SetXY(cx-r, cy+1.5)
	d.pdf.CellFormat(2*r, 4, d.tr(string(health.Label)), "", 0, "C", false, 0, "")
	d.color(colorInk)
}

func (d *document) coverImage(name, ref string, frame Rect, caption string) {
	imageFrame := Rect{X: frame.X, Y: frame.Y, W: frame.W, H: frame.H - 7}

	switch {
	case ref == "":
		d.degrade(name, errNoImageRef)
		d.placeholder(imageFrame, "Image not available")
	case d.images == nil:
		d.degrade(name, errors.New("no image loader configured"))
		d.placeholder(imageFrame, "Image not available")
	default:
		data, err := d.images.Load(d.ctx, ref, imageFrame.W/imageFrame.H)
		if err != nil {
			d.degrade(name, err)
			d.placeholder(imageFrame, "Image could not be loaded")
		} else {
			d.draw(colorRule)
			d.pdf.SetLineWidth(0.3)
			d.pdf.Rect(imageFrame.X, imageFrame.Y, imageFrame.W, imageFrame.H, "D")
			d.image(name, data, imageFrame, "Image could not be loaded")
		}
	}

	d.pdf.SetFont("Helvetica", "I", 8)
	d.color(colorMuted)
	d.pdf.SetXY(frame.X, frame.Y+frame.H-6)
	d.pdf.CellFormat(frame.W, 5, d.tr(caption), "", 0, "C", false, 0, "")
	d.color(colorInk)
}

func (d *document) metricCard(r Rect, label, value string) {
	d.fill(colorBrandSoft)
	d.draw(colorBrand)
	d.pdf.SetLineWidth(0.3)
	d.pdf.Rect(r.X, r.Y, r.W, r.H, "FD")

	d.pdf.SetFont("Helvetica", "", 7.5)
	d.color(colorMuted)
	d.pdf.SetXY(r.X, r.Y+3)
	d.pdf.CellFormat(r.W, 4, d.tr(strings.ToUpper(label)), "", 0, "C", false, 0, "")

	d.pdf.SetFont("Helvetica", "B", 12)
	d.color(colorInk)
	d.pdf.SetXY(r.X, r.Y+9)
	d.pdf.CellFormat(r.W, 7, d.tr(value), "", 0, "C", false, 0, "")
}

// ============================================================================
// PAGE 2: ENVIRONMENT AND SOIL
// ============================================================================

func (d *document) environmentPage() {
	soil := d.rec.Soil
	weather := d.rec.Weather
	cw := d.contentWidth()

	d.sectionTitle("Soil Parameters")
	soilRows := []struct {
		param SoilParameter
		value float64
		unit  string
	}{
		{SoilPH, soil.PH, ""},
		{SoilNitrogen, soil.Nitrogen, "kg/ha"},
		{SoilPhosphorus, soil.Phosphorus, "kg/ha"},
		{SoilPotassium, soil.Potassium, "kg/ha"},
		{SoilMoisture, soil.Moisture, "%"},
		{SoilOrganicMatter, soil.OrganicMatter, "%"},
	}
	rows := make([][]string, 0, len(soilRows))
	for _, s := range soilRows {
		rows = append(rows, []string{string(s.param), trimFloat(s.value), s.unit, SoilStatus(s.param, s.value)})
	}
	d.table(table{
		headers:  []string{"Parameter", "Value", "Unit", "Status"},
		widths:   ColumnWidths(cw, []float64{3, 2, 2, 3}),
		rows:     rows,
		fontSize: 9,
		rowFill: func(i int) (RGB, bool) {
			switch rows[i][3] {
			case "Concern", "Deficient", "Low":
				return colorWarning, true
			}
			return RGB{}, false
		},
	})

	d.sectionTitle("Weather Conditions")
	d.table(table{
		headers: []string{"Metric", "Value", "Unit"},
		widths:  ColumnWidths(cw, []float64{4, 3, 3}),
		rows: [][]string{
			{"Temperature", trimFloat(weather.Temperature), "deg C"},
			{"Humidity", trimFloat(weather.Humidity), "%"},
			{"Wind speed", trimFloat(weather.WindSpeed), "m/s"},
			{"Precipitation", trimFloat(weather.Precipitation), "mm"},
		},
		fontSize: 9,
	})

	d.sectionTitle("Impact Assessment")
	impact := d.rec.Impact
	for _, sub := range [][2]string{
		{"Limiting factor", impact.LimitingFactor},
		{"Root cause", impact.RootCause},
		{"Predicted impact", impact.PredictedImpact},
	} {
		d.ensureSpace(12)
		d.pdf.SetFont("Helvetica", "B", 10)
		d.pdf.SetX(pageMargin)
		d.pdf.CellFormat(cw, 6, d.tr(sub[0]), "", 1, "L", false, 0, "")
		d.paragraph(sub[1], 9)
	}
}

// ============================================================================
// PAGE 3: INTERVENTION PLAN
// ============================================================================

func (d *document) interventionPage() {
	d.sectionTitle("Intervention Plan")

	ivs := d.rec.Interventions
	if len(ivs) == 0 {
		d.paragraph("No interventions are recommended for this scan.", 10)
		return
	}

	rows := make([][]string, len(ivs))
	for i, iv := range ivs {
		rows[i] = []string{
			string(iv.Priority), iv.Action, iv.Goal, iv.Impact,
			strings.Join(iv.Materials, ", "), iv.Timing, string(iv.CostLevel), iv.ExpectedOutcome,
		}
	}
	d.table(table{
		headers:  []string{"Priority", "Action", "Goal", "Impact", "Materials", "Timing", "Cost", "Outcome"},
		widths:   ColumnWidths(d.contentWidth(), []float64{13, 30, 24, 26, 27, 20, 14, 26}),
		rows:     rows,
		fontSize: 7.5,
		rowFill: func(i int) (RGB, bool) {
			return PriorityTint(ivs[i].Priority), true
		},
	})

	d.pdf.SetFont("Helvetica", "I", 8)
	d.color(colorMuted)
	d.pdf.SetX(pageMargin)
	d.pdf.CellFormat(d.contentWidth(), 5, "P1: act immediately   P2: schedule within two weeks   P3: plan for the season", "", 1, "L", false, 0, "")
	d.color(colorInk)
}

// ============================================================================
// PAGE 4: RESOURCES AND LOGISTICS
// ============================================================================

func (d *document) resourcesPage() {
	d.sectionTitle("Resources")
	d.bulletList("Materials", d.rec.Resources.Materials)
	d.bulletList("Equipment", d.rec.Resources.Equipment)

	d.sectionTitle("Logistics Timeline")
	cw := d.contentWidth()
	markerX := pageMargin + 4
	textX := pageMargin + 12
	prevY := -1.0

	for i, entry := range d.rec.Logistics {
		d.pdf.SetFont("Helvetica", "", 9)
		lines := d.lines(entry.Action, cw-textX+pageMargin-30)
		h := WrappedBoxHeight(len(lines), lineHeight, 1.5, 10)
		before := d.pdf.PageNo()
		d.ensureSpace(h)
		if d.pdf.PageNo() != before {
			prevY = -1
		}
		y := d.pdf.GetY()

		if prevY >= 0 {
			d.draw(colorRule)
			d.pdf.SetLineWidth(0.6)
			d.pdf.Line(markerX, prevY+2.5, markerX, y+2.5)
		}
		d.fill(PriorityTint(models.PriorityForIndex(min(i, 2))))
		d.draw(colorBrand)
		d.pdf.SetLineWidth(0.4)
		d.pdf.Circle(markerX, y+5, 2.5, "FD")

		d.pdf.SetFont("Helvetica", "B", 9)
		d.pdf.SetXY(textX, y+1.5)
		d.pdf.CellFormat(28, lineHeight, d.tr(entry.Week), "", 0, "L", false, 0, "")
		d.pdf.SetFont("Helvetica", "", 9)
		for j, l := range lines {
			d.pdf.SetXY(textX+30, y+1.5+float64(j)*lineHeight)
			d.pdf.CellFormat(cw-textX+pageMargin-30, lineHeight, l, "", 0, "L", false, 0, "")
		}

		prevY = y + 2.5
		d.pdf.SetY(y + h)
	}
}

func (d *document) bulletList(title string, items []string) {
	d.ensureSpace(12)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetX(pageMargin)
	d.pdf.CellFormat(d.contentWidth(), 6, d.tr(title), "", 1, "L", false, 0, "")

	d.pdf.SetFont("Helvetica", "", 9)
	if len(items) == 0 {
		items = []string{"None listed"}
	}
	for _, item := range items {
		for j, l := range d.lines(item, d.contentWidth()-8) {
			d.ensureSpace(lineHeight)
			d.pdf.SetX(pageMargin + 2)
			bullet := ""
			if j == 0 {
				bullet = d.tr("•")
			}
			d.pdf.CellFormat(5, lineHeight, bullet, "", 0, "L", false, 0, "")
			d.pdf.CellFormat(d.contentWidth()-8, lineHeight, l, "", 1, "L", false, 0, "")
		}
	}
	d.pdf.Ln(3)
}

// ============================================================================
// PAGE 5: MONITORING AND COMMUNICATION
// ============================================================================

func (d *document) monitoringPage() {
	cw := d.contentWidth()

	d.sectionTitle("Communication Plan")
	comm := make([][]string, len(d.rec.Communication))
	for i, c := range d.rec.Communication {
		comm[i] = []string{c.Channel, c.Audience, c.Frequency, c.Purpose}
	}
	d.table(table{
		headers:  []string{"Channel", "Audience", "Frequency", "Purpose"},
		widths:   ColumnWidths(cw, []float64{3, 3, 3, 4}),
		rows:     comm,
		fontSize: 9,
	})

	d.sectionTitle("Monitoring Schedule")
	phases := make([][]string, len(d.rec.Monitoring))
	for i, m := range d.rec.Monitoring {
		phases[i] = []string{m.Phase, m.Timeframe, "• " + strings.Join(m.Actions, "  • ")}
	}
	d.table(table{
		headers:  []string{"Phase", "Timeframe", "Actions"},
		widths:   ColumnWidths(cw, []float64{2, 2, 6}),
		rows:     phases,
		fontSize: 9,
		rowFill: func(i int) (RGB, bool) {
			return colorPanel, i%2 == 1
		},
	})
}

// ============================================================================
// PAGE 6: DIGITAL ACCESS
// ============================================================================

func (d *document) digitalAccessPage() {
	cw := d.contentWidth()
	rec := d.rec

	d.sectionTitle("Digital Access")

	size := 60.0
	frame := Rect{X: pageMargin + (cw-size)/2, Y: d.pdf.GetY() + 4, W: size, H: size}
	url := rec.Provenance.ReportURL
	switch {
	case url == "":
		d.degrade("qr", errors.New("report has no share link"))
		d.placeholder(frame, "Share link not available")
	default:
		png, err := d.encodeQR(url, 512)
		if err != nil {
			d.degrade("qr", fmt.Errorf("failed to encode QR code: %w", err))
			d.placeholder(frame, "QR code not available")
		} else {
			d.image("qr", png, frame, "QR code not available")
		}
	}
	d.pdf.SetY(frame.Y + frame.H + 6)

	d.pdf.SetFont("Helvetica", "", 9)
	d.color(colorMuted)
	d.pdf.SetX(pageMargin)
	d.pdf.CellFormat(cw, 5, d.tr(url), "", 1, "C", false, 0, "")
	d.color(colorInk)
	d.pdf.Ln(4)

	d.sectionTitle("Sharing Instructions")
	d.paragraph("Scan the code with a phone camera to open the interactive version of this report. "+
		"The link can be forwarded to field staff, agronomists and input suppliers. "+
		"The online version shows the latest imagery and lets recipients download the report again in PDF, CSV, Excel or JSON.", 9.5)

	d.sectionTitle("Report Metadata")
	d.table(table{
		headers: []string{"Field", "Value"},
		widths:  ColumnWidths(cw, []float64{1, 2}),
		rows: [][]string{
			{"Report ID", rec.ReportID},
			{"Version", rec.Version},
			{"Generated", d.generated},
			{"Satellite data", rec.Provenance.Satellite},
			{"Soil data", rec.Provenance.Soil},
			{"Weather data", rec.Provenance.Weather},
			{"Analysis model", rec.Provenance.AIModel},
		},
		fontSize: 9,
	})
}

// ============================================================================
// PAGE 7: CONTEXT AND DISCLAIMER
// ============================================================================

func (d *document) contextPage() {
	cw := d.contentWidth()

	d.sectionTitle("Historical Events")
	hist := make([][]string, len(d.rec.History))
	for i, h := range d.rec.History {
		hist[i] = []string{h.Date, h.Event, h.Impact}
	}
	d.table(table{
		headers:  []string{"Date", "Event", "Impact"},
		widths:   ColumnWidths(cw, []float64{2, 4, 4}),
		rows:     hist,
		fontSize: 9,
	})

	d.sectionTitle("Regional Profile")
	d.pdf.SetFont("Helvetica", "", 9.5)
	d.textBox(d.lines(d.rec.RegionalProfile, cw-8), lineHeight, 16, colorBrandSoft, colorBrand)
	d.pdf.Ln(6)

	d.sectionTitle("Disclaimer")
	d.pdf.SetFont("Helvetica", "", 8)
	d.textBox(d.lines(disclaimer, cw-8), 4, 36, colorWarning, colorOrange)
}

// textBox draws lines inside a padded, filled box whose height follows from lh.
// Lines that do not fit on the current page continue in a new box on the next.
func (d *document) textBox(lines []string, lh, minHeight float64, bg, border RGB) {
	const pad = 4.0
	cw := d.contentWidth()

	d.ensureSpace(min(WrappedBoxHeight(len(lines), lh, pad, minHeight), d.bottom()-contentTop))
	for {
		y := d.pdf.GetY()
		n := min(LinesThatFit(d.bottom()-y, lh, pad), len(lines))
		h := WrappedBoxHeight(n, lh, pad, 0)
		if n == len(lines) {
			h = max(h, min(minHeight, d.bottom()-y))
		}

		d.fill(bg)
		d.draw(border)
		d.pdf.SetLineWidth(0.4)
		d.pdf.Rect(pageMargin, y, cw, h, "FD")
		for i, l := range lines[:n] {
			d.pdf.SetXY(pageMargin+pad, y+pad+float64(i)*lh)
			d.pdf.CellFormat(cw-2*pad, lh, l, "", 0, "L", false, 0, "")
		}
		d.pdf.SetXY(pageMargin, y+h)

		if lines = lines[n:]; len(lines) == 0 {
			return
		}
		d.pdf.AddPage()
		d.pdf.SetXY(pageMargin, contentTop)
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
