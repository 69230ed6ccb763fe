package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"report-service/internal/metrics"
	"report-service/internal/models"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/unicode/norm"
)

const (
	pageMargin    = 15.0
	headerHeight  = 22.0
	contentTop    = 30.0
	footerReserve = 18.0
	lineHeight    = 5.0
)

// ImageLoader turns an imagery reference into PNG bytes fitted to the given aspect ratio.
type ImageLoader interface {
	Load(ctx context.Context, ref string, aspect float64) ([]byte, error)
}

type QREncoder func(content string, size int) ([]byte, error)

type Branding struct {
	Title    string
	Subtitle string
	Author   string
}

// Renderer produces the seven-page situation report. It holds no per-document
// state and may be shared between goroutines.
type Renderer struct {
	branding Branding
	images   ImageLoader
	encodeQR QREncoder
	now      func() time.Time
}

type Option func(*Renderer)

func WithImageLoader(l ImageLoader) Option {
	return func(r *Renderer) { r.images = l }
}

func WithQREncoder(enc QREncoder) Option {
	return func(r *Renderer) { r.encodeQR = enc }
}

func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

func NewRenderer(branding Branding, opts ...Option) *Renderer {
	if branding.Title == "" {
		branding.Title = "Crop Health Situation Report"
	}
	r := &Renderer{
		branding: branding,
		encodeQR: encodeQRCode,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// document is the state of one Render call.
type document struct {
	ctx          context.Context
	pdf          *fpdf.Fpdf
	rec          *models.AnalysisRecord
	branding     Branding
	images       ImageLoader
	encodeQR     QREncoder
	translate    func(string) string
	generated    string
	degradations int
}

// Render draws the record. Missing or broken images and QR codes are replaced by
// placeholders; only a failure of the document itself returns an error.
func (r *Renderer) Render(ctx context.Context, rec *models.AnalysisRecord) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, contentTop, pageMargin)
	pdf.SetAutoPageBreak(false, footerReserve)
	pdf.AliasNbPages("{nb}")
	pdf.SetCreationDate(r.now())

	d := &document{
		ctx:       ctx,
		pdf:       pdf,
		rec:       rec,
		branding:  r.branding,
		images:    r.images,
		encodeQR:  r.encodeQR,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		generated: generatedLabel(rec.GeneratedAt, r.now()),
	}

	pdf.SetTitle(d.tr(r.branding.Title+" - "+rec.Farm.Name), false)
	pdf.SetAuthor(d.tr(r.branding.Author), false)
	pdf.SetCreator("report-service", false)
	pdf.SetHeaderFunc(d.header)
	pdf.SetFooterFunc(d.footer)

	pages := []func(){
		d.coverPage,
		d.environmentPage,
		d.interventionPage,
		d.resourcesPage,
		d.monitoringPage,
		d.digitalAccessPage,
		d.contextPage,
	}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		page()
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", pdf.PageNo(), err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	slog.Info("PDF report rendered",
		"report_id", rec.ReportID,
		"pages", pdf.PageNo(),
		"size", buf.Len(),
		"degradations", d.degradations)

	return buf.Bytes(), nil
}

func generatedLabel(generatedAt string, now time.Time) string {
	if t, err := time.Parse(time.RFC3339, generatedAt); err == nil {
		return t.UTC().Format("2006-01-02 15:04 UTC")
	}
	if generatedAt != "" {
		return generatedAt
	}
	return now.UTC().Format("2006-01-02 15:04 UTC")
}

// ============================================================================
// PAGE FRAME
// ============================================================================

func (d *document) header() {
	if d.pdf.PageNo() <= 1 {
		return
	}
	w, _ := d.pdf.GetPageSize()
	d.fill(colorBrand)
	d.pdf.Rect(0, 0, w, headerHeight, "F")

	d.color(RGB{255, 255, 255})
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.SetXY(pageMargin, 5)
	d.pdf.CellFormat(w-2*pageMargin, 7, d.tr(d.branding.Title), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.SetXY(pageMargin, 12.5)
	d.pdf.CellFormat(w-2*pageMargin, 5, d.tr(d.subtitle()), "", 0, "L", false, 0, "")

	d.color(colorInk)
	d.pdf.SetXY(pageMargin, contentTop)
}

func (d *document) footer() {
	w, h := d.pdf.GetPageSize()
	d.draw(colorRule)
	d.pdf.SetLineWidth(0.2)
	d.pdf.Line(pageMargin, h-14, w-pageMargin, h-14)

	d.pdf.SetFont("Helvetica", "", 8)
	d.color(colorMuted)
	d.pdf.SetXY(pageMargin, h-12)
	d.pdf.CellFormat((w-2*pageMargin)/2, 5, d.tr("Generated "+d.generated), "", 0, "L", false, 0, "")
	d.pdf.CellFormat((w-2*pageMargin)/2, 5, fmt.Sprintf("Page %d of {nb}", d.pdf.PageNo()), "", 0, "R", false, 0, "")
	d.color(colorInk)
}

func (d *document) subtitle() string {
	parts := []string{}
	if d.branding.Subtitle != "" {
		parts = append(parts, d.branding.Subtitle)
	}
	parts = append(parts, d.rec.Farm.Name, d.rec.ReportID)
	return strings.Join(parts, "  |  ")
}

// ============================================================================
// PRIMITIVES
// ============================================================================

// tr prepares text for the core fonts: NFC composition, then cp1252 encoding.
func (d *document) tr(s string) string {
	s = strings.NewReplacer("≥", ">=", "≤", "<=", "→", "->", "\t", " ").Replace(s)
	return d.translate(norm.NFC.String(s))
}

// lines wraps text to width using the current font. Returned lines are encoded.
func (d *document) lines(s string, width float64) []string {
	var out []string
	for _, paragraph := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(paragraph) == "" {
			continue
		}
		for _, l := range d.pdf.SplitLines([]byte(d.tr(paragraph)), width) {
			out = append(out, string(l))
		}
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func (d *document) fill(c RGB)  { d.pdf.SetFillColor(c.R, c.G, c.B) }
func (d *document) draw(c RGB)  { d.pdf.SetDrawColor(c.R, c.G, c.B) }
func (d *document) color(c RGB) { d.pdf.SetTextColor(c.R, c.G, c.B) }

func (d *document) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - 2*pageMargin
}

func (d *document) bottom() float64 {
	_, h := d.pdf.GetPageSize()
	return h - footerReserve
}

// ensureSpace starts a continuation page when h does not fit on the current one.
func (d *document) ensureSpace(h float64) {
	if d.pdf.GetY()+h > d.bottom() {
		d.pdf.AddPage()
		d.pdf.SetXY(pageMargin, contentTop)
	}
}

func (d *document) sectionTitle(title string) {
	d.ensureSpace(14)
	y := d.pdf.GetY()
	d.pdf.SetFont("Helvetica", "B", 12)
	d.color(colorBrand)
	d.pdf.SetXY(pageMargin, y)
	d.pdf.CellFormat(d.contentWidth(), 7, d.tr(title), "", 1, "L", false, 0, "")
	d.draw(colorBrand)
	d.pdf.SetLineWidth(0.4)
	d.pdf.Line(pageMargin, y+7.5, pageMargin+d.contentWidth(), y+7.5)
	d.color(colorInk)
	d.pdf.SetY(y + 10)
}

// paragraph draws wrapped text at the running offset.
func (d *document) paragraph(text string, size float64) {
	d.pdf.SetFont("Helvetica", "", size)
	lh := size * 0.5
	for _, l := range d.lines(text, d.contentWidth()) {
		d.ensureSpace(lh)
		d.pdf.SetX(pageMargin)
		d.pdf.CellFormat(d.contentWidth(), lh, l, "", 1, "L", false, 0, "")
	}
	d.pdf.Ln(2)
}

// placeholder is the empty box drawn in place of a visual that could not be produced.
func (d *document) placeholder(r Rect, label string) {
	d.fill(colorPanel)
	d.draw(colorRule)
	d.pdf.SetLineWidth(0.3)
	d.pdf.Rect(r.X, r.Y, r.W, r.H, "FD")
	d.pdf.SetFont("Helvetica", "I", 9)
	d.color(colorMuted)
	d.pdf.SetXY(r.X, r.Y+r.H/2-3)
	d.pdf.CellFormat(r.W, 6, d.tr(label), "", 0, "C", false, 0, "")
	d.color(colorInk)
}

func (d *document) degrade(element string, err error) {
	d.degradations++
	metrics.PDFDegradationsTotal.WithLabelValues(element).Inc()
	slog.Warn("PDF element replaced by placeholder",
		"report_id", d.rec.ReportID,
		"element", element,
		"error", err)
}

// image embeds PNG bytes into frame, preserving the aspect ratio the loader fitted.
// Any failure leaves a placeholder and a cleared document error.
func (d *document) image(name string, data []byte, frame Rect, label string) {
	info := d.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
	if !d.pdf.Ok() || info == nil {
		err := d.pdf.Error()
		d.pdf.ClearError()
		d.degrade(name, fmt.Errorf("failed to embed image: %w", err))
		d.placeholder(frame, label)
		return
	}
	fit := FitRect(frame, info.Width()/info.Height())
	d.pdf.ImageOptions(name, fit.X, fit.Y, fit.W, fit.H, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}
