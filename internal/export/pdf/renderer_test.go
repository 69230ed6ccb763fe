package pdf

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"report-service/internal/models"
	"report-service/internal/normalizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

type stubLoader struct {
	data  []byte
	err   error
	calls int
}

func (s *stubLoader) Load(_ context.Context, _ string, _ float64) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: uint8(x % 255), B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sampleRecord() *models.AnalysisRecord {
	rec := normalizer.SampleRecord("FARM-PB610-MU-20241118", "2024-11-18T09:30:00Z")
	rec.Imagery.NDVIMap = "https://imagery.example.org/ndvi.png"
	rec.Imagery.DeficiencyOverlay = "https://imagery.example.org/overlay.png"
	return rec
}

func newTestRenderer(opts ...Option) *Renderer {
	opts = append([]Option{WithClock(func() time.Time {
		return time.Date(2024, 11, 18, 9, 30, 0, 0, time.UTC)
	})}, opts...)
	return NewRenderer(Branding{Title: "Crop Health Situation Report", Subtitle: "Test build"}, opts...)
}

func renderAndInspect(t *testing.T, r *Renderer, rec *models.AnalysisRecord) Inspection {
	t.Helper()
	data, err := r.Render(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	info, err := Inspect(data)
	require.NoError(t, err)
	return info
}

// ============================================================================
// TEST SUITE 1: LAYOUT MATH
// ============================================================================

func TestCardRects_EqualWidthWithGaps(t *testing.T) {
	rects := CardRects(15, 100, 180, 20, 4, 4)

	require.Len(t, rects, 4)
	assert.InDelta(t, 42.0, rects[0].W, 1e-9)
	assert.InDelta(t, 15.0, rects[0].X, 1e-9)
	assert.InDelta(t, 15.0+3*(42+4), rects[3].X, 1e-9)
	assert.InDelta(t, 195.0, rects[3].X+rects[3].W, 1e-9)
	assert.Nil(t, CardRects(0, 0, 100, 10, 2, 0))
}

func TestColumnWidths_SumsToTotal(t *testing.T) {
	widths := ColumnWidths(180, []float64{13, 30, 24, 26, 27, 20, 14, 26})

	sum := 0.0
	for _, w := range widths {
		sum += w
	}
	assert.InDelta(t, 180.0, sum, 1e-9)
	assert.InDelta(t, 30.0, widths[1], 1e-9)
	assert.Equal(t, []float64{0, 0}, ColumnWidths(100, []float64{0, 0}))
}

func TestWrappedBoxHeight(t *testing.T) {
	assert.Equal(t, 33.0, WrappedBoxHeight(5, 5, 4, 16))
	assert.Equal(t, 16.0, WrappedBoxHeight(1, 5, 4, 16))
}

func TestLinesThatFit(t *testing.T) {
	assert.Equal(t, 10, LinesThatFit(58, 5, 4))
	assert.Equal(t, 9, LinesThatFit(57.9, 5, 4))
	assert.Equal(t, 1, LinesThatFit(3, 5, 4))
	assert.Equal(t, 1, LinesThatFit(50, 0, 4))

	n := LinesThatFit(100, 4.75, 4)
	assert.LessOrEqual(t, WrappedBoxHeight(n, 4.75, 4, 0), 100.0)
	assert.Greater(t, WrappedBoxHeight(n+1, 4.75, 4, 0), 100.0)
}

func TestFitRect_Letterbox(t *testing.T) {
	fit := FitRect(Rect{X: 0, Y: 0, W: 100, H: 50}, 1)

	assert.Equal(t, Rect{X: 25, Y: 0, W: 50, H: 50}, fit)
}

func TestSeverityColor_Thresholds(t *testing.T) {
	assert.Equal(t, colorGreen, SeverityColor(80))
	assert.Equal(t, colorGold, SeverityColor(79.9))
	assert.Equal(t, colorGold, SeverityColor(60))
	assert.Equal(t, colorOrange, SeverityColor(40))
	assert.Equal(t, colorRed, SeverityColor(39))
}

func TestPriorityTint_Distinct(t *testing.T) {
	p1 := PriorityTint(models.PriorityP1)
	p2 := PriorityTint(models.PriorityP2)
	p3 := PriorityTint(models.PriorityP3)

	assert.NotEqual(t, p1, p2)
	assert.NotEqual(t, p2, p3)
	assert.Equal(t, p3, PriorityTint("P9"))
}

func TestSoilStatus(t *testing.T) {
	cases := []struct {
		param SoilParameter
		value float64
		want  string
	}{
		{SoilPH, 6, "Optimal"},
		{SoilPH, 7.5, "Optimal"},
		{SoilPH, 7.8, "Concern"},
		{SoilPH, 5.9, "Concern"},
		{SoilNitrogen, 50, "Adequate"},
		{SoilNitrogen, 42, "Deficient"},
		{SoilOrganicMatter, 3, "Optimal"},
		{SoilOrganicMatter, 2.4, "Low"},
		{SoilPhosphorus, 1, "Optimal"},
		{SoilPotassium, 1, "High"},
		{SoilMoisture, 20, "Adequate"},
		{SoilMoisture, 18, "Low"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SoilStatus(c.param, c.value), "%s=%v", c.param, c.value)
	}
}

// ============================================================================
// TEST SUITE 2: RENDERING
// ============================================================================

func TestRender_SevenPages(t *testing.T) {
	loader := &stubLoader{data: solidPNG(t, 64, 48)}

	info := renderAndInspect(t, newTestRenderer(WithImageLoader(loader)), sampleRecord())

	assert.Equal(t, 7, info.Pages)
	assert.Equal(t, 2, loader.calls)
}

func TestRender_LongRegionalProfileContinues(t *testing.T) {
	loader := &stubLoader{data: solidPNG(t, 64, 48)}
	rec := sampleRecord()
	rec.RegionalProfile = strings.Repeat("Canal-irrigated mustard blocks dominate the district and sowing follows the monsoon withdrawal. ", 200)

	info := renderAndInspect(t, newTestRenderer(WithImageLoader(loader)), rec)

	assert.Greater(t, info.Pages, 8)
}

func TestRender_ImageFailuresDegrade(t *testing.T) {
	loader := &stubLoader{err: errors.New("connection refused")}

	info := renderAndInspect(t, newTestRenderer(WithImageLoader(loader)), sampleRecord())

	assert.Equal(t, 7, info.Pages)
}

func TestRender_CorruptImageBytesDegrade(t *testing.T) {
	loader := &stubLoader{data: []byte("definitely not a png")}

	info := renderAndInspect(t, newTestRenderer(WithImageLoader(loader)), sampleRecord())

	assert.Equal(t, 7, info.Pages)
}

func TestRender_QRFailureDegrades(t *testing.T) {
	failing := func(string, int) ([]byte, error) { return nil, errors.New("content too long") }

	info := renderAndInspect(t, newTestRenderer(WithQREncoder(failing)), sampleRecord())

	assert.Equal(t, 7, info.Pages)
}

func TestRender_NoShareLinkNoImages(t *testing.T) {
	rec := sampleRecord()
	rec.Provenance.ReportURL = ""
	rec.Imagery = models.Imagery{}

	info := renderAndInspect(t, newTestRenderer(), rec)

	assert.Equal(t, 7, info.Pages)
}

func TestRender_NormalizedEmptyPayload(t *testing.T) {
	rec := normalizer.NewNormalizer().Normalize(map[string]any{})

	info := renderAndInspect(t, newTestRenderer(), rec)

	assert.Equal(t, 7, info.Pages)
}

func TestRender_NonLatinTextDoesNotFail(t *testing.T) {
	rec := sampleRecord()
	rec.Farm.Name = "Ferme Café Ñandú – ਪੰਜਾਬ"
	rec.Health.ExecutiveSummary = "Soil pH ≥ 7.5 → lime not required. Café plot."

	_, err := newTestRenderer().Render(context.Background(), rec)

	assert.NoError(t, err)
}

func TestRender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRenderer().Render(ctx, sampleRecord())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestInspect_RejectsGarbage(t *testing.T) {
	_, err := Inspect([]byte("not a pdf"))

	assert.Error(t, err)
}
