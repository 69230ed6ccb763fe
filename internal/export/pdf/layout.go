package pdf

import (
	"math"

	"report-service/internal/models"
)

// ============================================================================
// GEOMETRY
// ============================================================================

type Rect struct {
	X, Y, W, H float64
}

// CardRects splits a row of the given width into count equal cards separated by gap.
func CardRects(x, y, width, height, gap float64, count int) []Rect {
	if count <= 0 {
		return nil
	}
	w := (width - gap*float64(count-1)) / float64(count)
	rects := make([]Rect, count)
	for i := range rects {
		rects[i] = Rect{X: x + float64(i)*(w+gap), Y: y, W: w, H: height}
	}
	return rects
}

// ColumnWidths distributes total across columns proportionally to weights.
func ColumnWidths(total float64, weights []float64) []float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	widths := make([]float64, len(weights))
	if sum <= 0 {
		return widths
	}
	for i, w := range weights {
		widths[i] = total * w / sum
	}
	return widths
}

// WrappedBoxHeight is the height of a box holding lines of text plus padding on
// both sides, never less than minHeight.
func WrappedBoxHeight(lines int, lineHeight, padding, minHeight float64) float64 {
	return math.Max(float64(lines)*lineHeight+2*padding, minHeight)
}

// LinesThatFit is how many lines of a padded box fit in the available height.
// At least one line is always placed so a box never stalls.
func LinesThatFit(available, lineHeight, padding float64) int {
	if lineHeight <= 0 {
		return 1
	}
	return max(int((available-2*padding)/lineHeight), 1)
}

// FitRect is the largest rect with the given aspect ratio centred inside frame.
func FitRect(frame Rect, aspect float64) Rect {
	if aspect <= 0 || frame.W <= 0 || frame.H <= 0 {
		return frame
	}
	w, h := frame.W, frame.W/aspect
	if h > frame.H {
		h = frame.H
		w = h * aspect
	}
	return Rect{X: frame.X + (frame.W-w)/2, Y: frame.Y + (frame.H-h)/2, W: w, H: h}
}

// ============================================================================
// COLOURS
// ============================================================================

type RGB struct {
	R, G, B int
}

var (
	colorGreen  = RGB{46, 139, 87}
	colorGold   = RGB{218, 165, 32}
	colorOrange = RGB{230, 126, 34}
	colorRed    = RGB{192, 57, 43}

	colorBrand     = RGB{27, 94, 32}
	colorBrandSoft = RGB{232, 245, 233}
	colorInk       = RGB{33, 33, 33}
	colorMuted     = RGB{117, 117, 117}
	colorRule      = RGB{200, 200, 200}
	colorPanel     = RGB{245, 245, 245}
	colorWarning   = RGB{255, 243, 224}

	priorityTints = map[models.Priority]RGB{
		models.PriorityP1: {255, 205, 210},
		models.PriorityP2: {255, 236, 179},
		models.PriorityP3: {200, 230, 201},
	}
)

// SeverityColor colours the health badge: >=80 green, >=60 gold, >=40 orange, else red.
func SeverityColor(score float64) RGB {
	switch {
	case score >= 80:
		return colorGreen
	case score >= 60:
		return colorGold
	case score >= 40:
		return colorOrange
	default:
		return colorRed
	}
}

func PriorityTint(p models.Priority) RGB {
	if c, ok := priorityTints[p]; ok {
		return c
	}
	return priorityTints[models.PriorityP3]
}

// ============================================================================
// SOIL STATUS
// ============================================================================

type SoilParameter string

const (
	SoilPH            SoilParameter = "pH"
	SoilNitrogen      SoilParameter = "Nitrogen"
	SoilPhosphorus    SoilParameter = "Phosphorus"
	SoilPotassium     SoilParameter = "Potassium"
	SoilMoisture      SoilParameter = "Moisture"
	SoilOrganicMatter SoilParameter = "Organic Matter"
)

func SoilStatus(param SoilParameter, value float64) string {
	switch param {
	case SoilPH:
		if value >= 6 && value <= 7.5 {
			return "Optimal"
		}
		return "Concern"
	case SoilNitrogen:
		if value >= 50 {
			return "Adequate"
		}
		return "Deficient"
	case SoilOrganicMatter:
		if value >= 3 {
			return "Optimal"
		}
		return "Low"
	case SoilMoisture:
		if value >= 20 {
			return "Adequate"
		}
		return "Low"
	case SoilPhosphorus:
		return "Optimal"
	case SoilPotassium:
		return "High"
	}
	return ""
}
