package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"report-service/internal/ai/gemini"
	"report-service/internal/models"
	"report-service/internal/normalizer"

	"github.com/gabriel-vasile/mimetype"
)

const maxAnalysisImages = 4

var (
	ErrAIUnavailable = errors.New("AI analysis is not configured")
	ErrNoImages      = errors.New("at least one image is required")
	ErrNotAnImage    = errors.New("uploaded file is not an image")
)

// AnalysisService asks Gemini for a raw analysis and feeds it through the normalizer.
type AnalysisService struct {
	selector   *gemini.GeminiClientSelector
	normalizer *normalizer.Normalizer
	modelName  string
}

// NewAnalysisService accepts a nil selector; Analyze then reports ErrAIUnavailable.
func NewAnalysisService(selector *gemini.GeminiClientSelector, n *normalizer.Normalizer, modelName string) *AnalysisService {
	return &AnalysisService{selector: selector, normalizer: n, modelName: modelName}
}

func (s *AnalysisService) Available() bool {
	return s.selector != nil && s.selector.GetClientCount() > 0
}

func (s *AnalysisService) Analyze(ctx context.Context, images [][]byte, farm map[string]string) (*models.AnalysisRecord, error) {
	if !s.Available() {
		return nil, ErrAIUnavailable
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if len(images) > maxAnalysisImages {
		return nil, fmt.Errorf("at most %d images are accepted, got %d", maxAnalysisImages, len(images))
	}
	for i, img := range images {
		if mt := mimetype.Detect(img); !mt.Is("image/png") && !mt.Is("image/jpeg") && !mt.Is("image/webp") {
			return nil, fmt.Errorf("%w: image %d is %s", ErrNotAnImage, i, mt.String())
		}
	}

	start := time.Now()
	raw, err := gemini.AnalyzeImagesWithRetry(ctx, gemini.BuildFarmHealthPrompt(farm), images, s.selector)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze images: %w", err)
	}

	// Farm facts the caller supplied take precedence over what the model inferred.
	for k, v := range farm {
		if v == "" {
			continue
		}
		if path, ok := farmFactPaths[k]; ok {
			setPath(raw, path, v)
		} else {
			raw[k] = v
		}
	}
	if _, ok := raw["model_version"]; !ok && s.modelName != "" {
		raw["model_version"] = s.modelName
	}

	rec := s.normalizer.Normalize(raw)
	slog.Info("AI analysis completed",
		"report_id", rec.ReportID,
		"image_count", len(images),
		"health_score", rec.Health.Score,
		"duration_ms", time.Since(start).Milliseconds())
	return rec, nil
}

// farmFactPaths maps prompt farm keys to their canonical record paths, which
// outrank every legacy alias during normalization.
var farmFactPaths = map[string]string{
	"farmName":     "farm.name",
	"cropType":     "farm.cropType",
	"location":     "farm.location.name",
	"areaHectares": "farm.areaHectares",
	"scanDate":     "farm.scanDate",
}

// setPath writes v at a dotted path, keeping sibling keys of existing objects and
// replacing anything in the way that is not an object.
func setPath(obj map[string]any, path string, v any) {
	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		next, ok := obj[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			obj[key] = next
		}
		obj = next
	}
	obj[keys[len(keys)-1]] = v
}
