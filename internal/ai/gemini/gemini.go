package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Analyzer turns a prompt plus field images into a raw analysis map.
type Analyzer interface {
	AnalyzeImages(ctx context.Context, prompt string, images [][]byte) (map[string]any, error)
}

type GeminiClient struct {
	Client     *genai.Client
	FlashModel *genai.GenerativeModel
	ProModel   *genai.GenerativeModel
}

func NewGenAIClient(apiKey, flashModelName, proModelName string) (*GeminiClient, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client init failed: %w", err)
	}

	pro := client.GenerativeModel(proModelName)
	pro.ResponseMIMEType = "application/json"

	return &GeminiClient{
		Client:     client,
		FlashModel: client.GenerativeModel(flashModelName),
		ProModel:   pro,
	}, nil
}

// NewClientsFromKeys builds one client per comma separated API key. Keys that fail to
// initialise are skipped; an error is returned only when none succeed.
func NewClientsFromKeys(keys, flashModelName, proModelName string) ([]Analyzer, error) {
	var clients []Analyzer
	for i, key := range strings.Split(keys, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		c, err := NewGenAIClient(key, flashModelName, proModelName)
		if err != nil {
			slog.Warn("Skipping Gemini API key", "key_index", i, "error", err)
			continue
		}
		clients = append(clients, c)
	}
	if len(clients) == 0 {
		return nil, errors.New("no usable Gemini API keys configured")
	}
	return clients, nil
}

func (g *GeminiClient) Close() error {
	return g.Client.Close()
}

// AnalyzeImages sends the prompt with every non-empty image to the pro model.
func (g *GeminiClient) AnalyzeImages(ctx context.Context, prompt string, images [][]byte) (map[string]any, error) {
	parts := []genai.Part{genai.Text(prompt)}

	for i, img := range images {
		if len(img) == 0 {
			slog.Warn("Empty image data at index, skipping", "index", i)
			continue
		}
		parts = append(parts, genai.Blob{
			MIMEType: mimetype.Detect(img).String(),
			Data:     img,
		})
	}

	slog.Info("Sending AI request with images",
		"prompt_length", len(prompt),
		"image_count", len(parts)-1)

	resp, err := g.ProModel.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with images: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no content returned from AI")
	}

	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("response part is not text, received %T", resp.Candidates[0].Content.Parts[0])
	}

	return ParseResponse(string(textPart))
}

// ParseResponse strips an optional markdown code fence and decodes the JSON object.
func ParseResponse(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}

	var resultMap map[string]any
	if err := json.Unmarshal([]byte(text), &resultMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal AI response to JSON: %w. \nRaw response was: %s", err, text)
	}
	if resultMap == nil {
		return nil, errors.New("AI response is not a JSON object")
	}
	return resultMap, nil
}

// AnalyzeImagesWithRetry attempts the request with automatic failover across every client.
func AnalyzeImagesWithRetry(ctx context.Context, prompt string, images [][]byte, selector *GeminiClientSelector) (map[string]any, error) {
	var result map[string]any

	err := selector.TryAllClients(ctx, func(client Analyzer, clientIdx int) error {
		resp, err := client.AnalyzeImages(ctx, prompt, images)
		if err != nil {
			return err
		}
		result = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
