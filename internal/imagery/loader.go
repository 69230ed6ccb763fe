package imagery

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const maxOutputWidth = 1200

var (
	ErrEmptyReference   = errors.New("empty image reference")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
)

// Loader resolves imagery references (http(s) URL, data URI or bare base64) into
// PNG bytes letterboxed to a requested aspect ratio.
type Loader struct {
	client       *http.Client
	maxBytes     int64
	allowedHosts []string
	allowPrivate bool
}

func NewLoader(timeout time.Duration, maxBytes int64, opts ...LoaderOption) *Loader {
	l := &Loader{maxBytes: maxBytes}
	for _, opt := range opts {
		opt(l)
	}
	l.client = l.newGuardedClient(timeout)
	return l
}

// Load fetches, decodes and fits the image. aspect is frame width over height.
func (l *Loader) Load(ctx context.Context, ref string, aspect float64) ([]byte, error) {
	raw, err := l.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	img, mimeType, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	fitted := Letterbox(img, aspect, maxOutputWidth)

	var buf bytes.Buffer
	if err := png.Encode(&buf, fitted); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	slog.Debug("Image prepared for report",
		"source_type", mimeType,
		"source_size", len(raw),
		"width", fitted.Bounds().Dx(),
		"height", fitted.Bounds().Dy())

	return buf.Bytes(), nil
}

// Fetch returns the raw bytes behind a reference without decoding them.
func (l *Loader) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, ErrEmptyReference
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref, l.maxBytes)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.download(ctx, ref)
	default:
		return decodeBase64(ref, l.maxBytes)
	}
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	if err := l.checkURL(req.URL); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Agrisa-ReportService/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, l.maxBytes)
	}
	return data, nil
}

// decodeDataURI accepts data:[<mediatype>][;base64],<data>. Only base64 payloads
// are meaningful for binary images.
func decodeDataURI(uri string, maxBytes int64) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: data URI is not base64 encoded", ErrUnsupportedImage)
	}
	return decodeBase64(payload, maxBytes)
}

func decodeBase64(s string, maxBytes int64) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if int64(base64.StdEncoding.DecodedLen(len(s))) > maxBytes+2 {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return nil, fmt.Errorf("invalid base64 image data: %w", err)
		}
	}
	return data, nil
}

// Decode sniffs the content type and decodes PNG, JPEG, GIF or WebP.
func Decode(data []byte) (image.Image, string, error) {
	mime := mimetype.Detect(data)

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch {
	case mime.Is("image/png"):
		img, err = png.Decode(r)
	case mime.Is("image/jpeg"):
		img, err = jpeg.Decode(r)
	case mime.Is("image/gif"):
		img, err = gif.Decode(r)
	case mime.Is("image/webp"):
		img, err = webp.Decode(r)
	default:
		return nil, mime.String(), fmt.Errorf("%w: %s", ErrUnsupportedImage, mime.String())
	}
	if err != nil {
		return nil, mime.String(), fmt.Errorf("failed to decode %s: %w", mime.String(), err)
	}
	return img, mime.String(), nil
}

// Letterbox centres src on a white canvas of the given aspect ratio, scaling it
// down so the canvas is at most maxWidth pixels wide.
func Letterbox(src image.Image, aspect float64, maxWidth int) image.Image {
	b := src.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())
	if aspect <= 0 || sw == 0 || sh == 0 {
		return src
	}

	cw, ch := sw, sw/aspect
	if ch < sh {
		ch = sh
		cw = sh * aspect
	}
	scale := 1.0
	if cw > float64(maxWidth) {
		scale = float64(maxWidth) / cw
	}

	canvasW := int(math.Round(cw * scale))
	canvasH := int(math.Round(ch * scale))
	dc := gg.NewContext(max(canvasW, 1), max(canvasH, 1))
	dc.SetColor(color.White)
	dc.Clear()

	scaled := image.NewRGBA(image.Rect(0, 0, max(int(math.Round(sw*scale)), 1), max(int(math.Round(sh*scale)), 1)))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Over, nil)
	dc.DrawImageAnchored(scaled, canvasW/2, canvasH/2, 0.5, 0.5)

	return dc.Image()
}
