package imagery

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 160, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

// ============================================================================
// TEST SUITE 1: REFERENCE RESOLUTION
// ============================================================================

func TestLoad_DataURI(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t, 40, 20))

	out, err := NewLoader(time.Second, 1<<20).Load(context.Background(), uri, 2)

	require.NoError(t, err)
	w, h := decodedSize(t, out)
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)
}

func TestLoad_BareBase64Letterboxed(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(testPNG(t, 30, 30))

	out, err := NewLoader(time.Second, 1<<20).Load(context.Background(), raw, 1.5)

	require.NoError(t, err)
	w, h := decodedSize(t, out)
	assert.Equal(t, 45, w)
	assert.Equal(t, 30, h)
}

func TestLoad_HTTP(t *testing.T) {
	body := testPNG(t, 16, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ndvi.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	l := NewLoader(time.Second, 1<<20, WithPrivateNetworks(true))

	_, err := l.Load(context.Background(), srv.URL+"/ndvi.png", 1)
	assert.NoError(t, err)

	_, err = l.Load(context.Background(), srv.URL+"/missing.png", 1)
	assert.ErrorContains(t, err, "404")
}

func TestFetch_SizeLimit(t *testing.T) {
	big := bytes.Repeat([]byte{0xAB}, 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(big)
	}))
	defer srv.Close()

	l := NewLoader(time.Second, 1024, WithPrivateNetworks(true))

	_, err := l.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = l.Fetch(context.Background(), base64.StdEncoding.EncodeToString(big))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestLoad_RejectsBadReferences(t *testing.T) {
	l := NewLoader(time.Second, 1<<20)
	ctx := context.Background()

	_, err := l.Load(ctx, "   ", 1)
	assert.ErrorIs(t, err, ErrEmptyReference)

	_, err = l.Load(ctx, "data:text/plain,hello", 1)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = l.Load(ctx, base64.StdEncoding.EncodeToString([]byte("plain text, not an image")), 1)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = l.Load(ctx, "%%%not-base64%%%", 1)
	assert.Error(t, err)
}

// ============================================================================
// TEST SUITE 2: NETWORK GUARD
// ============================================================================

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := testPNG(t, 8, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_BlocksNonPublicAddresses(t *testing.T) {
	srv := imageServer(t)
	l := NewLoader(time.Second, 1<<20)
	ctx := context.Background()

	_, err := l.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)

	_, err = l.Fetch(ctx, "http://169.254.169.254/latest/meta-data/")
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestFetch_AllowedHosts(t *testing.T) {
	srv := imageServer(t)
	ctx := context.Background()

	denied := NewLoader(time.Second, 1<<20, WithPrivateNetworks(true), WithAllowedHosts("imagery.example.com"))
	_, err := denied.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, ErrHostNotAllowed)

	allowed := NewLoader(time.Second, 1<<20, WithPrivateNetworks(true), WithAllowedHosts(" 127.0.0.1 "))
	_, err = allowed.Fetch(ctx, srv.URL)
	assert.NoError(t, err)
}

func TestFetch_RedirectRechecksHost(t *testing.T) {
	target := imageServer(t)
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, strings.Replace(target.URL, "127.0.0.1", "localhost", 1), http.StatusFound)
	}))
	defer redirect.Close()

	l := NewLoader(time.Second, 1<<20, WithPrivateNetworks(true), WithAllowedHosts("127.0.0.1"))

	_, err := l.Fetch(context.Background(), redirect.URL)
	assert.ErrorIs(t, err, ErrHostNotAllowed)
}

func TestCheckURL_SubdomainsAndScheme(t *testing.T) {
	l := NewLoader(time.Second, 1<<20, WithAllowedHosts("Example.com"))

	for _, raw := range []string{"https://example.com/a.png", "https://tiles.example.com/a.png"} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.NoError(t, l.checkURL(u), raw)
	}
	for _, raw := range []string{"https://badexample.com/a.png", "ftp://example.com/a.png"} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.ErrorIs(t, l.checkURL(u), ErrHostNotAllowed, raw)
	}
}

func TestIsPublicAddress(t *testing.T) {
	cases := map[string]bool{
		"8.8.8.8":          true,
		"2606:4700::1111":  true,
		"10.1.2.3":         false,
		"172.16.0.9":       false,
		"192.168.1.1":      false,
		"127.0.0.1":        false,
		"169.254.169.254":  false,
		"100.64.0.1":       false,
		"0.0.0.0":          false,
		"::1":              false,
		"fe80::1":          false,
		"fd00::1":          false,
		"::ffff:127.0.0.1": false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, isPublicAddress(netip.MustParseAddr(raw)), raw)
	}
}

// ============================================================================
// TEST SUITE 3: FITTING
// ============================================================================

func TestLetterbox_CapsWidth(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3000, 1000))

	out := Letterbox(src, 1.5, 1200)

	assert.Equal(t, 1200, out.Bounds().Dx())
	assert.Equal(t, 800, out.Bounds().Dy())
}

func TestLetterbox_InvalidAspectReturnsSource(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))

	assert.Equal(t, image.Image(src), Letterbox(src, 0, 100))
}
