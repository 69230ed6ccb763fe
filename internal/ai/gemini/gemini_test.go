package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	result map[string]any
	err    error
	calls  int
}

func (f *fakeAnalyzer) AnalyzeImages(context.Context, string, [][]byte) (map[string]any, error) {
	f.calls++
	return f.result, f.err
}

// ============================================================================
// TEST SUITE 1: CLIENT SELECTOR
// ============================================================================

func TestGetNextClient_RoundRobin(t *testing.T) {
	a, b := &fakeAnalyzer{}, &fakeAnalyzer{}
	s := NewGeminiClientSelector([]Analyzer{a, b})

	_, i0 := s.GetNextClient()
	_, i1 := s.GetNextClient()
	c, i2 := s.GetNextClient()

	assert.Equal(t, []int{0, 1, 0}, []int{i0, i1, i2})
	assert.Same(t, a, c)

	empty := NewGeminiClientSelector(nil)
	c, idx := empty.GetNextClient()
	assert.Nil(t, c)
	assert.Equal(t, -1, idx)
}

func TestAnalyzeImagesWithRetry_FailsOver(t *testing.T) {
	broken := &fakeAnalyzer{err: errors.New("quota exceeded")}
	working := &fakeAnalyzer{result: map[string]any{"healthScore": 71.0}}
	s := NewGeminiClientSelector([]Analyzer{broken, working})

	got, err := AnalyzeImagesWithRetry(context.Background(), "prompt", [][]byte{{1}}, s)

	require.NoError(t, err)
	assert.Equal(t, 71.0, got["healthScore"])
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, working.calls)
}

func TestAnalyzeImagesWithRetry_AllFail(t *testing.T) {
	s := NewGeminiClientSelector([]Analyzer{
		&fakeAnalyzer{err: errors.New("first")},
		&fakeAnalyzer{err: errors.New("second")},
	})

	_, err := AnalyzeImagesWithRetry(context.Background(), "prompt", nil, s)

	assert.ErrorContains(t, err, "all 2 Gemini clients failed")
	assert.ErrorContains(t, err, "first")
	assert.ErrorContains(t, err, "second")

	_, err = AnalyzeImagesWithRetry(context.Background(), "prompt", nil, NewGeminiClientSelector(nil))
	assert.ErrorIs(t, err, ErrNoClients)
}

func TestTryAllClients_WrapsEveryFailure(t *testing.T) {
	quota := errors.New("quota exceeded")
	s := NewGeminiClientSelector([]Analyzer{&fakeAnalyzer{}, &fakeAnalyzer{}})

	err := s.TryAllClients(context.Background(), func(Analyzer, int) error { return quota })

	assert.ErrorIs(t, err, quota)
	assert.ErrorContains(t, err, "client[0]")
	assert.ErrorContains(t, err, "client[1]")
}

func TestGetNextClient_FailedClientCoolsDown(t *testing.T) {
	now := time.Date(2024, 11, 18, 9, 30, 0, 0, time.UTC)
	broken := &fakeAnalyzer{err: errors.New("quota exceeded")}
	working := &fakeAnalyzer{result: map[string]any{}}
	s := NewGeminiClientSelector([]Analyzer{broken, working},
		WithCooldown(time.Minute),
		withSelectorClock(func() time.Time { return now }))

	_, err := AnalyzeImagesWithRetry(context.Background(), "prompt", nil, s)
	require.NoError(t, err)

	_, first := s.GetNextClient()
	_, second := s.GetNextClient()
	assert.Equal(t, []int{1, 1}, []int{first, second})

	now = now.Add(2 * time.Minute)
	_, idx := s.GetNextClient()
	assert.Equal(t, 0, idx)
}

func TestTryAllClients_AllCoolingStillAttempted(t *testing.T) {
	now := time.Date(2024, 11, 18, 9, 30, 0, 0, time.UTC)
	s := NewGeminiClientSelector([]Analyzer{&fakeAnalyzer{}, &fakeAnalyzer{}},
		withSelectorClock(func() time.Time { return now }))
	_ = s.TryAllClients(context.Background(), func(Analyzer, int) error { return errors.New("down") })

	var tried []int
	err := s.TryAllClients(context.Background(), func(_ Analyzer, idx int) error {
		tried = append(tried, idx)
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, tried, 1)
}

func TestTryAllClients_StopsOnCancelledContext(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("unused")}
	s := NewGeminiClientSelector([]Analyzer{a})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AnalyzeImagesWithRetry(ctx, "prompt", nil, s)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.calls)
}

// ============================================================================
// TEST SUITE 2: RESPONSE PARSING AND PROMPTS
// ============================================================================

func TestParseResponse(t *testing.T) {
	got, err := ParseResponse("```json\n{\"farmName\": \"North Block\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "North Block", got["farmName"])

	got, err = ParseResponse("  {\"healthScore\": 40}  ")
	require.NoError(t, err)
	assert.Equal(t, 40.0, got["healthScore"])

	_, err = ParseResponse("the crop looks fine")
	assert.Error(t, err)

	_, err = ParseResponse("null")
	assert.Error(t, err)
}

func TestBuildFarmHealthPrompt(t *testing.T) {
	p := BuildFarmHealthPrompt(map[string]string{"farmName": "North Block", "cropType": "Mustard", "unknown": "x"})

	assert.Contains(t, p, "- farmName: North Block\n- cropType: Mustard")
	assert.NotContains(t, p, "unknown: x")
	assert.True(t, strings.HasPrefix(p, "You are an agronomy analysis engine"))

	assert.Contains(t, BuildFarmHealthPrompt(nil), "No additional context provided.")
}
