package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultClientCooldown = time.Minute

var ErrNoClients = errors.New("no Gemini clients available")

type clientSlot struct {
	analyzer  Analyzer
	failures  int
	coolUntil time.Time
}

// GeminiClientSelector rotates analysis requests across API keys. A key that just
// failed, usually on quota, is tried last until its cooldown passes.
type GeminiClientSelector struct {
	mu       sync.Mutex
	slots    []clientSlot
	next     int
	cooldown time.Duration
	now      func() time.Time
}

type SelectorOption func(*GeminiClientSelector)

// WithCooldown sets how long a failed client is moved to the back of the rotation.
func WithCooldown(d time.Duration) SelectorOption {
	return func(s *GeminiClientSelector) {
		if d >= 0 {
			s.cooldown = d
		}
	}
}

func withSelectorClock(now func() time.Time) SelectorOption {
	return func(s *GeminiClientSelector) {
		s.now = now
	}
}

func NewGeminiClientSelector(clients []Analyzer, opts ...SelectorOption) *GeminiClientSelector {
	s := &GeminiClientSelector{
		slots:    make([]clientSlot, len(clients)),
		cooldown: defaultClientCooldown,
		now:      time.Now,
	}
	for i, c := range clients {
		s.slots[i].analyzer = c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetNextClient returns the client the next request should start with.
func (s *GeminiClientSelector) GetNextClient() (Analyzer, int) {
	order := s.rotation()
	if len(order) == 0 {
		return nil, -1
	}
	return s.slots[order[0]].analyzer, order[0]
}

func (s *GeminiClientSelector) GetClientCount() int {
	return len(s.slots)
}

// rotation lists every client index once, starting at the cursor, with cooling
// clients after the available ones. The cursor moves past the first entry.
func (s *GeminiClientSelector) rotation() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.slots)
	if n == 0 {
		return nil
	}
	now := s.now()
	ready := make([]int, 0, n)
	cooling := make([]int, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.next + i) % n
		if now.Before(s.slots[idx].coolUntil) {
			cooling = append(cooling, idx)
		} else {
			ready = append(ready, idx)
		}
	}
	order := append(ready, cooling...)
	s.next = (order[0] + 1) % n
	return order
}

func (s *GeminiClientSelector) record(idx int, err error) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := &s.slots[idx]
	if err == nil {
		slot.failures = 0
		slot.coolUntil = time.Time{}
		return 0
	}
	slot.failures++
	slot.coolUntil = s.now().Add(s.cooldown)
	return slot.failures
}

// TryAllClients runs operation against each client at most once until one
// succeeds. The returned error wraps every client's failure.
func (s *GeminiClientSelector) TryAllClients(ctx context.Context, operation func(Analyzer, int) error) error {
	order := s.rotation()
	if len(order) == 0 {
		return ErrNoClients
	}

	var errs []error
	for attempt, idx := range order {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(s.slots[idx].analyzer, idx)
		failures := s.record(idx, err)
		if err == nil {
			slog.Info("Gemini request succeeded",
				"client_index", idx,
				"attempt", attempt+1)
			return nil
		}

		errs = append(errs, fmt.Errorf("client[%d]: %w", idx, err))
		slog.Warn("Gemini request failed, rotating",
			"client_index", idx,
			"attempt", attempt+1,
			"consecutive_failures", failures,
			"cooldown", s.cooldown,
			"error", err)
	}

	slog.Error("All Gemini clients exhausted", "total_attempts", len(order))
	return fmt.Errorf("all %d Gemini clients failed: %w", len(order), errors.Join(errs...))
}
