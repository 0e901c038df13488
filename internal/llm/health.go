package llm

import (
	"sort"
	"sync"
	"time"
)

// RouteStatus is the last known state of one provider.
type RouteStatus struct {
	Provider    string
	Model       string
	Healthy     bool
	LastCheck   time.Time
	LastSuccess time.Time
	LastError   error
	Failures    int
	Message     string
}

// Health tracks provider outcomes across calls.
type Health struct {
	mu     sync.RWMutex
	routes map[string]*RouteStatus
}

// NewHealth creates an empty health tracker.
func NewHealth() *Health {
	return &Health{
		routes: make(map[string]*RouteStatus),
	}
}

func (h *Health) entry(provider string) *RouteStatus {
	st, ok := h.routes[provider]
	if !ok {
		st = &RouteStatus{Provider: provider}
		h.routes[provider] = st
	}
	return st
}

// Succeeded records a successful call to provider using model.
func (h *Health) Succeeded(provider, model, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	st := h.entry(provider)
	st.Model = model
	st.Healthy = true
	st.LastCheck = now
	st.LastSuccess = now
	st.LastError = nil
	st.Failures = 0
	st.Message = message
}

// Failed records a failed call to provider using model.
func (h *Health) Failed(provider, model string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.entry(provider)
	st.Model = model
	st.Healthy = false
	st.LastCheck = time.Now()
	st.LastError = err
	st.Failures++
	if err != nil {
		st.Message = err.Error()
	}
}

// Status returns a copy of the status for provider, or nil if unseen.
func (h *Health) Status(provider string) *RouteStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st, ok := h.routes[provider]
	if !ok {
		return nil
	}
	cp := *st
	return &cp
}

// All returns copies of every status, ordered by provider name.
func (h *Health) All() []RouteStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]RouteStatus, 0, len(h.routes))
	for _, st := range h.routes {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Healthy reports whether every seen provider is healthy.
func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, st := range h.routes {
		if !st.Healthy {
			return false
		}
	}
	return true
}
