package fitting

import "github.com/jonathan/resume-fitter/internal/sections"

// Monitor tracks convergence of one run: the edit attempt cap, the sections marked
// exhausted and the page counts observed.
type Monitor struct {
	maxAttempts int
	attempts    int
	exhausted   map[sections.Kind]bool
	order       []sections.Kind
	pages       []int
}

// NewMonitor caps edit attempts at sectionCount * maxCycles.
func NewMonitor(sectionCount, maxCycles int) *Monitor {
	return &Monitor{
		maxAttempts: sectionCount * maxCycles,
		exhausted:   make(map[sections.Kind]bool),
	}
}

// Attempt consumes one edit attempt. It returns false once the cap is reached.
func (m *Monitor) Attempt() bool {
	if m.attempts >= m.maxAttempts {
		return false
	}
	m.attempts++
	return true
}

// Attempts returns the attempts consumed so far.
func (m *Monitor) Attempts() int { return m.attempts }

// MaxAttempts returns the attempt cap.
func (m *Monitor) MaxAttempts() int { return m.maxAttempts }

// CapReached reports whether no attempt is left.
func (m *Monitor) CapReached() bool { return m.attempts >= m.maxAttempts }

// Exhaust marks kind as unproductive for the rest of the run.
func (m *Monitor) Exhaust(kind sections.Kind) {
	if m.exhausted[kind] {
		return
	}
	m.exhausted[kind] = true
	m.order = append(m.order, kind)
}

// IsExhausted reports whether kind was marked exhausted.
func (m *Monitor) IsExhausted(kind sections.Kind) bool { return m.exhausted[kind] }

// Exhausted returns the exhausted sections in the order they were marked.
func (m *Monitor) Exhausted() []sections.Kind {
	return append([]sections.Kind{}, m.order...)
}

// Eligible filters candidates to those not exhausted, keeping their order.
func (m *Monitor) Eligible(candidates []sections.Kind) []sections.Kind {
	var out []sections.Kind
	for _, k := range candidates {
		if !m.exhausted[k] {
			out = append(out, k)
		}
	}
	return out
}

// Observe records a page measurement.
func (m *Monitor) Observe(pages int) {
	m.pages = append(m.pages, pages)
}

// Pages returns every measurement in order.
func (m *Monitor) Pages() []int {
	return append([]int(nil), m.pages...)
}

// Select picks among the eligible candidates the one with the lowest score, or the
// highest when preferHigh is set. Ties go to the earlier candidate.
func (m *Monitor) Select(candidates []sections.Kind, score func(sections.Kind) int, preferHigh bool) (sections.Kind, int, bool) {
	var best sections.Kind
	bestScore, found := 0, false
	for _, k := range m.Eligible(candidates) {
		s := score(k)
		if !found || (!preferHigh && s < bestScore) || (preferHigh && s > bestScore) {
			best, bestScore, found = k, s, true
		}
	}
	return best, bestScore, found
}
