package jobs

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Posting is a single job listing discovered during search.
// Read-only once parsed from a result page.
type Posting struct {
	ExternalID string
	Title      string
	Company    string
	ListingURL string
}

// Outcome is the terminal state of one application attempt
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeAborted   Outcome = "aborted"
)

// Attempt reasons for skipped/aborted outcomes
const (
	ReasonNotSupported      = "not_supported"
	ReasonUnresolvableField = "unresolvable_field"
	ReasonStepLimitExceeded = "step_limit_exceeded"
	ReasonModalVanished     = "modal_vanished"
)

// Attempt is the immutable record of one finished modal session
type Attempt struct {
	Posting    Posting
	Outcome    Outcome
	Reason     string
	FinishedAt time.Time
}

// SeenSet tracks posting IDs already attempted in the current run.
// Append-only for the lifetime of a run.
type SeenSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSeenSet creates an empty seen set
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Contains reports whether the posting ID was already attempted
func (s *SeenSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Add marks a posting ID as attempted
func (s *SeenSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// Len returns the number of attempted posting IDs
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Blacklist holds company and title substrings that are never attempted.
// Matching is case-insensitive and partial.
type Blacklist struct {
	companies []string
	titles    []string
}

// NewBlacklist builds a blacklist from company and title substrings
func NewBlacklist(companies, titles []string) Blacklist {
	return Blacklist{
		companies: lowerAll(companies),
		titles:    lowerAll(titles),
	}
}

// Matches reports whether the posting hits any blacklist rule
func (b Blacklist) Matches(p Posting) bool {
	company := strings.ToLower(p.Company)
	for _, needle := range b.companies {
		if needle != "" && strings.Contains(company, needle) {
			return true
		}
	}
	title := strings.ToLower(p.Title)
	for _, needle := range b.titles {
		if needle != "" && strings.Contains(title, needle) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}

// StopSignal is the cooperative stop flag polled at loop boundaries
type StopSignal struct {
	stopped atomic.Bool
}

// NewStopSignal creates an unset stop signal
func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Stop requests a cooperative stop at the next safe boundary
func (s *StopSignal) Stop() {
	s.stopped.Store(true)
}

// Stopped reports whether a stop has been requested
func (s *StopSignal) Stopped() bool {
	return s.stopped.Load()
}
