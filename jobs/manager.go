package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"

	"linkedin-easyapply/auth"
	"linkedin-easyapply/events"
	"linkedin-easyapply/pacing"
)

// Applier runs the application modal for one admitted posting.
// A non-nil error is fatal and stops the whole run; expected per-posting
// failures come back as Attempt outcomes instead.
type Applier interface {
	Apply(ctx context.Context, posting Posting) (Attempt, error)
}

// Recorder persists finished attempts for reporting
type Recorder interface {
	RecordAttempt(attempt Attempt) error
}

// Pacer inserts the human-like delay between attempts
type Pacer interface {
	Wait(ctx context.Context) error
}

// RunSummary aggregates per-outcome counts for one run
type RunSummary struct {
	Submitted int
	Skipped   int
	Aborted   int
	Seen      int
	Started   time.Time
	Finished  time.Time
}

// Manager drives the search loop: what to search and in what order to
// attempt postings
type Manager struct {
	page      *rod.Page
	logger    *logrus.Logger
	applier   Applier
	pacer     Pacer
	recorder  Recorder
	hub       *events.Hub
	seen      *SeenSet
	blacklist Blacklist
	criteria  Criteria
	stop      *StopSignal

	baseURL   string
	pageCap   int
	pageDelay time.Duration

	// loader fetches one result page; defaults to the live browser path
	loader func(query SearchQuery, page int) ([]Posting, error)
}

// ManagerOptions wires a Manager's collaborators and search settings
type ManagerOptions struct {
	Page      *rod.Page
	Logger    *logrus.Logger
	Applier   Applier
	Pacer     Pacer
	Recorder  Recorder
	Hub       *events.Hub
	Seen      *SeenSet
	Blacklist Blacklist
	Criteria  Criteria
	Stop      *StopSignal
	BaseURL   string
	PageCap   int
	PageDelay time.Duration
}

// NewManager creates a job search manager
func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		page:      opts.Page,
		logger:    opts.Logger,
		applier:   opts.Applier,
		pacer:     opts.Pacer,
		recorder:  opts.Recorder,
		hub:       opts.Hub,
		seen:      opts.Seen,
		blacklist: opts.Blacklist,
		criteria:  opts.Criteria,
		stop:      opts.Stop,
		baseURL:   opts.BaseURL,
		pageCap:   opts.PageCap,
		pageDelay: opts.PageDelay,
	}
	m.loader = m.loadResultPage
	return m
}

// Run executes the search loop until all queries are exhausted, the stop
// signal is observed, the pacer run limit is reached, or a fatal error occurs.
func (m *Manager) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{Started: time.Now()}

	queries := ExpandCriteria(m.criteria)
	m.logger.WithField("queries", len(queries)).Info("Starting job search loop")

	defer func() {
		summary.Finished = time.Now()
		summary.Seen = m.seen.Len()
		m.hub.Publish(events.Event{
			Type: events.TypeRunFinished,
			Totals: events.Totals{
				Submitted: summary.Submitted,
				Skipped:   summary.Skipped,
				Aborted:   summary.Aborted,
				Seen:      summary.Seen,
			},
			Time: time.Now(),
		})
		m.logger.WithFields(logrus.Fields{
			"submitted": summary.Submitted,
			"skipped":   summary.Skipped,
			"aborted":   summary.Aborted,
			"seen":      summary.Seen,
		}).Info("Job search loop finished")
	}()

	for _, query := range queries {
		if m.shouldStop(ctx) {
			return summary, nil
		}

		m.logger.WithFields(logrus.Fields{
			"keyword":  query.Keyword,
			"location": query.Location,
		}).Info("Running search query")

		done, err := m.runQuery(ctx, query, summary)
		if err != nil {
			return summary, err
		}
		if done {
			return summary, nil
		}
	}

	return summary, nil
}

// runQuery paginates one search query. The bool result is true when the run
// should end early (stop signal or run limit).
func (m *Manager) runQuery(ctx context.Context, query SearchQuery, summary *RunSummary) (bool, error) {
	for page := 0; page < m.pageCap; page++ {
		if m.shouldStop(ctx) {
			return true, nil
		}

		postings, err := m.loader(query, page)
		if err != nil {
			if auth.IsBrowserDead(err) {
				return false, fmt.Errorf("%w: %v", auth.ErrBrowserClosed, err)
			}
			// A bad listing page skips that page, not the run
			m.logger.WithError(err).WithField("page", page).Warn("Failed to parse listing page, skipping")
			continue
		}
		if len(postings) == 0 {
			m.logger.WithField("page", page).Debug("No more results for query")
			return false, nil
		}

		for _, posting := range postings {
			if m.shouldStop(ctx) {
				return true, nil
			}

			if !m.admit(posting) {
				continue
			}
			m.seen.Add(posting.ExternalID)

			attempt, err := m.attemptPosting(ctx, posting, summary)
			if err != nil {
				return false, err
			}

			if err := m.pacer.Wait(ctx); err != nil {
				if errors.Is(err, pacing.ErrRunLimit) {
					m.logger.Info("Run application limit reached, stopping")
					return true, nil
				}
				if errors.Is(err, context.Canceled) {
					return true, nil
				}
				return false, fmt.Errorf("pacing wait failed after %s: %w", attempt.Posting.ExternalID, err)
			}
		}

		if m.pageDelay > 0 {
			select {
			case <-time.After(m.pageDelay):
			case <-ctx.Done():
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *Manager) attemptPosting(ctx context.Context, posting Posting, summary *RunSummary) (Attempt, error) {
	m.hub.Publish(events.Event{
		Type:    events.TypePostingStarted,
		Posting: events.PostingInfo{ID: posting.ExternalID, Title: posting.Title, Company: posting.Company},
		Time:    time.Now(),
	})

	attempt, err := m.applier.Apply(ctx, posting)
	if err != nil {
		return attempt, fmt.Errorf("fatal failure applying to %s: %w", posting.ExternalID, err)
	}

	switch attempt.Outcome {
	case OutcomeSubmitted:
		summary.Submitted++
	case OutcomeSkipped:
		summary.Skipped++
	case OutcomeAborted:
		summary.Aborted++
	}

	m.logger.WithFields(logrus.Fields{
		"posting": posting.ExternalID,
		"company": posting.Company,
		"outcome": string(attempt.Outcome),
		"reason":  attempt.Reason,
	}).Info("Application attempt finished")

	m.hub.Publish(events.Event{
		Type:    events.TypePostingFinished,
		Posting: events.PostingInfo{ID: posting.ExternalID, Title: posting.Title, Company: posting.Company},
		Outcome: string(attempt.Outcome),
		Reason:  attempt.Reason,
		Time:    time.Now(),
	})

	if m.recorder != nil {
		if err := m.recorder.RecordAttempt(attempt); err != nil {
			m.logger.WithError(err).Warn("Failed to record attempt")
		}
	}

	return attempt, nil
}

// admit decides whether a posting is attempted. Postings already seen this
// run or matching a blacklist rule are rejected before any browser work.
func (m *Manager) admit(posting Posting) bool {
	if posting.ExternalID == "" {
		return false
	}
	if m.seen.Contains(posting.ExternalID) {
		m.logger.WithField("posting", posting.ExternalID).Debug("Posting already attempted this run")
		return false
	}
	if m.blacklist.Matches(posting) {
		m.logger.WithFields(logrus.Fields{
			"posting": posting.ExternalID,
			"company": posting.Company,
			"title":   posting.Title,
		}).Info("Posting rejected by blacklist")
		return false
	}
	return true
}

func (m *Manager) shouldStop(ctx context.Context) bool {
	if m.stop.Stopped() {
		m.logger.Info("Stop signal observed")
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// loadResultPage navigates to one result page and extracts its job cards
func (m *Manager) loadResultPage(query SearchQuery, page int) ([]Posting, error) {
	pageURL := query.PageURL(m.baseURL, page)
	m.logger.WithField("url", pageURL).Debug("Navigating to result page")

	if err := m.page.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to result page: %w", err)
	}
	if err := m.page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for page load: %w", err)
	}

	if err := m.waitForResults(); err != nil {
		return nil, err
	}

	return m.extractPostings()
}

func (m *Manager) waitForResults() error {
	selectors := []string{
		".jobs-search-results-list",
		".scaffold-layout__list",
		"ul.jobs-search__results-list",
	}

	for attempt := 0; attempt < 2; attempt++ {
		for _, sel := range selectors {
			element, err := m.page.Element(sel)
			if err == nil && element != nil {
				return nil
			}
		}
		time.Sleep(2 * time.Second)
	}

	// An empty-state banner means the query legitimately has no results
	if banner, err := m.page.Element(".jobs-search-no-results-banner"); err == nil && banner != nil {
		return nil
	}

	return fmt.Errorf("job results container not found")
}

func (m *Manager) extractPostings() ([]Posting, error) {
	cardSelectors := []string{
		"div.job-card-container",
		"li.jobs-search-results__list-item",
		".job-card-list",
	}

	var cards []*rod.Element
	for _, selector := range cardSelectors {
		elements, err := m.page.Elements(selector)
		if err == nil && len(elements) > 0 {
			cards = elements
			break
		}
	}

	postings := make([]Posting, 0, len(cards))
	for i, card := range cards {
		posting, err := m.extractPosting(card)
		if err != nil {
			m.logger.WithError(err).WithField("index", i).Debug("Failed to extract job card")
			continue
		}
		postings = append(postings, posting)
	}

	m.logger.WithField("count", len(postings)).Debug("Extracted job cards")
	return postings, nil
}

func (m *Manager) extractPosting(card *rod.Element) (Posting, error) {
	posting := Posting{}

	if id, err := card.Attribute("data-job-id"); err == nil && id != nil {
		posting.ExternalID = *id
	}

	if titleEl, err := card.Element(".job-card-list__title"); err == nil && titleEl != nil {
		if title, err := titleEl.Text(); err == nil {
			posting.Title = strings.TrimSpace(title)
		}
	}

	if companyEl, err := card.Element(".artdeco-entity-lockup__subtitle"); err == nil && companyEl != nil {
		if company, err := companyEl.Text(); err == nil {
			posting.Company = strings.TrimSpace(company)
		}
	}

	if linkEl, err := card.Element("a.job-card-container__link"); err == nil && linkEl != nil {
		if href, err := linkEl.Attribute("href"); err == nil && href != nil {
			posting.ListingURL = *href
			if posting.ExternalID == "" {
				posting.ExternalID = externalIDFromURL(*href)
			}
		}
	}

	if posting.ExternalID == "" {
		return posting, fmt.Errorf("job card has no identifiable posting id")
	}
	return posting, nil
}

// externalIDFromURL pulls the numeric posting ID out of a /jobs/view/ link
func externalIDFromURL(href string) string {
	const marker = "/jobs/view/"
	idx := strings.Index(href, marker)
	if idx < 0 {
		return ""
	}
	rest := href[idx+len(marker):]
	end := strings.IndexAny(rest, "/?")
	if end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
