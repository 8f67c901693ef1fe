package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-easyapply/auth"
	"linkedin-easyapply/form"
	"linkedin-easyapply/jobs"
)

// Modal drives the application modal lifecycle for one posting
type Modal interface {
	// Open navigates to the posting and opens its application entry point.
	// It returns false when the posting has no supported entry point.
	Open(ctx context.Context, posting jobs.Posting) (bool, error)
	// IsOpen reports whether the modal is currently visible
	IsOpen() bool
	// Advance clicks the footer control for the given action
	Advance(action Action) error
	// SubmitConfirmed reports whether the post-submit confirmation appeared
	SubmitConfirmed() bool
	// Close dismisses the modal, discarding the draft application if the
	// platform asks
	Close() error
}

// Filler resolves and fills every currently visible, unfilled control
type Filler interface {
	Fill(ctx context.Context) (form.Result, error)
}

// EasyApplier runs the per-posting modal state machine. Every invocation
// ends in exactly one terminal outcome and always leaves the modal closed.
type EasyApplier struct {
	modal    Modal
	filler   Filler
	nav      Navigator
	logger   *logrus.Logger
	maxSteps int
	settle   time.Duration
}

// NewEasyApplier creates a per-posting applier
func NewEasyApplier(modal Modal, filler Filler, nav Navigator, maxSteps int, settle time.Duration, logger *logrus.Logger) *EasyApplier {
	if maxSteps <= 0 {
		maxSteps = 20
	}
	return &EasyApplier{
		modal:    modal,
		filler:   filler,
		nav:      nav,
		logger:   logger,
		maxSteps: maxSteps,
		settle:   settle,
	}
}

// Apply attempts one posting. Expected per-posting failures come back as
// Attempt outcomes; only fatal conditions (cancelled run, dead browser)
// surface as errors.
func (e *EasyApplier) Apply(ctx context.Context, posting jobs.Posting) (jobs.Attempt, error) {
	e.logger.WithFields(logrus.Fields{
		"posting": posting.ExternalID,
		"title":   posting.Title,
		"company": posting.Company,
	}).Info("Starting application attempt")

	opened, err := e.openWithRetry(ctx, posting)
	if err != nil {
		return e.finish(posting, jobs.OutcomeAborted, jobs.ReasonModalVanished), err
	}
	if !opened {
		return e.finish(posting, jobs.OutcomeSkipped, jobs.ReasonNotSupported), nil
	}

	attempt, err := e.runModal(ctx, posting)

	// The modal must be closed before control returns to the search loop,
	// whatever happened above
	e.ensureClosed()

	e.logger.WithFields(logrus.Fields{
		"posting": posting.ExternalID,
		"result":  describe(attempt),
	}).Info("Finished application attempt")

	return attempt, err
}

// openWithRetry opens the application entry point, retrying one transient
// failure before giving up. A cancelled run or a dead browser is fatal and
// is never retried.
func (e *EasyApplier) openWithRetry(ctx context.Context, posting jobs.Posting) (bool, error) {
	opened, err := e.modal.Open(ctx, posting)
	if err == nil {
		return opened, nil
	}
	if fatal := openFatal(err); fatal != nil {
		return false, fatal
	}

	e.logger.WithError(err).Warn("Failed to open application modal, retrying once")
	opened, err = e.modal.Open(ctx, posting)
	if err != nil {
		if fatal := openFatal(err); fatal != nil {
			return false, fatal
		}
		e.logger.WithError(err).Warn("Modal open failed twice, skipping posting")
		return false, nil
	}
	return opened, nil
}

// openFatal classifies a modal-open error: cancellation and browser death
// stop the run, anything else is a transient per-posting failure
func openFatal(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if auth.IsBrowserDead(err) {
		return fmt.Errorf("%w: %v", auth.ErrBrowserClosed, err)
	}
	return nil
}

// runModal is the FILLING ⇄ ADVANCING loop
func (e *EasyApplier) runModal(ctx context.Context, posting jobs.Posting) (jobs.Attempt, error) {
	consecutiveBlocked := 0

	for step := 1; step <= e.maxSteps; step++ {
		select {
		case <-ctx.Done():
			return e.finish(posting, jobs.OutcomeAborted, "cancelled"), ctx.Err()
		default:
		}

		fillResult, err := e.filler.Fill(ctx)
		if err != nil {
			e.logger.WithError(err).Warn("Fill pass failed")
		} else if len(fillResult.Unresolved) > 0 {
			e.logger.WithField("unresolved", len(fillResult.Unresolved)).Debug("Controls left unresolved this step")
		}

		action, err := e.nav.Decide()
		if err != nil {
			return e.finish(posting, jobs.OutcomeAborted, jobs.ReasonModalVanished), nil
		}

		if action == ActionBlocked {
			if !e.modal.IsOpen() {
				return e.finish(posting, jobs.OutcomeAborted, jobs.ReasonModalVanished), nil
			}
			consecutiveBlocked++
			if consecutiveBlocked >= 2 {
				return e.finish(posting, jobs.OutcomeAborted, jobs.ReasonUnresolvableField), nil
			}
			// One more fill pass may clear the validation error
			continue
		}
		consecutiveBlocked = 0

		if err := e.modal.Advance(action); err != nil {
			e.logger.WithError(err).WithField("action", string(action)).Warn("Failed to advance step")
			consecutiveBlocked++
			if consecutiveBlocked >= 2 {
				return e.finish(posting, jobs.OutcomeAborted, jobs.ReasonUnresolvableField), nil
			}
			continue
		}

		if action == ActionSubmit {
			if e.settle > 0 {
				time.Sleep(e.settle)
			}
			if e.modal.SubmitConfirmed() || !e.modal.IsOpen() {
				return e.finish(posting, jobs.OutcomeSubmitted, ""), nil
			}
			// Submit clicked but the modal is still up with no confirmation;
			// treat it as blocked and let the loop re-evaluate
			consecutiveBlocked++
			continue
		}

		if e.settle > 0 {
			time.Sleep(e.settle)
		}
	}

	return e.finish(posting, jobs.OutcomeAborted, jobs.ReasonStepLimitExceeded), nil
}

// ensureClosed confirms the modal is gone, dismissing it if not
func (e *EasyApplier) ensureClosed() {
	if !e.modal.IsOpen() {
		return
	}
	if err := e.modal.Close(); err != nil {
		e.logger.WithError(err).Warn("Failed to close application modal")
	}
}

func (e *EasyApplier) finish(posting jobs.Posting, outcome jobs.Outcome, reason string) jobs.Attempt {
	return jobs.Attempt{
		Posting:    posting,
		Outcome:    outcome,
		Reason:     reason,
		FinishedAt: time.Now(),
	}
}

// String renders an attempt outcome for logs
func describe(a jobs.Attempt) string {
	if a.Reason == "" {
		return string(a.Outcome)
	}
	return fmt.Sprintf("%s(%s)", a.Outcome, a.Reason)
}
