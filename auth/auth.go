package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"

	"linkedin-easyapply/events"
)

// Fatal authentication failures. Both end the run.
var (
	// ErrCheckpointTimeout means a security checkpoint was not cleared
	// manually within the allowed window
	ErrCheckpointTimeout = errors.New("security checkpoint was not cleared in time")
	// ErrBrowserClosed means the browser died while waiting for login
	ErrBrowserClosed = errors.New("browser closed during authentication")
)

// State is the login machine's current phase
type State string

const (
	StateNotStarted    State = "not_started"
	StateNavigating    State = "navigating"
	StateAwaitingLogin State = "awaiting_login"
	StateSecurityCheck State = "security_check"
	StateAuthenticated State = "authenticated"
)

// SessionProbe inspects the live browser session
type SessionProbe interface {
	// Navigate opens the login page
	Navigate() error
	// LoggedIn reports whether the session currently looks authenticated
	LoggedIn() (bool, error)
	// AtSecurityCheck reports whether the session sits on a checkpoint page
	AtSecurityCheck() (bool, error)
}

// Authenticator drives the interactive login flow. Credentials are never
// typed by the program: the user completes the form in the visible browser
// while the authenticator polls until the session is established.
type Authenticator struct {
	probe             SessionProbe
	hub               *events.Hub
	logger            *logrus.Logger
	pollInterval      time.Duration
	debounce          time.Duration
	checkpointTimeout time.Duration

	state State
}

// Options configures the authenticator's polling behavior
type Options struct {
	PollInterval      time.Duration
	Debounce          time.Duration
	CheckpointTimeout time.Duration
}

// NewAuthenticator creates an authenticator over the given session probe
func NewAuthenticator(probe SessionProbe, hub *events.Hub, opts Options, logger *logrus.Logger) *Authenticator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 3 * time.Second
	}
	if opts.CheckpointTimeout <= 0 {
		opts.CheckpointTimeout = 5 * time.Minute
	}
	return &Authenticator{
		probe:             probe,
		hub:               hub,
		logger:            logger,
		pollInterval:      opts.PollInterval,
		debounce:          opts.Debounce,
		checkpointTimeout: opts.CheckpointTimeout,
		state:             StateNotStarted,
	}
}

// State returns the current login phase
func (a *Authenticator) State() State {
	return a.state
}

// Login runs the machine to completion. A logged-in signal must hold
// through the debounce window before the session counts as authenticated;
// a security checkpoint pauses the clock for manual resolution, bounded by
// the checkpoint timeout.
func (a *Authenticator) Login(ctx context.Context) error {
	a.state = StateNavigating
	a.logger.Info("Opening login page, waiting for manual sign-in")

	if err := a.probe.Navigate(); err != nil {
		a.state = StateNotStarted
		if IsBrowserDead(err) {
			return fmt.Errorf("%w: %v", ErrBrowserClosed, err)
		}
		return fmt.Errorf("failed to open login page: %w", err)
	}

	a.state = StateAwaitingLogin
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	var checkpointSince time.Time

	for {
		select {
		case <-ctx.Done():
			a.state = StateNotStarted
			return ctx.Err()
		case <-ticker.C:
		}

		atCheck, err := a.probe.AtSecurityCheck()
		if err != nil {
			a.state = StateNotStarted
			return fmt.Errorf("%w: %v", ErrBrowserClosed, err)
		}
		if atCheck {
			if a.state != StateSecurityCheck {
				a.state = StateSecurityCheck
				checkpointSince = time.Now()
				a.logger.Warn("Security checkpoint detected, waiting for manual resolution")
			}
			if time.Since(checkpointSince) > a.checkpointTimeout {
				a.state = StateNotStarted
				return ErrCheckpointTimeout
			}
			continue
		}
		if a.state == StateSecurityCheck {
			a.state = StateAwaitingLogin
			a.logger.Info("Security checkpoint cleared")
		}

		loggedIn, err := a.probe.LoggedIn()
		if err != nil {
			a.state = StateNotStarted
			return fmt.Errorf("%w: %v", ErrBrowserClosed, err)
		}
		if !loggedIn {
			continue
		}

		if err := a.confirmLogin(ctx); err != nil {
			if errors.Is(err, errLoginBounced) {
				continue
			}
			a.state = StateNotStarted
			return err
		}

		a.state = StateAuthenticated
		a.logger.Info("Session authenticated")
		if a.hub != nil {
			a.hub.Publish(events.Event{Type: events.TypeAuthenticated, Time: time.Now()})
		}
		return nil
	}
}

var errLoginBounced = errors.New("logged-in signal did not survive debounce")

// confirmLogin re-checks the logged-in signal after the debounce window so
// a transient redirect through the feed doesn't count as a login
func (a *Authenticator) confirmLogin(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.debounce):
	}

	loggedIn, err := a.probe.LoggedIn()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserClosed, err)
	}
	if !loggedIn {
		a.logger.Debug("Login signal vanished during debounce, still waiting")
		return errLoginBounced
	}
	return nil
}

// IsBrowserDead reports whether an error from a page operation means the
// browser or its devtools connection is gone. Errors matching it end the run;
// anything else is a per-page or per-posting failure.
func IsBrowserDead(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context canceled") ||
		strings.Contains(msg, "websocket") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "target closed")
}

// RodProbe is the browser-backed session probe
type RodProbe struct {
	page     *rod.Page
	loginURL string
}

// NewRodProbe creates a probe over the given page
func NewRodProbe(page *rod.Page, loginURL string) *RodProbe {
	return &RodProbe{page: page, loginURL: loginURL}
}

// Navigate opens the login page
func (p *RodProbe) Navigate() error {
	if err := p.page.Navigate(p.loginURL); err != nil {
		return err
	}
	return p.page.WaitLoad()
}

// LoggedIn checks the current URL for the authenticated feed
func (p *RodProbe) LoggedIn() (bool, error) {
	info, err := p.page.Info()
	if err != nil {
		return false, err
	}
	url := info.URL
	return strings.Contains(url, "/feed") ||
		strings.Contains(url, "/mynetwork") ||
		strings.Contains(url, "/jobs"), nil
}

// AtSecurityCheck checks the current URL for a checkpoint or challenge page
func (p *RodProbe) AtSecurityCheck() (bool, error) {
	info, err := p.page.Info()
	if err != nil {
		return false, err
	}
	url := info.URL
	return strings.Contains(url, "/checkpoint") ||
		strings.Contains(url, "/challenge") ||
		strings.Contains(url, "captcha"), nil
}
