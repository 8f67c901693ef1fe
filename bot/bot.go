package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"linkedin-easyapply/answers"
	"linkedin-easyapply/apply"
	"linkedin-easyapply/auth"
	"linkedin-easyapply/config"
	"linkedin-easyapply/events"
	"linkedin-easyapply/form"
	"linkedin-easyapply/jobs"
	"linkedin-easyapply/pacing"
	"linkedin-easyapply/resume"
	"linkedin-easyapply/stealth"
	"linkedin-easyapply/storage"
)

// Bot is the composition root. It owns every session-scoped resource and
// wires authentication, the search loop, and the per-posting applier
// together behind Initialize/Start/Stop.
type Bot struct {
	config *config.Config
	logger *logrus.Logger

	browser *rod.Browser
	page    *rod.Page

	hub    *events.Hub
	store  *storage.Database
	resume *resume.Data
	seen   *jobs.SeenSet
	stop   *jobs.StopSignal
	pacer  *pacing.Pacer
}

// New creates an uninitialized bot
func New(cfg *config.Config, logger *logrus.Logger) *Bot {
	return &Bot{
		config: cfg,
		logger: logger,
		hub:    events.NewHub(),
		seen:   jobs.NewSeenSet(),
		stop:   jobs.NewStopSignal(),
	}
}

// Hub exposes the session event stream
func (b *Bot) Hub() *events.Hub {
	return b.hub
}

// Initialize loads the resume and the attempt log, then launches the
// browser. Must be called before Start. The attempt log only feeds the
// status report; dedupe is per-run via the seen set.
func (b *Bot) Initialize(ctx context.Context) error {
	data, err := resume.Load(b.config.Resume.Path)
	if err != nil {
		return fmt.Errorf("failed to load resume data: %w", err)
	}
	b.resume = data

	store, err := storage.NewDatabase(b.config.Storage.Path, b.logger)
	if err != nil {
		return fmt.Errorf("failed to open attempt log: %w", err)
	}
	b.store = store

	b.pacer = pacing.NewPacer(pacing.Config{
		MinDelay:         b.config.Pacing.MinDelay,
		MaxDelay:         b.config.Pacing.MaxDelay,
		ThinkProbability: b.config.Pacing.ThinkProbability,
		ThinkDelay:       b.config.Pacing.ThinkDelay,
		MaxApplications:  b.config.Pacing.MaxApplications,
	}, b.logger)

	if err := b.launchBrowser(); err != nil {
		return err
	}

	b.logger.Info("Bot initialized successfully")
	return nil
}

// Start authenticates the session and runs the search loop to completion
func (b *Bot) Start(ctx context.Context) (*jobs.RunSummary, error) {
	if b.page == nil {
		return nil, fmt.Errorf("bot is not initialized")
	}

	probe := auth.NewRodProbe(b.page, b.config.LinkedIn.LoginURL)
	authenticator := auth.NewAuthenticator(probe, b.hub, auth.Options{
		PollInterval:      b.config.LinkedIn.LoginPollInterval,
		Debounce:          b.config.LinkedIn.LoginDebounce,
		CheckpointTimeout: b.config.LinkedIn.CheckpointTimeout,
	}, b.logger)

	if err := authenticator.Login(ctx); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	applier, err := b.buildApplier(ctx)
	if err != nil {
		return nil, err
	}

	manager := jobs.NewManager(jobs.ManagerOptions{
		Page:      b.page,
		Logger:    b.logger,
		Applier:   applier,
		Pacer:     b.pacer,
		Recorder:  b.store,
		Hub:       b.hub,
		Seen:      b.seen,
		Blacklist: jobs.NewBlacklist(b.config.Blacklist.Companies, b.config.Blacklist.Titles),
		Criteria: jobs.Criteria{
			Keywords:  b.config.Search.Keywords,
			Locations: b.config.Search.Locations,
			Filters: jobs.FilterFlags{
				EasyApplyOnly: b.config.Search.Filters.EasyApplyOnly,
				Remote:        b.config.Search.Filters.Remote,
				DatePosted:    b.config.Search.Filters.DatePosted,
				Experience:    b.config.Search.Filters.Experience,
			},
		},
		Stop:      b.stop,
		BaseURL:   b.config.LinkedIn.JobsSearchURL,
		PageCap:   b.config.Search.PageCap,
		PageDelay: b.config.Search.PageDelay,
	})

	return manager.Run(ctx)
}

// Stop requests a graceful shutdown. The search loop observes the signal
// at its next boundary; browser and attempt log close immediately after.
func (b *Bot) Stop() {
	b.stop.Stop()
	b.logger.Info("Stop requested")
}

// Close releases the browser and the attempt log
func (b *Bot) Close() {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.logger.WithError(err).Warn("Failed to close browser")
		}
	}
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			b.logger.WithError(err).Warn("Failed to close attempt log")
		}
	}
}

// Store exposes the attempt log for the status command
func (b *Bot) Store() *storage.Database {
	return b.store
}

// buildApplier assembles the per-posting applier chain
func (b *Bot) buildApplier(ctx context.Context) (jobs.Applier, error) {
	humanizer := stealth.NewHumanizer(stealth.DefaultConfig(), b.logger)

	generator, err := answers.NewGeminiGenerator(ctx, b.config.Answers.APIKey, b.config.Answers.Model, b.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer generator: %w", err)
	}
	answerer := answers.NewClient(generator, b.config.Answers.Timeout, b.config.Answers.MaxAttempts, b.logger)

	handlers := form.DefaultHandlers(b.resume, answerer, b.config.Apply.UploadPath, b.logger)
	formHandler := form.NewFormHandler(handlers, b.logger)
	reader := form.NewModalReader(b.page, humanizer, b.logger)

	modal := apply.NewRodModal(b.page, humanizer, 0, b.logger)
	filler := apply.NewFormFiller(formHandler, reader)
	nav := apply.NewNavigationController(b.page, b.logger)

	return apply.NewEasyApplier(modal, filler, nav,
		b.config.Apply.MaxSteps, b.config.Apply.StepSettle, b.logger), nil
}

// launchBrowser starts a fresh browser with a persistent profile so login
// sessions survive restarts
func (b *Bot) launchBrowser() error {
	profileDir := b.config.Browser.ProfileDir
	if profileDir == "" {
		profileDir = filepath.Join(".", "data", "browser-profile")
	}
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return fmt.Errorf("failed to create browser profile directory: %w", err)
	}

	l := launcher.New().
		Leakless(false).
		Headless(b.config.Browser.Headless).
		Set("user-data-dir", profileDir).
		Set("no-first-run", "true").
		Set("no-default-browser-check", "true").
		Set("disable-background-timer-throttling", "true").
		Set("disable-backgrounding-occluded-windows", "true").
		Set("disable-renderer-backgrounding", "true").
		Set("disable-popup-blocking", "true").
		Set("disable-hang-monitor", "true").
		Set("disable-sync", "true").
		Set("disable-extensions", "true").
		Set("disable-dev-shm-usage", "true").
		Set("disable-gpu", "true")

	if b.config.Browser.UserAgent != "" {
		l = l.Set("user-agent", b.config.Browser.UserAgent)
	}

	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b.browser = rod.New().ControlURL(url)
	if err := b.browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	b.page = page

	if b.config.Browser.ViewportWidth > 0 && b.config.Browser.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  b.config.Browser.ViewportWidth,
			Height: b.config.Browser.ViewportHeight,
		}); err != nil {
			b.logger.WithError(err).Warn("Failed to set viewport")
		}
	}

	b.logger.Info("Browser initialized successfully")
	return nil
}
