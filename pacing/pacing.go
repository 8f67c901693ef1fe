package pacing

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRunLimit is returned once the per-run application cap is reached
var ErrRunLimit = errors.New("run application limit reached")

// Config defines pacing behavior between application attempts
type Config struct {
	// Jittered delay inserted between attempts
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`

	// Occasional longer pause to break up regular intervals
	ThinkProbability float64       `yaml:"think_probability"`
	ThinkDelay       time.Duration `yaml:"think_delay"`

	// Hard cap on attempts per run; 0 disables the cap
	MaxApplications int `yaml:"max_applications"`
}

// Pacer inserts human-like delays between application attempts and enforces
// the per-run cap. The delay is a deliberate self-imposed rate limit:
// skipping it materially increases the chance of the session being blocked.
type Pacer struct {
	logger *logrus.Logger
	config Config
	rng    *rand.Rand

	mu    sync.Mutex
	count int
}

// NewPacer creates a pacer with the given configuration
func NewPacer(config Config, logger *logrus.Logger) *Pacer {
	return &Pacer{
		logger: logger,
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks for a randomized delay after an attempt. It returns ErrRunLimit
// once the configured application cap has been consumed, and the context
// error if the wait is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.count++
	count := p.count
	limit := p.config.MaxApplications
	p.mu.Unlock()

	if limit > 0 && count >= limit {
		return ErrRunLimit
	}

	delay := p.nextDelay()
	p.logger.WithFields(logrus.Fields{
		"delay":    delay,
		"attempts": count,
	}).Debug("Pacing before next attempt")

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of attempts paced so far this run
func (p *Pacer) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// nextDelay picks a jittered delay in [MinDelay, MaxDelay], occasionally
// stretched by a think pause
func (p *Pacer) nextDelay() time.Duration {
	min := p.config.MinDelay
	max := p.config.MaxDelay
	if max < min {
		max = min
	}

	delay := min
	if max > min {
		delay = min + time.Duration(p.rng.Int63n(int64(max-min)))
	}

	if p.config.ThinkProbability > 0 && p.rng.Float64() < p.config.ThinkProbability {
		think := time.Duration(p.rng.Float64() * float64(p.config.ThinkDelay))
		delay += think
		p.logger.WithField("think", think).Debug("Adding think pause")
	}

	return delay
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MinDelay:         20 * time.Second,
		MaxDelay:         90 * time.Second,
		ThinkProbability: 0.15,
		ThinkDelay:       3 * time.Minute,
		MaxApplications:  50,
	}
}
