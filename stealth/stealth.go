package stealth

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"
)

// Humanizer wraps browser interactions with human-like timing so the
// session's input patterns don't look machine-generated
type Humanizer struct {
	config Config
	logger *logrus.Logger
	rng    *rand.Rand
}

// Config contains humanization timing settings
type Config struct {
	MinDelay      time.Duration `yaml:"min_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	TypeDelayMin  time.Duration `yaml:"type_delay_min"`
	TypeDelayMax  time.Duration `yaml:"type_delay_max"`
	PauseEvery    int           `yaml:"pause_every"`
	PauseChance   float64       `yaml:"pause_chance"`
	ScrollDelay   time.Duration `yaml:"scroll_delay"`
	ScrollChunk   int           `yaml:"scroll_chunk"`
}

// NewHumanizer creates a humanizer with the given configuration
func NewHumanizer(config Config, logger *logrus.Logger) *Humanizer {
	return &Humanizer{
		config: config,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay returns a random delay in [MinDelay, MaxDelay]
func (h *Humanizer) Delay() time.Duration {
	if h.config.MaxDelay <= h.config.MinDelay {
		return h.config.MinDelay
	}
	span := int64(h.config.MaxDelay - h.config.MinDelay)
	return h.config.MinDelay + time.Duration(h.rng.Int63n(span))
}

// Pause sleeps for a random delay
func (h *Humanizer) Pause() {
	time.Sleep(h.Delay())
}

// Type inputs text into an element one character at a time with variable
// per-character delays and occasional longer thinking pauses
func (h *Humanizer) Type(el *rod.Element, text string) error {
	if text == "" {
		return el.Input(text)
	}

	for i, char := range text {
		if err := el.Input(string(char)); err != nil {
			return fmt.Errorf("failed to type character: %w", err)
		}

		time.Sleep(h.typeDelay())

		if h.config.PauseEvery > 0 && i > 0 && i%h.config.PauseEvery == 0 &&
			h.rng.Float64() < h.config.PauseChance {
			time.Sleep(time.Duration(200+h.rng.Intn(300)) * time.Millisecond)
		}
	}
	return nil
}

// Click clicks an element with short pre- and post-click delays
func (h *Humanizer) Click(el *rod.Element) error {
	time.Sleep(time.Duration(200+h.rng.Intn(500)) * time.Millisecond)
	if err := el.Click("left", 1); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	time.Sleep(time.Duration(100+h.rng.Intn(200)) * time.Millisecond)
	return nil
}

// Scroll scrolls the page in small chunks with variable timing
func (h *Humanizer) Scroll(page *rod.Page, amount int) error {
	chunk := h.config.ScrollChunk
	if chunk <= 0 {
		chunk = 120
	}

	remaining := amount
	direction := 1.0
	if amount < 0 {
		direction = -1.0
		remaining = -amount
	}

	for remaining > 0 {
		step := chunk
		if step > remaining {
			step = remaining
		}
		if err := page.Mouse.Scroll(0, float64(step)*direction, 0); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
		remaining -= step
		time.Sleep(h.config.ScrollDelay + time.Duration(h.rng.Intn(150))*time.Millisecond)
	}
	return nil
}

func (h *Humanizer) typeDelay() time.Duration {
	min := h.config.TypeDelayMin
	max := h.config.TypeDelayMax
	if max <= min {
		return min
	}
	return min + time.Duration(h.rng.Int63n(int64(max-min)))
}

// DefaultConfig returns sensible humanization defaults
func DefaultConfig() Config {
	return Config{
		MinDelay:     500 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		TypeDelayMin: 50 * time.Millisecond,
		TypeDelayMax: 150 * time.Millisecond,
		PauseEvery:   5,
		PauseChance:  0.3,
		ScrollDelay:  100 * time.Millisecond,
		ScrollChunk:  120,
	}
}
