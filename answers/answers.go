package answers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoAnswer is returned when the generator cannot produce a usable answer
// within its bounded attempts
var ErrNoAnswer = errors.New("no usable answer generated")

// Request describes one form question needing a synthesized answer
type Request struct {
	Question      string
	ResumeExcerpt string
	Options       []string
}

// Response is a free-text answer or one of the supplied options
type Response struct {
	Text string
}

// Generator produces an answer for a form question. Implementations may be
// slow or failing; callers bound each call with a timeout.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Client wraps a Generator with per-call timeouts, bounded retry, and
// option validation. Exhausting the retry budget yields ErrNoAnswer, never
// an unbounded wait.
type Client struct {
	generator   Generator
	logger      *logrus.Logger
	timeout     time.Duration
	maxAttempts int
}

// NewClient creates a bounded answer client
func NewClient(generator Generator, timeout time.Duration, maxAttempts int, logger *logrus.Logger) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		generator:   generator,
		logger:      logger,
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

// Ask requests an answer, retrying transient generator failures up to the
// attempt budget. For multiple-choice requests the answer must match one of
// the supplied options.
func (c *Client) Ask(ctx context.Context, req Request) (Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.generator.Generate(callCtx, req)
		cancel()

		if err != nil {
			lastErr = err
			c.logger.WithError(err).WithFields(logrus.Fields{
				"attempt":  attempt,
				"question": req.Question,
			}).Warn("Answer generation failed")
			continue
		}

		resp.Text = strings.TrimSpace(resp.Text)
		if resp.Text == "" {
			lastErr = fmt.Errorf("empty answer")
			continue
		}

		if len(req.Options) > 0 {
			matched, ok := matchOption(resp.Text, req.Options)
			if !ok {
				lastErr = fmt.Errorf("answer %q matches no supplied option", resp.Text)
				c.logger.WithField("answer", resp.Text).Debug("Generated answer not among options")
				continue
			}
			resp.Text = matched
		}

		return resp, nil
	}

	if lastErr != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrNoAnswer, lastErr)
	}
	return Response{}, ErrNoAnswer
}

// matchOption finds the supplied option the answer corresponds to,
// case-insensitively, allowing the answer to quote the option verbatim or
// contain it
func matchOption(answer string, options []string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(answer))
	for _, opt := range options {
		if strings.ToLower(strings.TrimSpace(opt)) == lowered {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.Contains(lowered, strings.ToLower(strings.TrimSpace(opt))) {
			return opt, true
		}
	}
	return "", false
}

// questionTemplate renders the prompt sent to the model.
// Parsed once at package init; reused on every Generate call.
var questionTemplate = template.Must(template.New("question").Parse(`You are completing a job application on behalf of the candidate below. Answer the application question concisely and truthfully based only on the resume excerpt.

### RESUME EXCERPT:
{{.ResumeExcerpt}}

### QUESTION:
{{.Question}}
{{if .Options}}
### OPTIONS:
Pick exactly one of the following options and reply with it verbatim, nothing else:
{{range .Options}}- {{.}}
{{end}}{{else}}
Reply with the answer only: no preamble, no explanation. For numeric questions reply with a bare number.
{{end}}`))

// RenderPrompt builds the model prompt for a request
func RenderPrompt(req Request) (string, error) {
	var b strings.Builder
	if err := questionTemplate.Execute(&b, req); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return b.String(), nil
}
