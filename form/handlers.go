package form

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"linkedin-easyapply/answers"
	"linkedin-easyapply/resume"
)

// FieldHandler recognizes and fills one class of form control.
// CanHandle must be a pure predicate; Handle performs exactly one control's
// worth of interaction and reports failure as an error so the caller can
// leave the control unresolved instead of crashing the attempt.
type FieldHandler interface {
	Name() string
	CanHandle(c *Control) bool
	Handle(ctx context.Context, c *Control) error
}

// Answerer is the bounded text-generation boundary handlers delegate to
// when no deterministic answer exists
type Answerer interface {
	Ask(ctx context.Context, req answers.Request) (answers.Response, error)
}

// DefaultHandlers returns the handler set in its fixed priority order.
// Order matters: more specific recognizers come before the free-text
// catch-all.
func DefaultHandlers(data *resume.Data, answerer Answerer, uploadPath string, logger *logrus.Logger) []FieldHandler {
	return []FieldHandler{
		&UploadHandler{uploadPath: uploadPath, logger: logger},
		&NumericHandler{data: data, answerer: answerer, logger: logger},
		&ChoiceHandler{data: data, answerer: answerer, logger: logger},
		&MultiChoiceHandler{data: data, answerer: answerer, logger: logger},
		&CheckboxHandler{logger: logger},
		&TextHandler{data: data, answerer: answerer, logger: logger},
	}
}

// UploadHandler attaches the configured file to upload controls
type UploadHandler struct {
	uploadPath string
	logger     *logrus.Logger
}

func (h *UploadHandler) Name() string { return "upload" }

func (h *UploadHandler) CanHandle(c *Control) bool {
	return c.Kind == KindUpload
}

func (h *UploadHandler) Handle(ctx context.Context, c *Control) error {
	if h.uploadPath == "" {
		return fmt.Errorf("no upload file configured")
	}
	if err := c.Input.Upload(h.uploadPath); err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

var yearsPattern = regexp.MustCompile(`(?i)(?:how many years|years of (?:work )?experience)(?:.*?(?:with|in|using)\s+(.+?))?[?.]?$`)

// NumericHandler answers numeric screening questions, deterministically from
// resume data where possible
type NumericHandler struct {
	data     *resume.Data
	answerer Answerer
	logger   *logrus.Logger
}

func (h *NumericHandler) Name() string { return "numeric" }

func (h *NumericHandler) CanHandle(c *Control) bool {
	if c.Kind == KindNumeric {
		return true
	}
	return c.Kind == KindText && looksNumeric(c.Label)
}

func (h *NumericHandler) Handle(ctx context.Context, c *Control) error {
	if answer, ok := h.deterministic(c.Label); ok {
		return c.Input.SetText(answer)
	}

	resp, err := h.answerer.Ask(ctx, answers.Request{
		Question:      c.Label,
		ResumeExcerpt: h.data.Excerpt(c.Label),
	})
	if err != nil {
		return fmt.Errorf("numeric answer generation failed: %w", err)
	}

	value, ok := extractNumber(resp.Text)
	if !ok {
		return fmt.Errorf("generated answer %q is not numeric", resp.Text)
	}
	return c.Input.SetText(value)
}

// deterministic resolves the question from structured resume data alone
func (h *NumericHandler) deterministic(label string) (string, bool) {
	lowered := strings.ToLower(label)

	if m := yearsPattern.FindStringSubmatch(label); m != nil {
		topic := ""
		if len(m) > 1 {
			topic = strings.TrimSpace(m[1])
		}
		return strconv.Itoa(h.data.YearsOfExperience(topic)), true
	}

	if strings.Contains(lowered, "notice period") {
		return strconv.Itoa(h.data.Defaults.NoticePeriodWeeks), true
	}
	if strings.Contains(lowered, "salary") && h.data.Defaults.SalaryExpectation != "" {
		if value, ok := extractNumber(h.data.Defaults.SalaryExpectation); ok {
			return value, true
		}
	}
	return "", false
}

func looksNumeric(label string) bool {
	lowered := strings.ToLower(label)
	for _, cue := range []string{"how many", "years of", "number of", "notice period", "salary expectation"} {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

func extractNumber(text string) (string, bool) {
	match := numberPattern.FindString(strings.ReplaceAll(text, ",", ""))
	return match, match != ""
}

// ChoiceHandler fills single-choice controls (selects and radio groups)
type ChoiceHandler struct {
	data     *resume.Data
	answerer Answerer
	logger   *logrus.Logger
}

func (h *ChoiceHandler) Name() string { return "choice" }

func (h *ChoiceHandler) CanHandle(c *Control) bool {
	return (c.Kind == KindSelect || c.Kind == KindRadio) && len(c.Options) > 0
}

func (h *ChoiceHandler) Handle(ctx context.Context, c *Control) error {
	if option, ok := h.deterministic(c); ok {
		return c.Input.SelectOption(option)
	}

	option, err := askChoice(ctx, h.answerer, h.data, c)
	if err != nil {
		return err
	}
	return c.Input.SelectOption(option)
}

// deterministic resolves yes/no style questions from resume defaults
func (h *ChoiceHandler) deterministic(c *Control) (string, bool) {
	lowered := strings.ToLower(c.Label)

	var want bool
	switch {
	case strings.Contains(lowered, "sponsorship"):
		want = h.data.Defaults.RequiresSponsorship
	case strings.Contains(lowered, "authorized") || strings.Contains(lowered, "legally"):
		want = h.data.Defaults.WorkAuthorization
	case strings.Contains(lowered, "relocat"):
		want = h.data.Defaults.WillingToRelocate
	default:
		return "", false
	}

	target := "no"
	if want {
		target = "yes"
	}
	for _, opt := range c.Options {
		if strings.EqualFold(strings.TrimSpace(opt), target) {
			return opt, true
		}
	}
	return "", false
}

// MultiChoiceHandler fills checkbox groups, preferring options that match
// resume skills or languages
type MultiChoiceHandler struct {
	data     *resume.Data
	answerer Answerer
	logger   *logrus.Logger
}

func (h *MultiChoiceHandler) Name() string { return "multi_choice" }

func (h *MultiChoiceHandler) CanHandle(c *Control) bool {
	return c.Kind == KindCheckboxGroup && len(c.Options) > 0
}

func (h *MultiChoiceHandler) Handle(ctx context.Context, c *Control) error {
	known := make(map[string]struct{})
	for _, s := range h.data.Skills {
		known[strings.ToLower(s)] = struct{}{}
	}
	for _, l := range h.data.Languages {
		known[strings.ToLower(l)] = struct{}{}
	}

	selected := false
	for _, opt := range c.Options {
		if _, ok := known[strings.ToLower(strings.TrimSpace(opt))]; ok {
			if err := c.Input.SelectOption(opt); err != nil {
				return fmt.Errorf("failed to select option %q: %w", opt, err)
			}
			selected = true
		}
	}
	if selected {
		return nil
	}

	// No resume match; let the generator pick one option
	option, err := askChoice(ctx, h.answerer, h.data, c)
	if err != nil {
		return err
	}
	return c.Input.SelectOption(option)
}

// CheckboxHandler ticks single agreement-style checkboxes
type CheckboxHandler struct {
	logger *logrus.Logger
}

func (h *CheckboxHandler) Name() string { return "checkbox" }

func (h *CheckboxHandler) CanHandle(c *Control) bool {
	return c.Kind == KindCheckbox
}

func (h *CheckboxHandler) Handle(ctx context.Context, c *Control) error {
	lowered := strings.ToLower(c.Label)
	agree := c.Required ||
		strings.Contains(lowered, "agree") ||
		strings.Contains(lowered, "terms") ||
		strings.Contains(lowered, "confirm") ||
		strings.Contains(lowered, "follow")
	if !agree {
		return nil
	}
	return c.Input.Toggle(true)
}

// TextHandler is the free-text catch-all: contact fields come from the
// resume, everything else is delegated to the generator
type TextHandler struct {
	data     *resume.Data
	answerer Answerer
	logger   *logrus.Logger
}

func (h *TextHandler) Name() string { return "text" }

func (h *TextHandler) CanHandle(c *Control) bool {
	return c.Kind == KindText
}

func (h *TextHandler) Handle(ctx context.Context, c *Control) error {
	if answer, ok := h.deterministic(c.Label); ok {
		return c.Input.SetText(answer)
	}

	req := answers.Request{
		Question:      c.Label,
		ResumeExcerpt: h.data.Excerpt(c.Label),
	}

	resp, err := h.answerer.Ask(ctx, req)
	if err != nil {
		return fmt.Errorf("text answer generation failed: %w", err)
	}
	if isPlaceholderAnswer(resp.Text, c.Label) {
		// One more try before giving up on this control
		resp, err = h.answerer.Ask(ctx, req)
		if err != nil {
			return fmt.Errorf("text answer generation failed on retry: %w", err)
		}
		if isPlaceholderAnswer(resp.Text, c.Label) {
			return fmt.Errorf("generated answer looks like a placeholder")
		}
	}

	return c.Input.SetText(resp.Text)
}

func (h *TextHandler) deterministic(label string) (string, bool) {
	lowered := strings.ToLower(label)
	p := h.data.Personal

	switch {
	case strings.Contains(lowered, "first name"):
		return p.FirstName, true
	case strings.Contains(lowered, "last name"):
		return p.LastName, true
	case strings.Contains(lowered, "full name"):
		return h.data.FullName(), true
	case strings.Contains(lowered, "email"):
		return p.Email, true
	case strings.Contains(lowered, "phone") || strings.Contains(lowered, "mobile"):
		return p.Phone, true
	case strings.Contains(lowered, "linkedin"):
		return p.LinkedIn, true
	case strings.Contains(lowered, "website") || strings.Contains(lowered, "portfolio"):
		return p.Website, true
	case strings.Contains(lowered, "city") || strings.Contains(lowered, "location"):
		return p.City, true
	}
	return "", false
}

// askChoice asks the generator to pick one of the control's options,
// rejecting unchanged-default style answers and retrying once
func askChoice(ctx context.Context, answerer Answerer, data *resume.Data, c *Control) (string, error) {
	req := answers.Request{
		Question:      c.Label,
		ResumeExcerpt: data.Excerpt(c.Label),
		Options:       usableOptions(c.Options),
	}
	if len(req.Options) == 0 {
		return "", fmt.Errorf("control %q has no usable options", c.Label)
	}

	resp, err := answerer.Ask(ctx, req)
	if err == nil && !isPlaceholderOption(resp.Text) {
		return resp.Text, nil
	}

	resp, err = answerer.Ask(ctx, req)
	if err != nil {
		return "", fmt.Errorf("choice generation failed: %w", err)
	}
	if isPlaceholderOption(resp.Text) {
		return "", fmt.Errorf("generator picked the placeholder option %q", resp.Text)
	}
	return resp.Text, nil
}

// usableOptions strips placeholder entries like "Select an option"
func usableOptions(options []string) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		if !isPlaceholderOption(opt) {
			out = append(out, opt)
		}
	}
	return out
}

func isPlaceholderOption(option string) bool {
	lowered := strings.ToLower(strings.TrimSpace(option))
	switch lowered {
	case "", "--", "select an option", "please select", "choose an option", "select":
		return true
	}
	return false
}

// isPlaceholderAnswer rejects answers that are empty, just echo the question
// back, or repeat an untouched dropdown default
func isPlaceholderAnswer(answer, question string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return true
	}
	if strings.EqualFold(trimmed, strings.TrimSpace(question)) {
		return true
	}
	if strings.EqualFold(trimmed, "select an option") {
		return true
	}
	return false
}
