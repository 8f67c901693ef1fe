package apply

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"
)

// Action is the step decision read from the modal's footer controls
type Action string

const (
	ActionNext    Action = "next"
	ActionReview  Action = "review"
	ActionSubmit  Action = "submit"
	ActionBlocked Action = "blocked"
)

// Navigator reads the modal's current step-control state
type Navigator interface {
	Decide() (Action, error)
}

// NavigationController translates the Easy Apply modal's footer into a step
// action. The blocked predicate is deliberate: a step is blocked only when
// inline validation feedback is visible. A disabled primary button with no
// visible errors means the step is still settling and is reported as its
// nominal action so the caller retries, bounded by its step limit. An
// unexpectedly closed modal reports blocked rather than success.
type NavigationController struct {
	page   *rod.Page
	logger *logrus.Logger
}

// NewNavigationController creates a navigation controller bound to the page
func NewNavigationController(page *rod.Page, logger *logrus.Logger) *NavigationController {
	return &NavigationController{page: page, logger: logger}
}

// Decide inspects the modal and returns the active step action
func (n *NavigationController) Decide() (Action, error) {
	modal := n.findModal()
	if modal == nil {
		n.logger.Warn("Application modal vanished while deciding step action")
		return ActionBlocked, nil
	}

	if n.hasValidationErrors(modal) {
		n.logger.Debug("Validation errors visible, step blocked")
		return ActionBlocked, nil
	}

	if n.buttonPresent(modal, "button[aria-label*='Submit application']") {
		return ActionSubmit, nil
	}
	if n.buttonPresent(modal, "button[aria-label*='Review']") {
		return ActionReview, nil
	}
	if n.buttonPresent(modal, "button[aria-label*='Continue to next step']") ||
		n.buttonPresent(modal, "button[data-easy-apply-next-button]") {
		return ActionNext, nil
	}

	// Footer buttons sometimes lack stable aria labels; fall back to text
	if action, found := n.decideByText(modal); found {
		return action, nil
	}

	n.logger.Warn("No recognizable step control in modal footer")
	return ActionBlocked, nil
}

func (n *NavigationController) findModal() *rod.Element {
	for _, sel := range []string{".jobs-easy-apply-content", ".jobs-easy-apply-modal", "div[data-test-modal]"} {
		if el, err := n.page.Element(sel); err == nil && el != nil {
			return el
		}
	}
	return nil
}

// hasValidationErrors reports whether inline error feedback is visible for
// any control on the current step
func (n *NavigationController) hasValidationErrors(modal *rod.Element) bool {
	for _, sel := range []string{
		".artdeco-inline-feedback--error",
		".fb-dash-form-element-error",
		"[role='alert']",
	} {
		elements, err := modal.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if text, err := el.Text(); err == nil && strings.TrimSpace(text) != "" {
				return true
			}
		}
	}
	return false
}

func (n *NavigationController) buttonPresent(modal *rod.Element, selector string) bool {
	el, err := modal.Element(selector)
	return err == nil && el != nil
}

func (n *NavigationController) decideByText(modal *rod.Element) (Action, bool) {
	buttons, err := modal.Elements("footer button, .jobs-easy-apply-footer button")
	if err != nil {
		return ActionBlocked, false
	}
	for _, button := range buttons {
		text, err := button.Text()
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(text, "Submit"):
			return ActionSubmit, true
		case strings.Contains(text, "Review"):
			return ActionReview, true
		case strings.Contains(text, "Next") || strings.Contains(text, "Continue"):
			return ActionNext, true
		}
	}
	return ActionBlocked, false
}
