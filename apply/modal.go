package apply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"

	"linkedin-easyapply/form"
	"linkedin-easyapply/jobs"
	"linkedin-easyapply/stealth"
)

// RodModal is the browser-backed Modal implementation
type RodModal struct {
	page      *rod.Page
	humanizer *stealth.Humanizer
	logger    *logrus.Logger
	timeout   time.Duration
}

// NewRodModal creates a modal driver on the given page
func NewRodModal(page *rod.Page, humanizer *stealth.Humanizer, timeout time.Duration, logger *logrus.Logger) *RodModal {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RodModal{page: page, humanizer: humanizer, logger: logger, timeout: timeout}
}

// Open navigates to the posting page and clicks the application entry
// point. It returns false when the posting offers no supported entry point,
// which covers both external-apply postings and already-applied ones.
func (m *RodModal) Open(ctx context.Context, posting jobs.Posting) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if err := m.page.Navigate(posting.ListingURL); err != nil {
		return false, fmt.Errorf("failed to open posting page: %w", err)
	}
	if err := m.page.WaitLoad(); err != nil {
		return false, fmt.Errorf("posting page did not load: %w", err)
	}
	m.humanizer.Pause()

	button := m.applyButton()
	if button == nil {
		m.logger.WithField("posting", posting.ExternalID).Debug("No application entry point on posting page")
		return false, nil
	}

	if err := m.humanizer.Click(button); err != nil {
		return false, fmt.Errorf("failed to click apply button: %w", err)
	}

	if !m.waitModal() {
		return false, fmt.Errorf("application modal did not appear")
	}
	return true, nil
}

// IsOpen reports whether the modal root is still in the DOM
func (m *RodModal) IsOpen() bool {
	return m.findModal() != nil
}

// Advance clicks the footer control matching the decided action
func (m *RodModal) Advance(action Action) error {
	modal := m.findModal()
	if modal == nil {
		return fmt.Errorf("application modal is gone")
	}

	selector := ""
	switch action {
	case ActionSubmit:
		selector = "button[aria-label*='Submit application']"
	case ActionReview:
		selector = "button[aria-label*='Review']"
	case ActionNext:
		selector = "button[aria-label*='Continue to next step'], button[data-easy-apply-next-button]"
	default:
		return fmt.Errorf("cannot advance with action %q", action)
	}

	button, err := modal.Element(selector)
	if err != nil || button == nil {
		if button = m.footerButtonByText(modal, action); button == nil {
			return fmt.Errorf("no footer button for action %q", action)
		}
	}
	return m.humanizer.Click(button)
}

// SubmitConfirmed reports whether the post-submit confirmation is visible
func (m *RodModal) SubmitConfirmed() bool {
	selectors := []string{
		".artdeco-modal__dismiss",
		"h2#post-apply-modal",
		".jobs-post-apply",
	}
	for _, sel := range selectors {
		if el, err := m.page.Element(sel); err == nil && el != nil {
			// The dismiss button also exists on the apply modal itself, so
			// confirm the apply form is actually gone
			if sel == ".artdeco-modal__dismiss" && m.findModal() != nil {
				continue
			}
			return true
		}
	}
	return false
}

// Close dismisses whatever modal is up, discarding the draft application
// when the platform asks for confirmation
func (m *RodModal) Close() error {
	dismiss, err := m.page.Element("button[aria-label='Dismiss'], .artdeco-modal__dismiss")
	if err != nil || dismiss == nil {
		return nil
	}
	if err := m.humanizer.Click(dismiss); err != nil {
		return fmt.Errorf("failed to dismiss modal: %w", err)
	}
	m.humanizer.Pause()

	// A partially filled application prompts a save/discard dialog
	if discard, err := m.page.Element("button[data-control-name='discard_application_confirm_btn'], .artdeco-modal__confirm-dialog-btn"); err == nil && discard != nil {
		if text, terr := discard.Text(); terr == nil && strings.Contains(strings.ToLower(text), "save") {
			// The confirm dialog carries both buttons under the same class;
			// pick the sibling that discards
			if buttons, berr := m.page.Elements(".artdeco-modal__confirm-dialog-btn"); berr == nil {
				for _, b := range buttons {
					if t, e := b.Text(); e == nil && strings.Contains(strings.ToLower(t), "discard") {
						discard = b
						break
					}
				}
			}
		}
		if err := m.humanizer.Click(discard); err != nil {
			return fmt.Errorf("failed to discard draft application: %w", err)
		}
	}
	return nil
}

func (m *RodModal) applyButton() *rod.Element {
	selectors := []string{
		"button.jobs-apply-button",
		"div.jobs-apply-button--top-card button",
	}
	for _, sel := range selectors {
		el, err := m.page.Element(sel)
		if err != nil || el == nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		lowered := strings.ToLower(text)
		// "Easy Apply" opens the modal; a bare "Apply" leaves the site
		if strings.Contains(lowered, "easy apply") {
			return el
		}
	}
	return nil
}

func (m *RodModal) waitModal() bool {
	deadline := time.Now().Add(m.timeout)
	for time.Now().Before(deadline) {
		if m.findModal() != nil {
			return true
		}
		time.Sleep(250 * time.Millisecond)
	}
	return false
}

func (m *RodModal) findModal() *rod.Element {
	selectors := []string{
		".jobs-easy-apply-content",
		".jobs-easy-apply-modal",
		"div[data-test-modal]",
	}
	for _, sel := range selectors {
		if el, err := m.page.Element(sel); err == nil && el != nil {
			return el
		}
	}
	return nil
}

func (m *RodModal) footerButtonByText(modal *rod.Element, action Action) *rod.Element {
	buttons, err := modal.Elements("footer button, .jobs-easy-apply-footer button")
	if err != nil {
		return nil
	}
	want := map[Action][]string{
		ActionSubmit: {"submit"},
		ActionReview: {"review"},
		ActionNext:   {"next", "continue"},
	}[action]
	for _, b := range buttons {
		text, err := b.Text()
		if err != nil {
			continue
		}
		lowered := strings.ToLower(text)
		for _, w := range want {
			if strings.Contains(lowered, w) {
				return b
			}
		}
	}
	return nil
}

// FormFiller adapts the form dispatcher to the Filler interface by
// enumerating the live modal each pass
type FormFiller struct {
	handler *form.FormHandler
	reader  *form.ModalReader
}

// NewFormFiller creates a filler over the given dispatcher and modal reader
func NewFormFiller(handler *form.FormHandler, reader *form.ModalReader) *FormFiller {
	return &FormFiller{handler: handler, reader: reader}
}

// Fill runs fill passes over the currently visible step
func (f *FormFiller) Fill(ctx context.Context) (form.Result, error) {
	return f.handler.FillVisible(ctx, f.reader.Enumerate)
}
