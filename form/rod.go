package form

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"

	"linkedin-easyapply/stealth"
)

// ModalReader enumerates the visible controls of the Easy Apply modal into
// Control values backed by live elements
type ModalReader struct {
	page      *rod.Page
	humanizer *stealth.Humanizer
	logger    *logrus.Logger
}

// NewModalReader creates a reader bound to the page hosting the modal
func NewModalReader(page *rod.Page, humanizer *stealth.Humanizer, logger *logrus.Logger) *ModalReader {
	return &ModalReader{page: page, humanizer: humanizer, logger: logger}
}

// Enumerate builds the Control set for the currently visible modal step
func (r *ModalReader) Enumerate() ([]*Control, error) {
	modal, err := r.modalRoot()
	if err != nil {
		return nil, err
	}

	groups, err := modal.Elements(".fb-dash-form-element, .jobs-easy-apply-form-section__grouping")
	if err != nil || len(groups) == 0 {
		// Single-control steps sometimes skip the grouping wrapper
		groups = []*rod.Element{modal}
	}

	var controls []*Control
	for _, group := range groups {
		control, err := r.readGroup(group)
		if err != nil {
			r.logger.WithError(err).Debug("Skipping unreadable form group")
			continue
		}
		if control != nil {
			controls = append(controls, control)
		}
	}
	return controls, nil
}

func (r *ModalReader) modalRoot() (*rod.Element, error) {
	selectors := []string{
		".jobs-easy-apply-content",
		".jobs-easy-apply-modal",
		"div[data-test-modal]",
	}
	for _, sel := range selectors {
		el, err := r.page.Element(sel)
		if err == nil && el != nil {
			return el, nil
		}
	}
	return nil, fmt.Errorf("application modal not found")
}

// readGroup classifies one form group into a Control
func (r *ModalReader) readGroup(group *rod.Element) (*Control, error) {
	label := r.groupLabel(group)

	if fileInput, err := group.Element("input[type='file']"); err == nil && fileInput != nil {
		return r.fileControl(fileInput, label)
	}

	if sel, err := group.Element("select"); err == nil && sel != nil {
		return r.selectControl(sel, label)
	}

	if radios, err := group.Elements("input[type='radio']"); err == nil && len(radios) > 0 {
		return r.radioControl(group, radios, label)
	}

	if boxes, err := group.Elements("input[type='checkbox']"); err == nil && len(boxes) > 0 {
		return r.checkboxControl(group, boxes, label)
	}

	textSelectors := "input[type='text'], input[type='email'], input[type='tel'], input[type='number'], textarea"
	if input, err := group.Element(textSelectors); err == nil && input != nil {
		return r.textControl(input, label)
	}

	return nil, nil
}

func (r *ModalReader) groupLabel(group *rod.Element) string {
	for _, sel := range []string{"label", "legend", ".fb-dash-form-element__label", "span[aria-hidden='true']"} {
		if el, err := group.Element(sel); err == nil && el != nil {
			if text, err := el.Text(); err == nil && strings.TrimSpace(text) != "" {
				return strings.TrimSpace(text)
			}
		}
	}
	return ""
}

func (r *ModalReader) textControl(input *rod.Element, label string) (*Control, error) {
	kind := KindText
	if t, err := input.Attribute("type"); err == nil && t != nil && *t == "number" {
		kind = KindNumeric
	}

	control := &Control{
		Kind:     kind,
		Label:    label,
		Required: isRequired(input),
		Input:    &rodInput{element: input, humanizer: r.humanizer},
	}

	if value, err := input.Property("value"); err == nil && strings.TrimSpace(value.Str()) != "" {
		control.MarkFilled()
	}
	return control, nil
}

func (r *ModalReader) selectControl(sel *rod.Element, label string) (*Control, error) {
	options, err := sel.Elements("option")
	if err != nil {
		return nil, fmt.Errorf("failed to read select options: %w", err)
	}

	var texts []string
	for _, opt := range options {
		if text, err := opt.Text(); err == nil {
			texts = append(texts, strings.TrimSpace(text))
		}
	}

	control := &Control{
		Kind:     KindSelect,
		Label:    label,
		Options:  texts,
		Required: isRequired(sel),
		Input:    &rodInput{element: sel, humanizer: r.humanizer},
	}

	// A value matching the placeholder option means still unfilled
	if value, err := sel.Property("value"); err == nil {
		current := strings.TrimSpace(value.Str())
		if current != "" && !isPlaceholderOption(current) {
			control.MarkFilled()
		}
	}
	return control, nil
}

func (r *ModalReader) radioControl(group *rod.Element, radios []*rod.Element, label string) (*Control, error) {
	var texts []string
	checked := false
	for _, radio := range radios {
		if value, err := radio.Attribute("value"); err == nil && value != nil {
			texts = append(texts, *value)
		}
		if state, err := radio.Property("checked"); err == nil && state.Bool() {
			checked = true
		}
	}

	control := &Control{
		Kind:     KindRadio,
		Label:    label,
		Options:  texts,
		Required: isRequired(radios[0]),
		Input:    &rodGroupInput{group: group, humanizer: r.humanizer},
	}
	if checked {
		control.MarkFilled()
	}
	return control, nil
}

func (r *ModalReader) checkboxControl(group *rod.Element, boxes []*rod.Element, label string) (*Control, error) {
	kind := KindCheckbox
	if len(boxes) > 1 {
		kind = KindCheckboxGroup
	}

	var texts []string
	checked := false
	for _, box := range boxes {
		if value, err := box.Attribute("value"); err == nil && value != nil {
			texts = append(texts, *value)
		}
		if state, err := box.Property("checked"); err == nil && state.Bool() {
			checked = true
		}
	}

	control := &Control{
		Kind:     kind,
		Label:    label,
		Options:  texts,
		Required: isRequired(boxes[0]),
		Input:    &rodGroupInput{group: group, humanizer: r.humanizer},
	}
	if checked {
		control.MarkFilled()
	}
	return control, nil
}

func (r *ModalReader) fileControl(input *rod.Element, label string) (*Control, error) {
	control := &Control{
		Kind:     KindUpload,
		Label:    label,
		Required: isRequired(input),
		Input:    &rodInput{element: input, humanizer: r.humanizer},
	}
	if value, err := input.Property("value"); err == nil && strings.TrimSpace(value.Str()) != "" {
		control.MarkFilled()
	}
	return control, nil
}

func isRequired(el *rod.Element) bool {
	if attr, err := el.Attribute("required"); err == nil && attr != nil {
		return true
	}
	if attr, err := el.Attribute("aria-required"); err == nil && attr != nil && *attr == "true" {
		return true
	}
	return false
}

// rodInput drives a single element (text input, textarea, select, file)
type rodInput struct {
	element   *rod.Element
	humanizer *stealth.Humanizer
}

func (i *rodInput) SetText(text string) error {
	if err := i.humanizer.Click(i.element); err != nil {
		return err
	}
	if err := i.element.SelectAllText(); err == nil {
		_ = i.element.Input("")
	}
	return i.humanizer.Type(i.element, text)
}

func (i *rodInput) SelectOption(option string) error {
	return i.element.Select([]string{option}, true, rod.SelectorTypeText)
}

func (i *rodInput) Toggle(on bool) error {
	state, err := i.element.Property("checked")
	if err != nil {
		return fmt.Errorf("failed to read checkbox state: %w", err)
	}
	if state.Bool() == on {
		return nil
	}
	return i.humanizer.Click(i.element)
}

func (i *rodInput) Upload(path string) error {
	return i.element.SetFiles([]string{path})
}

// rodGroupInput drives radio and checkbox groups by clicking the labeled
// option inside the group container
type rodGroupInput struct {
	group     *rod.Element
	humanizer *stealth.Humanizer
}

func (i *rodGroupInput) SetText(text string) error {
	return fmt.Errorf("group control does not accept text")
}

func (i *rodGroupInput) SelectOption(option string) error {
	labels, err := i.group.Elements("label")
	if err != nil {
		return fmt.Errorf("failed to list option labels: %w", err)
	}
	for _, label := range labels {
		text, err := label.Text()
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(option)) {
			return i.humanizer.Click(label)
		}
	}

	// Fall back to matching the input value attribute
	inputs, err := i.group.Elements("input")
	if err != nil {
		return fmt.Errorf("failed to list option inputs: %w", err)
	}
	for _, input := range inputs {
		if value, err := input.Attribute("value"); err == nil && value != nil &&
			strings.EqualFold(strings.TrimSpace(*value), strings.TrimSpace(option)) {
			return i.humanizer.Click(input)
		}
	}
	return fmt.Errorf("option %q not found in group", option)
}

func (i *rodGroupInput) Toggle(on bool) error {
	input, err := i.group.Element("input")
	if err != nil {
		return fmt.Errorf("failed to find group input: %w", err)
	}
	state, err := input.Property("checked")
	if err != nil {
		return fmt.Errorf("failed to read group input state: %w", err)
	}
	if state.Bool() == on {
		return nil
	}
	return i.humanizer.Click(input)
}

func (i *rodGroupInput) Upload(path string) error {
	return fmt.Errorf("group control does not accept files")
}
