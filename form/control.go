package form

// Kind classifies a form control
type Kind string

const (
	KindText          Kind = "text"
	KindNumeric       Kind = "numeric"
	KindSelect        Kind = "select"
	KindRadio         Kind = "radio"
	KindCheckboxGroup Kind = "checkbox_group"
	KindCheckbox      Kind = "checkbox"
	KindUpload        Kind = "upload"
)

// Input performs the actual browser interaction for one control. The rod
// adapter implements it against the live modal; tests substitute fakes.
type Input interface {
	SetText(text string) error
	SelectOption(option string) error
	Toggle(on bool) error
	Upload(path string) error
}

// Control is the ephemeral context for one visible form control, built
// immediately before dispatch and discarded after the control is filled
// or escalated
type Control struct {
	Kind     Kind
	Label    string
	Options  []string
	Required bool
	Input    Input

	filled bool
}

// Filled reports whether the control already holds a value
func (c *Control) Filled() bool {
	return c.filled
}

// MarkFilled records that the control holds a value. Set by the enumerator
// for controls that already had values, and by the fill pass after a
// successful handler invocation.
func (c *Control) MarkFilled() {
	c.filled = true
}
