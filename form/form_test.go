package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedHandler accepts a fixed kind and counts invocations
type scriptedHandler struct {
	name    string
	kind    Kind
	err     error
	handled int
}

func (h *scriptedHandler) Name() string            { return h.name }
func (h *scriptedHandler) CanHandle(c *Control) bool { return c.Kind == h.kind }
func (h *scriptedHandler) Handle(ctx context.Context, c *Control) error {
	h.handled++
	return h.err
}

func staticEnumerator(controls []*Control) Enumerator {
	return func() ([]*Control, error) {
		return controls, nil
	}
}

func TestFillVisibleFillsEveryControl(t *testing.T) {
	t.Parallel()

	text := &scriptedHandler{name: "text", kind: KindText}
	check := &scriptedHandler{name: "checkbox", kind: KindCheckbox}
	f := NewFormHandler([]FieldHandler{check, text}, quietLogger())

	controls := []*Control{
		{Kind: KindText, Label: "First name"},
		{Kind: KindCheckbox, Label: "I agree"},
		{Kind: KindText, Label: "Email"},
	}

	result, err := f.FillVisible(context.Background(), staticEnumerator(controls))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Filled)
	assert.Empty(t, result.Unresolved)
	assert.Equal(t, 2, text.handled)
	assert.Equal(t, 1, check.handled)
	for _, c := range controls {
		assert.True(t, c.Filled())
	}
}

func TestFillVisibleIsIdempotent(t *testing.T) {
	t.Parallel()

	text := &scriptedHandler{name: "text", kind: KindText}
	f := NewFormHandler([]FieldHandler{text}, quietLogger())

	controls := []*Control{{Kind: KindText, Label: "First name"}}
	enumerate := staticEnumerator(controls)

	_, err := f.FillVisible(context.Background(), enumerate)
	require.NoError(t, err)
	require.Equal(t, 1, text.handled)

	// A second pass over the same filled set touches nothing
	result, err := f.FillVisible(context.Background(), enumerate)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Filled)
	assert.Equal(t, 1, text.handled)
}

func TestFillVisibleFirstMatchWins(t *testing.T) {
	t.Parallel()

	first := &scriptedHandler{name: "first", kind: KindText}
	second := &scriptedHandler{name: "second", kind: KindText}
	f := NewFormHandler([]FieldHandler{first, second}, quietLogger())

	_, err := f.FillVisible(context.Background(), staticEnumerator([]*Control{{Kind: KindText}}))
	require.NoError(t, err)

	assert.Equal(t, 1, first.handled)
	assert.Zero(t, second.handled)
}

func TestFillVisibleStopsWhenUnresolvedSetStopsShrinking(t *testing.T) {
	t.Parallel()

	failing := &scriptedHandler{name: "failing", kind: KindText, err: errors.New("cannot fill")}
	working := &scriptedHandler{name: "working", kind: KindCheckbox}
	f := NewFormHandler([]FieldHandler{failing, working}, quietLogger())

	controls := []*Control{
		{Kind: KindText, Label: "Broken"},
		{Kind: KindCheckbox, Label: "Fine"},
	}

	result, err := f.FillVisible(context.Background(), staticEnumerator(controls))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Filled)
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, "Broken", result.Unresolved[0].Label)
	// The failing control is retried once before the set stops shrinking
	assert.Equal(t, 2, failing.handled)
}

func TestFillVisibleUnrecognizedControlLeftUnresolved(t *testing.T) {
	t.Parallel()

	text := &scriptedHandler{name: "text", kind: KindText}
	f := NewFormHandler([]FieldHandler{text}, quietLogger())

	controls := []*Control{{Kind: KindUpload, Label: "Resume"}}

	result, err := f.FillVisible(context.Background(), staticEnumerator(controls))
	require.NoError(t, err)
	require.Len(t, result.Unresolved, 1)
	assert.Zero(t, text.handled)
}

func TestFillVisibleEnumeratorErrorPropagates(t *testing.T) {
	t.Parallel()

	f := NewFormHandler(nil, quietLogger())
	boom := errors.New("modal gone")

	_, err := f.FillVisible(context.Background(), func() ([]*Control, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
