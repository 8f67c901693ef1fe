package apply

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin-easyapply/auth"
	"linkedin-easyapply/form"
	"linkedin-easyapply/jobs"
)

type fakeModal struct {
	open       bool
	openResult bool
	openErr    error
	openCalls  int
	advanced   []Action
	advanceErr error
	confirmed  bool
	closeCalls int
}

func (m *fakeModal) Open(ctx context.Context, posting jobs.Posting) (bool, error) {
	m.openCalls++
	if m.openErr != nil {
		return false, m.openErr
	}
	m.open = m.openResult
	return m.openResult, nil
}

func (m *fakeModal) IsOpen() bool { return m.open }

func (m *fakeModal) Advance(action Action) error {
	if m.advanceErr != nil {
		return m.advanceErr
	}
	m.advanced = append(m.advanced, action)
	if action == ActionSubmit {
		m.open = false
	}
	return nil
}

func (m *fakeModal) SubmitConfirmed() bool { return m.confirmed }

func (m *fakeModal) Close() error {
	m.closeCalls++
	m.open = false
	return nil
}

type fakeFiller struct {
	calls int
}

func (f *fakeFiller) Fill(ctx context.Context) (form.Result, error) {
	f.calls++
	return form.Result{}, nil
}

// scriptedNav returns a fixed sequence of actions, repeating the last one
type scriptedNav struct {
	actions []Action
	idx     int
}

func (n *scriptedNav) Decide() (Action, error) {
	if n.idx < len(n.actions)-1 {
		a := n.actions[n.idx]
		n.idx++
		return a, nil
	}
	return n.actions[len(n.actions)-1], nil
}

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testPosting() jobs.Posting {
	return jobs.Posting{ExternalID: "42", Title: "Engineer", Company: "Initech", ListingURL: "https://example.test/jobs/view/42"}
}

func TestApplySubmitsMultiStepApplication(t *testing.T) {
	t.Parallel()

	modal := &fakeModal{openResult: true, confirmed: true}
	filler := &fakeFiller{}
	nav := &scriptedNav{actions: []Action{ActionNext, ActionReview, ActionSubmit}}
	applier := NewEasyApplier(modal, filler, nav, 10, 0, silentLogger())

	attempt, err := applier.Apply(context.Background(), testPosting())
	require.NoError(t, err)

	assert.Equal(t, jobs.OutcomeSubmitted, attempt.Outcome)
	assert.Empty(t, attempt.Reason)
	assert.Equal(t, []Action{ActionNext, ActionReview, ActionSubmit}, modal.advanced)
	assert.Equal(t, 3, filler.calls)
	assert.False(t, modal.IsOpen())
}

func TestApplySkipsUnsupportedPosting(t *testing.T) {
	t.Parallel()

	modal := &fakeModal{openResult: false}
	applier := NewEasyApplier(modal, &fakeFiller{}, &scriptedNav{actions: []Action{ActionNext}}, 10, 0, silentLogger())

	attempt, err := applier.Apply(context.Background(), testPosting())
	require.NoError(t, err)

	assert.Equal(t, jobs.OutcomeSkipped, attempt.Outcome)
	assert.Equal(t, jobs.ReasonNotSupported, attempt.Reason)
	assert.Empty(t, modal.advanced)
}

func TestApplyAbortsAfterTwoConsecutiveBlockedSteps(t *testing.T) {
	t.Parallel()

	modal := &fakeModal{openResult: true}
	filler := &fakeFiller{}
	nav := &scriptedNav{actions: []Action{ActionBlocked}}
	applier := NewEasyApplier(modal, filler, nav, 10, 0, silentLogger())

	attempt, err := applier.Apply(context.Background(), testPosting())
	require.NoError(t, err)

	assert.Equal(t, jobs.OutcomeAborted, attempt.Outcome)
	assert.Equal(t, jobs.ReasonUnresolvableField, attempt.Reason)
	// One extra fill pass runs between the two blocked observations
	assert.Equal(t, 2, filler.calls)
	assert.False(t, modal.IsOpen())
	assert.Equal(t, 1, modal.closeCalls)
}

func TestApplyBlockedOnceThenRecovers(t *testing.T) {
	t.Parallel()

	modal := &fakeModal{openResult: true, confirmed: true}
	nav := &scriptedNav{actions: []Action{ActionBlocked, ActionSubmit}}
	applier := NewEasyApplier(modal, &fakeFiller{}, nav, 10, 0, silentLogger())

	attempt, err := applier.Apply(context.Background(), testPosting())
	require.NoError(t, err)
	assert.Equal(t, jobs.OutcomeSubmitted, attempt.Outcome)
}

func TestApplyAbortsAtStepLimit(t *testing.T) {
	t.Parallel()

	modal := &fakeModal{openResult: true}
	nav := &scriptedNav{actions: []Action{ActionNext}}
	applier := NewEasyApplier(modal, &fakeFiller{}, nav, 4, 0, silentLogger())

	attempt, err := applier.Apply(context.Background(), testPosting())
	require.NoError(t, err)

	assert.Equal(t, jobs.OutcomeAborted, attempt.Outcome)
	assert.Equal(t, jobs.ReasonStepLimitExceeded, attempt.Reason)
	assert.Len(t, modal.advanced, 4)
	assert.False(t, modal.IsOpen())
}

// vanishingFiller simulates the modal disappearing mid-fill
type vanishingFiller struct {
	modal *fakeModal
}

func (f *vanishingFiller) Fill(ctx context.Context) (form.Result, error) {
	f.modal.open = false
	return form.Result{}, nil
}

func TestApplyReportsModalVanished(t *testing.T) {
	t.Parallel()

	modal := &fakeModal{openResult: true}
	nav := &scriptedNav{actions: []Action{ActionBlocked}}
	applier := NewEasyApplier(modal, &vanishingFiller{modal: modal}, nav, 10, 0, silentLogger())

	attempt, err := applier.Apply(context.Background(), testPosting())
	require.NoError(t, err)

	assert.Equal(t, jobs.OutcomeAborted, attempt.Outcome)
	assert.Equal(t, jobs.ReasonModalVanished, attempt.Reason)
	assert.Zero(t, modal.closeCalls)
}

func TestApplyTransientOpenFailureSkipsPosting(t *testing.T) {
	t.Parallel()

	modal := &fakeModal{openErr: errors.New("apply button not found")}
	applier := NewEasyApplier(modal, &fakeFiller{}, &scriptedNav{actions: []Action{ActionNext}}, 10, 0, silentLogger())

	attempt, err := applier.Apply(context.Background(), testPosting())
	require.NoError(t, err)

	assert.Equal(t, jobs.OutcomeSkipped, attempt.Outcome)
	assert.Equal(t, jobs.ReasonNotSupported, attempt.Reason)
	assert.Equal(t, 2, modal.openCalls)
}

func TestApplyDeadBrowserOnOpenIsFatal(t *testing.T) {
	t.Parallel()

	modal := &fakeModal{openErr: errors.New("websocket: close 1006 (abnormal closure)")}
	applier := NewEasyApplier(modal, &fakeFiller{}, &scriptedNav{actions: []Action{ActionNext}}, 10, 0, silentLogger())

	_, err := applier.Apply(context.Background(), testPosting())
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrBrowserClosed)
	// A dead browser is never retried
	assert.Equal(t, 1, modal.openCalls)
}

func TestApplyCancelledContextIsFatal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	modal := &fakeModal{openResult: true}
	applier := NewEasyApplier(modal, &fakeFiller{}, &scriptedNav{actions: []Action{ActionNext}}, 10, 0, silentLogger())

	attempt, err := applier.Apply(ctx, testPosting())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, jobs.OutcomeAborted, attempt.Outcome)
	assert.False(t, modal.IsOpen())
}

func TestApplyAlwaysClosesModal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		nav  *scriptedNav
	}{
		{"blocked", &scriptedNav{actions: []Action{ActionBlocked}}},
		{"step limit", &scriptedNav{actions: []Action{ActionNext}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modal := &fakeModal{openResult: true}
			applier := NewEasyApplier(modal, &fakeFiller{}, tt.nav, 3, 0, silentLogger())

			_, err := applier.Apply(context.Background(), testPosting())
			require.NoError(t, err)
			assert.False(t, modal.IsOpen())
		})
	}
}
