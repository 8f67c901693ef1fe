package form

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin-easyapply/answers"
	"linkedin-easyapply/resume"
)

type fakeInput struct {
	texts   []string
	options []string
	toggles []bool
	uploads []string
	err     error
}

func (f *fakeInput) SetText(text string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeInput) SelectOption(option string) error {
	if f.err != nil {
		return f.err
	}
	f.options = append(f.options, option)
	return nil
}

func (f *fakeInput) Toggle(on bool) error {
	if f.err != nil {
		return f.err
	}
	f.toggles = append(f.toggles, on)
	return nil
}

func (f *fakeInput) Upload(path string) error {
	if f.err != nil {
		return f.err
	}
	f.uploads = append(f.uploads, path)
	return nil
}

type fakeAnswerer struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeAnswerer) Ask(ctx context.Context, req answers.Request) (answers.Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return answers.Response{}, f.errs[i]
	}
	if i < len(f.responses) {
		return answers.Response{Text: f.responses[i]}, nil
	}
	return answers.Response{}, errors.New("no scripted answer left")
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testResume() *resume.Data {
	return &resume.Data{
		Personal: resume.Personal{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "+49 170 0000000",
			City:      "Berlin",
		},
		Experience: []resume.Experience{
			{Title: "Backend Engineer", StartYear: 2019, EndYear: 2022, Skills: []string{"Python", "Go"}},
			{Title: "Senior Engineer", StartYear: 2022, EndYear: 2024, Description: "Python services"},
		},
		Skills:    []string{"Go", "Python", "SQL"},
		Languages: []string{"English", "German"},
		Defaults: resume.Defaults{
			NoticePeriodWeeks:   4,
			SalaryExpectation:   "75000 EUR",
			WorkAuthorization:   true,
			RequiresSponsorship: false,
			WillingToRelocate:   true,
		},
	}
}

func TestNumericHandlerYearsOfExperienceFromResume(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{}
	h := &NumericHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
	input := &fakeInput{}
	c := &Control{Kind: KindNumeric, Label: "How many years of experience do you have with Python?", Input: input}

	require.True(t, h.CanHandle(c))
	require.NoError(t, h.Handle(context.Background(), c))

	// 2019 through 2024 spans five years, answered without the generator
	require.Len(t, input.texts, 1)
	assert.Equal(t, "5", input.texts[0])
	assert.Zero(t, answerer.calls)
}

func TestNumericHandlerNoticePeriod(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{}
	h := &NumericHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
	input := &fakeInput{}
	c := &Control{Kind: KindNumeric, Label: "What is your notice period in weeks?", Input: input}

	require.NoError(t, h.Handle(context.Background(), c))
	assert.Equal(t, []string{"4"}, input.texts)
	assert.Zero(t, answerer.calls)
}

func TestNumericHandlerFallsBackToGenerator(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{responses: []string{"I would rate myself 8 out of 10"}}
	h := &NumericHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
	input := &fakeInput{}
	c := &Control{Kind: KindNumeric, Label: "Rate your proficiency in Kubernetes from 1 to 10", Input: input}

	require.NoError(t, h.Handle(context.Background(), c))
	assert.Equal(t, []string{"8"}, input.texts)
	assert.Equal(t, 1, answerer.calls)
}

func TestNumericHandlerRejectsNonNumericAnswer(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{responses: []string{"quite a lot"}}
	h := &NumericHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
	input := &fakeInput{}
	c := &Control{Kind: KindNumeric, Label: "Rate your proficiency in Kubernetes", Input: input}

	assert.Error(t, h.Handle(context.Background(), c))
	assert.Empty(t, input.texts)
}

func TestChoiceHandlerDeterministicYesNo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		label string
		want  string
	}{
		{"sponsorship not needed", "Will you now or in the future require sponsorship?", "No"},
		{"authorized to work", "Are you legally authorized to work in Germany?", "Yes"},
		{"willing to relocate", "Are you willing to relocate?", "Yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answerer := &fakeAnswerer{}
			h := &ChoiceHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
			input := &fakeInput{}
			c := &Control{Kind: KindRadio, Label: tt.label, Options: []string{"Yes", "No"}, Input: input}

			require.NoError(t, h.Handle(context.Background(), c))
			assert.Equal(t, []string{tt.want}, input.options)
			assert.Zero(t, answerer.calls)
		})
	}
}

func TestChoiceHandlerDelegatesUnknownQuestions(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{responses: []string{"Hybrid"}}
	h := &ChoiceHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
	input := &fakeInput{}
	c := &Control{Kind: KindSelect, Label: "What is your preferred work setup?", Options: []string{"Remote", "Hybrid", "On-site"}, Input: input}

	require.NoError(t, h.Handle(context.Background(), c))
	assert.Equal(t, []string{"Hybrid"}, input.options)
	assert.Equal(t, 1, answerer.calls)
}

func TestMultiChoiceHandlerSelectsResumeMatches(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{}
	h := &MultiChoiceHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
	input := &fakeInput{}
	c := &Control{Kind: KindCheckboxGroup, Label: "Which languages do you speak?", Options: []string{"English", "French", "German"}, Input: input}

	require.NoError(t, h.Handle(context.Background(), c))
	assert.Equal(t, []string{"English", "German"}, input.options)
	assert.Zero(t, answerer.calls)
}

func TestCheckboxHandlerTicksAgreements(t *testing.T) {
	t.Parallel()

	h := &CheckboxHandler{logger: quietLogger()}

	agree := &fakeInput{}
	c := &Control{Kind: KindCheckbox, Label: "I agree to the terms of service", Input: agree}
	require.NoError(t, h.Handle(context.Background(), c))
	assert.Equal(t, []bool{true}, agree.toggles)

	optional := &fakeInput{}
	c = &Control{Kind: KindCheckbox, Label: "Subscribe to the newsletter", Input: optional}
	require.NoError(t, h.Handle(context.Background(), c))
	assert.Empty(t, optional.toggles)

	required := &fakeInput{}
	c = &Control{Kind: KindCheckbox, Label: "Subscribe to the newsletter", Required: true, Input: required}
	require.NoError(t, h.Handle(context.Background(), c))
	assert.Equal(t, []bool{true}, required.toggles)
}

func TestTextHandlerContactFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		want  string
	}{
		{"First name", "Ada"},
		{"Last name", "Lovelace"},
		{"Email address", "ada@example.com"},
		{"Phone number", "+49 170 0000000"},
		{"City", "Berlin"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			answerer := &fakeAnswerer{}
			h := &TextHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
			input := &fakeInput{}
			c := &Control{Kind: KindText, Label: tt.label, Input: input}

			require.NoError(t, h.Handle(context.Background(), c))
			assert.Equal(t, []string{tt.want}, input.texts)
			assert.Zero(t, answerer.calls)
		})
	}
}

func TestTextHandlerRetriesPlaceholderAnswer(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{responses: []string{
		"What motivates you?",
		"Building reliable backend systems motivates me most.",
	}}
	h := &TextHandler{data: testResume(), answerer: answerer, logger: quietLogger()}
	input := &fakeInput{}
	c := &Control{Kind: KindText, Label: "What motivates you?", Input: input}

	require.NoError(t, h.Handle(context.Background(), c))
	assert.Equal(t, 2, answerer.calls)
	require.Len(t, input.texts, 1)
	assert.Equal(t, "Building reliable backend systems motivates me most.", input.texts[0])
}

func TestUploadHandler(t *testing.T) {
	t.Parallel()

	h := &UploadHandler{uploadPath: "/tmp/resume.pdf", logger: quietLogger()}
	input := &fakeInput{}
	c := &Control{Kind: KindUpload, Label: "Resume", Input: input}

	require.True(t, h.CanHandle(c))
	require.NoError(t, h.Handle(context.Background(), c))
	assert.Equal(t, []string{"/tmp/resume.pdf"}, input.uploads)

	empty := &UploadHandler{logger: quietLogger()}
	assert.Error(t, empty.Handle(context.Background(), c))
}

func TestDefaultHandlersPriorityOrder(t *testing.T) {
	t.Parallel()

	handlers := DefaultHandlers(testResume(), &fakeAnswerer{}, "/tmp/resume.pdf", quietLogger())
	var names []string
	for _, h := range handlers {
		names = append(names, h.Name())
	}
	assert.Equal(t, []string{"upload", "numeric", "choice", "multi_choice", "checkbox", "text"}, names)
}

func TestNumericBeatsTextForYearsQuestions(t *testing.T) {
	t.Parallel()

	handlers := DefaultHandlers(testResume(), &fakeAnswerer{}, "", quietLogger())
	c := &Control{Kind: KindText, Label: "How many years of experience do you have with Go?"}

	for _, h := range handlers {
		if h.CanHandle(c) {
			assert.Equal(t, "numeric", h.Name())
			return
		}
	}
	t.Fatal("no handler recognized the control")
}
