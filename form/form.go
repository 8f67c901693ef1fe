package form

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Enumerator reads the currently visible controls. It is called once per
// fill pass because a handler's own fill action can make conditional
// controls appear.
type Enumerator func() ([]*Control, error)

// Result summarizes one FillVisible invocation
type Result struct {
	Filled     int
	Unresolved []*Control
	Passes     int
}

// FormHandler dispatches each visible unfilled control to the first handler
// whose CanHandle matches, in fixed priority order
type FormHandler struct {
	handlers []FieldHandler
	logger   *logrus.Logger
}

// NewFormHandler creates a form handler over an ordered handler list
func NewFormHandler(handlers []FieldHandler, logger *logrus.Logger) *FormHandler {
	return &FormHandler{handlers: handlers, logger: logger}
}

// FillVisible runs fill passes until every control is filled or the
// unresolved set stops shrinking across two consecutive passes. Handler
// failures leave a control unresolved; they never abort the pass.
func (f *FormHandler) FillVisible(ctx context.Context, enumerate Enumerator) (Result, error) {
	result := Result{}
	prevUnresolved := -1

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		controls, err := enumerate()
		if err != nil {
			return result, err
		}
		result.Passes++

		unresolved := f.fillPass(ctx, controls, &result)
		if len(unresolved) == 0 {
			result.Unresolved = nil
			return result, nil
		}

		if prevUnresolved >= 0 && len(unresolved) >= prevUnresolved {
			// Not shrinking anymore; escalate what's left
			result.Unresolved = unresolved
			return result, nil
		}
		prevUnresolved = len(unresolved)
	}
}

// fillPass runs one dispatch pass over the control set and returns the
// controls that remain unfilled
func (f *FormHandler) fillPass(ctx context.Context, controls []*Control, result *Result) []*Control {
	var unresolved []*Control

	for _, control := range controls {
		if control.Filled() {
			continue
		}

		handler := f.match(control)
		if handler == nil {
			f.logger.WithFields(logrus.Fields{
				"kind":  string(control.Kind),
				"label": control.Label,
			}).Warn("No handler recognizes control")
			unresolved = append(unresolved, control)
			continue
		}

		if err := handler.Handle(ctx, control); err != nil {
			f.logger.WithError(err).WithFields(logrus.Fields{
				"handler": handler.Name(),
				"label":   control.Label,
			}).Warn("Handler failed to fill control")
			unresolved = append(unresolved, control)
			continue
		}

		control.MarkFilled()
		result.Filled++
		f.logger.WithFields(logrus.Fields{
			"handler": handler.Name(),
			"label":   control.Label,
		}).Debug("Control filled")
	}

	return unresolved
}

// match finds the first handler whose predicate accepts the control
func (f *FormHandler) match(control *Control) FieldHandler {
	for _, handler := range f.handlers {
		if handler.CanHandle(control) {
			return handler
		}
	}
	return nil
}
