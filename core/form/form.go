// Package form runs a generic create/edit form described by module
// sections: it holds the entered values, validates them on submit and
// drives the submission state machine
//
//	Idle -> Submitting -> Success -> Idle
//	                   -> Error   -> Idle
//
// The engine never navigates. Callers react through Hooks.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/validation"
	"github.com/rs/zerolog"
)

// ErrBusy is returned by Submit while a submission is in flight.
var ErrBusy = errors.New("form: submission in progress")

// FallbackMessage is shown when a failed submission carries no message.
const FallbackMessage = "Có lỗi xảy ra khi lưu dữ liệu"

// Status is a submission state.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Mode says whether the form creates a record or edits one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Component renders a custom field and turns its raw input into the value
// that is validated and submitted, e.g. an avatar uploader turning an
// upload handle into a stored URL.
type Component interface {
	Name() string
	Normalize(raw any) (any, error)
}

// Handler persists validated values. A returned error keeps the form
// populated; its message is surfaced to the user.
type Handler func(ctx context.Context, values map[string]any) error

// Hooks observe a submission. All are optional.
type Hooks struct {
	OnSuccess func(values map[string]any)
	OnError   func(err error, message string)
	OnStatus  func(Status)
}

// ValidationError is returned by Submit when values fail validation.
type ValidationError struct {
	Result schema.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Result.Error())
}

// Config configures an Engine.
type Config struct {
	Sections []schema.Section
	Mode     Mode

	// Defaults seed the values: declared field defaults for a create, the
	// stored record for an edit.
	Defaults map[string]any

	Components []Component
	Validator  *validation.Validator
	Logger     zerolog.Logger
}

// Engine is one open form. Safe for concurrent use.
type Engine struct {
	sections   []schema.Section
	mode       Mode
	components map[string]Component
	validator  *validation.Validator
	logger     zerolog.Logger

	mu        sync.Mutex
	defaults  map[string]any
	values    map[string]any
	errors    map[string]string
	status    Status
	outcome   Status
	lastError string
}

// New creates a form engine.
func New(cfg Config) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = ModeCreate
	}
	if cfg.Validator == nil {
		cfg.Validator = validation.New(validation.Vietnamese)
	}

	e := &Engine{
		sections:   cfg.Sections,
		mode:       cfg.Mode,
		components: make(map[string]Component, len(cfg.Components)),
		validator:  cfg.Validator,
		logger:     cfg.Logger,
		defaults:   make(map[string]any),
		values:     make(map[string]any),
		errors:     make(map[string]string),
	}
	for _, c := range cfg.Components {
		e.components[c.Name()] = c
	}

	for _, sec := range cfg.Sections {
		for _, f := range sec.Fields {
			if f.Default != nil {
				e.defaults[f.Name] = f.Default
			}
		}
	}
	for k, v := range cfg.Defaults {
		e.defaults[k] = v
	}
	return e
}

// Mode returns the form mode.
func (e *Engine) Mode() Mode { return e.mode }

// Sections returns the form sections.
func (e *Engine) Sections() []schema.Section { return e.sections }

// Values returns the defaults overlaid with the entered values.
func (e *Engine) Values() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.merged()
}

func (e *Engine) merged() map[string]any {
	out := make(map[string]any, len(e.defaults)+len(e.values))
	for k, v := range e.defaults {
		out[k] = v
	}
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Set records an entered value and clears that field's error.
func (e *Engine) Set(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[name] = value
	delete(e.errors, name)
}

// Reset drops entered values and errors.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values = make(map[string]any)
	e.errors = make(map[string]string)
	e.lastError = ""
}

// Status returns the current submission state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Outcome returns how the last completed submission ended: StatusSuccess,
// StatusError, or StatusIdle if none completed.
func (e *Engine) Outcome() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outcome
}

// Errors returns the field errors of the last submission.
func (e *Engine) Errors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.errors))
	for k, v := range e.errors {
		out[k] = v
	}
	return out
}

// LastError returns the message of the last failed handler call.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

// Submit validates the values and, when valid, passes them to handler.
// A concurrent call returns ErrBusy. Validation failures return a
// *ValidationError without calling handler. Handler failures leave the
// entered values in place. The engine is Idle again when Submit returns,
// including when handler panics.
func (e *Engine) Submit(ctx context.Context, handler Handler, hooks Hooks) error {
	e.mu.Lock()
	if e.status == StatusSubmitting {
		e.mu.Unlock()
		return ErrBusy
	}
	e.status = StatusSubmitting
	values := e.merged()
	e.mu.Unlock()
	notify(hooks, StatusSubmitting)
	defer e.settle(hooks)

	values, result := e.prepare(values)
	if !result.Valid {
		e.mu.Lock()
		e.errors = result.FieldErrors()
		e.mu.Unlock()

		e.logger.Debug().Int("errors", len(result.Errors)).Msg("form validation failed")
		return &ValidationError{Result: result}
	}

	err := handler(ctx, values)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = FallbackMessage
		}

		e.mu.Lock()
		e.errors = make(map[string]string)
		e.lastError = msg
		e.outcome = StatusError
		e.status = StatusError
		e.mu.Unlock()
		notify(hooks, StatusError)

		e.logger.Warn().Err(err).Str("mode", string(e.mode)).Msg("form submit failed")
		if hooks.OnError != nil {
			hooks.OnError(err, msg)
		}
		return err
	}

	e.mu.Lock()
	e.errors = make(map[string]string)
	e.lastError = ""
	e.outcome = StatusSuccess
	e.status = StatusSuccess
	e.mu.Unlock()
	notify(hooks, StatusSuccess)

	if hooks.OnSuccess != nil {
		hooks.OnSuccess(values)
	}
	return nil
}

func (e *Engine) settle(hooks Hooks) {
	e.mu.Lock()
	e.status = StatusIdle
	e.mu.Unlock()
	notify(hooks, StatusIdle)
}

func notify(hooks Hooks, s Status) {
	if hooks.OnStatus != nil {
		hooks.OnStatus(s)
	}
}

// prepare normalizes custom fields and validates the result.
func (e *Engine) prepare(values map[string]any) (map[string]any, schema.ValidationResult) {
	result := schema.ValidationResult{Valid: true}

	for _, sec := range e.sections {
		for _, f := range sec.Fields {
			if f.Type != schema.FieldTypeCustom {
				continue
			}
			c, ok := e.components[f.Component]
			if !ok {
				result.AddError(f.Name, "component", f.Component, fmt.Sprintf("component %q is not registered", f.Component))
				continue
			}
			raw, has := values[f.Name]
			if !has {
				continue
			}
			v, err := c.Normalize(raw)
			if err != nil {
				result.AddError(f.Name, "component", raw, err.Error())
				continue
			}
			values[f.Name] = v
		}
	}

	var checked schema.ValidationResult
	if e.mode == ModeEdit {
		checked = e.validator.ValidatePatch(e.sections, values)
	} else {
		checked = e.validator.Validate(e.sections, values)
	}
	for _, ce := range checked.Errors {
		result.Add(ce)
	}
	return values, result
}
