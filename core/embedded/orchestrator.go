package embedded

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/artpar/erpkit/core/crud"
	"github.com/artpar/erpkit/core/form"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/navigation"
	"github.com/artpar/erpkit/core/storage"
	"github.com/rs/zerolog"
)

var (
	// ErrWrongDialog is returned when an action needs a dialog that is not open.
	ErrWrongDialog = errors.New("embedded: dialog not open")

	// ErrNoID is returned when a record has no usable id.
	ErrNoID = errors.New("embedded: record has no id")
)

// Flags stores the per-module "skip view confirmation" choice.
type Flags interface {
	SkipConfirm(ctx context.Context, profile, module string) (bool, error)
	SetSkipConfirm(ctx context.Context, profile, module string, skip bool) error
}

// Config configures an Orchestrator.
type Config struct {
	// Module is the child module shown in the list.
	Module string

	// Profile namespaces the stored flags.
	Profile string

	// Paths builds the child module's full-page URLs.
	Paths navigation.Paths

	Flags Flags

	// Navigate leaves the parent page for path.
	Navigate func(path string)

	// IDKey is the record key holding the id, "id" by default.
	IDKey string

	Logger zerolog.Logger
}

// Orchestrator holds the dialog state of one embedded list. Safe for
// concurrent use.
type Orchestrator struct {
	cfg Config

	mu     sync.Mutex
	dialog Dialog
}

// New creates an orchestrator with every dialog closed.
func New(cfg Config) *Orchestrator {
	if cfg.IDKey == "" {
		cfg.IDKey = "id"
	}
	if cfg.Navigate == nil {
		cfg.Navigate = func(string) {}
	}
	cfg.Logger = cfg.Logger.With().Str("module", cfg.Module).Logger()
	return &Orchestrator{cfg: cfg, dialog: Closed{}}
}

// Dialog returns the open dialog.
func (o *Orchestrator) Dialog() Dialog {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dialog
}

func (o *Orchestrator) open(d Dialog) {
	o.mu.Lock()
	o.dialog = d
	o.mu.Unlock()
}

// SelectedItem returns the record of the open dialog, or nil.
func (o *Orchestrator) SelectedItem() listview.Row {
	return item(o.Dialog())
}

// IsEditMode reports whether an edit form is open.
func (o *Orchestrator) IsEditMode() bool {
	f, ok := o.Dialog().(Form)
	return ok && f.Mode == form.ModeEdit
}

// IsOpen reports whether the dialog of kind k is open.
func (o *Orchestrator) IsOpen(k Kind) bool {
	return o.Dialog().Kind() == k
}

// RowClick opens the detail dialog of row.
func (o *Orchestrator) RowClick(row listview.Row) { o.open(Detail{Item: row}) }

// Add opens an empty create form.
func (o *Orchestrator) Add() { o.open(Form{Mode: form.ModeCreate}) }

// Edit opens the edit form of row.
func (o *Orchestrator) Edit(row listview.Row) { o.open(Form{Item: row, Mode: form.ModeEdit}) }

// Delete opens the delete confirmation of row.
func (o *Orchestrator) Delete(row listview.Row) { o.open(Delete{Item: row}) }

// Close closes whatever dialog is open.
func (o *Orchestrator) Close() { o.open(Closed{}) }

// View leaves for the full detail page of row when the profile skips the
// confirmation, and opens the confirmation otherwise. It reports whether it
// navigated. A flag that cannot be read counts as unset.
func (o *Orchestrator) View(ctx context.Context, row listview.Row) (bool, error) {
	id, ok := o.id(row)
	if !ok {
		return false, ErrNoID
	}
	if o.skipConfirm(ctx) {
		o.Close()
		o.cfg.Navigate(o.cfg.Paths.Detail(id))
		return true, nil
	}
	o.open(ViewConfirm{Item: row})
	return false, nil
}

// ConfirmView answers the view confirmation. With dontAskAgain the module
// skips it from now on.
func (o *Orchestrator) ConfirmView(ctx context.Context, dontAskAgain bool) error {
	vc, ok := o.Dialog().(ViewConfirm)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWrongDialog, KindViewConfirm)
	}
	id, ok := o.id(vc.Item)
	if !ok {
		return ErrNoID
	}
	if dontAskAgain && o.cfg.Flags != nil {
		if err := o.cfg.Flags.SetSkipConfirm(ctx, o.cfg.Profile, o.cfg.Module, true); err != nil {
			o.cfg.Logger.Warn().Err(err).Msg("failed to store skip-confirm flag")
		}
	}
	o.Close()
	o.cfg.Navigate(o.cfg.Paths.Detail(id))
	return nil
}

func (o *Orchestrator) skipConfirm(ctx context.Context) bool {
	if o.cfg.Flags == nil {
		return false
	}
	skip, err := o.cfg.Flags.SkipConfirm(ctx, o.cfg.Profile, o.cfg.Module)
	if err != nil {
		o.cfg.Logger.Warn().Err(err).Msg("failed to read skip-confirm flag")
		return false
	}
	return skip
}

// FormSubmitted runs submit for the open form and closes it once submit
// succeeds. On failure the form stays open with its record.
func (o *Orchestrator) FormSubmitted(ctx context.Context, submit func(ctx context.Context, f Form) error) error {
	f, ok := o.Dialog().(Form)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWrongDialog, KindForm)
	}
	if err := submit(ctx, f); err != nil {
		return err
	}
	o.Close()
	return nil
}

// DeleteConfirmed runs remove for the record of the open delete dialog and
// closes it once remove succeeds. On failure the dialog stays open.
func (o *Orchestrator) DeleteConfirmed(ctx context.Context, remove func(ctx context.Context, row listview.Row) error) error {
	d, ok := o.Dialog().(Delete)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWrongDialog, KindDelete)
	}
	if err := remove(ctx, d.Item); err != nil {
		return err
	}
	o.Close()
	return nil
}

// FormEngine opens a form engine for the open form dialog, seeded with the
// record being edited.
func (o *Orchestrator) FormEngine(cfg form.Config) (*form.Engine, error) {
	f, ok := o.Dialog().(Form)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWrongDialog, KindForm)
	}
	cfg.Mode = f.Mode
	if f.Item != nil {
		defaults := make(map[string]any, len(f.Item)+len(cfg.Defaults))
		for k, v := range cfg.Defaults {
			defaults[k] = v
		}
		for k, v := range f.Item {
			defaults[k] = v
		}
		cfg.Defaults = defaults
	}
	return form.New(cfg), nil
}

// Save submits fe through src: a create form inserts, an edit form patches
// the selected record. hooks observe the submission.
func (o *Orchestrator) Save(ctx context.Context, fe *form.Engine, src crud.Source, hooks form.Hooks) error {
	return o.FormSubmitted(ctx, func(ctx context.Context, f Form) error {
		return fe.Submit(ctx, func(ctx context.Context, values map[string]any) error {
			if f.Mode == form.ModeCreate {
				_, err := src.Create(ctx, values)
				return err
			}
			id, ok := o.id(f.Item)
			if !ok {
				return ErrNoID
			}
			_, err := src.Update(ctx, id, values)
			return err
		}, hooks)
	})
}

// Remove deletes the record of the open delete dialog through src.
func (o *Orchestrator) Remove(ctx context.Context, src crud.Source) error {
	return o.DeleteConfirmed(ctx, func(ctx context.Context, row listview.Row) error {
		id, ok := o.id(row)
		if !ok {
			return ErrNoID
		}
		n, err := src.Remove(ctx, []int64{id})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("remove %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

func (o *Orchestrator) id(row listview.Row) (int64, bool) {
	switch v := row[o.cfg.IDKey].(type) {
	case int64:
		return v, v > 0
	case int:
		return int64(v), v > 0
	case float64:
		return int64(v), v > 0 && v == float64(int64(v))
	case string:
		return navigation.ParseID(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}
