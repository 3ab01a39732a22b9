// Package crud is the data access boundary of a module: it validates
// input, persists records, and announces every mutation on the event bus.
package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/events"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/storage"
	"github.com/artpar/erpkit/core/validation"
	"github.com/rs/zerolog"
)

// Source is what list, detail and form views need from a module's data.
type Source interface {
	FetchAll(ctx context.Context) ([]listview.Row, error)
	Create(ctx context.Context, input map[string]any) (storage.Record, error)
	Update(ctx context.Context, id int64, patch map[string]any) (storage.Record, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
}

// Recorder counts mutations. result is "ok", "invalid" or "error".
type Recorder interface {
	RecordMutation(module, op, result string)
}

// Mutation names used for events and metrics.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

const (
	resultOK      = "ok"
	resultInvalid = "invalid"
	resultError   = "error"
)

// ValidationError wraps validation failures.
type ValidationError struct {
	Result schema.ValidationResult
}

// Error returns the validation error message.
func (e *ValidationError) Error() string {
	return "validation failed: " + e.Result.Error()
}

// Options configures a Service. Only Store is required.
type Options struct {
	Validator *validation.Validator
	Bus       *events.Bus
	Metrics   Recorder
	Logger    zerolog.Logger
}

// Service binds one module to a store.
type Service struct {
	mod       convention.Derived
	store     storage.Store
	validator *validation.Validator
	bus       *events.Bus
	metrics   Recorder
	logger    zerolog.Logger
}

var _ Source = (*Service)(nil)

// NewService creates a service for mod. The module's table must already
// exist in store.
func NewService(mod convention.Derived, store storage.Store, opts Options) *Service {
	v := opts.Validator
	if v == nil {
		v = validation.New(validation.Vietnamese)
	}
	return &Service{
		mod:       mod,
		store:     store,
		validator: v,
		bus:       opts.Bus,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With().Str("module", mod.Source.Name).Logger(),
	}
}

// Module returns the derived module the service serves.
func (s *Service) Module() convention.Derived { return s.mod }

// Name returns the module name.
func (s *Service) Name() string { return s.mod.Source.Name }

// FetchAll returns every record in id order.
func (s *Service) FetchAll(ctx context.Context) ([]listview.Row, error) {
	rows, _, err := s.store.List(ctx, s.Name(), storage.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.Name(), err)
	}
	return rows, nil
}

// Get returns one record or storage.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (storage.Record, error) {
	return s.store.Get(ctx, s.Name(), id)
}

// Children returns the records whose parent foreign key equals parentID.
// It fails for modules without a parent.
func (s *Service) Children(ctx context.Context, parentID int64) ([]listview.Row, error) {
	p := s.mod.Source.Parent
	if p == nil {
		return nil, fmt.Errorf("module %q has no parent", s.Name())
	}
	rows, _, err := s.store.List(ctx, s.Name(), storage.ListOptions{
		Where: []storage.Condition{{Field: p.ForeignKey, Op: storage.OpEq, Value: parentID}},
	})
	return rows, err
}

// Create validates input and stores it as a new record.
func (s *Service) Create(ctx context.Context, input map[string]any) (storage.Record, error) {
	data := s.withDefaults(s.writable(input))

	if res := s.validator.Validate(s.mod.Source.Sections, data); !res.Valid {
		s.record(OpCreate, resultInvalid)
		return nil, &ValidationError{Result: res}
	}

	rec, err := s.store.Create(ctx, s.Name(), data)
	if err != nil {
		s.record(OpCreate, resultError)
		s.logger.Warn().Err(err).Msg("create failed")
		return nil, err
	}
	s.record(OpCreate, resultOK)

	id := recordID(rec, s.mod.Source.PrimaryKey())
	s.logger.Debug().Int64("id", id).Msg("record created")
	s.publish(ctx, events.ActionCreated, rec, id)
	return rec, nil
}

// Update validates the keys present in patch and applies them.
func (s *Service) Update(ctx context.Context, id int64, patch map[string]any) (storage.Record, error) {
	data := s.writable(patch)

	if res := s.validator.ValidatePatch(s.mod.Source.Sections, data); !res.Valid {
		s.record(OpUpdate, resultInvalid)
		return nil, &ValidationError{Result: res}
	}

	rec, err := s.store.Update(ctx, s.Name(), id, data)
	if err != nil {
		s.record(OpUpdate, resultError)
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Int64("id", id).Msg("update failed")
		}
		return nil, err
	}
	s.record(OpUpdate, resultOK)
	s.publish(ctx, events.ActionUpdated, rec, id)
	return rec, nil
}

// Remove deletes the records with ids and returns how many existed.
func (s *Service) Remove(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.store.Delete(ctx, s.Name(), ids)
	if err != nil {
		s.record(OpDelete, resultError)
		s.logger.Warn().Err(err).Ints64("ids", ids).Msg("delete failed")
		return 0, err
	}
	s.record(OpDelete, resultOK)
	s.publish(ctx, events.ActionDeleted, nil, ids...)
	return n, nil
}

// Engine returns a list engine over the service. serverSide pushes
// queries to the store instead of filtering every row in memory.
func (s *Service) Engine(serverSide bool) *listview.Engine {
	opt := listview.WithSource(s)
	if serverSide {
		opt = listview.WithFetcher(Fetcher{svc: s})
	}
	return listview.NewEngine(s.mod.Columns, s.mod.SearchFields, opt)
}

// writable keeps the keys that map to stored columns, minus the id and
// timestamps.
func (s *Service) writable(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for _, c := range s.mod.Storage {
		if v, ok := input[c.Name]; ok {
			out[c.Name] = v
		}
	}
	return out
}

func (s *Service) withDefaults(data map[string]any) map[string]any {
	for _, f := range s.mod.Fields {
		if _, ok := data[f.Name]; !ok && f.Default != nil {
			data[f.Name] = f.Default
		}
	}
	return data
}

func (s *Service) publish(ctx context.Context, action string, rec storage.Record, ids ...int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.NewEvent(s.Name(), action, rec, ids...))
}

func (s *Service) record(op, result string) {
	if s.metrics != nil {
		s.metrics.RecordMutation(s.Name(), op, result)
	}
}

func recordID(rec storage.Record, pk string) int64 {
	switch v := rec[pk].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
