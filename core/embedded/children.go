package embedded

import (
	"context"
	"fmt"
	"strconv"

	"github.com/artpar/erpkit/core/crud"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/storage"
)

// ChildSource is the data of a child module limited to one parent record.
// New records are attached to the parent. Updates and removals of records
// belonging to another parent fail with storage.ErrNotFound.
type ChildSource struct {
	svc      *crud.Service
	parentID int64
}

var _ crud.Source = (*ChildSource)(nil)

// NewChildSource scopes svc to the children of parentID.
func NewChildSource(svc *crud.Service, parentID int64) *ChildSource {
	return &ChildSource{svc: svc, parentID: parentID}
}

// FetchAll returns the parent's children.
func (c *ChildSource) FetchAll(ctx context.Context) ([]listview.Row, error) {
	return c.svc.Children(ctx, c.parentID)
}

// Create inserts input as a child of the parent.
func (c *ChildSource) Create(ctx context.Context, input map[string]any) (storage.Record, error) {
	data := make(map[string]any, len(input)+1)
	for k, v := range input {
		data[k] = v
	}
	if p := c.svc.Module().Source.Parent; p != nil {
		data[p.ForeignKey] = c.parentID
	}
	return c.svc.Create(ctx, data)
}

// Update patches a child of the parent. The record stays attached to it.
func (c *ChildSource) Update(ctx context.Context, id int64, patch map[string]any) (storage.Record, error) {
	if err := c.owns(ctx, id); err != nil {
		return nil, err
	}
	data := make(map[string]any, len(patch))
	for k, v := range patch {
		data[k] = v
	}
	if p := c.svc.Module().Source.Parent; p != nil {
		if _, ok := data[p.ForeignKey]; ok {
			data[p.ForeignKey] = c.parentID
		}
	}
	return c.svc.Update(ctx, id, data)
}

// Remove deletes children of the parent. Nothing is deleted when any id
// is not one of them.
func (c *ChildSource) Remove(ctx context.Context, ids []int64) (int64, error) {
	for _, id := range ids {
		if err := c.owns(ctx, id); err != nil {
			return 0, err
		}
	}
	return c.svc.Remove(ctx, ids)
}

func (c *ChildSource) owns(ctx context.Context, id int64) error {
	p := c.svc.Module().Source.Parent
	if p == nil {
		return fmt.Errorf("module %q has no parent", c.svc.Name())
	}
	rec, err := c.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if !sameID(rec[p.ForeignKey], c.parentID) {
		return fmt.Errorf("%s %d: %w", c.svc.Name(), id, storage.ErrNotFound)
	}
	return nil
}

func sameID(v any, id int64) bool {
	switch n := v.(type) {
	case int64:
		return n == id
	case int:
		return int64(n) == id
	case float64:
		return n == float64(id)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return err == nil && parsed == id
	default:
		return false
	}
}

// Engine returns a client-side list engine over the parent's children.
func (c *ChildSource) Engine() *listview.Engine {
	mod := c.svc.Module()
	return listview.NewEngine(mod.Columns, mod.SearchFields, listview.WithSource(c))
}
