package embedded

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/erpkit/adapters/clock"
	"github.com/artpar/erpkit/adapters/idgen"
	"github.com/artpar/erpkit/adapters/memory"
	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/crud"
	"github.com/artpar/erpkit/core/form"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/navigation"
	"github.com/artpar/erpkit/core/prefs"
	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ paths []string }

func (r *recorder) navigate(path string) { r.paths = append(r.paths, path) }

func newOrchestrator(t *testing.T) (*Orchestrator, *recorder, *prefs.Store) {
	t.Helper()
	flags := prefs.New(memory.NewKVStore(), clock.Real{}, idgen.UUID{}, zerolog.Nop())
	nav := &recorder{}
	o := New(Config{
		Module:   "than_nhan",
		Profile:  "p1",
		Paths:    navigation.NewResolver(navigation.DefaultTokens()).Paths("/nhan-su/than-nhan"),
		Flags:    flags,
		Navigate: nav.navigate,
		Logger:   zerolog.Nop(),
	})
	return o, nav, flags
}

func TestOrchestrator_Transitions(t *testing.T) {
	a := listview.Row{"id": int64(1), "ho_ten": "Nguyễn Văn An"}
	b := listview.Row{"id": int64(2), "ho_ten": "Trần Thị Bình"}

	tests := []struct {
		name     string
		actions  func(o *Orchestrator)
		kind     Kind
		selected listview.Row
		editMode bool
	}{
		{"initial", func(o *Orchestrator) {}, KindClosed, nil, false},
		{"row click", func(o *Orchestrator) { o.RowClick(a) }, KindDetail, a, false},
		{"add", func(o *Orchestrator) { o.RowClick(a); o.Add() }, KindForm, nil, false},
		{"add then edit", func(o *Orchestrator) { o.Add(); o.Edit(b) }, KindForm, b, true},
		{"edit then add", func(o *Orchestrator) { o.Edit(b); o.Add() }, KindForm, nil, false},
		{"delete", func(o *Orchestrator) { o.Edit(a); o.Delete(b) }, KindDelete, b, false},
		{"close", func(o *Orchestrator) { o.Delete(b); o.Close() }, KindClosed, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _, _ := newOrchestrator(t)
			tt.actions(o)

			assert.Equal(t, tt.kind, o.Dialog().Kind())
			assert.Equal(t, tt.selected, o.SelectedItem())
			assert.Equal(t, tt.editMode, o.IsEditMode())
			for _, k := range []Kind{KindClosed, KindDetail, KindForm, KindDelete, KindViewConfirm} {
				assert.Equal(t, k == tt.kind, o.IsOpen(k), "only %s is open", tt.kind)
			}
		})
	}
}

func TestOrchestrator_ViewConfirmation(t *testing.T) {
	ctx := context.Background()
	o, nav, flags := newOrchestrator(t)
	row := listview.Row{"id": int64(7)}

	navigated, err := o.View(ctx, row)
	require.NoError(t, err)
	assert.False(t, navigated)
	assert.True(t, o.IsOpen(KindViewConfirm))

	require.NoError(t, o.ConfirmView(ctx, false))
	assert.Equal(t, []string{"/nhan-su/than-nhan/7"}, nav.paths)
	assert.True(t, o.IsOpen(KindClosed))

	skip, err := flags.SkipConfirm(ctx, "p1", "than_nhan")
	require.NoError(t, err)
	assert.False(t, skip)

	_, err = o.View(ctx, row)
	require.NoError(t, err)
	require.NoError(t, o.ConfirmView(ctx, true))

	skip, err = flags.SkipConfirm(ctx, "p1", "than_nhan")
	require.NoError(t, err)
	assert.True(t, skip)

	navigated, err = o.View(ctx, listview.Row{"id": "8"})
	require.NoError(t, err)
	assert.True(t, navigated, "flag skips the confirmation")
	assert.True(t, o.IsOpen(KindClosed))
	assert.Equal(t, "/nhan-su/than-nhan/8", nav.paths[len(nav.paths)-1])
}

func TestOrchestrator_ViewErrors(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newOrchestrator(t)

	_, err := o.View(ctx, listview.Row{"id": "abc"})
	assert.ErrorIs(t, err, ErrNoID)
	assert.ErrorIs(t, o.ConfirmView(ctx, true), ErrWrongDialog)
}

func TestOrchestrator_FailureKeepsDialogOpen(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newOrchestrator(t)
	row := listview.Row{"id": int64(3)}
	boom := errors.New("mất kết nối")

	o.Edit(row)
	err := o.FormSubmitted(ctx, func(context.Context, Form) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, o.IsEditMode())
	assert.Equal(t, row, o.SelectedItem())

	var seen Form
	require.NoError(t, o.FormSubmitted(ctx, func(_ context.Context, f Form) error {
		seen = f
		return nil
	}))
	assert.Equal(t, form.ModeEdit, seen.Mode)
	assert.True(t, o.IsOpen(KindClosed))
	assert.Nil(t, o.SelectedItem())

	o.Delete(row)
	err = o.DeleteConfirmed(ctx, func(context.Context, listview.Row) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, o.IsOpen(KindDelete))

	require.NoError(t, o.DeleteConfirmed(ctx, func(context.Context, listview.Row) error { return nil }))
	assert.True(t, o.IsOpen(KindClosed))

	assert.ErrorIs(t, o.DeleteConfirmed(ctx, func(context.Context, listview.Row) error { return nil }), ErrWrongDialog)
	assert.ErrorIs(t, o.FormSubmitted(ctx, func(context.Context, Form) error { return nil }), ErrWrongDialog)
}

func employeeModules() (convention.Derived, convention.Derived) {
	depts := convention.Derive(schema.Module{
		Name:      "phong_ban",
		RoutePath: "/phong-ban",
		Columns:   []schema.Column{{ID: "ten"}},
		Sections: []schema.Section{{Fields: []schema.Field{
			{Name: "ten", Type: schema.FieldTypeText, Required: true},
		}}},
	})
	staff := convention.Derive(schema.Module{
		Name:      "nhan_su",
		RoutePath: "/phong-ban/nhan-su",
		Parent:    &schema.ParentRef{Module: "phong_ban", ForeignKey: "phong_ban_id"},
		Columns:   []schema.Column{{ID: "ho_ten"}, {ID: "luong"}},
		Sections: []schema.Section{{Fields: []schema.Field{
			{Name: "ho_ten", Type: schema.FieldTypeText, Required: true},
			{Name: "luong", Type: schema.FieldTypeCurrency},
		}}},
	})
	return depts, staff
}

func TestChildSource_DialogFlow(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	deptMod, staffMod := employeeModules()
	require.NoError(t, store.CreateTable(ctx, deptMod))
	require.NoError(t, store.CreateTable(ctx, staffMod))

	depts := crud.NewService(deptMod, store, crud.Options{Logger: zerolog.Nop()})
	staff := crud.NewService(staffMod, store, crud.Options{Logger: zerolog.Nop()})

	a, err := depts.Create(ctx, map[string]any{"ten": "Kế toán"})
	require.NoError(t, err)
	b, err := depts.Create(ctx, map[string]any{"ten": "Kinh doanh"})
	require.NoError(t, err)
	_, err = staff.Create(ctx, map[string]any{"ho_ten": "Người khác", "phong_ban_id": b["id"]})
	require.NoError(t, err)

	src := NewChildSource(staff, a["id"].(int64))
	o, _, _ := newOrchestrator(t)
	sections := staffMod.Source.Sections

	// Create through the form dialog.
	o.Add()
	fe, err := o.FormEngine(form.Config{Sections: sections, Logger: zerolog.Nop()})
	require.NoError(t, err)

	var validation *form.ValidationError
	assert.ErrorAs(t, o.Save(ctx, fe, src, form.Hooks{}), &validation)
	assert.True(t, o.IsOpen(KindForm), "invalid input keeps the form open")

	fe.Set("ho_ten", "Nguyễn Văn An")
	fe.Set("luong", 15000000)
	require.NoError(t, o.Save(ctx, fe, src, form.Hooks{}))
	assert.True(t, o.IsOpen(KindClosed))

	rows, err := src.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a["id"], rows[0]["phong_ban_id"])

	// Edit it.
	o.Edit(rows[0])
	fe, err = o.FormEngine(form.Config{Sections: sections, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, "Nguyễn Văn An", fe.Values()["ho_ten"])
	fe.Set("ho_ten", "Nguyễn Văn Anh")
	require.NoError(t, o.Save(ctx, fe, src, form.Hooks{}))

	page, err := src.Engine().Query(ctx, listview.Request{Search: "anh"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Nguyễn Văn Anh", page.Data[0]["ho_ten"])

	// Delete it.
	o.Delete(page.Data[0])
	require.NoError(t, o.Remove(ctx, src))
	rows, err = src.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	o.Delete(page.Data[0])
	assert.ErrorIs(t, o.Remove(ctx, src), storage.ErrNotFound)
	assert.True(t, o.IsOpen(KindDelete))
}

func TestChildSource_ScopedToParent(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	deptMod, staffMod := employeeModules()
	require.NoError(t, store.CreateTable(ctx, deptMod))
	require.NoError(t, store.CreateTable(ctx, staffMod))

	depts := crud.NewService(deptMod, store, crud.Options{Logger: zerolog.Nop()})
	staff := crud.NewService(staffMod, store, crud.Options{Logger: zerolog.Nop()})

	a, err := depts.Create(ctx, map[string]any{"ten": "Kế toán"})
	require.NoError(t, err)
	b, err := depts.Create(ctx, map[string]any{"ten": "Kinh doanh"})
	require.NoError(t, err)
	own, err := staff.Create(ctx, map[string]any{"ho_ten": "Nguyễn Văn An", "phong_ban_id": a["id"]})
	require.NoError(t, err)
	other, err := staff.Create(ctx, map[string]any{"ho_ten": "Người khác", "phong_ban_id": b["id"]})
	require.NoError(t, err)

	src := NewChildSource(staff, a["id"].(int64))
	ownID, otherID := own["id"].(int64), other["id"].(int64)

	_, err = src.Update(ctx, otherID, map[string]any{"ho_ten": "Đã sửa"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = src.Remove(ctx, []int64{ownID, otherID})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := staff.Get(ctx, otherID)
	require.NoError(t, err)
	assert.Equal(t, "Người khác", got["ho_ten"])
	_, err = staff.Get(ctx, ownID)
	require.NoError(t, err, "a rejected batch deletes nothing")

	updated, err := src.Update(ctx, ownID, map[string]any{"ho_ten": "Nguyễn Văn Anh"})
	require.NoError(t, err)
	assert.Equal(t, "Nguyễn Văn Anh", updated["ho_ten"])

	n, err := src.Remove(ctx, []int64{ownID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
