// Package embedded drives a child list shown inside a parent's detail page:
// row click opens a detail dialog, and add, edit and delete each run in
// their own dialog without leaving the parent.
package embedded

import (
	"github.com/artpar/erpkit/core/form"
	"github.com/artpar/erpkit/core/listview"
)

// Kind identifies a dialog.
type Kind int

const (
	KindClosed Kind = iota
	KindDetail
	KindForm
	KindDelete
	KindViewConfirm
)

func (k Kind) String() string {
	switch k {
	case KindDetail:
		return "detail"
	case KindForm:
		return "form"
	case KindDelete:
		return "delete"
	case KindViewConfirm:
		return "view_confirm"
	default:
		return "closed"
	}
}

// Dialog is the one dialog an orchestrator has open. It is one of Closed,
// Detail, Form, Delete or ViewConfirm.
type Dialog interface {
	Kind() Kind
	dialog()
}

// Closed means no dialog is open.
type Closed struct{}

// Detail shows a record read-only.
type Detail struct{ Item listview.Row }

// Form creates a record (Item nil) or edits Item.
type Form struct {
	Item listview.Row
	Mode form.Mode
}

// Delete asks to confirm removing Item.
type Delete struct{ Item listview.Row }

// ViewConfirm asks before leaving for the full detail page of Item.
type ViewConfirm struct{ Item listview.Row }

func (Closed) Kind() Kind      { return KindClosed }
func (Detail) Kind() Kind      { return KindDetail }
func (Form) Kind() Kind        { return KindForm }
func (Delete) Kind() Kind      { return KindDelete }
func (ViewConfirm) Kind() Kind { return KindViewConfirm }

func (Closed) dialog()      {}
func (Detail) dialog()      {}
func (Form) dialog()        {}
func (Delete) dialog()      {}
func (ViewConfirm) dialog() {}

// item returns the record a dialog is about, nil for Closed and create forms.
func item(d Dialog) listview.Row {
	switch d := d.(type) {
	case Detail:
		return d.Item
	case Form:
		return d.Item
	case Delete:
		return d.Item
	case ViewConfirm:
		return d.Item
	}
	return nil
}
