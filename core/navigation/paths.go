package navigation

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/artpar/erpkit/core/convention"
)

// ReturnTo selects where a form goes after submit or cancel.
type ReturnTo string

const (
	ReturnDefault ReturnTo = ""
	ReturnList    ReturnTo = "list"
	ReturnDetail  ReturnTo = "detail"
)

// ReturnToParam is the query parameter carrying ReturnTo.
const ReturnToParam = "returnTo"

// ParseReturnTo reads returnTo from query values. Unknown values are ignored.
func ParseReturnTo(q url.Values) ReturnTo {
	switch rt := ReturnTo(q.Get(ReturnToParam)); rt {
	case ReturnList, ReturnDetail:
		return rt
	default:
		return ReturnDefault
	}
}

// Paths builds the URLs of one module.
type Paths struct {
	Base   string
	Tokens Tokens
}

// Paths returns the path builder for base.
func (r *Resolver) Paths(base string) Paths {
	return Paths{Base: convention.NormalizePath(base), Tokens: r.tokens}
}

func (p Paths) join(segs ...string) string {
	if p.Base == "/" {
		return "/" + strings.Join(segs, "/")
	}
	return p.Base + "/" + strings.Join(segs, "/")
}

// List returns the list path.
func (p Paths) List() string { return p.Base }

// Create returns the create form path.
func (p Paths) Create() string { return p.join(p.Tokens.Create) }

// Detail returns the detail path of id.
func (p Paths) Detail(id int64) string {
	return p.join(strconv.FormatInt(id, 10))
}

// Edit returns the edit form path of id.
func (p Paths) Edit(id int64) string {
	return p.join(strconv.FormatInt(id, 10), p.Tokens.Edit)
}

// WithReturnTo appends the returnTo query parameter.
func WithReturnTo(path string, rt ReturnTo) string {
	if rt == ReturnDefault {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + ReturnToParam + "=" + string(rt)
}

// AfterSubmit returns where to go once the form for state saved record id.
// Saved records open in detail unless the caller asked for the list.
func (p Paths) AfterSubmit(state State, id int64, rt ReturnTo) string {
	if rt == ReturnList {
		return p.List()
	}
	if id <= 0 {
		if cur, ok := state.ID(); ok {
			id = cur
		} else {
			return p.List()
		}
	}
	return p.Detail(id)
}

// AfterCancel returns where a cancelled form goes. Cancelling an edit goes
// back to the record, cancelling a create goes to the list.
func (p Paths) AfterCancel(state State, rt ReturnTo) string {
	if rt == ReturnList {
		return p.List()
	}
	if id, ok := state.ID(); ok && state.IsEdit {
		return p.Detail(id)
	}
	return p.List()
}

// Guard returns the list path when state must not be rendered.
func (p Paths) Guard(state State) (string, bool) {
	if state.Invalid {
		return p.List(), true
	}
	return "", false
}
