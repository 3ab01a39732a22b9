// Package navigation derives a module's view mode from the current URL.
//
// Every module lives under a base path:
//
//	{base}            list
//	{base}/create     create form
//	{base}/{id}       detail
//	{base}/{id}/edit  edit form
//
// The create and edit tokens are configurable; the Vietnamese "moi" and "sua"
// routes are accepted as aliases by default.
package navigation

import (
	"strconv"
	"strings"

	"github.com/artpar/erpkit/core/convention"
)

// Mode is the view a path resolves to.
type Mode int

const (
	ModeList Mode = iota
	ModeCreate
	ModeEdit
	ModeDetail
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	case ModeDetail:
		return "detail"
	default:
		return "list"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// State is the resolved navigation state. At most one of IsNew, IsEdit and
// IsDetail is true; all false means list mode. CurrentID is set iff the mode
// is edit or detail.
type State struct {
	IsNew     bool   `json:"is_new"`
	IsEdit    bool   `json:"is_edit"`
	IsDetail  bool   `json:"is_detail"`
	CurrentID *int64 `json:"current_id"`

	// Invalid is set when the path named a record whose id did not parse.
	// The state is list mode and callers should redirect to the list.
	Invalid bool `json:"invalid,omitempty"`
}

// Mode returns the single active mode.
func (s State) Mode() Mode {
	switch {
	case s.IsNew:
		return ModeCreate
	case s.IsEdit:
		return ModeEdit
	case s.IsDetail:
		return ModeDetail
	default:
		return ModeList
	}
}

// ID returns the current record id.
func (s State) ID() (int64, bool) {
	if s.CurrentID == nil {
		return 0, false
	}
	return *s.CurrentID, true
}

// Tokens are the path segments that select the create and edit views.
type Tokens struct {
	Create        string   `yaml:"create" json:"create"`
	Edit          string   `yaml:"edit" json:"edit"`
	CreateAliases []string `yaml:"create_aliases,omitempty" json:"create_aliases,omitempty"`
	EditAliases   []string `yaml:"edit_aliases,omitempty" json:"edit_aliases,omitempty"`
}

// DefaultTokens returns create/edit with the moi/sua aliases.
func DefaultTokens() Tokens {
	return Tokens{
		Create:        "create",
		Edit:          "edit",
		CreateAliases: []string{"moi"},
		EditAliases:   []string{"sua"},
	}
}

// IsCreate reports whether seg selects the create view.
func (t Tokens) IsCreate(seg string) bool {
	return matchToken(seg, t.Create, t.CreateAliases)
}

// IsEdit reports whether seg selects the edit view.
func (t Tokens) IsEdit(seg string) bool {
	return matchToken(seg, t.Edit, t.EditAliases)
}

func matchToken(seg, primary string, aliases []string) bool {
	if seg == primary {
		return true
	}
	for _, a := range aliases {
		if seg == a {
			return true
		}
	}
	return false
}

// Resolver resolves paths with a fixed token set.
type Resolver struct {
	tokens Tokens
}

// NewResolver creates a resolver. Empty tokens fall back to the defaults.
func NewResolver(tokens Tokens) *Resolver {
	def := DefaultTokens()
	if tokens.Create == "" {
		tokens.Create = def.Create
	}
	if tokens.Edit == "" {
		tokens.Edit = def.Edit
	}
	return &Resolver{tokens: tokens}
}

var defaultResolver = NewResolver(DefaultTokens())

// Resolve resolves pathname against basePath with the default tokens.
func Resolve(pathname, basePath string) State {
	return defaultResolver.Resolve(pathname, basePath)
}

// Tokens returns the resolver's tokens.
func (r *Resolver) Tokens() Tokens {
	return r.tokens
}

// Resolve derives the navigation state. It is a pure function of its inputs.
func (r *Resolver) Resolve(pathname, basePath string) State {
	segs, ok := Rest(pathname, basePath)
	if !ok {
		return State{}
	}

	switch {
	case len(segs) == 1 && r.tokens.IsCreate(segs[0]):
		return State{IsNew: true}

	case len(segs) == 2 && r.tokens.IsEdit(segs[1]):
		id, ok := ParseID(segs[0])
		if !ok {
			return State{Invalid: true}
		}
		return State{IsEdit: true, CurrentID: &id}

	case len(segs) == 1:
		id, ok := ParseID(segs[0])
		if !ok {
			return State{Invalid: true}
		}
		return State{IsDetail: true, CurrentID: &id}

	default:
		return State{}
	}
}

// Rest returns the segments of pathname after basePath. ok is false when
// pathname is not under basePath.
func Rest(pathname, basePath string) ([]string, bool) {
	path := convention.NormalizePath(pathname)
	base := convention.NormalizePath(basePath)

	if path == base {
		return nil, true
	}
	prefix := base + "/"
	if base == "/" {
		prefix = "/"
	}
	if !strings.HasPrefix(path, prefix) {
		return nil, false
	}
	return strings.Split(strings.TrimPrefix(path, prefix), "/"), true
}

// ParseID parses a record id segment. Only positive base-10 integers are ids.
func ParseID(seg string) (int64, bool) {
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
