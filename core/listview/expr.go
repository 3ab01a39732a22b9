package listview

import (
	"fmt"
	"strings"

	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/search"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Limits on filter expressions, which arrive from request parameters.
const (
	ProgramCacheSize = 256
	MaxExprNodes     = 500
)

// ExprFilter keeps rows for which a boolean expression holds. The row's
// fields are variables and the column value is also bound to "value":
//
//	luong >= 10000000 && phong_ban == "ke_toan"
//	fold(ho_ten) contains "nguyen"
type ExprFilter struct {
	Expr string `json:"expr"`
}

func (f ExprFilter) Kind() schema.FilterKind { return schema.FilterExpr }
func (f ExprFilter) Active() bool            { return strings.TrimSpace(f.Expr) != "" }

func (f ExprFilter) Match(row Row, key string) bool {
	program, err := f.program()
	if err != nil {
		return false
	}
	env := make(map[string]any, len(row)+1)
	for k, v := range row {
		env[k] = v
	}
	env["value"] = row[key]

	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// CheckExpr compiles source and reports syntax errors.
func CheckExpr(source string) error {
	_, err := programs.get(source)
	return err
}

func (f ExprFilter) program() (*vm.Program, error) {
	return programs.get(f.Expr)
}

// programCache holds the most recently used compiled filter expressions by
// source text.
type programCache struct {
	cache *lru.Cache[string, *vm.Program]
	opts  []expr.Option
}

var programs = newProgramCache(ProgramCacheSize)

func newProgramCache(size int) *programCache {
	cache, err := lru.New[string, *vm.Program](size)
	if err != nil {
		panic(err)
	}
	return &programCache{
		cache: cache,
		opts: []expr.Option{
			expr.Env(map[string]any{}),
			expr.MaxNodes(MaxExprNodes),
			expr.AllowUndefinedVariables(),
			expr.AsBool(),
			expr.Function("fold", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, fmt.Errorf("fold requires 1 argument")
				}
				return strings.ToLower(search.Fold(search.Stringify(params[0]))), nil
			}),
			expr.Function("num", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, fmt.Errorf("num requires 1 argument")
				}
				n, ok := toNumber(params[0])
				if !ok {
					return 0.0, nil
				}
				return n, nil
			}),
			expr.Function("days", func(params ...any) (any, error) {
				if len(params) != 2 {
					return nil, fmt.Errorf("days requires 2 arguments")
				}
				a, okA := ParseDate(params[0])
				b, okB := ParseDate(params[1])
				if !okA || !okB {
					return 0, nil
				}
				return int(day(b).Sub(day(a)).Hours() / 24), nil
			}),
		},
	}
}

func (c *programCache) get(source string) (*vm.Program, error) {
	if program, ok := c.cache.Get(source); ok {
		return program, nil
	}

	program, err := expr.Compile(source, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("compile filter expression: %w", err)
	}
	c.cache.Add(source, program)
	return program, nil
}
