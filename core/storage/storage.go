// Package storage persists module records in tables derived from module
// definitions. Records are keyed by an auto-incremented integer id.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/ports"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = ports.ErrNotFound

// Record is one stored row keyed by column name.
type Record = map[string]any

// Timestamp columns maintained by every store.
const (
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// Store provides generic CRUD operations for any module.
type Store interface {
	// CreateTable creates the table of a module if missing and registers
	// the module with the store.
	CreateTable(ctx context.Context, mod convention.Derived) error

	// Create inserts a record and returns it as stored, id included.
	Create(ctx context.Context, module string, data Record) (Record, error)

	// Get returns one record or ErrNotFound.
	Get(ctx context.Context, module string, id int64) (Record, error)

	// List returns one page of records and the total matching count.
	List(ctx context.Context, module string, opts ListOptions) ([]Record, int64, error)

	// Update patches a record and returns it as stored, or ErrNotFound.
	Update(ctx context.Context, module string, id int64, data Record) (Record, error)

	// Delete removes records and returns how many existed.
	Delete(ctx context.Context, module string, ids []int64) (int64, error)

	// Close closes the storage connection.
	Close() error
}

// Op is a comparison in a Condition.
type Op string

const (
	OpEq       Op = "eq"
	OpIn       Op = "in"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpContains Op = "contains"
)

// Condition restricts a list query. Conditions are ANDed.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// ListOptions configures list queries.
type ListOptions struct {
	// Limit is the maximum number of records to return; 0 means all.
	Limit int

	// Offset is the number of records to skip.
	Offset int

	Where []Condition

	// OrderBy is the column to sort by; unknown columns fall back to id.
	OrderBy   string
	OrderDesc bool

	// Search terms must each appear, ignoring case and diacritics, in one
	// of SearchFields.
	Search       string
	SearchFields []string
}

// Dialect is the SQL flavor of a store.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) columnType(sqlType string) string {
	if d != Postgres {
		return sqlType
	}
	switch sqlType {
	case "REAL":
		return "DOUBLE PRECISION"
	case "INTEGER":
		return "BIGINT"
	default:
		return sqlType
	}
}

// BuildCreateTableSQL generates CREATE TABLE SQL from a derived module.
func BuildCreateTableSQL(mod convention.Derived, d Dialect) string {
	pk := mod.Source.PrimaryKey()
	idDef := pk + " INTEGER PRIMARY KEY AUTOINCREMENT"
	stamp := "TEXT"
	if d == Postgres {
		idDef = pk + " BIGSERIAL PRIMARY KEY"
		stamp = "TIMESTAMPTZ"
	}

	columns := []string{idDef}
	for _, c := range mod.Storage {
		columns = append(columns, c.Name+" "+d.columnType(c.SQLType))
	}
	columns = append(columns,
		ColumnCreatedAt+" "+stamp+" DEFAULT CURRENT_TIMESTAMP",
		ColumnUpdatedAt+" "+stamp+" DEFAULT CURRENT_TIMESTAMP",
	)

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		mod.Table,
		strings.Join(columns, ",\n  "),
	)
}

// BuildIndexSQL generates CREATE INDEX statements for parent foreign keys.
func BuildIndexSQL(mod convention.Derived) []string {
	var indexes []string
	if p := mod.Source.Parent; p != nil {
		indexes = append(indexes, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)",
			mod.Table, p.ForeignKey, mod.Table, p.ForeignKey,
		))
	}
	return indexes
}

// columnNames lists every selected column, primary key first.
func columnNames(mod convention.Derived) []string {
	cols := []string{mod.Source.PrimaryKey()}
	for _, c := range mod.Storage {
		cols = append(cols, c.Name)
	}
	return append(cols, ColumnCreatedAt, ColumnUpdatedAt)
}

func storageColumn(mod convention.Derived, name string) (convention.StorageColumn, bool) {
	for _, c := range mod.Storage {
		if c.Name == name {
			return c, true
		}
	}
	return convention.StorageColumn{}, false
}

func knownColumn(mod convention.Derived, name string) bool {
	if name == mod.Source.PrimaryKey() || name == ColumnCreatedAt || name == ColumnUpdatedAt {
		return true
	}
	_, ok := storageColumn(mod, name)
	return ok
}

// convertValue converts a Go value to a database value.
func convertValue(val any, c convention.StorageColumn) any {
	if val == nil {
		return nil
	}

	switch c.Type {
	case schema.FieldTypeCheckbox:
		switch v := val.(type) {
		case bool:
			if v {
				return 1
			}
			return 0
		case string:
			if v == "true" || v == "1" {
				return 1
			}
			return 0
		default:
			return 0
		}
	case schema.FieldTypeMulti:
		// Stored as a JSON array.
		b, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		return string(b)
	}

	if c.SQLType == "REAL" || c.SQLType == "INTEGER" {
		if s, ok := val.(string); ok {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			if n, err := schema.ToFloat64(s); err == nil {
				return n
			}
		}
	}
	if m, ok := val.(map[string]any); ok {
		b, _ := json.Marshal(m)
		return string(b)
	}
	return val
}

// convertFromDB converts a database value to a Go value.
func convertFromDB(val any, c convention.StorageColumn) any {
	if val == nil {
		return nil
	}
	if b, ok := val.([]byte); ok {
		val = string(b)
	}

	switch c.Type {
	case schema.FieldTypeCheckbox:
		switch v := val.(type) {
		case int64:
			return v != 0
		case bool:
			return v
		default:
			return false
		}
	case schema.FieldTypeMulti:
		s, ok := val.(string)
		if !ok {
			return val
		}
		var out []any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return s
		}
		return out
	}
	return val
}

// decodeRow maps scanned values to a record.
func decodeRow(mod convention.Derived, columns []string, values []any) Record {
	rec := make(Record, len(columns))
	pk := mod.Source.PrimaryKey()
	for i, name := range columns {
		switch name {
		case pk:
			rec[name] = toInt64(values[i])
		case ColumnCreatedAt, ColumnUpdatedAt:
			rec[name] = convertFromDB(values[i], convention.StorageColumn{})
		default:
			c, _ := storageColumn(mod, name)
			rec[name] = convertFromDB(values[i], c)
		}
	}
	return rec
}

func toInt64(v any) any {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return v
	}
}

// buildWhere renders conditions and search terms as a WHERE clause with
// "?" placeholders. fold names the SQL function applied to both sides of
// a contains match.
func buildWhere(mod convention.Derived, opts ListOptions, fold string) (string, []any, error) {
	var conds []string
	var args []any

	for _, c := range opts.Where {
		if !knownColumn(mod, c.Field) {
			return "", nil, fmt.Errorf("unknown column %q", c.Field)
		}
		switch c.Op {
		case OpEq:
			conds = append(conds, c.Field+" = ?")
			args = append(args, c.Value)
		case OpGte:
			conds = append(conds, c.Field+" >= ?")
			args = append(args, c.Value)
		case OpLte:
			conds = append(conds, c.Field+" <= ?")
			args = append(args, c.Value)
		case OpIn:
			vals, ok := c.Value.([]string)
			if !ok || len(vals) == 0 {
				return "", nil, fmt.Errorf("condition %q: in needs a non-empty []string", c.Field)
			}
			marks := make([]string, len(vals))
			for i, v := range vals {
				marks[i] = "?"
				args = append(args, v)
			}
			conds = append(conds, fmt.Sprintf("CAST(%s AS TEXT) IN (%s)", c.Field, strings.Join(marks, ", ")))
		case OpContains:
			conds = append(conds, likeFolded(fold, c.Field))
			args = append(args, escapeLike(fmt.Sprint(c.Value)))
		default:
			return "", nil, fmt.Errorf("condition %q: unknown op %q", c.Field, c.Op)
		}
	}

	if terms := strings.Fields(opts.Search); len(terms) > 0 && len(opts.SearchFields) > 0 {
		for _, term := range terms {
			var alts []string
			for _, f := range opts.SearchFields {
				if !knownColumn(mod, f) {
					continue
				}
				alts = append(alts, likeFolded(fold, f))
				args = append(args, escapeLike(term))
			}
			if len(alts) == 0 {
				return "", nil, fmt.Errorf("no searchable columns")
			}
			conds = append(conds, "("+strings.Join(alts, " OR ")+")")
		}
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// likeFolded matches column against a term escaped with escapeLike.
func likeFolded(fold, column string) string {
	return fmt.Sprintf(`%s(COALESCE(CAST(%s AS TEXT), '')) LIKE ('%%' || %s(?) || '%%') ESCAPE '\'`, fold, column, fold)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in a user term match literally.
func escapeLike(term string) string { return likeEscaper.Replace(term) }

// orderClause validates the order column against the module columns.
func orderClause(mod convention.Derived, opts ListOptions) string {
	orderBy := opts.OrderBy
	if orderBy == "" || !knownColumn(mod, orderBy) {
		orderBy = mod.Source.PrimaryKey()
	}
	dir := "ASC"
	if opts.OrderDesc {
		dir = "DESC"
	}
	// NULLs last in both directions, ties broken by id.
	return fmt.Sprintf(" ORDER BY (%s IS NULL), %s %s, %s ASC", orderBy, orderBy, dir, mod.Source.PrimaryKey())
}
