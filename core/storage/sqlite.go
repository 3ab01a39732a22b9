package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/search"
	"github.com/mattn/go-sqlite3"
)

// DriverName is the sqlite3 driver with the fold() SQL function, which
// lowercases and strips Vietnamese diacritics.
const DriverName = "sqlite3_erpkit"

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("fold", func(s string) string {
					return strings.ToLower(search.Fold(s))
				}, true)
			},
		})
	})
}

// OpenSQLite opens a database with the fold() function registered and the
// usual pragmas set.
func OpenSQLite(path string) (*sql.DB, error) {
	registerDriver()

	db, err := sql.Open(DriverName, path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	return db, nil
}

// SQLiteStore implements Store with SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	// modules maps module names to their derived definitions
	modules map[string]convention.Derived
}

// NewSQLiteStore creates a new SQLite storage.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStoreFromDB(db), nil
}

// NewSQLiteStoreFromDB creates a SQLite storage from a connection opened
// with OpenSQLite.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:      db,
		modules: make(map[string]convention.Derived),
	}
}

// CreateTable creates a table for a module.
func (s *SQLiteStore) CreateTable(ctx context.Context, mod convention.Derived) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.modules[mod.Source.Name] = mod

	if _, err := s.db.ExecContext(ctx, BuildCreateTableSQL(mod, SQLite)); err != nil {
		return fmt.Errorf("create table %s: %w", mod.Table, err)
	}

	// Columns added to a module after its table exists.
	existing, err := s.tableColumns(ctx, mod.Table)
	if err != nil {
		return err
	}
	for _, c := range mod.Storage {
		if existing[c.Name] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", mod.Table, c.Name, c.SQLType)
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("add column %s.%s: %w", mod.Table, c.Name, err)
		}
	}

	for _, indexSQL := range BuildIndexSQL(mod) {
		if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func (s *SQLiteStore) module(name string) (convention.Derived, error) {
	s.mu.RLock()
	mod, ok := s.modules[name]
	s.mu.RUnlock()
	if !ok {
		return convention.Derived{}, fmt.Errorf("module %q not registered", name)
	}
	return mod, nil
}

// Create inserts a new record.
func (s *SQLiteStore) Create(ctx context.Context, module string, data Record) (Record, error) {
	mod, err := s.module(module)
	if err != nil {
		return nil, err
	}

	if err := s.validateParent(ctx, mod, data); err != nil {
		return nil, err
	}

	var columns []string
	var marks []string
	var values []any

	for _, c := range mod.Storage {
		val, exists := data[c.Name]
		if !exists {
			continue
		}
		columns = append(columns, c.Name)
		marks = append(marks, "?")
		values = append(values, convertValue(val, c))
	}

	var insertSQL string
	if len(columns) == 0 {
		insertSQL = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", mod.Table)
	} else {
		insertSQL = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			mod.Table,
			strings.Join(columns, ", "),
			strings.Join(marks, ", "),
		)
	}

	res, err := s.db.ExecContext(ctx, insertSQL, values...)
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert id: %w", err)
	}
	return s.Get(ctx, module, id)
}

// Get retrieves a record by id.
func (s *SQLiteStore) Get(ctx context.Context, module string, id int64) (Record, error) {
	mod, err := s.module(module)
	if err != nil {
		return nil, err
	}

	columns := columnNames(mod)
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		strings.Join(columns, ", "),
		mod.Table,
		mod.Source.PrimaryKey(),
	)

	values := make([]any, len(columns))
	scanDest := make([]any, len(columns))
	for i := range values {
		scanDest[i] = &values[i]
	}

	if err := s.db.QueryRowContext(ctx, query, id).Scan(scanDest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", module, id, ErrNotFound)
		}
		return nil, err
	}
	return decodeRow(mod, columns, values), nil
}

// List retrieves multiple records.
func (s *SQLiteStore) List(ctx context.Context, module string, opts ListOptions) ([]Record, int64, error) {
	mod, err := s.module(module)
	if err != nil {
		return nil, 0, err
	}

	where, args, err := buildWhere(mod, opts, "fold")
	if err != nil {
		return nil, 0, err
	}

	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", mod.Table, where)
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	columns := columnNames(mod)
	querySQL := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(columns, ", "), mod.Table, where)
	querySQL += orderClause(mod, opts)
	if opts.Limit > 0 {
		querySQL += fmt.Sprintf(" LIMIT %d OFFSET %d", opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := []Record{}
	for rows.Next() {
		values := make([]any, len(columns))
		scanDest := make([]any, len(columns))
		for i := range values {
			scanDest[i] = &values[i]
		}
		if err := rows.Scan(scanDest...); err != nil {
			return nil, 0, err
		}
		results = append(results, decodeRow(mod, columns, values))
	}
	return results, count, rows.Err()
}

// Update modifies an existing record.
func (s *SQLiteStore) Update(ctx context.Context, module string, id int64, data Record) (Record, error) {
	mod, err := s.module(module)
	if err != nil {
		return nil, err
	}

	if err := s.validateParent(ctx, mod, data); err != nil {
		return nil, err
	}

	var sets []string
	var values []any
	for _, c := range mod.Storage {
		v, ok := data[c.Name]
		if !ok {
			continue
		}
		sets = append(sets, c.Name+" = ?")
		values = append(values, convertValue(v, c))
	}

	// Always update updated_at
	sets = append(sets, ColumnUpdatedAt+" = CURRENT_TIMESTAMP")
	values = append(values, id)

	updateSQL := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		mod.Table,
		strings.Join(sets, ", "),
		mod.Source.PrimaryKey(),
	)

	result, err := s.db.ExecContext(ctx, updateSQL, values...)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("%s %d: %w", module, id, ErrNotFound)
	}
	return s.Get(ctx, module, id)
}

// Delete removes records.
func (s *SQLiteStore) Delete(ctx context.Context, module string, ids []int64) (int64, error) {
	mod, err := s.module(module)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", mod.Table, mod.Source.PrimaryKey(), strings.Join(marks, ", "))

	result, err := s.db.ExecContext(ctx, deleteSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// validateParent checks that the referenced parent record exists.
func (s *SQLiteStore) validateParent(ctx context.Context, mod convention.Derived, data Record) error {
	p := mod.Source.Parent
	if p == nil {
		return nil
	}
	ref, ok := data[p.ForeignKey]
	if !ok || ref == nil {
		return nil
	}

	s.mu.RLock()
	parent, ok := s.modules[p.Module]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("parent module %q not registered for field %q", p.Module, p.ForeignKey)
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", parent.Table, parent.Source.PrimaryKey())
	if err := s.db.QueryRowContext(ctx, query, ref).Scan(&count); err != nil {
		return fmt.Errorf("check parent for field %q: %w", p.ForeignKey, err)
	}
	if count == 0 {
		return fmt.Errorf("%s %v does not exist (field %s): %w", p.Module, ref, p.ForeignKey, ErrNotFound)
	}
	return nil
}
