package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/artpar/erpkit/core/convention"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresStore implements Store on a hosted Postgres database through gorm.
// Contains matching is case-insensitive but does not fold diacritics.
type PostgresStore struct {
	db *gorm.DB
	mu sync.RWMutex

	modules map[string]convention.Derived
}

// PostgresOptions tunes the connection pool.
type PostgresOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}

// NewPostgresStore connects to dsn.
func NewPostgresStore(dsn string, opts PostgresOptions, log zerolog.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      NewGormLogger(log, opts.SlowThreshold),
		QueryFields: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an open gorm connection.
func NewPostgresStoreFromDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db, modules: make(map[string]convention.Derived)}
}

func (s *PostgresStore) module(name string) (convention.Derived, error) {
	s.mu.RLock()
	mod, ok := s.modules[name]
	s.mu.RUnlock()
	if !ok {
		return convention.Derived{}, fmt.Errorf("module %q not registered", name)
	}
	return mod, nil
}

// CreateTable creates a table for a module and adds missing columns.
func (s *PostgresStore) CreateTable(ctx context.Context, mod convention.Derived) error {
	s.mu.Lock()
	s.modules[mod.Source.Name] = mod
	s.mu.Unlock()

	db := s.db.WithContext(ctx)
	if err := db.Exec(BuildCreateTableSQL(mod, Postgres)).Error; err != nil {
		return fmt.Errorf("create table %s: %w", mod.Table, err)
	}
	for _, c := range mod.Storage {
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", mod.Table, c.Name, Postgres.columnType(c.SQLType))
		if err := db.Exec(alter).Error; err != nil {
			return fmt.Errorf("add column %s.%s: %w", mod.Table, c.Name, err)
		}
	}
	for _, indexSQL := range BuildIndexSQL(mod) {
		if err := db.Exec(indexSQL).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Create inserts a new record.
func (s *PostgresStore) Create(ctx context.Context, module string, data Record) (Record, error) {
	mod, err := s.module(module)
	if err != nil {
		return nil, err
	}

	var columns, marks []string
	var values []any
	for _, c := range mod.Storage {
		val, ok := data[c.Name]
		if !ok {
			continue
		}
		columns = append(columns, c.Name)
		marks = append(marks, "?")
		values = append(values, convertValue(val, c))
	}

	pk := mod.Source.PrimaryKey()
	var insertSQL string
	if len(columns) == 0 {
		insertSQL = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", mod.Table, pk)
	} else {
		insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			mod.Table, strings.Join(columns, ", "), strings.Join(marks, ", "), pk)
	}

	var id int64
	if err := s.db.WithContext(ctx).Raw(insertSQL, values...).Scan(&id).Error; err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	return s.Get(ctx, module, id)
}

// Get retrieves a record by id.
func (s *PostgresStore) Get(ctx context.Context, module string, id int64) (Record, error) {
	mod, err := s.module(module)
	if err != nil {
		return nil, err
	}

	columns := columnNames(mod)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", strings.Join(columns, ", "), mod.Table, mod.Source.PrimaryKey())
	recs, err := s.query(ctx, mod, columns, query, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s %d: %w", module, id, ErrNotFound)
	}
	return recs[0], nil
}

// List retrieves multiple records.
func (s *PostgresStore) List(ctx context.Context, module string, opts ListOptions) ([]Record, int64, error) {
	mod, err := s.module(module)
	if err != nil {
		return nil, 0, err
	}

	where, args, err := buildWhere(mod, opts, "lower")
	if err != nil {
		return nil, 0, err
	}

	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", mod.Table, where)
	if err := s.db.WithContext(ctx).Raw(countSQL, args...).Scan(&count).Error; err != nil {
		return nil, 0, err
	}

	columns := columnNames(mod)
	querySQL := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(columns, ", "), mod.Table, where) + orderClause(mod, opts)
	if opts.Limit > 0 {
		querySQL += fmt.Sprintf(" LIMIT %d OFFSET %d", opts.Limit, opts.Offset)
	}

	recs, err := s.query(ctx, mod, columns, querySQL, args...)
	if err != nil {
		return nil, 0, err
	}
	return recs, count, nil
}

func (s *PostgresStore) query(ctx context.Context, mod convention.Derived, columns []string, query string, args ...any) ([]Record, error) {
	rows, err := s.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(mod, columns, rows)
}

func scanRecords(mod convention.Derived, columns []string, rows *sql.Rows) ([]Record, error) {
	out := []Record{}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, decodeRow(mod, columns, values))
	}
	return out, rows.Err()
}

// Update modifies an existing record.
func (s *PostgresStore) Update(ctx context.Context, module string, id int64, data Record) (Record, error) {
	mod, err := s.module(module)
	if err != nil {
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
	sets = append(sets, ColumnUpdatedAt+" = CURRENT_TIMESTAMP")
	values = append(values, id)

	updateSQL := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", mod.Table, strings.Join(sets, ", "), mod.Source.PrimaryKey())
	tx := s.db.WithContext(ctx).Exec(updateSQL, values...)
	if tx.Error != nil {
		return nil, fmt.Errorf("update: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, fmt.Errorf("%s %d: %w", module, id, ErrNotFound)
	}
	return s.Get(ctx, module, id)
}

// Delete removes records.
func (s *PostgresStore) Delete(ctx context.Context, module string, ids []int64) (int64, error) {
	mod, err := s.module(module)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	// gorm expands a slice argument into a parameter list.
	tx := s.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s WHERE %s IN ?", mod.Table, mod.Source.PrimaryKey()), ids)
	if tx.Error != nil {
		return 0, fmt.Errorf("delete: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormLogger writes gorm traces through zerolog.
type GormLogger struct {
	log   zerolog.Logger
	slow  time.Duration
	level logger.LogLevel
}

// NewGormLogger creates a gorm logger. Queries slower than slow are logged
// as warnings; zero disables slow-query warnings.
func NewGormLogger(log zerolog.Logger, slow time.Duration) *GormLogger {
	return &GormLogger{log: log.With().Str("component", "gorm").Logger(), slow: slow, level: logger.Warn}
}

// LogMode implements logger.Interface.
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		l.log.Info().Msgf(msg, args...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.log.Warn().Msgf(msg, args...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.log.Error().Msgf(msg, args...)
	}
}

// Trace implements logger.Interface.
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sqlText, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		l.log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sqlText).Msg("query failed")
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		l.log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sqlText).Msg("slow query")
	case l.level >= logger.Info:
		l.log.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sqlText).Msg("query")
	}
}
