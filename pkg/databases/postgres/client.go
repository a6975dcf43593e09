package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haguru/bookshelf/config"
	"github.com/haguru/bookshelf/internal/interfaces"
	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"
	"github.com/haguru/bookshelf/pkg/databases"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 10
	// DefaultMaxIdleConns is the default maximum number of idle connections to the database.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 30 * time.Second

	// idColumn stores the record identity.
	idColumn = "id"

	pqUniqueViolation  = "23505"
	pqNotNullViolation = "23502"
	pqCheckViolation   = "23514"
)

// PostgresDatabaseClient implements the DBClient interface for PostgreSQL databases.
// Every collection is a table with an "id" primary key and one column per schema field.
type PostgresDatabaseClient struct {
	db              *sql.DB
	MaxOpenConns    int           // MaxOpenConns is the maximum number of open connections to the database
	MaxIdleConns    int           // MaxIdleConns is the maximum number of idle connections to the database
	ConnMaxLifetime time.Duration // ConnMaxLifetime is the maximum amount of time a connection may be reused
	logger          interfaces.Logger

	mu      sync.RWMutex
	schemas map[string]*schema.Schema

	linkErr   atomic.Pointer[databases.ConnectionError]
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewPostgresDatabaseClient(cfg config.PostgresServerOptions, logger interfaces.Logger) interfaces.DBClient {
	p := &PostgresDatabaseClient{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		logger:          logger,
		schemas:         make(map[string]*schema.Schema),
	}
	if p.MaxOpenConns == 0 {
		p.MaxOpenConns = DefaultMaxOpenConns
	}
	if p.MaxIdleConns == 0 {
		p.MaxIdleConns = DefaultMaxIdleConns
	}
	if p.ConnMaxLifetime == 0 {
		p.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	p.linkErr.Store(&databases.ConnectionError{Err: databases.ErrNotConnected})

	return p
}

// NewPostgresFromDB wraps an already opened *sql.DB.
func NewPostgresFromDB(db *sql.DB, logger interfaces.Logger) *PostgresDatabaseClient {
	p := &PostgresDatabaseClient{
		db:      db,
		logger:  logger,
		schemas: make(map[string]*schema.Schema),
	}
	p.linkErr.Store(nil)
	return p
}

// Connect establishes a connection to a PostgreSQL database.
func (p *PostgresDatabaseClient) Connect(ctx context.Context, dsn string) error {
	if p.closed.Load() {
		return &databases.ConnectionError{Err: databases.ErrClosed}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return p.connectFailed(fmt.Errorf("failed to open PostgreSQL database: %w", err))
	}

	db.SetMaxOpenConns(p.MaxOpenConns)
	db.SetMaxIdleConns(p.MaxIdleConns)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return p.connectFailed(err)
	}

	p.db = db
	p.linkErr.Store(nil)
	p.logger.Info("PostgresDatabaseClient: connected")

	return nil
}

// Disconnect closes the PostgreSQL database connection.
func (p *PostgresDatabaseClient) Disconnect(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.linkErr.Store(&databases.ConnectionError{Err: databases.ErrClosed})
		if p.db != nil {
			err = p.db.Close()
		}
		p.logger.Info("PostgresDatabaseClient: disconnected")
	})
	return err
}

// Err reports the current link state.
func (p *PostgresDatabaseClient) Err() error {
	if e := p.linkErr.Load(); e != nil {
		return e
	}
	return nil
}

// InsertOne inserts a single record, generating a UUID identity when none is given.
func (p *PostgresDatabaseClient) InsertOne(ctx context.Context, tableName string, record models.Record) (string, error) {
	const op = "insert_one"
	if err := p.ready(tableName); err != nil {
		return "", err
	}

	id := record.ID()
	if id == "" {
		id = uuid.New().String()
	}

	query, args := insertQuery(tableName, id, record)
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return "", p.classify(op, tableName, databases.KindWrite, err)
	}

	return id, nil
}

// ReplaceOne upserts the row with the given id. Schema columns missing from record are cleared.
func (p *PostgresDatabaseClient) ReplaceOne(ctx context.Context, tableName string, id string, record models.Record) error {
	const op = "replace_one"
	if err := p.ready(tableName); err != nil {
		return err
	}
	if id == "" {
		return databases.NewValidationError(op, tableName, "identity cannot be empty")
	}

	full := record.Clone()
	delete(full, models.IDField)
	if s := p.schemaFor(tableName); s != nil {
		for _, name := range s.FieldNames() {
			if _, ok := full[name]; !ok {
				full[name] = nil
			}
		}
	}

	query, args := upsertQuery(tableName, id, full)
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return p.classify(op, tableName, databases.KindWrite, err)
	}
	return nil
}

// FindOne retrieves the first row matching filter.
// It returns databases.ErrNoRecord if nothing matches.
func (p *PostgresDatabaseClient) FindOne(ctx context.Context, tableName string, filter models.Filter, opts models.FindOptions) (models.Record, error) {
	const op = "find_one"
	if err := p.ready(tableName); err != nil {
		return nil, err
	}

	query, args, err := selectQuery(tableName, filter, opts, 1)
	if err != nil {
		return nil, databases.NewPersistenceError(op, tableName, databases.KindValidation, err)
	}

	records, err := p.query(ctx, query, args...)
	if err != nil {
		return nil, p.classify(op, tableName, databases.KindQuery, err)
	}
	if len(records) == 0 {
		return nil, databases.ErrNoRecord
	}
	return records[0], nil
}

// FindMany retrieves every row matching filter.
func (p *PostgresDatabaseClient) FindMany(ctx context.Context, tableName string, filter models.Filter, opts models.FindOptions) ([]models.Record, error) {
	const op = "find_many"
	if err := p.ready(tableName); err != nil {
		return nil, err
	}

	query, args, err := selectQuery(tableName, filter, opts, 0)
	if err != nil {
		return nil, databases.NewPersistenceError(op, tableName, databases.KindValidation, err)
	}

	records, err := p.query(ctx, query, args...)
	if err != nil {
		return nil, p.classify(op, tableName, databases.KindQuery, err)
	}
	return records, nil
}

// UpdateMany applies mutation to every matching row.
// PostgreSQL does not tell matched and modified rows apart, so both report rows affected.
func (p *PostgresDatabaseClient) UpdateMany(ctx context.Context, tableName string, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error) {
	const op = "update_many"
	if err := p.ready(tableName); err != nil {
		return models.UpdateResult{}, err
	}

	query, args, err := updateQuery(tableName, filter, mutation)
	if err != nil {
		return models.UpdateResult{}, databases.NewPersistenceError(op, tableName, databases.KindValidation, err)
	}

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.UpdateResult{}, p.classify(op, tableName, databases.KindWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.UpdateResult{}, p.classify(op, tableName, databases.KindWrite, err)
	}

	return models.UpdateResult{Matched: n, Modified: n}, nil
}

// DeleteMany deletes every row matching filter.
func (p *PostgresDatabaseClient) DeleteMany(ctx context.Context, tableName string, filter models.Filter) (models.DeleteResult, error) {
	const op = "delete_many"
	if err := p.ready(tableName); err != nil {
		return models.DeleteResult{}, err
	}

	query, args, err := deleteQuery(tableName, filter)
	if err != nil {
		return models.DeleteResult{}, databases.NewPersistenceError(op, tableName, databases.KindValidation, err)
	}

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.DeleteResult{}, p.classify(op, tableName, databases.KindWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.DeleteResult{}, p.classify(op, tableName, databases.KindWrite, err)
	}

	return models.DeleteResult{Deleted: n}, nil
}

// EnsureCollection creates the table for s when it does not exist yet.
func (p *PostgresDatabaseClient) EnsureCollection(ctx context.Context, s *schema.Schema) error {
	if err := p.ready(s.Collection); err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, createTableQuery(s)); err != nil {
		return p.classify("ensure_collection", s.Collection, databases.KindWrite, err)
	}

	p.mu.Lock()
	p.schemas[s.Collection] = s
	p.mu.Unlock()

	return nil
}

// EnsureIndex creates an index over one column.
func (p *PostgresDatabaseClient) EnsureIndex(ctx context.Context, tableName string, field string, unique bool) error {
	if err := p.ready(tableName); err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, createIndexQuery(tableName, field, unique)); err != nil {
		return p.classify("ensure_index", tableName, databases.KindWrite, err)
	}
	return nil
}

// Ping checks the health of the PostgreSQL connection and refreshes the link state.
func (p *PostgresDatabaseClient) Ping(ctx context.Context) error {
	if p.closed.Load() {
		return &databases.ConnectionError{Err: databases.ErrClosed}
	}
	if p.db == nil {
		return &databases.ConnectionError{Err: databases.ErrNotConnected}
	}

	if err := p.db.PingContext(ctx); err != nil {
		connErr := &databases.ConnectionError{Err: err}
		if prev := p.linkErr.Swap(connErr); prev == nil {
			p.logger.Error("PostgresDatabaseClient: connection error", "error", err)
		}
		return connErr
	}
	if prev := p.linkErr.Swap(nil); prev != nil {
		p.logger.Info("PostgresDatabaseClient: link up")
	}
	return nil
}

func (p *PostgresDatabaseClient) query(ctx context.Context, query string, args ...interface{}) ([]models.Record, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			p.logger.Warn("PostgresDatabaseClient: failed to close rows", "error", cerr)
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([]models.Record, 0)
	for rows.Next() {
		columnPointers := make([]interface{}, len(columns))
		columnValues := make([]interface{}, len(columns))
		for i := range columns {
			columnPointers[i] = &columnValues[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		record := make(models.Record, len(columns))
		for i, colName := range columns {
			val := columnValues[i]
			if val == nil {
				continue
			}
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			if colName == idColumn {
				record[models.IDField] = fmt.Sprint(val)
				continue
			}
			record[colName] = val
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *PostgresDatabaseClient) schemaFor(tableName string) *schema.Schema {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.schemas[tableName]
}

func (p *PostgresDatabaseClient) ready(tableName string) error {
	if err := p.Err(); err != nil {
		return err
	}
	if p.db == nil {
		return &databases.ConnectionError{Err: databases.ErrNotConnected}
	}
	if tableName == "" {
		return databases.NewValidationError("", tableName, "PostgresDatabaseClient: table name cannot be empty")
	}
	return nil
}

func (p *PostgresDatabaseClient) connectFailed(err error) error {
	connErr := &databases.ConnectionError{Err: err}
	p.linkErr.Store(connErr)
	p.logger.Error("PostgresDatabaseClient: connection error", "error", err)
	return connErr
}

// classify maps PostgreSQL error codes onto the store's error taxonomy.
func (p *PostgresDatabaseClient) classify(op, tableName string, kind databases.Kind, err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return &databases.ConnectionError{Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqUniqueViolation:
			kind = databases.KindDuplicateKey
		case pqErr.Code == pqNotNullViolation, pqErr.Code == pqCheckViolation:
			kind = databases.KindValidation
		case pqErr.Code.Class() == "08":
			return &databases.ConnectionError{Err: err}
		}
	}
	return databases.NewPersistenceError(op, tableName, kind, err)
}
