package recordstore

import (
	"context"
	"errors"
	"time"

	"github.com/haguru/bookshelf/internal/interfaces"
	storemetrics "github.com/haguru/bookshelf/internal/metrics"
	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"
	"github.com/haguru/bookshelf/pkg/databases"
)

const (
	OpCreate         = "create"
	OpSave           = "save"
	OpFindOne        = "find_one"
	OpFindAll        = "find_all"
	OpFindOneOrdered = "find_one_ordered"
	OpUpdate         = "update"
	OpRemove         = "remove"
	OpEnsureIndexes  = "ensure_indexes"
)

var _ interfaces.RecordStore = (*Store)(nil)

// Store performs create, read, update and delete against one collection
// through the shared connection handle. Every field map passes through the
// schema before it reaches the driver.
type Store struct {
	client  interfaces.DBClient
	schema  *schema.Schema
	logger  interfaces.Logger
	metrics interfaces.Metrics
}

// NewStore binds a store to the collection of s. The metrics must already
// carry the store metrics (see metrics.RegisterStoreMetrics).
func NewStore(client interfaces.DBClient, s *schema.Schema, logger interfaces.Logger, metrics interfaces.Metrics) *Store {
	return &Store{
		client:  client,
		schema:  s,
		logger:  logger.WithContext(map[string]interface{}{"collection": s.Collection}),
		metrics: metrics,
	}
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.schema.Collection
}

// Schema returns the schema the store applies.
func (s *Store) Schema() *schema.Schema {
	return s.schema
}

// Create transforms and validates fields, inserts them and returns the stored
// record including its assigned identity.
func (s *Store) Create(ctx context.Context, fields models.Record) (models.Record, error) {
	start := time.Now()

	record, err := s.schema.ApplyRecord(fields)
	if err != nil {
		err = databases.NewPersistenceError(OpCreate, s.Collection(), databases.KindValidation, err)
		s.observe(OpCreate, start, err, "fields", fields)
		return nil, err
	}

	id, err := s.client.InsertOne(ctx, s.Collection(), record)
	if err != nil {
		err = databases.NewPersistenceError(OpCreate, s.Collection(), databases.KindWrite, err)
		s.observe(OpCreate, start, err, "fields", record)
		return nil, err
	}
	record[models.IDField] = id

	s.observe(OpCreate, start, nil, "id", id, "fields", record)
	return record, nil
}

// Save replaces the record named by the identity in fields, inserting it when
// missing. Without an identity it behaves like Create.
func (s *Store) Save(ctx context.Context, fields models.Record) (models.Record, error) {
	id := fields.ID()
	if id == "" {
		return s.Create(ctx, fields)
	}
	start := time.Now()

	record, err := s.schema.ApplyRecord(fields)
	if err != nil {
		err = databases.NewPersistenceError(OpSave, s.Collection(), databases.KindValidation, err)
		s.observe(OpSave, start, err, "id", id, "fields", fields)
		return nil, err
	}

	if err := s.client.ReplaceOne(ctx, s.Collection(), id, record); err != nil {
		err = databases.NewPersistenceError(OpSave, s.Collection(), databases.KindWrite, err)
		s.observe(OpSave, start, err, "id", id, "fields", record)
		return nil, err
	}

	s.observe(OpSave, start, nil, "id", id, "fields", record)
	return record, nil
}

// FindOne returns the first record matching filter, or nil when nothing matches.
// With a projection only the named fields (and the identity) are returned.
func (s *Store) FindOne(ctx context.Context, filter models.Filter, projection ...string) (models.Record, error) {
	return s.findOne(ctx, OpFindOne, filter, nil, projection)
}

// FindOneOrdered returns the first record matching filter under the given sort
// order, or nil when nothing matches.
func (s *Store) FindOneOrdered(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (models.Record, error) {
	if err := s.schema.SortField(orderField); err != nil {
		err = databases.NewPersistenceError(OpFindOneOrdered, s.Collection(), databases.KindValidation, err)
		s.observe(OpFindOneOrdered, time.Now(), err, "filter", filter, "sort", orderField)
		return nil, err
	}
	if !direction.Valid() {
		err := databases.NewValidationError(OpFindOneOrdered, s.Collection(), "invalid sort direction %d on %q", int(direction), orderField)
		s.observe(OpFindOneOrdered, time.Now(), err, "filter", filter, "sort", orderField)
		return nil, err
	}
	return s.findOne(ctx, OpFindOneOrdered, filter, []models.Sort{{Field: orderField, Direction: direction}}, nil)
}

func (s *Store) findOne(ctx context.Context, op string, filter models.Filter, sort []models.Sort, projection []string) (models.Record, error) {
	start := time.Now()

	opts, applied, err := s.readArgs(filter, projection)
	if err != nil {
		err = databases.NewPersistenceError(op, s.Collection(), databases.KindValidation, err)
		s.observe(op, start, err, "filter", filter)
		return nil, err
	}
	opts.Sort = sort

	record, err := s.client.FindOne(ctx, s.Collection(), applied, opts)
	if errors.Is(err, databases.ErrNoRecord) {
		s.observeAbsent(op, start, "filter", applied)
		return nil, nil
	}
	if err != nil {
		err = databases.NewPersistenceError(op, s.Collection(), databases.KindQuery, err)
		s.observe(op, start, err, "filter", applied)
		return nil, err
	}

	s.observe(op, start, nil, "filter", applied, "id", record.ID())
	return record, nil
}

// FindAll returns every record matching filter. The result is empty, never nil,
// when nothing matches.
func (s *Store) FindAll(ctx context.Context, filter models.Filter, projection ...string) ([]models.Record, error) {
	start := time.Now()

	opts, applied, err := s.readArgs(filter, projection)
	if err != nil {
		err = databases.NewPersistenceError(OpFindAll, s.Collection(), databases.KindValidation, err)
		s.observe(OpFindAll, start, err, "filter", filter)
		return nil, err
	}

	records, err := s.client.FindMany(ctx, s.Collection(), applied, opts)
	if err != nil {
		err = databases.NewPersistenceError(OpFindAll, s.Collection(), databases.KindQuery, err)
		s.observe(OpFindAll, start, err, "filter", applied)
		return nil, err
	}
	if records == nil {
		records = []models.Record{}
	}

	s.observe(OpFindAll, start, nil, "filter", applied, "count", len(records))
	return records, nil
}

// Update applies mutation to every record matching filter. Matching nothing
// is not an error.
func (s *Store) Update(ctx context.Context, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error) {
	start := time.Now()

	applied, err := s.schema.ApplyFilter(filter)
	if err != nil {
		err = databases.NewPersistenceError(OpUpdate, s.Collection(), databases.KindValidation, err)
		s.observe(OpUpdate, start, err, "filter", filter, "mutation", mutation)
		return models.UpdateResult{}, err
	}
	change, err := s.schema.ApplyMutation(mutation)
	if err != nil {
		err = databases.NewPersistenceError(OpUpdate, s.Collection(), databases.KindValidation, err)
		s.observe(OpUpdate, start, err, "filter", applied, "mutation", mutation)
		return models.UpdateResult{}, err
	}

	res, err := s.client.UpdateMany(ctx, s.Collection(), applied, change)
	if err != nil {
		err = databases.NewPersistenceError(OpUpdate, s.Collection(), databases.KindWrite, err)
		s.observe(OpUpdate, start, err, "filter", applied, "mutation", change)
		return models.UpdateResult{}, err
	}

	s.observe(OpUpdate, start, nil, "filter", applied, "mutation", change, "matched", res.Matched, "modified", res.Modified)
	return res, nil
}

// Remove deletes every record matching filter.
func (s *Store) Remove(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	start := time.Now()

	applied, err := s.schema.ApplyFilter(filter)
	if err != nil {
		err = databases.NewPersistenceError(OpRemove, s.Collection(), databases.KindValidation, err)
		s.observe(OpRemove, start, err, "filter", filter)
		return models.DeleteResult{}, err
	}

	res, err := s.client.DeleteMany(ctx, s.Collection(), applied)
	if err != nil {
		err = databases.NewPersistenceError(OpRemove, s.Collection(), databases.KindWrite, err)
		s.observe(OpRemove, start, err, "filter", applied)
		return models.DeleteResult{}, err
	}

	s.observe(OpRemove, start, nil, "filter", applied, "deleted", res.Deleted)
	return res, nil
}

// EnsureIndexes prepares the collection and creates an index for every schema
// field flagged Index or Unique.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	start := time.Now()

	if err := s.client.EnsureCollection(ctx, s.schema); err != nil {
		s.observe(OpEnsureIndexes, start, err)
		return err
	}

	var indexed []string
	for _, f := range s.schema.Fields {
		if !f.Index && !f.Unique {
			continue
		}
		if err := s.client.EnsureIndex(ctx, s.Collection(), f.Name, f.Unique); err != nil {
			s.observe(OpEnsureIndexes, start, err, "field", f.Name)
			return err
		}
		indexed = append(indexed, f.Name)
	}

	s.observe(OpEnsureIndexes, start, nil, "fields", indexed)
	return nil
}

func (s *Store) readArgs(filter models.Filter, projection []string) (models.FindOptions, models.Filter, error) {
	applied, err := s.schema.ApplyFilter(filter)
	if err != nil {
		return models.FindOptions{}, nil, err
	}
	fields, err := s.schema.Projection(projection)
	if err != nil {
		return models.FindOptions{}, nil, err
	}
	return models.FindOptions{Projection: fields}, applied, nil
}

// observe emits the structured event and metrics for one operation.
func (s *Store) observe(op string, start time.Time, err error, keyvals ...interface{}) {
	outcome := storemetrics.OutcomeOK
	switch {
	case databases.IsConnectionError(err):
		outcome = storemetrics.OutcomeConnection
	case err != nil:
		outcome = storemetrics.OutcomeError
	}
	s.record(op, start, outcome, err, keyvals)
}

func (s *Store) observeAbsent(op string, start time.Time, keyvals ...interface{}) {
	s.record(op, start, storemetrics.OutcomeNotFound, nil, keyvals)
}

func (s *Store) record(op string, start time.Time, outcome string, err error, keyvals []interface{}) {
	elapsed := time.Since(start)
	s.metrics.IncCounterVec(storemetrics.StoreOperationsTotal, s.Collection(), op, outcome)
	s.metrics.ObserveHistogramVec(storemetrics.StoreOperationDurationSeconds, elapsed.Seconds(), s.Collection(), op)

	fields := append([]interface{}{"op", op, "outcome", outcome, "duration", elapsed}, keyvals...)
	if err != nil {
		s.logger.Error("record store operation failed", append(fields, "error", err)...)
		return
	}
	s.logger.Info("record store operation", fields...)
}
