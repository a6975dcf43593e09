package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haguru/bookshelf/config"
	"github.com/haguru/bookshelf/internal/interfaces"
	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"
	"github.com/haguru/bookshelf/pkg/databases"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

const (
	IDFIELD = models.IDField

	// document validation failure reported by the server
	codeDocumentValidationFailure = 121
)

// MongoDBClient implements the interfaces.DBClient interface for MongoDB operations.
// It is the shared connection handle; the driver keeps its own connection pool behind it.
type MongoDBClient struct {
	ServerOpts *options.ServerAPIOptions
	client     *mongo.Client
	db         *mongo.Database
	timeout    time.Duration
	poolSize   uint64
	replicaSet string
	credential *options.Credential
	logger     interfaces.Logger

	linkErr   atomic.Pointer[databases.ConnectionError]
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewMongoDB returns a interface for db client built from the configuration.
// The client is not usable until Connect succeeds.
func NewMongoDB(dbConfig *config.MongoDBConfig, logger interfaces.Logger) interfaces.DBClient {
	poolSize := dbConfig.PoolSize
	if poolSize == 0 {
		poolSize = config.DefaultMongoPoolSize
	}

	db := &MongoDBClient{
		timeout:    dbConfig.Timeout,
		ServerOpts: config.BuildServerAPIOptions(dbConfig.Options),
		poolSize:   poolSize,
		replicaSet: dbConfig.ReplicaSet.Name,
		logger:     logger,
	}
	if dbConfig.User != "" {
		db.credential = &options.Credential{
			Username:   dbConfig.User,
			Password:   dbConfig.Password,
			AuthSource: dbConfig.AuthSource,
		}
	}
	db.linkErr.Store(&databases.ConnectionError{Err: databases.ErrNotConnected})

	return db
}

// NewMongoDBFromClient wraps an already connected driver client.
func NewMongoDBFromClient(client *mongo.Client, databaseName string, logger interfaces.Logger) *MongoDBClient {
	m := &MongoDBClient{
		client: client,
		db:     client.Database(databaseName),
		logger: logger,
	}
	m.linkErr.Store(nil)
	return m
}

// Connect establishes a connection to the MongoDB database using the provided DSN (Data Source Name).
// It initializes the MongoDB client and sets the database instance.
// The DSN should be in the format "mongodb://<host>:<port>/<database>".
// On failure the handle keeps reporting the ConnectionError from Err.
func (m *MongoDBClient) Connect(ctx context.Context, dsn string) error {
	if m.closed.Load() {
		return &databases.ConnectionError{Err: databases.ErrClosed}
	}

	// Validate the DSN format
	if dsn == "" {
		return m.connectFailed(fmt.Errorf("MongoDBClient: DSN is empty"))
	}
	if !strings.HasPrefix(dsn, "mongodb://") && !strings.HasPrefix(dsn, "mongodb+srv://") {
		return m.connectFailed(fmt.Errorf("MongoDBClient: Invalid DSN format, expected 'mongodb://' or 'mongodb+srv://'"))
	}

	// Extract the database name from the DSN
	databaseName, err := getDBNameFromMongoDSN(dsn)
	if err != nil {
		return m.connectFailed(fmt.Errorf("MongoDBClient: Failed to extract database name from datasource name(dsn): %w", err))
	}

	m.logger.Info("MongoDBClient: Connecting", "hosts", redactDSN(dsn), "database", databaseName)

	// Set a timeout for the connection
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	clientOptions := options.Client().ApplyURI(dsn)
	if m.ServerOpts != nil {
		clientOptions.SetServerAPIOptions(m.ServerOpts)
	}
	clientOptions.SetMaxPoolSize(m.poolSize)
	clientOptions.SetReadPreference(readpref.PrimaryPreferred())
	clientOptions.SetServerMonitor(m.serverMonitor())
	if m.replicaSet != "" {
		clientOptions.SetReplicaSet(m.replicaSet)
	}
	if m.credential != nil {
		clientOptions.SetAuth(*m.credential)
	}
	if m.timeout > 0 {
		clientOptions.SetServerSelectionTimeout(m.timeout)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return m.connectFailed(err)
	}

	// Check if the connection is successful by pinging the server
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return m.connectFailed(fmt.Errorf("MongoDBClient: Failed to connect to MongoDB server: %w", err))
	}

	m.client = client
	m.db = client.Database(databaseName)
	m.markUp()
	m.logger.Info("MongoDBClient: connected", "database", databaseName)

	return nil
}

// Disconnect closes the connection to the MongoDB database.
// Only the first call disconnects; afterwards every operation fails with ErrClosed.
func (m *MongoDBClient) Disconnect(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.linkErr.Store(&databases.ConnectionError{Err: databases.ErrClosed})
		if m.client != nil {
			err = m.client.Disconnect(ctx)
		}
		m.logger.Info("MongoDBClient: disconnected")
	})

	return err
}

// Err reports the current link state.
func (m *MongoDBClient) Err() error {
	if e := m.linkErr.Load(); e != nil {
		return e
	}
	return nil
}

// InsertOne inserts a record and returns its ID.
func (m *MongoDBClient) InsertOne(ctx context.Context, collectionName string, record models.Record) (string, error) {
	const op = "insert_one"
	if err := m.ready(collectionName); err != nil {
		return "", err
	}
	if err := sanitizeRecord(record); err != nil {
		return "", databases.NewPersistenceError(op, collectionName, databases.KindValidation, err)
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	doc := toMongoDocument(record)
	if _, ok := doc[IDFIELD]; !ok {
		doc[IDFIELD] = newObjectID()
	}

	res, err := m.db.Collection(collectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", m.classify(op, collectionName, databases.KindWrite, err)
	}

	return idString(res.InsertedID), nil
}

// ReplaceOne replaces the record with the given identity, inserting it when missing.
func (m *MongoDBClient) ReplaceOne(ctx context.Context, collectionName string, id string, record models.Record) error {
	const op = "replace_one"
	if err := m.ready(collectionName); err != nil {
		return err
	}
	if id == "" {
		return databases.NewValidationError(op, collectionName, "identity cannot be empty")
	}
	if err := sanitizeRecord(record); err != nil {
		return databases.NewPersistenceError(op, collectionName, databases.KindValidation, err)
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	doc := toMongoDocument(record)
	delete(doc, IDFIELD)

	_, err := m.db.Collection(collectionName).ReplaceOne(ctx,
		bson.M{IDFIELD: toMongoID(id)}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return m.classify(op, collectionName, databases.KindWrite, err)
	}

	return nil
}

// FindOne retrieves the first record matching the filter.
// It returns databases.ErrNoRecord if no document is found.
func (m *MongoDBClient) FindOne(ctx context.Context, collectionName string, filter models.Filter, opts models.FindOptions) (models.Record, error) {
	const op = "find_one"
	if err := m.ready(collectionName); err != nil {
		return nil, err
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	findOpts := options.FindOne()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(sortDocument(opts.Sort))
	}
	if len(opts.Projection) > 0 {
		findOpts.SetProjection(projectionDocument(opts.Projection))
	}

	var doc bson.M
	err := m.db.Collection(collectionName).FindOne(ctx, toMongoFilter(filter), findOpts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, databases.ErrNoRecord
		}
		return nil, m.classify(op, collectionName, databases.KindQuery, err)
	}

	return fromMongoDocument(doc), nil
}

// FindMany retrieves multiple records from the specified collection.
// It returns an empty slice when nothing matches.
func (m *MongoDBClient) FindMany(ctx context.Context, collectionName string, filter models.Filter, opts models.FindOptions) ([]models.Record, error) {
	const op = "find_many"
	if err := m.ready(collectionName); err != nil {
		return nil, err
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(sortDocument(opts.Sort))
	}
	if len(opts.Projection) > 0 {
		findOpts.SetProjection(projectionDocument(opts.Projection))
	}

	cursor, err := m.db.Collection(collectionName).Find(ctx, toMongoFilter(filter), findOpts)
	if err != nil {
		return nil, m.classify(op, collectionName, databases.KindQuery, err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			m.logger.Warn("MongoDBClient: Failed to close cursor", "collection", collectionName, "error", err)
		}
	}()

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, m.classify(op, collectionName, databases.KindQuery, err)
	}

	results := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		results = append(results, fromMongoDocument(doc))
	}

	return results, nil
}

// UpdateMany applies the mutation to every matching document.
// Matching nothing is not an error.
func (m *MongoDBClient) UpdateMany(ctx context.Context, collectionName string, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error) {
	const op = "update_many"
	if err := m.ready(collectionName); err != nil {
		return models.UpdateResult{}, err
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	res, err := m.db.Collection(collectionName).UpdateMany(ctx, toMongoFilter(filter), bson.M(mutation))
	if err != nil {
		return models.UpdateResult{}, m.classify(op, collectionName, databases.KindWrite, err)
	}

	return models.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

// DeleteMany removes multiple documents from a collection using a filter.
// Returns the count of deleted documents and an error if the operation fails.
func (m *MongoDBClient) DeleteMany(ctx context.Context, collectionName string, filter models.Filter) (models.DeleteResult, error) {
	const op = "delete_many"
	if err := m.ready(collectionName); err != nil {
		return models.DeleteResult{}, err
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	res, err := m.db.Collection(collectionName).DeleteMany(ctx, toMongoFilter(filter))
	if err != nil {
		return models.DeleteResult{}, m.classify(op, collectionName, databases.KindWrite, err)
	}

	return models.DeleteResult{Deleted: res.DeletedCount}, nil
}

// EnsureCollection is a no-op for MongoDB: collections are created on first write.
func (m *MongoDBClient) EnsureCollection(ctx context.Context, s *schema.Schema) error {
	return m.ready(s.Collection)
}

// EnsureIndex creates an ascending index over field.
// If the collection does not exist, it will be created automatically.
func (m *MongoDBClient) EnsureIndex(ctx context.Context, collectionName string, field string, unique bool) error {
	if err := m.ready(collectionName); err != nil {
		return err
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	model := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(unique),
	}
	if _, err := m.db.Collection(collectionName).Indexes().CreateOne(ctx, model); err != nil {
		return m.classify("ensure_index", collectionName, databases.KindWrite, err)
	}

	return nil
}

// Ping verifies the MongoDB connection health using a ping command.
func (m *MongoDBClient) Ping(ctx context.Context) error {
	if m.closed.Load() {
		return &databases.ConnectionError{Err: databases.ErrClosed}
	}
	if m.client == nil {
		return &databases.ConnectionError{Err: databases.ErrNotConnected}
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	if err := m.client.Ping(ctx, readpref.PrimaryPreferred()); err != nil {
		return &databases.ConnectionError{Err: err}
	}
	return nil
}

// ready fails fast when the link is down or the collection name is unusable.
func (m *MongoDBClient) ready(collectionName string) error {
	if err := m.Err(); err != nil {
		return err
	}
	if m.db == nil {
		return &databases.ConnectionError{Err: databases.ErrNotConnected}
	}
	if collectionName == "" {
		return databases.NewValidationError("", collectionName, "MongoDBClient: Collection name cannot be empty")
	}
	return nil
}

func (m *MongoDBClient) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return ctx, func() {}
}

func (m *MongoDBClient) connectFailed(err error) error {
	connErr := &databases.ConnectionError{Err: err}
	m.linkErr.Store(connErr)
	m.logger.Error("MongoDBClient: connection error", "error", err)
	return connErr
}

// classify turns a driver error into the store's error taxonomy.
func (m *MongoDBClient) classify(op, collectionName string, kind databases.Kind, err error) error {
	switch {
	case errors.Is(err, mongo.ErrClientDisconnected), mongo.IsNetworkError(err), isServerSelectionError(err):
		return &databases.ConnectionError{Err: err}
	case mongo.IsDuplicateKeyError(err):
		kind = databases.KindDuplicateKey
	case hasErrorCode(err, codeDocumentValidationFailure):
		kind = databases.KindValidation
	}
	return databases.NewPersistenceError(op, collectionName, kind, err)
}

// isServerSelectionError reports whether no server could be selected for the operation.
func isServerSelectionError(err error) bool {
	var sse topology.ServerSelectionError
	return errors.As(err, &sse) || errors.Is(err, topology.ErrServerSelectionTimeout)
}

func hasErrorCode(err error, code int) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(code)
}

// getDBNameFromMongoDSN extracts the database name from a MongoDB DSN.
func getDBNameFromMongoDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse MongoDB DSN: %w", err)
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("no database name found in MongoDB DSN path")
	}

	// If the path contains additional segments (e.g., /db/collection), use only the first as the database name.
	if idx := strings.Index(dbName, "/"); idx != -1 {
		dbName = dbName[:idx]
	}

	return dbName, nil
}

// redactDSN returns the host list of a DSN without credentials.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<unparseable>"
	}
	return u.Host
}

// sanitizeRecord rejects keys that could be interpreted as operators or paths.
func sanitizeRecord(record models.Record) error {
	for key := range record {
		if key == IDFIELD {
			continue
		}
		if key == "" || strings.ContainsAny(key, "$.") {
			return fmt.Errorf("MongoDBClient: invalid or unsafe field name: %q", key)
		}
	}
	return nil
}
