package interfaces

import (
	"context"

	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"
)

// DBClient defines the interface for a generic database client.
// It abstracts common database operations across different database types (e.g., MongoDB, SQL).
// A DBClient is the process-wide connection handle: it is connected once,
// shared by every record store and disconnected once at shutdown.
type DBClient interface {
	// Connect establishes a connection to the database.
	// It takes a context for cancellation and timeouts, and a DSN (Data Source Name) string.
	// Returns a ConnectionError if the connection fails; the handle then stays failed.
	Connect(ctx context.Context, dsn string) error

	// Disconnect closes the database connection. Only the first call has any effect.
	Disconnect(ctx context.Context) error

	// Err reports the state of the link: nil when healthy, a ConnectionError otherwise.
	Err() error

	// InsertOne inserts a single record into the specified collection/table.
	// Returns the identity assigned to the record.
	InsertOne(ctx context.Context, collectionName string, record models.Record) (string, error)

	// ReplaceOne replaces the record with the given identity, inserting it when missing.
	ReplaceOne(ctx context.Context, collectionName string, id string, record models.Record) error

	// FindOne retrieves the first record matching filter, honouring the sort order
	// and projection in opts. Returns databases.ErrNoRecord when nothing matches.
	FindOne(ctx context.Context, collectionName string, filter models.Filter, opts models.FindOptions) (models.Record, error)

	// FindMany retrieves every record matching filter.
	FindMany(ctx context.Context, collectionName string, filter models.Filter, opts models.FindOptions) ([]models.Record, error)

	// UpdateMany applies mutation (in operator form) to every record matching filter.
	UpdateMany(ctx context.Context, collectionName string, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error)

	// DeleteMany deletes every record matching filter.
	DeleteMany(ctx context.Context, collectionName string, filter models.Filter) (models.DeleteResult, error)

	// EnsureCollection prepares storage for the schema's collection
	// (a table for SQL databases; a no-op for document databases).
	EnsureCollection(ctx context.Context, s *schema.Schema) error

	// EnsureIndex creates an index over one field of a collection.
	EnsureIndex(ctx context.Context, collectionName string, field string, unique bool) error

	// Ping checks the health of the database connection.
	// Returns an error if the database is unreachable or unhealthy.
	Ping(ctx context.Context) error
}
