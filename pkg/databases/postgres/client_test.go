package postgres

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haguru/bookshelf/config"
	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"
	"github.com/haguru/bookshelf/pkg/databases"
	"github.com/haguru/bookshelf/pkg/zerolog"
)

func newMockClient(t *testing.T) (*PostgresDatabaseClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresFromDB(db, zerolog.NewJSONLogger(io.Discard, "test")), mock
}

func bookSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("book",
		schema.Field{Name: "title", Type: schema.String, Required: true, Index: true},
		schema.Field{Name: "author", Type: schema.String},
	)
	require.NoError(t, err)
	return s
}

func TestPostgresDatabaseClient_InsertOne(t *testing.T) {
	t.Run("keeps caller identity", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectExec(`INSERT INTO "book" ("id", "author", "title") VALUES ($1, $2, $3)`).
			WithArgs("id1", "luo guanzhong", "Three Kingdoms").
			WillReturnResult(sqlmock.NewResult(0, 1))

		id, err := client.InsertOne(context.Background(), "book", models.Record{
			models.IDField: "id1",
			"title":        "Three Kingdoms",
			"author":       "luo guanzhong",
		})
		require.NoError(t, err)
		assert.Equal(t, "id1", id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("generates a uuid", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectExec(`INSERT INTO "book" ("id", "title") VALUES ($1, $2)`).
			WithArgs(sqlmock.AnyArg(), "T").
			WillReturnResult(sqlmock.NewResult(0, 1))

		id, err := client.InsertOne(context.Background(), "book", models.Record{"title": "T"})
		require.NoError(t, err)
		_, err = uuid.Parse(id)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectExec(`INSERT INTO "book" ("id", "title") VALUES ($1, $2)`).
			WithArgs("id1", "T").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

		_, err := client.InsertOne(context.Background(), "book", models.Record{models.IDField: "id1", "title": "T"})
		assert.True(t, databases.IsDuplicateKey(err))
	})

	t.Run("connection failure", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectExec(`INSERT INTO "book" ("id", "title") VALUES ($1, $2)`).
			WithArgs("id1", "T").
			WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})

		_, err := client.InsertOne(context.Background(), "book", models.Record{models.IDField: "id1", "title": "T"})
		assert.True(t, databases.IsConnectionError(err))
	})
}

func TestPostgresDatabaseClient_FindOne(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectQuery(`SELECT * FROM "book" WHERE "title" = $1 LIMIT 1`).
			WithArgs("T").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author"}).AddRow("id1", "T", nil))

		got, err := client.FindOne(context.Background(), "book", models.Filter{"title": "T"}, models.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, models.Record{models.IDField: "id1", "title": "T"}, got)
	})

	t.Run("ordered with projection", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectQuery(`SELECT "id", "title" FROM "book" WHERE "author" = $1 ORDER BY "title" DESC LIMIT 1`).
			WithArgs("happy").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow("id9", "Z"))

		got, err := client.FindOne(context.Background(), "book", models.Filter{"author": "happy"}, models.FindOptions{
			Sort:       []models.Sort{{Field: "title", Direction: models.Descending}},
			Projection: []string{models.IDField, "title"},
		})
		require.NoError(t, err)
		assert.Equal(t, models.Record{models.IDField: "id9", "title": "Z"}, got)
	})

	t.Run("absent", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectQuery(`SELECT * FROM "book" WHERE "title" = $1 LIMIT 1`).
			WithArgs("none").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

		got, err := client.FindOne(context.Background(), "book", models.Filter{"title": "none"}, models.FindOptions{})
		assert.ErrorIs(t, err, databases.ErrNoRecord)
		assert.Nil(t, got)
	})
}

func TestPostgresDatabaseClient_FindMany(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT * FROM "book" WHERE "id" = ANY($1) AND "pages" > $2`).
		WithArgs(sqlmock.AnyArg(), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow("a", "A").AddRow("b", "B"))

	got, err := client.FindMany(context.Background(), "book", models.Filter{
		models.IDField: map[string]interface{}{"$in": []interface{}{"a", "b"}},
		"pages":        map[string]interface{}{"$gt": 10},
	}, models.FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []models.Record{
		{models.IDField: "a", "title": "A"},
		{models.IDField: "b", "title": "B"},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDatabaseClient_FindMany_Empty(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT * FROM "book"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

	got, err := client.FindMany(context.Background(), "book", models.Filter{}, models.FindOptions{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgresDatabaseClient_UpdateMany(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`UPDATE "book" SET "pages" = COALESCE("pages", 0) + $1, "author" = $2 WHERE "author" = $3`).
		WithArgs(1, "happy", "luo guanzhong").
		WillReturnResult(sqlmock.NewResult(0, 2))

	got, err := client.UpdateMany(context.Background(), "book",
		models.Filter{"author": "luo guanzhong"},
		models.Mutation{
			schema.SetOperator: map[string]interface{}{"author": "happy"},
			schema.IncOperator: map[string]interface{}{"pages": 1},
		})
	require.NoError(t, err)
	assert.Equal(t, models.UpdateResult{Matched: 2, Modified: 2}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDatabaseClient_UpdateMany_Unset(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`UPDATE "book" SET "author" = NULL WHERE "id" = $1`).
		WithArgs("id1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	got, err := client.UpdateMany(context.Background(), "book",
		models.Filter{models.IDField: "id1"},
		models.Mutation{schema.UnsetOperator: map[string]interface{}{"author": ""}})
	require.NoError(t, err)
	assert.Equal(t, models.UpdateResult{}, got)
}

func TestPostgresDatabaseClient_DeleteMany(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`DELETE FROM "book" WHERE "author" = $1`).
		WithArgs("happy").
		WillReturnResult(sqlmock.NewResult(0, 3))

	got, err := client.DeleteMany(context.Background(), "book", models.Filter{"author": "happy"})
	require.NoError(t, err)
	assert.Equal(t, models.DeleteResult{Deleted: 3}, got)
}

func TestPostgresDatabaseClient_EnsureCollectionAndReplace(t *testing.T) {
	client, mock := newMockClient(t)
	s := bookSchema(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "book" ("id" TEXT PRIMARY KEY, "title" TEXT NOT NULL, "author" TEXT)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "book_title_idx" ON "book" ("title")`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "book" ("id", "author", "title") VALUES ($1, $2, $3) ON CONFLICT ("id") DO UPDATE SET "author" = EXCLUDED."author", "title" = EXCLUDED."title"`).
		WithArgs("id1", nil, "T").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, client.EnsureCollection(context.Background(), s))
	require.NoError(t, client.EnsureIndex(context.Background(), "book", "title", false))
	require.NoError(t, client.ReplaceOne(context.Background(), "book", "id1", models.Record{"title": "T"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDatabaseClient_Ping(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, databases.IsConnectionError(err))

	// operations fail fast while the link is down
	_, err = client.FindMany(context.Background(), "book", models.Filter{}, models.FindOptions{})
	assert.True(t, databases.IsConnectionError(err))

	mock.ExpectPing()
	require.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Err())
}

func TestPostgresDatabaseClient_Disconnect(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectClose()

	require.NoError(t, client.Disconnect(context.Background()))
	require.NoError(t, client.Disconnect(context.Background()))

	_, err := client.InsertOne(context.Background(), "book", models.Record{"title": "T"})
	assert.ErrorIs(t, err, databases.ErrClosed)
	assert.ErrorIs(t, client.Ping(context.Background()), databases.ErrClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresDatabaseClient(t *testing.T) {
	client := NewPostgresDatabaseClient(config.PostgresServerOptions{}, zerolog.NewJSONLogger(io.Discard, "test"))

	p, ok := client.(*PostgresDatabaseClient)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxOpenConns, p.MaxOpenConns)
	assert.Equal(t, DefaultMaxIdleConns, p.MaxIdleConns)
	assert.Equal(t, DefaultConnMaxLifetime, p.ConnMaxLifetime)
	assert.ErrorIs(t, client.Err(), databases.ErrNotConnected)
}

func TestWhereClause_UnsupportedOperator(t *testing.T) {
	_, err := whereClause(models.Filter{"title": map[string]interface{}{"$regex": "x"}}, &params{})
	assert.Error(t, err)
}
