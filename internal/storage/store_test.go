package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiokaizen/bear-vision/internal/lava/model"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/storage"
	"github.com/aiokaizen/bear-vision/internal/testutil"
)

type account struct {
	model.Base
	Name            string  `field:"name"`
	Broker          string  `field:"broker"`
	StartingBalance float64 `field:"starting_balance"`
}

var accountDescriptor = &schema.Descriptor{
	App:  "trading_insights",
	Name: "Account",
	Fields: model.WithBaseFields(
		schema.Field{Name: "name", Kind: schema.KindString, Editable: true, Required: true},
		schema.Field{Name: "broker", Kind: schema.KindString, Editable: true},
		schema.Field{Name: "starting_balance", Kind: schema.KindDecimal, Editable: true},
	),
	Ordering: []string{"name"},
	New:      func() schema.Entity { return &account{} },
}

func (a *account) Descriptor() *schema.Descriptor { return accountDescriptor }
func (a *account) String() string                 { return a.Name }

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	return testutil.NewStore(t)
}

func TestMigrate(t *testing.T) {
	store := openTestStore(t)
	version, err := store.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// idempotent
	require.NoError(t, store.Migrate(context.Background()))
}

func TestCRUDRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	created := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	acc := &account{Name: "Main", Broker: "ICMarkets", StartingBalance: 1000.5}
	acc.CreatedAt = &created

	id, err := store.Insert(ctx, acc)
	require.NoError(t, err)
	require.NotZero(t, id)
	acc.SetPK(id)

	got, err := store.Get(ctx, accountDescriptor, id)
	require.NoError(t, err)
	loaded := got.(*account)
	assert.Equal(t, "Main", loaded.Name)
	assert.Equal(t, "ICMarkets", loaded.Broker)
	assert.InDelta(t, 1000.5, loaded.StartingBalance, 1e-9)
	require.NotNil(t, loaded.CreatedAt)
	assert.True(t, created.Equal(*loaded.CreatedAt))
	assert.Nil(t, loaded.CreatedBy)

	acc.Broker = "Pepperstone"
	require.NoError(t, store.Update(ctx, acc))
	got, err = store.FindBy(ctx, accountDescriptor, "broker", "Pepperstone")
	require.NoError(t, err)
	assert.Equal(t, id, got.PK())

	require.NoError(t, store.Delete(ctx, acc))
	_, err = store.Get(ctx, accountDescriptor, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateAndDeleteMissingRow(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	ghost := &account{Name: "ghost"}
	ghost.SetPK(404)

	assert.ErrorIs(t, store.Update(ctx, ghost), storage.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, ghost), storage.ErrNotFound)
}

func TestListPaginationAndCount(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for _, name := range []string{"delta", "alpha", "charlie", "bravo"} {
		_, err := store.Insert(ctx, &account{Name: name, Broker: "x"})
		require.NoError(t, err)
	}

	n, err := store.Count(ctx, accountDescriptor)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	page, err := store.List(ctx, accountDescriptor, storage.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "bravo", page[0].String())
	assert.Equal(t, "charlie", page[1].String())

	all, err := store.List(ctx, accountDescriptor, storage.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	n, err = store.Count(ctx, accountDescriptor, storage.Filter{Field: "name", Value: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.List(ctx, accountDescriptor, storage.ListOptions{Filters: []storage.Filter{{Field: "nope", Value: 1}}})
	assert.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), storage.Config{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestRebind(t *testing.T) {
	pg := storage.New(nil, storage.DriverPostgres, nil)
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := storage.New(nil, storage.DriverSQLite, nil)
	assert.Equal(t, "a = ?", lite.Rebind("a = ?"))
}

func TestClosedStore(t *testing.T) {
	store := storage.New(nil, storage.DriverSQLite, nil)
	_, err := store.Insert(context.Background(), &account{})
	assert.ErrorIs(t, err, storage.ErrNotOpen)
	assert.NoError(t, store.Close())
}

func TestPostgresInsertUsesReturning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "trading_insights_account"`) + `.*` + regexp.QuoteMeta(`VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	store := storage.New(db, storage.DriverPostgres, nil)
	id, err := store.Insert(context.Background(), &account{Name: "pg"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(mock sqlmock.Sqlmock)
		run    func(s *storage.Store) error
		errMsg string
	}{
		{
			name: "insert",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO").WillReturnError(assert.AnError)
			},
			run: func(s *storage.Store) error {
				_, err := s.Insert(context.Background(), &account{Name: "x"})
				return err
			},
			errMsg: "failed to insert trading_insights.account",
		},
		{
			name: "list",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
			},
			run: func(s *storage.Store) error {
				_, err := s.List(context.Background(), accountDescriptor, storage.ListOptions{})
				return err
			},
			errMsg: "failed to list trading_insights.account",
		},
		{
			name: "count",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT COUNT").WillReturnError(assert.AnError)
			},
			run: func(s *storage.Store) error {
				_, err := s.Count(context.Background(), accountDescriptor)
				return err
			},
			errMsg: "failed to count trading_insights.account",
		},
		{
			name: "delete",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM").WillReturnError(assert.AnError)
			},
			run: func(s *storage.Store) error {
				acc := &account{}
				acc.SetPK(1)
				return s.Delete(context.Background(), acc)
			},
			errMsg: "failed to delete trading_insights.account 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setup(mock)

			err = tt.run(storage.New(db, storage.DriverSQLite, nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.True(t, errors.Is(err, assert.AnError))
		})
	}
}
