package shell

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"

	tableRestaurants       = "restaurants"
	tableMenuItems         = "restaurant_menu_items"
	tableRestaurantOrders  = "restaurant_orders"
	tableOrderLineItems    = "restaurant_order_line_items"
	logActionFetchState    = "fetch state"
	logActionSaveState     = "save state"
	logMsgRollbackFailed   = "failed to roll back transaction"
	logMsgStateConflict    = "state version conflict detected"
	logAttrTable           = "table"
	logAttrID              = "id"
	logAttrExpectedVersion = "expected_version"
)

var (
	// ErrNilSQLXDB is returned when a nil *sqlx.DB is provided.
	ErrNilSQLXDB = errors.New("sqlx db must not be nil")

	// ErrUnsupportedDriver is returned for database drivers other than postgres, pgx and sqlite.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrFetchingStateFailed is returned when loading a state fails.
	ErrFetchingStateFailed = errors.New("fetching state failed")

	// ErrSavingStateFailed is returned when writing a state fails.
	ErrSavingStateFailed = errors.New("saving state failed")
)

// SQLStateStore keeps the state of state-stored aggregates in relational tables, one header row per
// aggregate plus its item rows. Every save runs in one transaction.
//
// It works on PostgreSQL and SQLite. The SQL dialect is derived from the sqlx driver name.
type SQLStateStore struct {
	db       *sqlx.DB
	dialect  goqu.DialectWrapper
	observer observe.Observer
}

// SQLStateStoreOption configures a SQLStateStore.
type SQLStateStoreOption func(*SQLStateStore)

// WithStateStoreLogger sets the logger.
func WithStateStoreLogger(logger eventstore.Logger) SQLStateStoreOption {
	return func(s *SQLStateStore) {
		s.observer.Logger = logger
	}
}

// WithStateStoreContextualLogger sets the contextual logger.
func WithStateStoreContextualLogger(logger eventstore.ContextualLogger) SQLStateStoreOption {
	return func(s *SQLStateStore) {
		s.observer.ContextualLogger = logger
	}
}

// NewSQLStateStore creates the store on db. The schema is not created.
func NewSQLStateStore(db *sqlx.DB, options ...SQLStateStoreOption) (*SQLStateStore, error) {
	if db == nil {
		return nil, ErrNilSQLXDB
	}

	var dialect string
	switch db.DriverName() {
	case "postgres", "pgx":
		dialect = dialectPostgres
	case "sqlite", "sqlite3":
		dialect = dialectSQLite
	default:
		return nil, errors.Join(ErrUnsupportedDriver, errors.New(db.DriverName()))
	}

	s := &SQLStateStore{db: db, dialect: goqu.Dialect(dialect)}
	for _, option := range options {
		option(s)
	}

	return s, nil
}

// SchemaStatements returns the DDL of all tables. It is valid for PostgreSQL and SQLite.
func (s *SQLStateStore) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + tableRestaurants + ` (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			status      TEXT NOT NULL,
			menu_id     TEXT NOT NULL,
			cuisine     TEXT NOT NULL,
			menu_status TEXT NOT NULL,
			version     BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableMenuItems + ` (
			restaurant_id TEXT NOT NULL REFERENCES ` + tableRestaurants + ` (id) ON DELETE CASCADE,
			item_index    INTEGER NOT NULL,
			id            TEXT NOT NULL,
			menu_item_id  TEXT NOT NULL,
			name          TEXT NOT NULL,
			price         BIGINT NOT NULL,
			PRIMARY KEY (restaurant_id, item_index)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableRestaurantOrders + ` (
			id            TEXT PRIMARY KEY,
			restaurant_id TEXT NOT NULL,
			status        TEXT NOT NULL,
			version       BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableOrderLineItems + ` (
			order_id     TEXT NOT NULL REFERENCES ` + tableRestaurantOrders + ` (id) ON DELETE CASCADE,
			item_index   INTEGER NOT NULL,
			id           TEXT NOT NULL,
			quantity     INTEGER NOT NULL,
			menu_item_id TEXT NOT NULL,
			name         TEXT NOT NULL,
			PRIMARY KEY (order_id, item_index)
		)`,
	}
}

// CreateSchema creates all tables if they do not exist.
func (s *SQLStateStore) CreateSchema(ctx context.Context) error {
	for _, statement := range s.SchemaStatements() {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return errors.Join(eventstore.ErrCreatingSchemaFailed, err)
		}
	}

	return nil
}

// inTx runs fn in a transaction and commits if it succeeds.
func (s *SQLStateStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Join(eventstore.ErrBeginningTransactionFailed, err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.observer.LogWarn(ctx, logMsgRollbackFailed, rollbackErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Join(eventstore.ErrCommittingTransactionFailed, err)
	}

	return nil
}

// get scans one row into dest. It reports found=false for no rows.
func (s *SQLStateStore) get(ctx context.Context, tx *sqlx.Tx, dest any, query *goqu.SelectDataset) (bool, error) {
	sqlQuery, args, err := query.Prepared(true).ToSQL()
	if err != nil {
		return false, errors.Join(eventstore.ErrBuildingQueryFailed, err)
	}

	start := time.Now()
	err = tx.GetContext(ctx, dest, sqlQuery, args...)
	s.observer.LogSQL(ctx, logActionFetchState, sqlQuery, time.Since(start))

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, errors.Join(ErrFetchingStateFailed, err)
	}

	return true, nil
}

// selectAll scans all rows into dest, a pointer to a slice.
func (s *SQLStateStore) selectAll(ctx context.Context, tx *sqlx.Tx, dest any, query *goqu.SelectDataset) error {
	sqlQuery, args, err := query.Prepared(true).ToSQL()
	if err != nil {
		return errors.Join(eventstore.ErrBuildingQueryFailed, err)
	}

	start := time.Now()
	err = tx.SelectContext(ctx, dest, sqlQuery, args...)
	s.observer.LogSQL(ctx, logActionFetchState, sqlQuery, time.Since(start))

	if err != nil {
		return errors.Join(ErrFetchingStateFailed, err)
	}

	return nil
}

// exec runs a write and returns the number of affected rows.
func (s *SQLStateStore) exec(ctx context.Context, tx *sqlx.Tx, sqlQuery string, args []any, toSQLErr error) (int64, error) {
	if toSQLErr != nil {
		return 0, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	result, err := tx.ExecContext(ctx, sqlQuery, args...)
	s.observer.LogSQL(ctx, logActionSaveState, sqlQuery, time.Since(start))

	if err != nil {
		return 0, errors.Join(ErrSavingStateFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Join(ErrSavingStateFailed, err)
	}

	return rowsAffected, nil
}

// writeHeader inserts the header row for a new aggregate or updates it if its version is still expected.
// It fails with eventstore.ErrConcurrencyConflict if no row was written.
func (s *SQLStateStore) writeHeader(
	ctx context.Context,
	tx *sqlx.Tx,
	table string,
	id string,
	columns goqu.Record,
	expected eventstore.SequenceNumber,
) error {

	var sqlQuery string
	var args []any
	var toSQLErr error

	if expected == eventstore.NoStream {
		record := goqu.Record{"id": id, "version": expected + 1}
		for column, value := range columns {
			record[column] = value
		}

		sqlQuery, args, toSQLErr = s.dialect.Insert(table).
			Rows(record).
			OnConflict(goqu.DoNothing()).
			Prepared(true).
			ToSQL()
	} else {
		record := goqu.Record{"version": expected + 1}
		for column, value := range columns {
			record[column] = value
		}

		sqlQuery, args, toSQLErr = s.dialect.Update(table).
			Set(record).
			Where(goqu.C("id").Eq(id), goqu.C("version").Eq(expected)).
			Prepared(true).
			ToSQL()
	}

	rowsAffected, err := s.exec(ctx, tx, sqlQuery, args, toSQLErr)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		s.observer.LogOperation(ctx, logMsgStateConflict, logAttrTable, table, logAttrID, id, logAttrExpectedVersion, expected)
		return eventstore.ErrConcurrencyConflict
	}

	return nil
}

// replaceItems deletes the item rows of the aggregate and inserts the given ones.
func (s *SQLStateStore) replaceItems(
	ctx context.Context,
	tx *sqlx.Tx,
	table string,
	parentColumn string,
	parentID string,
	rows []any,
) error {

	sqlQuery, args, toSQLErr := s.dialect.Delete(table).
		Where(goqu.C(parentColumn).Eq(parentID)).
		Prepared(true).
		ToSQL()

	if _, err := s.exec(ctx, tx, sqlQuery, args, toSQLErr); err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	sqlQuery, args, toSQLErr = s.dialect.Insert(table).
		Rows(rows...).
		Prepared(true).
		ToSQL()

	_, err := s.exec(ctx, tx, sqlQuery, args, toSQLErr)

	return err
}
