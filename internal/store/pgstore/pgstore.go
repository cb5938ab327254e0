package pgstore

import (
	"context"
	"errors"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintVisitorPrimary = "visitors_pkey"
	pgUniqueViolationCode    = "23505"
	errorOperationStore      = "store"
	errorSubjectVisitor      = "visitor"
	errorSubjectState        = "state"
	errorSubjectSchema       = "schema"
	errorSubjectTransaction  = "transaction"
	errorCodeBegin           = "begin"
	errorCodeClear           = "clear"
	errorCodeCommit          = "commit"
	errorCodeCreate          = "create"
	errorCodeDelete          = "delete"
	errorCodeGet             = "get"
	errorCodeInsert          = "insert"
	errorCodeUpsert          = "upsert"

	sqlCreateSchema = `
		create table if not exists visitors (
			visitor_id varchar(36) primary key,
			created_at timestamptz not null default now()
		);
		create table if not exists client_state (
			visitor_id varchar(36) not null,
			state_key varchar(32) not null,
			value jsonb not null,
			updated_at timestamptz not null default now(),
			primary key (visitor_id, state_key)
		);
		create index if not exists idx_client_state_visitor on client_state(visitor_id);
	`

	sqlInsertVisitor = `
		insert into visitors(visitor_id) values($1)
		on conflict (visitor_id) do nothing
	`

	sqlSelectState = `
		select value #>> '{}' from client_state
		where visitor_id = $1 and state_key = $2
	`

	sqlUpsertState = `
		insert into client_state(visitor_id, state_key, value, updated_at)
		values($1, $2, to_jsonb($3::text), now())
		on conflict (visitor_id, state_key) do update set value = excluded.value, updated_at = excluded.updated_at
	`

	sqlDeleteState = `
		delete from client_state where visitor_id = $1 and state_key = $2
	`

	sqlClearState = `
		delete from client_state where visitor_id = $1
	`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row
}

// Store implements clientstate.Store using a pgx connection pool (autocommit).
type Store struct {
	pool *pgxpool.Pool
	conn querier
}

var (
	_ clientstate.Store      = (*Store)(nil)
	_ clientstate.Transactor = (*Store)(nil)
)

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, conn: pool}
}

// EnsureSchema creates the visitors and client_state tables when missing.
func (store *Store) EnsureSchema(ctx context.Context) error {
	if _, err := store.conn.Exec(ctx, sqlCreateSchema); err != nil {
		return wrapStoreError(errorSubjectSchema, errorCodeCreate, err)
	}
	return nil
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore clientstate.Store) error) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	if err := fn(ctx, &Store{pool: store.pool, conn: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) RegisterVisitor(ctx context.Context, visitorID clientstate.VisitorID) (bool, error) {
	if visitorID.IsZero() {
		return false, wrapStoreError(errorSubjectVisitor, errorCodeInsert, clientstate.ErrInvalidVisitorID)
	}
	tag, err := store.conn.Exec(ctx, sqlInsertVisitor, visitorID.String())
	if isVisitorConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, wrapStoreError(errorSubjectVisitor, errorCodeInsert, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (store *Store) Get(ctx context.Context, visitorID clientstate.VisitorID, key clientstate.Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", wrapStoreError(errorSubjectState, errorCodeGet, err)
	}
	var value string
	err := store.conn.QueryRow(ctx, sqlSelectState, visitorID.String(), key.String()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", clientstate.ErrNotFound
	}
	if err != nil {
		return "", wrapStoreError(errorSubjectState, errorCodeGet, err)
	}
	return value, nil
}

func (store *Store) Put(ctx context.Context, visitorID clientstate.VisitorID, key clientstate.Key, value string) error {
	if visitorID.IsZero() {
		return wrapStoreError(errorSubjectState, errorCodeUpsert, clientstate.ErrInvalidVisitorID)
	}
	if err := key.Validate(); err != nil {
		return wrapStoreError(errorSubjectState, errorCodeUpsert, err)
	}
	if _, err := store.conn.Exec(ctx, sqlUpsertState, visitorID.String(), key.String(), value); err != nil {
		return wrapStoreError(errorSubjectState, errorCodeUpsert, err)
	}
	return nil
}

func (store *Store) Delete(ctx context.Context, visitorID clientstate.VisitorID, key clientstate.Key) error {
	if err := key.Validate(); err != nil {
		return wrapStoreError(errorSubjectState, errorCodeDelete, err)
	}
	if _, err := store.conn.Exec(ctx, sqlDeleteState, visitorID.String(), key.String()); err != nil {
		return wrapStoreError(errorSubjectState, errorCodeDelete, err)
	}
	return nil
}

func (store *Store) Clear(ctx context.Context, visitorID clientstate.VisitorID) error {
	if _, err := store.conn.Exec(ctx, sqlClearState, visitorID.String()); err != nil {
		return wrapStoreError(errorSubjectState, errorCodeClear, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return clientstate.WrapError(errorOperationStore, subject, code, err)
}

func isVisitorConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintVisitorPrimary
	}
	return false
}
