package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintVisitorPrimary = "visitors_pkey"
	pgUniqueViolationCode    = "23505"
	sqliteConstraintCode     = 19
	errorOperationStore      = "store"
	errorSubjectVisitor      = "visitor"
	errorSubjectState        = "state"
	errorCodeClear           = "clear"
	errorCodeDecode          = "decode"
	errorCodeDelete          = "delete"
	errorCodeEncode          = "encode"
	errorCodeGet             = "get"
	errorCodeInsert          = "insert"
	errorCodeUpsert          = "upsert"
)

// Store implements clientstate.Store using GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ clientstate.Store      = (*Store)(nil)
	_ clientstate.Transactor = (*Store)(nil)
)

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// AutoMigrate creates the visitors and client_state tables.
func (store *Store) AutoMigrate(ctx context.Context) error {
	return store.db.WithContext(ctx).AutoMigrate(Models()...)
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore clientstate.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction, now: store.now})
	})
}

func (store *Store) RegisterVisitor(ctx context.Context, visitorID clientstate.VisitorID) (bool, error) {
	if visitorID.IsZero() {
		return false, wrapStoreError(errorSubjectVisitor, errorCodeInsert, clientstate.ErrInvalidVisitorID)
	}
	visitor := Visitor{VisitorID: visitorID.String(), CreatedAt: store.now()}
	// DO NOTHING keeps a surrounding postgres transaction usable when the visitor exists.
	result := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "visitor_id"}}, DoNothing: true}).
		Create(&visitor)
	if isVisitorConflict(result.Error) {
		return false, nil
	}
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectVisitor, errorCodeInsert, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (store *Store) Get(ctx context.Context, visitorID clientstate.VisitorID, key clientstate.Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", wrapStoreError(errorSubjectState, errorCodeGet, err)
	}
	var row ClientState
	err := store.db.WithContext(ctx).
		Where("visitor_id = ? AND state_key = ?", visitorID.String(), key.String()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", clientstate.ErrNotFound
	}
	if err != nil {
		return "", wrapStoreError(errorSubjectState, errorCodeGet, err)
	}
	var value string
	if err := json.Unmarshal(row.Value, &value); err != nil {
		return "", wrapStoreError(errorSubjectState, errorCodeDecode, err)
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
	encoded, err := json.Marshal(value)
	if err != nil {
		return wrapStoreError(errorSubjectState, errorCodeEncode, err)
	}
	row := ClientState{
		VisitorID: visitorID.String(),
		StateKey:  key.String(),
		Value:     datatypes.JSON(encoded),
		UpdatedAt: store.now(),
	}
	err = store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "visitor_id"}, {Name: "state_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorSubjectState, errorCodeUpsert, err)
	}
	return nil
}

func (store *Store) Delete(ctx context.Context, visitorID clientstate.VisitorID, key clientstate.Key) error {
	if err := key.Validate(); err != nil {
		return wrapStoreError(errorSubjectState, errorCodeDelete, err)
	}
	err := store.db.WithContext(ctx).
		Where("visitor_id = ? AND state_key = ?", visitorID.String(), key.String()).
		Delete(&ClientState{}).Error
	if err != nil {
		return wrapStoreError(errorSubjectState, errorCodeDelete, err)
	}
	return nil
}

func (store *Store) Clear(ctx context.Context, visitorID clientstate.VisitorID) error {
	err := store.db.WithContext(ctx).
		Where("visitor_id = ?", visitorID.String()).
		Delete(&ClientState{}).Error
	if err != nil {
		return wrapStoreError(errorSubjectState, errorCodeClear, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return clientstate.WrapError(errorOperationStore, subject, code, err)
}

func isVisitorConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintVisitorPrimary
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
