package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

var (
	// ErrVersionConflict is returned when an optimistic update matched no row at the expected version.
	ErrVersionConflict = errors.New("row version conflict")
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// conn returns the transaction bound to ctx, falling back to db.
func conn(ctx context.Context, db DBTX) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return db
}

// Transactor runs units of work inside a single database transaction.
// Repositories called with the context passed to fn join that transaction.
type Transactor struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

func NewTransactor(db *sql.DB, logger logrus.FieldLogger) *Transactor {
	return &Transactor{db: db, logger: logger}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
// A nested call reuses the outer transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && t.logger != nil {
			t.logger.WithError(rbErr).WithField("original_error", err.Error()).Error("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func requireAffected(result sql.Result, none error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return none
	}
	return nil
}

func nullableStringValue(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableActorKindValue(v *entity.ActorKind) interface{} {
	if v == nil {
		return nil
	}
	return string(*v)
}

func nullableStageValue(v *entity.DisputeStage) interface{} {
	if v == nil {
		return nil
	}
	return string(*v)
}

func nullableTimeValue(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return v.UTC()
}

func stringPtrFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func actorKindPtrFromNull(v sql.NullString) *entity.ActorKind {
	if !v.Valid {
		return nil
	}
	k := entity.ActorKind(v.String)
	return &k
}

func stagePtrFromNull(v sql.NullString) *entity.DisputeStage {
	if !v.Valid {
		return nil
	}
	s := entity.DisputeStage(v.String)
	return &s
}

func timePtrFromNull(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
