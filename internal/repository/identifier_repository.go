package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// IdentifierTx is the view of the identifier table available inside a
// transaction opened by WithTx.
type IdentifierTx interface {
	// IdentifierFor returns the identifier owned by (kind, checkableID)
	// or ErrNotFound. It is a plain read and takes no locks.
	IdentifierFor(ctx context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error)
	// LockedIdentifierFor is IdentifierFor as a locking read. It sees rows
	// committed by concurrent transactions after this one began. Call it
	// only after an insert for the owner affected zero rows, so that the
	// row it locks exists.
	LockedIdentifierFor(ctx context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error)
	// InsertIdentifier attempts to attach ident to its owner. It returns
	// false without error when either unique key (barcode or owner)
	// already exists; the caller decides which by re-reading the owner.
	InsertIdentifier(ctx context.Context, ident *model.Identifier) (bool, error)
}

// IdentifierRepo persists rows of `checkin_identifiers`. The table has
// two unique keys: barcode, and (kind, checkable_id).
type IdentifierRepo struct {
	db *sql.DB
}

// NewIdentifierRepo constructs an IdentifierRepo.
func NewIdentifierRepo(db *sql.DB) *IdentifierRepo {
	return &IdentifierRepo{db: db}
}

const identifierColumns = "id, barcode, kind, checkable_id, created_at"

func scanIdentifier(row interface{ Scan(...any) error }) (*model.Identifier, error) {
	var (
		ident model.Identifier
		kind  string
	)
	if err := row.Scan(&ident.ID, &ident.Barcode, &kind, &ident.CheckableID, &ident.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ident.Kind = model.CheckableKind(kind)
	return &ident, nil
}

// GetByOwner returns the identifier of a checkable or ErrNotFound.
func (r *IdentifierRepo) GetByOwner(ctx context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error) {
	const q = "SELECT " + identifierColumns + " FROM checkin_identifiers WHERE kind = ? AND checkable_id = ?"
	return scanIdentifier(r.db.QueryRowContext(ctx, q, string(kind), checkableID))
}

// GetByBarcode returns the identifier with the given barcode or ErrNotFound.
func (r *IdentifierRepo) GetByBarcode(ctx context.Context, barcode string) (*model.Identifier, error) {
	const q = "SELECT " + identifierColumns + " FROM checkin_identifiers WHERE barcode = ?"
	return scanIdentifier(r.db.QueryRowContext(ctx, q, barcode))
}

// maxTxAttempts bounds how often WithTx reruns a transaction that InnoDB
// chose as a deadlock victim.
const maxTxAttempts = 3

// erDeadlock is ER_LOCK_DEADLOCK. InnoDB has already rolled the victim
// back when it is reported.
const erDeadlock = 1213

// WithTx runs fn in a single transaction. Every identifier inserted by fn
// is committed together or not at all. A transaction rolled back by a
// deadlock is rerun from the start, so fn must not keep state across
// calls.
func (r *IdentifierRepo) WithTx(ctx context.Context, fn func(tx IdentifierTx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runInTx(ctx, r.db, func(tx *sql.Tx) error {
			return fn(&identifierTx{tx: tx})
		})
		if !isDeadlock(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == erDeadlock
}

type identifierTx struct {
	tx *sql.Tx
}

// IdentifierFor is a consistent non-locking read. A locking read of a
// missing owner would take a gap lock, and two creators holding gap locks
// on the same range deadlock on their inserts.
func (t *identifierTx) IdentifierFor(ctx context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error) {
	const q = "SELECT " + identifierColumns + " FROM checkin_identifiers WHERE kind = ? AND checkable_id = ?"
	return scanIdentifier(t.tx.QueryRowContext(ctx, q, string(kind), checkableID))
}

// LockedIdentifierFor reads the latest committed row under REPEATABLE
// READ, which the snapshot used by IdentifierFor would hide.
func (t *identifierTx) LockedIdentifierFor(ctx context.Context, kind model.CheckableKind, checkableID uint64) (*model.Identifier, error) {
	const q = "SELECT " + identifierColumns + " FROM checkin_identifiers WHERE kind = ? AND checkable_id = ? FOR UPDATE"
	return scanIdentifier(t.tx.QueryRowContext(ctx, q, string(kind), checkableID))
}

// InsertIdentifier relies on INSERT IGNORE: a duplicate on either unique
// key affects zero rows instead of failing the transaction. When a racing
// transaction holds an uncommitted row for the same owner the insert
// waits for it to finish.
func (t *identifierTx) InsertIdentifier(ctx context.Context, ident *model.Identifier) (bool, error) {
	const q = "INSERT IGNORE INTO checkin_identifiers (barcode, kind, checkable_id, created_at) VALUES (?, ?, ?, ?)"
	res, err := t.tx.ExecContext(ctx, q, ident.Barcode, string(ident.Kind), ident.CheckableID, ident.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	ident.ID = uint64(id)
	return true, nil
}
