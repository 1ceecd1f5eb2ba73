package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

var identifierCols = []string{"id", "barcode", "kind", "checkable_id", "created_at"}

func TestIdentifierGetByOwnerMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM checkin_identifiers WHERE kind = \\? AND checkable_id = \\?").
		WithArgs("venue", 3).
		WillReturnRows(sqlmock.NewRows(identifierCols))

	_, err = NewIdentifierRepo(db).GetByOwner(context.Background(), model.KindVenue, 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierGetByBarcode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM checkin_identifiers WHERE barcode = \\?").
		WithArgs("012345").
		WillReturnRows(sqlmock.NewRows(identifierCols).AddRow(4, "012345", "venue", 3, at))

	got, err := NewIdentifierRepo(db).GetByBarcode(context.Background(), "012345")
	require.NoError(t, err)
	assert.Equal(t, model.KindVenue, got.Kind)
	assert.Equal(t, uint64(3), got.CheckableID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierWithTxInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM checkin_identifiers WHERE kind = \\? AND checkable_id = \\?$").
		WithArgs("adjudicator", 5).
		WillReturnRows(sqlmock.NewRows(identifierCols))
	mock.ExpectExec("INSERT IGNORE INTO checkin_identifiers").
		WithArgs("123456", "adjudicator", 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	ident := &model.Identifier{Barcode: "123456", Kind: model.KindAdjudicator, CheckableID: 5, CreatedAt: time.Now()}
	err = NewIdentifierRepo(db).WithTx(context.Background(), func(tx IdentifierTx) error {
		if _, err := tx.IdentifierFor(context.Background(), model.KindAdjudicator, 5); !errors.Is(err, ErrNotFound) {
			return err
		}
		ok, err := tx.InsertIdentifier(context.Background(), ident)
		require.True(t, ok)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), ident.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierWithTxRetriesDeadlock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	mock.ExpectBegin()
	mock.ExpectQuery("checkable_id = \\?$").
		WithArgs("venue", 3).
		WillReturnRows(sqlmock.NewRows(identifierCols))
	mock.ExpectExec("INSERT IGNORE INTO checkin_identifiers").
		WillReturnError(deadlock)
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery("checkable_id = \\?$").
		WithArgs("venue", 3).
		WillReturnRows(sqlmock.NewRows(identifierCols))
	mock.ExpectExec("INSERT IGNORE INTO checkin_identifiers").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	attempts := 0
	var created *model.Identifier
	err = NewIdentifierRepo(db).WithTx(context.Background(), func(tx IdentifierTx) error {
		attempts++
		if _, err := tx.IdentifierFor(context.Background(), model.KindVenue, 3); !errors.Is(err, ErrNotFound) {
			return err
		}
		ident := &model.Identifier{Barcode: "000003", Kind: model.KindVenue, CheckableID: 3}
		if _, err := tx.InsertIdentifier(context.Background(), ident); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		created = ident
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.NotNil(t, created)
	assert.Equal(t, uint64(8), created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierWithTxGivesUpAfterRepeatedDeadlocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < maxTxAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT IGNORE INTO checkin_identifiers").
			WillReturnError(&mysql.MySQLError{Number: 1213})
		mock.ExpectRollback()
	}

	err = NewIdentifierRepo(db).WithTx(context.Background(), func(tx IdentifierTx) error {
		_, err := tx.InsertIdentifier(context.Background(), &model.Identifier{Barcode: "000004", Kind: model.KindVenue, CheckableID: 4})
		return err
	})
	var me *mysql.MySQLError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, uint16(1213), me.Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierLockedReadUsesForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("checkable_id = \\? FOR UPDATE$").
		WithArgs("speaker", 2).
		WillReturnRows(sqlmock.NewRows(identifierCols).AddRow(5, "222222", "speaker", 2, at))
	mock.ExpectCommit()

	err = NewIdentifierRepo(db).WithTx(context.Background(), func(tx IdentifierTx) error {
		got, err := tx.LockedIdentifierFor(context.Background(), model.KindSpeaker, 2)
		if err != nil {
			return err
		}
		assert.Equal(t, "222222", got.Barcode)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierWithTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT IGNORE INTO checkin_identifiers").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	boom := errors.New("stop")
	err = NewIdentifierRepo(db).WithTx(context.Background(), func(tx IdentifierTx) error {
		ok, err := tx.InsertIdentifier(context.Background(), &model.Identifier{Barcode: "000001", Kind: model.KindVenue, CheckableID: 1})
		require.NoError(t, err)
		assert.False(t, ok, "duplicate key affects zero rows")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInEventAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO checkin_events").
		WithArgs(7, true, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(9, 1))

	ev := &model.CheckInEvent{IdentifierID: 7, State: true, RecordedAt: time.Now()}
	require.NoError(t, NewCheckInEventRepo(db).Append(context.Background(), ev))
	assert.Equal(t, uint64(9), ev.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInEventRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("ORDER BY recorded_at DESC, id DESC LIMIT \\?").
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier_id", "state", "actor_id", "recorded_at"}).
			AddRow(11, 7, false, 3, at).
			AddRow(10, 7, true, nil, at))

	evs, err := NewCheckInEventRepo(db).Recent(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, uint64(3), evs[0].ActorID)
	assert.False(t, evs[0].State)
	assert.Zero(t, evs[1].ActorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPreferenceRepo(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT value FROM tournament_preferences").
		WithArgs(1, "public_draw").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	v, ok, err := repo.GetPreference(ctx, 1, model.PrefPublicDraw)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)

	mock.ExpectExec("ON DUPLICATE KEY UPDATE").
		WithArgs(1, "public_draw", "current").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetPreference(ctx, 1, model.PrefPublicDraw, "current"))

	mock.ExpectQuery("SELECT value FROM tournament_preferences").
		WithArgs(1, "public_draw").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("current"))
	v, ok, err = repo.GetPreference(ctx, 1, model.PrefPublicDraw)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "current", v)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTournamentGetBySlugMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM tournaments WHERE slug = \\?").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "current_round_id", "created_at"}))

	_, err = NewTournamentRepo(db).GetBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
