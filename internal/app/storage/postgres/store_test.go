package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/egov-platform/citizen-services/internal/app/domain/fine"
	"github.com/egov-platform/citizen-services/internal/app/domain/identity"
	"github.com/egov-platform/citizen-services/internal/app/domain/request"
	"github.com/egov-platform/citizen-services/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestTranslate(t *testing.T) {
	if translate(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if !errors.Is(translate(sql.ErrNoRows), storage.ErrNotFound) {
		t.Fatal("ErrNoRows must become ErrNotFound")
	}
	if !errors.Is(translate(&pq.Error{Code: "23505"}), storage.ErrDuplicate) {
		t.Fatal("unique violation must become ErrDuplicate")
	}
	other := errors.New("boom")
	if translate(other) != other {
		t.Fatal("unknown errors must pass through")
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateUser(context.Background(), identity.User{Username: "alice"})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, email, password_hash, created_at")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUser(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateRequestOwnershipMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE service_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateRequest(context.Background(), request.ServiceRequest{
		ID:     "req-1",
		UserID: "intruder",
		Status: request.StatusApproved,
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteInstrumentIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payment_instruments")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteInstrument(context.Background(), "user-1"); err != nil {
		t.Fatalf("got %v, want nil for absent instrument", err)
	}
}

func fineRows(fines ...fine.TrafficFine) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "fine_number", "user_id", "amount", "violation_type",
		"issued_at", "due_date", "status", "notes", "created_at", "updated_at",
	})
	for _, f := range fines {
		rows.AddRow(f.ID, f.FineNumber, f.UserID, f.Amount, f.ViolationType,
			f.IssuedAt, f.DueDate, f.Status, f.Notes, f.CreatedAt, f.UpdatedAt)
	}
	return rows
}

func TestPayFinesEmptySetRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WillReturnRows(fineRows())
	mock.ExpectRollback()

	paid, entries, err := store.PayFines(context.Background(), "user-1", []string{"f-1"}, false)
	if err != nil {
		t.Fatalf("PayFines: %v", err)
	}
	if len(paid) != 0 || len(entries) != 0 {
		t.Fatalf("paid=%v entries=%v, want empty", paid, entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPayFinesCommitsBatch(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	target := fine.TrafficFine{
		ID:            "f-1",
		FineNumber:    "FN-1",
		UserID:        "user-1",
		Amount:        120,
		ViolationType: "speeding",
		Status:        fine.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WillReturnRows(fineRows(target))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE traffic_fines")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	paid, entries, err := store.PayFines(context.Background(), "user-1", []string{"f-1"}, false)
	if err != nil {
		t.Fatalf("PayFines: %v", err)
	}
	if len(paid) != 1 || paid[0].Status != fine.StatusPaid {
		t.Fatalf("paid = %+v", paid)
	}
	if len(entries) != 1 || !entries[0].IsPaid || entries[0].Status != request.StatusApproved {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Payload["fine_number"] != "FN-1" {
		t.Fatalf("ledger payload = %v", entries[0].Payload)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPayFinesSkipsConcurrentlyPaid(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	target := fine.TrafficFine{
		ID: "f-1", FineNumber: "FN-1", UserID: "user-1",
		Status: fine.StatusPending, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WillReturnRows(fineRows(target))
	// The guarded update touches zero rows: another batch won the race.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE traffic_fines")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	paid, entries, err := store.PayFines(context.Background(), "user-1", nil, true)
	if err != nil {
		t.Fatalf("PayFines: %v", err)
	}
	if len(paid) != 0 || len(entries) != 0 {
		t.Fatalf("paid=%v entries=%v, want empty", paid, entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
