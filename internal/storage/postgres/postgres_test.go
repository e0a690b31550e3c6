package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"saldo/internal/storage"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestGet(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	blob := []byte(`{"a":"2025-01-01T00:00:00Z"}`)
	mock.ExpectQuery(regexp.QuoteMeta(queryGet)).
		WithArgs(storage.DefaultKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(blob))

	got, found, err := s.Get(context.Background(), storage.DefaultKey)
	if err != nil || !found || string(got) != string(blob) {
		t.Fatalf("unexpected get: %q found=%v err=%v", got, found, err)
	}
}

func TestGetNoRows(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryGet)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, found, err := s.Get(context.Background(), "missing")
	if err != nil || found {
		t.Fatalf("expected not found without error, got found=%v err=%v", found, err)
	}
}

func TestGetError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryGet)).
		WithArgs("k").
		WillReturnError(errors.New("connection reset by peer"))

	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSet(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectExec(regexp.QuoteMeta(querySet)).
		WithArgs("k", []byte("v")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestSetError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectExec(regexp.QuoteMeta(querySet)).
		WithArgs("k", []byte("v")).
		WillReturnError(errors.New("read-only transaction"))

	if err := s.Set(context.Background(), "k", []byte("v")); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmptyKey(t *testing.T) {
	s := NewWithDB(nil)
	if err := s.Set(context.Background(), "", nil); !errors.Is(err, storage.ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}
