package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"

	"lifehub/internal/schema"
)

func TestIsTxScope(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("x"), want: false},
		{name: "tx done", err: fmt.Errorf("wrap: %w", sql.ErrTxDone), want: true},
		{name: "busy", err: &StorageError{Op: "begin", Err: sqlite3.Error{Code: sqlite3.ErrBusy}}, want: true},
		{name: "io", err: sqlite3.Error{Code: sqlite3.ErrIoErr}, want: true},
		{name: "full", err: sqlite3.Error{Code: sqlite3.ErrFull}, want: true},
		{name: "constraint", err: &StorageError{Op: "insert", Err: sqlite3.Error{Code: sqlite3.ErrConstraint}}, want: false},
		{name: "validation", err: &schema.ValidationError{Table: "T", Message: "m"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTxScope(tt.err); got != tt.want {
				t.Errorf("IsTxScope() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsBusy_LockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LocalDB.db")
	ctx := context.Background()

	holder, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = holder.Close() }()

	waiter, err := Open(path, Options{LockTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = waiter.Close() }()

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.WithTx(ctx, func(tx *sql.Tx) error {
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	err = waiter.WithTx(ctx, func(tx *sql.Tx) error { return nil })
	close(release)
	if herr := <-done; herr != nil {
		t.Fatalf("holder WithTx() error = %v", herr)
	}

	if !IsBusy(err) {
		t.Fatalf("WithTx() error = %v, want busy", err)
	}
	if !IsTxScope(err) {
		t.Error("busy error not classified as transaction scope")
	}
}

func TestStorageError_Error(t *testing.T) {
	err := &StorageError{Op: "insert", Table: "Mood", Err: errors.New("boom")}
	if got, want := err.Error(), "storage insert on Mood: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err = &StorageError{Op: "begin", Err: errors.New("boom")}
	if got, want := err.Error(), "storage begin: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
