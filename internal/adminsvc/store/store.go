package store

import (
	"context"
	"errors"

	"github.com/avvvet/variables-admin/internal/adminsvc/models"
)

// VariablesStore is the record gateway. Every method is a single round trip
// to the backend; failures are returned as *BackendError.
type VariablesStore interface {
	// FetchLatest returns the newest record by created_at, or nil when the
	// table is empty.
	FetchLatest(ctx context.Context) (*models.Variables, error)
	Insert(ctx context.Context, in models.VariablesInput) (*models.Variables, error)
	// FetchAll returns every record, newest first.
	FetchAll(ctx context.Context) ([]models.Variables, error)
}

// BackendError is any failure of a remote table operation. Its message is
// the one reported by the backend and is meant to be shown as is.
type BackendError struct {
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	return e.Message
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendErr(op string, err error) *BackendError {
	var be *BackendError
	if errors.As(err, &be) {
		if be.Op == "" {
			be.Op = op
		}
		return be
	}
	return &BackendError{Op: op, Message: err.Error(), Err: err}
}
