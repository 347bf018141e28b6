package service

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Taxonomia de errores de negocio. Los handlers mapean estos sentinels a HTTP.
var (
	ErrInvalidTrait       = errors.New("invalid trait")
	ErrInvalidValue       = errors.New("invalid rating value")
	ErrPostNotFound       = errors.New("post not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmptyPost          = errors.New("post text is empty")
	ErrNotPostOwner       = errors.New("not the post owner")
	ErrAggregationFailed  = errors.New("aggregation failed")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailUnconfirmed   = errors.New("email not confirmed")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrCodeNotRequested   = errors.New("confirmation code not requested")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrCodeExpired        = errors.New("confirmation code expired")
	ErrCodeInvalid        = errors.New("confirmation code invalid")
)

// StoreError envuelve una falla de almacenamiento con su clasificacion de reintento.
type StoreError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Op + ": store error"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// transientStore marca un error como reintentable.
func transientStore(op string, err error) error {
	return &StoreError{Op: op, Err: err, Transient: true}
}

// permanentStore marca un error como no reintentable.
func permanentStore(op string, err error) error {
	return &StoreError{Op: op, Err: err, Transient: false}
}

// isTransient decide si una falla amerita reintento. Un StoreError manda;
// para errores crudos del driver se consideran transitorios los timeouts y
// las fallas de red, nunca pgx.ErrNoRows ni violaciones de constraint.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Transient
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// isUniqueViolation detecta un choque de constraint UNIQUE (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
