/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains the SQL queries for the receivers and sends tables, and maps
 * database constraint violations onto the service's sentinel errors so callers
 * never have to inspect driver error codes.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SerenityUX/sendmestickers/internal/domain"
)

var (
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrSendNotFound     = errors.New("send not found")
	ErrDuplicateHandle  = errors.New("handle already exists")
	ErrDuplicateEmail   = errors.New("email already exists")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// classifyUniqueViolation maps a 23505 error on the receivers table onto the
// duplicate-handle or duplicate-email sentinel, based on which constraint fired.
func classifyUniqueViolation(pgErr *pgconn.PgError) error {
	if strings.Contains(pgErr.ConstraintName, "email") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateHandle
}

// CreateReceiver inserts a new receiver record. Handles and emails are unique;
// violations surface as ErrDuplicateHandle / ErrDuplicateEmail.
func (r *PostgresRepository) CreateReceiver(ctx context.Context, receiver *domain.Receiver) (*domain.Receiver, error) {
	query := `
		INSERT INTO receivers (handle, address, email)
		VALUES ($1, $2, $3)
		RETURNING handle, address, email, created_at
	`
	var created domain.Receiver
	err := r.db.QueryRow(ctx, query, receiver.Handle, receiver.Address, receiver.Email).Scan(
		&created.Handle,
		&created.Address,
		&created.Email,
		&created.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, classifyUniqueViolation(pgErr)
		}
		return nil, err
	}
	return &created, nil
}

// FindReceiverByHandle retrieves a receiver by its handle.
func (r *PostgresRepository) FindReceiverByHandle(ctx context.Context, handle string) (*domain.Receiver, error) {
	var receiver domain.Receiver
	query := `SELECT handle, address, email, created_at FROM receivers WHERE handle = $1`
	err := r.db.QueryRow(ctx, query, handle).Scan(
		&receiver.Handle,
		&receiver.Address,
		&receiver.Email,
		&receiver.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}
	return &receiver, nil
}

// CreateSend inserts a provisional, unpurchased send row.
func (r *PostgresRepository) CreateSend(ctx context.Context, imageURL, receiverHandle string) (*domain.Send, error) {
	query := `
		INSERT INTO sends (image_url, receiver_handle)
		VALUES ($1, $2)
		RETURNING id, image_url, receiver_handle, stripe_session_id, purchased, created_at
	`
	var send domain.Send
	err := r.db.QueryRow(ctx, query, imageURL, receiverHandle).Scan(
		&send.ID,
		&send.ImageURL,
		&send.ReceiverHandle,
		&send.StripeSessionID,
		&send.Purchased,
		&send.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}
	return &send, nil
}

// FindSendBySessionID retrieves the finalized send for a checkout session, if any.
func (r *PostgresRepository) FindSendBySessionID(ctx context.Context, sessionID string) (*domain.Send, error) {
	var send domain.Send
	query := `
		SELECT id, image_url, receiver_handle, stripe_session_id, purchased, created_at
		FROM sends
		WHERE stripe_session_id = $1
	`
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&send.ID,
		&send.ImageURL,
		&send.ReceiverHandle,
		&send.StripeSessionID,
		&send.Purchased,
		&send.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSendNotFound
		}
		return nil, err
	}
	return &send, nil
}

// FinalizeSend records the purchased send for a checkout session at most once.
// The insert uses ON CONFLICT DO NOTHING on the stripe_session_id unique
// constraint; when the insert loses a race with an identical concurrent call,
// the row of the first successful insert is re-read and returned instead of
// surfacing the constraint violation to the caller.
func (r *PostgresRepository) FinalizeSend(ctx context.Context, imageURL, receiverHandle, sessionID string) (*domain.Send, bool, error) {
	query := `
		INSERT INTO sends (image_url, receiver_handle, stripe_session_id, purchased)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (stripe_session_id) DO NOTHING
		RETURNING id, image_url, receiver_handle, stripe_session_id, purchased, created_at
	`
	var send domain.Send
	err := r.db.QueryRow(ctx, query, imageURL, receiverHandle, sessionID).Scan(
		&send.ID,
		&send.ImageURL,
		&send.ReceiverHandle,
		&send.StripeSessionID,
		&send.Purchased,
		&send.CreatedAt,
	)
	if err == nil {
		return &send, true, nil
	}
	if err == pgx.ErrNoRows {
		// Conflict: a finalized row for this session already exists.
		existing, findErr := r.FindSendBySessionID(ctx, sessionID)
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return nil, false, ErrReceiverNotFound
	}
	return nil, false, err
}
