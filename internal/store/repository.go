/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the sendmestickers service. By defining an
 * interface, we decouple the application's business logic from the specific database
 * implementation (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/SerenityUX/sendmestickers/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Receiver methods
	CreateReceiver(ctx context.Context, receiver *domain.Receiver) (*domain.Receiver, error)
	FindReceiverByHandle(ctx context.Context, handle string) (*domain.Receiver, error)

	// Send methods
	CreateSend(ctx context.Context, imageURL, receiverHandle string) (*domain.Send, error)
	FindSendBySessionID(ctx context.Context, sessionID string) (*domain.Send, error)
	// FinalizeSend durably records a purchased send keyed by the checkout
	// session id. The boolean reports whether this call inserted the row; when
	// false, a concurrent or earlier finalization won and the returned row is
	// the winner's, unchanged.
	FinalizeSend(ctx context.Context, imageURL, receiverHandle, sessionID string) (*domain.Send, bool, error)
}
