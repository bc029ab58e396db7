package directory

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/eternisai/social-push/internal/dispatch"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UserDirectory resolves identities from the users collection.
type UserDirectory struct {
	client *firestore.Client
}

// NewUserDirectory creates a directory over the given Firestore client.
func NewUserDirectory(client *firestore.Client) *UserDirectory {
	return &UserDirectory{client: client}
}

// GetIdentity reads users/{id}. A missing document yields an error wrapping
// dispatch.ErrIdentityNotFound.
func (u *UserDirectory) GetIdentity(ctx context.Context, id string) (*dispatch.Identity, error) {
	if u == nil || u.client == nil {
		return nil, status.Error(codes.Internal, "firestore client is nil")
	}
	if id == "" {
		return nil, fmt.Errorf("empty user id: %w", dispatch.ErrIdentityNotFound)
	}

	doc, err := u.client.Collection(dispatch.UsersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("users/%s: %w", id, dispatch.ErrIdentityNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	if !doc.Exists() {
		return nil, fmt.Errorf("users/%s: %w", id, dispatch.ErrIdentityNotFound)
	}

	return IdentityFromData(id, doc.Data()), nil
}

// IdentityFromData maps a users document onto an Identity. Non-string
// fields are treated as absent.
func IdentityFromData(id string, data map[string]any) *dispatch.Identity {
	identity := &dispatch.Identity{ID: id}
	if name, ok := data[dispatch.FieldDisplayName].(string); ok {
		identity.DisplayName = name
	}
	if token, ok := data[dispatch.FieldDeliveryToken].(string); ok {
		identity.DeliveryToken = token
	}
	return identity
}
