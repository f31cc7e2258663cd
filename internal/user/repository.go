package user

import (
	"context"
)

// Repository is the backend store of user profiles. Every call carries the
// caller's identity token.
type Repository interface {
	Create(ctx context.Context, token string, req CreateRequest) (*ApiUser, error)
	Get(ctx context.Context, token, id string) (*ApiUser, error)
	Update(ctx context.Context, token, id string, update ProfileUpdate) (*ApiUser, error)
	Delete(ctx context.Context, token, id string) error
}
