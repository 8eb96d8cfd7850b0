package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/marina/internal/app/domain/boat"
	"github.com/R3E-Network/marina/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("record already exists")
)

// UserStore persists user accounts. E-mail addresses are unique.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// BoatStore persists boats.
type BoatStore interface {
	CreateBoat(ctx context.Context, b boat.Boat) (boat.Boat, error)
	UpdateBoat(ctx context.Context, b boat.Boat) (boat.Boat, error)
	GetBoat(ctx context.Context, id string) (boat.Boat, error)
	ListBoats(ctx context.Context) ([]boat.Boat, error)
	ListBoatsByOwner(ctx context.Context, ownerID string) ([]boat.Boat, error)
	DeleteBoat(ctx context.Context, id string) error
	DeleteBoatsByOwner(ctx context.Context, ownerID string) (int64, error)
}
