package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/marina/internal/app/domain/boat"
	"github.com/R3E-Network/marina/internal/app/domain/user"
	"github.com/R3E-Network/marina/internal/app/storage"
)

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.CreateUser(ctx, user.User{Email: "Skipper@Example.com", Firstname: "Ann"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", created)
	}

	if _, err := s.CreateUser(ctx, user.User{Email: "skipper@example.com"}); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate e-mail error = %v, want ErrDuplicate", err)
	}

	byMail, err := s.GetUserByEmail(ctx, " SKIPPER@example.com ")
	if err != nil || byMail.ID != created.ID {
		t.Fatalf("GetUserByEmail() = %+v, %v", byMail, err)
	}

	other, _ := s.CreateUser(ctx, user.User{Email: "crew@example.com"})
	other.Email = "skipper@example.com"
	if _, err := s.UpdateUser(ctx, other); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("update onto taken e-mail error = %v", err)
	}

	created.Email = "captain@example.com"
	updated, err := s.UpdateUser(ctx, created)
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt must survive updates")
	}
	if _, err := s.GetUserByEmail(ctx, "skipper@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("old e-mail should be released")
	}
	if _, err := s.GetUserByEmail(ctx, "captain@example.com"); err != nil {
		t.Errorf("new e-mail lookup failed: %v", err)
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v", err)
	}
	if _, err := s.UpdateUser(ctx, user.User{ID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateUser(missing) error = %v", err)
	}
}

func TestBoatLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	var ids []string
	for i, owner := range []string{"u1", "u2", "u1", "u1"} {
		b, err := s.CreateBoat(ctx, boat.Boat{Make: "Make", Model: "Model", Year: 2000 + i, OwnerID: owner})
		if err != nil {
			t.Fatalf("CreateBoat() error = %v", err)
		}
		ids = append(ids, b.ID)
	}

	all, _ := s.ListBoats(ctx)
	if len(all) != 4 {
		t.Fatalf("ListBoats() len = %d", len(all))
	}
	for i, b := range all {
		if b.ID != ids[i] {
			t.Fatalf("ListBoats() order = %v, want %v", all, ids)
		}
	}

	mine, _ := s.ListBoatsByOwner(ctx, "u1")
	if len(mine) != 3 || mine[0].ID != ids[0] || mine[2].ID != ids[3] {
		t.Fatalf("ListBoatsByOwner() = %+v", mine)
	}

	b, _ := s.GetBoat(ctx, ids[1])
	b.HasTrailer = true
	b.OwnerID = "thief"
	updated, err := s.UpdateBoat(ctx, b)
	if err != nil {
		t.Fatalf("UpdateBoat() error = %v", err)
	}
	if !updated.HasTrailer || updated.OwnerID != "u2" {
		t.Fatalf("UpdateBoat() = %+v", updated)
	}

	if err := s.DeleteBoat(ctx, ids[1]); err != nil {
		t.Fatalf("DeleteBoat() error = %v", err)
	}
	if err := s.DeleteBoat(ctx, ids[1]); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second DeleteBoat() error = %v", err)
	}

	removed, err := s.DeleteBoatsByOwner(ctx, "u1")
	if err != nil || removed != 3 {
		t.Fatalf("DeleteBoatsByOwner() = %d, %v", removed, err)
	}
	if all, _ := s.ListBoats(ctx); len(all) != 0 {
		t.Fatalf("expected no boats left, got %d", len(all))
	}
}
