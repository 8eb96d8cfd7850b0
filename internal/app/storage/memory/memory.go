package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/marina/internal/app/domain/boat"
	"github.com/R3E-Network/marina/internal/app/domain/user"
	"github.com/R3E-Network/marina/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	users       map[string]user.User
	usersByMail map[string]string
	boats       map[string]boat.Boat
	boatSeq     map[string]int64
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.BoatStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:      1,
		users:       make(map[string]user.User),
		usersByMail: make(map[string]string),
		boats:       make(map[string]boat.Boat),
		boatSeq:     make(map[string]int64),
	}
}

func (s *Store) nextIDLocked() (string, int64) {
	id := s.nextID
	s.nextID++
	return strconv.FormatInt(id, 10), id
}

func mailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := mailKey(u.Email)
	if _, taken := s.usersByMail[key]; taken {
		return user.User{}, fmt.Errorf("user %s: %w", u.Email, storage.ErrDuplicate)
	}

	if u.ID == "" {
		u.ID, _ = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrDuplicate)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByMail[key] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}

	oldKey, newKey := mailKey(original.Email), mailKey(u.Email)
	if oldKey != newKey {
		if owner, taken := s.usersByMail[newKey]; taken && owner != u.ID {
			return user.User{}, fmt.Errorf("user %s: %w", u.Email, storage.ErrDuplicate)
		}
		delete(s.usersByMail, oldKey)
		s.usersByMail[newKey] = u.ID
	}

	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByMail[mailKey(email)]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
	}
	return s.users[id], nil
}

// BoatStore implementation ----------------------------------------------------

func (s *Store) CreateBoat(_ context.Context, b boat.Boat) (boat.Boat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seq int64
	if b.ID == "" {
		b.ID, seq = s.nextIDLocked()
	} else if _, exists := s.boats[b.ID]; exists {
		return boat.Boat{}, fmt.Errorf("boat %s: %w", b.ID, storage.ErrDuplicate)
	} else {
		_, seq = s.nextIDLocked()
	}

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	s.boats[b.ID] = b
	s.boatSeq[b.ID] = seq
	return b, nil
}

func (s *Store) UpdateBoat(_ context.Context, b boat.Boat) (boat.Boat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.boats[b.ID]
	if !ok {
		return boat.Boat{}, fmt.Errorf("boat %s: %w", b.ID, storage.ErrNotFound)
	}

	b.OwnerID = original.OwnerID
	b.CreatedAt = original.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	s.boats[b.ID] = b
	return b, nil
}

func (s *Store) GetBoat(_ context.Context, id string) (boat.Boat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boats[id]
	if !ok {
		return boat.Boat{}, fmt.Errorf("boat %s: %w", id, storage.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListBoats(_ context.Context) ([]boat.Boat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedBoatsLocked(func(boat.Boat) bool { return true }), nil
}

func (s *Store) ListBoatsByOwner(_ context.Context, ownerID string) ([]boat.Boat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedBoatsLocked(func(b boat.Boat) bool { return b.OwnerID == ownerID }), nil
}

func (s *Store) DeleteBoat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boats[id]; !ok {
		return fmt.Errorf("boat %s: %w", id, storage.ErrNotFound)
	}
	delete(s.boats, id)
	delete(s.boatSeq, id)
	return nil
}

func (s *Store) DeleteBoatsByOwner(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, b := range s.boats {
		if b.OwnerID == ownerID {
			delete(s.boats, id)
			delete(s.boatSeq, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) sortedBoatsLocked(keep func(boat.Boat) bool) []boat.Boat {
	result := make([]boat.Boat, 0, len(s.boats))
	for _, b := range s.boats {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return s.boatSeq[result[i].ID] < s.boatSeq[result[j].ID]
	})
	return result
}
