package boats

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/app/cache"
	"github.com/R3E-Network/marina/internal/app/domain/boat"
	"github.com/R3E-Network/marina/internal/app/events"
	"github.com/R3E-Network/marina/internal/app/storage"
	"github.com/R3E-Network/marina/internal/app/validation"
	"github.com/R3E-Network/marina/internal/errors"
	"github.com/R3E-Network/marina/internal/logging"
)

const keyMine = "boats.mine"

// DefaultCacheTTL bounds how long a caller's boat list is cached.
const DefaultCacheTTL = 10 * time.Minute

// AdminChecker rejects callers that are not administrators.
type AdminChecker interface {
	CheckAdmin(ident *auth.Identity) error
}

// Config carries the service dependencies.
type Config struct {
	Store     storage.BoatStore
	Admins    AdminChecker
	Cache     cache.Cache
	Events    events.Publisher
	Validator *validation.Validator
	Logger    *logging.Logger
	CacheTTL  time.Duration
}

// Service manages boats on behalf of their owners.
type Service struct {
	store     storage.BoatStore
	admins    AdminChecker
	cache     cache.Cache
	events    events.Publisher
	validator *validation.Validator
	log       *logging.Logger
	cacheTTL  time.Duration
}

// New constructs a boats service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefault("boats")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.Noop{}
	}
	if cfg.Events == nil {
		cfg.Events = events.Noop{}
	}
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &Service{
		store:     cfg.Store,
		admins:    cfg.Admins,
		cache:     cfg.Cache,
		events:    cfg.Events,
		validator: cfg.Validator,
		log:       cfg.Logger,
		cacheTTL:  cfg.CacheTTL,
	}
}

// Input is the boat body accepted by create and update. Year is a float so
// that 1990.5 reaches the integer rule instead of failing to decode.
type Input struct {
	Make               string   `json:"make" validate:"required,min=2"`
	Model              string   `json:"model" validate:"required,min=4"`
	Year               *float64 `json:"year" validate:"required,min=1970,max=9999,integer"`
	Color              *string  `json:"color,omitempty"`
	HasTrailer         *bool    `json:"hasTrailer,omitempty"`
	RegistrationNumber *string  `json:"registrationNumber,omitempty" validate:"omitnil,min=5"`
	Type               *string  `json:"type,omitempty"`
}

func (in Input) apply(b *boat.Boat) {
	b.Make = in.Make
	b.Model = in.Model
	b.Year = int(*in.Year)
	if in.Color != nil {
		b.Color = *in.Color
	}
	if in.HasTrailer != nil {
		b.HasTrailer = *in.HasTrailer
	}
	if in.RegistrationNumber != nil {
		b.RegistrationNumber = *in.RegistrationNumber
	}
	if in.Type != nil {
		b.Type = *in.Type
	}
}

func errBoatNotFound() error {
	return errors.NotFound("Boat not found")
}

// Create stores a new boat owned by the caller.
func (s *Service) Create(ctx context.Context, ident *auth.Identity, in Input) (boat.Boat, error) {
	if ident == nil {
		return boat.Boat{}, errors.Unauthorized("")
	}
	if err := s.validator.Struct(in); err != nil {
		return boat.Boat{}, err
	}

	var b boat.Boat
	in.apply(&b)
	b.OwnerID = ident.UserID

	created, err := s.store.CreateBoat(ctx, b)
	if err != nil {
		return boat.Boat{}, errors.Internal("create boat", err)
	}
	s.changed(ctx, events.ActionCreated, created.ID)
	s.log.WithContext(ctx).WithField("boat_id", created.ID).Info("boat created")
	return created, nil
}

// Get returns a boat the caller owns or, for admins, any boat.
func (s *Service) Get(ctx context.Context, ident *auth.Identity, id string) (boat.Boat, error) {
	return s.owned(ctx, ident, id)
}

// Update replaces the boat's required fields and any optional ones supplied.
func (s *Service) Update(ctx context.Context, ident *auth.Identity, id string, in Input) (boat.Boat, error) {
	if err := s.validator.Struct(in); err != nil {
		return boat.Boat{}, err
	}
	b, err := s.owned(ctx, ident, id)
	if err != nil {
		return boat.Boat{}, err
	}

	in.apply(&b)
	updated, err := s.store.UpdateBoat(ctx, b)
	if stderrors.Is(err, storage.ErrNotFound) {
		return boat.Boat{}, errBoatNotFound()
	}
	if err != nil {
		return boat.Boat{}, errors.Internal("update boat", err)
	}
	s.changed(ctx, events.ActionUpdated, updated.ID)
	return updated, nil
}

// List returns every boat. Admins only.
func (s *Service) List(ctx context.Context, ident *auth.Identity) ([]boat.Boat, error) {
	if err := s.admins.CheckAdmin(ident); err != nil {
		return nil, err
	}
	list, err := s.store.ListBoats(ctx)
	if err != nil {
		return nil, errors.Internal("list boats", err)
	}
	return list, nil
}

// UserBoats returns the caller's boats.
func (s *Service) UserBoats(ctx context.Context, ident *auth.Identity) ([]boat.Boat, error) {
	if ident == nil {
		return nil, errors.Unauthorized("")
	}

	key := cache.Key(keyMine, ident.UserID)
	var list []boat.Boat
	found, err := s.cache.Get(ctx, key, &list)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("key", key).Warn("cache read failed")
	}
	if found {
		return list, nil
	}

	list, err = s.store.ListBoatsByOwner(ctx, ident.UserID)
	if err != nil {
		return nil, errors.Internal("list boats", err)
	}
	if err := s.cache.Set(ctx, key, list, s.cacheTTL); err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return list, nil
}

// RemoveMyBoat deletes a boat the caller owns. Admins may delete any boat.
func (s *Service) RemoveMyBoat(ctx context.Context, ident *auth.Identity, id string) error {
	if _, err := s.owned(ctx, ident, id); err != nil {
		return err
	}
	err := s.store.DeleteBoat(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return errBoatNotFound()
	}
	if err != nil {
		return errors.Internal("remove boat", err)
	}
	s.changed(ctx, events.ActionRemoved, id)
	s.log.WithContext(ctx).WithField("boat_id", id).Info("boat removed")
	return nil
}

// BoatsOfUser returns the boats owned by userID. Admins only.
func (s *Service) BoatsOfUser(ctx context.Context, ident *auth.Identity, userID string) ([]boat.Boat, error) {
	if err := s.admins.CheckAdmin(ident); err != nil {
		return nil, err
	}
	list, err := s.store.ListBoatsByOwner(ctx, userID)
	if err != nil {
		return nil, errors.Internal("list boats", err)
	}
	return list, nil
}

// RemoveUserBoats deletes every boat owned by userID and returns the count.
// Admins only.
func (s *Service) RemoveUserBoats(ctx context.Context, ident *auth.Identity, userID string) (int64, error) {
	if err := s.admins.CheckAdmin(ident); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteBoatsByOwner(ctx, userID)
	if err != nil {
		return 0, errors.Internal("remove boats", err)
	}

	ev := events.Changed(events.EntityBoats, events.ActionRemoved, "")
	ev.Count = n
	s.events.Publish(ctx, ev)
	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"owner_id": userID,
		"removed":  n,
	}).Info("user boats removed")
	return n, nil
}

// ToggleTrailer flips hasTrailer and returns the boat as stored afterwards.
func (s *Service) ToggleTrailer(ctx context.Context, ident *auth.Identity, id string) (boat.Boat, error) {
	b, err := s.owned(ctx, ident, id)
	if err != nil {
		return boat.Boat{}, err
	}

	b.HasTrailer = !b.HasTrailer
	if _, err := s.store.UpdateBoat(ctx, b); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return boat.Boat{}, errBoatNotFound()
		}
		return boat.Boat{}, errors.Internal("update boat", err)
	}
	s.changed(ctx, events.ActionUpdated, id)

	fresh, err := s.store.GetBoat(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return boat.Boat{}, errBoatNotFound()
	}
	if err != nil {
		return boat.Boat{}, errors.Internal("load boat", err)
	}
	return fresh, nil
}

// owned loads boat id and checks that the caller owns it or is an admin.
func (s *Service) owned(ctx context.Context, ident *auth.Identity, id string) (boat.Boat, error) {
	if ident == nil {
		return boat.Boat{}, errors.Unauthorized("")
	}
	b, err := s.store.GetBoat(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return boat.Boat{}, errBoatNotFound()
	}
	if err != nil {
		return boat.Boat{}, errors.Internal("load boat", err)
	}
	if !b.OwnedBy(ident.UserID) && !ident.IsAdmin() {
		s.log.LogSecurityEvent(ctx, "boat_access_denied", map[string]interface{}{
			"boat_id": id,
			"user_id": ident.UserID,
		})
		return boat.Boat{}, errors.Forbidden("")
	}
	return b, nil
}

func (s *Service) changed(ctx context.Context, action events.Action, id string) {
	s.events.Publish(ctx, events.Changed(events.EntityBoats, action, id))
}
