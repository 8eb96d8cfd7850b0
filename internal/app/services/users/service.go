package users

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/app/cache"
	"github.com/R3E-Network/marina/internal/app/domain/user"
	"github.com/R3E-Network/marina/internal/app/events"
	"github.com/R3E-Network/marina/internal/app/storage"
	"github.com/R3E-Network/marina/internal/app/validation"
	"github.com/R3E-Network/marina/internal/errors"
	"github.com/R3E-Network/marina/internal/logging"
)

// Cache key prefixes. All live under "users." so entity changes clean them.
const (
	keyResolveToken = "users.resolveToken"
	keyMe           = "users.me"
	keyProfile      = "users.profile"
)

// Default cache lifetimes.
const (
	DefaultTokenCacheTTL = time.Hour
	DefaultCacheTTL      = 30 * time.Minute
)

// Config carries the service dependencies. Nil optional fields get defaults.
type Config struct {
	Store         storage.UserStore
	Tokens        *auth.TokenManager
	Cache         cache.Cache
	Events        events.Publisher
	Validator     *validation.Validator
	Logger        *logging.Logger
	BcryptCost    int
	AdminEmails   []string
	TokenCacheTTL time.Duration
	CacheTTL      time.Duration
}

// Service manages user accounts and token resolution.
type Service struct {
	store     storage.UserStore
	tokens    *auth.TokenManager
	cache     cache.Cache
	events    events.Publisher
	validator *validation.Validator
	log       *logging.Logger
	cost      int
	admins    map[string]struct{}
	tokenTTL  time.Duration
	cacheTTL  time.Duration
}

// New constructs a users service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefault("users")
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
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = auth.DefaultBcryptCost
	}
	if cfg.TokenCacheTTL == 0 {
		cfg.TokenCacheTTL = DefaultTokenCacheTTL
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}

	return &Service{
		store:     cfg.Store,
		tokens:    cfg.Tokens,
		cache:     cfg.Cache,
		events:    cfg.Events,
		validator: cfg.Validator,
		log:       cfg.Logger,
		cost:      cfg.BcryptCost,
		admins:    admins,
		tokenTTL:  cfg.TokenCacheTTL,
		cacheTTL:  cfg.CacheTTL,
	}
}

// CreateInput registers a user.
type CreateInput struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Bio       string `json:"bio,omitempty"`
	Image     string `json:"image,omitempty"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// UpdateInput lists the fields a user may change on their own account. Nil
// fields are left untouched.
type UpdateInput struct {
	Firstname *string `json:"firstname,omitempty" validate:"omitnil,min=2"`
	Lastname  *string `json:"lastname,omitempty" validate:"omitnil,min=2"`
	Password  *string `json:"password,omitempty" validate:"omitnil,min=6"`
	Email     *string `json:"email,omitempty" validate:"omitnil,email"`
	Bio       *string `json:"bio,omitempty"`
	Image     *string `json:"image,omitempty"`
}

func errEmailExists() error {
	return errors.Unprocessable("Email exists!", errors.FieldError{Field: "email", Message: "Email exists"})
}

func errEmailTaken() error {
	return errors.Unprocessable("Email is exist!", errors.FieldError{Field: "email", Message: "is exist"})
}

// Create registers a user and returns it with a fresh token.
func (s *Service) Create(ctx context.Context, in CreateInput) (user.Public, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return user.Public{}, err
	}

	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return user.Public{}, errEmailExists()
	} else if !stderrors.Is(err, storage.ErrNotFound) {
		return user.Public{}, errors.Internal("lookup user", err)
	}

	hash, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return user.Public{}, errors.Internal("hash password", err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Firstname:    in.Firstname,
		Lastname:     in.Lastname,
		Email:        in.Email,
		PasswordHash: hash,
		Bio:          in.Bio,
		Image:        in.Image,
	})
	if stderrors.Is(err, storage.ErrDuplicate) {
		return user.Public{}, errEmailExists()
	}
	if err != nil {
		return user.Public{}, errors.Internal("create user", err)
	}

	s.events.Publish(ctx, events.Changed(events.EntityUsers, events.ActionCreated, created.ID))
	s.log.WithContext(ctx).WithField("user_id", created.ID).Info("user registered")

	token, err := s.tokens.Generate(created.ID, created.Email)
	if err != nil {
		return user.Public{}, errors.Internal("issue token", err)
	}
	return created.Public(token), nil
}

// Login checks credentials. A caller already authenticated as the same user
// keeps their current token; anyone else gets a new one.
func (s *Service) Login(ctx context.Context, in LoginInput, caller *auth.Identity) (user.Public, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return user.Public{}, err
	}

	notFound := errors.FieldError{Field: "email", Message: "is not found"}
	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if stderrors.Is(err, storage.ErrNotFound) {
		return user.Public{}, errors.Unprocessable("Email or password is invalid!", notFound)
	}
	if err != nil {
		return user.Public{}, errors.Internal("lookup user", err)
	}
	if !auth.ComparePassword(u.PasswordHash, in.Password) {
		s.log.LogSecurityEvent(ctx, "login_failed", map[string]interface{}{"user_id": u.ID})
		return user.Public{}, errors.Unprocessable("Wrong password!", notFound)
	}

	var token string
	if caller != nil && caller.UserID == u.ID {
		token = caller.Token
	}
	if token == "" {
		if token, err = s.tokens.Generate(u.ID, u.Email); err != nil {
			return user.Public{}, errors.Internal("issue token", err)
		}
	}
	return u.Public(token), nil
}

type resolved struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ResolveToken verifies token and loads the caller it names. Results are
// cached per token.
func (s *Service) ResolveToken(ctx context.Context, token string) (*auth.Identity, error) {
	key := cache.Key(keyResolveToken, token)

	var hit resolved
	if s.cacheGet(ctx, key, &hit) {
		return &auth.Identity{UserID: hit.ID, Email: hit.Email, Role: hit.Role, Token: token}, nil
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, errors.InvalidToken(err)
	}

	u, err := s.store.GetUser(ctx, claims.UserID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.InvalidToken(err)
	}
	if err != nil {
		return nil, errors.Internal("load user", err)
	}

	entry := resolved{ID: u.ID, Email: u.Email, Role: s.roleOf(u)}
	if ttl := s.resolveTTL(claims); ttl > 0 {
		s.cacheSet(ctx, key, entry, ttl)
	}
	return &auth.Identity{UserID: entry.ID, Email: entry.Email, Role: entry.Role, Token: token}, nil
}

// resolveTTL keeps a cached identity from outliving its token.
func (s *Service) resolveTTL(claims *auth.Claims) time.Duration {
	ttl := s.tokenTTL
	if claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); left < ttl {
			ttl = left
		}
	}
	return ttl
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, ident *auth.Identity) (user.Public, error) {
	if ident == nil {
		return user.Public{}, errors.Unauthorized("")
	}

	key := cache.Key(keyMe, ident.UserID)
	var pub user.Public
	if !s.cacheGet(ctx, key, &pub) {
		u, err := s.store.GetUser(ctx, ident.UserID)
		if stderrors.Is(err, storage.ErrNotFound) {
			return user.Public{}, errors.BadRequest("User not found!")
		}
		if err != nil {
			return user.Public{}, errors.Internal("load user", err)
		}
		pub = u.Public("")
		s.cacheSet(ctx, key, pub, s.cacheTTL)
	}

	pub.Token = ident.Token
	return pub, nil
}

// UpdateMyself applies in to the caller's account.
func (s *Service) UpdateMyself(ctx context.Context, ident *auth.Identity, in UpdateInput) (user.Public, error) {
	if ident == nil {
		return user.Public{}, errors.Unauthorized("")
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := s.validator.Struct(in); err != nil {
		return user.Public{}, err
	}

	u, err := s.store.GetUser(ctx, ident.UserID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return user.Public{}, errors.BadRequest("User not found!")
	}
	if err != nil {
		return user.Public{}, errors.Internal("load user", err)
	}

	if in.Email != nil && *in.Email != u.Email {
		found, err := s.store.GetUserByEmail(ctx, *in.Email)
		switch {
		case err == nil && found.ID != u.ID:
			return user.Public{}, errEmailTaken()
		case err != nil && !stderrors.Is(err, storage.ErrNotFound):
			return user.Public{}, errors.Internal("lookup user", err)
		}
		u.Email = *in.Email
	}
	if in.Firstname != nil {
		u.Firstname = *in.Firstname
	}
	if in.Lastname != nil {
		u.Lastname = *in.Lastname
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.Image != nil {
		u.Image = *in.Image
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password, s.cost)
		if err != nil {
			return user.Public{}, errors.Internal("hash password", err)
		}
		u.PasswordHash = hash
	}

	updated, err := s.store.UpdateUser(ctx, u)
	if stderrors.Is(err, storage.ErrDuplicate) {
		return user.Public{}, errEmailTaken()
	}
	if err != nil {
		return user.Public{}, errors.Internal("update user", err)
	}

	s.events.Publish(ctx, events.Changed(events.EntityUsers, events.ActionUpdated, updated.ID))
	s.log.WithContext(ctx).WithField("user_id", updated.ID).Info("user updated")
	return updated.Public(ident.Token), nil
}

// Profile returns the public profile of user id.
func (s *Service) Profile(ctx context.Context, id string) (user.Profile, error) {
	key := cache.Key(keyProfile, id)

	var profile user.Profile
	if s.cacheGet(ctx, key, &profile) {
		return profile, nil
	}

	u, err := s.store.GetUser(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return user.Profile{}, errors.NotFound("User not found!")
	}
	if err != nil {
		return user.Profile{}, errors.Internal("load user", err)
	}

	profile = u.Profile()
	s.cacheSet(ctx, key, profile, s.cacheTTL)
	return profile, nil
}

// CheckAdmin rejects callers without the admin role.
func (s *Service) CheckAdmin(ident *auth.Identity) error {
	if !ident.IsAdmin() {
		return errors.Forbidden("")
	}
	return nil
}

// EnsureAdmin creates an admin account, or promotes the existing account
// with the same e-mail. It reports whether a new account was created.
func (s *Service) EnsureAdmin(ctx context.Context, in CreateInput) (user.User, bool, error) {
	in.Email = normalizeEmail(in.Email)

	existing, err := s.store.GetUserByEmail(ctx, in.Email)
	if err == nil {
		if existing.Role == auth.RoleAdmin {
			return existing, false, nil
		}
		existing.Role = auth.RoleAdmin
		promoted, err := s.store.UpdateUser(ctx, existing)
		if err != nil {
			return user.User{}, false, errors.Internal("promote user", err)
		}
		s.events.Publish(ctx, events.Changed(events.EntityUsers, events.ActionUpdated, promoted.ID))
		s.log.WithField("user_id", promoted.ID).Info("user promoted to admin")
		return promoted, false, nil
	}
	if !stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, false, errors.Internal("lookup user", err)
	}

	if err := s.validator.Struct(in); err != nil {
		return user.User{}, false, err
	}
	hash, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return user.User{}, false, errors.Internal("hash password", err)
	}
	created, err := s.store.CreateUser(ctx, user.User{
		Firstname:    in.Firstname,
		Lastname:     in.Lastname,
		Email:        in.Email,
		PasswordHash: hash,
		Bio:          in.Bio,
		Image:        in.Image,
		Role:         auth.RoleAdmin,
	})
	if err != nil {
		return user.User{}, false, errors.Internal("create admin", err)
	}
	s.events.Publish(ctx, events.Changed(events.EntityUsers, events.ActionCreated, created.ID))
	s.log.WithField("user_id", created.ID).Info("admin created")
	return created, true, nil
}

func (s *Service) roleOf(u user.User) string {
	if u.Role != "" {
		return u.Role
	}
	if _, ok := s.admins[normalizeEmail(u.Email)]; ok {
		return auth.RoleAdmin
	}
	return ""
}

func (s *Service) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	return found
}

func (s *Service) cacheSet(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, v, ttl); err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
