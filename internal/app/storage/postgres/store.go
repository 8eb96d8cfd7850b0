package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/marina/internal/app/domain/boat"
	"github.com/R3E-Network/marina/internal/app/domain/user"
	"github.com/R3E-Network/marina/internal/app/storage"
)

// uniqueViolation is the SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.BoatStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type userRow struct {
	ID           string    `db:"id"`
	Firstname    string    `db:"firstname"`
	Lastname     string    `db:"lastname"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Bio          string    `db:"bio"`
	Image        string    `db:"image"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func userToRow(u user.User) userRow {
	return userRow{
		ID:           u.ID,
		Firstname:    u.Firstname,
		Lastname:     u.Lastname,
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		PasswordHash: u.PasswordHash,
		Bio:          u.Bio,
		Image:        u.Image,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Firstname:    r.Firstname,
		Lastname:     r.Lastname,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Bio:          r.Bio,
		Image:        r.Image,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type boatRow struct {
	ID                 string    `db:"id"`
	Make               string    `db:"make"`
	Model              string    `db:"model"`
	Year               int       `db:"year"`
	Color              string    `db:"color"`
	HasTrailer         bool      `db:"has_trailer"`
	RegistrationNumber string    `db:"registration_number"`
	Type               string    `db:"type"`
	OwnerID            string    `db:"owner_id"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func boatToRow(b boat.Boat) boatRow {
	return boatRow{
		ID:                 b.ID,
		Make:               b.Make,
		Model:              b.Model,
		Year:               b.Year,
		Color:              b.Color,
		HasTrailer:         b.HasTrailer,
		RegistrationNumber: b.RegistrationNumber,
		Type:               b.Type,
		OwnerID:            b.OwnerID,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func (r boatRow) toBoat() boat.Boat {
	return boat.Boat{
		ID:                 r.ID,
		Make:               r.Make,
		Model:              r.Model,
		Year:               r.Year,
		Color:              r.Color,
		HasTrailer:         r.HasTrailer,
		RegistrationNumber: r.RegistrationNumber,
		Type:               r.Type,
		OwnerID:            r.OwnerID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

const userColumns = `id, firstname, lastname, email, password_hash, bio, image, role, created_at, updated_at`

const boatColumns = `id, make, model, year, color, has_trailer, registration_number, type, owner_id, created_at, updated_at`

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	row := userToRow(u)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :firstname, :lastname, :email, :password_hash, :bio, :image, :role, :created_at, :updated_at)
	`, row)
	if err != nil {
		return user.User{}, mapError(err, "user "+u.Email)
	}
	return row.toUser(), nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	row := userToRow(u)
	row.UpdatedAt = time.Now().UTC()

	var out userRow
	err := s.db.GetContext(ctx, &out, `
		UPDATE users
		SET firstname = $2, lastname = $3, email = $4, password_hash = $5,
		    bio = $6, image = $7, role = $8, updated_at = $9
		WHERE id = $1
		RETURNING `+userColumns,
		row.ID, row.Firstname, row.Lastname, row.Email, row.PasswordHash,
		row.Bio, row.Image, row.Role, row.UpdatedAt)
	if err != nil {
		return user.User{}, mapError(err, "user "+u.ID)
	}
	return out.toUser(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return user.User{}, mapError(err, "user "+id)
	}
	return row.toUser(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	key := strings.ToLower(strings.TrimSpace(email))
	if err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, key); err != nil {
		return user.User{}, mapError(err, "user "+email)
	}
	return row.toUser(), nil
}

// --- BoatStore --------------------------------------------------------------

func (s *Store) CreateBoat(ctx context.Context, b boat.Boat) (boat.Boat, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	row := boatToRow(b)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO boats (`+boatColumns+`)
		VALUES (:id, :make, :model, :year, :color, :has_trailer, :registration_number, :type, :owner_id, :created_at, :updated_at)
	`, row)
	if err != nil {
		return boat.Boat{}, mapError(err, "boat "+b.ID)
	}
	return row.toBoat(), nil
}

func (s *Store) UpdateBoat(ctx context.Context, b boat.Boat) (boat.Boat, error) {
	row := boatToRow(b)
	row.UpdatedAt = time.Now().UTC()

	var out boatRow
	err := s.db.GetContext(ctx, &out, `
		UPDATE boats
		SET make = $2, model = $3, year = $4, color = $5, has_trailer = $6,
		    registration_number = $7, type = $8, updated_at = $9
		WHERE id = $1
		RETURNING `+boatColumns,
		row.ID, row.Make, row.Model, row.Year, row.Color, row.HasTrailer,
		row.RegistrationNumber, row.Type, row.UpdatedAt)
	if err != nil {
		return boat.Boat{}, mapError(err, "boat "+b.ID)
	}
	return out.toBoat(), nil
}

func (s *Store) GetBoat(ctx context.Context, id string) (boat.Boat, error) {
	var row boatRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+boatColumns+` FROM boats WHERE id = $1`, id); err != nil {
		return boat.Boat{}, mapError(err, "boat "+id)
	}
	return row.toBoat(), nil
}

func (s *Store) ListBoats(ctx context.Context) ([]boat.Boat, error) {
	var rows []boatRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+boatColumns+` FROM boats ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	return toBoats(rows), nil
}

func (s *Store) ListBoatsByOwner(ctx context.Context, ownerID string) ([]boat.Boat, error) {
	var rows []boatRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+boatColumns+` FROM boats WHERE owner_id = $1 ORDER BY created_at, id`, ownerID); err != nil {
		return nil, err
	}
	return toBoats(rows), nil
}

func (s *Store) DeleteBoat(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM boats WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("boat %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteBoatsByOwner(ctx context.Context, ownerID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM boats WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func toBoats(rows []boatRow) []boat.Boat {
	out := make([]boat.Boat, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toBoat())
	}
	return out
}

func mapError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s: %w", what, storage.ErrDuplicate)
	}
	return err
}
