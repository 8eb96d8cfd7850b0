package user

import "time"

// DefaultImage is shown for profiles without an image.
const DefaultImage = "https://static.productionready.io/images/smiley-cyrus.jpg"

// User is a registered account. PasswordHash and Role never leave the service.
type User struct {
	ID           string
	Firstname    string
	Lastname     string
	Email        string
	PasswordHash string
	Bio          string
	Image        string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public is the client-facing view of a user.
type Public struct {
	ID        string `json:"_id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Token     string `json:"token,omitempty"`
}

// Profile is the public profile of a user.
type Profile struct {
	ID        string `json:"_id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
}

// Public strips private fields and attaches token.
func (u User) Public(token string) Public {
	return Public{
		ID:        u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Bio:       u.Bio,
		Image:     u.Image,
		Token:     token,
	}
}

// Profile returns the profile view, substituting DefaultImage when unset.
func (u User) Profile() Profile {
	image := u.Image
	if image == "" {
		image = DefaultImage
	}
	return Profile{
		ID:        u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Bio:       u.Bio,
		Image:     image,
	}
}
