package boat

import "time"

// Boat is a vessel registered by its owner.
type Boat struct {
	ID                 string    `json:"_id"`
	Make               string    `json:"make"`
	Model              string    `json:"model"`
	Year               int       `json:"year"`
	Color              string    `json:"color"`
	HasTrailer         bool      `json:"hasTrailer"`
	RegistrationNumber string    `json:"registrationNumber"`
	Type               string    `json:"type"`
	OwnerID            string    `json:"ownerID"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID owns the boat.
func (b Boat) OwnedBy(userID string) bool {
	return userID != "" && b.OwnerID == userID
}
