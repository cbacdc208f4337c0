package credential

import "time"

// CreateRequest is the JSON body for POST /api/keys.
type CreateRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	Tier          string `json:"tier"`
	Description   string `json:"description"`
	ExpiresInDays *int   `json:"expires_in_days"`
}

// UpdateRequest is the JSON body for PUT /api/keys/{id}. All fields optional.
type UpdateRequest struct {
	Tier        *string `json:"tier"`
	Active      *bool   `json:"is_active"`
	Description *string `json:"description"`
}

// Response is the JSON representation of a credential, including its secret.
// The source system returns the raw key on every read, not just at creation,
// so admins can recover a previously issued key from the list endpoint.
type Response struct {
	ID          int64      `json:"id"`
	Key         string     `json:"key"`
	UserID      string     `json:"user_id"`
	Tier        string     `json:"tier"`
	Active      bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Description string     `json:"description,omitempty"`
	Issuer      string     `json:"created_by,omitempty"`
}

// ToResponse converts a Credential to its wire representation.
func (c Credential) ToResponse() Response {
	return Response{
		ID:          c.ID,
		Key:         c.Secret,
		UserID:      c.UserID,
		Tier:        string(c.Tier),
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		ExpiresAt:   c.ExpiresAt,
		Description: c.Description,
		Issuer:      c.Issuer,
	}
}
