package domain

import "time"

// ResponsibleSelection remembers which owners a user last looked at.
type ResponsibleSelection struct {
	UserID    string    `json:"user_id"`
	Owners    []string  `json:"selected_owners"`
	UpdatedAt time.Time `json:"updated_at"`
}
