// internal/models/user.go
package models

import "github.com/google/uuid"

// User is an account row. Every connection gets an ephemeral guest user
// unless it presents a token for an existing one; keeping the row lets a
// display name survive reconnects even though room state does not.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	IsEphemeral bool      `json:"is_ephemeral"`
}
