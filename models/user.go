package models

// Role describes what a user may do inside a room.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleAgent     Role = "agent"
	RoleUser      Role = "user"
)

// User is a directory entry referenced by id from rooms and messages.
type User struct {
	ID        string         `json:"id"`
	FirstName string         `json:"firstName,omitempty"`
	LastName  string         `json:"lastName,omitempty"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	LastSeen  *int64         `json:"lastSeen,omitempty"`
	Role      *Role          `json:"role,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Placeholder returns the minimal user substituted when an id cannot be
// resolved against a roster or the directory.
func Placeholder(id string) User {
	return User{ID: id}
}
