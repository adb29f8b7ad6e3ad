package models

// RoomType distinguishes two-party and multi-party rooms.
type RoomType string

const (
	RoomDirect RoomType = "direct"
	RoomGroup  RoomType = "group"
)

// Room is a conversation container. Users holds the hydrated roster in
// stored order; direct rooms have exactly two users and no name.
type Room struct {
	ID        string         `json:"id"`
	Type      RoomType       `json:"type"`
	Name      string         `json:"name,omitempty"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Users     []User         `json:"users"`
	CreatedAt *int64         `json:"createdAt,omitempty"`
	UpdatedAt *int64         `json:"updatedAt,omitempty"`
}

// FindUser returns the roster entry with the given id.
func (r Room) FindUser(id string) (User, bool) {
	for _, u := range r.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// UserIDs returns the roster ids in stored order.
func (r Room) UserIDs() []string {
	ids := make([]string, 0, len(r.Users))
	for _, u := range r.Users {
		ids = append(ids, u.ID)
	}
	return ids
}
