package schema

import (
	"fmt"

	"chat-core/models"
	"chat-core/store"
)

// RoomRecord is the raw, un-hydrated form of a rooms-collection record:
// the roster is still an id list plus an id-to-role mapping.
type RoomRecord struct {
	ID        string
	Type      models.RoomType
	Name      string
	ImageURL  string
	Metadata  map[string]any
	UserIDs   []string
	UserRoles map[string]models.Role
	ClientID  string
	CreatedAt *int64
	UpdatedAt *int64
}

// RoomFromRecord maps a rooms-collection record to its raw form.
func RoomFromRecord(rec store.Record) (RoomRecord, error) {
	typ, err := stringField(rec.Data, "type", true)
	if err != nil {
		return RoomRecord{}, err
	}
	name, err := stringField(rec.Data, "name", false)
	if err != nil {
		return RoomRecord{}, err
	}
	imageURL, err := stringField(rec.Data, "imageUrl", false)
	if err != nil {
		return RoomRecord{}, err
	}
	clientID, err := stringField(rec.Data, "clientId", false)
	if err != nil {
		return RoomRecord{}, err
	}
	metadata, err := mapField(rec.Data, "metadata")
	if err != nil {
		return RoomRecord{}, err
	}
	userIDs, err := stringSliceField(rec.Data, "userIds", true)
	if err != nil {
		return RoomRecord{}, err
	}
	roles, err := roleMapField(rec.Data, "userRoles")
	if err != nil {
		return RoomRecord{}, err
	}
	createdAt, err := timestampField(rec.Data, "createdAt")
	if err != nil {
		return RoomRecord{}, err
	}
	updatedAt, err := timestampField(rec.Data, "updatedAt")
	if err != nil {
		return RoomRecord{}, err
	}
	return RoomRecord{
		ID:        rec.ID,
		Type:      models.RoomType(typ),
		Name:      name,
		ImageURL:  imageURL,
		Metadata:  metadata,
		UserIDs:   userIDs,
		UserRoles: roles,
		ClientID:  clientID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// RoomToRecord serializes a room for storage: the roster is written as
// an id list plus an id-to-role mapping, and the derived fields (id,
// hydrated users) are stripped.
func RoomToRecord(room models.Room) map[string]any {
	data := map[string]any{
		"type":    string(room.Type),
		"userIds": room.UserIDs(),
	}
	setIfNotZero(data, "name", room.Name)
	setIfNotZero(data, "imageUrl", room.ImageURL)
	if room.Metadata != nil {
		data["metadata"] = store.CloneData(room.Metadata)
	}
	roles := map[string]any{}
	for _, u := range room.Users {
		if u.Role != nil {
			roles[u.ID] = string(*u.Role)
		}
	}
	if len(roles) > 0 {
		data["userRoles"] = roles
	}
	if room.CreatedAt != nil {
		data["createdAt"] = *room.CreatedAt
	}
	if room.UpdatedAt != nil {
		data["updatedAt"] = *room.UpdatedAt
	}
	return data
}

func roleMapField(data map[string]any, field string) (map[string]models.Role, error) {
	raw, err := mapField(data, field)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	roles := make(map[string]models.Role, len(raw))
	for id, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %q", ErrMalformedRecord, field)
		}
		roles[id] = models.Role(s)
	}
	return roles, nil
}
