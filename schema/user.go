package schema

import (
	"chat-core/models"
	"chat-core/store"
)

// UserFromRecord maps a users-collection record to a User.
func UserFromRecord(rec store.Record) (models.User, error) {
	firstName, err := stringField(rec.Data, "firstName", false)
	if err != nil {
		return models.User{}, err
	}
	lastName, err := stringField(rec.Data, "lastName", false)
	if err != nil {
		return models.User{}, err
	}
	imageURL, err := stringField(rec.Data, "imageUrl", false)
	if err != nil {
		return models.User{}, err
	}
	lastSeen, err := timestampField(rec.Data, "lastSeen")
	if err != nil {
		return models.User{}, err
	}
	metadata, err := mapField(rec.Data, "metadata")
	if err != nil {
		return models.User{}, err
	}
	roleStr, err := stringField(rec.Data, "role", false)
	if err != nil {
		return models.User{}, err
	}
	var role *models.Role
	if roleStr != "" {
		r := models.Role(roleStr)
		role = &r
	}
	return models.User{
		ID:        rec.ID,
		FirstName: firstName,
		LastName:  lastName,
		ImageURL:  imageURL,
		LastSeen:  lastSeen,
		Role:      role,
		Metadata:  metadata,
	}, nil
}

// UserToRecord serializes a User for storage. The id is the document key
// and is not written into the record body.
func UserToRecord(u models.User) map[string]any {
	data := map[string]any{}
	setIfNotZero(data, "firstName", u.FirstName)
	setIfNotZero(data, "lastName", u.LastName)
	setIfNotZero(data, "imageUrl", u.ImageURL)
	if u.LastSeen != nil {
		data["lastSeen"] = *u.LastSeen
	}
	if u.Role != nil {
		data["role"] = string(*u.Role)
	}
	if u.Metadata != nil {
		data["metadata"] = store.CloneData(u.Metadata)
	}
	return data
}
