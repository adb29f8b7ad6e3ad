package schema

import (
	"fmt"

	"chat-core/models"
	"chat-core/store"
)

// AuthorResolver turns an author id into a User, typically against a
// room roster with a placeholder fallback.
type AuthorResolver func(id string) models.User

// MessageFromRecord maps a message record to a typed Message. The raw
// authorId is resolved into the structured author and not carried over.
func MessageFromRecord(roomID string, rec store.Record, resolve AuthorResolver) (models.Message, error) {
	typ, err := stringField(rec.Data, "type", true)
	if err != nil {
		return models.Message{}, err
	}
	authorID, err := stringField(rec.Data, "authorId", true)
	if err != nil {
		return models.Message{}, err
	}
	status, err := stringField(rec.Data, "status", false)
	if err != nil {
		return models.Message{}, err
	}
	visibility, err := stringSliceField(rec.Data, "visibility", false)
	if err != nil {
		return models.Message{}, err
	}
	metadata, err := mapField(rec.Data, "metadata")
	if err != nil {
		return models.Message{}, err
	}
	createdAt, err := timestampField(rec.Data, "createdAt")
	if err != nil {
		return models.Message{}, err
	}
	updatedAt, err := timestampField(rec.Data, "updatedAt")
	if err != nil {
		return models.Message{}, err
	}
	payload, err := payloadFromRecord(models.MessageType(typ), rec.Data)
	if err != nil {
		return models.Message{}, err
	}

	author := models.Placeholder(authorID)
	if resolve != nil {
		author = resolve(authorID)
	}

	return models.Message{
		ID:         rec.ID,
		RoomID:     roomID,
		Author:     author,
		Type:       models.MessageType(typ),
		Status:     models.MessageStatus(status),
		Visibility: visibility,
		Metadata:   metadata,
		Payload:    payload,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// MessageToRecord serializes a message for storage. Derived fields are
// stripped: the id is the document key and the resolved author collapses
// back to authorId.
func MessageToRecord(m models.Message) map[string]any {
	data := map[string]any{
		"authorId": m.Author.ID,
		"type":     string(m.Type),
		"status":   string(m.Status),
	}
	if len(m.Visibility) > 0 {
		vis := make([]string, len(m.Visibility))
		copy(vis, m.Visibility)
		data["visibility"] = vis
	}
	if m.Metadata != nil {
		data["metadata"] = store.CloneData(m.Metadata)
	}
	if m.CreatedAt != nil {
		data["createdAt"] = *m.CreatedAt
	}
	if m.UpdatedAt != nil {
		data["updatedAt"] = *m.UpdatedAt
	}
	payloadToRecord(m.Payload, data)
	return data
}

func payloadFromRecord(typ models.MessageType, data map[string]any) (models.Payload, error) {
	switch typ {
	case models.TypeText:
		text, err := stringField(data, "text", true)
		if err != nil {
			return nil, err
		}
		return models.TextPayload{Text: text}, nil
	case models.TypeImage:
		uri, err := stringField(data, "uri", false)
		if err != nil {
			return nil, err
		}
		fileName, err := stringField(data, "fileName", false)
		if err != nil {
			return nil, err
		}
		size, err := intField(data, "size")
		if err != nil {
			return nil, err
		}
		width, err := intField(data, "width")
		if err != nil {
			return nil, err
		}
		height, err := intField(data, "height")
		if err != nil {
			return nil, err
		}
		return models.ImagePayload{URI: uri, FileName: fileName, Size: size, Width: int(width), Height: int(height)}, nil
	case models.TypeVideo:
		uri, err := stringField(data, "uri", false)
		if err != nil {
			return nil, err
		}
		thumb, err := stringField(data, "thumbnailUri", false)
		if err != nil {
			return nil, err
		}
		fileName, err := stringField(data, "fileName", false)
		if err != nil {
			return nil, err
		}
		size, err := intField(data, "size")
		if err != nil {
			return nil, err
		}
		return models.VideoPayload{URI: uri, ThumbnailURI: thumb, FileName: fileName, Size: size}, nil
	case models.TypeFile:
		uri, err := stringField(data, "uri", false)
		if err != nil {
			return nil, err
		}
		fileName, err := stringField(data, "fileName", false)
		if err != nil {
			return nil, err
		}
		mimeType, err := stringField(data, "mimeType", false)
		if err != nil {
			return nil, err
		}
		size, err := intField(data, "size")
		if err != nil {
			return nil, err
		}
		return models.FilePayload{URI: uri, FileName: fileName, MimeType: mimeType, Size: size}, nil
	case models.TypeChoice:
		prompt, err := stringField(data, "prompt", false)
		if err != nil {
			return nil, err
		}
		options, err := stringSliceField(data, "options", true)
		if err != nil {
			return nil, err
		}
		selected, err := stringField(data, "selected", false)
		if err != nil {
			return nil, err
		}
		return models.ChoicePayload{Prompt: prompt, Options: options, Selected: selected}, nil
	case models.TypeQuestion:
		question, err := stringField(data, "question", true)
		if err != nil {
			return nil, err
		}
		answer, err := stringField(data, "answer", false)
		if err != nil {
			return nil, err
		}
		return models.QuestionPayload{Question: question, Answer: answer}, nil
	case models.TypeSystem:
		text, err := stringField(data, "text", true)
		if err != nil {
			return nil, err
		}
		return models.SystemPayload{Text: text}, nil
	case models.TypeCommand:
		name, err := stringField(data, "name", true)
		if err != nil {
			return nil, err
		}
		args, err := mapField(data, "args")
		if err != nil {
			return nil, err
		}
		return models.CommandPayload{Name: name, Args: args}, nil
	}
	return nil, fmt.Errorf("%w: unknown message type %q", ErrMalformedRecord, typ)
}

func payloadToRecord(p models.Payload, data map[string]any) {
	switch payload := p.(type) {
	case models.TextPayload:
		data["text"] = payload.Text
	case models.ImagePayload:
		setIfNotZero(data, "uri", payload.URI)
		setIfNotZero(data, "fileName", payload.FileName)
		if payload.Size > 0 {
			data["size"] = payload.Size
		}
		if payload.Width > 0 {
			data["width"] = int64(payload.Width)
		}
		if payload.Height > 0 {
			data["height"] = int64(payload.Height)
		}
	case models.VideoPayload:
		setIfNotZero(data, "uri", payload.URI)
		setIfNotZero(data, "thumbnailUri", payload.ThumbnailURI)
		setIfNotZero(data, "fileName", payload.FileName)
		if payload.Size > 0 {
			data["size"] = payload.Size
		}
	case models.FilePayload:
		setIfNotZero(data, "uri", payload.URI)
		setIfNotZero(data, "fileName", payload.FileName)
		setIfNotZero(data, "mimeType", payload.MimeType)
		if payload.Size > 0 {
			data["size"] = payload.Size
		}
	case models.ChoicePayload:
		setIfNotZero(data, "prompt", payload.Prompt)
		data["options"] = append([]string(nil), payload.Options...)
		setIfNotZero(data, "selected", payload.Selected)
	case models.QuestionPayload:
		data["question"] = payload.Question
		setIfNotZero(data, "answer", payload.Answer)
	case models.SystemPayload:
		data["text"] = payload.Text
	case models.CommandPayload:
		data["name"] = payload.Name
		if payload.Args != nil {
			data["args"] = store.CloneData(payload.Args)
		}
	}
}
