package models

// Payload is the closed tagged union of message payload variants.
// Dispatch happens over the concrete type; a value outside this set is
// treated as a no-op by the send path.
type Payload interface {
	MessageType() MessageType
}

// TextPayload carries a plain text message.
type TextPayload struct {
	Text string `json:"text"`
}

func (TextPayload) MessageType() MessageType { return TypeText }

// ImagePayload carries an uploaded image. URI and ThumbnailURI are
// assigned by the media coordinator once the blobs are stored.
type ImagePayload struct {
	URI      string `json:"uri,omitempty"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

func (ImagePayload) MessageType() MessageType { return TypeImage }

// VideoPayload carries an uploaded video plus its thumbnail.
type VideoPayload struct {
	URI          string `json:"uri,omitempty"`
	ThumbnailURI string `json:"thumbnailUri,omitempty"`
	FileName     string `json:"fileName"`
	Size         int64  `json:"size,omitempty"`
}

func (VideoPayload) MessageType() MessageType { return TypeVideo }

// FilePayload carries an arbitrary attachment.
type FilePayload struct {
	URI      string `json:"uri,omitempty"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

func (FilePayload) MessageType() MessageType { return TypeFile }

// ChoicePayload presents selectable options to the reader.
type ChoicePayload struct {
	Prompt   string   `json:"prompt,omitempty"`
	Options  []string `json:"options"`
	Selected string   `json:"selected,omitempty"`
}

func (ChoicePayload) MessageType() MessageType { return TypeChoice }

// QuestionPayload asks the reader for a free-form answer.
type QuestionPayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

func (QuestionPayload) MessageType() MessageType { return TypeQuestion }

// SystemPayload is a protocol notice emitted by the assistant.
type SystemPayload struct {
	Text string `json:"text"`
}

func (SystemPayload) MessageType() MessageType { return TypeSystem }

// CommandPayload is a control instruction addressed to the assistant.
type CommandPayload struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

func (CommandPayload) MessageType() MessageType { return TypeCommand }
