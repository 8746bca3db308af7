package domain

// UploadRosterRequest is the JSON form of a roster upload.
type UploadRosterRequest struct {
	Names       []string `json:"names" validate:"required,min=1"`
	Generate    *bool    `json:"generate,omitempty"`
	SharedTopic string   `json:"shared_topic,omitempty" validate:"max=200"`
}

// UploadRosterResponse reports what an upload stored and generated.
type UploadRosterResponse struct {
	Count   int      `json:"count"`
	Names   []string `json:"names"`
	Pairing *Pairing `json:"pairing,omitempty"`
}

// GeneratePairingRequest triggers a regeneration from the stored roster.
type GeneratePairingRequest struct {
	SharedTopic string `json:"shared_topic,omitempty" validate:"max=200"`
	Language    string `json:"language,omitempty" validate:"omitempty,oneof=de en fr es"`
}

// GeneratePairingResponse wraps a freshly generated pairing.
type GeneratePairingResponse struct {
	Pairing  *Pairing  `json:"pairing"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// UpdateTopicRequest changes the topic of a single pair.
type UpdateTopicRequest struct {
	Topic string `json:"topic" validate:"required,max=200"`
}

// UpdateSettingsRequest replaces the teacher settings.
type UpdateSettingsRequest struct {
	Language           string `json:"language" validate:"required,oneof=de en fr es"`
	SharedTopicEnabled bool   `json:"shared_topic_enabled"`
	SharedTopic        string `json:"shared_topic,omitempty" validate:"max=200"`
	MaxWordsPerMessage int    `json:"max_words_per_message" validate:"required,gt=0"`
	MaxCharsPerRefresh int    `json:"max_chars_per_refresh" validate:"required,gt=0"`
}

// OpenSessionRequest identifies the participant joining a chat.
type OpenSessionRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// SendMessageRequest carries one chat message.
type SendMessageRequest struct {
	Text string `json:"text" validate:"max=4000"`
}

// SendMessageResponse confirms an appended line.
type SendMessageResponse struct {
	Line      TranscriptLine `json:"line"`
	LineCount int            `json:"line_count"`
}
