package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	// RoleSystem is used only for the synthetic greeting that opens a
	// conversation; it is never sent to the assistant backend.
	RoleSystem = "system"
)

// ConversationTurn is one entry in a conversation transcript. Turns are
// append-only and never mutated after creation.
type ConversationTurn struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	// ImageData holds a base64 image attached to a user turn. A data-URL
	// prefix ("data:image/jpeg;base64,") is accepted and stripped before
	// the payload goes to the backend.
	ImageData           string    `json:"image_data,omitempty"`
	RecommendedProducts []Product `json:"recommended_products,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
