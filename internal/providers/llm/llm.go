package llm

import "context"

// Backend wire roles. The transcript's "assistant" role maps to "model"
// before it reaches a Provider.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one fragment of a history entry: a text fragment, an inline
// image (raw bytes, already stripped of any data-URL prefix), or both.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

type Message struct {
	Role  string
	Parts []Part
}

// Recommendation is the structured-output payload of a recommendation
// request. Reasoning is accepted from the backend but not shown to users.
type Recommendation struct {
	ProductIDs []string
	Reasoning  string
}

type Provider interface {
	// Chat sends the full ordered conversation, whose last entry must be
	// the current user message, and returns the model's reply text.
	Chat(ctx context.Context, history []Message) (string, error)
	// Recommend issues a schema-constrained request for catalog product
	// IDs matching the query. Returned IDs are not validated here.
	Recommend(ctx context.Context, query string) (*Recommendation, error)
	Close() error
}
