package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
)

const recommendPromptFmt = `User Request: %q.
Based on the catalog provided in the system instruction, identify the most relevant products.
Return a JSON object containing an array of product IDs that match best.`

// VertexGemini talks to Gemini on Vertex AI. It keeps two model handles
// over one client: a free-text chat model and a recommendation model
// locked to the structured-output schema.
type VertexGemini struct {
	client      *vertexgenai.Client
	chatModel   *vertexgenai.GenerativeModel
	recommender *vertexgenai.GenerativeModel
}

// NewVertexGemini creates the backend client. systemInstruction is
// constant for the process lifetime and attached to every call; it is
// never part of the history.
func NewVertexGemini(ctx context.Context, projectID, location, modelName, systemInstruction string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	system := &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(systemInstruction)}}

	chatModel := c.GenerativeModel(modelName)
	chatModel.SystemInstruction = system
	chatModel.SetTemperature(0.7)

	recommender := c.GenerativeModel(modelName)
	recommender.SystemInstruction = system
	recommender.ResponseMIMEType = "application/json"
	recommender.ResponseSchema = recommendationSchema()

	return &VertexGemini{client: c, chatModel: chatModel, recommender: recommender}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Chat(ctx context.Context, history []Message) (string, error) {
	if len(history) == 0 {
		return "", errors.New("empty history")
	}
	last := history[len(history)-1]
	if last.Role != RoleUser {
		return "", errors.New("history must end with a user message")
	}

	// The SDK separates prior context from the message being sent; the
	// backend still observes the full ordered conversation.
	cs := v.chatModel.StartChat()
	for _, m := range history[:len(history)-1] {
		cs.History = append(cs.History, &vertexgenai.Content{Role: m.Role, Parts: toSDKParts(m.Parts)})
	}

	resp, err := cs.SendMessage(ctx, toSDKParts(last.Parts)...)
	if err != nil {
		return "", err
	}
	return collectText(resp)
}

func (v *VertexGemini) Recommend(ctx context.Context, query string) (*Recommendation, error) {
	prompt := fmt.Sprintf(recommendPromptFmt, query)
	resp, err := v.recommender.GenerateContent(ctx, vertexgenai.Text(prompt))
	if err != nil {
		return nil, err
	}

	text, err := collectText(resp)
	if err != nil {
		return nil, err
	}

	// Models occasionally wrap JSON in a code fence even in schema mode.
	text = strings.Trim(text, "`")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSpace(text)

	var payload struct {
		RecommendedProductIDs []string `json:"recommendedProductIds"`
		Reasoning             string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("parse recommendation payload: %w", err)
	}
	return &Recommendation{ProductIDs: payload.RecommendedProductIDs, Reasoning: payload.Reasoning}, nil
}

func recommendationSchema() *vertexgenai.Schema {
	return &vertexgenai.Schema{
		Type: vertexgenai.TypeObject,
		Properties: map[string]*vertexgenai.Schema{
			"recommendedProductIds": {
				Type:  vertexgenai.TypeArray,
				Items: &vertexgenai.Schema{Type: vertexgenai.TypeString},
			},
			"reasoning": {Type: vertexgenai.TypeString},
		},
		Required: []string{"recommendedProductIds", "reasoning"},
	}
}

func toSDKParts(parts []Part) []vertexgenai.Part {
	out := make([]vertexgenai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			out = append(out, vertexgenai.Text(p.Text))
		}
		if len(p.Data) > 0 {
			out = append(out, vertexgenai.Blob{MIMEType: p.MIMEType, Data: p.Data})
		}
	}
	return out
}

func collectText(resp *vertexgenai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(vertexgenai.Text); ok {
			b.WriteString(string(t))
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("empty response text")
	}
	return text, nil
}
