package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartshopai/smartshop/internal/cache"
	"github.com/smartshopai/smartshop/internal/catalog"
	"github.com/smartshopai/smartshop/internal/models"
	"github.com/smartshopai/smartshop/internal/providers/llm"
)

// ConnectFallbackReply is shown whenever the assistant backend cannot
// produce a reply, for any reason.
const ConnectFallbackReply = "I'm sorry, I'm having trouble connecting to the server right now. Please try again later."

const (
	backendTimeout   = 30 * time.Second
	recCacheTTL      = 10 * time.Minute
	recCachePrefix   = "recs:"
	defaultImageMIME = "image/jpeg"
)

// AssistantGateway fronts the conversational backend. Neither method
// ever fails outward: Converse degrades to a fixed fallback sentence
// and Recommend degrades to no recommendations.
type AssistantGateway interface {
	// Converse sends the transcript, whose last turn must be the pending
	// user turn, and returns the assistant's reply text.
	Converse(ctx context.Context, history []models.ConversationTurn) string
	// Recommend resolves backend product picks for the query against the
	// catalog. Unknown IDs are dropped, order is preserved.
	Recommend(ctx context.Context, query string) []models.Product
}

type assistantGateway struct {
	provider llm.Provider
	catalog  catalog.Repository
	cache    cache.Cache
	log      *logrus.Logger
}

// NewAssistantGateway wires the backend provider. provider may be nil
// when the process runs without cloud credentials; every call then
// takes the degraded path.
func NewAssistantGateway(provider llm.Provider, repo catalog.Repository, c cache.Cache, log *logrus.Logger) AssistantGateway {
	return &assistantGateway{provider: provider, catalog: repo, cache: c, log: log}
}

func (g *assistantGateway) Converse(ctx context.Context, history []models.ConversationTurn) string {
	const op = "AssistantGateway.Converse"

	if g.provider == nil {
		return ConnectFallbackReply
	}

	projected, err := projectHistory(history)
	if err != nil {
		g.log.WithField("op", op).WithError(err).Warn("cannot project transcript")
		return ConnectFallbackReply
	}

	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	reply, err := g.provider.Chat(ctx, projected)
	if err != nil {
		g.log.WithField("op", op).WithError(err).Error("backend chat failed")
		return ConnectFallbackReply
	}
	return reply
}

func (g *assistantGateway) Recommend(ctx context.Context, query string) []models.Product {
	const op = "AssistantGateway.Recommend"

	if g.provider == nil {
		return nil
	}

	key := recCachePrefix + strings.ToLower(strings.TrimSpace(query))
	if g.cache != nil {
		var ids []string
		if hit, err := g.cache.GetJSON(ctx, key, &ids); err == nil && hit {
			return g.resolve(ids)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	rec, err := g.provider.Recommend(callCtx, query)
	if err != nil {
		g.log.WithField("op", op).WithError(err).Error("backend recommendation failed")
		return nil
	}

	g.log.WithFields(logrus.Fields{
		"op":        op,
		"query":     query,
		"ids":       rec.ProductIDs,
		"reasoning": rec.Reasoning,
	}).Debug("backend recommendation")

	if g.cache != nil {
		if err := g.cache.SetJSON(ctx, key, rec.ProductIDs, recCacheTTL); err != nil {
			g.log.WithField("op", op).WithError(err).Warn("cache write failed")
		}
	}
	return g.resolve(rec.ProductIDs)
}

// resolve maps backend IDs onto catalog entries, dropping IDs the
// catalog does not know and duplicates past the first occurrence.
func (g *assistantGateway) resolve(ids []string) []models.Product {
	seen := make(map[string]bool, len(ids))
	var out []models.Product
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := g.catalog.Get(id); ok {
			out = append(out, *p)
		}
	}
	return out
}

// projectHistory converts the transcript into the backend wire shape.
// Synthetic greeting turns are skipped: the backend requires the first
// entry to carry the user role.
func projectHistory(history []models.ConversationTurn) ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(history))
	for _, t := range history {
		var role string
		switch t.Role {
		case models.RoleUser:
			role = llm.RoleUser
		case models.RoleAssistant:
			role = llm.RoleModel
		case models.RoleSystem:
			continue
		default:
			continue
		}

		part := llm.Part{Text: t.Content}
		if t.ImageData != "" {
			mime, data, err := decodeInlineImage(t.ImageData)
			if err != nil {
				return nil, err
			}
			part.MIMEType = mime
			part.Data = data
		}
		out = append(out, llm.Message{Role: role, Parts: []llm.Part{part}})
	}
	return out, nil
}

// decodeInlineImage accepts either bare base64 or a data URL
// ("data:image/png;base64,....") and returns the MIME type plus raw
// bytes ready for the wire.
func decodeInlineImage(s string) (string, []byte, error) {
	mime := defaultImageMIME
	if strings.HasPrefix(s, "data:") {
		rest := strings.TrimPrefix(s, "data:")
		if i := strings.Index(rest, ";base64,"); i >= 0 {
			if rest[:i] != "" {
				mime = rest[:i]
			}
			s = rest[i+len(";base64,"):]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", nil, err
	}
	return mime, data, nil
}

// CatalogInstruction renders the constant system instruction given to
// the backend: the full catalog plus the assistant's behavior rules.
func CatalogInstruction(repo catalog.Repository) string {
	catalogJSON, err := json.MarshalIndent(repo.List(), "", "  ")
	if err != nil {
		catalogJSON = []byte("[]")
	}

	var b strings.Builder
	b.WriteString("You are ShopBot, the official AI assistant for SmartShopAi.\n")
	b.WriteString("Here is our current product catalog JSON. You MUST use this data to answer questions.\n")
	b.WriteString("Do not invent products. If a user asks for a product not in this list, suggest the closest alternative from this list or say we don't have it.\n\n")
	b.WriteString("CATALOG:\n")
	b.Write(catalogJSON)
	b.WriteString("\n\nBEHAVIOR:\n")
	b.WriteString("- Be helpful, enthusiastic, and concise.\n")
	b.WriteString("- If the user provides an image, analyze it to find matching products in the catalog.\n")
	b.WriteString("- If the user asks for recommendations, analyze their needs against the tags and description.\n")
	b.WriteString("- If the user is looking for an out-of-stock item, apologize and offer to notify management to restock it within 3 days.\n")
	return b.String()
}
