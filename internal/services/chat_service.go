package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartshopai/smartshop/internal/catalog"
	"github.com/smartshopai/smartshop/internal/models"
	"github.com/smartshopai/smartshop/internal/utils"
)

const greetingText = "Hi! I'm ShopBot. I can help you find products, compare items, or analyze photos. Upload an image or ask away!"

// TranscriptUpdate is pushed to subscribers whenever a turn is appended
// to a conversation.
type TranscriptUpdate struct {
	UserID string                  `json:"user_id"`
	Turn   models.ConversationTurn `json:"turn"`
}

// ChatService owns one conversation per user. Transcripts are
// append-only and memory-resident for the process lifetime.
type ChatService interface {
	// Transcript returns a copy of the user's conversation, creating it
	// with the greeting turn on first access.
	Transcript(ctx context.Context, userID string) ([]models.ConversationTurn, error)
	// Submit runs one user turn through the full pipeline and returns the
	// settled assistant turn. At most one submission per user may be in
	// flight; concurrent submissions are rejected.
	Submit(ctx context.Context, userID, text, imageData string) (models.ConversationTurn, error)
	// InjectAssistantNotice appends an assistant turn outside the normal
	// turn pipeline, e.g. a restock offer after a storefront search miss.
	InjectAssistantNotice(ctx context.Context, userID, text string) (models.ConversationTurn, error)
	// Subscribe delivers every appended turn for the user until the
	// returned cancel func is called.
	Subscribe(userID string) (<-chan TranscriptUpdate, func())
}

// Per-submission lifecycle. A conversation accepts new submissions only
// while idle.
type convState int

const (
	stateIdle convState = iota
	stateSubmitting
	stateAwaitingBackend
)

type conversation struct {
	mu     sync.Mutex
	turns  []models.ConversationTurn
	state  convState
	nextID int
	subs   map[int]chan TranscriptUpdate
}

type chatService struct {
	mu      sync.Mutex
	convs   map[string]*conversation
	catalog catalog.Repository
	gateway AssistantGateway
	log     *logrus.Logger
}

func NewChatService(repo catalog.Repository, gateway AssistantGateway, log *logrus.Logger) ChatService {
	return &chatService{
		convs:   make(map[string]*conversation),
		catalog: repo,
		gateway: gateway,
		log:     log,
	}
}

func (s *chatService) conversation(userID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[userID]
	if !ok {
		conv = &conversation{subs: make(map[int]chan TranscriptUpdate)}
		conv.turns = append(conv.turns, models.ConversationTurn{
			ID:        uuid.NewString(),
			Role:      models.RoleSystem,
			Content:   greetingText,
			CreatedAt: time.Now(),
		})
		s.convs[userID] = conv
	}
	return conv
}

func (s *chatService) Transcript(_ context.Context, userID string) ([]models.ConversationTurn, error) {
	conv := s.conversation(userID)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	out := make([]models.ConversationTurn, len(conv.turns))
	copy(out, conv.turns)
	return out, nil
}

func (s *chatService) Submit(ctx context.Context, userID, text, imageData string) (models.ConversationTurn, error) {
	const op = "ChatService.Submit"

	text = strings.TrimSpace(text)
	if text == "" && imageData == "" {
		return models.ConversationTurn{}, utils.E(utils.CodeInvalidArgument, op, "message text or image required", nil)
	}

	conv := s.conversation(userID)

	conv.mu.Lock()
	if conv.state != stateIdle {
		conv.mu.Unlock()
		return models.ConversationTurn{}, utils.E(utils.CodeConflict, op, "a message is already being processed", nil)
	}
	conv.state = stateSubmitting

	userTurn := models.ConversationTurn{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   text,
		ImageData: imageData,
		CreatedAt: time.Now(),
	}
	conv.turns = append(conv.turns, userTurn)
	history := make([]models.ConversationTurn, len(conv.turns))
	copy(history, conv.turns)
	conv.mu.Unlock()

	s.notify(userID, conv, userTurn)

	reply, recs := s.respond(ctx, op, userID, history, text, imageData)

	assistantTurn := models.ConversationTurn{
		ID:                  uuid.NewString(),
		Role:                models.RoleAssistant,
		Content:             reply,
		RecommendedProducts: recs,
		CreatedAt:           time.Now(),
	}

	conv.mu.Lock()
	conv.turns = append(conv.turns, assistantTurn)
	conv.state = stateIdle
	conv.mu.Unlock()

	s.notify(userID, conv, assistantTurn)
	return assistantTurn, nil
}

// respond produces the assistant's reply and recommendations. It never
// fails: any panic below it settles the turn with the fallback reply so
// the transcript keeps its strict user/assistant alternation.
func (s *chatService) respond(ctx context.Context, op, userID string, history []models.ConversationTurn, text, imageData string) (reply string, recs []models.Product) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{"op": op, "user_id": userID, "panic": r}).Error("turn pipeline panicked")
			reply = ConnectFallbackReply
			recs = nil
		}
	}()

	local := s.catalog.Match(text, catalog.ChatLimit)

	s.setState(s.conversation(userID), stateAwaitingBackend)
	reply = s.gateway.Converse(ctx, history)

	var backend []models.Product
	if shouldRecommend(text, len(local), imageData != "") {
		backend = s.gateway.Recommend(ctx, text)
	}
	return reply, mergeRecommendations(local, backend)
}

func (s *chatService) setState(conv *conversation, st convState) {
	conv.mu.Lock()
	conv.state = st
	conv.mu.Unlock()
}

func (s *chatService) InjectAssistantNotice(_ context.Context, userID, text string) (models.ConversationTurn, error) {
	const op = "ChatService.InjectAssistantNotice"

	if strings.TrimSpace(text) == "" {
		return models.ConversationTurn{}, utils.E(utils.CodeInvalidArgument, op, "notice text required", nil)
	}

	conv := s.conversation(userID)
	turn := models.ConversationTurn{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   text,
		CreatedAt: time.Now(),
	}

	conv.mu.Lock()
	conv.turns = append(conv.turns, turn)
	conv.mu.Unlock()

	s.notify(userID, conv, turn)
	return turn, nil
}

func (s *chatService) Subscribe(userID string) (<-chan TranscriptUpdate, func()) {
	conv := s.conversation(userID)

	conv.mu.Lock()
	id := conv.nextID
	conv.nextID++
	ch := make(chan TranscriptUpdate, 16)
	conv.subs[id] = ch
	conv.mu.Unlock()

	cancel := func() {
		conv.mu.Lock()
		if c, ok := conv.subs[id]; ok {
			delete(conv.subs, id)
			close(c)
		}
		conv.mu.Unlock()
	}
	return ch, cancel
}

// notify fans the turn out to subscribers. Slow consumers are skipped
// rather than blocking the pipeline.
func (s *chatService) notify(userID string, conv *conversation, turn models.ConversationTurn) {
	conv.mu.Lock()
	defer conv.mu.Unlock()
	for _, ch := range conv.subs {
		select {
		case ch <- TranscriptUpdate{UserID: userID, Turn: turn}:
		default:
		}
	}
}

// shouldRecommend decides whether the turn warrants a structured
// recommendation call on top of the free-text reply. Image turns never
// trigger one; the backend already sees the image in Converse.
func shouldRecommend(text string, localMatches int, hasImage bool) bool {
	if hasImage {
		return false
	}
	lc := strings.ToLower(text)
	return strings.Contains(lc, "recommend") || strings.Contains(lc, "suggest") || localMatches == 0
}

// mergeRecommendations concatenates local matches and backend picks,
// keeping the first occurrence of each product ID.
func mergeRecommendations(local, backend []models.Product) []models.Product {
	seen := make(map[string]bool, len(local)+len(backend))
	var out []models.Product
	for _, p := range local {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	for _, p := range backend {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}
