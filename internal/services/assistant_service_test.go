package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smartshopai/smartshop/internal/cache"
	"github.com/smartshopai/smartshop/internal/catalog"
	"github.com/smartshopai/smartshop/internal/models"
	"github.com/smartshopai/smartshop/internal/providers/llm"
)

type fakeProvider struct {
	chatReply string
	chatErr   error
	gotChat   []llm.Message

	recIDs         []string
	recErr         error
	recommendCalls int
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message) (string, error) {
	f.gotChat = history
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.chatReply, nil
}

func (f *fakeProvider) Recommend(ctx context.Context, query string) (*llm.Recommendation, error) {
	f.recommendCalls++
	if f.recErr != nil {
		return nil, f.recErr
	}
	return &llm.Recommendation{ProductIDs: f.recIDs, Reasoning: "fits the request"}, nil
}

func (f *fakeProvider) Close() error { return nil }

func testRepo(t *testing.T) catalog.Repository {
	t.Helper()
	repo, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog load: %v", err)
	}
	return repo
}

func TestConverseWithoutProvider(t *testing.T) {
	gw := NewAssistantGateway(nil, testRepo(t), nil, quietLogger())

	got := gw.Converse(context.Background(), []models.ConversationTurn{
		{Role: models.RoleUser, Content: "hi"},
	})
	if got != ConnectFallbackReply {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestConverseBackendError(t *testing.T) {
	p := &fakeProvider{chatErr: errors.New("quota exceeded")}
	gw := NewAssistantGateway(p, testRepo(t), nil, quietLogger())

	got := gw.Converse(context.Background(), []models.ConversationTurn{
		{Role: models.RoleUser, Content: "hi"},
	})
	if got != ConnectFallbackReply {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestConverseProjection(t *testing.T) {
	p := &fakeProvider{chatReply: "hello there"}
	gw := NewAssistantGateway(p, testRepo(t), nil, quietLogger())

	got := gw.Converse(context.Background(), []models.ConversationTurn{
		{Role: models.RoleSystem, Content: "greeting"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "yo"},
		{Role: models.RoleUser, Content: "next"},
	})
	if got != "hello there" {
		t.Fatalf("got %q", got)
	}

	if len(p.gotChat) != 3 {
		t.Fatalf("backend saw %d messages, want 3 (greeting skipped)", len(p.gotChat))
	}
	wantRoles := []string{llm.RoleUser, llm.RoleModel, llm.RoleUser}
	for i, m := range p.gotChat {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d role = %s, want %s", i, m.Role, wantRoles[i])
		}
	}
}

func TestProjectHistoryImages(t *testing.T) {
	tests := []struct {
		name     string
		image    string
		wantMIME string
		wantData string
		wantErr  bool
	}{
		{"data url", "data:image/png;base64,aGVsbG8=", "image/png", "hello", false},
		{"bare base64", "aGVsbG8=", "image/jpeg", "hello", false},
		{"garbage", "not-base64!!", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := projectHistory([]models.ConversationTurn{
				{Role: models.RoleUser, Content: "look", ImageData: tt.image},
			})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("projectHistory: %v", err)
			}

			part := msgs[0].Parts[0]
			if part.MIMEType != tt.wantMIME {
				t.Errorf("mime = %s, want %s", part.MIMEType, tt.wantMIME)
			}
			if string(part.Data) != tt.wantData {
				t.Errorf("data = %q, want %q", part.Data, tt.wantData)
			}
			if part.Text != "look" {
				t.Errorf("text = %q", part.Text)
			}
		})
	}
}

func TestRecommendResolvesAgainstCatalog(t *testing.T) {
	p := &fakeProvider{recIDs: []string{"p2", "ghost", "p2", "p5"}}
	gw := NewAssistantGateway(p, testRepo(t), nil, quietLogger())

	got := gw.Recommend(context.Background(), "something fast")
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2: %+v", len(got), got)
	}
	if got[0].ID != "p2" || got[1].ID != "p5" {
		t.Errorf("got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestRecommendBackendError(t *testing.T) {
	p := &fakeProvider{recErr: errors.New("unavailable")}
	gw := NewAssistantGateway(p, testRepo(t), nil, quietLogger())

	if got := gw.Recommend(context.Background(), "anything"); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestRecommendCaches(t *testing.T) {
	p := &fakeProvider{recIDs: []string{"p1"}}
	gw := NewAssistantGateway(p, testRepo(t), cache.NewMemoryCache(), quietLogger())
	ctx := context.Background()

	first := gw.Recommend(ctx, "Noise Cancelling")
	second := gw.Recommend(ctx, "  noise cancelling ")

	if p.recommendCalls != 1 {
		t.Errorf("backend called %d times, want 1", p.recommendCalls)
	}
	if len(first) != 1 || len(second) != 1 || first[0].ID != second[0].ID {
		t.Errorf("cache returned different results: %+v vs %+v", first, second)
	}
}

func TestCatalogInstruction(t *testing.T) {
	got := CatalogInstruction(testRepo(t))

	for _, want := range []string{
		"You are ShopBot",
		"CATALOG:",
		"BEHAVIOR:",
		`"id": "p1"`,
		"restock it within 3 days",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("instruction missing %q", want)
		}
	}
}
