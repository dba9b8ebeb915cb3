package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartshopai/smartshop/internal/catalog"
	"github.com/smartshopai/smartshop/internal/models"
	"github.com/smartshopai/smartshop/internal/utils"
)

type fakeGateway struct {
	mu             sync.Mutex
	reply          string
	recs           []models.Product
	converseCalls  int
	recommendCalls int

	// when set, Converse signals entered and waits for release
	entered chan struct{}
	release chan struct{}

	panics bool
}

func (f *fakeGateway) Converse(ctx context.Context, history []models.ConversationTurn) string {
	f.mu.Lock()
	f.converseCalls++
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if f.panics {
		panic("backend exploded")
	}
	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if f.reply == "" {
		return "ok"
	}
	return f.reply
}

func (f *fakeGateway) Recommend(ctx context.Context, query string) []models.Product {
	f.mu.Lock()
	f.recommendCalls++
	f.mu.Unlock()
	return f.recs
}

func (f *fakeGateway) calls() (converse, recommend int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.converseCalls, f.recommendCalls
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestChat(t *testing.T, gw AssistantGateway) ChatService {
	t.Helper()
	repo, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog load: %v", err)
	}
	return NewChatService(repo, gw, quietLogger())
}

func TestTranscriptStartsWithGreeting(t *testing.T) {
	svc := newTestChat(t, &fakeGateway{})

	turns, err := svc.Transcript(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].Role != models.RoleSystem {
		t.Errorf("greeting role = %s", turns[0].Role)
	}
	if turns[0].Content != greetingText {
		t.Errorf("greeting content = %q", turns[0].Content)
	}
}

func TestSubmitAlternation(t *testing.T) {
	gw := &fakeGateway{reply: "sure thing"}
	svc := newTestChat(t, gw)
	ctx := context.Background()

	for _, text := range []string{"hello", "show me cameras", "thanks"} {
		turn, err := svc.Submit(ctx, "u1", text, "")
		if err != nil {
			t.Fatalf("Submit(%q): %v", text, err)
		}
		if turn.Role != models.RoleAssistant {
			t.Errorf("settled turn role = %s", turn.Role)
		}
		if turn.Content != "sure thing" {
			t.Errorf("settled turn content = %q", turn.Content)
		}
	}

	turns, _ := svc.Transcript(ctx, "u1")
	if len(turns) != 7 {
		t.Fatalf("got %d turns, want 7", len(turns))
	}
	for i, turn := range turns[1:] {
		want := models.RoleUser
		if i%2 == 1 {
			want = models.RoleAssistant
		}
		if turn.Role != want {
			t.Errorf("turn %d role = %s, want %s", i+1, turn.Role, want)
		}
	}
}

func TestSubmitRequiresContent(t *testing.T) {
	svc := newTestChat(t, &fakeGateway{})

	_, err := svc.Submit(context.Background(), "u1", "   ", "")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("got %v, want INVALID_ARGUMENT", err)
	}

	turns, _ := svc.Transcript(context.Background(), "u1")
	if len(turns) != 1 {
		t.Errorf("rejected submit left %d turns", len(turns))
	}
}

func TestSubmitRejectsConcurrent(t *testing.T) {
	gw := &fakeGateway{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestChat(t, gw)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, "u1", "first", "")
		done <- err
	}()

	<-gw.entered

	_, err := svc.Submit(ctx, "u1", "second", "")
	if !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("concurrent submit: got %v, want CONFLICT", err)
	}
	if converses, _ := gw.calls(); converses != 1 {
		t.Errorf("rejected submit reached the gateway (%d calls)", converses)
	}

	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}

	gw.mu.Lock()
	gw.entered = nil
	gw.mu.Unlock()

	// conversation idle again
	if _, err := svc.Submit(ctx, "u1", "third", ""); err != nil {
		t.Fatalf("submit after settle: %v", err)
	}
}

func TestSubmitOtherUserUnaffected(t *testing.T) {
	gw := &fakeGateway{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestChat(t, gw)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, "u1", "first", "")
		done <- err
	}()
	<-gw.entered

	gw.mu.Lock()
	gw.entered = nil
	gw.mu.Unlock()

	if _, err := svc.Submit(ctx, "u2", "hello", ""); err != nil {
		t.Errorf("other user's submit blocked: %v", err)
	}

	close(gw.release)
	<-done
}

func TestRecommendationTrigger(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		imageData     string
		wantRecommend bool
	}{
		{"keyword recommend", "recommend something for my office", "", true},
		{"keyword suggest", "can you suggest a gift", "", true},
		{"no local matches", "something for deep sea diving", "", true},
		{"local matches no keyword", "camera", "", false},
		{"image suppresses", "what is this", "aGVsbG8=", false},
		{"image suppresses even with keyword", "recommend based on this", "aGVsbG8=", false},
		{"image with no text is accepted", "", "aGVsbG8=", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			svc := newTestChat(t, gw)

			if _, err := svc.Submit(context.Background(), "u1", tt.text, tt.imageData); err != nil {
				t.Fatalf("Submit: %v", err)
			}

			_, recommends := gw.calls()
			if got := recommends > 0; got != tt.wantRecommend {
				t.Errorf("recommend called = %v, want %v", got, tt.wantRecommend)
			}
		})
	}
}

func TestSubmitAttachesRecommendations(t *testing.T) {
	repo, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog load: %v", err)
	}
	p1, _ := repo.Get("p1")
	p3, _ := repo.Get("p3")

	gw := &fakeGateway{recs: []models.Product{*p1, *p3}}
	svc := NewChatService(repo, gw, quietLogger())

	turn, err := svc.Submit(context.Background(), "u1", "recommend headphones", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// local match on "recommend headphones" finds nothing, so the
	// backend picks come through as-is
	if len(turn.RecommendedProducts) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(turn.RecommendedProducts))
	}
	if turn.RecommendedProducts[0].ID != "p1" || turn.RecommendedProducts[1].ID != "p3" {
		t.Errorf("unexpected recommendation order: %+v", turn.RecommendedProducts)
	}
}

func TestMergeRecommendations(t *testing.T) {
	a := models.Product{ID: "p1"}
	b := models.Product{ID: "p2"}
	c := models.Product{ID: "p3"}

	got := mergeRecommendations([]models.Product{a, b}, []models.Product{b, c, a})
	if len(got) != 3 {
		t.Fatalf("got %d products, want 3", len(got))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if got[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, want)
		}
	}

	if mergeRecommendations(nil, nil) != nil {
		t.Error("merging nothing should yield nil")
	}
}

func TestSubmitSurvivesPanic(t *testing.T) {
	gw := &fakeGateway{panics: true}
	svc := newTestChat(t, gw)
	ctx := context.Background()

	turn, err := svc.Submit(ctx, "u1", "hello", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if turn.Content != ConnectFallbackReply {
		t.Errorf("got %q, want fallback reply", turn.Content)
	}

	turns, _ := svc.Transcript(ctx, "u1")
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}

	// pipeline accepts new submissions afterwards
	gw.panics = false
	if _, err := svc.Submit(ctx, "u1", "again", ""); err != nil {
		t.Fatalf("submit after panic: %v", err)
	}
}

func TestInjectAssistantNotice(t *testing.T) {
	svc := newTestChat(t, &fakeGateway{})
	ctx := context.Background()

	turn, err := svc.InjectAssistantNotice(ctx, "u1", "we can restock that")
	if err != nil {
		t.Fatalf("InjectAssistantNotice: %v", err)
	}
	if turn.Role != models.RoleAssistant {
		t.Errorf("notice role = %s", turn.Role)
	}

	if _, err := svc.InjectAssistantNotice(ctx, "u1", "  "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("empty notice: got %v, want INVALID_ARGUMENT", err)
	}

	turns, _ := svc.Transcript(ctx, "u1")
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
}

func TestSubscribe(t *testing.T) {
	svc := newTestChat(t, &fakeGateway{reply: "hi"})
	ctx := context.Background()

	updates, cancel := svc.Subscribe("u1")
	defer cancel()

	if _, err := svc.Submit(ctx, "u1", "hello", ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var got []models.ConversationTurn
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case u := <-updates:
			got = append(got, u.Turn)
		case <-timeout:
			t.Fatalf("received %d updates, want 2", len(got))
		}
	}

	if got[0].Role != models.RoleUser || got[1].Role != models.RoleAssistant {
		t.Errorf("update roles = %s, %s", got[0].Role, got[1].Role)
	}

	cancel()
	if _, open := <-updates; open {
		t.Error("channel still open after cancel")
	}
}
