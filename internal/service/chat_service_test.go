package service

import (
	"strings"
	"testing"
	"time"

	"docsense/internal/models"

	"github.com/google/uuid"
)

func makeConversation(t *testing.T, turns int) []*models.ChatMessage {
	t.Helper()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages := make([]*models.ChatMessage, 0, turns*2)
	for i := 0; i < turns; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		messages = append(messages, &models.ChatMessage{
			ID:        uuid.New(),
			Message:   "question " + string(rune('A'+i)),
			Sender:    models.SenderUser,
			CreatedAt: at,
		})
		messages = append(messages, &models.ChatMessage{
			ID:        uuid.New(),
			Response:  "answer " + string(rune('A'+i)),
			Sender:    models.SenderAI,
			CreatedAt: at.Add(time.Millisecond),
		})
	}
	return messages
}

func TestPairTurns(t *testing.T) {
	messages := makeConversation(t, 3)

	turns := pairTurns(messages)

	if len(turns) != 3 {
		t.Fatalf("expected 3 turns from 6 rows, got %d", len(turns))
	}
	for i, turn := range turns {
		wantQ := "question " + string(rune('A'+i))
		wantA := "answer " + string(rune('A'+i))
		if turn.Question != wantQ || turn.Answer != wantA {
			t.Errorf("turn %d = {%q, %q}, want {%q, %q}", i, turn.Question, turn.Answer, wantQ, wantA)
		}
	}
}

func TestPairTurns_OrphanAnswer(t *testing.T) {
	messages := []*models.ChatMessage{
		{ID: uuid.New(), Response: "stray answer", Sender: models.SenderAI},
		{ID: uuid.New(), Message: "question", Sender: models.SenderUser},
		{ID: uuid.New(), Response: "answer", Sender: models.SenderAI},
	}

	turns := pairTurns(messages)

	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "" || turns[0].Answer != "stray answer" {
		t.Errorf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Question != "question" || turns[1].Answer != "answer" {
		t.Errorf("unexpected second turn: %+v", turns[1])
	}
}

func TestLastTurns(t *testing.T) {
	turns := make([]chatTurn, 8)
	for i := range turns {
		turns[i] = chatTurn{Question: string(rune('A' + i))}
	}

	windowed := lastTurns(turns, 5)
	if len(windowed) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(windowed))
	}
	if windowed[0].Question != "D" || windowed[4].Question != "H" {
		t.Errorf("expected the last 5 turns D..H, got %q..%q", windowed[0].Question, windowed[4].Question)
	}

	short := []chatTurn{{Question: "A"}}
	if got := lastTurns(short, 5); len(got) != 1 {
		t.Errorf("short input should pass through, got %d turns", len(got))
	}
}

func TestHistoryEntries(t *testing.T) {
	messages := makeConversation(t, 3)

	entries := historyEntries(messages)

	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}

	for i, entry := range entries {
		if i%2 == 0 {
			if entry.Sender != models.SenderUser {
				t.Errorf("entry %d: expected user sender, got %q", i, entry.Sender)
			}
			if !strings.HasPrefix(entry.Text, "question") {
				t.Errorf("entry %d: user entry carries %q", i, entry.Text)
			}
		} else {
			if entry.Sender != models.SenderAI {
				t.Errorf("entry %d: expected ai sender, got %q", i, entry.Sender)
			}
			if !strings.HasPrefix(entry.Text, "answer") {
				t.Errorf("entry %d: ai entry carries %q", i, entry.Text)
			}
		}
	}
}

func TestHistoryEntries_SkipsEmptyRows(t *testing.T) {
	messages := []*models.ChatMessage{
		{ID: uuid.New(), Message: "hello", Sender: models.SenderUser},
		{ID: uuid.New(), Sender: models.SenderAI},
	}

	entries := historyEntries(messages)
	if len(entries) != 1 {
		t.Fatalf("expected empty ai row to be skipped, got %d entries", len(entries))
	}
}

func TestReverseMessages(t *testing.T) {
	messages := makeConversation(t, 2)

	reversed := reverseMessages(messages)

	if len(reversed) != len(messages) {
		t.Fatalf("expected %d messages, got %d", len(messages), len(reversed))
	}
	for i := range messages {
		if reversed[i].ID != messages[len(messages)-1-i].ID {
			t.Errorf("position %d not reversed", i)
		}
	}
	// Input order preserved
	if messages[0].Message != "question A" {
		t.Error("reverseMessages mutated its input")
	}
}

func TestBuildChatPrompt(t *testing.T) {
	data := map[string]any{"vendor_name": "Acme Corp", "total_amount": 99.5}
	turns := []chatTurn{{Question: "Who is the vendor?", Answer: "Acme Corp."}}

	prompt := buildChatPrompt(data, turns, "What is the total?")

	for _, want := range []string{
		`"vendor_name": "Acme Corp"`,
		"Previous conversation:",
		"User: Who is the vendor?",
		"Assistant: Acme Corp.",
		"User Question: What is the total?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
}

func TestBuildChatPrompt_NoHistory(t *testing.T) {
	prompt := buildChatPrompt(map[string]any{"a": 1}, nil, "question")

	if strings.Contains(prompt, "Previous conversation:") {
		t.Error("empty history should not add a conversation section")
	}
	if !strings.Contains(prompt, "User Question: question") {
		t.Error("prompt is missing the question")
	}
}
