package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPairKey(t *testing.T) {
	tests := []struct {
		name string
		a, b uint
		want string
	}{
		{"Ordered", 1, 2, "1:2"},
		{"Reversed", 2, 1, "1:2"},
		{"Large ids", 1000, 3, "3:1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PairKey(tt.a, tt.b); got != tt.want {
				t.Errorf("PairKey(%d, %d) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestChatMessageToResponse(t *testing.T) {
	clientID := "tmp-1"
	msg := ChatMessage{
		ID:             5,
		ConversationID: 10,
		SenderID:       1,
		ClientID:       &clientID,
		Content:        "hello",
		ImageKey:       "42/photo.png",
	}

	resp := msg.ToResponse("/api/media/messages")
	if resp.ClientID != "tmp-1" {
		t.Errorf("ClientID = %q, want tmp-1", resp.ClientID)
	}
	if resp.ImageURL != "/api/media/messages/42/photo.png" {
		t.Errorf("ImageURL = %q", resp.ImageURL)
	}

	// Without a base URL the raw key passes through.
	resp = msg.ToResponse("")
	if resp.ImageURL != "42/photo.png" {
		t.Errorf("ImageURL without base = %q", resp.ImageURL)
	}
}

func TestChatMessageResponseOmitsEmptyClientID(t *testing.T) {
	msg := ChatMessage{ID: 5, ConversationID: 10, SenderID: 1, Content: "hello"}

	data, err := json.Marshal(msg.ToResponse(""))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "client_id") {
		t.Errorf("client_id should be omitted when unset: %s", data)
	}
}

func TestUserToResponseHidesEmail(t *testing.T) {
	u := User{ID: 1, Username: "alice", Email: "alice@example.com", FullName: "Alice"}

	data, err := json.Marshal(u.ToResponse())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "alice@example.com") {
		t.Errorf("counterpart responses must not carry the email: %s", data)
	}
}
