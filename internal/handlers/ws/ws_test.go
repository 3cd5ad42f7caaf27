package ws

import (
	"testing"
	"time"

	"github.com/backuo/backuo-backend/internal/models"
	"github.com/backuo/backuo-backend/internal/repository"
	"github.com/backuo/backuo-backend/internal/service"
	"gorm.io/gorm"
)

func newTestHub(typingTTL time.Duration) *Hub {
	return &Hub{
		clients:      make(map[uint]*ClientConnection),
		rooms:        make(map[uint]map[uint]struct{}),
		joined:       make(map[uint]map[uint]struct{}),
		typing:       make(map[typingKey]*time.Timer),
		typingTTL:    typingTTL,
		pingInterval: time.Minute,
		pongTimeout:  time.Minute,
	}
}

// addClient marks a user online without a real socket. Tests that use it must
// not trigger writes to the connection.
func addClient(hub *Hub, userID uint) {
	hub.mu.Lock()
	hub.clients[userID] = &ClientConnection{
		UserID:    userID,
		LastPong:  time.Now(),
		CloseChan: make(chan struct{}),
	}
	hub.mu.Unlock()
}

// stubConvRepo grants membership from a fixed set.
type stubConvRepo struct {
	members map[uint][]uint
}

func (s *stubConvRepo) EnsureDirect(userA, userB uint) (uint, bool, error) { return 0, false, nil }
func (s *stubConvRepo) IsMember(conversationID, userID uint) (bool, error) {
	for _, id := range s.members[conversationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
func (s *stubConvRepo) MemberIDs(conversationID uint) ([]uint, error) {
	return s.members[conversationID], nil
}

type stubUserRepo struct{}

func (s *stubUserRepo) FindByID(id uint) (*models.User, error) { return &models.User{ID: id}, nil }
func (s *stubUserRepo) FindByEmail(email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubUserRepo) FindByUsername(username string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubUserRepo) AllIDs() ([]uint, error) { return nil, nil }

// stubReadRepo records marks without storage.
type stubReadRepo struct {
	calls int
}

func (s *stubReadRepo) MarkReadUpTo(conversationID, userID, lastMessageID uint) (int64, error) {
	s.calls++
	return 1, nil
}
func (s *stubReadRepo) UnreadCount(conversationID, userID uint) (int64, error) { return 0, nil }

type stubMsgRepo struct{}

func (s *stubMsgRepo) Create(*models.ChatMessage) error { return nil }
func (s *stubMsgRepo) FindByClientID(string, uint) (*models.ChatMessage, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubMsgRepo) ListBefore(uint, uint, int) ([]models.ChatMessage, error) { return nil, nil }
func (s *stubMsgRepo) LatestID(uint) (uint, error)                              { return 0, nil }
func (s *stubMsgRepo) ListConversationsForUser(uint) ([]repository.ConversationListRow, error) {
	return nil, nil
}

func TestDeserializeKnownTypes(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantType string
	}{
		{"Join", `{"type":"join","payload":{"conversation_id":7}}`, "join"},
		{"Leave", `{"type":"leave","payload":{"conversation_id":7}}`, "leave"},
		{"Typing", `{"type":"typing","payload":{"conversation_id":7,"is_typing":true}}`, "typing"},
		{"Read", `{"type":"read","payload":{"conversation_id":7,"last_message_id":3}}`, "read"},
		{"Ping", `{"type":"ping"}`, "ping"},
		{"Pong", `{"type":"pong"}`, "pong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Deserialize([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if msg.GetType() != tt.wantType {
				t.Errorf("GetType() = %q, want %q", msg.GetType(), tt.wantType)
			}
		})
	}
}

func TestDeserializeRejectsUnknownType(t *testing.T) {
	if _, err := Deserialize([]byte(`{"type":"launch_missiles"}`)); err == nil {
		t.Error("unknown type must be rejected")
	}
	if _, err := Deserialize([]byte(`not json`)); err == nil {
		t.Error("malformed frame must be rejected")
	}
}

func TestDeserializeCarriesPayload(t *testing.T) {
	msg, err := Deserialize([]byte(`{"type":"read","payload":{"conversation_id":7,"last_message_id":3}}`))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	read, ok := msg.(*MessageMarkRead)
	if !ok {
		t.Fatalf("expected *MessageMarkRead, got %T", msg)
	}
	if read.ConversationID != 7 || read.LastMessageID != 3 {
		t.Errorf("payload not applied: %+v", read)
	}
}

func TestJoinRequiresMembership(t *testing.T) {
	hub := newTestHub(time.Second)
	addClient(hub, 1)
	addClient(hub, 9)
	conversations := service.NewConversationService(
		&stubConvRepo{members: map[uint][]uint{10: {1, 2}}},
		&stubUserRepo{},
	)

	member := &MessageContext{UserID: 1, Hub: hub, Conversations: conversations}
	if err := (&MessageJoin{ConversationID: 10}).Process(member); err != nil {
		t.Fatalf("member join failed: %v", err)
	}
	if !hub.InRoom(10, 1) {
		t.Error("member should be in the room after join")
	}

	// Non-member joins are dropped without an error reply.
	outsider := &MessageContext{UserID: 9, Hub: hub, Conversations: conversations}
	if err := (&MessageJoin{ConversationID: 10}).Process(outsider); err != nil {
		t.Fatalf("non-member join should be silent, got error: %v", err)
	}
	if hub.InRoom(10, 9) {
		t.Error("non-member must not enter the room")
	}
}

func TestLeaveRoom(t *testing.T) {
	hub := newTestHub(time.Second)
	addClient(hub, 1)
	hub.JoinRoom(10, 1)

	ctx := &MessageContext{UserID: 1, Hub: hub}
	if err := (&MessageLeave{ConversationID: 10}).Process(ctx); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if hub.InRoom(10, 1) {
		t.Error("user should have left the room")
	}
}

func TestReadFrameInvalidatesConversationList(t *testing.T) {
	hub := newTestHub(time.Second)
	convRepo := &stubConvRepo{members: map[uint][]uint{10: {1, 2}}}
	readRepo := &stubReadRepo{}
	reads := service.NewReadService(readRepo, convRepo, &stubMsgRepo{})

	var invalidated []uint
	ctx := &MessageContext{
		UserID:          1,
		Hub:             hub,
		Reads:           reads,
		InvalidateLists: func(userIDs ...uint) { invalidated = append(invalidated, userIDs...) },
	}

	// Advancing the cursor over the socket must stale the cached sidebar
	// the same way the REST endpoint does.
	if err := (&MessageMarkRead{ConversationID: 10, LastMessageID: 3}).Process(ctx); err != nil {
		t.Fatalf("read frame failed: %v", err)
	}
	if readRepo.calls != 1 {
		t.Errorf("mark calls = %d, want 1", readRepo.calls)
	}
	if len(invalidated) != 1 || invalidated[0] != 1 {
		t.Errorf("invalidated users = %v, want [1]", invalidated)
	}
}

func typingActive(hub *Hub, conversationID, userID uint) bool {
	hub.typingMu.Lock()
	defer hub.typingMu.Unlock()
	_, active := hub.typing[typingKey{ConversationID: conversationID, UserID: userID}]
	return active
}

func TestTypingExpires(t *testing.T) {
	hub := newTestHub(40 * time.Millisecond)
	addClient(hub, 1)
	hub.JoinRoom(10, 1)

	hub.SetTyping(10, 1, true)
	if !typingActive(hub, 10, 1) {
		t.Fatal("typing state should be tracked while active")
	}

	time.Sleep(100 * time.Millisecond)

	if typingActive(hub, 10, 1) {
		t.Error("typing state should expire without refresh")
	}
}

func TestTypingRefreshRearmsExpiry(t *testing.T) {
	hub := newTestHub(60 * time.Millisecond)
	addClient(hub, 1)
	hub.JoinRoom(10, 1)

	hub.SetTyping(10, 1, true)
	time.Sleep(40 * time.Millisecond)
	hub.SetTyping(10, 1, true)
	time.Sleep(40 * time.Millisecond)

	// 80ms since the first set, but only 40ms since the refresh.
	if !typingActive(hub, 10, 1) {
		t.Error("refresh should re-arm the expiry")
	}
}

func TestTypingStopCancelsTimer(t *testing.T) {
	hub := newTestHub(time.Minute)
	addClient(hub, 1)
	hub.JoinRoom(10, 1)

	hub.SetTyping(10, 1, true)
	hub.SetTyping(10, 1, false)

	if typingActive(hub, 10, 1) {
		t.Error("explicit stop should clear typing state immediately")
	}
}

func TestTypingIgnoredOutsideRoom(t *testing.T) {
	hub := newTestHub(time.Minute)

	hub.SetTyping(10, 1, true)
	if typingActive(hub, 10, 1) {
		t.Error("typing from outside the room must be ignored")
	}
}

func TestUnregisterClearsRooms(t *testing.T) {
	hub := newTestHub(time.Minute)
	addClient(hub, 1)

	hub.JoinRoom(10, 1)
	hub.Unregister(1)

	if hub.InRoom(10, 1) {
		t.Error("unregister should leave all rooms")
	}
	if hub.IsOnline(1) {
		t.Error("unregistered user must not be online")
	}
}

func TestEventConstructors(t *testing.T) {
	msg := models.ChatMessageResponse{ID: 5, ConversationID: 10, SenderID: 1, ClientID: "tmp-9"}
	ev := NewMessageEvent(msg)
	if ev.Type != EventMessageNew {
		t.Errorf("message event type = %q, want %q", ev.Type, EventMessageNew)
	}

	ev = NewReadEvent(10, 1, 5)
	if ev.Type != EventRead {
		t.Errorf("read event type = %q, want %q", ev.Type, EventRead)
	}

	ev = NewTypingEvent(10, 1, true)
	if ev.Type != EventTyping {
		t.Errorf("typing event type = %q, want %q", ev.Type, EventTyping)
	}
}
