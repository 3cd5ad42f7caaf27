package service

import (
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/backuo/backuo-backend/internal/models"
	"github.com/backuo/backuo-backend/internal/repository"
)

// In-memory repository doubles shared by the service tests.

type MockUserRepository struct {
	users map[uint]*models.User
}

func NewMockUserRepository(users ...*models.User) *MockUserRepository {
	m := &MockUserRepository{users: make(map[uint]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if strings.ToLower(u.Email) == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByUsername(username string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	for _, u := range m.users {
		if strings.ToLower(u.Username) == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) AllIDs() ([]uint, error) {
	ids := make([]uint, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type MockConversationRepository struct {
	conversations map[uint]*models.Conversation
	members       map[uint][]uint // conversation id -> member ids
	byPairKey     map[string]uint
	nextID        uint
}

func NewMockConversationRepository() *MockConversationRepository {
	return &MockConversationRepository{
		conversations: make(map[uint]*models.Conversation),
		members:       make(map[uint][]uint),
		byPairKey:     make(map[string]uint),
		nextID:        1,
	}
}

func (m *MockConversationRepository) EnsureDirect(userA, userB uint) (uint, bool, error) {
	key := models.PairKey(userA, userB)
	if id, ok := m.byPairKey[key]; ok {
		return id, false, nil
	}
	id := m.nextID
	m.nextID++
	m.conversations[id] = &models.Conversation{ID: id, PairKey: &key}
	m.members[id] = []uint{userA, userB}
	m.byPairKey[key] = id
	return id, true, nil
}

func (m *MockConversationRepository) IsMember(conversationID, userID uint) (bool, error) {
	for _, id := range m.members[conversationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockConversationRepository) MemberIDs(conversationID uint) ([]uint, error) {
	return m.members[conversationID], nil
}

type MockMessageRepository struct {
	messages map[uint]*models.ChatMessage
	nextID   uint
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.ChatMessage),
		nextID:   1,
	}
}

func (m *MockMessageRepository) Create(message *models.ChatMessage) error {
	if message.ClientID != nil {
		for _, existing := range m.messages {
			if existing.SenderID == message.SenderID &&
				existing.ClientID != nil && *existing.ClientID == *message.ClientID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	} else if message.ID >= m.nextID {
		m.nextID = message.ID + 1
	}
	m.messages[message.ID] = message
	return nil
}

func (m *MockMessageRepository) FindByClientID(clientID string, senderID uint) (*models.ChatMessage, error) {
	for _, msg := range m.messages {
		if msg.SenderID == senderID && msg.ClientID != nil && *msg.ClientID == clientID {
			return msg, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) ListBefore(conversationID uint, beforeID uint, limit int) ([]models.ChatMessage, error) {
	var all []models.ChatMessage
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID {
			continue
		}
		if beforeID != 0 && msg.ID >= beforeID {
			continue
		}
		all = append(all, *msg)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *MockMessageRepository) LatestID(conversationID uint) (uint, error) {
	var latest uint
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.ID > latest {
			latest = msg.ID
		}
	}
	return latest, nil
}

func (m *MockMessageRepository) ListConversationsForUser(userID uint) ([]repository.ConversationListRow, error) {
	return nil, nil
}

type MockReadMarkRepository struct {
	mu       sync.Mutex
	messages *MockMessageRepository
	reads    map[uint]map[uint]bool // user id -> message id -> read
}

func NewMockReadMarkRepository(messages *MockMessageRepository) *MockReadMarkRepository {
	return &MockReadMarkRepository{
		messages: messages,
		reads:    make(map[uint]map[uint]bool),
	}
}

func (m *MockReadMarkRepository) MarkReadUpTo(conversationID, userID, lastMessageID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reads[userID] == nil {
		m.reads[userID] = make(map[uint]bool)
	}
	var inserted int64
	for _, msg := range m.messages.messages {
		if msg.ConversationID != conversationID || msg.ID > lastMessageID {
			continue
		}
		if msg.SenderID == userID || m.reads[userID][msg.ID] {
			continue
		}
		m.reads[userID][msg.ID] = true
		inserted++
	}
	return inserted, nil
}

func (m *MockReadMarkRepository) UnreadCount(conversationID, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, msg := range m.messages.messages {
		if msg.ConversationID != conversationID || msg.SenderID == userID {
			continue
		}
		if !m.reads[userID][msg.ID] {
			count++
		}
	}
	return count, nil
}

type MockNotificationRepository struct {
	notifications map[uint]*models.Notification
	nextID        uint
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[uint]*models.Notification),
		nextID:        1,
	}
}

func (m *MockNotificationRepository) CreateBatch(notifications []*models.Notification) error {
	for _, n := range notifications {
		if n.ID == 0 {
			n.ID = m.nextID
			m.nextID++
		}
		m.notifications[n.ID] = n
	}
	return nil
}

func (m *MockNotificationRepository) ListForUser(userID uint, limit int) ([]models.Notification, error) {
	var result []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			result = append(result, *n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockNotificationRepository) MarkAllRead(userID uint) error {
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (m *MockNotificationRepository) ClearAll(userID uint) error {
	for id, n := range m.notifications {
		if n.UserID == userID {
			delete(m.notifications, id)
		}
	}
	return nil
}
