package service

import (
	"sync"
	"testing"

	"github.com/backuo/backuo-backend/internal/apperr"
)

func newReadFixture(t *testing.T) (*ReadService, *MessageService, uint) {
	t.Helper()
	convRepo := NewMockConversationRepository()
	convID, _, err := convRepo.EnsureDirect(1, 2)
	if err != nil {
		t.Fatalf("fixture conversation: %v", err)
	}
	msgRepo := NewMockMessageRepository()
	readRepo := NewMockReadMarkRepository(msgRepo)
	return NewReadService(readRepo, convRepo, msgRepo), NewMessageService(msgRepo, convRepo), convID
}

func TestMarkConversationReadCatchesUp(t *testing.T) {
	reads, msgs, convID := newReadFixture(t)

	var lastID uint
	for i := 0; i < 3; i++ {
		msg, err := msgs.Append(convID, 2, AppendMessageInput{Content: "hi"})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		lastID = msg.ID
	}

	marked, latest, err := reads.MarkConversationRead(convID, 1)
	if err != nil {
		t.Fatalf("MarkConversationRead failed: %v", err)
	}
	if marked != 3 || latest != lastID {
		t.Errorf("MarkConversationRead = (%d, %d), want (3, %d)", marked, latest, lastID)
	}

	count, err := reads.UnreadCount(convID, 1)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("unread after catch-up = %d, want 0", count)
	}
}

func TestMarkConversationReadOnEmptyConversation(t *testing.T) {
	reads, _, convID := newReadFixture(t)

	marked, latest, err := reads.MarkConversationRead(convID, 1)
	if err != nil {
		t.Fatalf("MarkConversationRead failed: %v", err)
	}
	if marked != 0 || latest != 0 {
		t.Errorf("empty conversation should be a no-op, got (%d, %d)", marked, latest)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	reads, msgs, convID := newReadFixture(t)

	var lastID uint
	for i := 0; i < 3; i++ {
		msg, err := msgs.Append(convID, 2, AppendMessageInput{Content: "hi"})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		lastID = msg.ID
	}

	marked, err := reads.MarkRead(convID, 1, lastID)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if marked != 3 {
		t.Errorf("first MarkRead inserted %d marks, want 3", marked)
	}

	// Repeating, or regressing the cursor, changes nothing.
	for _, cursor := range []uint{lastID, lastID - 1, 1} {
		marked, err := reads.MarkRead(convID, 1, cursor)
		if err != nil {
			t.Fatalf("repeat MarkRead(%d) failed: %v", cursor, err)
		}
		if marked != 0 {
			t.Errorf("repeat MarkRead(%d) inserted %d marks, want 0", cursor, marked)
		}
	}
}

func TestMarkReadConcurrentSameCursor(t *testing.T) {
	reads, msgs, convID := newReadFixture(t)

	var lastID uint
	for i := 0; i < 5; i++ {
		msg, err := msgs.Append(convID, 2, AppendMessageInput{Content: "hi"})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		lastID = msg.ID
	}

	// Two overlapping marks of the same cursor must both succeed and
	// insert each mark exactly once between them.
	var wg sync.WaitGroup
	results := make([]int64, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = reads.MarkRead(convID, 1, lastID)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent MarkRead %d failed: %v", i, err)
		}
	}
	if total := results[0] + results[1]; total != 5 {
		t.Errorf("concurrent marks inserted %d total, want 5", total)
	}

	count, err := reads.UnreadCount(convID, 1)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("unread after concurrent marks = %d, want 0", count)
	}
}

func TestUnreadExcludesOwnMessages(t *testing.T) {
	reads, msgs, convID := newReadFixture(t)

	if _, err := msgs.Append(convID, 1, AppendMessageInput{Content: "mine"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := msgs.Append(convID, 2, AppendMessageInput{Content: "theirs"}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	count, err := reads.UnreadCount(convID, 1)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("unread for user 1 = %d, want 2 (own message excluded)", count)
	}

	count, err = reads.UnreadCount(convID, 2)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("unread for user 2 = %d, want 1", count)
	}
}

func TestMarkReadAdvancesCursorPartially(t *testing.T) {
	reads, msgs, convID := newReadFixture(t)

	var ids []uint
	for i := 0; i < 4; i++ {
		msg, err := msgs.Append(convID, 2, AppendMessageInput{Content: "hi"})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	if _, err := reads.MarkRead(convID, 1, ids[1]); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	count, err := reads.UnreadCount(convID, 1)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("unread after partial cursor = %d, want 2", count)
	}
}

func TestMarkReadValidation(t *testing.T) {
	reads, _, convID := newReadFixture(t)

	if _, err := reads.MarkRead(convID, 1, 0); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("zero last_message_id should be a validation error, got %v", err)
	}
	if _, err := reads.MarkRead(convID, 99, 1); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("non-member markRead should be forbidden, got %v", err)
	}
}
