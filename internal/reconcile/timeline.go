// Package reconcile implements the client-side timeline state machine that
// merges optimistic sends with confirmed and live data. It is transport-free:
// a client feeds it append responses, live events, and authoritative pages,
// and renders whatever Entries returns.
package reconcile

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an outgoing entry.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message is the server record shape the timeline reconciles against.
type Message struct {
	ID             uint
	ConversationID uint
	SenderID       uint
	ClientID       string
	Content        string
	ImageURL       string
	CreatedAt      time.Time
}

// Entry is one rendered row. TempID stays set after confirmation so a late
// append response can still find its row.
type Entry struct {
	Status  Status
	TempID  string
	Message Message
	Seen    bool
}

// Options tunes reconciliation behavior.
type Options struct {
	// MatchByContent enables the legacy sender+content fallback for live
	// events from peers that do not echo a client id. Off by default; it
	// can mis-match identical texts sent in quick succession.
	MatchByContent bool
	// ContentMatchWindow bounds how old a pending entry may be for the
	// content fallback to consider it. Zero means 5 seconds.
	ContentMatchWindow time.Duration
}

const defaultContentMatchWindow = 5 * time.Second

// Timeline holds one conversation's rendering state for one local user.
// Arrivals from the wire slot in ascending server-id order; pending and
// failed entries stay in submission order, and a confirmation never moves
// the entry it lands on.
type Timeline struct {
	mu        sync.Mutex
	selfID    uint
	opts      Options
	entries   []Entry
	serverIDs map[uint]struct{}
}

func NewTimeline(selfID uint, opts Options) *Timeline {
	if opts.ContentMatchWindow <= 0 {
		opts.ContentMatchWindow = defaultContentMatchWindow
	}
	return &Timeline{
		selfID:    selfID,
		opts:      opts,
		serverIDs: make(map[uint]struct{}),
	}
}

// Submit appends a pending entry for an optimistic send and returns the temp
// id the caller must use as the append's client_id.
func (t *Timeline) Submit(content, imageURL string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tempID := uuid.NewString()
	t.entries = append(t.entries, Entry{
		Status: StatusPending,
		TempID: tempID,
		Message: Message{
			SenderID:  t.selfID,
			ClientID:  tempID,
			Content:   content,
			ImageURL:  imageURL,
			CreatedAt: time.Now(),
		},
	})
	return tempID
}

// Confirm applies a durable-append response. The pending entry is replaced in
// place, preserving its list position. If a live event already delivered the
// same server record without a client id, the now-redundant pending entry is
// dropped instead. Returns whether rendering state changed.
func (t *Timeline) Confirm(tempID string, msg Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexByTempID(tempID)
	if idx < 0 {
		return false
	}
	if t.entries[idx].Status == StatusConfirmed {
		return false
	}
	if _, dup := t.serverIDs[msg.ID]; dup {
		t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
		return true
	}
	t.entries[idx].Status = StatusConfirmed
	t.entries[idx].Message = msg
	t.serverIDs[msg.ID] = struct{}{}
	return true
}

// Fail marks a pending entry as failed. Retry is user-triggered.
func (t *Timeline) Fail(tempID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexByTempID(tempID)
	if idx < 0 || t.entries[idx].Status != StatusPending {
		return false
	}
	t.entries[idx].Status = StatusFailed
	return true
}

// Retry re-arms a failed entry with a fresh temp id, preserving its position.
// The caller re-issues the append with the returned id.
func (t *Timeline) Retry(tempID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexByTempID(tempID)
	if idx < 0 || t.entries[idx].Status != StatusFailed {
		return "", false
	}
	fresh := uuid.NewString()
	t.entries[idx].Status = StatusPending
	t.entries[idx].TempID = fresh
	t.entries[idx].Message.ClientID = fresh
	t.entries[idx].Message.CreatedAt = time.Now()
	return fresh, true
}

// ApplyLive folds a message:new event into the timeline. Duplicate server ids
// are ignored. A live event carrying our client id confirms the matching
// pending entry in place, so the event racing ahead of the append response
// never renders twice. Returns whether rendering state changed.
func (t *Timeline) ApplyLive(msg Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.serverIDs[msg.ID]; dup {
		return false
	}

	if msg.ClientID != "" {
		if idx := t.indexByTempID(msg.ClientID); idx >= 0 && t.entries[idx].Status != StatusConfirmed {
			t.entries[idx].Status = StatusConfirmed
			t.entries[idx].Message = msg
			t.serverIDs[msg.ID] = struct{}{}
			return true
		}
	} else if t.opts.MatchByContent && msg.SenderID == t.selfID {
		if idx := t.contentMatch(msg); idx >= 0 {
			t.entries[idx].Status = StatusConfirmed
			t.entries[idx].Message = msg
			t.serverIDs[msg.ID] = struct{}{}
			return true
		}
	}

	t.insertConfirmed(msg)
	return true
}

// MergeAuthoritative merges an ascending page from the message log, repairing
// any gap after a disconnect. Existing confirmed entries keep their seen flag;
// pending and failed entries stay at the tail. Returns whether rendering
// state changed.
func (t *Timeline) MergeAuthoritative(msgs []Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	seen := make(map[uint]bool, len(t.entries))
	confirmed := make([]Entry, 0, len(t.entries)+len(msgs))
	tail := make([]Entry, 0)
	for _, e := range t.entries {
		if e.Status == StatusConfirmed {
			confirmed = append(confirmed, e)
		} else {
			tail = append(tail, e)
		}
	}
	for _, e := range confirmed {
		seen[e.Message.ID] = e.Seen
	}

	for _, msg := range msgs {
		if _, ok := t.serverIDs[msg.ID]; ok {
			continue
		}
		t.serverIDs[msg.ID] = struct{}{}
		confirmed = append(confirmed, Entry{Status: StatusConfirmed, Message: msg})
		changed = true
	}
	if !changed {
		return false
	}

	sortConfirmed(confirmed)
	for i := range confirmed {
		confirmed[i].Seen = seen[confirmed[i].Message.ID]
	}
	t.entries = append(confirmed, tail...)
	return true
}

// AdvanceReadCursor applies a read-cursor-advanced event: readerID confirmed
// seeing everything up to lastID, so our own confirmed entries at or below it
// flip to seen. Returns whether anything flipped.
func (t *Timeline) AdvanceReadCursor(readerID uint, lastID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if readerID == t.selfID {
		return false
	}
	changed := false
	for i := range t.entries {
		e := &t.entries[i]
		if e.Status != StatusConfirmed || e.Seen {
			continue
		}
		if e.Message.SenderID == t.selfID && e.Message.ID <= lastID {
			e.Seen = true
			changed = true
		}
	}
	return changed
}

// ShouldAutoScroll reports whether a new arrival should scroll the viewport:
// only when the user was already at or near the bottom, or the arrival is
// their own send.
func (t *Timeline) ShouldAutoScroll(nearBottom bool, msg Message) bool {
	return nearBottom || msg.SenderID == t.selfID
}

// Entries returns a snapshot of the rendering state.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Timeline) indexByTempID(tempID string) int {
	if tempID == "" {
		return -1
	}
	for i := range t.entries {
		if t.entries[i].TempID == tempID {
			return i
		}
	}
	return -1
}

// contentMatch finds the oldest pending entry with the same content submitted
// within the match window.
func (t *Timeline) contentMatch(msg Message) int {
	cutoff := time.Now().Add(-t.opts.ContentMatchWindow)
	for i := range t.entries {
		e := &t.entries[i]
		if e.Status != StatusPending {
			continue
		}
		if e.Message.Content == msg.Content && e.Message.CreatedAt.After(cutoff) {
			return i
		}
	}
	return -1
}

// insertConfirmed places msg among the confirmed entries in id order, ahead
// of the pending tail.
func (t *Timeline) insertConfirmed(msg Message) {
	t.serverIDs[msg.ID] = struct{}{}
	entry := Entry{Status: StatusConfirmed, Message: msg}

	pos := len(t.entries)
	for i := range t.entries {
		e := t.entries[i]
		if e.Status != StatusConfirmed || e.Message.ID > msg.ID {
			pos = i
			break
		}
	}
	t.entries = append(t.entries, Entry{})
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = entry
}

func sortConfirmed(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Message.ID < entries[j].Message.ID
	})
}
