package support

import (
	"sync"
	"time"
)

// Stage is the input the conversation currently expects from a user.
type Stage int

const (
	StageIdle Stage = iota
	StageAwaitingEmail
	StageAwaitingQuestion
	StageAwaitingMailingBody
	StageAwaitingMailingImage
)

// MessageRef is a handle to a previously sent chat message, kept so a
// placeholder can be deleted once the real answer arrives.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

type session struct {
	stage      Stage
	category   string
	email      string
	pending    MessageRef
	hasPending bool
	lastSeen   time.Time
}

// Sessions tracks ephemeral per-user conversational state. State lives only
// in process memory: a restart degrades UX (the user re-enters their email,
// the durable store remains the source of truth) but loses no data.
//
// Entries untouched for longer than ttl are dropped during a sweep that runs
// opportunistically on access, which keeps memory bounded without a janitor
// goroutine.
type Sessions struct {
	mu        sync.Mutex
	ttl       time.Duration
	byUser    map[int64]*session
	lastSweep time.Time
}

const DefaultSessionTTL = 30 * time.Minute

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		ttl:       ttl,
		byUser:    make(map[int64]*session),
		lastSweep: time.Now(),
	}
}

// get returns the user's session, creating it on first contact.
// Callers must hold s.mu.
func (s *Sessions) get(userID int64) *session {
	now := time.Now()
	if now.Sub(s.lastSweep) > s.ttl {
		for id, sess := range s.byUser {
			if now.Sub(sess.lastSeen) > s.ttl {
				delete(s.byUser, id)
			}
		}
		s.lastSweep = now
	}

	sess, ok := s.byUser[userID]
	if !ok {
		sess = &session{}
		s.byUser[userID] = sess
	}
	sess.lastSeen = now
	return sess
}

func (s *Sessions) Stage(userID int64) Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID).stage
}

func (s *Sessions) SetStage(userID int64, stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(userID).stage = stage
}

func (s *Sessions) Category(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID).category
}

func (s *Sessions) SetCategory(userID int64, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(userID).category = category
}

func (s *Sessions) Email(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID).email
}

func (s *Sessions) SetEmail(userID int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(userID).email = email
}

func (s *Sessions) SetPending(userID int64, ref MessageRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(userID)
	sess.pending = ref
	sess.hasPending = true
}

// TakePending returns and clears the user's pending message handle.
func (s *Sessions) TakePending(userID int64) (MessageRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(userID)
	if !sess.hasPending {
		return MessageRef{}, false
	}
	ref := sess.pending
	sess.pending = MessageRef{}
	sess.hasPending = false
	return ref, true
}
