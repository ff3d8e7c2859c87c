package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/store"
)

// usageTTL keeps stale per-day usage counters from accumulating in the
// store. Two days covers any clock skew around midnight.
const usageTTL = 48 * time.Hour

// Manager tracks one session slot per user id over a shared store. It
// also remembers which user is current: the last to authenticate or
// resume, mirrored to the persisted user record so a restarted client
// can pick its session back up. State for different users never mixes;
// every id has its own slot and its own store keys.
type Manager struct {
	mu sync.Mutex

	kv store.KV

	// now is injectable so tests can cross midnight.
	now func() time.Time

	sessions  map[string]*sessionState
	currentID string
}

// sessionState is the in-memory mirror of one user's persisted
// session. Its mutex covers every field below; an operation holds it
// from first read to final persist, so concurrent requests for the
// same user serialize and requests for different users never touch
// each other's slot.
type sessionState struct {
	mu sync.Mutex

	user         model.User
	loaded       bool
	usage        int
	usageDay     string
	conversation []model.Message
	memory       []model.MemoryEntry
	lastMemoryID int64
}

// UserSession is a handle bound to one user's slot. Handlers obtain
// one from Resume per request; everything invoked on it reads and
// writes only that user's state and store keys, regardless of which
// user is current by the time the operation runs.
type UserSession struct {
	m  *Manager
	st *sessionState
}

// New builds a Manager over the given store.
func New(kv store.KV) *Manager {
	return &Manager{
		kv:       kv,
		now:      time.Now,
		sessions: make(map[string]*sessionState),
	}
}

// Authenticate makes the user current with a fresh slot, persisting
// the user record. Any earlier in-memory state for that id is
// discarded, not merged; the persisted per-user keys are untouched.
// A candidate without an id is silently ignored.
func (m *Manager) Authenticate(ctx context.Context, user model.User) error {
	if user.ID == "" {
		return nil
	}
	st := &sessionState{user: user, loaded: true, usageDay: m.today()}
	m.mu.Lock()
	m.sessions[user.ID] = st
	m.currentID = user.ID
	m.mu.Unlock()

	s := &UserSession{m: m, st: st}
	st.mu.Lock()
	defer st.mu.Unlock()
	return s.persistUser(ctx)
}

// RestoreSession reads the persisted user record written by the last
// Authenticate or Resume. If present and well-formed that user becomes
// current and the dependent state (usage, conversation, memory) is
// loaded; if absent, ErrNotAuthenticated tells the caller to present a
// login prompt. A corrupt record is treated as absent.
func (m *Manager) RestoreSession(ctx context.Context) (model.User, error) {
	raw, found, err := m.kv.Get(ctx, store.UserRecordKey())
	if err != nil {
		return model.User{}, fmt.Errorf("read user record: %w", err)
	}
	if !found {
		return model.User{}, ErrNotAuthenticated
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		log.Printf("session: corrupt user record, treating as absent: %v", err)
		return model.User{}, ErrNotAuthenticated
	}
	if err := u.Validate(); err != nil {
		log.Printf("session: rejecting user record: %v", err)
		return model.User{}, ErrNotAuthenticated
	}

	s := m.slotFor(u.ID)
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.user = u
	s.load(ctx)
	s.st.loaded = true
	return u, nil
}

// Resume returns a handle bound to the user's session, loading the
// persisted state the first time an id is seen and marking the user
// current. An existing slot keeps its state; only the account record
// on it is refreshed, so tier changes take effect on the next request.
func (m *Manager) Resume(ctx context.Context, user model.User) (*UserSession, error) {
	if user.ID == "" {
		return nil, ErrNotAuthenticated
	}
	m.mu.Lock()
	st, ok := m.sessions[user.ID]
	if !ok {
		st = &sessionState{}
		m.sessions[user.ID] = st
	}
	switching := m.currentID != user.ID
	m.currentID = user.ID
	m.mu.Unlock()

	s := &UserSession{m: m, st: st}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.user = user
	if !st.loaded {
		s.load(ctx)
		st.loaded = true
	}
	if switching {
		return s, s.persistUser(ctx)
	}
	return s, nil
}

// SignOut clears the persisted user record and drops the current
// user's slot. The user's conversation, memory and usage keys survive
// for the next sign-in. Confirmation of this destructive action is the
// caller's concern.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	id := m.currentID
	m.mu.Unlock()
	if id == "" {
		return ErrNotAuthenticated
	}
	if err := m.kv.Delete(ctx, store.UserRecordKey()); err != nil {
		return fmt.Errorf("clear user record: %w", err)
	}
	m.mu.Lock()
	delete(m.sessions, id)
	if m.currentID == id {
		m.currentID = ""
	}
	m.mu.Unlock()
	return nil
}

// Current returns the current user, if any.
func (m *Manager) Current() (model.User, bool) {
	m.mu.Lock()
	st := m.sessions[m.currentID]
	m.mu.Unlock()
	if st == nil {
		return model.User{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.user, true
}

// slotFor returns a handle for the id, creating the slot if needed and
// marking the user current.
func (m *Manager) slotFor(id string) *UserSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		st = &sessionState{}
		m.sessions[id] = st
	}
	m.currentID = id
	return &UserSession{m: m, st: st}
}

// currentSession binds a handle to the current user's slot, or reports
// ErrNotAuthenticated when nobody is signed in.
func (m *Manager) currentSession() (*UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentID == "" {
		return nil, ErrNotAuthenticated
	}
	st := m.sessions[m.currentID]
	if st == nil {
		return nil, ErrNotAuthenticated
	}
	return &UserSession{m: m, st: st}, nil
}

// today derives the local calendar date used to key usage counters.
func (m *Manager) today() string {
	return m.now().Format("2006-01-02")
}

// User returns the account record the handle is bound to.
func (s *UserSession) User() model.User {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.user
}

// load hydrates usage, conversation and memory for the bound user.
// Malformed persisted values read as empty: the store is a cache of
// session state, not a system of record, so corruption degrades to a
// fresh session instead of an error. Callers hold st.mu.
func (s *UserSession) load(ctx context.Context) {
	s.st.usage = s.readUsage(ctx)
	s.st.usageDay = s.m.today()
	s.st.conversation = s.readConversation(ctx)
	s.st.memory = s.readMemory(ctx)
	s.st.lastMemoryID = 0
	for _, e := range s.st.memory {
		if e.ID > s.st.lastMemoryID {
			s.st.lastMemoryID = e.ID
		}
	}
}

func (s *UserSession) readConversation(ctx context.Context) []model.Message {
	raw, found, err := s.m.kv.Get(ctx, store.ConversationKey(s.st.user.ID))
	if err != nil || !found {
		if err != nil {
			log.Printf("session: load conversation for %s: %v", s.st.user.ID, err)
		}
		return nil
	}
	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		log.Printf("session: corrupt conversation for %s, starting empty: %v", s.st.user.ID, err)
		return nil
	}
	for _, msg := range msgs {
		if _, err := model.ParseRole(string(msg.Role)); err != nil {
			log.Printf("session: rejecting conversation for %s: %v", s.st.user.ID, err)
			return nil
		}
	}
	return msgs
}

func (s *UserSession) readMemory(ctx context.Context) []model.MemoryEntry {
	raw, found, err := s.m.kv.Get(ctx, store.MemoryKey(s.st.user.ID))
	if err != nil || !found {
		if err != nil {
			log.Printf("session: load memory for %s: %v", s.st.user.ID, err)
		}
		return nil
	}
	var entries []model.MemoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Printf("session: corrupt memory for %s, starting empty: %v", s.st.user.ID, err)
		return nil
	}
	for _, e := range entries {
		if _, err := model.ParseMemoryKind(string(e.Kind)); err != nil {
			log.Printf("session: rejecting memory for %s: %v", s.st.user.ID, err)
			return nil
		}
	}
	return entries
}

func (s *UserSession) persistUser(ctx context.Context) error {
	b, err := json.Marshal(s.st.user)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	if err := s.m.kv.Set(ctx, store.UserRecordKey(), string(b)); err != nil {
		return fmt.Errorf("persist user record: %w", err)
	}
	return nil
}

func (s *UserSession) persistConversation(ctx context.Context) error {
	b, err := json.Marshal(s.st.conversation)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := s.m.kv.Set(ctx, store.ConversationKey(s.st.user.ID), string(b)); err != nil {
		return fmt.Errorf("persist conversation: %w", err)
	}
	return nil
}

func (s *UserSession) persistMemory(ctx context.Context) error {
	b, err := json.Marshal(s.st.memory)
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}
	if err := s.m.kv.Set(ctx, store.MemoryKey(s.st.user.ID), string(b)); err != nil {
		return fmt.Errorf("persist memory: %w", err)
	}
	return nil
}
