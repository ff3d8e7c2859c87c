package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/store"
)

// memKV is an in-memory stand-in for the Redis store. Safe for
// concurrent use, like the real client.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (s *memKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memKV) SetTTL(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memKV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func testUser(id string, tier model.Tier) model.User {
	return model.User{
		ID:        id,
		Name:      "Test User",
		Email:     id + "@example.com",
		Provider:  model.ProviderEmail,
		Tier:      tier,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// newTestManager returns a manager with a controllable clock. Advance
// the returned time pointer to move the calendar.
func newTestManager(kv store.KV) (*Manager, *time.Time) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	m := New(kv)
	m.SetClock(func() time.Time { return now })
	return m, &now
}

func TestQuotaExhaustionAndRollover(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(newMemKV())

	if err := m.Authenticate(ctx, testUser("u1", model.TierFree)); err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}

	for i := 0; i < 3; i++ {
		ok, err := m.CanGenerate(ctx)
		if err != nil || !ok {
			t.Fatalf("CanGenerate #%d = (%v,%v), want (true,nil)", i+1, ok, err)
		}
		*now = now.Add(time.Minute)
		if err := m.RecordGeneration(ctx); err != nil {
			t.Fatalf("RecordGeneration #%d error = %v", i+1, err)
		}
	}

	if ok, _ := m.CanGenerate(ctx); ok {
		t.Fatalf("CanGenerate after limit should be false")
	}
	if rem, _ := m.RemainingQuota(ctx); rem != 0 {
		t.Fatalf("RemainingQuota after limit = %d, want 0", rem)
	}
	if err := m.RecordGeneration(ctx); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("RecordGeneration past limit error = %v, want ErrQuotaExceeded", err)
	}
	if used, _ := m.UsedToday(ctx); used != 3 {
		t.Fatalf("UsedToday after rejected call = %d, want 3", used)
	}

	// Crossing midnight re-derives the counter from the new date key.
	*now = now.AddDate(0, 0, 1)
	if ok, _ := m.CanGenerate(ctx); !ok {
		t.Fatalf("CanGenerate after rollover should be true")
	}
	if used, _ := m.UsedToday(ctx); used != 0 {
		t.Fatalf("UsedToday after rollover = %d, want 0", used)
	}
	if rem, _ := m.RemainingQuota(ctx); rem != 3 {
		t.Fatalf("RemainingQuota after rollover = %d, want 3", rem)
	}
}

func TestUnlimitedTier(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(newMemKV())

	if err := m.Authenticate(ctx, testUser("ent", model.TierEnterprise)); err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	if rem, err := m.RemainingQuota(ctx); err != nil || rem != model.UnlimitedDaily {
		t.Fatalf("RemainingQuota = (%d,%v), want (%d,nil)", rem, err, model.UnlimitedDaily)
	}
	for i := 0; i < 50; i++ {
		*now = now.Add(time.Second)
		if err := m.RecordGeneration(ctx); err != nil {
			t.Fatalf("RecordGeneration #%d on unlimited tier error = %v", i+1, err)
		}
	}
	if ok, _ := m.CanGenerate(ctx); !ok {
		t.Fatalf("CanGenerate on unlimited tier should always be true")
	}
}

func TestMemoryLogFIFOEviction(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(newMemKV())

	if err := m.Authenticate(ctx, testUser("u1", model.TierCreator)); err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	for i := 1; i <= 150; i++ {
		*now = now.Add(time.Millisecond)
		if err := m.RecordMemory(ctx, fmt.Sprintf("entry %d", i), model.MemoryConversation); err != nil {
			t.Fatalf("RecordMemory #%d error = %v", i, err)
		}
	}

	recent, err := m.RecentMemory(model.MemoryCapacity + 50)
	if err != nil {
		t.Fatalf("RecentMemory error = %v", err)
	}
	if len(recent) != model.MemoryCapacity {
		t.Fatalf("memory length = %d, want %d", len(recent), model.MemoryCapacity)
	}
	// Most recent first: entry 150 down to entry 51.
	if recent[0].Content != "entry 150" || recent[len(recent)-1].Content != "entry 51" {
		t.Fatalf("eviction kept wrong window: first=%q last=%q", recent[0].Content, recent[len(recent)-1].Content)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ID >= recent[i-1].ID {
			t.Fatalf("memory ids not monotonic: %d then %d", recent[i-1].ID, recent[i].ID)
		}
	}
}

func TestMemoryByKindPreservesOrder(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(newMemKV())

	if err := m.Authenticate(ctx, testUser("u1", model.TierFree)); err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	kinds := []model.MemoryKind{
		model.MemoryUserQuery,
		model.MemoryContentGeneration,
		model.MemoryContentCopy,
		model.MemoryContentGeneration,
	}
	for i, k := range kinds {
		*now = now.Add(time.Millisecond)
		if err := m.RecordMemory(ctx, fmt.Sprintf("e%d", i), k); err != nil {
			t.Fatalf("RecordMemory error = %v", err)
		}
	}
	gens, err := m.MemoryByKind(model.MemoryContentGeneration)
	if err != nil {
		t.Fatalf("MemoryByKind error = %v", err)
	}
	if len(gens) != 2 || gens[0].Content != "e1" || gens[1].Content != "e3" {
		t.Fatalf("MemoryByKind = %+v, want e1 then e3", gens)
	}
}

func TestConversationOrderPreserved(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(newMemKV())

	if err := m.Authenticate(ctx, testUser("u1", model.TierFree)); err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	m1 := model.Message{Role: model.RoleUser, Content: "ideas about coffee"}
	m2 := model.Message{Role: model.RoleAssistant, Content: "here are six"}
	if err := m.AppendMessage(ctx, m1); err != nil {
		t.Fatalf("AppendMessage error = %v", err)
	}
	if err := m.AppendMessage(ctx, m2); err != nil {
		t.Fatalf("AppendMessage error = %v", err)
	}

	got, err := m.Restore()
	if err != nil {
		t.Fatalf("Restore error = %v", err)
	}
	if len(got) != 2 || got[0].Content != m1.Content || got[1].Content != m2.Content {
		t.Fatalf("Restore = %+v, want [m1 m2] in order", got)
	}
	// Restartable: a second call yields the same sequence.
	again, _ := m.Restore()
	if len(again) != 2 {
		t.Fatalf("second Restore length = %d, want 2", len(again))
	}
}

func TestAuthenticateSwitchDiscardsState(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	m, now := newTestManager(kv)

	alice := testUser("alice", model.TierFree)
	bob := testUser("bob", model.TierFree)

	if err := m.Authenticate(ctx, alice); err != nil {
		t.Fatalf("Authenticate(alice) error = %v", err)
	}
	if err := m.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendMessage error = %v", err)
	}
	if err := m.RecordMemory(ctx, "alice asked", model.MemoryUserQuery); err != nil {
		t.Fatalf("RecordMemory error = %v", err)
	}
	if err := m.RecordGeneration(ctx); err != nil {
		t.Fatalf("RecordGeneration error = %v", err)
	}

	// Switching identity discards alice's in-memory state entirely.
	*now = now.Add(time.Minute)
	if err := m.Authenticate(ctx, bob); err != nil {
		t.Fatalf("Authenticate(bob) error = %v", err)
	}
	if msgs, _ := m.Restore(); len(msgs) != 0 {
		t.Fatalf("bob sees %d messages, want 0", len(msgs))
	}
	if mem, _ := m.RecentMemory(10); len(mem) != 0 {
		t.Fatalf("bob sees %d memory entries, want 0", len(mem))
	}
	if used, _ := m.UsedToday(ctx); used != 0 {
		t.Fatalf("bob usage = %d, want 0", used)
	}

	// Alice's persisted state reloads unchanged.
	if _, err := m.Resume(ctx, alice); err != nil {
		t.Fatalf("Resume(alice) error = %v", err)
	}
	msgs, _ := m.Restore()
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("alice conversation after resume = %+v", msgs)
	}
	mem, _ := m.RecentMemory(10)
	if len(mem) != 1 || mem[0].Content != "alice asked" {
		t.Fatalf("alice memory after resume = %+v", mem)
	}
	if used, _ := m.UsedToday(ctx); used != 1 {
		t.Fatalf("alice usage after resume = %d, want 1", used)
	}
}

func TestRestoreSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	m, now := newTestManager(kv)

	u := testUser("u1", model.TierBusiness)
	if err := m.Authenticate(ctx, u); err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	for i := 0; i < 5; i++ {
		*now = now.Add(time.Millisecond)
		if err := m.RecordMemory(ctx, fmt.Sprintf("note %d", i), model.MemoryContentGeneration); err != nil {
			t.Fatalf("RecordMemory error = %v", err)
		}
	}
	want, _ := m.RecentMemory(5)

	// A fresh manager over the same store restores the identical
	// session: same user, same ordered memory sequence.
	m2 := New(kv)
	m2.SetClock(func() time.Time { return *now })
	got, err := m2.RestoreSession(ctx)
	if err != nil {
		t.Fatalf("RestoreSession error = %v", err)
	}
	if got.ID != u.ID || got.Tier != u.Tier {
		t.Fatalf("RestoreSession user = %+v, want %+v", got, u)
	}
	mem, _ := m2.RecentMemory(5)
	if len(mem) != len(want) {
		t.Fatalf("restored memory length = %d, want %d", len(mem), len(want))
	}
	for i := range mem {
		if mem[i].ID != want[i].ID || mem[i].Content != want[i].Content ||
			mem[i].Kind != want[i].Kind || mem[i].UserID != want[i].UserID ||
			!mem[i].Timestamp.Equal(want[i].Timestamp) {
			t.Fatalf("restored memory[%d] = %+v, want %+v", i, mem[i], want[i])
		}
	}
}

func TestRestoreSessionAbsent(t *testing.T) {
	m, _ := newTestManager(newMemKV())
	if _, err := m.RestoreSession(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("RestoreSession on empty store error = %v, want ErrNotAuthenticated", err)
	}
}

func TestCorruptRecordsFailOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("user record", func(t *testing.T) {
		kv := newMemKV()
		kv.data[store.UserRecordKey()] = "{not json"
		m, _ := newTestManager(kv)
		if _, err := m.RestoreSession(ctx); !errors.Is(err, ErrNotAuthenticated) {
			t.Fatalf("corrupt user record error = %v, want ErrNotAuthenticated", err)
		}
	})

	t.Run("unknown tier rejected", func(t *testing.T) {
		kv := newMemKV()
		kv.data[store.UserRecordKey()] = `{"id":"u1","provider":"email","tier":"platinum","created_at":"2026-01-01T00:00:00Z"}`
		m, _ := newTestManager(kv)
		if _, err := m.RestoreSession(ctx); !errors.Is(err, ErrNotAuthenticated) {
			t.Fatalf("unknown tier error = %v, want ErrNotAuthenticated", err)
		}
	})

	t.Run("conversation", func(t *testing.T) {
		kv := newMemKV()
		kv.data[store.ConversationKey("u1")] = "][" // corrupt
		m, _ := newTestManager(kv)
		if _, err := m.Resume(ctx, testUser("u1", model.TierFree)); err != nil {
			t.Fatalf("Resume error = %v", err)
		}
		if msgs, _ := m.Restore(); len(msgs) != 0 {
			t.Fatalf("corrupt conversation should read as empty, got %d messages", len(msgs))
		}
	})

	t.Run("memory with unknown kind", func(t *testing.T) {
		kv := newMemKV()
		kv.data[store.MemoryKey("u1")] = `[{"id":1,"content":"x","kind":"telepathy","timestamp":"2026-01-01T00:00:00Z","user_id":"u1"}]`
		m, _ := newTestManager(kv)
		if _, err := m.Resume(ctx, testUser("u1", model.TierFree)); err != nil {
			t.Fatalf("Resume error = %v", err)
		}
		if mem, _ := m.RecentMemory(10); len(mem) != 0 {
			t.Fatalf("memory with unknown kind should read as empty, got %d entries", len(mem))
		}
	})

	t.Run("usage", func(t *testing.T) {
		kv := newMemKV()
		m, now := newTestManager(kv)
		kv.data[store.UsageKey("u1", *now)] = "lots"
		if _, err := m.Resume(ctx, testUser("u1", model.TierFree)); err != nil {
			t.Fatalf("Resume error = %v", err)
		}
		if used, _ := m.UsedToday(ctx); used != 0 {
			t.Fatalf("corrupt usage should read as 0, got %d", used)
		}
	})
}

func TestUnauthenticatedOperations(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(newMemKV())

	if _, err := m.CanGenerate(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("CanGenerate error = %v, want ErrNotAuthenticated", err)
	}
	if err := m.RecordGeneration(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("RecordGeneration error = %v, want ErrNotAuthenticated", err)
	}
	if err := m.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "x"}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("AppendMessage error = %v, want ErrNotAuthenticated", err)
	}
	if err := m.RecordMemory(ctx, "x", model.MemoryUserQuery); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("RecordMemory error = %v, want ErrNotAuthenticated", err)
	}
	if err := m.SignOut(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("SignOut error = %v, want ErrNotAuthenticated", err)
	}
}

func TestAuthenticateWithoutIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(newMemKV())

	if err := m.Authenticate(ctx, model.User{Name: "nobody"}); err != nil {
		t.Fatalf("Authenticate without id error = %v, want nil no-op", err)
	}
	if _, ok := m.Current(); ok {
		t.Fatalf("Authenticate without id must not set a current user")
	}
}

func TestSignOutClearsSession(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	m, _ := newTestManager(kv)

	if err := m.Authenticate(ctx, testUser("u1", model.TierFree)); err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	if err := m.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendMessage error = %v", err)
	}
	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("SignOut error = %v", err)
	}
	if _, ok := m.Current(); ok {
		t.Fatalf("SignOut left a current user")
	}
	if _, found := kv.data[store.UserRecordKey()]; found {
		t.Fatalf("SignOut left the persisted user record")
	}
	// Per-user state survives for the next sign-in.
	if _, found := kv.data[store.ConversationKey("u1")]; !found {
		t.Fatalf("SignOut should not delete the conversation log")
	}
}

func TestExportPayload(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(newMemKV())

	u := testUser("u1", model.TierCreator)
	if err := m.Authenticate(ctx, u); err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	if err := m.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "hello"}); err != nil {
		t.Fatalf("AppendMessage error = %v", err)
	}
	if err := m.RecordMemory(ctx, "asked hello", model.MemoryUserQuery); err != nil {
		t.Fatalf("RecordMemory error = %v", err)
	}

	got, err := m.Export(ctx)
	if err != nil {
		t.Fatalf("Export error = %v", err)
	}
	if got.User.ID != u.ID || len(got.Conversations) != 1 || len(got.Memory) != 1 {
		t.Fatalf("Export = %+v, want 1 message and 1 memory entry for %s", got, u.ID)
	}
	if !got.ExportDate.Equal(*now) {
		t.Fatalf("ExportDate = %v, want %v", got.ExportDate, *now)
	}
}

// Two in-flight requests for different users must never write through
// each other's handle: a message sent on one user's session lands only
// under that user's keys and counts only against that user's quota,
// even when the other user resumed in between.
func TestInterleavedSubjectsKeepStateSeparate(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	m, _ := newTestManager(kv)

	alice := testUser("alice", model.TierFree)
	bob := testUser("bob", model.TierFree)

	aliceSess, err := m.Resume(ctx, alice)
	if err != nil {
		t.Fatalf("Resume(alice) error = %v", err)
	}
	bobSess, err := m.Resume(ctx, bob)
	if err != nil {
		t.Fatalf("Resume(bob) error = %v", err)
	}

	// Alice's request continues after bob became current.
	if err := aliceSess.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "alice private question"}); err != nil {
		t.Fatalf("AppendMessage error = %v", err)
	}
	if err := aliceSess.RecordGeneration(ctx); err != nil {
		t.Fatalf("RecordGeneration error = %v", err)
	}

	raw, found, _ := kv.Get(ctx, store.ConversationKey("alice"))
	if !found {
		t.Fatalf("alice's conversation was never persisted")
	}
	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		t.Fatalf("unmarshal alice conversation: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "alice private question" {
		t.Fatalf("alice conversation = %+v", msgs)
	}
	if raw, found, _ := kv.Get(ctx, store.ConversationKey("bob")); found && raw != "null" && raw != "[]" {
		t.Fatalf("alice's message landed in bob's conversation: %s", raw)
	}

	if got, _ := bobSess.Restore(); len(got) != 0 {
		t.Fatalf("bob sees %d messages, want 0", len(got))
	}
	if used, _ := bobSess.UsedToday(ctx); used != 0 {
		t.Fatalf("bob usage = %d, want 0", used)
	}
	if used, _ := aliceSess.UsedToday(ctx); used != 1 {
		t.Fatalf("alice usage = %d, want 1", used)
	}
}

func TestConcurrentRequestsStayScoped(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	m, _ := newTestManager(kv)

	const perUser = 20
	users := []model.User{
		testUser("alice", model.TierEnterprise),
		testUser("bob", model.TierEnterprise),
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u model.User) {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				s, err := m.Resume(ctx, u)
				if err != nil {
					t.Errorf("Resume(%s) error = %v", u.ID, err)
					return
				}
				if err := s.AppendMessage(ctx, model.Message{Role: model.RoleUser, Content: "from " + u.ID}); err != nil {
					t.Errorf("AppendMessage(%s) error = %v", u.ID, err)
					return
				}
				if err := s.RecordGeneration(ctx); err != nil {
					t.Errorf("RecordGeneration(%s) error = %v", u.ID, err)
					return
				}
			}
		}(u)
	}
	wg.Wait()

	for _, u := range users {
		s, err := m.Resume(ctx, u)
		if err != nil {
			t.Fatalf("Resume(%s) error = %v", u.ID, err)
		}
		msgs, _ := s.Restore()
		if len(msgs) != perUser {
			t.Fatalf("%s has %d messages, want %d", u.ID, len(msgs), perUser)
		}
		for _, msg := range msgs {
			if msg.Content != "from "+u.ID {
				t.Fatalf("%s's log contains %q", u.ID, msg.Content)
			}
		}
		if used, _ := s.UsedToday(ctx); used != perUser {
			t.Fatalf("%s usage = %d, want %d", u.ID, used, perUser)
		}
	}
}
