package session

import (
	"context"
	"log"
	"strconv"

	"github.com/tyler2w2/social-media-ai/internal/model"
	"github.com/tyler2w2/social-media-ai/internal/store"
)

// The usage meter counts generations against the tier's daily limit.
// Counters are keyed by user id and local calendar date, so crossing
// midnight starts a fresh counter at zero with no reset step: the date
// is derived at the moment of read.

// RemainingQuota returns how many generations are left today, or
// model.UnlimitedDaily for an unbounded tier.
func (s *UserSession) RemainingQuota(ctx context.Context) (int, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	s.rollUsage(ctx)
	limit := s.st.user.Tier.Info().DailyLimit
	if limit == model.UnlimitedDaily {
		return model.UnlimitedDaily, nil
	}
	if s.st.usage >= limit {
		return 0, nil
	}
	return limit - s.st.usage, nil
}

// UsedToday returns today's generation count.
func (s *UserSession) UsedToday(ctx context.Context) (int, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	s.rollUsage(ctx)
	return s.st.usage, nil
}

// CanGenerate reports whether another generation fits in today's
// quota.
func (s *UserSession) CanGenerate(ctx context.Context) (bool, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	s.rollUsage(ctx)
	limit := s.st.user.Tier.Info().DailyLimit
	if limit == model.UnlimitedDaily {
		return true, nil
	}
	return s.st.usage < limit, nil
}

// RecordGeneration increments today's counter and persists it under
// the bound user's day key. Invoking it past the limit returns
// ErrQuotaExceeded; callers are expected to have checked CanGenerate.
func (s *UserSession) RecordGeneration(ctx context.Context) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	s.rollUsage(ctx)
	limit := s.st.user.Tier.Info().DailyLimit
	if limit != model.UnlimitedDaily && s.st.usage >= limit {
		return ErrQuotaExceeded
	}
	s.st.usage++
	key := store.UsageKey(s.st.user.ID, s.m.now())
	if err := s.m.kv.SetTTL(ctx, key, strconv.Itoa(s.st.usage), usageTTL); err != nil {
		log.Printf("session: persist usage for %s: %v", s.st.user.ID, err)
	}
	return nil
}

// rollUsage re-derives the usage counter when the calendar date has
// changed since it was loaded. Callers hold st.mu.
func (s *UserSession) rollUsage(ctx context.Context) {
	if today := s.m.today(); today != s.st.usageDay {
		s.st.usage = s.readUsage(ctx)
		s.st.usageDay = today
	}
}

// readUsage loads today's count from the store; a missing or
// malformed value reads as zero. Callers hold st.mu.
func (s *UserSession) readUsage(ctx context.Context) int {
	raw, found, err := s.m.kv.Get(ctx, store.UsageKey(s.st.user.ID, s.m.now()))
	if err != nil || !found {
		if err != nil {
			log.Printf("session: load usage for %s: %v", s.st.user.ID, err)
		}
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("session: corrupt usage count %q for %s, resetting", raw, s.st.user.ID)
		return 0
	}
	return n
}

// RemainingQuota reports the current user's remaining generations.
func (m *Manager) RemainingQuota(ctx context.Context) (int, error) {
	s, err := m.currentSession()
	if err != nil {
		return 0, err
	}
	return s.RemainingQuota(ctx)
}

// UsedToday reports the current user's count for today.
func (m *Manager) UsedToday(ctx context.Context) (int, error) {
	s, err := m.currentSession()
	if err != nil {
		return 0, err
	}
	return s.UsedToday(ctx)
}

// CanGenerate reports whether the current user has quota left today.
func (m *Manager) CanGenerate(ctx context.Context) (bool, error) {
	s, err := m.currentSession()
	if err != nil {
		return false, err
	}
	return s.CanGenerate(ctx)
}

// RecordGeneration counts a generation against the current user.
func (m *Manager) RecordGeneration(ctx context.Context) error {
	s, err := m.currentSession()
	if err != nil {
		return err
	}
	return s.RecordGeneration(ctx)
}
