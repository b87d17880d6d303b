package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

// MemoryStore keeps every gateway collection in a process-local go-cache.
// Flows are stored encoded so reads go through the same codec and
// validation as the durable stores.
type MemoryStore struct {
	mu         sync.Mutex
	cache      *cache.Cache
	staleAfter time.Duration
	now        func() time.Time
}

// NewMemoryStore creates a store whose conversation logs expire after ttl
// (0 keeps them forever). Flows older than staleAfter are cancelled on read
// when staleAfter > 0.
func NewMemoryStore(ttl, staleAfter time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryStore{
		cache:      cache.New(ttl, 10*time.Minute),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func flowKey(id string) string          { return "flow:" + id }
func userFlowsKey(userID string) string { return "user:" + userID + ":flows" }
func recordsKey(userID string) string   { return "records:" + userID }
func moodsKey(userID string) string     { return "moods:" + userID }
func sessionKey(sessionID string) string {
	return "conversation:" + sessionID
}

// ===================== flows =====================

func (s *MemoryStore) CreateFlow(ctx context.Context, f *model.FlowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.pendingLocked(f.UserID)
	if err != nil {
		return err
	}
	if len(pending) > 0 && !f.Status.Terminal() {
		return model.ErrPendingFlowExists
	}
	b, err := model.EncodeFlow(f)
	if err != nil {
		return err
	}
	s.cache.Set(flowKey(f.ID), b, cache.NoExpiration)

	ids, _ := s.idsLocked(f.UserID)
	s.cache.Set(userFlowsKey(f.UserID), append(ids, f.ID), cache.NoExpiration)
	return nil
}

func (s *MemoryStore) UpdateFlow(ctx context.Context, f *model.FlowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.Get(flowKey(f.ID)); !ok {
		return fmt.Errorf("update flow %s: %w", f.ID, model.ErrFlowNotFound)
	}
	b, err := model.EncodeFlow(f)
	if err != nil {
		return err
	}
	s.cache.Set(flowKey(f.ID), b, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) GetFlow(ctx context.Context, flowID string) (*model.FlowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(flowID)
}

func (s *MemoryStore) GetPendingFlows(ctx context.Context, userID string) ([]*model.FlowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked(userID)
}

func (s *MemoryStore) ClearPendingFlows(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.pendingLocked(userID)
	if err != nil {
		return err
	}
	for _, f := range pending {
		f.Status = model.StatusCancelled
		f.UpdatedAt = s.now().UTC()
		b, err := model.EncodeFlow(f)
		if err != nil {
			return err
		}
		s.cache.Set(flowKey(f.ID), b, cache.NoExpiration)
	}
	return nil
}

func (s *MemoryStore) idsLocked(userID string) ([]string, bool) {
	v, ok := s.cache.Get(userFlowsKey(userID))
	if !ok {
		return nil, false
	}
	ids := v.([]string)
	return append([]string(nil), ids...), true
}

func (s *MemoryStore) getLocked(flowID string) (*model.FlowInstance, error) {
	v, ok := s.cache.Get(flowKey(flowID))
	if !ok {
		return nil, fmt.Errorf("get flow %s: %w", flowID, model.ErrFlowNotFound)
	}
	return model.DecodeFlow(v.([]byte))
}

func (s *MemoryStore) pendingLocked(userID string) ([]*model.FlowInstance, error) {
	ids, _ := s.idsLocked(userID)
	var out []*model.FlowInstance
	for _, id := range ids {
		f, err := s.getLocked(id)
		if err != nil {
			return nil, err
		}
		if f.Status.Terminal() {
			continue
		}
		if expired(f, s.staleAfter, s.now()) {
			f.Status = model.StatusCancelled
			if b, err := model.EncodeFlow(f); err == nil {
				s.cache.Set(flowKey(f.ID), b, cache.NoExpiration)
			}
			continue
		}
		out = append(out, f)
	}
	sortNewestFirst(out)
	return out, nil
}

func expired(f *model.FlowInstance, staleAfter time.Duration, now time.Time) bool {
	return staleAfter > 0 && now.Sub(f.UpdatedAt) > staleAfter
}

func sortNewestFirst(flows []*model.FlowInstance) {
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].UpdatedAt.After(flows[j].UpdatedAt)
	})
}

// ===================== records & moods =====================

func (s *MemoryStore) CreateRecord(ctx context.Context, rec *model.Record) (string, error) {
	if !rec.Kind.Committable() {
		return "", fmt.Errorf("create record: unsupported kind %q", rec.Kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now().UTC()
	}
	var list []model.Record
	if v, ok := s.cache.Get(recordsKey(rec.UserID)); ok {
		list = v.([]model.Record)
	}
	s.cache.Set(recordsKey(rec.UserID), append(append([]model.Record(nil), list...), cp), cache.NoExpiration)
	return cp.ID, nil
}

func (s *MemoryStore) ListRecords(ctx context.Context, userID string, kind model.FlowType) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(recordsKey(userID))
	if !ok {
		return nil, nil
	}
	var out []model.Record
	for _, r := range v.([]model.Record) {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) LogMood(ctx context.Context, userID string, score int, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []model.MoodEntry
	if v, ok := s.cache.Get(moodsKey(userID)); ok {
		list = v.([]model.MoodEntry)
	}
	entry := model.MoodEntry{ID: uuid.NewString(), UserID: userID, Score: score, Note: note, CreatedAt: s.now().UTC()}
	s.cache.Set(moodsKey(userID), append(append([]model.MoodEntry(nil), list...), entry), cache.NoExpiration)
	return nil
}

func (s *MemoryStore) RecentMoods(ctx context.Context, userID string, limit int) ([]model.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(moodsKey(userID))
	if !ok {
		return nil, nil
	}
	list := v.([]model.MoodEntry)
	out := make([]model.MoodEntry, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ===================== conversation =====================

func (s *MemoryStore) AppendTurn(ctx context.Context, turn model.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []model.ConversationTurn
	if v, ok := s.cache.Get(sessionKey(turn.SessionID)); ok {
		list = v.([]model.ConversationTurn)
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now().UTC()
	}
	s.cache.SetDefault(sessionKey(turn.SessionID), append(append([]model.ConversationTurn(nil), list...), turn))
	return nil
}

func (s *MemoryStore) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := &model.ConversationHistory{SessionID: sessionID, Turns: []model.ConversationTurn{}}
	if v, ok := s.cache.Get(sessionKey(sessionID)); ok {
		h.Turns = append(h.Turns, v.([]model.ConversationTurn)...)
	}
	return h, nil
}

func (s *MemoryStore) ClearHistory(ctx context.Context, sessionID string) error {
	s.cache.Delete(sessionKey(sessionID))
	return nil
}

func (s *MemoryStore) GetTurnCount(ctx context.Context, sessionID string) (int, error) {
	h, err := s.LoadHistory(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(h.Turns), nil
}

var (
	_ model.FlowRepository         = (*MemoryStore)(nil)
	_ model.RecordRepository       = (*MemoryStore)(nil)
	_ model.MoodRepository         = (*MemoryStore)(nil)
	_ model.ConversationRepository = (*MemoryStore)(nil)
)
