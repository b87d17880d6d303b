package repo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	"github.com/Chative-core-poc-v1/companion/pkg/database"
)

func reminderPlan() model.FlowPlan {
	return model.FlowPlan{
		Intent: model.FlowReminder,
		Steps: []model.FlowStep{
			{Field: "reminder_text", Question: "What should I remind you about?", Type: model.AnswerText},
			{Field: "reminder_time", Question: "What time?", Type: model.AnswerTime},
		},
	}
}

func newFlow(userID string, at time.Time) *model.FlowInstance {
	return &model.FlowInstance{
		ID:        uuid.NewString(),
		UserID:    userID,
		FlowType:  model.FlowReminder,
		Plan:      reminderPlan(),
		Answers:   map[string]string{},
		Status:    model.StatusActive,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// exerciseFlowRepository checks behaviour every FlowRepository shares.
func exerciseFlowRepository(t *testing.T, repo model.FlowRepository) {
	ctx := context.Background()
	user := "user-" + uuid.NewString()
	now := time.Now().UTC()

	pending, err := repo.GetPendingFlows(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, pending)

	first := newFlow(user, now)
	require.NoError(t, repo.CreateFlow(ctx, first))

	second := newFlow(user, now.Add(time.Second))
	assert.ErrorIs(t, repo.CreateFlow(ctx, second), model.ErrPendingFlowExists)

	first.Answers["reminder_text"] = "call mom"
	first.CurrentStep = 1
	first.UpdatedAt = now.Add(2 * time.Second)
	require.NoError(t, repo.UpdateFlow(ctx, first))

	got, err := repo.GetFlow(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStep)
	assert.Equal(t, "call mom", got.Answers["reminder_text"])
	assert.Equal(t, model.StatusActive, got.Status)

	pending, err = repo.GetPendingFlows(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	// a terminal flow frees the slot
	first.Status = model.StatusCompleted
	require.NoError(t, repo.UpdateFlow(ctx, first))
	require.NoError(t, repo.CreateFlow(ctx, second))

	pending, err = repo.GetPendingFlows(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	require.NoError(t, repo.ClearPendingFlows(ctx, user))
	pending, err = repo.GetPendingFlows(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, pending)

	cancelled, err := repo.GetFlow(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	_, err = repo.GetFlow(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, model.ErrFlowNotFound)

	assert.ErrorIs(t, repo.UpdateFlow(ctx, newFlow(user, now)), model.ErrFlowNotFound)

	invalid := newFlow(user, now)
	invalid.CurrentStep = 9
	assert.Error(t, repo.CreateFlow(ctx, invalid))
}

func exerciseRecordRepository(t *testing.T, repo interface {
	model.RecordRepository
	model.MoodRepository
}) {
	ctx := context.Background()
	user := "user-" + uuid.NewString()

	id, err := repo.CreateRecord(ctx, &model.Record{
		UserID: user, Kind: model.FlowHabit, Title: "Meditation", Frequency: "Daily",
		Status: model.RecordStatusActive, Metadata: map[string]string{"habit_type": "Mindfulness"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = repo.CreateRecord(ctx, &model.Record{UserID: user, Kind: model.FlowReminder, Title: "Call mom", ReminderTime: "06:00 PM"})
	require.NoError(t, err)

	_, err = repo.CreateRecord(ctx, &model.Record{UserID: user, Kind: model.FlowOther, Title: "nope"})
	assert.Error(t, err)

	all, err := repo.ListRecords(ctx, user, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	habits, err := repo.ListRecords(ctx, user, model.FlowHabit)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, id, habits[0].ID)
	assert.Equal(t, "Meditation", habits[0].Title)
	assert.Equal(t, "Daily", habits[0].Frequency)
	assert.Equal(t, "Mindfulness", habits[0].Metadata["habit_type"])
	assert.Equal(t, model.RecordStatusActive, habits[0].Status)

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.LogMood(ctx, user, i, fmt.Sprintf("note %d", i)))
		time.Sleep(2 * time.Millisecond)
	}
	moods, err := repo.RecentMoods(ctx, user, 2)
	require.NoError(t, err)
	require.Len(t, moods, 2)
	assert.Equal(t, 3, moods[0].Score)
	assert.Equal(t, 2, moods[1].Score)
}

func TestMemoryStore_Flows(t *testing.T) {
	exerciseFlowRepository(t, NewMemoryStore(0, 0))
}

func TestMemoryStore_Records(t *testing.T) {
	exerciseRecordRepository(t, NewMemoryStore(0, 0))
}

func TestMemoryStore_StaleFlowsAreCancelledOnRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, time.Hour)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	f := newFlow("u1", now)
	require.NoError(t, s.CreateFlow(ctx, f))

	now = now.Add(2 * time.Hour)
	pending, err := s.GetPendingFlows(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := s.GetFlow(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	require.NoError(t, s.CreateFlow(ctx, newFlow("u1", now)), "stale flow no longer blocks a new one")
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)
	f := newFlow("u1", time.Now().UTC())
	require.NoError(t, s.CreateFlow(ctx, f))

	f.Answers["reminder_text"] = "mutated after write"
	got, err := s.GetFlow(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Answers)
}

func TestMemoryStore_Conversation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour, 0)

	require.NoError(t, s.AppendTurn(ctx, model.ConversationTurn{SessionID: "s1", UserID: "u1", Role: "user", Content: "hi"}))
	require.NoError(t, s.AppendTurn(ctx, model.ConversationTurn{SessionID: "s1", UserID: "u1", Role: "assistant", Content: "hello"}))

	h, err := s.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, h.Turns, 2)
	assert.Equal(t, "hi", h.Turns[0].Content)
	assert.False(t, h.Turns[0].Timestamp.IsZero())

	n, err := s.GetTurnCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.ClearHistory(ctx, "s1"))
	n, err = s.GetTurnCount(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteRecordRepository(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewSQLiteRecordRepository(db)
	require.NoError(t, err)
	exerciseRecordRepository(t, repo)

	require.NoError(t, MigrateSQLite(db), "migration is idempotent")
	var version int
	require.NoError(t, db.QueryRow(`SELECT MAX(version) FROM schema_migrations;`).Scan(&version))
	assert.Equal(t, SQLiteSchemaVersion, version)
}

func redisClient(t *testing.T) *redis.Client {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestRedisFlowRepository(t *testing.T) {
	exerciseFlowRepository(t, NewRedisFlowRepository(redisClient(t), 0))
}

func TestRedisFlowRepository_CorruptRecord(t *testing.T) {
	rdb := redisClient(t)
	repo := NewRedisFlowRepository(rdb, 0)
	ctx := context.Background()

	id := "corrupt-" + uuid.NewString()
	require.NoError(t, rdb.Set(ctx, repo.flowKey(id), `{"id":"x","current_step":-4}`, time.Minute).Err())

	_, err := repo.GetFlow(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCorruptFlow)
	assert.Equal(t, errx.KindPersistence, errx.KindOf(err))
}

func TestRedisFlowRepository_PendingSkipsHistory(t *testing.T) {
	rdb := redisClient(t)
	repo := NewRedisFlowRepository(rdb, 0)
	ctx := context.Background()
	user := "user-" + uuid.NewString()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		f := newFlow(user, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.CreateFlow(ctx, f))
		f.Status = model.StatusCompleted
		require.NoError(t, repo.UpdateFlow(ctx, f))
	}

	// a damaged historic record must not break later turns
	bad := "corrupt-" + uuid.NewString()
	require.NoError(t, rdb.Set(ctx, repo.flowKey(bad), `{"id":"x","current_step":-4}`, time.Minute).Err())
	require.NoError(t, rdb.ZAdd(ctx, repo.indexKey(user), redis.Z{Score: 1, Member: bad}).Err())

	pending, err := repo.GetPendingFlows(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, pending)

	open := newFlow(user, now.Add(time.Minute))
	require.NoError(t, repo.CreateFlow(ctx, open))
	pending, err = repo.GetPendingFlows(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, open.ID, pending[0].ID)

	n, err := rdb.ZCard(ctx, repo.openKey(user)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "finished flows leave the open index")

	// without the pointer the open index still finds the flow
	require.NoError(t, rdb.Del(ctx, repo.pendingKey(user)).Err())
	pending, err = repo.GetPendingFlows(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, open.ID, pending[0].ID)

	open.Status = model.StatusCancelled
	require.NoError(t, repo.UpdateFlow(ctx, open))
	pending, err = repo.GetPendingFlows(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRedisConversationRepository(t *testing.T) {
	rdb := redisClient(t)
	repo := NewRedisConversationRepository(rdb, time.Minute)
	ctx := context.Background()
	session := "session-" + uuid.NewString()
	t.Cleanup(func() { _ = repo.ClearHistory(ctx, session) })

	require.NoError(t, repo.AppendTurn(ctx, model.ConversationTurn{SessionID: session, UserID: "u1", Role: "user", Content: "hi"}))
	require.NoError(t, repo.AppendTurn(ctx, model.ConversationTurn{SessionID: session, UserID: "u1", Role: "assistant", Content: "hello"}))

	h, err := repo.LoadHistory(ctx, session)
	require.NoError(t, err)
	require.Len(t, h.Turns, 2)
	assert.Equal(t, "hello", h.Turns[1].Content)

	ttl, err := rdb.TTL(ctx, repo.conversationKey(session)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestGormRecordRepository(t *testing.T) {
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set")
	}
	db, err := database.NewGormDB(database.Config{ConnectionString: dsn, MaxIdleConns: 1, MaxOpenConns: 2, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)

	repo := NewGormRecordRepository(db)
	require.NoError(t, repo.AutoMigrate(context.Background()))
	exerciseRecordRepository(t, repo)
}
