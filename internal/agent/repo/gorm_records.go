package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

type HabitModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID      string         `gorm:"index;not null"`
	Name        string         `gorm:"not null"`
	Description string
	Frequency   string         `gorm:"default:Daily"`
	Status      string         `gorm:"default:active"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

func (HabitModel) TableName() string { return "habits" }

type GoalModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID      string         `gorm:"index;not null"`
	Name        string         `gorm:"not null"`
	Description string
	TargetDate  string
	Status      string         `gorm:"default:active"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

func (GoalModel) TableName() string { return "goals" }

type ReminderModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID       string         `gorm:"index;not null"`
	Text         string         `gorm:"not null"`
	Description  string
	ReminderTime string
	Status       string         `gorm:"default:active"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
}

func (ReminderModel) TableName() string { return "reminders" }

type MoodEntryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"index;not null"`
	Score     int       `gorm:"not null"`
	Note      string
	CreatedAt time.Time `gorm:"index"`
}

func (MoodEntryModel) TableName() string { return "mood_entries" }

// GormRecordRepository writes committed records and mood entries to Postgres.
type GormRecordRepository struct {
	db *gorm.DB
}

func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// AutoMigrate creates or updates the record tables.
func (r *GormRecordRepository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&HabitModel{}, &GoalModel{}, &ReminderModel{}, &MoodEntryModel{}); err != nil {
		return fmt.Errorf("automigrate records: %w", err)
	}
	return nil
}

func encodeMetadata(m map[string]string) (datatypes.JSON, error) {
	if len(m) == 0 {
		return datatypes.JSON("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func decodeMetadata(b []byte) map[string]string {
	if len(b) == 0 {
		return nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		logx.Warn().Err(err).Msg("record metadata is not a string map")
		return nil
	}
	return m
}

func (r *GormRecordRepository) CreateRecord(ctx context.Context, rec *model.Record) (string, error) {
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	id := uuid.New()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := rec.Status
	if status == "" {
		status = model.RecordStatusActive
	}

	var row interface{}
	switch rec.Kind {
	case model.FlowHabit:
		row = &HabitModel{ID: id, UserID: rec.UserID, Name: rec.Title, Description: rec.Description,
			Frequency: rec.Frequency, Status: status, Metadata: meta, CreatedAt: createdAt}
	case model.FlowGoal:
		row = &GoalModel{ID: id, UserID: rec.UserID, Name: rec.Title, Description: rec.Description,
			TargetDate: rec.TargetDate, Status: status, Metadata: meta, CreatedAt: createdAt}
	case model.FlowReminder:
		row = &ReminderModel{ID: id, UserID: rec.UserID, Text: rec.Title, Description: rec.Description,
			ReminderTime: rec.ReminderTime, Status: status, Metadata: meta, CreatedAt: createdAt}
	default:
		return "", fmt.Errorf("create record: unsupported kind %q", rec.Kind)
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		logx.Error().Err(err).Str("kind", string(rec.Kind)).Str("user_id", rec.UserID).Msg("failed to insert record")
		return "", errx.WrapDB(err)
	}
	return id.String(), nil
}

func (r *GormRecordRepository) ListRecords(ctx context.Context, userID string, kind model.FlowType) ([]model.Record, error) {
	kinds := []model.FlowType{model.FlowHabit, model.FlowGoal, model.FlowReminder}
	if kind != "" {
		kinds = []model.FlowType{kind}
	}

	db := r.db.WithContext(ctx)
	var out []model.Record
	for _, k := range kinds {
		switch k {
		case model.FlowHabit:
			var rows []HabitModel
			if err := db.Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
				return nil, errx.WrapDB(err)
			}
			for _, h := range rows {
				out = append(out, model.Record{ID: h.ID.String(), UserID: h.UserID, Kind: k, Title: h.Name,
					Description: h.Description, Frequency: h.Frequency, Status: h.Status,
					Metadata: decodeMetadata(h.Metadata), CreatedAt: h.CreatedAt})
			}
		case model.FlowGoal:
			var rows []GoalModel
			if err := db.Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
				return nil, errx.WrapDB(err)
			}
			for _, g := range rows {
				out = append(out, model.Record{ID: g.ID.String(), UserID: g.UserID, Kind: k, Title: g.Name,
					Description: g.Description, TargetDate: g.TargetDate, Status: g.Status,
					Metadata: decodeMetadata(g.Metadata), CreatedAt: g.CreatedAt})
			}
		case model.FlowReminder:
			var rows []ReminderModel
			if err := db.Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
				return nil, errx.WrapDB(err)
			}
			for _, m := range rows {
				out = append(out, model.Record{ID: m.ID.String(), UserID: m.UserID, Kind: k, Title: m.Text,
					Description: m.Description, ReminderTime: m.ReminderTime, Status: m.Status,
					Metadata: decodeMetadata(m.Metadata), CreatedAt: m.CreatedAt})
			}
		default:
			return nil, fmt.Errorf("list records: unsupported kind %q", k)
		}
	}
	return out, nil
}

func (r *GormRecordRepository) LogMood(ctx context.Context, userID string, score int, note string) error {
	row := &MoodEntryModel{ID: uuid.New(), UserID: userID, Score: score, Note: note, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to insert mood entry")
		return errx.WrapDB(err)
	}
	return nil
}

func (r *GormRecordRepository) RecentMoods(ctx context.Context, userID string, limit int) ([]model.MoodEntry, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []MoodEntryModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, errx.WrapDB(err)
	}
	out := make([]model.MoodEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, model.MoodEntry{ID: m.ID.String(), UserID: m.UserID, Score: m.Score, Note: m.Note, CreatedAt: m.CreatedAt})
	}
	return out, nil
}

var (
	_ model.RecordRepository = (*GormRecordRepository)(nil)
	_ model.MoodRepository   = (*GormRecordRepository)(nil)
)
