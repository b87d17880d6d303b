package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// SQLiteRecordRepository keeps committed records and mood entries in a local
// SQLite file. Timestamps are stored as fixed-width UTC text.
type SQLiteRecordRepository struct {
	db *sql.DB
}

// NewSQLiteRecordRepository migrates db and returns a repository over it.
func NewSQLiteRecordRepository(db *sql.DB) (*SQLiteRecordRepository, error) {
	if err := MigrateSQLite(db); err != nil {
		return nil, err
	}
	return &SQLiteRecordRepository{db: db}, nil
}

// fixed width so text ordering matches time ordering
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *SQLiteRecordRepository) CreateRecord(ctx context.Context, rec *model.Record) (string, error) {
	if !rec.Kind.Committable() {
		return "", fmt.Errorf("create record: unsupported kind %q", rec.Kind)
	}
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	id := uuid.NewString()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := rec.Status
	if status == "" {
		status = model.RecordStatusActive
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (id, user_id, kind, title, description, frequency, target_date, reminder_time, status, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		id, rec.UserID, string(rec.Kind), rec.Title, rec.Description,
		nullable(rec.Frequency), nullable(rec.TargetDate), nullable(rec.ReminderTime),
		status, string(meta), createdAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		logx.Error().Err(err).Str("kind", string(rec.Kind)).Str("user_id", rec.UserID).Msg("failed to insert record")
		return "", errx.WrapDB(err)
	}
	return id, nil
}

func (r *SQLiteRecordRepository) ListRecords(ctx context.Context, userID string, kind model.FlowType) ([]model.Record, error) {
	query := `SELECT id, user_id, kind, title, description, frequency, target_date, reminder_time, status, metadata, created_at
		FROM records WHERE user_id = ?`
	args := []interface{}{userID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at ASC;`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errx.WrapDB(err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			rec                               model.Record
			kindText, metaText, createdAt     string
			frequency, targetDate, reminderAt sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &kindText, &rec.Title, &rec.Description,
			&frequency, &targetDate, &reminderAt, &rec.Status, &metaText, &createdAt); err != nil {
			return nil, errx.WrapDB(err)
		}
		rec.Kind = model.FlowType(kindText)
		rec.Frequency = frequency.String
		rec.TargetDate = targetDate.String
		rec.ReminderTime = reminderAt.String
		if metaText != "" {
			meta := map[string]string{}
			if err := json.Unmarshal([]byte(metaText), &meta); err == nil && len(meta) > 0 {
				rec.Metadata = meta
			}
		}
		if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for record %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapDB(err)
	}
	return out, nil
}

func (r *SQLiteRecordRepository) LogMood(ctx context.Context, userID string, score int, note string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mood_entries (id, user_id, score, note, created_at) VALUES (?, ?, ?, ?, ?);`,
		uuid.NewString(), userID, score, note, time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to insert mood entry")
		return errx.WrapDB(err)
	}
	return nil
}

func (r *SQLiteRecordRepository) RecentMoods(ctx context.Context, userID string, limit int) ([]model.MoodEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, score, note, created_at FROM mood_entries
		 WHERE user_id = ? ORDER BY created_at DESC LIMIT ?;`, userID, limit)
	if err != nil {
		return nil, errx.WrapDB(err)
	}
	defer rows.Close()

	var out []model.MoodEntry
	for rows.Next() {
		var (
			m         model.MoodEntry
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Score, &m.Note, &createdAt); err != nil {
			return nil, errx.WrapDB(err)
		}
		if m.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for mood %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapDB(err)
	}
	return out, nil
}

var (
	_ model.RecordRepository = (*SQLiteRecordRepository)(nil)
	_ model.MoodRepository   = (*SQLiteRecordRepository)(nil)
)
