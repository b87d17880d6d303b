package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/Chative-core-poc-v1/companion/internal/agent/graph"
	"github.com/Chative-core-poc-v1/companion/internal/agent/llm"
	"github.com/Chative-core-poc-v1/companion/internal/agent/lock"
	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	"github.com/Chative-core-poc-v1/companion/internal/agent/oracles"
	"github.com/Chative-core-poc-v1/companion/internal/agent/repo"
	"github.com/Chative-core-poc-v1/companion/pkg/database"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

type recordStore interface {
	model.RecordRepository
	model.MoodRepository
}

// stores groups the persistence gateway chosen by configuration.
type stores struct {
	flows         model.FlowRepository
	conversations model.ConversationRepository
	records       recordStore
	locker        lock.Locker

	closers []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openStores(ctx context.Context, c AppConfig) (*stores, error) {
	memory := repo.NewMemoryStore(c.Conversation.TTL, c.Flow.StaleAfter)
	s := &stores{
		flows:         memory,
		conversations: memory,
		records:       memory,
		locker:        lock.NewKeyedMutex(),
	}

	if c.Store.Flows == "redis" {
		rdb, err := c.Redis.New()
		if err != nil {
			return nil, fmt.Errorf("initialising redis client: %w", err)
		}
		s.closers = append(s.closers, rdb.Close)
		s.flows = repo.NewRedisFlowRepository(rdb, c.Flow.StaleAfter)
		s.conversations = repo.NewRedisConversationRepository(rdb, c.Conversation.TTL)
		s.locker = lock.NewRedisLocker(rdb, c.Flow.LockTTL)
		logx.Info().Msg("Flows and conversations stored in Redis")
	}

	switch c.Store.Records {
	case "sqlite":
		db, err := database.OpenSQLite(c.Store.SQLitePath)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		records, err := repo.NewSQLiteRecordRepository(db)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.records = records
		logx.Info().Str("path", c.Store.SQLitePath).Msg("Records stored in SQLite")
	case "postgres":
		gdb, err := database.NewGormDB(c.Database)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			s.closers = append(s.closers, sqlDB.Close)
		}
		records := repo.NewGormRecordRepository(gdb)
		if err := records.AutoMigrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		s.records = records
		logx.Info().Msg("Records stored in Postgres")
	}
	return s, nil
}

func buildRunner(ctx context.Context, c AppConfig, s *stores) (*graph.Runner, error) {
	cms, err := llm.NewChatModels(ctx, llm.Config{
		LLM:        c.LLM,
		Classifier: c.Classifier,
		Response:   c.Response,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat models: %w", err)
	}

	return graph.BuildRunner(ctx, graph.Config{
		Flows:         s.flows,
		Records:       s.records,
		Moods:         s.records,
		Conversations: s.conversations,
		Oracles:       oracles.NewSuite(cms.Classifier, cms.Response, c.Flow.OracleTimeout),
		Locker:        s.locker,
		Conversation:  c.Conversation,
		Flow:          c.Flow,
	})
}
