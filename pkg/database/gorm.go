package database

import (
	"time"

	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds the Postgres connection settings for committed records.
type Config struct {
	ConnectionString string        `envconfig:"DB_CONNECTION_STRING"`
	MaxIdleConns     int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns     int           `envconfig:"DB_MAX_OPEN_CONNS" default:"50"`
	ConnMaxLifetime  time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
}

// gormWriter forwards gorm's printf-style output to the zerolog facade.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logx.Debug().Str("component", "gorm").Msgf(format, args...)
}

func getLogger() logger.Interface {
	return logger.New(
		gormWriter{},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
}

func configureConnectionPool(db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return nil
}

// NewGormDB opens a pooled Postgres connection through gorm.
func NewGormDB(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnectionString), &gorm.Config{
		Logger: getLogger(),
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}
