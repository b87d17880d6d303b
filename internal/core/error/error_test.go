package errx

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	notFound := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, StatusOf(notFound))
	assert.False(t, IsRetryable(notFound))
	assert.ErrorIs(t, notFound, redis.Nil)

	down := WrapRedis(errors.New("dial tcp: connection refused"))
	assert.Equal(t, KindPersistence, KindOf(down))
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(down))
	assert.True(t, IsRetryable(down))
}

func TestWrapDB(t *testing.T) {
	assert.NoError(t, WrapDB(nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(WrapDB(sql.ErrNoRows)))
	assert.Equal(t, http.StatusNotFound, StatusOf(WrapDB(gorm.ErrRecordNotFound)))
	assert.True(t, IsRetryable(WrapDB(errors.New("deadlock"))))
}

func TestKinds(t *testing.T) {
	inv := Invariant("step %d out of range", 7)
	assert.Equal(t, KindInvariant, KindOf(inv))
	assert.False(t, IsRetryable(inv))
	assert.Contains(t, inv.Error(), "step 7 out of range")

	wrapped := fmt.Errorf("answer collector: %w", Oracle(errors.New("timeout")))
	assert.Equal(t, KindOracle, KindOf(wrapped))
	assert.Equal(t, http.StatusBadGateway, StatusOf(wrapped))

	assert.Equal(t, KindSystem, KindOf(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))

	var ae *AppError
	assert.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, OracleErrorMessage, ae.Message)
}
