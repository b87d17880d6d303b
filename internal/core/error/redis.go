package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to a persistence AppError with an appropriate status.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return &AppError{Err: err, Kind: KindPersistence, Status: http.StatusNotFound, Message: RedisNotFoundMessage}
	}

	return Persistence(err, RedisErrorMessage)
}
