package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// RedisFlowRepository stores each flow as a JSON string and indexes a user's
// flows in sorted sets scored by update time: one for the whole history and
// one holding only non-terminal flows. A per-user pending pointer claimed
// with SETNX holds the single-pending invariant across instances and is read
// before any index.
type RedisFlowRepository struct {
	rdb        redis.Cmdable
	staleAfter time.Duration
}

func NewRedisFlowRepository(rdb redis.Cmdable, staleAfter time.Duration) *RedisFlowRepository {
	return &RedisFlowRepository{rdb: rdb, staleAfter: staleAfter}
}

func (r *RedisFlowRepository) flowKey(id string) string        { return fmt.Sprintf("flow:%s", id) }
func (r *RedisFlowRepository) indexKey(userID string) string   { return fmt.Sprintf("user:%s:flows", userID) }
func (r *RedisFlowRepository) pendingKey(userID string) string { return fmt.Sprintf("user:%s:pending_flow", userID) }
func (r *RedisFlowRepository) openKey(userID string) string    { return fmt.Sprintf("user:%s:open_flows", userID) }

// index queues the history and open-set updates for f on pipe.
func (r *RedisFlowRepository) index(ctx context.Context, pipe redis.Pipeliner, f *model.FlowInstance) {
	z := redis.Z{Score: float64(f.UpdatedAt.UnixNano()), Member: f.ID}
	pipe.ZAdd(ctx, r.indexKey(f.UserID), z)
	if f.Status.Terminal() {
		pipe.ZRem(ctx, r.openKey(f.UserID), f.ID)
	} else {
		pipe.ZAdd(ctx, r.openKey(f.UserID), z)
	}
}

func (r *RedisFlowRepository) CreateFlow(ctx context.Context, f *model.FlowInstance) error {
	b, err := model.EncodeFlow(f)
	if err != nil {
		return err
	}

	if !f.Status.Terminal() {
		if err := r.claimPending(ctx, f); err != nil {
			return err
		}
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.flowKey(f.ID), b, 0)
	r.index(ctx, pipe, f)
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("flow_id", f.ID).Msg("failed to create flow in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// claimPending sets the user's pending pointer to f.ID. A pointer to a flow
// that is missing or already terminal is stale and gets replaced.
func (r *RedisFlowRepository) claimPending(ctx context.Context, f *model.FlowInstance) error {
	key := r.pendingKey(f.UserID)
	ok, err := r.rdb.SetNX(ctx, key, f.ID, 0).Result()
	if err != nil {
		return errx.WrapRedis(err)
	}
	if ok {
		return nil
	}

	holder, err := r.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errx.WrapRedis(err)
	}
	if holder != "" && holder != f.ID {
		current, err := r.GetFlow(ctx, holder)
		switch {
		case err == nil && !current.Status.Terminal() && !expired(current, r.staleAfter, time.Now()):
			return model.ErrPendingFlowExists
		case err != nil && !errors.Is(err, model.ErrFlowNotFound):
			return err
		}
	}
	if err := r.rdb.Set(ctx, key, f.ID, 0).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisFlowRepository) UpdateFlow(ctx context.Context, f *model.FlowInstance) error {
	b, err := model.EncodeFlow(f)
	if err != nil {
		return err
	}
	n, err := r.rdb.Exists(ctx, r.flowKey(f.ID)).Result()
	if err != nil {
		return errx.WrapRedis(err)
	}
	if n == 0 {
		return fmt.Errorf("update flow %s: %w", f.ID, model.ErrFlowNotFound)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.flowKey(f.ID), b, 0)
	r.index(ctx, pipe, f)
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("flow_id", f.ID).Msg("failed to update flow in redis")
		return errx.WrapRedis(err)
	}

	if f.Status.Terminal() {
		r.releasePending(ctx, f.UserID, f.ID)
	}
	return nil
}

var releasePendingScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisFlowRepository) releasePending(ctx context.Context, userID, flowID string) {
	if err := releasePendingScript.Run(ctx, r.rdb, []string{r.pendingKey(userID)}, flowID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		// a stale pointer is tolerated by claimPending
		logx.Warn().Err(err).Str("user_id", userID).Msg("failed to release pending flow pointer")
	}
}

func (r *RedisFlowRepository) GetFlow(ctx context.Context, flowID string) (*model.FlowInstance, error) {
	b, err := r.rdb.Get(ctx, r.flowKey(flowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get flow %s: %w", flowID, model.ErrFlowNotFound)
		}
		return nil, errx.WrapRedis(err)
	}
	f, err := model.DecodeFlow(b)
	if err != nil {
		logx.Error().Err(err).Str("flow_id", flowID).Msg("stored flow failed validation")
		return nil, errx.Persistence(err, errx.CorruptStateMessage)
	}
	return f, nil
}

// GetPendingFlows resolves the pending pointer first and only reads the open
// index when the pointer is missing or no longer names a pending flow.
// Completed history is never read.
func (r *RedisFlowRepository) GetPendingFlows(ctx context.Context, userID string) ([]*model.FlowInstance, error) {
	f, err := r.pointedFlow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return r.keepPending(ctx, []*model.FlowInstance{f})
	}

	ids, err := r.rdb.ZRevRange(ctx, r.openKey(userID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errx.WrapRedis(err)
	}
	flows := make([]*model.FlowInstance, 0, len(ids))
	for _, id := range ids {
		f, err := r.GetFlow(ctx, id)
		if errors.Is(err, model.ErrFlowNotFound) {
			r.rdb.ZRem(ctx, r.openKey(userID), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return r.keepPending(ctx, flows)
}

// pointedFlow returns the non-terminal flow named by the pending pointer, or
// nil when there is none. A pointer to a missing or finished flow is dropped.
func (r *RedisFlowRepository) pointedFlow(ctx context.Context, userID string) (*model.FlowInstance, error) {
	holder, err := r.rdb.Get(ctx, r.pendingKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	f, err := r.GetFlow(ctx, holder)
	switch {
	case errors.Is(err, model.ErrFlowNotFound):
		r.releasePending(ctx, userID, holder)
		return nil, nil
	case err != nil:
		return nil, err
	case f.Status.Terminal():
		r.releasePending(ctx, userID, holder)
		return nil, nil
	}
	return f, nil
}

// keepPending drops terminal flows, cancels stale ones and sorts the rest
// newest first.
func (r *RedisFlowRepository) keepPending(ctx context.Context, flows []*model.FlowInstance) ([]*model.FlowInstance, error) {
	var out []*model.FlowInstance
	for _, f := range flows {
		if f.Status.Terminal() {
			r.rdb.ZRem(ctx, r.openKey(f.UserID), f.ID)
			continue
		}
		if expired(f, r.staleAfter, time.Now()) {
			f.Status = model.StatusCancelled
			if err := r.UpdateFlow(ctx, f); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, f)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *RedisFlowRepository) ClearPendingFlows(ctx context.Context, userID string) error {
	pending, err := r.GetPendingFlows(ctx, userID)
	if err != nil {
		return err
	}
	for _, f := range pending {
		f.Status = model.StatusCancelled
		f.UpdatedAt = time.Now().UTC()
		if err := r.UpdateFlow(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

var _ model.FlowRepository = (*RedisFlowRepository)(nil)
