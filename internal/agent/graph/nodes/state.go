package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// NewVisitPreHandler records the node on the turn path. Entering the same
// node twice in one turn is an invariant violation; the turn is marked and
// the following condition routes it to fallback.
func NewVisitPreHandler(node string) func(context.Context, *model.Turn, *model.AppState) (*model.Turn, error) {
	return func(ctx context.Context, in *model.Turn, s *model.AppState) (*model.Turn, error) {
		if s.Visits == nil {
			s.Visits = map[string]int{}
		}
		s.Visits[node]++
		in.Path = append(in.Path, node)
		if s.Visits[node] > 1 && in.Err == nil && node != NodeFallbackHandler {
			in.Err = errx.Invariant("node %s entered %d times in one turn", node, s.Visits[node])
			in.Outcome = model.OutcomeError
		}
		return in, nil
	}
}

// fail marks the turn as faulted. Callers return the turn; conditions route
// faulted turns to fallback.
func fail(t *model.Turn, err error) *model.Turn {
	t.Err = err
	t.Outcome = model.OutcomeError
	return t
}

// saveFlow persists f, stamping the update time.
func (n *Nodes) saveFlow(ctx context.Context, f *model.FlowInstance) error {
	f.UpdatedAt = n.deps.now()
	if err := n.deps.Flows.UpdateFlow(ctx, f); err != nil {
		logx.Error().Err(err).Str("flow_id", f.ID).Str("user_id", f.UserID).Str("status", string(f.Status)).
			Msg("Failed to persist flow")
		return err
	}
	return nil
}

// joinReply joins the owed notice, the reply and a resumption offer.
func joinReply(t *model.Turn, reply string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.Notice, reply, nudge(t.Nudge)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

func nudge(f *model.FlowInstance) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf(nudgeText, f.FlowType)
}
