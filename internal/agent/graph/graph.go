package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/companion/internal/agent/flow"
	"github.com/Chative-core-poc-v1/companion/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/companion/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/companion/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/companion/internal/agent/llm"
	"github.com/Chative-core-poc-v1/companion/internal/agent/lock"
	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

const maxRunSteps = 20

// Config holds everything needed to compose the orchestrator end-to-end.
type Config struct {
	Flows         model.FlowRepository
	Records       model.RecordRepository
	Moods         model.MoodRepository
	Conversations model.ConversationRepository
	Oracles       model.Oracles
	// Locker serializes turns per user; defaults to an in-process keyed mutex.
	Locker       lock.Locker
	Conversation model.ConversationConfig
	Flow         model.FlowConfig

	// overridable in tests
	Deps func(*nodes.Deps)
}

// GraphBuilder handles the construction of the orchestrator graph.
type GraphBuilder struct {
	nodes *nodes.Nodes
	graph *compose.Graph[model.QueryInput, *model.Turn]
}

// Runner executes one turn per utterance under a per-user lock.
type Runner struct {
	runnable compose.Runnable[model.QueryInput, *model.Turn]
	locker   lock.Locker
	messages *conversations.MessagesManager
}

// BuildRunner wires the repositories and oracles into a compiled graph.
func BuildRunner(ctx context.Context, cfg Config) (*Runner, error) {
	if cfg.Flows == nil || cfg.Records == nil || cfg.Moods == nil {
		return nil, fmt.Errorf("repositories are not properly initialized")
	}
	if cfg.Conversations == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	mm := conversations.NewMessagesManager(cfg.Conversations, cfg.Conversation)
	deps := nodes.Deps{
		Flows:              cfg.Flows,
		Records:            cfg.Records,
		Moods:              cfg.Moods,
		Oracles:            cfg.Oracles,
		Loader:             flow.NewLoader(cfg.Oracles.Plan),
		Messages:           mm,
		StrictConfirmation: cfg.Flow.StrictConfirmation,
	}
	if cfg.Deps != nil {
		cfg.Deps(&deps)
	}
	n, err := nodes.New(deps)
	if err != nil {
		return nil, err
	}

	runnable, err := BuildGraph(ctx, n)
	if err != nil {
		return nil, err
	}

	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	logx.Debug().Msg("Orchestrator graph built successfully")
	return &Runner{runnable: runnable, locker: locker, messages: mm}, nil
}

// BuildGraph constructs and compiles the orchestrator graph.
func BuildGraph(ctx context.Context, n *nodes.Nodes) (compose.Runnable[model.QueryInput, *model.Turn], error) {
	if n == nil {
		return nil, fmt.Errorf("nodes are nil")
	}
	b := &GraphBuilder{
		nodes: n,
		graph: compose.NewGraph[model.QueryInput, *model.Turn](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{Visits: map[string]int{}}
			}),
		),
	}
	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() error {
	if err := b.graph.AddLambdaNode(nodes.NodeRouteStart,
		b.nodes.NewRouteStartNode(),
		compose.WithStatePreHandler(nodes.NewRouteStartPreHandler()),
	); err != nil {
		return fmt.Errorf("add node %s: %w", nodes.NodeRouteStart, err)
	}

	turnNodes := []struct {
		key    string
		lambda *compose.Lambda
	}{
		{nodes.NodeInterruptDetector, b.nodes.NewInterruptDetectorNode()},
		{nodes.NodeIntentRouter, b.nodes.NewIntentRouterNode()},
		{nodes.NodeFlowGenerator, b.nodes.NewFlowGeneratorNode()},
		{nodes.NodeQuestionAsker, b.nodes.NewQuestionAskerNode()},
		{nodes.NodeAnswerCollector, b.nodes.NewAnswerCollectorNode()},
		{nodes.NodeConfirmationHandler, b.nodes.NewConfirmationHandlerNode()},
		{nodes.NodeConversationalReply, b.nodes.NewConversationalReplyNode()},
		{nodes.NodeEmotionalSupport, b.nodes.NewEmotionalSupportNode()},
		{nodes.NodeFallbackHandler, b.nodes.NewFallbackHandlerNode()},
	}
	for _, tn := range turnNodes {
		if err := b.graph.AddLambdaNode(tn.key, tn.lambda,
			compose.WithStatePreHandler(nodes.NewVisitPreHandler(tn.key)),
		); err != nil {
			return fmt.Errorf("add node %s: %w", tn.key, err)
		}
	}
	return nil
}

// addEdges creates the unconditional connections.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeRouteStart},
		{nodes.NodeQuestionAsker, compose.END},
		{nodes.NodeConversationalReply, compose.END},
		{nodes.NodeEmotionalSupport, compose.END},
		{nodes.NodeFallbackHandler, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the conditional routing of every deciding node.
func (b *GraphBuilder) addBranches() error {
	branches := []struct {
		from string
		cond func(context.Context, *model.Turn) (string, error)
		to   []string
	}{
		{nodes.NodeRouteStart, nodes.NewRouteStartCondition(), []string{
			nodes.NodeInterruptDetector, nodes.NodeConfirmationHandler, nodes.NodeIntentRouter, nodes.NodeFallbackHandler,
		}},
		{nodes.NodeInterruptDetector, nodes.NewInterruptDetectorCondition(), []string{
			nodes.NodeAnswerCollector, nodes.NodeQuestionAsker, nodes.NodeIntentRouter,
			nodes.NodeConversationalReply, nodes.NodeEmotionalSupport, nodes.NodeFallbackHandler,
		}},
		{nodes.NodeIntentRouter, nodes.NewIntentRouterCondition(), []string{
			nodes.NodeFlowGenerator, nodes.NodeEmotionalSupport, nodes.NodeConversationalReply, nodes.NodeFallbackHandler,
		}},
		{nodes.NodeFlowGenerator, nodes.NewFlowGeneratorCondition(), []string{
			nodes.NodeQuestionAsker, nodes.NodeConfirmationHandler, nodes.NodeFallbackHandler,
		}},
		{nodes.NodeAnswerCollector, nodes.NewAnswerCollectorCondition(), []string{
			nodes.NodeFlowGenerator, nodes.NodeConfirmationHandler, nodes.NodeFallbackHandler,
		}},
		{nodes.NodeConfirmationHandler, nodes.NewConfirmationHandlerCondition(), []string{
			compose.END, nodes.NodeIntentRouter, nodes.NodeFallbackHandler,
		}},
	}

	for _, br := range branches {
		ends := make(map[string]bool, len(br.to))
		for _, to := range br.to {
			ends[to] = true
		}
		if err := b.graph.AddBranch(br.from, compose.NewGraphBranch(br.cond, ends)); err != nil {
			logx.Error().Err(err).Str("node", br.from).Msg("Error adding branch")
			return fmt.Errorf("error adding branch from %s: %w", br.from, err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *model.Turn], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("companion_orchestrator"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// ProcessMessage runs one utterance through the orchestrator. Turns of the
// same user never overlap. An empty sessionID defaults to "session_<userID>".
func (r *Runner) ProcessMessage(ctx context.Context, userID, utterance, sessionID string) model.Result {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Result{Err: errx.New(errors.New("user id is empty"), http.StatusBadRequest, "user id is required")}
	}
	if strings.TrimSpace(utterance) == "" {
		return model.Result{Err: errx.New(errors.New("message is empty"), http.StatusBadRequest, "message is required")}
	}
	if sessionID == "" {
		sessionID = "session_" + userID
	}

	unlock, err := r.locker.Lock(ctx, userID)
	if err != nil {
		logx.Warn().Err(err).Str("user_id", userID).Msg("Failed to acquire user lock")
		return model.Result{
			Response:  nodes.RetryLaterText,
			Err:       err,
			Retryable: true,
		}
	}
	defer unlock()

	ctx, tally := llm.WithTally(ctx)
	turn, err := r.runnable.Invoke(ctx, model.QueryInput{
		UserID:    userID,
		SessionID: sessionID,
		Utterance: utterance,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil || turn == nil {
		if err == nil {
			err = errors.New("graph returned no turn")
		}
		err = errx.Invariant("graph run: %v", err)
		logx.Error().Err(err).Str("user_id", userID).Str("kind", string(errx.KindInvariant)).Msg("Orchestrator run failed")
		return model.Result{Response: nodes.FallbackText, CostUSD: tally.TotalUSD(), Err: err}
	}

	res := model.Result{
		Response:  turn.Response,
		Flow:      turn.Flow.Snapshot(),
		Path:      turn.Path,
		CostUSD:   tally.TotalUSD(),
		Err:       turn.Err,
		Retryable: errx.IsRetryable(turn.Err),
	}
	if turn.Intent != nil {
		res.Intent = turn.Intent.Intent
		res.Confidence = turn.Intent.Confidence
	}

	r.messages.RecordExchange(ctx, userID, sessionID, utterance, res.Response, map[string]string{
		"path": strings.Join(res.Path, ">"),
	})

	logx.Info().
		Str("user_id", userID).
		Strs("path", res.Path).
		Str("intent", string(res.Intent)).
		Float64("confidence", res.Confidence).
		Float64("cost_usd", res.CostUSD).
		Int("llm_calls", tally.Calls()).
		Msg("Turn processed")
	return res
}
