package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/companion/internal/agent/flow"
	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// Nodes holds the orchestrator node implementations over shared deps.
type Nodes struct {
	deps Deps
}

func New(deps Deps) (*Nodes, error) {
	if deps.Flows == nil || deps.Records == nil || deps.Moods == nil {
		return nil, fmt.Errorf("nodes: repositories are not set")
	}
	o := deps.Oracles
	if o.Intent == nil || o.Interrupt == nil || o.Text == nil || o.Mood == nil {
		return nil, fmt.Errorf("nodes: oracles are not set")
	}
	if deps.Loader == nil {
		deps.Loader = flow.NewLoader(o.Plan)
	}
	return &Nodes{deps: deps}, nil
}

// NewRouteStartPreHandler stamps the user on graph state for this invocation.
func NewRouteStartPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.UserID = in.UserID
		s.Visits = map[string]int{NodeRouteStart: 1}
		return in, nil
	}
}

// ================ route_start ================

func (n *Nodes) NewRouteStartNode() *compose.Lambda {
	return compose.InvokableLambda(n.RouteStart)
}

// RouteStart opens the turn: it loads the newest pending flow fresh from the
// store and the recent conversation context.
func (n *Nodes) RouteStart(ctx context.Context, in model.QueryInput) (*model.Turn, error) {
	t := &model.Turn{
		UserID:    in.UserID,
		SessionID: in.SessionID,
		Utterance: in.Utterance,
		Path:      []string{NodeRouteStart},
	}

	pending, err := n.deps.Flows.GetPendingFlows(ctx, t.UserID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", t.UserID).Msg("Failed to load pending flows")
		return fail(t, err), nil
	}
	if len(pending) > 1 {
		logx.Warn().Str("user_id", t.UserID).Int("pending", len(pending)).Str("kind", string(errx.KindInvariant)).
			Msg("More than one pending flow; using the most recent")
	}
	if len(pending) > 0 {
		t.Flow = pending[0]
	}
	t.Context = n.deps.Messages.BuildContext(ctx, t.SessionID)
	return t, nil
}

// NewRouteStartCondition picks the first real node of the turn.
func NewRouteStartCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		next := routeStartNext(t)
		logx.Debug().Str("user_id", t.UserID).Str("node", NodeRouteStart).Str("next", next).Msg("Routing")
		return next, nil
	}
}

func routeStartNext(t *model.Turn) string {
	switch {
	case t.Err != nil:
		return NodeFallbackHandler
	case t.Flow == nil:
		return NodeIntentRouter
	case t.Flow.Status == model.StatusAwaitingConfirmation, t.Flow.Exhausted():
		return NodeConfirmationHandler
	default:
		return NodeInterruptDetector
	}
}

// ================ interrupt_detector ================

func (n *Nodes) NewInterruptDetectorNode() *compose.Lambda {
	return compose.InvokableLambda(n.InterruptDetector)
}

// InterruptDetector decides whether an utterance made during a flow answers
// the pending question, resumes a paused flow, or leaves the flow.
func (n *Nodes) InterruptDetector(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Err != nil {
		return t, nil
	}
	f := t.Flow
	if f == nil || f.Exhausted() {
		return fail(t, errx.Invariant("interrupt detector entered without an open step")), nil
	}

	if IsContinuation(t.Utterance) {
		if f.Status == model.StatusPaused {
			f.Status = model.StatusActive
			if err := n.saveFlow(ctx, f); err != nil {
				return fail(t, err), nil
			}
			t.Outcome = model.OutcomeResume
			return t, nil
		}
		t.Outcome = model.OutcomeContinue
		return t, nil
	}

	step := f.Plan.Steps[f.CurrentStep]
	res := n.deps.Oracles.Interrupt.ClassifyInterrupt(ctx, model.InterruptQuery{
		FlowType:  f.FlowType,
		Step:      f.CurrentStep,
		Total:     f.Total(),
		Question:  step.Question,
		Utterance: t.Utterance,
	})
	t.Interrupt = &res
	logx.Debug().Str("user_id", t.UserID).Str("flow_id", f.ID).Bool("is_interruption", res.IsInterruption).
		Str("interrupt_type", string(res.Type)).Float64("confidence", res.Confidence).Msg("Interrupt classified")

	if !res.IsInterruption || res.Confidence <= InterruptConfidenceThreshold {
		if f.Status == model.StatusPaused {
			f.Status = model.StatusActive
		}
		t.Outcome = model.OutcomeContinue
		return t, nil
	}

	if res.Type == model.InterruptCancelFlow {
		f.Status = model.StatusCancelled
		if err := n.saveFlow(ctx, f); err != nil {
			return fail(t, err), nil
		}
		t.Outcome = model.OutcomeCancel
		return t, nil
	}

	f.Status = model.StatusPaused
	if err := n.saveFlow(ctx, f); err != nil {
		return fail(t, err), nil
	}
	t.Nudge = f
	t.ReplyKind = replyKindFor(res.Type)
	t.Outcome = model.OutcomeInterrupt
	return t, nil
}

func replyKindFor(it model.InterruptType) model.ReplyKind {
	switch it {
	case model.InterruptEmotionalSupport:
		return model.ReplyEmotional
	case model.InterruptWebSearch:
		return model.ReplySearch
	}
	return model.ReplyConversational
}

func NewInterruptDetectorCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		switch {
		case t.Err != nil:
			return NodeFallbackHandler, nil
		case t.Outcome == model.OutcomeResume:
			return NodeQuestionAsker, nil
		case t.Outcome == model.OutcomeCancel:
			return NodeIntentRouter, nil
		case t.Outcome == model.OutcomeInterrupt && t.ReplyKind == model.ReplyEmotional:
			return NodeEmotionalSupport, nil
		case t.Outcome == model.OutcomeInterrupt:
			return NodeConversationalReply, nil
		case t.Outcome == model.OutcomeContinue:
			return NodeAnswerCollector, nil
		}
		return NodeFallbackHandler, nil
	}
}

// ================ intent_router ================

func (n *Nodes) NewIntentRouterNode() *compose.Lambda {
	return compose.InvokableLambda(n.IntentRouter)
}

// IntentRouter classifies the utterance; routing happens in the condition.
func (n *Nodes) IntentRouter(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Err != nil {
		return t, nil
	}
	res := n.deps.Oracles.Intent.Classify(ctx, t.Utterance, t.Context)
	t.Intent = &res
	switch res.Intent {
	case model.IntentWebSearch:
		t.ReplyKind = model.ReplySearch
	case model.IntentEmotionalSupport:
		t.ReplyKind = model.ReplyEmotional
	default:
		t.ReplyKind = model.ReplyConversational
	}
	logx.Debug().Str("user_id", t.UserID).Str("intent", string(res.Intent)).Float64("confidence", res.Confidence).
		Bool("degraded", res.Degraded).Msg("Intent classified")
	return t, nil
}

func NewIntentRouterCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		if t.Err != nil || t.Intent == nil || t.Intent.Confidence < IntentConfidenceFloor {
			return NodeFallbackHandler, nil
		}
		if _, ok := t.Intent.Intent.FlowType(); ok {
			return NodeFlowGenerator, nil
		}
		switch t.Intent.Intent {
		case model.IntentEmotionalSupport:
			return NodeEmotionalSupport, nil
		case model.IntentWebSearch, model.IntentCasualChat:
			return NodeConversationalReply, nil
		}
		return NodeFallbackHandler, nil
	}
}

// ================ flow_generator ================

func (n *Nodes) NewFlowGeneratorNode() *compose.Lambda {
	return compose.InvokableLambda(n.FlowGenerator)
}

// FlowGenerator creates a flow for a flow intent, or rebuilds the engine of
// the turn's open flow after an answer was collected.
func (n *Nodes) FlowGenerator(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Err != nil {
		return t, nil
	}

	if t.Flow != nil && !t.Flow.Status.Terminal() {
		e, err := flow.Resume(t.Flow)
		if err != nil {
			return fail(t, errx.Invariant("flow generator: %v", err)), nil
		}
		if e.Complete() {
			t.Outcome = model.OutcomeComplete
		} else {
			t.Outcome = model.OutcomeContinue
		}
		return t, nil
	}

	if t.Intent == nil {
		return fail(t, errx.Invariant("flow generator entered without an intent")), nil
	}
	flowType, ok := t.Intent.Intent.FlowType()
	if !ok {
		return fail(t, errx.Invariant("intent %q does not start a flow", t.Intent.Intent)), nil
	}

	plan, usedFallback := n.deps.Loader.Load(ctx, flowType, t.Utterance)
	now := n.deps.now()
	f := &model.FlowInstance{
		ID:        n.deps.newID(),
		UserID:    t.UserID,
		FlowType:  flowType,
		Plan:      plan,
		Answers:   map[string]string{},
		Status:    model.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := n.deps.Flows.CreateFlow(ctx, f); err != nil {
		if errors.Is(err, model.ErrPendingFlowExists) {
			return fail(t, errx.Invariant("create flow for user %s: %v", t.UserID, err)), nil
		}
		logx.Error().Err(err).Str("user_id", t.UserID).Msg("Failed to create flow")
		return fail(t, err), nil
	}
	logx.Info().Str("user_id", t.UserID).Str("flow_id", f.ID).Str("flow_type", string(flowType)).
		Int("steps", f.Total()).Bool("fallback_plan", usedFallback).Msg("Flow created")

	t.Flow = f
	t.FirstQuestion = true
	t.Outcome = model.OutcomeContinue
	return t, nil
}

func NewFlowGeneratorCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		switch {
		case t.Err != nil:
			return NodeFallbackHandler, nil
		case t.Outcome == model.OutcomeComplete:
			return NodeConfirmationHandler, nil
		}
		return NodeQuestionAsker, nil
	}
}

// ================ question_asker ================

func (n *Nodes) NewQuestionAskerNode() *compose.Lambda {
	return compose.InvokableLambda(n.QuestionAsker)
}

// QuestionAsker renders the pending step. It ends the turn: the answer
// arrives with the next utterance.
func (n *Nodes) QuestionAsker(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Err != nil {
		t.Response = fallbackResponse(t)
		return t, nil
	}
	e, err := flow.Resume(t.Flow)
	if err != nil {
		fail(t, errx.Invariant("question asker: %v", err))
		t.Response = fallbackResponse(t)
		return t, nil
	}
	step, ok := e.NextQuestion()
	if !ok {
		fail(t, errx.Invariant("question asker: flow %s has no pending step", t.Flow.ID))
		t.Response = fallbackResponse(t)
		return t, nil
	}

	var b strings.Builder
	if t.FirstQuestion {
		fmt.Fprintf(&b, firstQuestionText, t.Flow.FlowType)
	}
	b.WriteString(step.Question)
	if step.Type == model.AnswerChoice && len(step.Options) > 0 {
		b.WriteString("\n\nOptions:")
		for i, opt := range step.Options {
			fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
		}
	}
	t.Response = joinReply(t, b.String())
	return t, nil
}

// ================ answer_collector ================

func (n *Nodes) NewAnswerCollectorNode() *compose.Lambda {
	return compose.InvokableLambda(n.AnswerCollector)
}

// AnswerCollector submits the utterance as the answer to the pending step and
// persists the progress.
func (n *Nodes) AnswerCollector(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Err != nil {
		return t, nil
	}
	f := t.Flow
	e, err := flow.Resume(f)
	if err != nil {
		return fail(t, errx.Invariant("answer collector: %v", err)), nil
	}
	if !e.Submit(t.Utterance) {
		t.Outcome = model.OutcomeComplete
		return t, nil
	}

	e.Apply(f)
	if f.Status == model.StatusPaused {
		f.Status = model.StatusActive
	}
	if err := n.saveFlow(ctx, f); err != nil {
		return fail(t, err), nil
	}
	logx.Debug().Str("user_id", t.UserID).Str("flow_id", f.ID).Int("step", f.CurrentStep).Int("total", f.Total()).
		Msg("Answer collected")

	if e.Complete() {
		t.Outcome = model.OutcomeComplete
	} else {
		t.Outcome = model.OutcomeContinue
	}
	return t, nil
}

func NewAnswerCollectorCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		switch {
		case t.Err != nil:
			return NodeFallbackHandler, nil
		case t.Outcome == model.OutcomeComplete:
			return NodeConfirmationHandler, nil
		case t.Outcome == model.OutcomeContinue:
			return NodeFlowGenerator, nil
		}
		return NodeFallbackHandler, nil
	}
}

// ================ confirmation_handler ================

func (n *Nodes) NewConfirmationHandlerNode() *compose.Lambda {
	return compose.InvokableLambda(n.ConfirmationHandler)
}

// ConfirmationHandler shows the summary on first entry, then reads the
// user's yes or no and commits or cancels the flow.
func (n *Nodes) ConfirmationHandler(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Err != nil {
		return t, nil
	}
	f := t.Flow
	e, err := flow.Resume(f)
	if err != nil {
		return fail(t, errx.Invariant("confirmation handler: %v", err)), nil
	}
	if !e.Complete() {
		return fail(t, errx.Invariant("confirmation handler: flow %s has unanswered steps", f.ID)), nil
	}
	prompt := e.Summary() + "\n\n" + ConfirmPromptText

	if f.Status != model.StatusAwaitingConfirmation {
		f.Status = model.StatusAwaitingConfirmation
		if err := n.saveFlow(ctx, f); err != nil {
			return fail(t, err), nil
		}
		t.Response = prompt
		t.Outcome = model.OutcomePrompted
		return t, nil
	}

	reply := ClassifyConfirmation(t.Utterance)
	if reply == ConfirmAmbiguous && n.deps.StrictConfirmation {
		t.Response = prompt
		t.Outcome = model.OutcomePrompted
		return t, nil
	}

	if reply == ConfirmNo {
		f.Status = model.StatusCancelled
		if err := n.saveFlow(ctx, f); err != nil {
			return fail(t, err), nil
		}
		logx.Info().Str("user_id", t.UserID).Str("flow_id", f.ID).Msg("Flow rejected at confirmation")
		t.Notice = RejectedText
		t.Outcome = model.OutcomeRejected
		return t, nil
	}

	if f.FlowType.Committable() {
		id, err := n.deps.Records.CreateRecord(ctx, model.RecordFromFlow(f))
		if err != nil {
			logx.Error().Err(err).Str("user_id", t.UserID).Str("flow_id", f.ID).Msg("Failed to commit record")
			return fail(t, err), nil
		}
		logx.Info().Str("user_id", t.UserID).Str("flow_id", f.ID).Str("record_id", id).
			Str("flow_type", string(f.FlowType)).Msg("Record committed")
	}
	f.Status = model.StatusCompleted
	if err := n.saveFlow(ctx, f); err != nil {
		return fail(t, err), nil
	}
	t.Response = SavedText
	t.Outcome = model.OutcomeConfirmed
	return t, nil
}

func NewConfirmationHandlerCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		switch {
		case t.Err != nil:
			return NodeFallbackHandler, nil
		case t.Outcome == model.OutcomeRejected:
			return NodeIntentRouter, nil
		}
		return compose.END, nil
	}
}
