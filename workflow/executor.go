package workflow

import (
	"context"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/logging"
)

// Executor walks sessions through a shared Definition. At decision nodes it
// consults the configured DecisionEvaluator; at start/message nodes a single
// outgoing edge is taken automatically. A stalled transition (no edge
// matched) is reported, never raised.
type Executor struct {
	def       *Definition
	evaluator core.DecisionEvaluator
	logger    logging.Logger
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Evaluator decides labeled edges at decision nodes. When nil, decision
	// nodes always stall.
	Evaluator core.DecisionEvaluator
	// Logger defaults to a no-op.
	Logger logging.Logger
}

// NewExecutor creates an executor over an already validated definition.
func NewExecutor(def *Definition, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{def: def, evaluator: opts.Evaluator, logger: logging.OrNoOp(opts.Logger)}
}

// Definition returns the shared workflow definition.
func (e *Executor) Definition() *Definition { return e.def }

// StartNode returns the id of the graph's entry node.
func (e *Executor) StartNode() string { return e.def.StartNode() }

// GraphState derives the graph-state snapshot for a session without mutating
// it.
func (e *Executor) GraphState(s *core.Session) core.GraphState {
	return core.GraphState{
		SessionID:        s.ID,
		CurrentNode:      s.CurrentNode,
		MessageCount:     s.MessageCount(),
		SessionStartTime: s.StartTime,
	}
}

// Advance attempts one transition from the session's current node. It
// returns the resulting graph state and whether the session moved. End nodes
// and unmatched decision nodes do not advance; only evaluator failures are
// returned as errors.
func (e *Executor) Advance(ctx context.Context, s *core.Session) (core.GraphState, bool, error) {
	node, ok := e.def.Node(s.CurrentNode)
	if !ok {
		// The session records an unknown node id; nothing to transition from.
		return e.GraphState(s), false, nil
	}

	switch node.Type {
	case NodeEnd:
		return e.GraphState(s), false, nil

	case NodeDecision:
		state := e.GraphState(s)
		if e.evaluator == nil {
			return state, false, nil
		}
		for _, edge := range e.def.OutgoingEdges(node.ID) {
			take, err := e.evaluator.Evaluate(ctx, edge.Label, state, s)
			if err != nil {
				return state, false, err
			}
			if take {
				s.CurrentNode = edge.To
				e.logger.Debug("workflow.transition", "session_id", s.ID, "from", node.ID, "to", edge.To, "condition", edge.Label)
				return e.GraphState(s), true, nil
			}
		}
		e.logger.Debug("workflow.stalled", "session_id", s.ID, "node", node.ID)
		return state, false, nil

	case NodeStart, NodeMessage:
		edges := e.def.OutgoingEdges(node.ID)
		if len(edges) == 0 {
			return e.GraphState(s), false, nil
		}
		s.CurrentNode = edges[0].To
		e.logger.Debug("workflow.transition", "session_id", s.ID, "from", node.ID, "to", edges[0].To)
		return e.GraphState(s), true, nil
	}

	return e.GraphState(s), false, nil
}
