// Package handoff assembles hand-off requests: the target agent, the
// conversational context that travels with the transfer, and the graph-state
// snapshot at hand-off time.
package handoff

import (
	"fmt"
	"strings"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/workflow"
)

const (
	// ToolReturnToTriage returns an escalated conversation to the triage agent.
	ToolReturnToTriage = "return_to_triage"
	// TransferPrefix marks transfer tools; the suffix names the target agent.
	TransferPrefix = "transfer_to_"
	// TriageAgentID is the target of every return_to_triage hand-off.
	TriageAgentID = "triage"

	// DefaultReason is used when neither the tool input nor the session
	// supplies a transfer reason.
	DefaultReason = "User needs specialist assistance"
)

// IsHandoffTool reports whether a tool name belongs to the hand-off category.
func IsHandoffTool(name string) bool {
	return name == ToolReturnToTriage || strings.HasPrefix(name, TransferPrefix)
}

// Assembler builds HandoffRequests from session state. It never mutates the
// session.
type Assembler struct {
	agentID  string
	executor *workflow.Executor
}

// NewAssembler creates an assembler acting on behalf of the given agent.
func NewAssembler(agentID string, executor *workflow.Executor) *Assembler {
	return &Assembler{agentID: agentID, executor: executor}
}

// AgentID returns the id this assembler stamps into context.fromAgent.
func (a *Assembler) AgentID() string { return a.agentID }

// FromTool builds a hand-off from a hand-off tool invocation. For
// return_to_triage, taskCompleted and summary are required and validated
// before any state is touched. For transfer_to_* tools the reason is
// resolved as: explicit input reason, then session user intent, then
// DefaultReason.
func (a *Assembler) FromTool(s *core.Session, toolName string, input map[string]any) (core.HandoffRequest, error) {
	if toolName == ToolReturnToTriage {
		task := stringField(input, "taskCompleted")
		summary := stringField(input, "summary")
		if task == "" {
			return core.HandoffRequest{}, fmt.Errorf("return_to_triage requires a non-empty taskCompleted field")
		}
		if summary == "" {
			return core.HandoffRequest{}, fmt.Errorf("return_to_triage requires a non-empty summary field")
		}
		req := a.assemble(s, TriageAgentID, "")
		req.Context.IsReturn = true
		req.Context.TaskCompleted = task
		req.Context.Summary = summary
		return req, nil
	}

	target := strings.TrimPrefix(toolName, TransferPrefix)
	if target == "" || target == toolName {
		return core.HandoffRequest{}, fmt.Errorf("tool %q is not a hand-off tool", toolName)
	}

	reason := stringField(input, "reason")
	if reason == "" {
		reason = s.UserIntent()
	}
	if reason == "" {
		reason = DefaultReason
	}
	return a.assemble(s, target, reason), nil
}

// Direct synthesizes a hand-off without a prior tool invocation, as used by
// the session manager's requestHandoff operation.
func (a *Assembler) Direct(s *core.Session, targetAgentID, reason string) core.HandoffRequest {
	if reason == "" {
		reason = s.UserIntent()
	}
	if reason == "" {
		reason = DefaultReason
	}
	return a.assemble(s, targetAgentID, reason)
}

// assemble applies the context enrichment common to all hand-off shapes.
func (a *Assembler) assemble(s *core.Session, target, reason string) core.HandoffRequest {
	ctx := core.HandoffContext{FromAgent: a.agentID, Reason: reason}
	if vu := s.VerifiedUser(); vu != nil {
		ctx.Verified = true
		ctx.UserName = vu.CustomerName
		ctx.Account = vu.Account
		ctx.SortCode = vu.SortCode
	}
	if intent := s.UserIntent(); intent != "" {
		ctx.UserIntent = intent
	}
	if last, ok := s.LastUserMessage(); ok {
		ctx.LastUserMessage = last
	}
	return core.HandoffRequest{
		TargetAgentID: target,
		Context:       ctx,
		GraphState:    a.executor.GraphState(s),
	}
}

// stringField extracts a non-nil string field from tool input.
func stringField(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}
