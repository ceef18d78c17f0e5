package tool

import (
	"context"
	"time"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/logging"
	"github.com/convocore/convocore/session"
)

// ErrInputShape is the error text for tool input that is not an object.
const ErrInputShape = "Tool input must be an object"

// HandoffInitiatedMessage is the message carried by a successful hand-off
// tool result.
const HandoffInitiatedMessage = "Handoff initiated"

// Pipeline executes tool invocations on behalf of a session. Every failure
// mode is returned as data; ExecuteTool never panics and never returns a Go
// error. Validation precedence is fixed: session lookup, then input shape,
// then category-specific logic.
type Pipeline struct {
	sessions *session.Manager
	banking  *BankingClient
	tools    core.ToolsClient
	logger   logging.Logger
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	// Banking serves the verification/banking tool set. When nil, banking
	// tools fail with a descriptive error.
	Banking *BankingClient
	// Tools serves knowledge-base and generic local tools. When nil, local
	// tools fail with a descriptive error.
	Tools core.ToolsClient
	// Logger defaults to a no-op.
	Logger logging.Logger
}

// NewPipeline creates a pipeline over the given session manager.
func NewPipeline(sessions *session.Manager, optFns ...func(o *PipelineOptions)) *Pipeline {
	opts := PipelineOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{
		sessions: sessions,
		banking:  opts.Banking,
		tools:    opts.Tools,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// ExecuteTool runs one tool invocation for a session and returns the
// normalized result.
func (p *Pipeline) ExecuteTool(ctx context.Context, sessionID, toolName string, toolInput any, toolUseID string) core.ToolExecutionResult {
	start := time.Now()
	res := p.execute(ctx, sessionID, toolName, toolInput)
	logging.LogToolCall(p.logger, sessionID, toolName, time.Since(start), res.Success, res.Error)
	_ = toolUseID // correlation only; carried by the adapters' result events
	return res
}

func (p *Pipeline) execute(ctx context.Context, sessionID, toolName string, toolInput any) core.ToolExecutionResult {
	// Session lookup precedes input validation.
	s, ok := p.sessions.GetSession(sessionID)
	if !ok {
		return core.Failure(session.ErrSessionNotFound.Error())
	}

	if !validInputShape(toolInput) {
		return core.Failure(ErrInputShape)
	}

	switch Classify(toolName) {
	case CategoryHandoff:
		req, err := p.sessions.Assembler().FromTool(s, toolName, inputFields(toolInput))
		if err != nil {
			return core.Failure(err.Error())
		}
		logging.LogHandoff(p.logger, sessionID, p.sessions.AgentID(), req.TargetAgentID)
		return core.Succeed(&core.HandoffResult{
			Message:        HandoffInitiatedMessage,
			ToolName:       toolName,
			HandoffRequest: req,
		})

	case CategoryBanking:
		if p.banking == nil {
			return core.Failure("banking backend not configured for tool " + toolName)
		}
		// The payload is passed through untouched; the backend is
		// authoritative for banking validation.
		payload, err := p.banking.Execute(ctx, toolName, toolInput)
		if err != nil {
			return core.Failure(err.Error())
		}
		if toolName == ToolIdentityCheck {
			p.applyVerification(s, inputFields(toolInput), payload)
		}
		return core.Succeed(payload)

	case CategoryLocal:
		if p.tools == nil {
			return core.Failure("no tools client configured for tool " + toolName)
		}
		payload, err := p.tools.ExecuteTool(ctx, toolName, toolInput)
		if err != nil {
			return core.Failure(err.Error())
		}
		return core.Succeed(payload)
	}

	return core.Failure("unknown tool category for " + toolName)
}

// applyVerification stores verified-user data when the identity-check backend
// reports a verified auth status.
func (p *Pipeline) applyVerification(s *core.Session, input map[string]any, payload any) {
	fields, ok := payload.(map[string]any)
	if !ok {
		return
	}
	status, _ := fields["auth_status"].(string)
	if status != core.AuthStatusVerified {
		return
	}
	name, _ := fields["customer_name"].(string)
	account, _ := input["accountNumber"].(string)
	sortCode, _ := input["sortCode"].(string)
	s.SetVerifiedUser(&core.VerifiedUser{
		CustomerName: name,
		Account:      account,
		SortCode:     sortCode,
		AuthStatus:   core.AuthStatusVerified,
	})
	p.logger.Info("session.identity_verified", "session_id", s.ID, "customer_name", name)
}

// validInputShape accepts any JSON object-like value. Arrays qualify (they
// carry no named fields but are forwarded intact); nil and primitives are
// rejected.
func validInputShape(toolInput any) bool {
	switch toolInput.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// inputFields extracts the named fields of an object input; array inputs have
// none.
func inputFields(toolInput any) map[string]any {
	if fields, ok := toolInput.(map[string]any); ok {
		return fields
	}
	return map[string]any{}
}
