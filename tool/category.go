// Package tool implements the tool execution pipeline: it classifies a tool
// name into its backend category, validates input shape, routes to the
// correct backend and normalizes every failure into a ToolExecutionResult.
package tool

import "github.com/convocore/convocore/handoff"

// Category is the backend a tool routes to. Classification happens once per
// call and is then exhaustively switched on.
type Category int

const (
	// CategoryHandoff covers transfer_to_* and return_to_triage.
	CategoryHandoff Category = iota
	// CategoryBanking covers the fixed verification/banking tool set served
	// by the local tools backend over HTTP.
	CategoryBanking
	// CategoryLocal covers everything else: knowledge-base and generic local
	// tools served by the tools client collaborator.
	CategoryLocal
)

// String returns the category name for logging.
func (c Category) String() string {
	switch c {
	case CategoryHandoff:
		return "handoff"
	case CategoryBanking:
		return "banking"
	case CategoryLocal:
		return "local"
	default:
		return "unknown"
	}
}

// ToolIdentityCheck verifies the caller's identity against the banking
// backend; success stores verified-user data on the session.
const ToolIdentityCheck = "perform_idv_check"

// bankingTools is the fixed set routed to the banking backend.
var bankingTools = map[string]struct{}{
	ToolIdentityCheck:         {},
	"check_balance":           {},
	"get_transaction_history": {},
	"find_nearest_branch":     {},
}

// Classify maps a tool name to its backend category.
func Classify(name string) Category {
	if handoff.IsHandoffTool(name) {
		return CategoryHandoff
	}
	if _, ok := bankingTools[name]; ok {
		return CategoryBanking
	}
	return CategoryLocal
}
