// Package core defines the shared domain types of convocore: conversation
// sessions, tool execution results, hand-off requests, workflow graph state
// snapshots and the adapter event model, together with the contracts of the
// external collaborators (tools client, decision evaluator, reasoning engine,
// streaming client, transport) that the decision-and-dispatch core calls into
// but does not implement.
package core
