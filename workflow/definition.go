// Package workflow implements the declarative conversation graph: node/edge
// definitions loaded once at startup and an executor that derives per-session
// graph state and applies transitions, consulting an external decision
// evaluator at branch points.
package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeType classifies workflow nodes.
type NodeType string

const (
	// NodeStart is the unique entry node of a definition.
	NodeStart NodeType = "start"
	// NodeMessage is a conversational stage with at most one outgoing edge.
	NodeMessage NodeType = "message"
	// NodeDecision branches on labeled edges evaluated in declaration order.
	NodeDecision NodeType = "decision"
	// NodeEnd is a terminal node, optionally carrying an outcome.
	NodeEnd NodeType = "end"
)

// Node is one stage of the conversation graph.
type Node struct {
	ID      string   `yaml:"id" json:"id"`
	Type    NodeType `yaml:"type" json:"type"`
	Label   string   `yaml:"label,omitempty" json:"label,omitempty"`
	Outcome string   `yaml:"outcome,omitempty" json:"outcome,omitempty"`
}

// Edge is a directed, optionally labeled transition between two nodes. At
// decision nodes the label names the condition handed to the evaluator.
type Edge struct {
	From  string `yaml:"from" json:"from"`
	To    string `yaml:"to" json:"to"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Definition is an immutable conversation graph, loaded once and shared by
// all sessions.
type Definition struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Nodes []Node `yaml:"nodes" json:"nodes"`
	Edges []Edge `yaml:"edges" json:"edges"`
}

// Validate checks structural integrity: exactly one start node, unique node
// ids, and edges referencing known nodes.
func (d *Definition) Validate() error {
	ids := make(map[string]NodeType, len(d.Nodes))
	starts := 0
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("workflow %q: node with empty id", d.ID)
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("workflow %q: duplicate node id %q", d.ID, n.ID)
		}
		ids[n.ID] = n.Type
		if n.Type == NodeStart {
			starts++
		}
	}
	if starts != 1 {
		return fmt.Errorf("workflow %q: expected exactly one start node, found %d", d.ID, starts)
	}
	for _, e := range d.Edges {
		if _, ok := ids[e.From]; !ok {
			return fmt.Errorf("workflow %q: edge from unknown node %q", d.ID, e.From)
		}
		if _, ok := ids[e.To]; !ok {
			return fmt.Errorf("workflow %q: edge to unknown node %q", d.ID, e.To)
		}
	}
	return nil
}

// StartNode returns the unique start node id. Call Validate first; an
// invalid definition yields the empty string.
func (d *Definition) StartNode() string {
	for _, n := range d.Nodes {
		if n.Type == NodeStart {
			return n.ID
		}
	}
	return ""
}

// Node returns the node with the given id.
func (d *Definition) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// OutgoingEdges returns the edges leaving a node in declaration order.
// Declaration order is load-bearing: the executor takes the first decision
// edge whose condition evaluates true.
func (d *Definition) OutgoingEdges(id string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Parse decodes a YAML workflow definition and validates it.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads and parses a YAML workflow definition from disk.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow definition: %w", err)
	}
	return Parse(data)
}

// DefaultDefinition returns the built-in triage workflow used when no
// definition file is configured.
func DefaultDefinition() *Definition {
	return &Definition{
		ID:   "triage-default",
		Name: "Triage",
		Nodes: []Node{
			{ID: "start", Type: NodeStart, Label: "Session start"},
			{ID: "greeting", Type: NodeMessage, Label: "Greet the caller"},
			{ID: "route", Type: NodeDecision, Label: "Route by intent"},
			{ID: "banking", Type: NodeMessage, Label: "Banking specialist"},
			{ID: "knowledge", Type: NodeMessage, Label: "Knowledge base"},
			{ID: "wrap_up", Type: NodeMessage, Label: "Wrap up"},
			{ID: "done", Type: NodeEnd, Label: "Conversation complete", Outcome: "resolved"},
		},
		Edges: []Edge{
			{From: "start", To: "greeting"},
			{From: "greeting", To: "route"},
			{From: "route", To: "banking", Label: "banking_intent"},
			{From: "route", To: "knowledge", Label: "knowledge_intent"},
			{From: "banking", To: "wrap_up"},
			{From: "knowledge", To: "wrap_up"},
			{From: "wrap_up", To: "done"},
		},
	}
}
