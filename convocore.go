// Package convocore provides a high-level façade over the session manager,
// tool pipeline, workflow executor and protocol adapters that make up the
// decision-and-dispatch core of a multi-agent conversational assistant.
// Most applications interact with this package by:
//  1. Creating a Core via New() (optionally overriding the workflow
//     definition, collaborators and stores)
//  2. Starting sessions through the Voice or Text adapter
//  3. Feeding messages and tool calls through the adapters
//
// All defaults are safe for local development and testing; production
// deployments typically supply a reasoning engine, a tools client, a durable
// memory store and a structured logger.
package convocore

import (
	"github.com/convocore/convocore/adapter"
	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/logging"
	"github.com/convocore/convocore/memory"
	"github.com/convocore/convocore/session"
	"github.com/convocore/convocore/tool"
	"github.com/convocore/convocore/workflow"
)

// Options configures a Core instance.
type Options struct {
	// AgentID identifies the agent this core runs as. Defaults to "triage".
	AgentID string

	// Workflow is the conversation graph; defaults to the built-in triage
	// workflow.
	Workflow *workflow.Definition

	// Collaborators; all optional.
	Evaluator core.DecisionEvaluator
	Engine    core.ReasoningEngine
	Tools     core.ToolsClient

	// LocalToolsURL is the base URL of the banking backend; empty disables
	// banking tools.
	LocalToolsURL string

	// Memories persists session memory snapshots across reconnects.
	// Defaults to an in-memory store.
	Memories memory.Store

	// NewStream acquires the streaming client for voice sessions; nil
	// disables the voice adapter's stream acquisition (voice Start will
	// fail).
	NewStream core.StreamFactory

	// Logger defaults to a no-op.
	Logger logging.Logger
}

// Core aggregates the session manager, pipeline and adapters.
type Core struct {
	Sessions *session.Manager
	Pipeline *tool.Pipeline
	Executor *workflow.Executor
	Voice    *adapter.VoiceAdapter
	Text     *adapter.TextAdapter
}

// New wires a Core from options. Unset services fall back to in-memory or
// no-op implementations.
func New(optFns ...func(o *Options)) *Core {
	opts := Options{
		AgentID:  "triage",
		Workflow: workflow.DefaultDefinition(),
		Memories: memory.NewInMemoryStore(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	executor := workflow.NewExecutor(opts.Workflow, func(o *workflow.ExecutorOptions) {
		o.Evaluator = opts.Evaluator
		o.Logger = opts.Logger
	})

	sessions := session.NewManager(executor, func(o *session.ManagerOptions) {
		o.AgentID = opts.AgentID
		o.Engine = opts.Engine
		o.Logger = opts.Logger
	})

	pipeline := tool.NewPipeline(sessions, func(o *tool.PipelineOptions) {
		if opts.LocalToolsURL != "" {
			o.Banking = tool.NewBankingClient(opts.LocalToolsURL)
		}
		o.Tools = opts.Tools
		o.Logger = opts.Logger
	})

	newStream := opts.NewStream
	voice := adapter.NewVoiceAdapter(sessions, pipeline, newStream, func(o *adapter.VoiceAdapterOptions) {
		o.Memories = opts.Memories
		o.Logger = opts.Logger
	})
	text := adapter.NewTextAdapter(sessions, func(o *adapter.TextAdapterOptions) {
		o.Memories = opts.Memories
		o.Logger = opts.Logger
	})

	return &Core{
		Sessions: sessions,
		Pipeline: pipeline,
		Executor: executor,
		Voice:    voice,
		Text:     text,
	}
}
