// Package model groups the reasoning-engine implementations. Each
// sub-package adapts one LLM provider SDK to the core.ReasoningEngine
// contract; provider failures are returned as errors for the session manager
// to map into error responses.
package model
