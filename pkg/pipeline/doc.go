// Package pipeline runs a query through the agentic search stages:
// screening, routing, grounded or plain drafting, refinement and
// validation. Each stage is a small type around one model client; the
// Orchestrator sequences them and reports progress to a proto.Observer.
package pipeline
