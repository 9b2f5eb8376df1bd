package main

import (
	"fmt"
	"io"

	"agenticsearch/pkg/pipeline"
	"agenticsearch/pkg/proto"
)

type stageInfo struct {
	stage       proto.Stage
	title       string
	description string
}

//nolint:gochecknoglobals // display table
var stageTable = []stageInfo{
	{proto.StageSanitization, "0. Security Layer", "Sanitization, PII check, rate limiting."},
	{proto.StageRouting, "1. Routing", "Choosing the best agent for the query."},
	{proto.StageSearching, "2. Search & Grounding", "Grounding the answer with web search."},
	{proto.StageDrafting, "3. Drafting", "Generating an initial answer from sources."},
	{proto.StageRefining, "4. Refinement & Verification", "Fact-checking and improving the draft."},
	{proto.StageValidating, "5. Validation", "Checking for accuracy and confidence."},
}

//nolint:gochecknoglobals // display table
var statusMarks = map[proto.StageStatus]string{
	proto.StatusPending:  "[ ]",
	proto.StatusActive:   "[>]",
	proto.StatusComplete: "[x]",
	proto.StatusError:    "[!]",
	proto.StatusSkipped:  "[-]",
}

// progressPrinter writes one line per stage entered and a status summary
// once the query finishes. It reads the state folded by the tracker, so it
// must be registered after it.
type progressPrinter struct {
	w       io.Writer
	tracker *pipeline.Tracker
}

func newProgressPrinter(w io.Writer, tracker *pipeline.Tracker) *progressPrinter {
	return &progressPrinter{w: w, tracker: tracker}
}

func (p *progressPrinter) OnUpdate(u proto.Update) {
	switch u.Stage {
	case proto.StageComplete, proto.StageError:
		p.summary()
	default:
		for _, info := range stageTable {
			if info.stage == u.Stage {
				fmt.Fprintf(p.w, "%s %s: %s\n", statusMarks[proto.StatusActive], info.title, p.describe(info, u.Agent))
			}
		}
	}
}

func (p *progressPrinter) describe(info stageInfo, agent proto.Agent) string {
	if info.stage == proto.StageSearching && agent == proto.AgentGeneral {
		return "Skipped for the General agent."
	}
	return info.description
}

func (p *progressPrinter) summary() {
	state := p.tracker.State()
	fmt.Fprintln(p.w)
	for _, info := range stageTable {
		status := proto.StatusOf(&state, info.stage)
		fmt.Fprintf(p.w, "%s %s\n", statusMarks[status], info.title)
	}
	if state.Stage == proto.StageError {
		fmt.Fprintf(p.w, "\nError: %s\n", state.Error)
	}
	fmt.Fprintln(p.w)
}
