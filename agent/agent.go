package agent

import (
	"context"

	"github.com/bbiangul/stdreason/citation"
	"github.com/bbiangul/stdreason/retrieval"
)

// Config holds the agent loop's budgets (spec §6).
type Config struct {
	MaxSteps           int
	MaxToolCalls       int
	MaxRetrievalRounds int
	MinEvidenceHits    int
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{
		MaxSteps:           12,
		MaxToolCalls:       4,
		MaxRetrievalRounds: 3,
		MinEvidenceHits:    1,
	}
}

// Agent runs the bounded retrieve-assess-refine controller over a hybrid
// retrieval engine and a citation enforcer.
type Agent struct {
	engine   *retrieval.Engine
	enforcer *citation.Enforcer
	generate citation.GenerateFn
	cfg      Config
}

// New constructs an Agent.
func New(engine *retrieval.Engine, enforcer *citation.Enforcer, generate citation.GenerateFn, cfg Config) *Agent {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 12
	}
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = 4
	}
	if cfg.MaxRetrievalRounds <= 0 {
		cfg.MaxRetrievalRounds = 3
	}
	if cfg.MinEvidenceHits <= 0 {
		cfg.MinEvidenceHits = 1
	}
	return &Agent{engine: engine, enforcer: enforcer, generate: generate, cfg: cfg}
}

// Run executes run_agent(question) per spec §4.8 and §6.
func (a *Agent) Run(ctx context.Context, question string) (*AgentState, error) {
	state := newAgentState(question)

	state.Counters.Steps++ // route
	plan := route(question)
	state.Plan = plan
	state.trace("route", plan.Reason)

	if plan.Action == ActionAnswer {
		state.trace("route", "selected answer directly")
		return a.answerAndVerify(ctx, state)
	}

	for {
		if state.Counters.Steps >= a.cfg.MaxSteps {
			state.StopReason = StopStepBudgetExhausted
			state.trace("budget", "step budget exhausted")
			return a.verifyOrRefuse(state)
		}
		if state.Counters.ToolCalls >= a.cfg.MaxToolCalls {
			state.StopReason = StopToolBudgetExhausted
			state.trace("budget", "tool budget exhausted")
			return a.verifyOrRefuse(state)
		}

		state.Counters.Steps++ // retrieve
		state.Counters.ToolCalls++
		state.Counters.RetrievalRound++
		hits, err := a.retrieveHits(ctx, state.Plan, state.Evidence)
		if err != nil {
			state.trace("retrieve", "error: "+err.Error())
			hits = state.Evidence
		}
		state.Evidence = hits
		state.trace("retrieve", "round complete")

		state.Counters.Steps++ // assess_evidence
		sufficient, reason := assess(question, state.Plan, state.Evidence, a.cfg.MinEvidenceHits)
		state.EvidenceOK = sufficient
		state.StopReason = reason
		state.trace("assess_evidence", string(reason))

		if sufficient {
			return a.answerAndVerify(ctx, state)
		}

		if state.Counters.RetrievalRound >= a.cfg.MaxRetrievalRounds {
			state.StopReason = StopRetrievalRoundsExhausted
			state.trace("budget", "retrieval rounds exhausted")
			return a.verifyOrRefuse(state)
		}

		state.Counters.Steps++ // refine_query
		state.Plan = refineQuery(state.Plan, reason, question)
		state.trace("refine_query", state.Plan.Reason)
	}
}

func (a *Agent) answerAndVerify(ctx context.Context, state *AgentState) (*AgentState, error) {
	state.Counters.Steps++ // answer
	result, err := a.enforcer.BuildCitedAnswer(ctx, state.Question, state.Evidence, a.generate)
	if err != nil {
		state.trace("answer", "error: "+err.Error())
	} else if !result.IsRefusal {
		state.DraftAnswer = result.AnswerText
		state.Citations = result.Citations
	}
	state.trace("answer", "draft built")
	return a.verifyOrRefuse(state)
}

// verifyOrRefuse is the single exit node: it refuses with the
// highest-priority applicable reason, or finalizes the draft.
func (a *Agent) verifyOrRefuse(state *AgentState) (*AgentState, error) {
	state.Counters.Steps++ // verify_or_refuse

	switch {
	case state.StopReason != StopSufficientEvidence:
		state.RefusalReason = RefusalReason(state.StopReason)
	case state.DraftAnswer == "":
		state.RefusalReason = RefusalEmptyDraftAnswer
	case len(state.Evidence) == 0:
		state.RefusalReason = RefusalEmptyEvidence
	case len(state.Citations) == 0:
		state.RefusalReason = RefusalMissingCitations
	}

	if state.RefusalReason != "" {
		state.FinalAnswer = citation.CanonicalRefusal
		state.Citations = nil
		state.trace("verify_or_refuse", "refused ("+string(state.RefusalReason)+")")
		return state, nil
	}

	state.FinalAnswer = state.DraftAnswer
	state.trace("verify_or_refuse", "finalized")
	return state, nil
}
