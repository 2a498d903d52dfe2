// Package agent implements the bounded retrieve-assess-refine controller
// (spec §4.8): a small finite state machine that routes a question,
// retrieves and assesses evidence, refines the query under budget, and
// either answers through the citation enforcer or refuses with an
// explicit reason.
package agent

import (
	"github.com/google/uuid"

	"github.com/bbiangul/stdreason/citation"
	"github.com/bbiangul/stdreason/retrieval"
)

// Action names the router's chosen next step.
type Action string

const (
	ActionRetrieve           Action = "retrieve"
	ActionAnswer             Action = "answer"
	ActionVerifyOrRefuse     Action = "verify_or_refuse"
	ActionRetrieveDefinition Action = "resolve_definition"
	ActionRetrieveCompare    Action = "compare"
)

// Plan is the router's decision for one controller step.
type Plan struct {
	Action   Action
	Reason   string
	Query    string
	Args     map[string]string
	ModeHint string
}

// StopReason enumerates why assessment or budget ended the retrieval loop.
type StopReason string

const (
	StopSufficientEvidence        StopReason = "sufficient_evidence"
	StopInsufficientHits          StopReason = "insufficient_hits"
	StopAnchorMissing             StopReason = "anchor_missing"
	StopCompareDocDiversityMiss   StopReason = "compare_doc_diversity_missing"
	StopStepBudgetExhausted       StopReason = "step_budget_exhausted"
	StopToolBudgetExhausted       StopReason = "tool_budget_exhausted"
	StopRetrievalRoundsExhausted  StopReason = "retrieval_rounds_exhausted"
)

// RefusalReason enumerates why verify_or_refuse emitted a refusal.
type RefusalReason string

const (
	RefusalEmptyDraftAnswer RefusalReason = "empty_draft_answer"
	RefusalEmptyEvidence    RefusalReason = "empty_evidence"
	RefusalMissingCitations RefusalReason = "missing_citations"
)

// Counters tracks the agent's monotonically non-decreasing budget usage.
type Counters struct {
	Steps          int
	ToolCalls      int
	RetrievalRound int
}

// TraceEntry is one node transition in the controller's run, mirroring
// the original implementation's structured step trace: a node name, its
// monotonic step index within the run, and a short human-readable summary.
type TraceEntry struct {
	Step    int
	Node    string
	Summary string
}

// AgentState is the per-query controller state (spec §3); discarded after
// the final answer. SessionID identifies one run_agent invocation for
// correlating trace entries and logs; it has no meaning across runs.
type AgentState struct {
	SessionID     string
	Question      string
	Plan          Plan
	Evidence      []retrieval.ChunkHit
	Citations     []citation.Citation
	DraftAnswer   string
	FinalAnswer   string
	Counters      Counters
	EvidenceOK    bool
	StopReason    StopReason
	RefusalReason RefusalReason
	Trace         []TraceEntry
}

func newAgentState(question string) *AgentState {
	return &AgentState{SessionID: uuid.NewString(), Question: question}
}

func (s *AgentState) trace(node, summary string) {
	s.Trace = append(s.Trace, TraceEntry{Step: len(s.Trace) + 1, Node: node, Summary: summary})
}
