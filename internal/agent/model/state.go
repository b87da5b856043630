package model

import "time"

// Exchange is one prior question/answer pair of a conversation.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Passage is a retrieved unit of document text plus provenance metadata.
type Passage struct {
	Content    string `json:"content"`
	SourceFile string `json:"source_file"`
	FileName   string `json:"file_name"`
}

// QAState is the mutable record threaded through every step of one QA
// workflow run. It is created fresh per request and discarded once the
// final answer is extracted; nothing in it survives across turns.
//
// Invariants maintained by the workflow:
//   - RecursionCount never decreases and never exceeds the ceiling.
//   - Documents always hold the result of the most recent retrieval for
//     the current Question.
//   - Generation is derived from the current Documents/Question pair.
type QAState struct {
	Question       string
	Generation     string
	Documents      []Passage
	History        []Exchange
	RecursionCount int
	LastStepTime   time.Time
}

// OutputKind tags what the sandbox captured: free text or something that
// parsed as a delimited table.
type OutputKind string

const (
	OutputText  OutputKind = "text"
	OutputTable OutputKind = "table"
)

// Table is a parsed tabular execution result.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ExecutionResult is the structured outcome of running generated code.
// Errors raised during execution are part of Output, never a Go error.
type ExecutionResult struct {
	Kind   OutputKind `json:"kind"`
	Output string     `json:"output"`
	Table  *Table     `json:"table,omitempty"`
}

// Plan holds the ordered natural-language steps produced by the planning
// stage. When the model output does not parse as a list, Steps is empty
// and Raw carries the unparsed text so downstream prompts can still use it.
type Plan struct {
	Steps []string
	Raw   string
}

// Text returns the best available textual form of the plan.
func (p Plan) Text() string {
	if len(p.Steps) == 0 {
		return p.Raw
	}
	var out string
	for i, s := range p.Steps {
		if i > 0 {
			out += "\n"
		}
		out += s
	}
	return out
}

// AnalysisState is the record threaded through the data-analysis pipeline.
// The pipeline is strictly linear; each field is written exactly once.
type AnalysisState struct {
	Question     string
	Plan         Plan
	Code         string
	Execution    ExecutionResult
	Generation   string
	LastStepTime time.Time
}
