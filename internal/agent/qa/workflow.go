// Package qa implements the self-correcting question-answering workflow:
// retrieve relevant passages, generate an answer grounded in them, judge
// the answer for groundedness and relevance, and rewrite-and-retry when a
// judge rejects it, under a bounded retry budget.
package qa

import "fmt"

// Step is one state of the workflow. Steps always execute in the order the
// transition function dictates; nothing here is driven by string keys.
type Step int

const (
	StepEntry Step = iota
	StepRetrieve
	StepGenerate
	StepTransformQuery
	StepAccept
)

func (s Step) String() string {
	switch s {
	case StepEntry:
		return "entry"
	case StepRetrieve:
		return "retrieve"
	case StepGenerate:
		return "generate"
	case StepTransformQuery:
		return "transform_query"
	case StepAccept:
		return "accept"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Verdict is the routing event produced by the grading decision after the
// generate step. All other steps advance unconditionally.
type Verdict int

const (
	VerdictAdvance Verdict = iota
	VerdictUseful
	VerdictNotUseful
)

func (v Verdict) String() string {
	switch v {
	case VerdictUseful:
		return "useful"
	case VerdictNotUseful:
		return "not useful"
	default:
		return "advance"
	}
}

// NextStep is the pure transition function of the workflow. It needs no
// model to be exercised: entry→retrieve→generate, then the verdict routes
// to accept or to transform_query, which loops back into retrieve.
func NextStep(s Step, v Verdict) (Step, error) {
	switch s {
	case StepEntry:
		return StepRetrieve, nil
	case StepRetrieve:
		return StepGenerate, nil
	case StepGenerate:
		switch v {
		case VerdictUseful:
			return StepAccept, nil
		case VerdictNotUseful:
			return StepTransformQuery, nil
		}
		return 0, fmt.Errorf("generate requires a grading verdict, got %s", v)
	case StepTransformQuery:
		return StepRetrieve, nil
	}
	return 0, fmt.Errorf("no transition from step %s", s)
}
