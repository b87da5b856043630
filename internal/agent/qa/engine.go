package qa

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuchat/server/internal/agent/llm"
	"github.com/docuchat/server/internal/agent/model"
	"github.com/docuchat/server/internal/agent/prompts"
	errx "github.com/docuchat/server/internal/core/error"
	logx "github.com/docuchat/server/pkg/logger"
)

// fallbackAnswer substitutes an empty gateway response so grading never
// operates on an empty answer.
const fallbackAnswer = "I could not generate a response."

// StepObserver receives the duration of each executed workflow step.
type StepObserver func(step string, d time.Duration)

// Result is what the workflow hands back to its caller.
type Result struct {
	Answer      string
	SourceFiles []string
}

// Engine runs the QA workflow. It holds only collaborators and settings;
// all per-request state lives in a QAState constructed inside Run, so one
// Engine serves concurrent requests safely.
type Engine struct {
	retriever        model.Retriever
	generator        llm.Gateway
	grader           llm.Gateway
	topK             int
	recursionCeiling int
	observe          StepObserver
	log              zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStepObserver wires per-step duration instrumentation (e.g. a
// metrics histogram) into the engine.
func WithStepObserver(obs StepObserver) Option {
	return func(e *Engine) { e.observe = obs }
}

// WithRecursionCeiling overrides the retry budget.
func WithRecursionCeiling(n int) Option {
	return func(e *Engine) { e.recursionCeiling = n }
}

// WithTopK overrides how many passages each retrieval pass requests.
func WithTopK(k int) Option {
	return func(e *Engine) { e.topK = k }
}

func NewEngine(retriever model.Retriever, generator, grader llm.Gateway, opts ...Option) *Engine {
	e := &Engine{
		retriever:        retriever,
		generator:        generator,
		grader:           grader,
		topK:             3,
		recursionCeiling: 2,
		log:              logx.With("qa_workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the workflow for one question. The supplied history is
// read-only context the caller has already truncated to its window; a
// malformed history degrades to empty rather than failing.
func (e *Engine) Run(ctx context.Context, question string, history []model.Exchange) (*Result, error) {
	state := &model.QAState{
		Question: question,
		History:  sanitizeHistory(history),
	}

	// Safety net over the recursion ceiling so a routing bug can never
	// loop forever. A full run is entry plus one retrieve/generate pass
	// per permitted attempt with a transform between them.
	maxSteps := 3*(e.recursionCeiling+1) + 2

	step := StepEntry
	for i := 0; step != StepAccept; i++ {
		if i >= maxSteps {
			return nil, fmt.Errorf("workflow exceeded %d steps at %s", maxSteps, step)
		}

		started := time.Now()
		verdict := VerdictAdvance
		var err error

		switch step {
		case StepEntry:
			e.enter(state)
		case StepRetrieve:
			err = e.retrieve(ctx, state)
		case StepGenerate:
			if err = e.generate(ctx, state); err == nil {
				verdict, err = e.grade(ctx, state)
			}
		case StepTransformQuery:
			err = e.transformQuery(ctx, state)
		}
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step, err)
		}

		e.finishStep(state, step, started, verdict)

		if step, err = NextStep(step, verdict); err != nil {
			return nil, err
		}
	}

	return &Result{
		Answer:      state.Generation,
		SourceFiles: SourceFiles(state.Documents),
	}, nil
}

// RunStream retrieves passages for the question and opens a stream of the
// generated answer. Streaming trades the grading loop for latency: fragments
// go out as they arrive, so there is nothing left to judge or retry. The
// returned source names are for the caller to append once the stream is
// drained.
func (e *Engine) RunStream(ctx context.Context, question string, history []model.Exchange) (llm.TextStream, []string, error) {
	docs, err := e.retriever.Query(ctx, question, e.topK)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve: %w", err)
	}

	var docText strings.Builder
	for _, d := range docs {
		docText.WriteString(d.Content)
	}
	prompt, err := prompts.Generator(ctx, formatHistory(sanitizeHistory(history)), docText.String(), question)
	if err != nil {
		return nil, nil, err
	}

	stream, err := e.generator.Stream(ctx, prompt)
	if err != nil {
		e.log.Debug().Err(err).Msg("streaming unavailable, answering with one blocking call")
		text, invErr := e.generator.Invoke(ctx, prompt)
		if invErr != nil {
			return nil, nil, fmt.Errorf("generate: %w", errx.WrapBackend(invErr))
		}
		stream = &singleFragmentStream{text: text}
	}
	return stream, SourceFiles(docs), nil
}

// singleFragmentStream presents a blocking response as a one-fragment
// stream so callers keep a single consumption path.
type singleFragmentStream struct {
	text string
	done bool
}

func (s *singleFragmentStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.text, nil
}

func (s *singleFragmentStream) Close() {}

func (e *Engine) finishStep(state *model.QAState, step Step, started time.Time, verdict Verdict) {
	elapsed := time.Since(started)
	ev := e.log.Debug().
		Str("step", step.String()).
		Dur("duration", elapsed).
		Int("recursion_count", state.RecursionCount)
	if step == StepGenerate {
		ev = ev.Str("verdict", verdict.String())
	}
	ev.Msg("QA workflow step finished")
	state.LastStepTime = time.Now()
	if e.observe != nil {
		e.observe(step.String(), elapsed)
	}
}

func (e *Engine) enter(state *model.QAState) {
	state.Documents = nil
	state.RecursionCount = 0
}

func (e *Engine) retrieve(ctx context.Context, state *model.QAState) error {
	docs, err := e.retriever.Query(ctx, state.Question, e.topK)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	state.Documents = docs
	return nil
}

func (e *Engine) generate(ctx context.Context, state *model.QAState) error {
	var docText strings.Builder
	for _, d := range state.Documents {
		docText.WriteString(d.Content)
	}

	prompt, err := prompts.Generator(ctx, formatHistory(state.History), docText.String(), state.Question)
	if err != nil {
		return err
	}

	text, err := llm.Complete(ctx, e.generator, prompt)
	if err != nil {
		return fmt.Errorf("generate: %w", errx.WrapBackend(err))
	}
	if strings.TrimSpace(text) == "" {
		text = fallbackAnswer
	}

	if sources := FormatSources(state.Documents); sources != "" {
		text = text + "\n\n" + sources
	}
	state.Generation = text
	return nil
}

// grade decides whether the current generation is accepted. The retry
// budget is checked first: once the ceiling is reached the generation is
// accepted regardless of what the judges would say. Otherwise groundedness
// gates relevance, and any ambiguous judge output counts as a rejection.
func (e *Engine) grade(ctx context.Context, state *model.QAState) (Verdict, error) {
	if state.RecursionCount >= e.recursionCeiling {
		e.log.Debug().
			Int("recursion_count", state.RecursionCount).
			Msg("recursion ceiling reached, accepting generation")
		return VerdictUseful, nil
	}

	parts := make([]string, 0, len(state.Documents))
	for _, d := range state.Documents {
		parts = append(parts, d.Content)
	}
	documents := strings.Join(parts, " ")
	generation := StripSources(state.Generation)
	conversation := formatHistory(state.History)

	prompt, err := prompts.Groundedness(ctx, documents, conversation, generation)
	if err != nil {
		return 0, err
	}
	out, err := llm.Complete(ctx, e.grader, prompt)
	if err != nil {
		return 0, fmt.Errorf("groundedness judge: %w", errx.WrapBackend(err))
	}
	if grounded := llm.ParseGrade(out); !grounded.Passed() {
		e.log.Debug().Str("grade", grounded.String()).Msg("failed groundedness check")
		return VerdictNotUseful, nil
	}

	prompt, err = prompts.Relevance(ctx, state.Question, generation, conversation)
	if err != nil {
		return 0, err
	}
	out, err = llm.Complete(ctx, e.grader, prompt)
	if err != nil {
		return 0, fmt.Errorf("relevance judge: %w", errx.WrapBackend(err))
	}
	relevant := llm.ParseGrade(out)
	e.log.Debug().Str("grade", relevant.String()).Msg("relevance check")
	if !relevant.Passed() {
		return VerdictNotUseful, nil
	}
	return VerdictUseful, nil
}

func (e *Engine) transformQuery(ctx context.Context, state *model.QAState) error {
	prompt, err := prompts.Rewrite(ctx, state.Question)
	if err != nil {
		return err
	}
	rewritten, err := llm.Complete(ctx, e.grader, prompt)
	if err != nil {
		return fmt.Errorf("rewrite: %w", errx.WrapBackend(err))
	}
	if trimmed := strings.TrimSpace(rewritten); trimmed != "" {
		e.log.Debug().
			Str("original", state.Question).
			Str("rewritten", trimmed).
			Msg("query rewritten")
		state.Question = trimmed
	}
	state.RecursionCount++
	return nil
}
