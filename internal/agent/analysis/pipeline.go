// Package analysis implements the LLM-assisted exploratory data-analysis
// pipeline: plan the analysis, generate code for it, execute the code in a
// sandbox, and interpret the captured results. The pipeline is strictly
// linear; a failed execution is interpreted, not retried.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuchat/server/internal/agent/llm"
	"github.com/docuchat/server/internal/agent/model"
	"github.com/docuchat/server/internal/agent/prompts"
	errx "github.com/docuchat/server/internal/core/error"
	logx "github.com/docuchat/server/pkg/logger"
)

// noResultAnswer is returned when interpretation produced nothing at all.
const noResultAnswer = "I'm sorry, I could not produce an analysis for this question."

// sampleValuesPerColumn bounds the distinct values shown to the code model.
const sampleValuesPerColumn = 10

// Stage is one state of the pipeline.
type Stage int

const (
	StagePlan Stage = iota
	StageGenerateCode
	StageExecuteCode
	StageAnalyzeResults
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StagePlan:
		return "plan"
	case StageGenerateCode:
		return "generate_code"
	case StageExecuteCode:
		return "execute_code"
	case StageAnalyzeResults:
		return "analyze_results"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// NextStage is the pipeline's transition function. There is no branching:
// each stage's output feeds the next stage monotonically.
func NextStage(s Stage) (Stage, error) {
	switch s {
	case StagePlan:
		return StageGenerateCode, nil
	case StageGenerateCode:
		return StageExecuteCode, nil
	case StageExecuteCode:
		return StageAnalyzeResults, nil
	case StageAnalyzeResults:
		return StageDone, nil
	}
	return 0, fmt.Errorf("no transition from stage %s", s)
}

// Result is the pipeline's caller-facing output.
type Result struct {
	Answer string
}

// Pipeline orchestrates one analysis run. Like the QA engine it holds only
// collaborators; per-request state is built inside Run.
type Pipeline struct {
	gateway llm.Gateway
	dataset *Dataset
	sandbox model.Sandbox
	observe func(stage string, d time.Duration)
	log     zerolog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithStageObserver wires per-stage duration instrumentation.
func WithStageObserver(obs func(stage string, d time.Duration)) PipelineOption {
	return func(p *Pipeline) { p.observe = obs }
}

func NewPipeline(gateway llm.Gateway, dataset *Dataset, sandbox model.Sandbox, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		gateway: gateway,
		dataset: dataset,
		sandbox: sandbox,
		log:     logx.With("analysis_pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline for one question against the fixed dataset.
func (p *Pipeline) Run(ctx context.Context, question string) (*Result, error) {
	state := &model.AnalysisState{Question: question}

	for stage := StagePlan; stage != StageDone; {
		started := time.Now()
		var err error
		switch stage {
		case StagePlan:
			err = p.plan(ctx, state)
		case StageGenerateCode:
			err = p.generateCode(ctx, state)
		case StageExecuteCode:
			p.executeCode(ctx, state)
		case StageAnalyzeResults:
			err = p.analyzeResults(ctx, state)
		}
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage, err)
		}

		elapsed := time.Since(started)
		p.log.Debug().
			Str("stage", stage.String()).
			Dur("duration", elapsed).
			Msg("analysis pipeline stage finished")
		state.LastStepTime = time.Now()
		if p.observe != nil {
			p.observe(stage.String(), elapsed)
		}

		if stage, err = NextStage(stage); err != nil {
			return nil, err
		}
	}

	return &Result{Answer: state.Generation}, nil
}

func (p *Pipeline) plan(ctx context.Context, state *model.AnalysisState) error {
	prompt, err := prompts.Plan(ctx, state.Question,
		strings.Join(p.dataset.Columns(), ", "), p.dataset.ColumnTypes())
	if err != nil {
		return err
	}
	out, err := llm.Complete(ctx, p.gateway, prompt)
	if err != nil {
		return fmt.Errorf("plan: %w", errx.WrapBackend(err))
	}
	state.Plan = ParsePlan(out)
	if len(state.Plan.Steps) == 0 {
		p.log.Warn().Msg("plan output did not parse as a list, keeping raw text")
	}
	return nil
}

func (p *Pipeline) generateCode(ctx context.Context, state *model.AnalysisState) error {
	rows, cols := p.dataset.Shape()
	prompt, err := prompts.Code(ctx,
		p.dataset.Path(),
		fmt.Sprintf("(%d, %d)", rows, cols),
		strings.Join(p.dataset.Columns(), ", "),
		p.dataset.SampleValues(sampleValuesPerColumn),
		p.dataset.ColumnTypes(),
		state.Question,
		state.Plan.Text(),
	)
	if err != nil {
		return err
	}
	out, err := llm.Complete(ctx, p.gateway, prompt)
	if err != nil {
		return fmt.Errorf("generate code: %w", errx.WrapBackend(err))
	}
	state.Code = codePreamble(p.dataset.Path()) + StripCodeFences(out)
	return nil
}

// executeCode never errors: the sandbox folds failures into its captured
// output so interpretation always has something to explain.
func (p *Pipeline) executeCode(ctx context.Context, state *model.AnalysisState) {
	output := p.sandbox.Run(ctx, state.Code)
	state.Execution = model.ExecutionResult{Kind: model.OutputText, Output: output}
	if table, ok := ParseTable(output); ok {
		state.Execution.Kind = model.OutputTable
		state.Execution.Table = table
	}
}

func (p *Pipeline) analyzeResults(ctx context.Context, state *model.AnalysisState) error {
	prompt, err := prompts.Analysis(ctx,
		strings.Join(p.dataset.Columns(), ", "),
		state.Question,
		state.Plan.Text(),
		state.Execution.Output,
	)
	if err != nil {
		return err
	}
	out, err := llm.Complete(ctx, p.gateway, prompt)
	if err != nil {
		return fmt.Errorf("analyze results: %w", errx.WrapBackend(err))
	}
	if strings.TrimSpace(out) == "" {
		out = noResultAnswer
	}
	state.Generation = out
	return nil
}

// ParsePlan extracts an ordered list of steps from the model output.
// Models are instructed to emit a JSON list of strings but not guaranteed
// to; on malformed output the raw text is kept so downstream prompts still
// have the plan in some form.
func ParsePlan(out string) model.Plan {
	plan := model.Plan{Raw: strings.TrimSpace(out)}

	candidate := plan.Raw
	if start := strings.Index(candidate, "["); start >= 0 {
		if end := strings.LastIndex(candidate, "]"); end > start {
			candidate = candidate[start : end+1]
		}
	}

	var steps []string
	if err := json.Unmarshal([]byte(candidate), &steps); err != nil {
		return plan
	}
	for _, s := range steps {
		if strings.TrimSpace(s) != "" {
			plan.Steps = append(plan.Steps, strings.TrimSpace(s))
		}
	}
	return plan
}

// StripCodeFences removes markdown code fences and a leading language tag
// from generated code.
func StripCodeFences(code string) string {
	var kept []string
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		if len(kept) == 0 && trimmed == "python" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// codePreamble binds the dataset into the variable name the code model is
// told to assume and imports the libraries the code prompt advertises.
// Matplotlib is forced onto the Agg backend so plotting calls work headless.
func codePreamble(datasetPath string) string {
	return fmt.Sprintf(`import matplotlib
matplotlib.use("Agg")
import matplotlib.pyplot as plt
import numpy as np
import pandas as pd
import seaborn as sns
data = pd.read_csv(%q)
`, datasetPath)
}
