package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docuchat/server/internal/agent/llm"
	"github.com/docuchat/server/internal/agent/model"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clean_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func loadTestDataset(t *testing.T) *Dataset {
	t.Helper()
	path := writeTempCSV(t, "age,city\n30,NY\n25,LA\n41,NY\n")
	d, err := LoadDataset(path)
	require.NoError(t, err)
	return d
}

// fakeAnalysisGateway answers the three pipeline prompts on template markers.
type fakeAnalysisGateway struct {
	planOut     string
	codeOut     string
	analysisOut string
	prompts     []string
}

func (g *fakeAnalysisGateway) Invoke(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	switch {
	case strings.Contains(prompt, "JSON Output:"):
		return g.planOut, nil
	case strings.Contains(prompt, "Python data-analysis expert"):
		return g.codeOut, nil
	case strings.Contains(prompt, "DO NOT SHOW CODE"):
		return g.analysisOut, nil
	}
	return "", errors.New("unrecognized prompt")
}

func (g *fakeAnalysisGateway) Stream(ctx context.Context, prompt string) (llm.TextStream, error) {
	return nil, errors.New("streaming unavailable")
}

// fakeSandbox records the code it was given and returns canned output.
type fakeSandbox struct {
	code   string
	output string
}

func (s *fakeSandbox) Run(ctx context.Context, code string) string {
	s.code = code
	return s.output
}

func TestPipelineRun(t *testing.T) {
	dataset := loadTestDataset(t)
	gw := &fakeAnalysisGateway{
		planOut:     `["load the data", "group age by city", "print the mean"]`,
		codeOut:     "```python\nprint(data.groupby('city')['age'].mean().to_string())\n```",
		analysisOut: "The average age is 35.5 in NY and 25 in LA. This is a neutral result reflecting the sample.",
	}
	sandbox := &fakeSandbox{output: "city age\nLA 25.0\nNY 35.5"}

	p := NewPipeline(gw, dataset, sandbox)
	result, err := p.Run(context.Background(), "average age by city")
	require.NoError(t, err)
	require.Equal(t, gw.analysisOut, result.Answer)

	// The generated code is fenced; the sandbox must receive it stripped,
	// with the preamble binding the dataset variable and the advertised
	// libraries prepended.
	require.Contains(t, sandbox.code, "import pandas as pd")
	require.Contains(t, sandbox.code, "import numpy as np")
	require.Contains(t, sandbox.code, "import seaborn as sns")
	require.Contains(t, sandbox.code, `matplotlib.use("Agg")`)
	require.Contains(t, sandbox.code, "data = pd.read_csv(")
	require.Contains(t, sandbox.code, "data.groupby('city')")
	require.NotContains(t, sandbox.code, "```")

	// The interpretation prompt sees the captured execution output.
	last := gw.prompts[len(gw.prompts)-1]
	require.Contains(t, last, "NY 35.5")
	require.Contains(t, last, "average age by city")
}

func TestPipelineProceedsOnExecutionError(t *testing.T) {
	dataset := loadTestDataset(t)
	gw := &fakeAnalysisGateway{
		planOut:     `["do something"]`,
		codeOut:     "print(undefined_variable)",
		analysisOut: "I could not compute the result because the code failed.",
	}
	sandbox := &fakeSandbox{output: "Error executing code: NameError: name 'undefined_variable' is not defined"}

	p := NewPipeline(gw, dataset, sandbox)
	result, err := p.Run(context.Background(), "average age by city")
	require.NoError(t, err, "execution failure must not abort the pipeline")
	require.Equal(t, gw.analysisOut, result.Answer)

	last := gw.prompts[len(gw.prompts)-1]
	require.Contains(t, last, "Error executing code", "interpretation sees the failure text")
}

func TestPipelineToleratesMalformedPlan(t *testing.T) {
	dataset := loadTestDataset(t)
	gw := &fakeAnalysisGateway{
		planOut:     "Sure! First load the data, then group by city.",
		codeOut:     "print(data.head())",
		analysisOut: "Here is the result.",
	}
	sandbox := &fakeSandbox{output: "some text"}

	p := NewPipeline(gw, dataset, sandbox)
	_, err := p.Run(context.Background(), "average age by city")
	require.NoError(t, err)

	// The raw plan text still reaches the code prompt.
	var codePrompt string
	for _, pr := range gw.prompts {
		if strings.Contains(pr, "Python data-analysis expert") {
			codePrompt = pr
		}
	}
	require.Contains(t, codePrompt, "First load the data")
}

func TestNextStage(t *testing.T) {
	order := []Stage{StagePlan, StageGenerateCode, StageExecuteCode, StageAnalyzeResults, StageDone}
	for i := 0; i < len(order)-1; i++ {
		next, err := NextStage(order[i])
		require.NoError(t, err)
		require.Equal(t, order[i+1], next)
	}

	_, err := NextStage(StageDone)
	require.Error(t, err, "done is terminal")
}

func TestParsePlan(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedSteps []string
	}{
		{
			name:          "clean json list",
			input:         `["step 1", "step 2"]`,
			expectedSteps: []string{"step 1", "step 2"},
		},
		{
			name:          "json embedded in prose",
			input:         "Here is the plan:\n[\"load data\", \"aggregate\"]\nDone.",
			expectedSteps: []string{"load data", "aggregate"},
		},
		{
			name:          "blank steps dropped",
			input:         `["step 1", "  ", "step 2"]`,
			expectedSteps: []string{"step 1", "step 2"},
		},
		{
			name:          "malformed output keeps raw only",
			input:         "1. load data 2. aggregate",
			expectedSteps: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan := ParsePlan(tc.input)
			require.Equal(t, tc.expectedSteps, plan.Steps)
			require.Equal(t, strings.TrimSpace(tc.input), plan.Raw)
		})
	}
}

func TestPlanText(t *testing.T) {
	parsed := model.Plan{Steps: []string{"a", "b"}, Raw: `["a","b"]`}
	require.Equal(t, "a\nb", parsed.Text())

	raw := model.Plan{Raw: "unparsed plan"}
	require.Equal(t, "unparsed plan", raw.Text())
}

func TestStripCodeFences(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "fenced with language tag",
			input:    "```python\nprint(1)\n```",
			expected: "print(1)",
		},
		{
			name:     "bare language tag",
			input:    "python\nprint(1)",
			expected: "print(1)",
		},
		{
			name:     "no fences",
			input:    "print(1)\nprint(2)",
			expected: "print(1)\nprint(2)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, StripCodeFences(tc.input))
		})
	}
}
