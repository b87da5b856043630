// Package prompts renders the prompt templates the workflows send through
// the language-model gateway. Templates are embedded and rendered via the
// Eino prompt component so prompt callbacks fire consistently.
package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/generator.txt
var generatorTemplate string

//go:embed template/groundedness.txt
var groundednessTemplate string

//go:embed template/relevance.txt
var relevanceTemplate string

//go:embed template/rewrite.txt
var rewriteTemplate string

//go:embed template/plan.txt
var planTemplate string

//go:embed template/code.txt
var codeTemplate string

//go:embed template/analysis.txt
var analysisTemplate string

func render(ctx context.Context, tplText string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(tplText),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// Generator renders the answer-generation prompt.
func Generator(ctx context.Context, conversationContext, document, question string) (string, error) {
	return render(ctx, generatorTemplate, map[string]any{
		"ConversationContext": conversationContext,
		"Document":            document,
		"Question":            question,
	})
}

// Groundedness renders the hallucination-judge prompt.
func Groundedness(ctx context.Context, documents, conversationContext, generation string) (string, error) {
	return render(ctx, groundednessTemplate, map[string]any{
		"Documents":           documents,
		"ConversationContext": conversationContext,
		"Generation":          generation,
	})
}

// Relevance renders the answer-quality-judge prompt.
func Relevance(ctx context.Context, question, generation, conversationContext string) (string, error) {
	return render(ctx, relevanceTemplate, map[string]any{
		"Question":            question,
		"Generation":          generation,
		"ConversationContext": conversationContext,
	})
}

// Rewrite renders the query-rewriting prompt.
func Rewrite(ctx context.Context, question string) (string, error) {
	return render(ctx, rewriteTemplate, map[string]any{
		"Question": question,
	})
}

// Plan renders the data-analysis planning prompt.
func Plan(ctx context.Context, question, columns, columnTypes string) (string, error) {
	return render(ctx, planTemplate, map[string]any{
		"Question":    question,
		"Columns":     columns,
		"ColumnTypes": columnTypes,
	})
}

// Code renders the analysis code-generation prompt.
func Code(ctx context.Context, datasetPath, shape, columns, columnValues, columnTypes, question, plan string) (string, error) {
	return render(ctx, codeTemplate, map[string]any{
		"DatasetPath":  datasetPath,
		"Shape":        shape,
		"Columns":      columns,
		"ColumnValues": columnValues,
		"ColumnTypes":  columnTypes,
		"Question":     question,
		"Plan":         plan,
	})
}

// Analysis renders the result-interpretation prompt.
func Analysis(ctx context.Context, columns, question, plan, output string) (string, error) {
	return render(ctx, analysisTemplate, map[string]any{
		"Columns":  columns,
		"Question": question,
		"Plan":     plan,
		"Output":   output,
	})
}
