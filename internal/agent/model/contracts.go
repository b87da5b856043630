package model

import "context"

// Retriever returns up to k scored passages for a query, most relevant
// first. The index behind it is owned by the retrieval layer; the workflow
// only depends on this contract.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]Passage, error)
}

// ConversationRepository persists the per-conversation exchange log the
// caller uses to reconstruct bounded history each turn.
type ConversationRepository interface {
	// AppendExchange appends one question/answer pair to the conversation log.
	AppendExchange(ctx context.Context, conversationID string, ex Exchange) error

	// LoadRecent returns up to maxTurns most recent exchanges, oldest first.
	LoadRecent(ctx context.Context, conversationID string, maxTurns int) ([]Exchange, error)

	// Clear removes the conversation log.
	Clear(ctx context.Context, conversationID string) error
}

// Sandbox executes model-generated code in isolation. Execution errors are
// folded into the captured output; Run never fails.
type Sandbox interface {
	Run(ctx context.Context, code string) string
}
