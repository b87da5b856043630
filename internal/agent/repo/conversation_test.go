package repo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docuchat/server/internal/agent/model"
)

func TestDecodeExchanges(t *testing.T) {
	rows := []string{
		`{"question":"what is X","answer":"X is Y"}`,
		`not json at all`,
		`{"question":"and Z?","answer":"Z is W"}`,
	}

	got := DecodeExchanges(rows)
	require.Equal(t, []model.Exchange{
		{Question: "what is X", Answer: "X is Y"},
		{Question: "and Z?", Answer: "Z is W"},
	}, got, "malformed entries are dropped, not fatal")
}

func TestDecodeExchangesEmpty(t *testing.T) {
	require.Empty(t, DecodeExchanges(nil))
	require.Empty(t, DecodeExchanges([]string{"{{"}))
}

func TestConversationKey(t *testing.T) {
	r := NewRedisConversationRepository(nil, 0)
	require.Equal(t, "conversation:abc:exchanges", r.conversationKey("abc"))
}
