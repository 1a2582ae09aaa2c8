package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("  persona  ", "\ncontext\n", "  what are the fees?  ")

	require.True(t, strings.HasPrefix(prompt, "SYSTEM:\npersona\n\nCONTEXT:\ncontext\n\nUSER:\nwhat are the fees?\n\nINSTRUCTIONS:\n"))
	require.True(t, strings.HasSuffix(prompt, "ASSISTANT:\n"))
}

func TestTruncateAtStop(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{in: "plain answer", out: "plain answer"},
		{in: "first paragraph\n\nsecond paragraph", out: "first paragraph"},
		{in: "answer</s>trailing", out: "answer"},
		{in: "answer\nUSER: next turn\n\nmore", out: "answer"},
		{in: "a [INST] b</s>", out: "a "},
	}
	for _, tc := range cases {
		require.Equal(t, tc.out, truncateAtStop(tc.in), tc.in)
	}
}
