package gateway

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt is the persona and rule set used when none is configured.
const DefaultSystemPrompt = `You are IronLadyBot, a helpful, concise assistant for answering FAQs about the Iron Lady leadership programs.
Rules:
- If the user asks a question that directly relates to the FAQs (programs, duration, mode, certificates, mentors), prefer the FAQ answer.
- If you are unsure, ask a clarifying question rather than hallucinating facts.
- Keep answers brief (2-5 sentences).
- Use the provided company context exactly as factual background if needed.`

// DefaultCompanyContext is the background paragraph used when none is configured.
const DefaultCompanyContext = `Iron Lady delivers high-impact leadership programs for women including programs like
1-Crore Club, 100 Board Members, and the Leadership Essentials Program. Programs are
built by senior entrepreneurs and industry leaders and often run online as live cohorts,
with certification and post-program mentorship/community support.`

const promptTemplate = `SYSTEM:
%s

CONTEXT:
%s

USER:
%s

INSTRUCTIONS:
Respond as a helpful assistant. If the user asks for specific program logistics (duration, online/offline, certificate, mentors), be concise and accurate and prefer FAQ answers. If not sure, ask for clarification.

ASSISTANT:
`

// stopSequences end generation at a turn delimiter or a blank line.
var stopSequences = []string{"</s>", "[INST]", "\nUSER:", "\n\n"}

func buildPrompt(systemPrompt, companyContext, question string) string {
	return fmt.Sprintf(promptTemplate,
		strings.TrimSpace(systemPrompt),
		strings.TrimSpace(companyContext),
		strings.TrimSpace(question),
	)
}

// truncateAtStop cuts text at the earliest stop sequence. Engines are asked to
// stop on their own, this covers the ones that ignore the hint.
func truncateAtStop(text string) string {
	cut := len(text)
	for _, stop := range stopSequences {
		if idx := strings.Index(text, stop); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return text[:cut]
}
