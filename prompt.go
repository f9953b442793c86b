package pandora

import "strings"

// DefaultSystemPrompt is the instruction set of a run unless WithSystemPrompt overrides it.
const DefaultSystemPrompt = `You are Financial Pandora, an Investment Desk Supervisor. Always answer in English.
You coordinate three analysts, each backed by tools:
1. Technical analyst: live prices and market data (get_market_data).
2. Fundamental analyst: the local corpus of SEC filings (search_financial_docs, list_available_companies).
3. News analyst: recent headlines (search_news).

Strategy:
- For a broad request such as "Analyze X", consult all three analysts before answering.
- For a simple price question, use only the technical analyst.
- Call independent tools in the same turn so they run in parallel.
- Cite the filing source labels you rely on.

Respond in Markdown.`

// ForceFinalizePrompt is sent as a user turn when the round budget is exhausted.
const ForceFinalizePrompt = "Stop searching. Please summarize the information you have gathered so far and answer my original question. Do not use any more tools."

// ApologyAnswer is the answer of a run whose reasoning engine call failed.
const ApologyAnswer = "I apologize, but I encountered an error while communicating with the AI model. Please try again later."

// FallbackAnswerPrefix starts the answer built from raw tool results when forced
// summarization fails.
const FallbackAnswerPrefix = "I have gathered a lot of information but reached my processing limit. Here is what I found so far: "

// EmptyAnswer is returned when the engine replies with no text and nothing was gathered.
const EmptyAnswer = "I could not find an answer to your question."

// FallbackSeparator joins tool results in the fallback answer.
const FallbackSeparator = "\n\n"

func buildSystemPrompt(base, contextHint string) string {
	hint := strings.TrimSpace(contextHint)
	if hint == "" {
		return base
	}
	return base + "\n\nNOTE: The user is viewing the screen for " + hint + ", assume that ticker if another is not mentioned."
}

// fallbackAnswer joins full tool results, not the truncated trace copies.
func fallbackAnswer(results []string) string {
	if len(results) == 0 {
		return EmptyAnswer
	}
	return FallbackAnswerPrefix + strings.Join(results, FallbackSeparator)
}
