// Package agent holds the conversational brain of the outbound call: the
// prompt that produces each agent line, the sign-off heuristic that decides
// when the call is over, and post-call transcript summarization.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"callcast/internal/calls"
	"callcast/internal/llm"
)

const systemPromptTemplate = `You are an AI assistant calling a real estate dealer on behalf of your client.

CONTEXT:
- You are calling %s about the property: "%s"
- Your client is interested in this property and wants to know more
- You need to gather information and potentially schedule a visit

YOUR ROLE:
- Professional, polite, and efficient
- Speak naturally, like a human assistant on a phone call
- Keep responses concise (1-3 sentences max)
- Ask one or two questions at a time

CONVERSATION FLOW:
1. Introduce yourself and state the purpose (first message only)
2. Ask whether the property is still available
3. Ask for price, size, amenities, and possession date
4. Ask for the exact location and connectivity
5. Propose a site visit and get the dealer's availability
6. Confirm the dealer's contact number and next steps
7. Thank them and end politely

RULES:
- Do not repeat questions you have already asked
- If the dealer is busy, offer to call back later
- If the property is sold, ask about similar properties
- End the call naturally after gathering key information or scheduling a visit

Respond with only the assistant's next line.`

// Agent produces the next line of an outbound call and summarizes finished
// transcripts.
type Agent struct {
	completer llm.Completer
	speaker   llm.Speaker
	log       *slog.Logger
}

func New(completer llm.Completer, speaker llm.Speaker, log *slog.Logger) *Agent {
	if log == nil {
		log = slog.Default()
	}
	return &Agent{completer: completer, speaker: speaker, log: log}
}

// Reply generates the agent's next line, seeded with the full turn history
// plus the property title and dealer name.
func (a *Agent) Reply(ctx context.Context, propertyTitle, dealerName string, history []calls.Turn) (string, error) {
	msgs := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(systemPromptTemplate, dealerName, propertyTitle)},
	}
	for _, t := range history {
		role := "user"
		if t.Role == calls.TurnRoleAgent {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}

	out, err := a.completer.ChatCompletion(ctx, msgs, llm.Options{Temperature: 0.7, MaxTokens: 256})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("agent: model returned no text")
	}
	a.log.Debug("agent reply", "property", propertyTitle, "turn", len(history)+1)
	return out, nil
}

// Speech synthesizes an agent line into audio.
func (a *Agent) Speech(ctx context.Context, text string) (string, error) {
	return a.speaker.Speech(ctx, text)
}

const summarizePrompt = `Summarize the following call transcript, extracting the key information and action items discussed during the call.

Your entire response MUST be a single JSON object with a single 'summary' field.

Transcript:
%s`

type summaryResponse struct {
	Summary string `json:"summary"`
}

// Summarize produces a concise post-call summary from a transcript.
func (a *Agent) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := llm.JSONCompletion[summaryResponse](ctx, a.completer, a.log, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(summarizePrompt, transcript)},
	}, llm.Options{Temperature: 0.3})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Summary) == "" {
		return "", errors.New("agent: model returned empty summary")
	}
	return resp.Summary, nil
}

// signOffPattern is the closing-phrase heuristic that ends the call. It can
// fire early (agent thanks the dealer mid-conversation) or not at all; there
// is no correction mechanism.
var signOffPattern = regexp.MustCompile(`(?i)\b(goodbye|thank you for your time|have a great day|talk to you later|bye)\b`)

// SignOffDetected reports whether an agent line reads as a call closing.
func SignOffDetected(line string) bool {
	return signOffPattern.MatchString(line)
}

// SignOff exposes sign-off detection as a method for callers that accept
// the agent behind an interface.
func (a *Agent) SignOff(line string) bool {
	return SignOffDetected(line)
}
