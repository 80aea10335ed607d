package llm

import (
	"context"
	"fmt"
	"strings"
)

// Advisor answers money questions grounded in the user's financial snapshot.
// The snapshot summary is injected as system context so the model never sees
// raw transaction rows.
type Advisor struct {
	client *Client
}

// NewAdvisor creates an advisor backed by the given client.
func NewAdvisor(client *Client) *Advisor {
	return &Advisor{client: client}
}

const advisorPrompt = `You are a personal finance assistant. You have access to
a summary of the user's current finances below. Answer questions concisely and
concretely, using the numbers from the summary. If the summary does not contain
the information needed, say so rather than guessing. Never invent balances or
transactions.`

// Advise answers a question given the rendered snapshot summary and prior
// conversation turns.
func (a *Advisor) Advise(ctx context.Context, summary string, history []Message, question string) (string, error) {
	if !a.client.IsConfigured() {
		return "", fmt.Errorf("llm: no API key configured")
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("llm: empty question")
	}

	system := advisorPrompt
	if summary != "" {
		system += "\n\n--- Financial summary ---\n" + summary
	}

	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: question})

	return a.client.ChatWithHistory(ctx, system, messages)
}
