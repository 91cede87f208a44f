// Package completion invokes the language-model provider with an
// assembled prompt, streams the result to the caller, and persists the
// completed exchange back into the conversation log.
package completion

import (
	"context"
	"log"
	"strings"

	"github.com/solacelabs/companiond/internal/core"
)

// Request is one generation request to the model provider.
type Request struct {
	Model         string
	Prompt        string
	MaxTokens     int64
	Temperature   float64
	StopSequences []string
}

// Client abstracts the model provider. Implementations stream text
// deltas to onDelta in arrival order and return the full text.
type Client interface {
	Stream(ctx context.Context, req Request, onDelta func(string)) (string, error)
}

// TurnRecorder is the slice of the history store the orchestrator
// needs: appending completed turns.
type TurnRecorder interface {
	Append(ctx context.Context, key core.CompanionKey, role core.Role, speaker, content string) error
}

// Orchestrator runs one generation end to end. Sampling temperature is
// fixed at construction; it is deployment configuration, not a
// per-request knob.
type Orchestrator struct {
	client      Client
	history     TurnRecorder
	temperature float64
	maxTokens   int64
}

// NewOrchestrator wires a model client to the history store.
func NewOrchestrator(client Client, history TurnRecorder, temperature float64, maxTokens int64) *Orchestrator {
	return &Orchestrator{
		client:      client,
		history:     history,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Complete streams a generation for promptText, forwarding deltas to
// onDelta as they arrive, then appends the assistant turn to the
// history log exactly once.
//
// The user turn was already appended by the caller before the model
// call; a model failure here leaves that turn recorded with no reply,
// which is accepted and not rolled back. The assistant append is
// best-effort: a persistence failure is logged and never disturbs the
// stream the caller already received. It also runs on a context
// detached from the request, so a client disconnect at the last moment
// cannot cancel it.
func (o *Orchestrator) Complete(ctx context.Context, key core.CompanionKey, companionName, promptText string, onDelta func(string)) (string, error) {
	reply, err := o.client.Stream(ctx, Request{
		Model:         key.ModelName,
		Prompt:        promptText,
		MaxTokens:     o.maxTokens,
		Temperature:   o.temperature,
		StopSequences: []string{"\nUser:"},
	}, onDelta)
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply != "" {
		if err := o.history.Append(context.WithoutCancel(ctx), key, core.RoleAssistant, companionName, reply); err != nil {
			log.Printf("[COMPLETION] Failed to persist assistant turn for %s: %v", key, err)
		}
	}

	return reply, nil
}
