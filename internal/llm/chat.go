package llm

import (
	"context"
	"sync"
)

// Chat is a stateful conversation with a model. Every Send replays the
// whole history, so the provider itself can stay stateless.
type Chat struct {
	client Client

	mu       sync.Mutex
	messages []Message
}

// NewChat starts an empty conversation.
func NewChat(client Client) *Chat {
	return &Chat{client: client}
}

// Send submits one user turn and returns the model's reply. A failed turn
// leaves the history as it was before the call.
func (c *Chat) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]Message, len(c.messages), len(c.messages)+1)
	copy(msgs, c.messages)
	msgs = append(msgs, Message{Role: RoleUser, Content: text})

	resp, err := c.client.Generate(ctx, msgs)
	if err != nil {
		return "", upstream("", err)
	}

	c.messages = append(msgs, Message{Role: RoleAssistant, Content: resp.Content})
	return resp.Content, nil
}

// History returns a copy of the turns exchanged so far.
func (c *Chat) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
