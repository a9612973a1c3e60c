package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"career-chat/internal/chat"
	"career-chat/internal/llm"
	"career-chat/internal/registry"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) repliesTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeLLM struct {
	err error
}

func (f fakeLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: "re: " + msgs[len(msgs)-1].Content}, nil
}

func newTestBot(c llm.Client) (*Bot, *fakeSender, *registry.Registry) {
	reg := registry.New(c, "persona")
	fs := &fakeSender{}
	return &Bot{s: fs, chat: chat.NewService(reg, nil), log: zap.NewNop()}, fs, reg
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
}

func commandMessage(chatID int64, cmd string) *tgbotapi.Message {
	m := textMessage(chatID, "/"+cmd)
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}}
	return m
}

func TestHandleIncomingMessage_RepliesWithClearButton(t *testing.T) {
	b, fs, reg := newTestBot(fakeLLM{})

	b.handleIncomingMessage(context.Background(), textMessage(7, "I like math"))

	require.Len(t, fs.sent, 1)
	assert.Equal(t, "re: I like math", fs.sent[0].Text)
	assert.NotNil(t, fs.sent[0].ReplyMarkup)
	assert.Len(t, reg.Transcript("telegram:7"), 1)
}

func TestHandleIncomingMessage_Failures(t *testing.T) {
	b, fs, reg := newTestBot(fakeLLM{err: errors.New("down")})

	b.handleIncomingMessage(context.Background(), textMessage(7, "hi"))
	b.handleIncomingMessage(context.Background(), textMessage(7, "   "))

	require.Len(t, fs.sent, 2)
	assert.Equal(t, failedTx, fs.sent[0].Text)
	assert.Equal(t, chat.MsgEmpty, fs.sent[1].Text)
	assert.Zero(t, reg.Len())
}

func TestCommandsAndCallback(t *testing.T) {
	b, fs, reg := newTestBot(fakeLLM{})

	b.handleIncomingMessage(context.Background(), commandMessage(7, "start"))
	require.Len(t, fs.sent, 1)
	assert.Equal(t, greeting, fs.sent[0].Text)

	b.handleIncomingMessage(context.Background(), textMessage(7, "hello"))
	require.Equal(t, 1, reg.Len())

	b.handleIncomingMessage(context.Background(), commandMessage(7, "clear"))
	assert.Zero(t, reg.Len())
	assert.Equal(t, clearedTx, fs.sent[len(fs.sent)-1].Text)

	b.handleIncomingMessage(context.Background(), textMessage(8, "hello"))
	require.Equal(t, 1, reg.Len())
	b.handleCallback(&tgbotapi.CallbackQuery{Data: clearCmd, Message: textMessage(8, "")})
	assert.Zero(t, reg.Len())

	// unrelated callbacks are ignored
	n := len(fs.sent)
	b.handleCallback(&tgbotapi.CallbackQuery{Data: "other", Message: textMessage(8, "")})
	assert.Len(t, fs.sent, n)
}

// gatedLLM holds replies to "slow" until release is closed.
type gatedLLM struct {
	release chan struct{}
}

func (g gatedLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	last := msgs[len(msgs)-1].Content
	if last == "slow" {
		select {
		case <-g.release:
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		}
	}
	return llm.Response{Content: "re: " + last}, nil
}

func TestServe_SlowChatDoesNotBlockOthers(t *testing.T) {
	g := gatedLLM{release: make(chan struct{})}
	b, fs, _ := newTestBot(g)

	updates := make(chan tgbotapi.Update, 2)
	done := make(chan struct{})
	go func() {
		b.serve(context.Background(), updates)
		close(done)
	}()

	updates <- tgbotapi.Update{Message: textMessage(1, "slow")}
	updates <- tgbotapi.Update{Message: textMessage(2, "fast")}

	assert.Eventually(t, func() bool {
		return len(fs.repliesTo(2)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, fs.repliesTo(1))

	close(g.release)
	close(updates)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after updates closed")
	}
	assert.Equal(t, []string{"re: slow"}, fs.repliesTo(1))
	assert.Equal(t, []string{"re: fast"}, fs.repliesTo(2))
}
