package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"career-chat/internal/chat"
)

const (
	clearCmd = "clear_ctx"

	greeting  = "Hi! Tell me about your interests, skills and education and I'll suggest some career paths."
	clearedTx = "Conversation cleared."
	failedTx  = "Sorry, something went wrong. Please try again."
)

type Bot struct {
	api  *tgbotapi.BotAPI
	s    sender
	chat *chat.Service
	log  *zap.Logger
}

func New(botToken string, svc *chat.Service, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Bot{
		api:  api,
		s:    botAPISender{api: api},
		chat: svc,
		log:  log,
	}, nil
}

// sessionID maps a chat to its conversation. Each chat, private or group, has one.
func sessionID(chatID int64) string {
	return fmt.Sprintf("telegram:%d", chatID)
}

// Start long-polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started", zap.String("username", b.api.Self.UserName))

	b.serve(ctx, updates)
	b.api.StopReceivingUpdates()
}

// serve handles each text message on its own goroutine so one slow reply
// does not hold up other chats. It returns once updates is closed or ctx is
// done and every in-flight message has been answered.
func (b *Bot) serve(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if msg := update.Message; msg != nil {
				wg.Add(1)
				go func() {
					defer wg.Done()
					b.handleIncomingMessage(ctx, msg)
				}()
				continue
			}
			if update.CallbackQuery != nil {
				b.handleCallback(update.CallbackQuery)
			}
		}
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.sendMessage(chatID, greeting)
		case "clear", "reset":
			b.chat.Clear(sessionID(chatID))
			b.sendMessage(chatID, clearedTx)
		default:
			b.sendMessage(chatID, "Unknown command. Use /clear to start over.")
		}
		return
	}

	b.log.Debug("incoming message", zap.Int64("chat", chatID), zap.Int("length", len(msg.Text)))

	reply, err := b.chat.Send(ctx, sessionID(chatID), msg.Text)
	if err != nil {
		var ve *chat.ValidationError
		if errors.As(err, &ve) {
			b.sendMessage(chatID, ve.Msg)
			return
		}
		b.log.Error("failed to generate reply", zap.Int64("chat", chatID), zap.Error(err))
		b.sendMessage(chatID, failedTx)
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Clear conversation", clearCmd),
		),
	)
	out := tgbotapi.NewMessage(chatID, reply)
	out.ReplyMarkup = kb
	if _, err := b.s.Send(out); err != nil {
		b.log.Error("failed to send message", zap.Error(err))
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Data != clearCmd || cb.Message == nil {
		return
	}
	b.chat.Clear(sessionID(cb.Message.Chat.ID))
	b.sendMessage(cb.Message.Chat.ID, clearedTx)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.log.Error("failed to send message", zap.Error(err))
	}
}
