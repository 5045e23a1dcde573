package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/tablebot/internal/conversation"
)

const (
	channelName    = "telegram"
	buttonsPerRow  = 3
	pollTimeoutSec = 60
)

// API is the part of *tgbotapi.BotAPI the channel uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot interface {
	Turn(ctx context.Context, id, channel, text string) ([]conversation.Message, error)
	Restart(ctx context.Context, id, channel string) ([]conversation.Message, error)
}

type Channel struct {
	api         API
	bot         Bot
	log         *zap.Logger
	turnTimeout time.Duration

	// pending holds queued updates per chat; a chat present in the map has
	// a worker draining it.
	mu      sync.Mutex
	pending map[int64][]tgbotapi.Update
	wg      sync.WaitGroup
}

// Dial authenticates the token against the Telegram API.
func Dial(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return api, nil
}

func New(api API, bot Bot, log *zap.Logger, turnTimeout time.Duration) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{
		api:         api,
		bot:         bot,
		log:         log,
		turnTimeout: turnTimeout,
		pending:     make(map[int64][]tgbotapi.Update),
	}
}

// SessionID maps a chat to its conversation key.
func SessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// Run long-polls for updates until ctx is cancelled. Chats are served
// concurrently; updates within one chat are handled in arrival order.
func (c *Channel) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSec
	updates := c.api.GetUpdatesChan(u)
	c.log.Info("telegram channel started")
	defer c.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			c.dispatch(ctx, upd)
		}
	}
}

func (c *Channel) dispatch(ctx context.Context, upd tgbotapi.Update) {
	m := upd.Message
	if m == nil || m.Chat == nil {
		return
	}
	chatID := m.Chat.ID

	c.mu.Lock()
	q, running := c.pending[chatID]
	c.pending[chatID] = append(q, upd)
	c.mu.Unlock()
	if running {
		return
	}

	c.wg.Add(1)
	go c.drain(ctx, chatID)
}

func (c *Channel) drain(ctx context.Context, chatID int64) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		q := c.pending[chatID]
		if len(q) == 0 {
			delete(c.pending, chatID)
			c.mu.Unlock()
			return
		}
		upd := q[0]
		c.pending[chatID] = q[1:]
		c.mu.Unlock()

		c.handle(ctx, upd)
	}
}

func (c *Channel) handle(ctx context.Context, upd tgbotapi.Update) {
	m := upd.Message
	if m == nil || m.Chat == nil {
		return
	}
	chatID := m.Chat.ID
	id := SessionID(chatID)

	tctx := ctx
	if c.turnTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, c.turnTimeout)
		defer cancel()
	}

	var (
		msgs []conversation.Message
		err  error
	)
	if m.IsCommand() && m.Command() == "start" {
		msgs, err = c.bot.Restart(tctx, id, channelName)
	} else {
		msgs, err = c.bot.Turn(tctx, id, channelName, m.Text)
	}
	if err != nil {
		c.log.Error("conversation turn failed", zap.String("conversation_id", id), zap.Error(err))
		msgs = []conversation.Message{{Text: "Sorry, something went wrong. Please try again."}}
	}

	for _, out := range Render(chatID, msgs) {
		if _, err := c.api.Send(out); err != nil {
			c.log.Error("failed to send telegram message", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
	}
}

// Render turns replies into Telegram messages. Choices become a one-time
// reply keyboard; a prompt without choices removes any previous keyboard.
func Render(chatID int64, msgs []conversation.Message) []tgbotapi.MessageConfig {
	out := make([]tgbotapi.MessageConfig, 0, len(msgs))
	for _, m := range msgs {
		mc := tgbotapi.NewMessage(chatID, m.Text)
		switch {
		case len(m.Choices) > 0:
			mc.ReplyMarkup = Keyboard(m.Choices)
		case m.Prompt:
			mc.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
		}
		out = append(out, mc)
	}
	return out
}

func Keyboard(choices []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(choices); i += buttonsPerRow {
		end := i + buttonsPerRow
		if end > len(choices) {
			end = len(choices)
		}
		var row []tgbotapi.KeyboardButton
		for _, ch := range choices[i:end] {
			row = append(row, tgbotapi.NewKeyboardButton(ch))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}
	kb := tgbotapi.NewOneTimeReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}
