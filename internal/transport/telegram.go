package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/polis-labs/chronicler/internal/errors"
	"github.com/polis-labs/chronicler/internal/model"
)

// Inbound is a transport-neutral view of one incoming update. The bot
// router maps it onto a state machine event; nothing outside this
// package sees the messenger's wire types.
type Inbound struct {
	Owner    int64
	Command  string // bot command without the slash, e.g. "start"
	Callback string // inline button payload
	Text     string
	File     *InboundFile
}

// InboundFile is an uploaded file reference
type InboundFile struct {
	ID       string
	MIMEType string
	Document bool // true for generic documents, false for voice/audio
}

// Handler consumes inbound updates one at a time per owner
type Handler interface {
	HandleInbound(ctx context.Context, in Inbound)
}

// Telegram implements service.Transport over the Telegram Bot API
type Telegram struct {
	bot    *tgbotapi.BotAPI
	client *http.Client
	log    *zap.Logger
}

// NewTelegram creates a Telegram transport
func NewTelegram(token string, log *zap.Logger) (*Telegram, error) {
	if token == "" {
		return nil, errors.New(errors.CodeInvalidArg, "telegram bot token is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "failed to connect to Telegram")
	}
	return &Telegram{
		bot:    bot,
		client: http.DefaultClient,
		log:    log,
	}, nil
}

// SendMessage delivers text to the owner, optionally with inline buttons
func (t *Telegram) SendMessage(ctx context.Context, owner int64, text string, kb model.Keyboard) error {
	msg := tgbotapi.NewMessage(owner, text)
	if kb != nil {
		msg.ReplyMarkup = toInlineKeyboard(kb)
	}
	if _, err := t.bot.Send(msg); err != nil {
		return errors.Wrap(err, errors.CodeExternal, "failed to send message")
	}
	return nil
}

// SendDocument delivers a file artifact with a caption
func (t *Telegram) SendDocument(ctx context.Context, owner int64, path string, caption string, kb model.Keyboard) error {
	doc := tgbotapi.NewDocument(owner, tgbotapi.FilePath(path))
	doc.Caption = caption
	if kb != nil {
		doc.ReplyMarkup = toInlineKeyboard(kb)
	}
	if _, err := t.bot.Send(doc); err != nil {
		return errors.Wrap(err, errors.CodeExternal, "failed to send document")
	}
	return nil
}

// DownloadFile materializes an uploaded file reference into destDir
func (t *Telegram) DownloadFile(ctx context.Context, fileID string, destDir string) (string, error) {
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeExternal, "failed to resolve file reference")
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to create audio directory")
	}
	destination := filepath.Join(destDir, fmt.Sprintf("%s.ogg", fileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(t.bot.Token), nil)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to build download request")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeExternal, "failed to download file")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.CodeExternal, fmt.Sprintf("file download returned status %d", resp.StatusCode))
	}

	out, err := os.Create(destination)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to create audio file")
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(destination)
		return "", errors.Wrap(err, errors.CodeInternal, "failed to write audio file")
	}

	return destination, nil
}

// Run polls for updates and feeds them to the handler until ctx is
// cancelled. Updates arrive on one channel and are handled sequentially,
// so at most one event per owner is in flight at a time.
func (t *Telegram) Run(ctx context.Context, handler Handler) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.bot.GetUpdatesChan(cfg)

	t.log.Info("telegram polling started", zap.String("bot", t.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			in, ack := t.toInbound(update)
			if in == nil {
				continue
			}
			handler.HandleInbound(ctx, *in)
			if ack != "" {
				// Acknowledge the button press so the client stops spinning
				if _, err := t.bot.Request(tgbotapi.NewCallback(ack, "")); err != nil {
					t.log.Warn("callback ack failed", zap.Error(err))
				}
			}
		}
	}
}

// toInbound maps a raw update onto the transport-neutral form. The
// second return is the callback query id to acknowledge, if any.
func (t *Telegram) toInbound(update tgbotapi.Update) (*Inbound, string) {
	if cq := update.CallbackQuery; cq != nil && cq.Message != nil {
		return &Inbound{
			Owner:    cq.Message.Chat.ID,
			Callback: cq.Data,
		}, cq.ID
	}

	msg := update.Message
	if msg == nil {
		return nil, ""
	}

	in := &Inbound{
		Owner: msg.Chat.ID,
		Text:  msg.Text,
	}
	if msg.IsCommand() {
		in.Command = msg.Command()
	}

	switch {
	case msg.Voice != nil:
		in.File = &InboundFile{ID: msg.Voice.FileID}
	case msg.Audio != nil:
		in.File = &InboundFile{ID: msg.Audio.FileID}
	case msg.Document != nil:
		in.File = &InboundFile{
			ID:       msg.Document.FileID,
			MIMEType: msg.Document.MimeType,
			Document: true,
		}
	}

	return in, ""
}

// toInlineKeyboard converts the neutral keyboard into Telegram markup
func toInlineKeyboard(kb model.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
