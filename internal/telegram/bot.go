// Package telegram renders the match history in a Telegram chat. Each chat
// gets its own season pager; pager frames are drawn by editing the history
// message in place.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"matchday/internal/core"
	"matchday/internal/history"
	applog "matchday/internal/log"
)

// Callback payloads carried by the inline keyboard.
const (
	CallbackPrev  = "nav:prev"
	CallbackNext  = "nav:next"
	CallbackMonth = "month:"
	callbackNoop  = "noop"
)

// Sender is the subset of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// HistorySource provides the record set and the grouper that slices it.
type HistorySource interface {
	Records(ctx context.Context) ([]core.Match, error)
	Grouper() *history.Grouper[core.Match]
}

type Config struct {
	Pager history.PagerConfig
	// Allowed may be nil to admit every user.
	Allowed func(userID int64) bool
	Theme   string
	Now     func() time.Time
}

type Bot struct {
	sender   Sender
	source   HistorySource
	pagerCfg history.PagerConfig
	allowed  func(int64) bool
	theme    string
	now      func() time.Time
	logger   *applog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// session is the history view open in one chat.
type session struct {
	mu        sync.Mutex
	chatID    int64
	messageID int
	reference history.Month
	records   []core.Match
	lastSeq   uint64
	pager     *history.Pager
}

func New(sender Sender, source HistorySource, cfg Config, logger *applog.Logger) *Bot {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Bot{
		sender:   sender,
		source:   source,
		pagerCfg: cfg.Pager,
		allowed:  cfg.Allowed,
		theme:    cfg.Theme,
		now:      cfg.Now,
		logger:   logger.WithComponent(applog.ComponentTelegram),
		sessions: make(map[int64]*session),
	}
}

// Run dispatches updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes a single update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) isAllowed(u *tgbotapi.User) bool {
	return b.allowed == nil || (u != nil && b.allowed(u.ID))
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	if !b.isAllowed(msg.From) {
		b.send(ctx, tgbotapi.NewMessage(chatID, "Доступ запрещен."))
		return
	}

	switch msg.Command() {
	case "start", "history":
		if err := b.open(ctx, chatID, 0); err != nil {
			b.logger.ErrorContext(ctx, "Failed to open history",
				applog.FieldChatID, chatID,
				applog.FieldError, err)
			b.send(ctx, tgbotapi.NewMessage(chatID, "Не удалось загрузить историю матчей. Попробуйте позже."))
		}
	case "help":
		b.send(ctx, tgbotapi.NewMessage(chatID, "/history - история матчей по месяцам"))
	default:
		b.send(ctx, tgbotapi.NewMessage(chatID, "Неизвестная команда. /help"))
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat == nil {
		b.answer(ctx, q.ID, "")
		return
	}
	if !b.isAllowed(q.From) {
		b.answer(ctx, q.ID, "Доступ запрещен.")
		return
	}
	chatID := q.Message.Chat.ID

	sess := b.session(chatID)
	if sess == nil || sess.message() != q.Message.MessageID {
		// keyboard from before a restart or from an older message
		if err := b.open(ctx, chatID, q.Message.MessageID); err != nil {
			b.logger.ErrorContext(ctx, "Failed to reopen history",
				applog.FieldChatID, chatID,
				applog.FieldError, err)
			b.answer(ctx, q.ID, "История недоступна")
			return
		}
		sess = b.session(chatID)
	}

	text, err := b.apply(sess, q.Data)
	if err != nil {
		b.logger.WarnContext(ctx, "Invalid callback data",
			applog.FieldChatID, chatID,
			applog.FieldError, err)
	}
	b.answer(ctx, q.ID, text)
}

// apply runs one keyboard action against the session pager and returns the
// toast shown to the user.
func (b *Bot) apply(sess *session, data string) (string, error) {
	switch {
	case data == callbackNoop:
		return "", nil
	case data == CallbackPrev || data == CallbackNext:
		direction := history.Previous
		if data == CallbackNext {
			direction = history.Next
		}
		if sess.pager.Navigate(direction) {
			b.logger.Debug("Season navigation started",
				applog.FieldChatID, sess.chatID,
				applog.FieldOperation, applog.OpNavigate,
				applog.FieldDirection, direction.String())
			return "", nil
		}
		if sess.pager.State() == history.Transitioning {
			return "Подождите…", nil
		}
		return "Больше месяцев нет", nil
	case strings.HasPrefix(data, CallbackMonth):
		month, err := history.ParseMonth(strings.TrimPrefix(data, CallbackMonth))
		if err != nil {
			return "", err
		}
		if !sess.pager.Select(month) {
			return "В этом месяце матчей нет", nil
		}
		return "", nil
	default:
		return "", fmt.Errorf("unknown callback %q", data)
	}
}

// open loads the history and starts a session for chatID. A zero messageID
// sends a new message; otherwise that message is edited.
func (b *Bot) open(ctx context.Context, chatID int64, messageID int) error {
	records, err := b.source.Records(ctx)
	if err != nil {
		return err
	}
	grouper := b.source.Grouper()
	snap := grouper.Load(records, b.now())

	sess := &session{
		chatID:    chatID,
		messageID: messageID,
		reference: snap.Reference,
		records:   records,
		pager:     history.NewPager(b.pagerCfg),
	}

	b.mu.Lock()
	if old := b.sessions[chatID]; old != nil {
		old.pager.OnFrame(nil)
	}
	b.sessions[chatID] = sess
	b.mu.Unlock()

	sess.pager.OnFrame(func(f history.Frame) { b.render(sess, f) })
	sess.pager.Reload(snap.Groups, snap.CurrentGroupIndex, snap.Selected)

	b.logger.InfoContext(ctx, "History opened",
		applog.FieldChatID, chatID,
		applog.FieldMonth, snap.Reference.String(),
		applog.FieldMatchCount, len(snap.Records),
		applog.FieldGroupCount, snap.GroupCount())
	return nil
}

func (s *session) message() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageID
}

func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

// render draws settled frames only. Frames older than the last drawn one
// are dropped by Seq.
func (b *Bot) render(sess *session, f history.Frame) {
	if f.State == history.Transitioning {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if f.Seq <= sess.lastSeq {
		return
	}
	sess.lastSeq = f.Seq

	grouper := b.source.Grouper()
	var records []core.Match
	if f.Selected != nil {
		records = grouper.FilterByMonth(sess.records, *f.Selected)
	}
	text := renderText(f.Selected, sess.reference, records, grouper.Location())
	keyboard := b.keyboard(f)

	ctx := context.Background()
	if sess.messageID == 0 {
		msg := tgbotapi.NewMessage(sess.chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		sent, err := b.sender.Send(msg)
		if err != nil {
			b.logger.ErrorContext(ctx, "Failed to send history",
				applog.FieldChatID, sess.chatID,
				applog.FieldOperation, applog.OpRender,
				applog.FieldError, err)
			return
		}
		sess.messageID = sent.MessageID
		return
	}

	edit := tgbotapi.NewEditMessageText(sess.chatID, sess.messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = keyboard
	if _, err := b.sender.Send(edit); err != nil && !isNotModified(err) {
		b.logger.ErrorContext(ctx, "Failed to update history",
			applog.FieldChatID, sess.chatID,
			applog.FieldOperation, applog.OpRender,
			applog.FieldError, err)
	}
}

// keyboard builds "← [m1] [m2] [m3] →" for the frame, or nil when there is
// nothing to page through.
func (b *Bot) keyboard(f history.Frame) *tgbotapi.InlineKeyboardMarkup {
	if f.GroupCount == 0 {
		return nil
	}

	row := make([]tgbotapi.InlineKeyboardButton, 0, len(f.Current)+2)
	row = append(row, arrow("←", CallbackPrev, f.CanPrevious()))
	for _, m := range f.Current {
		label := MonthButton(m)
		if f.Selected != nil && f.Selected.Equal(m) {
			label = selectedMarker(b.theme) + " " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, CallbackMonth+m.String()))
	}
	row = append(row, arrow("→", CallbackNext, f.CanNext()))

	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}

func arrow(label, data string, enabled bool) tgbotapi.InlineKeyboardButton {
	if !enabled {
		return tgbotapi.NewInlineKeyboardButtonData("·", callbackNoop)
	}
	return tgbotapi.NewInlineKeyboardButtonData(label, data)
}

func selectedMarker(theme string) string {
	if theme == "dark" {
		return "○"
	}
	return "●"
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.logger.ErrorContext(ctx, "Failed to send message", applog.FieldError, err)
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.WarnContext(ctx, "Failed to answer callback", applog.FieldError, err)
	}
}

// isNotModified matches Telegram's refusal to apply an identical edit.
func isNotModified(err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return strings.Contains(tgErr.Message, "message is not modified")
	}
	return strings.Contains(err.Error(), "message is not modified")
}
