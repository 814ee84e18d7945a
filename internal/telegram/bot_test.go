package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"matchday/internal/core"
	"matchday/internal/history"
	applog "matchday/internal/log"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	answers []tgbotapi.CallbackConfig
	nextID  int
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	s.nextID++
	return tgbotapi.Message{MessageID: 500 + s.nextID}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		s.answers = append(s.answers, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) last() tgbotapi.Chattable {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return nil
	}
	return s.sent[len(s.sent)-1]
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeSender) lastAnswer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.answers) == 0 {
		return "<none>"
	}
	return s.answers[len(s.answers)-1].Text
}

type fakeSource struct {
	records []core.Match
	err     error
	grouper *history.Grouper[core.Match]
}

func (f *fakeSource) Records(context.Context) ([]core.Match, error) { return f.records, f.err }

func (f *fakeSource) Grouper() *history.Grouper[core.Match] { return f.grouper }

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []struct {
		at time.Time
		f  func()
	}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, struct {
		at time.Time
		f  func()
	}{c.now.Add(d), f})
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	pending := c.timers[:0]
	for _, tm := range c.timers {
		if !tm.at.After(c.now) {
			due = append(due, tm.f)
		} else {
			pending = append(pending, tm)
		}
	}
	c.timers = pending
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func sampleMatches() []core.Match {
	return []core.Match{
		{ID: 1, StartTime: "2025-01-15T10:00:00"},
		{ID: 2, StartTime: "2025-03-02T18:00:00", EndTime: "2025-03-02T20:00:00",
			Venue:   &core.Venue{Name: "Арена"},
			Results: &core.Results{WinningTeam: core.TeamBlue, BlueTeamScore: 4}},
		{ID: 3, StartTime: "2025-06-01T09:00:00"},
		{ID: 4, StartTime: "2025-07-05T09:00:00"},
	}
}

const (
	testChat = int64(100)
	testUser = int64(42)
)

func newTestBot(t *testing.T, records []core.Match) (*Bot, *fakeSender, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	sender := &fakeSender{}
	source := &fakeSource{records: records, grouper: history.NewGrouper[core.Match](history.DefaultConfig())}
	bot := New(sender, source, Config{
		Pager:   history.PagerConfig{Duration: 300 * time.Millisecond, Kickoff: 10 * time.Millisecond, Clock: clock},
		Allowed: func(id int64) bool { return id == testUser },
		Now:     clock.Now,
	}, applog.New(applog.Config{Output: io.Discard}))
	return bot, sender, clock
}

func command(userID int64, text string) tgbotapi.Update {
	name, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: testChat},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func callback(messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: testUser},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: testChat}},
		Data:    data,
	}}
}

func buttons(t *testing.T, markup *tgbotapi.InlineKeyboardMarkup) []string {
	t.Helper()
	if markup == nil || len(markup.InlineKeyboard) != 1 {
		t.Fatalf("expected one keyboard row, got %+v", markup)
	}
	var out []string
	for _, b := range markup.InlineKeyboard[0] {
		out = append(out, b.Text+"|"+*b.CallbackData)
	}
	return out
}

func lastEdit(t *testing.T, s *fakeSender) tgbotapi.EditMessageTextConfig {
	t.Helper()
	edit, ok := s.last().(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("last sent is %T, want edit", s.last())
	}
	return edit
}

func TestHistoryCommandSendsCurrentMonth(t *testing.T) {
	bot, sender, _ := newTestBot(t, sampleMatches())
	bot.HandleUpdate(context.Background(), command(testUser, "/history"))

	msg, ok := sender.last().(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want message", sender.last())
	}
	if !strings.Contains(msg.Text, "Март 2025") || !strings.Contains(msg.Text, "2 марта") {
		t.Fatalf("unexpected text:\n%s", msg.Text)
	}
	if !strings.Contains(msg.Text, "🔵 Синие") {
		t.Errorf("winner missing:\n%s", msg.Text)
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("reply markup is %T", msg.ReplyMarkup)
	}
	want := []string{"·|noop", "Янв 25|month:2025-01", "● Мар 25|month:2025-03", "Июн 25|month:2025-06", "→|nav:next"}
	if got := buttons(t, &markup); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("keyboard = %v, want %v", got, want)
	}
}

func TestNavigationEditsMessageAfterTransition(t *testing.T) {
	bot, sender, clock := newTestBot(t, sampleMatches())
	ctx := context.Background()
	bot.HandleUpdate(ctx, command(testUser, "/history"))
	messageID := 501

	bot.HandleUpdate(ctx, callback(messageID, CallbackNext))
	if sender.count() != 1 {
		t.Fatalf("frames in flight must not be drawn, sent %d", sender.count())
	}

	bot.HandleUpdate(ctx, callback(messageID, CallbackNext))
	if got := sender.lastAnswer(); got != "Подождите…" {
		t.Errorf("answer during transition = %q", got)
	}

	clock.Advance(300 * time.Millisecond)
	edit := lastEdit(t, sender)
	if edit.MessageID != messageID || edit.ChatID != testChat {
		t.Fatalf("edit targets %d/%d", edit.ChatID, edit.MessageID)
	}
	want := []string{"←|nav:prev", "Июл 25|month:2025-07", "·|noop"}
	if got := buttons(t, edit.ReplyMarkup); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("keyboard = %v, want %v", got, want)
	}
	// selection survives paging
	if !strings.Contains(edit.Text, "Март 2025") {
		t.Errorf("selected month lost:\n%s", edit.Text)
	}

	bot.HandleUpdate(ctx, callback(messageID, CallbackMonth+"2025-07"))
	edit = lastEdit(t, sender)
	if !strings.Contains(edit.Text, "Июль 2025") || !strings.Contains(edit.Text, "5 июля") {
		t.Fatalf("month selection not rendered:\n%s", edit.Text)
	}
	if !strings.Contains(edit.Text, "Результат не определен") {
		t.Errorf("missing undetermined result:\n%s", edit.Text)
	}

	bot.HandleUpdate(ctx, callback(messageID, CallbackNext))
	if got := sender.lastAnswer(); got != "Больше месяцев нет" {
		t.Errorf("boundary answer = %q", got)
	}
}

func TestSelectUnknownMonth(t *testing.T) {
	bot, sender, _ := newTestBot(t, sampleMatches())
	ctx := context.Background()
	bot.HandleUpdate(ctx, command(testUser, "/history"))
	before := sender.count()

	bot.HandleUpdate(ctx, callback(501, CallbackMonth+"2025-02"))
	if sender.count() != before {
		t.Fatalf("refused selection must not redraw")
	}
	if got := sender.lastAnswer(); got != "В этом месяце матчей нет" {
		t.Errorf("answer = %q", got)
	}

	bot.HandleUpdate(ctx, callback(501, "month:garbage"))
	bot.HandleUpdate(ctx, callback(501, "bogus"))
	if sender.count() != before {
		t.Fatalf("invalid callbacks must not redraw")
	}
}

func TestCallbackWithoutSessionReopens(t *testing.T) {
	bot, sender, _ := newTestBot(t, sampleMatches())

	bot.HandleUpdate(context.Background(), callback(777, CallbackMonth+"2025-01"))
	edit := lastEdit(t, sender)
	if edit.MessageID != 777 || !strings.Contains(edit.Text, "Январь 2025") {
		t.Fatalf("unexpected edit %d:\n%s", edit.MessageID, edit.Text)
	}
}

func TestEmptyHistory(t *testing.T) {
	bot, sender, _ := newTestBot(t, nil)
	bot.HandleUpdate(context.Background(), command(testUser, "/history"))

	msg := sender.last().(tgbotapi.MessageConfig)
	if !strings.Contains(msg.Text, "В марте 2025 матчей не было.") {
		t.Fatalf("empty state text:\n%s", msg.Text)
	}
	if msg.ReplyMarkup != nil {
		t.Fatalf("no keyboard expected, got %+v", msg.ReplyMarkup)
	}
}

func TestAccessAndErrors(t *testing.T) {
	bot, sender, _ := newTestBot(t, sampleMatches())
	ctx := context.Background()

	bot.HandleUpdate(ctx, command(7, "/history"))
	if msg := sender.last().(tgbotapi.MessageConfig); msg.Text != "Доступ запрещен." {
		t.Fatalf("text = %q", msg.Text)
	}

	bot.HandleUpdate(ctx, command(testUser, "/unknown"))
	if msg := sender.last().(tgbotapi.MessageConfig); !strings.Contains(msg.Text, "Неизвестная команда") {
		t.Fatalf("text = %q", msg.Text)
	}

	failing, sender2, _ := newTestBot(t, nil)
	failing.source.(*fakeSource).err = errors.New("backend down")
	failing.HandleUpdate(ctx, command(testUser, "/history"))
	if msg := sender2.last().(tgbotapi.MessageConfig); !strings.Contains(msg.Text, "Не удалось загрузить") {
		t.Fatalf("text = %q", msg.Text)
	}
}

func TestRunStopsOnContext(t *testing.T) {
	bot, sender, _ := newTestBot(t, sampleMatches())
	updates := make(chan tgbotapi.Update, 1)
	updates <- command(testUser, "/help")
	close(updates)

	if err := bot.Run(context.Background(), updates); err != nil {
		t.Fatalf("Run on closed channel: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("help not sent")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bot.Run(ctx, make(chan tgbotapi.Update)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
}
