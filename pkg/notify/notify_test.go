package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cuemby/viewsync/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botServer struct {
	mu       sync.Mutex
	paths    []string
	messages []sendMessageRequest
	reject   bool
}

func (b *botServer) handler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var req sendMessageRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.paths = append(b.paths, r.URL.Path)
	b.messages = append(b.messages, req)

	w.Header().Set("Content-Type", "application/json")
	if b.reject {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: false, Description: "Bad Request: chat not found"})
		return
	}
	_ = json.NewEncoder(w).Encode(apiResponse{OK: true})
}

func TestTelegramSend(t *testing.T) {
	bot := &botServer{}
	srv := httptest.NewServer(http.HandlerFunc(bot.handler))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "123:abc", APIURL: srv.URL})
	require.NoError(t, tg.Send(context.Background(), "-10042", "stat_clicks repaired for 1 day"))

	require.Len(t, bot.messages, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", bot.paths[0])
	assert.Equal(t, "-10042", bot.messages[0].ChatID)
	assert.Equal(t, "stat_clicks repaired for 1 day", bot.messages[0].Text)
}

func TestTelegramRejected(t *testing.T) {
	bot := &botServer{reject: true}
	srv := httptest.NewServer(http.HandlerFunc(bot.handler))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "t", APIURL: srv.URL})
	err := tg.Send(context.Background(), "1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramRedactsToken(t *testing.T) {
	tg := NewTelegram(TelegramConfig{Token: "secret-token", APIURL: "http://127.0.0.1:1", Timeout: time.Second})
	err := tg.Send(context.Background(), "1", "hello")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestTelegramPacing(t *testing.T) {
	bot := &botServer{}
	srv := httptest.NewServer(http.HandlerFunc(bot.handler))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "t", APIURL: srv.URL, MinInterval: 50 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, tg.Send(context.Background(), "1", "m"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	text := "line-one\nline-two\nline-three"
	parts := splitMessage(text, 18)
	assert.Equal(t, []string{"line-one\nline-two", "line-three"}, parts)

	long := strings.Repeat("x", 25)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, splitMessage(long, 10))
}

func TestSplitMessageCountsCharacters(t *testing.T) {
	// 10 Cyrillic letters are 20 bytes but fit a 10-character limit
	word := strings.Repeat("д", 10)
	assert.Equal(t, []string{word}, splitMessage(word, 10))

	parts := splitMessage(strings.Repeat("д", 25), 10)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p), "part %q cut inside a rune", p)
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 10)
	}
	assert.Equal(t, strings.Repeat("д", 25), strings.Join(parts, ""))
}

type recordingSender struct {
	sent []string
	fail map[string]error
}

func (s *recordingSender) Send(ctx context.Context, channel, text string) error {
	if err := s.fail[channel]; err != nil {
		return err
	}
	s.sent = append(s.sent, channel+": "+text)
	return nil
}

func TestNotifierRouting(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, Channels{Report: "analytics", Status: "ops"})

	failed := n.Deliver(context.Background(), []report.Message{
		{Kind: report.KindReport, Text: "repaired"},
		{Kind: report.KindStatus, Text: "all clear"},
	})

	assert.Zero(t, failed)
	assert.Equal(t, []string{"analytics: repaired", "ops: all clear"}, sender.sent)
}

func TestNotifierStatusFallsBackToReport(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, Channels{Report: "analytics"})

	n.Deliver(context.Background(), []report.Message{{Kind: report.KindStatus, Text: "all clear"}})
	assert.Equal(t, []string{"analytics: all clear"}, sender.sent)
}

func TestNotifierFailuresAreCounted(t *testing.T) {
	sender := &recordingSender{fail: map[string]error{"analytics": errors.New("network down")}}
	n := NewNotifier(sender, Channels{Report: "analytics", Status: "ops"})

	failed := n.Deliver(context.Background(), []report.Message{
		{Kind: report.KindReport, Text: "a"},
		{Kind: report.KindReport, Text: "b"},
		{Kind: report.KindStatus, Text: "c"},
	})

	assert.Equal(t, 2, failed)
	assert.Equal(t, []string{"ops: c"}, sender.sent)
}

func TestNotifierNoChannel(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, Channels{})

	failed := n.Deliver(context.Background(), []report.Message{{Kind: report.KindReport, Text: "a"}})
	assert.Zero(t, failed)
	assert.Empty(t, sender.sent)
}
