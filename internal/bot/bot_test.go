package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bot-ofertas/pkg/errors"
)

const getMeResponse = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Ofertas","username":"ofertas_bot"}}`

// fakeTelegram simula a Bot API; sendMessage responde o próximo corpo da fila
type fakeTelegram struct {
	mu        sync.Mutex
	responses []string
	forms     []map[string]string
}

func (f *fakeTelegram) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(getMeResponse))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.forms = append(f.forms, map[string]string{
			"chat_id":    r.FormValue("chat_id"),
			"text":       r.FormValue("text"),
			"parse_mode": r.FormValue("parse_mode"),
		})
		resp := `{"ok":true,"result":{"message_id":10,"date":0,"chat":{"id":-100}}}`
		if len(f.responses) > 0 {
			resp, f.responses = f.responses[0], f.responses[1:]
		}
		_, _ = w.Write([]byte(resp))
	default:
		http.NotFound(w, r)
	}
}

func newTestTelegram(t *testing.T, chat string, responses ...string) (*Telegram, *fakeTelegram) {
	t.Helper()
	fake := &fakeTelegram{responses: responses}
	ts := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(ts.Close)

	api, err := InitWithEndpoint("test-token", ts.URL+"/bot%s/%s")
	require.NoError(t, err)
	assert.Equal(t, "ofertas_bot", api.Self.UserName)

	tg, err := NewTelegram(api, chat)
	require.NoError(t, err)
	return tg, fake
}

func TestSendHTMLMessage(t *testing.T) {
	tg, fake := newTestTelegram(t, "-100123")

	require.NoError(t, tg.Send(context.Background(), "<b>TV</b>"))

	require.Len(t, fake.forms, 1)
	assert.Equal(t, "-100123", fake.forms[0]["chat_id"])
	assert.Equal(t, "<b>TV</b>", fake.forms[0]["text"])
	assert.Equal(t, "HTML", fake.forms[0]["parse_mode"])
}

func TestSendToChannel(t *testing.T) {
	tg, fake := newTestTelegram(t, "@ofertas")

	require.NoError(t, tg.Send(context.Background(), "oi"))
	require.Len(t, fake.forms, 1)
	assert.Equal(t, "@ofertas", fake.forms[0]["chat_id"])
}

func TestSendRateLimited(t *testing.T) {
	tg, _ := newTestTelegram(t, "1",
		`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5","parameters":{"retry_after":5}}`)

	err := tg.Send(context.Background(), "oi")
	wait, ok := apperrors.IsRateLimit(err)
	require.True(t, ok, "erro: %v", err)
	assert.Equal(t, 5*time.Second, wait)
}

func TestSendOtherFailure(t *testing.T) {
	tg, _ := newTestTelegram(t, "1",
		`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)

	err := tg.Send(context.Background(), "oi")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTransport))
	_, ok := apperrors.IsRateLimit(err)
	assert.False(t, ok)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	tg, fake := newTestTelegram(t, "1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, tg.Send(ctx, "oi"), context.Canceled)
	assert.Empty(t, fake.forms)
}

func TestNewTelegramRejectsBadChat(t *testing.T) {
	_, err := NewTelegram(nil, "abc")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestClassify(t *testing.T) {
	limited := &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7}}
	wait, ok := apperrors.IsRateLimit(classify(limited))
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, wait)

	assert.True(t, apperrors.IsType(classify(errors.New("connection reset")), apperrors.ErrorTypeTransport))
}

func TestInitWithoutToken(t *testing.T) {
	_, err := Init("")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}
