package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bot-ofertas/internal/logger"
	apperrors "bot-ofertas/pkg/errors"
)

const sendStage = "telegram"

// Init inicializa o bot do Telegram
func Init(token string) (*tgbotapi.BotAPI, error) {
	return InitWithEndpoint(token, tgbotapi.APIEndpoint)
}

// InitWithEndpoint inicializa o bot usando outro endpoint da API (formato "…/bot%s/%s")
func InitWithEndpoint(token, endpoint string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, apperrors.NewConfiguration("TELEGRAM_BOT_TOKEN não configurado. Verifique o arquivo .env", nil)
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, apperrors.NewConfiguration("token do Telegram inválido ou expirado. Verifique o TELEGRAM_BOT_TOKEN no arquivo .env. Para obter um token, fale com @BotFather no Telegram", err)
		}
		return nil, apperrors.NewTransport(sendStage, "erro ao conectar com Telegram", err)
	}

	bot.Debug = false
	logger.ForNotifier().Info().Str("bot", bot.Self.UserName).Msg("Bot autorizado")
	return bot, nil
}

// Telegram envia mensagens HTML para um único chat ou canal
type Telegram struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	channel string
}

// NewTelegram aceita um chat id numérico ou um canal no formato "@canal"
func NewTelegram(api *tgbotapi.BotAPI, chat string) (*Telegram, error) {
	chat = strings.TrimSpace(chat)
	if strings.HasPrefix(chat, "@") {
		return &Telegram{api: api, channel: chat}, nil
	}

	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return nil, apperrors.NewConfiguration(fmt.Sprintf("TELEGRAM_CHAT_ID inválido: %q", chat), err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// Send envia uma mensagem em modo HTML.
// Um pedido de espera do Telegram (retry_after) vira erro de rate limit com a espera exigida.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if t.channel != "" {
		msg = tgbotapi.NewMessageToChannel(t.channel, text)
	} else {
		msg = tgbotapi.NewMessage(t.chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := t.api.Send(msg); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if wait, ok := retryAfter(err); ok {
		return apperrors.NewRateLimit(sendStage, wait, err)
	}
	return apperrors.NewTransport(sendStage, "erro ao enviar mensagem", err)
}

func retryAfter(err error) (time.Duration, bool) {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second, true
	}
	return 0, false
}
