package monitor

import (
	"context"
	"time"

	"bot-ofertas/internal/logger"
	"bot-ofertas/internal/metrics"
	"bot-ofertas/internal/models"
	apperrors "bot-ofertas/pkg/errors"
)

// DefaultSendInterval é a pausa entre duas mensagens enviadas
const DefaultSendInterval = 8 * time.Second

// Sender entrega uma mensagem ao destino
type Sender interface {
	Send(ctx context.Context, text string) error
}

// PendingStore é a parte do repositório usada pelo notificador
type PendingStore interface {
	FetchPending(ctx context.Context) ([]models.StoredProduct, error)
	MarkDelivered(ctx context.Context, id int64) error
}

// Notifier envia os produtos pendentes, um por vez
type Notifier struct {
	store    PendingStore
	sender   Sender
	interval time.Duration
	sleep    Sleeper
	log      *logger.Logger
}

// NewNotifier cria o notificador; sleep nil usa Sleep
func NewNotifier(store PendingStore, sender Sender, interval time.Duration, sleep Sleeper, log *logger.Logger) *Notifier {
	if sleep == nil {
		sleep = Sleep
	}
	return &Notifier{
		store:    store,
		sender:   sender,
		interval: interval,
		sleep:    sleep,
		log:      log,
	}
}

// Flush envia todos os pendentes em ordem de id.
// Um pedido de espera é respeitado e o envio repetido uma única vez; qualquer outra falha
// interrompe o flush e os registros restantes continuam pendentes.
func (n *Notifier) Flush(ctx context.Context) error {
	pending, err := n.store.FetchPending(ctx)
	if err != nil {
		return apperrors.NewPersistence("fetch_pending", "erro ao buscar pendentes", err)
	}
	metrics.PendingProducts.Set(float64(len(pending)))

	if len(pending) == 0 {
		n.log.Info().Msg("Nenhum produto pendente")
		return nil
	}

	n.log.Info().Int("pending", len(pending)).Msg("Enviando produtos pendentes")

	for i, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := n.deliver(ctx, p); err != nil {
			n.log.Error().
				Err(err).
				Int64("id", p.ID).
				Str("product", p.Name).
				Int("remaining", len(pending)-i).
				Msg("Envio interrompido")
			return err
		}
		metrics.PendingProducts.Dec()

		if i < len(pending)-1 {
			if err := n.sleep(ctx, n.interval); err != nil {
				return err
			}
		}
	}

	n.log.Info().Int("sent", len(pending)).Msg("Produtos pendentes enviados")
	return nil
}

func (n *Notifier) deliver(ctx context.Context, p models.StoredProduct) error {
	text := RenderMessage(p)

	err := n.sender.Send(ctx, text)
	if wait, ok := apperrors.IsRateLimit(err); ok {
		metrics.RateLimited.Inc()
		n.log.Warn().
			Int64("id", p.ID).
			Dur("wait", wait).
			Msg("Telegram pediu espera, tentando de novo")

		if err := n.sleep(ctx, wait); err != nil {
			return err
		}
		err = n.sender.Send(ctx, text)
	}
	if err != nil {
		return err
	}

	metrics.MessagesSent.Inc()
	if err := n.store.MarkDelivered(ctx, p.ID); err != nil {
		return apperrors.NewPersistence("mark_delivered", "erro ao marcar produto como enviado", err)
	}

	n.log.Debug().Int64("id", p.ID).Str("product", p.Name).Msg("Produto enviado")
	return nil
}
