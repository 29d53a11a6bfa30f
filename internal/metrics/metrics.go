package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry guarda as métricas de uma execução; o cron as exporta em textfile
var Registry = prometheus.NewRegistry()

var (
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofertas_pages_total",
			Help: "Páginas de ofertas processadas, por resultado",
		},
		[]string{"result"},
	)

	ProductsUpserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofertas_products_upserted_total",
			Help: "Produtos gravados no banco, por resultado",
		},
		[]string{"outcome"},
	)

	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ofertas_messages_sent_total",
			Help: "Mensagens entregues ao Telegram",
		},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ofertas_rate_limited_total",
			Help: "Pedidos de espera recebidos do Telegram",
		},
	)

	PendingProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ofertas_pending_products",
			Help: "Produtos ainda aguardando envio ao fim da execução",
		},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ofertas_last_run_timestamp_seconds",
			Help: "Momento em que a última execução terminou",
		},
	)
)

func init() {
	Registry.MustRegister(PagesFetched, ProductsUpserted, MessagesSent, RateLimited, PendingProducts, LastRunTimestamp)
}

// WriteTextfile grava as métricas no formato do textfile collector do node_exporter
func WriteTextfile(path string) error {
	LastRunTimestamp.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, Registry)
}
