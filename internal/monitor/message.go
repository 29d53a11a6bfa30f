package monitor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bot-ofertas/internal/models"
)

const absentValue = "-"

// escapeHTML escapa caracteres especiais para HTML do Telegram
func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, `"`, "&quot;")
	return text
}

func formatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return absentValue
	}
	return d.Decimal.StringFixed(models.Places)
}

// RenderMessage monta a mensagem de oferta enviada ao canal
func RenderMessage(p models.StoredProduct) string {
	link := absentValue
	if p.Link != "" {
		link = escapeHTML(p.Link)
	}

	return fmt.Sprintf(
		"<b>%s</b>\n"+
			"De: R$ %s\n"+
			"Por: R$ %s\n"+
			"Desconto: %s%%\n"+
			"<a href=\"%s\">Link do produto</a>",
		escapeHTML(p.Name),
		formatAmount(p.OldPrice),
		formatAmount(p.NewPrice),
		formatAmount(p.Discount),
		link,
	)
}
