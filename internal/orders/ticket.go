package orders

import (
	"fmt"
	"net/url"
	"strings"
)

const ticketHeader = "SEÑOR CHILAQUIL"
const ticketRule = "------------------------"

// RenderTicket builds the plain-text receipt sent over WhatsApp or printed.
func RenderTicket(o Order, items []Item) string {
	var b strings.Builder
	b.WriteString(ticketHeader + "\n")
	b.WriteString(fmt.Sprintf("Pedido %s\n", o.Code))
	b.WriteString(ticketRule + "\n")

	for _, it := range items {
		b.WriteString(fmt.Sprintf("%d %s - $%s\n", it.Qty, it.ProductName, it.Subtotal.StringFixed(2)))
		if it.ProteinLabel != "" {
			b.WriteString("  PROT: " + it.ProteinLabel + "\n")
		}
		if it.Without != "" {
			b.WriteString("  SIN: " + it.Without + "\n")
		}
		if it.Note != "" {
			b.WriteString("  NOTA: " + it.Note + "\n")
		}
	}

	b.WriteString(ticketRule + "\n")
	b.WriteString(fmt.Sprintf("TOTAL: $%s\n", o.Total.StringFixed(2)))
	b.WriteString("\n¡Gracias por tu compra!")
	return b.String()
}

// WhatsAppLink builds a wa.me link carrying the ticket text. phone may be
// empty, producing a recipient-less share link.
func WhatsAppLink(phone, text string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", phone, url.QueryEscape(text))
}
