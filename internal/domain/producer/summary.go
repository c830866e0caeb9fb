// internal/domain/producer/summary.go
package producer

import (
	"fmt"
	"strings"
)

// RenderOrderSummary builds the deterministic plain-text order summary
// sent to email-mode producers. Same payload in, same text out, so a
// partner-side retry of the mail pipeline cannot produce a different
// order document.
func RenderOrderSummary(payload OrderPayload) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Order: %s\n", payload.OrderNumber)
	fmt.Fprintf(&b, "Reference: %s\n", payload.ExternalReference)
	b.WriteString("\n")

	b.WriteString("Items:\n")
	for _, item := range payload.Items {
		fmt.Fprintf(&b, "  %dx %s (SKU %s)", item.Quantity, item.ProductName, item.SKU)
		if item.Size != "" {
			fmt.Fprintf(&b, ", %s", item.Size)
		}
		if item.WeightGrams > 0 {
			fmt.Fprintf(&b, ", %dg", item.WeightGrams)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	addr := payload.ShippingAddress
	b.WriteString("Ship to:\n")
	fmt.Fprintf(&b, "  %s %s\n", addr.FirstName, addr.LastName)
	if addr.Company != "" {
		fmt.Fprintf(&b, "  %s\n", addr.Company)
	}
	fmt.Fprintf(&b, "  %s\n", addr.AddressLine1)
	if addr.AddressLine2 != "" {
		fmt.Fprintf(&b, "  %s\n", addr.AddressLine2)
	}
	fmt.Fprintf(&b, "  %s %s\n", addr.PostalCode, addr.City)
	fmt.Fprintf(&b, "  %s\n", addr.Country)
	if addr.Phone != "" {
		fmt.Fprintf(&b, "  Phone: %s\n", addr.Phone)
	}

	if payload.CustomerEmail != "" {
		fmt.Fprintf(&b, "\nCustomer email: %s\n", payload.CustomerEmail)
	}
	if payload.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", payload.Notes)
	}

	return b.String()
}
