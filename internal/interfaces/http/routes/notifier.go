// internal/interfaces/http/routes/notifier.go
package routes

import (
	"context"

	"github.com/your-org/farmshop-backend/internal/domain/order"
	"github.com/your-org/farmshop-backend/internal/pkg/email"
)

// orderNotifier adapts the email service to the webhook processor's
// notifier interface.
type orderNotifier struct {
	emailService *email.EmailService
}

func (n *orderNotifier) SendOrderConfirmation(ctx context.Context, ord *order.Order) error {
	items := make([]email.OrderConfirmationItem, 0, len(ord.Items))
	for _, item := range ord.Items {
		items = append(items, email.OrderConfirmationItem{
			Name:           item.Name,
			VariantName:    item.VariantName,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		})
	}

	return n.emailService.SendOrderConfirmationEmail(ctx, email.OrderConfirmationData{
		OrderNumber:   ord.OrderNumber,
		CustomerEmail: ord.Email,
		FirstName:     ord.ShippingAddress.FirstName,
		Items:         items,
		SubtotalCents: ord.SubtotalCents,
		ShippingCents: ord.ShippingCents,
		TotalCents:    ord.TotalCents,
	})
}
