package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/petalmart/commerce-backend/models"
)

// EmailSender sends transactional mail. Failures are logged by callers and
// never fail the triggering operation.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

// SMTPSender sends mail over plain SMTP with AUTH.
type SMTPSender struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTPSender(host, port, user, pass string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: user}
}

func (s *SMTPSender) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	to := order.ShippingAddress.Email
	if to == "" {
		return nil
	}

	subject := fmt.Sprintf("Order confirmed: %s", order.OrderNumber)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\r\n\r\n", order.ShippingAddress.Name)
	fmt.Fprintf(&body, "Your order %s has been confirmed.\r\n\r\n", order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&body, "  %s x%d  Rs %s\r\n", item.ProductName, item.Quantity, RupeeString(item.Subtotal))
	}
	fmt.Fprintf(&body, "\r\nTotal: Rs %s\r\n", RupeeString(order.Pricing.Total))

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.from, to, subject, body.String())

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	return smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, []byte(msg))
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	return nil
}
