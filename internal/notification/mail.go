package notification

import (
	"bytes"
	"context"
	"html/template"

	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"

	"tienda_perfumes/internal/config"
	"tienda_perfumes/internal/models"
)

// SMTPMailer envoie les e-mails transactionnels via go-mail.
type SMTPMailer struct {
	cfg config.SMTP
}

// NewSMTPMailer renvoie nil si aucun serveur SMTP n'est configuré.
func NewSMTPMailer(cfg config.SMTP) *SMTPMailer {
	if cfg.Host == "" {
		return nil
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Mise à jour de commande</title></head>
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f5f5f5;">
  <div style="max-width:600px;margin:40px auto;background:#ffffff;border-radius:12px;">
    <div style="background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);padding:40px 30px;text-align:center;border-radius:12px 12px 0 0;">
      <h1 style="margin:0;color:#ffffff;font-size:28px;">{{.Icon}} Tienda Perfumes</h1>
      <p style="margin:10px 0 0 0;color:#ffffff;">Mise à jour de votre commande</p>
    </div>
    <div style="padding:30px;">
      <div style="display:inline-block;padding:12px 24px;background-color:{{.Color}};color:#ffffff;border-radius:25px;font-weight:600;">{{.Icon}} {{.Status}}</div>
      <p style="color:#333333;font-size:16px;line-height:1.6;">{{.Message}}</p>
      <p style="color:#666666;"><strong>Numéro de commande :</strong> {{.OrderNumber}}</p>
    </div>
    <div style="padding:30px;background-color:#f8f9fa;border-radius:0 0 12px 12px;text-align:center;color:#999999;font-size:12px;">
      Cet email a été envoyé automatiquement, merci de ne pas y répondre.
    </div>
  </div>
</body>
</html>`))

var orderTemplate = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Confirmation de commande</title></head>
<body style="font-family:Arial,sans-serif;background-color:#f9f9f9;padding:20px;">
  <div style="max-width:600px;margin:auto;background-color:white;padding:20px;border-radius:10px;">
    <h2 style="color:#333;">Commande {{.OrderNumber}} enregistrée</h2>
    <p>Bonjour,</p>
    <p>Votre commande a bien été enregistrée. Elle sera confirmée dès réception du paiement.</p>
    <table style="width:100%;border-collapse:collapse;margin:20px 0;">
      <thead>
        <tr style="background-color:#f0f0f0;">
          <th style="padding:10px;text-align:left;border:1px solid #ddd;">Parfum</th>
          <th style="padding:10px;text-align:left;border:1px solid #ddd;">Quantité</th>
          <th style="padding:10px;text-align:left;border:1px solid #ddd;">Prix unitaire</th>
          <th style="padding:10px;text-align:left;border:1px solid #ddd;">Total</th>
        </tr>
      </thead>
      <tbody>
      {{range .Items}}<tr>
          <td style="padding:10px;border:1px solid #ddd;">{{.PerfumeName}}</td>
          <td style="padding:10px;border:1px solid #ddd;">{{.Quantity}}</td>
          <td style="padding:10px;border:1px solid #ddd;">{{.UnitPrice.StringFixed 2}}</td>
          <td style="padding:10px;border:1px solid #ddd;">{{.TotalPrice.StringFixed 2}}</td>
        </tr>{{end}}
      </tbody>
      <tfoot>
        <tr>
          <td colspan="3" style="padding:10px;text-align:right;font-weight:bold;">Total :</td>
          <td style="padding:10px;font-weight:bold;">{{.Total}}</td>
        </tr>
      </tfoot>
    </table>
    <p style="margin-top:30px;color:#555;">Cordialement,<br><strong>L'équipe Tienda Perfumes</strong></p>
  </div>
</body>
</html>`))

// RenderStatusEmail génère le HTML du mail de changement de statut.
func RenderStatusEmail(orderNumber string, status models.OrderStatus) (string, error) {
	var buf bytes.Buffer
	err := statusTemplate.Execute(&buf, map[string]string{
		"OrderNumber": orderNumber,
		"Status":      string(status),
		"Icon":        statusIcon(status),
		"Color":       statusColor(status),
		"Message":     statusMessage(status),
	})
	return buf.String(), err
}

// RenderOrderConfirmation génère le HTML du récapitulatif envoyé à l'acheteur.
func RenderOrderConfirmation(orderNumber string, items []models.OrderItem, total decimal.Decimal) (string, error) {
	var buf bytes.Buffer
	err := orderTemplate.Execute(&buf, map[string]any{
		"OrderNumber": orderNumber,
		"Items":       items,
		"Total":       total.StringFixed(2),
	})
	return buf.String(), err
}

func statusSubject(s models.OrderStatus) string {
	switch s {
	case models.OrderConfirmed:
		return "✅ Paiement confirmé - Tienda Perfumes"
	case models.OrderShipped:
		return "📦 Votre commande a été expédiée - Tienda Perfumes"
	case models.OrderDelivered:
		return "🎉 Votre commande a été livrée - Tienda Perfumes"
	case models.OrderCancelled:
		return "❌ Commande annulée - Tienda Perfumes"
	case models.OrderRefunded:
		return "💰 Remboursement effectué - Tienda Perfumes"
	default:
		return "📋 Mise à jour de votre commande - Tienda Perfumes"
	}
}

func statusTitle(s models.OrderStatus) string {
	return statusIcon(s) + " Commande " + string(s)
}

func statusMessage(s models.OrderStatus) string {
	switch s {
	case models.OrderConfirmed:
		return "Votre paiement a été confirmé avec succès. Nous préparons votre commande."
	case models.OrderPreparing:
		return "Votre commande est en cours de préparation."
	case models.OrderShipped:
		return "Bonne nouvelle ! Votre commande a été expédiée et est en route vers vous."
	case models.OrderDelivered:
		return "Votre commande a été livrée. Nous espérons que vous en êtes satisfait !"
	case models.OrderCancelled:
		return "Votre commande a été annulée. Si vous avez des questions, n'hésitez pas à nous contacter."
	case models.OrderRefunded:
		return "Votre remboursement a été traité. Les fonds seront crédités sous 5 à 10 jours ouvrés."
	default:
		return "Le statut de votre commande a été mis à jour."
	}
}

func statusIcon(s models.OrderStatus) string {
	switch s {
	case models.OrderConfirmed:
		return "✅"
	case models.OrderPreparing:
		return "🧴"
	case models.OrderShipped:
		return "📦"
	case models.OrderDelivered:
		return "🎉"
	case models.OrderCancelled:
		return "❌"
	case models.OrderRefunded:
		return "💰"
	default:
		return "📋"
	}
}

func statusColor(s models.OrderStatus) string {
	switch s {
	case models.OrderConfirmed:
		return "#10b981"
	case models.OrderShipped:
		return "#3b82f6"
	case models.OrderDelivered:
		return "#8b5cf6"
	case models.OrderCancelled:
		return "#ef4444"
	case models.OrderRefunded:
		return "#f59e0b"
	default:
		return "#6b7280"
	}
}
