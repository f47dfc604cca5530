// Package mailer sends invitation emails over SMTP. Works with any
// plain-auth SMTP server; Mailtrap (smtp.mailtrap.io) is convenient for
// development.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"collab-todo-backend-go/internal/config"
	"collab-todo-backend-go/internal/models"
)

// Mailer sends invitation mail. It implements core.InviteMailer.
type Mailer struct {
	addr   string
	host   string
	auth   smtp.Auth
	sender string
	logger *zap.Logger
}

// New creates a Mailer from the SMTP configuration block.
func New(cfg *config.Config, logger *zap.Logger) *Mailer {
	return &Mailer{
		addr:   cfg.SMTPHost + ":" + cfg.SMTPPort,
		host:   cfg.SMTPHost,
		auth:   smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost),
		sender: cfg.SMTPSender,
		logger: logger,
	}
}

// SendInvitation emails the invitee the accept link. The message names
// the inviter, the list, the granted role and the seven-day expiry.
func (m *Mailer) SendInvitation(ctx context.Context, inv *models.PendingInvitation, acceptURL string) error {
	if inv.Email == "" {
		return fmt.Errorf("invitation has no recipient email")
	}

	subject := fmt.Sprintf("%s invited you to %q", inv.InvitedByName, inv.ListName)
	body := fmt.Sprintf(
		"<html><body>"+
			"<p>%s invited you to collaborate on the list <b>%s</b> as <b>%s</b>.</p>"+
			"<p><a href=%q>Open the invitation</a></p>"+
			"<p>This invitation expires in 7 days.</p>"+
			"</body></html>",
		inv.InvitedByName, inv.ListName, inv.Role, acceptURL)

	message := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", inv.Email, m.sender, subject, body))

	// net/smtp has no context support; honor cancellation before the
	// dial at least.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(m.addr, m.auth, m.sender, []string{inv.Email}, message); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}
	m.logger.Debug("invitation email sent",
		zap.String("email", inv.Email), zap.String("listId", inv.ListID))
	return nil
}
