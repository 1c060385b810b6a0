// File: internal/alert/email.go
package alert

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// EmailChannelConfig holds email channel configuration
type EmailChannelConfig struct {
	SMTPHost string   `json:"smtp_host"`
	SMTPPort int      `json:"smtp_port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

// EmailChannel delivers alerts over SMTP
type EmailChannel struct {
	config *EmailChannelConfig
	auth   smtp.Auth
	logger *logrus.Entry
}

// NewEmailChannel creates a new email channel
func NewEmailChannel(config *EmailChannelConfig) *EmailChannel {
	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.SMTPHost)
	}

	return &EmailChannel{
		config: config,
		auth:   auth,
		logger: utils.ComponentLogger("email_channel"),
	}
}

// Name returns the channel name
func (ec *EmailChannel) Name() string {
	return "email"
}

// Send delivers one alert as an email
func (ec *EmailChannel) Send(ctx context.Context, event models.AlertEvent, network string) error {
	if len(ec.config.To) == 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Email channel has no recipients", "")
	}

	subject := fmt.Sprintf("[%s] %s: %s", network, strings.ToUpper(string(event.Severity)), event.Subject)
	message := ec.buildMessage(subject, event, network)

	addr := fmt.Sprintf("%s:%d", ec.config.SMTPHost, ec.config.SMTPPort)

	// net/smtp has no context support; run the send in a goroutine so
	// a cancelled dispatch does not block on a slow SMTP server
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, ec.auth, ec.config.From, ec.config.To, []byte(message))
	}()

	select {
	case err := <-done:
		if err != nil {
			return utils.NewAppError(utils.ErrCodeExternal, "Failed to send email", err.Error())
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	ec.logger.WithFields(logrus.Fields{
		"subject":    event.Subject,
		"recipients": len(ec.config.To),
	}).Debug("Email alert delivered")
	return nil
}

// buildMessage renders the RFC 822 message body
func (ec *EmailChannel) buildMessage(subject string, event models.AlertEvent, network string) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("From: %s\r\n", ec.config.From))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(ec.config.To, ", ")))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	builder.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	builder.WriteString(fmt.Sprintf("Network: %s\n", network))
	builder.WriteString(fmt.Sprintf("Time: %s\n", event.Timestamp.Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Severity: %s\n", event.Severity))
	builder.WriteString(fmt.Sprintf("Subject: %s\n\n", event.Subject))
	builder.WriteString(event.Message)
	builder.WriteString("\n")
	return builder.String()
}

var _ Channel = (*EmailChannel)(nil)
