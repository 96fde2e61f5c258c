package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/aromastream/internal/config"
	"github.com/Dan9191/aromastream/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// sendMail is a seam for testing email delivery.
var sendMail = func(e *email.Email, addr string, auth smtp.Auth) error {
	return e.Send(addr, auth)
}

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendConfirmCode emails a change-request confirmation code to the user
func (s *Sender) SendConfirmCode(user *models.User, field, code string) error {
	if user.Email == "" {
		s.logger.Warnf("User %d has no email address, confirmation code not sent", user.ID)
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}
	e.Subject = fmt.Sprintf("Confirm your %s change", field)

	body := fmt.Sprintf("Dear %s,\n\n", user.Username)
	body += fmt.Sprintf(
		"Use the code %s to confirm the change of your %s.\n"+
			"The code expires in %s. If you did not request this change, ignore this email.\n",
		code, field, s.cfg.ChangeRequestTTL.Duration,
	)
	body += "\nBest regards,\nAromaStream"
	e.Text = []byte(body)

	// Send email
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := sendMail(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send confirmation code to %s: %v", user.Email, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", user.Email, e.Subject)
	return nil
}

// LogSender stands in for Sender when SMTP is not configured. It only logs
// that a code was issued; the code itself is logged at debug level.
type LogSender struct {
	logger *logrus.Logger
}

// NewLogSender creates a logging notifier
func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendConfirmCode implements the notifier contract without delivering anything
func (s *LogSender) SendConfirmCode(user *models.User, field, code string) error {
	entry := s.logger.WithFields(logrus.Fields{"user_id": user.ID, "field": field})
	entry.Info("Confirmation code issued")
	entry.WithField("code", code).Debug("Confirmation code")
	return nil
}
