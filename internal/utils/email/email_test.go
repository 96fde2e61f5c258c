package email

import (
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"

	"github.com/Dan9191/aromastream/internal/config"
	"github.com/Dan9191/aromastream/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func stubSend(t *testing.T, fn func(e *email.Email, addr string, auth smtp.Auth) error) {
	t.Helper()
	orig := sendMail
	sendMail = fn
	t.Cleanup(func() { sendMail = orig })
}

func TestSendConfirmCode(t *testing.T) {
	cfg := config.Default()
	cfg.SMTPHost = "smtp.example.com"
	cfg.SenderEmail = "noreply@example.com"

	var sent *email.Email
	var gotAddr string
	stubSend(t, func(e *email.Email, addr string, _ smtp.Auth) error {
		sent, gotAddr = e, addr
		return nil
	})

	user := &models.User{ID: 1, Username: "alice", Email: "alice@example.com"}
	require.NoError(t, NewSender(cfg, quietLogger()).SendConfirmCode(user, models.FieldPassword, "123456"))

	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"alice@example.com"}, sent.To)
	assert.True(t, strings.Contains(string(sent.Text), "123456"))
}

func TestSendConfirmCode_Failure(t *testing.T) {
	stubSend(t, func(*email.Email, string, smtp.Auth) error { return errors.New("smtp down") })

	user := &models.User{ID: 1, Username: "alice", Email: "alice@example.com"}
	err := NewSender(config.Default(), quietLogger()).SendConfirmCode(user, models.FieldPassword, "123456")
	assert.Error(t, err)
}

func TestSendConfirmCode_NoAddress(t *testing.T) {
	stubSend(t, func(*email.Email, string, smtp.Auth) error {
		t.Fatal("must not send without an address")
		return nil
	})

	user := &models.User{ID: 1, Username: "alice"}
	assert.NoError(t, NewSender(config.Default(), quietLogger()).SendConfirmCode(user, models.FieldPassword, "123456"))
}

func TestLogSender(t *testing.T) {
	logger, hook := test.NewNullLogger()

	err := NewLogSender(logger).SendConfirmCode(&models.User{ID: 5}, models.FieldPassword, "654321")
	require.NoError(t, err)
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, "Confirmation code issued", hook.LastEntry().Message)
	assert.Equal(t, int64(5), hook.LastEntry().Data["user_id"])
}
