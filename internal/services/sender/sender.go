// Package sender отправляет письма о пробном периоде по сообщениям из очереди уведомлений.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/lib/smtp"
	"github.com/magabrotheeeer/ems-portal/internal/models"
)

var (
	// ErrBadMessage — сообщение из очереди не удалось разобрать.
	ErrBadMessage = errors.New("bad notification message")
	// ErrPermanent — SMTP-сервер окончательно отклонил письмо (коды 5xx).
	ErrPermanent = errors.New("permanent smtp failure")
)

// Service формирует и отправляет письма.
type Service struct {
	dialer     smtp.Dialer
	log        *slog.Logger
	validate   *validator.Validate
	pricingURL string
}

// New создаёт Service. pricingURL подставляется в письма как ссылка на тарифы.
func New(log *slog.Logger, dialer smtp.Dialer, pricingURL string) *Service {
	return &Service{
		dialer:     dialer,
		log:        log,
		validate:   validator.New(),
		pricingURL: pricingURL,
	}
}

// SendTrialExpiring отправляет письмо о скором окончании пробного периода.
func (s *Service) SendTrialExpiring(ctx context.Context, body []byte) error {
	const op = "sender.SendTrialExpiring"

	notice, err := s.decode(body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	subject := fmt.Sprintf("Your EMS Portal trial ends in %s", days(notice.DaysRemaining))
	text := fmt.Sprintf("Hi %s,\r\n\r\n"+
		"Your free trial of EMS Portal ends on %s.\r\n"+
		"Keep your progress and CE hours by choosing a plan: %s\r\n",
		notice.FirstName, notice.TrialEndDate.Format("January 2, 2006"), s.pricingURL)

	if err := s.send(ctx, notice.Email, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendTrialExpired отправляет письмо об окончании пробного периода.
func (s *Service) SendTrialExpired(ctx context.Context, body []byte) error {
	const op = "sender.SendTrialExpired"

	notice, err := s.decode(body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	subject := "Your EMS Portal trial has ended"
	text := fmt.Sprintf("Hi %s,\r\n\r\n"+
		"Your free trial of EMS Portal ended on %s.\r\n"+
		"Your courses and progress are saved. Upgrade to continue learning: %s\r\n",
		notice.FirstName, notice.TrialEndDate.Format("January 2, 2006"), s.pricingURL)

	if err := s.send(ctx, notice.Email, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) decode(body []byte) (models.TrialNotification, error) {
	var notice models.TrialNotification
	if err := json.Unmarshal(body, &notice); err != nil {
		return notice, fmt.Errorf("%w: %s", ErrBadMessage, err.Error())
	}
	if err := s.validate.Var(notice.Email, "required,email"); err != nil {
		return notice, fmt.Errorf("%w: email %q", ErrBadMessage, notice.Email)
	}
	return notice, nil
}

// smtpErr помечает ответы 5xx как ErrPermanent, повтор их не исправит.
func smtpErr(step string, err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code >= 500 {
		return fmt.Errorf("%w: %s: %w", ErrPermanent, step, err)
	}
	return fmt.Errorf("%s: %w", step, err)
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func (s *Service) send(ctx context.Context, to, subject, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := s.dialer.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		text,
	}, "\r\n")

	client, err := s.dialer.Connect()
	if err != nil {
		return err
	}
	defer func() {
		// после успешного Quit соединение уже закрыто
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		return smtpErr("mail from", err)
	}
	if err := client.Rcpt(to); err != nil {
		return smtpErr("rcpt to", err)
	}

	wc, err := client.Data()
	if err != nil {
		return smtpErr("data", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return smtpErr("write body", err)
	}
	if err := wc.Close(); err != nil {
		return smtpErr("close body", err)
	}
	if err := client.Quit(); err != nil {
		s.log.Warn("smtp quit failed", sl.Err(err))
	}

	s.log.Info("email sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}
