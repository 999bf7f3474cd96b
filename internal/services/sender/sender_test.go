package sender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ems-portal/internal/lib/smtp"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) Sender() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
	written []byte
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	m.written = append(m.written, p...)
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const (
	expiringBody = `{"profile_id":"p1","email":"dana@example.com","first_name":"Dana","urgency":"expiring_soon","days_remaining":2,"trial_end_date":"2026-03-12T09:00:00Z"}`
	expiredBody  = `{"profile_id":"p1","email":"dana@example.com","first_name":"Dana","urgency":"expired","days_remaining":0,"trial_end_date":"2026-03-09T09:00:00Z"}`
	pricingURL   = "https://portal.example.com/pricing"
)

func happyPath(tr *MockTransport) (*MockSMTPClient, *MockSMTPWriter) {
	client := new(MockSMTPClient)
	writer := new(MockSMTPWriter)

	tr.On("Sender").Return("no-reply@example.com")
	tr.On("Connect").Return(client, nil).Once()
	client.On("Mail", "no-reply@example.com").Return(nil).Once()
	client.On("Rcpt", "dana@example.com").Return(nil).Once()
	client.On("Data").Return(writer, nil).Once()
	writer.On("Write", mock.AnythingOfType("[]uint8")).Return(100, nil).Once()
	writer.On("Close").Return(nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()
	return client, writer
}

func TestService_SendTrialExpiring(t *testing.T) {
	tr := new(MockTransport)
	client, writer := happyPath(tr)
	svc := New(newNoopLogger(), tr, pricingURL)

	err := svc.SendTrialExpiring(context.Background(), []byte(expiringBody))
	require.NoError(t, err)

	msg := string(writer.written)
	assert.Contains(t, msg, "To: dana@example.com")
	assert.Contains(t, msg, "Subject: Your EMS Portal trial ends in 2 days")
	assert.Contains(t, msg, "Hi Dana")
	assert.Contains(t, msg, "March 12, 2026")
	assert.Contains(t, msg, pricingURL)

	tr.AssertExpectations(t)
	client.AssertExpectations(t)
	writer.AssertExpectations(t)
}

func TestService_SendTrialExpired(t *testing.T) {
	tr := new(MockTransport)
	_, writer := happyPath(tr)
	svc := New(newNoopLogger(), tr, pricingURL)

	err := svc.SendTrialExpired(context.Background(), []byte(expiredBody))
	require.NoError(t, err)

	msg := string(writer.written)
	assert.Contains(t, msg, "Subject: Your EMS Portal trial has ended")
	assert.Contains(t, msg, "ended on March 9, 2026")
}

func TestService_Errors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		setupMocks   func(*MockTransport)
		badMessage   bool
		permanent    bool
		errorMessage string
	}{
		{
			name:         "invalid JSON",
			body:         `invalid json`,
			setupMocks:   func(_ *MockTransport) {},
			badMessage:   true,
			errorMessage: "bad notification message",
		},
		{
			name:         "invalid email",
			body:         `{"email":"not-an-address","first_name":"Dana"}`,
			setupMocks:   func(_ *MockTransport) {},
			badMessage:   true,
			errorMessage: "not-an-address",
		},
		{
			name: "SMTP connection error",
			body: expiringBody,
			setupMocks: func(tr *MockTransport) {
				tr.On("Sender").Return("no-reply@example.com")
				tr.On("Connect").Return(nil, errors.New("connection error")).Once()
			},
			errorMessage: "connection error",
		},
		{
			name: "recipient rejected",
			body: expiringBody,
			setupMocks: func(tr *MockTransport) {
				client := new(MockSMTPClient)
				tr.On("Sender").Return("no-reply@example.com")
				tr.On("Connect").Return(client, nil).Once()
				client.On("Mail", "no-reply@example.com").Return(nil).Once()
				client.On("Rcpt", "dana@example.com").Return(errors.New("550 mailbox unavailable")).Once()
				client.On("Close").Return(nil).Once()
			},
			errorMessage: "rcpt to: 550 mailbox unavailable",
		},
		{
			name: "recipient rejected permanently",
			body: expiringBody,
			setupMocks: func(tr *MockTransport) {
				client := new(MockSMTPClient)
				tr.On("Sender").Return("no-reply@example.com")
				tr.On("Connect").Return(client, nil).Once()
				client.On("Mail", "no-reply@example.com").Return(nil).Once()
				client.On("Rcpt", "dana@example.com").
					Return(&textproto.Error{Code: 550, Msg: "mailbox unavailable"}).Once()
				client.On("Close").Return(nil).Once()
			},
			permanent:    true,
			errorMessage: "rcpt to: 550 mailbox unavailable",
		},
		{
			name: "sender greylisted",
			body: expiringBody,
			setupMocks: func(tr *MockTransport) {
				client := new(MockSMTPClient)
				tr.On("Sender").Return("no-reply@example.com")
				tr.On("Connect").Return(client, nil).Once()
				client.On("Mail", "no-reply@example.com").
					Return(&textproto.Error{Code: 451, Msg: "try again later"}).Once()
				client.On("Close").Return(nil).Once()
			},
			errorMessage: "mail from: 451 try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTransport)
			tt.setupMocks(tr)
			svc := New(newNoopLogger(), tr, pricingURL)

			err := svc.SendTrialExpiring(context.Background(), []byte(tt.body))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMessage)
			assert.Equal(t, tt.badMessage, errors.Is(err, ErrBadMessage))
			assert.Equal(t, tt.permanent, errors.Is(err, ErrPermanent))
			tr.AssertExpectations(t)
		})
	}
}

func TestService_QuitFailureStillSucceeds(t *testing.T) {
	tr := new(MockTransport)
	client := new(MockSMTPClient)
	writer := new(MockSMTPWriter)
	tr.On("Sender").Return("no-reply@example.com")
	tr.On("Connect").Return(client, nil).Once()
	client.On("Mail", mock.Anything).Return(nil)
	client.On("Rcpt", mock.Anything).Return(nil)
	client.On("Data").Return(writer, nil)
	writer.On("Write", mock.Anything).Return(100, nil)
	writer.On("Close").Return(nil)
	client.On("Quit").Return(errors.New("421 closing"))
	client.On("Close").Return(nil)

	svc := New(newNoopLogger(), tr, pricingURL)
	assert.NoError(t, svc.SendTrialExpired(context.Background(), []byte(expiredBody)))
}
