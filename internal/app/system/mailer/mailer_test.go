package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildNotificationEmail(t *testing.T) {
	e := BuildNotificationEmail("ann@acme.test", NotificationEmailData{
		SiteName:      "PerfHub",
		RecipientName: "Ann",
		Title:         "New feedback",
		Message:       "<script>alert(1)</script> Nice work",
		Link:          "https://app.perfhub.test/feedback",
	})

	if e.To != "ann@acme.test" {
		t.Errorf("To = %q", e.To)
	}
	if e.Subject != "[PerfHub] New feedback" {
		t.Errorf("Subject = %q", e.Subject)
	}
	if !strings.Contains(e.TextBody, "Hi Ann,") || !strings.Contains(e.TextBody, "https://app.perfhub.test/feedback") {
		t.Errorf("TextBody missing content:\n%s", e.TextBody)
	}
	if strings.Contains(e.HTMLBody, "<script>") {
		t.Error("HTML body must escape message content")
	}
}

func TestMailer_BuildRejectsMissingRecipient(t *testing.T) {
	m := New(Config{Host: "localhost", Port: 1025, From: "noreply@perfhub.test"}, zap.NewNop())
	if _, err := m.build(Email{Subject: "x"}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("expected ErrNoRecipient, got %v", err)
	}
	if _, err := m.build(Email{To: "a@b.test", Subject: "x", TextBody: "y", HTMLBody: "<p>y</p>"}); err != nil {
		t.Errorf("build failed: %v", err)
	}
}

func TestLogSender(t *testing.T) {
	s := LogSender{Logger: zap.NewNop()}
	if err := s.Send(context.Background(), Email{To: "a@b.test"}); err != nil {
		t.Errorf("Send failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, Email{To: "a@b.test"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
