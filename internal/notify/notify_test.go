package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestDisabledNotifierIsNoOp(t *testing.T) {
	if err := (Disabled{}).Notify(context.Background(), Message{Subject: "x"}); err != nil {
		t.Fatal(err)
	}
}

func TestNewEmailNotifierValidation(t *testing.T) {
	if _, err := NewEmailNotifier(Config{From: "a@b", To: []string{"c@d"}}); err == nil {
		t.Fatal("missing host must be rejected")
	}
	if _, err := NewEmailNotifier(Config{Host: "smtp.test"}); err == nil {
		t.Fatal("missing addresses must be rejected")
	}
}

func TestEmailNotifierSends(t *testing.T) {
	n, err := NewEmailNotifier(Config{
		Host:          "smtp.test",
		From:          "bot@test",
		To:            []string{"user@test", "ops@test"},
		RatePerMinute: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	var gotAddr string
	var gotTo []string
	var gotBody string
	n.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotBody = string(msg)
		return nil
	}

	msg := Message{Subject: "Trade closed", Content: "BTC/USDT +1.5"}
	if err := n.Notify(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.test:587" {
		t.Fatalf("addr = %q, want default port 587", gotAddr)
	}
	if len(gotTo) != 2 {
		t.Fatalf("to = %v", gotTo)
	}
	if !strings.Contains(gotBody, "Subject: Trade closed") || !strings.Contains(gotBody, "BTC/USDT +1.5") {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestEmailNotifierHTMLAlternative(t *testing.T) {
	msg := Message{Subject: "s", Content: "plain", ContentHTML: "<b>rich</b>"}
	body := string(formatMail("bot@test", []string{"user@test"}, msg))

	if !strings.Contains(body, "multipart/alternative") {
		t.Fatalf("expected multipart mail, got %q", body)
	}
	if !strings.Contains(body, "plain") || !strings.Contains(body, "<b>rich</b>") {
		t.Fatalf("both parts must be present, got %q", body)
	}
}

func TestEmailNotifierRateLimit(t *testing.T) {
	n, err := NewEmailNotifier(Config{
		Host:          "smtp.test",
		From:          "bot@test",
		To:            []string{"user@test"},
		RatePerMinute: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return nil }

	// The burst allows the first send through immediately.
	if err := n.Notify(context.Background(), Message{Subject: "1"}); err != nil {
		t.Fatal(err)
	}

	// The second would have to wait a minute; a short deadline fails it.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := n.Notify(ctx, Message{Subject: "2"}); err == nil {
		t.Fatal("second send within the window should hit the limiter")
	}
}
