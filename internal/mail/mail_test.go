package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"
)

type dialerStub struct {
	sent []*gomail.Message
	err  error
}

func (d *dialerStub) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSMTPSenderSend(t *testing.T) {
	stub := &dialerStub{}
	sender := &SMTPSender{from: "StudyShare <no-reply@example.com>", dialer: stub}

	err := sender.Send(context.Background(), Message{To: "bob@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(stub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(stub.sent))
	}
	if got := stub.sent[0].GetHeader("To"); len(got) != 1 || got[0] != "bob@example.com" {
		t.Fatalf("unexpected recipient header: %v", got)
	}
}

func TestSMTPSenderSendFailure(t *testing.T) {
	sender := &SMTPSender{from: "a@example.com", dialer: &dialerStub{err: errors.New("connection refused")}}

	err := sender.Send(context.Background(), Message{To: "bob@example.com"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestSMTPSenderCanceledContext(t *testing.T) {
	stub := &dialerStub{}
	sender := &SMTPSender{from: "a@example.com", dialer: stub}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sender.Send(ctx, Message{To: "bob@example.com"}); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if len(stub.sent) != 0 {
		t.Fatal("expected nothing to be sent")
	}
}

func TestVerificationMessageEscapesUsername(t *testing.T) {
	msg, err := VerificationMessage("eve@example.com", "<script>", "https://share.example.com/api/v1/auth/verify/abc")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatal("expected username to be escaped")
	}
	if !strings.Contains(msg.HTML, "https://share.example.com/api/v1/auth/verify/abc") {
		t.Fatalf("expected link in body: %s", msg.HTML)
	}
	if msg.To != "eve@example.com" || msg.Subject == "" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
