package mail

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testDispatcher() *Dispatcher {
	return NewDispatcher("smtp.gmail.com", 587, "bar@example.com", "app-password", "bar@example.com")
}

func TestBuildMessageNoRecipients(t *testing.T) {
	d := testDispatcher()
	_, err := d.BuildMessage("Rapport - Le Noctambul", nil, nil)
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestBuildMessageHeadersAndAttachment(t *testing.T) {
	dir := t.TempDir()
	attachment := filepath.Join(dir, "rapport_de_stock_20260830_120000.pdf")
	if err := os.WriteFile(attachment, []byte("%PDF-1.4 fake"), 0644); err != nil {
		t.Fatalf("write attachment: %v", err)
	}

	d := testDispatcher()
	msg, err := d.BuildMessage(
		"Rapports (Stock et Activités) - Le Noctambul",
		[]string{"a@x.com", "b@x.com"},
		[]string{attachment},
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("serialize message: %v", err)
	}
	raw := buf.String()

	for _, want := range []string{
		"a@x.com",
		"b@x.com",
		"attachment",
		"rapport_de_stock_20260830_120000.pdf",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("serialized message missing %q", want)
		}
	}
}

func TestBuildMessageMissingAttachmentFails(t *testing.T) {
	d := testDispatcher()
	msg, err := d.BuildMessage("Rapport", []string{"a@x.com"}, []string{"/nonexistent/rapport.pdf"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// go-mail surfaces attachment problems when the message is written.
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err == nil {
		t.Fatalf("expected error serializing message with missing attachment")
	}
}
