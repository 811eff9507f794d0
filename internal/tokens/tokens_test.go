package tokens

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestIssuer() (*Issuer, *time.Time) {
	issuer := NewIssuer("test-secret", time.Hour)
	now := time.Now()
	issuer.now = func() time.Time { return now }
	return issuer, &now
}

func TestIssueAndVerify(t *testing.T) {
	issuer, _ := newTestIssuer()

	token, expiresAt, err := issuer.Issue("receipts", "receipt-42.pdf", "r", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatal("expected expiry timestamp")
	}

	grant, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if grant.Container != "receipts" || grant.Blob != "receipt-42.pdf" || grant.Permissions != "r" {
		t.Errorf("unexpected grant: %+v", grant)
	}
}

func TestVerify_FailsAfterExpiry(t *testing.T) {
	issuer, now := newTestIssuer()

	token, _, err := issuer.Issue("receipts", "receipt-42.pdf", "r", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	*now = now.Add(16 * time.Minute)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_RejectsTamperedToken(t *testing.T) {
	issuer, _ := newTestIssuer()

	token, _, err := issuer.Issue("receipts", "receipt-42.pdf", "r", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	encoded, signature, _ := strings.Cut(token, ".")
	tampered := encoded[:len(encoded)-2] + "xx." + signature
	if _, err := issuer.Verify(tampered); err == nil {
		t.Error("expected verification failure for tampered payload")
	}

	if _, err := issuer.Verify("garbage"); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestIssue_ClampsTTL(t *testing.T) {
	issuer, now := newTestIssuer()

	_, expiresAt, err := issuer.Issue("receipts", "receipt-42.pdf", "r", 48*time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if expiresAt.After(now.Add(time.Hour).Truncate(time.Second)) {
		t.Errorf("expiry %v exceeds issuer max TTL", expiresAt)
	}
}
