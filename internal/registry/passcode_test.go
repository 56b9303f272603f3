package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartdoor/doorman/internal/domain"
	"github.com/smartdoor/doorman/internal/store"
)

func TestPasscodesIssue(t *testing.T) {
	ctx := context.Background()
	r := NewPasscodes(store.NewMemory())

	expiresAt := time.Now().Add(10 * time.Minute).UTC()
	p, err := r.Issue(ctx, "f1", "+15550001111", expiresAt)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(p.Code) != 6 {
		t.Fatalf("expected a six digit code, got %q", p.Code)
	}
	if p.Status != domain.PasscodePending {
		t.Fatalf("expected pending, got %s", p.Status)
	}
	if !p.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expected expiry %v, got %v", expiresAt, p.ExpiresAt)
	}

	got, err := r.Get(ctx, p.Code)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FaceID != "f1" || got.Phone != "+15550001111" {
		t.Fatalf("unexpected passcode: %+v", got)
	}
}

func TestPasscodesIssueRerollsOnCollision(t *testing.T) {
	ctx := context.Background()
	r := NewPasscodes(store.NewMemory())

	codes := []string{"111111", "111111", "222222"}
	r.generate = func() (string, error) {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code, nil
	}

	first, err := r.Issue(ctx, "f1", "+15550001111", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first.Code != "111111" {
		t.Fatalf("expected 111111, got %s", first.Code)
	}

	second, err := r.Issue(ctx, "f2", "+15550002222", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("issue after collision: %v", err)
	}
	if second.Code != "222222" {
		t.Fatalf("expected the re-rolled code, got %s", second.Code)
	}

	// first's live record must not have been overwritten by the collision
	got, err := r.Get(ctx, "111111")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FaceID != "f1" {
		t.Fatalf("collision overwrote the live code: %+v", got)
	}
}

func TestPasscodesIssueExhaustedKeyspace(t *testing.T) {
	ctx := context.Background()
	r := NewPasscodes(store.NewMemory())
	r.generate = func() (string, error) { return "333333", nil }

	if _, err := r.Issue(ctx, "f1", "+15550001111", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := r.Issue(ctx, "f2", "+15550002222", time.Now().Add(10*time.Minute)); !errors.Is(err, ErrExhaustedKeyspace) {
		t.Fatalf("expected ErrExhaustedKeyspace, got %v", err)
	}
}

func TestPasscodesTransition(t *testing.T) {
	ctx := context.Background()
	r := NewPasscodes(store.NewMemory())

	p, err := r.Issue(ctx, "f1", "+15550001111", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	approved, err := r.Transition(ctx, p.Code, domain.PasscodeApproved, domain.PasscodePending)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.PasscodeApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	used, err := r.Transition(ctx, p.Code, domain.PasscodeUsed, domain.PasscodeApproved)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if used.UsedAt == nil {
		t.Fatal("expected UsedAt to be set on redemption")
	}

	// replaying the redemption loses
	if _, err := r.Transition(ctx, p.Code, domain.PasscodeUsed, domain.PasscodeApproved); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPasscodesTransitionInvalid(t *testing.T) {
	ctx := context.Background()
	r := NewPasscodes(store.NewMemory())

	// used is terminal
	if _, err := r.Transition(ctx, "123456", domain.PasscodeApproved, domain.PasscodeUsed); err == nil {
		t.Fatal("expected error for illegal transition")
	}
	// pending codes cannot be redeemed directly
	if _, err := r.Transition(ctx, "123456", domain.PasscodeUsed, domain.PasscodePending); err == nil {
		t.Fatal("expected error for pending -> used")
	}

	if _, err := r.Transition(ctx, "missing", domain.PasscodeApproved, domain.PasscodePending); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
