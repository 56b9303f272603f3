package registry

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/smartdoor/doorman/internal/domain"
	"github.com/smartdoor/doorman/internal/store"
)

// ErrExhaustedKeyspace means code generation kept colliding with stored
// codes. Practically unreachable at six digits, but colliding inserts must
// fail loudly rather than overwrite a live code.
var ErrExhaustedKeyspace = errors.New("registry: passcode keyspace exhausted")

const issueAttempts = 5

type Passcodes struct {
	store store.Store

	// generate is swapped out by tests to force collisions.
	generate func() (string, error)
}

func NewPasscodes(s store.Store) *Passcodes {
	return &Passcodes{store: s, generate: randomCode}
}

// Issue creates and stores a fresh single-use code for the visitor. On a
// code collision it re-rolls up to issueAttempts times before giving up
// with ErrExhaustedKeyspace.
func (r *Passcodes) Issue(ctx context.Context, faceID, phone string, expiresAt time.Time) (*domain.Passcode, error) {
	now := time.Now().UTC()

	for attempt := 0; attempt < issueAttempts; attempt++ {
		code, err := r.generate()
		if err != nil {
			return nil, fmt.Errorf("generate passcode: %w", err)
		}

		p := &domain.Passcode{
			Code:      code,
			FaceID:    faceID,
			Phone:     phone,
			Status:    domain.PasscodePending,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}

		rec, err := passcodeRecord(p)
		if err != nil {
			return nil, err
		}
		err = r.store.Insert(ctx, store.TablePasscodes, rec)
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, ErrExhaustedKeyspace
}

func (r *Passcodes) Get(ctx context.Context, code string) (*domain.Passcode, error) {
	rec, err := r.store.Get(ctx, store.TablePasscodes, code)
	if err != nil {
		return nil, err
	}
	return decodePasscode(rec)
}

// Transition moves the passcode to target only while the stored status
// equals expected. The conditional write here is what makes redemption
// at-most-once: marking a code used is Transition(code, used, approved),
// and only one concurrent caller can win that compare-and-swap.
func (r *Passcodes) Transition(ctx context.Context, code string, target, expected domain.PasscodeStatus) (*domain.Passcode, error) {
	if !expected.CanTransitionTo(target) {
		return nil, fmt.Errorf("passcode transition %s -> %s not permitted", expected, target)
	}

	p, err := r.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if p.Status != expected {
		return nil, store.ErrConflict
	}

	now := time.Now().UTC()
	p.Status = target
	if target == domain.PasscodeUsed && p.UsedAt == nil {
		p.UsedAt = &now
	}

	rec, err := passcodeRecord(p)
	if err != nil {
		return nil, err
	}
	if err := r.store.UpdateIfStatus(ctx, store.TablePasscodes, code, string(expected), rec); err != nil {
		return nil, err
	}
	return p, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func passcodeRecord(p *domain.Passcode) (*store.Record, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode passcode: %w", err)
	}
	return &store.Record{Key: p.Code, Status: string(p.Status), Doc: doc}, nil
}

func decodePasscode(rec *store.Record) (*domain.Passcode, error) {
	var p domain.Passcode
	if err := json.Unmarshal(rec.Doc, &p); err != nil {
		return nil, fmt.Errorf("decode passcode %q: %w", rec.Key, err)
	}
	if s, ok := domain.ParsePasscodeStatus(rec.Status); ok {
		p.Status = s
	}
	if p.Code == "" {
		p.Code = rec.Key
	}
	return &p, nil
}
