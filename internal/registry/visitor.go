// Package registry implements CRUD and state-machine transitions for the
// visitor and passcode records. Every mutation is a single-key conditional
// write; the registries never hold locks and never retry on their own.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/smartdoor/doorman/internal/domain"
	"github.com/smartdoor/doorman/internal/store"
)

type Visitors struct {
	store store.Store
}

func NewVisitors(s store.Store) *Visitors {
	return &Visitors{store: s}
}

// Create inserts the visitor, failing with store.ErrAlreadyExists if the
// face ID is already present. A conditional insert, never a blind overwrite:
// an in-flight visit must not be clobbered by a duplicate submission.
func (r *Visitors) Create(ctx context.Context, v *domain.Visitor) error {
	rec, err := visitorRecord(v)
	if err != nil {
		return err
	}
	return r.store.Insert(ctx, store.TableVisitors, rec)
}

func (r *Visitors) Get(ctx context.Context, faceID string) (*domain.Visitor, error) {
	rec, err := r.store.Get(ctx, store.TableVisitors, faceID)
	if err != nil {
		return nil, err
	}
	return decodeVisitor(rec)
}

// Transition moves the visitor to target only while the stored status equals
// expected. store.ErrConflict means the caller lost the race and should
// reload to see what actually happened. On first entry into a terminal
// status the matching timestamp is set exactly once.
func (r *Visitors) Transition(ctx context.Context, faceID string, target, expected domain.VisitorStatus) (*domain.Visitor, error) {
	if !expected.CanTransitionTo(target) {
		return nil, fmt.Errorf("visitor transition %s -> %s not permitted", expected, target)
	}

	v, err := r.Get(ctx, faceID)
	if err != nil {
		return nil, err
	}
	if v.Status != expected {
		return nil, store.ErrConflict
	}

	now := time.Now().UTC()
	v.Status = target
	v.UpdatedAt = now
	switch target {
	case domain.VisitorApproved:
		if v.ApprovedAt == nil {
			v.ApprovedAt = &now
		}
	case domain.VisitorRejected:
		if v.RejectedAt == nil {
			v.RejectedAt = &now
		}
	}

	rec, err := visitorRecord(v)
	if err != nil {
		return nil, err
	}
	if err := r.store.UpdateIfStatus(ctx, store.TableVisitors, faceID, string(expected), rec); err != nil {
		return nil, err
	}
	return v, nil
}

// FindActiveByPhone returns the visitor, if any, with this phone and an
// undecided or approved status that has not yet expired. Backed by a
// best-effort scan, so duplicate suppression is advisory rather than a hard
// uniqueness guarantee.
func (r *Visitors) FindActiveByPhone(ctx context.Context, phone string) (*domain.Visitor, error) {
	recs, err := r.store.Scan(ctx, store.TableVisitors)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, rec := range recs {
		v, err := decodeVisitor(rec)
		if err != nil {
			continue
		}
		if v.Phone == phone && v.Active(now) {
			return v, nil
		}
	}
	return nil, nil
}

// ListByStatus returns all visitors currently in the given status, newest
// first. Dashboard reads only.
func (r *Visitors) ListByStatus(ctx context.Context, status domain.VisitorStatus) ([]*domain.Visitor, error) {
	recs, err := r.store.Scan(ctx, store.TableVisitors)
	if err != nil {
		return nil, err
	}

	var visitors []*domain.Visitor
	for _, rec := range recs {
		v, err := decodeVisitor(rec)
		if err != nil {
			continue
		}
		if v.Status == status {
			visitors = append(visitors, v)
		}
	}

	sort.Slice(visitors, func(i, j int) bool {
		return visitors[i].CreatedAt.After(visitors[j].CreatedAt)
	})
	return visitors, nil
}

func visitorRecord(v *domain.Visitor) (*store.Record, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode visitor: %w", err)
	}
	return &store.Record{Key: v.FaceID, Status: string(v.Status), Doc: doc}, nil
}

func decodeVisitor(rec *store.Record) (*domain.Visitor, error) {
	var v domain.Visitor
	if err := json.Unmarshal(rec.Doc, &v); err != nil {
		return nil, fmt.Errorf("decode visitor %q: %w", rec.Key, err)
	}
	// The lifted status on the record is authoritative for CAS; keep the
	// decoded document consistent with it.
	if s, ok := domain.ParseVisitorStatus(rec.Status); ok {
		v.Status = s
	}
	if v.FaceID == "" {
		v.FaceID = rec.Key
	}
	return &v, nil
}
