// Package intake creates the visitor/passcode pair when a visitor first
// appears, either by submitting the entry form or by being picked up as an
// unknown face at the door.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smartdoor/doorman/internal/domain"
	"github.com/smartdoor/doorman/internal/platform/notify"
	"github.com/smartdoor/doorman/internal/platform/photo"
	"github.com/smartdoor/doorman/internal/registry"
	"github.com/smartdoor/doorman/pkg/config"
	"github.com/smartdoor/doorman/pkg/events"
	"github.com/smartdoor/doorman/pkg/logger"
)

// DuplicateActiveVisitError rejects a submission while the same phone still
// has a pending or approved visit in flight.
type DuplicateActiveVisitError struct {
	FaceID string
	Name   string
}

func (e *DuplicateActiveVisitError) Error() string {
	return fmt.Sprintf("phone already has an active visit (face_id=%s)", e.FaceID)
}

type SubmitRequest struct {
	FaceID      string // optional; generated when empty
	Name        string
	Phone       string
	Email       string
	VisitReason string
	Photo       []byte
}

type SubmitResult struct {
	FaceID   string
	Code     string
	PhotoRef string
}

type DetectRequest struct {
	FaceID   string // optional; generated when empty
	PhotoKey string
}

type DetectResult struct {
	FaceID   string
	PhotoURL string
}

type Service struct {
	visitors   *registry.Visitors
	passcodes  *registry.Passcodes
	photos     photo.Store
	dispatcher notify.Dispatcher
	bus        events.Publisher
	cfg        *config.Config
}

func NewService(visitors *registry.Visitors, passcodes *registry.Passcodes, photos photo.Store, dispatcher notify.Dispatcher, bus events.Publisher, cfg *config.Config) *Service {
	return &Service{
		visitors:   visitors,
		passcodes:  passcodes,
		photos:     photos,
		dispatcher: dispatcher,
		bus:        bus,
		cfg:        cfg,
	}
}

// Submit handles the visitor entry form. The passcode is issued before the
// visitor record is created so the record never references a nonexistent
// code; if the visitor insert fails, the orphaned passcode simply expires
// unused.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	existing, err := s.visitors.FindActiveByPhone(ctx, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("duplicate-visit check: %w", err)
	}
	if existing != nil {
		return nil, &DuplicateActiveVisitError{FaceID: existing.FaceID, Name: existing.Name}
	}

	faceID := req.FaceID
	if faceID == "" {
		faceID = uuid.NewString()
	}

	photoKey := fmt.Sprintf("%s/%s.jpg", s.cfg.Photos.Prefix, faceID)
	photoRef, err := s.photos.Put(ctx, photoKey, req.Photo, "image/jpeg")
	if err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.Intake.OTPTTL)

	p, err := s.passcodes.Issue(ctx, faceID, req.Phone, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue passcode: %w", err)
	}

	v := &domain.Visitor{
		FaceID:      faceID,
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		VisitReason: req.VisitReason,
		PhotoRef:    photoRef,
		Status:      domain.VisitorPending,
		OtpRef:      p.Code,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if err := s.visitors.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create visitor: %w", err)
	}

	s.notifySubmission(ctx, v, p.Code, photoRef)

	if err := s.bus.Publish(ctx, events.VisitorSubmitted, events.VisitorSubmittedEvent{
		FaceID:      faceID,
		Name:        req.Name,
		Phone:       req.Phone,
		PhotoRef:    photoRef,
		SubmittedAt: now,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish submission event", "face_id", faceID, "error", err)
	}

	return &SubmitResult{FaceID: faceID, Code: p.Code, PhotoRef: photoRef}, nil
}

// Detect records an unknown face seen at the door as a pending visitor and
// alerts the owner. No passcode is issued until the visitor completes the
// entry form.
func (s *Service) Detect(ctx context.Context, req DetectRequest) (*DetectResult, error) {
	faceID := req.FaceID
	if faceID == "" {
		faceID = "unknown-" + uuid.NewString()
	}

	photoURL, err := s.photos.PresignGet(ctx, req.PhotoKey)
	if err != nil {
		return nil, fmt.Errorf("presign photo: %w", err)
	}

	now := time.Now().UTC()
	v := &domain.Visitor{
		FaceID:    faceID,
		PhotoRef:  req.PhotoKey,
		Status:    domain.VisitorPending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cfg.Intake.DetectionTTL),
	}
	if err := s.visitors.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create visitor: %w", err)
	}

	s.notifyDetection(ctx, faceID, photoURL)

	if err := s.bus.Publish(ctx, events.VisitorDetected, events.VisitorDetectedEvent{
		FaceID:     faceID,
		PhotoRef:   req.PhotoKey,
		DetectedAt: now,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish detection event", "face_id", faceID, "error", err)
	}

	return &DetectResult{FaceID: faceID, PhotoURL: photoURL}, nil
}

// notifySubmission sends the OTP to the visitor and the approval alert to
// the owner, concurrently. Failures are logged; none of the state written
// above is rolled back.
func (s *Service) notifySubmission(ctx context.Context, v *domain.Visitor, code, photoURL string) {
	var g errgroup.Group

	g.Go(func() error {
		return s.dispatcher.Dispatch(ctx, notify.VisitorOTP(v.Phone, code, s.cfg.Intake.OTPTTL))
	})
	if s.cfg.Owner.Email != "" {
		g.Go(func() error {
			return s.dispatcher.Dispatch(ctx, notify.OwnerAlert(s.cfg.Owner.Email, v, photoURL, code, s.cfg.Owner.DashboardURL))
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "submission notification failed", "face_id", v.FaceID, "error", err)
	}
}

func (s *Service) notifyDetection(ctx context.Context, faceID, photoURL string) {
	var g errgroup.Group

	if s.cfg.Owner.Email != "" {
		g.Go(func() error {
			return s.dispatcher.Dispatch(ctx, notify.OwnerDetectionEmail(s.cfg.Owner.Email, faceID, photoURL, s.cfg.Owner.DashboardURL))
		})
	}
	if s.cfg.Owner.Phone != "" {
		g.Go(func() error {
			return s.dispatcher.Dispatch(ctx, notify.OwnerDetectionAlert(s.cfg.Owner.Phone, faceID, photoURL, s.cfg.Owner.DashboardURL))
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "detection notification failed", "face_id", faceID, "error", err)
	}
}
