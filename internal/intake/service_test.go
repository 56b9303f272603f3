package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartdoor/doorman/internal/domain"
	"github.com/smartdoor/doorman/internal/platform/notify"
	"github.com/smartdoor/doorman/internal/platform/photo"
	"github.com/smartdoor/doorman/internal/registry"
	"github.com/smartdoor/doorman/internal/store"
	"github.com/smartdoor/doorman/pkg/config"
	"github.com/smartdoor/doorman/pkg/events"
)

type recordDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (d *recordDispatcher) Dispatch(_ context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return nil
}

func (d *recordDispatcher) kinds() []notify.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(d.sent))
	for _, n := range d.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

type fixture struct {
	visitors   *registry.Visitors
	passcodes  *registry.Passcodes
	photos     *photo.Memory
	dispatcher *recordDispatcher
	service    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := store.NewMemory()
	f := &fixture{
		visitors:   registry.NewVisitors(s),
		passcodes:  registry.NewPasscodes(s),
		photos:     photo.NewMemory(),
		dispatcher: &recordDispatcher{},
	}
	cfg := &config.Config{}
	cfg.Photos.Prefix = "photos"
	cfg.Intake.OTPTTL = 10 * time.Minute
	cfg.Intake.DetectionTTL = 7 * 24 * time.Hour
	cfg.Owner.Email = "owner@example.com"
	cfg.Owner.Phone = "+15550009999"
	cfg.Owner.DashboardURL = "https://door.example.com/dashboard"

	f.service = NewService(f.visitors, f.passcodes, f.photos, f.dispatcher, events.NopBus{}, cfg)
	return f
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.service.Submit(ctx, SubmitRequest{
		Name:        "Alice",
		Phone:       "+15550001111",
		Email:       "alice@example.com",
		VisitReason: "delivery",
		Photo:       []byte("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.FaceID == "" || len(res.Code) != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}

	v, err := f.visitors.Get(ctx, res.FaceID)
	if err != nil {
		t.Fatalf("get visitor: %v", err)
	}
	if v.Status != domain.VisitorPending || v.OtpRef != res.Code {
		t.Fatalf("unexpected visitor: %+v", v)
	}
	if v.PhotoRef != res.PhotoRef {
		t.Fatalf("photo ref mismatch: %s vs %s", v.PhotoRef, res.PhotoRef)
	}

	p, err := f.passcodes.Get(ctx, res.Code)
	if err != nil {
		t.Fatalf("get passcode: %v", err)
	}
	if p.FaceID != res.FaceID || p.Phone != "+15550001111" {
		t.Fatalf("unexpected passcode: %+v", p)
	}
	if !p.ExpiresAt.Equal(v.ExpiresAt) {
		t.Fatalf("visitor and passcode expiry differ: %v vs %v", v.ExpiresAt, p.ExpiresAt)
	}

	kinds := f.dispatcher.kinds()
	if len(kinds) != 2 {
		t.Fatalf("expected OTP and owner alert, got %v", kinds)
	}
	hasOTP, hasAlert := false, false
	for _, k := range kinds {
		switch k {
		case notify.VisitorOTPSMS:
			hasOTP = true
		case notify.OwnerAlertEmail:
			hasAlert = true
		}
	}
	if !hasOTP || !hasAlert {
		t.Fatalf("missing notification kinds: %v", kinds)
	}
}

func TestSubmitDuplicateActiveVisit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.service.Submit(ctx, SubmitRequest{Name: "Alice", Phone: "+15550001111", Photo: []byte("x")})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err = f.service.Submit(ctx, SubmitRequest{Name: "Alice", Phone: "+15550001111", Photo: []byte("x")})
	var dup *DuplicateActiveVisitError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateActiveVisitError, got %v", err)
	}
	if dup.FaceID != first.FaceID || dup.Name != "Alice" {
		t.Fatalf("unexpected duplicate details: %+v", dup)
	}
}

func TestSubmitAfterRejection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.service.Submit(ctx, SubmitRequest{Name: "Alice", Phone: "+15550001111", Photo: []byte("x")})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.visitors.Transition(ctx, first.FaceID, domain.VisitorRejected, domain.VisitorPending); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// a decided visit no longer blocks resubmission
	second, err := f.service.Submit(ctx, SubmitRequest{Name: "Alice", Phone: "+15550001111", Photo: []byte("x")})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.FaceID == first.FaceID {
		t.Fatal("expected a fresh face ID")
	}
}

func TestDetect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.photos.Put(ctx, "captures/cam1.jpg", []byte("jpeg-bytes"), "image/jpeg"); err != nil {
		t.Fatalf("put photo: %v", err)
	}

	res, err := f.service.Detect(ctx, DetectRequest{PhotoKey: "captures/cam1.jpg"})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if res.FaceID == "" || res.PhotoURL == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	v, err := f.visitors.Get(ctx, res.FaceID)
	if err != nil {
		t.Fatalf("get visitor: %v", err)
	}
	if v.Status != domain.VisitorPending || v.OtpRef != "" {
		t.Fatalf("unexpected visitor: %+v", v)
	}
	if wait := time.Until(v.ExpiresAt); wait < 6*24*time.Hour {
		t.Fatalf("detection expiry too short: %v", wait)
	}

	kinds := f.dispatcher.kinds()
	if len(kinds) != 2 {
		t.Fatalf("expected owner email and SMS, got %v", kinds)
	}
}

func TestDetectMissingPhoto(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Detect(context.Background(), DetectRequest{PhotoKey: "captures/nope.jpg"}); err == nil {
		t.Fatal("expected error when the capture is not stored")
	}
}
