// Package pipeline drives the capture, liveness-probe, upload and
// status-classification flow for face registration and attendance
// marking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clockin/internal/event"
	"clockin/internal/faceapi"
	"clockin/internal/location"
)

// ErrNoFaceDetected aborts a capture before any upload happens.
var ErrNoFaceDetected = errors.New("no face detected")

// Attempt kinds, used as the metric and log label for a submission.
const (
	KindRegistration = "registration"
	KindAttendance   = "attendance"
)

// Camera is the capture capability: one shot, returns a jpeg image.
type Camera interface {
	Take(ctx context.Context) ([]byte, error)
}

// FaceDetector reports how many faces an image contains.
type FaceDetector interface {
	Detect(ctx context.Context, image []byte) (int, error)
}

// FaceClient is the slice of the face backend the pipeline needs.
// Satisfied by faceapi.Client.
type FaceClient interface {
	Ping(ctx context.Context, attempts int, delay time.Duration) bool
	Register(ctx context.Context, bearer string, image []byte) error
	MarkAttendance(ctx context.Context, bearer, eventID string, lat, lng float64, image []byte) error
}

// Refresher re-fetches the event snapshot after a successful clock-in.
// Satisfied by event.Cache.
type Refresher interface {
	Refresh(ctx context.Context) ([]event.Record, error)
}

// RegistrationChecker rechecks face-registration status after enrolling.
type RegistrationChecker interface {
	CheckRegistered(ctx context.Context) (bool, error)
}

// TokenSource supplies the current bearer token.
type TokenSource interface {
	Token() string
}

// Notifier is the single feedback surface. Every submission outcome
// produces exactly one call.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// Attempt is one capture-submit cycle. Ephemeral; never persisted.
type Attempt struct {
	ID      string
	Kind    string // "registration" or "attendance"
	EventID string
	Started time.Time
}

// Pipeline owns the submission state machine.
type Pipeline struct {
	face     FaceClient
	provider location.Provider
	tokens   TokenSource
	events   Refresher
	checker  RegistrationChecker
	notify   Notifier
	camera   Camera
	detector FaceDetector
	log      *zap.Logger

	pingAttempts int
	pingDelay    time.Duration
	successHold  time.Duration

	machine stateMachine
}

// Config bundles the pipeline's collaborators.
type Config struct {
	Face     FaceClient
	Provider location.Provider
	Tokens   TokenSource
	Events   Refresher
	Checker  RegistrationChecker
	Notify   Notifier
	Camera   Camera
	Detector FaceDetector
	Log      *zap.Logger

	// Probe tuning; zero values fall back to the production defaults.
	PingAttempts int
	PingDelay    time.Duration
}

// New creates a pipeline with the production probe and display timings.
func New(cfg Config) *Pipeline {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	pingAttempts := cfg.PingAttempts
	if pingAttempts <= 0 {
		pingAttempts = 3
	}
	pingDelay := cfg.PingDelay
	if pingDelay <= 0 {
		pingDelay = 3 * time.Second
	}
	return &Pipeline{
		face:         cfg.Face,
		provider:     cfg.Provider,
		tokens:       cfg.Tokens,
		events:       cfg.Events,
		checker:      cfg.Checker,
		notify:       cfg.Notify,
		camera:       cfg.Camera,
		detector:     cfg.Detector,
		log:          log,
		pingAttempts: pingAttempts,
		pingDelay:    pingDelay,
		successHold:  2 * time.Second,
	}
}

// State returns the current submission state.
func (p *Pipeline) State() State {
	return p.machine.state()
}

// Dismiss acknowledges a failure and returns the surface to Idle.
func (p *Pipeline) Dismiss() {
	p.machine.dismiss()
}

// OnNavigateBack registers the signal fired when a success display
// completes.
func (p *Pipeline) OnNavigateBack(fn func()) {
	p.machine.onNavigateBack = fn
}

// SetCamera swaps the capture capability. The kiosk binds a camera per
// capture command.
func (p *Pipeline) SetCamera(c Camera) {
	p.camera = c
}

// Capture takes a photo and verifies face presence. Zero faces aborts
// with ErrNoFaceDetected before anything is uploaded. kind attributes a
// capture failure to the flow that triggered it.
func (p *Pipeline) Capture(ctx context.Context, kind string) ([]byte, error) {
	p.machine.to(StateCapturing)
	img, err := p.camera.Take(ctx)
	if err != nil {
		p.fail(kind, fmt.Sprintf("Camera error: %v", err))
		return nil, err
	}
	faces, err := p.detector.Detect(ctx, img)
	if err != nil {
		p.fail(kind, fmt.Sprintf("Face detection failed: %v", err))
		return nil, err
	}
	if faces == 0 {
		p.fail(kind, "No face detected. Please try again.")
		return nil, ErrNoFaceDetected
	}
	return img, nil
}

// SubmitAttendance clocks in for an event: advisory liveness probe, one
// location fix, then the retry-wrapped multipart upload. On success it
// triggers exactly one event refresh.
func (p *Pipeline) SubmitAttendance(ctx context.Context, eventID string, image []byte) error {
	attempt := Attempt{ID: uuid.NewString(), Kind: KindAttendance, EventID: eventID, Started: time.Now()}
	p.machine.to(StateUploading)

	// The probe is advisory: its outcome is logged but never gates the
	// submit. The retry policy below covers an unresponsive server.
	alive := p.face.Ping(ctx, p.pingAttempts, p.pingDelay)
	p.log.Info("liveness probe", zap.String("attempt_id", attempt.ID), zap.Bool("server_alive", alive))

	pos, err := p.provider.Current(ctx)
	if err != nil {
		submissions.WithLabelValues(attempt.Kind, "location_error").Inc()
		p.fail(attempt.Kind, locationMessage(err))
		return err
	}
	pos = pos.Round()

	if err := p.face.MarkAttendance(ctx, p.tokens.Token(), eventID, pos.Lat, pos.Lng, image); err != nil {
		submissions.WithLabelValues(attempt.Kind, "error").Inc()
		p.fail(attempt.Kind, uploadMessage(err))
		return err
	}

	submissions.WithLabelValues(attempt.Kind, "success").Inc()
	if _, err := p.events.Refresh(ctx); err != nil {
		// The clock-in itself succeeded; a stale list self-heals on the
		// next refresh.
		p.log.Warn("post-clock-in refresh failed", zap.Error(err))
	}
	p.succeed("Attendance marked!")
	return nil
}

// SubmitFaceRegistration enrolls a face. Same retry policy as attendance
// but no location step; success triggers a registration recheck instead
// of an event refresh.
func (p *Pipeline) SubmitFaceRegistration(ctx context.Context, image []byte) error {
	attempt := Attempt{ID: uuid.NewString(), Kind: KindRegistration, Started: time.Now()}
	p.machine.to(StateUploading)

	alive := p.face.Ping(ctx, p.pingAttempts, p.pingDelay)
	p.log.Info("liveness probe", zap.String("attempt_id", attempt.ID), zap.Bool("server_alive", alive))

	if err := p.face.Register(ctx, p.tokens.Token(), image); err != nil {
		submissions.WithLabelValues(attempt.Kind, "error").Inc()
		p.fail(attempt.Kind, uploadMessage(err))
		return err
	}

	submissions.WithLabelValues(attempt.Kind, "success").Inc()
	if p.checker != nil {
		if registered, err := p.checker.CheckRegistered(ctx); err != nil {
			p.log.Warn("registration recheck failed", zap.Error(err))
		} else {
			p.log.Info("registration recheck", zap.Bool("registered", registered))
		}
	}
	p.succeed("Face registered successfully!")
	return nil
}

// ClockIn is the full capture-and-submit cycle for one event.
func (p *Pipeline) ClockIn(ctx context.Context, eventID string) error {
	img, err := p.Capture(ctx, KindAttendance)
	if err != nil {
		return err
	}
	return p.SubmitAttendance(ctx, eventID, img)
}

// RegisterFace is the full capture-and-enroll cycle.
func (p *Pipeline) RegisterFace(ctx context.Context) error {
	img, err := p.Capture(ctx, KindRegistration)
	if err != nil {
		return err
	}
	return p.SubmitFaceRegistration(ctx, img)
}

// fail records a failure: one notification, state holds at Failed until
// dismissed.
func (p *Pipeline) fail(kind, message string) {
	p.log.Info("submission failed", zap.String("kind", kind), zap.String("message", message))
	p.notify.Failure(message)
	p.machine.to(StateFailed)
}

// succeed records a success: one notification, Success held for the
// display delay, then back to Idle with a navigate-back signal.
func (p *Pipeline) succeed(message string) {
	p.notify.Success(message)
	p.machine.succeed(p.successHold)
}

// uploadMessage maps upload errors onto the five user-facing strings.
// A server-supplied message wins over the generic mapping.
func uploadMessage(err error) string {
	var serverErr *faceapi.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.Message != "" {
			return serverErr.Message
		}
		switch serverErr.Status {
		case http.StatusBadRequest:
			return "Bad request. Please try again."
		case http.StatusUnauthorized:
			return "Session expired. Please log in again."
		case http.StatusForbidden:
			return "Location or face mismatch."
		case http.StatusNotFound:
			return "User or event not found."
		default:
			return "Server error. Please try again later."
		}
	}
	if errors.Is(err, faceapi.ErrServerUnreachable) {
		return "Server not responding. Please try again later."
	}
	return err.Error()
}

// locationMessage maps provider failures onto their user-facing strings.
func locationMessage(err error) string {
	var locErr *location.Error
	if errors.As(err, &locErr) {
		switch locErr.Code {
		case location.CodePermissionDenied:
			return "Permission denied"
		case location.CodeUnavailable:
			return "Please enable live location"
		case location.CodeTimeout:
			return "Location request timed out"
		}
	}
	return err.Error()
}
