package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-verify-nosql/internal/domain"
	"github.com/go-verify-nosql/internal/pkg/id"
	"github.com/go-verify-nosql/internal/pkg/otp"
)

// Store is the persistence contract the engine needs. Implementations must
// enforce (email, purpose) as a unique key.
type Store interface {
	// Find returns domain.ErrNotFound when no record exists for the pair.
	Find(ctx context.Context, email string, purpose domain.Purpose) (*domain.VerificationRecord, error)
	// Replace atomically inserts rec, superseding any record with the same key.
	Replace(ctx context.Context, rec *domain.VerificationRecord) error
	// Refresh writes rec over the existing record only if its last_sent_at
	// still equals prevLastSentAt (nil meaning unset). Returns domain.ErrConflict otherwise.
	Refresh(ctx context.Context, rec *domain.VerificationRecord, prevLastSentAt *time.Time) error
	// DeleteMatching removes the record only if it still holds code.
	// Returns domain.ErrConflict when no such record exists.
	DeleteMatching(ctx context.Context, email string, purpose domain.Purpose, code string) error
	// Delete removes the record for the pair. Deleting nothing is not an error.
	Delete(ctx context.Context, email string, purpose domain.Purpose) error
}

// Config holds engine defaults. Zero values fall back to DefaultConfig.
type Config struct {
	DefaultTTL        time.Duration
	DefaultCodeLength int
	ResendInterval    time.Duration
}

// DefaultConfig returns the engine defaults: 10 minute TTL, 6 digits, 1 minute resend interval.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:        10 * time.Minute,
		DefaultCodeLength: 6,
		ResendInterval:    time.Minute,
	}
}

type CreateInput struct {
	Email      string
	UserID     *string
	Purpose    domain.Purpose
	TTL        time.Duration
	CodeLength int
	Meta       map[string]interface{}
}

type ResendInput struct {
	Email      string
	Purpose    domain.Purpose
	TTL        time.Duration
	CodeLength int
}

type VerifyInput struct {
	Email   string
	Purpose domain.Purpose
	Code    string
}

// Issued is returned by Create and Resend. Code is plaintext and must only be
// handed to the delivery channel.
type Issued struct {
	Code      string
	ExpiresAt time.Time
	Record    *domain.VerificationRecord
}

// Service is the verification-code engine.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*Issued, error)
	// Resend rotates the code on the existing record, keeping its RecordID.
	// The previous code is no longer accepted: verifying it while the record
	// is pending returns domain.ErrInvalid, and domain.ErrNotFound once the
	// record has been consumed or deleted.
	Resend(ctx context.Context, in ResendInput) (*Issued, error)
	Verify(ctx context.Context, in VerifyInput) (*domain.VerificationRecord, error)
	Delete(ctx context.Context, email string, purpose domain.Purpose)
}

// ServiceDeps groups the service's collaborators. Now defaults to time.Now.
type ServiceDeps struct {
	Store  Store
	Config Config
	Now    func() time.Time
}

type service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

func NewService(deps ServiceDeps) Service {
	cfg := deps.Config
	def := DefaultConfig()
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if cfg.DefaultCodeLength <= 0 {
		cfg.DefaultCodeLength = def.DefaultCodeLength
	}
	if cfg.ResendInterval <= 0 {
		cfg.ResendInterval = def.ResendInterval
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{store: deps.Store, cfg: cfg, now: now}
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Issued, error) {
	email, purpose, err := requireKey(in.Email, in.Purpose)
	if err != nil {
		return nil, err
	}
	code, err := otp.Generate(s.codeLength(in.CodeLength))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	rec := &domain.VerificationRecord{
		RecordID:    id.New(),
		Email:       email,
		Purpose:     purpose,
		UserID:      in.UserID,
		Code:        code,
		ExpiresAt:   now.Add(s.ttl(in.TTL)),
		Meta:        in.Meta,
		LastSentAt:  &now,
		ResendCount: 0,
		CreatedAt:   now,
	}
	if err := s.store.Replace(ctx, rec); err != nil {
		return nil, storeErr("replace verification", err)
	}
	slog.Info("verification code issued", "email", email, "purpose", purpose, "record_id", rec.RecordID)
	return &Issued{Code: code, ExpiresAt: rec.ExpiresAt, Record: rec}, nil
}

func (s *service) Resend(ctx context.Context, in ResendInput) (*Issued, error) {
	email, purpose, err := requireKey(in.Email, in.Purpose)
	if err != nil {
		return nil, err
	}
	current, err := s.find(ctx, email, purpose, "no pending request")
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.checkCooldown(current, now); err != nil {
		return nil, err
	}

	code, err := otp.Generate(s.codeLength(in.CodeLength))
	if err != nil {
		return nil, err
	}
	prev := current.LastSentAt
	next := *current
	next.Code = code
	next.ExpiresAt = now.Add(s.ttl(in.TTL))
	next.LastSentAt = &now
	next.ResendCount = current.ResendCount + 1

	if err := s.store.Refresh(ctx, &next, prev); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, storeErr("refresh verification", err)
		}
		// Lost a race with another resend or create: report against the winner.
		winner, ferr := s.find(ctx, email, purpose, "no pending request")
		if ferr != nil {
			return nil, ferr
		}
		if cerr := s.checkCooldown(winner, now); cerr != nil {
			return nil, cerr
		}
		return nil, &domain.TooSoonError{WaitSeconds: 1}
	}
	slog.Info("verification code resent", "email", email, "purpose", purpose, "record_id", next.RecordID, "resend_count", next.ResendCount)
	return &Issued{Code: code, ExpiresAt: next.ExpiresAt, Record: &next}, nil
}

func (s *service) Verify(ctx context.Context, in VerifyInput) (*domain.VerificationRecord, error) {
	email, purpose, err := requireKey(in.Email, in.Purpose)
	if err != nil {
		return nil, err
	}
	submitted := strings.TrimSpace(in.Code)
	if submitted == "" {
		return nil, fmt.Errorf("code required: %w", domain.ErrArgumentMissing)
	}
	rec, err := s.find(ctx, email, purpose, "verification code not found")
	if err != nil {
		return nil, err
	}

	if rec.ExpiredAt(s.now()) {
		if err := s.store.DeleteMatching(ctx, email, purpose, rec.Code); err != nil && !errors.Is(err, domain.ErrConflict) {
			return nil, storeErr("delete expired verification", err)
		}
		slog.Info("expired verification code removed", "email", email, "purpose", purpose, "record_id", rec.RecordID)
		return nil, fmt.Errorf("verification code expired: %w", domain.ErrExpired)
	}

	if submitted != rec.Code {
		slog.Warn("verification code mismatch", "email", email, "purpose", purpose, "record_id", rec.RecordID)
		return nil, fmt.Errorf("invalid verification code: %w", domain.ErrInvalid)
	}

	if err := s.store.DeleteMatching(ctx, email, purpose, rec.Code); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Consumed or superseded between the read and the delete.
			return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("consume verification", err)
	}
	slog.Info("verification code consumed", "email", email, "purpose", purpose, "record_id", rec.RecordID)
	return rec, nil
}

// Delete is best-effort: blank arguments are ignored and store failures are only logged.
func (s *service) Delete(ctx context.Context, email string, purpose domain.Purpose) {
	email = domain.NormalizeEmail(email)
	purpose = domain.Purpose(strings.TrimSpace(string(purpose)))
	if email == "" || purpose == "" {
		return
	}
	if err := s.store.Delete(ctx, email, purpose); err != nil {
		slog.Warn("failed to delete verification codes", "email", email, "purpose", purpose, "err", err)
	}
}

func (s *service) find(ctx context.Context, email string, purpose domain.Purpose, notFoundMsg string) (*domain.VerificationRecord, error) {
	rec, err := s.store.Find(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", notFoundMsg, domain.ErrNotFound)
		}
		return nil, storeErr("find verification", err)
	}
	return rec, nil
}

// checkCooldown returns a *domain.TooSoonError while rec is inside the resend interval.
func (s *service) checkCooldown(rec *domain.VerificationRecord, now time.Time) error {
	if rec.LastSentAt == nil {
		return nil
	}
	remaining := rec.LastSentAt.Add(s.cfg.ResendInterval).Sub(now)
	if remaining <= 0 {
		return nil
	}
	return &domain.TooSoonError{WaitSeconds: int(math.Ceil(remaining.Seconds()))}
}

func (s *service) ttl(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return s.cfg.DefaultTTL
}

func (s *service) codeLength(n int) int {
	if n != 0 {
		return n
	}
	return s.cfg.DefaultCodeLength
}

func requireKey(email string, purpose domain.Purpose) (string, domain.Purpose, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", "", fmt.Errorf("email required: %w", domain.ErrArgumentMissing)
	}
	p := domain.Purpose(strings.TrimSpace(string(purpose)))
	if p == "" {
		return "", "", fmt.Errorf("purpose required: %w", domain.ErrArgumentMissing)
	}
	return email, p, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreFailure, err)
}
