package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-verify-nosql/internal/domain"
)

type verificationKey struct {
	email   string
	purpose domain.Purpose
}

// VerificationStore keeps verification records in process memory.
// It mirrors the conditional semantics of the DynamoDB repository and is
// used for local development and tests. Records are never swept; expiry is
// enforced by the engine on read.
type VerificationStore struct {
	mu      sync.Mutex
	records map[verificationKey]domain.VerificationRecord
}

func NewVerificationStore() *VerificationStore {
	return &VerificationStore{records: make(map[verificationKey]domain.VerificationRecord)}
}

func (s *VerificationStore) Find(_ context.Context, email string, purpose domain.Purpose) (*domain.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[verificationKey{email, purpose}]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	return clone(rec), nil
}

func (s *VerificationStore) Replace(_ context.Context, rec *domain.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[verificationKey{rec.Email, rec.Purpose}] = *clone(*rec)
	return nil
}

func (s *VerificationStore) Refresh(_ context.Context, rec *domain.VerificationRecord, prevLastSentAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := verificationKey{rec.Email, rec.Purpose}
	cur, ok := s.records[key]
	if !ok || cur.RecordID != rec.RecordID || !sameInstant(cur.LastSentAt, prevLastSentAt) {
		return fmt.Errorf("verification changed concurrently: %w", domain.ErrConflict)
	}
	cur.Code = rec.Code
	cur.ExpiresAt = rec.ExpiresAt
	cur.LastSentAt = timePtr(rec.LastSentAt)
	cur.ResendCount = cur.ResendCount + 1
	s.records[key] = cur
	return nil
}

func (s *VerificationStore) DeleteMatching(_ context.Context, email string, purpose domain.Purpose, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := verificationKey{email, purpose}
	cur, ok := s.records[key]
	if !ok || cur.Code != code {
		return fmt.Errorf("verification no longer holds code: %w", domain.ErrConflict)
	}
	delete(s.records, key)
	return nil
}

func (s *VerificationStore) Delete(_ context.Context, email string, purpose domain.Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, verificationKey{email, purpose})
	return nil
}

// Len reports how many records are held. Intended for tests.
func (s *VerificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Mutate applies fn to the stored record for the pair, if present. Intended
// for tests that need to age a record.
func (s *VerificationStore) Mutate(email string, purpose domain.Purpose, fn func(*domain.VerificationRecord)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := verificationKey{email, purpose}
	cur, ok := s.records[key]
	if !ok {
		return false
	}
	fn(&cur)
	s.records[key] = cur
	return true
}

func clone(rec domain.VerificationRecord) *domain.VerificationRecord {
	out := rec
	out.LastSentAt = timePtr(rec.LastSentAt)
	if rec.UserID != nil {
		uid := *rec.UserID
		out.UserID = &uid
	}
	if rec.Meta != nil {
		out.Meta = make(map[string]interface{}, len(rec.Meta))
		for k, v := range rec.Meta {
			out.Meta[k] = v
		}
	}
	return &out
}

func timePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
