package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a ULID used as a verification record ID. A fresh ID marks a
// new issuance; resends keep the existing one.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
