package http

import (
	"github.com/go-verify-nosql/internal/application/verification"
	jwtinfra "github.com/go-verify-nosql/internal/infrastructure/jwt"
	"github.com/go-verify-nosql/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	// VerificationStore backs the engine; dynamo.VerificationRepo in production.
	VerificationStore verification.Store
	Mailer            smtp.Mailer
	// JWTProvider is optional. Without it verify returns no grant and the
	// authenticated cleanup route is not mounted.
	JWTProvider *jwtinfra.Provider
}
