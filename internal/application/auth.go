package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
)

// DefaultMaxAuthAttempts bounds consecutive wrong secrets before an operation is abandoned.
const DefaultMaxAuthAttempts = 3

// ErrNoSecret is returned by a SecretPrompt that has no further secret to offer.
var ErrNoSecret = errors.New("application: no secret supplied")

// SecretPrompt supplies the shared secret for userName. attempt counts from 1.
// Returning ErrNoSecret ends authentication as failed; any other error
// abandons the operation.
type SecretPrompt func(ctx context.Context, userName string, attempt int) (string, error)

// StaticSecret offers secret once.
func StaticSecret(secret string) SecretPrompt {
	return func(_ context.Context, _ string, attempt int) (string, error) {
		if attempt > 1 {
			return "", ErrNoSecret
		}
		return secret, nil
	}
}

// Authenticator checks supplied secrets against stored ones.
type Authenticator struct {
	maxAttempts int
	hashSecrets bool
	params      Argon2idParams
}

// NewAuthenticator allows maxAttempts consecutive tries (DefaultMaxAuthAttempts when <= 0).
func NewAuthenticator(maxAttempts int) *Authenticator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAuthAttempts
	}
	return &Authenticator{maxAttempts: maxAttempts, params: DefaultArgon2idParams}
}

// WithHashing makes Seal store new secrets as argon2id hashes.
func (a *Authenticator) WithHashing(enabled bool, params Argon2idParams) *Authenticator {
	a.hashSecrets = enabled
	a.params = params
	return a
}

// MaxAttempts returns the attempt limit.
func (a *Authenticator) MaxAttempts() int {
	if a == nil {
		return DefaultMaxAuthAttempts
	}
	return a.maxAttempts
}

// Seal converts a new secret into its stored form.
func (a *Authenticator) Seal(secret string) (string, error) {
	if a == nil || !a.hashSecrets {
		return secret, nil
	}
	return CreatePasswordHash(secret, a.params)
}

// Matches reports whether supplied equals the stored secret. Hashed entries
// are verified by recomputation; clear-text entries by constant-time equality.
func (a *Authenticator) Matches(stored, supplied string) bool {
	if IsPasswordHash(stored) {
		return VerifyPassword(stored, supplied) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// Verify prompts for userName's secret until it matches stored or the attempt
// limit is reached.
func (a *Authenticator) Verify(ctx context.Context, userName, stored string, prompt SecretPrompt) error {
	if prompt == nil {
		return ErrAuthFailed
	}
	for attempt := 1; attempt <= a.MaxAttempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrAbandoned, err)
		}
		secret, err := prompt(ctx, userName, attempt)
		if errors.Is(err, ErrNoSecret) {
			return ErrAuthFailed
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAbandoned, err)
		}
		if a.Matches(stored, secret) {
			return nil
		}
	}
	return ErrAuthFailed
}
