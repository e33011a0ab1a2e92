package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/arslanov/padlock/internal/app/model"
	"github.com/arslanov/padlock/internal/app/repository"
	"github.com/arslanov/padlock/internal/crypto"
	"github.com/arslanov/padlock/internal/errs"
	httputil "github.com/arslanov/padlock/internal/http/util"
)

// Credentials carries what the client supplied to prove access to a pad:
// either the plaintext secret or a short-lived token issued by verify.
type Credentials struct {
	Secret string
	Token  string
}

// AccessGate authorizes every pad-scoped operation. It loads the target pad
// and checks the supplied credentials against the stored digest; a missing
// pad and a wrong secret are indistinguishable to the caller so pad
// identifiers are not confirmed to unauthenticated probes.
type AccessGate struct {
	pads   repository.PadRepository
	tokens *httputil.TokenSigner
}

// NewAccessGate returns a gate backed by the given pad repository. tokens may
// be nil, in which case only plaintext secrets are accepted.
func NewAccessGate(pads repository.PadRepository, tokens *httputil.TokenSigner) *AccessGate {
	return &AccessGate{pads: pads, tokens: tokens}
}

// Authorize loads the pad and verifies the credentials. A valid token skips
// the argon2 derivation; otherwise the secret is checked against the stored
// digest. It returns the pad on success, errs.ErrUnauthorized when the pad is
// missing or nothing matches, and the underlying error on storage failure.
func (g *AccessGate) Authorize(ctx context.Context, padID string, creds Credentials) (*model.Pad, error) {
	pad, err := g.pads.GetByID(ctx, padID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, fmt.Errorf("load pad: %w", err)
	}

	if creds.Token != "" && g.tokens != nil {
		if g.tokens.Validate(padID, creds.Token) == nil {
			return pad, nil
		}
	}

	if creds.Secret != "" && crypto.VerifySecret(creds.Secret, pad.SecretDigest) {
		return pad, nil
	}
	return nil, errs.ErrUnauthorized
}
