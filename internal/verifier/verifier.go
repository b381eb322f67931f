// Package verifier confirms that a synchronized definition reads back from
// the target the way it was applied.
package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/normalize"
	"github.com/dbsmedya/schemasync/internal/types"
)

// VerificationMethod defines how a re-read definition is compared.
type VerificationMethod string

const (
	// MethodNormalized compares normalized lines.
	MethodNormalized VerificationMethod = "normalized"
	// MethodSHA256 compares SHA256 digests of the normalized text and
	// reports both digests on mismatch.
	MethodSHA256 VerificationMethod = "sha256"
	// MethodSkip skips verification entirely.
	MethodSkip VerificationMethod = "skip"
)

// DefinitionSource reads the authored text of an object. *catalog.Reader
// satisfies it.
type DefinitionSource interface {
	RawDefinition(ctx context.Context, kind types.ObjectType, name string) (string, error)
}

// VerifyResult holds the outcome of one verification.
type VerifyResult struct {
	Object       types.ObjectIdentity
	Method       VerificationMethod
	SourceHash   string
	TargetHash   string
	Match        bool
	ErrorMessage string
}

// Verifier re-reads applied definitions.
type Verifier struct {
	method VerificationMethod
	logger *logger.Logger
}

// NewVerifier creates a verifier. An empty method defaults to MethodNormalized.
func NewVerifier(method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	if method == "" {
		method = MethodNormalized
	}
	switch method {
	case MethodNormalized, MethodSHA256, MethodSkip:
	default:
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}
	return &Verifier{method: method, logger: log}, nil
}

// Method returns the configured method.
func (v *Verifier) Method() VerificationMethod {
	return v.method
}

// Verify reads id back from target and compares it with the applied text.
// A mismatch is returned as an error carrying VerifyResult.ErrorMessage.
func (v *Verifier) Verify(ctx context.Context, target DefinitionSource, id types.ObjectIdentity, applied string) (*VerifyResult, error) {
	result := &VerifyResult{Object: id, Method: v.method, Match: true}
	if v.method == MethodSkip {
		v.logger.Debugf("Verification SKIPPED for %s (method=skip)", id)
		return result, nil
	}

	got, err := target.RawDefinition(ctx, id.Type, id.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read %s: %w", id, err)
	}
	if got == "" {
		result.Match = false
		result.ErrorMessage = fmt.Sprintf("%s not found after apply", id)
		return result, fmt.Errorf("verification mismatch: %s", result.ErrorMessage)
	}

	switch v.method {
	case MethodNormalized:
		result.Match = normalize.Equal(applied, got)
		if !result.Match {
			result.ErrorMessage = "definition read back differs from applied text"
		}
	case MethodSHA256:
		result.SourceHash = digest(applied)
		result.TargetHash = digest(got)
		result.Match = result.SourceHash == result.TargetHash
		if !result.Match {
			result.ErrorMessage = fmt.Sprintf("hash mismatch: source=%s, target=%s",
				result.SourceHash[:16], result.TargetHash[:16])
		}
	}

	if !result.Match {
		v.logger.Errorf("Verification FAILED for %s: %s", id, result.ErrorMessage)
		return result, fmt.Errorf("verification mismatch: %s", result.ErrorMessage)
	}
	v.logger.Debugf("Verification PASSED for %s", id)
	return result, nil
}

// digest hashes the normalized form so whitespace and comments do not count.
func digest(text string) string {
	sum := sha256.Sum256([]byte(normalize.Join(normalize.Lines(text))))
	return hex.EncodeToString(sum[:])
}
