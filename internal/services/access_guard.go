package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// AccessGuard authorizes privileged calls against the single operator.
type AccessGuard struct {
	operator models.Identity
}

// NewAccessGuard creates an AccessGuard for a policy
func NewAccessGuard(policy models.AccessPolicy) *AccessGuard {
	return &AccessGuard{operator: policy.Operator}
}

// Authorize reports whether caller is the operator
func (g *AccessGuard) Authorize(caller models.Identity) bool {
	return caller != "" && caller == g.operator
}

// Operator returns the configured operator identity
func (g *AccessGuard) Operator() models.Identity {
	return g.operator
}

// EnsureAccessPolicy returns the stored policy, writing it on first start.
// A stored operator that differs from the configured one is an error: the policy never changes.
func EnsureAccessPolicy(ctx context.Context, repo repositories.AccessPolicyRepository, operator models.Identity, now time.Time) (*models.AccessPolicy, error) {
	if operator == "" {
		return nil, errors.New("operator identity is required")
	}
	policy, err := repo.Load(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		policy = &models.AccessPolicy{Operator: operator, CreatedAt: now}
		err = repo.CreateOnce(ctx, policy)
		if errors.Is(err, repositories.ErrAlreadyExists) {
			// Lost a race with another process; read what it wrote.
			policy, err = repo.Load(ctx)
		} else if err == nil {
			slog.Info("Access policy initialized", "operator", maskIdentity(operator))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load access policy: %w", err)
	}
	if policy.Operator != operator {
		return nil, fmt.Errorf("configured operator %s does not match stored operator %s", maskIdentity(operator), maskIdentity(policy.Operator))
	}
	return policy, nil
}

// maskIdentity shortens an identity for logs (e.g. 0x1234…abcd)
func maskIdentity(id models.Identity) string {
	s := string(id)
	if len(s) > 10 {
		return s[:6] + "…" + s[len(s)-4:]
	}
	return s
}
