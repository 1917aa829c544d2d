package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Policy maps each scope to its quota.
type Policy struct {
	Limits map[Scope]Config
}

// DefaultPolicy returns the quotas used by the public site.
func DefaultPolicy() *Policy {
	return NewPolicyBuilder().
		SetLimit(ScopeDownload, 10, time.Minute).
		SetLimit(ScopeAPI, 60, time.Minute).
		SetLimit(ScopeSearch, 100, time.Minute).
		Build()
}

// Validate checks every configured quota.
func (p *Policy) Validate() error {
	for scope, cfg := range p.Limits {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("scope %s: %w", scope, err)
		}
	}

	return nil
}

// PolicyBuilder assembles a Policy fluently.
type PolicyBuilder struct {
	limits map[Scope]Config
}

// NewPolicyBuilder creates an empty builder.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{limits: make(map[Scope]Config)}
}

// SetLimit sets the quota for scope, replacing any previous one.
func (b *PolicyBuilder) SetLimit(scope Scope, maxRequests int64, window time.Duration) *PolicyBuilder {
	b.limits[scope] = Config{Window: window, Max: maxRequests}

	return b
}

// Build returns the assembled policy.
func (b *PolicyBuilder) Build() *Policy {
	limits := make(map[Scope]Config, len(b.limits))
	for scope, cfg := range b.limits {
		limits[scope] = cfg
	}

	return &Policy{Limits: limits}
}

// Limiter applies a Policy on top of a Store. Quota pools are keyed
// "<scope>:<client>" so the same client never shares counters across scopes.
type Limiter struct {
	store  Store
	policy *Policy
}

// NewLimiter creates a limiter, rejecting policies with non-positive quotas.
func NewLimiter(store Store, policy *Policy) (*Limiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Limiter{store: store, policy: policy}, nil
}

// Allow checks clientID against the quota for scope. Scopes without a
// configured quota are always allowed and leave the store untouched.
func (l *Limiter) Allow(ctx context.Context, scope Scope, clientID string) (Result, error) {
	cfg, ok := l.policy.Limits[scope]
	if !ok {
		return Result{Allowed: true}, nil
	}

	return l.store.Check(ctx, Key(scope, clientID), cfg)
}

// AllowDownload checks the download quota for a client IP.
func (l *Limiter) AllowDownload(ctx context.Context, ip string) (bool, error) {
	return l.allowed(ctx, ScopeDownload, ip)
}

// AllowAPI checks the general API quota for a client IP.
func (l *Limiter) AllowAPI(ctx context.Context, ip string) (bool, error) {
	return l.allowed(ctx, ScopeAPI, ip)
}

// AllowSearch checks the autocomplete quota for a client IP.
func (l *Limiter) AllowSearch(ctx context.Context, ip string) (bool, error) {
	return l.allowed(ctx, ScopeSearch, ip)
}

func (l *Limiter) allowed(ctx context.Context, scope Scope, ip string) (bool, error) {
	res, err := l.Allow(ctx, scope, ip)
	if err != nil {
		return false, err
	}

	return res.Allowed, nil
}

// Reset clears clientID's window for scope.
func (l *Limiter) Reset(ctx context.Context, scope Scope, clientID string) error {
	return l.store.Reset(ctx, Key(scope, clientID))
}

// Key builds the store key for a scope and client.
func Key(scope Scope, clientID string) string {
	return string(scope) + ":" + clientID
}
