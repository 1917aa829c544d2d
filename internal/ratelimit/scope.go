package ratelimit

import "github.com/danielgtaylor/huma/v2"

// Scope names an independent quota pool.
type Scope string

const (
	// ScopeDownload guards the file download endpoint.
	ScopeDownload Scope = "download"
	// ScopeAPI is the general quota for JSON endpoints.
	ScopeAPI Scope = "api"
	// ScopeSearch guards search autocomplete, which fires on every keystroke.
	ScopeSearch Scope = "search"
)

// MetadataKey is the key used to store rate limit config in operation metadata.
const MetadataKey = "rateLimit"

// EndpointConfig defines per-endpoint rate limit configuration.
// It is attached to Huma operations via the Metadata field.
type EndpointConfig struct {
	// Scope selects the quota pool. Empty means the resolver's default.
	Scope Scope

	// Disabled skips rate limiting entirely for this endpoint.
	Disabled bool
}

// ScopeResolver determines which scope applies to a request.
type ScopeResolver interface {
	Resolve(ctx huma.Context) Scope
}

// OperationScopeResolver reads the scope from operation metadata and falls
// back to a fixed default scope.
type OperationScopeResolver struct {
	fallback Scope
}

// NewOperationScopeResolver creates a resolver defaulting to ScopeAPI.
func NewOperationScopeResolver() *OperationScopeResolver {
	return &OperationScopeResolver{fallback: ScopeAPI}
}

// Resolve returns the scope configured on the operation, or the fallback.
func (r *OperationScopeResolver) Resolve(ctx huma.Context) Scope {
	cfg := GetEndpointConfig(ctx)
	if cfg == nil || cfg.Scope == "" {
		return r.fallback
	}

	return cfg.Scope
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}
