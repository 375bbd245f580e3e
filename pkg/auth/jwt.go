// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultRefreshInterval is the minimum time between JWKS refreshes.
const DefaultRefreshInterval = 15 * time.Minute

// Validator checks JWT signatures against a cached JWKS and verifies
// expiry, issuer and audience.
type Validator struct {
	jwksURL  string
	issuer   string
	audience string

	cache  *jwk.Cache
	cancel context.CancelFunc
}

// NewValidator registers jwksURL with a refreshing cache and fetches it
// once so a bad URL fails at startup rather than on the first request.
func NewValidator(ctx context.Context, jwksURL, issuer, audience string, refresh time.Duration) (*Validator, error) {
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}

	// The cache's refresh goroutine lives until Close.
	cacheCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cache := jwk.NewCache(cacheCtx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(refresh)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
	}

	return &Validator{
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
		cache:    cache,
		cancel:   cancel,
	}, nil
}

// Validate parses token and returns its claims.
func (v *Validator) Validate(ctx context.Context, token string) (*Claims, error) {
	keyset, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keyset),
		jwt.WithValidate(true),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{Subject: parsed.Subject(), Custom: make(map[string]any)}
	for key, value := range parsed.PrivateClaims() {
		switch key {
		case "email":
			claims.Email, _ = value.(string)
		case "role":
			claims.Role, _ = value.(string)
		default:
			claims.Custom[key] = value
		}
	}
	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	v.cancel()
}
