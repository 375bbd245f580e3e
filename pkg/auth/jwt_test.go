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
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidToken(t *testing.T) {
	v, key := newTestValidator(t)

	token := signToken(t, key, func(tok jwt.Token) {
		_ = tok.Set("email", "dev@example.com")
		_ = tok.Set("role", "admin")
		_ = tok.Set("plan", "pro")
	})

	claims, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "dev@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, map[string]any{"plan": "pro"}, claims.Custom)
}

func TestValidator_Rejects(t *testing.T) {
	v, key := newTestValidator(t)
	other := generateKey(t)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"expired", signToken(t, key, func(tok jwt.Token) {
			_ = tok.Set(jwt.ExpirationKey, time.Now().Add(-time.Hour))
		})},
		{"wrong issuer", signToken(t, key, func(tok jwt.Token) {
			_ = tok.Set(jwt.IssuerKey, "https://elsewhere.test")
		})},
		{"wrong audience", signToken(t, key, func(tok jwt.Token) {
			_ = tok.Set(jwt.AudienceKey, "other-api")
		})},
		{"unknown signing key", signToken(t, other, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewValidator_UnreachableJWKS(t *testing.T) {
	key := generateKey(t)
	srv := jwksServer(t, key)

	_, err := NewValidator(context.Background(), srv.URL+"/missing.json", testIssuer, testAudience, time.Minute)
	assert.Error(t, err)
}
