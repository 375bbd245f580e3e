// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
)

// KeyFunc names the caller of a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// RemoteHost keys requests by client address without the port.
func RemoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware answers 429 once a caller has used its quota. Store failures
// let the request through.
func Middleware(l *Limiter, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = RemoteHost
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := key(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), id)
			if err != nil {
				slog.Error("Rate limit check failed", "error", err, "identifier", id)
				next.ServeHTTP(w, r)
				return
			}

			if u, ok := res.Tightest(); ok {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(u.Limit, 10))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(u.Remaining, 10))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(u.WindowEnd.Unix(), 10))
			}
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			secs := int64(math.Ceil(res.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.FormatInt(max(secs, 1), 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":  map[string]string{"message": res.Reason},
				"usages": res.Usages,
			})
		})
	}
}
