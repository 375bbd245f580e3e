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

// Package ratelimit caps how many workflows a caller may submit per time
// window. Counters use fixed windows that start with the first request.
package ratelimit

import (
	"fmt"
	"time"
)

// Window is the length of a counting period.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
	WindowWeek   Window = "week"
)

func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseWindow validates a window name.
func ParseWindow(s string) (Window, error) {
	w := Window(s)
	if w.Duration() == 0 {
		return "", fmt.Errorf("unknown window %q (valid: minute, hour, day, week)", s)
	}
	return w, nil
}

// Limit allows Max requests per Window.
type Limit struct {
	Window Window
	Max    int64
}

// Usage is the state of one limit for one caller.
type Usage struct {
	Window    Window    `json:"window"`
	Current   int64     `json:"current"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	WindowEnd time.Time `json:"window_end"`
}

// Result is the outcome of Limiter.Allow.
type Result struct {
	Allowed    bool          `json:"allowed"`
	Reason     string        `json:"reason,omitempty"`
	Usages     []Usage       `json:"usages"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Tightest returns the usage with the fewest remaining requests.
func (r *Result) Tightest() (Usage, bool) {
	if len(r.Usages) == 0 {
		return Usage{}, false
	}
	best := r.Usages[0]
	for _, u := range r.Usages[1:] {
		if u.Remaining < best.Remaining {
			best = u
		}
	}
	return best, true
}
