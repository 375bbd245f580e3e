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

package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopRecorder discards every measurement.
type NoopRecorder struct{}

func (NoopRecorder) RecordWorkflow(context.Context, string, string, time.Duration)        {}
func (NoopRecorder) RecordAgentCall(context.Context, string, time.Duration, string)       {}
func (NoopRecorder) RecordRetry(context.Context, string)                                  {}
func (NoopRecorder) RecordHTTPRequest(context.Context, string, string, int, time.Duration) {}

// NoopTracer returns a tracer whose spans record nothing.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(DefaultServiceName)
}

// NoopManager returns a Manager with observability disabled.
func NoopManager() *Manager {
	return &Manager{
		tracerProvider: noop.NewTracerProvider(),
		recorder:       NoopRecorder{},
	}
}

var _ Recorder = NoopRecorder{}
