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

package orchestrator

import (
	"context"
	"log/slog"
	"time"
)

// Sweep evicts workflows that finished at least the retention window before
// now and returns how many were removed. Stored snapshots are kept.
func (o *Orchestrator) Sweep(now time.Time) int {
	if o.retention <= 0 {
		return 0
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for id, state := range o.workflows {
		finished, ok := state.FinishedAt()
		if !ok || now.Sub(finished) < o.retention {
			continue
		}
		delete(o.workflows, id)
		removed++
	}
	if removed > 0 {
		slog.Debug("Evicted finished workflows", "count", removed)
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (o *Orchestrator) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || o.retention <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.Sweep(o.clock())
		}
	}
}
