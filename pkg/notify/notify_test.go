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

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

func TestHub_DeliversToMatchingSubscribers(t *testing.T) {
	hub := NewHub(8)
	ctx := context.Background()

	wf1, cancel1 := hub.Subscribe("wf-1")
	defer cancel1()
	all, cancelAll := hub.Subscribe("")
	defer cancelAll()

	hub.Notify(ctx, "wf-1", AgentStatus("wf-1", "AuditAgent", "executing", nil))
	hub.Notify(ctx, "wf-2", WorkflowComplete("wf-2", nil))

	ev := <-wf1
	assert.Equal(t, EventAgentStatus, ev.Type)
	assert.Equal(t, "AuditAgent", ev.Agent)

	select {
	case ev := <-wf1:
		t.Fatalf("unexpected event for wf-1 subscriber: %+v", ev)
	default:
	}

	assert.Equal(t, "wf-1", (<-all).WorkflowID)
	got := <-all
	assert.Equal(t, "wf-2", got.WorkflowID)
	assert.True(t, got.Terminal())
}

func TestHub_NeverBlocksOnFullSubscriber(t *testing.T) {
	hub := NewHub(1)
	_, cancel := hub.Subscribe("wf")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Notify(context.Background(), "wf", LogEntry("wf", workflow.LogEntry{Message: "tick"}))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}
	assert.Equal(t, int64(9), hub.Dropped())
}

func TestHub_UnsubscribeAndClose(t *testing.T) {
	hub := NewHub(4)
	ch, cancel := hub.Subscribe("wf")
	assert.Equal(t, 1, hub.Subscribers())

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers())

	ch2, _ := hub.Subscribe("")
	hub.Close()
	_, open = <-ch2
	assert.False(t, open)

	ch3, cancel3 := hub.Subscribe("late")
	_, open = <-ch3
	assert.False(t, open)
	cancel3()
}

func TestMulti_FansOut(t *testing.T) {
	var got []string
	collect := func(tag string) Notifier {
		return NotifierFunc(func(_ context.Context, id string, ev Event) {
			got = append(got, tag+":"+id+":"+string(ev.Type))
		})
	}

	m := Multi{collect("a"), Nop, collect("b"), LogNotifier{}}
	m.Notify(context.Background(), "wf", WorkflowError("wf", workflow.StatusFailed, "boom"))

	require.Len(t, got, 2)
	assert.Equal(t, []string{"a:wf:workflow_error", "b:wf:workflow_error"}, got)
}

func TestLogEntryEvent(t *testing.T) {
	now := time.Now()
	ev := LogEntry("wf", workflow.LogEntry{Time: now, Level: workflow.LevelWarn, Message: "retrying", Agent: "DeploymentAgent"})
	assert.Equal(t, EventLogEntry, ev.Type)
	assert.Equal(t, workflow.LevelWarn, ev.Level)
	assert.Equal(t, "DeploymentAgent", ev.Agent)
	assert.Equal(t, now, ev.Time)
	assert.False(t, ev.Terminal())
}
