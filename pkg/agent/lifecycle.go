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

package agent

// Lifecycle is an agent's availability for selection.
type Lifecycle string

const (
	Registered   Lifecycle = "registered"
	Initializing Lifecycle = "initializing"
	Ready        Lifecycle = "ready"
	Executing    Lifecycle = "executing"
	Completed    Lifecycle = "completed"
	Failed       Lifecycle = "failed"
	Deregistered Lifecycle = "deregistered"
)

// Selectable reports whether a step may start on an agent in this state.
// Failed agents stay unselectable until they are registered again.
func (l Lifecycle) Selectable() bool {
	return l == Registered || l == Ready
}

func (l Lifecycle) String() string {
	return string(l)
}
