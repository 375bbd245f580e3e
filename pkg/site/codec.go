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

package site

import (
	"encoding/json"
	"fmt"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
)

var outputFactories = map[string]func() agent.Output{
	KindRequirements:  func() agent.Output { return &Requirements{} },
	KindGeneratedCode: func() agent.Output { return &GeneratedCode{} },
	KindAuditReport:   func() agent.Output { return &AuditReport{} },
	KindDeployment:    func() agent.Output { return &Deployment{} },
	KindPersistedSite: func() agent.Output { return &PersistedSite{} },
}

// DecodeOutput decodes a JSON step output of the given kind.
func DecodeOutput(kind string, data []byte) (agent.Output, error) {
	factory, ok := outputFactories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown output kind %q", kind)
	}
	out := factory()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s output: %w", kind, err)
	}
	return out, nil
}

// OutputKindFor returns the output kind a step with the given input kind
// produces.
func OutputKindFor(inputKind string) (string, bool) {
	switch inputKind {
	case KindPrompt:
		return KindRequirements, true
	case KindGenerate:
		return KindGeneratedCode, true
	case KindAudit:
		return KindAuditReport, true
	case KindDeploy:
		return KindDeployment, true
	case KindPersist:
		return KindPersistedSite, true
	}
	return "", false
}
