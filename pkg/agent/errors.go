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

import (
	"errors"
	"fmt"
)

// ErrorKind classifies agent failures.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindLLM        ErrorKind = "llm"
	KindDeployment ErrorKind = "deployment"
	KindTimeout    ErrorKind = "timeout"
	KindNetwork    ErrorKind = "network"
	KindStorage    ErrorKind = "storage"
	KindUnknown    ErrorKind = "unknown"
)

// ParseErrorKind maps a string to an ErrorKind, falling back to Unknown.
func ParseErrorKind(s string) ErrorKind {
	switch k := ErrorKind(s); k {
	case KindValidation, KindLLM, KindDeployment, KindTimeout, KindNetwork, KindStorage:
		return k
	default:
		return KindUnknown
	}
}

// Error is the failure type every agent returns.
type Error struct {
	Kind        ErrorKind
	Agent       string
	Message     string
	Recoverable bool
	Retryable   bool

	// Context carries side-channel data such as manual deployment
	// instructions. It is surfaced verbatim to callers.
	Context map[string]any

	Err error
}

func (e *Error) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Agent, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable satisfies retry.Retryable.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// WithContext returns e after merging kv into its Context.
func (e *Error) WithContext(kv map[string]any) *Error {
	if len(kv) == 0 {
		return e
	}
	if e.Context == nil {
		e.Context = make(map[string]any, len(kv))
	}
	for k, v := range kv {
		e.Context[k] = v
	}
	return e
}

func NewValidationError(agentName, msg string) *Error {
	return &Error{Kind: KindValidation, Agent: agentName, Message: msg}
}

func NewLLMError(agentName, msg string, cause error) *Error {
	return &Error{Kind: KindLLM, Agent: agentName, Message: msg, Recoverable: true, Retryable: true, Err: cause}
}

func NewTimeoutError(agentName, msg string, cause error) *Error {
	return &Error{Kind: KindTimeout, Agent: agentName, Message: msg, Recoverable: true, Retryable: true, Err: cause}
}

func NewNetworkError(agentName, msg string, cause error) *Error {
	return &Error{Kind: KindNetwork, Agent: agentName, Message: msg, Recoverable: true, Retryable: true, Err: cause}
}

// NewDeploymentError builds a deployment failure. Whether it is retryable
// depends on the provider's answer, so the caller decides.
func NewDeploymentError(agentName, msg string, retryable bool, fallback map[string]any) *Error {
	return &Error{Kind: KindDeployment, Agent: agentName, Message: msg, Recoverable: retryable, Retryable: retryable, Context: fallback}
}

func NewStorageError(agentName, msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Agent: agentName, Message: msg, Recoverable: true, Err: cause}
}

func NewUnknownError(agentName string, cause error) *Error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindUnknown, Agent: agentName, Message: msg, Err: cause}
}

// AsError extracts an *Error from err. Foreign errors are wrapped as Unknown
// under agentName; a nil err returns nil.
func AsError(err error, agentName string) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return NewUnknownError(agentName, err)
}
