// Package sitepipe orchestrates the multi-agent workflows of a website
// builder.
//
// A workflow is a fixed pipeline of named agents (InputAgent,
// CodeGenerationAgent, AuditAgent, DeploymentAgent, PersistenceAgent). The
// engine runs each step with retries and backoff, records per-workflow state
// and metrics, publishes progress events and persists snapshots so other
// processes can follow a run.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/dhruv465/Website-Builder-sub000/cmd/sitepipe@latest
//
// Declare the remote agents:
//
//	agents:
//	  InputAgent:
//	    url: "http://localhost:9001/execute"
//	  CodeGenerationAgent:
//	    url: "http://localhost:9002/execute"
//	    timeout: 5m
//	  AuditAgent:
//	    url: "http://localhost:9003/execute"
//	  DeploymentAgent:
//	    url: "http://localhost:9004/execute"
//	    headers:
//	      Authorization: "Bearer ${DEPLOY_TOKEN}"
//	  PersistenceAgent:
//	    url: "http://localhost:9005/execute"
//
//	store:
//	  backend: sql
//	  database: main
//
//	databases:
//	  main:
//	    driver: sqlite
//	    database: .sitepipe/state.db
//
// Start the server:
//
//	sitepipe serve --config sitepipe.yaml
//
// Or run one workflow and print its result:
//
//	sitepipe run audit_only page.json --config sitepipe.yaml
//
// # Packages
//
//   - pkg/orchestrator: workflow execution, retries, cancellation, retention
//   - pkg/workflow: workflow state, status machine, metrics and snapshots
//   - pkg/agent: agent contract, registry, lifecycles and error taxonomy
//   - pkg/agent/remoteagent: agents reached over HTTP
//   - pkg/site: workflow inputs, step payloads and results
//   - pkg/store: snapshot persistence (memory, SQLite, PostgreSQL, MySQL)
//   - pkg/notify: progress events and the in-process hub
//   - pkg/server: HTTP API and event streams
//   - pkg/auth: JWT bearer authentication for the API
//   - pkg/ratelimit: per-caller submission quotas
//   - pkg/config: configuration loading, validation and hot reload
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
package sitepipe
