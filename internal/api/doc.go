// Package api hosts the HTTP server, middleware, and REST handlers of the
// onboarding service. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/imports to queue a website import.
//   - GET /v1/imports/{job_id} for job status, summary, and error code.
package api
