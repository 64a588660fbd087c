package observability

// Package observability provides structured logging, Prometheus metrics,
// and health checking capabilities for vulnradar.
//
// Key features:
// - Structured JSON logging with configurable log levels
// - Prometheus metrics for ingestion, feed downloads, tasks, and HTTP traffic
// - Health checks for component status monitoring
// - HTTP endpoints for /metrics, /health, and /ready
