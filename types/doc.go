// Package types provides core type definitions and interfaces for the longpoll library.
//
// This package contains shared types that are used across multiple packages in
// the longpoll library. By keeping these types in a separate package, we avoid
// import cycles between the main longpoll package and its internal
// implementations.
//
// Key types:
//   - Message: The wire-level message exchanged between nodes
//   - Registry: Cluster-wide name binding and broadcast contract
//   - VisibilityFilter: Authorization filter consumed by sessions
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
