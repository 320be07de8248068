// Package driving provides interfaces for the application's entry points
// (primary/inbound ports), implemented by the core services and consumed by
// the CLI.
package driving
