// Package memory provides in-memory implementations of the storage and
// search ports, used in tests and available as a zero-dependency fallback.
package memory
