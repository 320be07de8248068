// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the standards catalog, the keyword and vector
// indexes, the embedding service, the review model and configuration.
package driven
