// Package services implements the application's use cases: indexing the
// standards corpus, retrieving and filtering applicable standards for a pull
// request, assembling the review context, validating comment targets against
// the diff, and orchestrating the end-to-end review.
//
// Services depend only on domain types and driven ports; adapters are
// injected at wiring time.
package services
