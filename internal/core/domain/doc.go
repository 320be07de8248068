// Package domain contains the core business entities for warden:
// standards documents and their retrieval-sized chunks, the retrieval query
// model, diff line records, and review findings. The package has no
// dependencies on adapters or services.
package domain
