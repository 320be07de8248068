// Package cli implements the warden command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/wardenlabs/warden/internal/adapters/driven/config/file"
	ollamaembed "github.com/wardenlabs/warden/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/wardenlabs/warden/internal/adapters/driven/embedding/openai"
	openaillm "github.com/wardenlabs/warden/internal/adapters/driven/llm/openai"
	"github.com/wardenlabs/warden/internal/adapters/driven/storage/sqlite"
	qdrantvec "github.com/wardenlabs/warden/internal/adapters/driven/vector/qdrant"
	"github.com/wardenlabs/warden/internal/connectors/github"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
	"github.com/wardenlabs/warden/internal/core/services"
	"github.com/wardenlabs/warden/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Standards-grounded pull request review",
	Long: `Warden indexes your organisation's standards documents and reviews
GitHub pull requests against them. Mandatory standards always apply;
file-conditional standards are retrieved by hybrid search and filtered
against the changed files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute(v string) {
	if v != "" {
		version = v
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// deps holds the wired adapters shared by the commands.
type deps struct {
	config    *configfile.ConfigStore
	catalog   *sqlite.Store
	keyword   driven.KeywordIndex
	vector    driven.VectorIndex
	embedding driven.EmbeddingService
}

// openDeps wires the storage, embedding and vector adapters from config.
// Vector search is optional: without an embedding provider warden runs
// keyword-only.
func openDeps(ctx context.Context) (*deps, error) {
	cfg, err := configfile.NewConfigStore(os.Getenv("WARDEN_CONFIG_DIR"))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	catalog, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	d := &deps{
		config:  cfg,
		catalog: catalog,
		keyword: catalog.KeywordIndex(),
	}

	embedding, err := openEmbedding(cfg)
	if err != nil {
		catalog.Close()
		return nil, err
	}
	if embedding == nil {
		logger.Info("No embedding provider configured; vector search disabled")
		return d, nil
	}
	d.embedding = embedding

	host := cfg.GetString("qdrant.host")
	if host == "" {
		host = "localhost"
	}
	port := cfg.GetInt("qdrant.port")
	if port == 0 {
		port = 6334
	}
	vector, err := qdrantvec.NewIndex(ctx, qdrantvec.Config{
		Host:       host,
		Port:       port,
		Collection: cfg.GetString("qdrant.collection"),
		VectorSize: uint64(embedding.Dimensions()),
	})
	if err != nil {
		// A missing vector store degrades to keyword-only search rather
		// than blocking indexing and review.
		logger.Warn("Vector index unavailable: %v", err)
		return d, nil
	}
	d.vector = vector

	return d, nil
}

// openEmbedding builds the configured embedding service, nil when none is
// configured.
func openEmbedding(cfg *configfile.ConfigStore) (driven.EmbeddingService, error) {
	switch provider := cfg.GetString("embedding.provider"); provider {
	case "openai":
		apiKey := cfg.GetString("embedding.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  apiKey,
			BaseURL: cfg.GetString("embedding.base_url"),
			Model:   cfg.GetString("embedding.model"),
		})
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.GetString("embedding.base_url"),
			Model:   cfg.GetString("embedding.model"),
		}), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// close releases the wired adapters.
func (d *deps) close() {
	if d.vector != nil {
		d.vector.Close()
	}
	if d.embedding != nil {
		d.embedding.Close()
	}
	if d.catalog != nil {
		d.catalog.Close()
	}
}

// newIndexService builds the indexing service from the wired deps.
func (d *deps) newIndexService() *services.IndexingService {
	return services.NewIndexingService(d.catalog, d.keyword, d.vector, d.embedding, nil)
}

// newReviewService builds the review workflow from the wired deps plus the
// GitHub and review model adapters.
func (d *deps) newReviewService(ctx context.Context) (*services.ReviewOrchestrator, error) {
	token := d.config.GetString("github.token")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("github token not configured (set github.token or GITHUB_TOKEN)")
	}
	host := github.NewClient(ctx, token)

	apiKey := d.config.GetString("review.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	model, err := openaillm.NewReviewModel(openaillm.Config{
		APIKey:  apiKey,
		BaseURL: d.config.GetString("review.base_url"),
		Model:   d.config.GetString("review.model"),
	})
	if err != nil {
		return nil, fmt.Errorf("review model: %w", err)
	}

	retrieval := services.NewRetrievalService(d.catalog, d.keyword, d.vector, d.embedding)
	return services.NewReviewOrchestrator(d.catalog, retrieval, services.NewAssembler(), model, host), nil
}
