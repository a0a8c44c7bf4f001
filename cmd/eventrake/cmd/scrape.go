package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eventrake/eventrake/internal/archive"
	"github.com/eventrake/eventrake/internal/browser"
	"github.com/eventrake/eventrake/internal/config"
	"github.com/eventrake/eventrake/internal/enrich"
	"github.com/eventrake/eventrake/internal/extract"
	"github.com/eventrake/eventrake/internal/instagram"
	"github.com/eventrake/eventrake/internal/llm"
	"github.com/eventrake/eventrake/internal/logo"
	"github.com/eventrake/eventrake/internal/pipeline"
	"github.com/eventrake/eventrake/internal/store"
)

var (
	scrapeSourceID string
	scrapeAll      bool
	scrapeForce    bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape sources and extract events",
	Long: `Scrape one source or every enabled source that is due.

Examples:
  # Scrape every enabled source whose interval has elapsed
  eventrake scrape --all

  # Scrape one source by id
  eventrake scrape --source 4f9d4c1e-8a2b-4c3d-9e5f-6a7b8c9d0e1f

  # Re-extract even when the page content is unchanged
  eventrake scrape --source 4f9d4c1e-8a2b-4c3d-9e5f-6a7b8c9d0e1f --force`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVar(&scrapeSourceID, "source", "", "source id to scrape")
	scrapeCmd.Flags().BoolVar(&scrapeAll, "all", false, "scrape all enabled sources that are due")
	scrapeCmd.Flags().BoolVar(&scrapeForce, "force", false, "bypass the content change gate and scrape intervals")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if scrapeAll == (scrapeSourceID != "") {
		return fmt.Errorf("exactly one of --source or --all is required")
	}

	cfg := GetConfig()
	db, err := store.Open(store.Config{DSN: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	engine := browser.NewEngine(browser.Config{
		ExecPath:     cfg.Browser.ExecPath,
		NavTimeout:   cfg.Browser.NavTimeout,
		ScrollBudget: cfg.Browser.ScrollBudget,
		SettleDelay:  cfg.Browser.SettleDelay,
	})
	defer engine.Shutdown()

	orchestrator, err := buildOrchestrator(ctx, cfg, db, engine)
	if err != nil {
		return err
	}

	if scrapeAll {
		summary, err := orchestrator.ScrapeAll(ctx, scrapeForce)
		if err != nil {
			return err
		}
		fmt.Printf("Scraped: %d, skipped: %d, failed: %d\n", summary.Scraped, summary.Skipped, summary.Failed)
		return nil
	}

	sourceID, err := uuid.Parse(scrapeSourceID)
	if err != nil {
		return fmt.Errorf("invalid source id %q: %w", scrapeSourceID, err)
	}

	result := orchestrator.ScrapeSource(ctx, sourceID, scrapeForce)
	switch {
	case result.Skipped:
		fmt.Println("Content unchanged, extraction skipped")
	case result.Success:
		fmt.Printf("Events found: %d\n", result.EventsFound)
	default:
		return fmt.Errorf("scrape failed: %s", result.Error)
	}
	return nil
}

// buildOrchestrator wires the pipeline from configuration. The archive and
// detail-page enrichment stages are optional and wired only when enabled.
func buildOrchestrator(ctx context.Context, cfg config.Config, db *store.DB, engine *browser.Engine) (*pipeline.Orchestrator, error) {
	llmClient, err := llm.New(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		Timeout:     cfg.LLM.Timeout,
	}, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	extractor := extract.New(llmClient, extract.Config{})

	var enricher pipeline.Enricher
	if cfg.Enrich.Enabled {
		enricher = enrich.New(enrich.Config{
			Timeout:   cfg.Enrich.Timeout,
			UserAgent: cfg.Enrich.UserAgent,
		})
	}

	adapter := instagram.New(instagram.Config{
		Timeout:   cfg.Instagram.Timeout,
		UserAgent: cfg.Instagram.UserAgent,
		DocID:     cfg.Instagram.DocID,
	})

	var (
		archiver     pipeline.Archiver
		logoArchiver logo.Archiver
	)
	if cfg.Archive.Enabled {
		client, err := archive.New(archive.Config{
			Endpoint:        cfg.Archive.Endpoint,
			Bucket:          cfg.Archive.Bucket,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			UseSSL:          cfg.Archive.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive client: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure archive bucket: %w", err)
		}
		archiver = client
		logoArchiver = client
	}

	detector := logo.New(engine, llmClient, logoArchiver)

	return pipeline.New(db, engine, extractor, enricher, adapter, detector, archiver, pipeline.Config{
		LockStaleAfter: cfg.Scrape.LockStaleAfter,
		BatchDelay:     cfg.Scrape.BatchDelay,
	}), nil
}
