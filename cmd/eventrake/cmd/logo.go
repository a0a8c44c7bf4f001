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
	"github.com/eventrake/eventrake/internal/llm"
	"github.com/eventrake/eventrake/internal/logo"
	"github.com/eventrake/eventrake/internal/store"
)

var logoSourceID string

var logoCmd = &cobra.Command{
	Use:   "logo",
	Short: "Detect a source's logo",
	Long: `Screenshot the source's page, ask the vision model to locate the site
logo, and store the resulting URL on the source.

Example:
  eventrake logo --source 4f9d4c1e-8a2b-4c3d-9e5f-6a7b8c9d0e1f`,
	RunE: runLogo,
}

func init() {
	rootCmd.AddCommand(logoCmd)

	logoCmd.Flags().StringVar(&logoSourceID, "source", "", "source id (required)")
	logoCmd.MarkFlagRequired("source")
}

func runLogo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sourceID, err := uuid.Parse(logoSourceID)
	if err != nil {
		return fmt.Errorf("invalid source id %q: %w", logoSourceID, err)
	}

	cfg := GetConfig()
	db, err := store.Open(store.Config{DSN: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	source, err := db.GetSourceByID(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}

	llmClient, err := llm.New(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		Timeout:     cfg.LLM.Timeout,
	}, db)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	engine := browser.NewEngine(browser.Config{
		ExecPath:     cfg.Browser.ExecPath,
		NavTimeout:   cfg.Browser.NavTimeout,
		ScrollBudget: cfg.Browser.ScrollBudget,
		SettleDelay:  cfg.Browser.SettleDelay,
	})
	defer engine.Shutdown()

	var archiver logo.Archiver
	if cfg.Archive.Enabled {
		client, err := archive.New(archive.Config{
			Endpoint:        cfg.Archive.Endpoint,
			Bucket:          cfg.Archive.Bucket,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			UseSSL:          cfg.Archive.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to create archive client: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure archive bucket: %w", err)
		}
		archiver = client
	}

	detector := logo.New(engine, llmClient, archiver)
	logoURL, err := detector.DetectLogo(ctx, source.URL, &source.ID)
	if err != nil {
		return fmt.Errorf("logo detection failed: %w", err)
	}
	if logoURL == "" {
		fmt.Println("No logo found")
		return nil
	}

	if err := db.UpdateSource(ctx, sourceID, map[string]any{"logo_url": logoURL}); err != nil {
		return fmt.Errorf("failed to store logo: %w", err)
	}

	fmt.Printf("Logo: %s\n", logoURL)
	return nil
}
