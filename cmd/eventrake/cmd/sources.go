package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eventrake/eventrake/internal/store"
	"github.com/eventrake/eventrake/pkg/models"
)

var (
	sourceURL      string
	sourceInterval int
	sourceFilter   string
	sourceDisabled bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage configured sources",
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a source",
	Long: `Add a listing page or Instagram post URL as a scrape source.

Examples:
  eventrake sources add --url https://venue.example/events
  eventrake sources add --url https://www.instagram.com/p/C9abcDEF123/ --interval 168
  eventrake sources add --url https://venue.example/events --filter "only concerts, skip workshops"`,
	RunE: runSourcesAdd,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sources",
	RunE:  runSourcesList,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a source and its events",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRemove,
}

var sourcesEventsCmd = &cobra.Command{
	Use:   "events <id>",
	Short: "List the events extracted from a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesEvents,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesAddCmd, sourcesListCmd, sourcesRemoveCmd, sourcesEventsCmd)

	sourcesAddCmd.Flags().StringVar(&sourceURL, "url", "", "page or Instagram post URL (required)")
	sourcesAddCmd.Flags().IntVar(&sourceInterval, "interval", 24, "scrape interval in hours")
	sourcesAddCmd.Flags().StringVar(&sourceFilter, "filter", "", "natural-language filter passed to the extraction prompt")
	sourcesAddCmd.Flags().BoolVar(&sourceDisabled, "disabled", false, "create the source disabled")
	sourcesAddCmd.MarkFlagRequired("url")
}

func openStore() (*store.DB, context.Context, context.CancelFunc, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg := GetConfig()
	db, err := store.Open(store.Config{DSN: cfg.Database.DSN})
	if err != nil {
		stop()
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, ctx, stop, nil
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	db, ctx, stop, err := openStore()
	if err != nil {
		return err
	}
	defer stop()

	source := &models.Source{
		URL:                 sourceURL,
		Enabled:             !sourceDisabled,
		ScrapeIntervalHours: sourceInterval,
		FilterInstructions:  sourceFilter,
	}
	if err := db.CreateSource(ctx, source); err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}

	fmt.Printf("Created source %s\n", source.ID)
	return nil
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	db, ctx, stop, err := openStore()
	if err != nil {
		return err
	}
	defer stop()

	sources, err := db.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		fmt.Println("No sources configured")
		return nil
	}

	for _, s := range sources {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		last := "never"
		if s.LastScrapedAt != nil {
			last = s.LastScrapedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-8s  every %dh  last %s  %s\n", s.ID, state, s.ScrapeIntervalHours, last, s.URL)
	}
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid source id %q: %w", args[0], err)
	}

	db, ctx, stop, err := openStore()
	if err != nil {
		return err
	}
	defer stop()

	if err := db.DeleteSource(ctx, id); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	fmt.Printf("Removed source %s\n", id)
	return nil
}

func runSourcesEvents(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid source id %q: %w", args[0], err)
	}

	db, ctx, stop, err := openStore()
	if err != nil {
		return err
	}
	defer stop()

	events, err := db.EventsBySource(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No events")
		return nil
	}

	for _, e := range events {
		fmt.Printf("%s  %s  %s\n", e.StartDate.Format("2006-01-02 15:04"), e.Title, e.Location)
	}
	return nil
}
