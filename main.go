package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"linkedin-easyapply/bot"
	"linkedin-easyapply/config"
	"linkedin-easyapply/logger"
	"linkedin-easyapply/storage"
)

var (
	configFile string
	verbose    bool
	headless   bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "linkedin-easyapply",
		Short: "Autonomous Easy Apply job application bot",
		Long:  `A CLI tool that searches LinkedIn job postings and submits Easy Apply applications using resume data and generated answers.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./config/config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run browser in headless mode")

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func createRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the application loop",
		Long:  `Open the browser, wait for manual login, then search and apply until the run limit or search space is exhausted.`,
		RunE:  runBot,
	}
}

func createStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show attempt log statistics",
		Long:  `Print outcome totals and the most recent application attempts from the local attempt log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent attempts to show")
	return cmd
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	b := bot.New(cfg, log)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First Ctrl+C requests a graceful stop at the next loop boundary; the
	// second cancels outright
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("Interrupt received, finishing current posting before stopping")
		b.Stop()
		<-sigCh
		log.Warn("Second interrupt, cancelling immediately")
		cancel()
	}()

	if err := b.Initialize(ctx); err != nil {
		return err
	}

	summary, err := b.Start(ctx)
	if summary != nil {
		fmt.Printf("\nRun finished: %d submitted, %d skipped, %d aborted (%d postings seen)\n",
			summary.Submitted, summary.Skipped, summary.Aborted, summary.Seen)
	}
	return err
}

func runStatus(limit int) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	store, err := storage.NewDatabase(cfg.Storage.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Attempts: %d total, %d submitted, %d skipped, %d aborted\n",
		stats.Total, stats.Submitted, stats.Skipped, stats.Aborted)

	records, err := store.RecentAttempts(limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	fmt.Println("\nRecent attempts:")
	for _, rec := range records {
		line := fmt.Sprintf("  %s  %-9s  %s at %s", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Outcome, rec.Title, rec.Company)
		if rec.Reason != "" {
			line += fmt.Sprintf(" (%s)", rec.Reason)
		}
		fmt.Println(line)
	}
	return nil
}

func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if headless {
		cfg.Browser.Headless = true
	}

	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}
