package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"terabox-extractor/internal/app"
	"terabox-extractor/internal/batch"
	"terabox-extractor/internal/config"
	"terabox-extractor/internal/export"
	"terabox-extractor/internal/registry"
	"terabox-extractor/pkg/models"
)

var (
	configPath  string
	outputPath  string
	jsonOutput  bool
	concurrency int
	verbose     bool
	overrides   map[string]string
)

var rootCmd = &cobra.Command{
	Use:   "terabox-extractor",
	Short: "Resolve TeraBox share links into direct video URLs",
	Long: `TeraBox Extractor turns public TeraBox share links into direct,
playable media URLs.

Features:
- Four independent resolution methods tried in order
- Support for TeraBox mirror domains
- Batch resolution with csv/xlsx/json/txt reports
- HTTP API and chat bot front-ends
- Proxy support`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [url...]",
	Short: "Resolve one or more share links",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closer, err := loadApp(!verbose)
		if err != nil {
			return err
		}
		defer closer()

		ctx, stop := signalContext()
		defer stop()

		failed := 0
		results := make([]*models.VideoResult, 0, len(args))
		for _, link := range args {
			result := a.Resolver.Resolve(ctx, link)
			results = append(results, result)
			if !result.Playable() {
				failed++
			}
			if !jsonOutput {
				printResult(cmd.OutOrStdout(), link, result)
			}
		}

		if jsonOutput {
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d links failed", failed, len(args))
		}
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [urls-file]",
	Short: "Resolve every link listed in a file (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		urls, err := readURLs(args[0])
		if err != nil {
			return fmt.Errorf("error reading URLs file: %w", err)
		}

		if len(urls) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No URLs found in file")
			return nil
		}

		var exporter *export.DataExporter
		if outputPath != "" {
			format, err := export.FormatFromPath(outputPath)
			if err != nil {
				return err
			}
			exporter = export.NewDataExporter(export.ExportConfig{Format: format, FilePath: outputPath})
		}

		a, closer, err := loadApp(!verbose)
		if err != nil {
			return err
		}
		defer closer()

		if concurrency > 0 {
			a.Config.Batch.MaxConcurrent = concurrency
		}

		ctx, stop := signalContext()
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Found %d URLs to resolve\n", len(urls))

		bar := pb.StartNew(len(urls))
		job := a.BatchManager().Run(ctx, urls, func(done, total int) {
			bar.SetCurrent(int64(done))
		})
		bar.Finish()

		if jsonOutput {
			if err := writeJSON(cmd.OutOrStdout(), job); err != nil {
				return err
			}
		} else {
			for i, result := range job.Results {
				printResult(cmd.OutOrStdout(), urls[i], result)
			}
			printSummary(cmd.OutOrStdout(), job)
		}

		if exporter != nil {
			if err := exporter.ExportResults(job.Results); err != nil {
				return fmt.Errorf("error exporting results: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outputPath)
		}

		if job.Status == batch.JobStatusFailed {
			return fmt.Errorf("all %d links failed", len(urls))
		}
		return nil
	},
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List known TeraBox hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		domains := registry.Domains()
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), domains)
		}

		fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(fmt.Sprintf("Known hosts (%d)", len(domains))))
		for _, domain := range domains {
			fmt.Fprintf(cmd.OutOrStdout(), "  • %s\n", domain)
		}
		return nil
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API (and the bot when a token is configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closer, err := loadApp(false)
		if err != nil {
			return err
		}
		defer closer()

		ctx, stop := signalContext()
		defer stop()

		if err := a.RunServer(ctx); err != nil {
			return fmt.Errorf("error running server: %w", err)
		}
		return nil
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the chat bot (webhook mode when a webhook URL is configured, else polling)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closer, err := loadApp(false)
		if err != nil {
			return err
		}
		defer closer()

		ctx, stop := signalContext()
		defer stop()

		if err := a.RunBot(ctx); err != nil {
			return fmt.Errorf("error running bot: %w", err)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configManager := config.NewManager()
		if _, err := configManager.Load(configPath); err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		defer configManager.Close()

		if err := applyOverrides(configManager); err != nil {
			return err
		}

		dump, err := configManager.Dump()
		if err != nil {
			return err
		}

		source := configManager.ConfigFile()
		if source == "" {
			source = "defaults and environment"
		}
		fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("Current Configuration"))
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("# source: "+source))
		fmt.Fprint(cmd.OutOrStdout(), dump)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringToStringVar(&overrides, "set", nil, "Override configuration keys, e.g. --set http.timeout=10")

	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write a report (.csv, .xlsx, .json or .txt)")
	batchCmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "Links resolved in parallel")

	// Add commands
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(domainsCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(configCmd)

	// Config subcommands
	configCmd.AddCommand(showConfigCmd)
}

// loadApp loads configuration and builds the engine. quiet raises the log
// level to warn so command output stays readable.
func loadApp(quiet bool) (*app.App, func(), error) {
	configManager := config.NewManager()
	if _, err := configManager.Load(configPath); err != nil {
		return nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if err := applyOverrides(configManager); err != nil {
		configManager.Close()
		return nil, nil, err
	}

	if quiet {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	} else if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	a, err := app.New(configManager.GetConfig(), configManager.GetLogger())
	if err != nil {
		configManager.Close()
		return nil, nil, err
	}
	closer := func() {
		a.Close()
		configManager.Close()
	}
	return a, closer, nil
}

// applyOverrides layers --set values over file and environment configuration
func applyOverrides(configManager *config.Manager) error {
	if len(overrides) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(overrides))
	for key, value := range overrides {
		updates[key] = value
	}
	if err := configManager.UpdateConfig(updates); err != nil {
		return fmt.Errorf("error applying overrides: %w", err)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func readURLs(path string) ([]string, error) {
	if path == "-" {
		return batch.ReadURLs(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return batch.ReadURLs(file)
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
