package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"imgsx/engines"
)

const version = "1.0.0"

const defaultHistoryLimit = 20

var (
	config     *Config
	searchOpts SearchOptions
)

func main() {
	var err error
	config, err = loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "imgsx [image-url]",
		Short: "Reverse image search from the command line",
		Long: "imgsx sends an image URL to several reverse image search engines at once\n" +
			"and prints the best match each of them found.",
		Version:      version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runSearch,
	}

	available := fmt.Sprintf("comma-separated engines (%s, All)", engines.TagNames())
	rootCmd.Flags().StringSliceVar(&searchOpts.SearchEngines, "search-engines", nil, available)
	rootCmd.Flags().StringSliceVar(&searchOpts.PriorityEngines, "priority-engines", nil, "engines whose results are shown first")
	rootCmd.Flags().StringVar(&searchOpts.SauceNaoKey, "saucenao-auth", "", "SauceNao API key")
	rootCmd.Flags().Float64Var(&config.Timeout, "timeout", config.Timeout, "per-engine timeout in seconds")
	rootCmd.Flags().BoolVar(&config.EnrichCaptions, "enrich-captions", config.EnrichCaptions, "fill missing captions from the matched page title")
	rootCmd.Flags().BoolVar(&searchOpts.JSON, "json", false, "output search results in JSON format")
	rootCmd.Flags().BoolVarP(&config.Expand, "expand", "x", config.Expand, "show extended results")
	rootCmd.Flags().BoolVar(&config.NoColor, "nocolor", config.NoColor, "disable colored output")
	rootCmd.Flags().BoolVar(&config.Debug, "debug", config.Debug, "show debug output")
	rootCmd.Flags().BoolVar(&searchOpts.UpdateConfig, "update-cfg", false, "save the effective settings to the config file")
	rootCmd.Flags().IntVar(&searchOpts.History, "history", 0, "show the last N searched images")
	rootCmd.Flags().Lookup("history").NoOptDefVal = fmt.Sprint(defaultHistoryLimit)
	rootCmd.Flags().BoolVar(&searchOpts.ClearHistory, "clear-history", false, "delete the search history")

	return rootCmd
}

func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runSearch(cmd *cobra.Command, args []string) error {
	setupLogging(config.Debug)
	out := cmd.OutOrStdout()

	if searchOpts.ClearHistory {
		return clearHistory(out)
	}
	if searchOpts.History > 0 {
		return printHistory(out, searchOpts.History)
	}

	if err := applyFlags(cmd); err != nil {
		return err
	}

	if searchOpts.UpdateConfig {
		path, err := saveConfig(config)
		if err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved config file: %s\n", path)
	}

	if len(args) == 0 {
		if searchOpts.UpdateConfig {
			return nil
		}
		return cmd.Help()
	}

	ref := strings.TrimSpace(args[0])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcomes, err := performSearch(ctx, ref, config)
	if err != nil {
		return err
	}

	if err := appendHistory(ref, outcomes); err != nil {
		slog.Warn("failed to write history", "error", err)
	}

	if searchOpts.JSON {
		return printJSONResults(out, ref, outcomes)
	}

	printResults(out, ref, outcomes, config.Expand, config.NoColor)
	return nil
}

// applyFlags copies the flags that override list and secret settings into
// the config.
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if flags.Changed("search-engines") {
		config.SearchEngines = searchOpts.SearchEngines
		if !flags.Changed("priority-engines") {
			kept, err := filterPriority(config.PriorityEngines, config.SearchEngines)
			if err != nil {
				return err
			}
			config.PriorityEngines = kept
		}
	}
	if flags.Changed("priority-engines") {
		config.PriorityEngines = searchOpts.PriorityEngines
	}
	if flags.Changed("saucenao-auth") {
		config.SauceNaoKey = searchOpts.SauceNaoKey
	}

	return nil
}
