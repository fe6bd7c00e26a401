// Command pricecheck drives a pricewatch server from the command line:
// it uploads a product workbook, follows the resume cursor until every
// product is priced, and writes the comparison workbook.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/use-agent/pricewatch/apiclient"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/spreadsheet"
)

var (
	apiURL  string
	timeout time.Duration
	debug   bool
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pricecheck",
		Short:         "Compare product prices against competitor sites",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", apiclient.BaseURLFromEnv(os.Getenv), "pricewatch API base URL (env PRICEWATCH_API_URL)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "timeout for one API call")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(runCmd(), extractCmd(), competitorsCmd())
	return root
}

func runCmd() *cobra.Command {
	var (
		output      string
		competitors []string
		local       bool
	)
	cmd := &cobra.Command{
		Use:   "run <products.xlsx>",
		Short: "Price every product in a workbook and write the comparison report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + "-prices.xlsx"
			}

			client := apiclient.New(apiURL, timeout)
			start := time.Now()
			reports, err := client.RunWorkbook(cmd.Context(), filepath.Base(input), data, func(done, total int) {
				slog.Info("progress", "processed", done, "total", total)
			})
			if err != nil {
				return err
			}

			ids := make([]models.CompetitorID, 0, len(competitors))
			for _, c := range competitors {
				ids = append(ids, models.CompetitorID(c))
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if local {
				err = spreadsheet.WriteReport(f, reports, ids)
			} else {
				err = client.Export(cmd.Context(), reports, ids, f)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			slog.Info("report written",
				"file", output,
				"products", len(reports),
				"elapsed", time.Since(start).Round(time.Second),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output workbook (default <input>-prices.xlsx)")
	cmd.Flags().StringSliceVar(&competitors, "competitors", nil, "competitor columns to export, in order (default all)")
	cmd.Flags().BoolVar(&local, "local", false, "render the report locally instead of via the export endpoint")
	return cmd
}

func extractCmd() *cobra.Command {
	var competitor string
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Look up one competitor product page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := apiclient.New(apiURL, timeout).Extract(cmd.Context(), args[0], competitor)
			if err != nil {
				return err
			}
			if !res.Supported {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: unsupported competitor\n", res.Competitor)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%dms)\n", res.Competitor, res.Result, res.Timing.TotalMs)
			return nil
		},
	}
	cmd.Flags().StringVar(&competitor, "competitor", "", "competitor id (default: derived from the URL host)")
	return cmd
}

func competitorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "competitors",
		Short: "List supported competitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := apiclient.New(apiURL, timeout).Competitors(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
