package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/model"
	"github.com/atikulmunna/sharetail/internal/output"
	"github.com/atikulmunna/sharetail/internal/poller"
)

var (
	outputFmt string
	tailLines int
	follow    bool
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the current log file and follow new lines",
	Long: `Print the last lines of the current log file on the share and keep
streaming new lines to the terminal. Supports colorized output and JSON mode.

Examples:
  sharetail tail
  sharetail tail -n 50 --follow=false
  sharetail tail --output json | jq .data.newLines[]`,
	Args: cobra.NoArgs,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json")
	tailCmd.Flags().IntVarP(&tailLines, "lines", "n", 0, "lines to show first (default from config, lines.initial)")
	tailCmd.Flags().BoolVarP(&follow, "follow", "f", true, "keep printing new lines")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	renderer, err := output.New(outputFmt, os.Stdout)
	if err != nil {
		return err
	}

	a, err := newApp(os.Stderr, false)
	if err != nil {
		return err
	}
	defer a.log.Close()

	if tailLines > 0 {
		a.readOpts.InitialLines = tailLines
	}

	// --- Set up context with graceful shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := poller.SinkFunc(func(ev model.UpdateEvent) {
		if err := renderer.Render(ev.Data); err != nil {
			a.log.Warn("render error", zap.Error(err))
		}
	})
	coord := poller.New(a.resolver(), sink, poller.Options{
		Interval:      a.cfg.Poll.Interval,
		ErrorInterval: a.cfg.Poll.ErrorInterval,
	}, a.log.Logger)

	if !follow {
		r, err := coord.Reader(ctx)
		if err != nil {
			return err
		}
		res := r.ReadLogs(ctx, 0, a.readOpts.InitialLines)
		if err := renderer.Render(res); err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("read failed: %s", res.Error)
		}
		return nil
	}

	coord.Run(ctx)
	return nil
}
