package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/aggregator"
	"github.com/atikulmunna/sharetail/internal/hub"
	"github.com/atikulmunna/sharetail/internal/instance"
	"github.com/atikulmunna/sharetail/internal/poller"
	"github.com/atikulmunna/sharetail/internal/server"
	"github.com/atikulmunna/sharetail/internal/tailer"
	"github.com/atikulmunna/sharetail/internal/watcher"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live log viewer over HTTP",
	Long: `Start the web viewer. The share is discovered on first use, the current
log file is polled in the background and new lines are pushed to every
connected browser over a websocket.

Examples:
  sharetail serve
  sharetail serve --port 9000
  sharetail serve --path /mnt/act_logs/ACT/Logs/ACTSentinel`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default from config, 8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr, true)
	if err != nil {
		return err
	}
	defer a.log.Close()
	log := a.log.Logger

	port := a.cfg.HTTP.Port
	if servePort > 0 {
		port = servePort
	}

	stateDir := instance.StateDir()
	lock, err := instance.Lock(stateDir, port)
	if err != nil {
		return err
	}
	defer instance.Release(stateDir, port, lock)

	// --- Set up context with graceful shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Delivery: hub fans out, aggregator counts ---
	h := hub.New(log)
	statsSub := h.Subscribe()
	agg := aggregator.New(statsSub.C, h.Dropped, func() int { return h.Clients() - 1 })

	// --- Optional file notifications shorten the poll sleep ---
	popts := poller.Options{
		Interval:      a.cfg.Poll.Interval,
		ErrorInterval: a.cfg.Poll.ErrorInterval,
	}
	var w *watcher.Watcher
	if a.cfg.Poll.Watch {
		if w, err = watcher.New(a.naming, log); err != nil {
			log.Warn("file notifications unavailable", zap.Error(err))
			w = nil
		} else {
			popts.Wake = w.Wake()
			popts.OnReader = func(r *tailer.Reader) { _ = w.Add(r.State().Directory) }
		}
	}

	coord := poller.New(a.resolver(), h, popts, log)

	addr := net.JoinHostPort(a.cfg.HTTP.Bind, strconv.Itoa(port))
	srv := server.New(h, agg, coord, a.detector, server.Options{
		Addr:         addr,
		MaxLines:     a.cfg.Lines.OnDemand,
		ProbeTimeout: a.cfg.Timeouts.Probe,
	}, log)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := instance.WriteAddr(stateDir, port, ln.Addr().String()); err != nil {
		log.Warn("cannot record listener address", zap.Error(err))
	}
	fmt.Fprintf(os.Stderr, "sharetail viewer on http://%s\n", ln.Addr())

	// --- Start pipeline ---
	var wg sync.WaitGroup
	start := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	start(h.Start)
	start(agg.Start)
	start(coord.Run)
	if w != nil {
		start(w.Start)
	}

	err = srv.Serve(ctx, ln)
	stop()
	wg.Wait()
	log.Info("sharetail stopped")
	return err
}
