package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/loomkit/loom"
	"github.com/loomkit/loom/cmd/loom/internal/config"
	"github.com/loomkit/loom/pkg/devtools"
	"github.com/loomkit/loom/pkg/instrument"
)

const defaultMetricsAddr = ":9991"

func demoCmd() *cobra.Command {
	var addr string
	var metricsAddr string
	var configDir string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a live reactive graph with the inspector attached",
		Long: `Run a small reactive graph that ticks twice a second, with the
websocket inspector and a Prometheus /metrics endpoint attached.

Connect any websocket client to /ws on the inspector address to watch
effect runs and triggers stream by. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(addr, metricsAddr, configDir)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "inspector listen address (default "+devtools.DefaultAddr+")")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "prometheus listen address (default "+defaultMetricsAddr+")")
	cmd.Flags().StringVar(&configDir, "config-dir", ".", "directory containing loom.yaml")

	return cmd
}

func runDemo(addr, metricsAddr, configDir string) error {
	cfg, err := config.LoadOptional(configDir)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Devtools.Addr
	}
	if addr == "" {
		addr = devtools.DefaultAddr
	}
	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}
	if metricsAddr == "" {
		metricsAddr = defaultMetricsAddr
	}

	var metricOpts []instrument.Option
	if cfg.Metrics.Namespace != "" {
		metricOpts = append(metricOpts, instrument.WithNamespace(cfg.Metrics.Namespace))
	}
	metrics := instrument.NewMetrics(metricOpts...)
	detach := loom.Events.Register(metrics)
	defer detach()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	inspector := devtools.New(devtools.WithAddr(addr))
	go func() {
		if err := inspector.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	go driveDemo(ctx)

	printBanner()
	info("inspector:  ws://%s/ws", displayAddr(addr))
	info("stats:      http://%s/stats", displayAddr(addr))
	info("prometheus: http://%s/metrics", displayAddr(metricsAddr))
	info("press Ctrl-C to stop")

	select {
	case <-ctx.Done():
		info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// displayAddr makes a bare ":port" address printable.
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

// driveDemo ticks a small graph so the inspector and metrics have
// something to show: a ref, a computed over it, a record, and an effect
// that logs every tenth beat.
func driveDemo(ctx context.Context) {
	phases := []string{"warmup", "steady", "burst", "cooldown"}

	state := loom.Reactive(map[string]any{
		"beats": 0,
		"phase": phases[0],
	}).(*loom.Map)
	beats := loom.NewRef(0)
	pulse := loom.NewComputed(func() any {
		return beats.Get().(int) % 60
	})

	e := loom.NewEffect(func() any {
		b := beats.Get().(int)
		if b > 0 && b%10 == 0 {
			slog.Info("demo heartbeat",
				"beats", b,
				"pulse", pulse.Get(),
				"phase", state.Get("phase"),
			)
		}
		return nil
	})
	defer e.Stop()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i++
			loom.Batch(func() {
				beats.Set(i)
				state.Set("beats", i)
				if i%5 == 0 {
					state.Set("phase", phases[(i/5)%len(phases)])
				}
			})
		}
	}
}
