package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	blmetrics "github.com/dantte-lp/gobroadlink/internal/metrics"
	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

// shutdownTimeout is the maximum time to wait for the metrics server to
// drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func monitorCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Poll the target device and serve Prometheus metrics",
		Long: "Authenticates the target device, polls its sensors on an " +
			"interval, and exposes protocol metrics over HTTP until " +
			"interrupted (Ctrl+C).",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMonitor(interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second,
		"sensor polling interval")

	return cmd
}

// runMonitor wires the device handle to a Prometheus collector and runs
// the poll loop and metrics server under an errgroup with a
// signal-aware context.
func runMonitor(interval time.Duration) error {
	reg := prometheus.NewRegistry()
	collector := blmetrics.NewCollector(reg)

	host, mac, devType, name, err := resolveTarget()
	if err != nil {
		return err
	}
	dev, err := broadlink.NewDevice(broadlink.DeviceConfig{
		Host:       hostPort(host),
		MAC:        mac,
		DeviceType: devType,
		Name:       name,
	},
		broadlink.WithDeviceLogger(logger),
		broadlink.WithDeviceMetrics(collector),
		broadlink.WithRequestTimeout(cfg.Network.Timeout),
		broadlink.WithRequestRetries(cfg.Network.Retries),
	)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if err := dev.Auth(ctx); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	srv := newMetricsServer(reg)
	lc := net.ListenConfig{}
	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(gCtx, &lc, srv)
	})

	g.Go(func() error {
		return pollSensors(gCtx, dev, interval)
	})

	// Shutdown goroutine: waits for context cancellation.
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

// pollSensors reads the device's sensors on the interval, logging each
// reading. Families without sensors degrade to the keepalive ping so
// the transport counters still move.
func pollSensors(ctx context.Context, dev *broadlink.Device, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pollOnce(ctx, dev)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pollOnce performs one sensor read or keepalive. Errors are logged,
// not fatal: a missed poll shows up in the timeout counters.
func pollOnce(ctx context.Context, dev *broadlink.Device) {
	var err error
	switch dev.Family() {
	case broadlink.FamilyRM, broadlink.FamilyRM4:
		var reading *broadlink.SensorReading
		if reading, err = dev.CheckSensors(ctx); err == nil {
			logger.Info("sensor reading",
				slog.String("host", dev.Host().String()),
				slog.Float64("temperature", reading.Temperature),
				slog.Float64("humidity", reading.Humidity),
			)
		}
	case broadlink.FamilyA1:
		var reading *broadlink.A1Reading
		if reading, err = dev.CheckSensorsA1(ctx); err == nil {
			logger.Info("sensor reading",
				slog.String("host", dev.Host().String()),
				slog.Float64("temperature", reading.Temperature),
				slog.Float64("humidity", reading.Humidity),
				slog.String("light", reading.LightName()),
				slog.String("air_quality", reading.AirQualityName()),
				slog.String("noise", reading.NoiseName()),
			)
		}
	default:
		err = dev.Ping()
	}

	if err != nil && ctx.Err() == nil {
		logger.Warn("poll failed",
			slog.String("host", dev.Host().String()),
			slog.String("error", err.Error()),
		)
	}
}

// newMetricsServer builds the h2c-capable metrics HTTP server.
func newMetricsServer(reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// listenAndServe serves srv on its address until shutdown.
func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server) error {
	ln, err := lc.Listen(ctx, "tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", srv.Addr, err)
	}
	return nil
}
