package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"logbook-hq/relay/pkg/classify"
	"logbook-hq/relay/pkg/config"
	"logbook-hq/relay/pkg/filter"
	"logbook-hq/relay/pkg/proxy"
	"logbook-hq/relay/pkg/proxy/middleware"
	"logbook-hq/relay/pkg/records"
	"logbook-hq/relay/pkg/server"
	"logbook-hq/relay/pkg/telemetry/health"
	"logbook-hq/relay/pkg/telemetry/metrics"
	"logbook-hq/relay/pkg/telemetry/tracing"
)

// relay holds the running components of one `relay run`.
type relay struct {
	cfg     *config.Config
	path    string
	logger  *slog.Logger
	started time.Time

	tracer    *tracing.Tracer
	metrics   *metrics.Collector
	filter    *filter.Filter
	decoder   *classify.RuleDecoder
	store     records.Store
	pool      *classify.Pool
	handler   *proxy.Handler
	scheduler *records.Scheduler

	proxyServer *server.Server
	adminServer *server.Server // nil when the admin listener is disabled
}

// newRelay builds every component from cfg and binds both listeners.
// path is the configuration file watched for live reload; it may be empty.
func newRelay(cfg *config.Config, path string, logger *slog.Logger) (*relay, error) {
	r := &relay{cfg: cfg, path: path, logger: logger, started: time.Now()}
	built := false
	defer func() {
		if !built {
			_ = r.close()
		}
	}()

	var err error
	r.tracer, err = tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	r.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	r.filter = filter.New(captureRules(cfg.Capture))
	r.decoder = classify.NewRuleDecoder(cfg.Classify.StripPrefix, decodeRules(cfg.Classify.Rules))

	r.store, err = records.Open(cfg.Records)
	if err != nil {
		return nil, err
	}
	pruner := records.NewPruner(r.store, cfg.Records.Retention)
	if pruner.Enabled() {
		r.scheduler = records.NewScheduler(pruner, cfg.Records.Retention.PruneSchedule)
	}

	classifier := classify.NewClassifier(r.decoder, r.store, r.filter, r.metrics)
	r.pool = classify.NewPool(classifier, cfg.Classify.Workers)

	transport, err := proxy.NewTransport(cfg.Upstream)
	if err != nil {
		return nil, err
	}
	var target *url.URL
	if cfg.Upstream.Target != "" {
		if target, err = url.Parse(cfg.Upstream.Target); err != nil {
			return nil, fmt.Errorf("invalid upstream target: %w", err)
		}
	}

	r.handler, err = proxy.NewHandler(proxy.Options{
		Guard:           proxy.NewGuard(cfg.Proxy.RestrictToLoopback, nil),
		Filter:          r.filter,
		Dispatcher:      r.pool,
		Transport:       transport,
		Target:          target,
		MaxCaptureBytes: cfg.Capture.MaxBufferBytes,
		Metrics:         r.metrics,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	proxyHandler := middleware.Chain(r.handler,
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
	)
	r.proxyServer = server.New(server.Config{
		Name:            "proxy",
		ListenAddress:   cfg.Proxy.ListenAddress,
		ReadTimeout:     cfg.Proxy.ReadTimeout,
		WriteTimeout:    cfg.Proxy.WriteTimeout,
		IdleTimeout:     cfg.Proxy.IdleTimeout,
		ShutdownTimeout: cfg.Proxy.ShutdownTimeout,
		MaxHeaderBytes:  cfg.Proxy.MaxHeaderBytes,
	}, proxyHandler, logger)
	if err := r.proxyServer.Listen(); err != nil {
		return nil, err
	}

	if cfg.Telemetry.Admin.ListenAddress != "" {
		r.adminServer = server.New(server.Config{
			Name:            "admin",
			ListenAddress:   cfg.Telemetry.Admin.ListenAddress,
			ReadTimeout:     cfg.Proxy.ReadTimeout,
			IdleTimeout:     cfg.Proxy.IdleTimeout,
			ShutdownTimeout: cfg.Proxy.ShutdownTimeout,
		}, middleware.Chain(r.adminHandler(), middleware.RecoveryMiddleware(logger)), logger)
		if err := r.adminServer.Listen(); err != nil {
			return nil, err
		}
	}

	built = true
	return r, nil
}

func (r *relay) adminHandler() http.Handler {
	checker := health.New(health.DefaultCheckTimeout)
	checker.RegisterCheck("records", func(ctx context.Context) error {
		_, err := r.store.Count(ctx)
		return err
	})

	opts := server.AdminOptions{
		Checker: checker,
		Build:   server.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
		Status:  r.status,
	}
	if r.cfg.Telemetry.Metrics.Enabled {
		opts.Metrics = r.metrics.Handler()
		opts.MetricsPath = r.cfg.Telemetry.Metrics.Path
	}
	return server.NewAdminHandler(opts)
}

func (r *relay) status(ctx context.Context) server.Status {
	count, err := r.store.Count(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to count records", "error", err)
	}
	return server.Status{
		ServerDetected: r.filter.IsServerDetected(),
		ServerName:     r.filter.ServerName(),
		Workers:        r.pool.Workers(),
		Backlog:        r.pool.Backlog(),
		Records:        count,
		RecordsBackend: r.cfg.Records.Backend,
		StartedAt:      r.started,
		Uptime:         time.Since(r.started).Round(time.Second).String(),
	}
}

// run serves until ctx is cancelled or a listener fails, then drains the
// classification backlog and releases every component.
func (r *relay) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.proxyServer.Start(gctx) })
	if r.adminServer != nil {
		g.Go(func() error { return r.adminServer.Start(gctx) })
	}

	if r.scheduler != nil {
		if err := r.scheduler.Start(gctx); err != nil {
			r.logger.Warn("failed to start retention scheduler", "error", err)
		}
	}

	if r.cfg.Watch && r.path != "" {
		watcher, err := config.NewWatcher(r.path, 0, r.logger)
		if err != nil {
			r.logger.Warn("config watching disabled", "error", err)
		} else {
			g.Go(func() error { return watcher.Watch(gctx, r.reload) })
		}
	}

	r.logger.Info("relay started",
		"proxy_address", r.proxyServer.Addr().String(),
		"admin_enabled", r.adminServer != nil,
		"records_backend", r.cfg.Records.Backend,
		"workers", r.pool.Workers(),
	)

	err := g.Wait()
	if cerr := r.close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

// reload re-reads the configuration file and applies the settings that
// support live reload. Everything else keeps its startup value.
func (r *relay) reload() error {
	cfg, err := config.ReloadConfig(r.path)
	if err != nil {
		return err
	}
	r.apply(cfg)
	return nil
}

func (r *relay) apply(cfg *config.Config) {
	r.filter.Update(captureRules(cfg.Capture))
	r.decoder.Update(cfg.Classify.StripPrefix, decodeRules(cfg.Classify.Rules))
	r.handler.SetMaxCaptureBytes(cfg.Capture.MaxBufferBytes)
	r.logger.Info("capture and classify rules applied",
		"hosts", len(cfg.Capture.Hosts),
		"content_types", len(cfg.Capture.ContentTypes),
		"decode_rules", len(cfg.Classify.Rules),
	)
}

// close releases components in dependency order. It is safe on a
// partially built relay.
func (r *relay) close() error {
	timeout := r.cfg.Proxy.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
	if r.pool != nil {
		if err := r.pool.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("classification backlog not drained: %w", err))
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.tracer != nil {
		if err := r.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func captureRules(cfg config.CaptureConfig) filter.Rules {
	return filter.Rules{
		Hosts:                cfg.Hosts,
		ContentTypes:         cfg.ContentTypes,
		LockToDetectedServer: cfg.LockToDetectedServer,
	}
}

func decodeRules(rules []config.DecodeRule) []classify.Rule {
	out := make([]classify.Rule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, classify.Rule{
			Kind:  classify.Kind(rule.Kind),
			Path:  rule.Path,
			Match: classify.MatchMode(rule.Match),
		})
	}
	return out
}
