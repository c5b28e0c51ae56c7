package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/config"
	"github.com/xuxxeth/sx/internal/engine"
	"github.com/xuxxeth/sx/internal/events"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
	"github.com/xuxxeth/sx/internal/kvstore"
	"github.com/xuxxeth/sx/internal/logging"
	"github.com/xuxxeth/sx/internal/store"
)

// ledger is what both record stores provide.
type ledger interface {
	host.Host
	events.Store
	Deposit(ctx context.Context, addr address.Address) (uint64, bool, error)
	Close() error
}

// session is one command's view of an open ledger.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	ledger  ledger
	engine  *engine.Engine
	metrics *prometheus.Registry
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
		}
	}
	if opts.DBPath != "" {
		cfg.Store.Path = opts.DBPath
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func openLedger(cfg config.Config) (ledger, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		return store.Open(cfg.Store.Path, cfg.Rent)
	case config.DriverLevelDB:
		mode := kvstore.Batch
		if cfg.Store.Direct {
			mode = kvstore.Direct
		}
		return kvstore.Open(cfg.Store.Path, cfg.Rent, mode)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	program, err := cfg.Program()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "set up logging", err)
	}

	l, err := openLedger(cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	clock, err := engine.ResumeClock(ctx, l)
	if err != nil {
		_ = l.Close()
		_ = logger.Sync()
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	logger.Debug("store opened",
		zap.String("driver", cfg.Store.Driver),
		zap.String("path", cfg.Store.Path),
		zap.Int64("seq", clock.Current()),
	)

	reg := prometheus.NewRegistry()
	eng := engine.New(l,
		engine.WithDeriver(address.NewDeriver(program)),
		engine.WithEmitter(events.NewLog(l)),
		engine.WithClock(clock),
		engine.WithStrict(cfg.Strict),
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(reg)),
	)
	return &session{cfg: cfg, logger: logger, ledger: l, engine: eng, metrics: reg}, nil
}

// Close writes the metrics textfile, if configured, and closes the store.
func (s *session) Close() error {
	var errs []error
	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(path, s.metrics); err != nil {
			s.logger.Warn("write metrics textfile", zap.String("path", path), zap.Error(err))
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := s.ledger.Close(); err != nil {
		errs = append(errs, err)
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// withSession opens a session, runs fn and prints what it returns.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, s *session) (any, error)) error {
	out := newFormatter(opts, cmd)
	ctx := cmd.Context()

	s, err := openSession(ctx, opts)
	if err != nil {
		return out.Reject(err)
	}
	defer s.Close()
	out.VerboseLog("using %s store at %s", s.cfg.Store.Driver, s.cfg.Store.Path)

	data, err := fn(ctx, s)
	if err != nil {
		return out.Reject(err)
	}
	return out.Success(data)
}

// transition runs one ledger transition and prints its event.
func transition(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) (ir.Event, error)) error {
	return withSession(opts, cmd, func(ctx context.Context, s *session) (any, error) {
		ev, err := fn(ctx, s.engine)
		if err != nil {
			return nil, err
		}
		return eventView{ev}, nil
	})
}
