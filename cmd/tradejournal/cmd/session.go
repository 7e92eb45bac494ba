package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/config"
	"github.com/rustyeddy/tradejournal/internal/cache/redis"
	"github.com/rustyeddy/tradejournal/internal/logging"
	"github.com/rustyeddy/tradejournal/internal/store/postgres"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/ledger"
)

// session is one command's view of the journal: config, logger, store and a
// ledger hydrated from it.
type session struct {
	cfg    *config.Config
	log    *slog.Logger
	store  ledger.Store
	ledger *ledger.Ledger

	closers []func() error
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return nil, err
	}
	if a.dbPath != "" {
		cfg.Storage.Type = config.StorageSQLite
		cfg.Storage.DBPath = a.dbPath
	}
	return cfg, nil
}

// open builds the session for cmd. The caller must Close it.
func (a *app) open(cmd *cobra.Command) (*session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	s := &session{cfg: cfg, log: log}
	ctx := cmd.Context()

	if err := s.openStore(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	opts := []ledger.LedgerOption{ledger.WithStore(s.store), ledger.WithLogger(log)}
	if cfg.Redis.Enabled {
		lk, ttl, err := s.openLocker(ctx)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		opts = append(opts, ledger.WithLocker(lk, ttl))
	}

	s.ledger = ledger.New(opts...)
	if err := s.ledger.Load(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("load journal: %w", err)
	}

	log.Debug("journal loaded",
		"storage", cfg.Storage.Type,
		"positions", len(s.ledger.List()),
		"redis_lock", cfg.Redis.Enabled,
	)
	return s, nil
}

func (s *session) openStore(ctx context.Context) error {
	switch s.cfg.Storage.Type {
	case config.StorageMemory:
		s.store = ledger.NewMemoryStore()

	case config.StorageSQLite:
		j, err := journal.NewSQLite(s.cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		s.store = j
		s.closers = append(s.closers, j.Close)

	case config.StoragePostgres:
		c, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      s.cfg.Storage.DSN,
			MaxConns: s.cfg.Storage.MaxConns,
		})
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() error { c.Close(); return nil })
		if err := c.RunMigrations(ctx); err != nil {
			return err
		}
		s.store = postgres.NewPositionStore(c.Pool())

	default:
		return fmt.Errorf("unknown storage type %q", s.cfg.Storage.Type)
	}
	return nil
}

func (s *session) openLocker(ctx context.Context) (*redis.LockManager, time.Duration, error) {
	ttl, err := s.cfg.Redis.LockTTLDuration()
	if err != nil {
		return nil, 0, err
	}
	c, err := redis.New(ctx, redis.ClientConfig{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})
	if err != nil {
		return nil, 0, err
	}
	s.closers = append(s.closers, c.Close)
	return redis.NewLockManager(c), ttl, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *session) account() ledger.Account {
	return ledger.AccountFromFlows(s.cfg.Account.InitialCapitalDecimal(), s.ledger.CashFlows())
}

// resolve accepts a full position id or a unique suffix of one, as printed
// in Org headings.
func (s *session) resolve(ref string) (ledger.Position, error) {
	if p, err := s.ledger.Get(ref); err == nil {
		return p, nil
	}

	var matches []ledger.Position
	if ref == "" {
		return ledger.Position{}, fmt.Errorf("%w: position id is required", ledger.ErrInvalidInput)
	}
	for _, p := range s.ledger.List() {
		if strings.HasSuffix(p.ID, ref) || strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return ledger.Position{}, fmt.Errorf("position %q: %w", ref, ledger.ErrPositionNotFound)
	case 1:
		return matches[0], nil
	}
	return ledger.Position{}, fmt.Errorf("position %q is ambiguous (%d matches)", ref, len(matches))
}
