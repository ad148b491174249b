package commands

import (
	"fmt"
	"time"

	"github.com/wonny/trendscore/internal/backfill"
	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/internal/profile"
	"github.com/wonny/trendscore/internal/ranking"
	"github.com/wonny/trendscore/internal/schema"
	"github.com/wonny/trendscore/internal/source"
	"github.com/wonny/trendscore/internal/store"
	"github.com/wonny/trendscore/internal/trend"
	"github.com/wonny/trendscore/pkg/config"
	"github.com/wonny/trendscore/pkg/database"
	"github.com/wonny/trendscore/pkg/httputil"
	"github.com/wonny/trendscore/pkg/logger"
	"github.com/wonny/trendscore/pkg/redis"
)

// rawCacheScope is the Redis key scope of cached raw stats
const rawCacheScope = "stats"

// app holds the dependencies shared by every command
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	redis  *redis.Client
	store  *store.Postgres
	source contracts.RawStatSource
}

// newApp loads config and connects to the database and cache
func newApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if profilePath != "" {
		cfg.ProfilePath = profilePath
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Overlay trend profile
	if cfg.ProfilePath != "" {
		p, warnings, err := profile.LoadInto(cfg.ProfilePath, cfg)
		if err != nil {
			return nil, fmt.Errorf("load profile %s: %w", cfg.ProfilePath, err)
		}
		for _, w := range warnings {
			log.WithField("code", w.Code).Warn(w.Message)
		}
		log.WithField("profile_id", p.Meta.ProfileID).Info("Trend profile applied")
	}
	if strict {
		cfg.Backfill.Strict = true
	}
	if hash, err := profile.Hash(cfg.Trend); err == nil {
		log.WithFields(map[string]interface{}{
			"trend_hash":  hash[:12],
			"window_days": cfg.Trend.WindowDays,
		}).Info("Trend constants")
	}

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to redis (disabled client when REDIS_ENABLED=false)
	rc, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		db:    db,
		redis: rc,
		store: store.NewPostgres(db.SQL(), log),
	}
	a.source = a.rawSource()

	return a, nil
}

// rawSource builds the source chain: origin → cache → retry
func (a *app) rawSource() contracts.RawStatSource {
	var src contracts.RawStatSource
	switch a.cfg.RawSource {
	case "feed":
		client := httputil.New(a.cfg, a.log).DisableRetry()
		src = source.NewFeed(client, a.cfg.Feed.BaseURL, a.cfg.Feed.APIKey, a.log)
	default:
		src = source.NewPostgres(a.db.Pool)
	}

	if a.redis.Enabled() {
		loc := a.cfg.Location()
		src = source.NewCached(src, a.redis.Cache(rawCacheScope), func() time.Time {
			return contracts.NormalizeDate(time.Now(), loc)
		})
	}

	return source.NewRetrying(src, a.cfg.Backfill.SourceRetries, a.cfg.Backfill.SourceRetryDelay, a.log)
}

// orchestrator creates the backfill orchestrator. Every run applies the
// category schema first, so a fresh database fails fast instead of per row.
func (a *app) orchestrator() *backfill.Orchestrator {
	return backfill.NewOrchestrator(
		a.source,
		a.store,
		ranking.NewAssigner(a.log),
		trend.NewScorer(a.cfg.Trend, a.log),
		a.cfg.Backfill,
		a.log,
	).WithSchema(a.migrator())
}

// migrator creates the schema migrator
func (a *app) migrator() *schema.Migrator {
	return schema.NewMigrator(a.store, a.log)
}

// today returns the current stat date in the configured timezone
func (a *app) today() time.Time {
	return contracts.NormalizeDate(time.Now(), a.cfg.Location())
}

// Close releases connections
func (a *app) Close() {
	_ = a.redis.Close()
	a.db.Close()
}

// exitStatus turns a run summary into the command error.
// Row failures and source gaps only fail the command in strict mode.
func exitStatus(summary *backfill.Summary, strictMode bool) error {
	if !strictMode {
		return nil
	}
	failed, gaps := summary.RowsFailed(), summary.Gaps()
	if failed > 0 || gaps > 0 {
		return fmt.Errorf("%d rows failed, %d dates skipped as source gaps (strict mode)", failed, gaps)
	}
	return nil
}
