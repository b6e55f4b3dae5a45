package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quizrunner/internal/catalog"
	"quizrunner/internal/db"
	"quizrunner/internal/exam"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Content is the configured exam content backend.
type Content struct {
	Loader *catalog.Loader
	// DB is set for the postgres source.
	DB *sql.DB
	// Dir is set for the dir source; its images are served under /content.
	Dir string
}

func OpenContent(ctx context.Context, cfg Config, log *zap.Logger) (*Content, error) {
	if log == nil {
		log = zap.NewNop()
	}
	loaderCfg := catalog.LoaderConfig{ManifestPath: cfg.ManifestPath, ExamDir: cfg.ExamDir}
	out := &Content{}

	var src catalog.Source
	switch cfg.ContentSource {
	case ContentSourceDir:
		src = catalog.NewDirSource(cfg.ContentDir)
		out.Dir = cfg.ContentDir
	case ContentSourceHTTP:
		hs, err := catalog.NewHTTPSource(cfg.ContentBaseURL, cfg.FetchTimeout())
		if err != nil {
			return nil, fmt.Errorf("open content: %w", err)
		}
		src = hs
		log.Info("content from http", zap.String("base_url", hs.BaseURL()), zap.String("asset_base_url", cfg.AssetBaseURL))
	case ContentSourcePostgres:
		conn, err := db.OpenPostgresWithConfig(ctx, cfg.DBDSN, db.PostgresConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("open content: %w", err)
		}
		ps := catalog.NewPostgresSource(conn)
		if err := ps.EnsureSchema(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open content: %w", err)
		}
		src = ps
		out.DB = conn
	default:
		return nil, fmt.Errorf("%w: unknown CONTENT_SOURCE %q", ErrInvalidConfig, cfg.ContentSource)
	}

	out.Loader = catalog.NewLoader(src, loaderCfg, log)
	return out, nil
}

func (c *Content) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// Sessions is the configured session store. Memory is set when sessions live
// in process and need the janitor.
type Sessions struct {
	Store  exam.Store
	Memory *exam.MemoryStore
	Redis  *redis.Client
}

func OpenSessionStore(ctx context.Context, cfg Config) (*Sessions, error) {
	switch cfg.SessionStore {
	case SessionStoreRedis:
		client, err := exam.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		return &Sessions{Store: exam.NewRedisStore(client, cfg.SessionTTL()), Redis: client}, nil
	case SessionStoreMemory, "":
		mem := exam.NewMemoryStore(cfg.SessionTTL())
		return &Sessions{Store: mem, Memory: mem}, nil
	default:
		return nil, fmt.Errorf("%w: unknown SESSION_STORE %q", ErrInvalidConfig, cfg.SessionStore)
	}
}

func (s *Sessions) Close() error {
	if s == nil || s.Redis == nil {
		return nil
	}
	return s.Redis.Close()
}
