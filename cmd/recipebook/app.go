package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/recipebook/config"
	"github.com/pageza/recipebook/internal/apiclient"
	"github.com/pageza/recipebook/internal/media"
	"github.com/pageza/recipebook/internal/query"
	"github.com/pageza/recipebook/internal/service"
	"github.com/pageza/recipebook/internal/session"
)

var errUsage = errors.New("invalid usage, run recipebook -h for help")

// App wires the client stack for one CLI invocation
type App struct {
	JSON bool

	cfg     *config.Config
	log     *zap.Logger
	out     io.Writer
	redis   *redis.Client
	session *session.Session
	auth    service.IAuthService
	recipes service.IRecipeService
	queries *service.Queries
}

// NewApp builds the session, API client, services and query cache from cfg
// and restores the persisted session.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) (*App, error) {
	a := &App{cfg: cfg, log: log, out: out}

	needRedis := cfg.SessionBackend == config.SessionRedis || (cfg.RedisEnabled() && cfg.CacheTTL > 0)
	if needRedis {
		client, err := config.NewRedisClient(ctx, cfg)
		if err != nil {
			if cfg.SessionBackend == config.SessionRedis {
				return nil, err
			}
			log.Warn("shared query cache disabled", zap.Error(err))
		} else {
			a.redis = client
		}
	}

	var store session.Store
	switch cfg.SessionBackend {
	case config.SessionRedis:
		store = session.NewRedisStore(a.redis, cfg.SessionProfile)
	case config.SessionMemory:
		store = session.NewMemoryStore()
	default:
		store = session.NewFileStore(cfg.SessionFile)
	}
	a.session = session.New(store, session.WithLogger(log))
	if err := a.session.Init(ctx); err != nil {
		log.Warn("could not restore session", zap.Error(err))
	}

	client := apiclient.New(cfg.APIURL, a.session,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithLogger(log),
	)
	a.auth = service.NewAuthService(client)
	a.recipes = service.NewRecipeService(client)

	cacheOpts := []query.CacheOption{query.WithLogger(log)}
	if a.redis != nil && cfg.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, query.WithStore(query.NewRedisStore(a.redis), cfg.CacheTTL))
	}
	a.queries = service.NewQueries(query.New(cacheOpts...), a.recipes, service.WithViewer(a.session.ViewerID))
	return a, nil
}

// Close releases connections
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// Run executes one command
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "recipes":
		return a.cmdRecipes(ctx, rest)
	case "recipe":
		return a.cmdRecipe(ctx, rest)
	case "categories":
		return a.cmdCategories(ctx, rest)
	case "category":
		return a.cmdCategory(ctx, rest)
	case "search":
		return a.cmdSearch(ctx, rest)
	case "login":
		return a.cmdLogin(ctx, rest)
	case "register":
		return a.cmdRegister(ctx, rest)
	case "logout":
		return a.cmdLogout(ctx, rest)
	case "whoami":
		return a.cmdWhoami(ctx, rest)
	case "rate":
		return a.cmdRate(ctx, rest)
	case "comment":
		return a.cmdComment(ctx, rest)
	case "create":
		return a.cmdCreate(ctx, rest)
	case "update":
		return a.cmdUpdate(ctx, rest)
	case "delete":
		return a.cmdDelete(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *App) imageLoader(ctx context.Context, ref string) (*media.Loader, error) {
	if !strings.HasPrefix(ref, "s3://") {
		return media.NewLoader(nil), nil
	}
	client, err := config.NewS3Client(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3: %w", err)
	}
	return media.NewLoader(client), nil
}
