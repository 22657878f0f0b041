package app

import (
	"context"
	"log/slog"

	"github.com/humanbelnik/soundbyte/internal/config"
	http_init "github.com/humanbelnik/soundbyte/internal/delivery/http/init"
	http_metrics "github.com/humanbelnik/soundbyte/internal/delivery/http/metrics"
	http_access_middleware "github.com/humanbelnik/soundbyte/internal/delivery/http/middleware/access"
	http_identity_middleware "github.com/humanbelnik/soundbyte/internal/delivery/http/middleware/identity"
	http_room "github.com/humanbelnik/soundbyte/internal/delivery/http/room"
	http_solo "github.com/humanbelnik/soundbyte/internal/delivery/http/solo"
	ws_room "github.com/humanbelnik/soundbyte/internal/delivery/ws/room"
	infra_memory_catalog "github.com/humanbelnik/soundbyte/internal/infra/memory/catalog"
	infra_memory_kv "github.com/humanbelnik/soundbyte/internal/infra/memory/kv"
	infra_memory_room "github.com/humanbelnik/soundbyte/internal/infra/memory/room"
	infra_memory_user "github.com/humanbelnik/soundbyte/internal/infra/memory/user"
	infra_pg_init "github.com/humanbelnik/soundbyte/internal/infra/postgres/init"
	infra_postgres_room "github.com/humanbelnik/soundbyte/internal/infra/postgres/room"
	infra_postgres_snippet "github.com/humanbelnik/soundbyte/internal/infra/postgres/snippet"
	infra_postgres_user "github.com/humanbelnik/soundbyte/internal/infra/postgres/user"
	infra_redis_init "github.com/humanbelnik/soundbyte/internal/infra/redis/init"
	infra_redis_kv "github.com/humanbelnik/soundbyte/internal/infra/redis/kv"
	"github.com/humanbelnik/soundbyte/internal/metrics"
	storage_session "github.com/humanbelnik/soundbyte/internal/storage/session"
	storage_solo "github.com/humanbelnik/soundbyte/internal/storage/solo"
	usecase_game "github.com/humanbelnik/soundbyte/internal/usecase/game"
	usecase_questions "github.com/humanbelnik/soundbyte/internal/usecase/questions"
	usecase_room "github.com/humanbelnik/soundbyte/internal/usecase/room"
	usecase_solo "github.com/humanbelnik/soundbyte/internal/usecase/solo"
)

const cacheKeyPrefix = "soundbyte"

type collaborators struct {
	rooms    usecase_room.RoomRepository
	catalog  usecase_questions.SnippetCatalog
	users    usecase_game.UserDirectory
	kv       storage_session.KeyValueStore
	fallback bool
}

// collaboratorsFor picks postgres and redis when enabled and the in-process
// stores otherwise.
func collaboratorsFor(cfg *config.Config) collaborators {
	var c collaborators

	if cfg.Postgres.Enabled {
		pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)
		c.rooms = infra_postgres_room.New(pgConn)
		c.catalog = infra_postgres_snippet.New(pgConn)
		c.users = infra_postgres_user.New(pgConn)
	} else {
		slog.Warn("postgres disabled, using in-memory rooms, catalog and users")
		c.rooms = infra_memory_room.New()
		c.catalog = infra_memory_catalog.New(infra_memory_catalog.Demo()...)
		c.users = infra_memory_user.New()
		c.fallback = true
	}

	if cfg.Redis.Enabled {
		redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
		c.kv = infra_redis_kv.New(redisConn, cacheKeyPrefix)
	} else {
		slog.Warn("redis disabled, game state stays in process memory")
		c.kv = infra_memory_kv.New()
	}
	return c
}

// build wires every component and returns the HTTP controller pool.
func build(cfg *config.Config, c collaborators) *http_init.ControllerPool {
	logger := slog.Default()
	m := metrics.New()

	questions := usecase_questions.New(c.catalog)
	roomUC := usecase_room.New(c.rooms, c.users, usecase_room.WithLogger(logger))
	sessions := storage_session.New(c.kv, storage_session.WithTTL(cfg.Game.StateTTL), storage_session.WithLogger(logger))

	hub := ws_room.NewHub(ws_room.WithSendBuffer(cfg.Game.SendBuffer), ws_room.WithHubLogger(logger))
	coordinator := usecase_game.New(roomUC, questions, sessions, c.users, hub,
		usecase_game.WithLogger(logger),
		usecase_game.WithRounds(cfg.Game.Rounds),
		usecase_game.WithMetrics(m),
	)

	soloUC := usecase_solo.New(
		storage_solo.New(c.kv, cfg.Game.StateTTL),
		questions,
		c.users,
		usecase_solo.WithLogger(logger),
	)

	identity := http_identity_middleware.New()

	controllerPool := http_init.NewControllerPool(http_access_middleware.ReadOnly(cfg.HTTP.Mode))
	controllerPool.Add(http_room.New(roomUC))
	controllerPool.Add(http_solo.New(soloUC, identity))
	controllerPool.Add(ws_room.New(hub, coordinator, ws_room.WithLogger(logger), ws_room.WithMetrics(m)))
	controllerPool.AddRoot(http_metrics.New(m.Handler()))

	controllerPool.Register()
	return controllerPool
}

func Go(cfg *config.Config) {
	c := collaboratorsFor(cfg)
	if c.fallback {
		if n, err := c.catalog.Count(context.Background()); err == nil {
			slog.Info("demo catalog loaded", "snippets", n)
		}
	}

	build(cfg, c).RunAll(cfg.HTTP.Port)
}
