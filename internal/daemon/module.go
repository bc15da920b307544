package daemon

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/api"
	"github.com/matheus3301/collab/internal/bridge"
	"github.com/matheus3301/collab/internal/bus"
	"github.com/matheus3301/collab/internal/channel"
	"github.com/matheus3301/collab/internal/config"
	"github.com/matheus3301/collab/internal/directory"
	"github.com/matheus3301/collab/internal/httpapi"
	"github.com/matheus3301/collab/internal/lock"
	"github.com/matheus3301/collab/internal/logging"
	"github.com/matheus3301/collab/internal/metrics"
	"github.com/matheus3301/collab/internal/outbox"
	"github.com/matheus3301/collab/internal/profile"
	"github.com/matheus3301/collab/internal/resolver"
	"github.com/matheus3301/collab/internal/status"
	"github.com/matheus3301/collab/internal/store"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string         // optional override for testing; empty = use default
	Config     *config.Config // optional; nil = load ~/.collab/config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Options(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Module("daemon",
			fx.Supply(p),
			fx.Provide(
				provideConfig,
				provideLogger,
				provideBus,
				provideStateMachine,
				provideLock,
				provideStore,
				provideLive,
				metrics.New,
				provideDirectory,
				provideResolver,
				provideChannel,
				provideKafka,
				provideSender,
				provideRedis,
				provideBridge,
				provideHTTP,
				api.NewDirectoryService,
				api.NewChatService,
				provideMessageService,
				provideStatusService,
				NewServer,
			),
			fx.Invoke(registerLifecycle),
		),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, p.Config.Validate()
	}
	return config.Resolve(profile.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.LockPath(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// The lock is a dependency so a second daemon never touches the database.
func provideStore(p Params, cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dsn := cfg.Database.DSN
	if cfg.Database.Driver == store.DriverSQLite {
		dsn = cfg.Database.Path
		if dsn == "" {
			dsn = profile.DBPath(p.Profile)
		}
	}

	var opts []store.Option
	if len(cfg.Kafka.Brokers) > 0 {
		opts = append(opts, store.WithOutbox())
	}
	db, err := store.Open(cfg.Database.Driver, dsn, opts...)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("driver", cfg.Database.Driver), zap.Bool("outbox", db.OutboxEnabled()))
	return db, nil
}

func provideLive(db *store.DB, b *bus.Bus, logger *zap.Logger) *store.Live {
	origin := uuid.NewString()
	logger.Debug("row feed origin", zap.String("origin", origin))
	return store.NewLive(db, b, origin)
}

func provideDirectory(live *store.Live, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *directory.Service {
	return directory.New(live, logger.Named("directory"),
		directory.WithTimeout(cfg.Backend.Timeout.Std()),
		directory.WithLimit(cfg.Search.Limit),
		directory.WithMetrics(m),
	)
}

func provideResolver(live *store.Live, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *resolver.Resolver {
	return resolver.New(live, logger.Named("resolver"), cfg.Backend.Timeout.Std(), m)
}

func provideChannel(live *store.Live, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *channel.Channel {
	return channel.New(live, live, logger.Named("channel"), cfg.Backend.Timeout.Std(), m)
}

// provideKafka returns nil when no brokers are configured.
func provideKafka(cfg *config.Config) *outbox.KafkaPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	return outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

func provideSender(cfg *config.Config, db *store.DB, pub *outbox.KafkaPublisher, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *outbox.Sender {
	if pub == nil {
		return nil
	}
	return outbox.NewSender(db, pub, b, m, logger.Named("outbox"), cfg.Outbox.Interval.Std(), cfg.Outbox.MaxAttempts)
}

// provideRedis returns nil when no Redis address is configured.
func provideRedis(cfg *config.Config) *bridge.RedisTransport {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return bridge.NewRedisTransport(cfg.Redis.Addr, cfg.Redis.Channel)
}

func provideBridge(live *store.Live, t *bridge.RedisTransport, machine *status.Machine, m *metrics.Metrics, logger *zap.Logger) *bridge.Engine {
	if t == nil {
		return nil
	}
	return bridge.NewEngine(live, t, machine, m, logger.Named("bridge"))
}

func provideHTTP(cfg *config.Config, ch *channel.Channel, db *store.DB, machine *status.Machine, m *metrics.Metrics, logger *zap.Logger) *httpapi.Server {
	if cfg.HTTP.Addr == "" {
		return nil
	}
	return httpapi.New(ch, db, machine, m, logger.Named("http"))
}

func provideMessageService(ch *channel.Channel, logger *zap.Logger) *api.MessageService {
	return api.NewMessageService(ch, logger.Named("api"))
}

func provideStatusService(p Params, cfg *config.Config, machine *status.Machine, db *store.DB, logger *zap.Logger) *api.StatusService {
	info := api.StatusInfo{
		Profile: p.Profile,
		Relay:   len(cfg.Kafka.Brokers) > 0,
		Bridge:  cfg.Redis.Addr != "",
	}
	return api.NewStatusService(info, machine, db, logger.Named("api"))
}

type lifecycleDeps struct {
	fx.In

	Config    *config.Config
	Server    *Server
	Lock      *lock.Lock
	DB        *store.DB
	Machine   *status.Machine
	Logger    *zap.Logger
	Publisher *outbox.KafkaPublisher
	Sender    *outbox.Sender
	Transport *bridge.RedisTransport
	Bridge    *bridge.Engine
	HTTP      *httpapi.Server
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	logger := d.Logger
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start gRPC server in background.
			go func() {
				if err := d.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if d.HTTP != nil {
				if err := d.HTTP.Start(d.Config.HTTP.Addr); err != nil {
					return err
				}
			}
			if d.Sender != nil {
				d.Sender.Start(context.Background())
				logger.Info("outbox relay started", zap.Strings("brokers", d.Config.Kafka.Brokers))
			}
			if d.Bridge != nil {
				d.Bridge.Start(context.Background())
				logger.Info("feed bridge started", zap.String("redis", d.Config.Redis.Addr))
			}

			// The bridge may already have reported a degraded backend.
			if d.Machine.Current() == status.Booting {
				if err := d.Machine.Transition(status.Ready); err != nil {
					return err
				}
			}
			logger.Info("daemon ready")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = d.Machine.Ensure(status.Stopping, "shutdown")
			if d.HTTP != nil {
				if err := d.HTTP.Stop(ctx); err != nil {
					logger.Warn("error stopping http server", zap.Error(err))
				}
			}
			d.Server.Stop(ctx)
			if d.Bridge != nil {
				d.Bridge.Stop()
				_ = d.Transport.Close()
			}
			if d.Sender != nil {
				d.Sender.Stop()
				_ = d.Publisher.Close()
			}
			if err := d.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
