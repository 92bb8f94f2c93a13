package injector

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/config"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/core/event"
	"github.com/l1jgo/ecsworld/internal/core/system"
	"github.com/l1jgo/ecsworld/internal/logging"
)

// ConfigPath is the file the configuration is read from. Empty means
// built-in defaults.
type ConfigPath string

// App is everything a frame loop needs.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	World  *system.World
}

var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideECSWorld,
	event.NewBus,
	ProvideSystemWorld,
	wire.Struct(new(App), "*"),
)

func ProvideConfig(path ConfigPath) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(string(path))
}

func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Sync() }, nil
}

func ProvideECSWorld(cfg *config.Config, log *zap.Logger) (*ecs.World, error) {
	opts := []ecs.Option{
		ecs.WithLogger(log.Named("ecs")),
		ecs.WithCapacity(cfg.World.EntityCapacity, cfg.World.TableCapacity),
	}
	if cfg.World.ID != "" {
		id, err := uuid.Parse(cfg.World.ID)
		if err != nil {
			return nil, fmt.Errorf("world id: %w", err)
		}
		opts = append(opts, ecs.WithID(id))
	}
	return ecs.NewWorld(opts...), nil
}

func ProvideSystemWorld(ew *ecs.World, bus *event.Bus, cfg *config.Config, log *zap.Logger) *system.World {
	return system.NewWorld(ew,
		system.WithLogger(log.Named("systems")),
		system.WithBus(bus),
		system.WithFixedStep(cfg.World.FixedStep, cfg.World.MaxFixedSteps),
	)
}
