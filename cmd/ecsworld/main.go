package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/ecsworld/internal/config"
	"github.com/l1jgo/ecsworld/internal/core/event"
	"github.com/l1jgo/ecsworld/internal/core/system"
	"github.com/l1jgo/ecsworld/internal/injector"
	"github.com/l1jgo/ecsworld/internal/persist"
	"github.com/l1jgo/ecsworld/internal/scripting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/ecsworld.toml"
	if p := os.Getenv("ECSWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	app, cleanup, err := injector.InitializeApp(injector.ConfigPath(cfgPath))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer cleanup()

	cfg, log, world := app.Config, app.Log, app.World
	log.Info("ecsworld starting",
		zap.String("config", cfgPath),
		zap.Stringer("world", world.ECS().ID()),
		zap.Duration("frame_rate", cfg.World.FrameRate),
		zap.Duration("fixed_step", cfg.World.FixedStep),
	)

	decoders := persist.NewDecoders()
	registerDemoTypes(decoders)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo *persist.SnapshotRepo
	if cfg.Database.Enabled {
		db, err := openDatabase(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = persist.NewSnapshotRepo(db)
		if err := restoreLatest(ctx, repo, decoders, world, log); err != nil {
			return err
		}
	}

	subscribeLifecycle(world, log)
	world.AddSystem(newSpawner(cfg.World.DemoEntities, time.Now().UnixNano()))
	world.AddSystem(newReaper())
	world.AddSystem(newMover())
	world.AddSystem(newReporter(uint64(time.Second*10/cfg.World.FrameRate), log))

	scripts, err := scripting.LoadDir(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	for _, s := range scripts {
		world.AddSystem(s)
	}

	snapshots := make(chan *persist.Snapshot, 4)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(snapshots)
		return frameLoop(gctx, cfg, world, repo != nil, snapshots, log)
	})
	g.Go(func() error {
		return writeSnapshots(ctx, repo, snapshots, log)
	})

	err = g.Wait()
	world.Close()
	log.Info("ecsworld stopped", zap.Uint64("frames", world.Frame()))
	return err
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*persist.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(connectCtx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if _, err := db.Migrate(connectCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// restoreLatest loads the newest snapshot of the configured world, if any.
func restoreLatest(ctx context.Context, repo *persist.SnapshotRepo, dec *persist.Decoders, world *system.World, log *zap.Logger) error {
	ew := world.ECS()
	latest, err := repo.Latest(ctx, ew.ID())
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}
	rows, err := repo.Load(ctx, latest.ID)
	if err != nil {
		return err
	}
	remap, err := dec.Restore(ew, rows)
	if err != nil {
		return fmt.Errorf("restore snapshot %s: %w", latest.ID, err)
	}
	log.Info("snapshot restored",
		zap.Stringer("snapshot", latest.ID),
		zap.Uint64("frame", latest.Frame),
		zap.Int("entities", len(remap)),
		zap.Int("components", len(rows)),
	)
	return nil
}

func subscribeLifecycle(world *system.World, log *zap.Logger) {
	event.Subscribe(world.Bus(), func(ev event.SystemEnabled) {
		log.Info("system enabled", zap.String("system", ev.System), zap.Uint64("frame", ev.Frame))
	})
	event.Subscribe(world.Bus(), func(ev event.SystemDisabled) {
		log.Info("system disabled", zap.String("system", ev.System), zap.Uint64("frame", ev.Frame))
	})
}

// frameLoop ticks the world at the configured rate until ctx is done, then
// hands a final snapshot to the writer.
func frameLoop(ctx context.Context, cfg *config.Config, world *system.World, persistOn bool, out chan<- *persist.Snapshot, log *zap.Logger) error {
	ticker := time.NewTicker(cfg.World.FrameRate)
	defer ticker.Stop()

	every := uint64(cfg.Database.SnapshotEvery)
	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			world.Tick(now.Sub(last))
			last = now
			if persistOn && every > 0 && world.Frame()%every == 0 {
				if err := offerSnapshot(world, out, log); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			log.Info("shutdown requested", zap.Uint64("frame", world.Frame()))
			if persistOn {
				snap, err := persist.BuildSnapshot(world.ECS().ID(), world.Frame(), world.ECS().Snapshot())
				if err != nil {
					return err
				}
				out <- snap
			}
			return nil
		}
	}
}

// offerSnapshot hands a snapshot to the writer without blocking the frame
// loop. A snapshot the writer has no room for is dropped.
func offerSnapshot(world *system.World, out chan<- *persist.Snapshot, log *zap.Logger) error {
	snap, err := persist.BuildSnapshot(world.ECS().ID(), world.Frame(), world.ECS().Snapshot())
	if err != nil {
		return err
	}
	select {
	case out <- snap:
	default:
		log.Warn("snapshot writer behind, dropping snapshot", zap.Uint64("frame", snap.Frame))
	}
	return nil
}

// writeSnapshots saves snapshots until in is closed. Saves outlive the
// signal context so the final snapshot is still written on shutdown. A
// failed save is logged and the first failure is returned once in drains.
func writeSnapshots(ctx context.Context, repo *persist.SnapshotRepo, in <-chan *persist.Snapshot, log *zap.Logger) error {
	base := context.WithoutCancel(ctx)
	var firstErr error
	for snap := range in {
		if repo == nil {
			continue
		}
		saveCtx, cancel := context.WithTimeout(base, 10*time.Second)
		err := repo.Save(saveCtx, snap)
		cancel()
		if err != nil {
			log.Error("snapshot save failed", zap.Stringer("snapshot", snap.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("save snapshot: %w", err)
			}
			continue
		}
		log.Info("snapshot saved",
			zap.Stringer("snapshot", snap.ID),
			zap.Uint64("frame", snap.Frame),
			zap.Int("components", len(snap.Components)),
		)
	}
	return firstErr
}
