package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/rajamantri/broadcast"
	"github.com/wfunc/rajamantri/config"
	"github.com/wfunc/rajamantri/deck"
	"github.com/wfunc/rajamantri/logger"
	"github.com/wfunc/rajamantri/monitor"
	"github.com/wfunc/rajamantri/persistence"
	"github.com/wfunc/rajamantri/room"
	"github.com/wfunc/rajamantri/rpc"
	"github.com/wfunc/rajamantri/server"
	"github.com/wfunc/rajamantri/services"
	"github.com/wfunc/rajamantri/timer"
)

const releaseVersion = "0.1.0"

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rajamantri",
		Short:         "Room server for Raja Mantri Chor Sipahi.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadConfig(dir, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("rajamantri v{{.Version}}\n")
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg := cfg.Database.Postgres
	store, err := persistence.Open(cfg.Database.Driver, persistence.DSN(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName))
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	defer store.Close()
	logger.Log.Infow("storage ready", "driver", cfg.Database.Driver)

	var events broadcast.Broadcaster = broadcast.NopBroadcaster{}
	if cfg.Redis.Addr != "" {
		rb, err := broadcast.NewRedisBroadcaster(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Queue)
		if err != nil {
			return err
		}
		events = rb
		logger.Log.Infow("publishing events to redis", "addr", cfg.Redis.Addr, "queue", cfg.Redis.Queue)
	}
	defer events.Close()

	mon := monitor.NewMonitor("rmcs")
	rooms := room.NewRoomManager(store, room.WithBroadcaster(events), room.WithRecorder(mon))
	games := services.NewGameService(rooms, deck.Default(), mon)

	timers := timer.NewTimerManager(timer.DefaultTick)
	defer timers.Stop()
	timers.AddTimer(0, cfg.Server.MetricsRefresh, func() {
		counts, err := rooms.CountRooms(ctx)
		if err != nil {
			logger.Log.Warnw("count rooms failed", "error", err)
			return
		}
		mon.SetRooms(counts)
	})

	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.PublicURL, rooms, games, mon)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gameServer.Run(gctx)
	})

	if cfg.Server.RPCAddress != "" {
		rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rooms, games)
		if err != nil {
			stop()
			g.Wait()
			return fmt.Errorf("start rpc server: %w", err)
		}
		g.Go(rpcServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			rpcServer.Stop()
			return nil
		})
	}

	logger.Log.Infof("rajamantri v%s started", releaseVersion)
	return g.Wait()
}
