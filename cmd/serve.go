package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kara-engine/kara/broadcast"
	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/engine"
	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/mpv"
	"github.com/kara-engine/kara/playlist"
	"github.com/kara-engine/kara/quiz"
	"github.com/kara-engine/kara/server"
	"github.com/kara-engine/kara/store"
	"github.com/kara-engine/kara/util"
	"github.com/kara-engine/kara/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const quitTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Address the control surface listens on")
	lo.Must0(viper.BindPFlag(key.ServerHost, serveCmd.Flags().Lookup("host")))

	serveCmd.Flags().IntP("port", "p", 0, "Port the control surface listens on")
	lo.Must0(viper.BindPFlag(key.ServerPort, serveCmd.Flags().Lookup("port")))

	serveCmd.Flags().BoolP("monitor", "m", false, "Open the monitor output")
	lo.Must0(viper.BindPFlag(key.PlayerMonitor, serveCmd.Flags().Lookup("monitor")))

	serveCmd.Flags().BoolP("verbose", "V", false, "Mirror logs to stderr")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Drive the player outputs and serve the control surface",
	Long: `Spawn the mpv outputs, then serve the HTTP control surface and the websocket
event stream until interrupted. Quiz games draw their songs from the playlists directory.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("verbose")) {
			viper.Set(key.LogsStderr, true)
			handleErr(log.Setup())
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()
		handleErr(serve(context.Background()))
	},
}

func transports(name string) engine.Transport {
	screen := viper.GetInt(key.PlayerScreen)
	if name == constant.MonitorPlayer {
		screen = viper.GetInt(key.PlayerMonitorScreen)
	}
	return mpv.New(mpv.OptionsFromConfig(name, where.Sockets(), screen))
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open()
	if err != nil {
		return err
	}
	defer util.Ignore(st.Close)

	events := broadcast.New(0)
	defer events.Close()

	hub := broadcast.NewHub()
	defer hub.Close()
	events.Subscribe(hub)

	player := engine.New(transports, media.New(media.OptionsFromConfig()), events, engine.OptionsFromConfig())
	queue := playlist.NewQueue()
	player.SetSequencer(queue)

	game := quiz.New(quiz.Options{
		Store:    st,
		Library:  playlist.NewLibrary(where.Playlists()),
		Emitter:  events,
		Playback: player,
	})
	player.SetRoundHook(game)

	if err := player.Start(ctx); err != nil {
		return err
	}

	srv := server.New(player, game, queue, hub)
	hub.Greeting = srv.Greeting

	err = srv.Run(ctx, server.Addr())

	quitCtx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()
	if qerr := player.Quit(quitCtx); qerr != nil {
		log.Warnf("quit player: %s", qerr)
	}
	return err
}
