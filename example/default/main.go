package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/agent"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/network"
	"github.com/oomph-ac/locomotion/network/transport"
	"github.com/oomph-ac/locomotion/settings"
	"github.com/oomph-ac/locomotion/worker"
	"github.com/oomph-ac/locomotion/world"
)

const tickRate = 30

var (
	configPath   = flag.String("config", "", "path to a YAML settings file, the defaults are used if empty")
	watch        = flag.Bool("watch", false, "apply movement settings when the config file changes")
	ticks        = flag.Int("ticks", 450, "number of ticks to run, 0 runs until interrupted")
	useWebSocket = flag.Bool("websocket", false, "connect the proxy over a local websocket instead of an in-memory pipe")
	recordPath   = flag.String("record", "", "record the frames of the authority to this file")
)

// The following program runs an agent through a small box world. It walks over a step, mantles
// onto a wall, falls over as a ragdoll and gets up again, while a simulated proxy follows it.
func main() {
	flag.Parse()
	s := settings.DefaultSettings()
	if *configPath != "" {
		var err error
		if s, err = settings.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	level, _ := s.LogLevel()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := run(s, log); err != nil {
		log.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

func run(s settings.Settings, log *slog.Logger) error {
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, AttachStacktrace: true}); err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	if os.Getenv("LOCOMOTION_STATSVIEW") == "1" {
		// set configurations before calling `statsview.New()` method
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr("localhost:8080"))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	authT, proxyT, closeTransports, err := connect(ctx, log)
	if err != nil {
		return err
	}
	defer closeTransports()

	start := agent.WithTransform(mgl64.Vec3{0, 0, 88 + 2.15}, mgl64.QuatIdent())
	opts := []agent.Option{start, agent.WithLogger(log), agent.WithTransport(authT)}
	if *recordPath != "" {
		f, err := os.Create(*recordPath)
		if err != nil {
			return err
		}
		rec, err := network.NewRecorder(f)
		if err != nil {
			_ = f.Close()
			return err
		}
		defer func() {
			_ = rec.Close()
			_ = f.Close()
			log.Info("recording saved", "path", *recordPath, "frames", rec.Frames())
		}()
		opts = append(opts, agent.WithRecorder(rec))
	}

	w := newWorld()
	runner := agent.New("runner", s, w, opts...)
	proxy := agent.New("runner-proxy", s, w, start, agent.WithLogger(log), agent.WithTransport(proxyT), agent.WithRole(movement.RoleSimulatedProxy))

	pool := worker.New(0)
	defer pool.Close()
	group := agent.NewGroup(pool)
	group.Add(runner)
	group.Add(proxy)

	reload := make(chan settings.Settings, 1)
	if *watch && *configPath != "" {
		watcher, err := settings.Watch(ctx, *configPath, log, func(s settings.Settings) {
			select {
			case reload <- s:
			default:
			}
		})
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	var sc script
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

loop:
	for tick := 0; *ticks == 0 || tick < *ticks; tick++ {
		select {
		case <-ctx.Done():
			log.Info("interrupted", "tick", tick)
			break loop
		case s := <-reload:
			for _, a := range []*agent.Agent{runner, proxy} {
				if err := a.SetSettings(s); err != nil {
					log.Warn("settings not applied", "agent", a.ID(), "err", err)
				}
			}
		case <-ticker.C:
		}

		res := group.Tick(1.0/tickRate, func(a *agent.Agent) agent.Input {
			if a != runner {
				return agent.Input{}
			}
			return sc.input(tick, a)
		})
		if tick%tickRate == 0 {
			log.Info("tick",
				"tick", tick,
				"mode", res[0].Mode.String(),
				"location", fmt.Sprintf("%.1f", res[0].Location),
				"proxy_mode", res[1].Mode.String(),
				"proxy_location", fmt.Sprintf("%.1f", proxy.VisualLocation()),
			)
		}
	}

	log.Info("runner report", movement.LogArgs(runner.Report())...)
	log.Info("proxy report", movement.LogArgs(proxy.Report())...)
	return nil
}

// newWorld returns a floor with a step and a wall on the path of the runner.
func newWorld() *world.World {
	return world.New(
		world.NewBox("floor", mgl64.Vec3{-2000, -2000, -10}, mgl64.Vec3{2000, 2000, 0}),
		world.NewBox("step", mgl64.Vec3{200, -300, 0}, mgl64.Vec3{400, 300, 30}),
		world.NewBox("wall", mgl64.Vec3{600, -400, 0}, mgl64.Vec3{900, 400, 90}),
	)
}

// connect returns the transports of the runner and its proxy.
func connect(ctx context.Context, log *slog.Logger) (network.Transport, network.Transport, func(), error) {
	if !*useWebSocket {
		a, b := network.Pipe(256)
		return a, b, func() { _ = a.Close() }, nil
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, nil, err
	}
	accepted := make(chan *transport.WebSocket, 1)
	srv := &http.Server{Handler: transport.Handler(func(ws *transport.WebSocket) { accepted <- ws }, log)}
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("websocket server stopped", "err", err)
		}
	}()

	client, err := transport.Dial(ctx, "ws://"+l.Addr().String(), log)
	if err != nil {
		_ = srv.Close()
		return nil, nil, nil, err
	}
	select {
	case server := <-accepted:
		log.Info("proxy connected over websocket", "addr", l.Addr().String())
		return server, client, func() {
			_ = client.Close()
			_ = server.Close()
			_ = srv.Close()
		}, nil
	case <-ctx.Done():
		_ = client.Close()
		_ = srv.Close()
		return nil, nil, nil, ctx.Err()
	}
}

// script steers the runner: towards the wall, onto it, down as a ragdoll and back up.
type script struct {
	onWall    int
	ragdolled int
}

func (s *script) input(tick int, a *agent.Agent) agent.Input {
	c := a.Component()
	switch {
	case a.Ragdoll().Active():
		// Release the toggle first, then press it once the body has settled.
		return agent.Input{RagdollToggle: tick-s.ragdolled > 60}
	case s.ragdolled > 0:
		return agent.Input{}
	case c.Location().Z() > 150 && c.Mode() == movement.ModeWalking:
		if s.onWall == 0 {
			s.onWall = tick
		}
		if tick-s.onWall > 15 {
			s.ragdolled = tick
			return agent.Input{RagdollToggle: true}
		}
		return agent.Input{}
	}
	// Press jump every other tick near the wall so a missed mantle is retried.
	x := c.Location().X()
	return agent.Input{
		Move:   mgl64.Vec3{1, 0, 0},
		Sprint: x < 300,
		Jump:   x > 500 && tick%2 == 0,
	}
}
