package command

import (
	"context"
	"fmt"

	"github.com/pixil98/go-park/internal/console"
	"github.com/pixil98/go-park/internal/listener"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/session"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Open saves and pick up where the park left off
	store, err := cfg.Storage.buildStore()
	if err != nil {
		return nil, err
	}
	initial, err := session.Restore(context.Background(), store, cfg.Storage.slot(), cfg.Park.options())
	if err != nil {
		return nil, err
	}

	// The peer reads snapshots through the game, which does not exist yet
	var game *session.Game
	provider, err := cfg.Sync.buildProvider(cfg, func() park.WorldState { return game.Snapshot() })
	if err != nil {
		return nil, fmt.Errorf("setting up multiplayer: %w", err)
	}

	var opts []session.GameOpt
	opts = append(opts, cfg.Park.gameOpts()...)
	opts = append(opts, cfg.Storage.gameOpts(store)...)
	opts = append(opts, cfg.Sync.gameOpts(provider)...)

	game, err = session.NewGame(initial, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}

	workers := service.WorkerList{
		"game":   game,
		"driver": cfg.Driver.buildDriver(game),
	}

	if cfg.Nats.Embedded {
		ns, err := cfg.Nats.buildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
		workers["nats"] = ns
	}
	if cfg.Relay.Embedded {
		workers["relay"] = cfg.Relay.buildServer()
	}

	// Create listeners
	cm := listener.NewConnectionManager(console.NewHandler(game))
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		w, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = w
	}
	workers["listeners"] = &listeners

	return workers, nil
}
