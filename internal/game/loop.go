package game

import (
	"context"
	"log/slog"
	"time"
)

// LoopConfig tunes the phase progression driver.
type LoopConfig struct {
	// RequiredPlayers is the registration threshold that starts the game.
	RequiredPlayers int
	// TotalEpochs is the last epoch the loop will play through.
	TotalEpochs int
	// PhaseInterval is the wall-clock spacing between phase advances.
	PhaseInterval time.Duration
	// PollInterval is how often the waiting state re-checks the player
	// count. Defaults to 200ms.
	PollInterval time.Duration
}

// Loop drives the WaitingForPlayers -> Running -> Finished progression and
// emits global events. Both waits are timed ticks, never spin polls.
type Loop struct {
	state  *State
	events chan<- Event
	cfg    LoopConfig
	log    *slog.Logger
}

// NewLoop wires a loop over the state and the global event channel. The loop
// owns the send side and closes it when it returns.
func NewLoop(state *State, events chan<- Event, cfg LoopConfig, log *slog.Logger) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		state:  state,
		events: events,
		cfg:    cfg,
		log:    log.With("component", "loop"),
	}
}

// Run blocks until the game finishes or ctx is cancelled. Closing the event
// channel on return is what terminates the broadcast router.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.events)

	if !l.waitForPlayers(ctx) {
		return
	}
	l.state.MarkStarted()
	l.log.Info("game started", "players", l.state.PlayerCount())
	if !l.emit(ctx, GameStartEvent()) {
		return
	}

	ticker := time.NewTicker(l.cfg.PhaseInterval)
	defer ticker.Stop()
	for {
		if l.state.Epoch() > l.cfg.TotalEpochs {
			l.log.Info("game finished", "epochs", l.cfg.TotalEpochs)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			epoch, phase := l.state.AdvancePhase()
			if !l.emit(ctx, PhaseChangedEvent(epoch, phase)) {
				return
			}
		}
	}
}

// waitForPlayers reports true once the registration count reaches the
// threshold, or false if ctx was cancelled first. The count observation is a
// consistent snapshot serialized by the state guard.
func (l *Loop) waitForPlayers(ctx context.Context) bool {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if l.state.PlayerCount() >= l.cfg.RequiredPlayers {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (l *Loop) emit(ctx context.Context, ev Event) bool {
	select {
	case l.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
