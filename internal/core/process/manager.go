package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Daemon is a long-running helper process the service depends on, such as a
// local LLM server.
type Daemon interface {
	Name() string
	Command() (bin string, args []string)
	ReadyCheck() ReadyProbe
	Healthy(ctx context.Context) bool
}

type ReadyProbe struct {
	Check    func(ctx context.Context) bool
	Interval time.Duration
	Timeout  time.Duration
}

// Manager starts, watches and stops daemons as child processes.
type Manager struct {
	mu      sync.Mutex
	daemons []*managedDaemon
}

type managedDaemon struct {
	daemon   Daemon
	cmd      *exec.Cmd
	cancel   context.CancelFunc
	restarts int
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Register(d Daemon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.daemons = append(m.daemons, &managedDaemon{daemon: d})
}

// Len reports how many daemons are registered.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.daemons)
}

// StartAll launches every registered daemon and blocks until each is ready.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, md := range m.daemons {
		if md.daemon.Healthy(ctx) {
			log.Info().Str("daemon", md.daemon.Name()).Msg("daemon already running, not spawning")
			continue
		}
		if err := m.startOne(ctx, md); err != nil {
			return fmt.Errorf("start %s: %w", md.daemon.Name(), err)
		}
	}
	return nil
}

func (m *Manager) startOne(ctx context.Context, md *managedDaemon) error {
	bin, args := md.daemon.Command()
	// Detached from ctx: StopAll owns shutdown.
	dCtx, cancel := context.WithCancel(context.Background())
	md.cancel = cancel

	out := log.Logger.With().Str("daemon", md.daemon.Name()).Logger().Level(zerolog.DebugLevel)
	cmd := exec.CommandContext(dCtx, bin, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	md.cmd = cmd

	log.Info().Str("daemon", md.daemon.Name()).Str("bin", bin).Strs("args", args).Msg("starting daemon")

	if err := cmd.Start(); err != nil {
		cancel()
		md.cmd = nil
		return fmt.Errorf("start process: %w", err)
	}

	return waitReady(ctx, md.daemon)
}

func waitReady(ctx context.Context, d Daemon) error {
	probe := d.ReadyCheck()
	if probe.Check == nil {
		return nil
	}
	interval := probe.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	deadline := time.NewTimer(probe.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		if probe.Check(ctx) {
			log.Info().Str("daemon", d.Name()).Msg("daemon ready")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("daemon %s not ready after %s", d.Name(), probe.Timeout)
		case <-tick.C:
		}
	}
}

const stopGracePeriod = 5 * time.Second

// StopAll interrupts every spawned daemon in parallel and kills the ones that
// outlive the grace period.
func (m *Manager) StopAll(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var wg sync.WaitGroup
	for _, md := range m.daemons {
		if md.cmd == nil || md.cmd.Process == nil {
			continue
		}
		wg.Add(1)
		go func(md *managedDaemon) {
			defer wg.Done()
			stopOne(md)
		}(md)
	}
	wg.Wait()
}

func stopOne(md *managedDaemon) {
	log.Info().Str("daemon", md.daemon.Name()).Msg("stopping daemon")
	_ = md.cmd.Process.Signal(os.Interrupt)

	exited := make(chan struct{})
	go func() {
		_ = md.cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(stopGracePeriod):
		_ = md.cmd.Process.Kill()
	}
	if md.cancel != nil {
		md.cancel()
	}
	md.cmd = nil
}

// Watch polls daemon health every interval and restarts the ones that went
// away. Restarts back off linearly with the number of previous restarts.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAndRestart(ctx)
		}
	}
}

func (m *Manager) checkAndRestart(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, md := range m.daemons {
		if md.cmd == nil || md.daemon.Healthy(ctx) {
			continue
		}
		md.restarts++
		log.Warn().Str("daemon", md.daemon.Name()).Int("restarts", md.restarts).Msg("daemon unhealthy, restarting")
		if md.cancel != nil {
			md.cancel()
		}
		if md.cmd.Process != nil {
			_ = md.cmd.Process.Kill()
			_ = md.cmd.Wait()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(md.restarts) * time.Second):
		}
		if err := m.startOne(ctx, md); err != nil {
			log.Error().Err(err).Str("daemon", md.daemon.Name()).Msg("restart failed")
		}
	}
}
