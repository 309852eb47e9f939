// Package supervisor launches the agent fleet as child OS processes on a
// staggered schedule and restarts each on failure with capped exponential
// backoff (spec §4.8). It owns no business logic — only process lifecycle.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	initialRestartDelay = 5 * time.Second
	maxRestartDelay      = 5 * time.Minute
	// HealthCheckInterval is HEALTH_CHECK_INTERVAL (spec §4.8).
	HealthCheckInterval = 60 * time.Second
	shutdownGrace        = 2 * time.Second
)

// ChildSpec describes one launchable agent (spec §4.8).
type ChildSpec struct {
	Name    string
	Path    string // executable path
	Args    []string
	Delay   time.Duration // offset from supervisor start at which this child is first launched
}

// ChildStatus is the observable health record for one child (spec §3).
type ChildStatus struct {
	Name         string
	Running      bool
	Restarts     int
	LastStart    time.Time
	LastCrash    time.Time
	RestartDelay time.Duration
	PID          int
	CPUPercent   float64
	RSSBytes     uint64
}

type child struct {
	spec ChildSpec
	log  zerolog.Logger

	mu     sync.Mutex
	status ChildStatus

	cmd *exec.Cmd
}

// Supervisor launches and restarts a fixed set of children (spec §4.8).
type Supervisor struct {
	children []*child
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// New builds a Supervisor for the given specs. When single is non-empty,
// only the spec whose Path matches single is included and its Delay is
// ignored (spec §6 CLI: "supervise <agentPath>").
func New(specs []ChildSpec, single string, log zerolog.Logger) (*Supervisor, error) {
	s := &Supervisor{log: log.With().Str("component", "supervisor").Logger()}

	if single != "" {
		for _, spec := range specs {
			if spec.Path == single {
				spec.Delay = 0
				s.children = append(s.children, newChild(spec, s.log))
				return s, nil
			}
		}
		names := make([]string, 0, len(specs))
		for _, spec := range specs {
			names = append(names, spec.Path)
		}
		return nil, fmt.Errorf("supervisor: unknown agent %q, known agents: %v", single, names)
	}

	for _, spec := range specs {
		s.children = append(s.children, newChild(spec, s.log))
	}
	return s, nil
}

func newChild(spec ChildSpec, log zerolog.Logger) *child {
	return &child{
		spec: spec,
		log:  log.With().Str("child", spec.Name).Logger(),
		status: ChildStatus{
			Name:         spec.Name,
			RestartDelay: initialRestartDelay,
		},
	}
}

// Run starts every child on its staggered schedule and blocks until ctx is
// cancelled, at which point it sends SIGTERM to every running child, waits
// up to the shutdown grace window, and returns (spec §4.8 signal handling).
func (s *Supervisor) Run(ctx context.Context) error {
	for _, c := range s.children {
		s.wg.Add(1)
		go func(c *child) {
			defer s.wg.Done()
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.spec.Delay):
			}
			c.runLoop(ctx)
		}(c)
	}

	statusTicker := time.NewTicker(HealthCheckInterval)
	defer statusTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.terminateAll()
			return nil
		case <-statusTicker.C:
			s.PrintStatus(time.Now())
		}
	}
}

func (s *Supervisor) terminateAll() {
	for _, c := range s.children {
		c.terminate()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.log.Warn().Msg("shutdown grace window elapsed with children still exiting")
	}
}

// Snapshot returns a point-in-time copy of every child's status.
func (s *Supervisor) Snapshot() []ChildStatus {
	out := make([]ChildStatus, 0, len(s.children))
	for _, c := range s.children {
		out = append(out, c.snapshot())
	}
	return out
}

// runLoop launches c repeatedly until ctx is cancelled, applying capped
// exponential backoff after every non-graceful exit (spec §4.8, §8 property
// #4).
func (c *child) runLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		graceful, err := c.launchOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		c.status.Running = false
		c.mu.Unlock()

		if graceful {
			c.log.Info().Msg("child exited gracefully, not restarting")
			return
		}

		c.mu.Lock()
		c.status.Restarts++
		c.status.LastCrash = time.Now()
		delay := c.status.RestartDelay
		next := delay * 2
		if next > maxRestartDelay {
			next = maxRestartDelay
		}
		c.status.RestartDelay = next
		c.mu.Unlock()

		c.log.Error().Err(err).Dur("restart_delay", delay).Int("restarts", c.status.Restarts).Msg("child crashed, restarting after backoff")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// launchOnce runs the child exactly once and reports whether its exit was
// graceful (exit code 0 or terminated by this Supervisor's own SIGTERM).
func (c *child) launchOnce(ctx context.Context) (graceful bool, err error) {
	cmd := exec.Command(c.spec.Path, c.spec.Args...)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	c.mu.Lock()
	c.cmd = cmd
	c.status.Running = true
	c.status.LastStart = time.Now()
	c.mu.Unlock()

	if startErr := cmd.Start(); startErr != nil {
		return false, fmt.Errorf("start: %w", startErr)
	}

	pid := cmd.Process.Pid
	c.mu.Lock()
	c.status.PID = pid
	c.mu.Unlock()

	c.log.Info().Int("pid", pid).Msg("child started")

	waitErr := cmd.Wait()

	// A clean exit (code 0 or killed by our own terminate() during shutdown)
	// is graceful and does not trigger a restart (spec §4.8).
	if waitErr == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return true, nil
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		if exitErr.ExitCode() == 0 {
			return true, nil
		}
		return false, fmt.Errorf("exit code %d", exitErr.ExitCode())
	}
	return false, waitErr
}

// terminate sends SIGTERM to a running child, if any.
func (c *child) terminate() {
	c.mu.Lock()
	cmd := c.cmd
	c.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
}

func (c *child) snapshot() ChildStatus {
	c.mu.Lock()
	status := c.status
	pid := status.PID
	c.mu.Unlock()

	if status.Running && pid > 0 {
		if proc, err := process.NewProcess(int32(pid)); err == nil {
			if cpuPct, err := proc.CPUPercent(); err == nil {
				status.CPUPercent = cpuPct
			}
			if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
				status.RSSBytes = memInfo.RSS
			}
		}
	}
	return status
}
