package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript writes a tiny shell script so Supervisor has a real executable
// to exec; os/exec requires a real binary, not a goroutine, per spec §4.8
// ("launches N worker processes").
func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "child.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestSupervisor_RestartsOnNonZeroExit(t *testing.T) {
	script := writeScript(t, "exit 1")

	sup, err := New([]ChildSpec{{Name: "flaky", Path: script, Delay: 0}}, "", zerolog.Nop())
	require.NoError(t, err)
	// launchOnce is called directly (no Run, no backoff sleep): a non-zero
	// exit must come back non-graceful with an error, which is the outcome
	// on which runLoop restarts the child.
	c := sup.children[0]

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	graceful, err := c.launchOnce(ctx)
	assert.False(t, graceful)
	assert.Error(t, err)
}

func TestSupervisor_GracefulExitDoesNotRestart(t *testing.T) {
	script := writeScript(t, "exit 0")

	sup, err := New([]ChildSpec{{Name: "clean", Path: script, Delay: 0}}, "", zerolog.Nop())
	require.NoError(t, err)
	c := sup.children[0]

	graceful, err := c.launchOnce(context.Background())
	assert.True(t, graceful)
	assert.NoError(t, err)
}

func TestNew_UnknownSingleAgentErrors(t *testing.T) {
	_, err := New([]ChildSpec{{Name: "a", Path: "/bin/a"}}, "/bin/does-not-exist", zerolog.Nop())
	assert.Error(t, err)
}

func TestNew_SingleAgentIgnoresDelay(t *testing.T) {
	sup, err := New([]ChildSpec{{Name: "a", Path: "/bin/a", Delay: 10 * time.Second}}, "/bin/a", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, sup.children, 1)
	assert.Equal(t, time.Duration(0), sup.children[0].spec.Delay)
}

func TestRunLoop_BackoffDoublesAndCaps(t *testing.T) {
	c := newChild(ChildSpec{Name: "x"}, zerolog.Nop())
	assert.Equal(t, initialRestartDelay, c.status.RestartDelay)

	// simulate the doubling sequence runLoop applies after each crash
	delay := c.status.RestartDelay
	for i := 0; i < 10; i++ {
		next := delay * 2
		if next > maxRestartDelay {
			next = maxRestartDelay
		}
		delay = next
	}
	assert.Equal(t, maxRestartDelay, delay)
}

func TestSupervisor_RunShutsDownOnContextCancel(t *testing.T) {
	script := writeScript(t, "sleep 5")

	sup, err := New([]ChildSpec{{Name: "sleeper", Path: script, Delay: 0}}, "", zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not shut down within grace window")
	}
}
