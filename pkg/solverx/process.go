package solverx

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gatproject/gat/pkg/gaterrors"
)

// child is a spawned external solver process reduced to the three
// operations NativeBackend needs, so tests can substitute a fake
// without spawning a real process (spec §4.6's transport is the
// contract; what runs on the other end of stdin/stdout is not).
type child struct {
	stdin  io.WriteCloser
	stdout io.Reader
	wait   func() error
	kill   func() error
}

func spawnChild(ctx context.Context, name string, args []string, debugStderr io.Writer) (*child, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = debugStderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, gaterrors.Wrap(gaterrors.KindSolverSpawnFailed, "opening child stdin", err, nil)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, gaterrors.Wrap(gaterrors.KindSolverSpawnFailed, "opening child stdout", err, nil)
	}
	if err := cmd.Start(); err != nil {
		return nil, gaterrors.Wrap(gaterrors.KindSolverSpawnFailed, "starting solver child process", err, map[string]any{"command": name})
	}
	return &child{stdin: stdin, stdout: stdout, wait: cmd.Wait, kill: cmd.Process.Kill}, nil
}

// exitStatus maps per spec §4.6's "Exit codes (from child): 0 success,
// 1 invalid input, 2 solver error, 3 timeout, 139 segfault" — the
// Native backend only needs the raw code to build SolverCrashed{code};
// interpreting 1/2/3 semantically is the caller's job via the
// SolutionBatch status that accompanied a clean exit.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// NativeBackend spawns (or reuses) native solver child processes and
// speaks the framed Arrow-IPC protocol over their stdin/stdout (spec
// §4.6). With Debug set, the child's stderr is forwarded to Log and the
// byte length of every problem and solution frame is logged at debug
// level; frame contents are not logged, and nothing is written to the
// child's stderr.
type NativeBackend struct {
	Command string
	Args    []string
	Debug   bool
	// Log is the structured logger solve lifecycle events and debug
	// frame traces are written to. nil means disabled, matching
	// zerolog's own zero-value-means-discard convention for the
	// zerolog.Nop() logger this falls back to.
	Log *zerolog.Logger
	// MaxRetries bounds the number of fresh-child retries after a
	// SolverCrashed before Solve gives up and returns the error.
	MaxRetries int
	// spawn overrides process creation for tests; nil uses the real
	// os/exec-backed spawnChild.
	spawn func(ctx context.Context) (*child, error)

	mu   sync.Mutex
	idle []*child
}

func (n *NativeBackend) logger() zerolog.Logger {
	if n.Log != nil {
		return *n.Log
	}
	return zerolog.Nop()
}

func (n *NativeBackend) acquire(ctx context.Context) (*child, error) {
	n.mu.Lock()
	if len(n.idle) > 0 {
		c := n.idle[len(n.idle)-1]
		n.idle = n.idle[:len(n.idle)-1]
		n.mu.Unlock()
		return c, nil
	}
	n.mu.Unlock()

	if n.spawn != nil {
		return n.spawn(ctx)
	}
	var stderr io.Writer = io.Discard
	if n.Debug {
		stderr = zerologWriter{n.logger()}
	}
	return spawnChild(ctx, n.Command, n.Args, stderr)
}

func (n *NativeBackend) release(c *child) {
	n.mu.Lock()
	n.idle = append(n.idle, c)
	n.mu.Unlock()
}

// Shutdown closes stdin on every idle child (spec §4.6 "orderly
// shutdown is signaled by closing stdin") and waits for it to exit.
func (n *NativeBackend) Shutdown() {
	n.mu.Lock()
	idle := n.idle
	n.idle = nil
	n.mu.Unlock()
	for _, c := range idle {
		_ = c.stdin.Close()
		_ = c.wait()
	}
}

func (n *NativeBackend) Solve(ctx context.Context, problem ProblemBatch) (SolutionBatch, error) {
	retries := n.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		sol, err := n.solveOnce(ctx, problem)
		if err == nil {
			return sol, nil
		}
		lastErr = err
		if gerr, ok := err.(*gaterrors.Error); !ok || gerr.Kind != gaterrors.KindSolverCrashed {
			return SolutionBatch{}, err
		}
		n.logger().Warn().Err(err).Int("attempt", attempt).Msg("native solver child crashed, retrying on a fresh child")
	}
	return SolutionBatch{}, lastErr
}

func (n *NativeBackend) solveOnce(ctx context.Context, problem ProblemBatch) (SolutionBatch, error) {
	c, err := n.acquire(ctx)
	if err != nil {
		return SolutionBatch{}, err
	}

	payload, err := encodeProblem(problem)
	if err != nil {
		n.release(c)
		return SolutionBatch{}, err
	}
	if n.Debug {
		n.logger().Debug().Int("bytes", len(payload)).Msg("solverx: writing problem frame")
	}
	if err := writeFrame(c.stdin, payload); err != nil {
		_ = c.kill()
		return SolutionBatch{}, n.crashed(c, err)
	}

	respPayload, err := readFrame(c.stdout)
	if err != nil {
		_ = c.kill()
		return SolutionBatch{}, n.crashed(c, err)
	}
	if n.Debug {
		n.logger().Debug().Int("bytes", len(respPayload)).Msg("solverx: read solution frame")
	}

	sol, err := decodeSolution(respPayload)
	if err != nil {
		_ = c.kill()
		return SolutionBatch{}, err
	}
	n.release(c)
	return sol, nil
}

// crashed waits for the child's exit status (a broken stdin/stdout
// pipe means the child already exited or is about to) and surfaces
// SolverCrashed{exit_status} per spec §4.6.
func (n *NativeBackend) crashed(c *child, cause error) error {
	waitErr := c.wait()
	code := exitStatus(waitErr)
	return gaterrors.Wrap(gaterrors.KindSolverCrashed, fmt.Sprintf("solver child exited with status %d", code), cause, map[string]any{
		"exit_status": code,
	})
}

// zerologWriter adapts a zerolog.Logger to io.Writer for a child's
// stderr, so debug-mode output lands in the same structured log the
// rest of the engine writes to.
type zerologWriter struct{ log zerolog.Logger }

func (w zerologWriter) Write(p []byte) (int, error) {
	w.log.Debug().Str("source", "solver_child_stderr").Msg(string(p))
	return len(p), nil
}
