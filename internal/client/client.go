// Package client runs the detach binary on behalf of a supervisor and
// returns the pid it reports.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/alebeck/detach/internal/launch"
	"github.com/alebeck/detach/internal/log"
)

// LaunchError is returned when the launcher exits non-zero. Stderr is the
// launcher's diagnostic, meant for humans.
type LaunchError struct {
	ExitCode int
	Stderr   string
}

func (e *LaunchError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("launcher exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("launcher exited with status %d: %s", e.ExitCode, msg)
}

type Client struct {
	// Launcher is the path of the detach binary.
	Launcher string
	// Flags are passed to the launcher before the program, e.g.
	// []string{"--strategy", "direct"}.
	Flags []string
	// Env is the launcher's environment, nil inherits ours.
	Env []string
	// Stdout receives whatever the launched program writes to the stdout it
	// shares with the launcher, once the pid has been read. Nil discards it.
	Stdout io.Writer
	// Stderr receives the shared stderr. Nil discards it.
	Stderr io.Writer
}

// Launch starts program through the launcher and returns its pid. It
// returns as soon as the launcher has exited, the program keeps running.
func (c *Client) Launch(ctx context.Context, program string, args ...string) (int, error) {
	if program == "" {
		return 0, launch.ErrNoProgram
	}

	// Pipes instead of buffers: the program inherits the write ends and may
	// hold them open far longer than the launcher lives.
	outR, outW, err := os.Pipe()
	if err != nil {
		return 0, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return 0, err
	}

	argv := append(append(append([]string{}, c.Flags...), "--", program), args...)
	cmd := exec.CommandContext(ctx, c.Launcher, argv...)
	cmd.Env = c.Env
	cmd.Stdout = outW
	cmd.Stderr = errW
	startErr := cmd.Start()
	outW.Close()
	errW.Close()
	if startErr != nil {
		outR.Close()
		errR.Close()
		return 0, fmt.Errorf("could not start launcher: %w", startErr)
	}

	stderr := &head{w: orDiscard(c.Stderr)}
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		io.Copy(stderr, errR)
		errR.Close()
	}()

	found := make(chan scanned, 1)
	go func() {
		stdout := orDiscard(c.Stdout)
		res, rest, err := launch.ScanResult(outR, stdout)
		found <- scanned{res: res, err: err}
		if err == nil {
			stdout.Write(rest)
			io.Copy(stdout, outR)
		}
		outR.Close()
	}()

	if err := cmd.Wait(); err != nil {
		outR.Close()
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return 0, err
		}
		// A program started before the launcher died may hold stderr open.
		select {
		case <-stderrDone:
		case <-ctx.Done():
		case <-time.After(outputGrace):
		}
		return 0, &LaunchError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}

	// The launcher has exited, its report is already in the pipe.
	select {
	case s := <-found:
		if s.err != nil {
			return 0, fmt.Errorf("unexpected launcher output: %w", s.err)
		}
		log.Debugf("Launcher reported PID %d for %s", s.res.PID, program)
		return s.res.PID, nil
	case <-time.After(outputGrace):
		outR.Close()
		return 0, fmt.Errorf("unexpected launcher output: no result reported")
	}
}

type scanned struct {
	res launch.Result
	err error
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

const maxHead = 4096

// outputGrace bounds how long we wait for output of an exited launcher
// when the launched program may hold the other end.
const outputGrace = time.Second

// head forwards everything to w and keeps the first bytes for error reports.
type head struct {
	mu  sync.Mutex
	w   io.Writer
	buf bytes.Buffer
}

func (t *head) Write(p []byte) (int, error) {
	t.mu.Lock()
	if room := maxHead - t.buf.Len(); room > 0 {
		t.buf.Write(p[:min(room, len(p))])
	}
	t.mu.Unlock()
	t.w.Write(p)
	return len(p), nil
}

func (t *head) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
