// Package launch starts a program as a detached, session-leading process
// and reports its pid to the caller.
package launch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alebeck/detach/internal/log"
)

// StageFlag makes the binary run the new-branch protocol instead of the CLI.
// It is only ever passed by the reexec strategy.
const StageFlag = "--detach-stage"

// DefaultUmask is the file-creation mask every launched program starts with.
const DefaultUmask Umask = 0o022

var ErrNoProgram = errors.New("no program given")

// Request describes the program to launch. Args excludes the program name.
type Request struct {
	Program string
	Args    []string
	// Env is the complete environment of the program, nil inherits ours.
	Env []string
	// Dir is the working directory of the program, empty inherits ours.
	Dir string
}

// Argv returns the argument vector handed to exec, program name first.
func (r Request) Argv() []string {
	return append([]string{r.Program}, r.Args...)
}

// Result is what the original process reports once the new one exists.
type Result struct {
	PID int `json:"pid"`
}

type Strategy string

const (
	// ReExec duplicates by re-executing this binary in stage mode, which then
	// creates the session, resets the umask and replaces itself with the program.
	ReExec Strategy = "reexec"
	// Direct starts the program through a single fork/exec with Setsid.
	Direct Strategy = "direct"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case ReExec, Direct:
		return Strategy(s), nil
	case "":
		return ReExec, nil
	}
	return "", fmt.Errorf("unknown strategy '%s', expected '%s' or '%s'", s, ReExec, Direct)
}

// Umask is a file-creation permission mask.
type Umask uint32

// ParseUmask reads an octal mask such as "022", "0022" or "0o022".
func ParseUmask(s string) (Umask, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	v, err := strconv.ParseUint(t, 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("invalid umask '%s': expected octal value between 000 and 777", s)
	}
	return Umask(v), nil
}

func (m Umask) String() string {
	return fmt.Sprintf("%04o", uint32(m))
}

// Disposition is the signal setup applied right before duplication and
// inherited by both resulting processes.
type Disposition struct {
	IgnoreHangup bool
}

// Spawner creates the new process and returns its pid. Implementations
// return *DuplicationError, *SessionError or *ExecError on failure.
type Spawner interface {
	Spawn(ctx context.Context, req Request) (int, error)
}

type Options struct {
	Strategy    Strategy
	Umask       Umask
	Disposition Disposition
	// Self is the launcher binary used by the reexec strategy. Empty means
	// the currently running executable.
	Self string
}

type Launcher struct {
	spawner     Spawner
	disposition Disposition
}

func New(opts Options) (*Launcher, error) {
	s, err := newSpawner(opts)
	if err != nil {
		return nil, err
	}
	return &Launcher{spawner: s, disposition: opts.Disposition}, nil
}

// NewWithSpawner builds a Launcher around a custom duplication step.
func NewWithSpawner(s Spawner, d Disposition) *Launcher {
	return &Launcher{spawner: s, disposition: d}
}

// Launch applies the signal disposition and duplicates. The returned Result
// belongs to the original process only.
func (l *Launcher) Launch(ctx context.Context, req Request) (Result, error) {
	if req.Program == "" {
		return Result{}, ErrNoProgram
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if l.disposition.IgnoreHangup {
		ignoreHangup()
	}

	pid, err := l.spawner.Spawn(ctx, req)
	if err != nil {
		return Result{}, err
	}
	log.Debugf("Launched %s with PID %d", req.Program, pid)
	return Result{PID: pid}, nil
}
