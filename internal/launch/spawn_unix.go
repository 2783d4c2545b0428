//go:build unix

package launch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

func ignoreHangup() {
	signal.Ignore(unix.SIGHUP)
}

func newSpawner(opts Options) (Spawner, error) {
	switch opts.Strategy {
	case ReExec, "":
		self := opts.Self
		if self == "" {
			ex, err := os.Executable()
			if err != nil {
				return nil, fmt.Errorf("could not determine executable path: %v", err)
			}
			self = ex
		}
		return &reexecSpawner{self: self, umask: opts.Umask}, nil
	case Direct:
		return &directSpawner{umask: opts.Umask}, nil
	}
	return nil, fmt.Errorf("unknown strategy '%s'", opts.Strategy)
}

// reexecSpawner duplicates by starting the launcher binary again in stage
// mode. The stage inherits our stdio, environment and signal dispositions,
// and later turns into the program under the same pid.
type reexecSpawner struct {
	self  string
	umask Umask
}

func (s *reexecSpawner) Spawn(_ context.Context, req Request) (int, error) {
	cmd := exec.Command(s.self, StageArgs(s.umask, req)...)
	cmd.Env = req.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, &DuplicationError{Err: err}
	}
	pid := cmd.Process.Pid
	// The stage is never waited for, it outlives us.
	cmd.Process.Release()
	return pid, nil
}

// directSpawner collapses duplication, session creation and exec into one
// fork/exec. Child-side failures are reported to us before Start returns.
type directSpawner struct {
	umask Umask
}

func (s *directSpawner) Spawn(_ context.Context, req Request) (int, error) {
	env := req.Env
	if env == nil {
		env = os.Environ()
	}
	path, err := LookPath(req.Program, env)
	if err != nil {
		return 0, &ExecError{Program: req.Program, Err: err}
	}
	if req.Dir != "" {
		// Otherwise a failed chdir in the child reads like a missing program.
		if err := unix.Access(req.Dir, unix.X_OK); err != nil {
			return 0, &ExecError{Op: "chdir", Program: req.Dir, Err: err}
		}
	}

	// The mask is inherited through fork, ours is restored right after.
	old := unix.Umask(int(s.umask))
	defer unix.Umask(old)

	cmd := directCmd(req, path, req.Argv())
	err = cmd.Start()
	if errors.Is(err, unix.ENOEXEC) {
		// No interpreter line, run it as a shell script like execvp does.
		cmd = directCmd(req, Shell, ShellArgv(path, req.Args))
		err = cmd.Start()
	}
	if err != nil {
		return 0, classifyStartError(req.Program, err)
	}
	pid := cmd.Process.Pid
	cmd.Process.Release()
	return pid, nil
}

func directCmd(req Request, path string, argv []string) *exec.Cmd {
	return &exec.Cmd{
		Path:        path,
		Args:        argv,
		Env:         req.Env,
		Dir:         req.Dir,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		SysProcAttr: &syscall.SysProcAttr{Setsid: true},
	}
}

func classifyStartError(program string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ENOMEM) {
		return &DuplicationError{Err: err}
	}
	return &ExecError{Program: program, Err: err}
}
