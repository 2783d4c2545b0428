// Package stage runs inside the re-executed launcher and turns it into the
// requested program: new session, fixed umask, then exec under the same pid.
package stage

import (
	"errors"
	"fmt"
	"os"

	"github.com/alebeck/detach/internal/launch"
	"github.com/alebeck/detach/internal/log"
)

const Flag = launch.StageFlag

type State int

const (
	Spawned State = iota
	SessionCreated
	MaskReset
	ProgramReplaced
	SessionFailed
	ExecFailed
)

var stateNames = map[State]string{
	Spawned:         "Spawned",
	SessionCreated:  "SessionCreated",
	MaskReset:       "MaskReset",
	ProgramReplaced: "ProgramReplaced",
	SessionFailed:   "SessionFailed",
	ExecFailed:      "ExecFailed",
}

func (s State) String() string {
	n, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("%d", int(s))
	}
	return n
}

// system holds the calls that make up the protocol.
type system interface {
	Setsid() (int, error)
	Umask(mask int) int
	Chdir(dir string) error
	Exec(path string, argv []string, env []string) error
}

type machine struct {
	sys   system
	state State
}

func (m *machine) to(s State) {
	log.Debugf("Stage %d: %v -> %v", os.Getpid(), m.state, s)
	m.state = s
}

// run only returns on failure. A nil error is only possible with a system
// whose Exec returns after success, as in tests.
func (m *machine) run(mask launch.Umask, req launch.Request, env []string) error {
	if _, err := m.sys.Setsid(); err != nil {
		m.to(SessionFailed)
		return &launch.SessionError{Err: err}
	}
	m.to(SessionCreated)

	m.sys.Umask(int(mask))
	m.to(MaskReset)

	if req.Dir != "" {
		if err := m.sys.Chdir(req.Dir); err != nil {
			m.to(ExecFailed)
			return &launch.ExecError{Op: "chdir", Program: req.Dir, Err: err}
		}
	}
	path, err := launch.LookPath(req.Program, env)
	if err != nil {
		m.to(ExecFailed)
		return &launch.ExecError{Program: req.Program, Err: err}
	}
	err = m.sys.Exec(path, req.Argv(), env)
	if errors.Is(err, errNoExec) {
		// No interpreter line, run it as a shell script like execvp does.
		err = m.sys.Exec(launch.Shell, launch.ShellArgv(path, req.Args), env)
	}
	if err != nil {
		m.to(ExecFailed)
		return &launch.ExecError{Program: req.Program, Err: err}
	}
	m.to(ProgramReplaced)
	return nil
}

// Run executes the protocol for the arguments following Flag and returns an
// exit status if the program could not be started.
func Run(args []string) int {
	mask, req, err := launch.ParseStageArgs(args)
	if err != nil {
		log.Errorf("Invalid stage invocation: %v", err)
		return 2
	}
	m := &machine{sys: unixSystem{}, state: Spawned}
	if err := m.run(mask, req, os.Environ()); err != nil {
		log.Errorf("%v", err)
		return 1
	}
	return 0
}
