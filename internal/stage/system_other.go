//go:build !unix

package stage

import (
	"errors"
	"runtime"
)

var errNoExec = errors.New("exec format error")

var errUnsupported = errors.New("detaching processes is not supported on " + runtime.GOOS)

type unixSystem struct{}

func (unixSystem) Setsid() (int, error) { return 0, errUnsupported }

func (unixSystem) Umask(mask int) int { return 0 }

func (unixSystem) Chdir(dir string) error { return errUnsupported }

func (unixSystem) Exec(path string, argv []string, env []string) error { return errUnsupported }
