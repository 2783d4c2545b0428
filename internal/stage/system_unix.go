//go:build unix

package stage

import "golang.org/x/sys/unix"

var errNoExec error = unix.ENOEXEC

type unixSystem struct{}

func (unixSystem) Setsid() (int, error) { return unix.Setsid() }

func (unixSystem) Umask(mask int) int { return unix.Umask(mask) }

func (unixSystem) Chdir(dir string) error { return unix.Chdir(dir) }

func (unixSystem) Exec(path string, argv []string, env []string) error {
	return unix.Exec(path, argv, env)
}
