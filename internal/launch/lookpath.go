package launch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// defaultPath is searched when the environment carries no PATH, as execvp does.
const defaultPath = "/usr/local/bin:/usr/bin:/bin"

// Shell runs executables that have no interpreter line.
const Shell = "/bin/sh"

// ShellArgv is the argument vector for running path as a shell script.
func ShellArgv(path string, args []string) []string {
	return append([]string{Shell, path}, args...)
}

var errNotFound = errors.New("executable file not found in $PATH")

// LookPath resolves file with the executable-search rules of execvp, using
// the PATH from env rather than from the running process. Names containing
// a slash are returned untouched so that exec reports the real cause.
func LookPath(file string, env []string) (string, error) {
	if strings.Contains(file, "/") {
		return file, nil
	}
	path, ok := lookupEnv(env, "PATH")
	if !ok {
		path = defaultPath
	}
	var denied error
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		p := filepath.Join(dir, file)
		if err := findExecutable(p); err == nil {
			if !strings.Contains(p, "/") {
				p = "./" + p
			}
			return p, nil
		} else if errors.Is(err, fs.ErrPermission) && denied == nil {
			denied = err
		}
	}
	if denied != nil {
		return "", denied
	}
	return "", errNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	m := d.Mode()
	if m.IsDir() {
		return fs.ErrNotExist
	}
	if m&0o111 == 0 {
		return fs.ErrPermission
	}
	return nil
}

func lookupEnv(env []string, key string) (string, bool) {
	// Last occurrence wins, like os/exec does with duplicate keys.
	for i := len(env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}
