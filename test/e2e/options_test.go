//go:build linux || darwin

package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func isLinux() bool { return runtime.GOOS == "linux" }

// withUmask runs the launcher under an unusual mask, which must not leak
// into the program.
func withUmask(t *testing.T, mask int) {
	old := unix.Umask(mask)
	t.Cleanup(func() { unix.Umask(old) })
}

func TestUmaskDefault(t *testing.T) {
	withUmask(t, 0o077)
	for _, strategy := range []string{"reexec", "direct"} {
		t.Run(strategy, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "umask")
			launched(t, makeEnv(t), "--strategy", strategy, "sh", "-c", `umask > "$0"`, out)

			if got := strings.TrimSpace(waitForFile(t, out, "\n")); got != "0022" {
				t.Errorf("umask should be 0022, got %s", got)
			}
		})
	}
}

func TestUmaskFlag(t *testing.T) {
	out := filepath.Join(t.TempDir(), "umask")
	launched(t, makeEnv(t), "--umask", "027", "sh", "-c", `umask > "$0"`, out)

	if got := strings.TrimSpace(waitForFile(t, out, "\n")); got != "0027" {
		t.Errorf("umask should be 0027, got %s", got)
	}
}

func TestUmaskFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte("umask: \"007\"\n"), 0o600); err != nil {
		t.Fatalf("could not write config: %v", err)
	}
	out := filepath.Join(dir, "umask")
	launched(t, makeEnv(t), "--config", cfg, "sh", "-c", `umask > "$0"`, out)

	if got := strings.TrimSpace(waitForFile(t, out, "\n")); got != "0007" {
		t.Errorf("umask should be 0007, got %s", got)
	}
}

func TestEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "app.env")
	if err := os.WriteFile(envFile, []byte("FROM_FILE=1\nOVERRIDDEN=file\n"), 0o600); err != nil {
		t.Fatalf("could not write env file: %v", err)
	}
	out := filepath.Join(dir, "env")
	env := append(makeEnv(t), "DETACH_E2E_INHERITED=yes")

	launched(t, env,
		"--env-file", envFile,
		"--env", "OVERRIDDEN=flag",
		"--env", "SPACED=a b",
		"sh", "-c", `env > "$0.tmp" && mv "$0.tmp" "$0"`, out)

	got := waitForFile(t, out, "FROM_FILE=1")
	for _, want := range []string{"DETACH_E2E_INHERITED=yes", "OVERRIDDEN=flag", "SPACED=a b"} {
		if !strings.Contains(got, want+"\n") {
			t.Errorf("environment is missing %s:\n%s", want, got)
		}
	}
}

func TestClearEnvironment(t *testing.T) {
	out := filepath.Join(t.TempDir(), "env")
	env := append(makeEnv(t), "DETACH_E2E_INHERITED=yes")

	launched(t, env, "--clear-env", "--env", "ONLY=this", "--env", "PATH=/usr/bin:/bin",
		"sh", "-c", `env > "$0.tmp" && mv "$0.tmp" "$0"`, out)

	got := waitForFile(t, out, "ONLY=this")
	if strings.Contains(got, "DETACH_E2E_INHERITED") {
		t.Errorf("environment was inherited:\n%s", got)
	}
}

func TestWorkingDirectory(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("could not resolve temp dir: %v", err)
	}
	launched(t, makeEnv(t), "--dir", dir, "sh", "-c", `pwd > pwd.tmp && mv pwd.tmp pwd`)

	if got := strings.TrimSpace(waitForFile(t, filepath.Join(dir, "pwd"), "/")); got != dir {
		t.Errorf("working directory should be %s, got %s", dir, got)
	}
}

func TestWorkingDirectoryMissing(t *testing.T) {
	pid, o := launched(t, makeEnv(t), "--dir", "/nonexistent/dir", "sleep", "1")

	waitForFile(t, o.stderr, "chdir /nonexistent/dir: no such file or directory")
	waitFor(t, "stage did not exit", func() error {
		if !exited(pid) {
			return fmt.Errorf("running")
		}
		return nil
	})
}
