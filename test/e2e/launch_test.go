//go:build linux || darwin

package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

// A long-running program is reported, runs under the reported
// pid and lives in a session of its own.
func TestLaunchSleep(t *testing.T) {
	for _, strategy := range []string{"reexec", "direct"} {
		t.Run(strategy, func(t *testing.T) {
			pid, o := launched(t, makeEnv(t), "--strategy", strategy, "sleep", "5")

			// Exactly one report and nothing else from the launcher.
			if out := o.readStdout(); out != fmt.Sprintf(`{"pid": %d}`, pid) {
				t.Fatalf("unexpected stdout: %q", out)
			}

			proc := waitForName(t, pid, "sleep")
			args, err := proc.CmdlineSlice()
			if err != nil {
				t.Fatalf("could not read cmdline: %v", err)
			}
			if strings.Join(args, " ") != "sleep 5" {
				t.Errorf("unexpected cmdline: %q", args)
			}

			sid, err := unix.Getsid(pid)
			if err != nil {
				t.Fatalf("getsid %d: %v", pid, err)
			}
			own, err := unix.Getsid(0)
			if err != nil {
				t.Fatalf("getsid self: %v", err)
			}
			if sid == own {
				t.Errorf("pid %d still in our session %d", pid, own)
			}
			if sid != pid {
				t.Errorf("pid %d is not its session leader, sid %d", pid, sid)
			}
		})
	}
}

// With the default strategy the pid is reported before the
// exec happens, the failure shows up on stderr of the new process.
func TestLaunchNonexistentReExec(t *testing.T) {
	pid, o := launched(t, makeEnv(t), "/nonexistent/binary")

	e := waitForFile(t, o.stderr, "exec /nonexistent/binary")
	if !strings.Contains(e, "no such file or directory") {
		t.Errorf("stderr did not contain the cause: %s", e)
	}
	waitFor(t, fmt.Sprintf("pid %d did not exit", pid), func() error {
		if !exited(pid) {
			return fmt.Errorf("running")
		}
		return nil
	})
	if out := o.readStdout(); out != fmt.Sprintf(`{"pid": %d}`, pid) {
		t.Errorf("unexpected stdout: %q", out)
	}
}

// In direct mode the launcher learns about the failure itself and
// reports nothing.
func TestLaunchNonexistentDirect(t *testing.T) {
	c, o, err := cliCommand(t, makeEnv(t), "--strategy", "direct", "/nonexistent/binary")
	if err != nil {
		t.Fatalf("failed to run CLI command: %v", err)
	}
	if c == 0 {
		t.Fatalf("exit code should be non-zero")
	}
	if out := o.readStdout(); out != "" {
		t.Errorf("stdout should be empty, got: %q", out)
	}
	if e := o.readStderr(); !strings.Contains(e, "exec /nonexistent/binary: no such file or directory") {
		t.Errorf("stderr did not contain exec failure: %s", e)
	}
}

func TestLaunchUnknownProgram(t *testing.T) {
	pid, o := launched(t, makeEnv(t), "detach-no-such-program")
	waitForFile(t, o.stderr, "executable file not found")
	waitFor(t, "stage did not exit", func() error {
		if !exited(pid) {
			return fmt.Errorf("running")
		}
		return nil
	})
}

// The program writes to its own stdout, which it inherited,
// independent of the report.
func TestLaunchEcho(t *testing.T) {
	for _, strategy := range []string{"reexec", "direct"} {
		t.Run(strategy, func(t *testing.T) {
			pid, o := launched(t, makeEnv(t), "--strategy", strategy, "echo", "hello", "world")

			out := waitForFile(t, o.stdout, "hello world\n")
			if !strings.Contains(out, fmt.Sprintf(`{"pid": %d}`, pid)) {
				t.Errorf("report missing from stdout: %q", out)
			}
			if strings.Count(out, `"pid"`) != 1 {
				t.Errorf("expected exactly one report: %q", out)
			}
		})
	}
}

// An executable without an interpreter line runs through /bin/sh.
func TestLaunchWithoutInterpreterLine(t *testing.T) {
	for _, strategy := range []string{"reexec", "direct"} {
		t.Run(strategy, func(t *testing.T) {
			dir := t.TempDir()
			script := filepath.Join(dir, "noshebang")
			out := filepath.Join(dir, "out")
			if err := os.WriteFile(script, []byte(`echo "$1" > "$2.tmp" && mv "$2.tmp" "$2"`+"\n"), 0o755); err != nil {
				t.Fatalf("could not write script: %v", err)
			}

			launched(t, makeEnv(t), "--strategy", strategy, script, "ran", out)

			if got := waitForFile(t, out, "\n"); got != "ran\n" {
				t.Errorf("unexpected script output: %q", got)
			}
		})
	}
}

// Arguments reach the program unmodified and unsplit, including ones that
// look like our own flags.
func TestLaunchArgumentFidelity(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	args := []string{"a b", "", "--umask", "077", "$HOME", "*", "--", "'quoted'", "tab\there"}

	cmds := append([]string{"sh", "-c", `for a in "$@"; do printf '[%s]\n' "$a"; done > "$0"`, out}, args...)
	launched(t, makeEnv(t), cmds...)

	var want strings.Builder
	for _, a := range args {
		want.WriteString("[" + a + "]\n")
	}
	got := waitForFile(t, out, "[tab\there]\n")
	if got != want.String() {
		t.Errorf("arguments changed:\nwant %q\ngot  %q", want.String(), got)
	}
}

func TestLaunchAfterDoubleDash(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	launched(t, makeEnv(t), "--", "sh", "-c", `printf '%s' "$1" > "$0"`, out, "--strategy")

	if got := waitForFile(t, out, "--strategy"); got != "--strategy" {
		t.Errorf("unexpected argument: %q", got)
	}
}

var sigIgnRegexp = regexp.MustCompile(`(?m)^SigIgn:\s*([0-9a-f]+)$`)

// The hangup disposition set before duplication survives the exec.
func TestLaunchIgnoresHangup(t *testing.T) {
	if !isLinux() {
		t.Skip("needs /proc")
	}
	pid, _ := launched(t, makeEnv(t), "sleep", "5")
	waitForName(t, pid, "sleep")

	status := readFile(fmt.Sprintf("/proc/%d/status", pid))
	m := sigIgnRegexp.FindStringSubmatch(status)
	if len(m) < 2 {
		t.Fatalf("no SigIgn in status: %s", status)
	}
	var mask uint64
	if _, err := fmt.Sscanf(m[1], "%x", &mask); err != nil {
		t.Fatalf("invalid SigIgn %q: %v", m[1], err)
	}
	if mask&(1<<(uint(unix.SIGHUP)-1)) == 0 {
		t.Errorf("SIGHUP not ignored, SigIgn %s", m[1])
	}
}
