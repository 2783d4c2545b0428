//go:build !unix

package launch

import (
	"fmt"
	"runtime"
)

func ignoreHangup() {}

func newSpawner(opts Options) (Spawner, error) {
	return nil, fmt.Errorf("detaching processes is not supported on %s", runtime.GOOS)
}
