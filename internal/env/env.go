// Package env composes the environment a launched program starts with.
package env

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Spec describes how to derive the program's environment from ours.
type Spec struct {
	Clear bool
	// Files are dotenv files applied in order, later files win.
	Files []string
	// Overrides are KEY=VALUE pairs applied last, later pairs win.
	Overrides []string
}

// Empty reports whether the spec leaves the inherited environment as is.
func (s Spec) Empty() bool {
	return !s.Clear && len(s.Files) == 0 && len(s.Overrides) == 0
}

// Compose applies s on top of base. Existing keys keep their position,
// new keys are appended in the order they were first set.
func Compose(base []string, s Spec) ([]string, error) {
	var b builder
	if !s.Clear {
		for _, kv := range base {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			b.set(k, v)
		}
	}

	for _, f := range s.Files {
		m, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("could not read env file: %w", err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.set(k, m[k])
		}
	}

	for _, kv := range s.Overrides {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid environment override '%s', expected KEY=VALUE", kv)
		}
		b.set(k, v)
	}

	return b.list(), nil
}

type builder struct {
	keys []string
	vals map[string]string
}

func (b *builder) set(k, v string) {
	if b.vals == nil {
		b.vals = make(map[string]string)
	}
	if _, ok := b.vals[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.vals[k] = v
}

func (b *builder) list() []string {
	out := make([]string, len(b.keys))
	for i, k := range b.keys {
		out[i] = k + "=" + b.vals[k]
	}
	return out
}
