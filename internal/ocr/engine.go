// Package ocr prepares images for text recognition and defines the engine
// contract shared by the remote and local recognizers.
package ocr

import (
	"context"
	"sort"
	"sync"
)

// Engine recognizes the text in a JPEG image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// Factory builds a local engine. Remote engines are constructed directly
// from configuration.
type Factory func() Engine

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes a local engine available under name. It is called from the
// init function of engine packages that are compiled in.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Registered lists the names of the compiled-in local engines.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
