package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/tabtree/pkg/config"
	"tableflip.dev/tabtree/pkg/structure"
)

// ErrNotFound is returned when no session is saved under a name.
var ErrNotFound = errors.New("store: window not found")

// Config locates the session store.
type Config interface {
	BasePath() string
}

// Window is a saved window session: its tabs in linear order as a full
// structure array.
type Window struct {
	Name   string           `json:"name"`
	Saved  time.Time        `json:"saved"`
	Active string           `json:"active,omitempty"`
	Items  []structure.Item `json:"items"`
}

// Persistence defines the persistence contract for window sessions.
type Persistence interface {
	Windows(ctx context.Context) []string
	Load(ctx context.Context, name string) (*Window, error)
	Save(w *Window) error
	Delete(name string) error
	Watch(ctx context.Context) (<-chan Event, error)
}

// Load creates a Persistence backed by diskv using the provided config.
func Load(cfg Config) (Persistence, error) {
	if cfg == nil {
		c, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	basePath := cfg.BasePath()
	if basePath == "" {
		return nil, errors.New("store: base path unknown")
	}
	return &persistence{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
	}), basePath: basePath}, nil
}

type persistence struct {
	d        *diskv.Diskv
	basePath string
}

const windowsDir = "windows"

func (p *persistence) read(key string) (*Window, error) {
	// Other processes write the same files, so skip the cache.
	r, err := p.d.ReadStream(key, true)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	val, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	w := &Window{}
	if err := json.Unmarshal(val, w); err != nil {
		return nil, err
	}
	if w.Name == "" {
		if w.Name, err = hexName(keyToPathTransform(key).FileName); err != nil {
			return nil, err
		}
	}
	if err := structure.Validate(w.Items); err != nil {
		return nil, fmt.Errorf("store: window %q: %w", w.Name, err)
	}
	return w, nil
}

func (p *persistence) Windows(ctx context.Context) []string {
	names := make([]string, 0)
	for key := range p.d.Keys(ctx.Done()) {
		pk := keyToPathTransform(key)
		if len(pk.Path) == 0 || pk.Path[0] != windowsDir {
			continue
		}
		name, err := hexName(pk.FileName)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *persistence) Load(ctx context.Context, name string) (*Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := toKey(name)
	if !p.d.Has(key) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p.read(key)
}

func (p *persistence) Save(w *Window) error {
	name := strings.TrimSpace(w.Name)
	if name == "" {
		return errors.New("store: window name required")
	}
	w.Name = name
	if w.Saved.IsZero() {
		w.Saved = time.Now()
	}
	if w.Items == nil {
		w.Items = []structure.Item{}
	}
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return p.d.Write(toKey(name), data)
}

func (p *persistence) Delete(name string) error {
	key := toKey(name)
	if !p.d.Has(key) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p.d.Erase(key)
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), pathKey.FileName)
}

// toKey makes `windows-<hex name>`
func toKey(name string) string {
	return fmt.Sprintf("%s-%s", windowsDir, hex.EncodeToString([]byte(name)))
}

func hexName(s string) (string, error) {
	name, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("store: bad window file %q: %w", s, err)
	}
	return string(name), nil
}
