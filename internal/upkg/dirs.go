package upkg

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/ini.v1"

	"uepkg/internal/ufmt"
)

// DefaultPaths mirrors the stock [Core.System] Paths entries.
var DefaultPaths = []string{
	"../System/*.u",
	"../Maps/*.unr",
	"../Textures/*.utx",
	"../Sounds/*.uax",
	"../Music/*.umx",
	"../StaticMeshes/*.usx",
	"../Animations/*.ukx",
}

// DirEnv finds packages on disk through glob patterns relative to a system
// directory. Opened packages are cached by name until invalidated.
type DirEnv struct {
	Root     string
	Patterns []string
	Charset  *ufmt.Charset
	Log      *slog.Logger

	mu    sync.Mutex
	cache map[string][]*Package
}

// NewDirEnv returns an environment searching patterns under root. Empty
// patterns fall back to DefaultPaths.
func NewDirEnv(root string, patterns []string) *DirEnv {
	if len(patterns) == 0 {
		patterns = DefaultPaths
	}
	return &DirEnv{
		Root:     root,
		Patterns: patterns,
		Log:      slog.Default(),
		cache:    make(map[string][]*Package),
	}
}

// IniPaths reads the repeated Paths= keys of the [Core.System] section of a
// game INI file.
func IniPaths(path string) ([]string, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:            true,
		Insensitive:             true,
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("upkg: load ini %s: %w", path, err)
	}
	sec, err := cfg.GetSection("core.system")
	if err != nil {
		return nil, fmt.Errorf("upkg: %s: [Core.System]: %w", path, ufmt.ErrNotFound)
	}
	var out []string
	for _, v := range sec.Key("paths").ValueWithShadows() {
		v = strings.TrimSpace(strings.ReplaceAll(v, `\`, "/"))
		if v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// NewDirEnvFromIni builds a DirEnv rooted at the INI file's directory using
// its Paths entries.
func NewDirEnvFromIni(path string) (*DirEnv, error) {
	patterns, err := IniPaths(path)
	if err != nil {
		return nil, err
	}
	return NewDirEnv(filepath.Dir(path), patterns), nil
}

func (e *DirEnv) Find(name string) []*Package {
	key := strings.ToLower(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if pkgs, ok := e.cache[key]; ok {
		return pkgs
	}

	var pkgs []*Package
	seen := make(map[string]bool)
	for _, pattern := range e.Patterns {
		matches, err := filepath.Glob(filepath.Join(e.Root, filepath.FromSlash(pattern)))
		if err != nil {
			e.Log.Warn("bad search pattern", "pattern", pattern, "err", err)
			continue
		}
		for _, m := range matches {
			base := filepath.Base(m)
			if !strings.EqualFold(strings.TrimSuffix(base, filepath.Ext(base)), name) {
				continue
			}
			abs, _ := filepath.Abs(m)
			if seen[abs] {
				continue
			}
			seen[abs] = true
			p, err := Open(m, e.Charset)
			if err != nil {
				e.Log.Warn("skipping package", "path", m, "err", err)
				continue
			}
			pkgs = append(pkgs, p)
		}
	}
	e.cache[key] = pkgs
	return pkgs
}

func (e *DirEnv) Invalidate(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cache, strings.ToLower(name))
}
