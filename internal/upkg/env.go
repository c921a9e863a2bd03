package upkg

import (
	"strings"
	"sync"
)

// Env locates packages by name.
type Env interface {
	// Find returns candidate packages named name, in search order.
	Find(name string) []*Package
	// Invalidate drops any cached state for the named package.
	Invalidate(name string)
}

// Resolve finds the export named fullName whose class satisfies match.
// Packages are searched by the first path segment; an exact full-name match
// wins, otherwise the first export whose last name segment matches is used.
func Resolve(env Env, fullName string, match ClassMatch) (*Export, bool) {
	if match == nil {
		match = AnyClass
	}
	path := strings.Split(fullName, ".")
	pkgs := env.Find(path[0])
	for _, p := range pkgs {
		if e := p.FindExport(fullName, match); e != nil {
			return e, true
		}
	}
	last := path[len(path)-1]
	for _, p := range pkgs {
		if e := p.FindExportByObjectName(last, match); e != nil {
			return e, true
		}
	}
	return nil, false
}

// MemEnv is an Env over packages held in memory.
type MemEnv struct {
	mu   sync.Mutex
	pkgs map[string][]*Package
}

// NewMemEnv returns an environment containing pkgs.
func NewMemEnv(pkgs ...*Package) *MemEnv {
	e := &MemEnv{pkgs: make(map[string][]*Package)}
	for _, p := range pkgs {
		e.Add(p)
	}
	return e
}

// Add registers p under its package name. Later additions are searched last.
func (e *MemEnv) Add(p *Package) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := strings.ToLower(p.Name)
	e.pkgs[key] = append(e.pkgs[key], p)
}

func (e *MemEnv) Find(name string) []*Package {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Package(nil), e.pkgs[strings.ToLower(name)]...)
}

func (e *MemEnv) Invalidate(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pkgs, strings.ToLower(name))
}
