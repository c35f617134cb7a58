// Package history models the navigation collaborator query bindings write
// to: a current location plus push/replace navigation and change listeners.
package history

import (
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/vango-dev/paramstate/pkg/reactive"
)

// Location is a path plus query string. Search never includes the leading
// "?".
type Location struct {
	Path   string
	Search string
}

// ParseLocation splits a raw path such as "/home?q=9" into a Location.
func ParseLocation(raw string) Location {
	path, search, _ := strings.Cut(raw, "?")
	if path == "" {
		path = "/"
	}
	return Location{Path: path, Search: search}
}

// String renders the location as a path with an optional query.
func (l Location) String() string {
	if l.Search == "" {
		return l.Path
	}
	return l.Path + "?" + l.Search
}

// Query parses the search string.
func (l Location) Query() url.Values {
	v, _ := url.ParseQuery(l.Search)
	return v
}

// Action describes how the current location changed.
type Action uint8

const (
	ActionPush Action = iota + 1
	ActionReplace
	ActionPop
)

func (a Action) String() string {
	switch a {
	case ActionPush:
		return "push"
	case ActionReplace:
		return "replace"
	case ActionPop:
		return "pop"
	default:
		return "unknown"
	}
}

// Listener is notified after every location change.
type Listener func(loc Location, action Action)

// History is the navigation collaborator. Push and Replace change only the
// query string; the path is preserved.
type History interface {
	Location() Location
	Push(search string)
	Replace(search string)
	Listen(fn Listener) (stop func())
}

// Context carries the History for a component tree.
var Context = reactive.CreateContext[History](nil)

// Listeners is the listener bookkeeping shared by History implementations.
// The zero value is ready to use.
type Listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]Listener
}

// Add registers fn and returns its stop function.
func (l *Listeners) Add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// Emit calls every listener in registration order, outside the lock.
func (l *Listeners) Emit(loc Location, action Action) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(loc, action)
	}
}

// Memory is an in-process History with a stack of entries, like a browser
// tab. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries []Location
	index   int

	listeners Listeners
}

var _ History = (*Memory)(nil)

// NewMemory creates a history positioned at raw (e.g. "/home?q=9").
func NewMemory(raw string) *Memory {
	return &Memory{entries: []Location{ParseLocation(raw)}}
}

// Location implements History.
func (m *Memory) Location() Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Push implements History. Entries after the current one are discarded.
func (m *Memory) Push(search string) {
	m.mu.Lock()
	loc := Location{Path: m.entries[m.index].Path, Search: search}
	m.entries = append(m.entries[:m.index+1], loc)
	m.index++
	m.mu.Unlock()

	m.listeners.Emit(loc, ActionPush)
}

// Replace implements History.
func (m *Memory) Replace(search string) {
	m.mu.Lock()
	loc := Location{Path: m.entries[m.index].Path, Search: search}
	m.entries[m.index] = loc
	m.mu.Unlock()

	m.listeners.Emit(loc, ActionReplace)
}

// Navigate pushes a new entry with a different path and query.
func (m *Memory) Navigate(raw string) {
	loc := ParseLocation(raw)
	m.mu.Lock()
	m.entries = append(m.entries[:m.index+1], loc)
	m.index++
	m.mu.Unlock()

	m.listeners.Emit(loc, ActionPush)
}

// Go moves delta entries back (negative) or forward (positive). Moves past
// either end are ignored.
func (m *Memory) Go(delta int) bool {
	m.mu.Lock()
	target := m.index + delta
	if delta == 0 || target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.index = target
	loc := m.entries[target]
	m.mu.Unlock()

	m.listeners.Emit(loc, ActionPop)
	return true
}

// Back is Go(-1).
func (m *Memory) Back() bool { return m.Go(-1) }

// Forward is Go(1).
func (m *Memory) Forward() bool { return m.Go(1) }

// Len returns the number of entries in the stack.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Listen implements History.
func (m *Memory) Listen(fn Listener) func() {
	return m.listeners.Add(fn)
}
