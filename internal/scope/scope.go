// Package scope maintains the include/exclude folder sets that decide which
// parts of the vault are synchronized. The resolver owns set membership only;
// hierarchy traversal is applied by the indexer when it combines these sets
// with the enumerated folder tree.
package scope

import (
	"sort"
	"sync"
)

// RootExclusionError is returned when a caller attempts to exclude the vault
// root. Root exclusion is refused, never silently ignored; the message is a
// translation key for the surfaces that display it.
type RootExclusionError struct{}

func (e *RootExclusionError) Error() string {
	return "The vault root cannot be excluded"
}

// Resolver holds two disjoint folder sets over vault-relative paths. The
// empty string denotes the vault root and is a valid include entry only.
// All mutations are idempotent. Resolver is safe for concurrent use: an
// in-flight sync reads the sets while folder mutations land.
type Resolver struct {
	mu      sync.RWMutex
	include map[string]struct{}
	exclude map[string]struct{}
}

// NewResolver builds a resolver from persisted folder lists. Root entries in
// the exclude list are dropped; they can only appear through manual edits of
// the settings file.
func NewResolver(include, exclude []string) *Resolver {
	r := &Resolver{
		include: make(map[string]struct{}, len(include)),
		exclude: make(map[string]struct{}, len(exclude)),
	}
	for _, f := range include {
		r.include[f] = struct{}{}
	}
	for _, f := range exclude {
		if f == "" {
			continue
		}
		r.exclude[f] = struct{}{}
	}
	return r
}

// AddInclude adds folder to the include set. It reports whether the set
// changed.
func (r *Resolver) AddInclude(folder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.include[folder]; ok {
		return false
	}
	r.include[folder] = struct{}{}
	return true
}

// RemoveInclude removes folder from the include set. It reports whether the
// set changed.
func (r *Resolver) RemoveInclude(folder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.include[folder]; !ok {
		return false
	}
	delete(r.include, folder)
	return true
}

// AddExclude adds folder to the exclude set. Excluding the vault root fails
// with a *RootExclusionError and leaves the set untouched.
func (r *Resolver) AddExclude(folder string) (bool, error) {
	if folder == "" {
		return false, &RootExclusionError{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exclude[folder]; ok {
		return false, nil
	}
	r.exclude[folder] = struct{}{}
	return true, nil
}

// RemoveExclude removes folder from the exclude set. It reports whether the
// set changed.
func (r *Resolver) RemoveExclude(folder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exclude[folder]; !ok {
		return false
	}
	delete(r.exclude, folder)
	return true
}

// HasInclude reports include-set membership for the exact path.
func (r *Resolver) HasInclude(folder string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.include[folder]
	return ok
}

// HasExclude reports exclude-set membership for the exact path.
func (r *Resolver) HasExclude(folder string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.exclude[folder]
	return ok
}

// Includes returns the include set as a sorted slice.
func (r *Resolver) Includes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sorted(r.include)
}

// Excludes returns the exclude set as a sorted slice.
func (r *Resolver) Excludes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sorted(r.exclude)
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
