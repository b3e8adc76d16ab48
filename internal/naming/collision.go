package naming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// CollisionResolver tracks target paths claimed by source files within one
// rename pass and resolves duplicates by inserting "_dupNN" before the
// extension (NN is a two-digit counter starting at 01). Sources claim names
// in the order Resolve is called, so a fixed processing order yields fixed
// names. Not safe for concurrent use.
type CollisionResolver struct {
	owners   map[string]string // target path → source path that owns it
	counters map[string]int    // requested path → next dup counter
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the final target path for source. occupied reports whether
// a path is held on disk; it may be nil. source's own path never counts as
// occupied. If requested is free it is returned as-is and dup is false.
// When requested is taken and source already carries one of its "_dupNN"
// names, source keeps that name.
func (cr *CollisionResolver) Resolve(source, requested string, occupied func(string) bool) (target string, dup bool) {
	free := func(p string) bool {
		owner, claimed := cr.owners[p]
		if claimed && owner != source {
			return false
		}
		return p == source || occupied == nil || !occupied(p)
	}

	if free(requested) {
		cr.owners[requested] = source
		return requested, false
	}

	dir := filepath.Dir(requested)
	base := filepath.Base(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if filepath.Dir(source) == dir && isDupName(filepath.Base(source), stem, ext) && free(source) {
		cr.owners[source] = source
		return source, false
	}

	counter := cr.counters[requested]
	if counter == 0 {
		counter = 1
	}
	for {
		candidate := filepath.Join(dir, DupName(stem, counter, ext))
		if free(candidate) {
			cr.counters[requested] = counter + 1
			cr.owners[candidate] = source
			return candidate, true
		}
		counter++
	}
}

// Release forgets a claim, e.g. when the rename it was made for failed.
func (cr *CollisionResolver) Release(target string) {
	delete(cr.owners, target)
}

// isDupName reports whether name is DupName(stem, n, ext) for some n >= 1.
func isDupName(name, stem, ext string) bool {
	rest, ok := strings.CutPrefix(name, stem+"_dup")
	if !ok {
		return false
	}
	digits, ok := strings.CutSuffix(rest, ext)
	if !ok || len(digits) < 2 {
		return false
	}
	n, err := strconv.Atoi(digits)
	return err == nil && n >= 1 && DupName(stem, n, ext) == name
}

// DupName formats the n-th disambiguated name for stem and ext.
func DupName(stem string, n int, ext string) string {
	return fmt.Sprintf("%s_dup%02d%s", stem, n, ext)
}
