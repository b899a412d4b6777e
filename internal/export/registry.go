package export

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/JonMunkholm/leads/internal/core"
)

// Registry indexes exporters by type key.
//
// Candidates are validated and indexed once, on first use, behind a
// sync.Once; concurrent first calls are safe. A candidate that is nil or
// has an empty or duplicate type key makes every call fail with a
// *core.IntegrityError. Unavailable candidates are skipped and the scan
// continues with the next one.
type Registry struct {
	candidates []Exporter

	once      sync.Once
	err       error
	available []Exporter
	byType    map[string]Exporter
}

// NewRegistry creates a registry over candidates. Nothing is inspected
// until the first lookup.
func NewRegistry(candidates ...Exporter) *Registry {
	return &Registry{candidates: candidates}
}

func (r *Registry) load() error {
	r.once.Do(func() {
		byType := make(map[string]Exporter, len(r.candidates))
		seen := make(map[string]bool, len(r.candidates))
		var available []Exporter

		for i, c := range r.candidates {
			if isNil(c) {
				r.err = &core.IntegrityError{Reason: fmt.Sprintf("exporter candidate %d is nil", i)}
				return
			}
			key := c.Type()
			if key == "" {
				r.err = &core.IntegrityError{Reason: fmt.Sprintf("exporter %T has an empty type key", c)}
				return
			}
			if seen[key] {
				r.err = &core.IntegrityError{Reason: fmt.Sprintf("exporter type %q registered twice", key)}
				return
			}
			seen[key] = true

			if !c.Available() {
				continue
			}
			byType[key] = c
			available = append(available, c)
		}

		r.byType = byType
		r.available = available
	})
	return r.err
}

// isNil reports whether e is nil or wraps a nil pointer.
func isNil(e Exporter) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Available returns the usable exporters in registration order.
func (r *Registry) Available() ([]Exporter, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	out := make([]Exporter, len(r.available))
	copy(out, r.available)
	return out, nil
}

// Types returns the usable type keys, sorted.
func (r *Registry) Types() ([]string, error) {
	list, err := r.Available()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(list))
	for i, e := range list {
		keys[i] = e.Type()
	}
	sort.Strings(keys)
	return keys, nil
}

// Resolve returns the exporter for typ, or a *core.NotFoundError.
func (r *Registry) Resolve(typ string) (Exporter, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	e, ok := r.byType[typ]
	if !ok {
		return nil, core.NewNotFound("exporter", typ)
	}
	return e, nil
}
