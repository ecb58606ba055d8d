package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// seriesEntry is one label combination of a family.
type seriesEntry struct {
	key    string
	labels Labels
	inst   instance
}

// family owns every instance of one metric, keyed by canonical label key.
type family struct {
	name        string
	help        string
	kind        MetricType
	labelNames  []string
	newInstance func() instance
	handle      *Handle

	mu        sync.RWMutex
	instances map[string]*seriesEntry

	// removed is set once the registry drops the family.
	removed atomic.Bool
}

func newFamily(name, help string, kind MetricType, labelNames []string, newInstance func() instance) *family {
	f := &family{
		name:        name,
		help:        help,
		kind:        kind,
		labelNames:  labelNames,
		newInstance: newInstance,
		instances:   make(map[string]*seriesEntry),
	}
	if len(labelNames) == 0 {
		f.instances[""] = &seriesEntry{inst: newInstance()}
	}
	return f
}

// apply runs op against the instance for key, creating it on first use.
// A new instance only becomes visible if op succeeded on it, so a rejected
// operation never leaves a zero-valued series behind.
func (f *family) apply(key string, labels Labels, op func(instance) error) error {
	f.mu.RLock()
	e, ok := f.instances[key]
	f.mu.RUnlock()
	if ok {
		return op(e.inst)
	}

	inst := f.newInstance()
	if err := op(inst); err != nil {
		return err
	}

	f.mu.Lock()
	// Double-check after acquiring write lock
	e, ok = f.instances[key]
	if !ok {
		f.instances[key] = &seriesEntry{key: key, labels: copyLabels(labels), inst: inst}
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	// Lost the race; the fresh instance is discarded.
	return op(e.inst)
}

func (f *family) get(key string) (instance, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.instances[key]
	if !ok {
		return nil, false
	}
	return e.inst, true
}

func (f *family) remove(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instances[key]; !ok {
		return false
	}
	if len(f.labelNames) == 0 {
		// The single unlabeled series always exists.
		f.instances[key].inst.reset()
		return true
	}
	delete(f.instances, key)
	return true
}

func (f *family) reset() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.instances {
		e.inst.reset()
	}
}

// snapshot copies the family. Each series is read under its own lock;
// series are sorted by canonical key.
func (f *family) snapshot() Family {
	f.mu.RLock()
	entries := make([]*seriesEntry, 0, len(f.instances))
	for _, e := range f.instances {
		entries = append(entries, e)
	}
	f.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := Family{
		Name:       f.name,
		Help:       f.help,
		Type:       f.kind,
		LabelNames: append([]string(nil), f.labelNames...),
		Samples:    make([]Sample, 0, len(entries)),
	}
	for _, e := range entries {
		s := e.inst.collect()
		s.Labels = copyLabels(e.labels)
		out.Samples = append(out.Samples, s)
	}
	return out
}
