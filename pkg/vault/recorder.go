package vault

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/metricsd/metricsd/pkg/logging"
	"github.com/metricsd/metricsd/pkg/metrics"
)

// Op is a file operation.
type Op string

// File operations, used as the operation label value.
const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
	OpRename Op = "rename"
)

// Event is one file operation reported by the host.
type Event struct {
	Op   Op
	Path string
	// OldPath is the previous path of a rename. When empty, a rename only
	// removes Path; the new name arrives as a separate create.
	OldPath string
	// Size is the file size in bytes, or -1 when unknown.
	Size int64
	Time time.Time
}

// Recorder applies host events to the built-in metrics.
type Recorder struct {
	b      *metrics.Builtins
	logger *slog.Logger

	mu      sync.Mutex
	known   map[string]struct{}
	lastMod map[string]time.Time
}

// NewRecorder returns a Recorder updating b.
func NewRecorder(b *metrics.Builtins, logger *slog.Logger) *Recorder {
	return &Recorder{
		b:       b,
		logger:  logging.Component(logger, "recorder"),
		known:   make(map[string]struct{}),
		lastMod: make(map[string]time.Time),
	}
}

// Extension returns the extension label value for path: lowercase, without
// the dot, or "none".
func Extension(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "none"
	}
	return ext
}

// Seed marks path as present without counting an operation. It is used for
// files found by the initial scan.
func (r *Recorder) Seed(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.track(path)
}

// Record applies one event. Every metric is attempted; the returned error
// joins any failures.
func (r *Recorder) Record(ev Event) error {
	stop, err := r.b.EventProcessing.StartTimer()
	if err == nil {
		defer stop()
	}

	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	var errs []error
	errs = append(errs, err)
	errs = append(errs, r.inc(r.b.FileOperations, metrics.Labels{
		"operation": string(ev.Op),
		"extension": Extension(ev.Path),
	}))

	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Op {
	case OpCreate:
		errs = append(errs, r.track(ev.Path), r.observeSize(ev))
		r.lastMod[ev.Path] = ev.Time
	case OpModify:
		errs = append(errs, r.track(ev.Path), r.observeSize(ev))
		if last, ok := r.lastMod[ev.Path]; ok && ev.Time.After(last) {
			errs = append(errs, r.observe(r.b.ModificationInterval, ev.Path, ev.Time.Sub(last).Seconds()))
		}
		r.lastMod[ev.Path] = ev.Time
	case OpDelete:
		errs = append(errs, r.untrack(ev.Path))
		delete(r.lastMod, ev.Path)
	case OpRename:
		if ev.OldPath == "" {
			errs = append(errs, r.untrack(ev.Path))
			delete(r.lastMod, ev.Path)
			break
		}
		errs = append(errs, r.untrack(ev.OldPath), r.track(ev.Path))
		if last, ok := r.lastMod[ev.OldPath]; ok {
			r.lastMod[ev.Path] = last
			delete(r.lastMod, ev.OldPath)
		}
	default:
		errs = append(errs, errors.New("unknown file operation "+string(ev.Op)))
	}

	if err := errors.Join(errs...); err != nil {
		r.logger.Debug("event partially recorded", "op", ev.Op, "path", ev.Path, "error", err)
		return err
	}
	return nil
}

// track adds path to files_total once. The caller must hold r.mu.
func (r *Recorder) track(path string) error {
	if _, ok := r.known[path]; ok {
		return nil
	}
	r.known[path] = struct{}{}
	return r.inc(r.b.Files, metrics.Labels{"extension": Extension(path)})
}

// untrack removes path from files_total. The caller must hold r.mu.
func (r *Recorder) untrack(path string) error {
	if _, ok := r.known[path]; !ok {
		return nil
	}
	delete(r.known, path)
	s, err := r.b.Files.With(metrics.Labels{"extension": Extension(path)})
	if err != nil {
		return err
	}
	return s.Dec()
}

func (r *Recorder) observeSize(ev Event) error {
	if ev.Size < 0 {
		return nil
	}
	return r.observe(r.b.FileSize, ev.Path, float64(ev.Size))
}

func (r *Recorder) observe(h *metrics.Handle, path string, v float64) error {
	s, err := h.With(metrics.Labels{"extension": Extension(path)})
	if err != nil {
		return err
	}
	return s.Observe(v)
}

func (r *Recorder) inc(h *metrics.Handle, labels metrics.Labels) error {
	s, err := h.With(labels)
	if err != nil {
		return err
	}
	return s.Inc()
}

// Known returns the number of files currently tracked.
func (r *Recorder) Known() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.known)
}
