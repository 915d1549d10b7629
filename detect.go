package imgdec

import (
	"sort"
	"sync"

	"github.com/apex/log"
)

// Factory constructs a trial plugin primed with data
type Factory func(data []byte, cfg *Config) Plugin

// Entry is a registered format
type Entry struct {
	Format Format
	// Priority orders entries when sniffing; lower values are tried
	// first. Equal priorities keep registration order.
	Priority int
	New      Factory
}

// Registry is an ordered set of formats consulted by the dispatcher.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry holds the built-in formats, tried in the order PNG, GIF,
// BMP, JPEG, WebP, TIFF.
var DefaultRegistry = NewRegistry()

func init() {
	for i, f := range Formats() {
		DefaultRegistry.Register(Entry{Format: f, Priority: i * 10, New: builtinFactory(f)})
	}
}

// RegisterFormat adds a format to the DefaultRegistry
func RegisterFormat(format Format, priority int, factory Factory) {
	DefaultRegistry.Register(Entry{Format: format, Priority: priority, New: factory})
}

// Register adds e to the registry
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].Priority < r.entries[j].Priority
	})
}

// Entries returns the registered formats in dispatch order
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Sniff tries every registered format in order and returns the first
// plugin whose Sniff check accepts data. It returns (nil, Unknown) when no
// format matches.
func (r *Registry) Sniff(data []byte, cfg *Config) (Plugin, Format) {
	logger := cfg.Logger.WithField("bytes", len(data))
	for _, e := range r.Entries() {
		p := e.New(data, cfg)
		if p == nil {
			continue
		}
		if trySniff(p, logger.WithField("format", e.Format)) {
			logger.WithField("format", e.Format).Debug("sniff matched")
			return p, e.Format
		}
	}
	logger.Debug("no format matched")
	return nil, Unknown
}

func trySniff(p Plugin, logger *log.Entry) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("sniff panicked: %v", r)
			ok = false
		}
	}()
	return p.Sniff()
}
