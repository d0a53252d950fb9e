package jvrecord

import "sync"

// Demultiplexer routes a raw payload to the layout registered for its
// (family, record spec) pair. Unknown specs are not an error: the caller is
// expected to count and drop them without failing the read cycle.
type Demultiplexer struct {
	mu       sync.RWMutex
	byFamily map[string]map[string][]*Layout
}

// NewDemultiplexer builds an empty registry. Use RegisterDefaults to
// populate it with every layout this package knows how to decode.
func NewDemultiplexer() *Demultiplexer {
	return &Demultiplexer{byFamily: make(map[string]map[string][]*Layout)}
}

// Register adds a layout for (family, spec). Multiple layouts may be
// registered for the same pair (e.g. H1's 317-byte and 28955-byte forms);
// Demux picks the one whose Length matches the payload.
func (d *Demultiplexer) Register(family, spec string, layout *Layout) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.byFamily[family] == nil {
		d.byFamily[family] = make(map[string][]*Layout)
	}

	d.byFamily[family][spec] = append(d.byFamily[family][spec], layout)
}

// Spec reads the two-byte ASCII record-type prefix from a raw payload.
func Spec(payload []byte) (string, bool) {
	if len(payload) < 2 {
		return "", false
	}

	return string(payload[0:2]), true
}

// Demux returns the layout registered for (family, spec) whose expected
// length matches payload, or false if no such layout is registered — the
// unknown-spec case the spec requires callers to drop silently.
func (d *Demultiplexer) Demux(family string, payload []byte) (*Layout, bool) {
	spec, ok := Spec(payload)
	if !ok {
		return nil, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	layouts, ok := d.byFamily[family][spec]
	if !ok {
		return nil, false
	}

	for _, l := range layouts {
		if l.Length == len(payload) {
			return l, true
		}
	}

	// Single registered form: fall through to it even on a length
	// mismatch so Parse can surface the precise ErrRecordLength rather
	// than the generic "unknown spec" outcome.
	if len(layouts) == 1 {
		return layouts[0], true
	}

	return nil, false
}

// Parse demultiplexes payload and applies the matched layout, returning the
// target table name alongside the parsed rows. ok is false when the spec
// is unregistered for this family; callers must count and drop, not fail.
func (d *Demultiplexer) Parse(family string, payload []byte) (table string, rows []Row, ok bool, err error) {
	layout, found := d.Demux(family, payload)
	if !found {
		return "", nil, false, nil
	}

	rows, err = layout.Parse(payload)

	return layout.Table, rows, true, err
}
