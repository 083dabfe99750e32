package entity

// Access is one recorded logical-field read and the physical path it maps
// to in the adapter's schema version.
type Access struct {
	Logical  string `json:"logical"`
	Physical string `json:"physical"`
}

// Recorder accumulates an ordered, de-duplicated log of field accesses.
// Adapters built with a non-nil Recorder append to it from every logical
// accessor; a nil Recorder disables tracking with no overhead. Used by
// rule discovery to observe which fields a rule reads.
type Recorder struct {
	order []Access
	seen  map[Access]struct{}
}

// NewRecorder returns an empty access recorder.
func NewRecorder() *Recorder {
	return &Recorder{seen: make(map[Access]struct{})}
}

// Record appends the (logical, physical) pair, keeping first-access order
// and dropping duplicates. Safe to call on a nil Recorder.
func (r *Recorder) Record(logical, physical string) {
	if r == nil {
		return
	}
	a := Access{Logical: logical, Physical: physical}
	if _, dup := r.seen[a]; dup {
		return
	}
	r.seen[a] = struct{}{}
	r.order = append(r.order, a)
}

// Accesses returns the recorded pairs in first-access order.
// Returns nil on a nil Recorder.
func (r *Recorder) Accesses() []Access {
	if r == nil {
		return nil
	}
	out := make([]Access, len(r.order))
	copy(out, r.order)
	return out
}

// Adapter is a stable logical view over one entity data instance.
// Concrete adapters additionally expose typed logical accessors for their
// entity type (see Loan); rules reach those through a type assertion.
type Adapter interface {
	// EntityType returns the business entity type the adapter serves
	// ("loan", "facility", "deal").
	EntityType() string
	// ServesSchema returns the schema identifier whose physical layout
	// this adapter reads.
	ServesSchema() string
	// Raw returns the underlying entity data.
	Raw() Data
	// Accesses returns the recorded field accesses, or nil when the
	// adapter was built without tracking.
	Accesses() []Access
}

// Constructor builds an adapter over one entity data instance.
// rec may be nil to disable access tracking. Adapters are created per
// validation call and discarded after.
type Constructor func(data Data, rec *Recorder) Adapter

// Builtin returns the adapter constructors shipped with the library,
// keyed by the names used in business configuration
// (schema_to_adapter_mapping / default_adapters values).
func Builtin() map[string]Constructor {
	return map[string]Constructor{
		"loan_v1": NewLoanV1,
		"loan_v2": NewLoanV2,
	}
}
