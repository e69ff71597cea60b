// Package sink defines the typed output contract used by pkg/psf.
// pkg/psf never depends on a concrete output library — only on this
// interface — so the HDF5 writer, or any other container that supports
// named arrays, typed storage of the five LogicalType variants, and
// per-array scalar attributes, can serve as the decode target.
package sink

// LogicalKind mirrors psf.LogicalKind without importing pkg/psf, keeping
// this package free of a dependency on the decoder it serves.
type LogicalKind int

const (
	Int8 LogicalKind = iota
	Int32
	Double
	ComplexDouble
	Struct
)

// Field describes one member of a Struct LogicalType, in declared order.
// Fields is only meaningful when Kind == Struct, carrying that nested
// struct's own members so arbitrarily nested PSF struct types round-trip
// through this mirror type without a second lookup against pkg/psf.
type Field struct {
	Name   string
	Kind   LogicalKind
	Size   uint32
	Fields []Field
}

// Type fully describes the wire shape of a dataset's element, mirroring
// psf.LogicalType.
type Type struct {
	Kind   LogicalKind
	Fields []Field // only meaningful when Kind == Struct
}

// PropertyValueKind mirrors psf.PropertyValueKind.
type PropertyValueKind int

const (
	PropInt32 PropertyValueKind = iota
	PropDouble
	PropString
)

// PropertyValue mirrors psf.PropertyValue.
type PropertyValue struct {
	Kind   PropertyValueKind
	Int    int32
	Double float64
	String string
}

// Handle identifies one dataset created by a Sink.
type Handle any

// Sink is the decoder's entire external output surface. The
// decoder creates each dataset at most once, writes disjoint slabs that
// together cover [0, length) exactly once, and never reopens a dataset
// once closed.
type Sink interface {
	// CreateDataset allocates a dataset named name with length elements of
	// logical type typ. Bytes passed to WriteSlab for this handle are in
	// on-disk (big-endian) form; the sink converts to its own portable
	// representation.
	CreateDataset(name string, typ Type, length uint32) (Handle, error)

	// WriteSlab writes one contiguous run of samples, [start, start+count),
	// into the dataset identified by h. data holds count elements of the
	// dataset's element size, back to back, big-endian.
	WriteSlab(h Handle, start uint32, count uint32, data []byte) error

	// AttachProperty attaches one scalar attribute to the dataset
	// identified by h.
	AttachProperty(h Handle, name string, value PropertyValue) error

	// CloseDataset releases any resources held for h. Once closed, h must
	// not be passed to WriteSlab or AttachProperty again.
	CloseDataset(h Handle) error

	// Finish is called once after every dataset has been created and
	// closed, successfully or not. Implementations should make a best
	// effort to leave whatever was already written intact; partial
	// output on error is permitted.
	Finish() error
}
