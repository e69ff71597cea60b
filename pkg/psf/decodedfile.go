package psf

// ValueModeKind tags which value-region layout a file uses.
type ValueModeKind int

const (
	NoSweep ValueModeKind = iota
	FlatSweep
	WindowedSweep
)

// ValueMode describes the value-region layout. WindowBytes is only
// meaningful when Kind == WindowedSweep.
type ValueMode struct {
	Kind        ValueModeKind
	WindowBytes uint32
}

// DecodedFile is the fully-decoded, in-memory result of one PSF file.
// Sweeps has length 0 or 1; Traces is the trace section's variable
// list with groups already flattened.
type DecodedFile struct {
	Header    *PropertyMap
	Types     *TypeMap
	Sweeps    []Variable
	Traces    []Variable
	ValueMode ValueMode
	NumPoints uint32
}
