// Package psf decodes Cadence PSF (Parameter Storage Format) files.
//
// A PSF file is a self-describing, sectioned binary container holding
// simulation metadata, a user-defined type dictionary, a list of sweep and
// trace variables, and a numeric value region that may be laid out in one
// of three modes. Decode reads such a file once, front to back, and emits
// one typed dataset per variable to a Sink.
package psf

// Tags used inside section bodies. Distinct from the top-level section
// marker words in sectionMarker.
const (
	tagTypeDef       = 16 // also Variable / NonsweepValue / window record
	tagGroup         = 17
	tagSubtypeMember = 18
	tagZeroPad       = 20
	tagPropString    = 33
	tagPropInt32     = 34
	tagPropDouble    = 35
)

// sectionMarker identifies which top-level section follows the header.
type sectionMarker uint32

const (
	markerTypeStart  sectionMarker = 1
	markerSweepStart sectionMarker = 2
	markerTraceStart sectionMarker = 3
	markerValueStart sectionMarker = 4
)

// Section preamble codes.
const (
	majorPreambleCode uint32 = 21
	minorPreambleCode uint32 = 22
)

// data_type_tag values from the type section.
const (
	dtInt8          uint32 = 1
	dtString        uint32 = 2
	dtArray         uint32 = 3
	dtInt32         uint32 = 5
	dtDouble        uint32 = 11
	dtComplexDouble uint32 = 12
	dtStruct        uint32 = 16
)

// Header property names the driver reads to decide value-region mode.
const (
	propSweepPoints = "PSF sweep points"
	propWindowSize  = "PSF window size"
)
