package sink

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unicode"

	"gonum.org/v1/hdf5"
)

// HDF5Sink implements Sink over a real HDF5 file via gonum.org/v1/hdf5, the
// cgo binding over the official HDF5 C library. Each variable becomes one
// named dataset; PropertyValues attach as HDF5 scalar attributes.
//
// Per-dataset samples are buffered in a host-native Go slice as WriteSlab
// calls arrive (the decoder already guarantees the slab count up front via
// CreateDataset's length, so the buffer never grows) and flushed to the
// file in one Write on CloseDataset. This keeps the HDF5-specific code to
// dataset/attribute creation and bulk writes, without leaning on a
// hyperslab API this binding may or may not expose identically across
// versions.
type HDF5Sink struct {
	file     *hdf5.File
	datasets map[int]*hdf5PendingDataset
	order    []int
	next     int
}

type hdf5PendingDataset struct {
	name     string
	typ      Type
	length   uint32
	elemSize uint32
	goType   reflect.Type
	buf      reflect.Value // slice of goType, len == length
	attrs    []pendingAttr
	closed   bool
}

type pendingAttr struct {
	name  string
	value PropertyValue
}

// NewHDF5Sink creates (truncating if necessary) the HDF5 file at path and
// returns a Sink writing to it.
func NewHDF5Sink(path string) (*HDF5Sink, error) {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("sink: create %q: %w", path, err)
	}
	return &HDF5Sink{file: f, datasets: make(map[int]*hdf5PendingDataset)}, nil
}

func (s *HDF5Sink) CreateDataset(name string, typ Type, length uint32) (Handle, error) {
	goType, err := goTypeFor(typ)
	if err != nil {
		return nil, fmt.Errorf("sink: dataset %q: %w", name, err)
	}
	pd := &hdf5PendingDataset{
		name:     name,
		typ:      typ,
		length:   length,
		elemSize: elemSize(typ),
		goType:   goType,
		buf:      reflect.MakeSlice(reflect.SliceOf(goType), int(length), int(length)),
	}
	h := s.next
	s.next++
	s.datasets[h] = pd
	s.order = append(s.order, h)
	return h, nil
}

func (s *HDF5Sink) lookup(h Handle) (*hdf5PendingDataset, error) {
	id, ok := h.(int)
	if !ok {
		return nil, fmt.Errorf("sink: handle %v not issued by HDF5Sink", h)
	}
	pd, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("sink: unknown dataset handle %v", h)
	}
	return pd, nil
}

func (s *HDF5Sink) WriteSlab(h Handle, start, count uint32, data []byte) error {
	pd, err := s.lookup(h)
	if err != nil {
		return err
	}
	if pd.closed {
		return fmt.Errorf("sink: dataset %q already closed", pd.name)
	}
	if start+count > pd.length {
		return fmt.Errorf("sink: dataset %q: slab [%d,%d) exceeds length %d", pd.name, start, start+count, pd.length)
	}
	want := int(count) * int(pd.elemSize)
	if len(data) != want {
		return fmt.Errorf("sink: dataset %q: slab carries %d bytes, want %d", pd.name, len(data), want)
	}
	for i := uint32(0); i < count; i++ {
		raw := data[int(i)*int(pd.elemSize) : int(i+1)*int(pd.elemSize)]
		elem, err := decodeElement(pd.typ, pd.goType, raw)
		if err != nil {
			return fmt.Errorf("sink: dataset %q sample %d: %w", pd.name, start+i, err)
		}
		pd.buf.Index(int(start + i)).Set(elem)
	}
	return nil
}

func (s *HDF5Sink) AttachProperty(h Handle, name string, value PropertyValue) error {
	pd, err := s.lookup(h)
	if err != nil {
		return err
	}
	if pd.closed {
		return fmt.Errorf("sink: dataset %q already closed", pd.name)
	}
	pd.attrs = append(pd.attrs, pendingAttr{name: name, value: value})
	return nil
}

func (s *HDF5Sink) CloseDataset(h Handle) error {
	pd, err := s.lookup(h)
	if err != nil {
		return err
	}
	if pd.closed {
		return fmt.Errorf("sink: dataset %q already closed", pd.name)
	}
	pd.closed = true

	dtype, err := hdf5TypeFor(pd.typ, pd.goType)
	if err != nil {
		return fmt.Errorf("sink: dataset %q: %w", pd.name, err)
	}
	defer dtype.Close()

	space, err := hdf5.NewDataspaceSimple([]uint{uint(pd.length)}, []uint{uint(pd.length)})
	if err != nil {
		return fmt.Errorf("sink: dataset %q: dataspace: %w", pd.name, err)
	}
	defer space.Close()

	ds, err := s.file.CreateDataset(pd.name, dtype, space)
	if err != nil {
		return fmt.Errorf("sink: dataset %q: create: %w", pd.name, err)
	}
	defer ds.Close()

	if pd.length > 0 {
		if err := ds.Write(pd.buf.Interface()); err != nil {
			return fmt.Errorf("sink: dataset %q: write: %w", pd.name, err)
		}
	}

	for _, a := range pd.attrs {
		if err := writeAttribute(ds, a.name, a.value); err != nil {
			return fmt.Errorf("sink: dataset %q attribute %q: %w", pd.name, a.name, err)
		}
	}
	return nil
}

func (s *HDF5Sink) Finish() error {
	return s.file.Close()
}

// writeAttribute attaches one scalar PropertyValue attribute to ds.
func writeAttribute(ds *hdf5.Dataset, name string, value PropertyValue) error {
	scalar, err := hdf5.NewDataspace(hdf5.S_SCALAR)
	if err != nil {
		return err
	}
	defer scalar.Close()

	var (
		dtype *hdf5.Datatype
		data  any
	)
	switch value.Kind {
	case PropInt32:
		dtype, data = hdf5.T_NATIVE_INT32, value.Int
	case PropDouble:
		dtype, data = hdf5.T_NATIVE_DOUBLE, value.Double
	default:
		strType, err := hdf5.NewDatatype(hdf5.T_STRING, len(value.String)+1)
		if err != nil {
			return err
		}
		defer strType.Close()
		dtype, data = strType, value.String
	}

	attr, err := ds.CreateAttribute(name, dtype, scalar)
	if err != nil {
		return err
	}
	defer attr.Close()
	return attr.Write(data, dtype)
}

// fieldIdent turns a PSF field/type name into a valid, exported Go
// identifier for use with reflect.StructOf. hdf5TypeFor builds compound
// types with NewDatatypeFromValue, which names each compound member after
// the Go struct field, so these identifiers (not the raw PSF names) are the
// member names written to the file.
func fieldIdent(name string, idx int) string {
	if name == "" {
		return fmt.Sprintf("F%d", idx)
	}
	r := []rune(name)
	out := make([]rune, 0, len(r)+1)
	if !unicode.IsLetter(r[0]) {
		out = append(out, 'F')
	}
	for _, c := range r {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}
	out[0] = unicode.ToUpper(out[0])
	return string(out)
}

// goTypeFor returns the host-native Go type used to buffer one element of
// typ before it is flushed to HDF5.
func goTypeFor(typ Type) (reflect.Type, error) {
	switch typ.Kind {
	case Int8, Int32:
		return reflect.TypeOf(int32(0)), nil
	case Double:
		return reflect.TypeOf(float64(0)), nil
	case ComplexDouble:
		return complexGoType, nil
	case Struct:
		fields := make([]reflect.StructField, len(typ.Fields))
		for i, f := range typ.Fields {
			ft, err := goTypeFor(Type{Kind: f.Kind, Fields: f.Fields})
			if err != nil {
				return nil, err
			}
			fields[i] = reflect.StructField{Name: fieldIdent(f.Name, i), Type: ft}
		}
		return reflect.StructOf(fields), nil
	default:
		return nil, fmt.Errorf("unsupported logical kind %d", typ.Kind)
	}
}

// complexGoType mirrors LogicalComplexDouble as a {Re, Im float64}
// compound, since HDF5 has no native complex type.
var complexGoType = reflect.StructOf([]reflect.StructField{
	{Name: "Re", Type: reflect.TypeOf(float64(0))},
	{Name: "Im", Type: reflect.TypeOf(float64(0))},
})

// hdf5TypeFor builds the HDF5 Datatype matching goType's layout. Scalars
// use the library's native types directly; struct and complex types are
// derived from the Go value via NewDatatypeFromValue, which reflects the
// struct's field layout into an HDF5 compound type — the same bridge
// goTypeFor built in the other direction.
func hdf5TypeFor(typ Type, goType reflect.Type) (*hdf5.Datatype, error) {
	switch typ.Kind {
	case Int8, Int32:
		return hdf5.T_NATIVE_INT32, nil
	case Double:
		return hdf5.T_NATIVE_DOUBLE, nil
	case ComplexDouble, Struct:
		return hdf5.NewDatatypeFromValue(reflect.New(goType).Elem().Interface())
	default:
		return nil, fmt.Errorf("unsupported logical kind %d", typ.Kind)
	}
}

// decodeElement translates one big-endian on-disk element (raw, exactly
// elemSize(typ) bytes) into a reflect.Value of goType, ready to store into
// a buffered dataset slice.
func decodeElement(typ Type, goType reflect.Type, raw []byte) (reflect.Value, error) {
	switch typ.Kind {
	case Int8:
		// Int8 occupies a full 4-byte word on disk but only the low byte is
		// significant; the upper three bytes are not a valid sign-extension.
		return reflect.ValueOf(int32(int8(raw[3]))), nil
	case Int32:
		return reflect.ValueOf(int32(binary.BigEndian.Uint32(raw))), nil
	case Double:
		return reflect.ValueOf(math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	case ComplexDouble:
		re := math.Float64frombits(binary.BigEndian.Uint64(raw[0:8]))
		im := math.Float64frombits(binary.BigEndian.Uint64(raw[8:16]))
		v := reflect.New(goType).Elem()
		v.FieldByName("Re").SetFloat(re)
		v.FieldByName("Im").SetFloat(im)
		return v, nil
	case Struct:
		v := reflect.New(goType).Elem()
		var off uint32
		for i, f := range typ.Fields {
			sub, err := decodeElement(Type{Kind: f.Kind, Fields: f.Fields}, goType.Field(i).Type, raw[off:off+f.Size])
			if err != nil {
				return reflect.Value{}, err
			}
			v.Field(i).Set(sub)
			off += f.Size
		}
		return v, nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported logical kind %d", typ.Kind)
	}
}

// elemSize returns the on-disk byte size of one element of typ.
func elemSize(t Type) uint32 {
	switch t.Kind {
	case Int8, Int32:
		return 4
	case Double:
		return 8
	case ComplexDouble:
		return 16
	case Struct:
		var total uint32
		for _, f := range t.Fields {
			total += f.Size
		}
		return total
	default:
		return 0
	}
}
