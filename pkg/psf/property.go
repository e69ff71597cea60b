package psf

// PropertyValueKind tags which variant a PropertyValue carries.
type PropertyValueKind int

const (
	PropertyInt32 PropertyValueKind = iota
	PropertyDouble
	PropertyString
)

// PropertyValue is a tagged union: signed 32-bit integer, 64-bit float, or
// string. Exactly one of the typed fields is meaningful, per Kind.
type PropertyValue struct {
	Kind   PropertyValueKind
	Int    int32
	Double float64
	String string
}

// PropertyMap is an ordered, name-unique mapping from property name to
// PropertyValue. Iteration order is insertion order; inserting a name that
// already exists overwrites the prior value in place (last wins) without
// disturbing its position... except the PSF property loop only ever
// appends newly-seen names within one read_properties call, so "last wins"
// in practice just means the final decoded value for that name is kept.
type PropertyMap struct {
	order []string
	byKey map[string]PropertyValue
}

// NewPropertyMap returns an empty PropertyMap.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{byKey: make(map[string]PropertyValue)}
}

// Set inserts or overwrites name's value. If name is new, it is appended
// to the iteration order.
func (m *PropertyMap) Set(name string, v PropertyValue) {
	if _, exists := m.byKey[name]; !exists {
		m.order = append(m.order, name)
	}
	m.byKey[name] = v
}

// Get returns the value stored for name, if any.
func (m *PropertyMap) Get(name string) (PropertyValue, bool) {
	v, ok := m.byKey[name]
	return v, ok
}

// Len returns the number of distinct property names.
func (m *PropertyMap) Len() int {
	return len(m.order)
}

// Names returns property names in insertion order.
func (m *PropertyMap) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Int returns name's value as an int32, and whether name was present with
// PropertyInt32 kind.
func (m *PropertyMap) Int(name string) (int32, bool) {
	v, ok := m.byKey[name]
	if !ok || v.Kind != PropertyInt32 {
		return 0, false
	}
	return v.Int, true
}

// Float returns name's value as a float64, and whether name was present
// with PropertyDouble kind.
func (m *PropertyMap) Float(name string) (float64, bool) {
	v, ok := m.byKey[name]
	if !ok || v.Kind != PropertyDouble {
		return 0, false
	}
	return v.Double, true
}

// String returns name's value as a string, and whether name was present
// with PropertyString kind.
func (m *PropertyMap) String(name string) (string, bool) {
	v, ok := m.byKey[name]
	if !ok || v.Kind != PropertyString {
		return "", false
	}
	return v.String, true
}

// readProperties decodes property entries until the next tag is not
// a property tag, leaving the stream positioned just before that tag. The
// non-property tag itself is not consumed here — readProperties rewinds it
// via unreadU32 so the caller sees it on its next peek/read.
func readProperties(rd *reader) (*PropertyMap, error) {
	m := NewPropertyMap()
	for {
		tag, err := rd.readU32()
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagPropString:
			name, err := rd.readString()
			if err != nil {
				return nil, err
			}
			val, err := rd.readString()
			if err != nil {
				return nil, err
			}
			m.Set(name, PropertyValue{Kind: PropertyString, String: val})
		case tagPropInt32:
			name, err := rd.readString()
			if err != nil {
				return nil, err
			}
			val, err := rd.readI32()
			if err != nil {
				return nil, err
			}
			m.Set(name, PropertyValue{Kind: PropertyInt32, Int: val})
		case tagPropDouble:
			name, err := rd.readString()
			if err != nil {
				return nil, err
			}
			val, err := rd.readF64()
			if err != nil {
				return nil, err
			}
			m.Set(name, PropertyValue{Kind: PropertyDouble, Double: val})
		default:
			// UnknownPropertyTag: not a property entry. Rewind one word and
			// stop; this is how property blocks terminate without an
			// explicit end marker. Not surfaced as an error.
			rd.unreadU32(tag)
			return m, nil
		}
	}
}
