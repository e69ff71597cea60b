package psf

// LogicalKind tags which on-wire shape a LogicalType describes.
type LogicalKind int

const (
	LogicalInt8 LogicalKind = iota
	LogicalInt32
	LogicalDouble
	LogicalComplexDouble
	LogicalStruct
	LogicalUnsupported
)

// StructField is one named, typed member of a Struct LogicalType, in
// declared order.
type StructField struct {
	Name string
	Type LogicalType
	Size uint32
}

// LogicalType is the decoder's portable description of a value's on-disk
// shape. Struct fields carry resolved LogicalType snapshots rather than
// type ids, so value decoding is a pure tree walk with no further TypeMap
// lookups. Supported is carried on the type itself (not just its Kind) so
// that "a struct containing an unsupported field makes the enclosing
// struct unsupported" (spec.md §8) holds at every nesting depth: a
// LogicalStruct's Supported reflects every field's Supported, recursively,
// not just whether a field's Kind happens to be LogicalUnsupported.
type LogicalType struct {
	Kind      LogicalKind
	Fields    []StructField // only meaningful when Kind == LogicalStruct
	Supported bool
}

// onDiskSize returns the number of bytes this type occupies on disk. For
// unsupported types the size is not meaningful and 0 is returned; callers
// must check Supported before relying on size.
func (lt LogicalType) onDiskSize() uint32 {
	switch lt.Kind {
	case LogicalInt8, LogicalInt32:
		return 4
	case LogicalDouble:
		return 8
	case LogicalComplexDouble:
		return 16
	case LogicalStruct:
		var total uint32
		for _, f := range lt.Fields {
			total += f.Size
		}
		return total
	default:
		return 0
	}
}

// TypeDefinition is one entry of the type dictionary.
type TypeDefinition struct {
	ID          uint32
	Name        string
	ArrayType   uint32
	DataTypeTag uint32
	Logical     LogicalType
	OnDiskSize  uint32
	Supported   bool
	Properties  *PropertyMap
}

// TypeMap is the id-keyed type dictionary, populated during the type
// section and read-only thereafter.
type TypeMap struct {
	byID map[uint32]TypeDefinition
}

func newTypeMap() *TypeMap {
	return &TypeMap{byID: make(map[uint32]TypeDefinition)}
}

// Lookup resolves id, returning (def, true) if id is registered.
func (tm *TypeMap) Lookup(id uint32) (TypeDefinition, bool) {
	d, ok := tm.byID[id]
	return d, ok
}

func (tm *TypeMap) insert(def TypeDefinition) {
	tm.byID[def.ID] = def
}

// logicalForTag resolves a data_type_tag to its LogicalKind and fixed
// on-disk size. Struct and unknown/unsupported tags return
// size 0; struct size is computed separately as the sum of field sizes.
func logicalForTag(tag uint32) (LogicalKind, uint32, bool) {
	switch tag {
	case dtInt8:
		return LogicalInt8, 4, true
	case dtInt32:
		return LogicalInt32, 4, true
	case dtDouble:
		return LogicalDouble, 8, true
	case dtComplexDouble:
		return LogicalComplexDouble, 16, true
	case dtStruct:
		return LogicalStruct, 0, true
	case dtString, dtArray:
		return LogicalUnsupported, 0, false
	default:
		return LogicalUnsupported, 0, false
	}
}

// readTypeDef decodes one TypeDef entry, recursing into struct
// subtype members. On a non-TypeDef tag it rewinds and returns ok=false
// ("no type"), signaling the end of the type subsection.
//
// Every decoded definition (including nested subtype members) is inserted
// into tm under its own id; re-declaring an id overwrites the earlier
// definition (last wins).
func readTypeDef(rd *reader, tm *TypeMap) (TypeDefinition, bool, error) {
	tag, err := rd.readU32()
	if err != nil {
		return TypeDefinition{}, false, err
	}
	if tag != tagTypeDef {
		rd.unreadU32(tag)
		return TypeDefinition{}, false, nil
	}

	def, err := decodeTypeBody(rd, tm)
	if err != nil {
		return TypeDefinition{}, false, err
	}
	tm.insert(def)
	return def, true, nil
}

// decodeTypeBody decodes the fields after the tagTypeDef word: id, name,
// array_type, data_type_tag, optional subtype list, then properties.
func decodeTypeBody(rd *reader, tm *TypeMap) (TypeDefinition, error) {
	id, err := rd.readU32()
	if err != nil {
		return TypeDefinition{}, err
	}
	name, err := rd.readString()
	if err != nil {
		return TypeDefinition{}, err
	}
	arrayType, err := rd.readU32()
	if err != nil {
		return TypeDefinition{}, err
	}
	dataTypeTag, err := rd.readU32()
	if err != nil {
		return TypeDefinition{}, err
	}

	kind, size, known := logicalForTag(dataTypeTag)

	var logical LogicalType
	supported := known && kind != LogicalUnsupported
	onDiskSize := size

	if dataTypeTag == dtStruct {
		fields, err := readSubtypeMembers(rd, tm)
		if err != nil {
			return TypeDefinition{}, err
		}
		supported = true
		onDiskSize = 0
		for _, f := range fields {
			// f.Type.Supported already reflects f's own nested fields
			// (recursively, since each field was itself built by this same
			// function), so checking it here — rather than just f.Type.Kind —
			// is what makes an unsupported field anywhere in the tree make
			// every enclosing struct unsupported too.
			if !f.Type.Supported {
				supported = false
			}
			onDiskSize += f.Size
		}
		logical = LogicalType{Kind: LogicalStruct, Fields: fields, Supported: supported}
	} else {
		logical = LogicalType{Kind: kind, Supported: supported}
	}

	props, err := readProperties(rd)
	if err != nil {
		return TypeDefinition{}, err
	}

	return TypeDefinition{
		ID:          id,
		Name:        name,
		ArrayType:   arrayType,
		DataTypeTag: dataTypeTag,
		Logical:     logical,
		OnDiskSize:  onDiskSize,
		Supported:   supported,
		Properties:  props,
	}, nil
}

// readSubtypeMembers decodes the tag-18-prefixed tuple member list inside
// a struct TypeDef, recursively decoding each member as a full TypeDef.
// A non-18 tag ends the list (rewound).
func readSubtypeMembers(rd *reader, tm *TypeMap) ([]StructField, error) {
	var fields []StructField
	for {
		tag, err := rd.readU32()
		if err != nil {
			return nil, err
		}
		if tag != tagSubtypeMember {
			rd.unreadU32(tag)
			return fields, nil
		}

		// A tuple member is itself a TypeDef, introduced by its own
		// tagTypeDef word.
		innerTag, err := rd.readU32()
		if err != nil {
			return nil, err
		}
		if innerTag != tagTypeDef {
			return nil, decodeErrf(rd.currentOffset(), ErrBadTag, "subtype member missing TypeDef tag")
		}
		member, err := decodeTypeBody(rd, tm)
		if err != nil {
			return nil, err
		}
		tm.insert(member)
		fields = append(fields, StructField{
			Name: member.Name,
			Type: member.Logical,
			Size: member.OnDiskSize,
		})
	}
}
