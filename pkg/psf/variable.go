package psf

// Variable is one sweep or trace declaration.
type Variable struct {
	ID         uint32
	Name       string
	TypeID     uint32
	Properties *PropertyMap
}

// readVariable decodes one Variable entry. On a non-Variable tag it
// rewinds and returns ok=false ("no variable").
func readVariable(rd *reader) (Variable, bool, error) {
	tag, err := rd.readU32()
	if err != nil {
		return Variable{}, false, err
	}
	if tag != tagTypeDef {
		rd.unreadU32(tag)
		return Variable{}, false, nil
	}
	v, err := decodeVariableBody(rd)
	if err != nil {
		return Variable{}, false, err
	}
	return v, true, nil
}

func decodeVariableBody(rd *reader) (Variable, error) {
	id, err := rd.readU32()
	if err != nil {
		return Variable{}, err
	}
	name, err := rd.readString()
	if err != nil {
		return Variable{}, err
	}
	typeID, err := rd.readU32()
	if err != nil {
		return Variable{}, err
	}
	props, err := readProperties(rd)
	if err != nil {
		return Variable{}, err
	}
	return Variable{ID: id, Name: name, TypeID: typeID, Properties: props}, nil
}

// readGroup decodes one Group entry: id, name, a declared member
// count, then exactly that many Variables. Fewer valid Variables than
// declared is a fatal MalformedGroup error.
func readGroup(rd *reader) ([]Variable, error) {
	id, err := rd.readU32()
	if err != nil {
		return nil, err
	}
	name, err := rd.readString()
	if err != nil {
		return nil, err
	}
	length, err := rd.readU32()
	if err != nil {
		return nil, err
	}

	members := make([]Variable, 0, length)
	for i := uint32(0); i < length; i++ {
		v, ok, err := readVariable(rd)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, decodeErrf(rd.currentOffset(), ErrMalformedGroup,
				"group %d (%q) declared %d members but only %d were decoded", id, name, length, i)
		}
		members = append(members, v)
	}
	return members, nil
}

// readVariableList decodes a trace-section-style body: a mix of Variable
// and Group entries, groups flattened into the output list. Any tag other
// than Variable or Group ends the list (rewound, so the caller's section
// framing can consume the terminating tag itself).
func readVariableList(rd *reader) ([]Variable, error) {
	var out []Variable
	for {
		tag, err := rd.readU32()
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagTypeDef:
			v, err := decodeVariableBody(rd)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case tagGroup:
			members, err := readGroup(rd)
			if err != nil {
				return nil, err
			}
			out = append(out, members...)
		default:
			rd.unreadU32(tag)
			return out, nil
		}
	}
}

// readSweepList decodes the sweep section body: Variables only, no groups
// (groups appear only in the trace section).
func readSweepList(rd *reader) ([]Variable, error) {
	var out []Variable
	for {
		v, ok, err := readVariable(rd)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
