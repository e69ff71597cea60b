package psf

import "github.com/cadence-tools/psfdecode/pkg/sink"

// toSinkType translates a LogicalType into the sink package's wire-shape
// description. Callers must have already checked Supported; toSinkType
// does not itself reject unsupported types.
func toSinkType(lt LogicalType) sink.Type {
	switch lt.Kind {
	case LogicalInt8:
		return sink.Type{Kind: sink.Int8}
	case LogicalInt32:
		return sink.Type{Kind: sink.Int32}
	case LogicalDouble:
		return sink.Type{Kind: sink.Double}
	case LogicalComplexDouble:
		return sink.Type{Kind: sink.ComplexDouble}
	case LogicalStruct:
		fields := make([]sink.Field, len(lt.Fields))
		for i, f := range lt.Fields {
			ft := toSinkType(f.Type)
			fields[i] = sink.Field{Name: f.Name, Kind: ft.Kind, Size: f.Size, Fields: ft.Fields}
		}
		return sink.Type{Kind: sink.Struct, Fields: fields}
	default:
		return sink.Type{}
	}
}

// toSinkValue translates a PropertyValue into the sink package's mirror
// type.
func toSinkValue(v PropertyValue) sink.PropertyValue {
	switch v.Kind {
	case PropertyInt32:
		return sink.PropertyValue{Kind: sink.PropInt32, Int: v.Int}
	case PropertyDouble:
		return sink.PropertyValue{Kind: sink.PropDouble, Double: v.Double}
	default:
		return sink.PropertyValue{Kind: sink.PropString, String: v.String}
	}
}

// attachProperties attaches every entry of props, in order, to h.
func attachProperties(s sink.Sink, h sink.Handle, props *PropertyMap) error {
	if props == nil {
		return nil
	}
	for _, name := range props.Names() {
		v, _ := props.Get(name)
		if err := s.AttachProperty(h, name, toSinkValue(v)); err != nil {
			return err
		}
	}
	return nil
}
