// Package sinktest provides an in-memory sink.Sink for exercising pkg/psf
// without a real HDF5 (or other) output library.
package sinktest

import (
	"fmt"

	"github.com/cadence-tools/psfdecode/pkg/sink"
)

// Dataset captures everything one CreateDataset/WriteSlab/AttachProperty
// sequence produced.
type Dataset struct {
	Name       string
	Type       sink.Type
	Length     uint32
	Data       []byte // length * element size bytes, big-endian, as delivered
	Properties []Attr
	Closed     bool
}

// Attr is one attached property, in attach order.
type Attr struct {
	Name  string
	Value sink.PropertyValue
}

// Sink is a sink.Sink that keeps every dataset in memory, in creation
// order, for assertions in tests.
type Sink struct {
	Datasets []*Dataset
	Finished bool
	byHandle map[int]*Dataset
	next     int
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{byHandle: make(map[int]*Dataset)}
}

func elemSize(t sink.Type) uint32 {
	switch t.Kind {
	case sink.Int8, sink.Int32:
		return 4
	case sink.Double:
		return 8
	case sink.ComplexDouble:
		return 16
	case sink.Struct:
		var total uint32
		for _, f := range t.Fields {
			total += f.Size
		}
		return total
	default:
		return 0
	}
}

func (s *Sink) CreateDataset(name string, typ sink.Type, length uint32) (sink.Handle, error) {
	size := elemSize(typ)
	ds := &Dataset{
		Name:   name,
		Type:   typ,
		Length: length,
		Data:   make([]byte, int(size)*int(length)),
	}
	h := s.next
	s.next++
	s.Datasets = append(s.Datasets, ds)
	s.byHandle[h] = ds
	return h, nil
}

func (s *Sink) WriteSlab(h sink.Handle, start uint32, count uint32, data []byte) error {
	ds, ok := s.byHandle[h.(int)]
	if !ok {
		return fmt.Errorf("sinktest: unknown handle %v", h)
	}
	size := elemSize(ds.Type)
	off := int(start) * int(size)
	n := int(count) * int(size)
	if off+n > len(ds.Data) {
		return fmt.Errorf("sinktest: slab [%d,%d) out of bounds for dataset %q length %d", start, start+count, ds.Name, ds.Length)
	}
	if len(data) != n {
		return fmt.Errorf("sinktest: slab data length %d != expected %d for dataset %q", len(data), n, ds.Name)
	}
	copy(ds.Data[off:off+n], data)
	return nil
}

func (s *Sink) AttachProperty(h sink.Handle, name string, value sink.PropertyValue) error {
	ds, ok := s.byHandle[h.(int)]
	if !ok {
		return fmt.Errorf("sinktest: unknown handle %v", h)
	}
	ds.Properties = append(ds.Properties, Attr{Name: name, Value: value})
	return nil
}

func (s *Sink) CloseDataset(h sink.Handle) error {
	ds, ok := s.byHandle[h.(int)]
	if !ok {
		return fmt.Errorf("sinktest: unknown handle %v", h)
	}
	ds.Closed = true
	return nil
}

func (s *Sink) Finish() error {
	s.Finished = true
	return nil
}

// ByName returns the first dataset created with the given name.
func (s *Sink) ByName(name string) *Dataset {
	for _, d := range s.Datasets {
		if d.Name == name {
			return d
		}
	}
	return nil
}
