// Package store keeps a directory of fabric objects by DN so ranked search
// results can be expanded into summaries and full object details.
package store

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/fabric"
	apperrors "github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/errors"
)

// Summary is the short form of an object.
type Summary struct {
	Class string `json:"class"`
	Name  string `json:"name"`
	DN    string `json:"dn"`
}

// ObjectInfo is the detailed view of one object.
type ObjectInfo struct {
	Properties Summary              `json:"properties"`
	Attributes map[string]string    `json:"attributes"`
	Parent     *Summary             `json:"parent,omitempty"`
	Children   map[string][]Summary `json:"children"`
}

// Store is an immutable DN directory built from one hierarchy.
type Store struct {
	objects map[string]*fabric.Object
	byClass map[string][]*fabric.Object
}

// Empty returns a store with no objects.
func Empty() *Store {
	return &Store{
		objects: make(map[string]*fabric.Object),
		byClass: make(map[string][]*fabric.Object),
	}
}

// Load builds the directory for the tree rooted at root. When two objects
// share a DN the one visited later replaces the earlier one.
func Load(root *fabric.Object) *Store {
	logger := slog.Default().With("component", "store")
	s := Empty()
	fabric.Walk(root, func(o *fabric.Object) bool {
		if o.DN == "" {
			logger.Warn("object without dn skipped", "class", o.Class, "name", o.Name)
			return true
		}
		if prev, ok := s.objects[o.DN]; ok {
			logger.Warn("duplicate dn", "dn", o.DN, "class", o.Class)
			s.removeFromClass(prev)
		}
		s.objects[o.DN] = o
		s.byClass[o.Class] = append(s.byClass[o.Class], o)
		return true
	})
	return s
}

func (s *Store) removeFromClass(o *fabric.Object) {
	list := s.byClass[o.Class]
	for i, existing := range list {
		if existing == o {
			s.byClass[o.Class] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Len returns the number of distinct DNs.
func (s *Store) Len() int {
	return len(s.objects)
}

// Get returns the object stored under dn.
func (s *Store) Get(dn string) (*fabric.Object, bool) {
	o, ok := s.objects[dn]
	return o, ok
}

// ByClass returns the objects of one class in load order.
func (s *Store) ByClass(class string) []*fabric.Object {
	return s.byClass[class]
}

// Classes returns the object count per class.
func (s *Store) Classes() map[string]int {
	out := make(map[string]int, len(s.byClass))
	for class, objs := range s.byClass {
		if len(objs) > 0 {
			out[class] = len(objs)
		}
	}
	return out
}

// Short returns summaries keyed by DN. Unknown DNs are omitted.
func (s *Store) Short(dns []string) map[string]Summary {
	out := make(map[string]Summary, len(dns))
	for _, dn := range dns {
		if o, ok := s.objects[dn]; ok {
			out[dn] = summarize(o)
		}
	}
	return out
}

// Info returns the detailed view of the object at dn.
func (s *Store) Info(dn string) (*ObjectInfo, error) {
	o, ok := s.objects[dn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrObjectNotFound, dn)
	}
	info := &ObjectInfo{
		Properties: summarize(o),
		Attributes: o.AllAttributes(),
		Children:   make(map[string][]Summary),
	}
	if p := o.Parent(); p != nil {
		parent := summarize(p)
		info.Parent = &parent
	}
	for _, child := range o.Children {
		info.Children[child.Class] = append(info.Children[child.Class], summarize(child))
	}
	for _, list := range info.Children {
		sort.Slice(list, func(i, j int) bool { return list[i].DN < list[j].DN })
	}
	return info, nil
}

func summarize(o *fabric.Object) Summary {
	return Summary{Class: o.Class, Name: o.Name, DN: o.DN}
}
