// Package fabric models the hierarchy of fabric objects (tenants, application
// profiles, EPGs, bridge domains, switches...) that the search index is built
// from, and adapts each object to the index.Record shape.
package fabric

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/indexer/index"
)

// Object is one node of the fabric hierarchy. DN is its distinguished name
// and serves as the globally unique record ID.
type Object struct {
	Class      string            `yaml:"class" json:"class"`
	Name       string            `yaml:"name" json:"name"`
	DN         string            `yaml:"dn" json:"dn"`
	Attributes map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Children   []*Object         `yaml:"children,omitempty" json:"children,omitempty"`

	parent *Object
}

// Parent returns the object's parent, or nil for the root or an unlinked
// object.
func (o *Object) Parent() *Object {
	return o.parent
}

// AddChild appends child and links it back to o.
func (o *Object) AddChild(child *Object) {
	child.parent = o
	o.Children = append(o.Children, child)
}

// Link restores parent pointers below o, typically after decoding.
func (o *Object) Link() {
	for _, child := range o.Children {
		child.parent = o
		child.Link()
	}
}

// AllAttributes returns the object's attributes including the implicit
// name and dn.
func (o *Object) AllAttributes() map[string]string {
	attrs := make(map[string]string, len(o.Attributes)+2)
	for k, v := range o.Attributes {
		attrs[k] = v
	}
	attrs["name"] = o.Name
	attrs["dn"] = o.DN
	return attrs
}

// Walk calls fn for o and every descendant, parents before children.
// Returning false from fn skips that object's subtree.
func Walk(o *Object, fn func(*Object) bool) {
	if o == nil {
		return
	}
	if !fn(o) {
		return
	}
	for _, child := range o.Children {
		Walk(child, fn)
	}
}

// Count returns the number of objects in the tree rooted at o.
func Count(o *Object) int {
	n := 0
	Walk(o, func(*Object) bool {
		n++
		return true
	})
	return n
}

// Records flattens the tree rooted at root into index records.
func Records(root *Object) []index.Record {
	records := make([]index.Record, 0, Count(root))
	Walk(root, func(o *Object) bool {
		records = append(records, o.Searchable())
		return true
	})
	return records
}

// Searchable adapts o to the index record shape. Attribute names are always
// indexed; empty values are left out of the value tables.
func (o *Object) Searchable() index.Searchable {
	attrs := o.AllAttributes()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	rec := index.Searchable{
		Class: o.Class,
		Attrs: names,
		Vals:  make([]string, 0, len(names)),
		Pairs: make([]index.AttrValue, 0, len(names)),
		DN:    o.DN,
	}
	for _, name := range names {
		value := attrs[name]
		if value == "" {
			continue
		}
		rec.Vals = append(rec.Vals, value)
		rec.Pairs = append(rec.Pairs, index.AttrValue{Attr: name, Value: value})
	}
	return rec
}
