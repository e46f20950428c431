package index

// AttrValue is one attribute name paired with one of its values.
type AttrValue struct {
	Attr  string
	Value string
}

// Record is the shape every indexed object must expose. ID must be unique
// across the record set handed to a single Build.
type Record interface {
	ObjectClass() string
	Attributes() []string
	Values() []string
	AttributeValuePairs() []AttrValue
	ID() string
}

// Searchable is a plain Record implementation for callers that already hold
// the flattened facets.
type Searchable struct {
	Class string
	Attrs []string
	Vals  []string
	Pairs []AttrValue
	DN    string
}

func (s Searchable) ObjectClass() string              { return s.Class }
func (s Searchable) Attributes() []string             { return s.Attrs }
func (s Searchable) Values() []string                 { return s.Vals }
func (s Searchable) AttributeValuePairs() []AttrValue { return s.Pairs }
func (s Searchable) ID() string                       { return s.DN }
