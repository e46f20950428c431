// Package index holds the seven inverted tables that map object classes,
// attribute names, values and their combinations to record IDs. Tables are
// built in a single pass and never mutated afterwards, so a built *Tables can
// be shared by any number of concurrent readers.
package index

type classAttr struct {
	class, attr string
}

type classValue struct {
	class, value string
}

type classAttrValue struct {
	class, attr, value string
}

// Tables is an immutable snapshot of the index.
type Tables struct {
	byClass          map[string]Set
	byAttr           map[string]Set
	byValue          map[string]Set
	byAttrValue      map[AttrValue]Set
	byClassAttr      map[classAttr]Set
	byClassValue     map[classValue]Set
	byClassAttrValue map[classAttrValue]Set

	records    int
	duplicates []string
}

// Stats summarises the size of a Tables snapshot.
type Stats struct {
	Records         int `json:"records"`
	DuplicateIDs    int `json:"duplicate_ids"`
	Classes         int `json:"classes"`
	Attributes      int `json:"attributes"`
	Values          int `json:"values"`
	AttrValues      int `json:"attr_values"`
	ClassAttrs      int `json:"class_attrs"`
	ClassValues     int `json:"class_values"`
	ClassAttrValues int `json:"class_attr_values"`
}

// Empty returns a Tables with no entries.
func Empty() *Tables {
	return &Tables{
		byClass:          make(map[string]Set),
		byAttr:           make(map[string]Set),
		byValue:          make(map[string]Set),
		byAttrValue:      make(map[AttrValue]Set),
		byClassAttr:      make(map[classAttr]Set),
		byClassValue:     make(map[classValue]Set),
		byClassAttrValue: make(map[classAttrValue]Set),
	}
}

// Build indexes records in one pass. A record ID seen more than once is
// indexed under every record that carries it and reported by Duplicates.
func Build(records []Record) *Tables {
	t := Empty()
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		id := rec.ID()
		if _, dup := seen[id]; dup {
			t.duplicates = append(t.duplicates, id)
		} else {
			seen[id] = struct{}{}
		}
		class := rec.ObjectClass()
		insert(t.byClass, class, id)

		for _, attr := range rec.Attributes() {
			insert(t.byAttr, attr, id)
			insert(t.byClassAttr, classAttr{class, attr}, id)
		}
		for _, value := range rec.Values() {
			insert(t.byValue, value, id)
			insert(t.byClassValue, classValue{class, value}, id)
		}
		for _, pair := range rec.AttributeValuePairs() {
			insert(t.byAttrValue, pair, id)
			insert(t.byClassAttrValue, classAttrValue{class, pair.Attr, pair.Value}, id)
		}
	}
	t.records = len(seen)
	return t
}

func insert[K comparable](table map[K]Set, key K, id string) {
	set, ok := table[key]
	if !ok {
		set = make(Set)
		table[key] = set
	}
	set.add(id)
}

func (t *Tables) ByClass(class string) (Set, bool) {
	s, ok := t.byClass[class]
	return s, ok
}

func (t *Tables) ByAttr(attr string) (Set, bool) {
	s, ok := t.byAttr[attr]
	return s, ok
}

func (t *Tables) ByValue(value string) (Set, bool) {
	s, ok := t.byValue[value]
	return s, ok
}

func (t *Tables) ByAttrValue(attr, value string) (Set, bool) {
	s, ok := t.byAttrValue[AttrValue{Attr: attr, Value: value}]
	return s, ok
}

func (t *Tables) ByClassAttr(class, attr string) (Set, bool) {
	s, ok := t.byClassAttr[classAttr{class, attr}]
	return s, ok
}

func (t *Tables) ByClassValue(class, value string) (Set, bool) {
	s, ok := t.byClassValue[classValue{class, value}]
	return s, ok
}

func (t *Tables) ByClassAttrValue(class, attr, value string) (Set, bool) {
	s, ok := t.byClassAttrValue[classAttrValue{class, attr, value}]
	return s, ok
}

// Records returns the number of distinct record IDs indexed.
func (t *Tables) Records() int {
	return t.records
}

// Duplicates returns every ID that appeared on more than one record, once
// per extra occurrence, in input order.
func (t *Tables) Duplicates() []string {
	return t.duplicates
}

func (t *Tables) Stats() Stats {
	return Stats{
		Records:         t.records,
		DuplicateIDs:    len(t.duplicates),
		Classes:         len(t.byClass),
		Attributes:      len(t.byAttr),
		Values:          len(t.byValue),
		AttrValues:      len(t.byAttrValue),
		ClassAttrs:      len(t.byClassAttr),
		ClassValues:     len(t.byClassValue),
		ClassAttrValues: len(t.byClassAttrValue),
	}
}
