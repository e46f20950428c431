package parser

import (
	"fmt"
	"strings"
)

// Kind selects the index table a Term is looked up in.
type Kind uint8

const (
	KindClass Kind = iota + 1
	KindAttr
	KindValue
	KindClassAttr
	KindClassValue
	KindAttrValue
	KindClassAttrValue
)

var kindNames = map[Kind]string{
	KindClass:          "c",
	KindAttr:           "a",
	KindValue:          "v",
	KindClassAttr:      "ca",
	KindClassValue:     "cv",
	KindAttrValue:      "av",
	KindClassAttrValue: "cav",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText lets Kind appear by name in JSON payloads and log lines.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Key holds the facet slots of a Term. Only the slots belonging to the
// Term's Kind are populated; the others stay empty.
type Key struct {
	Class string
	Attr  string
	Value string
}

// Term is one weighted lookup against a single index table. Build Terms with
// the per-kind constructors so Key and Kind always agree.
type Term struct {
	Kind   Kind
	Key    Key
	Weight int
}

func Class(class string, weight int) Term {
	return Term{Kind: KindClass, Key: Key{Class: class}, Weight: weight}
}

func Attr(attr string, weight int) Term {
	return Term{Kind: KindAttr, Key: Key{Attr: attr}, Weight: weight}
}

func Value(value string, weight int) Term {
	return Term{Kind: KindValue, Key: Key{Value: value}, Weight: weight}
}

func ClassAttr(class, attr string, weight int) Term {
	return Term{Kind: KindClassAttr, Key: Key{Class: class, Attr: attr}, Weight: weight}
}

func ClassValue(class, value string, weight int) Term {
	return Term{Kind: KindClassValue, Key: Key{Class: class, Value: value}, Weight: weight}
}

func AttrValue(attr, value string, weight int) Term {
	return Term{Kind: KindAttrValue, Key: Key{Attr: attr, Value: value}, Weight: weight}
}

func ClassAttrValue(class, attr, value string, weight int) Term {
	return Term{Kind: KindClassAttrValue, Key: Key{Class: class, Attr: attr, Value: value}, Weight: weight}
}

// Slots returns the populated key slots in class, attribute, value order.
func (t Term) Slots() []string {
	switch t.Kind {
	case KindClass:
		return []string{t.Key.Class}
	case KindAttr:
		return []string{t.Key.Attr}
	case KindValue:
		return []string{t.Key.Value}
	case KindClassAttr:
		return []string{t.Key.Class, t.Key.Attr}
	case KindClassValue:
		return []string{t.Key.Class, t.Key.Value}
	case KindAttrValue:
		return []string{t.Key.Attr, t.Key.Value}
	case KindClassAttrValue:
		return []string{t.Key.Class, t.Key.Attr, t.Key.Value}
	}
	return nil
}

// KeyString renders the key the way it is reported in matched term lists:
// a bare string for single-slot kinds, a parenthesised tuple otherwise.
func (t Term) KeyString() string {
	slots := t.Slots()
	if len(slots) == 1 {
		return slots[0]
	}
	return "(" + strings.Join(slots, ", ") + ")"
}

func (t Term) String() string {
	return fmt.Sprintf("%s:%s/%d", t.Kind, t.KeyString(), t.Weight)
}
