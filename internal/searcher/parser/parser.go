package parser

import (
	"strings"
)

const (
	classMarker = '#'
	attrMarker  = '@'
	valueMarker = '='
	anyMarker   = '*'
)

// Specificity weights. A term pinning more facets scores higher.
const (
	weightClassAttrValue = 8
	weightTripleWildcard = 6
	weightPair           = 4
	weightPairWildcard   = 3
	weightSingle         = 2
	weightWildcard       = 1
)

type segments struct {
	class, attr, value, wildcard string
}

func (s segments) hasClass() bool    { return s.class != "" }
func (s segments) hasAttr() bool     { return s.attr != "" }
func (s segments) hasValue() bool    { return s.value != "" }
func (s segments) hasWildcard() bool { return s.wildcard != "" }

// ParseQuery splits query on whitespace and pools the Terms of every token in
// token order.
func ParseQuery(query string) []Term {
	tokens := strings.Fields(query)
	terms := make([]Term, 0, len(tokens)*3)
	for _, token := range tokens {
		terms = append(terms, Parse(token)...)
	}
	return terms
}

// Parse turns a single whitespace-free token into the Terms it addresses. A
// token that resolves to no facet yields nil.
func Parse(token string) []Term {
	if token == "" {
		return nil
	}
	if !isMarker(token[0]) {
		token = string(anyMarker) + token
	}
	s := segments{
		class:    extract(token, classMarker),
		attr:     extract(token, attrMarker),
		value:    extract(token, valueMarker),
		wildcard: extract(token, anyMarker),
	}

	switch {
	case s.hasClass() && s.hasAttr() && s.hasValue():
		return []Term{ClassAttrValue(s.class, s.attr, s.value, weightClassAttrValue)}
	case s.hasClass() && s.hasAttr() && s.hasWildcard():
		return []Term{ClassAttrValue(s.class, s.attr, s.wildcard, weightTripleWildcard)}
	case s.hasClass() && s.hasAttr():
		return []Term{ClassAttr(s.class, s.attr, weightPair)}
	case s.hasClass() && s.hasValue() && s.hasWildcard():
		return []Term{ClassAttrValue(s.class, s.wildcard, s.value, weightTripleWildcard)}
	case s.hasClass() && s.hasValue():
		return []Term{ClassValue(s.class, s.value, weightPair)}
	case s.hasClass() && s.hasWildcard():
		return []Term{
			ClassAttr(s.class, s.wildcard, weightPairWildcard),
			ClassValue(s.class, s.wildcard, weightPairWildcard),
		}
	case s.hasAttr() && s.hasValue() && s.hasWildcard():
		return []Term{ClassAttrValue(s.wildcard, s.attr, s.value, weightTripleWildcard)}
	case s.hasAttr() && s.hasValue():
		return []Term{AttrValue(s.attr, s.value, weightPair)}
	case s.hasAttr() && s.hasWildcard():
		return []Term{
			ClassAttr(s.wildcard, s.attr, weightPairWildcard),
			AttrValue(s.attr, s.wildcard, weightPairWildcard),
		}
	case s.hasValue() && s.hasWildcard():
		return []Term{
			ClassValue(s.wildcard, s.value, weightPairWildcard),
			AttrValue(s.wildcard, s.value, weightPairWildcard),
		}
	case s.hasClass():
		return []Term{Class(s.class, weightSingle)}
	case s.hasAttr():
		return []Term{Attr(s.attr, weightSingle)}
	case s.hasValue():
		return []Term{Value(s.value, weightSingle)}
	case s.hasWildcard():
		return []Term{
			Class(s.wildcard, weightWildcard),
			Attr(s.wildcard, weightWildcard),
			Value(s.wildcard, weightWildcard),
		}
	}
	return nil
}

// extract returns the first non-empty run of non-marker characters that
// directly follows an occurrence of marker, or "" if there is none.
func extract(token string, marker byte) string {
	for i := 0; i < len(token); i++ {
		if token[i] != marker {
			continue
		}
		end := i + 1
		for end < len(token) && !isMarker(token[end]) {
			end++
		}
		if end > i+1 {
			return token[i+1 : end]
		}
	}
	return ""
}

func isMarker(c byte) bool {
	switch c {
	case classMarker, attrMarker, valueMarker, anyMarker:
		return true
	}
	return false
}
