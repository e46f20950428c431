package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDisambiguation(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  []Term
	}{
		{"class attr value", "#Tenant@name=APP1", []Term{ClassAttrValue("Tenant", "name", "APP1", 8)}},
		{"class attr wildcard", "#Tenant@name*APP", []Term{ClassAttrValue("Tenant", "name", "APP", 6)}},
		{"class attr", "#Tenant@name", []Term{ClassAttr("Tenant", "name", 4)}},
		{"class value wildcard", "#Tenant=APP1*descr", []Term{ClassAttrValue("Tenant", "descr", "APP1", 6)}},
		{"class value", "#Tenant=APP1", []Term{ClassValue("Tenant", "APP1", 4)}},
		{"class wildcard", "#Tenant*APP1", []Term{
			ClassAttr("Tenant", "APP1", 3),
			ClassValue("Tenant", "APP1", 3),
		}},
		{"attr value wildcard", "@name=APP1*Tenant", []Term{ClassAttrValue("Tenant", "name", "APP1", 6)}},
		{"attr value", "@name=APP1", []Term{AttrValue("name", "APP1", 4)}},
		{"attr wildcard", "@name*Tenant", []Term{
			ClassAttr("Tenant", "name", 3),
			AttrValue("name", "Tenant", 3),
		}},
		{"value wildcard", "=APP1*Tenant", []Term{
			ClassValue("Tenant", "APP1", 3),
			AttrValue("Tenant", "APP1", 3),
		}},
		{"class only", "#Tenant", []Term{Class("Tenant", 2)}},
		{"attr only", "@name", []Term{Attr("name", 2)}},
		{"value only", "=APP1", []Term{Value("APP1", 2)}},
		{"explicit wildcard", "*leaf", []Term{
			Class("leaf", 1),
			Attr("leaf", 1),
			Value("leaf", 1),
		}},
		{"bare token is wildcard", "leaf", []Term{
			Class("leaf", 1),
			Attr("leaf", 1),
			Value("leaf", 1),
		}},
		{"markers only", "#@=*", nil},
		{"single marker", "#", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.token))
		})
	}
}

func TestParseBareTokenYieldsThreeWildcardTerms(t *testing.T) {
	terms := Parse("leaf")
	require.Len(t, terms, 3)
	kinds := []Kind{KindClass, KindAttr, KindValue}
	for i, term := range terms {
		assert.Equal(t, kinds[i], term.Kind)
		assert.Equal(t, 1, term.Weight)
		assert.Equal(t, "leaf", term.KeyString())
	}
}

func TestParseFullySpecifiedToken(t *testing.T) {
	terms := Parse("#Tenant@name=APP1")
	require.Len(t, terms, 1)
	assert.Equal(t, KindClassAttrValue, terms[0].Kind)
	assert.Equal(t, Key{Class: "Tenant", Attr: "name", Value: "APP1"}, terms[0].Key)
	assert.Equal(t, 8, terms[0].Weight)
}

// A trailing wildcard marker with nothing after it is an empty segment, and
// empty segments never count as present.
func TestParseEmptyWildcardSegment(t *testing.T) {
	assert.Equal(t, []Term{Class("Tenant", 2)}, Parse("#Tenant*"))
	assert.Equal(t, []Term{
		ClassAttr("Tenant", "x", 3),
		ClassValue("Tenant", "x", 3),
	}, Parse("#Tenant*x"))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		token  string
		marker byte
		want   string
	}{
		{"#Tenant@name", '#', "Tenant"},
		{"#Tenant@name", '@', "name"},
		{"#Tenant@name", '=', ""},
		{"##Tenant", '#', "Tenant"},
		{"#a#b", '#', "a"},
		{"#=x", '#', ""},
		{"=x#", '=', "x"},
		{"*", '*', ""},
		{"*ünïcode@x", '*', "ünïcode"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extract(tt.token, tt.marker), "extract(%q, %q)", tt.token, tt.marker)
	}
}

func TestParseQueryPoolsTokensInOrder(t *testing.T) {
	terms := ParseQuery("  #Tenant   leaf\t@name=APP1 ")
	want := []Term{
		Class("Tenant", 2),
		Class("leaf", 1),
		Attr("leaf", 1),
		Value("leaf", 1),
		AttrValue("name", "APP1", 4),
	}
	assert.Equal(t, want, terms)
}

func TestParseQueryEmpty(t *testing.T) {
	assert.Empty(t, ParseQuery(""))
	assert.Empty(t, ParseQuery("   \t"))
	assert.Empty(t, ParseQuery("# @ ="))
}

func TestTermKeyString(t *testing.T) {
	assert.Equal(t, "leaf", Value("leaf", 2).KeyString())
	assert.Equal(t, "(Tenant, name)", ClassAttr("Tenant", "name", 4).KeyString())
	assert.Equal(t, "(Tenant, name, APP1)", ClassAttrValue("Tenant", "name", "APP1", 8).KeyString())
	assert.Equal(t, "cav:(Tenant, name, APP1)/8", ClassAttrValue("Tenant", "name", "APP1", 8).String())
	assert.Equal(t, "av", KindAttrValue.String())
}
