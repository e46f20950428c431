package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/parser"
)

func object(class, dn string, attrs map[string]string) index.Searchable {
	rec := index.Searchable{Class: class, DN: dn}
	for attr, value := range attrs {
		rec.Attrs = append(rec.Attrs, attr)
		rec.Vals = append(rec.Vals, value)
		rec.Pairs = append(rec.Pairs, index.AttrValue{Attr: attr, Value: value})
	}
	return rec
}

func fabricRecords() []index.Record {
	return []index.Record{
		object("Tenant", "uni/tn-APP1", map[string]string{"name": "APP1", "descr": "leaf"}),
		object("Tenant", "uni/tn-common", map[string]string{"name": "common"}),
		object("AppProfile", "uni/tn-APP1/ap-APP1", map[string]string{"name": "APP1"}),
		object("Node", "topology/pod-1/node-101", map[string]string{"name": "leaf", "role": "leaf"}),
		object("leaf", "topology/pod-1/node-102", map[string]string{"name": "leaf2"}),
	}
}

func newExecutor(t *testing.T, recs []index.Record) *Executor {
	t.Helper()
	idx := indexer.New(nil)
	idx.Build(recs)
	return New(idx, 100, nil)
}

func ids(res *SearchResult) []string {
	out := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		out = append(out, r.ID)
	}
	return out
}

func TestExecuteEmptyQuery(t *testing.T) {
	exec := newExecutor(t, fabricRecords())
	for _, q := range []string{"", "   ", "# @= *"} {
		res, err := exec.Execute(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, res.Results, q)
		assert.Zero(t, res.TotalCandidates, q)
	}
}

func TestExecuteNoMatches(t *testing.T) {
	exec := newExecutor(t, fabricRecords())
	res, err := exec.Execute(context.Background(), "#BridgeDomain")
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalCandidates)
	require.Len(t, res.Terms, 1)
	assert.Zero(t, res.Terms[0].Matches)
}

func TestExecuteFullySpecifiedTerm(t *testing.T) {
	exec := newExecutor(t, fabricRecords())
	res, err := exec.Execute(context.Background(), "#Tenant@name=APP1")
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "uni/tn-APP1", res.Results[0].ID)
	assert.Equal(t, 8, res.Results[0].PrimaryScore)
	assert.Equal(t, []string{"(Tenant, name, APP1)"}, res.Results[0].MatchedTerms)
}

func TestExecuteWildcardSearchesAllFacets(t *testing.T) {
	exec := newExecutor(t, fabricRecords())
	res, err := exec.Execute(context.Background(), "leaf")
	require.NoError(t, err)

	// node-102 matches by class, node-101 by value, tn-APP1 by value; the
	// attribute table has no "leaf" key.
	assert.Equal(t, 3, res.TotalCandidates)
	assert.Equal(t, []string{
		"topology/pod-1/node-101",
		"topology/pod-1/node-102",
		"uni/tn-APP1",
	}, ids(res))
	for _, r := range res.Results {
		assert.Equal(t, 1, r.PrimaryScore)
	}
}

func TestExecuteMultiTokenScoring(t *testing.T) {
	exec := newExecutor(t, fabricRecords())
	res, err := exec.Execute(context.Background(), "#Tenant =APP1")
	require.NoError(t, err)

	assert.Equal(t, []string{"uni/tn-APP1", "uni/tn-APP1/ap-APP1", "uni/tn-common"}, ids(res))
	assert.Equal(t, 4, res.Results[0].PrimaryScore)
	assert.Equal(t, 2, res.Results[1].PrimaryScore)
	assert.Equal(t, 2, res.Results[2].PrimaryScore)
	assert.Equal(t, []string{"APP1", "Tenant"}, res.Results[0].MatchedTerms)
}

func TestExecuteIdempotentRebuild(t *testing.T) {
	idx := indexer.New(nil)
	exec := New(idx, 100, nil)
	queries := []string{"leaf", "#Tenant", "@name=APP1", "=APP1*Tenant", "#Node*leaf"}

	idx.Build(fabricRecords())
	first := make([]*SearchResult, 0, len(queries))
	for _, q := range queries {
		res, err := exec.Execute(context.Background(), q)
		require.NoError(t, err)
		first = append(first, res)
	}

	idx.Build(fabricRecords())
	for i, q := range queries {
		res, err := exec.Execute(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, first[i], res, q)
	}
}

func TestExecuteOrderIndependentOfInput(t *testing.T) {
	recs := fabricRecords()
	reversed := make([]index.Record, len(recs))
	for i, r := range recs {
		reversed[len(recs)-1-i] = r
	}
	a, err := newExecutor(t, recs).Execute(context.Background(), "leaf #Tenant")
	require.NoError(t, err)
	b, err := newExecutor(t, reversed).Execute(context.Background(), "leaf #Tenant")
	require.NoError(t, err)
	assert.Equal(t, a.Results, b.Results)
}

func TestExecuteTruncatesToLimit(t *testing.T) {
	recs := make([]index.Record, 0, 150)
	for i := 0; i < 150; i++ {
		recs = append(recs, object("EPG", fmt.Sprintf("uni/tn-a/ap-b/epg-%03d", i), map[string]string{"name": "web"}))
	}
	exec := newExecutor(t, recs)
	res, err := exec.Execute(context.Background(), "=web")
	require.NoError(t, err)
	assert.Len(t, res.Results, 100)
	assert.Equal(t, 150, res.TotalCandidates)
	assert.Equal(t, "uni/tn-a/ap-b/epg-000", res.Results[0].ID)
}

func TestLookupDispatchesByKind(t *testing.T) {
	tables := index.Build(fabricRecords())
	tests := []struct {
		term parser.Term
		want bool
	}{
		{parser.Class("Tenant", 2), true},
		{parser.Attr("role", 2), true},
		{parser.Value("common", 2), true},
		{parser.ClassAttr("Node", "role", 4), true},
		{parser.ClassValue("AppProfile", "APP1", 4), true},
		{parser.AttrValue("role", "leaf", 4), true},
		{parser.ClassAttrValue("Node", "role", "leaf", 8), true},
		{parser.ClassAttr("Tenant", "role", 4), false},
		{parser.Term{Kind: parser.Kind(99)}, false},
	}
	for _, tt := range tests {
		_, ok := Lookup(tables, tt.term)
		assert.Equal(t, tt.want, ok, tt.term.String())
	}
}
