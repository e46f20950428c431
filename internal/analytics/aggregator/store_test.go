package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/analytics"
)

// memoryDB keeps inserted snapshot payloads; Query returns them newest first.
type memoryDB struct {
	mu      sync.Mutex
	execs   []string
	data    [][]byte
	failErr error
}

func (m *memoryDB) Exec(_ context.Context, query string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.execs = append(m.execs, query)
	if len(args) == 5 {
		m.data = append(m.data, args[3].([]byte))
	}
	return nil
}

func (m *memoryDB) Query(_ context.Context, _ string, args ...any) (Rows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	limit := args[0].(int)
	var out [][]byte
	for i := len(m.data) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.data[i])
	}
	return &memoryRows{data: out, pos: -1}, nil
}

func (m *memoryDB) saved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type memoryRows struct {
	data [][]byte
	pos  int
}

func (r *memoryRows) Next() bool { r.pos++; return r.pos < len(r.data) }
func (r *memoryRows) Err() error { return nil }
func (r *memoryRows) Close() error { return nil }

func (r *memoryRows) Scan(dest ...any) error {
	*(dest[0].(*[]byte)) = r.data[r.pos]
	return nil
}

func TestInitCreatesTable(t *testing.T) {
	db := &memoryDB{}
	require.NoError(t, NewStore(db).Init(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS search_analytics_snapshots")
}

func TestSaveAndListSnapshots(t *testing.T) {
	db := &memoryDB{}
	s := NewStore(db)
	ctx := context.Background()

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.SaveSnapshot(ctx, analytics.AggregatedStats{TotalSearches: i * 10, Rebuilds: i}))
	}

	list, err := s.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(30), list[0].TotalSearches)
	assert.Equal(t, int64(20), list[1].TotalSearches)

	latest, err = s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(3), latest.Rebuilds)
}

func TestListSkipsUndecodableRows(t *testing.T) {
	good, err := json.Marshal(analytics.AggregatedStats{TotalSearches: 7})
	require.NoError(t, err)
	db := &memoryDB{data: [][]byte{good, []byte("{not json")}}

	list, err := NewStore(db).ListSnapshots(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(7), list[0].TotalSearches)
}

func TestStoreErrors(t *testing.T) {
	db := &memoryDB{failErr: errors.New("connection reset")}
	s := NewStore(db)
	assert.Error(t, s.Init(context.Background()))
	assert.Error(t, s.SaveSnapshot(context.Background(), analytics.AggregatedStats{}))
	_, err := s.LatestSnapshot(context.Background())
	assert.Error(t, err)
}

func TestRunSavesPeriodicallyAndOnShutdown(t *testing.T) {
	db := &memoryDB{}
	s := NewStore(db)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, analytics.NewAggregator(), 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return db.saved() >= 2 }, time.Second, 5*time.Millisecond)
	before := db.saved()
	cancel()
	<-done
	assert.Equal(t, before+1, db.saved())
}
