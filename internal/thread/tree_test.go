package thread

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachRoot(t *testing.T) {
	path, depth, err := Attach(nil, "a", DefaultMaxDepth)
	require.NoError(t, err)
	assert.Equal(t, Path{"a"}, path)
	assert.Equal(t, 0, depth)
}

func TestAttachExtendsParentPath(t *testing.T) {
	parent := &Node{ID: "b", Path: Path{"a", "b"}}
	path, depth, err := Attach(parent, "c", DefaultMaxDepth)
	require.NoError(t, err)

	assert.Equal(t, Path{"a", "b", "c"}, path)
	assert.Equal(t, 2, depth)
	assert.Equal(t, depth, len(path)-1)
	assert.True(t, parent.Path.IsAncestorOf(path))
	assert.Equal(t, Path{"a", "b"}, parent.Path, "parent path is not mutated")
}

func TestAttachSiblingsDoNotShareBacking(t *testing.T) {
	base := make(Path, 2, 8)
	base[0], base[1] = "a", "b"
	parent := &Node{ID: "b", Path: base}

	p1, _, _ := Attach(parent, "c1", DefaultMaxDepth)
	p2, _, _ := Attach(parent, "c2", DefaultMaxDepth)
	assert.Equal(t, "c1", p1.Last())
	assert.Equal(t, "c2", p2.Last())
}

func TestAttachDepthExceeded(t *testing.T) {
	var parent *Node
	for i := 0; i <= DefaultMaxDepth; i++ {
		id := fmt.Sprintf("c%02d", i)
		path, depth, err := Attach(parent, id, DefaultMaxDepth)
		require.NoError(t, err, "depth %d", i)
		require.Equal(t, i, depth)
		parent = &Node{ID: id, Path: path}
	}

	_, _, err := Attach(parent, "too-deep", DefaultMaxDepth)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDepthExceeded)

	var de *DepthExceededError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 11, de.Depth)
	assert.Equal(t, 10, de.Max)
}

func TestClamp(t *testing.T) {
	deep := Path{"0", "1", "2", "3"}
	assert.Equal(t, Path{"0", "1"}, Clamp(deep, 2))
	assert.Equal(t, deep, Clamp(deep, 5))

	clamped := Clamp(deep, 2)
	_, depth, err := Attach(&Node{Path: clamped}, "x", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

func TestPathSerialization(t *testing.T) {
	p := Path{"1", "3", "7"}
	assert.Equal(t, "1/3/7/", p.String())

	back, err := ParsePath("1/3/7/")
	require.NoError(t, err)
	assert.Equal(t, p, back)

	empty, err := ParsePath("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParsePath("1/3")
	assert.Error(t, err)
	_, err = ParsePath("1//3/")
	assert.Error(t, err)
}

func TestPathHelpers(t *testing.T) {
	p := Path{"a", "b", "c"}
	assert.Equal(t, Path{"a", "b"}, p.Parent())
	assert.Nil(t, Path{"a"}.Parent())
	assert.Equal(t, 2, p.Depth())
	assert.True(t, Path{"a"}.IsAncestorOf(p))
	assert.False(t, p.IsAncestorOf(p))
	assert.False(t, Path{"x"}.IsAncestorOf(p))
	assert.Equal(t, -1, Path{"a"}.Compare(p))
	assert.Equal(t, 1, Path{"b"}.Compare(p))
	assert.Equal(t, 0, p.Compare(Path{"a", "b", "c"}))
}

func TestSortThread(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return t0.Add(time.Duration(m) * time.Minute) }

	// ids deliberately do not follow creation order
	nodes := []Node{
		{ID: "z", Path: Path{"z"}, CreatedAt: at(0)},
		{ID: "a", Path: Path{"a"}, CreatedAt: at(5)},
		{ID: "m", Path: Path{"z", "m"}, CreatedAt: at(1)},
		{ID: "b", Path: Path{"z", "b"}, CreatedAt: at(2)},
		{ID: "q", Path: Path{"z", "m", "q"}, CreatedAt: at(3)},
		{ID: "c", Path: Path{"a", "c"}, CreatedAt: at(6)},
	}
	want := []string{"z", "m", "q", "b", "a", "c"}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]Node(nil), nodes...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		Sort(shuffled, func(n Node) Node { return n })

		got := make([]string, len(shuffled))
		for k, n := range shuffled {
			got[k] = n.ID
		}
		require.Equal(t, want, got)
	}
}

func TestSortParentsPrecedeDescendants(t *testing.T) {
	t0 := time.Now()
	var nodes []Node
	var parent *Node
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("n%d", i)
		path, _, err := Attach(parent, id, DefaultMaxDepth)
		require.NoError(t, err)
		n := Node{ID: id, Path: path, CreatedAt: t0.Add(time.Duration(i) * time.Second)}
		nodes = append([]Node{n}, nodes...)
		parent = &n
	}
	Sort(nodes, func(n Node) Node { return n })

	for i := 1; i < len(nodes); i++ {
		assert.True(t, nodes[i-1].Path.IsAncestorOf(nodes[i].Path))
	}
}

func TestParseDepthPolicy(t *testing.T) {
	p, err := ParseDepthPolicy("clamp")
	require.NoError(t, err)
	assert.Equal(t, DepthClamp, p)

	_, err = ParseDepthPolicy("truncate")
	assert.Error(t, err)
}

func TestSortPopularKeepsHierarchy(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return t0.Add(time.Duration(m) * time.Minute) }

	nodes := []Node{
		{ID: "r1", Path: Path{"r1"}, CreatedAt: at(0), Score: 0.5},
		{ID: "r2", Path: Path{"r2"}, CreatedAt: at(1), Score: 2},
		{ID: "r3", Path: Path{"r3"}, CreatedAt: at(2), Score: 0.5},
		{ID: "c1", Path: Path{"r1", "c1"}, CreatedAt: at(3)},
		{ID: "c2", Path: Path{"r1", "c2"}, CreatedAt: at(4), Score: 1},
		{ID: "g1", Path: Path{"r1", "c1", "g1"}, CreatedAt: at(5), Score: 9},
	}
	// r2 最热排第一，r1 和 r3 同分按时间；子树跟随父节点
	want := []string{"r2", "r1", "c2", "c1", "g1", "r3"}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]Node(nil), nodes...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		SortBy(shuffled, func(n Node) Node { return n }, OrderPopular)

		got := make([]string, len(shuffled))
		for k, n := range shuffled {
			got[k] = n.ID
		}
		require.Equal(t, want, got)
	}
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderOldest, o)

	o, err = ParseOrder("popular")
	require.NoError(t, err)
	assert.Equal(t, OrderPopular, o)

	_, err = ParseOrder("controversial")
	assert.Error(t, err)
}
