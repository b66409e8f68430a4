package thread

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const DefaultMaxDepth = 10

var ErrDepthExceeded = errors.New("comment nesting too deep")

// DepthExceededError 超出最大嵌套深度
type DepthExceededError struct {
	Depth int
	Max   int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("comment depth %d exceeds maximum %d", e.Depth, e.Max)
}

func (e *DepthExceededError) Is(target error) bool { return target == ErrDepthExceeded }

// DepthPolicy 超深回复的处理方式，必须显式配置
type DepthPolicy string

const (
	DepthReject DepthPolicy = "reject"
	// DepthClamp re-parents the reply to the deepest ancestor that can still take children.
	DepthClamp DepthPolicy = "clamp"
)

func ParseDepthPolicy(s string) (DepthPolicy, error) {
	switch DepthPolicy(s) {
	case DepthReject, DepthClamp:
		return DepthPolicy(s), nil
	}
	return "", fmt.Errorf("unknown depth policy %q", s)
}

// Node 树中一个评论的位置
type Node struct {
	ID        string
	Path      Path
	CreatedAt time.Time
	Score     float64 // 热度，只在 SortPopular 中使用
}

func (n Node) Depth() int { return n.Path.Depth() }

// Attach 计算新评论的路径和深度
// parent 为 nil 时是根评论
func Attach(parent *Node, id string, maxDepth int) (Path, int, error) {
	if parent == nil {
		return Path{id}, 0, nil
	}
	depth := parent.Depth() + 1
	if depth > maxDepth {
		return nil, 0, &DepthExceededError{Depth: depth, Max: maxDepth}
	}
	return parent.Path.Append(id), depth, nil
}

// Clamp 返回还能挂子评论的最深祖先的路径
func Clamp(parent Path, maxDepth int) Path {
	if parent.Depth() < maxDepth {
		return parent
	}
	return parent[:maxDepth]
}

// Order 兄弟评论的排列方式
type Order string

const (
	OrderOldest  Order = "oldest"
	OrderPopular Order = "popular"
)

func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderOldest:
		return OrderOldest, nil
	case OrderPopular:
		return OrderPopular, nil
	}
	return "", fmt.Errorf("unknown comment order %q", s)
}

// Sort 按路径排序：父评论在所有后代之前，兄弟之间按创建时间
// 路径段通过 items 中对应评论的创建时间比较，找不到时按 id 比较
func Sort[T any](items []T, node func(T) Node) {
	sortTree(items, node, func(a, b Node) int { return compareTime(a.CreatedAt, b.CreatedAt) })
}

// SortPopular 兄弟之间按热度从高到低，热度相同按创建时间，层级关系不变
func SortPopular[T any](items []T, node func(T) Node) {
	sortTree(items, node, func(a, b Node) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return compareTime(a.CreatedAt, b.CreatedAt)
	})
}

func SortBy[T any](items []T, node func(T) Node, order Order) {
	if order == OrderPopular {
		SortPopular(items, node)
		return
	}
	Sort(items, node)
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// sortTree 逐段比较路径，同一层的两个段用 sibling 比较，比不出结果时按 id
func sortTree[T any](items []T, node func(T) Node, sibling func(a, b Node) int) {
	nodes := make(map[string]Node, len(items))
	for _, it := range items {
		n := node(it)
		nodes[n.ID] = n
	}

	segment := func(a, b string) int {
		na, okA := nodes[a]
		nb, okB := nodes[b]
		if okA && okB {
			if c := sibling(na, nb); c != 0 {
				return c
			}
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := node(items[i]), node(items[j])
		n := min(len(a.Path), len(b.Path))
		for k := 0; k < n; k++ {
			if c := segment(a.Path[k], b.Path[k]); c != 0 {
				return c < 0
			}
		}
		if len(a.Path) != len(b.Path) {
			return len(a.Path) < len(b.Path)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
