package thread

import (
	"fmt"
	"strings"
)

const separator = "/"

// Path 物化路径：从根评论到自身的 id 序列
// 内部使用切片，只在存储层序列化为 "a/b/c/"
type Path []string

// String 序列化为存储格式，每个 id 后跟一个分隔符
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	return strings.Join(p, separator) + separator
}

// ParsePath 解析存储格式
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.HasSuffix(s, separator) {
		return nil, fmt.Errorf("path %q: missing trailing separator", s)
	}
	parts := strings.Split(strings.TrimSuffix(s, separator), separator)
	for _, id := range parts {
		if id == "" {
			return nil, fmt.Errorf("path %q: empty segment", s)
		}
	}
	return Path(parts), nil
}

func (p Path) Depth() int { return len(p) - 1 }

// Last returns the id the path belongs to.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent 父节点路径，根评论返回 nil
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Append 返回新路径，不修改 p
func (p Path) Append(id string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, id)
}

// IsAncestorOf reports whether p is a strict prefix of other.
func (p Path) IsAncestorOf(other Path) bool {
	if len(p) == 0 || len(p) >= len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Compare 逐段比较，祖先排在后代之前
func (p Path) Compare(other Path) int {
	n := min(len(p), len(other))
	for i := 0; i < n; i++ {
		if c := strings.Compare(p[i], other[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	}
	return 0
}
