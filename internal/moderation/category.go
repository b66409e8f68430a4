package moderation

import "strings"

// Category 是审核模型输出的毒性类别，闭合集合
type Category string

const (
	Toxicity       Category = "toxicity"
	SevereToxicity Category = "severe_toxicity"
	Obscene        Category = "obscene"
	Threat         Category = "threat"
	Insult         Category = "insult"
	IdentityAttack Category = "identity_attack"
)

var categories = []Category{Toxicity, SevereToxicity, Obscene, Threat, Insult, IdentityAttack}

// Categories returns every known category in a stable order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory 解析后端返回的类别名，未知类别返回 false
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string { return string(c) }

// Label 用于展示
func (c Category) Label() string {
	switch c {
	case Toxicity:
		return "toxic language"
	case SevereToxicity:
		return "severely toxic language"
	case Obscene:
		return "obscene content"
	case Threat:
		return "threatening language"
	case Insult:
		return "insulting language"
	case IdentityAttack:
		return "attack on identity"
	}
	return string(c)
}
