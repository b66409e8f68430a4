package moderation

import (
	"sort"
	"time"
)

// Thresholds 审核阈值配置，构造 Engine 时复制，之后不可变
type Thresholds struct {
	// Block is compared against identity_attack only.
	Block float64
	// Tag holds per-category tagging thresholds. A category without an entry is never tagged.
	Tag map[Category]float64
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		Block: 0.8,
		Tag: map[Category]float64{
			Toxicity:       0.55,
			SevereToxicity: 0.45,
			Obscene:        0.7,
			Threat:         0.5,
			Insult:         0.45,
		},
	}
}

// Result 审核结果
type Result struct {
	Blocked    bool                 `json:"is_blocked"`
	Tags       []Category           `json:"toxicity_tags"`
	Scores     map[Category]float64 `json:"scores"`
	ReviewedAt time.Time            `json:"reviewed_at"`
}

// HasTag reports whether c is among the result's tags.
func (r Result) HasTag(c Category) bool {
	for _, t := range r.Tags {
		if t == c {
			return true
		}
	}
	return false
}

type Engine struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewEngine 创建审核引擎
func NewEngine(t Thresholds) *Engine {
	tag := make(map[Category]float64, len(t.Tag))
	for k, v := range t.Tag {
		tag[k] = v
	}
	return &Engine{
		thresholds: Thresholds{Block: t.Block, Tag: tag},
		now:        time.Now,
	}
}

// Thresholds returns a copy of the engine's thresholds.
func (e *Engine) Thresholds() Thresholds {
	tag := make(map[Category]float64, len(e.thresholds.Tag))
	for k, v := range e.thresholds.Tag {
		tag[k] = v
	}
	return Thresholds{Block: e.thresholds.Block, Tag: tag}
}

// Decide 将原始分数转换为标签和拦截决定
// 拦截只看 identity_attack，打标签按各类别独立阈值，两者互不影响
func (e *Engine) Decide(scores map[Category]float64) Result {
	res := Result{
		Tags:       []Category{},
		Scores:     make(map[Category]float64, len(scores)),
		ReviewedAt: e.now().UTC(),
	}

	for c, score := range scores {
		res.Scores[c] = score
		if threshold, ok := e.thresholds.Tag[c]; ok && score >= threshold {
			res.Tags = append(res.Tags, c)
		}
	}
	sort.Slice(res.Tags, func(i, j int) bool { return res.Tags[i] < res.Tags[j] })

	if score, ok := scores[IdentityAttack]; ok && score >= e.thresholds.Block {
		res.Blocked = true
	}
	return res
}

// Unavailable 分析服务不可用时的降级结果：无标签、无分数、不拦截
func (e *Engine) Unavailable() Result {
	return Result{
		Tags:       []Category{},
		ReviewedAt: e.now().UTC(),
	}
}

// Severity 粗粒度严重程度，对外展示时替代原始分数
type Severity string

const (
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeveritySevere   Severity = "severe"
)

func severityOf(score float64) Severity {
	switch {
	case score >= 0.9:
		return SeveritySevere
	case score >= 0.7:
		return SeverityHigh
	default:
		return SeverityModerate
	}
}

// Explanation is the user-facing account of a moderation decision.
type Explanation struct {
	Category Category         `json:"category"`
	Severity Severity         `json:"severity"`
	Reason   string           `json:"reason"`
	Tags     []TagExplanation `json:"tags,omitempty"`
}

type TagExplanation struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
}

// Explain 生成不暴露模型原始数值的说明
func (e *Engine) Explain(r Result) Explanation {
	var exp Explanation
	for _, t := range r.Tags {
		exp.Tags = append(exp.Tags, TagExplanation{Category: t, Severity: severityOf(r.Scores[t])})
	}
	if r.Blocked {
		exp.Category = IdentityAttack
		exp.Severity = severityOf(r.Scores[IdentityAttack])
		exp.Reason = "content was blocked for " + IdentityAttack.Label()
		return exp
	}
	if len(r.Tags) > 0 {
		worst := r.Tags[0]
		for _, t := range r.Tags[1:] {
			if r.Scores[t] > r.Scores[worst] {
				worst = t
			}
		}
		exp.Category = worst
		exp.Severity = severityOf(r.Scores[worst])
		exp.Reason = "content was flagged for " + worst.Label()
	}
	return exp
}
