package sentiment

import "sort"

// Thresholds 情绪判定阈值，构造后不可变
type Thresholds struct {
	// JoyMin is the minimum raw score for joy to be chosen as primary.
	JoyMin float64
	// JoyCap caps the reported confidence when joy is chosen.
	JoyCap float64
	// FallbackConfidence is reported when nothing better is known.
	FallbackConfidence float64
	// PatternConfidence is reported when a text pattern matched.
	PatternConfidence float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		JoyMin:             0.75,
		JoyCap:             0.85,
		FallbackConfidence: 0.3,
		PatternConfidence:  0.55,
	}
}

type Source string

const (
	SourceModel   Source = "model"
	SourcePattern Source = "pattern"
)

// Result 一次情绪分类的结果，生成后不再修改
type Result struct {
	Primary    Emotion             `json:"primary_emotion"`
	Confidence float64             `json:"confidence"`
	Scores     map[Emotion]float64 `json:"scores,omitempty"`
	Colors     []string            `json:"colors,omitempty"`
	Source     Source              `json:"source"`
}

// Score is the signed sentiment magnitude used for ranking.
func (r Result) Score() float64 {
	return r.Primary.Polarity() * r.Confidence
}

type Engine struct {
	thresholds Thresholds
}

func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

func (e *Engine) Thresholds() Thresholds { return e.thresholds }

type ranked struct {
	emotion Emotion
	score   float64
}

// Normalize 把后端标签映射到已知情绪，同一情绪取最大分，未知标签丢弃
func Normalize(raw map[string]float64) map[Emotion]float64 {
	out := make(map[Emotion]float64, len(raw))
	for label, score := range raw {
		em, ok := ParseEmotion(label)
		if !ok {
			continue
		}
		if prev, seen := out[em]; !seen || score > prev {
			out[em] = clamp01(score)
		}
	}
	return out
}

// Classify 选出主情绪
// joy 需要达到 JoyMin 才能成为主情绪，且置信度不超过 JoyCap；否则退回第二高的情绪或 neutral
func (e *Engine) Classify(raw map[string]float64, hint string) Result {
	scores := Normalize(raw)
	if len(scores) == 0 {
		primary, ok := ParseEmotion(hint)
		if !ok || primary == Joy {
			primary = Neutral
		}
		return Result{
			Primary:    primary,
			Confidence: e.thresholds.FallbackConfidence,
			Colors:     []string{primary.Color()},
			Source:     SourceModel,
		}
	}

	list := make([]ranked, 0, len(scores))
	for em, s := range scores {
		list = append(list, ranked{em, s})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].emotion.rank() < list[j].emotion.rank()
	})

	var chosen *ranked
	for i := range list {
		c := list[i]
		if c.score <= 0 {
			break
		}
		if c.emotion == Joy && c.score < e.thresholds.JoyMin {
			continue
		}
		chosen = &list[i]
		break
	}

	res := Result{Scores: scores, Source: SourceModel}
	if chosen == nil {
		res.Primary = Neutral
		res.Confidence = e.thresholds.FallbackConfidence
		if s, ok := scores[Neutral]; ok && s > 0 {
			res.Confidence = s
		}
	} else {
		res.Primary = chosen.emotion
		res.Confidence = chosen.score
		if chosen.emotion == Joy && res.Confidence > e.thresholds.JoyCap {
			res.Confidence = e.thresholds.JoyCap
		}
	}
	res.Colors = colorsFor(res.Primary, list)
	return res
}

// sarcastic / affectionate 会叠加次要情绪的颜色
func colorsFor(primary Emotion, list []ranked) []string {
	colors := []string{primary.Color()}
	if primary != Sarcastic && primary != Affectionate {
		return colors
	}
	for _, c := range list {
		if c.emotion == primary || c.emotion == Neutral || c.score <= 0 {
			continue
		}
		return append(colors, c.emotion.Color())
	}
	return colors
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
