package sentiment

import "strings"

// Emotion 情绪类别，闭合集合
type Emotion string

const (
	Joy          Emotion = "joy"
	Sad          Emotion = "sad"
	Angry        Emotion = "angry"
	Fear         Emotion = "fear"
	Disgust      Emotion = "disgust"
	Surprise     Emotion = "surprise"
	Confused     Emotion = "confused"
	Neutral      Emotion = "neutral"
	Sarcastic    Emotion = "sarcastic"
	Affectionate Emotion = "affectionate"
)

// emotions 的顺序也是同分时的优先顺序
var emotions = []Emotion{Joy, Sad, Angry, Fear, Disgust, Surprise, Confused, Neutral, Sarcastic, Affectionate}

// Emotions returns the closed emotion set in its canonical order.
func Emotions() []Emotion {
	out := make([]Emotion, len(emotions))
	copy(out, emotions)
	return out
}

// 模型常见的别名
var aliases = map[string]Emotion{
	"anger":     Angry,
	"mad":       Angry,
	"sadness":   Sad,
	"happy":     Joy,
	"happiness": Joy,
	"excited":   Joy,
	"love":      Affectionate,
	"affection": Affectionate,
	"calm":      Neutral,
	"sarcasm":   Sarcastic,
	"confusion": Confused,
}

// ParseEmotion 解析情绪名，支持别名
func ParseEmotion(s string) (Emotion, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, e := range emotions {
		if string(e) == key {
			return e, true
		}
	}
	if e, ok := aliases[key]; ok {
		return e, true
	}
	return "", false
}

func (e Emotion) String() string { return string(e) }

func (e Emotion) rank() int {
	for i, known := range emotions {
		if known == e {
			return i
		}
	}
	return len(emotions)
}

// Color 情绪对应的 UI 颜色
func (e Emotion) Color() string {
	switch e {
	case Joy:
		return "#22d3ee"
	case Sad:
		return "#1e3a8a"
	case Angry:
		return "#dc2626"
	case Fear:
		return "#374151"
	case Disgust:
		return "#84cc16"
	case Surprise:
		return "#f97316"
	case Confused:
		return "#8b5cf6"
	case Sarcastic:
		return "#7c3aed"
	case Affectionate:
		return "#ec4899"
	default:
		return "#6b7280"
	}
}

// Polarity 情绪的正负倾向，[-1, 1]
func (e Emotion) Polarity() float64 {
	switch e {
	case Joy, Affectionate:
		return 1
	case Surprise:
		return 0.3
	case Sad, Angry, Fear, Disgust:
		return -1
	case Sarcastic:
		return -0.5
	case Confused:
		return -0.2
	default:
		return 0
	}
}
