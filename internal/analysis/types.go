package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"socialpulse/internal/moderation"
)

// Analyzer 分析服务的抽象，管道只依赖这个接口
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Result, error)
}

// EmotionScores 后端返回的原始情绪分数，键为后端标签
type EmotionScores map[string]float64

// ModerationScores 后端返回的原始毒性分数
type ModerationScores map[string]float64

// Result 保存完整的原始分数向量，阈值调整后可以直接重新判定
type Result struct {
	Emotions   EmotionScores    `json:"emotions"`
	Primary    string           `json:"primary,omitempty"`
	Moderation ModerationScores `json:"moderation"`
	Cached     bool             `json:"-"`

	// SentimentErr is set when only the sentiment call failed; Emotions is then nil.
	SentimentErr error `json:"-"`
}

// Categories converts raw moderation labels into known categories, dropping the rest.
func (m ModerationScores) Categories() map[moderation.Category]float64 {
	out := make(map[moderation.Category]float64, len(m))
	for label, score := range m {
		if c, ok := moderation.ParseCategory(label); ok {
			out[c] = score
		}
	}
	return out
}

type textRequest struct {
	Text string `json:"text"`
}

type sentimentResponse struct {
	Emotions map[string]float64 `json:"emotions"`
	Primary  string             `json:"primary,omitempty"`
}

func (r sentimentResponse) validate() error {
	if r.Emotions == nil {
		return fmt.Errorf("missing emotions")
	}
	return validScores(r.Emotions)
}

type moderationResponse struct {
	Scores map[string]float64 `json:"scores"`
}

func (r moderationResponse) validate() error {
	if r.Scores == nil {
		return fmt.Errorf("missing scores")
	}
	return validScores(r.Scores)
}

func validScores(m map[string]float64) error {
	for label, v := range m {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("score %q out of range: %v", label, v)
		}
	}
	return nil
}

// CacheKey 内容哈希
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
