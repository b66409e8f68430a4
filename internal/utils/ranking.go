package utils

import (
	"math"
	"time"
)

// PopularityConfig 热度公式参数
type PopularityConfig struct {
	BaseScore       float64 // 初始权重 (1.0)
	DecayHours      float64 // 时间衰减常数，单位小时 (24)
	SentimentWeight float64 // 情绪强度权重 (0.5)
}

var DefaultPopularityConfig = PopularityConfig{
	BaseScore:       1.0,
	DecayHours:      24,
	SentimentWeight: 0.5,
}

// PopularityScore 计算热度，纯函数
// score = base * exp(-age_h / decay) * ln(comments + 1) * (|sentiment| * weight + 1)
func PopularityScore(cfg PopularityConfig, createdAt time.Time, commentCount int, sentimentScore float64, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0 // 时钟偏差
	}
	if commentCount < 0 {
		commentCount = 0
	}

	// 1. 时间衰减
	decay := math.Exp(-hours / cfg.DecayHours)

	// 2. 互动加成，ln(0+1) = 0，没有评论的内容热度为 0
	engagement := math.Log(float64(commentCount) + 1)

	// 3. 情绪强度，正负都算
	sentimentFactor := math.Abs(sentimentScore)*cfg.SentimentWeight + 1.0

	return cfg.BaseScore * decay * engagement * sentimentFactor
}
