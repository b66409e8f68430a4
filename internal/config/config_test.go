package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpulse/internal/analysis"
	"socialpulse/internal/moderation"
	"socialpulse/internal/services"
	"socialpulse/internal/thread"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, analysis.DefaultPolicy(), cfg.Analysis.Policy)
	assert.Equal(t, 0.8, cfg.Moderation.Block)
	assert.Equal(t, moderation.DefaultThresholds().Tag, cfg.Moderation.Tag)
	assert.Equal(t, 0.75, cfg.Sentiment.JoyMin)
	assert.Equal(t, services.FailOpen, cfg.Pipeline.FailureMode)
	assert.Equal(t, thread.DefaultMaxDepth, cfg.Pipeline.MaxDepth)
	assert.Equal(t, thread.DepthReject, cfg.Pipeline.DepthPolicy)
	assert.Equal(t, 1.0, cfg.Ranking.Popularity.BaseScore)
	assert.Equal(t, "@every 15m", cfg.Ranking.RefreshSpec)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANALYSIS_TIMEOUT", "3s")
	t.Setenv("ANALYSIS_MAX_ATTEMPTS", "5")
	t.Setenv("MODERATION_BLOCK", "0.9")
	t.Setenv("MODERATION_TAG_IDENTITY_ATTACK", "0.4")
	t.Setenv("PIPELINE_FAILURE_MODE", "require_review")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Analysis.Policy.Timeout)
	assert.Equal(t, 5, cfg.Analysis.Policy.MaxAttempts)
	assert.Equal(t, 0.9, cfg.Moderation.Block)
	assert.Equal(t, 0.4, cfg.Moderation.Tag[moderation.IdentityAttack])
	assert.Equal(t, services.RequireReview, cfg.Pipeline.FailureMode)
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := map[string]string{
		"ANALYSIS_TIMEOUT":      "100ms",
		"MODERATION_BLOCK":      "1.5",
		"PIPELINE_FAILURE_MODE": "shrug",
		"PIPELINE_DEPTH_POLICY": "truncate",
		"ANALYSIS_BACKOFF":      "linear",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromViper(viper.New())
			assert.Error(t, err)
		})
	}
}
