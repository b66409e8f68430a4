package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPicksHighest(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	res := e.Classify(map[string]float64{"angry": 0.7, "sad": 0.2, "joy": 0.1}, "")

	assert.Equal(t, Angry, res.Primary)
	assert.Equal(t, 0.7, res.Confidence)
	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, []string{"#dc2626"}, res.Colors)
}

func TestClassifyJoyBias(t *testing.T) {
	e := NewEngine(DefaultThresholds())

	tests := []struct {
		name       string
		raw        map[string]float64
		primary    Emotion
		confidence float64
	}{
		{"joy below min falls back to second", map[string]float64{"joy": 0.7, "surprise": 0.2}, Surprise, 0.2},
		{"joy below min without runner-up", map[string]float64{"joy": 0.6}, Neutral, 0.3},
		{"joy at min is accepted", map[string]float64{"joy": 0.75, "sad": 0.1}, Joy, 0.75},
		{"joy confidence is capped", map[string]float64{"joy": 0.97}, Joy, 0.85},
		{"joy below min uses neutral score", map[string]float64{"joy": 0.5, "neutral": 0.4}, Neutral, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Classify(tt.raw, "")
			assert.Equal(t, tt.primary, res.Primary)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
		})
	}
}

func TestClassifyAliasesAndUnknownLabels(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	res := e.Classify(map[string]float64{"anger": 0.4, "sadness": 0.6, "optimism": 0.9}, "")

	assert.Equal(t, Sad, res.Primary)
	assert.Len(t, res.Scores, 2)
	assert.Equal(t, 0.4, res.Scores[Angry])
}

func TestClassifyTieUsesCanonicalOrder(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	for i := 0; i < 20; i++ {
		res := e.Classify(map[string]float64{"fear": 0.5, "sad": 0.5}, "")
		require.Equal(t, Sad, res.Primary)
	}
}

func TestClassifyEmptyUsesHint(t *testing.T) {
	e := NewEngine(DefaultThresholds())

	res := e.Classify(nil, "fear")
	assert.Equal(t, Fear, res.Primary)
	assert.Equal(t, 0.3, res.Confidence)

	res = e.Classify(map[string]float64{}, "joy")
	assert.Equal(t, Neutral, res.Primary)

	res = e.Classify(nil, "bogus")
	assert.Equal(t, Neutral, res.Primary)
}

func TestClassifyComboColors(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	res := e.Classify(map[string]float64{"sarcastic": 0.8, "angry": 0.3, "neutral": 0.5}, "")

	assert.Equal(t, Sarcastic, res.Primary)
	assert.Equal(t, []string{Sarcastic.Color(), Angry.Color()}, res.Colors)
}

func TestResultScore(t *testing.T) {
	assert.InDelta(t, -0.7, Result{Primary: Angry, Confidence: 0.7}.Score(), 1e-9)
	assert.InDelta(t, 0.8, Result{Primary: Joy, Confidence: 0.8}.Score(), 1e-9)
	assert.Zero(t, Result{Primary: Neutral, Confidence: 0.9}.Score())
}

func TestFallback(t *testing.T) {
	e := NewEngine(DefaultThresholds())

	tests := []struct {
		text    string
		primary Emotion
	}{
		{"I am absolutely furious about this", Angry},
		{"That smell is revolting", Disgust},
		{"Oh great, another Monday", Sarcastic},
		{"I adore you, darling", Affectionate},
		{"So excited for the trip!", Joy},
		{"I'm baffled, this makes no sense", Confused},
		{"I'm scared of the dark", Fear},
		{"The forecast says 20 degrees and sunny", Neutral},
		{"zxcv qwer", Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := e.Fallback(tt.text)
			assert.Equal(t, tt.primary, res.Primary)
			assert.Equal(t, SourcePattern, res.Source)
			assert.NotEmpty(t, res.Colors)
		})
	}
}

func TestFallbackConfidence(t *testing.T) {
	e := NewEngine(DefaultThresholds())

	assert.Equal(t, 0.3, e.Fallback("zxcv qwer").Confidence)
	assert.Equal(t, 0.55, e.Fallback("It rained this morning").Confidence)
	assert.Equal(t, 0.55, e.Fallback("I am so angry").Confidence)
}

func TestParseEmotion(t *testing.T) {
	for _, em := range Emotions() {
		got, ok := ParseEmotion(string(em))
		assert.True(t, ok)
		assert.Equal(t, em, got)
	}
	got, ok := ParseEmotion("Love")
	assert.True(t, ok)
	assert.Equal(t, Affectionate, got)

	_, ok = ParseEmotion("optimism")
	assert.False(t, ok)
}
