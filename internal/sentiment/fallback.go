package sentiment

import (
	"regexp"
	"strings"
)

type pattern struct {
	emotion Emotion
	res     []*regexp.Regexp
}

func words(list ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(list, "|") + `)\b`)
}

// 顺序即优先级，越具体的越靠前
var emotionPatterns = []pattern{
	{Sarcastic, []*regexp.Regexp{
		words(`oh great`, `yeah right`, `just perfect`, `just great`, `how wonderful`, `living the dream`, `love that for me`, `as if`),
		words(`what else could go wrong`, `who doesn'?t love`, `how much worse can it get`),
	}},
	{Angry, []*regexp.Regexp{
		words(`furious`, `livid`, `enraged`, `outraged`, `angry`, `pissed off`, `mad at`),
		words(`fed up`, `sick of`, `driving me (?:crazy|insane)`, `makes me (?:mad|furious)`),
		words(`idiots?`, `morons?`, `incompetent`, `worthless`, `bullshit`, `absolute trash`),
	}},
	{Disgust, []*regexp.Regexp{
		words(`disgusting`, `revolting`, `nauseating`, `repulsive`, `gross`, `vile`),
		words(`makes me sick`, `rotten`, `stinks`, `putrid`, `reeks`, `moldy`),
	}},
	{Fear, []*regexp.Regexp{
		words(`scared`, `afraid`, `terrified`, `frightened`, `anxious`, `panic(?:king)?`, `nervous`),
	}},
	{Sad, []*regexp.Regexp{
		words(`sad`, `unhappy`, `depressed`, `heartbroken`, `miserable`, `lonely`, `crying`, `grief`),
		words(`miss (?:you|her|him|them)`, `feel(?:ing)? down`),
	}},
	{Affectionate, []*regexp.Regexp{
		words(`love`, `adore`, `cherish`, `treasure`, `devoted`, `tender`),
		words(`darling`, `sweetheart`, `honey`, `beloved`, `my dear`, `my heart`),
		regexp.MustCompile(`[❤💕💖💗💓💝🥰😍]`),
	}},
	{Joy, []*regexp.Regexp{
		words(`happy`, `joyful`, `delighted`, `elated`, `ecstatic`, `thrilled`, `excited`),
		words(`can'?t wait`, `so pumped`, `feeling good`, `good mood`, `cheerful`, `glad`),
	}},
	{Surprise, []*regexp.Regexp{
		words(`surprised`, `shocked`, `astonished`, `unexpected`, `no way`, `wow`),
	}},
	{Confused, []*regexp.Regexp{
		words(`confused`, `bewildered`, `puzzled`, `perplexed`, `baffled`),
		words(`don'?t understand`, `makes no sense`, `no idea`, `what'?s going on`),
	}},
}

// 事实陈述、天气、日常活动
var neutralIndicators = []*regexp.Regexp{
	words(`calm`, `peaceful`, `serene`, `quiet`, `relaxed`),
	words(`weather`, `forecast`, `temperature`, `degrees`, `sunny`, `cloudy`, `rain(?:ing|y)?`, `snow(?:ing)?`, `humidity`),
	words(`according to`, `reported`, `announced`, `scheduled`, `meeting`, `percent`, `statistics`, `data shows`),
	words(`went to`, `going to the`, `had (?:breakfast|lunch|dinner)`, `commute`, `grocer(?:y|ies)`, `laundry`, `this morning`, `today i`),
}

// Fallback 没有模型结果时按文本模式匹配兜底，永远返回结果
func (e *Engine) Fallback(text string) Result {
	lower := strings.ToLower(text)
	for _, p := range emotionPatterns {
		for _, re := range p.res {
			if re.MatchString(lower) {
				return Result{
					Primary:    p.emotion,
					Confidence: e.patternConfidence(p.emotion),
					Colors:     []string{p.emotion.Color()},
					Source:     SourcePattern,
				}
			}
		}
	}

	confidence := e.thresholds.FallbackConfidence
	for _, re := range neutralIndicators {
		if re.MatchString(lower) {
			confidence = e.thresholds.PatternConfidence
			break
		}
	}
	return Result{
		Primary:    Neutral,
		Confidence: confidence,
		Colors:     []string{Neutral.Color()},
		Source:     SourcePattern,
	}
}

func (e *Engine) patternConfidence(em Emotion) float64 {
	c := e.thresholds.PatternConfidence
	if em == Joy && c > e.thresholds.JoyCap {
		return e.thresholds.JoyCap
	}
	return c
}
