package prohibition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetectFindsSolicitationRefusal(t *testing.T) {
	d := New(64, time.Minute)
	res := d.Detect("<footer>営業電話はお断りしております。</footer>", "")
	require.True(t, res.Detected)
	require.GreaterOrEqual(t, res.Level, LevelModerate)
}

func TestDetectIgnoresPureBusinessHoursCopy(t *testing.T) {
	d := New(64, time.Minute)
	res := d.Detect("<p>営業時間: 平日9時〜18時 営業日: 月〜金</p>", "")
	require.False(t, res.Detected)
}

func TestDetectCachesBySameContent(t *testing.T) {
	d := New(64, time.Minute)
	html := "<footer>営業電話はお断りしております。</footer>"
	first := d.Detect(html, "")
	second := d.Detect(html, "")
	require.Equal(t, first, second)
}

func TestShouldAbortTriggersOnAnySingleThreshold(t *testing.T) {
	res := Result{Detected: true, Level: LevelModerate, Confidence: ConfidenceLow, Score: 10, MatchedPhrases: []string{"a"}}
	require.True(t, ShouldAbort(res, EarlyAbortThresholds{MinLevel: "moderate"}))
	require.False(t, ShouldAbort(res, EarlyAbortThresholds{MinLevel: "strong", MinConfidence: "high", MinScore: 99, MinMatches: 99}))
}

func TestDetectEnglishSolicitationPattern(t *testing.T) {
	d := New(64, time.Minute)
	res := d.Detect("<p>We do not accept sales solicitation of any kind.</p>", "")
	require.True(t, res.Detected)
}
