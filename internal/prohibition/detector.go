// Package prohibition implements the prohibition detector (spec.md
// §4.17): a curated keyword/regex catalog detecting "no solicitation"
// language, with broad exclusion patterns to avoid false positives on
// ordinary business-hours/contact copy, a confidence level and 0-100
// score, and a shared LRU+TTL cache keyed by HTML content hash. Grounded
// on original_source's detection/prohibition_detector.py and
// detection/constants.py, whose EXCLUSION_PATTERNS and keyword groupings
// (sales/contact/prohibition/decline/polite-decline/negative-forms) are
// reproduced here in Go idiom rather than translated line by line.
package prohibition

import (
	"container/list"
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Confidence levels, ordered lowest to highest.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceVeryLow
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceVeryLow:
		return "very_low"
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "none"
	}
}

// Level is the ordinal severity bucket the early-abort rule compares
// against a configured minimum (e.g. "moderate").
type Level int

const (
	LevelNone Level = iota
	LevelMild
	LevelModerate
	LevelStrong
)

func (l Level) String() string {
	switch l {
	case LevelMild:
		return "mild"
	case LevelModerate:
		return "moderate"
	case LevelStrong:
		return "strong"
	default:
		return "none"
	}
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "mild":
		return LevelMild
	case "moderate":
		return LevelModerate
	case "strong":
		return LevelStrong
	default:
		return LevelNone
	}
}

func parseConfidence(s string) Confidence {
	switch strings.ToLower(s) {
	case "very_low":
		return ConfidenceVeryLow
	case "low":
		return ConfidenceLow
	case "medium":
		return ConfidenceMedium
	case "high":
		return ConfidenceHigh
	default:
		return ConfidenceNone
	}
}

// salesKeywords names the solicitation-themed terms the detector looks
// for, grouped loosely by register (business-speak, direct sales,
// marketing).
var salesKeywords = []string{
	"営業目的", "営業のご連絡", "セールス", "販売目的", "勧誘", "宣伝", "売り込み",
	"商業目的", "広告目的", "マーケティング目的", "テレアポ", "飛び込み営業",
}

// contactKeywords are terms indicating the prohibition text is about
// unsolicited contact/calls specifically (vs. general commerce).
var contactKeywords = []string{
	"営業電話", "営業メール", "営業のご連絡", "営業のお電話", "迷惑行為", "無断の営業",
}

// prohibitionKeywords combine the above into the core phrase families
// the detector matches against, mirroring the upstream
// PROHIBITION_KEYWORDS grouping of 営業目的/セールス/販売/勧誘/宣伝/売り込み/商業/迷惑行為.
var prohibitionKeywords = append(append([]string{}, salesKeywords...), contactKeywords...)

// declineKeywords and politeDecline are direct refusal phrasing.
var declineKeywords = []string{"お断りしております", "ご遠慮ください", "固くお断り", "一切お断り"}
var politeDecline = []string{"恐れ入りますが", "大変恐縮ですが"}

// negativeForms combine a decline verb with a negation, matched as a
// joined regex fragment below.
var negativeForms = []string{"受け付けておりません", "対応いたしかねます", "承っておりません"}

// englishPatterns cover the English-language equivalents.
var englishPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bno\s+(sales|solicitations?|cold\s+calls?|marketing)\b`),
	regexp.MustCompile(`(?i)\bwe\s+do\s+not\s+accept\s+(sales|solicitation)\b`),
	regexp.MustCompile(`(?i)\bplease\s+refrain\s+from\s+(sales|solicitation)\b`),
}

// exclusionPatterns are broad business-context terms that, if the ONLY
// match in a passage, indicate ordinary business copy rather than a
// solicitation refusal (business hours, office/location, metrics,
// customer-service and privacy boilerplate) — grounded verbatim on
// original_source's EXCLUSION_PATTERNS theme groups.
var exclusionPatterns = []string{
	"営業日", "営業時間", "営業所", "営業部", "営業担当", "営業活動報告", "営業利益", "営業職",
	"平日営業", "休業日", "定休日", "年中無休", "当社の営業", "弊社営業",
	"個人情報保護方針", "プライバシーポリシー", "お客様サポート", "カスタマーサポート",
	"よくあるご質問", "FAQ", "ご利用規約", "セキュリティポリシー", "会社概要", "アクセス",
	"採用情報", "IR情報", "決算情報",
}

func compile(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		out = append(out, regexp.MustCompile(regexp.QuoteMeta(t)))
	}
	return out
}

var compiledProhibition = compile(prohibitionKeywords)
var compiledDecline = compile(declineKeywords)
var compiledPolite = compile(politeDecline)
var compiledNegative = compile(negativeForms)
var compiledExclusion = compile(exclusionPatterns)

// Result is the detector's verdict for one HTML document.
type Result struct {
	Detected        bool
	MatchedPhrases  []string
	Level           Level
	Confidence      Confidence
	Score           float64 // 0-100
}

// Detector runs the two-phase targeted-then-fallback scan and shares an
// LRU+TTL cache across callers (analyzer and judge both consult it for
// the same pre-submission HTML, per spec.md §4.17).
type Detector struct {
	cache *resultCache
}

// New constructs a Detector with a cache of the given capacity and TTL.
func New(maxEntries int, ttl time.Duration) *Detector {
	return &Detector{cache: newResultCache(maxEntries, ttl)}
}

// Detect runs prohibition detection over fullHTML (phase a: curated
// catalog) and, if nothing matched, over a narrower semantic-element
// scan (phase b: fallbackText, e.g. footer/contact/policy/nav/aside
// text the browser layer extracted). Results are cached by HTML SHA1.
func (d *Detector) Detect(fullHTML, fallbackText string) Result {
	key := sha1Hex(fullHTML)
	if cached, ok := d.cache.get(key); ok {
		return cached
	}

	res := detectIn(fullHTML)
	if !res.Detected && fallbackText != "" {
		res = detectIn(fallbackText)
	}

	d.cache.set(key, res)
	return res
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func detectIn(text string) Result {
	var matched []string

	for _, re := range compiledProhibition {
		if re.MatchString(text) {
			matched = append(matched, re.String())
		}
	}
	for _, re := range compiledDecline {
		if re.MatchString(text) {
			matched = append(matched, re.String())
		}
	}
	for _, re := range compiledNegative {
		if re.MatchString(text) {
			matched = append(matched, re.String())
		}
	}
	for _, re := range englishPatterns {
		if re.MatchString(text) {
			matched = append(matched, re.String())
		}
	}

	excluded := 0
	for _, re := range compiledExclusion {
		if re.MatchString(text) {
			excluded++
		}
	}

	if len(matched) == 0 {
		return Result{Detected: false, Level: LevelNone, Confidence: ConfidenceNone}
	}

	// Pure-exclusion passages (only generic business terms, no decline
	// phrasing) never count as a detection.
	hasDeclinePhrasing := false
	for _, re := range compiledDecline {
		if re.MatchString(text) {
			hasDeclinePhrasing = true
			break
		}
	}
	for _, re := range compiledNegative {
		if re.MatchString(text) {
			hasDeclinePhrasing = true
			break
		}
	}

	politeHit := false
	for _, re := range compiledPolite {
		if re.MatchString(text) {
			politeHit = true
			break
		}
	}

	score := float64(len(matched)) * 20
	if hasDeclinePhrasing {
		score += 30
	}
	if politeHit {
		score += 10
	}
	score -= float64(excluded) * 3
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	level := levelFor(score, hasDeclinePhrasing)
	confidence := confidenceFor(score, len(matched))

	return Result{
		Detected:       true,
		MatchedPhrases: matched,
		Level:          level,
		Confidence:     confidence,
		Score:          score,
	}
}

func levelFor(score float64, hasDecline bool) Level {
	switch {
	case score >= 70 || (hasDecline && score >= 50):
		return LevelStrong
	case score >= 40:
		return LevelModerate
	case score > 0:
		return LevelMild
	default:
		return LevelNone
	}
}

func confidenceFor(score float64, matchCount int) Confidence {
	switch {
	case score >= 70 && matchCount >= 2:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	case score >= 25:
		return ConfidenceLow
	case score > 0:
		return ConfidenceVeryLow
	default:
		return ConfidenceNone
	}
}

// EarlyAbortThresholds mirrors config.ProhibitionThresholds without
// importing the config package (avoiding a dependency cycle); worker
// wiring converts between the two.
type EarlyAbortThresholds struct {
	MinLevel      string
	MinConfidence string
	MinScore      float64
	MinMatches    int
}

// ShouldAbort reports whether res satisfies the early-abort rule:
// satisfying ANY ONE of the configured minimums triggers abort (spec.md
// §4.17).
func ShouldAbort(res Result, t EarlyAbortThresholds) bool {
	if !res.Detected {
		return false
	}
	if t.MinLevel != "" && res.Level >= parseLevel(t.MinLevel) {
		return true
	}
	if t.MinConfidence != "" && res.Confidence >= parseConfidence(t.MinConfidence) {
		return true
	}
	if t.MinScore > 0 && res.Score >= t.MinScore {
		return true
	}
	if t.MinMatches > 0 && len(res.MatchedPhrases) >= t.MinMatches {
		return true
	}
	return false
}

// resultCache is an LRU with per-entry TTL, keyed by content hash.
type resultCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxSize  int
	ll       *list.List
	elements map[string]*list.Element
}

type cacheEntry struct {
	key       string
	result    Result
	expiresAt time.Time
}

func newResultCache(maxSize int, ttl time.Duration) *resultCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &resultCache{
		ttl:      ttl,
		maxSize:  maxSize,
		ll:       list.New(),
		elements: make(map[string]*list.Element),
	}
}

func (c *resultCache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[key]
	if !ok {
		return Result{}, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.ll.Remove(el)
		delete(c.elements, key)
		return Result{}, false
	}
	c.ll.MoveToFront(el)
	return entry.result, true
}

func (c *resultCache) set(key string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[key]; ok {
		el.Value.(*cacheEntry).result = res
		el.Value.(*cacheEntry).expiresAt = time.Now().Add(c.ttl)
		c.ll.MoveToFront(el)
		return
	}

	entry := &cacheEntry{key: key, result: res, expiresAt: time.Now().Add(c.ttl)}
	el := c.ll.PushFront(entry)
	c.elements[key] = el

	for c.ll.Len() > c.maxSize {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.ll.Remove(back)
		delete(c.elements, back.Value.(*cacheEntry).key)
	}
}
