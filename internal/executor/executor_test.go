package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/analyzer"
	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/input"
	"github.com/form-sender/formrunner/internal/judge"
	"github.com/form-sender/formrunner/internal/model"
	"github.com/form-sender/formrunner/internal/prohibition"
)

// fakeBrowser implements Browser with every call returning a harmless
// zero value unless overridden per test.
type fakeBrowser struct {
	snapshot    analyzer.FormSnapshot
	snapshotErr error
}

func (f *fakeBrowser) Find(ctx context.Context, selector string) (input.Element, error) {
	return nil, errors.New("not reached in these tests")
}

func (f *fakeBrowser) ExtractFormSnapshot(ctx context.Context) (analyzer.FormSnapshot, error) {
	return f.snapshot, f.snapshotErr
}
func (f *fakeBrowser) TakeJudgeSnapshot(ctx context.Context) (judge.Snapshot, error) {
	return judge.Snapshot{}, nil
}
func (f *fakeBrowser) PageHTML(ctx context.Context) (string, error)                   { return "", nil }
func (f *fakeBrowser) FallbackProhibitionText(ctx context.Context) (string, error)    { return "", nil }
func (f *fakeBrowser) ClickWithFallbacks(ctx context.Context, selector string) error  { return nil }
func (f *fakeBrowser) WaitNetworkIdle(ctx context.Context) error                      { return nil }
func (f *fakeBrowser) BotProtectionDetected(ctx context.Context) (bool, error)        { return false, nil }
func (f *fakeBrowser) VisibleErrorElements(ctx context.Context) ([]string, error)     { return nil, nil }
func (f *fakeBrowser) JSErrorIndicators(ctx context.Context) ([]string, error)        { return nil, nil }
func (f *fakeBrowser) ResponseStatuses(ctx context.Context) ([]int, error)            { return nil, nil }
func (f *fakeBrowser) RedirectURLs(ctx context.Context) ([]string, error)             { return nil, nil }
func (f *fakeBrowser) AcceptDialogOnce(ctx context.Context) error                     { return nil }

func newExecutor(b *fakeBrowser) *Executor {
	return New(b, prohibition.New(100, 0), Config{Settings: catalog.DefaultSettings()})
}

func TestRunReturnsAnalysisFailedWhenSnapshotErrors(t *testing.T) {
	e := newExecutor(&fakeBrowser{snapshotErr: errors.New("navigation timed out")})
	out := e.Run(context.Background(), model.Client{}, "subject", "message")
	require.False(t, out.Success)
	require.Equal(t, model.ErrAnalysisFailed, out.Code)
}

func TestRunReturnsNoFormFoundWhenNoCandidates(t *testing.T) {
	e := newExecutor(&fakeBrowser{snapshot: analyzer.FormSnapshot{ChosenFormIndex: -1}})
	out := e.Run(context.Background(), model.Client{}, "subject", "message")
	require.False(t, out.Success)
	require.Equal(t, model.ErrNoFormFound, out.Code)
}

func TestLooksRetryableFalseForProhibitionAndErrorProbeStages(t *testing.T) {
	require.False(t, looksRetryable(model.JudgmentTrace{Verdict: model.Verdict{Stage: model.StageProhibition, Success: false}}))
	require.False(t, looksRetryable(model.JudgmentTrace{Verdict: model.Verdict{Stage: model.StageErrorProbe, Success: false}}))
}

func TestLooksRetryableTrueForOtherFailedStages(t *testing.T) {
	require.True(t, looksRetryable(model.JudgmentTrace{Verdict: model.Verdict{Stage: model.StageURLChange, Success: false}}))
}

func TestLooksRetryableFalseWhenAlreadySuccessful(t *testing.T) {
	require.False(t, looksRetryable(model.JudgmentTrace{Verdict: model.Verdict{Stage: model.StageURLChange, Success: true}}))
}

func TestCountTextareasCountsOnlyTextareaTag(t *testing.T) {
	elements := []model.FormElement{{Tag: "textarea"}, {Tag: "input"}, {Tag: "textarea"}}
	require.Equal(t, 2, countTextareas(elements))
}

func TestSubmitCandidatesOnlyButtonLikeElementsMarkedFromAnalyzer(t *testing.T) {
	snap := analyzer.FormSnapshot{
		Elements: []model.FormElement{
			{Tag: "button", AssociatedText: "送信する"},
			{Tag: "input", Type: "text"},
			{Tag: "input", Type: "submit", AssociatedText: "Submit"},
		},
	}
	cands := submitCandidates(analyzer.Result{}, snap)
	require.Len(t, cands, 2)
	require.True(t, cands[0].FromAnalyzer)
	require.True(t, cands[1].FromAnalyzer)
}
