// Package recovery implements the error-recovery classifier (spec.md
// §7, §5): local recovery attempts for TIMEOUT/ACCESS (full browser
// reinitialization on crash signature match) and ELEMENT_EXTERNAL /
// INPUT_EXTERNAL (page reload), with everything else surfacing to the
// worker result unchanged. Also carries the sentinel-wrapping
// mechanism that lets a caller distinguish an inner step timeout from
// the outer per-company hard watchdog (spec.md §5), since both present
// as context.DeadlineExceeded to an unwrapped caller.
package recovery

import (
	"context"
	"errors"
	"strings"

	"github.com/form-sender/formrunner/internal/model"
)

// HardWatchdogError marks a context cancellation that came from the
// per-company hard watchdog rather than an inner step timeout. The
// caller closes the page/browser and relaunches rather than handing
// it to the standard recovery classifier.
type HardWatchdogError struct {
	Cause error
}

func (e *HardWatchdogError) Error() string {
	return "hard watchdog exceeded: " + e.Cause.Error()
}

func (e *HardWatchdogError) Unwrap() error { return e.Cause }

// WrapHardWatchdog tags err as having originated from the outer hard
// watchdog rather than an inner bounded wait.
func WrapHardWatchdog(err error) error {
	if err == nil {
		return nil
	}
	return &HardWatchdogError{Cause: err}
}

// IsHardWatchdog reports whether err (or something it wraps) is a
// hard-watchdog cancellation.
func IsHardWatchdog(err error) bool {
	var hw *HardWatchdogError
	return errors.As(err, &hw)
}

// Action is what the recovery classifier recommends for a given error.
type Action int

const (
	// ActionNone means surface the error to the worker result as-is.
	ActionNone Action = iota
	// ActionReloadPage means reload the current page and retry the step.
	ActionReloadPage
	// ActionReinitBrowser means tear down and relaunch the whole browser
	// context (crash-signature match on ACCESS, or any hard-watchdog trip).
	ActionReinitBrowser
)

func (a Action) String() string {
	switch a {
	case ActionReloadPage:
		return "reload_page"
	case ActionReinitBrowser:
		return "reinit_browser"
	default:
		return "none"
	}
}

// crashSignatures are substrings observed in browser-process-crash
// error text (target closed, connection reset, process exited) that
// distinguish a dead browser from an ordinary network ACCESS failure.
var crashSignatures = []string{
	"target closed",
	"context canceled while waiting for debugger",
	"websocket: close",
	"connection refused",
	"browser process exited",
	"no such target",
}

// hasCrashSignature reports whether err's text matches a known
// browser-crash pattern.
func hasCrashSignature(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, sig := range crashSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// Classify maps an ErrorCode plus the underlying error to a recovery
// Action, per spec.md §7's propagation policy. A hard-watchdog
// cancellation always forces ActionReinitBrowser regardless of code.
func Classify(code model.ErrorCode, err error) Action {
	if IsHardWatchdog(err) {
		return ActionReinitBrowser
	}

	switch code {
	case model.ErrTimeout:
		return ActionReloadPage
	case model.ErrAccess:
		if hasCrashSignature(err) {
			return ActionReinitBrowser
		}
		return ActionReloadPage
	default:
		return actionForInternalCode(code)
	}
}

// actionForInternalCode handles ELEMENT_EXTERNAL/INPUT_EXTERNAL, which
// are internal-only codes (never surfaced to persistence) representing
// a page context that died mid-interaction (e.g. an element detached
// after a same-page navigation).
func actionForInternalCode(code model.ErrorCode) Action {
	switch string(code) {
	case "ELEMENT_EXTERNAL", "INPUT_EXTERNAL":
		return ActionReloadPage
	default:
		return ActionNone
	}
}

// Recoverer performs the side-effecting half of a recovery action: it
// knows how to reload a page or reinitialize a browser context. The
// browser package supplies the concrete implementation so this package
// stays free of any go-rod dependency.
type Recoverer interface {
	ReloadPage(ctx context.Context) error
	ReinitBrowser(ctx context.Context) error
}

// Attempt runs the recovery action Classify recommends and reports
// whether recovery succeeded. ActionNone always returns false,nil
// (nothing to do; the caller surfaces the original error).
func Attempt(ctx context.Context, r Recoverer, code model.ErrorCode, err error) (bool, error) {
	switch Classify(code, err) {
	case ActionReloadPage:
		if rerr := r.ReloadPage(ctx); rerr != nil {
			return false, rerr
		}
		return true, nil
	case ActionReinitBrowser:
		if rerr := r.ReinitBrowser(ctx); rerr != nil {
			return false, rerr
		}
		return true, nil
	default:
		return false, nil
	}
}
