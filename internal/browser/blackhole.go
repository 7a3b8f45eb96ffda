// Cookie-consent and third-party-cookie blackhole (spec.md §4.18).
// Grounded on the teacher's now-removed internal/browser/honeypot.go,
// whose DOM-walk-then-classify scan (collect candidate elements, score
// them against a keyword catalog, act on the best match) is reused here
// to find and auto-dismiss cookie-consent banners instead of honeypot
// form fields.
package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/form-sender/formrunner/internal/config"
)

// bannerRejectTokens are the button/link label substrings that indicate
// a "reject/decline all" action on a cookie-consent banner, checked in
// this priority order so an explicit reject is preferred over a bare
// "close" when both are present.
var bannerRejectTokens = []string{
	"拒否", "すべて拒否", "許可しない", "同意しない",
	"reject all", "decline", "reject",
}

// cookieBlackholeScript walks the DOM exactly once, looking for the
// first visible element whose text matches a reject token; if found it
// clicks it. It never clicks an "accept" button, since that would let
// third-party trackers and A/B-test cookies back onto the page.
const cookieBlackholeScript = `
(tokens) => {
  const candidates = Array.from(document.querySelectorAll('button, a, [role="button"]'));
  const lower = (s) => (s || '').toLowerCase();
  for (const token of tokens) {
    for (const el of candidates) {
      const text = lower(el.textContent);
      if (text.includes(token.toLowerCase())) {
        const rect = el.getBoundingClientRect();
        if (rect.width > 0 && rect.height > 0) {
          el.click();
          return true;
        }
      }
    }
  }
  return false;
}
`

// documentCookieOverrideScript makes document.cookie a silent no-op
// getter/setter, matching OverrideDocumentCookie's intent of denying
// any script-set cookie a live store to write into.
const documentCookieOverrideScript = `
(() => {
  Object.defineProperty(document, 'cookie', {
    get: () => '',
    set: () => true,
    configurable: true,
  });
})();
`

// applyCookieBlackhole configures the page's cookie posture per cc:
// stripping third-party cookies at the network layer, neutering
// document.cookie if requested, and scheduling the consent-banner
// auto-reject scan after AutoRejectBannerMs once the page has settled.
func applyCookieBlackhole(page *rod.Page, cc config.CookieControlConfig) error {
	if cc.StripThirdPartyCookie {
		if err := (proto.NetworkSetCookieControls{
			EnableThirdPartyCookieRestriction: true,
			DisableThirdPartyCookieMetadata:   true,
			DisableThirdPartyCookieHeuristics: true,
		}).Call(page); err != nil {
			return fmt.Errorf("set cookie controls: %w", err)
		}
	}

	if cc.OverrideDocumentCookie {
		if _, err := page.EvalOnNewDocument(documentCookieOverrideScript); err != nil {
			return fmt.Errorf("install document.cookie override: %w", err)
		}
	}

	if cc.BlockConsentScripts {
		go scheduleBannerReject(page, cc.AutoRejectBannerMs)
	}

	return nil
}

// scheduleBannerReject waits the configured settle delay, then runs
// the reject-banner scan once. Errors are swallowed: a missing banner
// (the common case) is not a failure.
func scheduleBannerReject(page *rod.Page, delayMs int) {
	if delayMs <= 0 {
		delayMs = 1500
	}
	time.Sleep(time.Duration(delayMs) * time.Millisecond)
	_, _ = page.Eval(cookieBlackholeScript, bannerRejectTokens)
}
