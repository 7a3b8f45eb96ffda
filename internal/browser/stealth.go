// Stealth, locale/UA, and resource-blocking instrumentation applied to
// every freshly created page (spec.md §4.18). Grounded on the teacher's
// now-removed internal/browser/session_manager.go, which injected the
// same navigator.webdriver patch and language/platform overrides via
// Page.Eval on the CDP "Page.addScriptToEvaluateOnNewDocument" hook
// before go-rod's rod.Page.EvalOnNewDocument wrapper existed in this
// vendored version; reproduced here with rod's own wrapper.
package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/form-sender/formrunner/internal/config"
)

// stealthScript removes the automation tells that the teacher's
// honeypot-style scanners (and every bot-protection vendor) probe for:
// navigator.webdriver, a missing chrome object, and an empty plugins
// array.
const stealthScript = `
(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
  if (!window.chrome) { window.chrome = { runtime: {} }; }
  Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
  Object.defineProperty(navigator, 'languages', { get: () => ['ja-JP', 'ja'] });
})();
`

// applyStealth installs the anti-detection patch on every document the
// page loads, not just the current one, so it survives the worker's
// own navigations.
func applyStealth(page *rod.Page) error {
	_, err := page.EvalOnNewDocument(stealthScript)
	if err != nil {
		return fmt.Errorf("install stealth script: %w", err)
	}
	return nil
}

// applyLocaleAndUA pins the page's timezone, locale header, and user
// agent to the configured values so every worker context presents an
// identical, plausible fingerprint regardless of the host machine's
// own locale.
func applyLocaleAndUA(page *rod.Page, cfg Config) error {
	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: cfg.UserAgent,
			AcceptLanguage: "ja-JP,ja;q=0.9",
		}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	if cfg.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: cfg.Timezone}).Call(page); err != nil {
			return fmt.Errorf("set timezone: %w", err)
		}
	}
	if cfg.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: cfg.Locale}).Call(page); err != nil {
			return fmt.Errorf("set locale: %w", err)
		}
	}
	return nil
}

// resourceBlockPatterns maps a ResourceBlockConfig toggle to the CDP
// URL-pattern wildcards that starve that resource class, trading
// fidelity for crawl speed on image/font/stylesheet-heavy forms.
func resourceBlockPatterns(rb config.ResourceBlockConfig) []string {
	var patterns []string
	if rb.Images {
		patterns = append(patterns, "*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg")
	}
	if rb.Fonts {
		patterns = append(patterns, "*.woff", "*.woff2", "*.ttf", "*.otf")
	}
	if rb.Stylesheets {
		patterns = append(patterns, "*.css")
	}
	return patterns
}

// applyResourceBlocking installs a network-request router that aborts
// matching requests before they reach the network stack.
func applyResourceBlocking(page *rod.Page, rb config.ResourceBlockConfig) error {
	patterns := resourceBlockPatterns(rb)
	if len(patterns) == 0 {
		return nil
	}

	router := page.HijackRequests()
	for _, pattern := range patterns {
		router.MustAdd(pattern, func(ctx *rod.Hijack) {
			_ = ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}
	go router.Run()
	return nil
}
