package engine

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Prices live in the DOM, so nothing a tab needs for extraction arrives as
// one of these resource types.
var blockedResources = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeImage:      {},
	proto.NetworkResourceTypeStylesheet: {},
	proto.NetworkResourceTypeFont:       {},
	proto.NetworkResourceTypeMedia:      {},
}

// trackerHosts are analytics and ad hosts commonly embedded by Egyptian
// retail storefronts.
var trackerHosts = map[string]struct{}{
	"doubleclick.net":        {},
	"googlesyndication.com":  {},
	"googleadservices.com":   {},
	"google-analytics.com":   {},
	"googletagmanager.com":   {},
	"facebook.net":           {},
	"connect.facebook.net":   {},
	"amazon-adsystem.com":    {},
	"criteo.com":             {},
	"criteo.net":             {},
	"hotjar.com":             {},
	"clarity.ms":             {},
	"analytics.tiktok.com":   {},
	"snap.licdn.com":         {},
	"static.ads-twitter.com": {},
	"insider.com":            {},
	"useinsider.com":         {},
	"moengage.com":           {},
}

// isTrackerHost reports whether host or one of its parent domains is a
// known tracker.
func isTrackerHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if _, ok := trackerHosts[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
	return false
}

// shouldBlock decides whether a tab request is failed before it leaves
// the browser.
func shouldBlock(rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := blockedResources[rt]; ok {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return isTrackerHost(u.Hostname())
}

// blockResources installs a request interceptor on page. The returned
// router must be stopped when the page goes back to the pool.
func blockResources(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if shouldBlock(h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
