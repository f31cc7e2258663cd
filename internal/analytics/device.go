package analytics

import (
	"net/url"
	"regexp"
	"strings"
)

const unknown = "unknown"

var (
	tabletPattern = regexp.MustCompile(`(?i)tablet|ipad|playbook|silk`)
	mobilePattern = regexp.MustCompile(`Mobile|Android|iP(hone|od)|IEMobile|BlackBerry|Kindle|Silk-Accelerated|(hpw|web)OS|Opera M(obi|ini)`)
)

// DeviceType classifies a user agent as tablet, mobile or desktop.
func DeviceType(ua string) string {
	if ua == "" {
		return unknown
	}
	if tabletPattern.MatchString(ua) || isAndroidTablet(ua) {
		return "tablet"
	}
	if mobilePattern.MatchString(ua) {
		return "mobile"
	}
	return "desktop"
}

// isAndroidTablet matches Android agents without the Mobi token.
func isAndroidTablet(ua string) bool {
	lower := strings.ToLower(ua)
	return strings.Contains(lower, "android") && !strings.Contains(lower, "mobi")
}

// BrowserName detects the browser family. Edge and Chrome both carry the
// Chrome token, so the order matters.
func BrowserName(ua string) string {
	switch {
	case ua == "":
		return unknown
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Edg"):
		return "Edge"
	case strings.Contains(ua, "OPR"), strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Chrome"):
		return "Chrome"
	case strings.Contains(ua, "Safari"):
		return "Safari"
	default:
		return unknown
	}
}

func OSName(ua string) string {
	switch {
	case ua == "":
		return unknown
	case strings.Contains(ua, "Win"):
		return "Windows"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iOS"):
		return "iOS"
	case strings.Contains(ua, "Mac"):
		return "macOS"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return unknown
	}
}

func pathOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}
