package fetcher

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot page detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// DetectBlock checks a response for signs of anti-bot protection. Blocks
// are reported, never worked around.
func DetectBlock(status int, header http.Header, body []byte) BlockType {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if header.Get("cf-ray") != "" || header.Get("cf-mitigated") != "" ||
			strings.EqualFold(header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return BlockCloudflare
	}

	// Amazon's robot check and the usual captcha widgets.
	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "saisissez les caractères que vous voyez") {
		return BlockCaptcha
	}

	// Tiny JS-only shell: the price is rendered client side.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return BlockNone
}
