package utils

import (
	"github.com/mssola/user_agent"
)

// DeviceInfo is a normalized view of a request's User-Agent, attached to
// payment audit entries for dispute review.
type DeviceInfo struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	Platform       string `json:"platform"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

// ParseUserAgent extracts device details from a raw User-Agent string.
func ParseUserAgent(rawUA string) DeviceInfo {
	if rawUA == "" {
		return DeviceInfo{Browser: "Unknown", OS: "Unknown"}
	}

	ua := user_agent.New(rawUA)
	browser, version := ua.Browser()

	info := DeviceInfo{
		Browser:        browser,
		BrowserVersion: version,
		OS:             ua.OS(),
		Platform:       ua.Platform(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
	if info.Browser == "" {
		info.Browser = "Unknown"
	}
	if info.OS == "" {
		info.OS = "Unknown"
	}
	return info
}
