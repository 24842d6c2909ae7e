package lifecycle

import "strings"

// ClientContext carries the raw request attributes captured when a
// submission starts.
type ClientContext struct {
	IPAddress string
	UserAgent string
}

// ClientMetadata is the derived, descriptive classification persisted on the
// submission record.
type ClientMetadata struct {
	IPAddress string
	Device    string
	Browser   string
	OS        string
	Location  string
}

// ClassifyClient derives device, browser and OS from the user agent with
// ordered substring checks. Chrome is tested before Safari since Chrome
// agents also contain "safari".
func ClassifyClient(ctx ClientContext) ClientMetadata {
	ua := strings.ToLower(ctx.UserAgent)

	device := "Desktop"
	if strings.Contains(ua, "mobile") {
		device = "Mobile"
	} else if strings.Contains(ua, "tablet") {
		device = "Tablet"
	}

	browser := "Other"
	switch {
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "edge"):
		browser = "Edge"
	}

	osName := "Other"
	switch {
	case strings.Contains(ua, "windows"):
		osName = "Windows"
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os"):
		osName = "MacOS"
	case strings.Contains(ua, "linux"):
		osName = "Linux"
	case strings.Contains(ua, "android"):
		osName = "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		osName = "iOS"
	}

	return ClientMetadata{
		IPAddress: ctx.IPAddress,
		Device:    device,
		Browser:   browser,
		OS:        osName,
		Location:  "Local/Unknown",
	}
}
