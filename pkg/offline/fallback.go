package offline

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
)

// DefaultOfflineJSON is returned for API paths without a dedicated payload.
const DefaultOfflineJSON = `{"message":"This content is not available offline","offline":true,"support":"Crisis support resources are always available"}`

const offlineSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="200" viewBox="0 0 200 200">` +
	`<rect width="200" height="200" fill="#f0f0f0"/>` +
	`<text x="100" y="100" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="14" fill="#666">Image offline</text>` +
	`</svg>`

// Used when no PageRenderer is configured or rendering fails.
const plainOfflineHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>Offline - InterpreLab Support</title>
<style>body{margin:0;min-height:100vh;display:flex;align-items:center;justify-content:center;font-family:system-ui,sans-serif;color:#fff;background:linear-gradient(135deg,#1e1b4b 0%,#312e81 50%,#0f172a 100%)}main{max-width:36rem;padding:2rem;text-align:center}</style>
</head>
<body><main>
<h1>You're offline, but you're not alone</h1>
<p><strong>988</strong> Call or text 988 for the Suicide &amp; Crisis Lifeline</p>
<p>Text HOME to 741741 to reach the Crisis Text Line</p>
<h2>Breathing exercise</h2>
<ol><li>Breathe in slowly for 4 seconds</li><li>Hold your breath for 4 seconds</li><li>Breathe out gently for 6 seconds</li></ol>
<button onclick="window.location.reload()">Try to reconnect</button>
</main></body>
</html>
`

type hotline struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	Available   string `json:"available"`
	Description string `json:"description"`
}

type technique struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

type crisisSupportPayload struct {
	Hotlines []hotline `json:"hotlines"`
	SelfCare []string  `json:"selfCare"`
	Offline  bool      `json:"offline"`
	Message  string    `json:"message"`
}

type offlineSupportPayload struct {
	Techniques   []technique `json:"techniques"`
	Affirmations []string    `json:"affirmations"`
	Offline      bool        `json:"offline"`
}

var crisisSupport = crisisSupportPayload{
	Hotlines: []hotline{
		{Name: "988 Suicide & Crisis Lifeline", Number: "988", Available: "24/7", Description: "Free and confidential support for people in distress"},
		{Name: "Crisis Text Line", Number: "Text HOME to 741741", Available: "24/7", Description: "Text with a trained crisis counselor"},
		{Name: "SAMHSA National Helpline", Number: "1-800-662-4357", Available: "24/7", Description: "Treatment referral and information service"},
	},
	SelfCare: []string{
		"Take slow, deep breaths",
		"Step away from the screen for a few minutes",
		"Drink a glass of water",
		"Reach out to someone you trust",
	},
	Offline: true,
	Message: "You are offline, but crisis support is always available",
}

var offlineSupport = offlineSupportPayload{
	Techniques: []technique{
		{Name: "Box breathing", Description: "Breathe in for 4, hold for 4, out for 4, hold for 4", Duration: "2-5 minutes"},
		{Name: "5-4-3-2-1 grounding", Description: "Name 5 things you see, 4 you feel, 3 you hear, 2 you smell, 1 you taste", Duration: "3-5 minutes"},
		{Name: "Progressive muscle relaxation", Description: "Tense and release each muscle group from toes to head", Duration: "10-15 minutes"},
	},
	Affirmations: []string{
		"I am doing my best and that is enough",
		"This feeling is temporary",
		"I deserve care and support",
	},
	Offline: true,
}

// offlineJSONBody picks the synthetic payload for an API path.
func offlineJSONBody(path string) []byte {
	var payload any
	switch path {
	case "/api/crisis-support":
		payload = crisisSupport
	case "/api/support/offline":
		payload = offlineSupport
	default:
		return []byte(DefaultOfflineJSON)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return []byte(DefaultOfflineJSON)
	}
	return data
}

func offlineJSON(path string) *Response {
	return synthetic("application/json", offlineJSONBody(path))
}

func offlineImage() *Response {
	return synthetic("image/svg+xml", []byte(offlineSVG))
}

func (c *Controller) offlineHTML(ctx context.Context, req *Request) *Response {
	body := []byte(plainOfflineHTML)
	if c.pages != nil {
		rendered, err := c.pages.OfflinePage(ctx, req.Header.Get("Accept-Language"))
		if err == nil && len(rendered) > 0 {
			body = rendered
		} else if err != nil {
			c.logger.Warn("offline page render failed", logger.F("error", err))
		}
	}
	return synthetic("text/html", body)
}

func synthetic(contentType string, body []byte) *Response {
	header := make(http.Header)
	header.Set("Content-Type", contentType)
	header.Set(HeaderServedBy, ServedBySynthetic)
	return &Response{
		Status: http.StatusOK,
		Header: header,
		Body:   body,
		Source: SourceSynthetic,
	}
}
