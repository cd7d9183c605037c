package site

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
)

// FAQEntry is a static question with an HTML answer.
type FAQEntry struct {
	Question string
	Answer   string
}

// FAQView is an entry prepared for rendering.
type FAQView struct {
	Index    int
	Question string
	Answer   template.HTML
	Open     bool
}

// DefaultFAQs is the FAQ shown on the home page.
var DefaultFAQs = []FAQEntry{
	{
		Question: "Do you store my logs?",
		Answer:   "No. Cybat AI operates on a <b>Zero-Retention</b> architecture. Logs are processed in-flight within secure, stateless GKE pods and are discarded immediately after analysis. Your data never hits a persistent disk in our infrastructure.",
	},
	{
		Question: "Does this slow down my application?",
		Answer:   "Not at all. Cybat AI ingests logs via <b>Pub/Sub</b> asynchronously. This 'fire-and-forget' mechanism ensures that our analysis happens outside your user's request path, adding exactly 0ms of latency to your application response times.",
	},
	{
		Question: "How hard is the integration?",
		Answer:   "Integration is effortless. You just need to install the Cybat AI client using <b>Google Cloud Marketplace</b> and it will be ready in <b>less than 30 minutes</b>.",
	},
}

var answerPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "code", "br")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}()

// sanitizeAnswer keeps inline emphasis and links and drops everything else.
func sanitizeAnswer(raw string) template.HTML {
	return template.HTML(answerPolicy.Sanitize(raw))
}
