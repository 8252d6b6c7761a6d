package domain

// ChatQuery and ChatResult are request-scoped; nothing in the chat path is
// ever persisted.

type ChatQuery struct {
	Query string `json:"query"`
}

type ChatResult struct {
	Response string `json:"response"`
}

// FallbackResponse is returned when the provider answers 200 but the
// expected candidate text path is absent. Malformed-but-successful upstream
// responses must never surface as hard errors.
const FallbackResponse = "No response generated"
