package responses

// requestIDHeader mirrors the header stamped by the RequestID middleware.
const requestIDHeader = "X-Request-Id"

type dataBody struct {
	Data any `json:"data"`
}

// pageBody is a listing plus the cursor that fetches the next page.
type pageBody struct {
	Data       any    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// errorDetail is the public face of a pkg/errors value. RequestID echoes X-Request-Id so a
// client report can be matched to the server log line.
type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}
