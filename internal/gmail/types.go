package gmail

// MessageRef identifies one message in a list response. The list endpoint
// returns identifiers only; full content requires a separate fetch the
// dashboard does not need.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// MessagePage is one page of a message listing.
type MessagePage struct {
	Messages           []MessageRef `json:"messages"`
	NextPageToken      string       `json:"nextPageToken,omitempty"`
	ResultSizeEstimate int64        `json:"resultSizeEstimate"`
}

// OutgoingMessage represents an email to be sent.
type OutgoingMessage struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Bcc     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	IsHTML  bool     `json:"isHtml,omitempty"`
}
