package api

// User is the subset of a Revolt user object the client itself needs.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Bot      *struct {
		Owner string `json:"owner"`
	} `json:"bot,omitempty"`
}

// Message is a Revolt channel message.
type Message struct {
	ID          string       `json:"_id"`
	Nonce       string       `json:"nonce,omitempty"`
	Channel     string       `json:"channel"`
	Author      string       `json:"author"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is an Autumn file reference embedded in a message.
type Attachment struct {
	ID       string `json:"_id"`
	Tag      string `json:"tag"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}
