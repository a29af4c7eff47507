package dto

type IncomingMessageRequest struct {
	Owner string `json:"owner" binding:"required"`
	Text  string `json:"text" binding:"required"`
}

type IncomingMessageResponse struct {
	Action string `json:"action"` // "none" or "reply"
	Text   string `json:"text"`
}
