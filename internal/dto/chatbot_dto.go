package dto

type ChatRequest struct {
	SessionId string `json:"session_id"`
	Message   string `json:"message" validate:"required"`
}

type ChatResponse struct {
	SessionId string `json:"session_id"`
	Reply     string `json:"reply"`
}
