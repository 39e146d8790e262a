package models

// APIResponse is the JSON envelope of every HTTP reply.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func SuccessResponse(data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(err error) APIResponse {
	return APIResponse{
		Success: false,
		Error:   err.Error(),
	}
}

func MessageResponse(message string) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
	}
}

// WSMessage is a JSON frame pushed to websocket clients.
type WSMessage struct {
	Type     string `json:"type"` // job_result, package_label, devices
	DeviceID string `json:"device_id,omitempty"`
	Payload  any    `json:"payload"`
}
