package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the body every parsed storefront delivery receives, whatever
// the downstream outcome was.
type WebhookAck struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Topic      string `json:"topic"`
	Event      string `json:"event"`
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
}
