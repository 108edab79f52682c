package provider

import "context"

// AlimtalkRequest carries one rich-channel (Kakao Alimtalk) send.
type AlimtalkRequest struct {
	Phone        string
	Message      string
	SenderKey    string
	TemplateCode string
	SenderNo     string
}

// SMSRequest carries one plain SMS send.
type SMSRequest struct {
	Phone   string
	Content string
	From    string
}

// SendResult is the successful outcome of a provider call.
type SendResult struct {
	// RequestID is the provider-assigned identifier for the accepted message.
	RequestID string
	// Raw is the raw provider response payload kept for audit.
	Raw string
}

// MessagingProvider is the outbound send port. Implementations translate
// provider-specific responses into *ProviderError values; every call is
// bounded by the client timeout.
type MessagingProvider interface {
	Name() string
	SendAlimtalk(ctx context.Context, req AlimtalkRequest) (*SendResult, error)
	SendSMS(ctx context.Context, req SMSRequest) (*SendResult, error)
}
