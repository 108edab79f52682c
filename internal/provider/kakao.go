package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	kakaoSendPath       = "/v2/send/kakao"
	defaultKakaoTimeout = 10 * time.Second
)

// KakaoIConnectProvider delivers Alimtalk messages through the Kakao i
// Connect bizmessage API.
type KakaoIConnectProvider struct {
	client      *resty.Client
	baseURL     string
	accessToken string
}

func NewKakaoIConnectProvider(baseURL, accessToken string) *KakaoIConnectProvider {
	client := resty.New()
	client.SetTimeout(defaultKakaoTimeout)
	client.SetRetryCount(0)

	return NewKakaoIConnectProviderWithClient(baseURL, accessToken, client)
}

func NewKakaoIConnectProviderWithClient(baseURL, accessToken string, client *resty.Client) *KakaoIConnectProvider {
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultKakaoTimeout)
	}
	client.SetRetryCount(0)

	return &KakaoIConnectProvider{
		client:      client,
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		accessToken: strings.TrimSpace(accessToken),
	}
}

func (p *KakaoIConnectProvider) Name() string { return "kakao_i_connect" }

type kakaoSendRequest struct {
	MessageType  string `json:"message_type"`
	PhoneNumber  string `json:"phone_number"`
	SenderKey    string `json:"sender_key"`
	TemplateCode string `json:"template_code"`
	Message      string `json:"message"`
	SenderNo     string `json:"sender_no,omitempty"`
}

type kakaoSendResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (p *KakaoIConnectProvider) SendAlimtalk(ctx context.Context, req AlimtalkRequest) (*SendResult, error) {
	if p.baseURL == "" || p.accessToken == "" {
		return nil, ConfigMissing("kakao i connect base url and access token are required")
	}
	if strings.TrimSpace(req.SenderKey) == "" {
		return nil, ConfigMissing("kakao sender key is required")
	}
	if strings.TrimSpace(req.TemplateCode) == "" {
		return nil, ConfigMissing("kakao template code is required")
	}

	body := kakaoSendRequest{
		MessageType:  "AT",
		PhoneNumber:  req.Phone,
		SenderKey:    req.SenderKey,
		TemplateCode: req.TemplateCode,
		Message:      req.Message,
		SenderNo:     req.SenderNo,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+p.accessToken).
		SetBody(body).
		Post(p.baseURL + kakaoSendPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, HTTPError(0, "kakao request timed out", err)
		}
		return nil, HTTPError(0, "kakao request failed", err)
	}

	raw := strings.TrimSpace(response.String())
	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, HTTPError(statusCode, fmt.Sprintf("kakao returned status %d", statusCode), nil)
	}

	var parsed kakaoSendResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, Rejected("MALFORMED_RESPONSE", "kakao response could not be parsed")
	}

	if !strings.EqualFold(parsed.Code, "success") {
		return nil, Rejected(parsed.Code, parsed.Message)
	}

	return &SendResult{RequestID: parsed.RequestID, Raw: raw}, nil
}

// SendSMS is not supported on the rich channel; the SMS fallback uses a
// dedicated provider.
func (p *KakaoIConnectProvider) SendSMS(ctx context.Context, req SMSRequest) (*SendResult, error) {
	return nil, ConfigMissing("kakao i connect does not deliver sms")
}
