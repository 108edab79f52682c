package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSensTimeout = 10 * time.Second

// NaverSensSmsProvider delivers SMS through the Naver Cloud SENS API.
// Requests are signed with HMAC-SHA256 per the API gateway contract.
type NaverSensSmsProvider struct {
	client    *resty.Client
	baseURL   string
	accessKey string
	secretKey string
	serviceID string
	from      string
	now       func() time.Time
}

func NewNaverSensSmsProvider(baseURL, accessKey, secretKey, serviceID, from string) *NaverSensSmsProvider {
	client := resty.New()
	client.SetTimeout(defaultSensTimeout)
	client.SetRetryCount(0)

	return NewNaverSensSmsProviderWithClient(baseURL, accessKey, secretKey, serviceID, from, client)
}

func NewNaverSensSmsProviderWithClient(baseURL, accessKey, secretKey, serviceID, from string, client *resty.Client) *NaverSensSmsProvider {
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSensTimeout)
	}
	client.SetRetryCount(0)

	return &NaverSensSmsProvider{
		client:    client,
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		accessKey: strings.TrimSpace(accessKey),
		secretKey: strings.TrimSpace(secretKey),
		serviceID: strings.TrimSpace(serviceID),
		from:      strings.TrimSpace(from),
		now:       time.Now,
	}
}

func (p *NaverSensSmsProvider) Name() string { return "sens_sms" }

type sensMessage struct {
	To string `json:"to"`
}

type sensSendRequest struct {
	Type     string        `json:"type"`
	From     string        `json:"from"`
	Content  string        `json:"content"`
	Messages []sensMessage `json:"messages"`
}

type sensSendResponse struct {
	RequestID  string `json:"requestId"`
	StatusCode string `json:"statusCode"`
	StatusName string `json:"statusName"`
}

func (p *NaverSensSmsProvider) SendSMS(ctx context.Context, req SMSRequest) (*SendResult, error) {
	if p.baseURL == "" || p.accessKey == "" || p.secretKey == "" || p.serviceID == "" {
		return nil, ConfigMissing("sens credentials are required")
	}

	from := strings.TrimSpace(req.From)
	if from == "" {
		from = p.from
	}
	if from == "" {
		return nil, ConfigMissing("sens sender number is required")
	}

	uri := fmt.Sprintf("/sms/v2/services/%s/messages", p.serviceID)
	timestamp := strconv.FormatInt(p.now().UnixMilli(), 10)

	body := sensSendRequest{
		Type:     "SMS",
		From:     from,
		Content:  req.Content,
		Messages: []sensMessage{{To: req.Phone}},
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetHeader("x-ncp-apigw-timestamp", timestamp).
		SetHeader("x-ncp-iam-access-key", p.accessKey).
		SetHeader("x-ncp-apigw-signature-v2", p.sign(http.MethodPost, uri, timestamp)).
		SetBody(body).
		Post(p.baseURL + uri)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, HTTPError(0, "sens request timed out", err)
		}
		return nil, HTTPError(0, "sens request failed", err)
	}

	raw := strings.TrimSpace(response.String())
	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, HTTPError(statusCode, fmt.Sprintf("sens returned status %d", statusCode), nil)
	}

	var parsed sensSendResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, Rejected("MALFORMED_RESPONSE", "sens response could not be parsed")
	}

	// 202 with statusCode "202" means accepted for delivery.
	if parsed.StatusCode != "" && parsed.StatusCode != "202" {
		return nil, Rejected("SENS_"+parsed.StatusCode, parsed.StatusName)
	}

	return &SendResult{RequestID: parsed.RequestID, Raw: raw}, nil
}

// SendAlimtalk is not supported; SENS serves only the SMS fallback channel.
func (p *NaverSensSmsProvider) SendAlimtalk(ctx context.Context, req AlimtalkRequest) (*SendResult, error) {
	return nil, ConfigMissing("sens provider does not deliver alimtalk")
}

// sign computes the x-ncp-apigw-signature-v2 value:
// base64(HMAC-SHA256("{method} {uri}\n{timestamp}\n{accessKey}", secretKey)).
func (p *NaverSensSmsProvider) sign(method, uri, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(p.secretKey))
	fmt.Fprintf(mac, "%s %s\n%s\n%s", method, uri, timestamp, p.accessKey)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
