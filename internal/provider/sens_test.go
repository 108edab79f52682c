package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
)

func newTestSensProvider(t *testing.T, serverURL string) *NaverSensSmsProvider {
	t.Helper()
	return NewNaverSensSmsProviderWithClient(serverURL, "access", "secret", "svc-1", "0261234567", resty.New())
}

func TestSensSendSMSSuccess(t *testing.T) {
	t.Parallel()

	var gotBody sensSendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sms/v2/services/svc-1/messages") {
			t.Errorf("path = %s, want the sms send endpoint", r.URL.Path)
		}
		if r.Header.Get("x-ncp-iam-access-key") != "access" {
			t.Error("access key header missing")
		}
		if r.Header.Get("x-ncp-apigw-signature-v2") == "" {
			t.Error("signature header missing")
		}
		if r.Header.Get("x-ncp-apigw-timestamp") == "" {
			t.Error("timestamp header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"requestId":"sens-1","statusCode":"202","statusName":"success"}`))
	}))
	defer server.Close()

	p := newTestSensProvider(t, server.URL)

	result, err := p.SendSMS(context.Background(), SMSRequest{
		Phone:   "01012345678",
		Content: "배송 완료 http://example.com/s/abc",
	})
	if err != nil {
		t.Fatalf("SendSMS() error = %v", err)
	}

	if result.RequestID != "sens-1" {
		t.Fatalf("RequestID = %q, want sens-1", result.RequestID)
	}
	if gotBody.Type != "SMS" {
		t.Fatalf("type = %q, want SMS", gotBody.Type)
	}
	if gotBody.From != "0261234567" {
		t.Fatalf("from = %q, want configured sender", gotBody.From)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].To != "01012345678" {
		t.Fatalf("messages = %+v, want single destination", gotBody.Messages)
	}
}

func TestSensSendSMSHTTPFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := newTestSensProvider(t, server.URL)

	_, err := p.SendSMS(context.Background(), SMSRequest{Phone: "01012345678", Content: "x"})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if providerErr.Kind != KindHTTP || providerErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got kind=%s status=%d, want HTTP/401", providerErr.Kind, providerErr.StatusCode)
	}
}

func TestSensSendSMSRejectedStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"requestId":"sens-2","statusCode":"404","statusName":"resource not found"}`))
	}))
	defer server.Close()

	p := newTestSensProvider(t, server.URL)

	_, err := p.SendSMS(context.Background(), SMSRequest{Phone: "01012345678", Content: "x"})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if providerErr.Kind != KindRejected {
		t.Fatalf("kind = %s, want REJECTED", providerErr.Kind)
	}
	if providerErr.Code != "SENS_404" {
		t.Fatalf("code = %q, want SENS_404", providerErr.Code)
	}
}

func TestSensConfigMissing(t *testing.T) {
	t.Parallel()

	p := NewNaverSensSmsProviderWithClient("", "", "", "", "", resty.New())

	_, err := p.SendSMS(context.Background(), SMSRequest{Phone: "01012345678", Content: "x"})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if providerErr.Kind != KindConfigMissing {
		t.Fatalf("kind = %s, want CONFIG_MISSING", providerErr.Kind)
	}
}
