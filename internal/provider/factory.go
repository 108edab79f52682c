package provider

import "strings"

// Settings is the configuration slice that selects and credentials the
// messaging backends. Selection is a pure function of these values.
type Settings struct {
	Primary string

	KakaoBaseURL     string
	KakaoAccessToken string

	SensBaseURL   string
	SensAccessKey string
	SensSecretKey string
	SensServiceID string
	SensFrom      string
}

// NewPrimary returns the rich-channel provider. Unknown names fall back to
// the mock backend so a misconfigured environment stays safe.
func NewPrimary(s Settings) MessagingProvider {
	switch strings.ToLower(strings.TrimSpace(s.Primary)) {
	case "", MockName:
		return NewMockProvider()
	case "kakao", "kakao_i_connect", "kakaoiconnect":
		return NewKakaoIConnectProvider(s.KakaoBaseURL, s.KakaoAccessToken)
	default:
		return NewMockProvider()
	}
}

// NewSMSFallback returns the provider for the SMS fallback channel. A mock
// primary also mocks the fallback so local runs never touch the network.
func NewSMSFallback(s Settings) MessagingProvider {
	if strings.ToLower(strings.TrimSpace(s.Primary)) == MockName || strings.TrimSpace(s.Primary) == "" {
		return NewMockProvider()
	}
	return NewNaverSensSmsProvider(s.SensBaseURL, s.SensAccessKey, s.SensSecretKey, s.SensServiceID, s.SensFrom)
}
