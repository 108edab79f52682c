package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
)

const (
	jwksCacheTTL     = time.Hour
	jwksFetchTimeout = 10 * time.Second
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// JWKSCache fetches and caches the RSA public keys of a JWKS endpoint.
// Refreshes are coalesced so a burst of requests after expiry triggers a
// single upstream fetch.
type JWKSCache struct {
	url    string
	client *resty.Client
	now    func() time.Time
	group  singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKSCache(url string) *JWKSCache {
	return &JWKSCache{
		url:    url,
		client: resty.New().SetTimeout(jwksFetchTimeout),
		now:    time.Now,
		keys:   map[string]*rsa.PublicKey{},
	}
}

// Key returns the RSA public key for kid, refreshing the cache when stale.
// An unknown kid on a fresh cache forces one refresh before giving up, so
// key rotations are picked up without waiting for the TTL.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, fresh := c.cachedKey(kid); key != nil && fresh {
		return key, nil
	}

	if err := c.refresh(ctx); err != nil {
		// Serve a stale key over failing outright.
		if key, _ := c.cachedKey(kid); key != nil {
			return key, nil
		}
		return nil, err
	}

	key, _ := c.cachedKey(kid)
	if key == nil {
		return nil, fmt.Errorf("jwks: unknown key id %q", kid)
	}
	return key, nil
}

func (c *JWKSCache) cachedKey(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := c.keys[kid]
	fresh := c.now().Sub(c.fetchedAt) < jwksCacheTTL
	return key, fresh
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		resp, err := c.client.R().SetContext(ctx).Get(c.url)
		if err != nil {
			return nil, fmt.Errorf("jwks: fetch failed: %w", err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("jwks: unexpected status %d", resp.StatusCode())
		}

		var doc jwksDocument
		if err := json.Unmarshal(resp.Body(), &doc); err != nil {
			return nil, fmt.Errorf("jwks: invalid document: %w", err)
		}

		keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
		for _, k := range doc.Keys {
			if k.Kty != "RSA" || k.Kid == "" {
				continue
			}
			pub, err := rsaKeyFromJWK(k)
			if err != nil {
				continue
			}
			keys[k.Kid] = pub
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("jwks: document contains no usable RSA keys")
		}

		c.mu.Lock()
		c.keys = keys
		c.fetchedAt = c.now()
		c.mu.Unlock()

		return nil, nil
	})
	return err
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("jwks: invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("jwks: invalid exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("jwks: non-positive exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
