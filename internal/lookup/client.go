// Package lookup is the client for the external benefit registry. Every
// call is classified into a deterministic outcome so the consultation
// orchestrator can decide between retrying, giving up, and recording a
// definitive negative without inspecting HTTP details itself.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/config"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/cpf"
)

// Status classifies one consultation outcome.
type Status int

const (
	// StatusOK is a successful answer, possibly with zero bonds.
	StatusOK Status = iota
	// StatusNotFound is the registry's definitive "document not in
	// base" answer. Terminal, but not a failure.
	StatusNotFound
	// StatusTerminal is a failure that retrying cannot fix.
	StatusTerminal
	// StatusRetriable is a transient failure worth another attempt.
	StatusRetriable
)

// Outcome is one classified consultation result.
type Outcome struct {
	Status  Status
	Message string
	Bonds   []Bond
	Name    string
}

// notFoundPattern is matched against normalized error messages. The
// registry phrases its negative a few different ways; diacritics and
// casing vary, the words do not.
const notFoundPattern = "cpf nao encontrado na base"

// Consulter is the surface the orchestrator depends on.
type Consulter interface {
	Consult(ctx context.Context, document string) Outcome
}

// Client talks to the registry with a cached bearer token and paced
// outbound requests.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	tokenTTL     time.Duration
	http         *http.Client
	limiter      *rate.Limiter

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient builds a Client from config. RequestsPerSecond caps the
// steady-state call rate; bursts of one keep pacing strict.
func NewClient(cfg config.LookupConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenTTL:     cfg.TokenTTL,
		http:         &http.Client{Timeout: cfg.RequestTimeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Consult queries the registry for one document and classifies the
// answer. It never returns an error: every failure mode maps to an
// Outcome the caller can act on.
func (c *Client) Consult(ctx context.Context, document string) Outcome {
	normalized, ok := cpf.Normalize(document)
	if !ok || !cpf.IsValid(normalized) {
		return Outcome{Status: StatusTerminal, Message: "CPF inválido"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Outcome{Status: StatusRetriable, Message: err.Error()}
	}

	resp, err := c.doConsult(ctx, normalized, false)
	if err != nil {
		// Transport-level problems (DNS, timeout, refused) are always
		// worth retrying.
		return Outcome{Status: StatusRetriable, Message: err.Error()}
	}
	defer resp.Body.Close()

	// A 401 means the cached token died early; refresh once and replay
	// the original request.
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		resp, err = c.doConsult(ctx, normalized, true)
		if err != nil {
			return Outcome{Status: StatusRetriable, Message: err.Error()}
		}
		defer resp.Body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyHTTP(resp.StatusCode)
	}

	var body consultResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Outcome{Status: StatusRetriable, Message: "resposta ilegível: " + err.Error()}
	}

	if body.Error != "" {
		if strings.Contains(normalizeMessage(body.Error), notFoundPattern) {
			return Outcome{Status: StatusNotFound, Message: body.Error}
		}
		return Outcome{Status: StatusRetriable, Message: body.Error}
	}

	return Outcome{Status: StatusOK, Bonds: body.Vinculos, Name: body.Nome}
}

func classifyHTTP(code int) Outcome {
	msg := fmt.Sprintf("registro respondeu HTTP %d", code)
	switch {
	case code == http.StatusUnauthorized,
		code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code >= 500:
		return Outcome{Status: StatusRetriable, Message: msg}
	default:
		return Outcome{Status: StatusTerminal, Message: msg}
	}
}

func (c *Client) doConsult(ctx context.Context, document string, forceToken bool) (*http.Response, error) {
	token, err := c.bearerToken(ctx, forceToken)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/consulta/%s", c.baseURL, document)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return c.http.Do(req)
}

// bearerToken returns the cached token, fetching a fresh one when the
// cache is empty, expired, or force is set.
func (c *Client) bearerToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	payload, err := json.Marshal(tokenRequest{GrantType: "client_credentials"})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("token request: HTTP %d", resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response: empty access_token")
	}

	// Cache for the configured TTL, which sits short of the real
	// expiry so a token never dies mid-flight.
	c.token = body.AccessToken
	c.tokenExp = time.Now().Add(c.tokenTTL)
	return c.token, nil
}

var diacriticsRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeMessage canonicalizes a registry error message for pattern
// matching: diacritics stripped, lowercased, whitespace collapsed.
func normalizeMessage(s string) string {
	if stripped, _, err := transform.String(diacriticsRemover, s); err == nil {
		s = stripped
	}
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
