// Package crm talks to the invoking Salesforce org: it parses the client
// context the AppLink runtime forwards with each request, runs SOQL queries
// through the org's Data API, and commits multi-object transactions via the
// Composite Graph API. Record shapes are explicit structs validated at the
// boundary.
package crm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultAPIVersion is used when the forwarded context does not carry one.
const DefaultAPIVersion = "59.0"

// ErrNoClientContext is returned when a request carries no usable org
// context in either supported header form.
var ErrNoClientContext = errors.New("crm: no client context on request")

// Context identifies the invoking org and user for one request.
type Context struct {
	OrgID        string
	OrgDomainURL string
	AccessToken  string
	APIVersion   string
	Namespace    string
	RequestID    string
	UserID       string
	Username     string
}

// clientContextPayload is the JSON carried in the x-client-context header.
type clientContextPayload struct {
	RequestID    string `json:"requestId"`
	AccessToken  string `json:"accessToken"`
	APIVersion   string `json:"apiVersion"`
	Namespace    string `json:"namespace"`
	OrgID        string `json:"orgId"`
	OrgDomainURL string `json:"orgDomainUrl"`
	UserContext  struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
	} `json:"userContext"`
}

// FromRequest extracts the org context from a request. It prefers the
// runtime's x-client-context header (base64 JSON) and falls back to the
// Salesforce-Functions-* header set that local invoke tooling sends.
func FromRequest(r *http.Request) (*Context, error) {
	if raw := r.Header.Get("x-client-context"); raw != "" {
		return ParseClientContext(raw)
	}

	cc := &Context{
		OrgDomainURL: strings.TrimSpace(r.Header.Get("Salesforce-Functions-Org-Domain-Url")),
		AccessToken:  strings.TrimSpace(r.Header.Get("Salesforce-Functions-Access-Token")),
		OrgID:        strings.TrimSpace(r.Header.Get("Salesforce-Functions-Org-Id")),
		UserID:       strings.TrimSpace(r.Header.Get("Salesforce-Functions-User-Id")),
		APIVersion:   DefaultAPIVersion,
	}
	if cc.OrgDomainURL == "" && cc.AccessToken == "" {
		return nil, ErrNoClientContext
	}
	if err := cc.validate(); err != nil {
		return nil, err
	}
	return cc, nil
}

// ParseClientContext decodes an x-client-context header value.
func ParseClientContext(raw string) (*Context, error) {
	decoded, err := decodeBase64(raw)
	if err != nil {
		return nil, fmt.Errorf("crm: decode client context: %w", err)
	}
	var p clientContextPayload
	if err := json.Unmarshal(decoded, &p); err != nil {
		return nil, fmt.Errorf("crm: parse client context: %w", err)
	}
	cc := &Context{
		OrgID:        p.OrgID,
		OrgDomainURL: strings.TrimRight(p.OrgDomainURL, "/"),
		AccessToken:  p.AccessToken,
		APIVersion:   p.APIVersion,
		Namespace:    p.Namespace,
		RequestID:    p.RequestID,
		UserID:       p.UserContext.UserID,
		Username:     p.UserContext.Username,
	}
	if cc.APIVersion == "" {
		cc.APIVersion = DefaultAPIVersion
	}
	if err := cc.validate(); err != nil {
		return nil, err
	}
	return cc, nil
}

func (c *Context) validate() error {
	var missing []string
	if c.OrgDomainURL == "" {
		missing = append(missing, "orgDomainUrl")
	}
	if c.AccessToken == "" {
		missing = append(missing, "accessToken")
	}
	if c.OrgID == "" {
		missing = append(missing, "orgId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("crm: client context missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// decodeBase64 accepts both padded and unpadded, standard and URL-safe
// alphabets; the runtime and tooling are not consistent about which they
// produce.
func decodeBase64(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(raw); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("not valid base64")
}

// EncodeClientContext builds an x-client-context header value. Local
// invoke tooling uses it to impersonate the runtime.
func EncodeClientContext(cc *Context) (string, error) {
	var p clientContextPayload
	p.RequestID = cc.RequestID
	p.AccessToken = cc.AccessToken
	p.APIVersion = cc.APIVersion
	p.Namespace = cc.Namespace
	p.OrgID = cc.OrgID
	p.OrgDomainURL = cc.OrgDomainURL
	p.UserContext.UserID = cc.UserID
	p.UserContext.Username = cc.Username
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

type contextKey struct{}

// NewContext stores an org context on a request context.
func NewContext(ctx context.Context, cc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, cc)
}

// FromContext retrieves the org context stored by the middleware.
func FromContext(ctx context.Context) (*Context, bool) {
	cc, ok := ctx.Value(contextKey{}).(*Context)
	return cc, ok
}
