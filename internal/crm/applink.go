package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AddonClient talks to the AppLink add-on API, which holds stored org
// connections so background work can act without an inbound request
// context.
type AddonClient struct {
	apiURL string
	token  string
	client *http.Client
}

// NewAddonClient builds a client for the add-on control plane. A nil
// httpClient gets a default with a 30s timeout.
func NewAddonClient(apiURL, token string, httpClient *http.Client) *AddonClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &AddonClient{apiURL: strings.TrimRight(apiURL, "/"), token: token, client: httpClient}
}

// Authorization is a stored org connection resolved by developer name.
type Authorization struct {
	OrgID         string `json:"orgId"`
	DeveloperName string `json:"developerName"`
	InstanceURL   string `json:"instanceUrl"`
	AccessToken   string `json:"accessToken"`
	APIVersion    string `json:"apiVersion"`
}

type authorizationEnvelope struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Org    struct {
		ID            string `json:"id"`
		DeveloperName string `json:"developer_name"`
		InstanceURL   string `json:"instance_url"`
		UserAuth      struct {
			AccessToken string `json:"access_token"`
		} `json:"user_auth"`
		APIVersion string `json:"api_version"`
	} `json:"org"`
}

// GetAuthorization fetches the stored connection registered under
// developerName and returns credentials usable against that org.
func (a *AddonClient) GetAuthorization(ctx context.Context, developerName string) (*Authorization, error) {
	endpoint := fmt.Sprintf("%s/authorizations/%s", a.apiURL, developerName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("crm: build authorization request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm: fetch authorization %q: %w", developerName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crm: authorization %q: add-on returned status %d", developerName, resp.StatusCode)
	}

	var env authorizationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("crm: decode authorization: %w", err)
	}
	auth := &Authorization{
		OrgID:         env.Org.ID,
		DeveloperName: developerName,
		InstanceURL:   strings.TrimRight(env.Org.InstanceURL, "/"),
		AccessToken:   env.Org.UserAuth.AccessToken,
		APIVersion:    env.Org.APIVersion,
	}
	if auth.APIVersion == "" {
		auth.APIVersion = DefaultAPIVersion
	}
	if auth.InstanceURL == "" || auth.AccessToken == "" {
		return nil, fmt.Errorf("crm: authorization %q is missing instance URL or access token", developerName)
	}
	return auth, nil
}

// DataCloudQueryResult is the raw response of a Data Cloud SQL query. Data
// rows come back as arrays positioned by the metadata columns.
type DataCloudQueryResult struct {
	Data     [][]any        `json:"data"`
	Metadata map[string]any `json:"metadata"`
	Done     bool           `json:"done"`
	RowCount int64          `json:"rowCount"`
}

// DataCloudQuery runs a SQL statement against the Data Cloud instance
// behind the stored connection.
func (a *AddonClient) DataCloudQuery(ctx context.Context, auth *Authorization, sql string) (*DataCloudQueryResult, error) {
	payload, err := json.Marshal(map[string]string{"sql": sql})
	if err != nil {
		return nil, fmt.Errorf("crm: encode data cloud query: %w", err)
	}
	endpoint := auth.InstanceURL + "/api/v2/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("crm: build data cloud query: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm: data cloud query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, orgError("data cloud query", resp)
	}

	var result DataCloudQueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("crm: decode data cloud result: %w", err)
	}
	return &result, nil
}
