package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DataAPI executes REST calls against the org identified by a client
// context.
type DataAPI struct {
	cc     *Context
	client *http.Client
}

// NewDataAPI binds a Data API to an org context. A nil httpClient gets a
// default with a 30s timeout.
func NewDataAPI(cc *Context, httpClient *http.Client) *DataAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &DataAPI{cc: cc, client: httpClient}
}

// QueryRecord is one row of a SOQL result. Field names keep the org's
// casing (Id, Name, ...).
type QueryRecord map[string]any

// StringField returns the named field when it is a string, else "".
func (r QueryRecord) StringField(name string) string {
	v, _ := r[name].(string)
	return v
}

// QueryResult is the decoded response of a SOQL query.
type QueryResult struct {
	TotalSize int           `json:"totalSize"`
	Done      bool          `json:"done"`
	Records   []QueryRecord `json:"records"`
}

// Query runs a SOQL query against the org.
func (d *DataAPI) Query(ctx context.Context, soql string) (*QueryResult, error) {
	endpoint := fmt.Sprintf("%s/services/data/v%s/query?q=%s",
		d.cc.OrgDomainURL, d.cc.APIVersion, url.QueryEscape(soql))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("crm: build query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cc.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm: query org: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, orgError("query", resp)
	}
	var qr QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("crm: decode query result: %w", err)
	}
	return &qr, nil
}

// createResultBody is a successful composite node body.
type createResultBody struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// apiError is one entry of the org's error-array responses.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// CommitUnitOfWork submits the registered creates as a single composite
// graph. All nodes succeed or the whole transaction rolls back; on success
// the returned map resolves each Ref to its created record ID.
func (d *DataAPI) CommitUnitOfWork(ctx context.Context, uow *UnitOfWork) (map[Ref]string, error) {
	if uow.Empty() {
		return nil, errors.New("crm: unit of work has no registered records")
	}

	payload, err := json.Marshal(uow.buildGraphRequest(d.cc.APIVersion))
	if err != nil {
		return nil, fmt.Errorf("crm: encode graph request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/services/data/v%s/composite/graph", d.cc.OrgDomainURL, d.cc.APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("crm: build graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cc.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm: commit unit of work: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, orgError("composite graph", resp)
	}

	var result compositeGraphResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("crm: decode graph result: %w", err)
	}
	if len(result.Graphs) == 0 {
		return nil, errors.New("crm: graph result is empty")
	}

	graph := result.Graphs[0]
	ids := make(map[Ref]string, len(graph.GraphResponse.CompositeResponse))
	var nodeErrs []string
	for _, sub := range graph.GraphResponse.CompositeResponse {
		if sub.HTTPStatusCode >= 200 && sub.HTTPStatusCode < 300 {
			var body createResultBody
			if err := json.Unmarshal(sub.Body, &body); err != nil {
				return nil, fmt.Errorf("crm: decode node %s: %w", sub.ReferenceID, err)
			}
			ids[Ref(sub.ReferenceID)] = body.ID
			continue
		}
		var errs []apiError
		if err := json.Unmarshal(sub.Body, &errs); err == nil && len(errs) > 0 {
			nodeErrs = append(nodeErrs, fmt.Sprintf("%s: %s (%s)", sub.ReferenceID, errs[0].Message, errs[0].ErrorCode))
		} else {
			nodeErrs = append(nodeErrs, fmt.Sprintf("%s: status %d", sub.ReferenceID, sub.HTTPStatusCode))
		}
	}
	if !graph.IsSuccessful || len(nodeErrs) > 0 {
		if len(nodeErrs) == 0 {
			nodeErrs = append(nodeErrs, "graph reported failure")
		}
		return nil, fmt.Errorf("crm: unit of work failed: %s", strings.Join(nodeErrs, "; "))
	}
	return ids, nil
}

// PostJSON delivers a JSON payload to rawURL. The org bearer token is
// attached only when the target is the org itself; callback URLs outside
// the org domain must not see org credentials.
func (d *DataAPI) PostJSON(ctx context.Context, rawURL string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("crm: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sameHost(rawURL, d.cc.OrgDomainURL) {
		req.Header.Set("Authorization", "Bearer "+d.cc.AccessToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("crm: post %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}

// orgError summarizes a non-2xx org response, surfacing the org's own
// error message when it sent one.
func orgError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var errs []apiError
	if err := json.Unmarshal(raw, &errs); err == nil && len(errs) > 0 {
		return fmt.Errorf("crm: %s failed: %s (%s)", op, errs[0].Message, errs[0].ErrorCode)
	}
	return fmt.Errorf("crm: %s failed: org returned status %d", op, resp.StatusCode)
}
