package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/orgbridge/go-orgbridge/internal/crm"
)

// clientContextHeader builds an x-client-context value pointing at orgURL.
func clientContextHeader(t *testing.T, orgURL string) string {
	t.Helper()
	raw, err := crm.EncodeClientContext(&crm.Context{
		OrgID:        "00DSG00000DGEIr2AP",
		OrgDomainURL: orgURL,
		AccessToken:  "00DSG!test.token",
		APIVersion:   "59.0",
		UserID:       "005SG00000HgbgFYAR",
		Username:     "dev@example.org",
	})
	if err != nil {
		t.Fatalf("encode client context: %v", err)
	}
	return raw
}

func TestOrgRoutes_MissingClientContext(t *testing.T) {
	s, _, _ := newTestServer(Config{})

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/accounts/"},
		{http.MethodPost, "/api/unitofwork/"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		w := doRequest(t, s, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected status %d, got %d", route.method, route.path, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestOrgRoutes_MalformedClientContext(t *testing.T) {
	s, _, _ := newTestServer(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/", nil)
	req.Header.Set("x-client-context", "not-base64-json")
	w := doRequest(t, s, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestHandleListAccounts(t *testing.T) {
	org := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/services/data/v59.0/query") {
			t.Errorf("unexpected org path %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "SELECT Id, Name FROM Account" {
			t.Errorf("unexpected SOQL %q", q)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer 00DSG!test.token" {
			t.Errorf("unexpected Authorization %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"totalSize":2,"done":true,"records":[
			{"attributes":{"type":"Account"},"Id":"001SG00000ZPfjHYAT","Name":"Acme Corp"},
			{"attributes":{"type":"Account"},"Id":"001SG00000ZPfjIYAT","Name":"Umbrella Inc"}
		]}`)
	}))
	defer org.Close()

	s, _, _ := newTestServer(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/", nil)
	req.Header.Set("x-client-context", clientContextHeader(t, org.URL))
	w := doRequest(t, s, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var accounts []AccountResponse
	decodeBody(t, w, &accounts)
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].ID != "001SG00000ZPfjHYAT" || accounts[0].Name != "Acme Corp" {
		t.Errorf("unexpected first account %+v", accounts[0])
	}
}

func TestHandleListAccounts_OrgFailure(t *testing.T) {
	org := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `[{"message":"An unexpected error occurred","errorCode":"UNKNOWN_EXCEPTION"}]`)
	}))
	defer org.Close()

	s, _, _ := newTestServer(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/", nil)
	req.Header.Set("x-client-context", clientContextHeader(t, org.URL))
	w := doRequest(t, s, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, w.Code)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Error != "org_query_failed" {
		t.Errorf("error = %q, want org_query_failed", resp.Error)
	}
}

func TestHandleUnitOfWork_MissingFields(t *testing.T) {
	s, _, _ := newTestServer(Config{})

	body := []byte(`{"data":{"firstName":"Ada"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/unitofwork/", bytes.NewReader(body))
	req.Header.Set("x-client-context", clientContextHeader(t, "https://example.my.salesforce.com"))
	w := doRequest(t, s, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	for _, field := range []string{"accountName", "lastName", "subject"} {
		if !strings.Contains(resp.Message, field) {
			t.Errorf("message %q should name missing field %s", resp.Message, field)
		}
	}
}

// fakeOrg serves the composite graph endpoint and records the request.
type fakeOrg struct {
	mu     sync.Mutex
	graphs []map[string]any
	fail   bool
}

func (f *fakeOrg) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/composite/graph") {
			t.Errorf("unexpected org path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Graphs []struct {
				GraphID          string `json:"graphId"`
				CompositeRequest []struct {
					Method      string         `json:"method"`
					URL         string         `json:"url"`
					ReferenceID string         `json:"referenceId"`
					Body        map[string]any `json:"body"`
				} `json:"compositeRequest"`
			} `json:"graphs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode graph request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.Graphs) != 1 {
			t.Errorf("expected 1 graph, got %d", len(req.Graphs))
		}

		f.mu.Lock()
		for _, sub := range req.Graphs[0].CompositeRequest {
			f.graphs = append(f.graphs, map[string]any{
				"url":  sub.URL,
				"ref":  sub.ReferenceID,
				"body": sub.Body,
			})
		}
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if f.fail {
			fmt.Fprint(w, `{"graphs":[{"graphId":"graph0","isSuccessful":false,"graphResponse":{"compositeResponse":[
				{"referenceId":"ref0","httpStatusCode":400,"body":[{"message":"Required fields are missing: [Name]","errorCode":"REQUIRED_FIELD_MISSING"}]}
			]}}]}`)
			return
		}
		var nodes []string
		ids := map[string]string{
			"ref0": "001SG00000AAAAAAA1",
			"ref1": "003SG00000BBBBBBB1",
			"ref2": "500SG00000CCCCCCC1",
			"ref3": "500SG00000DDDDDDD1",
		}
		for _, sub := range req.Graphs[0].CompositeRequest {
			nodes = append(nodes, fmt.Sprintf(
				`{"referenceId":%q,"httpStatusCode":201,"body":{"id":%q,"success":true}}`,
				sub.ReferenceID, ids[sub.ReferenceID]))
		}
		fmt.Fprintf(w, `{"graphs":[{"graphId":"graph0","isSuccessful":true,"graphResponse":{"compositeResponse":[%s]}}]}`,
			strings.Join(nodes, ","))
	}
}

// subBody returns the recorded create body for a reference ID.
func (f *fakeOrg) subBody(ref string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.graphs {
		if g["ref"] == ref {
			return g["body"].(map[string]any)
		}
	}
	return nil
}

func TestHandleUnitOfWork(t *testing.T) {
	fake := &fakeOrg{}
	org := httptest.NewServer(fake.handler(t))
	defer org.Close()

	var callbackBody map[string]any
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&callbackBody); err != nil {
			t.Errorf("decode callback body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer callback.Close()

	s, _, _ := newTestServer(Config{})

	payload := fmt.Sprintf(`{"data":{
		"accountName": "Northern Trail Outfitters",
		"firstName": "Ada",
		"lastName": "Lovelace",
		"subject": "Broken tent pole",
		"description": "Pole snapped on first use",
		"callbackUrl": %q
	}}`, callback.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/unitofwork/", strings.NewReader(payload))
	req.Header.Set("x-client-context", clientContextHeader(t, org.URL))
	w := doRequest(t, s, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var resp UnitOfWorkResponse
	decodeBody(t, w, &resp)
	if !resp.Success {
		t.Error("expected success true")
	}

	// The graph carries four creates referencing each other.
	account := fake.subBody("ref0")
	if account == nil || account["Name"] != "Northern Trail Outfitters" {
		t.Errorf("unexpected account node %v", account)
	}
	contact := fake.subBody("ref1")
	if contact == nil || contact["LastName"] != "Lovelace" || contact["AccountId"] != "@{ref0.id}" {
		t.Errorf("unexpected contact node %v", contact)
	}
	service := fake.subBody("ref2")
	if service == nil || service["Subject"] != "Broken tent pole" ||
		service["Origin"] != "Web" || service["Status"] != "New" ||
		service["ContactId"] != "@{ref1.id}" {
		t.Errorf("unexpected service case node %v", service)
	}
	followup := fake.subBody("ref3")
	if followup == nil || followup["Subject"] != "Follow Up" ||
		followup["Description"] != "Follow up with Customer" ||
		followup["ParentId"] != "@{ref2.id}" {
		t.Errorf("unexpected follow-up case node %v", followup)
	}

	// Callback got the created IDs.
	if callbackBody == nil {
		t.Fatal("callback was not delivered")
	}
	if callbackBody["accountId"] != "001SG00000AAAAAAA1" {
		t.Errorf("callback accountId = %v", callbackBody["accountId"])
	}
	if callbackBody["contactId"] != "003SG00000BBBBBBB1" {
		t.Errorf("callback contactId = %v", callbackBody["contactId"])
	}
	cases, _ := callbackBody["cases"].(map[string]any)
	if cases == nil || cases["serviceCaseId"] != "500SG00000CCCCCCC1" || cases["followupCaseId"] != "500SG00000DDDDDDD1" {
		t.Errorf("callback cases = %v", callbackBody["cases"])
	}
}

func TestHandleUnitOfWork_NodeFailure(t *testing.T) {
	fake := &fakeOrg{fail: true}
	org := httptest.NewServer(fake.handler(t))
	defer org.Close()

	s, _, _ := newTestServer(Config{})

	payload := `{"data":{"accountName":"Acme","lastName":"Smith","subject":"Help"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/unitofwork/", strings.NewReader(payload))
	req.Header.Set("x-client-context", clientContextHeader(t, org.URL))
	w := doRequest(t, s, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if !strings.HasPrefix(resp.Message, "Failed to insert record. Root Cause:") {
		t.Errorf("message = %q, want Root Cause prefix", resp.Message)
	}
	if !strings.Contains(resp.Message, "REQUIRED_FIELD_MISSING") {
		t.Errorf("message %q should surface the org error code", resp.Message)
	}
}

func TestHandleUnitOfWork_NoCallback(t *testing.T) {
	fake := &fakeOrg{}
	org := httptest.NewServer(fake.handler(t))
	defer org.Close()

	s, _, _ := newTestServer(Config{})

	payload := `{"data":{"accountName":"Acme","lastName":"Smith","subject":"Help"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/unitofwork/", strings.NewReader(payload))
	req.Header.Set("x-client-context", clientContextHeader(t, org.URL))
	w := doRequest(t, s, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
}
