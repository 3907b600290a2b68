package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAddonClient_GetAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/authorizations/DATA_CLOUD_ORG" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer addon-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "auth-1",
			"status": "authorized",
			"org": {
				"id": "00Ddc",
				"developer_name": "DATA_CLOUD_ORG",
				"instance_url": "https://dc.my.salesforce.com/",
				"user_auth": {"access_token": "dc-token"},
				"api_version": "62.0"
			}
		}`))
	}))
	defer srv.Close()

	client := NewAddonClient(srv.URL+"/", "addon-token", srv.Client())
	auth, err := client.GetAuthorization(context.Background(), "DATA_CLOUD_ORG")
	if err != nil {
		t.Fatalf("GetAuthorization: %v", err)
	}
	if auth.OrgID != "00Ddc" {
		t.Errorf("OrgID = %q", auth.OrgID)
	}
	if auth.InstanceURL != "https://dc.my.salesforce.com" {
		t.Errorf("InstanceURL = %q (trailing slash should be trimmed)", auth.InstanceURL)
	}
	if auth.AccessToken != "dc-token" || auth.APIVersion != "62.0" {
		t.Errorf("auth = %+v", auth)
	}
}

func TestAddonClient_GetAuthorization_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewAddonClient(srv.URL, "addon-token", srv.Client())
	if _, err := client.GetAuthorization(context.Background(), "MISSING"); err == nil {
		t.Fatal("expected error for unknown developer name")
	}
}

func TestAddonClient_DataCloudQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/query" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer dc-token" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["sql"] != "SELECT Id__c FROM Document_Chunk__dlm LIMIT 5" {
			t.Errorf("sql = %q", body["sql"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [["row-1"], ["row-2"]],
			"metadata": {"Id__c": {"type": "VARCHAR", "placeInOrder": 0}},
			"done": true,
			"rowCount": 2
		}`))
	}))
	defer srv.Close()

	auth := &Authorization{
		InstanceURL: srv.URL,
		AccessToken: "dc-token",
		APIVersion:  "62.0",
	}
	client := NewAddonClient("https://applink.invalid", "addon-token", srv.Client())
	result, err := client.DataCloudQuery(context.Background(), auth, "SELECT Id__c FROM Document_Chunk__dlm LIMIT 5")
	if err != nil {
		t.Fatalf("DataCloudQuery: %v", err)
	}
	if result.RowCount != 2 || len(result.Data) != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Data[0][0] != "row-1" {
		t.Errorf("first row = %v", result.Data[0])
	}
}
