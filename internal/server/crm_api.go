package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/orgbridge/go-orgbridge/internal/crm"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// requireClientContext rejects requests that do not carry a valid
// x-client-context header and stashes the decoded context for handlers.
func requireClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cc, err := crm.FromRequest(r)
		if err != nil {
			svclog.Log.Warn("Rejected org API request", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid org client context")
			return
		}
		next.ServeHTTP(w, r.WithContext(crm.NewContext(r.Context(), cc)))
	})
}

// AccountResponse is one row of the accounts listing.
type AccountResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// handleListAccounts queries the org for accounts.
// @Summary List org accounts
// @Description Runs SELECT Id, Name FROM Account against the calling org.
// @Tags org
// @Produce json
// @Param x-client-context header string true "Base64 org client context"
// @Success 200 {array} AccountResponse
// @Failure 401 {object} ErrorResponse "Missing or invalid client context"
// @Failure 502 {object} ErrorResponse "Org query failed"
// @Router /api/accounts/ [get]
func (s *HTTPServer) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	cc, _ := crm.FromContext(r.Context())
	api := crm.NewDataAPI(cc, s.orgHTTP)

	result, err := api.Query(r.Context(), "SELECT Id, Name FROM Account")
	if err != nil {
		svclog.Log.Error("Account query failed", "org", cc.OrgID, "error", err)
		writeError(w, http.StatusBadGateway, "org_query_failed", err.Error())
		return
	}

	accounts := make([]AccountResponse, 0, len(result.Records))
	for _, rec := range result.Records {
		accounts = append(accounts, AccountResponse{
			ID:   rec.StringField("Id"),
			Name: rec.StringField("Name"),
		})
	}
	writeJSON(w, http.StatusOK, accounts)
}

// UnitOfWorkRequest is the payload for the composite write endpoint.
type UnitOfWorkRequest struct {
	Data UnitOfWorkData `json:"data"`
}

// UnitOfWorkData names the records to create in a single org transaction.
type UnitOfWorkData struct {
	AccountName string `json:"accountName"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// UnitOfWorkResponse acknowledges an accepted unit of work.
type UnitOfWorkResponse struct {
	Success bool `json:"success"`
}

// handleUnitOfWork creates an account, a contact and two linked cases in
// one composite graph transaction, then optionally notifies a callback URL.
// @Summary Create account, contact and cases in one transaction
// @Description Registers an Account, a Contact and a service Case plus follow-up Case and commits them atomically via the org composite graph API.
// @Tags org
// @Accept json
// @Produce json
// @Param x-client-context header string true "Base64 org client context"
// @Param request body UnitOfWorkRequest true "Records to create"
// @Success 201 {object} UnitOfWorkResponse
// @Failure 400 {object} ErrorResponse "Missing required fields"
// @Failure 401 {object} ErrorResponse "Missing or invalid client context"
// @Failure 500 {object} ErrorResponse "Commit failed"
// @Router /api/unitofwork/ [post]
func (s *HTTPServer) handleUnitOfWork(w http.ResponseWriter, r *http.Request) {
	cc, _ := crm.FromContext(r.Context())

	var req UnitOfWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}
	data := req.Data

	var missing []string
	if strings.TrimSpace(data.AccountName) == "" {
		missing = append(missing, "accountName")
	}
	if strings.TrimSpace(data.LastName) == "" {
		missing = append(missing, "lastName")
	}
	if strings.TrimSpace(data.Subject) == "" {
		missing = append(missing, "subject")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "validation_error",
			"Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	uow := crm.NewUnitOfWork()
	accountRef, err := uow.RegisterCreate(crm.Account{Name: data.AccountName})
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	contactRef, err := uow.RegisterCreate(crm.Contact{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		AccountID: accountRef.ID(),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	serviceRef, err := uow.RegisterCreate(crm.Case{
		Subject:     data.Subject,
		Description: data.Description,
		Origin:      "Web",
		Status:      "New",
		AccountID:   accountRef.ID(),
		ContactID:   contactRef.ID(),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	followupRef, err := uow.RegisterCreate(crm.Case{
		ParentID:    serviceRef.ID(),
		Subject:     "Follow Up",
		Description: "Follow up with Customer",
		AccountID:   accountRef.ID(),
		ContactID:   contactRef.ID(),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	api := crm.NewDataAPI(cc, s.orgHTTP)
	ids, err := api.CommitUnitOfWork(r.Context(), uow)
	if err != nil {
		svclog.Log.Error("Unit of work commit failed", "org", cc.OrgID, "error", err)
		writeError(w, http.StatusInternalServerError, "unit_of_work_failed",
			fmt.Sprintf("Failed to insert record. Root Cause: %v", err))
		return
	}
	svclog.Log.Info("Unit of work committed",
		"org", cc.OrgID,
		"account", ids[accountRef],
		"contact", ids[contactRef])

	if data.CallbackURL != "" {
		payload := map[string]any{
			"accountId": ids[accountRef],
			"contactId": ids[contactRef],
			"cases": map[string]any{
				"serviceCaseId":  ids[serviceRef],
				"followupCaseId": ids[followupRef],
			},
		}
		if status, err := api.PostJSON(r.Context(), data.CallbackURL, payload); err != nil {
			svclog.Log.Warn("Callback delivery failed", "url", data.CallbackURL, "error", err)
		} else {
			svclog.Log.Info("Callback delivered", "url", data.CallbackURL, "status", status)
		}
	}

	writeJSON(w, http.StatusCreated, UnitOfWorkResponse{Success: true})
}
