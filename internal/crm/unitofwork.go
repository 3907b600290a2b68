package crm

import (
	"encoding/json"
	"fmt"
)

// Ref names a record registered in a unit of work before the org has
// assigned it an ID.
type Ref string

// ID returns the reference in the form later records use to point at this
// one inside the same graph.
func (r Ref) ID() string {
	return fmt.Sprintf("@{%s.id}", string(r))
}

type registeredCreate struct {
	ref    Ref
	record Record
}

// UnitOfWork accumulates record creates that commit as one all-or-nothing
// Composite Graph transaction.
type UnitOfWork struct {
	creates []registeredCreate
}

// NewUnitOfWork returns an empty unit of work.
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{}
}

// RegisterCreate validates the record and adds it to the transaction,
// returning the reference other records in the same unit of work can use
// via Ref.ID().
func (u *UnitOfWork) RegisterCreate(rec Record) (Ref, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("register create: %w", err)
	}
	ref := Ref(fmt.Sprintf("ref%d", len(u.creates)))
	u.creates = append(u.creates, registeredCreate{ref: ref, record: rec})
	return ref, nil
}

// Empty reports whether nothing has been registered.
func (u *UnitOfWork) Empty() bool {
	return len(u.creates) == 0
}

// graph request/response wire shapes for POST /composite/graph.

type compositeSubrequest struct {
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	ReferenceID string         `json:"referenceId"`
	Body        map[string]any `json:"body,omitempty"`
}

type compositeGraph struct {
	GraphID          string                `json:"graphId"`
	CompositeRequest []compositeSubrequest `json:"compositeRequest"`
}

type compositeGraphRequest struct {
	Graphs []compositeGraph `json:"graphs"`
}

// compositeSubresponse keeps Body raw: the org sends an object on success
// and an array of errors on failure.
type compositeSubresponse struct {
	ReferenceID    string          `json:"referenceId"`
	HTTPStatusCode int             `json:"httpStatusCode"`
	Body           json.RawMessage `json:"body"`
}

type compositeGraphResult struct {
	Graphs []struct {
		GraphID       string `json:"graphId"`
		IsSuccessful  bool   `json:"isSuccessful"`
		GraphResponse struct {
			CompositeResponse []compositeSubresponse `json:"compositeResponse"`
		} `json:"graphResponse"`
	} `json:"graphs"`
}

// buildGraphRequest lowers the registered creates into one composite graph.
func (u *UnitOfWork) buildGraphRequest(apiVersion string) compositeGraphRequest {
	subs := make([]compositeSubrequest, 0, len(u.creates))
	for _, c := range u.creates {
		subs = append(subs, compositeSubrequest{
			Method:      "POST",
			URL:         fmt.Sprintf("/services/data/v%s/sobjects/%s", apiVersion, c.record.SObjectType()),
			ReferenceID: string(c.ref),
			Body:        c.record.Fields(),
		})
	}
	return compositeGraphRequest{
		Graphs: []compositeGraph{{GraphID: "graph0", CompositeRequest: subs}},
	}
}
