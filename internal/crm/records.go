package crm

import (
	"fmt"
	"strings"
)

// Record is an sObject write shape. Implementations are explicit structs;
// Fields returns only the set values so optional fields stay absent from
// the wire payload.
type Record interface {
	SObjectType() string
	Fields() map[string]any
	Validate() error
}

// Account is a minimal Account create.
type Account struct {
	Name string
}

func (a Account) SObjectType() string { return "Account" }

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("account: Name is required")
	}
	return nil
}

func (a Account) Fields() map[string]any {
	return map[string]any{"Name": a.Name}
}

// Contact is a minimal Contact create. AccountID may be a record ID or a
// unit-of-work reference.
type Contact struct {
	FirstName string
	LastName  string
	AccountID string
}

func (c Contact) SObjectType() string { return "Contact" }

func (c Contact) Validate() error {
	if strings.TrimSpace(c.LastName) == "" {
		return fmt.Errorf("contact: LastName is required")
	}
	return nil
}

func (c Contact) Fields() map[string]any {
	f := map[string]any{"LastName": c.LastName}
	if c.FirstName != "" {
		f["FirstName"] = c.FirstName
	}
	if c.AccountID != "" {
		f["AccountId"] = c.AccountID
	}
	return f
}

// Case is a Case create. AccountID, ContactID and ParentID may be record
// IDs or unit-of-work references.
type Case struct {
	Subject     string
	Description string
	Origin      string
	Status      string
	AccountID   string
	ContactID   string
	ParentID    string
}

func (c Case) SObjectType() string { return "Case" }

func (c Case) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return fmt.Errorf("case: Subject is required")
	}
	return nil
}

func (c Case) Fields() map[string]any {
	f := map[string]any{"Subject": c.Subject}
	if c.Description != "" {
		f["Description"] = c.Description
	}
	if c.Origin != "" {
		f["Origin"] = c.Origin
	}
	if c.Status != "" {
		f["Status"] = c.Status
	}
	if c.AccountID != "" {
		f["AccountId"] = c.AccountID
	}
	if c.ContactID != "" {
		f["ContactId"] = c.ContactID
	}
	if c.ParentID != "" {
		f["ParentId"] = c.ParentID
	}
	return f
}
