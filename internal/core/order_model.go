package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents one Zoho sales order staged for SAP integration.
//
// The integration flags describe where the order sits in the sync lifecycle:
//
//	is_integrated — SAP accepted the order (written by the sync worker)
//	is_failed     — the last SAP attempt failed (worker)
//	is_updated    — the order was edited after capture and needs a re-sync
//	is_mail_send  — the notification mail went out (worker)
//
// doc_num, doc_entry, integration_date, mail_send_date, and error_message are
// written exclusively by the external sync worker; this API only ever resets
// is_updated/is_failed/error_message on the update path.
type Order struct {
	ID              int           `json:"id"`
	IDZoho          string        `json:"id_zoho"`
	Enterprise      string        `json:"enterprise"`
	IDWarehouse     int           `json:"id_warehouse"`
	Customer        string        `json:"customer"`
	OrderDate       string        `json:"order_date"` // YYYY-MM-DD
	IntegrationDate *time.Time    `json:"integration_date"`
	IsIntegrated    bool          `json:"is_integrated"`
	IsFailed        bool          `json:"is_failed"`
	IsUpdated       bool          `json:"is_updated"`
	IsMailSend      bool          `json:"is_mail_send"`
	MailSendDate    *time.Time    `json:"mail_send_date"`
	Salesperson     string        `json:"salesperson"`
	SelerEmail      string        `json:"seler_email"`
	SelerID         int           `json:"seler_id"`
	Serie           int           `json:"serie"`
	DocNum          *int          `json:"doc_num"`
	DocEntry        *int          `json:"doc_entry"`
	ErrorMessage    *string       `json:"error_message"`
	Notes           *string       `json:"notes"`
	CreatedAt       time.Time     `json:"created_at"`
	Details         []OrderDetail `json:"details"`
}

// OrderDetail is one product line belonging to exactly one order. Lines carry
// no caller-visible identity, so updates replace the whole set.
type OrderDetail struct {
	ID         int             `json:"id"`
	OrderID    int             `json:"order_id"`
	Product    string          `json:"product"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	Tax        decimal.Decimal `json:"tax"`
	CostCenter *string         `json:"cost_center"`
	Account    *string         `json:"account"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OrderInput is a validated, normalized order payload ready for persistence.
// Enterprise is already upper-cased and defaults are applied.
type OrderInput struct {
	IDZoho      string
	Enterprise  string
	IDWarehouse int
	Customer    string
	OrderDate   string // YYYY-MM-DD
	Salesperson string
	SelerEmail  string
	SelerID     int
	Serie       int
	Notes       *string
	Lines       []OrderLineInput
}

// OrderLineInput is a single detail line within an OrderInput.
type OrderLineInput struct {
	Product    string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CostCenter *string
	Account    *string
}
