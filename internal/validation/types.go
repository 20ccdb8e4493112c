package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"zoho-sap-gateway/internal/core"
)

// OrderPayload is the raw upsert body for POST /orders/. Pointer fields
// distinguish "absent" from zero values so defaults apply only when the
// caller omitted the field.
type OrderPayload struct {
	IDZoho      string               `json:"id_zoho" validate:"required,startswith=ZOHO-"`
	Customer    string               `json:"customer" validate:"required"`
	OrderDate   string               `json:"order_date" validate:"required,datetime=2006-01-02"`
	Salesperson string               `json:"salesperson" validate:"required"`
	SelerEmail  string               `json:"seler_email" validate:"required"`
	Enterprise  string               `json:"enterprise" validate:"required,enterprise"`
	IDWarehouse *int                 `json:"id_warehouse" validate:"omitempty,min=1"`
	SelerID     *int                 `json:"seler_id" validate:"required,gte=0"`
	Serie       *int                 `json:"serie"`
	Notes       *string              `json:"notes"`
	Details     []OrderDetailPayload `json:"details" validate:"required,min=1,dive"`
}

// OrderDetailPayload is one detail line of the upsert body. Tax is not
// accepted from the caller at all; it is forced to zero on insert.
type OrderDetailPayload struct {
	Product    string          `json:"product" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price" validate:"gt=0"`
	Discount   decimal.Decimal `json:"discount" validate:"gte=0"`
	Total      decimal.Decimal `json:"total" validate:"gt=0"`
	CostCenter string          `json:"cost_center"`
	Account    string          `json:"account"`
}

// ToInput normalizes a validated payload into a persistence-ready input:
// enterprise canonicalized to upper case, warehouse and serie defaulted to 1,
// empty optional strings collapsed to NULL.
func (p OrderPayload) ToInput() core.OrderInput {
	in := core.OrderInput{
		IDZoho:      p.IDZoho,
		Enterprise:  strings.ToUpper(p.Enterprise),
		IDWarehouse: 1,
		Customer:    p.Customer,
		OrderDate:   p.OrderDate,
		Salesperson: p.Salesperson,
		SelerEmail:  p.SelerEmail,
		Serie:       1,
		Notes:       p.Notes,
	}
	if p.IDWarehouse != nil {
		in.IDWarehouse = *p.IDWarehouse
	}
	if p.SelerID != nil {
		in.SelerID = *p.SelerID
	}
	if p.Serie != nil {
		in.Serie = *p.Serie
	}

	for _, d := range p.Details {
		in.Lines = append(in.Lines, core.OrderLineInput{
			Product:    d.Product,
			Quantity:   d.Quantity,
			UnitPrice:  d.UnitPrice,
			Discount:   d.Discount,
			Total:      d.Total,
			CostCenter: optional(d.CostCenter),
			Account:    optional(d.Account),
		})
	}
	return in
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
