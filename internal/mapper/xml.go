package mapper

import (
	"encoding/xml"
	"fmt"
)

// ParseError marks a transaction document that cannot be mapped because a
// required node is missing or malformed
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mapper: field %s %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &ParseError{Field: field, Reason: "is missing"}
}

// transactionDoc is the billing view of a Magaya transaction. The root
// element is Invoice or CreditMemo depending on the kind; the shape is
// shared, so no XMLName is pinned.
type transactionDoc struct {
	Number    string `xml:"Number"`
	CreatedOn string `xml:"CreatedOn"`
	Notes     string `xml:"Notes"`

	ExchangeRate string `xml:"ExchangeRate"`
	Currency     struct {
		Code         string `xml:"Code"`
		ExchangeRate string `xml:"ExchangeRate"`
	} `xml:"Currency"`

	TotalAmount     *currencyAmount `xml:"TotalAmountInCurrency"`
	TaxAmount       *currencyAmount `xml:"TaxAmountInCurrency"`
	RetentionAmount *currencyAmount `xml:"RetentionAmountInCurrency"`

	Entity entityNode `xml:"Entity"`

	Charges struct {
		Charges []chargeNode `xml:"Charge"`
	} `xml:"Charges"`

	CustomFields customFieldsNode `xml:"CustomFields"`
}

// currencyAmount is Magaya's money node: the amount as text content with
// the currency as an attribute
type currencyAmount struct {
	Value    string `xml:",chardata"`
	Currency string `xml:"Currency,attr"`
}

type entityNode struct {
	Name     string `xml:"Name"`
	EntityID string `xml:"EntityID"`
	GUID     string `xml:"GUID"`
	Phone    string `xml:"Phone"`
	Email    string `xml:"Email"`

	Address struct {
		Street  []string `xml:"Street"`
		City    string   `xml:"City"`
		ZipCode string   `xml:"ZipCode"`
		Country struct {
			Name string `xml:",chardata"`
			Code string `xml:"Code,attr"`
		} `xml:"Country"`
	} `xml:"Address"`

	CustomFields customFieldsNode `xml:"CustomFields"`
}

type chargeNode struct {
	Quantity string `xml:"Quantity"`

	Price           *currencyAmount `xml:"PriceInCurrency"`
	Amount          *currencyAmount `xml:"AmountInCurrency"`
	TaxAmount       *currencyAmount `xml:"TaxAmountInCurrency"`
	RetentionAmount *currencyAmount `xml:"RetentionAmountInCurrency"`

	ChargeDefinition struct {
		Code        string `xml:"Code"`
		Description string `xml:"Description"`
	} `xml:"ChargeDefinition"`

	TaxDefinition *taxDefinitionNode `xml:"TaxDefinition"`
}

// taxDefinitionNode is either a single definition or a container of nested
// ones, depending on how many taxes apply to the charge
type taxDefinitionNode struct {
	Type string `xml:"Type"`
	Name string `xml:"Name"`
	Rate string `xml:"Rate"`

	TaxDefinitions struct {
		Definitions []taxDefinitionNode `xml:"TaxDefinition"`
	} `xml:"TaxDefinitions"`
}

// all reports every definition carried by the node, flattening the nested
// container when present
func (t *taxDefinitionNode) all() []taxDefinitionNode {
	if t == nil {
		return nil
	}
	if len(t.TaxDefinitions.Definitions) > 0 {
		return t.TaxDefinitions.Definitions
	}
	return []taxDefinitionNode{*t}
}

type customFieldsNode struct {
	Fields []struct {
		Definition struct {
			InternalName string `xml:"InternalName"`
		} `xml:"CustomFieldDefinition"`
		Value string `xml:"Value"`
	} `xml:"CustomField"`
}

func (c customFieldsNode) value(internalName string) string {
	for _, f := range c.Fields {
		if f.Definition.InternalName == internalName {
			return f.Value
		}
	}
	return ""
}

// parseTransaction decodes the billing document of a transaction
func parseTransaction(payload string) (*transactionDoc, error) {
	var doc transactionDoc
	if err := xml.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("mapper: unreadable transaction document: %w", err)
	}
	if doc.Number == "" {
		return nil, missing("Number")
	}
	return &doc, nil
}
