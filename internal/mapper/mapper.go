// Package mapper transforms Magaya billing documents into the JSON bodies
// the signing service accepts. The mapping is pure: it takes the raw
// transaction XML and returns a request payload, with no I/O of its own.
package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/envoice/envoicego/internal/models"
)

// Builder maps transaction documents per kind
type Builder struct{}

// New creates a payload builder
func New() *Builder {
	return &Builder{}
}

// Build maps the raw flags-45 transaction XML into the signing request of
// the kind. The prefix is the active numbering-range prefix of the account;
// cancellations ignore it.
func (b *Builder) Build(kind models.DocumentKind, transXML, prefix string) (json.RawMessage, error) {
	doc, err := parseTransaction(transXML)
	if err != nil {
		return nil, err
	}

	switch kind {
	case models.KindInvoice:
		return b.buildInvoice(doc, prefix)
	case models.KindCreditNote:
		return b.buildCreditNote(doc, prefix)
	case models.KindCancel:
		return b.buildCancellation(doc)
	}
	return nil, fmt.Errorf("mapper: unknown kind %q", kind)
}

func (b *Builder) buildInvoice(doc *transactionDoc, prefix string) (json.RawMessage, error) {
	if doc.TotalAmount == nil || doc.TotalAmount.Value == "" {
		return nil, missing("TotalAmountInCurrency")
	}
	if len(doc.Charges.Charges) == 0 {
		return nil, missing("Charges.Charge")
	}

	issueDate, issueTime, err := issueStamp(doc.CreatedOn)
	if err != nil {
		return nil, err
	}

	paymentCode := shortCode(doc.CustomFields.value("paymentcode"), 2)
	paymentType := shortCode(doc.CustomFields.value("paymenttype"), 2)
	if paymentCode == "" {
		return nil, missing("paymentcode")
	}
	if paymentType == "" {
		return nil, missing("paymenttype")
	}

	customer, err := customerFrom(doc.Entity)
	if err != nil {
		return nil, err
	}

	body := invoiceBody{
		Prefix:      prefix,
		IntID:       doc.Number,
		IssueDate:   issueDate,
		IssueTime:   issueTime,
		PaymentType: paymentType,
		PaymentCode: paymentCode,
		Note1:       amountInWords(parseAmount(doc.TotalAmount), doc.TotalAmount.Currency),
		Customer:    *customer,
		Amounts:     summarize(doc),
		Items:       itemsFrom(doc.Charges.Charges),
		WhTaxes:     withholdingsFrom(doc.Charges.Charges),
	}

	// Foreign-currency invoices carry the conversion used at issue time
	if customer.CountryCode != "CO" {
		body.ExchangeRate = exchangeFrom(doc, issueDate)
	}

	return json.Marshal(invoicePayload{Invoice: body})
}

func (b *Builder) buildCreditNote(doc *transactionDoc, prefix string) (json.RawMessage, error) {
	if doc.TotalAmount == nil || doc.TotalAmount.Value == "" {
		return nil, missing("TotalAmountInCurrency")
	}
	if len(doc.Charges.Charges) == 0 {
		return nil, missing("Charges.Charge")
	}

	issueDate, issueTime, err := issueStamp(doc.CreatedOn)
	if err != nil {
		return nil, err
	}

	// A credit note must point at the invoice it amends
	invoiceCode := doc.CustomFields.value("tas_code_factura")
	if invoiceCode == "" {
		return nil, missing("tas_code_factura")
	}

	discrepancyCode := shortCode(doc.CustomFields.value("discrepancycode"), 2)
	if discrepancyCode == "" {
		return nil, missing("discrepancycode")
	}

	body := creditNoteBody{
		Prefix:          prefix,
		TasCode:         invoiceCode,
		IntID:           doc.Number,
		IssueDate:       issueDate,
		IssueTime:       issueTime,
		DiscrepancyCode: discrepancyCode,
		Note1:           amountInWords(parseAmount(doc.TotalAmount), doc.TotalAmount.Currency),
		Note2:           doc.CustomFields.value("note2"),
		Amounts:         summarize(doc),
		Items:           itemsFrom(doc.Charges.Charges),
		WhTaxes:         withholdingsFrom(doc.Charges.Charges),
	}

	return json.Marshal(creditNotePayload{CreditNote: body})
}

func (b *Builder) buildCancellation(doc *transactionDoc) (json.RawMessage, error) {
	tasCode := doc.CustomFields.value("tas_code")
	if tasCode == "" {
		return nil, missing("tas_code")
	}

	description := doc.CustomFields.value("description")
	if description == "" {
		return nil, missing("description")
	}

	return json.Marshal(cancellationPayload{
		DeleteInvoice: deleteInvoiceBody{TasCode: tasCode, Description: description},
	})
}

func customerFrom(e entityNode) (*customerInfo, error) {
	if e.Name == "" {
		return nil, missing("Entity.Name")
	}
	if e.EntityID == "" {
		return nil, missing("Entity.EntityID")
	}

	accountID := e.CustomFields.value("additionalaccountid")
	if accountID == "" {
		return nil, missing("additionalaccountid")
	}
	documentType := shortCode(e.CustomFields.value("documenttype"), 2)
	if documentType == "" {
		return nil, missing("documenttype")
	}
	email := e.CustomFields.value("correo_facturacion")
	if email == "" {
		email = e.Email
	}

	return &customerInfo{
		AdditionalAccountID: accountID[:1],
		Name:                e.Name,
		CountryName:         strings.TrimSpace(e.Address.Country.Name),
		CountryCode:         e.Address.Country.Code,
		City:                e.Address.City,
		CountrySubentity:    e.Address.ZipCode,
		AddressLine:         strings.Join(e.Address.Street, " "),
		DocumentNumber:      e.EntityID,
		DocumentType:        documentType,
		Telephone:           e.Phone,
		Email:               email,
		InternalID:          e.GUID,
	}, nil
}

// summarize computes the document totals. Withheld taxes are excluded from
// the service's taxAmount but reported separately, so the base amount is
// rebuilt from the Magaya total.
func summarize(doc *transactionDoc) amountSummary {
	taxAmount := parseAmount(doc.TaxAmount)
	retention := parseAmount(doc.RetentionAmount)
	total := parseAmount(doc.TotalAmount)

	withoutTax := roundBankers(total - taxAmount)
	totalAmount := roundBankers(withoutTax + retention)
	payAmount := roundBankers(totalAmount + taxAmount)

	return amountSummary{
		TotalAmount:    fixed2(totalAmount),
		DiscountAmount: fixed2(0),
		ExtraAmount:    fixed2(0),
		TaxAmount:      fixed2(taxAmount),
		WhTaxAmount:    fixed2(retention),
		PrepaidAmount:  fixed2(0),
		PayAmount:      fixed2(payAmount),
	}
}

func itemsFrom(charges []chargeNode) []lineItem {
	items := make([]lineItem, 0, len(charges))
	for _, c := range charges {
		taxRate := "0.00"
		for _, def := range c.TaxDefinition.all() {
			if def.Type == "Tax" && def.Rate != "" {
				taxRate = def.Rate
			}
		}

		items = append(items, lineItem{
			Quantity:    c.Quantity,
			UnitPrice:   fixed2(parseAmount(c.Price)),
			Total:       fixed2(parseAmount(c.Amount)),
			Description: c.ChargeDefinition.Description,
			Brand:       "LF",
			Model:       "Service",
			Code:        c.ChargeDefinition.Code,
			Taxes: []itemTax{{
				ID:        "01",
				TaxAmount: fixed2(parseAmount(c.TaxAmount)),
				Percent:   taxRate,
			}},
		})
	}
	return items
}

func withholdingsFrom(charges []chargeNode) []withholding {
	var taxes []withholding
	for _, c := range charges {
		if c.RetentionAmount == nil {
			continue
		}
		for _, def := range c.TaxDefinition.all() {
			if def.Type != "Retention" {
				continue
			}
			taxes = append(taxes, withholding{
				Type:    def.Name,
				Percent: def.Rate,
				Amount:  c.RetentionAmount.Value,
			})
		}
	}
	return taxes
}

// exchangeFrom derives the conversion rate applied to the document. The
// operator may override the system rate on the transaction; the override
// wins when the two differ.
func exchangeFrom(doc *transactionDoc, issueDate string) *exchangeInfo {
	systemRate, _ := strconv.ParseFloat(doc.Currency.ExchangeRate, 64)
	userRate, _ := strconv.ParseFloat(doc.ExchangeRate, 64)

	rate := userRate
	if systemRate == userRate {
		rate = systemRate
	}
	if rate == 0 {
		return nil
	}

	return &exchangeInfo{
		CurrencyCode: doc.Currency.Code,
		CurrencyRate: fixed2(roundBankers(1 / rate)),
		CurrencyDate: issueDate,
	}
}

// issueStamp splits the Magaya creation timestamp into the yyyyMMdd and
// HHmmss parts the service expects
func issueStamp(createdOn string) (string, string, error) {
	if createdOn == "" {
		return "", "", missing("CreatedOn")
	}

	layouts := []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, createdOn); err == nil {
			return t.Format("20060102"), t.Format("150405"), nil
		}
	}

	return "", "", &ParseError{Field: "CreatedOn", Reason: fmt.Sprintf("has unexpected format %q", createdOn)}
}

func parseAmount(a *currencyAmount) float64 {
	if a == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(a.Value, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// roundBankers rounds to two decimals with half-to-even ties
func roundBankers(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func fixed2(v float64) string {
	return strconv.FormatFloat(roundBankers(v), 'f', 2, 64)
}

// shortCode trims a catalog value of the form "13 - Cedula" down to its
// leading code
func shortCode(value string, width int) string {
	if len(value) < width {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(value[:width])
}
