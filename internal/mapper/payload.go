package mapper

// JSON request bodies accepted by the signing service. Field names follow
// the service's own casing, including the mixed intID/tascode style.

type invoicePayload struct {
	Invoice invoiceBody `json:"invoice"`
}

type invoiceBody struct {
	Prefix      string `json:"prefix"`
	IntID       string `json:"intID"`
	IssueDate   string `json:"issueDate"`
	IssueTime   string `json:"issueTime"`
	PaymentType string `json:"paymentType"`
	PaymentCode string `json:"paymentCode"`
	Note1       string `json:"note1"`

	Customer     customerInfo  `json:"customer"`
	Amounts      amountSummary `json:"amounts"`
	ExchangeRate *exchangeInfo `json:"exchangeRate,omitempty"`
	Items        []lineItem    `json:"items"`
	WhTaxes      []withholding `json:"whTaxes,omitempty"`
}

type creditNotePayload struct {
	CreditNote creditNoteBody `json:"creditNote"`
}

type creditNoteBody struct {
	Prefix          string `json:"prefix"`
	TasCode         string `json:"tascode"`
	IntID           string `json:"intID"`
	IssueDate       string `json:"issueDate"`
	IssueTime       string `json:"issueTime"`
	DiscrepancyCode string `json:"discrepancyCode"`
	Note1           string `json:"note1"`
	Note2           string `json:"note2"`

	Amounts amountSummary `json:"amounts"`
	Items   []lineItem    `json:"items"`
	WhTaxes []withholding `json:"whTaxes,omitempty"`
}

type cancellationPayload struct {
	DeleteInvoice deleteInvoiceBody `json:"deleteInvoice"`
}

type deleteInvoiceBody struct {
	TasCode     string `json:"tascode"`
	Description string `json:"description"`
}

type customerInfo struct {
	AdditionalAccountID string `json:"additionalAccountID"`
	Name                string `json:"name"`
	CountryName         string `json:"countryName"`
	CountryCode         string `json:"countryCode"`
	City                string `json:"city"`
	CountrySubentity    string `json:"countrySubentity"`
	AddressLine         string `json:"addressLine"`
	DocumentNumber      string `json:"documentNumber"`
	DocumentType        string `json:"documentType"`
	Telephone           string `json:"telephone"`
	Email               string `json:"email"`
	InternalID          string `json:"internalID"`
}

type amountSummary struct {
	TotalAmount    string `json:"totalAmount"`
	DiscountAmount string `json:"discountAmount"`
	ExtraAmount    string `json:"extraAmount"`
	TaxAmount      string `json:"taxAmount"`
	WhTaxAmount    string `json:"whTaxAmount"`
	PrepaidAmount  string `json:"prepaidAmount"`
	PayAmount      string `json:"payAmount"`
}

type exchangeInfo struct {
	CurrencyCode string `json:"currencyCode"`
	CurrencyRate string `json:"currencyRate"`
	CurrencyDate string `json:"currencyDate"`
}

type lineItem struct {
	Quantity    string    `json:"quantity"`
	UnitPrice   string    `json:"unitPrice"`
	Total       string    `json:"total"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Code        string    `json:"code"`
	Taxes       []itemTax `json:"taxes"`
}

type itemTax struct {
	ID        string `json:"ID"`
	TaxAmount string `json:"taxAmount"`
	Percent   string `json:"percent"`
}

type withholding struct {
	Type    string `json:"type"`
	Percent string `json:"percent"`
	Amount  string `json:"amount"`
}
