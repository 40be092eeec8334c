package magaya

import (
	"encoding/xml"
	"fmt"
)

// ResponseError indicates a structurally invalid SOAP response: an expected
// node is missing, so the unit of work must fail rather than propagate an
// undefined value.
type ResponseError struct {
	Op      string
	Missing string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("magaya: invalid %s response: missing %s", e.Op, e.Missing)
}

// TransQuery holds the parameters of a first-page list-by-date request
type TransQuery struct {
	AccessKey string
	Type      string // "IN" for accounting transactions
	StartDate string // yyyy-MM-dd
	EndDate   string
	Flags     string
	Function  string // server-side filter, e.g. IsSolicitudCol
}

// FirstPage is the response to a GetFirstTransbyDateJS call
type FirstPage struct {
	Cookie      string
	MoreResults string
	Result      string // "no_error" on success
}

// NextPage is the response to a GetNextTransbyDate call
type NextPage struct {
	Cookie       string
	TransListXML string
	MoreResults  string
}

// request envelopes

type startSessionIn struct {
	XMLName xml.Name `xml:"StartSessionIn"`
	User    string   `xml:"user"`
	Pass    string   `xml:"pass"`
}

type firstTransByDateIn struct {
	XMLName        xml.Name `xml:"GetFirstTransbyDateJSIn"`
	AccessKey      string   `xml:"access_key"`
	Type           string   `xml:"type"`
	StartDate      string   `xml:"start_date"`
	EndDate        string   `xml:"end_date"`
	Flags          string   `xml:"flags"`
	RecordQuantity int      `xml:"record_quantity"`
	BackwardsOrder int      `xml:"backwards_order"`
	Function       string   `xml:"function"`
	XMLParams      string   `xml:"xml_params"`
}

type nextTransByDateIn struct {
	XMLName xml.Name `xml:"GetNextTransbyDateIn"`
	Cookie  string   `xml:"cookie"`
}

type getTransactionIn struct {
	XMLName   xml.Name `xml:"GetTransactionIn"`
	AccessKey string   `xml:"access_key"`
	Type      string   `xml:"type"`
	Flags     string   `xml:"flags"`
	Number    string   `xml:"number"`
}

type setCustomFieldValueIn struct {
	XMLName           xml.Name `xml:"SetCustomFieldValueIn"`
	AccessKey         string   `xml:"access_key"`
	Type              string   `xml:"type"`
	Number            string   `xml:"number"`
	FieldInternalName string   `xml:"field_internal_name"`
	FieldValue        string   `xml:"field_value"`
}

type setAttachmentIn struct {
	XMLName   xml.Name  `xml:"SetAttachmentIn"`
	AccessKey string    `xml:"access_key"`
	Flags     string    `xml:"flags"`
	Type      string    `xml:"type"`
	Number    string    `xml:"number"`
	AttachXML rawXML    `xml:"attach_xml"`
}

// rawXML embeds pre-built XML without escaping
type rawXML struct {
	Raw string `xml:",innerxml"`
}

// attachment is the Magaya attachment document placed inside attach_xml
type attachment struct {
	XMLName   xml.Name `xml:"Attachment"`
	Namespace string   `xml:"xmlns,attr"`
	Name      string   `xml:"Name"`
	Extension string   `xml:"Extension"`
	IsImage   bool     `xml:"IsImage"`
	Data      cdata    `xml:"Data"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

// response envelopes

type startSessionOut struct {
	Return    string `xml:"Body>StartSessionOut>return"`
	AccessKey string `xml:"Body>StartSessionOut>access_key"`
}

type firstTransByDateOut struct {
	Return      string `xml:"Body>GetFirstTransbyDateJSOut>return"`
	Cookie      string `xml:"Body>GetFirstTransbyDateJSOut>cookie"`
	MoreResults string `xml:"Body>GetFirstTransbyDateJSOut>more_results"`
}

type nextTransByDateOut struct {
	Return       string `xml:"Body>GetNextTransbyDateOut>return"`
	Cookie       string `xml:"Body>GetNextTransbyDateOut>cookie"`
	TransListXML string `xml:"Body>GetNextTransbyDateOut>trans_list_xml"`
	MoreResults  string `xml:"Body>GetNextTransbyDateOut>more_results"`
}

type getTransactionOut struct {
	Return   string `xml:"Body>GetTransactionOut>return"`
	TransXML string `xml:"Body>GetTransactionOut>trans_xml"`
}

type setCustomFieldValueOut struct {
	Return string `xml:"Body>SetCustomFieldValueOut>return"`
}

type setAttachmentOut struct {
	Return string `xml:"Body>SetAttachmentOut>return"`
}

// payload types

// TransListItem is one entry of a paginated transaction list
type TransListItem struct {
	Number string `xml:"Number"`
	GUID   string `xml:"GUID"`
}

type transListDoc struct {
	Items []TransListItem `xml:",any"`
}

// ParseTransList decodes the trans_list_xml payload of a pagination page.
// The root element name varies by document family (Invoices, CreditMemos),
// so every child element is treated as a list entry.
func ParseTransList(payload string) ([]TransListItem, error) {
	var doc transListDoc
	if err := xml.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("magaya: failed to parse transaction list: %w", err)
	}
	return doc.Items, nil
}

// CustomField is one {internal name, value} extension pair on a transaction
type CustomField struct {
	Definition CustomFieldDefinition `xml:"CustomFieldDefinition"`
	Value      string                `xml:"Value"`
}

// CustomFieldDefinition carries the stable identifier of a custom field
type CustomFieldDefinition struct {
	InternalName string `xml:"InternalName"`
}

// TransactionDetail is the full document returned by GetTransaction.
// The root element is Invoice or CreditMemo depending on the kind; both
// share the shape below.
type TransactionDetail struct {
	Number       string          `xml:"Number"`
	GUID         string          `xml:"GUID"`
	Notes        string          `xml:"Notes"`
	CustomFields customFieldList `xml:"CustomFields"`
}

type customFieldList struct {
	Fields []CustomField `xml:"CustomField"`
}

// CustomFieldValue returns the value of the custom field with the given
// internal name, or "" when the field is absent
func (d *TransactionDetail) CustomFieldValue(internalName string) string {
	for _, f := range d.CustomFields.Fields {
		if f.Definition.InternalName == internalName {
			return f.Value
		}
	}
	return ""
}

// ParseTransactionDetail decodes the trans_xml payload of a GetTransaction
// response into a typed document
func ParseTransactionDetail(payload string) (*TransactionDetail, error) {
	var detail TransactionDetail
	if err := xml.Unmarshal([]byte(payload), &detail); err != nil {
		return nil, fmt.Errorf("magaya: failed to parse transaction detail: %w", err)
	}
	if detail.Number == "" {
		return nil, &ResponseError{Op: "GetTransaction", Missing: "Number"}
	}
	return &detail, nil
}
