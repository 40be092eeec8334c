package pipeline

import (
	"strings"
	"time"

	"github.com/envoice/envoicego/internal/models"
	"github.com/envoice/envoicego/internal/services/magaya"
)

// Magaya custom-field internal names shared across kinds
const (
	fieldSolicitudFactura = "solicitud_factura"
	fieldEstadoFactura    = "estado_factura"
	fieldDescription      = "description"

	voidedMarker = "ANULADA"
)

// KindDescriptor parameterizes the generic pipeline for one document kind:
// which Magaya function lists it, which custom fields carry its workflow
// state, and how submission outcomes are written back. The fetch, classify,
// submit and poll logic never branches on the kind itself.
type KindDescriptor struct {
	Kind models.DocumentKind

	// Magaya query parameters
	MagayaType   string
	ListFunction string
	ListFlags    string
	DetailFlags  string
	PayloadFlags string
	LookbackDays int

	// RangeType selects the account's numbering range for the payload
	// prefix; "" when the kind needs none
	RangeType string

	// Custom fields carrying workflow state
	RequestField  string
	StatusField   string
	MessageField  string
	CodeField     string // where the accepted external code is written
	ReadCodeField string // where an already-issued code is read from
	FiscalField   string // empty when the kind has no fiscal reference

	// State labels written through the lifecycle
	RequestSentinel  string // "please process" label set by the operator
	InProgressField  string
	InProgressValue  string
	StatusOnSuccess  string
	StatusOnError    string
	RequestOnSuccess string
	RequestOnError   string

	// Status-poll cadence
	PollAttempts int
	PollInterval time.Duration

	// AttachArtifact stores the signed bundle on the transaction once the
	// document is confirmed
	AttachArtifact bool

	// Eligible overrides the default predicate when set
	Eligible func(doc *models.Document) bool
}

// Vocabulary returns the process-state vocabulary of the kind
func (d KindDescriptor) Vocabulary() models.StatusVocabulary {
	return models.Vocabularies[d.Kind]
}

// IsEligible decides whether a fetched document needs processing. The
// default predicate requires the operator's request sentinel plus an
// incomplete process state (never processed, or a previous failure).
func (d KindDescriptor) IsEligible(doc *models.Document) bool {
	if d.Eligible != nil {
		return d.Eligible(doc)
	}
	return doc.RequestState == d.RequestSentinel && d.Vocabulary().Incomplete(doc.ProcessState)
}

// DocumentFrom builds the working document for this kind from a Magaya
// transaction detail
func (d KindDescriptor) DocumentFrom(detail *magaya.TransactionDetail, networkID string) *models.Document {
	return &models.Document{
		Kind:         d.Kind,
		Number:       detail.Number,
		GUID:         detail.GUID,
		NetworkID:    networkID,
		RequestState: detail.CustomFieldValue(d.RequestField),
		ProcessState: detail.CustomFieldValue(d.StatusField),
		ExternalCode: detail.CustomFieldValue(d.ReadCodeField),
		Notes:        detail.Notes,
		Description:  detail.CustomFieldValue(fieldDescription),
	}
}

// Descriptors returns the pipeline configuration of every document kind,
// in processing order
func Descriptors() []KindDescriptor {
	return []KindDescriptor{invoiceDescriptor, creditNoteDescriptor, cancelDescriptor}
}

// DescriptorFor returns the descriptor of one kind
func DescriptorFor(kind models.DocumentKind) (KindDescriptor, bool) {
	for _, d := range Descriptors() {
		if d.Kind == kind {
			return d, true
		}
	}
	return KindDescriptor{}, false
}

var invoiceDescriptor = KindDescriptor{
	Kind:         models.KindInvoice,
	MagayaType:   "IN",
	ListFunction: "IsSolicitudCol",
	ListFlags:    "524288",
	DetailFlags:  "90",
	PayloadFlags: "45",
	LookbackDays: 8,
	RangeType:    "invoice",

	RequestField:  fieldSolicitudFactura,
	StatusField:   fieldEstadoFactura,
	MessageField:  "invoice_messages",
	CodeField:     "tas_code",
	ReadCodeField: "tas_code",
	FiscalField:   "valor_cufe",

	RequestSentinel:  "Emitir Factura Electronica",
	InProgressField:  fieldEstadoFactura,
	InProgressValue:  "En Proceso",
	StatusOnSuccess:  "Factura Electronica Exitosa",
	StatusOnError:    "Error en Factura Electronica",
	RequestOnSuccess: "Factura Electronica Exitosa",
	RequestOnError:   "Pendiente",

	PollAttempts:   10,
	PollInterval:   15 * time.Second,
	AttachArtifact: true,
}

var creditNoteDescriptor = KindDescriptor{
	Kind:         models.KindCreditNote,
	MagayaType:   "IN",
	ListFunction: "IsSolicitudCreditNoteCol",
	ListFlags:    "524288",
	DetailFlags:  "90",
	PayloadFlags: "45",
	LookbackDays: 30,
	RangeType:    "creditNote",

	RequestField:  "solicitud_nota_credito",
	StatusField:   "estado_nota_credito",
	MessageField:  "credit_note_messages",
	CodeField:     "tas_code_nota_credito",
	ReadCodeField: "tas_code_nota_credito",
	FiscalField:   "cufe_nota_credito",

	RequestSentinel:  "Emitir Nota de Credito",
	InProgressField:  "estado_nota_credito",
	InProgressValue:  "En Proceso",
	StatusOnSuccess:  "Nota de Credito Exitosa",
	StatusOnError:    "Error en Nota de Credito",
	RequestOnSuccess: "Nota de Credito Exitosa",
	RequestOnError:   "Pendiente",

	PollAttempts:   10,
	PollInterval:   15 * time.Second,
	AttachArtifact: true,
}

var cancelDescriptor = KindDescriptor{
	Kind:         models.KindCancel,
	MagayaType:   "IN",
	ListFunction: "IsCancelacionCol",
	ListFlags:    "524288",
	DetailFlags:  "90",
	PayloadFlags: "45",
	LookbackDays: 30,

	RequestField:  fieldSolicitudFactura,
	StatusField:   fieldEstadoFactura,
	MessageField:  "avisos_cancelaciones",
	CodeField:     "tas_cancel",
	ReadCodeField: "tas_code",

	InProgressField:  fieldSolicitudFactura,
	InProgressValue:  "En Proceso de Cancelación",
	StatusOnSuccess:  "Cancelado",
	StatusOnError:    "Error de Cancelación",
	RequestOnSuccess: "Cancelado",
	RequestOnError:   "Pendiente",

	PollAttempts: 5,
	PollInterval: 5 * time.Second,

	// A cancellation is driven by the operator voiding the document, not by
	// a request sentinel: the note must carry the voided marker and at least
	// one supplementary field must identify the issued document.
	Eligible: func(doc *models.Document) bool {
		if !strings.Contains(doc.Notes, voidedMarker) {
			return false
		}
		return doc.ExternalCode != "" || doc.Description != ""
	},
}
