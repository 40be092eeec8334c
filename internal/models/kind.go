package models

// DocumentKind identifies the billing document family a record belongs to.
type DocumentKind string

const (
	KindInvoice    DocumentKind = "invoice"
	KindCreditNote DocumentKind = "credit_note"
	KindCancel     DocumentKind = "cancellation"
)

// Valid reports whether k is a known document kind
func (k DocumentKind) Valid() bool {
	switch k {
	case KindInvoice, KindCreditNote, KindCancel:
		return true
	}
	return false
}

// StatusVocabulary enumerates the process-state labels a kind may carry.
// The store rejects any state outside this set.
type StatusVocabulary struct {
	NotIssued string
	Error     string
	Issued    string
	Cancelled string
}

// Vocabularies maps each document kind to its Magaya custom-field labels.
// The labels are exactly the strings the Magaya operators see, so they stay
// in Spanish.
var Vocabularies = map[DocumentKind]StatusVocabulary{
	KindInvoice: {
		NotIssued: "Sin Factura Electronica",
		Error:     "Error en Factura Electronica",
		Issued:    "Factura Electronica Exitosa",
		Cancelled: "Cancelado",
	},
	KindCreditNote: {
		NotIssued: "Sin Nota de Credito",
		Error:     "Error en Nota de Credito",
		Issued:    "Nota de Credito Exitosa",
		Cancelled: "Cancelado",
	},
	KindCancel: {
		NotIssued: "Sin Factura Electronica",
		Error:     "Error de Cancelación",
		Issued:    "Factura Electronica Exitosa",
		Cancelled: "Cancelado",
	},
}

// Allowed returns every label in the vocabulary
func (v StatusVocabulary) Allowed() []string {
	return []string{v.NotIssued, v.Error, v.Issued, v.Cancelled}
}

// Contains reports whether state is part of the vocabulary
func (v StatusVocabulary) Contains(state string) bool {
	for _, s := range v.Allowed() {
		if s == state {
			return true
		}
	}
	return false
}

// Incomplete reports whether state means the document still needs work.
// Records in an incomplete state re-enter the pipeline on the next run.
func (v StatusVocabulary) Incomplete(state string) bool {
	return state == v.NotIssued || state == v.Error
}
