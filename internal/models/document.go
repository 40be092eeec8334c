package models

// Document is the in-flight working copy of a Magaya billing document.
// It is discovered by the fetcher, enriched from the transaction detail,
// mutated through submission and polling, and persisted as a
// TransactionRecord at each state change.
type Document struct {
	Kind      DocumentKind
	Number    string // Magaya document number, unique and immutable
	GUID      string
	NetworkID string

	RequestState string // mirrored from solicitud_* custom field
	ProcessState string // mirrored from estado_* custom field

	ExternalCode    string // tascode assigned by LaFactura on acceptance
	FiscalReference string // CUFE assigned once the document is confirmed

	// Cancellation-only inputs
	Notes       string
	Description string
}

// Record converts the working document into its durable reconciliation row
func (d *Document) Record() *TransactionRecord {
	return &TransactionRecord{
		DocumentID:   d.Number,
		Kind:         string(d.Kind),
		NetworkID:    d.NetworkID,
		GUID:         d.GUID,
		RequestState: d.RequestState,
		ProcessState: d.ProcessState,
	}
}
