package pipeline

import (
	"testing"

	"github.com/envoice/envoicego/internal/models"
)

func TestInvoiceEligibility(t *testing.T) {
	desc, _ := DescriptorFor(models.KindInvoice)

	cases := []struct {
		name     string
		request  string
		process  string
		eligible bool
	}{
		{"requested and never issued", "Emitir Factura Electronica", "Sin Factura Electronica", true},
		{"requested after failure", "Emitir Factura Electronica", "Error en Factura Electronica", true},
		{"already issued", "Emitir Factura Electronica", "Factura Electronica Exitosa", false},
		{"not requested", "", "Sin Factura Electronica", false},
		{"cancelled", "Emitir Factura Electronica", "Cancelado", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := &models.Document{
				Kind:         models.KindInvoice,
				Number:       "INV-1",
				RequestState: tc.request,
				ProcessState: tc.process,
			}
			if got := desc.IsEligible(doc); got != tc.eligible {
				t.Errorf("IsEligible = %v, want %v", got, tc.eligible)
			}
		})
	}
}

func TestCreditNoteEligibility(t *testing.T) {
	desc, _ := DescriptorFor(models.KindCreditNote)

	doc := &models.Document{
		Kind:         models.KindCreditNote,
		Number:       "CM-9",
		RequestState: "Emitir Nota de Credito",
		ProcessState: "Sin Nota de Credito",
	}
	if !desc.IsEligible(doc) {
		t.Error("requested unissued credit note must be eligible")
	}

	doc.ProcessState = "Nota de Credito Exitosa"
	if desc.IsEligible(doc) {
		t.Error("issued credit note must not be eligible again")
	}
}

func TestCancellationEligibility(t *testing.T) {
	desc, _ := DescriptorFor(models.KindCancel)

	cases := []struct {
		name        string
		notes       string
		code        string
		description string
		eligible    bool
	}{
		{"voided with issued code", "ANULADA por error de montos", "tas-123", "", true},
		{"voided with description only", "factura ANULADA", "", "duplicada", true},
		{"voided without identifiers", "ANULADA", "", "", false},
		{"not voided", "entrega parcial", "tas-123", "desc", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := &models.Document{
				Kind:         models.KindCancel,
				Number:       "INV-4",
				Notes:        tc.notes,
				ExternalCode: tc.code,
				Description:  tc.description,
			}
			if got := desc.IsEligible(doc); got != tc.eligible {
				t.Errorf("IsEligible = %v, want %v", got, tc.eligible)
			}
		})
	}
}

func TestDescriptorForUnknownKind(t *testing.T) {
	if _, ok := DescriptorFor(models.DocumentKind("payment")); ok {
		t.Error("unknown kind must not resolve")
	}
}

func TestDescriptorsCoverEveryKind(t *testing.T) {
	seen := map[models.DocumentKind]bool{}
	for _, d := range Descriptors() {
		seen[d.Kind] = true
		if !d.Kind.Valid() {
			t.Errorf("descriptor carries invalid kind %q", d.Kind)
		}
	}
	for _, k := range []models.DocumentKind{models.KindInvoice, models.KindCreditNote, models.KindCancel} {
		if !seen[k] {
			t.Errorf("no descriptor for kind %q", k)
		}
	}
}

func TestDocumentFromReadsKindFields(t *testing.T) {
	desc, _ := DescriptorFor(models.KindCancel)

	detailXML := `<Invoice>
		<Number>INV-7</Number>
		<GUID>guid-7</GUID>
		<Notes>ANULADA</Notes>
		<CustomFields>
			<CustomField><CustomFieldDefinition><InternalName>tas_code</InternalName></CustomFieldDefinition><Value>tas-77</Value></CustomField>
			<CustomField><CustomFieldDefinition><InternalName>description</InternalName></CustomFieldDefinition><Value>doble emisión</Value></CustomField>
			<CustomField><CustomFieldDefinition><InternalName>estado_factura</InternalName></CustomFieldDefinition><Value>Factura Electronica Exitosa</Value></CustomField>
		</CustomFields>
	</Invoice>`

	detail := mustParseDetail(t, detailXML)
	doc := desc.DocumentFrom(detail, "net-1")

	if doc.Number != "INV-7" || doc.GUID != "guid-7" {
		t.Errorf("identity fields not mapped: %+v", doc)
	}
	if doc.ExternalCode != "tas-77" {
		t.Errorf("expected issued code from tas_code, got %q", doc.ExternalCode)
	}
	if doc.Description != "doble emisión" {
		t.Errorf("description not mapped: %q", doc.Description)
	}
	if doc.ProcessState != "Factura Electronica Exitosa" {
		t.Errorf("process state not mapped: %q", doc.ProcessState)
	}
	if !desc.IsEligible(doc) {
		t.Error("voided document with issued code must be eligible")
	}
}
