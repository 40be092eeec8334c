package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/envoice/envoicego/internal/models"
	"github.com/envoice/envoicego/internal/services/lafactura"
)

func newTestEngine(signing *fakeSigning, st *fakeOutcomeStore) (*Engine, *fakeBuilder) {
	builder := &fakeBuilder{}
	return &Engine{
		Signing:  signing,
		Builder:  builder,
		Store:    st,
		Locker:   NewMemoryLocker(),
		GuardTTL: time.Minute,
	}, builder
}

func eligibleInvoice(number string) *models.Document {
	return &models.Document{
		Kind:         models.KindInvoice,
		Number:       number,
		GUID:         "g-" + number,
		NetworkID:    "net-1",
		RequestState: "Emitir Factura Electronica",
		ProcessState: "Sin Factura Electronica",
	}
}

func TestProcessSynchronousConfirmation(t *testing.T) {
	signing := &fakeSigning{
		submit: func(json.RawMessage) (*lafactura.SubmitResponse, error) {
			return acceptedSubmit("tas-1", "cufe-1", lafactura.ProcessConfirmed, "https://dl/doc.zip"), nil
		},
		verify: func(string) (*lafactura.StatusResponse, error) {
			t.Fatal("synchronous confirmation must not poll")
			return nil, nil
		},
	}
	st := &fakeOutcomeStore{}
	engine, builder := newTestEngine(signing, st)
	mag := &fakeMagaya{}
	desc, _ := DescriptorFor(models.KindInvoice)

	outcome, err := engine.Process(context.Background(), testSession(mag), desc, eligibleInvoice("INV-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIssued {
		t.Fatalf("outcome = %v, want issued", outcome)
	}

	if builder.lastPrefix != "SETP" {
		t.Errorf("invoice prefix not resolved from ranges: %q", builder.lastPrefix)
	}
	if v, ok := mag.wrote("INV-1", "tas_code"); !ok || v != "tas-1" {
		t.Errorf("tas_code not written: %q", v)
	}
	if v, ok := mag.wrote("INV-1", "valor_cufe"); !ok || v != "cufe-1" {
		t.Errorf("valor_cufe not written: %q", v)
	}
	if v, _ := mag.wrote("INV-1", "estado_factura"); v != "Factura Electronica Exitosa" {
		t.Errorf("final status wrong: %q", v)
	}

	if len(mag.attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(mag.attachments))
	}
	att := mag.attachments[0]
	if att.Name != "factura_INV-1" || att.Extension != "zip" {
		t.Errorf("attachment misnamed: %+v", att)
	}

	if len(st.saved) == 0 {
		t.Fatal("outcome not persisted")
	}
	last := st.saved[len(st.saved)-1]
	if last.ProcessState != "Factura Electronica Exitosa" || last.ExternalCode != "tas-1" {
		t.Errorf("persisted state wrong: %+v", last)
	}
}

func TestProcessPollsUntilConfirmed(t *testing.T) {
	signing := &fakeSigning{
		submit: func(json.RawMessage) (*lafactura.SubmitResponse, error) {
			return acceptedSubmit("tas-2", "cufe-2", lafactura.ProcessPending, ""), nil
		},
	}
	signing.verify = func(tasCode string) (*lafactura.StatusResponse, error) {
		if tasCode != "tas-2" {
			t.Errorf("polled wrong code %q", tasCode)
		}
		if signing.polls < 3 {
			return statusWith(lafactura.ProcessPending, ""), nil
		}
		return statusWith(lafactura.ProcessConfirmed, "https://dl/2.zip"), nil
	}

	st := &fakeOutcomeStore{}
	engine, _ := newTestEngine(signing, st)
	mag := &fakeMagaya{}

	desc, _ := DescriptorFor(models.KindInvoice)
	desc.PollInterval = time.Millisecond

	outcome, err := engine.Process(context.Background(), testSession(mag), desc, eligibleInvoice("INV-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIssued {
		t.Fatalf("outcome = %v, want issued", outcome)
	}
	if signing.polls != 3 {
		t.Errorf("expected 3 polls, got %d", signing.polls)
	}
	if len(mag.attachments) != 1 {
		t.Errorf("confirmed document must be attached")
	}
}

func TestProcessPollTimeoutKeepsDocumentPending(t *testing.T) {
	signing := &fakeSigning{
		submit: func(json.RawMessage) (*lafactura.SubmitResponse, error) {
			return acceptedSubmit("tas-3", "", lafactura.ProcessPending, ""), nil
		},
		verify: func(string) (*lafactura.StatusResponse, error) {
			return statusWith(lafactura.ProcessPending, ""), nil
		},
	}
	st := &fakeOutcomeStore{}
	engine, _ := newTestEngine(signing, st)
	mag := &fakeMagaya{}

	desc, _ := DescriptorFor(models.KindInvoice)
	desc.PollAttempts = 2
	desc.PollInterval = time.Millisecond

	doc := eligibleInvoice("INV-3")
	outcome, err := engine.Process(context.Background(), testSession(mag), desc, doc)
	if err != nil {
		t.Fatalf("timeout must not surface as an error: %v", err)
	}
	if outcome != OutcomeTimeout {
		t.Fatalf("outcome = %v, want timeout", outcome)
	}
	if signing.polls != 2 {
		t.Errorf("expected 2 polls, got %d", signing.polls)
	}
	if len(mag.attachments) != 0 {
		t.Error("unfinalized document must not be attached")
	}
	// The fetched process state stays in place so the next run resumes
	if doc.ProcessState != "Sin Factura Electronica" {
		t.Errorf("process state must stay pending, got %q", doc.ProcessState)
	}
}

func TestProcessRejection(t *testing.T) {
	signing := &fakeSigning{
		submit: func(json.RawMessage) (*lafactura.SubmitResponse, error) {
			return rejectedSubmit(400, "NIT del adquiriente inválido"), nil
		},
	}
	st := &fakeOutcomeStore{}
	engine, _ := newTestEngine(signing, st)
	mag := &fakeMagaya{}
	desc, _ := DescriptorFor(models.KindInvoice)

	outcome, err := engine.Process(context.Background(), testSession(mag), desc, eligibleInvoice("INV-4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeRejected {
		t.Fatalf("outcome = %v, want rejected", outcome)
	}

	if v, _ := mag.wrote("INV-4", "estado_factura"); v != "Error en Factura Electronica" {
		t.Errorf("error status not written: %q", v)
	}
	if v, _ := mag.wrote("INV-4", "solicitud_factura"); v != "Pendiente" {
		t.Errorf("request state not reset: %q", v)
	}
	if v, _ := mag.wrote("INV-4", "invoice_messages"); v != "400: NIT del adquiriente inválido" {
		t.Errorf("service message not written: %q", v)
	}
	if _, ok := mag.wrote("INV-4", "tas_code"); ok {
		t.Error("rejected document must not receive a code")
	}

	last := st.saved[len(st.saved)-1]
	if last.ProcessState != "Error en Factura Electronica" {
		t.Errorf("persisted state wrong: %+v", last)
	}
}

func TestProcessGuardPreventsDoubleSubmit(t *testing.T) {
	signing := &fakeSigning{
		submit: func(json.RawMessage) (*lafactura.SubmitResponse, error) {
			return acceptedSubmit("tas-5", "cufe-5", lafactura.ProcessConfirmed, "https://dl/5.zip"), nil
		},
	}
	st := &fakeOutcomeStore{}
	engine, _ := newTestEngine(signing, st)
	mag := &fakeMagaya{}
	desc, _ := DescriptorFor(models.KindInvoice)

	// Simulate an overlapping run holding the document
	engine.Locker.Acquire("processing_INV-5", time.Minute)

	outcome, err := engine.Process(context.Background(), testSession(mag), desc, eligibleInvoice("INV-5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("outcome = %v, want skipped", outcome)
	}
	if signing.submits != 0 {
		t.Error("held guard must prevent submission")
	}
	if len(mag.fieldWrites) != 0 {
		t.Error("held guard must prevent field writes")
	}

	// After release the document processes normally
	engine.Locker.Release("processing_INV-5")
	outcome, err = engine.Process(context.Background(), testSession(mag), desc, eligibleInvoice("INV-5"))
	if err != nil || outcome != OutcomeIssued {
		t.Fatalf("expected issued after release, got %v, %v", outcome, err)
	}
	if signing.submits != 1 {
		t.Errorf("expected exactly one submit, got %d", signing.submits)
	}
}

func TestProcessCancellationWritesCancelCode(t *testing.T) {
	signing := &fakeSigning{
		submit: func(json.RawMessage) (*lafactura.SubmitResponse, error) {
			return acceptedSubmit("tas-cxl", "", lafactura.ProcessConfirmed, "https://dl/c.zip"), nil
		},
	}
	st := &fakeOutcomeStore{}
	engine, _ := newTestEngine(signing, st)
	mag := &fakeMagaya{}
	desc, _ := DescriptorFor(models.KindCancel)

	doc := &models.Document{
		Kind:         models.KindCancel,
		Number:       "INV-6",
		GUID:         "g-6",
		NetworkID:    "net-1",
		ProcessState: "Factura Electronica Exitosa",
		Notes:        "ANULADA",
		ExternalCode: "tas-original",
		Description:  "anulación solicitada",
	}

	outcome, err := engine.Process(context.Background(), testSession(mag), desc, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIssued {
		t.Fatalf("outcome = %v, want issued", outcome)
	}

	if v, _ := mag.wrote("INV-6", "tas_cancel"); v != "tas-cxl" {
		t.Errorf("cancellation code must go to tas_cancel, got %q", v)
	}
	if _, ok := mag.wrote("INV-6", "valor_cufe"); ok {
		t.Error("cancellations have no fiscal reference to write")
	}
	if v, _ := mag.wrote("INV-6", "estado_factura"); v != "Cancelado" {
		t.Errorf("final status wrong: %q", v)
	}
	if len(mag.attachments) != 0 {
		t.Error("cancellations must not attach an artifact")
	}
}
