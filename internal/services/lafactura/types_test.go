package lafactura

import (
	"encoding/json"
	"testing"
)

func TestSubmitResponseAccepted(t *testing.T) {
	body := `{"invoiceResult":{"status":{"code":200,"text":"ok"},"documento":{"tascode":"t1","CUFE":"c1"}}}`

	var resp SubmitResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Accepted() {
		t.Error("code 200 must be accepted")
	}
	if resp.InvoiceResult.Documento.TasCode != "t1" || resp.InvoiceResult.Documento.CUFE != "c1" {
		t.Errorf("codes not mapped: %+v", resp.InvoiceResult.Documento)
	}
}

func TestSubmitResponseRejected(t *testing.T) {
	body := `{"invoiceResult":{"status":{"code":400,"text":"NIT inválido"}}}`

	var resp SubmitResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Accepted() {
		t.Error("non-200 code must not be accepted")
	}
}

func TestRangesResponseArray(t *testing.T) {
	body := `{"generalResult":{"ranges":[{"type":"invoice","prefix":"SETP"},{"type":"creditNote","prefix":"NC"}]}}`

	var resp RangesResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.PrefixFor("invoice"); got != "SETP" {
		t.Errorf("invoice prefix = %q, want SETP", got)
	}
	if got := resp.PrefixFor("creditNote"); got != "NC" {
		t.Errorf("creditNote prefix = %q, want NC", got)
	}
	if got := resp.PrefixFor("debitNote"); got != "" {
		t.Errorf("unknown type must be empty, got %q", got)
	}
}

func TestRangesResponseSingleObject(t *testing.T) {
	// Accounts with one range get an object instead of an array
	body := `{"generalResult":{"ranges":{"type":"invoice","prefix":"FV"}}}`

	var resp RangesResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.PrefixFor("invoice"); got != "FV" {
		t.Errorf("invoice prefix = %q, want FV", got)
	}
}
