package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/envoice/envoicego/internal/models"
	"github.com/envoice/envoicego/internal/services/lafactura"
	"github.com/envoice/envoicego/internal/services/magaya"
)

// fakeMagaya scripts the Magaya API per method
type fakeMagaya struct {
	startSession func(user, pass string) (string, error)
	firstPage    func(q magaya.TransQuery) (*magaya.FirstPage, error)
	nextPage     func(cookie string) (*magaya.NextPage, error)
	transaction  func(flags, number string) (string, error)

	fieldWrites []fieldWrite
	attachments []attachmentWrite
}

type fieldWrite struct {
	Number string
	Field  string
	Value  string
}

type attachmentWrite struct {
	Number    string
	Name      string
	Extension string
	Size      int
}

func (f *fakeMagaya) StartSession(ctx context.Context, user, pass string) (string, error) {
	if f.startSession != nil {
		return f.startSession(user, pass)
	}
	return "key-1", nil
}

func (f *fakeMagaya) FirstTransByDate(ctx context.Context, q magaya.TransQuery) (*magaya.FirstPage, error) {
	if f.firstPage != nil {
		return f.firstPage(q)
	}
	return &magaya.FirstPage{Cookie: "c", MoreResults: "0", Result: "no_error"}, nil
}

func (f *fakeMagaya) NextTransByDate(ctx context.Context, cookie string) (*magaya.NextPage, error) {
	if f.nextPage != nil {
		return f.nextPage(cookie)
	}
	return &magaya.NextPage{MoreResults: "0"}, nil
}

func (f *fakeMagaya) GetTransaction(ctx context.Context, accessKey, docType, flags, number string) (string, error) {
	if f.transaction != nil {
		return f.transaction(flags, number)
	}
	return "<Invoice><Number>" + number + "</Number></Invoice>", nil
}

func (f *fakeMagaya) SetCustomFieldValue(ctx context.Context, accessKey, docType, number, internalName, value string) (string, error) {
	f.fieldWrites = append(f.fieldWrites, fieldWrite{Number: number, Field: internalName, Value: value})
	return "ok", nil
}

func (f *fakeMagaya) SetAttachment(ctx context.Context, accessKey, docType, number string, data []byte, name, extension string) (string, error) {
	f.attachments = append(f.attachments, attachmentWrite{Number: number, Name: name, Extension: extension, Size: len(data)})
	return "ok", nil
}

func (f *fakeMagaya) wrote(number, field string) (string, bool) {
	for i := len(f.fieldWrites) - 1; i >= 0; i-- {
		w := f.fieldWrites[i]
		if w.Number == number && w.Field == field {
			return w.Value, true
		}
	}
	return "", false
}

// fakeSigning scripts the LaFactura API
type fakeSigning struct {
	submit   func(payload json.RawMessage) (*lafactura.SubmitResponse, error)
	verify   func(tasCode string) (*lafactura.StatusResponse, error)
	ranges   func() (*lafactura.RangesResponse, error)
	download func(url string) ([]byte, error)

	submits int
	polls   int
}

func (f *fakeSigning) Submit(ctx context.Context, creds lafactura.Credentials, payload json.RawMessage) (*lafactura.SubmitResponse, error) {
	f.submits++
	return f.submit(payload)
}

func (f *fakeSigning) VerifyStatus(ctx context.Context, creds lafactura.Credentials, tasCode string) (*lafactura.StatusResponse, error) {
	f.polls++
	return f.verify(tasCode)
}

func (f *fakeSigning) ActiveRanges(ctx context.Context, creds lafactura.Credentials) (*lafactura.RangesResponse, error) {
	if f.ranges != nil {
		return f.ranges()
	}
	var out lafactura.RangesResponse
	data := []byte(`{"generalResult":{"ranges":[{"type":"invoice","prefix":"SETP"},{"type":"creditNote","prefix":"NC"}]}}`)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *fakeSigning) Download(ctx context.Context, url string) ([]byte, error) {
	if f.download != nil {
		return f.download(url)
	}
	return []byte("zip-bytes"), nil
}

// fakeBuilder returns a fixed payload
type fakeBuilder struct {
	lastPrefix string
}

func (f *fakeBuilder) Build(kind models.DocumentKind, transXML, prefix string) (json.RawMessage, error) {
	f.lastPrefix = prefix
	return json.RawMessage(`{"invoice":{}}`), nil
}

// fakeOutcomeStore records saved documents
type fakeOutcomeStore struct {
	saved []models.Document
}

func (f *fakeOutcomeStore) SaveOutcome(doc *models.Document, raw json.RawMessage) error {
	f.saved = append(f.saved, *doc)
	return nil
}

func acceptedSubmit(tasCode, cufe string, process int, url string) *lafactura.SubmitResponse {
	var resp lafactura.SubmitResponse
	resp.InvoiceResult.Status = lafactura.Status{Code: 200, Text: "Documento recibido"}
	resp.InvoiceResult.Documento.TasCode = tasCode
	resp.InvoiceResult.Documento.CUFE = cufe
	resp.InvoiceResult.Documento.Process = process
	resp.InvoiceResult.Documento.URL = url
	return &resp
}

func rejectedSubmit(code int, text string) *lafactura.SubmitResponse {
	var resp lafactura.SubmitResponse
	resp.InvoiceResult.Status = lafactura.Status{Code: code, Text: text}
	return &resp
}

func statusWith(process int, url string) *lafactura.StatusResponse {
	var resp lafactura.StatusResponse
	resp.InvoiceResult.Document.Process = process
	resp.InvoiceResult.Document.URL = url
	return &resp
}

func mustParseDetail(t *testing.T, payload string) *magaya.TransactionDetail {
	t.Helper()
	detail, err := magaya.ParseTransactionDetail(payload)
	if err != nil {
		t.Fatalf("failed to parse detail: %v", err)
	}
	return detail
}

func testSession(mag MagayaAPI) *Session {
	return &Session{
		Account:   models.Account{NetworkID: "net-1", Name: "Test"},
		AccessKey: "key-1",
		Magaya:    mag,
		Creds:     lafactura.Credentials{Username: "u", Password: "p"},
	}
}
