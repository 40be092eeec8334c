package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/envoice/envoicego/internal/models"
	"github.com/envoice/envoicego/internal/retry"
	"github.com/envoice/envoicego/internal/services/lafactura"
)

// ErrPollTimeout is returned when a submitted document is still pending
// after the descriptor's poll budget. The document keeps its in-progress
// state and surfaces again on the next run.
var ErrPollTimeout = errors.New("pipeline: finalization poll timed out")

// Outcome classifies what Process did with one document
type Outcome int

const (
	OutcomeSkipped Outcome = iota // guard held elsewhere, nothing done
	OutcomeIssued                 // accepted, confirmed, states written back
	OutcomeRejected               // service refused the document
	OutcomeTimeout                // accepted but not finalized in time
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIssued:
		return "issued"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "skipped"
	}
}

// SigningAPI is the slice of the LaFactura client the engine uses
type SigningAPI interface {
	Submit(ctx context.Context, creds lafactura.Credentials, payload json.RawMessage) (*lafactura.SubmitResponse, error)
	VerifyStatus(ctx context.Context, creds lafactura.Credentials, tasCode string) (*lafactura.StatusResponse, error)
	ActiveRanges(ctx context.Context, creds lafactura.Credentials) (*lafactura.RangesResponse, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// PayloadBuilder maps a raw Magaya transaction document to the signing
// request body of the kind. The prefix is the account's active numbering
// range for the kind; kinds without a range pass "".
type PayloadBuilder interface {
	Build(kind models.DocumentKind, transXML, prefix string) (json.RawMessage, error)
}

// OutcomeStore persists document state transitions
type OutcomeStore interface {
	SaveOutcome(doc *models.Document, raw json.RawMessage) error
}

// Session bundles everything needed to act on one account's documents
type Session struct {
	Account   models.Account
	AccessKey string
	Magaya    MagayaAPI
	Creds     lafactura.Credentials
}

// Engine submits eligible documents to the signing service and writes the
// results back into Magaya custom fields. One engine serves all kinds; the
// descriptor supplies every kind-specific parameter.
type Engine struct {
	Signing  SigningAPI
	Builder  PayloadBuilder
	Store    OutcomeStore
	Locker   Locker
	GuardTTL time.Duration
}

// Process runs one document through the submission lifecycle. The per
// document guard makes the operation idempotent under overlapping runs; a
// held guard returns OutcomeSkipped without touching anything.
func (e *Engine) Process(ctx context.Context, sess *Session, desc KindDescriptor, doc *models.Document) (Outcome, error) {
	guardKey := "processing_" + doc.Number
	if !e.Locker.Acquire(guardKey, e.GuardTTL) {
		log.Printf("⏭️ [%s] %s already being processed, skipping", desc.Kind, doc.Number)
		return OutcomeSkipped, nil
	}
	defer e.Locker.Release(guardKey)

	// Mark the document in progress before any remote work; failure here
	// means another writer owns the document and we must back off.
	if _, err := sess.Magaya.SetCustomFieldValue(ctx, sess.AccessKey, desc.MagayaType, doc.Number, desc.InProgressField, desc.InProgressValue); err != nil {
		return OutcomeSkipped, fmt.Errorf("pipeline: failed to mark %s in progress: %w", doc.Number, err)
	}

	transXML, err := sess.Magaya.GetTransaction(ctx, sess.AccessKey, desc.MagayaType, desc.PayloadFlags, doc.Number)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("pipeline: failed to load %s payload: %w", doc.Number, err)
	}

	prefix := ""
	if desc.RangeType != "" {
		ranges, err := e.Signing.ActiveRanges(ctx, sess.Creds)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("pipeline: failed to load numbering ranges for %s: %w", doc.Number, err)
		}
		prefix = ranges.PrefixFor(desc.RangeType)
	}

	payload, err := e.Builder.Build(desc.Kind, transXML, prefix)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("pipeline: failed to map %s: %w", doc.Number, err)
	}

	resp, err := e.Signing.Submit(ctx, sess.Creds, payload)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("pipeline: submit of %s failed: %w", doc.Number, err)
	}

	rawResp, _ := json.Marshal(resp)

	if !resp.Accepted() {
		e.writeVerdict(ctx, sess, desc, doc, resp.InvoiceResult.Status, false)
		doc.ProcessState = desc.StatusOnError
		doc.RequestState = desc.RequestOnError
		if err := e.Store.SaveOutcome(doc, rawResp); err != nil {
			log.Printf("⚠️ Failed to persist rejection of %s: %v", doc.Number, err)
		}
		log.Printf("❌ [%s] %s rejected: %d %s", desc.Kind, doc.Number,
			resp.InvoiceResult.Status.Code, resp.InvoiceResult.Status.Text)
		return OutcomeRejected, nil
	}

	doc.ExternalCode = resp.InvoiceResult.Documento.TasCode
	doc.FiscalReference = resp.InvoiceResult.Documento.CUFE

	e.writeVerdict(ctx, sess, desc, doc, resp.InvoiceResult.Status, true)

	if _, err := sess.Magaya.SetCustomFieldValue(ctx, sess.AccessKey, desc.MagayaType, doc.Number, desc.CodeField, doc.ExternalCode); err != nil {
		log.Printf("⚠️ Failed to write code field for %s: %v", doc.Number, err)
	}
	if desc.FiscalField != "" && doc.FiscalReference != "" {
		if _, err := sess.Magaya.SetCustomFieldValue(ctx, sess.AccessKey, desc.MagayaType, doc.Number, desc.FiscalField, doc.FiscalReference); err != nil {
			log.Printf("⚠️ Failed to write fiscal field for %s: %v", doc.Number, err)
		}
	}

	artifactURL := ""
	if resp.InvoiceResult.Documento.Process == lafactura.ProcessConfirmed && resp.InvoiceResult.Documento.URL != "" {
		// Service finalized synchronously, no poll needed
		artifactURL = resp.InvoiceResult.Documento.URL
	} else {
		url, err := e.pollFinalization(ctx, sess, desc, doc)
		if err != nil {
			if errors.Is(err, ErrPollTimeout) {
				// Leave the in-progress state in place so the next run
				// resumes this document
				if saveErr := e.Store.SaveOutcome(doc, rawResp); saveErr != nil {
					log.Printf("⚠️ Failed to persist pending state of %s: %v", doc.Number, saveErr)
				}
				log.Printf("⏳ [%s] %s accepted but not finalized yet", desc.Kind, doc.Number)
				return OutcomeTimeout, nil
			}
			return OutcomeSkipped, err
		}
		artifactURL = url
	}

	if desc.AttachArtifact && artifactURL != "" {
		if err := e.attachArtifact(ctx, sess, desc, doc, artifactURL); err != nil {
			log.Printf("⚠️ Failed to attach artifact for %s: %v", doc.Number, err)
		}
	}

	doc.ProcessState = desc.StatusOnSuccess
	doc.RequestState = desc.RequestOnSuccess
	if err := e.Store.SaveOutcome(doc, rawResp); err != nil {
		log.Printf("⚠️ Failed to persist outcome of %s: %v", doc.Number, err)
	}

	log.Printf("✅ [%s] %s issued, code %s", desc.Kind, doc.Number, doc.ExternalCode)
	return OutcomeIssued, nil
}

// writeVerdict pushes the service messages and resulting states into the
// document's custom fields. The three writes are independent, so they run
// concurrently; individual failures are logged, not fatal.
func (e *Engine) writeVerdict(ctx context.Context, sess *Session, desc KindDescriptor, doc *models.Document, status lafactura.Status, accepted bool) {
	statusValue := desc.StatusOnError
	requestValue := desc.RequestOnError
	if accepted {
		statusValue = desc.StatusOnSuccess
		requestValue = desc.RequestOnSuccess
	}
	message := fmt.Sprintf("%d: %s", status.Code, status.Text)

	g, gctx := errgroup.WithContext(ctx)
	write := func(field, value string) func() error {
		return func() error {
			_, err := sess.Magaya.SetCustomFieldValue(gctx, sess.AccessKey, desc.MagayaType, doc.Number, field, value)
			return err
		}
	}
	g.Go(write(desc.MessageField, message))
	g.Go(write(desc.StatusField, statusValue))
	g.Go(write(desc.RequestField, requestValue))
	if err := g.Wait(); err != nil {
		log.Printf("⚠️ Failed to write verdict fields for %s: %v", doc.Number, err)
	}
}

// pollFinalization waits for the signing service to confirm or reject the
// accepted document, on the descriptor's cadence. A transient poll error
// counts as still pending.
func (e *Engine) pollFinalization(ctx context.Context, sess *Session, desc KindDescriptor, doc *models.Document) (string, error) {
	var artifactURL string
	rejected := false

	policy := retry.Policy{MaxAttempts: desc.PollAttempts, InitialDelay: desc.PollInterval, BackoffFactor: 1}
	err := retry.Do(ctx, policy, func(attempt int) (bool, error) {
		st, err := e.Signing.VerifyStatus(ctx, sess.Creds, doc.ExternalCode)
		if err != nil {
			log.Printf("⚠️ [%s] Status poll %d for %s failed: %v", desc.Kind, attempt, doc.Number, err)
			return false, nil
		}

		switch st.InvoiceResult.Document.Process {
		case lafactura.ProcessConfirmed:
			artifactURL = st.InvoiceResult.Document.URL
			return true, nil
		case lafactura.ProcessRejected:
			rejected = true
			return true, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return "", ErrPollTimeout
		}
		return "", err
	}

	if rejected {
		log.Printf("⚠️ [%s] %s rejected during finalization", desc.Kind, doc.Number)
		return "", nil
	}

	return artifactURL, nil
}

// attachArtifact downloads the signed bundle and stores it on the Magaya
// transaction
func (e *Engine) attachArtifact(ctx context.Context, sess *Session, desc KindDescriptor, doc *models.Document, url string) error {
	data, err := e.Signing.Download(ctx, url)
	if err != nil {
		return err
	}

	name := "factura_" + doc.Number
	if _, err := sess.Magaya.SetAttachment(ctx, sess.AccessKey, desc.MagayaType, doc.Number, data, name, "zip"); err != nil {
		return err
	}

	log.Printf("📎 [%s] Attached %s.zip to %s", desc.Kind, name, doc.Number)
	return nil
}
