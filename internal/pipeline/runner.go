package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/envoice/envoicego/internal/models"
	"github.com/envoice/envoicego/internal/services/lafactura"
	"github.com/envoice/envoicego/internal/services/magaya"
	"github.com/envoice/envoicego/internal/store"
)

// MagayaFactory creates a client for one network's endpoint URL
type MagayaFactory func(url string) MagayaAPI

// RunStore is the slice of the store the runner depends on
type RunStore interface {
	ActiveAccounts() ([]models.Account, error)
	Reconcile(rec *models.TransactionRecord) (store.ReconcileResult, error)
	RecordRun(run *models.PipelineRun) error
}

// Runner drives full pipeline passes: every active account, every document
// kind, every eligible document.
type Runner struct {
	Store        RunStore
	Sessions     *SessionManager
	Fetcher      *Fetcher
	Engine       *Engine
	Magaya       MagayaFactory
	AccountPause time.Duration
}

// RunAll walks every active account through every document kind
func (r *Runner) RunAll(ctx context.Context) error {
	return r.run(ctx, Descriptors())
}

// RunKind walks every active account through one document kind. Backs the
// manual trigger endpoint.
func (r *Runner) RunKind(ctx context.Context, kind models.DocumentKind) error {
	desc, ok := DescriptorFor(kind)
	if !ok {
		return fmt.Errorf("pipeline: unknown kind %q", kind)
	}
	return r.run(ctx, []KindDescriptor{desc})
}

func (r *Runner) run(ctx context.Context, descriptors []KindDescriptor) error {
	accounts, err := r.Store.ActiveAccounts()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		log.Println("📭 No active accounts configured")
		return nil
	}

	for i, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Printf("👤 Processing account %s (network %s)", account.Name, account.NetworkID)
		for _, desc := range descriptors {
			r.runAccountKind(ctx, account, desc)
		}

		if r.AccountPause > 0 && i < len(accounts)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.AccountPause):
			}
		}
	}

	return nil
}

// runAccountKind runs one kind for one account and records the run summary.
// Failures are contained: a broken account or document never stops the
// remaining work.
func (r *Runner) runAccountKind(ctx context.Context, account models.Account, desc KindDescriptor) {
	started := time.Now()
	run := &models.PipelineRun{
		RunID:     uuid.NewString(),
		Kind:      string(desc.Kind),
		NetworkID: account.NetworkID,
	}
	defer func() {
		run.DurationMs = int(time.Since(started).Milliseconds())
		if err := r.Store.RecordRun(run); err != nil {
			log.Printf("⚠️ Failed to record run %s: %v", run.RunID, err)
		}
	}()

	fail := func(err error) {
		msg := err.Error()
		run.ErrorMessage = &msg
		log.Printf("❌ [%s] Run for network %s failed: %v", desc.Kind, account.NetworkID, err)
	}

	mag := r.Magaya(account.MagayaURL)
	accessKey, err := r.Sessions.AccessKey(ctx, mag, account.NetworkID, account.MagayaUser, account.MagayaPass)
	if err != nil {
		fail(err)
		return
	}

	items, err := r.Fetcher.Fetch(ctx, mag, accessKey, desc)
	if err != nil {
		fail(err)
		return
	}
	run.Fetched = len(items)

	if len(items) == 0 {
		log.Printf("📭 [%s] Nothing found for network %s", desc.Kind, account.NetworkID)
		return
	}

	sess := &Session{
		Account:   account,
		AccessKey: accessKey,
		Magaya:    mag,
		Creds: lafactura.Credentials{
			Username: account.LaFacturaUser,
			Password: account.LaFacturaPass,
		},
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}

		detailXML, err := mag.GetTransaction(ctx, accessKey, desc.MagayaType, desc.DetailFlags, item.Number)
		if err != nil {
			log.Printf("⚠️ [%s] Failed to load %s: %v", desc.Kind, item.Number, err)
			run.Failed++
			continue
		}

		detail, err := magaya.ParseTransactionDetail(detailXML)
		if err != nil {
			log.Printf("⚠️ [%s] Unreadable detail for %s: %v", desc.Kind, item.Number, err)
			run.Failed++
			continue
		}

		doc := desc.DocumentFrom(detail, account.NetworkID)

		if _, err := r.Store.Reconcile(doc.Record()); err != nil {
			log.Printf("⚠️ [%s] Rejected record %s: %v", desc.Kind, doc.Number, err)
			run.Failed++
			continue
		}

		if !desc.IsEligible(doc) {
			continue
		}
		run.Eligible++

		outcome, err := r.Engine.Process(ctx, sess, desc, doc)
		if err != nil {
			log.Printf("⚠️ [%s] Processing %s failed: %v", desc.Kind, doc.Number, err)
			run.Failed++
			continue
		}
		if outcome != OutcomeSkipped {
			run.Processed++
		}
	}

	log.Printf("🏁 [%s] Network %s: %d fetched, %d eligible, %d processed, %d failed",
		desc.Kind, account.NetworkID, run.Fetched, run.Eligible, run.Processed, run.Failed)
}
