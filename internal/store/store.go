// Package store persists the pipeline's reconciliation state: one durable
// row per document, plus accounts, operators and run history.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/envoice/envoicego/internal/models"
)

// ValidationError marks a record the store refuses to persist
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: invalid record: %s %s", e.Field, e.Reason)
}

// ReconcileResult reports what Reconcile did with a record
type ReconcileResult struct {
	IsNew      bool // first sighting, row created
	WasUpdated bool // known document whose states changed
	Pending    bool // process state still incomplete, needs the pipeline
}

// Store is the persistence layer over the reconciliation schema
type Store struct {
	db *gorm.DB
}

// New creates a store on an open gorm connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func validate(rec *models.TransactionRecord) error {
	if rec.DocumentID == "" {
		return &ValidationError{Field: "document_id", Reason: "is required"}
	}
	if rec.GUID == "" {
		return &ValidationError{Field: "guid", Reason: "is required"}
	}
	if rec.NetworkID == "" {
		return &ValidationError{Field: "network_id", Reason: "is required"}
	}

	kind := models.DocumentKind(rec.Kind)
	if !kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "is unknown"}
	}

	vocab := models.Vocabularies[kind]
	if rec.ProcessState == "" {
		rec.ProcessState = vocab.NotIssued
	}
	if !vocab.Contains(rec.ProcessState) {
		return &ValidationError{Field: "process_state", Reason: fmt.Sprintf("%q is outside the %s vocabulary", rec.ProcessState, kind)}
	}

	return nil
}

// Reconcile merges one fetched record into the durable state. New documents
// are inserted; known documents are updated only when their states actually
// moved, so repeated runs over unchanged data are no-ops. The result's
// Pending flag resurfaces documents whose process state is still incomplete.
func (s *Store) Reconcile(rec *models.TransactionRecord) (ReconcileResult, error) {
	if err := validate(rec); err != nil {
		return ReconcileResult{}, err
	}

	vocab := models.Vocabularies[models.DocumentKind(rec.Kind)]

	var existing models.TransactionRecord
	err := s.db.Where("document_id = ?", rec.DocumentID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.Create(rec).Error; err != nil {
			return ReconcileResult{}, fmt.Errorf("store: failed to insert %s: %w", rec.DocumentID, err)
		}
		return ReconcileResult{IsNew: true, Pending: vocab.Incomplete(rec.ProcessState)}, nil
	}
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("store: failed to look up %s: %w", rec.DocumentID, err)
	}

	changed := existing.RequestState != rec.RequestState || existing.ProcessState != rec.ProcessState
	if changed {
		updates := map[string]interface{}{
			"request_state": rec.RequestState,
			"process_state": rec.ProcessState,
			"guid":          rec.GUID,
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return ReconcileResult{}, fmt.Errorf("store: failed to update %s: %w", rec.DocumentID, err)
		}
	}

	return ReconcileResult{WasUpdated: changed, Pending: vocab.Incomplete(rec.ProcessState)}, nil
}

// SaveOutcome upserts the record of a processed document together with the
// raw service response that produced the transition
func (s *Store) SaveOutcome(doc *models.Document, raw json.RawMessage) error {
	rec := doc.Record()
	rec.LastResponse = []byte(raw)
	if err := validate(rec); err != nil {
		return err
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"request_state", "process_state", "guid", "last_response", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("store: failed to save outcome of %s: %w", rec.DocumentID, err)
	}
	return nil
}

// ActiveAccounts lists the accounts the scheduler should walk
func (s *Store) ActiveAccounts() ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.Where("active = ?", true).Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("store: failed to list accounts: %w", err)
	}
	return accounts, nil
}

// RecordRun appends one run summary to the history
func (s *Store) RecordRun(run *models.PipelineRun) error {
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("store: failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest run summaries, most recent first
func (s *Store) RecentRuns(limit int) ([]models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.PipelineRun
	if err := s.db.Order("id desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("store: failed to list runs: %w", err)
	}
	return runs, nil
}

// FindOperator looks an operator up by email
func (s *Store) FindOperator(email string) (*models.Operator, error) {
	var op models.Operator
	if err := s.db.Where("email = ?", email).First(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

// EnsureAccount inserts the account unless its network is already known.
// Used by the bootstrap seed on startup.
func (s *Store) EnsureAccount(account *models.Account) error {
	return s.db.Where("network_id = ?", account.NetworkID).FirstOrCreate(account).Error
}

// EnsureOperator inserts the operator unless the email is already known
func (s *Store) EnsureOperator(op *models.Operator) error {
	return s.db.Where("email = ?", op.Email).FirstOrCreate(op).Error
}
