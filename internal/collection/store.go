// Package collection holds the bag collection state, its mutation API and the
// value calculator derived from it.
package collection

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/BagWardrobe/internal/models"
)

var (
	// ErrBagNotFound is returned when no record matches the given id.
	ErrBagNotFound = errors.New("bag not found")
	// ErrImmutableField is returned when updating id, image or name.
	ErrImmutableField = errors.New("field cannot be changed after creation")
	// ErrUnknownField is returned for fields that are not part of a bag record.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned when an updated value breaks the field's rule.
	ErrInvalidValue = errors.New("invalid value")
	// ErrEmptyCredential is returned when saving a blank API key.
	ErrEmptyCredential = errors.New("credential must not be empty")
)

// Updatable field names accepted by Store.Update.
const (
	FieldBrand          = "brand"
	FieldModel          = "model"
	FieldPurchasePrice  = "purchasePrice"
	FieldEstimatedValue = "estimatedValue"
	FieldCondition      = "condition"
)

// fieldRules are validator tags applied to updated values.
var fieldRules = map[string]string{
	FieldBrand:          "max=200",
	FieldModel:          "max=200",
	FieldPurchasePrice:  "omitempty,numeric",
	FieldEstimatedValue: "omitempty,numeric",
	FieldCondition:      "oneof=excellent good fair poor",
}

var validate = validator.New()

// Persister stores the collection between sessions.
type Persister interface {
	// LoadBags returns the saved records, or an empty slice when nothing was saved.
	LoadBags(ctx context.Context) ([]models.BagRecord, error)
	// SaveBags replaces the saved records with bags.
	SaveBags(ctx context.Context, bags []models.BagRecord) error
	// LoadCredential returns the saved credential, or "" when nothing was saved.
	LoadCredential(ctx context.Context) (string, error)
	// SaveCredential replaces the saved credential.
	SaveCredential(ctx context.Context, credential string) error
}

// ImageDecoder turns an image file into a data URI.
type ImageDecoder interface {
	DecodeFile(path string) (string, error)
}

// Store owns the bag records, the credential and the latest analysis.
// Every mutation of the record list is persisted in full.
type Store struct {
	mu         sync.Mutex
	bags       []models.BagRecord
	credential string
	analysis   *models.AnalysisResult

	persister Persister
	decoder   ImageDecoder
}

// Open loads prior state from persister. Missing state yields an empty store.
func Open(ctx context.Context, persister Persister, decoder ImageDecoder) (*Store, error) {
	bags, err := persister.LoadBags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bags: %w", err)
	}
	credential, err := persister.LoadCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if bags == nil {
		bags = []models.BagRecord{}
	}
	return &Store{
		bags:       bags,
		credential: credential,
		persister:  persister,
		decoder:    decoder,
	}, nil
}

// Add decodes the file at path and appends a new record for it.
func (s *Store) Add(ctx context.Context, path string) (models.BagRecord, error) {
	rec, err := s.decode(path)
	if err != nil {
		return models.BagRecord{}, err
	}
	if err := s.appendRecords(ctx, rec); err != nil {
		return models.BagRecord{}, err
	}
	return rec, nil
}

// AddFiles decodes all files concurrently and appends the decoded records in one
// save, in decode completion order. Files decoded before a failure are still
// added; the first decode error is returned.
func (s *Store) AddFiles(ctx context.Context, paths []string) ([]models.BagRecord, error) {
	var (
		mu      sync.Mutex
		decoded = make([]models.BagRecord, 0, len(paths))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := s.decode(path)
			if err != nil {
				return err
			}
			mu.Lock()
			decoded = append(decoded, rec)
			mu.Unlock()
			return nil
		})
	}
	decodeErr := g.Wait()
	if len(decoded) == 0 {
		return decoded, decodeErr
	}
	if err := s.appendRecords(ctx, decoded...); err != nil {
		return []models.BagRecord{}, errors.Join(decodeErr, err)
	}
	return decoded, decodeErr
}

func (s *Store) decode(path string) (models.BagRecord, error) {
	image, err := s.decoder.DecodeFile(path)
	if err != nil {
		return models.BagRecord{}, err
	}
	return models.BagRecord{
		ID:        uuid.NewString(),
		Image:     image,
		Name:      filepath.Base(path),
		Condition: models.ConditionGood,
	}, nil
}

func (s *Store) appendRecords(ctx context.Context, recs ...models.BagRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.BagRecord, 0, len(s.bags)+len(recs))
	next = append(next, s.bags...)
	next = append(next, recs...)
	return s.commitLocked(ctx, next)
}

// Remove deletes the bag with id and clears the current analysis, which no longer
// matches the collection. The analysis is cleared even when id is unknown.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.analysis = nil
	for i, b := range s.bags {
		if b.ID != id {
			continue
		}
		next := append(s.bags[:i:i], s.bags[i+1:]...)
		if err := s.commitLocked(ctx, next); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Update sets one tracking field of the bag with id.
func (s *Store) Update(ctx context.Context, id, field, value string) (models.BagRecord, error) {
	switch field {
	case "id", "image", "name":
		return models.BagRecord{}, fmt.Errorf("%s: %w", field, ErrImmutableField)
	}
	rule, ok := fieldRules[field]
	if !ok {
		return models.BagRecord{}, fmt.Errorf("%s: %w", field, ErrUnknownField)
	}
	value = strings.TrimSpace(value)
	if err := validate.Var(value, rule); err != nil {
		return models.BagRecord{}, fieldError(field, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bags {
		if s.bags[i].ID != id {
			continue
		}
		next := make([]models.BagRecord, len(s.bags))
		copy(next, s.bags)
		b := &next[i]
		switch field {
		case FieldBrand:
			b.Brand = value
		case FieldModel:
			b.Model = value
		case FieldPurchasePrice:
			b.PurchasePrice = value
		case FieldEstimatedValue:
			b.EstimatedValue = value
		case FieldCondition:
			b.Condition = models.Condition(value)
		}
		if err := s.commitLocked(ctx, next); err != nil {
			return models.BagRecord{}, err
		}
		return *b, nil
	}
	return models.BagRecord{}, fmt.Errorf("%s: %w", id, ErrBagNotFound)
}

// Records returns a copy of the current records in collection order.
func (s *Store) Records() []models.BagRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BagRecord, len(s.bags))
	copy(out, s.bags)
	return out
}

// Get returns the record with id.
func (s *Store) Get(id string) (models.BagRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bags {
		if b.ID == id {
			return b, true
		}
	}
	return models.BagRecord{}, false
}

// Credential returns the provider API key, or "" when none was entered.
func (s *Store) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// SetCredential saves the provider API key exactly as given. Blank keys are rejected.
func (s *Store) SetCredential(ctx context.Context, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return ErrEmptyCredential
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persister.SaveCredential(ctx, credential); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	s.credential = credential
	return nil
}

// Analysis returns the latest analysis, or nil.
func (s *Store) Analysis() *models.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// SetAnalysis replaces the latest analysis.
func (s *Store) SetAnalysis(result *models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = result
}

// commitLocked saves next and makes it the current record list only once the
// save succeeded.
func (s *Store) commitLocked(ctx context.Context, next []models.BagRecord) error {
	if err := s.persister.SaveBags(ctx, next); err != nil {
		return fmt.Errorf("persist bags: %w", err)
	}
	s.bags = next
	return nil
}

func fieldError(field string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%s: %w", field, err)
	}
	e := verrs[0]
	switch e.Tag() {
	case "numeric":
		return fmt.Errorf("%s must be a number: %w", field, ErrInvalidValue)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s: %w", field, e.Param(), ErrInvalidValue)
	case "max":
		return fmt.Errorf("%s must be at most %s characters: %w", field, e.Param(), ErrInvalidValue)
	default:
		return fmt.Errorf("%s is invalid: %w", field, ErrInvalidValue)
	}
}
