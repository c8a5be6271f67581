package nomenclature

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/retry"
	"tradeflow/internal/core/tx"
	"tradeflow/internal/core/types"
	"tradeflow/pkg/logger"
)

// Candidate carries the loose identifiers of an upstream document line.
type Candidate struct {
	ItemID       string
	SupplierCode string
	Barcode      string
	Description  string
	Category     string
	Unit         string
	SupplierID   *id.ID
}

// Ref is a resolved catalog item.
type Ref struct {
	ID          id.ID
	Code        string
	Description string
	AutoCreated bool
	// Strategy names the lookup that produced the ref.
	Strategy string
}

// Strategy is one step of the resolution chain.
// A miss is reported as (nil, nil).
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, s *Session, c Candidate) (*Nomenclature, error)
}

// Resolver maps candidates onto catalog items by trying its strategies in order.
type Resolver struct {
	repo       Repository
	txManager  tx.Manager
	policy     AutoCreatePolicy
	newCode    func() string
	strategies []Strategy
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPolicy sets the auto-create policy.
func WithPolicy(p AutoCreatePolicy) ResolverOption {
	return func(r *Resolver) { r.policy = p }
}

// WithCodeGenerator overrides the AUTO-code generator.
func WithCodeGenerator(fn func() string) ResolverOption {
	return func(r *Resolver) { r.newCode = fn }
}

// NewResolver creates a resolver with the default chain:
// id, supplier code, barcode, auto-create.
func NewResolver(repo Repository, txManager tx.Manager, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		repo:      repo,
		txManager: txManager,
		policy:    AllowAll{},
		newCode:   newAutoCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.strategies = []Strategy{byID{}, byCode{}, byBarcode{}, autoCreate{}}
	return r
}

// NewSession starts a resolution scope. Caches live as long as the session;
// use one session per derivation call.
func (r *Resolver) NewSession() *Session {
	return &Session{
		resolver:  r,
		byID:      make(map[id.ID]*Nomenclature),
		byCode:    make(map[string]*Nomenclature),
		byBarcode: make(map[string]*Nomenclature),
		byDesc:    make(map[string]*Nomenclature),
	}
}

// Session holds per-call caches.
type Session struct {
	resolver  *Resolver
	byID      map[id.ID]*Nomenclature
	byCode    map[string]*Nomenclature
	byBarcode map[string]*Nomenclature
	byDesc    map[string]*Nomenclature
	created   []*Nomenclature
}

// Created returns the items auto-created in this session.
func (s *Session) Created() []*Nomenclature {
	return s.created
}

// Resolve returns the catalog item for c. ok is false when every strategy
// missed; err is set only for infrastructure failures.
func (s *Session) Resolve(ctx context.Context, c Candidate) (Ref, bool, error) {
	for _, strategy := range s.resolver.strategies {
		item, err := strategy.Resolve(ctx, s, c)
		if err != nil {
			return Ref{}, false, fmt.Errorf("resolve item by %s: %w", strategy.Name(), err)
		}
		if item != nil {
			return Ref{
				ID:          item.ID,
				Code:        item.Code,
				Description: item.Name,
				AutoCreated: item.AutoCreated,
				Strategy:    strategy.Name(),
			}, true, nil
		}
	}
	return Ref{}, false, nil
}

func (s *Session) remember(item *Nomenclature) {
	s.byID[item.ID] = item
	s.byCode[item.Code] = item
	if item.SupplierCode != nil {
		s.byCode[*item.SupplierCode] = item
	}
	if item.Barcode != nil {
		s.byBarcode[*item.Barcode] = item
	}
}

// lookupCodes runs the supplier code and barcode strategies.
func (s *Session) lookupCodes(ctx context.Context, c Candidate) (*Nomenclature, error) {
	for _, strategy := range []Strategy{byCode{}, byBarcode{}} {
		item, err := strategy.Resolve(ctx, s, c)
		if err != nil || item != nil {
			return item, err
		}
	}
	return nil, nil
}

// --- strategies ---

type byID struct{}

func (byID) Name() string { return "id" }

func (byID) Resolve(ctx context.Context, s *Session, c Candidate) (*Nomenclature, error) {
	itemID := id.ParseOptional(strings.TrimSpace(c.ItemID))
	if itemID == nil {
		return nil, nil
	}
	if item, ok := s.byID[*itemID]; ok {
		return item, nil
	}
	return s.found(s.resolver.repo.GetByID(ctx, *itemID))
}

type byCode struct{}

func (byCode) Name() string { return "supplier_code" }

func (byCode) Resolve(ctx context.Context, s *Session, c Candidate) (*Nomenclature, error) {
	code := strings.TrimSpace(c.SupplierCode)
	if code == "" {
		return nil, nil
	}
	if item, ok := s.byCode[code]; ok {
		return item, nil
	}
	return s.found(s.resolver.repo.FindByCode(ctx, code))
}

type byBarcode struct{}

func (byBarcode) Name() string { return "barcode" }

func (byBarcode) Resolve(ctx context.Context, s *Session, c Candidate) (*Nomenclature, error) {
	barcode := strings.TrimSpace(c.Barcode)
	if barcode == "" {
		return nil, nil
	}
	if item, ok := s.byBarcode[barcode]; ok {
		return item, nil
	}
	return s.found(s.resolver.repo.FindByBarcode(ctx, barcode))
}

// found caches a repository hit and turns NOT_FOUND into a miss.
func (s *Session) found(item *Nomenclature, err error) (*Nomenclature, error) {
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	s.remember(item)
	return item, nil
}

type autoCreate struct{}

func (autoCreate) Name() string { return "auto_create" }

// Resolve inserts a new item. A unique violation means another writer won a
// race for the same supplier code or barcode: the code and barcode lookups are
// retried once before giving up.
func (autoCreate) Resolve(ctx context.Context, s *Session, c Candidate) (*Nomenclature, error) {
	descKey := types.NormalizeText(c.Description)
	if c.SupplierCode == "" && c.Barcode == "" && descKey != "" {
		if item, ok := s.byDesc[descKey]; ok {
			return item, nil
		}
	}

	r := s.resolver
	if !r.policy.Allow(ctx, c) {
		logger.Info(ctx, "catalog auto-create denied by policy",
			"description", c.Description,
			"supplier_code", c.SupplierCode)
		return nil, nil
	}

	inserted := false
	item, err := retry.Do(ctx, retry.Policy{
		MaxAttempts: 2,
		Retryable:   apperror.IsUniqueViolation,
	}, func(ctx context.Context, attempt int) (*Nomenclature, error) {
		if attempt > 0 {
			existing, err := s.lookupCodes(ctx, c)
			if err != nil || existing != nil {
				return existing, err
			}
		}

		candidate := NewAutoCreated(r.newCode(), c)
		err := r.txManager.RunInSavepoint(ctx, func(ctx context.Context) error {
			return r.repo.Create(ctx, candidate)
		})
		if err != nil {
			return nil, err
		}
		inserted = true
		return candidate, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		logger.Warn(ctx, "catalog auto-create lost uniqueness race",
			"description", c.Description,
			"supplier_code", c.SupplierCode,
			"barcode", c.Barcode)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.remember(item)
	if inserted {
		s.created = append(s.created, item)
		if descKey != "" && c.SupplierCode == "" && c.Barcode == "" {
			s.byDesc[descKey] = item
		}
		logger.Warn(ctx, "catalog item auto-created",
			"item_id", item.ID,
			"code", item.Code,
			"supplier_code", c.SupplierCode,
			"description", item.Name)
	}
	return item, nil
}

// newAutoCode returns AUTO- followed by 8 random upper-case hex characters.
func newAutoCode() string {
	return AutoCodePrefix + id.RandomHex(8)
}
