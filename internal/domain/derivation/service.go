// Package derivation builds downstream documents from upstream ones: sales
// invoices from deliveries, purchase invoices from approved goods receipts and
// supplier LPOs from sales orders or supplier quotes.
//
// Every run is one unit of work. Lines that cannot be resolved to a catalog
// item are skipped and reported; missing upstream documents and non-positive
// totals abort the run.
package derivation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/numerator"
	"tradeflow/internal/core/retry"
	"tradeflow/internal/core/tx"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/audit"
	"tradeflow/internal/domain/catalogs/nomenclature"
	"tradeflow/internal/domain/documents"
	"tradeflow/internal/domain/documents/delivery"
	"tradeflow/internal/domain/documents/enquiry"
	"tradeflow/internal/domain/documents/goods_receipt"
	"tradeflow/internal/domain/documents/invoice"
	"tradeflow/internal/domain/documents/purchase_invoice"
	"tradeflow/internal/domain/documents/quotation"
	"tradeflow/internal/domain/documents/sales_order"
	"tradeflow/internal/domain/documents/supplier_lpo"
	"tradeflow/internal/domain/documents/supplier_quote"
	"tradeflow/internal/domain/events"
	"tradeflow/pkg/logger"
)

var tracer = otel.Tracer("tradeflow/derivation")

// DefaultTaxPercent is applied to every sales invoice line.
var DefaultTaxPercent = decimal.NewFromInt(10)

// creatorColumn is the header column whose foreign key failure is recovered by
// inserting without a creator.
const creatorColumn = "created_by"

// Repositories groups the document stores the pipelines read and write.
type Repositories struct {
	Deliveries       delivery.Repository
	SalesOrders      sales_order.Repository
	Quotations       quotation.Repository
	Enquiries        enquiry.Repository
	SupplierQuotes   supplier_quote.Repository
	GoodsReceipts    goods_receipt.Repository
	Invoices         invoice.Repository
	PurchaseInvoices purchase_invoice.Repository
	SupplierLPOs     supplier_lpo.Repository
}

// Observer receives derivation outcomes, typically for metrics.
type Observer interface {
	Derived(kind documents.Kind)
	LineSkipped(kind documents.Kind, reason string)
	ItemsAutoCreated(kind documents.Kind, n int)
	Failed(kind documents.Kind, code string)
}

type nopObserver struct{}

func (nopObserver) Derived(documents.Kind)               {}
func (nopObserver) LineSkipped(documents.Kind, string)   {}
func (nopObserver) ItemsAutoCreated(documents.Kind, int) {}
func (nopObserver) Failed(documents.Kind, string)        {}

// SkippedLine is an upstream line left out of the derived document.
type SkippedLine struct {
	LineRef string `json:"lineRef"`
	Reason  string `json:"reason"`
}

// Skip reasons.
const (
	ReasonUnresolvedItem = "item could not be resolved"
	ReasonZeroQuantity   = "zero quantity"
)

// Service runs the derivation pipelines.
type Service struct {
	repos      Repositories
	resolver   *nomenclature.Resolver
	numerator  numerator.Generator
	txManager  tx.Manager
	taxPercent types.Money
	observer   Observer
	audit      audit.Recorder
	events     events.Publisher
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTaxPercent overrides DefaultTaxPercent.
func WithTaxPercent(p types.Money) Option {
	return func(s *Service) { s.taxPercent = p }
}

// WithObserver registers an outcome observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(r audit.Recorder) Option {
	return func(s *Service) { s.audit = r }
}

// WithEventPublisher sets the outbox publisher.
func WithEventPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// NewService creates a derivation service.
func NewService(
	repos Repositories,
	resolver *nomenclature.Resolver,
	gen numerator.Generator,
	txManager tx.Manager,
	opts ...Option,
) *Service {
	s := &Service{
		repos:      repos,
		resolver:   resolver,
		numerator:  gen,
		txManager:  txManager,
		taxPercent: DefaultTaxPercent,
		observer:   nopObserver{},
		audit:      audit.NopRecorder{},
		events:     events.NopPublisher{},
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run wraps a pipeline in a span and the outer transaction, and reports the
// outcome to the observer.
func (s *Service) run(ctx context.Context, kind documents.Kind, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "derive."+string(kind),
		trace.WithAttributes(attribute.String("derivation.kind", string(kind))))
	defer span.End()

	err := s.txManager.RunInTransaction(ctx, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.observer.Failed(kind, apperror.CodeOf(err))
		logger.Error(ctx, "derivation failed",
			"kind", kind,
			"code", apperror.CodeOf(err),
			"error", err)
		return err
	}
	return nil
}

// insertHeader runs create in a savepoint. A foreign key failure on the
// creator column is retried once with no creator.
func (s *Service) insertHeader(ctx context.Context, doc *entity.BaseDocument, create func(ctx context.Context) error) error {
	_, err := retry.Do(ctx, retry.Policy{
		MaxAttempts: 2,
		Retryable: func(err error) bool {
			return doc.CreatedBy != nil && apperror.IsConstraintOn(err, creatorColumn)
		},
	}, func(ctx context.Context, attempt int) (struct{}, error) {
		if attempt > 0 {
			logger.Warn(ctx, "creator reference rejected, inserting without creator",
				"document_id", doc.ID,
				"created_by", doc.CreatedBy)
			doc.CreatedBy = nil
		}
		return struct{}{}, s.txManager.RunInSavepoint(ctx, create)
	})
	return err
}

// journal records the audit entry and outbox event for a derived document.
func (s *Service) journal(ctx context.Context, doc documents.Derived, eventType string, changes map[string]any) error {
	if err := s.audit.Record(ctx, audit.Entry{
		EntityType: string(doc.Kind()),
		EntityID:   doc.DocumentID(),
		Action:     audit.ActionDerive,
		Changes:    changes,
	}); err != nil {
		return err
	}
	return s.events.Publish(ctx, events.Event{
		AggregateType: string(doc.Kind()),
		AggregateID:   doc.DocumentID(),
		Type:          eventType,
		Payload:       changes,
	})
}

func (s *Service) skip(ctx context.Context, kind documents.Kind, skipped *[]SkippedLine, ref, reason string) {
	*skipped = append(*skipped, SkippedLine{LineRef: ref, Reason: reason})
	s.observer.LineSkipped(kind, reason)
	logger.Warn(ctx, "line skipped",
		"kind", kind,
		"line", ref,
		"reason", reason)
}

// resolveItem resolves c and, when nothing matched, retries with a candidate
// that carries only the description.
func resolveItem(ctx context.Context, session *nomenclature.Session, c nomenclature.Candidate) (nomenclature.Ref, bool, error) {
	ref, ok, err := session.Resolve(ctx, c)
	if err != nil || ok {
		return ref, ok, err
	}
	minimal := nomenclature.Candidate{Description: c.Description, SupplierID: c.SupplierID}
	if minimal == c {
		return ref, false, nil
	}
	return session.Resolve(ctx, minimal)
}
