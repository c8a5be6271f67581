package derivation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/numerator"
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
)

// store is an in-memory implementation of every repository the pipelines use.
type store struct {
	mu sync.Mutex

	deliveries     map[id.ID]*delivery.Delivery
	deliveryLines  map[id.ID][]delivery.Line
	orders         map[id.ID]*sales_order.SalesOrder
	orderLines     map[id.ID][]sales_order.Line
	quotations     map[id.ID]*quotation.Quotation
	quotationLines map[id.ID][]quotation.Line
	enquiryLines   map[id.ID][]enquiry.Line
	supplierQuotes map[id.ID]*supplier_quote.SupplierQuote
	quoteLines     map[id.ID][]supplier_quote.Line
	receipts       map[id.ID]*goods_receipt.GoodsReceipt
	receiptLines   map[id.ID][]goods_receipt.Line

	invoices         []*invoice.Invoice
	invoiceLines     map[id.ID][]invoice.Line
	purchaseInvoices []*purchase_invoice.PurchaseInvoice
	purchaseLines    map[id.ID][]purchase_invoice.Line
	lpos             []*supplier_lpo.SupplierLPO
	lpoLines         map[id.ID][]supplier_lpo.Line

	catalog map[id.ID]*nomenclature.Nomenclature
	users   map[id.ID]bool

	// failOrder makes SalesOrders.GetByID fail with an infrastructure error.
	failOrder map[id.ID]bool
}

func newStore() *store {
	return &store{
		deliveries:     map[id.ID]*delivery.Delivery{},
		deliveryLines:  map[id.ID][]delivery.Line{},
		orders:         map[id.ID]*sales_order.SalesOrder{},
		orderLines:     map[id.ID][]sales_order.Line{},
		quotations:     map[id.ID]*quotation.Quotation{},
		quotationLines: map[id.ID][]quotation.Line{},
		enquiryLines:   map[id.ID][]enquiry.Line{},
		supplierQuotes: map[id.ID]*supplier_quote.SupplierQuote{},
		quoteLines:     map[id.ID][]supplier_quote.Line{},
		receipts:       map[id.ID]*goods_receipt.GoodsReceipt{},
		receiptLines:   map[id.ID][]goods_receipt.Line{},
		invoiceLines:   map[id.ID][]invoice.Line{},
		purchaseLines:  map[id.ID][]purchase_invoice.Line{},
		lpoLines:       map[id.ID][]supplier_lpo.Line{},
		catalog:        map[id.ID]*nomenclature.Nomenclature{},
		users:          map[id.ID]bool{},
		failOrder:      map[id.ID]bool{},
	}
}

func (s *store) repos() Repositories {
	return Repositories{
		Deliveries:       deliveryRepo{s},
		SalesOrders:      orderRepo{s},
		Quotations:       quotationRepo{s},
		Enquiries:        enquiryRepo{s},
		SupplierQuotes:   supplierQuoteRepo{s},
		GoodsReceipts:    receiptRepo{s},
		Invoices:         invoiceRepo{s},
		PurchaseInvoices: purchaseInvoiceRepo{s},
		SupplierLPOs:     lpoRepo{s},
	}
}

func notFound(table string, key id.ID) error { return apperror.NewNotFound(table, key) }

func (s *store) checkCreator(table string, createdBy *id.ID) error {
	if createdBy != nil && !s.users[*createdBy] {
		return apperror.NewConstraintViolation(apperror.ConstraintForeignKey,
			table+"_created_by_fkey", table, "document references a missing user")
	}
	return nil
}

type deliveryRepo struct{ s *store }

func (r deliveryRepo) GetByID(_ context.Context, docID id.ID) (*delivery.Delivery, error) {
	if d, ok := r.s.deliveries[docID]; ok {
		return d, nil
	}
	return nil, notFound("deliveries", docID)
}

func (r deliveryRepo) GetLines(_ context.Context, docID id.ID) ([]delivery.Line, error) {
	return r.s.deliveryLines[docID], nil
}

type orderRepo struct{ s *store }

func (r orderRepo) GetByID(_ context.Context, docID id.ID) (*sales_order.SalesOrder, error) {
	if r.s.failOrder[docID] {
		return nil, fmt.Errorf("connection reset")
	}
	if d, ok := r.s.orders[docID]; ok {
		return d, nil
	}
	return nil, notFound("sales_orders", docID)
}

func (r orderRepo) GetLines(_ context.Context, docID id.ID) ([]sales_order.Line, error) {
	return r.s.orderLines[docID], nil
}

type quotationRepo struct{ s *store }

func (r quotationRepo) GetByID(_ context.Context, docID id.ID) (*quotation.Quotation, error) {
	if d, ok := r.s.quotations[docID]; ok {
		return d, nil
	}
	return nil, notFound("quotations", docID)
}

func (r quotationRepo) GetLines(_ context.Context, docID id.ID) ([]quotation.Line, error) {
	return r.s.quotationLines[docID], nil
}

type enquiryRepo struct{ s *store }

func (r enquiryRepo) GetLines(_ context.Context, docID id.ID) ([]enquiry.Line, error) {
	return r.s.enquiryLines[docID], nil
}

type supplierQuoteRepo struct{ s *store }

func (r supplierQuoteRepo) GetByID(_ context.Context, docID id.ID) (*supplier_quote.SupplierQuote, error) {
	if d, ok := r.s.supplierQuotes[docID]; ok {
		return d, nil
	}
	return nil, notFound("supplier_quotes", docID)
}

func (r supplierQuoteRepo) GetLines(_ context.Context, docID id.ID) ([]supplier_quote.Line, error) {
	return r.s.quoteLines[docID], nil
}

type receiptRepo struct{ s *store }

func (r receiptRepo) GetByID(_ context.Context, docID id.ID) (*goods_receipt.GoodsReceipt, error) {
	if d, ok := r.s.receipts[docID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, notFound("goods_receipts", docID)
}

func (r receiptRepo) GetForUpdate(ctx context.Context, docID id.ID) (*goods_receipt.GoodsReceipt, error) {
	return r.GetByID(ctx, docID)
}

func (r receiptRepo) GetLines(_ context.Context, docID id.ID) ([]goods_receipt.Line, error) {
	return r.s.receiptLines[docID], nil
}

func (r receiptRepo) UpdateStatus(_ context.Context, doc *goods_receipt.GoodsReceipt) error {
	cp := *doc
	r.s.receipts[doc.ID] = &cp
	return nil
}

type invoiceRepo struct{ s *store }

func (r invoiceRepo) Create(_ context.Context, doc *invoice.Invoice) error {
	if err := r.s.checkCreator("invoices", doc.CreatedBy); err != nil {
		return err
	}
	r.s.invoices = append(r.s.invoices, doc)
	return nil
}

func (r invoiceRepo) SaveLines(_ context.Context, docID id.ID, lines []invoice.Line) error {
	r.s.invoiceLines[docID] = lines
	return nil
}

func (r invoiceRepo) GetByID(_ context.Context, docID id.ID) (*invoice.Invoice, error) {
	for _, inv := range r.s.invoices {
		if inv.ID == docID {
			return inv, nil
		}
	}
	return nil, notFound("invoices", docID)
}

func (r invoiceRepo) GetLines(_ context.Context, docID id.ID) ([]invoice.Line, error) {
	return r.s.invoiceLines[docID], nil
}

type purchaseInvoiceRepo struct{ s *store }

func (r purchaseInvoiceRepo) Create(_ context.Context, doc *purchase_invoice.PurchaseInvoice) error {
	if err := r.s.checkCreator("purchase_invoices", doc.CreatedBy); err != nil {
		return err
	}
	r.s.purchaseInvoices = append(r.s.purchaseInvoices, doc)
	return nil
}

func (r purchaseInvoiceRepo) SaveLines(_ context.Context, docID id.ID, lines []purchase_invoice.Line) error {
	r.s.purchaseLines[docID] = lines
	return nil
}

func (r purchaseInvoiceRepo) FindByGoodsReceipt(_ context.Context, receiptID id.ID) (*purchase_invoice.PurchaseInvoice, error) {
	for _, pi := range r.s.purchaseInvoices {
		if pi.GoodsReceiptID == receiptID {
			return pi, nil
		}
	}
	return nil, notFound("purchase_invoices", receiptID)
}

type lpoRepo struct{ s *store }

func (r lpoRepo) Create(_ context.Context, doc *supplier_lpo.SupplierLPO) error {
	if err := r.s.checkCreator("supplier_lpos", doc.CreatedBy); err != nil {
		return err
	}
	r.s.lpos = append(r.s.lpos, doc)
	return nil
}

func (r lpoRepo) SaveLines(_ context.Context, docID id.ID, lines []supplier_lpo.Line) error {
	r.s.lpoLines[docID] = lines
	return nil
}

// catalogRepo backs the resolver with the store's catalog map.
type catalogRepo struct{ s *store }

func (r catalogRepo) GetByID(_ context.Context, itemID id.ID) (*nomenclature.Nomenclature, error) {
	if it, ok := r.s.catalog[itemID]; ok {
		return it, nil
	}
	return nil, notFound("catalog_items", itemID)
}

func (r catalogRepo) FindByCode(_ context.Context, code string) (*nomenclature.Nomenclature, error) {
	for _, it := range r.s.catalog {
		if it.Code == code || (it.SupplierCode != nil && *it.SupplierCode == code) {
			return it, nil
		}
	}
	return nil, apperror.NewNotFound("catalog_items", code)
}

func (r catalogRepo) FindByBarcode(_ context.Context, barcode string) (*nomenclature.Nomenclature, error) {
	for _, it := range r.s.catalog {
		if it.Barcode != nil && *it.Barcode == barcode {
			return it, nil
		}
	}
	return nil, apperror.NewNotFound("catalog_items", barcode)
}

func (r catalogRepo) Create(_ context.Context, item *nomenclature.Nomenclature) error {
	for _, it := range r.s.catalog {
		if it.Code == item.Code {
			return apperror.NewConstraintViolation(apperror.ConstraintUnique, "catalog_items_code_key", "catalog_items", "")
		}
		if it.SupplierCode != nil && item.SupplierCode != nil && *it.SupplierCode == *item.SupplierCode {
			return apperror.NewConstraintViolation(apperror.ConstraintUnique, "catalog_items_supplier_code_key", "catalog_items", "")
		}
	}
	r.s.catalog[item.ID] = item
	return nil
}

// rollbackTx snapshots the write side of the store and restores it when the
// unit of work fails, so tests can assert that nothing was persisted.
type rollbackTx struct{ s *store }

func (m rollbackTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	invoices, pis, lpos := len(m.s.invoices), len(m.s.purchaseInvoices), len(m.s.lpos)
	catalog := make(map[id.ID]*nomenclature.Nomenclature, len(m.s.catalog))
	for k, v := range m.s.catalog {
		catalog[k] = v
	}
	if err := fn(ctx); err != nil {
		m.s.invoices = m.s.invoices[:invoices]
		m.s.purchaseInvoices = m.s.purchaseInvoices[:pis]
		m.s.lpos = m.s.lpos[:lpos]
		m.s.catalog = catalog
		return err
	}
	return nil
}

func (m rollbackTx) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ tx.Manager = rollbackTx{}

// recorder captures observer, audit and outbox calls.
type recorder struct {
	mu          sync.Mutex
	derived     map[documents.Kind]int
	skipped     map[string]int
	autoCreated map[documents.Kind]int
	failed      map[string]int
	audits      []audit.Entry
	events      []events.Event
}

func newRecorder() *recorder {
	return &recorder{
		derived:     map[documents.Kind]int{},
		skipped:     map[string]int{},
		autoCreated: map[documents.Kind]int{},
		failed:      map[string]int{},
	}
}

func (r *recorder) Derived(kind documents.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.derived[kind]++
}

func (r *recorder) LineSkipped(_ documents.Kind, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped[reason]++
}

func (r *recorder) ItemsAutoCreated(kind documents.Kind, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoCreated[kind] += n
}

func (r *recorder) Failed(kind documents.Kind, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[string(kind)+":"+code]++
}

func (r *recorder) Record(_ context.Context, e audit.Entry) error {
	r.audits = append(r.audits, e)
	return nil
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	store *store
	rec   *recorder
	gen   *numerator.MockGenerator
	svc   *Service
}

func newFixture(resolverOpts ...nomenclature.ResolverOption) *fixture {
	st := newStore()
	rec := newRecorder()
	gen := &numerator.MockGenerator{}
	txm := rollbackTx{st}
	resolver := nomenclature.NewResolver(catalogRepo{st}, txm, resolverOpts...)
	svc := NewService(st.repos(), resolver, gen, txm,
		WithObserver(rec),
		WithAuditRecorder(rec),
		WithEventPublisher(rec),
	)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return &fixture{store: st, rec: rec, gen: gen, svc: svc}
}

func money(s string) types.Money { return types.MustMoney(s) }

func ptr(v id.ID) *id.ID { return &v }

func (f *fixture) addItem(code, name, barcode string) *nomenclature.Nomenclature {
	it := &nomenclature.Nomenclature{Catalog: entity.NewCatalog(code, name)}
	if barcode != "" {
		it.Barcode = &barcode
	}
	f.store.catalog[it.ID] = it
	return it
}

func (f *fixture) addOrder(currency string, lines ...sales_order.Line) *sales_order.SalesOrder {
	so := &sales_order.SalesOrder{Document: entity.NewDocument(currency), CustomerID: id.New()}
	so.Number = fmt.Sprintf("SO-%d", len(f.store.orders)+1)
	for i := range lines {
		if id.IsNil(lines[i].LineID) {
			lines[i].LineID = id.New()
		}
		lines[i].LineNo = i + 1
	}
	f.store.orders[so.ID] = so
	f.store.orderLines[so.ID] = lines
	return so
}

func (f *fixture) addDelivery(so *sales_order.SalesOrder, lines ...delivery.Line) *delivery.Delivery {
	d := &delivery.Delivery{Document: entity.NewDocument(so.Currency), CustomerID: so.CustomerID}
	d.Number = fmt.Sprintf("DN-%d", len(f.store.deliveries)+1)
	d.SalesOrderID = ptr(so.ID)
	for i := range lines {
		if id.IsNil(lines[i].LineID) {
			lines[i].LineID = id.New()
		}
		lines[i].LineNo = i + 1
	}
	f.store.deliveries[d.ID] = d
	f.store.deliveryLines[d.ID] = lines
	return d
}

func (f *fixture) addQuotation(so *sales_order.SalesOrder, headerDiscount string, lines ...quotation.Line) *quotation.Quotation {
	q := &quotation.Quotation{Document: entity.NewDocument(so.Currency), CustomerID: so.CustomerID}
	q.DiscountAmount = money(headerDiscount)
	for i := range lines {
		lines[i].LineID = id.New()
		lines[i].LineNo = i + 1
	}
	f.store.quotations[q.ID] = q
	f.store.quotationLines[q.ID] = lines
	so.QuotationID = ptr(q.ID)
	return q
}

func pricingOf(qty, price string) documents.LinePricing {
	return documents.LinePricing{Quantity: money(qty), UnitPrice: money(price)}
}
