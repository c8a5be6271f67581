package derivation

import (
	"context"
	"fmt"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/numerator"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/audit"
	"tradeflow/internal/domain/catalogs/nomenclature"
	"tradeflow/internal/domain/documents"
	"tradeflow/internal/domain/documents/delivery"
	"tradeflow/internal/domain/documents/enquiry"
	"tradeflow/internal/domain/documents/invoice"
	"tradeflow/internal/domain/documents/quotation"
	"tradeflow/internal/domain/documents/sales_order"
	"tradeflow/internal/domain/events"
	"tradeflow/internal/domain/pricing"
	"tradeflow/pkg/logger"
)

// DeliveryInvoiceRequest selects a delivery and, for partial invoicing, a
// subset of its lines.
type DeliveryInvoiceRequest struct {
	DeliveryID id.ID
	LineIDs    []id.ID
}

// InvoiceResult is the outcome of a delivery derivation.
type InvoiceResult struct {
	Invoice     *invoice.Invoice `json:"invoice"`
	Skipped     []SkippedLine    `json:"skipped"`
	AutoCreated int              `json:"autoCreated"`
}

// deliverySources is everything upstream of the invoice.
type deliverySources struct {
	delivery       *delivery.Delivery
	lines          []delivery.Line
	virtual        bool
	order          *sales_order.SalesOrder
	orderLines     []sales_order.Line
	quotation      *quotation.Quotation
	quotationLines []quotation.Line
	enquiryLines   []enquiry.Line
}

// InvoiceFromDelivery derives a draft sales invoice from a delivery.
func (s *Service) InvoiceFromDelivery(ctx context.Context, req DeliveryInvoiceRequest) (*InvoiceResult, error) {
	var result *InvoiceResult
	err := s.run(ctx, documents.KindSalesInvoice, func(ctx context.Context) error {
		src, err := s.loadDeliverySources(ctx, req.DeliveryID)
		if err != nil {
			return err
		}
		result, err = s.buildInvoice(ctx, src, req.LineIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.observer.Derived(documents.KindSalesInvoice)
	if result.AutoCreated > 0 {
		s.observer.ItemsAutoCreated(documents.KindSalesInvoice, result.AutoCreated)
	}
	logger.Info(ctx, "invoice derived from delivery",
		"invoice_id", result.Invoice.ID,
		"number", result.Invoice.Number,
		"delivery_id", req.DeliveryID,
		"lines", len(result.Invoice.Lines),
		"skipped", len(result.Skipped),
		"total", result.Invoice.TotalAmount)
	return result, nil
}

func (s *Service) loadDeliverySources(ctx context.Context, deliveryID id.ID) (*deliverySources, error) {
	d, err := s.repos.Deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewReferential("Delivery not found").
				WithDetail("deliveryId", deliveryID)
		}
		return nil, fmt.Errorf("load delivery: %w", err)
	}
	if d.SalesOrderID == nil || id.IsNil(*d.SalesOrderID) {
		return nil, apperror.NewReferential("Delivery must be linked to a sales order").
			WithDetail("deliveryId", deliveryID)
	}

	src := &deliverySources{delivery: d}

	src.order, err = s.repos.SalesOrders.GetByID(ctx, *d.SalesOrderID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewReferential("Sales order linked to the delivery was not found").
				WithDetail("deliveryId", deliveryID).
				WithDetail("salesOrderId", *d.SalesOrderID)
		}
		return nil, fmt.Errorf("load sales order: %w", err)
	}
	if src.orderLines, err = s.repos.SalesOrders.GetLines(ctx, src.order.ID); err != nil {
		return nil, fmt.Errorf("load sales order lines: %w", err)
	}

	if src.order.QuotationID != nil {
		if err := s.loadQuotation(ctx, src, *src.order.QuotationID); err != nil {
			return nil, err
		}
	}

	enquiryID := src.order.EnquiryID
	if enquiryID == nil && src.quotation != nil {
		enquiryID = src.quotation.EnquiryID
	}
	if enquiryID != nil {
		if src.enquiryLines, err = s.repos.Enquiries.GetLines(ctx, *enquiryID); err != nil && !apperror.IsNotFound(err) {
			return nil, fmt.Errorf("load enquiry lines: %w", err)
		}
	}

	if src.lines, err = s.repos.Deliveries.GetLines(ctx, d.ID); err != nil {
		return nil, fmt.Errorf("load delivery lines: %w", err)
	}
	if len(src.lines) == 0 {
		src.lines = virtualDeliveryLines(src.orderLines)
		src.virtual = true
	}
	return src, nil
}

// loadQuotation attaches the sales order's quotation. A dangling link is
// tolerated.
func (s *Service) loadQuotation(ctx context.Context, src *deliverySources, quotationID id.ID) error {
	q, err := s.repos.Quotations.GetByID(ctx, quotationID)
	if apperror.IsNotFound(err) {
		logger.Warn(ctx, "quotation linked to sales order not found",
			"sales_order_id", src.order.ID,
			"quotation_id", quotationID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load quotation: %w", err)
	}
	src.quotation = q
	if src.quotationLines, err = s.repos.Quotations.GetLines(ctx, q.ID); err != nil {
		return fmt.Errorf("load quotation lines: %w", err)
	}
	return nil
}

// virtualDeliveryLines stands in for a delivery recorded without lines: the
// whole sales order is delivered.
func virtualDeliveryLines(orderLines []sales_order.Line) []delivery.Line {
	lines := make([]delivery.Line, 0, len(orderLines))
	for _, ol := range orderLines {
		orderLineID := ol.LineID
		lines = append(lines, delivery.Line{
			LineID:           ol.LineID,
			LineNo:           ol.LineNo,
			SalesOrderLineID: &orderLineID,
			ItemRef:          ol.ItemRef,
			LinePricing:      ol.LinePricing,
		})
	}
	return lines
}

func selectLines(lines []delivery.Line, lineIDs []id.ID) []delivery.Line {
	if len(lineIDs) == 0 {
		return lines
	}
	wanted := make(map[id.ID]struct{}, len(lineIDs))
	for _, v := range lineIDs {
		wanted[v] = struct{}{}
	}
	out := make([]delivery.Line, 0, len(lineIDs))
	for _, l := range lines {
		if _, ok := wanted[l.LineID]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (s *Service) buildInvoice(ctx context.Context, src *deliverySources, lineIDs []id.ID) (*InvoiceResult, error) {
	lines := selectLines(src.lines, lineIDs)
	if len(lines) == 0 {
		return nil, apperror.NewComputation("None of the requested delivery lines exist", 0, 0).
			WithDetail("deliveryId", src.delivery.ID)
	}

	currency := types.FirstNonEmpty(src.delivery.Currency, src.order.Currency)
	calc := pricing.NewCalculator(currency)
	session := s.resolver.NewSession()

	orderIdx := newLineIndex(src.orderLines, func(l sales_order.Line) (id.ID, *id.ID, string) {
		return l.LineID, l.ItemID, l.Description
	})
	quoteIdx := newLineIndex(src.quotationLines, func(l quotation.Line) (id.ID, *id.ID, string) {
		return l.LineID, l.ItemID, l.Description
	})
	enquiryIdx := newLineIndex(src.enquiryLines, func(l enquiry.Line) (id.ID, *id.ID, string) {
		return l.LineID, l.ItemID, l.Description
	})
	alloc := newHeaderDiscount(src.quotation, src.quotationLines, calc.Scale())

	result := &InvoiceResult{}
	out := make([]invoice.Line, 0, len(lines))
	for _, dl := range lines {
		ref := fmt.Sprintf("delivery line %d", dl.LineNo)

		ol, _ := orderIdx.match(dl.SalesOrderLineID, dl.ItemID, dl.Description)
		itemID := firstID(dl.ItemID, ol.ItemID)
		descKey := types.FirstNonEmpty(dl.Description, ol.Description)
		ql, _ := quoteIdx.match(nil, itemID, descKey)
		el, _ := enquiryIdx.match(nil, itemID, descKey)

		qty := firstPositive(dl.Quantity, ol.Quantity)
		price := firstPositive(dl.UnitPrice, ol.UnitPrice)
		if !qty.IsPositive() {
			s.skip(ctx, documents.KindSalesInvoice, &result.Skipped, ref, ReasonZeroQuantity)
			continue
		}

		candidate := nomenclature.Candidate{
			SupplierCode: types.FirstNonEmpty(dl.SupplierCode, ol.SupplierCode, ql.SupplierCode),
			Barcode:      types.FirstNonEmpty(dl.Barcode, ol.Barcode, ql.Barcode),
			Description: types.FirstNonEmpty(ql.Description, ol.Description, dl.Description, el.Description,
				nomenclature.DefaultDescription),
			SupplierID: firstID(ol.SupplierID, src.order.SupplierID),
		}
		if itemID != nil {
			candidate.ItemID = itemID.String()
		}

		item, ok, err := resolveItem(ctx, session, candidate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		if !ok {
			s.skip(ctx, documents.KindSalesInvoice, &result.Skipped, ref, ReasonUnresolvedItem)
			continue
		}

		in := pricing.LineInput{
			Quantity:   qty,
			UnitPrice:  price,
			TaxPercent: s.taxPercent,
		}
		in.DiscountAmount = firstPositive(dl.DiscountAmount, ol.DiscountAmount, ql.DiscountAmount)
		if !in.DiscountAmount.IsPositive() {
			in.DiscountPercent = firstPositive(dl.DiscountPercent, ol.DiscountPercent, ql.DiscountPercent)
			if !in.DiscountPercent.IsPositive() {
				in.DiscountAmount = alloc.share(types.Round(qty.Mul(price), calc.Scale()))
			}
		}

		line := invoice.Line{
			LineID:          id.New(),
			LineNo:          len(out) + 1,
			ItemID:          item.ID,
			Description:     types.FirstNonEmpty(item.Description, candidate.Description),
			Quantity:        qty,
			UnitPrice:       price,
			DiscountPercent: in.DiscountPercent,
			TaxPercent:      s.taxPercent,
			LineAmounts:     calc.Compute(in),
		}
		if !src.virtual {
			deliveryLineID := dl.LineID
			line.DeliveryLineID = &deliveryLineID
		}
		out = append(out, line)
	}

	result.AutoCreated = len(session.Created())
	if len(out) == 0 {
		return nil, apperror.NewComputation("No invoice lines could be processed", 0, len(result.Skipped)).
			WithDetail("deliveryId", src.delivery.ID)
	}

	amounts := make([]pricing.LineAmounts, len(out))
	for i, l := range out {
		amounts[i] = l.LineAmounts
	}
	totals := calc.Aggregate(amounts)
	if !totals.Subtotal.IsPositive() {
		net := types.Zero()
		for _, a := range amounts {
			net = net.Add(a.NetAmount)
		}
		totals.Subtotal = types.Round(net, calc.Scale())
	}
	if !totals.Subtotal.IsPositive() {
		return nil, apperror.NewComputation("Invoice subtotal must be greater than zero", len(out), len(result.Skipped)).
			WithDetail("deliveryId", src.delivery.ID)
	}

	customerID := src.delivery.CustomerID
	if id.IsNil(customerID) {
		customerID = src.order.CustomerID
	}
	inv := invoice.New(currency, src.delivery.ID, src.order.ID, customerID)
	inv.Date = s.now()
	inv.DocumentTotals = totals
	inv.Lines = out
	inv.Comment = fmt.Sprintf("Derived from delivery %s", src.delivery.Number)
	audit.EnrichCreatedBy(ctx, &inv.BaseDocument)

	if err := inv.Validate(ctx); err != nil {
		return nil, err
	}

	inv.Number = s.numerator.Next(ctx, numerator.DefaultConfig(numerator.PrefixInvoice, "invoices"))
	if err := s.insertHeader(ctx, &inv.BaseDocument, func(ctx context.Context) error {
		return s.repos.Invoices.Create(ctx, inv)
	}); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	if err := s.repos.Invoices.SaveLines(ctx, inv.ID, inv.Lines); err != nil {
		return nil, fmt.Errorf("save invoice lines: %w", err)
	}

	if err := s.journal(ctx, inv, events.InvoiceDerived, map[string]any{
		"number":       inv.Number,
		"deliveryId":   inv.DeliveryID,
		"salesOrderId": inv.SalesOrderID,
		"lines":        len(inv.Lines),
		"skipped":      len(result.Skipped),
		"totalAmount":  inv.TotalAmount,
	}); err != nil {
		return nil, fmt.Errorf("journal invoice: %w", err)
	}

	result.Invoice = inv
	return result, nil
}

// headerDiscount spreads a quotation's header discount over invoice lines by
// their share of the quotation gross subtotal. It applies only when no
// quotation line carries its own discount.
type headerDiscount struct {
	amount types.Money
	gross  types.Money
	scale  int32
}

func newHeaderDiscount(q *quotation.Quotation, lines []quotation.Line, scale int32) headerDiscount {
	if q == nil || !q.DiscountAmount.IsPositive() || quotation.HasLineDiscounts(lines) {
		return headerDiscount{}
	}
	return headerDiscount{
		amount: q.DiscountAmount,
		gross:  quotation.GrossSubtotal(lines),
		scale:  scale,
	}
}

func (h headerDiscount) share(lineGross types.Money) types.Money {
	if !h.amount.IsPositive() || !h.gross.IsPositive() {
		return types.Zero()
	}
	return types.Round(h.amount.Mul(lineGross).Div(h.gross), h.scale)
}
