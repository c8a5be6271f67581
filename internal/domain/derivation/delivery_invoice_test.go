package derivation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core/apperror"
	appctx "tradeflow/internal/core/context"
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/catalogs/nomenclature"
	"tradeflow/internal/domain/documents"
	"tradeflow/internal/domain/documents/delivery"
	"tradeflow/internal/domain/documents/enquiry"
	"tradeflow/internal/domain/documents/quotation"
	"tradeflow/internal/domain/documents/sales_order"
	"tradeflow/internal/domain/events"
)

func assertMoney(t *testing.T, want string, got interface{ String() string }) {
	t.Helper()
	assert.Equal(t, money(want).String(), got.String())
}

func TestInvoiceFromDelivery_ComputesLinesAndTotals(t *testing.T) {
	f := newFixture()
	widget := f.addItem("SUP-1", "Widget", "")
	gadget := f.addItem("SUP-2", "Gadget", "")

	so := f.addOrder("USD",
		sales_order.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("2", "50")},
		sales_order.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-2"}, LinePricing: pricingOf("3", "75")},
	)
	l1 := delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1", Description: "widget"}, LinePricing: pricingOf("2", "50")}
	l1.DiscountPercent = money("5")
	l2 := delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-2"}, LinePricing: pricingOf("3", "75")}
	l2.DiscountPercent = money("15")
	d := f.addDelivery(so, l1, l2)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	inv := res.Invoice
	assert.Equal(t, "INV-MOCK-00001", inv.Number)
	assert.Equal(t, entity.StatusDraft, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, d.ID, inv.DeliveryID)
	assert.Equal(t, so.ID, inv.SalesOrderID)
	assert.Equal(t, so.CustomerID, inv.CustomerID)
	assert.Empty(t, res.Skipped)
	assert.Zero(t, res.AutoCreated)

	require.Len(t, inv.Lines, 2)
	first, second := inv.Lines[0], inv.Lines[1]
	assert.Equal(t, widget.ID, first.ItemID)
	assert.Equal(t, "Widget", first.Description)
	require.NotNil(t, first.DeliveryLineID)
	assert.Equal(t, f.store.deliveryLines[d.ID][0].LineID, *first.DeliveryLineID)
	assertMoney(t, "100", first.GrossAmount)
	assertMoney(t, "5", first.DiscountAmount)
	assertMoney(t, "95", first.NetAmount)
	assertMoney(t, "9.5", first.TaxAmount)
	assertMoney(t, "104.5", first.TotalAmount)

	assert.Equal(t, gadget.ID, second.ItemID)
	assertMoney(t, "225", second.GrossAmount)
	assertMoney(t, "33.75", second.DiscountAmount)
	assertMoney(t, "191.25", second.NetAmount)
	assertMoney(t, "19.13", second.TaxAmount)
	assertMoney(t, "210.38", second.TotalAmount)

	assertMoney(t, "325", inv.GrossSubtotal)
	assertMoney(t, "38.75", inv.DiscountAmount)
	assertMoney(t, "286.25", inv.Subtotal)
	assertMoney(t, "28.63", inv.TaxAmount)
	assertMoney(t, "314.88", inv.TotalAmount)

	require.Len(t, f.store.invoices, 1)
	assert.Len(t, f.store.invoiceLines[inv.ID], 2)
	require.Len(t, f.rec.events, 1)
	assert.Equal(t, events.InvoiceDerived, f.rec.events[0].Type)
	assert.Equal(t, inv.ID, f.rec.events[0].AggregateID)
	require.Len(t, f.rec.audits, 1)
	assert.Equal(t, string(documents.KindSalesInvoice), f.rec.audits[0].EntityType)
	assert.Equal(t, 1, f.rec.derived[documents.KindSalesInvoice])
}

func TestInvoiceFromDelivery_RequiresSalesOrder(t *testing.T) {
	f := newFixture()
	so := f.addOrder("USD", sales_order.Line{LinePricing: pricingOf("1", "10")})
	d := f.addDelivery(so, delivery.Line{ItemRef: documents.ItemRef{Description: "new thing"}, LinePricing: pricingOf("1", "10")})
	d.SalesOrderID = nil

	_, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeReferential, appErr.Code)
	assert.Equal(t, "Delivery must be linked to a sales order", appErr.Message)
	assert.Empty(t, f.store.invoices)
	assert.Empty(t, f.store.catalog)
	assert.Empty(t, f.rec.events)
	assert.Equal(t, 1, f.rec.failed["sales_invoice:REFERENTIAL_ERROR"])
}

func TestInvoiceFromDelivery_MissingUpstream(t *testing.T) {
	f := newFixture()

	_, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: id.New()})
	assert.Equal(t, apperror.CodeReferential, apperror.CodeOf(err))

	so := f.addOrder("USD")
	d := f.addDelivery(so)
	delete(f.store.orders, so.ID)
	_, err = f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	assert.Equal(t, apperror.CodeReferential, apperror.CodeOf(err))

	so = f.addOrder("USD")
	d = f.addDelivery(so)
	f.store.failOrder[so.ID] = true
	_, err = f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	assert.ErrorContains(t, err, "load sales order")
	assert.Equal(t, apperror.CodeInternal, apperror.CodeOf(err))
}

func TestInvoiceFromDelivery_VirtualLinesFromSalesOrder(t *testing.T) {
	f := newFixture()
	f.addItem("SUP-1", "Widget", "")
	so := f.addOrder("USD",
		sales_order.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("4", "25")},
		sales_order.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("1", "10")},
	)
	d := f.addDelivery(so)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	require.Len(t, res.Invoice.Lines, 2)
	for i, l := range res.Invoice.Lines {
		assert.Equal(t, i+1, l.LineNo)
		assert.Nil(t, l.DeliveryLineID)
	}
	assertMoney(t, "100", res.Invoice.Lines[0].GrossAmount)
	assertMoney(t, "10", res.Invoice.Lines[1].GrossAmount)
	assertMoney(t, "110", res.Invoice.Subtotal)
}

func TestInvoiceFromDelivery_QuantityAndPriceFallBackToOrderLine(t *testing.T) {
	f := newFixture()
	f.addItem("SUP-1", "Widget", "")
	so := f.addOrder("USD", sales_order.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("3", "12.5")})
	orderLine := f.store.orderLines[so.ID][0]
	d := f.addDelivery(so, delivery.Line{SalesOrderLineID: ptr(orderLine.LineID)})

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	line := res.Invoice.Lines[0]
	assertMoney(t, "3", line.Quantity)
	assertMoney(t, "12.5", line.UnitPrice)
	assertMoney(t, "37.5", line.GrossAmount)
}

func TestInvoiceFromDelivery_LineSubset(t *testing.T) {
	f := newFixture()
	f.addItem("SUP-1", "Widget", "")
	so := f.addOrder("USD")
	d := f.addDelivery(so,
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("1", "10")},
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("2", "10")},
	)
	second := f.store.deliveryLines[d.ID][1].LineID

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID, LineIDs: []id.ID{second}})
	require.NoError(t, err)
	require.Len(t, res.Invoice.Lines, 1)
	assert.Equal(t, second, *res.Invoice.Lines[0].DeliveryLineID)
	assertMoney(t, "20", res.Invoice.Subtotal)

	_, err = f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID, LineIDs: []id.ID{id.New()}})
	assert.Equal(t, apperror.CodeComputation, apperror.CodeOf(err))
}

func TestInvoiceFromDelivery_DescriptionPriority(t *testing.T) {
	f := newFixture()
	so := f.addOrder("USD",
		sales_order.Line{ItemRef: documents.ItemRef{Description: "Steel Pipe 2in."}, LinePricing: pricingOf("1", "10")},
	)
	f.addQuotation(so, "0", quotation.Line{ItemRef: documents.ItemRef{Description: "STEEL PIPE 2IN (galv.)"}, LinePricing: pricingOf("1", "10")},
		quotation.Line{ItemRef: documents.ItemRef{Description: "steel pipe 2in"}, LinePricing: pricingOf("1", "10")})

	staleItem := id.New()
	enquiryID := id.New()
	so.EnquiryID = &enquiryID
	f.store.enquiryLines[enquiryID] = []enquiry.Line{{LineID: id.New(), ItemRef: documents.ItemRef{ItemID: &staleItem, Description: "From enquiry"}}}

	d := f.addDelivery(so,
		delivery.Line{ItemRef: documents.ItemRef{Description: "steel  pipe 2IN"}, LinePricing: pricingOf("1", "10")},
		delivery.Line{ItemRef: documents.ItemRef{ItemID: &staleItem}, LinePricing: pricingOf("1", "10")},
		delivery.Line{LinePricing: pricingOf("1", "10")},
	)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	require.Len(t, res.Invoice.Lines, 3)
	assert.Equal(t, "steel pipe 2in", res.Invoice.Lines[0].Description)
	assert.Equal(t, "From enquiry", res.Invoice.Lines[1].Description)
	assert.Equal(t, nomenclature.DefaultDescription, res.Invoice.Lines[2].Description)
	assert.Equal(t, 3, res.AutoCreated)
	assert.Equal(t, 3, f.rec.autoCreated[documents.KindSalesInvoice])
}

func TestInvoiceFromDelivery_CatalogDescriptionWins(t *testing.T) {
	f := newFixture()
	item := f.addItem("SUP-9", "Catalog Name", "")
	so := f.addOrder("USD", sales_order.Line{ItemRef: documents.ItemRef{ItemID: ptr(item.ID), Description: "order text"}, LinePricing: pricingOf("1", "5")})
	f.addQuotation(so, "0", quotation.Line{ItemRef: documents.ItemRef{ItemID: ptr(item.ID), Description: "quote text"}, LinePricing: pricingOf("1", "5")})
	d := f.addDelivery(so)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)
	assert.Equal(t, "Catalog Name", res.Invoice.Lines[0].Description)
	assert.Equal(t, item.ID, res.Invoice.Lines[0].ItemID)
}

func TestInvoiceFromDelivery_ProratesQuotationHeaderDiscount(t *testing.T) {
	f := newFixture()
	a := f.addItem("A", "Alpha", "")
	b := f.addItem("B", "Beta", "")
	so := f.addOrder("USD")
	f.addQuotation(so, "40",
		quotation.Line{ItemRef: documents.ItemRef{ItemID: ptr(a.ID)}, LinePricing: pricingOf("2", "50")},
		quotation.Line{ItemRef: documents.ItemRef{ItemID: ptr(b.ID)}, LinePricing: pricingOf("1", "300")},
	)
	d := f.addDelivery(so,
		delivery.Line{ItemRef: documents.ItemRef{ItemID: ptr(a.ID)}, LinePricing: pricingOf("2", "50")},
		delivery.Line{ItemRef: documents.ItemRef{ItemID: ptr(b.ID)}, LinePricing: pricingOf("1", "300")},
	)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	lines := res.Invoice.Lines
	assertMoney(t, "10", lines[0].DiscountAmount)
	assertMoney(t, "90", lines[0].NetAmount)
	assertMoney(t, "30", lines[1].DiscountAmount)
	assertMoney(t, "270", lines[1].NetAmount)
	assertMoney(t, "40", res.Invoice.DiscountAmount)
	assertMoney(t, "360", res.Invoice.Subtotal)
}

func TestInvoiceFromDelivery_NoProrationWhenQuotationHasLineDiscounts(t *testing.T) {
	f := newFixture()
	a := f.addItem("A", "Alpha", "")
	b := f.addItem("B", "Beta", "")
	so := f.addOrder("USD")
	discounted := quotation.Line{ItemRef: documents.ItemRef{ItemID: ptr(a.ID)}, LinePricing: pricingOf("2", "50")}
	discounted.DiscountPercent = money("10")
	f.addQuotation(so, "40",
		discounted,
		quotation.Line{ItemRef: documents.ItemRef{ItemID: ptr(b.ID)}, LinePricing: pricingOf("1", "300")},
	)
	d := f.addDelivery(so,
		delivery.Line{ItemRef: documents.ItemRef{ItemID: ptr(a.ID)}, LinePricing: pricingOf("2", "50")},
		delivery.Line{ItemRef: documents.ItemRef{ItemID: ptr(b.ID)}, LinePricing: pricingOf("1", "300")},
	)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	assertMoney(t, "10", res.Invoice.Lines[0].DiscountAmount)
	assertMoney(t, "10", res.Invoice.Lines[0].DiscountPercent)
	assertMoney(t, "0", res.Invoice.Lines[1].DiscountAmount)
}

func TestInvoiceFromDelivery_DiscountPrecedenceAndCap(t *testing.T) {
	f := newFixture()
	f.addItem("SUP-1", "Widget", "")
	ref := documents.ItemRef{SupplierCode: "SUP-1"}

	orderLine := sales_order.Line{ItemRef: ref, LinePricing: pricingOf("1", "100")}
	orderLine.DiscountPercent = money("20")
	so := f.addOrder("USD", orderLine)
	orderLineID := f.store.orderLines[so.ID][0].LineID

	explicit := delivery.Line{ItemRef: ref, LinePricing: pricingOf("1", "100"), SalesOrderLineID: &orderLineID}
	explicit.DiscountAmount = money("7")
	explicit.DiscountPercent = money("50")
	fromOrder := delivery.Line{ItemRef: ref, LinePricing: pricingOf("1", "100"), SalesOrderLineID: &orderLineID}
	capped := delivery.Line{ItemRef: ref, LinePricing: pricingOf("1", "100")}
	capped.DiscountAmount = money("500")
	d := f.addDelivery(so, explicit, fromOrder, capped)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	lines := res.Invoice.Lines
	assertMoney(t, "7", lines[0].DiscountAmount)
	assertMoney(t, "20", lines[1].DiscountAmount)
	assertMoney(t, "99.9", lines[2].DiscountAmount)
	assertMoney(t, "0.1", lines[2].NetAmount)
	for _, l := range lines {
		assert.True(t, l.NetAmount.GreaterThanOrEqual(money("0.01")))
		assert.True(t, l.TotalAmount.Equal(l.NetAmount.Add(l.TaxAmount)))
	}
}

func TestInvoiceFromDelivery_SoftSkipUnresolvedLines(t *testing.T) {
	f := newFixture(nomenclature.WithPolicy(nomenclature.Strict{}))
	f.addItem("SUP-1", "Widget", "")
	so := f.addOrder("USD")
	d := f.addDelivery(so,
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("1", "10")},
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "GHOST"}, LinePricing: pricingOf("1", "10")},
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("0", "10")},
	)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	require.Len(t, res.Invoice.Lines, 1)
	assert.Equal(t, []SkippedLine{
		{LineRef: "delivery line 2", Reason: ReasonUnresolvedItem},
		{LineRef: "delivery line 3", Reason: ReasonZeroQuantity},
	}, res.Skipped)
	assert.Equal(t, 1, f.rec.skipped[ReasonUnresolvedItem])
}

func TestInvoiceFromDelivery_NoProcessableLines(t *testing.T) {
	f := newFixture(nomenclature.WithPolicy(nomenclature.Strict{}))
	so := f.addOrder("USD")
	d := f.addDelivery(so,
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "X"}, LinePricing: pricingOf("1", "10")},
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "Y"}, LinePricing: pricingOf("1", "10")},
	)

	_, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeComputation, appErr.Code)
	assert.Equal(t, "No invoice lines could be processed", appErr.Message)
	assert.Equal(t, 0, appErr.Details["processed"])
	assert.Equal(t, 2, appErr.Details["skipped"])
	assert.Empty(t, f.store.invoices)
}

func TestInvoiceFromDelivery_SameSupplierCodeCreatesOneItem(t *testing.T) {
	f := newFixture()
	so := f.addOrder("USD")
	d := f.addDelivery(so,
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "NEW-1", Description: "Bolt"}, LinePricing: pricingOf("1", "1")},
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "NEW-1", Description: "Bolt M8"}, LinePricing: pricingOf("2", "1")},
	)

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	assert.Equal(t, res.Invoice.Lines[0].ItemID, res.Invoice.Lines[1].ItemID)
	assert.Len(t, f.store.catalog, 1)
	assert.Equal(t, 1, res.AutoCreated)

	// A later derivation finds the item through its stored supplier code.
	next := f.addDelivery(so,
		delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "NEW-1", Description: "Bolt"}, LinePricing: pricingOf("4", "1")},
	)
	res2, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: next.ID})
	require.NoError(t, err)

	assert.Equal(t, res.Invoice.Lines[0].ItemID, res2.Invoice.Lines[0].ItemID)
	assert.Zero(t, res2.AutoCreated)
	assert.Len(t, f.store.catalog, 1)
}

func TestInvoiceFromDelivery_CreatorForeignKeyRetried(t *testing.T) {
	f := newFixture()
	f.addItem("SUP-1", "Widget", "")
	so := f.addOrder("USD")
	d := f.addDelivery(so, delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("1", "10")})

	ghost := id.New()
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: ghost.String()})
	res, err := f.svc.InvoiceFromDelivery(ctx, DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)
	assert.Nil(t, res.Invoice.CreatedBy)

	known := id.New()
	f.store.users[known] = true
	ctx = appctx.WithUser(context.Background(), &appctx.UserContext{UserID: known.String()})
	res, err = f.svc.InvoiceFromDelivery(ctx, DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Invoice.CreatedBy)
	assert.Equal(t, known, *res.Invoice.CreatedBy)
}

func TestInvoiceFromDelivery_Deterministic(t *testing.T) {
	f := newFixture()
	f.addItem("SUP-1", "Widget", "")
	so := f.addOrder("USD")
	line := delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("3", "33.333")}
	line.DiscountPercent = money("7.5")
	d := f.addDelivery(so, line, line)

	first, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)
	second, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	require.Len(t, second.Invoice.Lines, len(first.Invoice.Lines))
	for i := range first.Invoice.Lines {
		diff := first.Invoice.Lines[i].TotalAmount.Sub(second.Invoice.Lines[i].TotalAmount).Abs()
		assert.True(t, diff.LessThanOrEqual(money("0.01")))
	}
	assert.NotEqual(t, first.Invoice.Number, second.Invoice.Number)
}

func TestInvoiceFromDelivery_ThreeDecimalCurrency(t *testing.T) {
	f := newFixture()
	f.addItem("SUP-1", "Widget", "")
	so := f.addOrder("BHD")
	d := f.addDelivery(so, delivery.Line{ItemRef: documents.ItemRef{SupplierCode: "SUP-1"}, LinePricing: pricingOf("3", "1.111")})

	res, err := f.svc.InvoiceFromDelivery(context.Background(), DeliveryInvoiceRequest{DeliveryID: d.ID})
	require.NoError(t, err)

	assertMoney(t, "3.333", res.Invoice.Lines[0].GrossAmount)
	assertMoney(t, "0.333", res.Invoice.Lines[0].TaxAmount)
	assertMoney(t, "3.666", res.Invoice.TotalAmount)
}
