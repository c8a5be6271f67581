package derivation

import (
	"context"
	"fmt"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/numerator"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain"
	"tradeflow/internal/domain/audit"
	"tradeflow/internal/domain/catalogs/nomenclature"
	"tradeflow/internal/domain/documents"
	"tradeflow/internal/domain/documents/goods_receipt"
	"tradeflow/internal/domain/documents/purchase_invoice"
	"tradeflow/internal/domain/events"
	"tradeflow/pkg/logger"
)

// PurchaseInvoiceResult is the outcome of a goods receipt derivation.
type PurchaseInvoiceResult struct {
	Invoice     *purchase_invoice.PurchaseInvoice `json:"invoice"`
	Skipped     []SkippedLine                     `json:"skipped"`
	AutoCreated int                               `json:"autoCreated"`

	// AlreadyDerived is set when the receipt was invoiced earlier; Invoice is
	// then the existing document without lines.
	AlreadyDerived bool `json:"alreadyDerived"`
}

// RegisterReceiptHooks derives a purchase invoice whenever a goods receipt is
// approved.
func (s *Service) RegisterReceiptHooks(hooks *domain.HookRegistry[*goods_receipt.GoodsReceipt]) {
	hooks.OnAfterApprove(func(ctx context.Context, gr *goods_receipt.GoodsReceipt) error {
		_, err := s.PurchaseInvoiceFromReceipt(ctx, gr.ID)
		return err
	})
}

// PurchaseInvoiceFromReceipt derives a draft purchase invoice from an approved
// goods receipt. Line totals carry max(received, expected) × unit cost with no
// discount and no tax.
func (s *Service) PurchaseInvoiceFromReceipt(ctx context.Context, receiptID id.ID) (*PurchaseInvoiceResult, error) {
	var result *PurchaseInvoiceResult
	err := s.run(ctx, documents.KindPurchaseInvoice, func(ctx context.Context) error {
		gr, err := s.repos.GoodsReceipts.GetByID(ctx, receiptID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewReferential("Goods receipt not found").
					WithDetail("goodsReceiptId", receiptID)
			}
			return fmt.Errorf("load goods receipt: %w", err)
		}
		if !gr.IsApproved() {
			return apperror.NewBusinessRule("RECEIPT_NOT_APPROVED", "Goods receipt must be approved before invoicing").
				WithDetail("goodsReceiptId", receiptID)
		}

		existing, err := s.repos.PurchaseInvoices.FindByGoodsReceipt(ctx, receiptID)
		switch {
		case err == nil:
			result = &PurchaseInvoiceResult{Invoice: existing, AlreadyDerived: true}
			return nil
		case !apperror.IsNotFound(err):
			return fmt.Errorf("find purchase invoice: %w", err)
		}

		if gr.Lines, err = s.repos.GoodsReceipts.GetLines(ctx, receiptID); err != nil {
			return fmt.Errorf("load goods receipt lines: %w", err)
		}
		result, err = s.buildPurchaseInvoice(ctx, gr)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyDerived {
		logger.Info(ctx, "goods receipt already invoiced",
			"goods_receipt_id", receiptID,
			"invoice_id", result.Invoice.ID,
			"number", result.Invoice.Number)
		return result, nil
	}

	s.observer.Derived(documents.KindPurchaseInvoice)
	if result.AutoCreated > 0 {
		s.observer.ItemsAutoCreated(documents.KindPurchaseInvoice, result.AutoCreated)
	}
	logger.Info(ctx, "purchase invoice derived from goods receipt",
		"invoice_id", result.Invoice.ID,
		"number", result.Invoice.Number,
		"goods_receipt_id", receiptID,
		"lines", len(result.Invoice.Lines),
		"skipped", len(result.Skipped),
		"total", result.Invoice.TotalAmount)
	return result, nil
}

func (s *Service) buildPurchaseInvoice(ctx context.Context, gr *goods_receipt.GoodsReceipt) (*PurchaseInvoiceResult, error) {
	scale := types.ScaleFor(gr.Currency)
	session := s.resolver.NewSession()
	supplierID := gr.SupplierID

	result := &PurchaseInvoiceResult{}
	out := make([]purchase_invoice.Line, 0, len(gr.Lines))
	subtotal := types.Zero()
	for _, gl := range gr.Lines {
		ref := fmt.Sprintf("goods receipt line %d", gl.LineNo)

		qty := gl.BillableQuantity()
		if !qty.IsPositive() {
			s.skip(ctx, documents.KindPurchaseInvoice, &result.Skipped, ref, ReasonZeroQuantity)
			continue
		}

		candidate := nomenclature.Candidate{
			ItemID:       gl.ItemIDString(),
			SupplierCode: gl.SupplierCode,
			Barcode:      gl.Barcode,
			Description:  types.FirstNonEmpty(gl.Description, nomenclature.DefaultDescription),
			SupplierID:   &supplierID,
		}
		item, ok, err := resolveItem(ctx, session, candidate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		if !ok {
			s.skip(ctx, documents.KindPurchaseInvoice, &result.Skipped, ref, ReasonUnresolvedItem)
			continue
		}

		unitCost := types.NonNegative(gl.UnitCost)
		total := types.Round(qty.Mul(unitCost), scale)
		subtotal = subtotal.Add(total)
		out = append(out, purchase_invoice.Line{
			LineID:             id.New(),
			LineNo:             len(out) + 1,
			GoodsReceiptLineID: gl.LineID,
			ItemID:             item.ID,
			Description:        types.FirstNonEmpty(item.Description, candidate.Description),
			Quantity:           qty,
			UnitCost:           unitCost,
			LineTotal:          total,
		})
	}

	result.AutoCreated = len(session.Created())
	if len(out) == 0 {
		return nil, apperror.NewComputation("No purchase invoice lines could be processed", 0, len(result.Skipped)).
			WithDetail("goodsReceiptId", gr.ID)
	}

	pi := purchase_invoice.New(gr.Currency, gr.ID, gr.SupplierID)
	pi.Date = s.now()
	pi.Subtotal = types.Round(subtotal, scale)
	pi.TaxAmount = types.Zero()
	pi.TotalAmount = pi.Subtotal
	pi.Lines = out
	pi.Comment = fmt.Sprintf("Derived from goods receipt %s", gr.Number)
	audit.EnrichCreatedBy(ctx, &pi.BaseDocument)

	pi.Number = s.numerator.Next(ctx, numerator.DefaultConfig(numerator.PrefixPurchaseInvoice, "purchase_invoices"))
	pi.SupplierInvoiceNumber = gr.SupplierDocNumber
	if pi.SupplierInvoiceNumber == "" {
		pi.SupplierInvoiceNumber = s.numerator.Next(ctx, numerator.Config{
			Prefix: numerator.PrefixSupplierInvoice,
			Table:  "purchase_invoices",
			Column: "supplier_invoice_number",
		})
	}

	if err := s.insertHeader(ctx, &pi.BaseDocument, func(ctx context.Context) error {
		return s.repos.PurchaseInvoices.Create(ctx, pi)
	}); err != nil {
		return nil, fmt.Errorf("create purchase invoice: %w", err)
	}
	if err := s.repos.PurchaseInvoices.SaveLines(ctx, pi.ID, pi.Lines); err != nil {
		return nil, fmt.Errorf("save purchase invoice lines: %w", err)
	}

	if err := s.journal(ctx, pi, events.PurchaseInvoiceDerived, map[string]any{
		"number":                pi.Number,
		"supplierInvoiceNumber": pi.SupplierInvoiceNumber,
		"goodsReceiptId":        pi.GoodsReceiptID,
		"lines":                 len(pi.Lines),
		"skipped":               len(result.Skipped),
		"totalAmount":           pi.TotalAmount,
	}); err != nil {
		return nil, fmt.Errorf("journal purchase invoice: %w", err)
	}

	result.Invoice = pi
	return result, nil
}
