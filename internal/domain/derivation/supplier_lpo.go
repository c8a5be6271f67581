package derivation

import (
	"context"
	"fmt"
	"strings"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/numerator"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/audit"
	"tradeflow/internal/domain/catalogs/nomenclature"
	"tradeflow/internal/domain/documents"
	"tradeflow/internal/domain/documents/supplier_lpo"
	"tradeflow/internal/domain/events"
	"tradeflow/pkg/logger"
)

// LPORequest lists the source documents of a supplier LPO run.
type LPORequest struct {
	SourceType supplier_lpo.SourceType
	SourceIDs  []id.ID
	GroupBy    supplier_lpo.GroupBy

	// SupplierID is used for sales order lines that name no supplier.
	SupplierID *id.ID
}

// SkippedSource is a source document that contributed nothing.
type SkippedSource struct {
	SourceID id.ID  `json:"sourceId"`
	Reason   string `json:"reason"`
}

// LPOResult is the outcome of a supplier LPO run.
type LPOResult struct {
	Orders         []*supplier_lpo.SupplierLPO `json:"orders"`
	SkippedSources []SkippedSource             `json:"skippedSources"`
	Skipped        []SkippedLine               `json:"skipped"`
	AutoCreated    int                         `json:"autoCreated"`
}

// Validate checks the request shape.
func (r *LPORequest) Validate() error {
	switch r.SourceType {
	case supplier_lpo.SourceSalesOrders, supplier_lpo.SourceSupplierQuotes:
	default:
		return apperror.NewValidation("sourceType must be sales_orders or supplier_quotes").
			WithDetail("field", "sourceType")
	}
	if len(r.SourceIDs) == 0 {
		return apperror.NewValidation("at least one source id is required").
			WithDetail("field", "sourceIds")
	}
	switch r.GroupBy {
	case "":
		r.GroupBy = supplier_lpo.GroupBySupplier
	case supplier_lpo.GroupBySupplier, supplier_lpo.GroupByNone:
	default:
		return apperror.NewValidation("groupBy must be supplier or none").
			WithDetail("field", "groupBy")
	}
	return nil
}

// lpoSource is a sales order or supplier quote reduced to what an LPO needs.
type lpoSource struct {
	id         id.ID
	number     string
	currency   string
	supplierID *id.ID
	total      types.Money
	lines      []lpoSourceLine
}

type lpoSourceLine struct {
	lineID id.ID
	lineNo int
	documents.ItemRef
	supplierID      *id.ID
	quantity        types.Money
	unitCost        types.Money
	discountPercent types.Money
	discountAmount  types.Money
	lineTotal       types.Money
}

// lpoGroup accumulates the lines of one LPO.
type lpoGroup struct {
	supplierID *id.ID
	currency   string
	sources    []string
	lines      []supplier_lpo.Line
}

// SupplierLPOs creates one LPO per supplier (or per source document) from
// sales orders or supplier quotes. Sources that fail to load are skipped.
func (s *Service) SupplierLPOs(ctx context.Context, req LPORequest) (*LPOResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *LPOResult
	err := s.run(ctx, documents.KindSupplierLPO, func(ctx context.Context) error {
		result = &LPOResult{}
		sources := s.loadLPOSources(ctx, req, result)
		if len(sources) == 0 {
			return apperror.NewComputation("No source documents could be loaded", 0, len(result.SkippedSources))
		}

		session := s.resolver.NewSession()
		groups, order, err := s.groupLPOLines(ctx, session, req, sources, result)
		if err != nil {
			return err
		}
		result.AutoCreated = len(session.Created())
		if len(order) == 0 {
			return apperror.NewComputation("No LPO lines could be processed", 0, len(result.Skipped)+len(result.SkippedSources))
		}

		for _, key := range order {
			lpo, err := s.createLPO(ctx, req.SourceType, groups[key])
			if err != nil {
				return err
			}
			result.Orders = append(result.Orders, lpo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for range result.Orders {
		s.observer.Derived(documents.KindSupplierLPO)
	}
	if result.AutoCreated > 0 {
		s.observer.ItemsAutoCreated(documents.KindSupplierLPO, result.AutoCreated)
	}
	logger.Info(ctx, "supplier LPOs derived",
		"source_type", req.SourceType,
		"sources", len(req.SourceIDs),
		"orders", len(result.Orders),
		"skipped_sources", len(result.SkippedSources),
		"skipped_lines", len(result.Skipped))
	return result, nil
}

// loadLPOSources loads every distinct source in its own savepoint so a failing
// source does not poison the transaction.
func (s *Service) loadLPOSources(ctx context.Context, req LPORequest, result *LPOResult) []*lpoSource {
	seen := make(map[id.ID]struct{}, len(req.SourceIDs))
	sources := make([]*lpoSource, 0, len(req.SourceIDs))
	for _, sourceID := range req.SourceIDs {
		if _, dup := seen[sourceID]; dup {
			continue
		}
		seen[sourceID] = struct{}{}

		var src *lpoSource
		err := s.txManager.RunInSavepoint(ctx, func(ctx context.Context) error {
			var err error
			if req.SourceType == supplier_lpo.SourceSupplierQuotes {
				src, err = s.loadSupplierQuote(ctx, sourceID)
			} else {
				src, err = s.loadSalesOrder(ctx, sourceID)
			}
			return err
		})
		if err != nil {
			reason := "source could not be loaded"
			if apperror.IsNotFound(err) {
				reason = "source not found"
			}
			result.SkippedSources = append(result.SkippedSources, SkippedSource{SourceID: sourceID, Reason: reason})
			s.observer.LineSkipped(documents.KindSupplierLPO, reason)
			logger.Warn(ctx, "LPO source skipped",
				"source_type", req.SourceType,
				"source_id", sourceID,
				"error", err)
			continue
		}
		sources = append(sources, src)
	}
	return sources
}

func (s *Service) loadSalesOrder(ctx context.Context, orderID id.ID) (*lpoSource, error) {
	so, err := s.repos.SalesOrders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repos.SalesOrders.GetLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	src := &lpoSource{
		id:         so.ID,
		number:     so.Number,
		currency:   so.Currency,
		supplierID: so.SupplierID,
		total:      so.TotalAmount,
	}
	for _, l := range lines {
		src.lines = append(src.lines, lpoSourceLine{
			lineID:          l.LineID,
			lineNo:          l.LineNo,
			ItemRef:         l.ItemRef,
			supplierID:      l.SupplierID,
			quantity:        l.Quantity,
			unitCost:        l.UnitCost,
			discountPercent: l.DiscountPercent,
			discountAmount:  l.DiscountAmount,
			lineTotal:       l.LineTotal,
		})
	}
	return src, nil
}

func (s *Service) loadSupplierQuote(ctx context.Context, quoteID id.ID) (*lpoSource, error) {
	sq, err := s.repos.SupplierQuotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repos.SupplierQuotes.GetLines(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	supplierID := sq.SupplierID
	src := &lpoSource{
		id:         sq.ID,
		number:     sq.Number,
		currency:   sq.Currency,
		supplierID: &supplierID,
		total:      sq.TotalAmount,
	}
	for _, l := range lines {
		src.lines = append(src.lines, lpoSourceLine{
			lineID:          l.LineID,
			lineNo:          l.LineNo,
			ItemRef:         l.ItemRef,
			quantity:        l.Quantity,
			unitCost:        l.UnitCost,
			discountPercent: l.DiscountPercent,
			discountAmount:  l.DiscountAmount,
			lineTotal:       l.LineTotal,
		})
	}
	return src, nil
}

// groupLPOLines resolves every source line and assigns it to a group. It
// returns the groups with their keys in first-seen order.
func (s *Service) groupLPOLines(
	ctx context.Context,
	session *nomenclature.Session,
	req LPORequest,
	sources []*lpoSource,
	result *LPOResult,
) (map[string]*lpoGroup, []string, error) {
	groups := make(map[string]*lpoGroup)
	var order []string

	add := func(src *lpoSource, supplierID *id.ID, line supplier_lpo.Line) {
		key := src.id.String()
		if req.GroupBy == supplier_lpo.GroupBySupplier {
			// One LPO carries one currency.
			key = supplierID.String() + "|" + strings.ToUpper(src.currency)
		}
		g, ok := groups[key]
		if !ok {
			g = &lpoGroup{supplierID: supplierID, currency: src.currency}
			groups[key] = g
			order = append(order, key)
		}
		if len(g.sources) == 0 || g.sources[len(g.sources)-1] != src.number {
			g.sources = append(g.sources, src.number)
		}
		line.LineNo = len(g.lines) + 1
		g.lines = append(g.lines, line)
	}

	for _, src := range sources {
		scale := types.ScaleFor(src.currency)
		usable := 0
		for _, sl := range src.lines {
			ref := fmt.Sprintf("%s line %d", src.number, sl.lineNo)

			supplierID := firstID(sl.supplierID, src.supplierID, req.SupplierID)
			if supplierID == nil && req.GroupBy == supplier_lpo.GroupBySupplier {
				s.skip(ctx, documents.KindSupplierLPO, &result.Skipped, ref, "supplier is required")
				continue
			}

			candidate := nomenclature.Candidate{
				ItemID:       sl.ItemIDString(),
				SupplierCode: sl.SupplierCode,
				Barcode:      sl.Barcode,
				Description:  types.FirstNonEmpty(sl.Description, nomenclature.DefaultDescription),
				SupplierID:   supplierID,
			}
			item, ok, err := resolveItem(ctx, session, candidate)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", ref, err)
			}
			if !ok {
				s.skip(ctx, documents.KindSupplierLPO, &result.Skipped, ref, ReasonUnresolvedItem)
				continue
			}

			lineID := sl.lineID
			add(src, supplierID, supplier_lpo.Line{
				LineID:           id.New(),
				SourceDocumentID: src.id,
				SourceLineID:     &lineID,
				ItemID:           item.ID,
				Description:      types.FirstNonEmpty(item.Description, candidate.Description),
				Quantity:         sl.quantity,
				UnitCost:         sl.unitCost,
				DiscountPercent:  sl.discountPercent,
				DiscountAmount:   sl.discountAmount,
				LineTotal:        carriedLineTotal(sl, scale),
			})
			usable++
		}

		if usable == 0 {
			if err := s.addGenericLine(ctx, session, req, src, result, add); err != nil {
				return nil, nil, err
			}
		}
	}
	return groups, order, nil
}

// addGenericLine stands in for a source without usable lines: one line of an
// auto-created "Items per <number>" item at the source total.
func (s *Service) addGenericLine(
	ctx context.Context,
	session *nomenclature.Session,
	req LPORequest,
	src *lpoSource,
	result *LPOResult,
	add func(src *lpoSource, supplierID *id.ID, line supplier_lpo.Line),
) error {
	supplierID := firstID(src.supplierID, req.SupplierID)
	if supplierID == nil && req.GroupBy == supplier_lpo.GroupBySupplier {
		s.skipSource(ctx, src, result, "supplier is required")
		return nil
	}

	candidate := nomenclature.Candidate{
		Description: "Items per " + src.number,
		SupplierID:  supplierID,
	}
	item, ok, err := session.Resolve(ctx, candidate)
	if err != nil {
		return fmt.Errorf("%s generic line: %w", src.number, err)
	}
	if !ok {
		s.skipSource(ctx, src, result, "no usable lines")
		return nil
	}

	total := types.NonNegative(src.total)
	add(src, supplierID, supplier_lpo.Line{
		LineID:           id.New(),
		SourceDocumentID: src.id,
		ItemID:           item.ID,
		Description:      candidate.Description,
		Quantity:         types.MustMoney("1"),
		UnitCost:         total,
		DiscountPercent:  types.Zero(),
		DiscountAmount:   types.Zero(),
		LineTotal:        types.Round(total, types.ScaleFor(src.currency)),
	})
	return nil
}

func (s *Service) skipSource(ctx context.Context, src *lpoSource, result *LPOResult, reason string) {
	result.SkippedSources = append(result.SkippedSources, SkippedSource{SourceID: src.id, Reason: reason})
	s.observer.LineSkipped(documents.KindSupplierLPO, reason)
	logger.Warn(ctx, "LPO source skipped", "source", src.number, "reason", reason)
}

// carriedLineTotal keeps the source line total when present, else
// round(qty × unitCost − discount).
func carriedLineTotal(sl lpoSourceLine, scale int32) types.Money {
	if sl.lineTotal.IsPositive() {
		return sl.lineTotal
	}
	gross := types.NonNegative(sl.quantity).Mul(types.NonNegative(sl.unitCost))
	discount := types.NonNegative(sl.discountAmount)
	if !discount.IsPositive() && sl.discountPercent.IsPositive() {
		discount = gross.Mul(sl.discountPercent).Div(types.MustMoney("100"))
	}
	return types.NonNegative(types.Round(gross.Sub(discount), scale))
}

// appliedDiscount is what the line total takes off the line's gross, whether
// the source expressed it as an amount, a percent or a reduced total.
func appliedDiscount(l supplier_lpo.Line, scale int32) types.Money {
	gross := types.Round(types.NonNegative(l.Quantity).Mul(types.NonNegative(l.UnitCost)), scale)
	return types.NonNegative(gross.Sub(l.LineTotal))
}

func (s *Service) createLPO(ctx context.Context, sourceType supplier_lpo.SourceType, g *lpoGroup) (*supplier_lpo.SupplierLPO, error) {
	lpo := supplier_lpo.New(g.currency, g.supplierID, sourceType)
	lpo.Date = s.now()
	lpo.Lines = g.lines
	lpo.Comment = "Derived from " + strings.Join(g.sources, ", ")

	scale := types.ScaleFor(g.currency)
	subtotal, discount := types.Zero(), types.Zero()
	for _, l := range g.lines {
		subtotal = subtotal.Add(l.LineTotal)
		discount = discount.Add(appliedDiscount(l, scale))
	}
	lpo.Subtotal = types.Round(subtotal, scale)
	lpo.DiscountAmount = types.Round(discount, scale)
	lpo.TotalAmount = lpo.Subtotal
	audit.EnrichCreatedBy(ctx, &lpo.BaseDocument)

	lpo.Number = s.numerator.Next(ctx, numerator.DefaultConfig(numerator.PrefixSupplierLPO, "supplier_lpos"))
	if err := s.insertHeader(ctx, &lpo.BaseDocument, func(ctx context.Context) error {
		return s.repos.SupplierLPOs.Create(ctx, lpo)
	}); err != nil {
		return nil, fmt.Errorf("create supplier LPO: %w", err)
	}
	if err := s.repos.SupplierLPOs.SaveLines(ctx, lpo.ID, lpo.Lines); err != nil {
		return nil, fmt.Errorf("save supplier LPO lines: %w", err)
	}

	if err := s.journal(ctx, lpo, events.SupplierLPODerived, map[string]any{
		"number":      lpo.Number,
		"supplierId":  lpo.SupplierID,
		"sourceType":  lpo.SourceType,
		"sources":     lpo.SourceIDs(),
		"lines":       len(lpo.Lines),
		"totalAmount": lpo.TotalAmount,
	}); err != nil {
		return nil, fmt.Errorf("journal supplier LPO: %w", err)
	}
	return lpo, nil
}
