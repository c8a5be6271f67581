package nomenclature

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"tradeflow/pkg/logger"
)

// AutoCreatePolicy decides whether an unresolved candidate may become a new
// catalog item.
type AutoCreatePolicy interface {
	Allow(ctx context.Context, c Candidate) bool
}

// AllowAll permits every auto-create.
type AllowAll struct{}

// Allow implements AutoCreatePolicy.
func (AllowAll) Allow(context.Context, Candidate) bool { return true }

// Strict forbids auto-create; unresolved lines are skipped.
type Strict struct{}

// Allow implements AutoCreatePolicy.
func (Strict) Allow(context.Context, Candidate) bool { return false }

// RulePolicy evaluates a CEL expression against the candidate.
//
// Available variables: description, supplier_code, barcode, category (string)
// and has_supplier (bool). Example: `supplier_code != "" || barcode != ""`.
type RulePolicy struct {
	expr string
	prg  cel.Program
}

// NewRulePolicy compiles expr. The expression must evaluate to bool.
func NewRulePolicy(expr string) (*RulePolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("description", cel.StringType),
		cel.Variable("supplier_code", cel.StringType),
		cel.Variable("barcode", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("has_supplier", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile auto-create rule %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("auto-create rule %q must return bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build auto-create rule: %w", err)
	}
	return &RulePolicy{expr: expr, prg: prg}, nil
}

// Allow implements AutoCreatePolicy. Evaluation errors deny.
func (p *RulePolicy) Allow(ctx context.Context, c Candidate) bool {
	out, _, err := p.prg.Eval(map[string]any{
		"description":   c.Description,
		"supplier_code": c.SupplierCode,
		"barcode":       c.Barcode,
		"category":      c.Category,
		"has_supplier":  c.SupplierID != nil,
	})
	if err != nil {
		logger.Warn(ctx, "auto-create rule failed", "rule", p.expr, "error", err)
		return false
	}
	allowed, ok := out.Value().(bool)
	return ok && allowed
}

// PolicyFromRule maps a configured rule onto a policy. "true" and "" allow
// everything, "false" is strict mode, anything else is compiled.
func PolicyFromRule(expr string) (AutoCreatePolicy, error) {
	switch expr {
	case "", "true":
		return AllowAll{}, nil
	case "false":
		return Strict{}, nil
	}
	return NewRulePolicy(expr)
}
