package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/repository"
)

// Calculation type values
const (
	CalcBasic            = "basic"
	CalcSimpleInterest   = "simple_interest"
	CalcCompoundInterest = "compound_interest"
)

var (
	// ErrInvalidExpression is returned for expressions that cannot be parsed
	ErrInvalidExpression = errors.New("invalid expression")
	// ErrDivisionByZero is returned when an expression divides by zero
	ErrDivisionByZero = errors.New("division by zero")
)

// CalculatorService evaluates arithmetic expressions and interest formulas,
// persisting results to the user's history.
type CalculatorService struct {
	calcs *repository.CalculationRepository
}

// NewCalculatorService creates a new calculator service
func NewCalculatorService(calcs *repository.CalculationRepository) *CalculatorService {
	return &CalculatorService{calcs: calcs}
}

// Evaluate computes an arithmetic expression and saves it to history
func (s *CalculatorService) Evaluate(ctx context.Context, userID, expression string) (*models.Calculation, error) {
	result, err := EvaluateExpression(expression)
	if err != nil {
		return nil, err
	}

	calc := &models.Calculation{
		UserID:          userID,
		Expression:      expression,
		Result:          result,
		CalculationType: CalcBasic,
	}
	if err := s.calcs.Create(ctx, calc); err != nil {
		return nil, err
	}

	return calc, nil
}

// SimpleInterest computes P*R*T/100 and saves it to history
func (s *CalculatorService) SimpleInterest(ctx context.Context, userID string, principal, rate, years float64) (*models.Calculation, error) {
	interest := principal * rate * years / 100

	calc := &models.Calculation{
		UserID:          userID,
		Expression:      fmt.Sprintf("simple(P=%g, R=%g%%, T=%g)", principal, rate, years),
		Result:          interest,
		CalculationType: CalcSimpleInterest,
	}
	if err := s.calcs.Create(ctx, calc); err != nil {
		return nil, err
	}

	return calc, nil
}

// CompoundInterest computes compound interest for the given compounding
// frequency per year (defaulting to annual) and saves it to history
func (s *CalculatorService) CompoundInterest(ctx context.Context, userID string, principal, rate, years float64, frequency int) (*models.Calculation, error) {
	if frequency <= 0 {
		frequency = 1
	}
	n := float64(frequency)
	interest := principal*math.Pow(1+rate/(100*n), n*years) - principal

	calc := &models.Calculation{
		UserID:          userID,
		Expression:      fmt.Sprintf("compound(P=%g, R=%g%%, T=%g, n=%d)", principal, rate, years, frequency),
		Result:          interest,
		CalculationType: CalcCompoundInterest,
	}
	if err := s.calcs.Create(ctx, calc); err != nil {
		return nil, err
	}

	return calc, nil
}

// History returns the user's saved calculations, newest first
func (s *CalculatorService) History(ctx context.Context, userID string) ([]models.Calculation, error) {
	return s.calcs.ListByUser(ctx, userID)
}

// Delete removes one history entry
func (s *CalculatorService) Delete(ctx context.Context, id, userID string) error {
	return s.calcs.Delete(ctx, id, userID)
}

// ClearHistory removes the user's entire history
func (s *CalculatorService) ClearHistory(ctx context.Context, userID string) error {
	return s.calcs.ClearByUser(ctx, userID)
}

// EvaluateExpression evaluates a basic arithmetic expression supporting
// + - * /, parentheses, decimals, and unary minus. Expressions are parsed
// with a recursive descent parser; nothing is ever executed.
func EvaluateExpression(expression string) (float64, error) {
	p := &exprParser{input: expression}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("%w: unexpected character at position %d", ErrInvalidExpression, p.pos)
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, ErrDivisionByZero
	}
	return result, nil
}

// exprParser is a recursive descent parser over the expression grammar
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "-" factor | "(" expr ")"
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.peek() == '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.peek() == '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.peek() == '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.peek() == '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()

	switch {
	case p.peek() == '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil

	case p.peek() == '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrInvalidExpression)
		}
		p.pos++
		return value, nil

	default:
		return p.parseNumber()
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("%w: expected number at position %d", ErrInvalidExpression, start)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidExpression, p.input[start:p.pos])
	}
	return value, nil
}

// peek returns the current byte, or 0 at end of input
func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
