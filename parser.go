package stategrid

import (
	"fmt"
	"strconv"
)

// BinaryOp represents binary operators in AST nodes
type BinaryOp int

const (
	BinOpAdd BinaryOp = iota
	BinOpSubtract
	BinOpMultiply
	BinOpDivide
)

// UnaryOp represents unary operators in AST nodes
type UnaryOp int

const (
	UnaryOpPlus UnaryOp = iota
	UnaryOpMinus
)

type NodePosition struct {
	Start int
	End   int
}

// EvalError is a failure raised while evaluating an AST. it carries the
// diagnostic kind so the evaluator can classify it without string
// matching.
type EvalError struct {
	Kind   DiagnosticKind
	Detail string
}

func (e *EvalError) Error() string {
	return e.Detail
}

// SymbolTable maps resolved row names to their numeric values. Define
// keeps the first value per name; the evaluator feeds it candidates in
// longest-name-first order, so first-in wins is the precedence rule, not
// an error case.
type SymbolTable struct {
	values map[string]float64
}

// NewSymbolTable creates an empty symbol table
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{values: make(map[string]float64)}
}

// Define records a name's value unless the name is already bound
func (st *SymbolTable) Define(name string, value float64) {
	if _, exists := st.values[name]; exists {
		return
	}
	st.values[name] = value
}

// Lookup resolves a name to its value
func (st *SymbolTable) Lookup(name string) (float64, bool) {
	v, ok := st.values[name]
	return v, ok
}

// Len returns the number of bound names
func (st *SymbolTable) Len() int {
	return len(st.values)
}

// AST enables identifier resolution by exact token match rather than
// regex/string substitution, and keeps evaluation free of any dynamic
// code execution.
type ASTNode interface {
	Eval(symbols *SymbolTable) (float64, error)
	GetPosition() NodePosition
	ToString() string
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value    float64
	Position NodePosition
}

func (n *NumberNode) Eval(symbols *SymbolTable) (float64, error) {
	return n.Value, nil
}

func (n *NumberNode) GetPosition() NodePosition {
	return n.Position
}

func (n *NumberNode) ToString() string {
	// format number without unnecessary decimals
	if n.Value == float64(int64(n.Value)) {
		return fmt.Sprintf("%d", int64(n.Value))
	}
	return fmt.Sprintf("%g", n.Value)
}

// IdentifierNode represents a row-name reference
type IdentifierNode struct {
	Name     string
	Position NodePosition
}

func (n *IdentifierNode) Eval(symbols *SymbolTable) (float64, error) {
	v, ok := symbols.Lookup(n.Name)
	if !ok {
		return 0, &EvalError{
			Kind:   KindUnresolvedReference,
			Detail: fmt.Sprintf("no row named %q", n.Name),
		}
	}
	return v, nil
}

func (n *IdentifierNode) GetPosition() NodePosition {
	return n.Position
}

func (n *IdentifierNode) ToString() string {
	return n.Name
}

// UnaryOpNode represents a prefix + or -
type UnaryOpNode struct {
	Op       UnaryOp
	Operand  ASTNode
	Position NodePosition
}

func (n *UnaryOpNode) Eval(symbols *SymbolTable) (float64, error) {
	v, err := n.Operand.Eval(symbols)
	if err != nil {
		return 0, err
	}
	if n.Op == UnaryOpMinus {
		return -v, nil
	}
	return v, nil
}

func (n *UnaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *UnaryOpNode) ToString() string {
	if n.Op == UnaryOpMinus {
		return "-" + n.Operand.ToString()
	}
	return "+" + n.Operand.ToString()
}

// BinaryOpNode represents an arithmetic operation
type BinaryOpNode struct {
	Op       BinaryOp
	Left     ASTNode
	Right    ASTNode
	Position NodePosition
}

func (n *BinaryOpNode) Eval(symbols *SymbolTable) (float64, error) {
	left, err := n.Left.Eval(symbols)
	if err != nil {
		return 0, err
	}
	right, err := n.Right.Eval(symbols)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case BinOpAdd:
		return left + right, nil
	case BinOpSubtract:
		return left - right, nil
	case BinOpMultiply:
		return left * right, nil
	case BinOpDivide:
		// IEEE semantics: x/0 yields Inf or NaN, and the evaluator's
		// finiteness check maps that to 0. no special case here.
		return left / right, nil
	}

	return 0, &EvalError{Kind: KindEvalFailure, Detail: "unknown binary operator"}
}

func (n *BinaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *BinaryOpNode) ToString() string {
	ops := map[BinaryOp]string{
		BinOpAdd:      "+",
		BinOpSubtract: "-",
		BinOpMultiply: "*",
		BinOpDivide:   "/",
	}
	return "(" + n.Left.ToString() + ops[n.Op] + n.Right.ToString() + ")"
}

// Parser parses tokens into an AST
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser over a token stream
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the token stream as a single expression
func (p *Parser) Parse() (ASTNode, error) {
	if len(p.tokens) == 0 {
		return nil, &EvalError{Kind: KindEvalFailure, Detail: "no tokens to parse"}
	}

	node, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	// ensure we've consumed all tokens except EOF
	if p.pos < len(p.tokens) && p.tokens[p.pos].Type != TokenEOF {
		return nil, &EvalError{
			Kind:   KindEvalFailure,
			Detail: fmt.Sprintf("unexpected token after expression: %s", p.tokens[p.pos].Value),
		}
	}

	return node, nil
}

// parseAddition handles addition and subtraction
func (p *Parser) parseAddition() (ASTNode, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Value {
		case "+":
			op = BinOpAdd
		case "-":
			op = BinOpSubtract
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{
			Op:       op,
			Left:     left,
			Right:    right,
			Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End},
		}
	}

	return left, nil
}

// parseMultiplication handles multiplication and division
func (p *Parser) parseMultiplication() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type != TokenBinaryOp {
			break
		}

		var op BinaryOp
		switch tok.Value {
		case "*":
			op = BinOpMultiply
		case "/":
			op = BinOpDivide
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{
			Op:       op,
			Left:     left,
			Right:    right,
			Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End},
		}
	}

	return left, nil
}

// parseUnary handles prefix operators
func (p *Parser) parseUnary() (ASTNode, error) {
	if p.pos >= len(p.tokens) {
		return nil, &EvalError{Kind: KindEvalFailure, Detail: "unexpected end of expression"}
	}

	tok := p.tokens[p.pos]

	if tok.Type == TokenUnaryPrefixOp {
		var op UnaryOp
		switch tok.Value {
		case "+":
			op = UnaryOpPlus
		case "-":
			op = UnaryOpMinus
		}

		startPos := tok.Pos
		p.pos++
		operand, err := p.parseUnary() // recurse for chained unary operators
		if err != nil {
			return nil, err
		}

		return &UnaryOpNode{
			Op:       op,
			Operand:  operand,
			Position: NodePosition{Start: startPos, End: operand.GetPosition().End},
		}, nil
	}

	return p.parsePrimary()
}

// parsePrimary handles literals, identifiers, and parentheses
func (p *Parser) parsePrimary() (ASTNode, error) {
	if p.pos >= len(p.tokens) {
		return nil, &EvalError{Kind: KindEvalFailure, Detail: "unexpected end of expression"}
	}

	tok := p.tokens[p.pos]

	switch tok.Type {
	case TokenNumber:
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, &EvalError{
				Kind:   KindEvalFailure,
				Detail: fmt.Sprintf("invalid number: %s", tok.Value),
			}
		}
		p.pos++
		return &NumberNode{
			Value:    value,
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenIdentifier:
		p.pos++
		return &IdentifierNode{
			Name:     tok.Value,
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenLeftParen:
		p.pos++ // consume '('
		node, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos].Type != TokenRightParen {
			return nil, &EvalError{Kind: KindEvalFailure, Detail: "missing closing parenthesis"}
		}
		p.pos++ // consume ')'
		return node, nil
	}

	return nil, &EvalError{
		Kind:   KindEvalFailure,
		Detail: fmt.Sprintf("unexpected token: %s", tok.Value),
	}
}
