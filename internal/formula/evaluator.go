package formula

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Evaluator evaluates user-authored arithmetic formulas without invoking a
// general-purpose interpreter. Supported syntax: numeric literals, named
// variables, the operators + - * /, unary minus, and parentheses.
//
// Evaluation is pure and deterministic: identical inputs always produce
// identical results.
type Evaluator struct{}

// NewEvaluator constructs an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// maxParseDepth bounds recursion against pathological nested parentheses.
const maxParseDepth = 64

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	wordPattern       = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_]*`)
	allowedPattern    = regexp.MustCompile(`^[A-Za-z0-9+\-*/().]*$`)
	doubledOperators  = regexp.MustCompile(`[+\-*/]{2}`)

	// dangerousPatterns rejects anything resembling statement separators or
	// calls into a host language before substitution even runs.
	dangerousPatterns = []*regexp.Regexp{
		regexp.MustCompile("[;`$\\\\{}\\[\\]=<>!&|%#@~^'\"?:]"),
		regexp.MustCompile(`(?i)\b(exec|system|eval|shell|passthru|popen|proc|include|require|import|open|read|write)\b`),
	}
)

// reservedNames are function-like identifiers excluded from Variables so a
// future extension can introduce them without breaking stored formulas.
var reservedNames = map[string]struct{}{
	"abs":   {},
	"ceil":  {},
	"floor": {},
	"round": {},
	"sqrt":  {},
	"pow":   {},
	"min":   {},
	"max":   {},
	"clamp": {},
}

// Evaluate substitutes variables into the formula and computes its value.
func (e *Evaluator) Evaluate(formula string, variables map[string]float64) (float64, error) {
	expr := stripWhitespace(formula)
	if expr == "" {
		return 0, errf("empty formula")
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(expr) {
			return 0, errf("formula contains a forbidden pattern")
		}
	}

	expr, err := substituteVariables(expr, variables)
	if err != nil {
		return 0, err
	}
	if !allowedPattern.MatchString(expr) {
		return 0, errf("formula contains invalid characters")
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, errf("empty formula")
	}

	cursor := &tokenCursor{tokens: tokens}
	result, err := parseExpression(cursor, 0)
	if err != nil {
		return 0, err
	}
	if tok, ok := cursor.peek(); ok {
		return 0, errf("unexpected token %q", tok.text)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, errf("result is not a finite number")
	}
	return result, nil
}

// Validate reports whether the formula is syntactically plausible without
// requiring variable substitution: balanced parentheses, no doubled
// operators, no leading + * / and no trailing operator.
func (e *Evaluator) Validate(formula string) bool {
	expr := stripWhitespace(formula)
	if expr == "" {
		return false
	}
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(expr) {
			return false
		}
	}
	if !allowedPattern.MatchString(strings.ReplaceAll(expr, "_", "")) {
		return false
	}
	if doubledOperators.MatchString(expr) {
		return false
	}
	if strings.ContainsAny(expr[:1], "+*/") {
		return false
	}
	if strings.ContainsAny(expr[len(expr)-1:], "+-*/") {
		return false
	}

	depth := 0
	for _, ch := range expr {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// Variables returns the sorted set of variable names referenced by the
// formula, excluding reserved function names.
func (e *Evaluator) Variables(formula string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, word := range wordPattern.FindAllString(formula, -1) {
		if _, reserved := reservedNames[strings.ToLower(word)]; reserved {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		names = append(names, word)
	}
	sort.Strings(names)
	return names
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch ch {
		case ' ', '\t', '\n', '\r':
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// substituteVariables replaces whole-word variable references with literal
// numeric text. Longest names substitute first so "consumption_night" is
// never clobbered by "consumption".
func substituteVariables(expr string, variables map[string]float64) (string, error) {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		if !identifierPattern.MatchString(name) {
			return "", errf("invalid variable name %q", name)
		}
		value := variables[name]
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return "", errf("variable %q has a non-finite value", name)
		}
		pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
		if err != nil {
			return "", errf("invalid variable name %q", name)
		}
		literal := strconv.FormatFloat(value, 'f', -1, 64)
		if value < 0 {
			literal = "(0" + literal + ")"
		}
		expr = pattern.ReplaceAllString(expr, literal)
	}
	return expr, nil
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
)

type token struct {
	kind  tokenKind
	value float64
	text  string
}

// tokenCursor is an explicit cursor over the token stream; parse functions
// advance it left-to-right.
type tokenCursor struct {
	tokens []token
	pos    int
}

func (c *tokenCursor) peek() (token, bool) {
	if c.pos >= len(c.tokens) {
		return token{}, false
	}
	return c.tokens[c.pos], true
}

func (c *tokenCursor) next() (token, bool) {
	tok, ok := c.peek()
	if ok {
		c.pos++
	}
	return tok, ok
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case ch >= '0' && ch <= '9' || ch == '.':
			start := i
			for i < len(expr) && (expr[i] >= '0' && expr[i] <= '9' || expr[i] == '.') {
				i++
			}
			text := expr[start:i]
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errf("invalid number %q", text)
			}
			tokens = append(tokens, token{kind: tokenNumber, value: value, text: text})
		case ch == '+':
			tokens = append(tokens, token{kind: tokenPlus, text: "+"})
			i++
		case ch == '-':
			tokens = append(tokens, token{kind: tokenMinus, text: "-"})
			i++
		case ch == '*':
			tokens = append(tokens, token{kind: tokenStar, text: "*"})
			i++
		case ch == '/':
			tokens = append(tokens, token{kind: tokenSlash, text: "/"})
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		default:
			return nil, errf("unknown variable or unexpected character %q", string(ch))
		}
	}
	return tokens, nil
}

// parseExpression handles + and -, the lowest precedence level.
func parseExpression(c *tokenCursor, depth int) (float64, error) {
	if depth > maxParseDepth {
		return 0, errf("formula is nested too deeply")
	}
	left, err := parseTerm(c, depth+1)
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := c.peek()
		if !ok || (tok.kind != tokenPlus && tok.kind != tokenMinus) {
			return left, nil
		}
		c.next()
		right, err := parseTerm(c, depth+1)
		if err != nil {
			return 0, err
		}
		if tok.kind == tokenPlus {
			left += right
		} else {
			left -= right
		}
	}
}

// parseTerm handles * and /.
func parseTerm(c *tokenCursor, depth int) (float64, error) {
	if depth > maxParseDepth {
		return 0, errf("formula is nested too deeply")
	}
	left, err := parseFactor(c, depth+1)
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := c.peek()
		if !ok || (tok.kind != tokenStar && tok.kind != tokenSlash) {
			return left, nil
		}
		c.next()
		right, err := parseFactor(c, depth+1)
		if err != nil {
			return 0, err
		}
		if tok.kind == tokenStar {
			left *= right
			continue
		}
		if math.Abs(right) < 1e-12 {
			return 0, errf("division by zero")
		}
		left /= right
	}
}

// parseFactor handles numbers, unary minus and parenthesized expressions.
func parseFactor(c *tokenCursor, depth int) (float64, error) {
	if depth > maxParseDepth {
		return 0, errf("formula is nested too deeply")
	}
	tok, ok := c.next()
	if !ok {
		return 0, errf("unexpected end of formula")
	}
	switch tok.kind {
	case tokenNumber:
		return tok.value, nil
	case tokenMinus:
		value, err := parseFactor(c, depth+1)
		if err != nil {
			return 0, err
		}
		return -value, nil
	case tokenLParen:
		value, err := parseExpression(c, depth+1)
		if err != nil {
			return 0, err
		}
		closing, ok := c.next()
		if !ok || closing.kind != tokenRParen {
			return 0, errf("missing closing parenthesis")
		}
		return value, nil
	default:
		return 0, errf("unexpected token %q", tok.text)
	}
}
