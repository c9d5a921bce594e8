package term

import (
	"fmt"
	"unicode"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenColon
	TokenEqual
	TokenSemicolon
	TokenComma
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenAt
	TokenDollar
	TokenStar
	TokenLet
	TokenIn
	TokenDup
	TokenDef
)

var keywords = map[string]TokenType{
	"let": TokenLet,
	"in":  TokenIn,
	"dup": TokenDup,
	"def": TokenDef,
}

var punct = map[byte]TokenType{
	':': TokenColon,
	'=': TokenEqual,
	';': TokenSemicolon,
	',': TokenComma,
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'@': TokenAt,
	'$': TokenDollar,
	'*': TokenStar,
}

type Token struct {
	Type    TokenType
	Literal string
}

type Parser struct {
	input   string
	pos     int
	current Token

	// resolve maps @Name references to definition ids. Nil rejects them.
	resolve func(Name) (DefID, error)
}

func NewParser(input string) *Parser {
	p := &Parser{input: input}
	p.next()
	return p
}

func (p *Parser) next() {
	p.skipWhitespace()
	if p.pos >= len(p.input) {
		p.current = Token{Type: TokenEOF}
		return
	}

	ch := p.input[p.pos]
	if isLetter(ch) {
		start := p.pos
		for p.pos < len(p.input) && (isLetter(p.input[p.pos]) || isDigit(p.input[p.pos])) {
			p.pos++
		}
		lit := p.input[start:p.pos]
		if kw, ok := keywords[lit]; ok {
			p.current = Token{Type: kw, Literal: lit}
		} else {
			p.current = Token{Type: TokenIdent, Literal: lit}
		}
		return
	}
	if typ, ok := punct[ch]; ok {
		p.current = Token{Type: typ, Literal: string(ch)}
		p.pos++
		return
	}
	// Treat unknown chars as single-char identifiers (e.g. +)
	p.current = Token{Type: TokenIdent, Literal: string(ch)}
	p.pos++
}

func (p *Parser) skipWhitespace() {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '#' {
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !unicode.IsSpace(rune(ch)) {
			return
		}
		p.pos++
	}
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (p *Parser) expect(typ TokenType, what string) (Token, error) {
	tok := p.current
	if tok.Type != typ {
		return tok, fmt.Errorf("expected %s, got %q at offset %d", what, tok.Literal, p.pos)
	}
	p.next()
	return tok, nil
}

func (p *Parser) Parse() (Term, error) {
	t, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %q after term", p.current.Literal)
	}
	return t, nil
}

type lambdaHead struct {
	name    Name
	channel bool
}

// tryLambdaHead consumes "x:", "_:" or "$x:" when the cursor is at one,
// and leaves the cursor untouched otherwise.
func (p *Parser) tryLambdaHead() (lambdaHead, bool) {
	savePos, saveTok := p.pos, p.current

	var head lambdaHead
	if p.current.Type == TokenDollar {
		head.channel = true
		p.next()
	}
	if p.current.Type == TokenIdent {
		lit := p.current.Literal
		p.next()
		if p.current.Type == TokenColon {
			p.next()
			if lit != "_" {
				head.name = Name(lit)
			}
			return head, true
		}
	}

	p.pos, p.current = savePos, saveTok
	return lambdaHead{}, false
}

// Term ::= Let | Dup | Binder ':' Term | App
func (p *Parser) parseTerm() (Term, error) {
	switch p.current.Type {
	case TokenLet:
		return p.parseLet()
	case TokenDup:
		return p.parseDup()
	}

	if head, ok := p.tryLambdaHead(); ok {
		return p.parseLambda(head)
	}

	return p.parseApp()
}

func (p *Parser) parseLambda(head lambdaHead) (Term, error) {
	body, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if head.channel {
		if head.name.None() {
			return nil, fmt.Errorf("channel needs a name")
		}
		return Chn{Name: head.name, Body: body}, nil
	}
	return Lam{Name: head.name, Body: body}, nil
}

func (p *Parser) atAppEnd() bool {
	switch p.current.Type {
	case TokenEOF, TokenRParen, TokenRBrace, TokenSemicolon, TokenComma, TokenIn, TokenDef:
		return true
	}
	return false
}

func (p *Parser) parseApp() (Term, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	for !p.atAppEnd() {
		// A lambda, let or dup in argument position extends as far right
		// as possible: `f x: y z` is `f (x: y z)`.
		if head, ok := p.tryLambdaHead(); ok {
			arg, err := p.parseLambda(head)
			if err != nil {
				return nil, err
			}
			return App{Fun: left, Arg: arg}, nil
		}
		if p.current.Type == TokenLet || p.current.Type == TokenDup {
			arg, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			return App{Fun: left, Arg: arg}, nil
		}

		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = App{Fun: left, Arg: right}
	}

	return left, nil
}

func (p *Parser) parseAtom() (Term, error) {
	switch p.current.Type {
	case TokenIdent:
		name := p.current.Literal
		if name == "_" {
			return nil, fmt.Errorf("'_' is not a variable")
		}
		p.next()
		return Var{Name: Name(name)}, nil
	case TokenLParen:
		p.next()
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return term, nil
	case TokenLBrace:
		p.next()
		fst, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenComma, "','"); err != nil {
			return nil, err
		}
		snd, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRBrace, "'}'"); err != nil {
			return nil, err
		}
		return Sup{Fst: fst, Snd: snd}, nil
	case TokenAt:
		p.next()
		tok, err := p.expect(TokenIdent, "definition name")
		if err != nil {
			return nil, err
		}
		if p.resolve == nil {
			return nil, fmt.Errorf("reference @%s outside of a book", tok.Literal)
		}
		id, err := p.resolve(Name(tok.Literal))
		if err != nil {
			return nil, err
		}
		return Ref{DefID: id}, nil
	case TokenDollar:
		p.next()
		tok, err := p.expect(TokenIdent, "link name")
		if err != nil {
			return nil, err
		}
		return Lnk{Name: Name(tok.Literal)}, nil
	case TokenStar:
		p.next()
		return Era{}, nil
	default:
		return nil, fmt.Errorf("unexpected token: %v", p.current)
	}
}

func (p *Parser) parseBinder() (Name, error) {
	tok, err := p.expect(TokenIdent, "binder")
	if err != nil {
		return "", err
	}
	if tok.Literal == "_" {
		return "", nil
	}
	return Name(tok.Literal), nil
}

func (p *Parser) parseLet() (Term, error) {
	p.next() // consume 'let'

	// Parse bindings: x = M; y = N; ...
	type binding struct {
		name Name
		val  Term
	}
	var bindings []binding

	for {
		name, err := p.parseBinder()
		if err != nil {
			return nil, err
		}
		if name.None() {
			return nil, fmt.Errorf("let needs a name")
		}
		if _, err := p.expect(TokenEqual, "'='"); err != nil {
			return nil, err
		}

		val, err := p.parseTerm()
		if err != nil {
			return nil, err
		}

		bindings = append(bindings, binding{name, val})

		if p.current.Type == TokenSemicolon {
			p.next()
			if p.current.Type == TokenIn {
				p.next()
				break
			}
		} else if p.current.Type == TokenIn {
			p.next()
			break
		} else {
			return nil, fmt.Errorf("expected ';' or 'in'")
		}
	}

	body, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	term := body
	for i := len(bindings) - 1; i >= 0; i-- {
		term = Let{Name: bindings[i].name, Val: bindings[i].val, Next: term}
	}
	return term, nil
}

// Dup ::= 'dup' Binder Binder '=' Term ';'? 'in' Term
func (p *Parser) parseDup() (Term, error) {
	p.next() // consume 'dup'

	fst, err := p.parseBinder()
	if err != nil {
		return nil, err
	}
	snd, err := p.parseBinder()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenEqual, "'='"); err != nil {
		return nil, err
	}
	val, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if p.current.Type == TokenSemicolon {
		p.next()
	}
	if _, err := p.expect(TokenIn, "'in'"); err != nil {
		return nil, err
	}
	next, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return Dup{Fst: fst, Snd: snd, Val: val, Next: next}, nil
}

// Parse parses a term that contains no references.
func Parse(input string) (Term, error) {
	p := NewParser(input)
	return p.Parse()
}

// ParseWith parses a term whose @references resolve against names.
func ParseWith(input string, names *DefNames) (Term, error) {
	p := NewParser(input)
	p.resolve = func(n Name) (DefID, error) {
		id, ok := names.ID(n)
		if !ok {
			return 0, fmt.Errorf("undefined reference @%s", n)
		}
		return id, nil
	}
	return p.Parse()
}

// ParseBook parses a sequence of `def Name = term` definitions. References
// may point forward; every referenced name must be defined somewhere.
func ParseBook(input string) (*Book, error) {
	book := NewBook()
	defined := make(map[Name]bool)
	var referenced []Name

	p := NewParser(input)
	p.resolve = func(n Name) (DefID, error) {
		if id, ok := book.Names.ID(n); ok {
			return id, nil
		}
		referenced = append(referenced, n)
		return book.Names.Insert(n), nil
	}

	for p.current.Type != TokenEOF {
		if _, err := p.expect(TokenDef, "'def'"); err != nil {
			return nil, err
		}
		tok, err := p.expect(TokenIdent, "definition name")
		if err != nil {
			return nil, err
		}
		name := Name(tok.Literal)
		if defined[name] {
			return nil, fmt.Errorf("duplicate definition %s", name)
		}
		if _, err := p.expect(TokenEqual, "'='"); err != nil {
			return nil, err
		}
		id, ok := book.Names.ID(name)
		if !ok {
			id = book.Names.Insert(name)
		}
		defined[name] = true

		body, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("def %s: %w", name, err)
		}
		book.Defs = append(book.Defs, &Definition{DefID: id, Rules: []Rule{{DefID: id, Body: body}}})
	}

	for _, n := range referenced {
		if !defined[n] {
			return nil, fmt.Errorf("undefined reference @%s", n)
		}
	}
	return book, nil
}
