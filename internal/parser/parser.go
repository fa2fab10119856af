package parser

import (
	"errors"
	"fmt"
)

// ErrNoMatchingFormat is returned by Registry.Find when no registered
// parser recognizes the input.
var ErrNoMatchingFormat = errors.New("no matching chat export format")

const maxLineSize = 10 * 1024 * 1024 // 10MB

// ParseError tags a parse failure with the parser that produced it, so
// callers can report which platform importer broke.
type ParseError struct {
	Parser string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s]: %v", e.Parser, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser decodes one platform's chat export format.
//
// Detect must be cheap content sniffing (structural markers on the
// head of the input, never a full decode) and must not panic on
// garbage. Parse converts the raw export into a ParseResult.
type Parser interface {
	Name() string
	Detect(content []byte, filename string) bool
	Parse(content []byte, filename string) (*ParseResult, error)
}

// Registry holds parsers in a fixed priority order; the first parser
// whose Detect succeeds wins.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns the default registry. Registration order is part
// of the contract: telegram's JSON sniff runs before the two
// plain-text parsers, and the qq header check runs before whatsapp's
// more generic line match.
func NewRegistry() *Registry {
	return &Registry{parsers: []Parser{
		&TelegramParser{},
		&QQParser{},
		&WhatsAppParser{},
	}}
}

// Register appends a parser at the lowest priority.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Find returns the first parser that detects the content, or
// ErrNoMatchingFormat.
func (r *Registry) Find(content []byte, filename string) (Parser, error) {
	for _, p := range r.parsers {
		if p.Detect(content, filename) {
			return p, nil
		}
	}
	return nil, ErrNoMatchingFormat
}

// Parse detects and decodes in one step. Parse failures are wrapped in
// a ParseError carrying the parser name.
func (r *Registry) Parse(content []byte, filename string) (*ParseResult, error) {
	p, err := r.Find(content, filename)
	if err != nil {
		return nil, err
	}
	res, err := p.Parse(content, filename)
	if err != nil {
		return nil, &ParseError{Parser: p.Name(), Err: err}
	}
	return res, nil
}
