// Package llm talks to hosted language models and turns their output into record extractions.
package llm

import "context"

// InputMode selects how a document reaches the model.
type InputMode string

const (
	// InputText inlines the text extracted from the PDF into the prompt.
	InputText InputMode = "text"
	// InputFile attaches the PDF itself.
	InputFile InputMode = "file"
)

// SchemaMode selects how tightly the response schema constrains the model.
type SchemaMode string

const (
	SchemaStrict  SchemaMode = "strict"
	SchemaLenient SchemaMode = "lenient"
)

// Request is one extraction call for one document.
type Request struct {
	Model      string
	Label      string
	Text       string
	PDF        []byte
	Pages      int
	InputMode  InputMode
	SchemaMode SchemaMode
}

// Provider is a hosted model API. Extract returns the raw JSON text produced by the model.
type Provider interface {
	Name() string
	Extract(ctx context.Context, req Request) ([]byte, error)
}
