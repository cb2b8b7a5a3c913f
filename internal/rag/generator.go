package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks pdfqa/internal/rag Generator

import "context"

// Generator is an opaque, best-effort text completion function.
// Nothing it returns is trusted to follow the instructed format.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
