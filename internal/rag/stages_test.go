package rag

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/mock/gomock"

	"pdfqa/internal/citation"
	"pdfqa/internal/rag/mocks"
)

const stageContext = "[C1] (Page 3)\nVector databases enable similarity search.\n\n[C2] (Page 7)\nHNSW is a graph index."

func TestDrafter_Draft(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().Complete(gomock.Any(), draftSystemPrompt, draftUserPrompt("q", stageContext)).Return("  answer [C1].\n", nil)

	got, err := NewDrafter(gen).Draft(context.Background(), "q", stageContext)
	if err != nil {
		t.Fatalf("Draft() error = %v", err)
	}
	if got != "answer [C1]." {
		t.Errorf("Draft() = %q, want trimmed answer", got)
	}
}

func TestVerifier_Verify(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "cited answer kept",
			output: "X [C1]. Y [C2].",
			want:   "X [C1]. Y [C2].",
		},
		{
			name:   "sentinel with whitespace normalized",
			output: "\n" + citation.NoAnswer + "  ",
			want:   citation.NoAnswer,
		},
		{
			name:   "empty output becomes sentinel",
			output: "   ",
			want:   citation.NoAnswer,
		},
		{
			name:   "unknown citation dropped and factual sentence cited",
			output: "HNSW has 3 layers. Made up [C5].",
			want:   "HNSW has 3 layers [C1].",
		},
		{
			name:   "non-factual sentence left alone",
			output: "Maybe check the appendix.",
			want:   "Maybe check the appendix.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gen := mocks.NewMockGenerator(ctrl)
			gen.EXPECT().Complete(gomock.Any(), verifySystemPrompt, gomock.Any()).Return(tt.output, nil)

			got, err := NewVerifier(gen, nil, nil).Verify(context.Background(), "q", stageContext, "draft")
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerifier_Verify_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	llmErr := errors.New("timeout")
	gen.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("", llmErr)

	_, err := NewVerifier(gen, nil, nil).Verify(context.Background(), "q", stageContext, "draft")
	if !errors.Is(err, llmErr) {
		t.Errorf("Verify() error = %v, want wrapped %v", err, llmErr)
	}
}

func TestExpander_Expand(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		output string
		want   []string
	}{
		{
			name:   "plain lines",
			n:      2,
			output: "how does hnsw work\nhnsw graph structure\n",
			want:   []string{"how does hnsw work", "hnsw graph structure"},
		},
		{
			name:   "markers and quotes stripped, capped at n",
			n:      2,
			output: "1. \"first\"\n\n- second\n3) third",
			want:   []string{"first", "second"},
		},
		{
			name:   "blank output",
			n:      3,
			output: "\n  \n",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gen := mocks.NewMockGenerator(ctrl)
			gen.EXPECT().Complete(gomock.Any(), expandSystemPrompt, expandUserPrompt("q", tt.n)).Return(tt.output, nil)

			got, err := NewExpander(gen).Expand(context.Background(), "q", tt.n)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpander_Expand_ZeroSkipsGenerator(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)

	got, err := NewExpander(gen).Expand(context.Background(), "q", 0)
	if err != nil || got != nil {
		t.Errorf("Expand(n=0) = %v, %v, want nil, nil", got, err)
	}
}
