package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pdfqa/internal/app"
	"pdfqa/internal/config"
	"pdfqa/internal/service"
	"pdfqa/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pdfqa",
		Short:         "Citation-grounded question answering over PDF documents",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newIndexCommand())
	cmd.AddCommand(newAskCommand())
	cmd.AddCommand(newDocumentsCommand())
	cmd.AddCommand(newServeCommand())
	return cmd
}

// withApp loads configuration, builds the application and closes it after run.
// CLI logs go to stderr so command output on stdout stays machine-readable.
func withApp(ctx context.Context, run func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.SetupLogging(cfg, os.Stderr)

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()
	return run(a)
}

// withRegistry is withApp for commands that only read the SQLite registry.
func withRegistry(run func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.SetupLogging(cfg, os.Stderr)

	a, err := app.OpenRegistry(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()
	return run(a)
}

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file|dir>...",
		Short: "Index PDF and Markdown documents into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				report, err := a.IndexPaths(cmd.Context(), args...)
				if report != nil {
					if encErr := writeJSON(cmd.OutOrStdout(), report); encErr != nil {
						return encErr
					}
				}
				return err
			})
		},
	}
	return cmd
}

func newAskCommand() *cobra.Command {
	var sources []string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents and print the JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				resp, err := a.QAService.Answer(cmd.Context(), service.QARequest{
					Question: args[0],
					Sources:  sources,
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Restrict retrieval to these document sources (repeatable)")
	return cmd
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				return a.Serve(cmd.Context())
			})
		},
	}
	return cmd
}

// documentView is the CLI rendering of an indexed document.
type documentView struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Hash      string    `json:"hash"`
	Pages     int       `json:"pages"`
	IndexedAt time.Time `json:"indexed_at"`
}

func newDocumentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List the documents recorded in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRegistry(func(a *app.App) error {
				docs, err := a.Documents.List(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), documentViews(docs))
			})
		},
	}
	return cmd
}

func documentViews(docs []storage.DocumentRecord) []documentView {
	views := make([]documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, documentView{
			ID:        d.ID,
			Source:    d.Source,
			Hash:      d.Hash,
			Pages:     d.PageCount,
			IndexedAt: d.IndexedAt,
		})
	}
	return views
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
