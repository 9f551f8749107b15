package main

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragchat/internal/credential"
	"ragchat/internal/domain"
	"ragchat/internal/index"
	"ragchat/internal/logging"
	"ragchat/internal/tui"
)

var (
	indexOut    string
	askDocs     []string
	askIndex    string
	askSources  bool
	chatIndex   string
	interactive = credential.TerminalPrompter{}
)

func init() {
	rootCmd.AddCommand(indexCmd, askCmd, chatCmd)

	indexCmd.Flags().StringVarP(&indexOut, "out", "o", "", "Index file to write (defaults to index.path from the config)")

	askCmd.Flags().StringSliceVar(&askDocs, "docs", nil, "Files, directories or globs to ingest before answering")
	askCmd.Flags().StringVar(&askIndex, "index", "", "Persisted index to answer from")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "Print the cited sources after the answer")

	chatCmd.Flags().StringVar(&chatIndex, "index", "", "Persisted index to chat over when no paths are given")
}

var indexCmd = &cobra.Command{
	Use:   "index <paths...>",
	Short: "Ingest documents and persist the vector index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logging.Sync(logger)

		out := indexOut
		if out == "" {
			out = cfg.Index.Path
		}
		if out == "" {
			return domain.Configf("--out is required when index.path is not configured")
		}

		a, err := newApp(cfg, logger, interactive)
		if err != nil {
			return err
		}
		ix, err := index.Build(nil, a.indexOptions()...)
		if err != nil {
			return err
		}
		report, err := a.ingestor.Ingest(cmd.Context(), args, ix)
		if err != nil {
			return err
		}
		if err := ix.Persist(out); err != nil {
			return fmt.Errorf("writing index: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d documents into %s (%s)\n",
			report.Chunks, report.Documents, out, report.Took.Round(time.Millisecond))
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logging.Sync(logger)

		path := askIndex
		if path == "" && len(askDocs) == 0 {
			path = cfg.Index.Path
		}
		a, err := newApp(cfg, logger, interactive)
		if err != nil {
			return err
		}
		ix, err := a.openIndex(cmd.Context(), askDocs, path)
		if err != nil {
			return err
		}
		orch, err := a.orchestrator(ix)
		if err != nil {
			return err
		}
		ans, err := orch.Ask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printAnswer(cmd.OutOrStdout(), ans, askSources)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat [paths...]",
	Short: "Chat about documents in an interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logging.Sync(logger)

		path := chatIndex
		if path == "" && len(args) == 0 {
			path = cfg.Index.Path
		}
		a, err := newApp(cfg, logger, interactive)
		if err != nil {
			return err
		}
		ix, err := a.openIndex(cmd.Context(), args, path)
		if err != nil {
			return err
		}
		orch, err := a.orchestrator(ix)
		if err != nil {
			return err
		}

		summary := fmt.Sprintf("%d chunks indexed, %s embeddings, %s answers", ix.Len(), a.embedder.Name(), a.generator.Name())
		m := tui.New(orch, summary)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(os.Stderr)).Run()
		return err
	},
}

func printAnswer(w io.Writer, ans domain.Answer, sources bool) {
	fmt.Fprintln(w, ans.Text)
	if sources && len(ans.Citations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for _, c := range ans.Citations {
			fmt.Fprintf(w, "  - %s p.%d\n", c.Source, c.Page)
		}
	}
}
