package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/reportloom-cli/internal/session"
)

var (
	askDataset     string
	askReport      bool
	askFormat      string
	askOutput      string
	askInteractive bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about a dataset and print the report",
	Long: `Ask sends a question to the configured backend and assembles the answer
into a report. With --interactive, questions are read line by line from
stdin and the conversation history is kept between them; an empty line or
"exit" ends the session and "clear" starts over.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if askDataset == "" {
			return fmt.Errorf("--dataset is required")
		}
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" && !askInteractive {
			return fmt.Errorf("a question is required (or use --interactive)")
		}

		logger := newLogger(c.LogLevel, false)
		reg := registryFrom(c)
		svc, err := backendFrom(c, reg)
		if err != nil {
			return err
		}
		asm, err := assemblerFrom(c, reg, logger)
		if err != nil {
			return err
		}
		s := session.New("cli", askDataset, svc,
			session.WithAssembler(asm),
			session.WithMaxHistoryTokens(c.MaxHistoryTokens),
		)
		mode := session.ModeQuery
		if askReport {
			mode = session.ModeReport
		}
		ctx := commandContext(logger)
		out := cmd.OutOrStdout()
		format := formatOr(askFormat, c)

		if !askInteractive {
			rep, err := s.Ask(ctx, question, mode)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			return emit(out, rep, format, askOutput)
		}

		if question != "" {
			rep, err := s.Ask(ctx, question, mode)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if err := emit(out, rep, format, ""); err != nil {
				return err
			}
		}
		return askLoop(cmd.InOrStdin(), out, func(q string) error {
			switch strings.ToLower(q) {
			case "clear":
				s.Clear()
				printOK(out, "Conversation cleared")
				return nil
			}
			rep, err := s.Ask(ctx, q, mode)
			if err != nil {
				return err
			}
			return emit(out, rep, format, "")
		})
	},
}

// askLoop feeds each non-empty line of in to handle until EOF, an empty
// line or "exit". Handler errors are printed and the loop continues.
func askLoop(in io.Reader, out io.Writer, handle func(string) error) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "? ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		if q == "" || q == "exit" || q == "quit" {
			return nil
		}
		if err := handle(q); err != nil {
			if errors.Is(err, session.ErrSuperseded) {
				continue
			}
			printError(out, err)
		}
	}
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askDataset, "dataset", "d", "", "dataset id to ask about (required)")
	askCmd.Flags().BoolVar(&askReport, "report", false, "request a full report (charts, narrative and insights)")
	askCmd.Flags().StringVarP(&askFormat, "format", "f", "", "output format: json | yaml | markdown (defaults to config)")
	askCmd.Flags().StringVarP(&askOutput, "output", "o", "", "write the report to a file instead of stdout")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "read questions from stdin and keep conversation history")
}
