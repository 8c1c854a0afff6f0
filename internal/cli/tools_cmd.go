package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools enabled by the current config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd, nil, false)
			if err != nil {
				return err
			}
			tools := newServer(cfg, zap.NewNop(), nil).Tools()
			out := cmd.OutOrStdout()
			if a.flags.JSON {
				return writeJSON(out, tools)
			}
			table := newTable(out, "Name", "Description")
			for _, tool := range tools {
				table.Append([]string{tool.Name, firstSentence(tool.Description)})
			}
			table.Render()
			return nil
		},
	}
}

func (a *app) newCallCmd() *cobra.Command {
	var (
		rawArgs  string
		argsFile string
	)
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool and print its result as JSON",
		Example: `  mcp-toolbox call read_file_content --args '{"path": "~/notes.txt", "chunk_index": 1}'
  mcp-toolbox call figma_get_comments --args-file args.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(rawArgs, argsFile)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd, nil, false)
			if err != nil {
				return err
			}
			logger, err := a.newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			journal, err := openJournal(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeJournal(journal, logger)

			start := time.Now()
			result := newServer(cfg, logger, journal).CallTool(cmd.Context(), args[0], toolArgs)
			elapsed := time.Since(start)
			if err := writeJSON(cmd.OutOrStdout(), result.Fields()); err != nil {
				return err
			}
			if !result.OK() {
				return fmt.Errorf("%s failed (%s): %s", args[0], result.Kind(), result.Message())
			}
			if !a.flags.Quiet {
				errOut := cmd.ErrOrStderr()
				fmt.Fprintf(errOut, "%s %s in %dms\n", args[0], newTheme(errOut, a.flags.JSON).callStatus(true, ""), elapsed.Milliseconds())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "", "tool arguments as a JSON object")
	cmd.Flags().StringVar(&argsFile, "args-file", "", "read tool arguments from a JSON file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("args", "args-file")
	return cmd
}

func parseToolArgs(raw, file string) (map[string]interface{}, error) {
	data := []byte(raw)
	switch file {
	case "":
	case "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read arguments from stdin: %w", err)
		}
		data = b
	default:
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read arguments file: %w", err)
		}
		data = b
	}
	if strings.TrimSpace(string(data)) == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("tool arguments must be a JSON object: %w", err)
	}
	if args == nil {
		return nil, errors.New("tool arguments must be a JSON object, got null")
	}
	return args, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// firstSentence trims a tool description to its summary line.
func firstSentence(desc string) string {
	desc = strings.TrimSpace(desc)
	if i := strings.Index(desc, "\n"); i >= 0 {
		desc = desc[:i]
	}
	if i := strings.Index(desc, ". "); i >= 0 {
		desc = desc[:i+1]
	}
	return desc
}
