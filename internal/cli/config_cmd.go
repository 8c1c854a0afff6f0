package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mcptoolbox/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented config.toml with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConfigInit(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print effective config as YAML (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE:  a.runConfigPrint,
	}

	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(printCmd)
	return configCmd
}

func (a *app) runConfigInit(cmd *cobra.Command, force bool) error {
	// init must work before the environment is complete
	cfg, err := a.load(cmd, config.Options{SkipFile: true, SkipValidate: true})
	if err != nil {
		return err
	}
	configPath := a.flags.ConfigPath
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	if err := config.WriteTemplate(configPath, force); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
		}
		return withExitCode(ExitToolHomeInaccessible, fmt.Errorf("failed to write config: %w", err))
	}
	out := cmd.OutOrStdout()
	t := newTheme(out, a.flags.JSON)
	fmt.Fprintln(out, t.paint(t.good, "Wrote"), configPath)
	if cfg.Figma.APIKey != "" {
		return nil
	}

	if tty, ok := terminalInput(cmd.InOrStdin()); ok && !a.flags.NonInteractive {
		key, err := promptFigmaKey(tty, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("reading Figma API key: %w", err)
		}
		if key != "" {
			// config.toml never holds the key.
			fmt.Fprintf(out, "Export the key before running 'mcp-toolbox serve' (ends in %s):\n", keySuffix(key))
			fmt.Fprintln(out, "  export FIGMA_API_KEY=<your-key>")
			return nil
		}
	}
	fmt.Fprintln(out, t.paint(t.label, "Set FIGMA_API_KEY in your environment or a .env file to enable the Figma tools."))
	return nil
}

func terminalInput(r io.Reader) (*os.File, bool) {
	f, ok := r.(*os.File)
	return f, ok && term.IsTerminal(int(f.Fd()))
}

// promptFigmaKey reads a Figma personal access token from the terminal
// without echo. An empty answer skips the Figma setup.
func promptFigmaKey(tty *os.File, errOut io.Writer) (string, error) {
	fmt.Fprint(errOut, "Figma API key (hidden, Enter to skip): ")
	defer fmt.Fprintln(errOut)
	b, err := term.ReadPassword(int(tty.Fd()))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// keySuffix shows the last four characters so the user can tell keys apart.
func keySuffix(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "..." + key[len(key)-4:]
}

func (a *app) runConfigPrint(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig(cmd, nil, true)
	if err != nil {
		return err
	}
	data, err := config.MarshalSnapshot(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
