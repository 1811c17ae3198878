package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"tsrepl/internal/host"
	"tsrepl/internal/repl"
	"tsrepl/internal/version"
)

var (
	historyFile string
	noColor     bool
	verbose     int
)

var rootCmd = &cobra.Command{
	Use:   "tsrepl",
	Short: "Interactive TypeScript/JavaScript console",
	Long: `tsrepl is an interactive console for an embedded TypeScript/JavaScript
runtime. Expressions are transpiled, evaluated in a live execution context
through the runtime inspection protocol, and pretty-printed, with tab
completion and syntax coloring at the prompt.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("tsrepl %s\n", version.String()))
	rootCmd.Flags().StringVar(&historyFile, "history-file", "", "history file path (default ~/.tsrepl/history)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.Flags().CountVarP(&verbose, "verbose", "v", "increase log verbosity")
}

func run(cmd *cobra.Command, args []string) error {
	commonlog.Configure(verbose, nil)
	if noColor {
		color.NoColor = true
	}

	if historyFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			historyFile = filepath.Join(home, ".tsrepl", "history")
		}
	}

	h, err := host.New(host.Options{Stdout: os.Stdout})
	if err != nil {
		return err
	}
	session, err := repl.NewSession(h, h)
	if err != nil {
		return err
	}
	helper := repl.NewEditorHelper(session.ContextID())
	editor, err := repl.NewEditor(helper, historyFile)
	if err != nil {
		return err
	}
	defer editor.Close()

	return repl.Run(session, helper, editor, os.Stdout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
