// Command convertwithmoss is the reference CLI surface of spec §6: it
// parses the documented flags, wires the three external collaborators
// (Notifier, Cancellation, Settings) the core consumes, and drives one
// conversion run through internal/pipeline. Everything format-specific
// (detectors, emitters) is registered in formats.go.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/notifier"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/pipeline"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/settings"
)

const (
	exitSuccess      = 0
	exitInvalidArgs  = 1
	exitConversionErr = 2
	exitCancelled    = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		analyze               bool
		sourceFormats         []string
		targetFormat          string
		renameFile            string
		createFolderStructure bool
		addNewFiles           bool
		formatOptions         []string
		useTUI                bool
	)

	root := &cobra.Command{
		Use:          "convertwithmoss <source-dir> <dest-dir>",
		Short:        "Convert multi-sample instrument presets between sampler formats",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			store := settings.New()
			for _, kv := range formatOptions {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--output-format-option must be key=value, got %q", kv)
				}
				store.Set(k, v)
			}

			detectors, emit, err := resolveFormats(sourceFormats, targetFormat, store)
			if err != nil {
				return err
			}

			opts := pipeline.Options{
				SourceDir:             cliArgs[0],
				DestDir:               cliArgs[1],
				AnalyzeOnly:           analyze,
				CreateFolderStructure: createFolderStructure,
				AddNewFilesOnly:       addNewFiles,
				RenameMapPath:         renameFile,
				Detectors:             detectors,
				Emit:                  emit,
				EmitExt:               targetExt(targetFormat),
			}

			cancel := notifier.NewAtomicCancellation()
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sig
				cancel.Cancel()
			}()

			var runErr error
			if useTUI {
				program := tea.NewProgram(newTUIModel())
				notify := &tuiNotifier{program: program}
				driver := pipeline.New(notify, cancel)
				go func() {
					err := driver.Run(opts)
					program.Send(runDoneMsg{err: err})
				}()
				finalModel, err := program.Run()
				if err != nil {
					return err
				}
				if m, ok := finalModel.(tuiModel); ok {
					runErr = m.runErr
				}
			} else {
				notify := newConsoleNotifier()
				driver := pipeline.New(notify, cancel)
				runErr = driver.Run(opts)
			}
			if runErr != nil {
				return runErr
			}
			if cancel.Cancelled() {
				cmd.SilenceErrors = true
				return errCancelled
			}
			return nil
		},
	}

	root.Flags().BoolVar(&analyze, "analyze", false, "parse only, write nothing")
	root.Flags().StringArrayVar(&sourceFormats, "source", nil, "source format id (repeatable)")
	root.Flags().StringVar(&targetFormat, "target", "", "destination format id")
	root.Flags().StringVar(&renameFile, "rename-file", "", "UTF-8 old,new / old;new mapping file")
	root.Flags().BoolVar(&createFolderStructure, "create-folder-structure", false, "mirror input directories under the output root")
	root.Flags().BoolVar(&addNewFiles, "add-new-files", false, "skip outputs that already exist")
	root.Flags().StringArrayVar(&formatOptions, "output-format-option", nil, "key=value, repeatable")
	root.Flags().BoolVar(&useTUI, "tui", false, "render a scrolling log pane and progress bar instead of plain log lines")

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if err == errCancelled {
			return exitCancelled
		}
		fmt.Fprintln(os.Stderr, err)
		if isUsageError(err) {
			return exitInvalidArgs
		}
		return exitConversionErr
	}
	return exitSuccess
}

var errCancelled = fmt.Errorf("conversion cancelled")

func isUsageError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"accepts", "unknown flag", "must be key=value", "unknown --source", "unknown --target", "--target is required"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
