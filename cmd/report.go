package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/KaramelBytes/dairyreport/internal/report"
	"github.com/KaramelBytes/dairyreport/internal/utils"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	repSheet        string
	repRelationship string
	repWatch        bool
	repOutput       string
)

var reportCmd = &cobra.Command{
	Use:   "report <file.xlsx>",
	Short: "Print the production report of a workbook as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := report.OptionsFromConfig(currentConfig())
		req := report.Request{Sheet: repSheet, Relationship: repRelationship}

		if !repWatch {
			return runReport(cmd.OutOrStdout(), path, req, opt)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchReport(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), path, req, opt)
	},
}

// runReport reads path afresh and runs the whole pipeline on it.
func runReport(w io.Writer, path string, req report.Request, opt report.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}
	req.Name = filepath.Base(path)
	req.Workbook = data
	start := time.Now()
	rep, err := report.Build(req, opt)
	if err != nil {
		return err
	}
	logger.Debug("report built", "file", req.Name, "sheet", rep.Sheet, "rows", rep.Rows, "duration", time.Since(start))

	md := rep.Markdown()
	if repOutput != "" {
		if err := utils.SafeWriteFile(repOutput, []byte(md)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(w, "✓ Wrote report for %s (%s) to %s\n", req.Name, rep.Sheet, repOutput)
		return nil
	}
	_, err = io.WriteString(w, md)
	return err
}

// watchReport prints the report, then reprints it whenever the file changes.
// Failed runs are reported and watching continues.
func watchReport(ctx context.Context, out, errOut io.Writer, path string, req report.Request, opt report.Options) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()
	// Editors often replace the file, so watch the directory and filter by name.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	rerun := func() {
		if err := runReport(out, abs, req, opt); err != nil {
			fmt.Fprintf(errOut, "✗ %v\n", err)
		}
	}
	rerun()
	fmt.Fprintf(errOut, "⚠ Watching %s for changes (Ctrl+C to stop)\n", abs)

	// Saves arrive as bursts of events; settle before re-running.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			pending = time.After(250 * time.Millisecond)
		case <-pending:
			pending = nil
			fmt.Fprintln(out)
			rerun()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "⚠ watcher: %v\n", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&repSheet, "sheet", "", "sheet to report on (default: first sheet)")
	reportCmd.Flags().StringVar(&repRelationship, "relationship", "", "relationship plot to describe (default: first menu entry)")
	reportCmd.Flags().BoolVar(&repWatch, "watch", false, "re-run the report whenever the workbook changes")
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "write the Markdown report to a file instead of stdout")
}
