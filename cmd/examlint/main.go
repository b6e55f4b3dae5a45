package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"

	"quizrunner/internal/catalog"
	"quizrunner/internal/db"

	"github.com/spf13/cobra"
)

var errIssuesFound = errors.New("content has issues")

type options struct {
	dir      string
	manifest string
	examDir  string
	dsn      string
	sheet    string
	out      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errIssuesFound) {
			fmt.Fprintf(os.Stderr, "examlint: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "examlint",
		Short:         "Validate and publish quiz content",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", "data", "content directory")
	root.PersistentFlags().StringVar(&opts.manifest, "manifest", catalog.DefaultManifestPath, "manifest path inside the content directory")
	root.PersistentFlags().StringVar(&opts.examDir, "exam-dir", catalog.DefaultExamDir, "exam directory inside the content directory")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the manifest and every listed exam",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	publish := &cobra.Command{
		Use:   "publish",
		Short: "Validate, then upsert the content into postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	publish.Flags().StringVar(&opts.dsn, "dsn", os.Getenv("DB_DSN"), "postgres connection string")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Convert a spreadsheet into an exam document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.OutOrStdout(), opts)
		},
	}
	importCmd.Flags().StringVar(&opts.sheet, "sheet", "", "xlsx file to read")
	importCmd.Flags().StringVar(&opts.out, "out", "", "exam document to write")
	_ = importCmd.MarkFlagRequired("sheet")
	_ = importCmd.MarkFlagRequired("out")

	exportCmd := &cobra.Command{
		Use:   "export <exam.json>",
		Short: "Write an exam document as a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), opts, args[0])
		},
	}
	exportCmd.Flags().StringVar(&opts.out, "out", "", "xlsx file to write")
	_ = exportCmd.MarkFlagRequired("out")

	root.AddCommand(check, publish, importCmd, exportCmd)
	return root
}

func newLoader(opts *options) *catalog.Loader {
	return catalog.NewLoader(catalog.NewDirSource(opts.dir), catalog.LoaderConfig{
		ManifestPath: opts.manifest,
		ExamDir:      opts.examDir,
	}, nil)
}

func runCheck(ctx context.Context, out io.Writer, opts *options) error {
	rep, err := catalog.Lint(ctx, newLoader(opts))
	if err != nil {
		return err
	}
	printReport(out, rep)
	if !rep.OK() {
		return errIssuesFound
	}
	return nil
}

func runPublish(ctx context.Context, out io.Writer, opts *options) error {
	rep, err := catalog.Lint(ctx, newLoader(opts))
	if err != nil {
		return err
	}
	printReport(out, rep)
	if !rep.OK() {
		return errIssuesFound
	}

	conn, err := db.OpenPostgres(ctx, opts.dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	dst := catalog.NewPostgresSource(conn)
	if err := dst.EnsureSchema(ctx); err != nil {
		return err
	}

	src := catalog.NewDirSource(opts.dir)
	resources := []string{rep.Manifest.Path}
	for _, e := range rep.Exams {
		resources = append(resources, e.Path)
	}
	for _, res := range resources {
		body, err := src.Fetch(ctx, res)
		if err != nil {
			return err
		}
		if err := dst.Put(ctx, res, body); err != nil {
			return err
		}
		fmt.Fprintf(out, "published %s\n", path.Clean(res))
	}
	return nil
}

func runImport(out io.Writer, opts *options) error {
	f, err := os.Open(opts.sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	exam, report, err := catalog.ImportExamSheet(f)
	if report != nil {
		for _, re := range report.Errors {
			fmt.Fprintf(out, "row %d: %s\n", re.Row, re.Error)
		}
	}
	if err != nil {
		return err
	}

	body, err := json.MarshalIndent(exam, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, append(body, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d of %d rows into %s\n", report.SuccessRows, report.TotalRows, opts.out)
	if report.FailedRows > 0 {
		return errIssuesFound
	}
	return nil
}

func runExport(ctx context.Context, out io.Writer, opts *options, filename string) error {
	l := newLoader(opts)
	exam, err := l.LoadExam(ctx, l.ExamPath(catalog.Entry{Filename: filename}))
	if err != nil {
		return err
	}
	data, err := catalog.ExportExamSheet(exam)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "exported %d questions to %s\n", len(exam.Questions), opts.out)
	return nil
}

func printReport(out io.Writer, rep catalog.Report) {
	printResource(out, rep.Manifest)
	for _, e := range rep.Exams {
		printResource(out, e)
	}
}

func printResource(out io.Writer, r catalog.ResourceReport) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(out, "FAIL %s: %v\n", r.Path, r.Err)
	case len(r.Issues) > 0:
		fmt.Fprintf(out, "FAIL %s\n", r.Path)
		for _, issue := range r.Issues {
			fmt.Fprintf(out, "  %s\n", issue)
		}
	case r.Questions > 0:
		fmt.Fprintf(out, "ok   %s (%d questions, %s)\n", r.Path, r.Questions, r.Fingerprint[:12])
	default:
		fmt.Fprintf(out, "ok   %s\n", r.Path)
	}
}
