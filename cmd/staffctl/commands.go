package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/staffdir/internal/core"
)

// viewFlags are the search and sort options shared by list and export.
type viewFlags struct {
	search string
	sort   string
	desc   bool
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "case-insensitive search text")
	cmd.Flags().StringVar(&f.sort, "sort", string(core.SortByFullName), "sort column")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
}

func (f *viewFlags) table(a *app, perPage int) (*core.Table, error) {
	key, ok := core.ParseSortKey(f.sort)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownSortKey, f.sort)
	}
	state := core.DefaultViewState(perPage)
	state.Search = f.search
	state.SortKey = key
	state.SortAsc = !f.desc
	return core.NewTable(a.store, &state, a.dates), nil
}

func newListCmd(a *app) *cobra.Command {
	var (
		view    viewFlags
		page    int
		perPage int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of the directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if perPage == 0 {
				perPage = a.cfg.Table.RowsPerPage
			}
			if err := core.ValidatePage(page, perPage, a.cfg.Table.MaxRowsPerPage); err != nil {
				return err
			}
			t, err := view.table(a, perPage)
			if err != nil {
				return err
			}
			t.State().CurrentPage = page

			rows := t.Page()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return printTable(cmd.OutOrStdout(), rows, a.dates, page, t.TotalPages())
		},
	}
	view.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "rows per page (default from TABLE_ROWS_PER_PAGE)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func printTable(w io.Writer, rows []core.Employee, dates core.DateFormatter, page, pages int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(core.CSVHeaders, "\t"))
	for _, e := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Code, e.FullName, e.Department, e.Occupation,
			dates.FormatEmploymentDate(e.DateOfEmployment),
			dates.FormatTerminationDate(e.TerminationDate))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d\n", page, pages)
	return err
}

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Append rows from a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := readImportFile(args[0], a.store.Employees(), a.cfg.Import.MaxFileSize)
			if err != nil {
				return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
			}

			out := cmd.OutOrStdout()
			for _, msg := range result.Errors {
				fmt.Fprintln(out, msg)
			}
			if dryRun {
				fmt.Fprintf(out, "%d rows valid, %d errors (dry run, nothing saved)\n",
					len(result.ValidEmployees), len(result.Errors))
				return nil
			}

			added, skipped, err := a.store.Append(cmd.Context(), result.ValidEmployees)
			if err != nil {
				return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
			}
			for _, code := range skipped {
				fmt.Fprintf(out, "Employee code %q already exists, skipped\n", code)
			}
			fmt.Fprintf(out, "imported %d employees, %d errors\n", added, len(result.Errors)+len(skipped))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "check the file without saving")
	return cmd
}

// readImportFile picks the reader by extension, like the web upload.
func readImportFile(path string, existing []core.Employee, maxBytes int64) (core.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.ImportResult{}, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return core.ImportXLSX(io.LimitReader(f, maxBytes), existing)
	}
	text, err := core.ReadImport(f, maxBytes)
	if err != nil {
		return core.ImportResult{}, err
	}
	return core.ImportCSV(text, existing)
}

func newExportCmd(a *app) *cobra.Command {
	var (
		view   viewFlags
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the sorted, filtered directory to CSV or XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := view.table(a, a.cfg.Table.RowsPerPage)
			if err != nil {
				return err
			}

			var artifact core.Artifact
			switch format {
			case "csv":
				artifact = t.Export()
			case "xlsx":
				if artifact, err = t.ExportXLSX(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (csv or xlsx)", format)
			}

			if out == "" || out == "-" {
				_, err = artifact.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := os.WriteFile(out, artifact.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d employees to %s\n", len(t.Sorted()), out)
			return nil
		},
	}
	view.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an employee by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := core.ID(args[0])
			if _, err := a.store.Get(id); err != nil {
				return err
			}
			if res := a.store.Delete(cmd.Context(), id); !res.Success {
				return errors.New("delete failed, the remote service or storage rejected it")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every employee",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			n := a.store.Len()
			if err := a.store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d employees\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
