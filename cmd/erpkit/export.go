package main

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/erpkit/bootstrap"
	httpChannel "github.com/artpar/erpkit/core/channel/http"
	"github.com/artpar/erpkit/core/crud"
	"github.com/artpar/erpkit/core/exporter"
	"github.com/artpar/erpkit/core/listview"
	"github.com/spf13/cobra"
)

var exportFlags struct {
	format   string
	mode     string
	out      string
	search   string
	filters  string
	ids      []string
	template string
	profile  string
}

var exportCmd = &cobra.Command{
	Use:   "export <module>",
	Short: "Export a module list to Excel, PDF, CSV or JSON",
	Long: `Export module rows with the same column selection, formatting and
file naming as the API.

Without --template the profile's last used export settings apply.
--out may be a file, a directory, or "-" for stdout.

Examples:
  erpkit export nhan_su
  erpkit export nhan_su --format pdf --search "kế toán" --out bao-cao/
  erpkit export nhan_su --mode selected --ids 3,7 --format csv --out -`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVarP(&exportFlags.format, "format", "f", "", "excel, pdf, csv or json (default: last used, then excel)")
	f.StringVar(&exportFlags.mode, "mode", "", "all, filtered or selected (default: last used, then filtered)")
	f.StringVar(&exportFlags.out, "out", "", "output file or directory (default: generated name in the current directory)")
	f.StringVarP(&exportFlags.search, "search", "s", "", "free-text search for filtered mode")
	f.StringVar(&exportFlags.filters, "filters", "", "column filters as JSON for filtered mode")
	f.StringSliceVar(&exportFlags.ids, "ids", nil, "record ids for selected mode")
	f.StringVar(&exportFlags.template, "template", "", "saved export template id")
	f.StringVar(&exportFlags.profile, "profile", httpChannel.DefaultProfile, "preference profile")
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	svc, ok := app.Services[args[0]]
	if !ok {
		_, err := app.Registry.Lookup(args[0])
		return err
	}

	cfg, err := exportConfig(ctx, app, svc.Name())
	if err != nil {
		return err
	}
	format := firstNonEmpty(exporter.Format(exportFlags.format), cfg.DefaultFormat, exporter.FormatExcel)
	mode := firstNonEmpty(exporter.Mode(exportFlags.mode), cfg.DefaultMode, exporter.ModeFiltered)

	req, err := exportRequest(ctx, app, svc, mode)
	if err != nil {
		return err
	}
	req.Config = cfg

	var buf bytes.Buffer
	filename, n, err := app.Exporters.Export(&buf, format, req)
	if err != nil {
		return fmt.Errorf("export %s: %w", svc.Name(), err)
	}

	if exportFlags.out == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	path, err := outputPath(exportFlags.out, filename)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}

	last := cfg
	last.DefaultFormat, last.DefaultMode = format, mode
	if err := app.Prefs.SaveExportPreferences(ctx, exportFlags.profile, svc.Name(), last); err != nil {
		app.Logger.Warn().Err(err).Msg("saving export preferences failed")
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s %d rows written to %s\n", checkMark, n, path)
	return nil
}

// exportConfig picks the template, then the last used settings, then the
// stock options.
func exportConfig(ctx context.Context, app *bootstrap.App, module string) (exporter.Config, error) {
	if exportFlags.template != "" {
		tpl, err := app.Prefs.LoadExportTemplate(ctx, exportFlags.profile, module, exportFlags.template)
		if err != nil {
			return exporter.Config{}, err
		}
		return tpl.Config, nil
	}
	cfg, ok, err := app.Prefs.ExportPreferences(ctx, exportFlags.profile, module)
	if err != nil {
		return exporter.Config{}, err
	}
	if !ok {
		return exporter.Config{ExportOptions: exporter.DefaultOptions()}, nil
	}
	return cfg, nil
}

func exportRequest(ctx context.Context, app *bootstrap.App, svc *crud.Service, mode exporter.Mode) (exporter.Request, error) {
	mod := svc.Module()
	rows, err := svc.FetchAll(ctx)
	if err != nil {
		return exporter.Request{}, err
	}

	q := listRequestValues(exportFlags.search, exportFlags.filters)
	listReq, err := listview.ParseRequest(q)
	if err != nil {
		return exporter.Request{}, err
	}

	req := exporter.Request{
		Module:      mod.Source.Name,
		Title:       mod.Title,
		Columns:     mod.Columns,
		Rows:        rows,
		Mode:        mode,
		SelectedIDs: exportFlags.ids,
		IDKey:       mod.Source.PrimaryKey(),
		Search:      listReq.Search,
		Now:         time.Now(),
	}

	switch mode {
	case exporter.ModeFiltered:
		filtered, err := svc.Engine(app.Config.List.ServerSide).Filtered(ctx, listReq)
		if err != nil {
			return exporter.Request{}, err
		}
		if filtered == nil {
			filtered = []listview.Row{}
		}
		req.Filtered = filtered
	case exporter.ModeAll, exporter.ModeSelected:
	default:
		return exporter.Request{}, fmt.Errorf("unknown export mode %q", mode)
	}

	active, _ := listview.DecodeFilters(mod.Columns, listReq.Filters)
	for _, chip := range listview.FilterChips(mod.Columns, active, "") {
		req.Filters = append(req.Filters, chip.Label+": "+chip.Value)
	}
	return req, nil
}

func listRequestValues(search, filters string) url.Values {
	q := url.Values{}
	q.Set(listview.ParamPageSize, strconv.Itoa(listview.DefaultPageSize))
	if search != "" {
		q.Set(listview.ParamSearch, search)
	}
	if filters != "" {
		q.Set(listview.ParamFilters, filters)
	}
	return q
}

// outputPath places the generated file name under out when out is empty
// or a directory. A trailing separator creates the directory.
func outputPath(out, filename string) (string, error) {
	if out == "" {
		return filename, nil
	}
	if strings.HasSuffix(out, string(os.PathSeparator)) {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return "", err
		}
		return filepath.Join(out, filename), nil
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, filename), nil
	}
	return out, nil
}

func firstNonEmpty[T ~string](vals ...T) T {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
