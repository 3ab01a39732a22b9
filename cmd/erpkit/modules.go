package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/erpkit/bootstrap"
	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/registry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var modulesCmd = &cobra.Command{
	Use:     "modules",
	Aliases: []string{"mod"},
	Short:   "Inspect the loaded modules",
	Long: `Inspect the module descriptors erpkit would serve.

Modules come from modules.dir in the configuration, or the built-in set
when that directory does not exist.

Examples:
  erpkit modules list
  erpkit modules show nhan_su -o yaml`,
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List modules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		infos := make([]moduleInfo, 0, reg.Len())
		for _, mod := range reg.List() {
			infos = append(infos, describeModule(reg, mod))
		}
		return printModules(cmd.OutOrStdout(), infos)
	},
}

var modulesShowCmd = &cobra.Command{
	Use:   "show <module>",
	Short: "Show one module with its columns and fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		mod, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}
		return printModule(cmd.OutOrStdout(), describeModule(reg, mod))
	},
}

func init() {
	modulesCmd.AddCommand(modulesListCmd, modulesShowCmd)
	rootCmd.AddCommand(modulesCmd)
}

// moduleInfo is the printable summary of a module.
type moduleInfo struct {
	Name     string       `json:"name" yaml:"name"`
	Title    string       `json:"title" yaml:"title"`
	Route    string       `json:"route" yaml:"route"`
	Parent   string       `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children []string     `json:"children,omitempty" yaml:"children,omitempty"`
	Search   []string     `json:"search,omitempty" yaml:"search,omitempty"`
	Columns  []columnInfo `json:"columns" yaml:"columns"`
	Fields   []fieldInfo  `json:"fields" yaml:"fields"`
}

type columnInfo struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`
	Export bool   `json:"export" yaml:"export"`
}

type fieldInfo struct {
	Name     string `json:"name" yaml:"name"`
	Label    string `json:"label" yaml:"label"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// loadRegistry builds the registry from configuration without opening
// any database.
func loadRegistry() (*registry.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	mods, _, err := bootstrap.LoadModules(cfg.Modules.Dir)
	if err != nil {
		return nil, err
	}
	return registry.New(bootstrap.NewResolver(cfg.Navigation), mods...)
}

func describeModule(reg *registry.Registry, mod convention.Derived) moduleInfo {
	info := moduleInfo{
		Name:   mod.Source.Name,
		Title:  mod.Title,
		Route:  mod.RoutePath,
		Search: mod.SearchFields,
	}
	if p := mod.Source.Parent; p != nil {
		info.Parent = p.Module + "." + p.ForeignKey
	}
	for _, child := range reg.Children(mod.Source.Name) {
		info.Children = append(info.Children, child.Source.Name)
	}

	exported := make(map[string]bool, len(mod.ExportColumns))
	for _, c := range mod.ExportColumns {
		exported[c.ID] = true
	}
	for _, c := range mod.Columns {
		info.Columns = append(info.Columns, columnInfo{
			ID:     c.ID,
			Title:  c.Title(),
			Filter: string(c.Filter),
			Export: exported[c.ID],
		})
	}
	for _, f := range mod.Fields {
		info.Fields = append(info.Fields, fieldInfo{
			Name:     f.Name,
			Label:    f.DisplayLabel(),
			Type:     string(f.Type),
			Required: f.Required,
		})
	}
	return info
}

func printModules(w io.Writer, infos []moduleInfo) error {
	switch output {
	case "json", "yaml":
		return encode(w, infos)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTITLE\tROUTE\tPARENT\tCOLUMNS\tFIELDS")
	for _, m := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			m.Name, m.Title, m.Route, dash(m.Parent), len(m.Columns), len(m.Fields))
	}
	return tw.Flush()
}

func printModule(w io.Writer, m moduleInfo) error {
	switch output {
	case "json", "yaml":
		return encode(w, m)
	}

	fmt.Fprintf(w, "%s (%s)\n", m.Title, m.Name)
	fmt.Fprintf(w, "  route:    %s\n", m.Route)
	fmt.Fprintf(w, "  parent:   %s\n", dash(m.Parent))
	fmt.Fprintf(w, "  children: %s\n", dash(strings.Join(m.Children, ", ")))
	fmt.Fprintf(w, "  search:   %s\n\n", dash(strings.Join(m.Search, ", ")))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTITLE\tFILTER\tEXPORT")
	for _, c := range m.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", c.ID, c.Title, dash(c.Filter), c.Export)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "FIELD\tLABEL\tTYPE\tREQUIRED")
	for _, f := range m.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", f.Name, f.Label, f.Type, f.Required)
	}
	return tw.Flush()
}

// encode writes v as json or yaml according to --output.
func encode(w io.Writer, v any) error {
	if output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
