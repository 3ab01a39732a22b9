package main

import (
	"fmt"
	"strings"

	"github.com/artpar/erpkit/core/navigation"
	"github.com/artpar/erpkit/core/registry"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve a path to its module, view mode and breadcrumbs",
	Long: `Resolve a browser path the way the server does.

Examples:
  erpkit resolve /nhan-su
  erpkit resolve /nhan-su/12/sua
  erpkit resolve /to-chuc/phong-ban/moi -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

// resolution is the printable result of resolve.
type resolution struct {
	Path        string           `json:"path" yaml:"path"`
	Module      string           `json:"module" yaml:"module"`
	Mode        navigation.Mode  `json:"mode" yaml:"mode"`
	ID          *int64           `json:"id,omitempty" yaml:"id,omitempty"`
	Invalid     bool             `json:"invalid,omitempty" yaml:"invalid,omitempty"`
	Breadcrumbs []registry.Crumb `json:"breadcrumbs" yaml:"breadcrumbs"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	path := args[0]
	mod, ok := reg.ByPath(path)
	if !ok {
		return fmt.Errorf("no module serves %s", path)
	}
	st := reg.Resolver().Resolve(path, mod.RoutePath)

	res := resolution{
		Path:        path,
		Module:      mod.Source.Name,
		Mode:        st.Mode(),
		ID:          st.CurrentID,
		Invalid:     st.Invalid,
		Breadcrumbs: reg.Breadcrumbs(path),
	}

	w := cmd.OutOrStdout()
	switch output {
	case "json", "yaml":
		return encode(w, res)
	}

	fmt.Fprintf(w, "module: %s (%s)\n", mod.Title, res.Module)
	fmt.Fprintf(w, "mode:   %s\n", res.Mode)
	if res.ID != nil {
		fmt.Fprintf(w, "id:     %d\n", *res.ID)
	}
	if res.Invalid {
		fmt.Fprintf(w, "note:   invalid record id, showing %s\n", reg.Resolver().Paths(mod.RoutePath).List())
	}
	labels := make([]string, len(res.Breadcrumbs))
	for i, c := range res.Breadcrumbs {
		labels[i] = c.Label
	}
	fmt.Fprintf(w, "trail:  %s\n", strings.Join(labels, " › "))
	return nil
}
