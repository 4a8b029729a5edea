package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"account-sync/core/config"
	"account-sync/core/logger"
	"account-sync/core/reconcile"
	"account-sync/core/remote"
	"account-sync/feature/accounts"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	inspectSide    string
	inspectCompany string
	inspectFormat  string
)

// inspectCmd reports the shape of one inventory without syncing anything.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Report the account hierarchy of one site",
	Long: `Lists the inventory of the source (or target) site and prints its depth
histogram, the accounts whose parent matches nothing (orphans) and any parent
cycles that would be broken during a sync.`,
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectSide, "side", "source", "Site to inspect (source, target)")
	f.StringVar(&inspectCompany, "company", "", "Restrict the inventory to one company")
	f.StringVar(&inspectFormat, "format", "text", "Output format (text, json, yaml)")

	RootCmd.AddCommand(inspectCmd)
}

// Report describes a hierarchy.
type Report struct {
	Side    string        `json:"side" yaml:"side"`
	Company string        `json:"company,omitempty" yaml:"company,omitempty"`
	Total   int           `json:"total" yaml:"total"`
	Levels  []LevelReport `json:"levels" yaml:"levels"`
	Orphans []OrphanEntry `json:"orphans" yaml:"orphans"`
	Cycles  []CycleEntry  `json:"cycles" yaml:"cycles"`
}

// LevelReport counts the accounts at one depth.
type LevelReport struct {
	Depth int `json:"depth" yaml:"depth"`
	Count int `json:"count" yaml:"count"`
}

// OrphanEntry is an account whose parent reference matched nothing.
type OrphanEntry struct {
	Name   string `json:"name" yaml:"name"`
	Parent string `json:"parent" yaml:"parent"`
}

// CycleEntry is a parent chain that loops back on itself.
type CycleEntry struct {
	Record string   `json:"record" yaml:"record"`
	Chain  []string `json:"chain" yaml:"chain"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var site remote.Config
	switch inspectSide {
	case "source":
		site = cfg.Source
	case "target":
		site = cfg.Target
	default:
		return fmt.Errorf("unknown side %q", inspectSide)
	}
	if site.URL == "" {
		return fmt.Errorf("%s url is required", inspectSide)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Sync()

	company := cfg.Sync.Company
	if cmd.Flags().Changed("company") {
		company = inspectCompany
	}

	records, err := accounts.NewRemoteStore(site, inspectSide, logg).List(cmd.Context(), reconcile.Filter{Company: company})
	if err != nil {
		return fmt.Errorf("failed to list %s accounts: %w", inspectSide, err)
	}

	report := buildReport(reconcile.BuildHierarchy(records))
	report.Side = inspectSide
	report.Company = company
	return writeReport(cmd.OutOrStdout(), report, inspectFormat)
}

func buildReport(h *reconcile.Hierarchy) Report {
	report := Report{
		Total:   h.Len(),
		Levels:  []LevelReport{},
		Orphans: []OrphanEntry{},
		Cycles:  []CycleEntry{},
	}
	for _, level := range h.Levels() {
		report.Levels = append(report.Levels, LevelReport{Depth: level.Depth, Count: len(level.Names)})
	}
	for _, name := range h.Orphans() {
		r, _ := h.Record(name)
		report.Orphans = append(report.Orphans, OrphanEntry{Name: name, Parent: r.Parent})
	}
	for _, c := range h.Cycles() {
		report.Cycles = append(report.Cycles, CycleEntry{Record: c.Record, Chain: c.Chain})
	}
	return report
}

func writeReport(w io.Writer, report Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return writeText(w, report)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, report Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Side:\t%s\n", report.Side)
	if report.Company != "" {
		fmt.Fprintf(tw, "Company:\t%s\n", report.Company)
	}
	fmt.Fprintf(tw, "Accounts:\t%d\n\n", report.Total)

	fmt.Fprintln(tw, "DEPTH\tCOUNT")
	for _, l := range report.Levels {
		fmt.Fprintf(tw, "%d\t%d\n", l.Depth, l.Count)
	}

	fmt.Fprintf(tw, "\nOrphans:\t%d\n", len(report.Orphans))
	for _, o := range report.Orphans {
		fmt.Fprintf(tw, "  %s\t-> %s\n", o.Name, o.Parent)
	}

	fmt.Fprintf(tw, "\nCycles:\t%d\n", len(report.Cycles))
	for _, c := range report.Cycles {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Record, strings.Join(c.Chain, " -> "))
	}
	return tw.Flush()
}
