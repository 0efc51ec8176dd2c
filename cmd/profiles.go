package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/suburb-insights/internal/scorer"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List weight profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles := scorer.BuiltinProfiles()
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = cfg.Scoring.ProfilePath
		}
		if path != "" {
			fromFile, err := scorer.LoadProfiles(path)
			if err != nil {
				return err
			}
			for name, p := range fromFile {
				profiles[name] = p
			}
		}
		printFactors(os.Stdout, scorer.Factors())
		_, _ = fmt.Fprintln(os.Stdout)
		printProfiles(os.Stdout, profiles)
		return nil
	},
}

func init() {
	profilesCmd.Flags().String("file", "", "YAML file of weight profiles (default from config)")
	rootCmd.AddCommand(profilesCmd)
}

// printFactors lists each scoring factor with its direction and default weight.
func printFactors(out io.Writer, factors []scorer.Factor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FACTOR\tBETTER\tDEFAULT WEIGHT")
	for _, f := range factors {
		better := "higher"
		if f.Direction < 0 {
			better = "lower"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%g\n", f.Metric, better, f.Weight)
	}
	_ = w.Flush()
}

func printProfiles(out io.Writer, profiles map[string]scorer.Profile) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tPOLICY\tWEIGHTS\tDESCRIPTION")
	for _, name := range scorer.ProfileNames(profiles) {
		p := profiles[name]
		policy := p.MissingPolicy
		if policy == "" {
			policy = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, policy, formatWeights(p.Weights), p.Description)
	}
	_ = w.Flush()
}

// formatWeights lists the non-zero weights in name order.
func formatWeights(weights map[string]float64) string {
	names := make([]string, 0, len(weights))
	for k, v := range weights {
		if v != 0 {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", k, weights[k]))
	}
	return strings.Join(parts, " ")
}
