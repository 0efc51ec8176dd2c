package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sells-group/suburb-insights/internal/model"
)

// tableMetrics are the metric columns shown in the terminal table.
var tableMetrics = []model.Metric{
	model.MetricGrossYield,
	model.MetricVacancyRate,
	model.MetricOwnershipPct,
	model.MetricPriceMomentumQoQ,
	model.MetricIRSADRank,
	model.MetricDistanceCBDKm,
	model.MetricMedianPrice,
}

// WriteTable writes a human-readable ranking followed by a one-line summary.
func WriteTable(out io.Writer, run model.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprint(w, "RANK\tSA2\tNAME\tSTATE\tSCORE\tSCALED")
	for _, m := range tableMetrics {
		_, _ = fmt.Fprintf(w, "\t%s", headerFor(m))
	}
	_, _ = fmt.Fprintln(w)

	for _, r := range run.Result.Ranked {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.3f\t%.1f",
			r.Rank,
			r.Region.Code,
			truncate(r.Region.Name, 40),
			r.Region.State,
			r.Score,
			r.Scaled,
		)
		for _, m := range tableMetrics {
			_, _ = fmt.Fprintf(w, "\t%s", tableCell(r.Metrics, m))
		}
		_, _ = fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\n%d ranked, %d unranked, %d unjoined keys (policy %s, run %s)\n",
		len(run.Result.Ranked),
		len(run.Result.Unranked),
		len(run.Result.Diagnostics.Unjoined),
		run.Policy,
		run.ID,
	)
	return err
}

func headerFor(m model.Metric) string {
	switch m {
	case model.MetricGrossYield:
		return "YIELD%"
	case model.MetricVacancyRate:
		return "VACANCY%"
	case model.MetricOwnershipPct:
		return "OWNED%"
	case model.MetricPriceMomentumQoQ:
		return "QOQ%"
	case model.MetricIRSADRank:
		return "IRSAD"
	case model.MetricDistanceCBDKm:
		return "CBD_KM"
	case model.MetricMedianPrice:
		return "MEDIAN"
	default:
		return string(m)
	}
}

func tableCell(ms model.Metrics, m model.Metric) string {
	v, ok := ms.Get(m)
	if !ok {
		return "-"
	}
	switch m {
	case model.MetricIRSADRank, model.MetricMedianPrice:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
