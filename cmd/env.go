package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/dataset"
	"github.com/sells-group/suburb-insights/internal/finance"
)

// newLoader returns a loader over the configured data directory.
func newLoader() *dataset.Loader {
	return dataset.NewLoader(cfg.Data)
}

// newCalculator builds the finance calculator. The stamp duty schedule is
// optional; without it estimates omit stamp duty.
func newCalculator(ctx context.Context, loader *dataset.Loader) (*finance.Calculator, error) {
	tbl, err := loader.LoadStampDuty(ctx)
	if err != nil {
		return nil, err
	}
	if tbl.Len() == 0 {
		zap.L().Debug("no stamp duty schedule loaded", zap.Int("warnings", len(tbl.Warnings)))
	}
	return finance.NewCalculator(cfg.Finance, tbl.Rows), nil
}

// splitAndTrim splits a comma-separated string and drops empty parts.
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
