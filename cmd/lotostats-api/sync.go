package main

import (
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/lotostats/internal/config"
	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	syncModeLoad    = "load"
	syncModeRefresh = "refresh"
	syncModeReset   = "reset"
)

type syncRunSummary struct {
	RunID    string             `json:"run_id"`
	Category string             `json:"category"`
	Mode     string             `json:"mode"`
	Records  int                `json:"records"`
	Latest   string             `json:"latest,omitempty"`
	Months   []syncMonthSummary `json:"months"`
	Error    string             `json:"error,omitempty"`
}

type syncMonthSummary struct {
	Month     string `json:"month"`
	Fetched   int    `json:"fetched"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
	Malformed int    `json:"malformed"`
	Error     string `json:"error,omitempty"`
}

func newSyncCommand() *cobra.Command {
	var (
		categoryFlag string
		modeFlag     string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one load, refresh or reset for a category and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, ok := draws.ResolveCategory(categoryFlag)
			if !ok {
				return fmt.Errorf("unknown category %q", categoryFlag)
			}
			mode, err := parseSyncMode(modeFlag)
			if err != nil {
				return err
			}

			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			app, err := newApplication(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer app.close()

			var result drawsync.Result
			switch mode {
			case syncModeLoad:
				result, err = app.coordinator.InitialLoad(cmd.Context(), category.APIName)
			case syncModeRefresh:
				result, err = app.coordinator.Refresh(cmd.Context(), category.APIName)
			case syncModeReset:
				result, err = app.coordinator.ForceReset(cmd.Context(), category.APIName)
			}
			if err != nil {
				return err
			}
			if result.Err != nil {
				app.logger.Warn("sync finished with failures", zap.String("run_id", result.RunID), zap.Error(result.Err))
			}
			return printJSON(cmd, summarizeRun(result))
		},
	}
	cmd.Flags().StringVar(&categoryFlag, "category", "", "Category provider name or slug (e.g. Reveil, especes)")
	cmd.Flags().StringVar(&modeFlag, "mode", "refresh", "Sync mode: load, refresh or reset")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func parseSyncMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case syncModeLoad, syncModeRefresh, syncModeReset:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected load, refresh or reset)", raw)
	}
}

func summarizeRun(result drawsync.Result) syncRunSummary {
	summary := syncRunSummary{
		RunID:    result.RunID,
		Category: result.Category,
		Mode:     result.Mode,
		Records:  len(result.Records),
		Months:   make([]syncMonthSummary, 0, len(result.Months)),
	}
	if len(result.Records) > 0 {
		summary.Latest = result.Records[0].Date
	}
	for _, month := range result.Months {
		entry := syncMonthSummary{
			Month:     month.Month.String(),
			Fetched:   month.Fetched,
			Inserted:  month.Inserted,
			Skipped:   month.Skipped,
			Malformed: month.Malformed,
		}
		if month.Err != nil {
			entry.Error = month.Err.Error()
		}
		summary.Months = append(summary.Months, entry)
	}
	if result.Err != nil {
		summary.Error = result.Err.Error()
	}
	return summary
}
