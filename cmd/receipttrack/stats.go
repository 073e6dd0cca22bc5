package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/receipttrack/receipttrack-go/api"
)

func statsCmd(a *app) *cobra.Command {
	var (
		dateFrom string
		dateTo   string
		userID   int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Spending statistics",
	}
	cmd.PersistentFlags().StringVar(&dateFrom, "from", "", "earliest date (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&dateTo, "to", "", "latest date (YYYY-MM-DD)")
	cmd.PersistentFlags().IntVar(&userID, "user-id", 0, "filter by owner (admin only)")

	filter := func() (api.StatFilter, error) {
		f := api.StatFilter{UserID: userID}
		var err error
		if f.DateFrom, err = parseDate(dateFrom); err != nil {
			return f, err
		}
		f.DateTo, err = parseDate(dateTo)
		return f, err
	}

	statRunE := func(fetch func(context.Context, api.StatFilter) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			f, err := filter()
			if err != nil {
				return err
			}
			result, err := fetch(ctx, f)
			if err != nil {
				return err
			}
			return printJSON(result)
		}
	}

	spent := &cobra.Command{
		Use:   "spent",
		Short: "Total amount spent",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			return a.backend.TotalSpent(ctx, f)
		}),
	}
	count := &cobra.Command{
		Use:   "count",
		Short: "Number of receipts",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			return a.backend.TotalReceipts(ctx, f)
		}),
	}
	average := &cobra.Command{
		Use:   "average",
		Short: "Average receipt value",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			return a.backend.AverageReceiptValue(ctx, f)
		}),
	}

	var limit int
	top := &cobra.Command{
		Use:   "top",
		Short: "Most frequently bought items",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			return a.backend.TopItems(ctx, f, limit)
		}),
	}
	top.Flags().IntVar(&limit, "limit", 10, "number of items")

	var cloudLimit int
	wordcloud := &cobra.Command{
		Use:   "wordcloud",
		Short: "Purchase frequencies for word cloud rendering",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			return a.backend.WordCloud(ctx, f, cloudLimit)
		}),
	}
	wordcloud.Flags().IntVar(&cloudLimit, "limit", 30, "number of items")

	var aggregation string
	series := &cobra.Command{
		Use:   "series",
		Short: "Receipt counts over time",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			f.Aggregation = aggregation
			return a.backend.ReceiptsTimeSeries(ctx, f)
		}),
	}
	series.Flags().StringVar(&aggregation, "aggregation", "day", "bucket size (day, month, year)")

	var amountsAggregation string
	amounts := &cobra.Command{
		Use:   "amounts",
		Short: "Spending totals over time",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			f.Aggregation = amountsAggregation
			return a.backend.AmountsTimeSeries(ctx, f)
		}),
	}
	amounts.Flags().StringVar(&amountsAggregation, "aggregation", "day", "bucket size (day, month, year)")

	markets := &cobra.Command{
		Use:   "markets",
		Short: "Per-market spending breakdown",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			return a.backend.MarketTotalSpent(ctx, f)
		}),
	}
	marketCounts := &cobra.Command{
		Use:   "market-counts",
		Short: "Per-market purchase counts",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			return a.backend.MarketTotalReceipts(ctx, f)
		}),
	}
	marketAverages := &cobra.Command{
		Use:   "market-averages",
		Short: "Per-market average spend",
		RunE: statRunE(func(ctx context.Context, f api.StatFilter) (any, error) {
			return a.backend.MarketAverageSpent(ctx, f)
		}),
	}

	cmd.AddCommand(spent, count, average, top, wordcloud, series, amounts, markets, marketCounts, marketAverages)
	return cmd
}
