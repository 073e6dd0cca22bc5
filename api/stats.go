package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// StatFilter narrows statistics queries. Zero values mean "no filter".
// Aggregation ("day", "month" or "year") applies to time series only; the
// backend defaults to daily buckets.
type StatFilter struct {
	DateFrom    time.Time
	DateTo      time.Time
	UserID      int // admin only
	Aggregation string
}

func (f StatFilter) query() url.Values {
	query := url.Values{}
	if !f.DateFrom.IsZero() {
		query.Set("date_from", f.DateFrom.Format(time.RFC3339))
	}
	if !f.DateTo.IsZero() {
		query.Set("date_to", f.DateTo.Format(time.RFC3339))
	}
	if f.UserID > 0 {
		query.Set("user_id", strconv.Itoa(f.UserID))
	}
	return query
}

// seriesQuery adds the time-series-only aggregation parameter.
func (f StatFilter) seriesQuery() url.Values {
	query := f.query()
	if f.Aggregation != "" {
		query.Set("aggregation", f.Aggregation)
	}
	return query
}

// TotalSpent returns the total-spent KPI for the filtered period.
func (c *Client) TotalSpent(ctx context.Context, filter StatFilter) (*TotalSpent, error) {
	var kpi TotalSpent
	if err := c.getStat(ctx, "/statistic/kpi/total-spent", filter.query(), &kpi); err != nil {
		return nil, errors.Wrap(err, "[Client.TotalSpent]")
	}
	return &kpi, nil
}

// TotalReceipts returns the receipt-count KPI for the filtered period.
func (c *Client) TotalReceipts(ctx context.Context, filter StatFilter) (*TotalReceipts, error) {
	var kpi TotalReceipts
	if err := c.getStat(ctx, "/statistic/kpi/total-receipts", filter.query(), &kpi); err != nil {
		return nil, errors.Wrap(err, "[Client.TotalReceipts]")
	}
	return &kpi, nil
}

// AverageReceiptValue returns the average-receipt-value KPI.
func (c *Client) AverageReceiptValue(ctx context.Context, filter StatFilter) (*AverageReceiptValue, error) {
	var kpi AverageReceiptValue
	if err := c.getStat(ctx, "/statistic/kpi/average-receipt-value", filter.query(), &kpi); err != nil {
		return nil, errors.Wrap(err, "[Client.AverageReceiptValue]")
	}
	return &kpi, nil
}

// TopItems returns the most frequently bought items.
func (c *Client) TopItems(ctx context.Context, filter StatFilter, limit int) (*TopItems, error) {
	query := filter.query()
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var kpi TopItems
	if err := c.getStat(ctx, "/statistic/kpi/top-items", query, &kpi); err != nil {
		return nil, errors.Wrap(err, "[Client.TopItems]")
	}
	return &kpi, nil
}

// WordCloud returns purchase frequencies shaped for word cloud rendering.
func (c *Client) WordCloud(ctx context.Context, filter StatFilter, limit int) ([]WordCloudItem, error) {
	query := filter.query()
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var items []WordCloudItem
	if err := c.getStat(ctx, "/statistic/wordcloud", query, &items); err != nil {
		return nil, errors.Wrap(err, "[Client.WordCloud]")
	}
	return items, nil
}

// ReceiptsTimeSeries returns per-bucket receipt counts for charting.
func (c *Client) ReceiptsTimeSeries(ctx context.Context, filter StatFilter) ([]TimeSeriesPoint, error) {
	var points []TimeSeriesPoint
	if err := c.getStat(ctx, "/statistic/timeseries/receipts", filter.seriesQuery(), &points); err != nil {
		return nil, errors.Wrap(err, "[Client.ReceiptsTimeSeries]")
	}
	return points, nil
}

// AmountsTimeSeries returns per-bucket spending totals for charting.
func (c *Client) AmountsTimeSeries(ctx context.Context, filter StatFilter) ([]TimeSeriesPoint, error) {
	var points []TimeSeriesPoint
	if err := c.getStat(ctx, "/statistic/timeseries/amounts", filter.seriesQuery(), &points); err != nil {
		return nil, errors.Wrap(err, "[Client.AmountsTimeSeries]")
	}
	return points, nil
}

// MarketTotalSpent returns total spending broken down by market.
func (c *Client) MarketTotalSpent(ctx context.Context, filter StatFilter) (*MarketTotalSpentList, error) {
	var list MarketTotalSpentList
	if err := c.getStat(ctx, "/statistic/market/total-spent", filter.query(), &list); err != nil {
		return nil, errors.Wrap(err, "[Client.MarketTotalSpent]")
	}
	return &list, nil
}

// MarketTotalReceipts returns purchase counts broken down by market.
func (c *Client) MarketTotalReceipts(ctx context.Context, filter StatFilter) (*MarketTotalReceiptsList, error) {
	var list MarketTotalReceiptsList
	if err := c.getStat(ctx, "/statistic/market/total-receipts", filter.query(), &list); err != nil {
		return nil, errors.Wrap(err, "[Client.MarketTotalReceipts]")
	}
	return &list, nil
}

// MarketAverageSpent returns average spending per purchase broken down by
// market.
func (c *Client) MarketAverageSpent(ctx context.Context, filter StatFilter) (*MarketAverageSpentList, error) {
	var list MarketAverageSpentList
	if err := c.getStat(ctx, "/statistic/market/average-spent", filter.query(), &list); err != nil {
		return nil, errors.Wrap(err, "[Client.MarketAverageSpent]")
	}
	return &list, nil
}

func (c *Client) getStat(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	return c.send(req, out)
}
