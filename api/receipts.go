package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ReceiptFilter narrows a receipt listing. Zero values mean "no filter".
type ReceiptFilter struct {
	UserID     int // admin only
	MarketID   int
	MarketName string // substring match
	ItemName   string // substring match
	DateFrom   time.Time
	DateTo     time.Time
	OrderBy    string // "date", "receipt_number" or "id"
	OrderDir   string // "asc" or "desc"
}

func (f ReceiptFilter) query(skip, limit int) url.Values {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))
	if f.UserID > 0 {
		query.Set("user_id", strconv.Itoa(f.UserID))
	}
	if f.MarketID > 0 {
		query.Set("market_id", strconv.Itoa(f.MarketID))
	}
	if f.MarketName != "" {
		query.Set("market_name", f.MarketName)
	}
	if f.ItemName != "" {
		query.Set("item_name", f.ItemName)
	}
	if !f.DateFrom.IsZero() {
		query.Set("date_from", f.DateFrom.Format(time.RFC3339))
	}
	if !f.DateTo.IsZero() {
		query.Set("date_to", f.DateTo.Format(time.RFC3339))
	}
	if f.OrderBy != "" {
		query.Set("order_by", f.OrderBy)
	}
	if f.OrderDir != "" {
		query.Set("order_dir", f.OrderDir)
	}
	return query
}

// ListReceipts returns a page of the caller's receipts (admins see all).
func (c *Client) ListReceipts(ctx context.Context, filter ReceiptFilter, skip, limit int) (*ReceiptList, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/receipt/", filter.query(skip, limit), nil, "")
	if err != nil {
		return nil, err
	}
	var list ReceiptList
	if err := c.send(req, &list); err != nil {
		return nil, errors.Wrap(err, "[Client.ListReceipts]")
	}
	return &list, nil
}

// UpdateReceipt applies a partial update to a receipt, its market link, and
// its line items.
func (c *Client) UpdateReceipt(ctx context.Context, receiptID int, update ReceiptUpdate) (*Receipt, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut, fmt.Sprintf("/receipt/%d", receiptID), nil, update)
	if err != nil {
		return nil, err
	}
	var receipt Receipt
	if err := c.send(req, &receipt); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateReceipt]")
	}
	return &receipt, nil
}

// CreateReceipt records a manually entered receipt.
func (c *Client) CreateReceipt(ctx context.Context, create ReceiptCreate) (*Receipt, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/receipt/receipt", nil, create)
	if err != nil {
		return nil, err
	}
	var receipt Receipt
	if err := c.send(req, &receipt); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateReceipt]")
	}
	return &receipt, nil
}

// DeleteReceipt removes a receipt and its stored image.
func (c *Client) DeleteReceipt(ctx context.Context, receiptID int) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/receipt/receipt/%d", receiptID), nil, nil, "")
	if err != nil {
		return err
	}
	if err := c.send(req, nil); err != nil {
		return errors.Wrap(err, "[Client.DeleteReceipt]")
	}
	return nil
}

// ReceiptImage downloads the original receipt image. The returned content
// type is taken from the response header.
func (c *Client) ReceiptImage(ctx context.Context, receiptID int) (content []byte, contentType string, err error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/receipt/receipt/%d/image", receiptID), nil, nil, "")
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Client.ReceiptImage]")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", c.responseError(resp)
	}
	content, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Client.ReceiptImage] read body")
	}
	return content, resp.Header.Get("Content-Type"), nil
}

// Recognize uploads a receipt photo for AI extraction. The backend stores
// the image, recognizes market, address, and items, and returns the created
// receipt.
func (c *Client) Recognize(ctx context.Context, filename string, image []byte) (*Receipt, error) {
	body, contentType, err := multipartFile("file", filename, image)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Recognize]")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/receipt/recognize", nil, body, contentType)
	if err != nil {
		return nil, err
	}
	var receipt Receipt
	if err := c.send(req, &receipt); err != nil {
		return nil, errors.Wrap(err, "[Client.Recognize]")
	}
	return &receipt, nil
}

// ListMarkets returns all known markets.
func (c *Client) ListMarkets(ctx context.Context) ([]Market, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/receipt/markets", nil, nil, "")
	if err != nil {
		return nil, err
	}
	var markets []Market
	if err := c.send(req, &markets); err != nil {
		return nil, errors.Wrap(err, "[Client.ListMarkets]")
	}
	return markets, nil
}

// GetMarket fetches a single market.
func (c *Client) GetMarket(ctx context.Context, marketID int) (*Market, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/receipt/market/%d", marketID), nil, nil, "")
	if err != nil {
		return nil, err
	}
	var market Market
	if err := c.send(req, &market); err != nil {
		return nil, errors.Wrap(err, "[Client.GetMarket]")
	}
	return &market, nil
}

// CreateMarket registers a new market.
func (c *Client) CreateMarket(ctx context.Context, create MarketCreate) (*Market, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/receipt/market", nil, create)
	if err != nil {
		return nil, err
	}
	var market Market
	if err := c.send(req, &market); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateMarket]")
	}
	return &market, nil
}

// DeleteMarket removes a market. The backend rejects deletion while receipts
// still reference it.
func (c *Client) DeleteMarket(ctx context.Context, marketID int) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/receipt/market/%d", marketID), nil, nil, "")
	if err != nil {
		return err
	}
	if err := c.send(req, nil); err != nil {
		return errors.Wrap(err, "[Client.DeleteMarket]")
	}
	return nil
}

// UpdateMarket applies a partial update to a market.
func (c *Client) UpdateMarket(ctx context.Context, marketID int, update MarketUpdate) (*Market, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut, fmt.Sprintf("/receipt/market/%d", marketID), nil, update)
	if err != nil {
		return nil, err
	}
	var market Market
	if err := c.send(req, &market); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateMarket]")
	}
	return &market, nil
}

// multipartFile builds a single-file multipart body.
func multipartFile(field, filename string, content []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
