package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/receipttrack/receipttrack-go/api"
	"github.com/receipttrack/receipttrack-go/internal/utils"
)

func receiptsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List and manage captured receipts",
	}
	cmd.AddCommand(
		receiptsListCmd(a),
		receiptsNewCmd(a),
		receiptsSetCmd(a),
		receiptsDeleteCmd(a),
		receiptsImageCmd(a),
	)
	return cmd
}

func receiptsListCmd(a *app) *cobra.Command {
	var (
		skip, limit      int
		userID, marketID int
		marketName       string
		itemName         string
		dateFrom, dateTo string
		orderBy          string
		orderDir         string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List receipts, newest first by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}

			filter := api.ReceiptFilter{
				UserID:     userID,
				MarketID:   marketID,
				MarketName: marketName,
				ItemName:   itemName,
				OrderBy:    orderBy,
				OrderDir:   orderDir,
			}
			var err error
			if filter.DateFrom, err = parseDate(dateFrom); err != nil {
				return err
			}
			if filter.DateTo, err = parseDate(dateTo); err != nil {
				return err
			}

			list, err := a.backend.ListReceipts(ctx, filter, skip, limit)
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "number of receipts to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&userID, "user-id", 0, "filter by owner (admin only)")
	cmd.Flags().IntVar(&marketID, "market-id", 0, "filter by market id")
	cmd.Flags().StringVar(&marketName, "market", "", "filter by market name substring")
	cmd.Flags().StringVar(&itemName, "item", "", "filter by item name substring")
	cmd.Flags().StringVar(&dateFrom, "from", "", "earliest receipt date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateTo, "to", "", "latest receipt date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&orderBy, "order-by", "date", "sort column (date, receipt_number, id)")
	cmd.Flags().StringVar(&orderDir, "order-dir", "desc", "sort direction (asc, desc)")
	return cmd
}

func receiptsNewCmd(a *app) *cobra.Command {
	var (
		date     string
		number   string
		marketID int
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Record a receipt manually",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}

			when, err := parseDate(date)
			if err != nil {
				return err
			}
			if when.IsZero() {
				when = time.Now()
			}

			receipt, err := a.backend.CreateReceipt(ctx, api.ReceiptCreate{
				Date:          when,
				ReceiptNumber: number,
				MarketID:      marketID,
			})
			if err != nil {
				return err
			}
			return printJSON(receipt)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "receipt date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&number, "number", "", "receipt number")
	cmd.Flags().IntVar(&marketID, "market-id", 0, "market id")
	_ = cmd.MarkFlagRequired("market-id")
	return cmd
}

func receiptsSetCmd(a *app) *cobra.Command {
	var (
		date     string
		number   string
		marketID int
		city     string
	)

	cmd := &cobra.Command{
		Use:   "set <receipt-id>",
		Short: "Update receipt fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			receiptID, err := intArg(args[0], "receipt-id")
			if err != nil {
				return err
			}

			var update api.ReceiptUpdate
			if date != "" {
				when, err := parseDate(date)
				if err != nil {
					return err
				}
				update.Date = utils.Ptr(when)
			}
			if cmd.Flags().Changed("number") {
				update.ReceiptNumber = utils.Ptr(number)
			}
			if cmd.Flags().Changed("market-id") {
				update.MarketID = utils.Ptr(marketID)
			}
			if cmd.Flags().Changed("city") {
				update.City = utils.Ptr(city)
			}

			receipt, err := a.backend.UpdateReceipt(ctx, receiptID, update)
			if err != nil {
				return err
			}
			return printJSON(receipt)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "receipt date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&number, "number", "", "receipt number")
	cmd.Flags().IntVar(&marketID, "market-id", 0, "market id")
	cmd.Flags().StringVar(&city, "city", "", "market address city")
	return cmd
}

func receiptsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <receipt-id>",
		Short: "Delete a receipt and its stored image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			receiptID, err := intArg(args[0], "receipt-id")
			if err != nil {
				return err
			}
			if err := a.backend.DeleteReceipt(ctx, receiptID); err != nil {
				return err
			}
			fmt.Printf("Receipt %d deleted.\n", receiptID)
			return nil
		},
	}
}

func receiptsImageCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "image <receipt-id>",
		Short: "Download the original receipt image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			receiptID, err := intArg(args[0], "receipt-id")
			if err != nil {
				return err
			}

			content, contentType, err := a.backend.ReceiptImage(ctx, receiptID)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("receipt-%d%s", receiptID, imageExtension(contentType))
			}
			if err := os.WriteFile(output, content, 0o600); err != nil {
				return errors.Wrap(err, "write image")
			}
			fmt.Printf("Saved %s (%s, %d bytes).\n", output, contentType, len(content))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to receipt-<id>.<ext>)")
	return cmd
}

func recognizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recognize <image-file>",
		Short: "Upload a receipt photo for automatic extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read image")
			}
			receipt, err := a.backend.Recognize(ctx, filepath.Base(args[0]), content)
			if err != nil {
				return err
			}
			return printJSON(receipt)
		},
	}
}

func imageExtension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
