package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/receipttrack/receipttrack-go/api"
	"github.com/receipttrack/receipttrack-go/internal/utils"
)

func marketsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "List and manage markets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all known markets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			markets, err := a.backend.ListMarkets(ctx)
			if err != nil {
				return err
			}
			return printJSON(markets)
		},
	}

	show := &cobra.Command{
		Use:   "show <market-id>",
		Short: "Show a single market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			marketID, err := intArg(args[0], "market-id")
			if err != nil {
				return err
			}
			market, err := a.backend.GetMarket(ctx, marketID)
			if err != nil {
				return err
			}
			return printJSON(market)
		},
	}

	var (
		name      string
		taxNumber string
	)
	set := &cobra.Command{
		Use:   "set <market-id>",
		Short: "Update market fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			marketID, err := intArg(args[0], "market-id")
			if err != nil {
				return err
			}

			var update api.MarketUpdate
			if cmd.Flags().Changed("name") {
				update.Name = utils.Ptr(name)
			}
			if cmd.Flags().Changed("tax-number") {
				update.TaxNumber = utils.Ptr(taxNumber)
			}

			market, err := a.backend.UpdateMarket(ctx, marketID, update)
			if err != nil {
				return err
			}
			return printJSON(market)
		},
	}
	set.Flags().StringVar(&name, "name", "", "market name")
	set.Flags().StringVar(&taxNumber, "tax-number", "", "market tax number")

	var (
		newName      string
		newTaxNumber string
	)
	create := &cobra.Command{
		Use:   "new",
		Short: "Register a new market",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			market, err := a.backend.CreateMarket(ctx, api.MarketCreate{Name: newName, TaxNumber: newTaxNumber})
			if err != nil {
				return err
			}
			return printJSON(market)
		},
	}
	create.Flags().StringVar(&newName, "name", "", "market name")
	create.Flags().StringVar(&newTaxNumber, "tax-number", "", "market tax number")
	_ = create.MarkFlagRequired("name")

	del := &cobra.Command{
		Use:   "delete <market-id>",
		Short: "Delete a market without receipts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			marketID, err := intArg(args[0], "market-id")
			if err != nil {
				return err
			}
			if err := a.backend.DeleteMarket(ctx, marketID); err != nil {
				return err
			}
			fmt.Printf("Market %d deleted.\n", marketID)
			return nil
		},
	}

	cmd.AddCommand(list, show, set, create, del)
	return cmd
}
