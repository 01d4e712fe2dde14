package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/in/grpc"
	grpc_pool "github.com/JoeShih716/go-pool-ledger/pkg/grpc"
)

const requestTimeout = 10 * time.Second

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run reconciliation for one card or every card",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cardID, _ := cmd.Flags().GetString("card")
		all, _ := cmd.Flags().GetBool("all")
		if (cardID == "") == !all {
			return errors.New("exactly one of --card or --all is required")
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *grpc_adapter.Client) (any, error) {
			if all {
				return c.ReconcileAll(ctx, &grpc_adapter.ReconcileAllRequest{})
			}
			return c.GetReconciliation(ctx, &grpc_adapter.ReconciliationRequest{CardID: cardID})
		})
	},
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show pool and member balances of a card",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cardID, _ := cmd.Flags().GetString("card")
		walletID, _ := cmd.Flags().GetString("wallet")
		return withClient(cmd.Context(), func(ctx context.Context, c *grpc_adapter.Client) (any, error) {
			return c.GetCardBalances(ctx, &grpc_adapter.CardBalancesRequest{WalletID: walletID, CardID: cardID})
		})
	},
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show balances aggregated across every card of a wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		walletID, _ := cmd.Flags().GetString("wallet")
		return withClient(cmd.Context(), func(ctx context.Context, c *grpc_adapter.Client) (any, error) {
			return c.GetWalletBalances(ctx, &grpc_adapter.WalletBalancesRequest{WalletID: walletID})
		})
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd, balancesCmd, walletCmd)

	reconcileCmd.Flags().String("card", "", "card id")
	reconcileCmd.Flags().Bool("all", false, "reconcile every card")

	balancesCmd.Flags().String("card", "", "card id")
	balancesCmd.Flags().String("wallet", "", "check the card belongs to this wallet")
	_ = balancesCmd.MarkFlagRequired("card")

	walletCmd.Flags().String("wallet", "", "wallet id")
	_ = walletCmd.MarkFlagRequired("wallet")
}

// withClient 連到 --addr 執行一次呼叫並以 JSON 輸出結果
func withClient(ctx context.Context, call func(context.Context, *grpc_adapter.Client) (any, error)) error {
	pool := grpc_pool.NewPool(grpc_pool.WithCallOptions(grpc.CallContentSubtype(grpc_adapter.CodecName)))
	defer pool.Close()

	conn, err := pool.GetConnection(serverAddr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	out, err := call(ctx, grpc_adapter.NewClient(conn))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
