package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/orders"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Print the next session's netted order sheet",
	Long: `orders simulates through the last stored bar and prints the orders to place
for the next business day, after target adjustment and netting.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, in, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sheet, plan, err := env.Orchestrator.OrderSheet(cmd.Context(), in)
		if err != nil {
			return err
		}

		if outputJSON {
			return printJSON(struct {
				Sheet *orders.Sheet `json:"sheet"`
				Plan  *orders.Plan  `json:"plan"`
			}{sheet, plan})
		}
		printPlan(sheet, plan)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ordersCmd)
}

func printPlan(sheet *orders.Sheet, plan *orders.Plan) {
	fmt.Println()
	fmt.Println("=== Order Sheet ===")
	fmt.Printf("Session:            %s\n", plan.SessionDate.Format(domain.DateLayout))
	fmt.Printf("Last close:         %.2f (%s)\n", sheet.LastClose, sheet.LastDate.Format(domain.DateLayout))
	fmt.Printf("Regime:             %s\n", plan.Regime)
	fmt.Printf("Allocation:         %.2f\n", sheet.Allocation)
	if sheet.PendingRebalance != 0 {
		fmt.Printf("Pending rebalance:  %+.2f from %s\n", sheet.PendingRebalance, sheet.RebalanceDate.Format(domain.DateLayout))
	}
	fmt.Printf("Status:             %s\n", plan.Status)
	if plan.Adjusted {
		fmt.Printf("Buy price:          %.2f (adjusted from %.2f)\n", plan.BuyPrice, plan.OriginalPrice)
	}
	fmt.Println()

	if len(plan.Orders) == 0 {
		fmt.Println("No orders.")
		return
	}
	for _, o := range plan.Orders {
		fmt.Printf("  %s\n", o)
	}
}
