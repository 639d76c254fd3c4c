package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

func ledgerCommands(f *fundpoolInstance) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "show the pooled-fund ledger status",
		Run: func(cmd *cobra.Command, args []string) {
			if err := f.fundpool.BootstrapLedger(context.Background()); err != nil {
				log.Fatal(err)
			}
			status, err := f.fundpool.LedgerStatus(context.Background())
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("ledger:    %s (%s)\n", status.LedgerID, status.Currency)
			fmt.Printf("total:     %s\n", status.TotalBalance)
			fmt.Printf("available: %s (%.2f%%)\n", status.AvailableBalance, status.BalancePercentage)
			fmt.Printf("allocated: %s\n", status.AllocatedAmount)
			fmt.Printf("pending:   %s\n", status.PendingAmount)
			if status.IsUnderWarningLine {
				fmt.Printf("warning:   available balance is under the warning line (%s)\n", status.WarningLine)
			}
		},
	}

	return ledgerCmd
}
