package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cayaqui/costcontrol/internal/cli/formatter"
	"github.com/cayaqui/costcontrol/internal/domain"
)

func newRateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Manage exchange rates",
	}

	cmd.AddCommand(
		newRateAddCmd(app),
		newRateConvertCmd(app),
	)

	return cmd
}

func newRateAddCmd(app *App) *cobra.Command {
	var from, to, rateStr, dateStr string
	var official bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a dated exchange rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := decimal.NewFromString(rateStr)
			if err != nil {
				return fmt.Errorf("parsing rate %q: %w", rateStr, err)
			}
			date, err := parseDateFlag(dateStr)
			if err != nil {
				return err
			}

			r := &domain.ExchangeRate{
				CurrencyFrom: from,
				CurrencyTo:   to,
				Date:         date,
				Rate:         rate,
				IsOfficial:   official,
			}
			if err := app.Rates.AddRate(context.Background(), r); err != nil {
				return err
			}
			fmt.Printf("Added rate %s/%s %s at %s\n", from, to, rate, date.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source currency (required)")
	cmd.Flags().StringVar(&to, "to", "", "Target currency (required)")
	cmd.Flags().StringVar(&rateStr, "rate", "", "Conversion rate (required)")
	cmd.Flags().StringVar(&dateStr, "date", "", "Rate date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&official, "official", false, "Mark as an official rate")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("rate")

	return cmd
}

func newRateConvertCmd(app *App) *cobra.Command {
	var from, to, amountStr, dateStr string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an amount between currencies at a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			asOf, err := parseDateFlag(dateStr)
			if err != nil {
				return err
			}
			out, err := app.Rates.Convert(context.Background(), amount, from, to, asOf)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s = %s %s\n", formatter.Money(amount), from, formatter.Money(out), to)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source currency (required)")
	cmd.Flags().StringVar(&to, "to", "", "Target currency (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "Amount to convert (required)")
	cmd.Flags().StringVar(&dateStr, "date", "", "Conversion date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
