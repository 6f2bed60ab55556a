package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"finanzas/internal/budget"
	"finanzas/internal/cli"
	"finanzas/internal/core"
	"finanzas/internal/report"
	"finanzas/internal/services"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Budget, spend and alerts per field for a month",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Pick which recurring expenses to add to a month",
	Args:  cobra.NoArgs,
	RunE:  runRecurring,
}

var salaryCmd = &cobra.Command{
	Use:   "salary",
	Short: "Manage the month's salary",
}

var salarySetCmd = &cobra.Command{
	Use:   "set <amount>",
	Short: "Set the month's salary",
	Args:  cobra.ExactArgs(1),
	RunE:  runSalary,
}

var (
	flagUSD  bool
	flagPaid string
)

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Manage subcategory expenses",
}

var expenseSetCmd = &cobra.Command{
	Use:   "set <subcategory-id> [amount]",
	Short: "Record an expense or mark it paid",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runExpense,
}

var extraCmd = &cobra.Command{
	Use:   "extra",
	Short: "Manage ad-hoc expenses",
}

var extraAddCmd = &cobra.Command{
	Use:   "add <field-id> <amount> <description>",
	Short: "Add an ad-hoc expense to a field",
	Args:  cobra.ExactArgs(3),
	RunE:  runExtra,
}

var flagOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the month report as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	expenseSetCmd.Flags().BoolVar(&flagUSD, "usd", false, "Record the amount in the USD column")
	expenseSetCmd.Flags().StringVar(&flagPaid, "paid", "", "Set the paid flag (true or false)")

	salaryCmd.AddCommand(salarySetCmd)
	expenseCmd.AddCommand(expenseSetCmd)
	extraCmd.AddCommand(extraAddCmd)
	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file (default: stdout)")

	rootCmd.AddCommand(summaryCmd, recurringCmd, salaryCmd, expenseCmd, extraCmd, exportCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	key, err := selectedMonth()
	if err != nil {
		return err
	}
	sess := openSession(cmd)
	view := sess.OpenMonth(cmd.Context(), key)
	s := sess.Summary(key)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BUDGET  %s  %s", key, flagAccount)))
	fmt.Println()

	rows := [][]string{
		{"Salary", cli.FormatMoney(s.Salary)},
		{"Total Expenses", cli.FormatMoney(s.TotalExpenses)},
		{"Available", cli.FormatMoney(s.Available)},
		{"Allocated", cli.FormatPercent(s.TotalAllocatedPercentage)},
	}
	if s.TotalUSD > 0 {
		rows = append(rows, []string{"Total USD", cli.FormatMoney(s.TotalUSD)})
	}
	fmt.Print(cli.RenderTable(cli.Table{Rows: rows}))
	if s.Salary == 0 && view.SuggestedSalary > 0 {
		fmt.Println(cli.Muted(fmt.Sprintf("  Last known salary: %s", cli.FormatMoney(view.SuggestedSalary))))
	}
	fmt.Println()

	fieldRows := make([][]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		fieldRows = append(fieldRows, []string{
			f.Name,
			cli.FormatPercent(f.Percentage),
			cli.FormatMoney(f.Budget),
			cli.FormatMoney(f.TotalSpent),
			cli.FormatMoney(f.Remaining),
			cli.FormatPercent(f.PercentUsed),
			alertLabel(f.Alert),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "FIELDS",
		Headers: []string{"Field", "Alloc", "Budget", "Spent", "Remaining", "Used", "State"},
		Rows:    fieldRows,
	}))

	for _, a := range budget.Alerts(s) {
		color := cli.ColorOrange
		if a.IsOver {
			color = cli.ColorRed
		}
		fmt.Println(cli.Colored(fmt.Sprintf("  ! %s at %s of budget", a.FieldName, cli.FormatPercent(a.PercentUsed)), color))
	}
	if len(view.Pending) > 0 {
		fmt.Println(cli.Muted(fmt.Sprintf("  %d recurring expenses pending, run finanzasctl recurring", len(view.Pending))))
	}
	fmt.Println(cli.Muted(fmt.Sprintf("  Backend: %s", appConfig.DataBackend)))
	return nil
}

func alertLabel(a budget.AlertState) string {
	switch a {
	case budget.AlertWarning:
		return cli.Colored("warning", cli.ColorOrange)
	case budget.AlertOver:
		return cli.Colored("over", cli.ColorRed)
	case budget.AlertGoalReached:
		return cli.Colored("goal reached", cli.ColorGreen)
	}
	return "ok"
}

func runRecurring(cmd *cobra.Command, _ []string) error {
	key, err := selectedMonth()
	if err != nil {
		return err
	}
	sess := openSession(cmd)
	view := sess.OpenMonth(cmd.Context(), key)
	if len(view.Pending) == 0 {
		fmt.Println("No recurring expenses pending for", key)
		return nil
	}

	options := make([]huh.Option[string], 0, len(view.Pending))
	for _, c := range view.Pending {
		label := fmt.Sprintf("%s / %s / %s  %s", c.FieldName, c.CategoryName, c.Name, cli.FormatMoney(c.Amount))
		options = append(options, huh.NewOption(label, c.SubcategoryID).Selected(true))
	}
	var accepted []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title(fmt.Sprintf("Recurring expenses for %s", key)).
			Description("Unselected items are skipped for this month.").
			Options(options...).
			Value(&accepted),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("Left pending.")
			return nil
		}
		return err
	}

	sess.ResolveRecurring(cmd.Context(), key, accepted)
	fmt.Printf("Added %d of %d recurring expenses to %s\n", len(accepted), len(view.Pending), key)
	return nil
}

func runSalary(cmd *cobra.Command, args []string) error {
	key, err := selectedMonth()
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[0])
	}
	if _, err := openSession(cmd).SetSalary(cmd.Context(), key, amount); err != nil {
		return err
	}
	fmt.Printf("Salary for %s set to %s\n", key, cli.FormatMoney(amount))
	return nil
}

func runExpense(cmd *cobra.Command, args []string) error {
	key, err := selectedMonth()
	if err != nil {
		return err
	}

	var e services.EntryUpdate
	if len(args) == 2 {
		amount, err := core.ParseAmount(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		if flagUSD {
			e.USD = &amount
		} else {
			e.Amount = &amount
		}
	}
	if flagPaid != "" {
		paid, err := strconv.ParseBool(flagPaid)
		if err != nil {
			return fmt.Errorf("invalid --paid value %q", flagPaid)
		}
		e.Paid = &paid
	}
	if e.Amount == nil && e.USD == nil && e.Paid == nil {
		return errors.New("nothing to record: pass an amount or --paid")
	}

	if _, err := openSession(cmd).UpdateEntry(cmd.Context(), key, args[0], e); err != nil {
		return err
	}
	fmt.Printf("Updated %s for %s\n", args[0], key)
	return nil
}

func runExtra(cmd *cobra.Command, args []string) error {
	key, err := selectedMonth()
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[1])
	}
	extra, err := openSession(cmd).AddExtra(cmd.Context(), key, args[0], args[2], amount)
	if err != nil {
		return err
	}
	fmt.Printf("Added extra %s (%s) to %s\n", extra.ID, cli.FormatMoney(extra.Amount), key)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	key, err := selectedMonth()
	if err != nil {
		return err
	}
	month, fields := openSession(cmd).Month(key)

	out := os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", flagOutput, err)
		}
		defer f.Close()
		out = f
	}
	if err := report.WriteMonthCSV(out, key, fields, month, time.Now()); err != nil {
		return err
	}
	if flagOutput != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", flagOutput)
	}
	return nil
}
