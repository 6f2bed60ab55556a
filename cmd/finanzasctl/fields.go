package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/core"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List and edit budget fields",
}

var fieldsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the field tree and total allocation",
	Args:  cobra.NoArgs,
	RunE:  runFieldsList,
}

var fieldsSetPercentCmd = &cobra.Command{
	Use:   "set-percent <field-id> <percentage>",
	Short: "Change a field's share of the salary",
	Args:  cobra.ExactArgs(2),
	RunE:  runFieldsSetPercent,
}

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Manage the display theme",
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle between the light and dark theme",
	Args:  cobra.NoArgs,
	RunE:  runThemeToggle,
}

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage the lock PIN",
}

var pinSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the lock PIN",
	Args:  cobra.NoArgs,
	RunE:  runSetPIN,
}

func init() {
	fieldsCmd.AddCommand(fieldsListCmd, fieldsSetPercentCmd)
	themeCmd.AddCommand(themeToggleCmd)
	pinCmd.AddCommand(pinSetCmd)
	rootCmd.AddCommand(fieldsCmd, themeCmd, pinCmd)
}

func runFieldsList(cmd *cobra.Command, _ []string) error {
	fields := openSession(cmd).Fields()

	rows := make([][]string, 0, len(fields)*2)
	for _, f := range fields {
		kind := "standard"
		if f.Type == core.FieldSavings {
			kind = "savings"
		}
		rows = append(rows, []string{f.ID, f.Name, kind, cli.FormatPercent(f.Percentage)})
		for _, c := range f.Categories {
			for _, s := range c.Subcategories {
				recurring := ""
				if s.RecurringAmount > 0 {
					recurring = cli.FormatMoney(s.RecurringAmount)
				}
				rows = append(rows, []string{"  " + s.ID, cli.Muted(c.Name + " / " + s.Name), "", recurring})
			}
		}
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"", "Total", "", cli.FormatPercent(core.TotalPercentage(fields))})

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "FIELDS",
		Headers: []string{"ID", "Name", "Type", "Allocation"},
		Rows:    rows,
	}))
	return nil
}

func runFieldsSetPercent(cmd *cobra.Command, args []string) error {
	pct, err := core.ParseAmount(strings.TrimSuffix(args[1], "%"))
	if err != nil {
		return fmt.Errorf("invalid percentage %q", args[1])
	}

	sess := openSession(cmd)
	fields := sess.Fields()
	idx := core.FindField(fields, args[0])
	if idx < 0 {
		return fmt.Errorf("%w: %s", core.ErrFieldNotFound, args[0])
	}
	f := fields[idx]
	f.Percentage = pct

	check, err := sess.SaveField(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("%w: %s would total %s, %s available",
			err, f.Name, cli.FormatPercent(check.ProjectedTotal), cli.FormatPercent(check.AvailableSpace))
	}
	fmt.Printf("%s now receives %s (total %s)\n", f.Name, cli.FormatPercent(pct), cli.FormatPercent(check.ProjectedTotal))
	return nil
}

func runThemeToggle(cmd *cobra.Command, _ []string) error {
	theme := openSession(cmd).ToggleTheme(cmd.Context())
	fmt.Println("Theme:", theme)
	return nil
}

func runSetPIN(cmd *cobra.Command, _ []string) error {
	var pin, confirm string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("New PIN").
			EchoMode(huh.EchoModePassword).
			CharLimit(4).
			Value(&pin),
		huh.NewInput().
			Title("Confirm PIN").
			EchoMode(huh.EchoModePassword).
			CharLimit(4).
			Value(&confirm),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	if err := openSession(cmd).SetPIN(cmd.Context(), pin, confirm); err != nil {
		return err
	}
	fmt.Println("PIN updated")
	return nil
}
