package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"
)

// table prints rows as aligned columns, or v as JSON when --json is set.
func (a *app) table(v interface{}, header []string, rows [][]string) error {
	if a.asJSON {
		return a.json(v)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return w.Flush()
}

func (a *app) json(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// value prints a single labelled value.
func (a *app) value(label string, v interface{}) error {
	if a.asJSON {
		return a.json(map[string]interface{}{label: v})
	}
	_, err := fmt.Fprintf(a.out, "%s: %v\n", label, v)
	return err
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}

func parseDecimal(flag, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: invalid amount %q", flag, s)
	}
	return d, nil
}

func parseDay(flag, s string) (datatypes.Date, error) {
	d, err := models.ParseDay(s)
	if err != nil {
		return d, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, s)
	}
	return d, nil
}

func parseDayPtr(flag, s string) (*datatypes.Date, error) {
	d, err := models.DayPtr(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, s)
	}
	return d, nil
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func idString(id *uint) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// dayOrToday parses an optional date flag, defaulting to the current day.
func dayOrToday(flag, s string) (datatypes.Date, error) {
	if s == "" {
		return models.Day(time.Now()), nil
	}
	return parseDay(flag, s)
}

// deleteCmd builds a "delete <id>" subcommand around del.
func deleteCmd(a *app, entity, short string, del func(ctx context.Context, id uint) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := del(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %d deleted\n", entity, id)
			return nil
		},
	}
}
