package main

import (
	"context"
	"fmt"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/diewo77/go-rentals/internal/services"
	"github.com/spf13/cobra"
)

func distributionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "distribution",
		Aliases: []string{"dist"},
		Short:   "Manage the charge distribution ledger",
	}
	cmd.AddCommand(
		distributionAddCmd(a),
		distributionAsOfCmd(a),
		distributionTotalCmd(a),
		distributionListCmd(a),
		deleteCmd(a, "distribution", "Delete a charge distribution entry", func(ctx context.Context, id uint) error { return a.dists.Delete(ctx, id) }),
	)
	return cmd
}

func distributionAddCmd(a *app) *cobra.Command {
	var (
		in                     services.DistributionInput
		percentage, start, end string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Assign a unit its share of the building's general charges from a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.Percentage, err = parseDecimal("percentage", percentage); err != nil {
				return err
			}
			if start != "" {
				if in.StartDate, err = parseDay("start", start); err != nil {
					return err
				}
			}
			if in.EndDate, err = parseDayPtr("end", end); err != nil {
				return err
			}
			entry, err := a.dists.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printDistributions([]models.ChargeDistribution{*entry})
		},
	}
	fl := cmd.Flags()
	fl.UintVar(&in.BuildingID, "building", 0, "building id")
	fl.UintVar(&in.UnitID, "unit", 0, "unit id, must belong to the building")
	fl.StringVar(&percentage, "percentage", "", "share of general charges, 0 to 100")
	fl.StringVar(&start, "start", "", "first day in effect (YYYY-MM-DD), today by default")
	fl.StringVar(&end, "end", "", "first day no longer in effect (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("building")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("percentage")
	return cmd
}

func distributionAsOfCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "asof <building-id>",
		Short: "Entries in effect for a building on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			day, err := dayOrToday("date", date)
			if err != nil {
				return err
			}
			var entries []models.ChargeDistribution
			for entry, err := range a.dists.AsOf(cmd.Context(), id, day) {
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			return a.printDistributions(entries)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD), today by default")
	return cmd
}

func distributionTotalCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "total <building-id>",
		Short: "Sum of the percentages in effect for a building",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			day, err := dayOrToday("date", date)
			if err != nil {
				return err
			}
			total, err := a.dists.Total(cmd.Context(), id, day)
			if err != nil {
				return err
			}
			return a.value("total_percentage", total.StringFixed(2))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD), today by default")
	return cmd
}

func distributionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <building-id>",
		Short: "Full distribution history of a building",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entries, err := a.dists.ListByBuilding(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printDistributions(entries)
		},
	}
}

func (a *app) printDistributions(entries []models.ChargeDistribution) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprint(e.ID), fmt.Sprint(e.UnitID), e.DistributionPercentage.StringFixed(2),
			models.FormatDay(e.StartDate), models.FormatDayPtr(e.EndDate),
		})
	}
	return a.table(entries, []string{"ID", "UNIT", "PERCENT", "START", "END"}, rows)
}
