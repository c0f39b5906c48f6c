package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/diewo77/go-rentals/internal/services"
	"github.com/spf13/cobra"
)

func leaseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "lease", Short: "Manage lease contracts"}
	cmd.AddCommand(leaseCreateCmd(a), leaseUpdateCmd(a), leaseDeleteCmd(a), leaseShowCmd(a), leaseAmountCmd(a), leaseListCmd(a))
	return cmd
}

type leaseFlags struct {
	unitID, tenantID  uint
	leaseType, status string
	start, end        string
	flatRate, deposit string
	solidarity        bool
	document, notes   string
	clearEnd          bool
}

func (f *leaseFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.UintVar(&f.unitID, "unit", 0, "unit id")
	fl.UintVar(&f.tenantID, "tenant", 0, "tenant id")
	fl.StringVar(&f.leaseType, "type", "", "standard or colocation")
	fl.StringVar(&f.status, "status", "", "draft, active, terminated or cancelled")
	fl.StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	fl.StringVar(&f.end, "end", "", "end date (YYYY-MM-DD), empty for open-ended")
	fl.StringVar(&f.flatRate, "flat-rate", "", "flat-rate monthly charges")
	fl.StringVar(&f.deposit, "deposit", "", "deposit amount")
	fl.BoolVar(&f.solidarity, "solidarity", false, "joint and several liability clause")
	fl.StringVar(&f.document, "document", "", "path of the signed contract")
	fl.StringVar(&f.notes, "notes", "", "free-form notes")
}

func (f *leaseFlags) input() (services.LeaseInput, error) {
	in := services.LeaseInput{
		UnitID:              f.unitID,
		TenantID:            f.tenantID,
		LeaseType:           models.LeaseType(f.leaseType),
		Status:              models.LeaseStatus(f.status),
		HasSolidarityClause: f.solidarity,
		ContractDocument:    f.document,
		Notes:               f.notes,
	}
	var err error
	if in.StartDate, err = parseDay("start", f.start); err != nil {
		return in, err
	}
	if in.EndDate, err = parseDayPtr("end", f.end); err != nil {
		return in, err
	}
	if in.FlatRateCharges, err = parseDecimal("flat-rate", f.flatRate); err != nil {
		return in, err
	}
	if in.DepositAmount, err = parseDecimal("deposit", f.deposit); err != nil {
		return in, err
	}
	return in, nil
}

// update keeps only the flags given on the command line.
func (f *leaseFlags) update(cmd *cobra.Command) (services.LeaseUpdate, error) {
	var upd services.LeaseUpdate
	changed := cmd.Flags().Changed
	if changed("unit") {
		upd.UnitID = &f.unitID
	}
	if changed("tenant") {
		upd.TenantID = &f.tenantID
	}
	if changed("type") {
		t := models.LeaseType(f.leaseType)
		upd.LeaseType = &t
	}
	if changed("status") {
		s := models.LeaseStatus(f.status)
		upd.Status = &s
	}
	if changed("start") {
		d, err := parseDay("start", f.start)
		if err != nil {
			return upd, err
		}
		upd.StartDate = &d
	}
	if changed("end") {
		d, err := parseDayPtr("end", f.end)
		if err != nil {
			return upd, err
		}
		upd.EndDate = d
		upd.ClearEndDate = d == nil
	}
	upd.ClearEndDate = upd.ClearEndDate || f.clearEnd
	if changed("flat-rate") {
		d, err := parseDecimal("flat-rate", f.flatRate)
		if err != nil {
			return upd, err
		}
		upd.FlatRateCharges = &d
	}
	if changed("deposit") {
		d, err := parseDecimal("deposit", f.deposit)
		if err != nil {
			return upd, err
		}
		upd.DepositAmount = &d
	}
	if changed("solidarity") {
		upd.HasSolidarityClause = &f.solidarity
	}
	if changed("document") {
		upd.ContractDocument = &f.document
	}
	if changed("notes") {
		upd.Notes = &f.notes
	}
	return upd, nil
}

func leaseCreateCmd(a *app) *cobra.Command {
	var f leaseFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lease; an active lease marks its unit unavailable",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}
			lease, err := a.leases.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printLeases([]models.LeaseContract{*lease})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func leaseUpdateCmd(a *app) *cobra.Command {
	var f leaseFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a lease; unit availability follows the new status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			upd, err := f.update(cmd)
			if err != nil {
				return err
			}
			lease, err := a.leases.Update(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			return a.printLeases([]models.LeaseContract{*lease})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.clearEnd, "clear-end", false, "make the lease open-ended")
	return cmd
}

func leaseDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a lease and release its unit when no other active lease holds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.leases.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "lease %d deleted\n", id)
			return nil
		},
	}
}

func leaseShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|reference>",
		Short: "Show a lease by id or reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				lease *models.LeaseContract
				err   error
			)
			if id, perr := parseID(args[0]); perr == nil {
				lease, err = a.leases.Get(cmd.Context(), id)
			} else {
				lease, err = a.leases.GetByReference(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return a.printLeases([]models.LeaseContract{*lease})
		},
	}
}

func leaseAmountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "amount <id>",
		Short: "Monthly amount due under a lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := a.charges.LeaseMonthlyAmount(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.value("monthly_amount", money(amount))
		},
	}
}

func leaseListCmd(a *app) *cobra.Command {
	var unitID, tenantID uint
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the leases of a unit or a tenant, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				leases []models.LeaseContract
				err    error
			)
			switch {
			case unitID != 0:
				leases, err = a.leases.ListByUnit(cmd.Context(), unitID)
			case tenantID != 0:
				leases, err = a.leases.ListByTenant(cmd.Context(), tenantID)
			default:
				return fmt.Errorf("one of --unit or --tenant is required")
			}
			if err != nil {
				return err
			}
			return a.printLeases(leases)
		},
	}
	cmd.Flags().UintVar(&unitID, "unit", 0, "unit id")
	cmd.Flags().UintVar(&tenantID, "tenant", 0, "tenant id")
	cmd.MarkFlagsMutuallyExclusive("unit", "tenant")
	return cmd
}

func (a *app) printLeases(leases []models.LeaseContract) error {
	today := time.Now()
	rows := make([][]string, 0, len(leases))
	for _, l := range leases {
		rows = append(rows, []string{
			fmt.Sprint(l.ID), l.Reference, fmt.Sprint(l.UnitID), fmt.Sprint(l.TenantID),
			string(l.LeaseType), string(l.Status),
			models.FormatDay(l.StartDate), models.FormatDayPtr(l.EndDate),
			money(l.FlatRateCharges), money(l.DepositAmount), strconv.FormatBool(l.IsCurrent(today)),
		})
	}
	return a.table(leases, []string{"ID", "REFERENCE", "UNIT", "TENANT", "TYPE", "STATUS", "START", "END", "FLAT RATE", "DEPOSIT", "CURRENT"}, rows)
}
