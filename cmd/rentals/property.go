package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/diewo77/go-rentals/internal/jobs"
	"github.com/diewo77/go-rentals/internal/models"
	"github.com/diewo77/go-rentals/internal/services"
	"github.com/spf13/cobra"
)

// ---- units

func unitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "unit", Short: "Manage rentable units"}
	cmd.AddCommand(
		unitCreateCmd(a),
		unitListCmd(a, "list", "List units by building then unit number", false),
		unitListCmd(a, "available", "List units free for a new lease", true),
		unitShowCmd(a),
		unitCostCmd(a),
		unitOwnerCmd(a),
		unitReconcileCmd(a),
		deleteCmd(a, "unit", "Delete a unit with its leases and charge distributions", func(ctx context.Context, id uint) error { return a.props.DeleteUnit(ctx, id) }),
	)
	return cmd
}

func unitCreateCmd(a *app) *cobra.Command {
	var (
		in                          services.UnitInput
		ownerID                     uint
		unitType                    string
		size, rent, specificCharges string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an available unit to a building",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			in.OwnerID = optionalID(ownerID)
			in.Type = models.UnitType(unitType)
			if in.SizeM2, err = parseDecimal("size", size); err != nil {
				return err
			}
			if in.MonthlyRent, err = parseDecimal("rent", rent); err != nil {
				return err
			}
			if in.SpecificCharges, err = parseDecimal("charges", specificCharges); err != nil {
				return err
			}
			u, err := a.props.CreateUnit(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printUnits([]models.Unit{*u})
		},
	}
	fl := cmd.Flags()
	fl.UintVar(&in.BuildingID, "building", 0, "building id")
	fl.UintVar(&ownerID, "owner", 0, "owner id, when different from the building owner")
	fl.StringVar(&unitType, "type", string(models.UnitTypeApartment), "apartment, house or room")
	fl.StringVar(&in.UnitNumber, "number", "", "unit number, unique within the building")
	fl.StringVar(&size, "size", "", "surface in square metres")
	fl.StringVar(&rent, "rent", "", "monthly rent")
	fl.StringVar(&specificCharges, "charges", "", "monthly charges specific to the unit")
	fl.StringVar(&in.Description, "description", "", "description")
	_ = cmd.MarkFlagRequired("building")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func unitListCmd(a *app, use, short string, onlyAvailable bool) *cobra.Command {
	var buildingID uint
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := a.props.ListUnits
			if onlyAvailable {
				list = a.props.AvailableUnits
			}
			units, err := list(cmd.Context(), optionalID(buildingID))
			if err != nil {
				return err
			}
			return a.printUnits(units)
		},
	}
	cmd.Flags().UintVar(&buildingID, "building", 0, "restrict to one building")
	return cmd
}

func unitShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a unit with its active lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.props.GetUnit(cmd.Context(), id)
			if err != nil {
				return err
			}
			occupied, err := a.props.HasActiveLease(cmd.Context(), id)
			if err != nil {
				return err
			}
			var active *models.LeaseContract
			if occupied {
				if active, err = a.props.ActiveLease(cmd.Context(), id); err != nil {
					return err
				}
			}
			if a.asJSON {
				return a.json(map[string]interface{}{"unit": u, "occupied": occupied, "active_lease": active})
			}
			if err := a.printUnits([]models.Unit{*u}); err != nil {
				return err
			}
			if active == nil {
				return a.value("active_lease", "none")
			}
			fmt.Fprintln(a.out)
			return a.printLeases([]models.LeaseContract{*active})
		},
	}
}

func unitCostCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cost <id>",
		Short: "Monthly rent plus specific charges of a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cost, err := a.charges.UnitMonthlyCost(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.value("monthly_cost", money(cost))
		},
	}
}

func unitOwnerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "owner <id>",
		Short: "Effective owner of a unit, falling back to the building owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ownerID, err := a.charges.EffectiveOwner(cmd.Context(), id)
			if err != nil {
				return err
			}
			if ownerID == nil {
				return a.value("owner_id", nil)
			}
			owner, err := a.props.GetOwner(cmd.Context(), *ownerID)
			if err != nil {
				return err
			}
			return a.printOwners([]models.Owner{*owner})
		},
	}
}

func unitReconcileCmd(a *app) *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute every unit's availability from its active leases",
		RunE: func(cmd *cobra.Command, args []string) error {
			if every > 0 {
				return a.reconcileEvery(cmd.Context(), every)
			}
			fixed, err := a.leases.ReconcileAvailability(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.json(map[string]interface{}{"fixed_units": fixed})
			}
			fmt.Fprintf(a.out, "%d unit(s) repaired %v\n", len(fixed), fixed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "keep running and reconcile at this interval")
	return cmd
}

// reconcileEvery runs the reconcile job until ctx is cancelled.
func (a *app) reconcileEvery(ctx context.Context, every time.Duration) error {
	s, err := jobs.NewScheduler(a.log)
	if err != nil {
		return err
	}
	if err := s.ScheduleReconcile(ctx, a.leases, every); err != nil {
		return err
	}
	s.Start()
	<-ctx.Done()
	return s.Stop()
}

func (a *app) printUnits(units []models.Unit) error {
	rows := make([][]string, 0, len(units))
	for _, u := range units {
		building := strconv.FormatUint(uint64(u.BuildingID), 10)
		if u.Building != nil {
			building = u.Building.Name
		}
		rows = append(rows, []string{
			fmt.Sprint(u.ID), building, u.UnitNumber, string(u.Type), u.SizeM2.String(),
			money(u.MonthlyRent), money(u.SpecificCharges), money(u.TotalMonthlyCost()),
			strconv.FormatBool(u.IsAvailable),
		})
	}
	return a.table(units, []string{"ID", "BUILDING", "NUMBER", "TYPE", "M2", "RENT", "CHARGES", "TOTAL", "AVAILABLE"}, rows)
}

// ---- buildings

func buildingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "building", Short: "Manage buildings"}
	cmd.AddCommand(
		buildingCreateCmd(a),
		buildingListCmd(a),
		buildingStatsCmd(a),
		buildingSharesCmd(a),
		deleteCmd(a, "building", "Delete a building with its units, leases and distributions", func(ctx context.Context, id uint) error { return a.props.DeleteBuilding(ctx, id) }),
	)
	return cmd
}

func buildingCreateCmd(a *app) *cobra.Command {
	var (
		in        services.BuildingInput
		ownerID   uint
		charges   string
		sharedMtr bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a building",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			in.OwnerID = optionalID(ownerID)
			if in.TotalGeneralCharges, err = parseDecimal("charges", charges); err != nil {
				return err
			}
			if cmd.Flags().Changed("shared-meters") {
				individual := !sharedMtr
				in.HasIndividualMeters = &individual
			}
			b, err := a.props.CreateBuilding(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printBuildings([]models.Building{*b})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&in.Name, "name", "", "building name")
	fl.StringVar(&in.Address, "address", "", "postal address")
	fl.StringVar(&in.Description, "description", "", "description")
	fl.UintVar(&ownerID, "owner", 0, "owner id")
	fl.StringVar(&charges, "charges", "", "total monthly general charges")
	fl.BoolVar(&sharedMtr, "shared-meters", false, "utilities are metered for the whole building")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func buildingListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List buildings",
		RunE: func(cmd *cobra.Command, args []string) error {
			buildings, err := a.props.ListBuildings(cmd.Context())
			if err != nil {
				return err
			}
			return a.printBuildings(buildings)
		},
	}
}

func buildingStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <id>",
		Short: "Unit counts and occupancy rate of a building",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.props.BuildingStats(cmd.Context(), id)
			if err != nil {
				return err
			}
			rows := [][]string{{
				fmt.Sprint(s.Total), fmt.Sprint(s.Available), fmt.Sprint(s.Rented),
				strconv.FormatFloat(100*s.OccupancyRate(), 'f', 1, 64) + "%",
			}}
			return a.table(s, []string{"UNITS", "AVAILABLE", "RENTED", "OCCUPANCY"}, rows)
		},
	}
}

func buildingSharesCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "shares <id>",
		Short: "Split the building's general charges by the distributions in effect",
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
			shares, err := a.charges.BuildingChargeShares(cmd.Context(), id, day)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(shares))
			for _, s := range shares {
				rows = append(rows, []string{fmt.Sprint(s.UnitID), s.UnitNumber, s.Percentage.StringFixed(2), money(s.Amount)})
			}
			return a.table(shares, []string{"UNIT", "NUMBER", "PERCENT", "AMOUNT"}, rows)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD), today by default")
	return cmd
}

func (a *app) printBuildings(buildings []models.Building) error {
	rows := make([][]string, 0, len(buildings))
	for _, b := range buildings {
		rows = append(rows, []string{
			fmt.Sprint(b.ID), b.Name, b.Address, idString(b.OwnerID),
			money(b.TotalGeneralCharges), strconv.FormatBool(b.HasIndividualMeters),
		})
	}
	return a.table(buildings, []string{"ID", "NAME", "ADDRESS", "OWNER", "GENERAL CHARGES", "INDIVIDUAL METERS"}, rows)
}

// ---- owners and tenants

func ownerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "owner", Short: "Manage owners"}

	var in services.OwnerInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.props.CreateOwner(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printOwners([]models.Owner{*o})
		},
	}
	personFlags(create, &in.PersonInput)
	create.Flags().StringVar(&in.Address, "address", "", "postal address")
	create.Flags().StringVar(&in.TaxNumber, "tax-number", "", "tax identification number")

	list := &cobra.Command{
		Use:   "list",
		Short: "List owners",
		RunE: func(cmd *cobra.Command, args []string) error {
			owners, err := a.props.ListOwners(cmd.Context())
			if err != nil {
				return err
			}
			return a.printOwners(owners)
		},
	}
	cmd.AddCommand(create, list, deleteCmd(a, "owner", "Delete an owner; its buildings and units are kept", func(ctx context.Context, id uint) error { return a.props.DeleteOwner(ctx, id) }))
	return cmd
}

func tenantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "tenant", Short: "Manage tenants"}

	var in services.TenantInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.props.CreateTenant(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printTenants(cmd, []models.Tenant{*t})
		},
	}
	personFlags(create, &in.PersonInput)
	create.Flags().StringVar(&in.IDDocument, "id-document", "", "path of the identity document")
	create.Flags().StringVar(&in.EmergencyContact, "emergency-contact", "", "emergency contact")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tenants with their lease counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenants, err := a.props.ListTenants(cmd.Context())
			if err != nil {
				return err
			}
			return a.printTenants(cmd, tenants)
		},
	}
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a tenant with their active leases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := a.props.GetTenant(cmd.Context(), id)
			if err != nil {
				return err
			}
			active, err := a.props.TenantActiveLeases(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.json(map[string]interface{}{"tenant": t, "active_leases": active})
			}
			if err := a.printTenants(cmd, []models.Tenant{*t}); err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			return a.printLeases(active)
		},
	}
	cmd.AddCommand(create, list, show, deleteCmd(a, "tenant", "Delete a tenant and their leases", func(ctx context.Context, id uint) error { return a.props.DeleteTenant(ctx, id) }))
	return cmd
}

func personFlags(cmd *cobra.Command, p *services.PersonInput) {
	fl := cmd.Flags()
	fl.StringVar(&p.FirstName, "first-name", "", "first name")
	fl.StringVar(&p.LastName, "last-name", "", "last name")
	fl.StringVar(&p.Email, "email", "", "e-mail address, unique")
	fl.StringVar(&p.Phone, "phone", "", "phone number")
	fl.StringVar(&p.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("email")
}

func (a *app) printOwners(owners []models.Owner) error {
	rows := make([][]string, 0, len(owners))
	for _, o := range owners {
		rows = append(rows, []string{fmt.Sprint(o.ID), o.FullName(), o.Email, o.Phone})
	}
	return a.table(owners, []string{"ID", "NAME", "EMAIL", "PHONE"}, rows)
}

func (a *app) printTenants(cmd *cobra.Command, tenants []models.Tenant) error {
	rows := make([][]string, 0, len(tenants))
	for _, t := range tenants {
		active, total, err := a.props.TenantLeaseCounts(cmd.Context(), t.ID)
		if err != nil {
			return err
		}
		rows = append(rows, []string{fmt.Sprint(t.ID), t.FullName(), t.Email, t.Phone, fmt.Sprintf("%d/%d", active, total)})
	}
	return a.table(tenants, []string{"ID", "NAME", "EMAIL", "PHONE", "ACTIVE/TOTAL LEASES"}, rows)
}
