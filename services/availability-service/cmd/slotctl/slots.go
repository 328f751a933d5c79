package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/md-rashed-zaman/bookable/libs/config"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/storage"
	"github.com/spf13/cobra"
)

func newSlotsCmd(connect connectFunc) *cobra.Command {
	var (
		addr       string
		businessID int64
		serviceID  int64
		staffID    int64
		date       string
		asJSON     bool
		onlyOpen   bool
		timeout    time.Duration
	)

	c := &cobra.Command{
		Use:   "slots",
		Short: "List slots for a business, service and date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := availability.Request{BusinessID: businessID, ServiceID: serviceID, Date: date}
			if cmd.Flags().Changed("staff") {
				req.StaffMemberID = &staffID
			}

			comp, closeFn, err := connect(addr)
			if err != nil {
				return fmt.Errorf("connect %s: %w", addr, err)
			}
			defer func() { _ = closeFn() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := comp.Compute(ctx, req)
			if err != nil {
				return err
			}
			if onlyOpen {
				open := res.Slots[:0]
				for _, s := range res.Slots {
					if s.Available {
						open = append(open, s)
					}
				}
				res.Slots = open
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if len(res.Slots) == 0 {
				fmt.Fprintf(out, "no slots on %s\n", res.Date)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "START\tEND\tSTAFF\tAVAILABLE")
			for _, s := range res.Slots {
				staff := "-"
				if s.StaffMemberID != nil {
					staff = fmt.Sprint(*s.StaffMemberID)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.Start, s.End, staff, s.Available)
			}
			return tw.Flush()
		},
	}

	c.Flags().StringVar(&addr, "addr", config.String("AVAILABILITY_GRPC_ADDR", "localhost:9094"), "availability gRPC address")
	c.Flags().Int64Var(&businessID, "business", 0, "business id")
	c.Flags().Int64Var(&serviceID, "service", 0, "service id")
	c.Flags().Int64Var(&staffID, "staff", 0, "restrict to one staff member")
	c.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	c.Flags().BoolVar(&onlyOpen, "open", false, "hide unavailable capacity slots")
	c.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	_ = c.MarkFlagRequired("business")
	_ = c.MarkFlagRequired("service")
	_ = c.MarkFlagRequired("date")
	return c
}

func newMigrateCmd() *cobra.Command {
	var databaseURL string
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Apply availability schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}
			if err := storage.Migrate(databaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	c.Flags().StringVar(&databaseURL, "database-url", config.String("DATABASE_URL", ""), "Postgres URL")
	return c
}
