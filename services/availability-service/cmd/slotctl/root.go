package main

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/bookable/libs/grpcx"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/grpcserver"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

type computer interface {
	Compute(ctx context.Context, req availability.Request) (availability.Result, error)
}

// connectFunc returns a computer for addr and a func that releases it.
type connectFunc func(addr string) (computer, func() error, error)

func dialComputer(addr string) (computer, func() error, error) {
	cc, err := grpcx.NewClient(addr, grpcx.DialOptions{})
	if err != nil {
		return nil, nil, err
	}
	client := grpcserver.NewClient(cc)
	return computeFunc(func(ctx context.Context, req availability.Request) (availability.Result, error) {
		return client.Compute(ctx, req)
	}), cc.Close, nil
}

type computeFunc func(ctx context.Context, req availability.Request) (availability.Result, error)

func (f computeFunc) Compute(ctx context.Context, req availability.Request) (availability.Result, error) {
	return f(ctx, req)
}

func newRootCmd(connect connectFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "slotctl",
		Short:         "Inspect bookable slots and manage the availability schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSlotsCmd(connect))
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "slotctl %s (commit=%s)\n", Version, CommitSHA)
		},
	}
}
