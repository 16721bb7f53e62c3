// Command sync-beacon-states runs the sync loop continuously against a
// live beacon node, ingesting slots into the relational store until
// interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/shared/cmd"
	"github.com/Rurutia1027/eth-analysis-backend/shared/monitoring"
	syncpkg "github.com/Rurutia1027/eth-analysis-backend/sync"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	_ "go.uber.org/automaxprocs"
)

var log = logrus.WithField("prefix", "main")

func main() {
	app := cli.NewApp()
	app.Name = "sync-beacon-states"
	app.Usage = "reorg-aware sync of beacon chain state into Postgres"
	app.Flags = []cli.Flag{
		cmd.VerbosityFlag,
		cmd.LogFormatFlag,
		cmd.LogFileFlag,
		cmd.DbURLFlag,
		cmd.BeaconURLFlag,
		cmd.DisableMonitoringFlag,
		cmd.MonitoringPortFlag,
		cmd.BlockLagLimitFlag,
	}
	app.Before = cmd.ConfigureLogging
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPool(ctx, cliCtx.String(cmd.DbURLFlag.Name), "sync-beacon-states")
	if err != nil {
		return err
	}
	defer pool.Close()

	client := beaconapi.NewHTTPClient(cliCtx.String(cmd.BeaconURLFlag.Name), nil)

	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		mon := monitoring.New(fmt.Sprintf(":%d", cliCtx.Int(cmd.MonitoringPortFlag.Name)))
		mon.Start()
		defer func() {
			if err := mon.Stop(); err != nil {
				log.WithError(err).Warn("monitoring service did not shut down cleanly")
			}
		}()
	}

	loop := syncpkg.NewLoop(client, pool).
		WithBlockLagLimit(cliCtx.Duration(cmd.BlockLagLimitFlag.Name))
	log.Info("starting sync loop")
	if err := loop.Run(ctx); err != nil {
		return err
	}
	log.Info("sync loop exited cleanly")
	return nil
}
