// Command backfill-hourly-balances-to-london backfills a validator-balances
// snapshot for the first slot of every hour, starting from the first
// post-London slot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rurutia1027/eth-analysis-backend/backfill"
	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/shared/cmd"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "main")

func main() {
	app := cli.NewApp()
	app.Name = "backfill-hourly-balances-to-london"
	app.Usage = "backfill a validator-balances snapshot for the first slot of every hour since London"
	app.Flags = []cli.Flag{
		cmd.VerbosityFlag,
		cmd.LogFormatFlag,
		cmd.LogFileFlag,
		cmd.DbURLFlag,
		cmd.BeaconURLFlag,
		cmd.BalancesConcurrencyLimitFlag,
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

	pool, err := db.NewPool(ctx, cliCtx.String(cmd.DbURLFlag.Name), "backfill-hourly-balances-to-london")
	if err != nil {
		return err
	}
	defer pool.Close()

	client := beaconapi.NewHTTPClient(cliCtx.String(cmd.BeaconURLFlag.Name), nil)

	job := backfill.NewJob(client, pool, backfill.GranularityHour).
		WithConcurrencyLimit(cliCtx.Int(cmd.BalancesConcurrencyLimitFlag.Name))
	written, err := job.Run(ctx, slots.FirstPostLondonSlot)
	if err != nil {
		return err
	}
	log.WithField("written", written).Info("backfill complete")
	return nil
}
