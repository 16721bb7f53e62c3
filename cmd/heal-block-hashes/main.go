// Command heal-block-hashes fills in NULL block_hash rows, resuming from
// its last checkpoint. Not named in the original job list but required to
// actually run the auxiliary heal path described alongside backfill.
package main

import (
	"context"
	"os"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/heal"
	"github.com/Rurutia1027/eth-analysis-backend/shared/cmd"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "main")

func main() {
	app := cli.NewApp()
	app.Name = "heal-block-hashes"
	app.Usage = "backfill NULL block_hash rows, resuming from the last checkpoint"
	app.Flags = []cli.Flag{
		cmd.VerbosityFlag,
		cmd.LogFormatFlag,
		cmd.LogFileFlag,
		cmd.DbURLFlag,
		cmd.BeaconURLFlag,
	}
	app.Before = cmd.ConfigureLogging
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	ctx := context.Background()

	pool, err := db.NewPool(ctx, cliCtx.String(cmd.DbURLFlag.Name), "heal-block-hashes")
	if err != nil {
		return err
	}
	defer pool.Close()

	client := beaconapi.NewHTTPClient(cliCtx.String(cmd.BeaconURLFlag.Name), nil)

	job := heal.NewJob(client, pool)
	healed, err := job.Run(ctx)
	if err != nil {
		return err
	}
	log.WithField("healed", healed).Info("heal complete")
	return nil
}
