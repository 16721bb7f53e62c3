// Package cmd defines the command line flags shared by every job binary in
// this module.
package cmd

import "github.com/urfave/cli/v2"

var (
	// VerbosityFlag defines the logrus configuration.
	VerbosityFlag = &cli.StringFlag{
		Name:    "verbosity",
		Usage:   "Logging verbosity (debug, info=default, warn, error, fatal, panic)",
		Value:   "info",
		EnvVars: []string{"LOG_VERBOSITY"},
	}
	// LogFormatFlag configures logrus's formatter.
	LogFormatFlag = &cli.StringFlag{
		Name:    "log-format",
		Usage:   "Log format to use (text=default, json, fluentd)",
		Value:   "text",
		EnvVars: []string{"LOG_FORMAT"},
	}
	// LogFileFlag configures persistent logging to a file in addition to stdout.
	LogFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Path to a log file. If set, logs are written there in addition to stdout",
	}
	// DbURLFlag is the Postgres connection string for the persistence gateway.
	DbURLFlag = &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Postgres connection string for the beacon chain store",
		EnvVars:  []string{"DB_URL"},
		Required: true,
	}
	// BeaconURLFlag is the base URL of the upstream beacon node's HTTP API.
	BeaconURLFlag = &cli.StringFlag{
		Name:     "beacon-url",
		Usage:    "Base URL of the beacon node's HTTP API",
		EnvVars:  []string{"BEACON_URL"},
		Required: true,
	}
	// BlockLagLimitFlag tunes how far behind the head a slot may be before
	// the slot synchronizer skips its (expensive) balances fetch.
	BlockLagLimitFlag = &cli.DurationFlag{
		Name:    "block-lag-limit",
		Usage:   "Sync lag beyond which validator balances are skipped for a slot",
		Value:   0, // zero means "use the package default"; see sync.BlockLagLimit.
		EnvVars: []string{"BLOCK_LAG_LIMIT"},
	}
	// BalancesConcurrencyLimitFlag bounds in-flight validator-balances
	// fetches during backfill.
	BalancesConcurrencyLimitFlag = &cli.IntFlag{
		Name:    "balances-concurrency-limit",
		Usage:   "Maximum number of in-flight validator-balances fetches during backfill",
		Value:   32,
		EnvVars: []string{"GET_BALANCES_CONCURRENCY_LIMIT"},
	}
	// DisableMonitoringFlag defines a flag to disable the metrics collection.
	DisableMonitoringFlag = &cli.BoolFlag{
		Name:  "disable-monitoring",
		Usage: "Disable the prometheus metrics endpoint",
	}
	// MonitoringPortFlag defines the http port used to serve prometheus metrics.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listen and respond to metrics for prometheus",
		Value: 8080,
	}
)
