package cmd

import (
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/shared/logutil"
	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// ConfigureLogging wires logrus's level, formatter and (optionally)
// persistent file output from the shared flags, the way every job binary
// in this module does before running its Action.
func ConfigureLogging(ctx *cli.Context) error {
	level, err := logrus.ParseLevel(ctx.String(VerbosityFlag.Name))
	if err != nil {
		return fmt.Errorf("parsing verbosity: %w", err)
	}
	logrus.SetLevel(level)

	logFileName := ctx.String(LogFileFlag.Name)
	switch ctx.String(LogFormatFlag.Name) {
	case "text":
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		// ANSI color codes read as gibberish once redirected to a file.
		formatter.DisableColors = logFileName != ""
		logrus.SetFormatter(formatter)
	case "fluentd":
		f := joonix.NewFormatter()
		if err := joonix.DisableTimestampFormat(f); err != nil {
			return err
		}
		logrus.SetFormatter(f)
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %s", ctx.String(LogFormatFlag.Name))
	}

	if logFileName != "" {
		if err := logutil.ConfigurePersistentLogging(logFileName); err != nil {
			logrus.WithError(err).Error("failed to configure logging to disk")
		}
	}
	return nil
}
