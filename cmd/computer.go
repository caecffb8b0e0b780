package cmd

import (
	"github.com/ccicconetti/serverlessedge/compute"
	"github.com/ccicconetti/serverlessedge/config"
	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var computerConfigPath string

var computerCmd = &cobra.Command{
	Use:   "computer",
	Short: "Run an edge computer: processors, containers and the dispatcher/utilization threads",
	Run:   runComputer,
}

func init() {
	computerCmd.Flags().StringVar(&computerConfigPath, "config", "", "Path to the computer's YAML process configuration")
	computerCmd.MarkFlagRequired("config")
}

func runComputer(*cobra.Command, []string) {
	cfg, err := config.LoadComputerConfig(computerConfigPath)
	if err != nil {
		logrus.Fatalf("loading computer config: %v", err)
	}
	setLogLevel(cfg.LogLevel)

	descriptor, err := config.LoadComputerDescriptor(cfg.DescriptorPath)
	if err != nil {
		logrus.Fatalf("loading computer descriptor: %v", err)
	}

	log := logrus.WithField("lambda_endpoint", cfg.LambdaEndpoint)

	callback := func(id uint64, resp *transport.LambdaResponse) {
		log.WithFields(logrus.Fields{"task": id, "retcode": resp.RetCode}).Debug("task completed")
	}
	utilCallback := func(utils map[string]float64) {
		log.WithField("utilization", utils).Trace("utilization sample")
	}

	computer := compute.NewComputer(cfg.LambdaEndpoint, callback, utilCallback)
	if err := config.Apply(computer, descriptor); err != nil {
		logrus.Fatalf("configuring computer: %v", err)
	}

	log.Info("computer ready")
	waitForShutdownSignal()

	log.Info("shutting down")
	computer.Close()
}
