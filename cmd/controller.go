package cmd

import (
	"context"
	"math/rand"

	"github.com/ccicconetti/serverlessedge/config"
	"github.com/ccicconetti/serverlessedge/controller"
	"github.com/ccicconetti/serverlessedge/entry"
	"github.com/ccicconetti/serverlessedge/topology"
	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var controllerConfigPath string

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Run an edge controller: flat or hierarchical route installation",
	Run:   runController,
}

func init() {
	controllerCmd.Flags().StringVar(&controllerConfigPath, "config", "", "Path to the controller's YAML process configuration")
	controllerCmd.MarkFlagRequired("config")
}

// loggingRouterConfigClient is the default transport.RouterConfigClient
// until a concrete transport is wired in: it logs the change it would
// have pushed and reports success, so the installer's own bookkeeping
// (which only reacts to failures) is exercised without a live router.
// It is deliberately not a network transport; it keeps the controller
// exercisable without fabricating one.
type loggingRouterConfigClient struct{}

func (loggingRouterConfigClient) Configure(_ context.Context, configEndpoint string, req transport.ConfigureRequest) error {
	logrus.WithFields(logrus.Fields{
		"router":   configEndpoint,
		"function": req.Function,
		"endpoint": req.Endpoint,
		"final":    req.Final,
	}).Debug("configure")
	return nil
}

func (loggingRouterConfigClient) GetNumTables(context.Context, string) (int, error) { return 2, nil }

func (loggingRouterConfigClient) GetTable(context.Context, string, int) (map[string][]entry.Destination, error) {
	return nil, nil
}

func runController(*cobra.Command, []string) {
	cfg, err := config.LoadControllerConfig(controllerConfigPath)
	if err != nil {
		logrus.Fatalf("loading controller config: %v", err)
	}
	setLogLevel(cfg.LogLevel)

	client := loggingRouterConfigClient{}

	var installer controller.Installer
	switch cfg.Installer {
	case "flat":
		installer = controller.NewFlat(client)
	case "hier":
		objective, err := controller.ObjectiveFromString(cfg.Objective)
		if err != nil {
			logrus.Fatalf("controller config: %v", err)
		}
		topo, err := topology.FromFile(cfg.TopologyPath)
		if err != nil {
			logrus.Fatalf("loading topology: %v", err)
		}
		installer = controller.NewHier(client, objective, topo, rand.New(rand.NewSource(1)))
	default:
		logrus.Fatalf("controller config: unsupported installer %q", cfg.Installer)
	}

	server := controller.NewServer()
	server.Subscribe(installer)

	log := logrus.WithField("endpoint", cfg.Endpoint)
	log.Info("controller ready")
	waitForShutdownSignal()

	log.Info("shutting down")
}
