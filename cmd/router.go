package cmd

import (
	"context"
	"fmt"

	"github.com/ccicconetti/serverlessedge/config"
	"github.com/ccicconetti/serverlessedge/entry"
	"github.com/ccicconetti/serverlessedge/forwarding"
	"github.com/ccicconetti/serverlessedge/optimizer"
	"github.com/ccicconetti/serverlessedge/router"
	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var routerConfigPath string

var routerCmd = &cobra.Command{
	Use:   "router",
	Short: "Run an edge router: forwarding tables, local optimizer and the dispatcher",
	Run:   runRouter,
}

func init() {
	routerCmd.Flags().StringVar(&routerConfigPath, "config", "", "Path to the router's YAML process configuration")
	routerCmd.MarkFlagRequired("config")
}

// loggingLambdaClient is the default transport.LambdaClient until a
// concrete transport is wired in: it logs the forward it would have made
// and reports a transport failure, since there is nowhere to actually
// deliver the request. It is deliberately not a network transport; it
// keeps the dispatcher exercisable without fabricating one.
type loggingLambdaClient struct{}

func (loggingLambdaClient) Invoke(_ context.Context, endpoint string, req *transport.LambdaRequest) (*transport.LambdaResponse, error) {
	logrus.WithFields(logrus.Fields{"function": req.Function, "destination": endpoint}).
		Warn("no transport configured, dropping forwarded request")
	return nil, transport.ErrTransportFailure
}

// validateOptimizerKind rejects any optimizer kind string outside the
// closed set optimizer.New recognizes, so a malformed config fails with a
// clear error instead of a panic.
func validateOptimizerKind(s string) (optimizer.Kind, error) {
	switch optimizer.Kind(s) {
	case optimizer.KindNone, optimizer.KindTrivial, optimizer.KindAsync, optimizer.KindAsyncPF:
		return optimizer.Kind(s), nil
	default:
		return "", fmt.Errorf("unsupported optimizer kind %q", s)
	}
}

func runRouter(*cobra.Command, []string) {
	cfg, err := config.LoadRouterConfig(routerConfigPath)
	if err != nil {
		logrus.Fatalf("loading router config: %v", err)
	}
	setLogLevel(cfg.LogLevel)

	entryType, err := entry.TypeFromString(cfg.EntryType)
	if err != nil {
		logrus.Fatalf("router config: %v", err)
	}
	fwd := forwarding.NewRouter(entryType, entry.Params{})

	optimizerKind, err := validateOptimizerKind(cfg.OptimizerKind)
	if err != nil {
		logrus.Fatalf("router config: %v", err)
	}

	overallOpt := optimizer.New(optimizerKind, fwd.Overall, cfg.OptimizerPeriod, cfg.OptimizerAlpha)
	finalOpt := optimizer.New(optimizerKind, fwd.Final, cfg.OptimizerPeriod, cfg.OptimizerAlpha)

	d := router.NewDispatcher(fwd, overallOpt, finalOpt, loggingLambdaClient{})
	d.SubtractResponderTime = cfg.SubtractResponderTime

	log := logrus.WithField("lambda_endpoint", cfg.LambdaEndpoint)
	log.Info("router ready")
	waitForShutdownSignal()

	log.Info("shutting down")
	overallOpt.Close()
	finalOpt.Close()
}
