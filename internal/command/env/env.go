package env

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pkeller/modelharness/internal/command"
	"github.com/pkeller/modelharness/internal/config"
	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/logging"
	"github.com/pkeller/modelharness/internal/module"
	"github.com/pkeller/modelharness/internal/orchestrator"
)

var (
	controlURL string
	envName    string
	servePort  int
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Execution environment commands",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host an engine instance for an isolated environment",
	Long: `Starts an engine behind an HTTP endpoint and, when a control URL is
configured, announces the endpoint back to the orchestrator. This is the
command the default environment manifest launches as a child process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if controlURL == "" {
			controlURL = config.GetEnvString(orchestrator.EnvControlURL, "")
		}
		if envName == "" {
			envName = config.GetEnvString(orchestrator.EnvEnvName, "")
		}

		port := servePort
		if port == 0 {
			port = config.GetEnvInt(config.EnvPort, 0)
		}
		listenAddr := fmt.Sprintf("127.0.0.1:%d", port)

		ln, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return errors.Wrap(errors.CategoryEnvironment, "LISTEN_FAILED",
				fmt.Sprintf("cannot listen on %s", listenAddr), err)
		}
		endpoint := "http://" + ln.Addr().String()
		logging.Info("engine serving at %s", endpoint)

		srv := &http.Server{Handler: module.Handler(module.NewEngine())}
		go func() {
			if serveErr := srv.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
				logging.Error("engine server stopped: %v", serveErr)
			}
		}()

		if controlURL != "" {
			if envName == "" {
				envName = "unnamed"
			}
			if err := orchestrator.SignalReady(controlURL, envName, endpoint); err != nil {
				srv.Close()
				return err
			}
			logging.Info("announced %s to control server", envName)
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop

		logging.Info("shutting down engine server")
		return srv.Close()
	},
}

func init() {
	serveCmd.Flags().StringVar(&controlURL, "control", "", "Control server URL to announce readiness to (default $MODELHARNESS_CONTROL_URL)")
	serveCmd.Flags().StringVar(&envName, "name", "", "Environment name (default $MODELHARNESS_ENV_NAME)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Engine listen port (default $MODELHARNESS_PORT, else ephemeral)")
	envCmd.AddCommand(serveCmd)
	command.RootCmd.AddCommand(envCmd)
}
