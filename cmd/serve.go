package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/gorsx/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the preview server with hot reload",
	Long: `Start the preview server. Every template in the scan paths gets a page at
/render/<Name>; query parameters become props. With hot reload on, pages
reload when a template changes and show an error overlay when the build
fails.

Examples:
  gorsx serve                      # Serve on localhost:8080
  gorsx serve -p 3000 --open       # Another port, open the browser
  gorsx serve --mock=false         # Require every prop in the query`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("open", false, "Open the browser once the server is listening")
	serveCmd.Flags().Bool("hot-reload", true, "Reload pages when templates change")
	serveCmd.Flags().Bool("mock", true, "Fill missing required props with mock values")
	AddFlagValidation(serveCmd, "port", ValidatePort)

	bindFlag(serveCmd, "port", "server.port")
	bindFlag(serveCmd, "host", "server.host")
	bindFlag(serveCmd, "open", "server.open")
	bindFlag(serveCmd, "hot-reload", "development.hot_reload")
	bindFlag(serveCmd, "mock", "development.mock_props")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	return server.New(cfg, logger).Start(ctx)
}
