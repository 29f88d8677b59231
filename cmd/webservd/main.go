// Command webservd is the origin server's entrypoint: it parses flags,
// loads the mime table, installs a signal handler for graceful
// shutdown, and runs one of the two concurrency flavors.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nmosier/webserv/conntable"
	"github.com/nmosier/webserv/lifecycle"
	"github.com/nmosier/webserv/mimetype"
	"github.com/nmosier/webserv/netserve"
	"github.com/nmosier/webserv/workerpool"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Exit codes returned by run, surfaced via os.Exit.
const (
	exitOK                = 0
	exitBadArgs           = 1
	exitSignalInstallFail = 2
	exitMimeLoadFail      = 3
	exitListenerStartFail = 5
	exitLoopError         = 6
	exitListenerCloseFail = 7
)

func main() {
	os.Exit(run())
}

// config holds the parsed command-line flags.
type config struct {
	port    string
	types   string
	docroot string
	model   string
	name    string
}

// parseFlags parses args (excluding the program name) into a config,
// applying the documented defaults for any flag not given.
func parseFlags(args []string) (config, error) {
	var cfg config
	flags := pflag.NewFlagSet("webservd", pflag.ContinueOnError)
	flags.StringVarP(&cfg.port, "port", "p", "1024", "TCP port to listen on")
	flags.StringVarP(&cfg.types, "types", "t", "/etc/mime.types", "path to a mime.types-style content-type table")
	flags.StringVarP(&cfg.docroot, "docroot", "d", ".", "document root to serve files from")
	flags.StringVarP(&cfg.model, "model", "m", "single", "concurrency model: single or multi")
	flags.StringVarP(&cfg.name, "name", "n", "webserv", "server name reported in the Server header")
	if err := flags.Parse(args); err != nil {
		return config{}, err
	}
	if cfg.model != "single" && cfg.model != "multi" {
		return config{}, fmt.Errorf("webservd: unknown --model %q, want single or multi", cfg.model)
	}
	return cfg, nil
}

func run() int {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArgs
	}
	port, types, docroot, model, name := cfg.port, cfg.types, cfg.docroot, cfg.model, cfg.name

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArgs
	}
	defer logger.Sync()

	accepting := lifecycle.NewAccepting()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		accepting.StopAccepting()
	}()

	var mimeTable *mimetype.Table
	if types == "" {
		mimeTable, err = mimetype.Parse(emptyReader{})
	} else {
		mimeTable, err = mimetype.Load(types)
	}
	if err != nil {
		logger.Error("loading mime table failed", zap.Error(err))
		return exitMimeLoadFail
	}

	listener, err := netserve.Listen(port)
	if err != nil {
		logger.Error("starting listener failed", zap.Error(err))
		return exitListenerStartFail
	}

	logger.Info("webservd starting",
		zap.String("port", port),
		zap.String("docroot", docroot),
		zap.String("model", model),
		zap.String("name", name),
	)

	var runErr error
	switch model {
	case "single":
		runErr = conntable.Run(listener, accepting, conntable.Config{
			Docroot:  docroot,
			ServName: name,
			Types:    mimeTable,
			Log:      logger,
		})
	case "multi":
		pool := workerpool.New(listener, workerpool.Config{
			Docroot:  docroot,
			ServName: name,
			Types:    mimeTable,
			Log:      logger,
		})
		runErr = pool.Run(accepting)
	}
	if runErr != nil {
		logger.Error("event loop exited with error", zap.Error(runErr))
		return exitLoopError
	}

	if err := listener.Close(); err != nil {
		logger.Error("closing listener failed", zap.Error(err))
		return exitListenerCloseFail
	}

	return exitOK
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }
