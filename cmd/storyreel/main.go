package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ju4n97/storyreel/internal/config"
	"github.com/ju4n97/storyreel/internal/env"
	"github.com/ju4n97/storyreel/internal/logger"
)

var version = "dev"

const usage = `usage: storyreel <command> [flags]

commands:
  serve    run the HTTP API and the gRPC health endpoint
  narrate  narrate a text file (or a recording) into one artifact
`

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "storyreel: failed to load .env:", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = serve(ctx, args)
	case "narrate":
		err = narrateCmd(ctx, args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "storyreel: unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// commonFlags registers the flags every command accepts.
func commonFlags(fs *flag.FlagSet) (configPath, schemaPath *string) {
	configPath = fs.String("config", path.Join(config.DefaultConfigPath(), "config.yaml"), "Path to config file")
	schemaPath = fs.String("schema", "", "Path to schema file (defaults to the built-in schema)")
	return configPath, schemaPath
}

// setupLogger installs the process logger. The CLI logs to stderr only.
func setupLogger(toFile bool) {
	environment := env.FromEnv()

	var opts []logger.Option
	if toFile {
		opts = append(opts,
			logger.WithLogToFile(true),
			logger.WithLogFile("logs/storyreel.log"),
		)
	}

	slog.SetDefault(logger.New(environment, opts...))
}
