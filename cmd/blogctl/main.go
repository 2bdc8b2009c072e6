package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-blog-client/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var version = "dev"

// Exit codes
const (
	exitOK         = 0
	exitError      = 1
	exitUsage      = 2
	exitRedirected = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			code = exitError
		}
	}()

	c := config.New()
	setupLogging(c, stderr)

	repo, closeRepo, err := openRepo(c)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening session store: %s\n", err)
		return exitError
	}
	defer closeRepo()

	a, err := newApp(c, repo, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error starting: %s\n", err)
		return exitError
	}
	return a.execute(ctx, args)
}

func setupLogging(c config.Config, stderr io.Writer) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.GetEnv() == "DEV" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(stderr).With().Timestamp().Str("app", c.GetAppName()).Logger()
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}

// usageError marks a bad command line.
type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}

func isUsage(err error) bool {
	var u usageError
	return errors.As(err, &u)
}
