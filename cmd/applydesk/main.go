package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lhdbsbz/applydesk/internal/apply"
	"github.com/lhdbsbz/applydesk/internal/chat"
	"github.com/lhdbsbz/applydesk/internal/config"
	"github.com/lhdbsbz/applydesk/internal/console"
	"github.com/lhdbsbz/applydesk/internal/endpoint"
	"github.com/lhdbsbz/applydesk/internal/gateway"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("applydesk v%s\n", version)
	case "init":
		err = initConfig(os.Args[2:])
	case "serve":
		err = serve(os.Args[2:])
	case "submit":
		err = submit(os.Args[2:])
	case "chat":
		err = chatREPL(os.Args[2:])
	case "ask":
		err = ask(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ApplyDesk - resume application and question gateway")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  applydesk serve                  Start the web gateway")
	fmt.Println("  applydesk submit --file cv.pdf   Submit an application from the terminal")
	fmt.Println("  applydesk chat                   Ask questions line by line")
	fmt.Println("  applydesk ask <question>         Ask a single question")
	fmt.Println("  applydesk init                   Write the example config")
	fmt.Println("  applydesk version                Show version info")
}

func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	cfgPath := fs.String("config", "", "config file (default $APPLYDESK_HOME/config.yaml)")
	return fs, cfgPath
}

// setup loads .env files and the config, installs the logger and returns
// an endpoint client bound to the loaded settings.
func setup(cfgPath string) (*config.Config, *endpoint.Client, error) {
	config.SetPath(cfgPath)
	if err := config.LoadEnv(config.EnvFiles()...); err != nil {
		slog.Warn("env files not loaded", "error", err)
	}

	path := config.Path()
	cfg, fromExample, err := config.LoadOrExample(path)
	if err != nil {
		return nil, nil, err
	}
	config.Set(cfg)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
	if fromExample {
		slog.Warn("config not found, using defaults", "path", path)
	}
	if cfg.Endpoint.URL == "" {
		slog.Warn("endpoint.url is empty; submissions and questions will fail")
	}
	return cfg, endpoint.NewClient(cfg.Endpoint), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func initConfig(args []string) error {
	fs, cfgPath := newFlagSet("init")
	fs.Parse(args)
	config.SetPath(*cfgPath)
	path := config.Path()
	if err := config.CreateFromExample(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func serve(args []string) error {
	fs, cfgPath := newFlagSet("serve")
	fs.Parse(args)

	cfg, client, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	slog.Info("ApplyDesk starting", "version", version, "config", config.Path())

	srv := gateway.NewServer(cfg, client)
	config.RegisterOnReload(func(c *config.Config) {
		client.Configure(c.Endpoint)
		srv.Views.SetTTL(c.Gateway.ViewTTL)
	})

	ctx, stop := signalContext()
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	g.Go(func() error { return config.Watch(ctx) })
	return g.Wait()
}

func submit(args []string) error {
	fs, cfgPath := newFlagSet("submit")
	var form console.FileForm
	fs.StringVar(&form.Values.Name, "name", "", "applicant name")
	fs.StringVar(&form.Values.Email, "email", "", "applicant email")
	fs.StringVar(&form.Values.Phone, "phone", "", "applicant phone")
	fs.StringVar(&form.Path, "file", "", "resume file")
	fs.Parse(args)

	_, client, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	con := console.New(os.Stdout)
	res := apply.NewHandler(client, slog.Default()).Submit(ctx, &form, con, con)
	if res.Outcome != apply.OutcomeDispatched {
		return fmt.Errorf("submission %s: %w", res.Outcome, res.Err)
	}
	return nil
}

func chatREPL(args []string) error {
	fs, cfgPath := newFlagSet("chat")
	fs.Parse(args)

	_, client, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	log := chat.NewLog()
	log.Subscribe(console.New(os.Stdout))
	h := chat.NewHandler(client, log, slog.Default())

	err = console.RunChat(ctx, h, os.Stdin)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func ask(args []string) error {
	fs, cfgPath := newFlagSet("ask")
	fs.Parse(args)
	question := strings.Join(fs.Args(), " ")

	_, client, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	log := chat.NewLog()
	log.Subscribe(console.New(os.Stdout))
	turn, sent := chat.NewHandler(client, log, slog.Default()).Send(ctx, &chat.TextInput{Text: question})
	if !sent {
		return errors.New("question is empty")
	}
	return turn.Err
}
