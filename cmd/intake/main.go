package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/intake/internal/api"
	"github.com/JaimeStill/intake/internal/config"
	"github.com/JaimeStill/intake/internal/gmail"
	"github.com/JaimeStill/intake/internal/infrastructure"
)

func main() {
	var (
		configFile  = flag.String("config", config.BaseConfigFile, "Base config file")
		file        = flag.String("file", "", "Read the email thread JSON from a file (- for stdin)")
		gmailThread = flag.String("gmail-thread", "", "Fetch the email thread with this Gmail thread ID")
		authURL     = flag.Bool("gmail-auth-url", false, "Print the Gmail consent URL and exit")
		authCode    = flag.String("gmail-auth-code", "", "Exchange a Gmail authorization code for a cached token and exit")
		format      = flag.String("format", "text", "Summary output format: text or json")
	)
	flag.Parse()

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *authURL:
		url, err := gmail.AuthURL(&cfg.Gmail)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(url)
		return
	case *authCode != "":
		if err := gmail.Authorize(ctx, &cfg.Gmail, *authCode); err != nil {
			log.Fatal(err)
		}
		fmt.Println("gmail token cached at", cfg.Gmail.TokenFile)
		return
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		log.Fatal("infrastructure init failed: ", err)
	}

	raw, err := readInput(ctx, cfg, infra, *file, *gmailThread)
	if err != nil {
		log.Fatal(err)
	}

	if err := infra.Start(); err != nil {
		log.Fatal("infrastructure start failed: ", err)
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		log.Fatal("startup failed: ", err)
	}
	defer func() {
		if err := infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
			infra.Logger.Error("shutdown failed", "error", err)
		}
	}()

	domain := api.NewDomain(api.NewRuntime(cfg, infra), cfg.Agent)

	rec, err := domain.Runs.Execute(ctx, raw)
	if err != nil {
		infra.Logger.Error("run failed", "error", err)
		return
	}

	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(rec.Summary)
		return
	}
	fmt.Println(rec.Summary.Text)
}
