package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zestcart/zestcart/config"
	"github.com/zestcart/zestcart/internal/adminapi"
	"github.com/zestcart/zestcart/internal/app"
	"github.com/zestcart/zestcart/internal/storeapi"
	"github.com/zestcart/zestcart/internal/webserver"
)

var (
	h        = flag.Bool("h", false, "print help and exit")
	showVer  = flag.Bool("v", false, "print version and exit")
	confFile = flag.String("c", "/etc/zestcart.yml", "config file path")
	initDb   = flag.Bool("initdb", false, "initialize database and exit")
)

// set through ldflags at release build
var (
	BuildVersion = "dev"
	ReleaseDate  = ""
)

func printVersion() {
	fmt.Printf("zestcart %s %s\n", BuildVersion, ReleaseDate)
}

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		os.Exit(0)
	}
	if *showVer {
		printVersion()
		os.Exit(0)
	}

	cfg := config.LoadConfig(*confFile)
	application := app.NewApplication(cfg)
	application.Init(cfg)

	if *initDb {
		application.InitDb()
		application.Release()
		return
	}

	webserver.Init(application)
	storeapi.InitRouter()
	adminapi.InitRouter()

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		if err := webserver.Listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigs:
			zap.S().Infof("received signal %s, shutting down", sig)
		case <-ctx.Done():
			return ctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := webserver.Shutdown(shutdownCtx); err != nil {
			zap.S().Errorf("web server shutdown error %s", err.Error())
		}
		application.Release()
		return nil
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("server stopped with error %s", err.Error())
		os.Exit(1)
	}
}
