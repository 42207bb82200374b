package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/go-oidfed/certledger"
	"github.com/go-oidfed/certledger/cmd/certledger/config"
	"github.com/go-oidfed/certledger/internal/logger"
	"github.com/go-oidfed/certledger/internal/version"
)

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	config.Load(configFile)
	c := config.Get()
	if err := logger.Init(c.Logging.Conf); err != nil {
		log.WithError(err).Fatal("could not init logging")
	}
	if c.Logging.Banner {
		fmt.Print(version.Banner(0))
	}
	log.Info("Loaded Config")

	backs, err := config.LoadStorageBackends(c.Storage, c.API.Admin.Argon2idParams)
	if err != nil {
		log.WithError(err).Fatal("could not load storage backend")
	}
	publisher, err := config.NewPublisher(c.Events)
	if err != nil {
		log.WithError(err).Fatal("could not init event publishing")
	}

	ledger := certledger.NewLedger(backs.Ledger, publisher)
	defer func() {
		if err := ledger.Close(); err != nil {
			log.WithError(err).Error("error closing ledger")
		}
	}()

	if deployer, ok := c.Ledger.DeployerAccount(); ok {
		if err = ledger.EnsureDeployed(context.Background(), deployer); err != nil {
			log.WithError(err).Fatal("could not deploy issuer registry")
		}
	}
	if deployed, err := ledger.Deployed(); err != nil {
		log.WithError(err).Fatal("could not read ledger state")
	} else if !deployed {
		log.Warn("issuer registry is not deployed; set ledger.deployer or run 'clctl deploy'")
	}

	serverConf := c.Server
	serverConf.AccessLog = logger.AccessLog()
	server, err := certledger.NewServer(serverConf, ledger, backs.Users, c.API.Admin.Options())
	if err != nil {
		log.WithError(err).Fatal("could not init server")
	}
	log.Info("Initialized Server")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info("Shutting down")
		if err := server.Shutdown(); err != nil {
			log.WithError(err).Error("error shutting down server")
		}
	}()
	if err = server.Start(); err != nil {
		log.WithError(err).Error("server stopped")
	}
}
