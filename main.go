package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"researchd/app/client/arxiv"
	"researchd/app/client/github"
	"researchd/app/client/huggingface"
	"researchd/app/client/llm"
	"researchd/app/client/pdftext"
	"researchd/app/client/websearch"
	"researchd/app/config"
	"researchd/app/service/agent"
	"researchd/app/service/engine"
	"researchd/app/service/intake"
	"researchd/app/service/queue"
	"researchd/app/service/ranker"
	"researchd/app/service/research"
	"researchd/app/service/session"
	"researchd/app/service/summary"
	"researchd/app/service/toolbox"
	"researchd/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, llm.NewClient)
	do.Provide(di, arxiv.NewClient)
	do.Provide(di, github.NewClient)
	do.Provide(di, huggingface.NewClient)
	do.Provide(di, websearch.NewClient)
	do.Provide(di, pdftext.NewClient)
	do.Provide(di, session.New)
	do.Provide(di, ranker.New)
	do.Provide(di, summary.New)
	do.Provide(di, toolbox.New)
	do.Provide(di, agent.New)
	do.Provide(di, queue.New)
	do.Provide(di, research.New)
	do.Provide(di, intake.New)
	do.Provide(di, engine.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go do.MustInvoke[*intake.Service](di).Run(appCtx)
	go do.MustInvoke[*intake.Service](di).RunHTTP(appCtx)

	go do.MustInvoke[*engine.Service](di).Run(appCtx)

	<-appCtx.Done()
}
