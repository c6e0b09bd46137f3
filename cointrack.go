// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package main

import (
	"context"
	"flag"
	"fmt"

	"cointrack/internal/cli"
	"cointrack/internal/config"
	"cointrack/internal/handler"
	"cointrack/internal/svc"
	"cointrack/internal/warmer"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"
)

var configFile = flag.String("f", "etc/cointrack.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(*cfg, *configFile)
	handler.RegisterHandlers(server, ctx)
	cli.LogConfigSummary(&ctx.Config)

	if ctx.Config.Warmer.Enabled {
		w, err := warmer.New(context.Background(), ctx)
		logx.Must(err)
		w.Start()
		defer w.Stop()
	}

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
