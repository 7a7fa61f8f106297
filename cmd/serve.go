package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Bt1QSocial/server"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "启动 HTTP API 服务器",
	Long:    `加载本地缓存或远端快照，然后启动 JSON HTTP API，收到 SIGINT/SIGTERM 后优雅退出。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.Close(closeCtx)
		}()

		a.store.Init(ctx)

		addr := cfg.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		handler := server.NewHandler(server.NewAPIHandler(a.store, a.engine))
		return server.Run(ctx, addr, handler)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "监听地址，默认使用 HTTP_ADDR")
}
