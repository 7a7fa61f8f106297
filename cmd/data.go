package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// withApp bootstraps, runs fn and waits for queued pushes before exiting.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()
	return fn(ctx, a)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "迁移旧版本地数据到记录存储",
	Long: `备份本地缓存，然后按 用户、曲目、播放列表、会话、合作项目 的顺序迁移旧数据。
迁移记录保存在本地缓存中，重复执行只会处理尚未迁移的记录。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res := a.engine.MigrateAll(ctx)
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("migration failed, backup key %q", res.BackupKey)
			}
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "对比存储与旧数据中的记录数量",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return printJSON(a.engine.VerifyMigration(ctx))
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "立即从远端拉取快照",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			_, ok := a.store.ForceSync(ctx)
			if !ok {
				fmt.Println("远端不可用，保留本地数据。")
			}
			return printJSON(a.store.GetDataSummary(ctx))
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "显示各集合数量与同步状态",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return printJSON(a.store.GetDataSummary(ctx))
		})
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出完整快照为 JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			snap := a.store.Export(ctx)
			if exportOut == "" {
				return printJSON(snap)
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(exportOut, data, 0o644); err != nil {
				return fmt.Errorf("写入 %s 失败: %w", exportOut, err)
			}
			fmt.Printf("快照已导出到 %s\n", exportOut)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, verifyCmd, syncCmd, summaryCmd, exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "输出文件，默认打印到标准输出")
}
