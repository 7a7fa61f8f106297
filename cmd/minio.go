package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"Bt1QSocial/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO同步存储桶管理",
	Long:  `查看和管理远端同步使用的MinIO存储桶，支持列出快照对象、查看统计信息、删除前缀下的对象。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		client, err := newMinioClient(cfg)
		if err != nil {
			log.Fatalf("创建MinIO客户端失败: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if minioDelete {
			if minioPrefix == "" {
				log.Fatal("删除操作需要指定前缀")
			}
			n, err := client.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				log.Fatalf("删除失败: %v", err)
			}
			fmt.Printf("已删除 %d 个对象 (前缀: %s)\n", n, minioPrefix)
			return
		}

		objects, stats, err := client.ListObjects(ctx, minioPrefix)
		if err != nil {
			log.Fatalf("列出对象失败: %v", err)
		}
		if !minioStats {
			fmt.Printf("\n存储桶 %s 中的对象 (前缀: %q):\n", client.Bucket(), minioPrefix)
			for _, obj := range objects {
				fmt.Printf("  %-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
			}
		}
		fmt.Printf("\n对象总数: %d\n", stats.TotalObjects)
		fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤对象或指定要删除的前缀")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "只显示统计信息")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定前缀下的所有对象")

	minioCmd.Example = `  # 列出所有同步对象
  bt1q minio

  # 只看某个命名空间
  bt1q minio -p "bt1q/"

  # 显示存储桶统计信息
  bt1q minio -s

  # 删除前缀下的所有对象
  bt1q minio -d -p "bt1q/devices/"`
}
