package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Hyperschedule 教务数据抓取与链接",
	Long: `定时从教务系统抓取原始数据，链接为规范化课程目录并写入数据库。

子命令:
  run     - 常驻运行：按数据源轮询抓取、重新链接、入库
  fetch   - 一次性抓取全部数据源到本地缓存
  link    - 从本地缓存链接目录，输出 JSON 或入库
  migrate - 执行或回滚数据库迁移`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")
	rootCmd.AddCommand(runCmd, fetchCmd, linkCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
