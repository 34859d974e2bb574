package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/internal/repository"
	"github.com/hyperschedule/hyperschedule-sub000/internal/service"
	applogger "github.com/hyperschedule/hyperschedule-sub000/pkg/logger"
)

var (
	linkOut     string
	linkPersist bool
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "从本地缓存链接课程目录",
	Long: `读取本地缓存的全部数据源，链接为当前学期的课程目录。
默认以 JSON 输出到标准输出；--persist 时整学期替换写入数据库。`,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringVarP(&linkOut, "out", "o", "", "输出文件路径（默认标准输出）")
	linkCmd.Flags().BoolVar(&linkPersist, "persist", false, "链接结果写入数据库")
}

func runLink(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer applogger.Sync(a.logger)

	files, err := a.store.LoadAll(a.sources, a.term)
	if err != nil {
		a.logger.Error("加载本地缓存失败，请先执行 fetch", zap.Error(err))
		return err
	}
	lk, err := a.newLinker()
	if err != nil {
		return err
	}

	if linkPersist {
		db, err := a.openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		svc := service.NewService(repository.NewRepository(db), lk, nil, a.logger.Named(applogger.ComponentService))
		n, err := svc.Catalog.Rebuild(cmd.Context(), files, a.term)
		if err != nil {
			return err
		}
		a.logger.Info("目录已写入数据库", zap.Int("sections", n))
		return nil
	}

	svc := service.NewService(nil, lk, nil, a.logger.Named(applogger.ComponentService))
	sections, err := svc.Catalog.Link(files, a.term)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if linkOut != "" {
		f, err := os.Create(linkOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sections)
}
