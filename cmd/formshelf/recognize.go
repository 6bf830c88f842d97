package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/config"
	"github.com/jackzampolin/formshelf/internal/export"
	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/pipeline"
	"github.com/jackzampolin/formshelf/internal/providers"
	"github.com/jackzampolin/formshelf/internal/recognize"
	"github.com/jackzampolin/formshelf/internal/session"
)

// newLocalPipeline builds a pipeline in-process from the loaded config.
func newLocalPipeline(logger *slog.Logger) (*pipeline.Holder, *config.Manager, error) {
	cm, h, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}
	cfg := cm.Get()
	if err := cfg.CheckCredentials(); err != nil {
		return nil, nil, err
	}
	holder := pipeline.NewHolder(cfg, pipeline.Deps{
		Registry: providers.NewRegistry(),
		Resolver: pipeline.NewResolver(logger, cfg.Prompts),
		Stager:   h.Stager(),
		Logger:   logger,
	})
	return holder, cm, nil
}

var (
	recognizeMain      string
	recognizeChild     string
	recognizeWorkspace string
	recognizeAnnotate  bool
	recognizeReconcile bool
	recognizeXLSX      string
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize a form picture without a running server",
	Long: `Recognize the table in a form picture and print it as JSON.

如何使用:
  1. 准备一张表单照片或扫描件 (jpg, jpeg 或 png)
  2. 用 --main 填写主表字段, 用 --child 填写明细字段
     字段之间用逗号, 分号或空格分隔
  3. 运行命令, 结果按字段名输出; 加 --xlsx 可同时导出表格

Examples:
  formshelf recognize form.png --main 客户名称,日期,合计 --child 品名,数量,单价,金额
  formshelf recognize form.jpg --child "品名 数量" --reconcile -o json
  formshelf recognize form.png --main 客户名称 --xlsx form.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		schema := fields.ParseSchema(recognizeMain, recognizeChild)
		if err := schema.Validate(); err != nil {
			return fmt.Errorf("%w: use --main and/or --child", err)
		}

		holder, _, err := newLocalPipeline(logger)
		if err != nil {
			return err
		}
		p, err := holder.Get()
		if err != nil {
			return err
		}

		annotate := p.Annotate
		if cmd.Flags().Changed("annotate") {
			annotate = recognizeAnnotate
		}
		sess, err := p.Orchestrator.Run(cmd.Context(), session.Request{
			Workspace: recognizeWorkspace,
			Image:     recognize.Image{Name: filepath.Base(args[0]), Data: data},
			Schema:    schema,
			Annotate:  annotate,
			Reconcile: recognizeReconcile,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", session.Classify(err), err)
		}

		if recognizeXLSX != "" {
			if sess.Result == nil {
				return errors.New("no result to export")
			}
			book, err := export.NewExporter(logger).XLSX(sess.Result, sess.Schema)
			if err != nil {
				return err
			}
			if err := os.WriteFile(recognizeXLSX, book, 0o644); err != nil {
				return err
			}
			logger.Info("spreadsheet written", "path", recognizeXLSX)
		}
		return api.Output(sess)
	},
}

var (
	reconcileSource string
	reconcileTarget string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Map target field names onto extracted names",
	Long: `Map each target field name onto the extracted name it matches,
using the configured reconciler.

Examples:
  formshelf reconcile --source "名称,数量,单价" --target "品名,数量,金额"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		target := fields.Parse(reconcileTarget)
		if len(target) == 0 {
			return errors.New("--target is required")
		}
		source := fields.Parse(reconcileSource)

		holder, _, err := newLocalPipeline(logger)
		if err != nil {
			return err
		}
		p, err := holder.Get()
		if err != nil {
			return err
		}
		corr, err := p.Reconciler.Reconcile(cmd.Context(), source, target)
		if err != nil {
			return err
		}
		sources, targets := corr.Unmatched(source, target)
		return api.Output(map[string]any{
			"correspondence":    corr,
			"unmatched_sources": sources,
			"unmatched_targets": targets,
		})
	},
}

func init() {
	recognizeCmd.Flags().StringVar(&recognizeMain, "main", "", "Main table fields")
	recognizeCmd.Flags().StringVar(&recognizeChild, "child", "", "Item fields")
	recognizeCmd.Flags().StringVar(&recognizeWorkspace, "workspace", session.DefaultWorkspace, "Workspace the session is recorded under")
	recognizeCmd.Flags().BoolVar(&recognizeAnnotate, "annotate", true, "Stage the upload and annotated picture (default from config)")
	recognizeCmd.Flags().BoolVar(&recognizeReconcile, "reconcile", false, "Map extracted names onto the target fields")
	recognizeCmd.Flags().StringVar(&recognizeXLSX, "xlsx", "", "Also write the result as a spreadsheet")

	reconcileCmd.Flags().StringVar(&reconcileSource, "source", "", "Extracted field names")
	reconcileCmd.Flags().StringVar(&reconcileTarget, "target", "", "Target field names")

	rootCmd.AddCommand(recognizeCmd)
	rootCmd.AddCommand(reconcileCmd)
}
