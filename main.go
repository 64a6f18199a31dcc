package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"inkstone-service/api"
	"inkstone-service/api/controllers"
	"inkstone-service/logger"
	"inkstone-service/service/cache"
	"inkstone-service/service/config"
	"inkstone-service/service/models"
	"inkstone-service/service/monitoring"
	"inkstone-service/service/pipeline"
	"inkstone-service/service/scheduler"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	logLevel   string
	logFormat  string
	enableLLM  bool

	rootCmd = &cobra.Command{
		Use:   "inkstone",
		Short: "评测语料构建与人机一致性统计",
		Long: `inkstone 从种子、外部语料与书籍文本构建去重分层的评测集，
并对译文执行人格评审、模型评审与一致性统计。`,
		SilenceUsage: true,
	}

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "构建评测语料快照与质量报告",
		Args:  cobra.NoArgs,
		RunE:  runBuild,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "执行完整流水线：构建、翻译、评审、指标",
		Args:  cobra.NoArgs,
		RunE:  runPipeline,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "启动看板数据接口，可按 cron 定时重建",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "查看或写入评测输出缓存",
	}

	cacheGetCmd = &cobra.Command{
		Use:   "get <item_id> <evaluator_id> <prompt_version>",
		Short: "读取一条缓存",
		Args:  cobra.ExactArgs(3),
		RunE:  runCacheGet,
	}

	cachePutCmd = &cobra.Command{
		Use:   "put <item_id> <evaluator_id> <prompt_version> [output]",
		Short: "写入一条缓存，未给出 output 时从标准输入读取",
		Args:  cobra.RangeArgs(3, 4),
		RunE:  runCachePut,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/systems.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别，覆盖配置 (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "日志格式，覆盖配置 (json|text|auto)")

	runCmd.Flags().BoolVar(&enableLLM, "enable-llm", false, "调用配置的 LLM 生成译文，默认取配置 run.enable_llm")
	serveCmd.Flags().BoolVar(&enableLLM, "enable-llm", false, "接口触发运行时的默认 LLM 开关，默认取配置 run.enable_llm")

	cacheCmd.AddCommand(cacheGetCmd, cachePutCmd)
	rootCmd.AddCommand(buildCmd, runCmd, serveCmd, cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化全局日志
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return cfg, logger.InitLogger(level, format), nil
}

// llmEnabled 命令行显式指定时覆盖配置
func llmEnabled(cmd *cobra.Command, cfg *config.Config) bool {
	if cmd.Flags().Changed("enable-llm") {
		return enableLLM
	}
	return cfg.Run.EnableLLM
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, pipeline.WithLogger(log))
	if err != nil {
		return err
	}
	res, err := p.BuildCorpus(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res.Outputs)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, pipeline.WithLogger(log), pipeline.WithCollector(monitoring.NewCollector()))
	if err != nil {
		return err
	}
	res, err := p.Run(cmd.Context(), pipeline.RunOptions{EnableLLM: llmEnabled(cmd, cfg)})
	if err != nil {
		return err
	}
	log.Info("运行完成",
		"run_id", res.RunID,
		"human_model_spearman", res.Summary.HumanModelSpearman,
		"human_model_pvalue", res.Summary.HumanModelPValue)
	return printJSON(cmd.OutOrStdout(), res.Outputs)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	collector := monitoring.NewCollector()
	p, err := pipeline.New(cfg, pipeline.WithLogger(log), pipeline.WithCollector(collector))
	if err != nil {
		return err
	}
	runController := controllers.NewRunController(p, llmEnabled(cmd, cfg))

	mux := chi.NewRouter()
	api.InitRoute(mux, api.Dependencies{
		ProcessedDir:   cfg.Paths.DataProcessed,
		ReportsDir:     cfg.Paths.ReportsDir,
		RunController:  runController,
		MetricsHandler: collector.Handler(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.RebuildCron != "" {
		sched, err := scheduler.New(cfg.Server.RebuildCron, runController.ScheduledRun, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		log.Info("定时重建已启用", "spec", cfg.Server.RebuildCron, "next", sched.Next())
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("服务启动", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("服务关闭中")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务关闭失败: %w", err)
	}
	return nil
}

func openCache(ctx context.Context) (cache.Store, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.Open(ctx, cache.Options{Driver: cfg.Cache.Driver, DSN: cfg.Cache.DSN, Logger: log})
}

func runCacheGet(cmd *cobra.Command, args []string) (err error) {
	store, err := openCache(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	key := models.CacheKey{ItemID: args[0], EvaluatorID: args[1], PromptVersion: args[2]}
	output, ok, err := store.Get(cmd.Context(), key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("缓存未命中: %s/%s/%s", key.ItemID, key.EvaluatorID, key.PromptVersion)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
	return err
}

func runCachePut(cmd *cobra.Command, args []string) (err error) {
	var output string
	if len(args) == 4 {
		output = args[3]
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("读取标准输入失败: %w", err)
		}
		output = strings.TrimRight(string(b), "\r\n")
	}

	store, err := openCache(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	key := models.CacheKey{ItemID: args[0], EvaluatorID: args[1], PromptVersion: args[2]}
	return store.Put(cmd.Context(), key, output)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
