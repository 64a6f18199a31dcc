/**
 * @module SchedulerService
 * @description 定时重建调度器，按 cron 表达式周期性触发流水线
 * @architecture 基于 robfig/cron 的调度器模式
 * @stateFlow New -> Start -> 到点触发任务 -> Stop 等待运行中任务结束
 * @rules 使用标准五段 cron 表达式或 @every 描述符；上一次任务未结束时跳过本次触发
 * @dependencies github.com/robfig/cron/v3
 * @refs ../pipeline/pipeline.go, ../../main.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job 调度任务
type Job func(ctx context.Context) error

// Scheduler 定时调度器
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	spec    string
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New 创建调度器
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("调度任务为空")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := &cronLogger{logger: logger}
	c := cron.New(cron.WithLogger(cronLogger), cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	s := &Scheduler{cron: c, spec: spec, logger: logger, ctx: ctx, cancel: cancel}
	id, err := c.AddFunc(spec, func() {
		start := time.Now()
		logger.Info("定时任务开始", "spec", spec)
		if err := job(s.ctx); err != nil {
			logger.Error("定时任务失败", "spec", spec, "error", err)
			return
		}
		logger.Info("定时任务完成", "spec", spec, "duration", time.Since(start))
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("添加Cron任务失败: %w", err)
	}
	s.entryID = id
	return s, nil
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("定时调度器已启动", "spec", s.spec, "next", s.Next())
}

// Stop 停止调度器并等待运行中的任务结束
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("定时调度器已停止")
}

// Next 下次触发时间，未启动时为零值
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// cronLogger 将 cron 日志接入 slog
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
