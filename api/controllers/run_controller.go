/*
 * @module api/controllers/run_controller
 * @description 流水线运行控制器，按请求触发一次完整运行
 * @architecture MVC架构 - 控制器层
 * @stateFlow 请求接收 -> 抢占运行锁 -> 同步执行流水线 -> 返回运行结果
 * @rules 同一时间只允许一个运行；已有运行时返回 409
 * @dependencies github.com/go-chi/render
 * @refs service/pipeline/pipeline.go
 */

package controllers

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/render"

	"inkstone-service/service/pipeline"
)

// Runner 流水线执行方
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.RunResult, error)
}

// RunController 流水线运行控制器
type RunController struct {
	runner    Runner
	enableLLM bool
	mu        sync.Mutex
}

// NewRunController 创建运行控制器，enableLLM 为未指定参数时的默认值
func NewRunController(runner Runner, enableLLM bool) *RunController {
	return &RunController{runner: runner, enableLLM: enableLLM}
}

// RunResponse 运行结果
type RunResponse struct {
	RunID   string                    `json:"run_id"`
	Outputs map[string]map[string]any `json:"outputs"`
}

// TriggerRun 触发一次流水线运行
func (c *RunController) TriggerRun(w http.ResponseWriter, r *http.Request) {
	enableLLM := c.enableLLM
	if v := r.URL.Query().Get("enable_llm"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, BadRequestResponse("enable_llm 参数格式错误", err))
			return
		}
		enableLLM = b
	}

	if !c.mu.TryLock() {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ConflictResponse("已有运行正在进行"))
		return
	}
	defer c.mu.Unlock()

	// 客户端断开不中断运行
	res, err := c.runner.Run(context.WithoutCancel(r.Context()), pipeline.RunOptions{EnableLLM: enableLLM})
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("流水线运行失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("流水线运行完成", RunResponse{RunID: res.RunID, Outputs: res.Outputs}))
}

// ScheduledRun 定时任务入口，已有运行时跳过本次触发
func (c *RunController) ScheduledRun(ctx context.Context) error {
	if !c.mu.TryLock() {
		return nil
	}
	defer c.mu.Unlock()
	_, err := c.runner.Run(ctx, pipeline.RunOptions{EnableLLM: c.enableLLM})
	return err
}
