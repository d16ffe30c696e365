// Package callback 提供 Eino Callback 日志支持
package callback

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-chat/internal/logger"
)

const component = "eino"

// Logger 日志回调处理器
// 记录模型调用的开始、结束、错误以及流式输出的 token 用量
type Logger struct {
	log         *logger.Logger
	enableDebug bool
}

var _ callbacks.Handler = (*Logger)(nil)

// NewLogger 创建日志回调处理器
func NewLogger(log *logger.Logger, enableDebug bool) *Logger {
	return &Logger{log: log, enableDebug: enableDebug}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if l.enableDebug {
		details := runDetails(info)
		if in := model.ConvCallbackInput(input); in != nil {
			details["messages"] = len(in.Messages)
		}
		l.log.Debug(component, "component start", details)
	}
	return ctx
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	details := runDetails(info)
	if out := model.ConvCallbackOutput(output); out != nil {
		addUsage(details, out.TokenUsage)
	}
	l.log.Debug(component, "component end", details)
	return ctx
}

// OnError 组件执行出错时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	details := runDetails(info)
	details["error"] = err
	l.log.Error(component, "component error", details)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	if l.enableDebug {
		l.log.Debug(component, "stream input start", runDetails(info))
	}
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
// 回调拿到的是流的副本，必须读完并关闭
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	details := runDetails(info)
	go func() {
		defer output.Close()
		var usage *model.TokenUsage
		for {
			chunk, err := output.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				details["error"] = err
				l.log.Warn(component, "stream output aborted", details)
				return
			}
			if out := model.ConvCallbackOutput(chunk); out != nil && out.TokenUsage != nil {
				usage = out.TokenUsage
			}
		}
		addUsage(details, usage)
		l.log.Debug(component, "stream output end", details)
	}()
	return ctx
}

func runDetails(info *callbacks.RunInfo) map[string]any {
	if info == nil {
		return map[string]any{}
	}
	return map[string]any{
		"name":      info.Name,
		"type":      info.Type,
		"component": string(info.Component),
	}
}

func addUsage(details map[string]any, usage *model.TokenUsage) {
	if usage == nil {
		return
	}
	details["prompt_tokens"] = usage.PromptTokens
	details["completion_tokens"] = usage.CompletionTokens
	details["total_tokens"] = usage.TotalTokens
}

// SetupGlobalCallbacks 设置全局回调
func SetupGlobalCallbacks(log *logger.Logger, enableDebug bool) {
	callbacks.AppendGlobalHandlers(NewLogger(log, enableDebug))
	log.Info(component, "global callbacks registered", map[string]any{"debug": enableDebug})
}
