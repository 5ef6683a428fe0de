// Package ctxkeys 定义在 context 中传递的比对运行信息。
package ctxkeys

import (
	"context"

	"go.uber.org/zap"
)

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	runIDKey       contextKey = "run_id"
	environmentKey contextKey = "environment"
	subjectKey     contextKey = "subject"
)

// WithRunID 设置比对运行 ID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID 获取比对运行 ID
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithEnvironment 设置当前处理的环境名
func WithEnvironment(ctx context.Context, env string) context.Context {
	return context.WithValue(ctx, environmentKey, env)
}

// Environment 获取当前处理的环境名
func Environment(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(environmentKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithSubject 设置已认证的调用方（JWT sub）
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject 获取已认证的调用方
func Subject(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// LogFields 返回 context 中已设置的运行信息日志字段
func LogFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := RunID(ctx); ok {
		fields = append(fields, zap.String("run_id", id))
	}
	if env, ok := Environment(ctx); ok {
		fields = append(fields, zap.String("environment", env))
	}
	if sub, ok := Subject(ctx); ok {
		fields = append(fields, zap.String("subject", sub))
	}
	return fields
}
