package clog

import (
	"log/slog"
	"time"
)

// Field 即 slog.Attr，构造字段不产生额外分配
type Field = slog.Attr

// String 字符串字段
func String(k, v string) Field { return slog.String(k, v) }

// Int 整数字段，key、计数、阈值等都用它
func Int(k string, v int) Field { return slog.Int(k, v) }

// Time 时间字段
func Time(k string, v time.Time) Field { return slog.Time(k, v) }

// Duration 时长字段
func Duration(k string, v time.Duration) Field { return slog.Duration(k, v) }

// Any 任意类型字段
func Any(k string, v any) Field { return slog.Any(k, v) }

// Error 只输出错误消息：err_msg="semtimedop: ..."。err 为 nil 时返回空字段，会被 handler 忽略。
func Error(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithCode 输出带错误码的错误分组：error={msg="...", code="IPC_SEGMENT"}。
//
// code 为空时只保留 msg，便于直接传入 xerrors.GetCode(err) 的结果：
//
//	logger.Warn("attach segment failed", clog.ErrorWithCode(err, xerrors.GetCode(err)))
func ErrorWithCode(err error, code string) Field {
	attrs := make([]any, 0, 2)
	if err != nil {
		attrs = append(attrs, slog.String("msg", err.Error()))
	}
	if code != "" {
		attrs = append(attrs, slog.String("code", code))
	}
	if len(attrs) == 0 {
		return slog.Attr{}
	}
	return slog.Group("error", attrs...)
}
