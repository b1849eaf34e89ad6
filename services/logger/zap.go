package logsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mutqin/backend/core"
)

// ZapLogger is the local/dev logger.
type ZapLogger struct {
	sugar   *zap.SugaredLogger
	enabled bool
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(conf *core.Config) *ZapLogger {
	var zconf zap.Config
	if conf.Debug {
		zconf = zap.NewDevelopmentConfig()
		zconf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zconf = zap.NewProductionConfig()
	}
	zconf.OutputPaths = []string{"stdout"}

	logger, err := zconf.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic("building zap logger: " + err.Error())
	}
	return &ZapLogger{sugar: logger.Sugar(), enabled: true}
}

func (l *ZapLogger) Enable(enabled bool) { l.enabled = enabled }

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	if l.enabled {
		l.sugar.Debugw(msg, kvs(args)...)
	}
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	if l.enabled {
		l.sugar.Infow(msg, kvs(args)...)
	}
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	if l.enabled {
		l.sugar.Warnw(msg, kvs(args)...)
	}
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	if l.enabled {
		l.sugar.Errorw(msg, kvs(args)...)
	}
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, kvs(args)...)
}

// kvs turns loose args into zap fields; bare values are attached under "detail".
func kvs(args []interface{}) []interface{} {
	fields := make([]interface{}, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case zap.Field:
			fields = append(fields, v)
		case error:
			fields = append(fields, zap.Error(v))
		default:
			fields = append(fields, zap.Any("detail", v))
		}
	}
	return fields
}
