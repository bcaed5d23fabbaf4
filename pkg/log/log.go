// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
	sugar  = logger.Sugar()
)

var ProviderSet = wire.NewSet(ProvideLogger)

// ProvideLogger 初始化全局日志并返回包装实例
func ProvideLogger(conf *Conf) (*Logger, error) {
	zapLogger, err := NewLog(conf)
	if err != nil {
		return nil, err
	}
	return &Logger{Log: zapLogger.Sugar()}, nil
}

type Conf struct {
	// Output: stdout 或 file
	Output   string `mapstructure:"output"`
	Path     string `mapstructure:"path"`
	Filename string `mapstructure:"filename"`
	Level    string `mapstructure:"level"`
	// Encoding: console 或 json
	Encoding   string `mapstructure:"encoding"`
	KeepDays   int    `mapstructure:"keepDays"`   // 日志保留天数
	RotateSize int    `mapstructure:"rotateSize"` // 单个文件最大大小（MB）
	RotateNum  int    `mapstructure:"rotateNum"`  // 保留的文件数量
}

func SetDefaults() *Conf {
	return &Conf{
		Output:     "stdout",
		Path:       "./logs",
		Filename:   "gatekeeper.log",
		Level:      "INFO",
		Encoding:   "console",
		KeepDays:   7,
		RotateSize: 100,
		RotateNum:  10,
	}
}

func (c *Conf) Validate() error {
	switch c.Output {
	case "", "stdout":
	case "file":
		if c.Path == "" {
			return fmt.Errorf("log path is required when output is 'file'")
		}
		if c.RotateSize <= 0 {
			c.RotateSize = 100
		}
		if c.RotateNum <= 0 {
			c.RotateNum = 10
		}
		if c.KeepDays <= 0 {
			c.KeepDays = 7
		}
	default:
		return fmt.Errorf("unsupported log output %q", c.Output)
	}
	return nil
}

type Logger struct {
	Log *zap.SugaredLogger
}

// NewLog builds a zap logger from conf and installs it as the global logger.
func NewLog(conf *Conf) (*zap.Logger, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid log config: %w", err)
	}

	var writeSyncer zapcore.WriteSyncer
	if conf.Output == "file" {
		writeSyncer = getFileLogWriter(conf)
	} else {
		writeSyncer = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(getEncoder(conf.Encoding), writeSyncer, parseLogLevel(conf.Level))
	core = wrapCoreWithTrace(core)

	SetLogger(zap.New(core, zap.AddCallerSkip(1), zap.AddCaller()))
	Debugw("log initialized", "output", conf.Output, "level", conf.Level)
	return L(), nil
}

func Init(conf *Conf) error {
	_, err := NewLog(conf)
	return err
}

func MustInit(conf *Conf) {
	if err := Init(conf); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	logger = l
	sugar = l.Sugar()
	mu.Unlock()
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func GetLogger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Sync() error {
	return L().Sync()
}

func getEncoder(encoding string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeTime = customTimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if strings.EqualFold(encoding, "json") {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
