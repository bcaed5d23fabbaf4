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

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/gatekeeper/pkg/id"
	"github.com/go-arcade/gatekeeper/pkg/log"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// 队列名称常量
const (
	Critical = "critical" // 关键队列（优先级最高）
	Default  = "default"  // 默认队列
	Low      = "low"      // 低优先级队列
)

// Conf queue 配置
type Conf struct {
	// Enable 为 false 时异步写入退化为进程内 goroutine
	Enable          bool           `mapstructure:"enable"`
	Concurrency     int            `mapstructure:"concurrency"`
	StrictPriority  bool           `mapstructure:"strictPriority"`
	Queues          map[string]int `mapstructure:"queues"` // 队列名 -> 优先级权重
	DefaultQueue    string         `mapstructure:"defaultQueue"`
	LogLevel        string         `mapstructure:"logLevel"` // debug, info, warn, error
	ShutdownTimeout int            `mapstructure:"shutdownTimeout"`
	MaxRetry        int            `mapstructure:"maxRetry"`
	MetricsInterval time.Duration  `mapstructure:"metricsInterval"`
}

func (c *Conf) SetDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if len(c.Queues) == 0 {
		c.Queues = map[string]int{
			Critical: 6,
			Default:  3,
			Low:      1,
		}
	}
	if c.DefaultQueue == "" {
		c.DefaultQueue = Default
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10
	}
	if c.MaxRetry < 0 {
		c.MaxRetry = 0
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = 15 * time.Second
	}
}

// QueueNames 返回配置的全部队列名
func (c Conf) QueueNames() []string {
	names := make([]string, 0, len(c.Queues))
	for name := range c.Queues {
		names = append(names, name)
	}
	return names
}

// TaskPayload 任务负载, Data 为具体任务的 sonic 编码
type TaskPayload struct {
	TaskID   string          `json:"task_id"`
	TaskType string          `json:"task_type"`
	Data     json.RawMessage `json:"data"`
}

func NewPayload(taskType string, data any) (*TaskPayload, error) {
	raw, err := sonic.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return &TaskPayload{
		TaskID:   id.GetUlid(),
		TaskType: taskType,
		Data:     raw,
	}, nil
}

func (p *TaskPayload) Decode(v any) error {
	return sonic.Unmarshal(p.Data, v)
}

// TaskHandler 任务处理器接口
type TaskHandler interface {
	HandleTask(ctx context.Context, payload *TaskPayload) error
}

// TaskHandlerFunc 任务处理器函数类型
type TaskHandlerFunc func(ctx context.Context, payload *TaskPayload) error

func (f TaskHandlerFunc) HandleTask(ctx context.Context, payload *TaskPayload) error {
	return f(ctx, payload)
}

// TaskQueue 基于 asynq 的分布式任务队列
type TaskQueue struct {
	client   *asynq.Client
	server   *asynq.Server
	mux      *asynq.ServeMux
	conf     Conf
	redisOpt asynq.RedisConnOpt
}

// NewTaskQueue 复用已有的 Redis 客户端创建任务队列
func NewTaskQueue(conf Conf, redisClient redis.UniversalClient) (*TaskQueue, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	conf.SetDefaults()
	redisOpt := &redisConnOptWrapper{client: redisClient}

	var logLevel asynq.LogLevel
	if err := logLevel.Set(conf.LogLevel); err != nil {
		log.Warnw("invalid log level, using default info", "logLevel", conf.LogLevel, "error", err)
		logLevel = asynq.InfoLevel
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     conf.Concurrency,
		StrictPriority:  conf.StrictPriority,
		Queues:          conf.Queues,
		Logger:          &asynqLoggerAdapter{},
		LogLevel:        logLevel,
		RetryDelayFunc:  asynq.DefaultRetryDelayFunc,
		ShutdownTimeout: time.Duration(conf.ShutdownTimeout) * time.Second,
	})

	q := &TaskQueue{
		client:   asynq.NewClient(redisOpt),
		server:   server,
		mux:      asynq.NewServeMux(),
		conf:     conf,
		redisOpt: redisOpt,
	}
	log.Infow("asynq task queue created", "concurrency", conf.Concurrency, "queues", conf.Queues)
	return q, nil
}

// RegisterHandler 注册任务处理器
func (q *TaskQueue) RegisterHandler(taskType string, handler TaskHandler) {
	q.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		var payload TaskPayload
		if err := sonic.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal task payload: %w: %w", err, asynq.SkipRetry)
		}
		log.WithContext(ctx).Debugw("processing task", "task_id", payload.TaskID, "task_type", payload.TaskType)
		return handler.HandleTask(ctx, &payload)
	})
	log.Infow("task handler registered", "task_type", taskType)
}

// Enqueue 入队任务, queueName 为空时使用默认队列
func (q *TaskQueue) Enqueue(ctx context.Context, payload *TaskPayload, queueName string) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal task payload: %w", err)
	}
	if queueName == "" {
		queueName = q.conf.DefaultQueue
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(payload.TaskType, data),
		asynq.Queue(queueName),
		asynq.MaxRetry(q.conf.MaxRetry),
		asynq.TaskID(payload.TaskID),
	)
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	log.WithContext(ctx).Debugw("task enqueued",
		"task_id", payload.TaskID,
		"task_type", payload.TaskType,
		"queue", queueName,
		"asynq_task_id", info.ID,
	)
	return nil
}

// Start 启动任务队列服务器, 不阻塞
func (q *TaskQueue) Start() error {
	log.Info("starting task queue server")
	return q.server.Start(q.mux)
}

// Shutdown 关闭任务队列服务器和客户端
func (q *TaskQueue) Shutdown() {
	log.Info("shutting down task queue server")
	q.server.Shutdown()
	if err := q.client.Close(); err != nil {
		log.Warnw("error closing asynq client", "error", err)
	}
}

// Inspector 用于采集队列指标
func (q *TaskQueue) Inspector() *asynq.Inspector {
	return asynq.NewInspector(q.redisOpt)
}

func (q *TaskQueue) Conf() Conf {
	return q.conf
}

// redisConnOptWrapper 包装已有的 Redis 客户端实现 RedisConnOpt 接口
type redisConnOptWrapper struct {
	client redis.UniversalClient
}

func (r *redisConnOptWrapper) MakeRedisClient() interface{} {
	return r.client
}
