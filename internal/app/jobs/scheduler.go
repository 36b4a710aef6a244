package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DoorbellRouter 将超时的门铃会话转给前台
type DoorbellRouter interface {
	RouteTimedOutCalls(now time.Time) (int, error)
}

// Scheduler 后台定时任务
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
	now  func() time.Time
}

// cronLogger 适配 cron.Logger 到 zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler 创建调度器；任务 panic 会被恢复并记录，上一轮未结束时跳过本轮
func NewScheduler(log *zap.Logger) *Scheduler {
	logAdapter := cronLogger{sugar: log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logAdapter),
			cron.WithChain(cron.Recover(logAdapter), cron.SkipIfStillRunning(logAdapter)),
		),
		log: log,
		now: time.Now,
	}
}

// AddDoorbellScan 按 spec 扫描超时的门铃呼叫，例如 "@every 10s"
func (s *Scheduler) AddDoorbellScan(spec string, router DoorbellRouter) error {
	if _, err := s.cron.AddFunc(spec, func() { s.scanDoorbells(router) }); err != nil {
		return fmt.Errorf("注册门铃超时扫描失败 (%s): %w", spec, err)
	}
	s.log.Info("门铃超时扫描已注册", zap.String("spec", spec))
	return nil
}

func (s *Scheduler) scanDoorbells(router DoorbellRouter) {
	routed, err := router.RouteTimedOutCalls(s.now())
	if err != nil {
		s.log.Error("门铃超时扫描失败", zap.Error(err))
		return
	}
	if routed > 0 {
		s.log.Info("门铃呼叫已转前台", zap.Int("routed", routed))
	}
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
