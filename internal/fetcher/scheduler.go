package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperschedule/hyperschedule-sub000/internal/linker"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	apperrors "github.com/hyperschedule/hyperschedule-sub000/pkg/errors"
)

// Fetcher 抓取单个数据源，由 *Client 实现
type Fetcher interface {
	Fetch(ctx context.Context, src Source, term model.TermIdentifier) (string, error)
}

// Catalog 链接与入库，由 service.CatalogService 实现。
// Persist 须为按学期的原子整体替换，多个并发 Persist 以最后完成者为准
type Catalog interface {
	Link(files linker.Files, term model.TermIdentifier) ([]model.Section, error)
	Persist(ctx context.Context, term model.TermIdentifier, sections []model.Section) error
}

// StatusRecorder 可选的抓取状态上报（例如写入 Redis）
type StatusRecorder interface {
	RecordFetch(ctx context.Context, status SourceStatus) error
}

// State 单个数据源任务的状态
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateRelinking  State = "relinking"
	StatePersisting State = "persisting"
)

// SourceStatus 数据源运行状态
type SourceStatus struct {
	Name        string        `json:"name"`
	State       State         `json:"state"`
	Interval    time.Duration `json:"interval"`
	LastSuccess *time.Time    `json:"last_success,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	Runs        int           `json:"runs"`
	Failures    int           `json:"failures"`
}

// fetchAllLimit 首次全量抓取的并发数
const fetchAllLimit = 4

// Scheduler 每个数据源一个独立的轮询任务。
// 停止由 ctx 取消触发，只在轮次边界检查；进行中的抓取与入库不会被打断
type Scheduler struct {
	sources  []Source
	term     model.TermIdentifier
	fetcher  Fetcher
	store    *FileStore
	cache    *Cache
	catalog  Catalog
	recorder StatusRecorder
	logger   *zap.Logger

	wg      sync.WaitGroup
	pending atomic.Int64
	idle    chan struct{}

	mu     sync.Mutex
	status map[string]*SourceStatus
}

// NewScheduler 创建调度器
func NewScheduler(
	sources []Source,
	term model.TermIdentifier,
	fetcher Fetcher,
	store *FileStore,
	catalog Catalog,
	logger *zap.Logger,
) *Scheduler {
	status := make(map[string]*SourceStatus, len(sources))
	for _, src := range sources {
		status[src.Name] = &SourceStatus{Name: src.Name, State: StateIdle, Interval: src.Interval}
	}
	return &Scheduler{
		sources: sources,
		term:    term,
		fetcher: fetcher,
		store:   store,
		cache:   NewCache(),
		catalog: catalog,
		logger:  logger,
		idle:    make(chan struct{}, 1),
		status:  status,
	}
}

// WithRecorder 设置抓取状态上报
func (s *Scheduler) WithRecorder(r StatusRecorder) *Scheduler {
	s.recorder = r
	return s
}

// Pending 进行中的入库操作数
func (s *Scheduler) Pending() int64 {
	return s.pending.Load()
}

// Status 各数据源状态，顺序与数据源列表一致
func (s *Scheduler) Status() []SourceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SourceStatus, 0, len(s.sources))
	for _, src := range s.sources {
		st := *s.status[src.Name]
		if st.LastSuccess != nil {
			t := *st.LastSuccess
			st.LastSuccess = &t
		}
		out = append(out, st)
	}
	return out
}

// Run 启动调度：先完成启动加载，再为每个数据源启动轮询任务。
// ctx 取消后先等所有轮询任务退出，再等 pending 归零（进行中的入库全部完成）才返回
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Bootstrap(ctx); err != nil {
		return err
	}

	for i, src := range s.sources {
		s.wg.Add(1)
		go s.loop(ctx, src)
		s.logger.Info("已调度数据源",
			zap.String("source", src.Name),
			zap.Duration("interval", src.Interval),
			zap.Int("scheduled", i+1),
			zap.Int("total", len(s.sources)),
		)
	}

	<-ctx.Done()
	s.logger.Info("收到停止信号，等待进行中的任务完成", zap.Int64("pending", s.pending.Load()))
	s.wg.Wait()
	s.waitIdle()
	s.logger.Info("调度器已停止")
	return nil
}

// Bootstrap 从磁盘加载全部缓存。首次运行（缓存缺失）时同步全量抓取，
// 然后做一次完整的链接与入库，保证第一次入库的目录是完整的
func (s *Scheduler) Bootstrap(ctx context.Context) error {
	s.logger.Info("初始化内存缓存", zap.String("term", s.term.String()))

	files, err := s.store.LoadAll(s.sources, s.term)
	if err == nil {
		s.cache.Replace(files)
		return nil
	}
	if !errors.Is(err, apperrors.ErrCacheMissing) {
		return fmt.Errorf("加载本地缓存失败: %w", err)
	}

	s.logger.Info("本地缓存不完整，全量抓取", zap.Error(err))
	if err := s.FetchAll(ctx); err != nil {
		s.logger.Warn("全量抓取存在失败的数据源", zap.Error(err))
	}
	files, err = s.store.LoadAll(s.sources, s.term)
	if err != nil {
		return fmt.Errorf("全量抓取后仍无法加载缓存: %w", err)
	}
	s.cache.Replace(files)

	sections, err := s.catalog.Link(s.cache.Snapshot(), s.term)
	if err != nil {
		return fmt.Errorf("初始链接失败: %w", err)
	}
	s.beginPersist()
	defer s.endPersist()
	if err := s.catalog.Persist(context.WithoutCancel(ctx), s.term, sections); err != nil {
		return fmt.Errorf("初始入库失败: %w", err)
	}
	return nil
}

// FetchAll 并发抓取全部数据源并写入磁盘。单个失败不影响其余，返回全部失败的合并错误
func (s *Scheduler) FetchAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(fetchAllLimit)

	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			if _, err := s.fetchAndSave(ctx, src); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (s *Scheduler) fetchAndSave(ctx context.Context, src Source) (string, error) {
	start := time.Now()
	s.logger.Info("发送请求", zap.String("source", src.Name))

	content, err := s.fetcher.Fetch(ctx, src, s.term)
	if err != nil {
		return "", err
	}
	if err := s.store.Save(src, s.term, content); err != nil {
		// 内存数据仍然有效，磁盘写入失败只告警
		s.logger.Error("写入磁盘缓存失败", zap.String("source", src.Name), zap.Error(err))
	}
	s.logger.Info("抓取完成",
		zap.String("source", src.Name), zap.Duration("elapsed", time.Since(start)))
	return content, nil
}

// loop 先等待一个间隔再抓取，启动时不会立即冲击上游
func (s *Scheduler) loop(ctx context.Context, src Source) {
	defer s.wg.Done()

	timer := time.NewTimer(src.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("数据源任务已取消", zap.String("source", src.Name))
			return
		case <-timer.C:
		}

		s.runCycle(context.WithoutCancel(ctx), ctx.Done(), src)
		timer.Reset(src.Interval)
	}
}

// runCycle Idle → Fetching → Relinking → Persisting → Idle，任一步失败记录后回到 Idle。
// 入库在独立的 goroutine 中执行并计入 pending；收到 stop 后本任务不再等待入库，
// 由 Run 通过 pending 计数等待其完成
func (s *Scheduler) runCycle(ctx context.Context, stop <-chan struct{}, src Source) {
	cycleID := uuid.NewString()
	log := s.logger.With(zap.String("source", src.Name), zap.String("cycle", cycleID))

	s.setState(src.Name, StateFetching)
	content, err := s.fetchAndSave(ctx, src)
	if err != nil {
		s.fail(ctx, src.Name, log, "抓取失败", err)
		return
	}
	s.cache.Set(src.Name, content)

	s.setState(src.Name, StateRelinking)
	sections, err := s.catalog.Link(s.cache.Snapshot(), s.term)
	if err != nil {
		s.fail(ctx, src.Name, log, "链接失败，沿用上一轮结果", err)
		return
	}

	s.setState(src.Name, StatePersisting)
	s.beginPersist()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer s.endPersist()
		if err := s.catalog.Persist(ctx, s.term, sections); err != nil {
			s.fail(ctx, src.Name, log, "入库失败，等待下一轮", err)
			return
		}
		s.succeed(ctx, src.Name)
		log.Info("本轮完成", zap.Int("sections", len(sections)), zap.Duration("next_in", src.Interval))
	}()

	select {
	case <-finished:
	case <-stop:
		log.Info("收到停止信号，入库在后台继续完成")
	}
}

func (s *Scheduler) beginPersist() {
	s.pending.Add(1)
}

func (s *Scheduler) endPersist() {
	if s.pending.Add(-1) == 0 {
		select {
		case s.idle <- struct{}{}:
		default:
		}
	}
}

// waitIdle 阻塞直到进行中的入库数归零
func (s *Scheduler) waitIdle() {
	for s.pending.Load() > 0 {
		<-s.idle
	}
}

func (s *Scheduler) setState(name string, state State) {
	s.mu.Lock()
	s.status[name].State = state
	s.mu.Unlock()
}

func (s *Scheduler) succeed(ctx context.Context, name string) {
	now := time.Now()
	s.mu.Lock()
	st := s.status[name]
	st.State = StateIdle
	st.LastSuccess = &now
	st.LastError = ""
	st.Runs++
	snapshot := *st
	s.mu.Unlock()
	s.record(ctx, snapshot)
}

func (s *Scheduler) fail(ctx context.Context, name string, log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	s.mu.Lock()
	st := s.status[name]
	st.State = StateIdle
	st.LastError = err.Error()
	st.Runs++
	st.Failures++
	snapshot := *st
	s.mu.Unlock()
	s.record(ctx, snapshot)
}

func (s *Scheduler) record(ctx context.Context, st SourceStatus) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordFetch(ctx, st); err != nil {
		s.logger.Warn("上报抓取状态失败", zap.String("source", st.Name), zap.Error(err))
	}
}
