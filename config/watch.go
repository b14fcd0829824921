package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"hft-engine-go/infrastructure/logger"
)

// Watcher 监听配置文件变化。风控参数在引擎生命周期内只读，
// 因此变更不会被应用到运行中的引擎：新文件通过校验则提示需要重启，
// 校验失败则告警。OnValid 供外部记录或触发受控重启。
type Watcher struct {
	Path     string
	Cooldown time.Duration // 去抖：编辑器保存往往触发多个事件
	Logger   *logger.Logger
	OnValid  func(AppConfig)

	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	lastReload time.Time
	done       chan struct{}
}

// NewWatcher 创建watcher。
func NewWatcher(path string, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		Path:     path,
		Cooldown: 2 * time.Second,
		Logger:   log,
		watcher:  fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start 启动监听goroutine。
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.Path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	go w.run(ctx)
	return nil
}

// Close 停止监听。
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	select {
	case <-w.done:
	case <-time.After(time.Second):
	}
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.handleChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.Logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleChange() {
	w.mu.Lock()
	if time.Since(w.lastReload) < w.Cooldown {
		w.mu.Unlock()
		return
	}
	w.lastReload = time.Now()
	w.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(w.Path)
	if err != nil {
		w.Logger.Warn("config file changed but invalid, keeping current config",
			zap.String("path", w.Path),
			zap.Error(err))
		return
	}

	w.Logger.Info("config file changed, restart required to apply",
		zap.String("path", w.Path))
	if w.OnValid != nil {
		w.OnValid(cfg)
	}
}
