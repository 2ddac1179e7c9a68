package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/cesargomez89/jarvis/internal/config"
	"github.com/cesargomez89/jarvis/internal/constants"
	"github.com/cesargomez89/jarvis/internal/domain"
	"github.com/cesargomez89/jarvis/internal/logger"
	"github.com/cesargomez89/jarvis/internal/storage"
	"github.com/cesargomez89/jarvis/internal/ytdlp"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrItemRunning       = errors.New("item is currently downloading")
	ErrNotRedownloadable = errors.New("imported items cannot be redownloaded")
	ErrClosed            = errors.New("manager is closed")
	ErrImportUnavailable = errors.New("import is not configured")
)

// Persister stores the queue and history collections.
type Persister interface {
	LoadQueue() ([]*domain.DownloadItem, error)
	SaveQueue(items []*domain.DownloadItem) error
	LoadHistory() ([]*domain.DownloadItem, error)
	SaveHistory(items []*domain.DownloadItem) error
}

// Runner executes a single yt-dlp request.
type Runner interface {
	Run(ctx context.Context, req ytdlp.Request, onEvent func(ytdlp.Event)) (*ytdlp.Result, error)
}

// Settings stores scalar preferences such as the root folder.
type Settings interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Scanner lists audio files already on disk as importable items.
type Scanner interface {
	Scan(ctx context.Context, folder string) ([]*domain.DownloadItem, error)
}

type Options struct {
	Store       Persister
	Runner      Runner
	Settings    Settings
	Scanner     Scanner
	Logger      *logger.Logger
	Now         func() time.Time
	RootFolder  string
	AudioFormat string
}

// UpdateFunc receives a snapshot of an item after it changes. It runs on the
// Manager's goroutine and must not call back into the Manager.
type UpdateFunc func(item *domain.DownloadItem)

// Manager owns the download queue and history. All state lives on a single
// goroutine; public methods hand it closures and wait for them to run.
type Manager struct {
	store       Persister
	runner      Runner
	settings    Settings
	scanner     Scanner
	ctx         context.Context
	logger      *logger.Logger
	now         func() time.Time
	cancel      context.CancelFunc
	cmds        chan func()
	done        chan struct{}
	onUpdate    UpdateFunc
	walkDone    chan struct{}
	root        string
	audioFormat string
	queue       []*domain.DownloadItem
	history     []*domain.DownloadItem
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewManager loads the persisted collections, recovers items left over from
// an earlier process and starts the owning goroutine.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	format := opts.AudioFormat
	if format == "" {
		format = constants.DefaultAudioFormat
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:       opts.Store,
		runner:      opts.Runner,
		settings:    opts.Settings,
		scanner:     opts.Scanner,
		logger:      log.WithComponent("manager"),
		now:         now,
		ctx:         ctx,
		cancel:      cancel,
		cmds:        make(chan func()),
		done:        make(chan struct{}),
		root:        config.AbsPath(opts.RootFolder),
		audioFormat: format,
	}

	m.loadRoot()
	m.load()
	m.recoverQueue()

	go m.loop()
	return m
}

func (m *Manager) loadRoot() {
	if m.settings == nil {
		return
	}
	root, err := m.settings.Get(constants.SettingRootFolder)
	if err != nil {
		m.logger.Error("Failed to load root folder", "error", err)
		return
	}
	if root != "" {
		m.root = config.AbsPath(root)
	}
}

func (m *Manager) load() {
	queue, err := m.store.LoadQueue()
	if err != nil {
		m.logger.Error("Failed to load queue, starting empty", "error", err)
	}
	history, err := m.store.LoadHistory()
	if err != nil {
		m.logger.Error("Failed to load history, starting empty", "error", err)
	}
	m.queue = queue
	m.history = history
}

// recoverQueue moves terminal items out of the queue and resets items whose
// process died mid-run. An item found in both collections was caught between
// two writes: a terminal or Running queue copy means finish had already
// saved the history, a Pending copy means Redownload had already saved the
// queue.
func (m *Manager) recoverQueue() {
	var moved, reset, dropped, unarchived int
	kept := m.queue[:0]
	for _, item := range m.queue {
		h := indexOf(m.history, item.ID)
		switch {
		case item.Status.IsTerminal():
			if item.CompletedAt.IsZero() {
				item.CompletedAt = m.now()
			}
			if h >= 0 {
				m.history[h] = item
			} else {
				m.history = append(m.history, item)
			}
			moved++
		case item.Status == domain.StatusRunning && h >= 0:
			dropped++
		case item.Status == domain.StatusRunning:
			item.Status = domain.StatusPending
			item.Progress = 0
			kept = append(kept, item)
			reset++
		default:
			if h >= 0 {
				m.history = slices.Delete(m.history, h, h+1)
				unarchived++
			}
			kept = append(kept, item)
		}
	}
	clear(m.queue[len(kept):])
	m.queue = kept

	if moved > 0 || unarchived > 0 {
		m.saveHistory()
	}
	if moved > 0 || reset > 0 || dropped > 0 {
		m.saveQueue()
	}
	if moved > 0 || reset > 0 || dropped > 0 || unarchived > 0 {
		m.logger.Info("Recovered queue",
			"moved_to_history", moved,
			"reset_to_pending", reset,
			"already_finished", dropped,
			"requeued_from_history", unarchived)
	}
}

func (m *Manager) loop() {
	defer close(m.done)
	for {
		select {
		case fn := <-m.cmds:
			fn()
		case <-m.ctx.Done():
			return
		}
	}
}

// do runs fn on the owning goroutine and waits for it to finish.
func (m *Manager) do(fn func()) error {
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		fn()
	}
	select {
	case m.cmds <- cmd:
	case <-m.done:
		return ErrClosed
	}
	<-finished
	return nil
}

// Close stops any running download and the owning goroutine. Items that were
// running stay persisted as Running and are reset on the next start.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.logger.Info("Stopping manager")
		m.cancel()
		m.wg.Wait()
		<-m.done
	})
	return nil
}

func (m *Manager) SetUpdateCallback(fn UpdateFunc) {
	_ = m.do(func() { m.onUpdate = fn })
}

// Queue returns a snapshot of the queue in insertion order.
func (m *Manager) Queue() []*domain.DownloadItem {
	var out []*domain.DownloadItem
	_ = m.do(func() { out = cloneAll(m.queue) })
	return out
}

// History returns a snapshot of the history in completion order.
func (m *Manager) History() []*domain.DownloadItem {
	var out []*domain.DownloadItem
	_ = m.do(func() { out = cloneAll(m.history) })
	return out
}

// Get returns a snapshot of the item with id from either collection.
func (m *Manager) Get(id string) (*domain.DownloadItem, error) {
	var out *domain.DownloadItem
	if err := m.do(func() {
		if item, _, _ := m.find(id); item != nil {
			out = item.Clone()
		}
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrItemNotFound
	}
	return out, nil
}

// Running reports whether a queue walk is active.
func (m *Manager) Running() bool {
	var running bool
	_ = m.do(func() { running = m.walkDone != nil })
	return running
}

func (m *Manager) RootFolder() string {
	var root string
	_ = m.do(func() { root = m.root })
	return root
}

// SetRootFolder changes where future downloads are written and persists the
// choice. An item already running keeps its destination.
func (m *Manager) SetRootFolder(path string) error {
	path = config.AbsPath(path)
	return m.doErr(func() error {
		if m.settings != nil {
			if err := m.settings.Set(constants.SettingRootFolder, path); err != nil {
				return err
			}
		}
		m.root = path
		m.logger.Info("Root folder changed", "root", path)
		return nil
	})
}

// Layout returns the folder layout under the current root.
func (m *Manager) Layout() storage.Layout {
	return storage.Layout{Root: m.RootFolder()}
}

func (m *Manager) doErr(fn func() error) error {
	var err error
	if doErr := m.do(func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

// find locates id in the queue first, then the history. It must run on the
// owning goroutine.
func (m *Manager) find(id string) (*domain.DownloadItem, int, bool) {
	if i := indexOf(m.queue, id); i >= 0 {
		return m.queue[i], i, true
	}
	if i := indexOf(m.history, id); i >= 0 {
		return m.history[i], i, false
	}
	return nil, -1, false
}

func (m *Manager) notify(item *domain.DownloadItem) {
	if m.onUpdate != nil {
		m.onUpdate(item.Clone())
	}
}

func (m *Manager) saveQueue() {
	if err := m.store.SaveQueue(m.queue); err != nil {
		m.logger.Error("Failed to persist queue", "error", err)
	}
}

func (m *Manager) saveHistory() {
	if err := m.store.SaveHistory(m.history); err != nil {
		m.logger.Error("Failed to persist history", "error", err)
	}
}

func indexOf(items []*domain.DownloadItem, id string) int {
	return slices.IndexFunc(items, func(item *domain.DownloadItem) bool {
		return item.ID == id
	})
}

func cloneAll(items []*domain.DownloadItem) []*domain.DownloadItem {
	out := make([]*domain.DownloadItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
