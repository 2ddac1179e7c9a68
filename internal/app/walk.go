package app

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cesargomez89/jarvis/internal/domain"
	"github.com/cesargomez89/jarvis/internal/logger"
	"github.com/cesargomez89/jarvis/internal/storage"
	"github.com/cesargomez89/jarvis/internal/ytdlp"
)

// activeJob is the item the walk is currently running. trackPct is only
// touched on the loop.
type activeJob struct {
	req      ytdlp.Request
	id       string
	trackPct float64
}

// Start begins walking the queue unless a walk is already active. It reports
// whether a new walk was started.
func (m *Manager) Start() bool {
	var started bool
	err := m.do(func() {
		if m.walkDone != nil || m.ctx.Err() != nil {
			return
		}
		m.walkDone = make(chan struct{})
		started = true
		m.wg.Add(1)
		go m.walk(m.walkDone)
		m.logger.Info("Queue started", "items", len(m.queue))
	})
	return err == nil && started
}

// Wait blocks until the active walk ends. It returns at once when no walk is
// active.
func (m *Manager) Wait() {
	var ch chan struct{}
	if err := m.do(func() { ch = m.walkDone }); err != nil || ch == nil {
		return
	}
	select {
	case <-ch:
	case <-m.done:
	}
}

func (m *Manager) walk(done chan struct{}) {
	defer m.wg.Done()
	defer close(done)

	for {
		var job *activeJob
		if err := m.do(func() { job = m.next() }); err != nil || job == nil {
			return
		}
		m.process(job)
	}
}

// next marks the first Pending item Running and returns it, or ends the walk
// when nothing is left. Runs on the loop.
func (m *Manager) next() *activeJob {
	for _, item := range m.queue {
		if item.Status != domain.StatusPending {
			continue
		}
		item.Status = domain.StatusRunning
		item.Progress = 0
		item.ErrorMessage = ""

		layout := storage.Layout{Root: m.root}
		job := &activeJob{
			id: item.ID,
			req: ytdlp.Request{
				URL:           item.URL,
				Source:        item.Source,
				Destination:   layout.DownloadsDir(),
				ArchivePath:   layout.ArchivePath(),
				AudioFormat:   m.audioFormat,
				IsPlaylist:    item.IsPlaylist(),
				IgnoreArchive: item.IgnoreArchive,
			},
		}
		m.saveQueue()
		m.notify(item)
		return job
	}

	m.walkDone = nil
	m.logger.Info("Queue finished", "history", len(m.history))
	return nil
}

// process runs one item to completion on the walk goroutine.
func (m *Manager) process(job *activeJob) {
	log := m.logger.WithItem(job.id, string(job.req.Source))
	log.Info("Download started", "url", job.req.URL, "destination", job.req.Destination)

	var (
		res *ytdlp.Result
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic while downloading", "panic", r)
				res, err = nil, fmt.Errorf("panic: %v", r)
			}
		}()
		res, err = m.run(job)
	}()

	if errors.Is(m.ctx.Err(), context.Canceled) {
		log.Info("Download interrupted by shutdown")
		return
	}
	_ = m.do(func() { m.finish(job, res, err, log) })
}

func (m *Manager) run(job *activeJob) (*ytdlp.Result, error) {
	if err := storage.EnsureDir(job.req.Destination); err != nil {
		return nil, fmt.Errorf("failed to create download folder: %w", err)
	}
	return m.runner.Run(m.ctx, job.req, func(ev ytdlp.Event) {
		_ = m.do(func() { m.apply(job, ev) })
	})
}

// apply folds one parser event into the running item. Runs on the loop.
func (m *Manager) apply(job *activeJob, ev ytdlp.Event) {
	i := indexOf(m.queue, job.id)
	if i < 0 {
		return
	}
	item := m.queue[i]
	p := item.Playlist()

	switch ev.Kind {
	case ytdlp.EventProgress:
		job.trackPct = clamp01(ev.Progress)
	case ytdlp.EventPlaylistTitle:
		if p != nil && p.Title == "" {
			p.Title = ev.Title
		}
	case ytdlp.EventTotalTracks:
		if p != nil {
			p.TotalTracks = ev.Count
		}
	case ytdlp.EventTrackStarted:
		job.trackPct = 0
		if p != nil {
			p.CurrentTrack = ev.Count
		}
	case ytdlp.EventTrackDownloaded:
		job.trackPct = 0
		if p != nil {
			p.DownloadedTracks++
			p.Files = append(p.Files, ev.Path)
		}
		item.SetFile(ev.Path)
	case ytdlp.EventTrackSkipped:
		job.trackPct = 0
		if p != nil {
			p.SkippedTracks = max(p.SkippedTracks+1, ev.Count)
		}
	}

	var progress float64
	if p != nil {
		progress = playlistProgress(p, job.trackPct)
	} else {
		progress = job.trackPct
		if ev.Kind == ytdlp.EventTrackDownloaded {
			progress = 1
		}
	}
	// Progress never moves backwards within a run.
	item.Progress = math.Max(item.Progress, progress)
	m.notify(item)
}

// playlistProgress is done/total plus the current track's share. It is 0
// until the total is known.
func playlistProgress(p *domain.Playlist, trackPct float64) float64 {
	if p.TotalTracks <= 0 {
		return 0
	}
	done := max(p.CurrentTrack-1, p.DownloadedTracks+p.SkippedTracks)
	total := float64(p.TotalTracks)
	return clamp01(float64(done)/total + trackPct/total)
}

// finish records the outcome, moves the item to history and persists both
// collections. Runs on the loop.
func (m *Manager) finish(job *activeJob, res *ytdlp.Result, runErr error, log *logger.Logger) {
	i := indexOf(m.queue, job.id)
	if i < 0 {
		log.Warn("Finished item no longer queued")
		return
	}
	item := m.queue[i]

	if res != nil {
		item.IgnoreArchive = false
		if p := item.Playlist(); p != nil {
			syncPlaylist(p, res.Summary)
		}
	}

	switch {
	case runErr != nil:
		item.Status = domain.StatusFailed
		item.ErrorMessage = runErr.Error()
	case res.WasDuplicate:
		item.Status = domain.StatusSkipped
	case res.Success:
		item.Status = domain.StatusCompleted
		item.Progress = 1
		if res.ProducedPath != "" {
			item.SetFile(res.ProducedPath)
		}
	default:
		item.Status = domain.StatusFailed
		item.ErrorMessage = res.Stderr
	}
	item.CompletedAt = m.now()

	// History is written first: a crash in between leaves the item in both
	// collections, which startup recovery resolves.
	m.queue = append(m.queue[:i], m.queue[i+1:]...)
	m.history = append(m.history, item)
	m.saveHistory()
	m.saveQueue()
	m.notify(item)

	switch item.Status {
	case domain.StatusFailed:
		log.Warn("Download failed", "error", item.ErrorMessage)
	default:
		log.Info("Download finished", "status", item.Status, "file", item.FilePath)
	}
}

// syncPlaylist takes the final counts from the parser summary, which sees
// every line even when events were missed.
func syncPlaylist(p *domain.Playlist, s ytdlp.Summary) {
	if p.Title == "" {
		p.Title = s.PlaylistTitle
	}
	if s.TotalTracks > 0 {
		p.TotalTracks = s.TotalTracks
	}
	p.DownloadedTracks = s.Downloaded
	p.SkippedTracks = s.Skipped
	p.CurrentTrack = max(p.CurrentTrack, s.CurrentTrack)
	if len(s.Files) > 0 {
		p.Files = append([]string(nil), s.Files...)
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, 1)
}
