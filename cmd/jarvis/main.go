package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/cesargomez89/jarvis/internal/app"
	"github.com/cesargomez89/jarvis/internal/config"
	"github.com/cesargomez89/jarvis/internal/domain"
	"github.com/cesargomez89/jarvis/internal/library"
	"github.com/cesargomez89/jarvis/internal/logger"
	"github.com/cesargomez89/jarvis/internal/store"
	"github.com/cesargomez89/jarvis/internal/ytdlp"
)

type AddCmd struct {
	URLs []string `arg:"positional,required" help:"URLs to enqueue"`
}

type RunCmd struct{}

type ClearHistoryCmd struct{}

type ListCmd struct {
	History bool `arg:"--history" help:"list finished items instead of the queue"`
}

type IDCmd struct {
	ID string `arg:"positional,required" help:"item id"`
}

type ImportCmd struct {
	Folder string `arg:"positional" help:"folder to scan, defaults to the downloads folder"`
}

type RootCmd struct {
	Path string `arg:"positional" help:"new root folder; prints the current one when omitted"`
}

type Args struct {
	Add          *AddCmd          `arg:"subcommand:add" help:"enqueue one or more URLs"`
	Run          *RunCmd          `arg:"subcommand:run" help:"download everything pending"`
	List         *ListCmd         `arg:"subcommand:list" help:"show the queue or history"`
	Remove       *IDCmd           `arg:"subcommand:remove" help:"remove an item from the queue"`
	Delete       *IDCmd           `arg:"subcommand:delete" help:"delete an item and its files"`
	Redownload   *IDCmd           `arg:"subcommand:redownload" help:"requeue a finished item"`
	ClearHistory *ClearHistoryCmd `arg:"subcommand:clear-history" help:"forget every finished item"`
	Import       *ImportCmd       `arg:"subcommand:import" help:"add audio files already on disk to history"`
	Root         *RootCmd         `arg:"subcommand:root" help:"show or change the root folder"`
}

func (Args) Description() string {
	return "jarvis downloads audio with yt-dlp into a managed folder"
}

func main() {
	var args Args
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	cfg := config.Load()
	if _, ok := os.LookupEnv("LOG_FORMAT"); !ok {
		cfg.LogFormat = defaultLogFormat()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	appLogger := logger.New(logger.Config{
		Output: os.Stderr,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}

	manager := app.NewManager(app.Options{
		Store:       store.NewCollections(db),
		Runner:      ytdlp.NewRunner(cfg.YTDLPPath, appLogger),
		Settings:    store.NewSettingsRepo(db),
		Scanner:     library.NewScanner(appLogger),
		Logger:      appLogger,
		RootFolder:  cfg.DownloadRoot,
		AudioFormat: cfg.AudioFormat,
	})

	err = dispatch(&args, manager)
	manager.Close()
	db.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// defaultLogFormat keeps logs readable on a terminal and machine friendly
// when piped.
func defaultLogFormat() string {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return "text"
	}
	return "json"
}

func dispatch(args *Args, m *app.Manager) error {
	switch {
	case args.Add != nil:
		added, err := m.Enqueue(args.Add.URLs)
		if err != nil {
			return err
		}
		if len(added) == 0 {
			return errors.New("no valid URL given")
		}
		for _, item := range added {
			fmt.Printf("queued %s  %s\n", item.ID, item.URL)
		}
		if skipped := len(args.Add.URLs) - len(added); skipped > 0 {
			fmt.Printf("ignored %d invalid %s\n", skipped, plural(skipped, "entry", "entries"))
		}
	case args.Run != nil:
		return run(m)
	case args.List != nil:
		items := m.Queue()
		if args.List.History {
			items = m.History()
		}
		printItems(items)
	case args.Remove != nil:
		return m.RemoveFromQueue(args.Remove.ID)
	case args.Delete != nil:
		return m.DeleteFile(args.Delete.ID)
	case args.Redownload != nil:
		return m.Redownload(args.Redownload.ID)
	case args.ClearHistory != nil:
		return m.ClearHistory()
	case args.Import != nil:
		res, err := m.ImportExisting(context.Background(), args.Import.Folder)
		if err != nil {
			return err
		}
		fmt.Printf("imported %s, %s already known\n",
			humanize.Comma(int64(res.Imported)), humanize.Comma(int64(res.Duplicates)))
	case args.Root != nil:
		if args.Root.Path == "" {
			fmt.Println(m.RootFolder())
			return nil
		}
		root, err := filepath.Abs(args.Root.Path)
		if err != nil {
			return err
		}
		return m.SetRootFolder(root)
	}
	return nil
}

// run walks the queue until it is empty or the process is interrupted.
func run(m *app.Manager) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	last := make(map[string]domain.Status)
	m.SetUpdateCallback(func(item *domain.DownloadItem) {
		if tty && item.Status == domain.StatusRunning {
			fmt.Printf("\r\033[K%6s  %s", humanize.FormatFloat("#,###.#", item.Progress*100)+"%", item.DisplayTitle())
		}
		if last[item.ID] == item.Status {
			return
		}
		last[item.ID] = item.Status
		if tty {
			fmt.Print("\r\033[K")
		}
		switch item.Status {
		case domain.StatusRunning:
			fmt.Printf("started   %s\n", item.URL)
		case domain.StatusFailed:
			fmt.Printf("failed    %s: %s\n", item.DisplayTitle(), item.ErrorMessage)
		case domain.StatusPending:
		default:
			fmt.Printf("%-9s %s\n", item.Status, item.DisplayTitle())
		}
	})

	if !m.Start() {
		return errors.New("queue is already running")
	}
	finished := make(chan struct{})
	go func() {
		m.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		fmt.Println()
		return errors.New("interrupted, the current item will restart on the next run")
	}
}

func printItems(items []*domain.DownloadItem) {
	if len(items) == 0 {
		fmt.Println("nothing here")
		return
	}
	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tSOURCE\tTITLE\tWHEN")
	for _, item := range items {
		when := item.CreatedAt
		if !item.CompletedAt.IsZero() {
			when = item.CompletedAt
		}
		fmt.Fprintf(w, "%s\t%s\t%s%%\t%s\t%s\t%s\n",
			item.ID, item.Status,
			humanize.FormatFloat("#,###.#", item.Progress*100),
			item.Source, item.DisplayTitle(),
			humanize.RelTime(when, now, "ago", "from now"))
	}
	w.Flush()
	fmt.Printf("%s %s\n", humanize.Comma(int64(len(items))), plural(len(items), "item", "items"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
