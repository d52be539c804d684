package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scoutcursos/cursos/internal/browser"
	"github.com/scoutcursos/cursos/internal/config"
	"github.com/scoutcursos/cursos/internal/devserver"
	"github.com/scoutcursos/cursos/internal/gateway"
	"github.com/scoutcursos/cursos/internal/logging"
	"github.com/scoutcursos/cursos/internal/session"
	"github.com/scoutcursos/cursos/internal/storage"
	"github.com/scoutcursos/cursos/internal/tui"
	"github.com/scoutcursos/cursos/pkg/client"
	"github.com/scoutcursos/cursos/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// Seeded account for the reference backend; override with
// `cursos devserver <email> <password>`.
const (
	devEmail    = "dev@cursos.local"
	devPassword = "cursos123"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Println("cursos " + version)
			return nil
		case "help", "--help", "-h":
			printHelp(os.Stdout)
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		switch args[0] {
		case "sync":
			return runSync(cfg, os.Stdout)
		case "pending":
			return runPending(cfg, os.Stdout)
		case "web":
			if err := browser.Open(cfg.WebURL); err != nil {
				fmt.Println(cfg.WebURL)
			}
			return nil
		case "devserver":
			return runDevServer(cfg, args[1:])
		default:
			return fmt.Errorf("unknown command %q (try `cursos help`)", args[0])
		}
	}
	return runTUI(cfg)
}

func runTUI(cfg config.Config) error {
	logger, logFile, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close() //nolint:errcheck
	slog.SetDefault(logger)

	mirror, err := storage.OpenMirror(cfg.MirrorPath())
	if err != nil {
		return err
	}
	defer mirror.Close() //nolint:errcheck

	// The program is created after the manager, which needs a way to reach it.
	var p *tea.Program
	c := client.New(cfg.APIURL, nil)
	mgr := session.NewManager(storage.NewTransient(), c, session.Options{
		InactivityTimeout: cfg.InactivityTimeout,
		MaxAttempts:       cfg.MaxLoginAttempts,
		LockoutWindow:     cfg.LockoutWindow,
		UserAgent:         "cursos/" + version,
		Logger:            logger,
		Navigate: func(path string) {
			if p != nil {
				p.Send(tui.RedirectMsg{Path: path})
			}
		},
	})
	c.SetTokenSource(mgr)
	defer mgr.Logout(session.ReasonUser)

	gw := gateway.New(c, mirror, gateway.Options{Logger: logger})

	app := tui.NewApp(mgr, gw, tui.Options{WebURL: cfg.WebURL, Version: version})
	p = tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func runSync(cfg config.Config, w io.Writer) error {
	if cfg.Token == "" {
		return errors.New("sync needs an access token in CURSOS_TOKEN")
	}
	logger := logging.NewWriter(os.Stderr, cfg)

	mirror, err := storage.OpenMirror(cfg.MirrorPath())
	if err != nil {
		return err
	}
	defer mirror.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(cfg.APIURL, client.StaticToken(cfg.Token))
	gw := gateway.New(c, mirror, gateway.Options{Logger: logger})
	report, err := gw.SyncOffline(ctx)
	if err != nil {
		return err
	}
	printReport(w, report)
	if failed := sumCounts(report.Failed); failed > 0 {
		return fmt.Errorf("%d records still pending", failed)
	}
	return nil
}

func runPending(cfg config.Config, w io.Writer) error {
	mirror, err := storage.OpenMirror(cfg.MirrorPath())
	if err != nil {
		return err
	}
	defer mirror.Close() //nolint:errcheck

	counts, err := mirror.Counts(context.Background())
	if err != nil {
		return err
	}
	printCounts(w, counts)
	return nil
}

func runDevServer(cfg config.Config, args []string) error {
	email, password := devEmail, devPassword
	if len(args) >= 2 {
		email, password = args[0], args[1]
	}

	logger := logging.NewWriter(os.Stderr, cfg)
	srv := devserver.New(devserver.Options{Logger: logger})
	if _, err := srv.AddUser(domain.User{Email: email, FirstName: "Dev", IsStaff: true}, password); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Shutdown() //nolint:errcheck
	}()

	logger.Info("devserver listening", "addr", cfg.DevServerAddr, "email", email)
	fmt.Printf("reference backend on http://%s (login %s)\n", cfg.DevServerAddr, email)
	return srv.Listen(cfg.DevServerAddr)
}

func printReport(w io.Writer, r gateway.SyncReport) {
	if r.Total() == 0 && sumCounts(r.Failed) == 0 {
		fmt.Fprintln(w, "nothing to sync")
		return
	}
	for _, name := range sortedKeys(r.Synced, r.Failed) {
		fmt.Fprintf(w, "%-24s synced %d", name, r.Synced[name])
		if n := r.Failed[name]; n > 0 {
			fmt.Fprintf(w, ", %d pending", n)
		}
		fmt.Fprintln(w)
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	if sumCounts(counts) == 0 {
		fmt.Fprintln(w, "no pending records")
		return
	}
	for _, name := range sortedKeys(counts) {
		if counts[name] > 0 {
			fmt.Fprintf(w, "%-24s %d\n", name, counts[name])
		}
	}
}

func sumCounts(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func sortedKeys(maps ...map[string]int) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func printHelp(w io.Writer) {
	cmds := [][2]string{
		{"cursos", "open the terminal client"},
		{"cursos sync", "push offline records to the backend (needs CURSOS_TOKEN)"},
		{"cursos pending", "show records waiting in the local mirror"},
		{"cursos web", "open the web app in your browser"},
		{"cursos devserver", "run the reference backend for local testing"},
		{"cursos version", "print the version"},
		{"cursos help", "show this help"},
	}
	var b strings.Builder
	b.WriteString("\n  cursos " + version + "\n\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "  %-18s %s\n", c[0], c[1])
	}
	b.WriteString("\n  env: CURSOS_API_URL, CURSOS_WEB_URL, CURSOS_DATA_DIR, CURSOS_DEBUG\n\n")
	fmt.Fprint(w, b.String())
}
