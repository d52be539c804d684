// Package tui is the terminal client: a login screen in front of the mirrored
// payment resources and the local audit log.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scoutcursos/cursos/internal/browser"
	"github.com/scoutcursos/cursos/internal/gateway"
	"github.com/scoutcursos/cursos/internal/session"
	"github.com/scoutcursos/cursos/pkg/domain"
)

// Session is the part of the session manager the UI drives.
type Session interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Logout(reason session.Reason)
	Touch()
	Current() (*domain.Session, error)
	AuditLog() []domain.AuditEntry
}

// Gateway is the part of the offline gateway the UI drives.
type Gateway interface {
	List(ctx context.Context, res domain.Resource) []domain.Record
	Create(ctx context.Context, res domain.Resource, fields domain.Fields) (domain.Record, error)
	Update(ctx context.Context, res domain.Resource, id int64, fields domain.Fields) (domain.Record, error)
	Delete(ctx context.Context, res domain.Resource, id int64)
	SyncOffline(ctx context.Context) (gateway.SyncReport, error)
	Pending(ctx context.Context) (map[string]int, error)
}

// RedirectMsg asks the UI to navigate, e.g. to "/login?reason=timeout" after
// an inactivity logout. Send it with tea.Program.Send.
type RedirectMsg struct {
	Path string
}

// sessionTickMsg re-checks token expiry while a protected view is open.
type sessionTickMsg time.Time

const sessionCheckInterval = 30 * time.Second

func sessionTickCmd() tea.Cmd {
	return tea.Tick(sessionCheckInterval, func(t time.Time) tea.Msg {
		return sessionTickMsg(t)
	})
}

const (
	noticeTimeout = "Your session ended after a period of inactivity. Sign in again."
	noticeExpired = "Your session has expired. Sign in again."
)

type view int

const (
	viewLogin view = iota
	viewRecords
	viewAudit
)

// Options configures the App.
type Options struct {
	Resources []domain.Resource // defaults to domain.MirroredResources
	WebURL    string
	Version   string
}

// App is the root Bubbletea model.
type App struct {
	session    Session
	view       view
	login      loginModel
	records    recordsModel
	audit      auditModel
	user       *domain.User
	helpItems  []helpItem
	helpOpen   bool
	helpCursor int
	version    string
	width      int
	height     int
	frame      int
}

// NewApp creates the TUI. It opens on the records view when a live session
// already exists and on the login form otherwise.
func NewApp(s Session, g Gateway, opts Options) App {
	if opts.Resources == nil {
		opts.Resources = domain.MirroredResources
	}
	a := App{
		session:   s,
		login:     newLoginModel(s),
		records:   newRecordsModel(g, opts.Resources),
		audit:     newAuditModel(s),
		helpItems: helpItemsFor(opts.WebURL),
		version:   opts.Version,
	}
	if cur, err := s.Current(); err == nil {
		user := cur.User
		a.user = &user
		a.view = viewRecords
	}
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{shimmerTickCmd(), sessionTickCmd()}
	if a.view == viewRecords {
		cmds = append(cmds, a.records.Init())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + user line(1) + help(1)
		a.records, _ = a.records.Update(tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4})
		return a, nil

	case shimmerTickMsg:
		a.frame++
		a.login, _ = a.login.Update(msg)
		a.records, _ = a.records.Update(msg)
		return a, shimmerTickCmd()

	case sessionTickMsg:
		if a.view != viewLogin {
			if _, err := a.session.Current(); err != nil {
				a.toLogin(noticeExpired)
			}
		}
		return a, sessionTickCmd()

	case RedirectMsg:
		notice := ""
		if strings.Contains(msg.Path, "reason=timeout") {
			notice = noticeTimeout
		}
		a.toLogin(notice)
		return a, nil

	case loginDoneMsg:
		a.login, _ = a.login.Update(msg)
		if msg.err != nil {
			return a, nil
		}
		a.user = msg.user
		a.view = viewRecords
		return a, a.records.Init()

	case tea.MouseMsg:
		a.session.Touch()
		return a, nil

	case tea.KeyMsg:
		a.session.Touch()
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.helpOpen {
			return a.updateHelp(msg)
		}
		if a.view != viewLogin && !a.isEditing() {
			if model, cmd, handled := a.globalKeys(msg); handled {
				return model, cmd
			}
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewRecords:
		a.records, cmd = a.records.Update(msg)
	case viewAudit:
		a.audit, cmd = a.audit.Update(msg)
	}
	return a, cmd
}

func (a App) globalKeys(msg tea.KeyMsg) (App, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		return a, tea.Quit, true
	case "h", "?":
		a.helpOpen = true
		a.helpCursor = 0
		return a, nil, true
	case "o":
		a.session.Logout(session.ReasonUser)
		a.toLogin("")
		return a, nil, true
	case "a":
		if a.view != viewAudit {
			a.view = viewAudit
			a.audit = a.audit.refresh()
		}
		return a, nil, true
	case "esc":
		if a.view == viewAudit {
			a.view = viewRecords
			return a, a.records.Init(), true
		}
	}
	return a, nil, false
}

func (a App) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "?", "esc":
		a.helpOpen = false
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.helpCursor < len(a.helpItems)-1 {
			a.helpCursor++
		}
	case "k", "up":
		if a.helpCursor > 0 {
			a.helpCursor--
		}
	case "enter":
		if item := a.helpItems[a.helpCursor]; item.url != "" {
			browser.Open(item.url) //nolint:errcheck // best-effort browser open
		}
	}
	return a, nil
}

// toLogin drops whatever protected view was open and shows the login form.
func (a *App) toLogin(notice string) {
	a.view = viewLogin
	a.user = nil
	a.helpOpen = false
	a.login = a.login.withNotice(notice)
	a.records.records = nil
	a.records.composing = false
}

func (a App) isEditing() bool {
	return a.view == viewRecords && a.records.composing
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	logoPad := max((a.width-lipgloss.Width(logo))/2, 0)
	header := strings.Repeat(" ", logoPad) + logo + "\n"

	userLine := " " + dimStyle.Render("not signed in")
	if a.user != nil {
		userLine = " " + accentStyle.Render("●") + " " + normalStyle.Render(a.user.DisplayName())
		if a.user.IsStaff {
			userLine += " " + metaStyle.Render("staff")
		}
	}

	var body, help string
	switch a.view {
	case viewLogin:
		body = a.login.View()
		help = " " + helpEntry("tab", "next") + "  " + helpEntry("enter", "sign in") + "  " + helpEntry("ctrl+c", "quit")
	case viewRecords:
		body = a.records.View()
		help = " " + a.records.helpKeys()
	case viewAudit:
		body = a.audit.View()
		help = " " + a.audit.helpKeys()
	}

	if a.helpOpen {
		body = helpView(a.helpItems, a.helpCursor, a.version)
		help = " " + helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("esc", "close")
	}

	chrome := 4
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s", header, userLine, body, help)
}
