// Package devserver is an in-memory stand-in for the course-management
// backend: token login plus CRUD on the mirrored payment resources. It can be
// switched into an outage to exercise the offline paths.
package devserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/scoutcursos/cursos/pkg/domain"
)

type Options struct {
	Secret     string        // HMAC key; a fixed development key when empty
	AccessTTL  time.Duration // default 30m
	RefreshTTL time.Duration // default 24h
	Logger     *slog.Logger
	Now        func() time.Time
}

type account struct {
	user         domain.User
	passwordHash []byte
}

// Server holds the in-memory backend state.
type Server struct {
	app    *fiber.App
	tokens *tokenService
	logger *slog.Logger
	down   atomic.Bool

	mu       sync.Mutex
	accounts map[string]*account
	records  map[string]map[int64]domain.Fields
	nextUser int64
	nextID   int64
}

func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = "cursos-devserver"
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 30 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		tokens: &tokenService{
			secret:     []byte(opts.Secret),
			accessTTL:  opts.AccessTTL,
			refreshTTL: opts.RefreshTTL,
			now:        opts.Now,
		},
		logger:   logger.With("component", "devserver"),
		accounts: make(map[string]*account),
		records:  make(map[string]map[int64]domain.Fields),
	}
	s.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	s.registerRoutes()
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

func (s *Server) Shutdown() error { return s.app.Shutdown() }

// Fail switches the simulated outage on or off. While down every request is
// answered with 503.
func (s *Server) Fail(down bool) {
	s.down.Store(down)
	s.logger.Info("outage switched", "down", down)
}

// AddUser registers an account that can log in with password.
func (s *Server) AddUser(u domain.User, password string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("devserver.AddUser: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	u.ID = s.nextUser
	s.accounts[strings.ToLower(u.Email)] = &account{user: u, passwordHash: hash}
	return u, nil
}

func (s *Server) registerRoutes() {
	s.app.Use(s.outage)
	s.app.Post("/auth/login/", s.login)

	for _, res := range domain.MirroredResources {
		g := s.app.Group(strings.TrimSuffix(res.Path, "/"), s.requireBearer)
		g.Get("/", s.list(res))
		g.Post("/", s.create(res))
		g.Put("/:id", s.update(res))
		g.Delete("/:id", s.remove(res))
	}
}

func (s *Server) outage(c *fiber.Ctx) error {
	if s.down.Load() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"detail": "service unavailable"})
	}
	return c.Next()
}

func (s *Server) requireBearer(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	tok, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tok == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Authentication credentials were not provided."})
	}
	claims, err := s.tokens.verifyAccess(tok)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Given token not valid for any token type"})
	}
	c.Locals("user_id", claims.UserID)
	return c.Next()
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *fiber.Ctx) error {
	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	s.mu.Lock()
	acct := s.accounts[strings.ToLower(strings.TrimSpace(input.Email))]
	s.mu.Unlock()

	if acct == nil || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(input.Password)) != nil {
		s.logger.Info("login rejected", "email", input.Email)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "No active account found with the given credentials",
		})
	}

	access, refresh, err := s.tokens.generate(acct.user.ID, acct.user.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(domain.LoginResult{Access: access, Refresh: refresh, User: acct.user})
}

func (s *Server) list(res domain.Resource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s.mu.Lock()
		stored := s.records[res.Name]
		ids := make([]int64, 0, len(stored))
		for id := range stored {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out := make([]domain.Fields, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.Record{ID: id, Fields: stored[id]}.Wire(res.IDField))
		}
		s.mu.Unlock()
		return c.JSON(out)
	}
}

func (s *Server) create(res domain.Resource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fields, err := decodeBody(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		rec := domain.RecordFromFields(fields, res.IDField)

		s.mu.Lock()
		s.nextID++
		rec.ID = s.nextID
		if s.records[res.Name] == nil {
			s.records[res.Name] = make(map[int64]domain.Fields)
		}
		s.records[res.Name][rec.ID] = rec.Fields
		s.mu.Unlock()

		return c.Status(fiber.StatusCreated).JSON(rec.Wire(res.IDField))
	}
}

func (s *Server) update(res domain.Resource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
		}
		fields, err := decodeBody(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		rec := domain.RecordFromFields(fields, res.IDField)
		rec.ID = int64(id)

		s.mu.Lock()
		_, exists := s.records[res.Name][rec.ID]
		if exists {
			s.records[res.Name][rec.ID] = rec.Fields
		}
		s.mu.Unlock()

		if !exists {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Not found."})
		}
		return c.JSON(rec.Wire(res.IDField))
	}
}

func (s *Server) remove(res domain.Resource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
		}
		s.mu.Lock()
		_, exists := s.records[res.Name][int64(id)]
		delete(s.records[res.Name], int64(id))
		s.mu.Unlock()

		if !exists {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Not found."})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func decodeBody(c *fiber.Ctx) (domain.Fields, error) {
	body := c.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid input")
	}
	return domain.DecodeFields(body)
}
