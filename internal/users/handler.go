package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/inkwellcms/inkwell/internal/blogs"
	"github.com/inkwellcms/inkwell/internal/middleware"
	"github.com/inkwellcms/inkwell/internal/telemetry/metrics"
	"github.com/inkwellcms/inkwell/internal/telemetry/tracing"
	"github.com/inkwellcms/inkwell/pkg"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9]{3,30}$`)

type usersRepo interface {
	Add(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	Get(ctx context.Context, id int) (*User, error)
	All(ctx context.Context) ([]*User, error)
}

type blogCreator interface {
	Add(ctx context.Context, blog *blogs.Blog) error
}

type sessionService interface {
	Login(ctx context.Context, userID int, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
	GetUserID(ctx context.Context, token string) (int, error)
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type Handler struct {
	repo        usersRepo
	blogsRepo   blogCreator
	authService sessionService
	metrics     *metrics.Manager
}

func NewHandler(
	repo usersRepo,
	blogsRepo blogCreator,
	authService sessionService,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:        repo,
		blogsRepo:   blogsRepo,
		authService: authService,
		metrics:     metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	router *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginRateLimitAllowedPerMin int,
) {
	authRouter := router.PathPrefix("/a").Subrouter()
	authRouter.HandleFunc("/register", handler.handleRegister).Methods("POST", "OPTIONS").Name("register")
	authRouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")
	authRouter.HandleFunc("/logout", handler.handleLogout).Methods("GET", "OPTIONS").Name("logout")

	// rate limit the auth endpoints to prevent credential abuse
	if rateLimiter != nil {
		authRouter.Use(middleware.RateLimit(rateLimiter, "auth", loginRateLimitAllowedPerMin, handler.metrics))
	}

	router.HandleFunc("/users", handler.handleList).Methods("GET", "OPTIONS").Name("list-users")
	router.HandleFunc("/users/me", handler.handleMe).Methods("GET", "OPTIONS").Name("user-me")
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.register")
	defer span.End()

	var registerReq registerRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
			log.Errorf("register, unmarshal json params: %s", err)
			http.Error(w, "register failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("register failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		registerReq = registerRequest{
			Username: r.Form.Get("username"),
			Password: r.Form.Get("password"),
			Email:    r.Form.Get("email"),
			FullName: r.Form.Get("full_name"),
		}
	}

	if !usernameRegex.MatchString(registerReq.Username) {
		http.Error(w, "error, username must be 3-30 letters or digits", http.StatusBadRequest)
		return
	}
	if len(registerReq.Password) < 8 {
		http.Error(w, "error, password too short", http.StatusBadRequest)
		return
	}
	if registerReq.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(registerReq.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	user := &User{
		Username:     registerReq.Username,
		PasswordHash: passwordHash,
		Email:        registerReq.Email,
		FullName:     registerReq.FullName,
		CreatedAt:    time.Now(),
	}

	if err := handler.repo.Add(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			http.Error(w, "error, username taken", http.StatusConflict)
			return
		}
		log.Errorf("register user [%s] failed: %s", user.Username, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	// every registered user gets their blog right away
	if err := handler.blogsRepo.Add(ctx, &blogs.Blog{
		UserID: user.ID,
		Title:  fmt.Sprintf("%s's blog", user.Username),
		Bio:    fmt.Sprintf("Personal blog of %s", user.Username),
	}); err != nil {
		log.Errorf("register, create blog for user %d: %s", user.ID, err)
	}

	token, err := handler.authService.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("register, create session: %s", err)
		http.Error(w, "register ok, login failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterUsersRegistered.Inc()
	log.Tracef("new user %d: [%s] registered", user.ID, user.Username)

	handler.writeSessionResponse(w, token, user, http.StatusCreated)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.login")
	defer span.End()

	var creds credentialsRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			log.Errorf("login, unmarshal json params: %s", err)
			http.Error(w, "login failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("login failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		creds = credentialsRequest{
			Username: r.Form.Get("username"),
			Password: r.Form.Get("password"),
		}
	}

	if creds.Username == "" {
		http.Error(w, "error, username empty", http.StatusBadRequest)
		return
	}
	if creds.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	user, err := handler.repo.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Tracef("[username] failed login attempt for user: %s", creds.Username)
			http.Error(w, "error, wrong credentials", http.StatusBadRequest)
			return
		}
		log.Errorf("login, get user [%s]: %s", creds.Username, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(creds.Password, user.PasswordHash) {
		log.Tracef("[password] failed login attempt for user: %s", creds.Username)
		http.Error(w, "error, wrong credentials", http.StatusBadRequest)
		return
	}

	token, err := handler.authService.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("login failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterLogins.Inc()

	handler.writeSessionResponse(w, token, user, http.StatusOK)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-INKWELL-TOKEN")
	if token == "" {
		http.Error(w, "error, token empty", http.StatusBadRequest)
		return
	}

	loggedOut, err := handler.authService.Logout(r.Context(), token)
	if err != nil {
		log.Errorf("logout: %s", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		http.Error(w, "error, session not found", http.StatusBadRequest)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}

// handleList returns all users, for admins only
func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	current := handler.currentUser(w, r)
	if current == nil {
		return
	}
	if !current.IsAdmin {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	all, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("list users error: %s", err)
		http.Error(w, "failed to get users", http.StatusInternalServerError)
		return
	}

	if len(all) == 0 {
		all = []*User{}
	}

	allJson, err := json.Marshal(all)
	if err != nil {
		log.Errorf("marshal users error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, allJson)
}

func (handler *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	current := handler.currentUser(w, r)
	if current == nil {
		return
	}

	userJson, err := json.Marshal(current)
	if err != nil {
		log.Errorf("marshal user error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, userJson)
}

func (handler *Handler) currentUser(w http.ResponseWriter, r *http.Request) *User {
	userID, err := handler.authService.GetUserID(r.Context(), r.Header.Get("X-INKWELL-TOKEN"))
	if err != nil {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return nil
	}

	user, err := handler.repo.Get(r.Context(), userID)
	if err != nil {
		log.Errorf("get user %d: %s", userID, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return nil
	}

	return user
}

func (handler *Handler) writeSessionResponse(w http.ResponseWriter, token string, user *User, statusCode int) {
	resp := sessionResponse{
		Token: token,
		User:  user,
	}
	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("marshal session response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}
