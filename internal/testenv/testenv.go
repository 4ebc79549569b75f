package testenv

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/events"
	authhdl "github.com/stepline/dance_catalog/internal/handlers/auth"
	"github.com/stepline/dance_catalog/internal/handlers/favorites"
	"github.com/stepline/dance_catalog/internal/handlers/lists"
	"github.com/stepline/dance_catalog/internal/handlers/moves"
	"github.com/stepline/dance_catalog/internal/handlers/searchhdl"
	"github.com/stepline/dance_catalog/internal/hash"
	mwauth "github.com/stepline/dance_catalog/internal/middleware/auth"
	"github.com/stepline/dance_catalog/internal/models"
	"github.com/stepline/dance_catalog/internal/tokens"
	httpserver "github.com/stepline/dance_catalog/internal/transport/http"
)

var (
	JWTSecret     = []byte("test-jwt-secret")
	RefreshSecret = []byte("test-refresh-secret")
)

// Env is a fully wired server over an in-memory database.
type Env struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
}

func New(t *testing.T) *Env {
	return NewWithLogger(t, nil)
}

// NewWithLogger wires the request logger so tests can assert on log output.
func NewWithLogger(t *testing.T, logger *slog.Logger) *Env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Move{},
		&models.List{},
		&models.ListMember{},
		&models.ListMove{},
		&models.Favorite{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	producer := events.NewProducer(nil)
	authMW := &mwauth.Middleware{DB: db, JWTSecret: JWTSecret}

	deps := httpserver.Deps{
		Auth: authMW,
		AuthHdl: &authhdl.Handler{
			DB:            db,
			JWTSecret:     JWTSecret,
			RefreshSecret: RefreshSecret,
			Producer:      producer,
		},
		Lists:      &lists.Handler{DB: db, Producer: producer},
		Favorites:  &favorites.Handler{DB: db},
		Moves:      &moves.Handler{DB: db},
		Search:     &searchhdl.Handler{},
		Logger:     logger,
		CORSOrigin: "*",
		DevMode:    true,
	}

	e := echo.New()
	httpserver.Register(e, &deps)

	return &Env{T: t, E: e, DB: db}
}

// Do runs one request through the full middleware chain.
func (env *Env) Do(method, path, token string, body any) *httptest.ResponseRecorder {
	env.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			env.T.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

// DoRaw is Do with a verbatim Authorization header value.
func (env *Env) DoRaw(method, path, authorization string, body any) *httptest.ResponseRecorder {
	env.T.Helper()

	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			env.T.Fatalf("marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *Env) Decode(rec *httptest.ResponseRecorder, out any) {
	env.T.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		env.T.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// CreateUser inserts an account directly and returns it with a valid access
// token, bypassing the register endpoint.
func (env *Env) CreateUser(username, email, password, role string) (*models.User, string) {
	env.T.Helper()

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		env.T.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		IsActive:     true,
	}
	if err := env.DB.Create(&user).Error; err != nil {
		env.T.Fatalf("create user: %v", err)
	}

	token, err := tokens.NewAccessToken(&user, JWTSecret)
	if err != nil {
		env.T.Fatalf("issue token: %v", err)
	}
	return &user, token
}

func (env *Env) CreateMove(name string) *models.Move {
	env.T.Helper()
	move := models.Move{Name: name, Style: "breaking", Difficulty: "beginner"}
	if err := env.DB.Create(&move).Error; err != nil {
		env.T.Fatalf("create move: %v", err)
	}
	return &move
}
