package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/db"
	"github.com/librenovela/librenovela/internal/auth"
	"github.com/librenovela/librenovela/internal/config"
	"github.com/librenovela/librenovela/internal/models"
	"github.com/librenovela/librenovela/internal/router"
	"github.com/librenovela/librenovela/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// longDescription satisfies the 150-character minimum.
var longDescription = strings.Repeat("Una historia de prueba con suficiente texto. ", 5)

type testEnv struct {
	t         *testing.T
	router    *gin.Engine
	db        *gorm.DB
	tokens    *auth.TokenManager
	imagesDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})

	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	imagesDir := t.TempDir()
	images, err := storage.NewImageStore(imagesDir)

	if err != nil {
		t.Fatalf("failed to create image store: %v", err)
	}

	cfg := &config.Config{
		Port:        "0",
		DatabaseDSN: dsn,
		JWTSecret:   "secreto-de-pruebas",
		ImagesDir:   imagesDir,
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, auth.TokenTTL)

	return &testEnv{
		t:         t,
		router:    router.New(cfg, database, logger, tokens, images),
		db:        database,
		tokens:    tokens,
		imagesDir: imagesDir,
	}
}

func (e *testEnv) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	e.t.Helper()

	req := httptest.NewRequest(method, path, body)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if token != "" {
		req.Header.Set("auth-token", token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var body io.Reader

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			e.t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	return e.do(method, path, token, body, "application/json")
}

func (e *testEnv) register(nickname, email, password string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.doJSON(http.MethodPost, "/api/auth/registro", "", gin.H{
		"nickname": nickname,
		"email":    email,
		"password": password,
	})
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()

	rec := e.doJSON(http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": password,
	})

	if rec.Code != http.StatusOK {
		e.t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}

	data := decodeData(e.t, rec)
	token, _ := data["token"].(string)

	if token == "" {
		e.t.Fatal("login response carries no token")
	}

	return token
}

// registerAndLogin is the common preamble for authenticated tests.
func (e *testEnv) registerAndLogin(nickname, email, password string) string {
	e.t.Helper()

	if rec := e.register(nickname, email, password); rec.Code != http.StatusOK {
		e.t.Fatalf("register failed with status %d: %s", rec.Code, rec.Body.String())
	}

	return e.login(email, password)
}

// doMultipart sends a multipart form. An "imagen" key attaches a small PNG
// upload named by its value; every other key becomes a plain field.
func (e *testEnv) doMultipart(method, path, token string, fields map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if key == "imagen" {
			part, err := writer.CreateFormFile("imagen", value)
			if err != nil {
				e.t.Fatalf("failed to attach image: %v", err)
			}
			if err := png.Encode(part, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
				e.t.Fatalf("failed to encode test image: %v", err)
			}
			continue
		}

		if err := writer.WriteField(key, value); err != nil {
			e.t.Fatalf("failed to write form field: %v", err)
		}
	}

	writer.Close()

	return e.do(method, path, token, &buf, writer.FormDataContentType())
}

// createNovel posts the multipart form the novel creation route expects.
// extra overrides or adds fields.
func (e *testEnv) createNovel(token, title string, extra map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()

	fields := map[string]string{
		"titulo":      title,
		"descripcion": longDescription,
	}

	for key, value := range extra {
		fields[key] = value
	}

	return e.doMultipart(http.MethodPost, "/api/novela/nueva", token, fields)
}

func (e *testEnv) createNovelID(token, title string) uint {
	e.t.Helper()

	rec := e.createNovel(token, title, nil)

	if rec.Code != http.StatusOK {
		e.t.Fatalf("novel creation failed with status %d: %s", rec.Code, rec.Body.String())
	}

	data := decodeData(e.t, rec)
	id, _ := data["id"].(float64)

	if id == 0 {
		e.t.Fatal("novel creation response carries no id")
	}

	return uint(id)
}

func (e *testEnv) addChapter(token string, novelID uint, title, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	path := fmt.Sprintf("/api/novela/%d/capitulo", novelID)
	return e.doJSON(http.MethodPost, path, token, gin.H{"titulo": title, "contenido": content})
}

// adminToken seeds an Admin straight into the table and signs a token for
// it, bypassing the public registration flow.
func (e *testEnv) adminToken() string {
	e.t.Helper()

	hash, err := auth.HashPassword("admin-secreta")

	if err != nil {
		e.t.Fatalf("failed to hash admin password: %v", err)
	}

	admin := models.User{
		Nickname:     "adminroot",
		Email:        "admin@pruebas.com",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
		Image:        models.DefaultUserImage,
	}

	if err := e.db.Create(&admin).Error; err != nil {
		e.t.Fatalf("failed to seed admin: %v", err)
	}

	token, err := e.tokens.Issue(&admin)

	if err != nil {
		e.t.Fatalf("failed to issue admin token: %v", err)
	}

	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}

	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rec.Body.String())
	}

	return body
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	body := decodeBody(t, rec)

	if body["error"] != nil {
		t.Fatalf("response carries an error: %s", rec.Body.String())
	}

	data, ok := body["data"].(map[string]interface{})

	if !ok {
		t.Fatalf("response data is not an object: %s", rec.Body.String())
	}

	return data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})

	if !ok {
		t.Fatalf("response carries no error object: %s", rec.Body.String())
	}

	code, _ := errObj["code"].(string)
	return code
}
