package actual

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"github.com/actualbridge/actualbridge/internal/session"
)

var _ session.Backend = (*Client)(nil)

// buildBudgetZip assembles a budget archive around the fixture database.
func buildBudgetZip(t *testing.T) []byte {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "db.sqlite")
	db := newTestDB(t, dbPath)
	require.NoError(t, db.Close())

	dbBytes, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	metaBytes, err := json.Marshal(fileMetadata{ID: "file1", BudgetName: "Test Budget"})
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string][]byte{"db.sqlite": dbBytes, "metadata.json": metaBytes} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fakeServer emulates the subset of the Actual sync server the client speaks to.
type fakeServer struct {
	password  string
	blob      []byte
	meta      *encryptMeta
	keySalt   string
	validated bool
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /account/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != f.password {
			writeJSON(w, map[string]any{"status": "error", "data": map[string]any{}})
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "data": map[string]any{"token": "tok-1"}})
	})
	mux.HandleFunc("GET /account/validate", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerToken) != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "data": map[string]any{"validated": f.validated}})
	})
	mux.HandleFunc("GET /sync/list-user-files", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "data": []map[string]any{
			{"deleted": 0, "fileId": "file1", "groupId": "group1", "name": "My Budget"},
		}})
	})
	mux.HandleFunc("GET /sync/get-user-file-info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "data": map[string]any{
			"name": "My Budget", "fileId": "file1", "encryptMeta": f.meta,
		}})
	})
	mux.HandleFunc("POST /sync/user-get-key", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "data": map[string]any{
			"id": "key1", "salt": f.keySalt,
		}})
	})
	mux.HandleFunc("GET /sync/download-user-file", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerFileID) != "file1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(f.blob)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts Options) *Client {
	t.Helper()
	opts.Endpoint = srv.URL
	if opts.DataDir == "" {
		opts.DataDir = t.TempDir()
	}
	c, err := NewClient(opts, nil)
	require.NoError(t, err)
	return c
}

func TestOpen(t *testing.T) {
	fake := &fakeServer{password: "hunter2", blob: buildBudgetZip(t), validated: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv, Options{Password: "hunter2", File: "My Budget"})
	h, err := c.Open(context.Background())
	require.NoError(t, err)
	defer h.Close()

	s := h.(*Session)
	assert.Equal(t, "Test Budget", s.BudgetName())
	assert.Equal(t, "file1", s.FileID())

	// The downloaded database is queryable.
	accounts, err := s.Accounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestOpen_ResolvesFileByID(t *testing.T) {
	fake := &fakeServer{password: "hunter2", blob: buildBudgetZip(t), validated: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv, Options{Password: "hunter2", File: "group1"})
	h, err := c.Open(context.Background())
	require.NoError(t, err)
	h.Close()
}

func TestOpen_WrongPassword(t *testing.T) {
	fake := &fakeServer{password: "hunter2", validated: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv, Options{Password: "wrong", File: "My Budget"})
	_, err := c.Open(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestOpen_UnknownFile(t *testing.T) {
	fake := &fakeServer{password: "hunter2", validated: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv, Options{Password: "hunter2", File: "No Such Budget"})
	_, err := c.Open(context.Background())
	assert.ErrorIs(t, err, ErrUnknownFile)
}

func TestOpen_ValidationRejected(t *testing.T) {
	fake := &fakeServer{password: "hunter2", blob: buildBudgetZip(t), validated: false}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv, Options{Password: "hunter2", File: "My Budget"})
	_, err := c.Open(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpen_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := newTestClient(t, srv, Options{Password: "hunter2", File: "My Budget"})
	_, err := c.Open(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestOpen_CorruptArchive(t *testing.T) {
	fake := &fakeServer{password: "hunter2", blob: []byte("not a zip"), validated: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv, Options{Password: "hunter2", File: "My Budget"})
	_, err := c.Open(context.Background())
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestOpen_EncryptedFile(t *testing.T) {
	plain := buildBudgetZip(t)

	salt := []byte("test-key-salt")
	key := pbkdf2.Key([]byte("letmein"), salt, keyIterations, keyLength, sha512.New)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	iv := bytes.Repeat([]byte{7}, gcm.NonceSize())
	sealed := gcm.Seal(nil, iv, plain, nil)
	cut := len(sealed) - gcm.Overhead()

	fake := &fakeServer{
		password:  "hunter2",
		validated: true,
		blob:      sealed[:cut],
		keySalt:   base64.StdEncoding.EncodeToString(salt),
		meta: &encryptMeta{
			KeyID:     "key1",
			Algorithm: "aes-256-gcm",
			IV:        base64.StdEncoding.EncodeToString(iv),
			AuthTag:   base64.StdEncoding.EncodeToString(sealed[cut:]),
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	t.Run("with password", func(t *testing.T) {
		c := newTestClient(t, srv, Options{
			Password: "hunter2", File: "My Budget", EncryptionPassword: "letmein",
		})
		h, err := c.Open(context.Background())
		require.NoError(t, err)
		h.Close()
	})

	t.Run("without password", func(t *testing.T) {
		c := newTestClient(t, srv, Options{Password: "hunter2", File: "My Budget"})
		_, err := c.Open(context.Background())
		assert.ErrorIs(t, err, ErrInvalidFile)
	})

	t.Run("wrong password", func(t *testing.T) {
		c := newTestClient(t, srv, Options{
			Password: "hunter2", File: "My Budget", EncryptionPassword: "wrong",
		})
		_, err := c.Open(context.Background())
		assert.ErrorIs(t, err, ErrInvalidFile)
	})
}

func TestValidate_TokenRevoked(t *testing.T) {
	fake := &fakeServer{password: "hunter2", blob: buildBudgetZip(t), validated: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv, Options{Password: "hunter2", File: "My Budget"})
	h, err := c.Open(context.Background())
	require.NoError(t, err)
	defer h.Close()

	fake.validated = false
	ok, err := h.Validate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
