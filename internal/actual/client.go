// Package actual is a client for the Actual Budget sync server. A session is
// expensive to open: it logs in, resolves the budget file, downloads the
// synced sqlite database (decrypting it when end-to-end encryption is on),
// and opens it locally. Reads and writes then run against the local copy.
package actual

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/actualbridge/actualbridge/internal/session"
)

// Options configures a Client.
type Options struct {
	Endpoint string
	Password string
	// File is the budget file name, file ID, or sync group ID.
	File string
	// CertPath points at a CA certificate for self-signed servers.
	CertPath string
	// SkipVerify disables TLS certificate verification.
	SkipVerify bool
	// EncryptionPassword unlocks end-to-end encrypted files.
	EncryptionPassword string
	// DataDir is where downloaded budget files are extracted.
	DataDir string
	// Timeout bounds every HTTP call. Defaults to a minute; a hung server
	// blocks the calling worker until this expires.
	Timeout time.Duration
}

// Client opens sessions against one Actual server. It implements
// session.Backend.
type Client struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}

	tlsCfg := &tls.Config{}
	if opts.SkipVerify {
		tlsCfg.InsecureSkipVerify = true
	} else if opts.CertPath != "" {
		pem, err := os.ReadFile(opts.CertPath)
		if err != nil {
			return nil, fmt.Errorf("reading certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", opts.CertPath)
		}
		tlsCfg.RootCAs = pool
	}

	return &Client{
		opts: opts,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
		logger: logger,
	}, nil
}

// Open establishes a new session: login, resolve the budget file, download
// and open it, then validate the fresh token once. The signature returns
// session.Handle so *Client satisfies session.Backend; the concrete type is
// always *Session.
func (c *Client) Open(ctx context.Context) (session.Handle, error) {
	s, err := c.openSession(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Client) openSession(ctx context.Context) (*Session, error) {
	start := time.Now()

	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	file, err := c.findFile(ctx, token)
	if err != nil {
		return nil, err
	}

	blob, err := c.downloadFile(ctx, token, file.FileID)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(c.opts.DataDir, file.FileID)
	meta, db, err := extractBudget(blob, dir)
	if err != nil {
		return nil, err
	}

	s := &Session{
		client: c,
		token:  token,
		fileID: file.FileID,
		meta:   meta,
		db:     db,
	}

	ok, err := s.Validate(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if !ok {
		_ = s.Close()
		return nil, ErrValidation
	}

	c.logger.Info("session established",
		slog.String("file", file.Name),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return s, nil
}

// login exchanges the server password for a token.
func (c *Client) login(ctx context.Context) (string, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/account/login", "",
		loginRequest{LoginMethod: "password", Password: c.opts.Password}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Status != statusOK || resp.Data.Token == "" {
		return "", ErrAuth
	}
	return resp.Data.Token, nil
}

// findFile resolves the configured file reference against the server's file
// list. The reference may match the file ID, the sync group ID, or the name.
func (c *Client) findFile(ctx context.Context, token string) (*userFile, error) {
	var resp listFilesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/sync/list-user-files", token, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Data {
		f := &resp.Data[i]
		if f.Deleted != 0 {
			continue
		}
		if f.FileID == c.opts.File || f.GroupID == c.opts.File || f.Name == c.opts.File {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFile, c.opts.File)
}

// downloadFile fetches the budget archive, decrypting it when the server
// reports end-to-end encryption.
func (c *Client) downloadFile(ctx context.Context, token, fileID string) ([]byte, error) {
	var info fileInfoResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.Endpoint+"/sync/get-user-file-info", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerToken, token)
	req.Header.Set(headerFileID, fileID)
	if err := c.send(req, &info); err != nil {
		return nil, err
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.opts.Endpoint+"/sync/download-user-file", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerToken, token)
	req.Header.Set(headerFileID, fileID)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer httpResp.Body.Close()
	if err := checkStatus(httpResp); err != nil {
		return nil, err
	}
	blob, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if info.Data.EncryptMeta == nil {
		return blob, nil
	}
	return c.decryptFile(ctx, token, fileID, blob, info.Data.EncryptMeta)
}

// doJSON posts body (if any) to path and decodes the JSON envelope into out.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.opts.Endpoint+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(headerToken, token)
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		return ErrUnknownFile
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: unexpected status %s", ErrNetwork, resp.Status)
	}
	return nil
}

// extractBudget unpacks db.sqlite and metadata.json from the downloaded
// archive into dir and opens the database.
func extractBudget(blob []byte, dir string) (fileMetadata, *sql.DB, error) {
	var meta fileMetadata

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return meta, nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return meta, nil, fmt.Errorf("creating data dir: %w", err)
	}

	found := false
	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		if name != "db.sqlite" && name != "metadata.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return meta, nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return meta, nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return meta, nil, fmt.Errorf("writing %s: %w", name, err)
		}
		if name == "db.sqlite" {
			found = true
		} else if err := json.Unmarshal(data, &meta); err != nil {
			return meta, nil, fmt.Errorf("%w: bad metadata.json: %v", ErrInvalidFile, err)
		}
	}
	if !found {
		return meta, nil, fmt.Errorf("%w: archive has no db.sqlite", ErrInvalidFile)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "db.sqlite"))
	if err != nil {
		return meta, nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return meta, db, nil
}
