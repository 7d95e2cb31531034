package actual

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
)

// Session is one live, authenticated session: a server token plus the locally
// extracted budget database. It implements session.Handle; the session cache
// owns every instance.
type Session struct {
	client *Client
	token  string
	fileID string
	meta   fileMetadata
	db     *sql.DB
}

// FileID returns the server-side ID of the open budget file.
func (s *Session) FileID() string {
	if s.meta.ID != "" {
		return s.meta.ID
	}
	return s.fileID
}

// BudgetName returns the display name stored in the budget's metadata.
func (s *Session) BudgetName() string {
	return s.meta.BudgetName
}

// Validate asks the server whether the session token is still accepted. A
// rejected token reports (false, nil); transport failures report an error.
func (s *Session) Validate(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.opts.Endpoint+"/account/validate", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set(headerToken, s.token)

	var resp validateResponse
	if err := s.client.send(req, &resp); err != nil {
		if errors.Is(err, ErrAuth) {
			return false, nil
		}
		return false, err
	}
	return resp.Status == statusOK && resp.Data.Validated, nil
}

// Close releases the local database. The extracted files stay on disk as
// cached state for the next session.
func (s *Session) Close() error {
	return s.db.Close()
}
