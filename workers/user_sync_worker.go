// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"rep-challenge-system/logging"
	"rep-challenge-system/models"
	"rep-challenge-system/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RemoteProfile is the subset of the sync service profile this service keeps.
type RemoteProfile struct {
	ExternalID string    `json:"external_id"`
	Username   string    `json:"username"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileChangesResponse is the top-level structure of the sync service response.
type ProfileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// UserSyncWorker mirrors usernames from the profile sync service so the
// leaderboard shows current names.
type UserSyncWorker struct {
	store        repository.Store
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client
	log          zerolog.Logger
}

func NewUserSyncWorker(store repository.Store, baseURL, endpointPath, serviceToken string, interval time.Duration) (*UserSyncWorker, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid sync service URL %q: %w", baseURL, err)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &UserSyncWorker{
		store:        store,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          logging.WithComponent("sync"),
	}, nil
}

// Start runs the poll loop until ctx is done.
func (w *UserSyncWorker) Start(ctx context.Context) {
	w.log.Info().Str("url", w.baseURL).Dur("interval", w.interval).Msg("starting user sync worker")
	go w.run(ctx)
}

func (w *UserSyncWorker) run(ctx context.Context) {
	// backfill from the beginning of time
	if _, err := w.SyncOnce(ctx, time.Time{}); err != nil {
		w.log.Warn().Err(err).Msg("initial sync failed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			since, err := w.store.LastProfileSync(ctx)
			if err != nil {
				w.log.Warn().Err(err).Msg("read last sync time")
				since = time.Time{}
			}
			if _, err := w.SyncOnce(ctx, since); err != nil {
				w.log.Error().Err(err).Msg("sync batch failed")
			}
		case <-ctx.Done():
			w.log.Info().Msg("user sync worker stopped")
			return
		}
	}
}

// SyncOnce fetches profile changes since the given time and upserts them.
// It returns the number of users written.
func (w *UserSyncWorker) SyncOnce(ctx context.Context, since time.Time) (int, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("create sync request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("sync service returned %d: %s", resp.StatusCode, body)
	}

	var payload ProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode sync service response: %w", err)
	}

	users := make([]models.User, 0, len(payload.Users))
	for _, p := range payload.Users {
		if _, err := uuid.Parse(p.ExternalID); err != nil || p.Username == "" {
			w.log.Warn().Str("external_id", p.ExternalID).Msg("skipping malformed profile")
			continue
		}
		synced := p.UpdatedAt.UTC()
		users = append(users, models.User{ID: p.ExternalID, Username: p.Username, SyncedAt: &synced})
	}
	if len(users) == 0 {
		return 0, nil
	}

	n, err := w.store.UpsertUsernames(ctx, users)
	if err != nil {
		return n, err
	}
	w.log.Info().Int("received", len(payload.Users)).Int("upserted", n).Msg("synced users")
	return n, nil
}
