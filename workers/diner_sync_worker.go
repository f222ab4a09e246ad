// workers/diner_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"tastetrail-rewards-system/models"
	"tastetrail-rewards-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MirroredDinerFromProfile matches the JSON response from the profile
// service's public sync endpoint.
type MirroredDinerFromProfile struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	AvatarURL  *string    `json:"avatar_url,omitempty"`
	HomeCity   *string    `json:"home_city,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// GetDinerChangesResponse is the top-level structure of the sync response.
type GetDinerChangesResponse struct {
	Users []MirroredDinerFromProfile `json:"users"`
}

// DinerSyncWorker keeps the local diner_users mirror fresh. The mirror is
// display data only (claim lists, referral stats); auth context always comes
// from the gateway, never from this table.
type DinerSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client
}

func NewDinerSyncWorker(db *gorm.DB, profileServiceBaseURL, endpointPath, serviceToken string) *DinerSyncWorker {
	return &DinerSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      profileServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *DinerSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Diner Sync Worker (profile-service → diner_users)…")
	go w.run(ctx)
}

func (w *DinerSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial diner sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Diner sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Diner Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *DinerSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM diner_users WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches profile changes since the given time and upserts them
// into diner_users.
func (w *DinerSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("profile service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("profile service returned %d: %s", resp.StatusCode, string(body))
	}

	var payload GetDinerChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode sync response: %w", err)
	}
	if len(payload.Users) == 0 {
		return nil
	}

	rows := make([]models.DinerUser, 0, len(payload.Users))
	for _, u := range payload.Users {
		if u.ExternalID == "" {
			continue
		}
		rows = append(rows, models.DinerUser{
			ID:             uuid.NewString(),
			ExternalUserID: u.ExternalID,
			Username:       u.Username,
			Email:          u.Email,
			AvatarURL:      u.AvatarURL,
			HomeCity:       u.HomeCity,
			LastSeen:       u.LastSeen,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	// Upsert on external_user_id: refresh display fields, keep the local ID.
	err = w.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "avatar_url", "home_city", "last_seen", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert diner mirror: %w", err)
	}

	log.Printf("[SYNC] 🔄 Mirrored %d diner profile(s) since=%s", len(rows), since.UTC().Format(time.RFC3339))
	return nil
}
