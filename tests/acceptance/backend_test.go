package acceptance

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const (
	backendPassword    = "Password123"
	backendAccessToken = "backend-access-token"
)

// fakeBackend stands in for the YouthLoop API: the same response
// envelope, bearer auth, and a small in-memory profile and inbox.
type fakeBackend struct {
	server *httptest.Server

	mu            sync.Mutex
	nickname      string
	rejectUpdates bool
	notifications []map[string]any
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{}
	b.Reset()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login/password", b.loginPassword)
	mux.HandleFunc("GET /api/v1/me/profile", b.getProfile)
	mux.HandleFunc("POST /api/v1/me/profile", b.updateProfile)
	mux.HandleFunc("GET /api/v1/me/notifications", b.getNotifications)
	mux.HandleFunc("POST /api/v1/me/notifications/read", b.markRead)
	mux.HandleFunc("GET /api/v1/system/health", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 0, "", nil)
	})

	b.server = httptest.NewServer(mux)
	return b
}

func (b *fakeBackend) URL() string {
	return b.server.URL
}

func (b *fakeBackend) Close() {
	b.server.Close()
}

func (b *fakeBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nickname = "green"
	b.rejectUpdates = false
	b.notifications = []map[string]any{
		{
			"id": "n1", "type": 1, "isRead": false,
			"actorNickname": "Lin", "targetType": 1, "targetId": "a9",
			"commentContent": "nice work", "createdAt": "2025-06-01T08:00:00Z",
		},
		{
			"id": "n2", "type": 3, "isRead": true,
			"actorNickname": "Wei", "targetType": 2, "targetId": "e4",
			"targetPreview": "Beach cleanup", "createdAt": "2025-06-02T09:00:00Z",
		},
	}
}

func (b *fakeBackend) RejectUpdates(reject bool) {
	b.mu.Lock()
	b.rejectUpdates = reject
	b.mu.Unlock()
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func decodeData(r *http.Request, out any) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&wrapper); err != nil {
		return err
	}
	return json.Unmarshal(wrapper.Data, out)
}

func authorized(r *http.Request) bool {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") == backendAccessToken
}

func (b *fakeBackend) loginPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account  string `json:"account"`
		Password string `json:"password"`
	}
	if err := decodeData(r, &req); err != nil {
		writeEnvelope(w, 1000, "Malformed request", nil)
		return
	}

	if req.Account != "user@example.com" || req.Password != backendPassword {
		writeEnvelope(w, 1102, "Incorrect account or password", nil)
		return
	}

	writeEnvelope(w, 0, "", map[string]any{
		"accessToken":  backendAccessToken,
		"refreshToken": "backend-refresh-token",
		"expiresIn":    3600,
	})
}

func (b *fakeBackend) getProfile(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeEnvelope(w, 2000, "Invalid token", nil)
		return
	}

	b.mu.Lock()
	nickname := b.nickname
	b.mu.Unlock()

	writeEnvelope(w, 0, "", map[string]any{
		"userId":    "u1",
		"nickname":  nickname,
		"email":     "user@example.com",
		"location":  "Hangzhou",
		"points":    120,
		"level":     2,
		"createdAt": "2025-03-01T10:00:00Z",
	})
}

func (b *fakeBackend) updateProfile(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeEnvelope(w, 2000, "Invalid token", nil)
		return
	}

	b.mu.Lock()
	reject := b.rejectUpdates
	b.mu.Unlock()
	if reject {
		writeEnvelope(w, 1201, "Nickname not allowed", nil)
		return
	}

	var req struct {
		Nickname *string `json:"nickname"`
	}
	if err := decodeData(r, &req); err != nil {
		writeEnvelope(w, 1000, "Malformed request", nil)
		return
	}

	if req.Nickname != nil {
		b.mu.Lock()
		b.nickname = *req.Nickname
		b.mu.Unlock()
	}
	writeEnvelope(w, 0, "", nil)
}

func (b *fakeBackend) getNotifications(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeEnvelope(w, 2000, "Invalid token", nil)
		return
	}

	b.mu.Lock()
	items := b.notifications
	b.mu.Unlock()

	writeEnvelope(w, 0, "", map[string]any{
		"page":  1,
		"size":  20,
		"total": len(items),
		"items": items,
	})
}

func (b *fakeBackend) markRead(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeEnvelope(w, 2000, "Invalid token", nil)
		return
	}

	var req struct {
		NotificationIDs []string `json:"notificationIds"`
		MarkAllAsRead   bool     `json:"markAllAsRead"`
	}
	if err := decodeData(r, &req); err != nil {
		writeEnvelope(w, 1000, "Malformed request", nil)
		return
	}

	b.mu.Lock()
	for i := range b.notifications {
		if req.MarkAllAsRead {
			b.notifications[i]["isRead"] = true
			continue
		}
		for _, id := range req.NotificationIDs {
			if b.notifications[i]["id"] == id {
				b.notifications[i]["isRead"] = true
			}
		}
	}
	b.mu.Unlock()

	writeEnvelope(w, 0, "", nil)
}
