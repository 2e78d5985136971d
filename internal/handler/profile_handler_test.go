package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/newsroom/internal/model"
)

// mockProfileService はProfileServiceInterfaceのモック実装。
type mockProfileService struct {
	getOrCreateFn func(ctx context.Context, userID string) *model.Profile
	updateSelfFn  func(ctx context.Context, userID string, fullName, avatarURL, bio string, socialLinks map[string]string) (*model.Profile, error)
}

func (m *mockProfileService) GetOrCreate(ctx context.Context, userID string) *model.Profile {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, userID)
	}
	return nil
}

func (m *mockProfileService) UpdateSelf(ctx context.Context, userID string, fullName, avatarURL, bio string, socialLinks map[string]string) (*model.Profile, error) {
	if m.updateSelfFn != nil {
		return m.updateSelfFn(ctx, userID, fullName, avatarURL, bio, socialLinks)
	}
	return nil, model.NewProfileNotFoundError()
}

// --- GET /api/profile テスト ---

func TestProfileHandler_Get_Success(t *testing.T) {
	svc := &mockProfileService{
		getOrCreateFn: func(ctx context.Context, userID string) *model.Profile {
			return &model.Profile{
				ID:       userID,
				FullName: "Taro Yamada",
				Role:     model.RoleMember,
			}
		},
	}

	h := NewProfileHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["full_name"] != "Taro Yamada" {
		t.Errorf("full_name = %v, want Taro Yamada", result["full_name"])
	}
	if result["role"] != "member" {
		t.Errorf("role = %v, want member", result["role"])
	}
}

func TestProfileHandler_Get_ProvisionFailure_ReturnsNotFound(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestProfileHandler_Get_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// --- PATCH /api/profile テスト ---

func TestProfileHandler_Update_Success(t *testing.T) {
	svc := &mockProfileService{
		updateSelfFn: func(ctx context.Context, userID string, fullName, avatarURL, bio string, socialLinks map[string]string) (*model.Profile, error) {
			if fullName != "Jiro Suzuki" {
				t.Errorf("fullName = %q, want Jiro Suzuki", fullName)
			}
			if socialLinks["x"] != "https://x.com/jiro" {
				t.Errorf("social_links = %v", socialLinks)
			}
			return &model.Profile{
				ID:          userID,
				FullName:    fullName,
				Bio:         bio,
				Role:        model.RoleMember,
				SocialLinks: socialLinks,
			}, nil
		},
	}

	h := NewProfileHandler(svc)

	body := `{"full_name": "Jiro Suzuki", "bio": "hello", "social_links": {"x": "https://x.com/jiro"}}`
	req := httptest.NewRequest(http.MethodPatch, "/api/profile", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["full_name"] != "Jiro Suzuki" {
		t.Errorf("full_name = %v, want Jiro Suzuki", result["full_name"])
	}
}

func TestProfileHandler_Update_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	body := `{invalid`
	req := httptest.NewRequest(http.MethodPatch, "/api/profile", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
