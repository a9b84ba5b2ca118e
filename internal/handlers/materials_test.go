package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/studyshare/backend/internal/models"
)

func multipartRequest(t *testing.T, method, path string, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func createMaterial(t *testing.T, app *testApp, session, title string) models.Material {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/api/v1/materials", map[string]string{"title": title, "description": "desc"}, "notes.txt", []byte("study notes"))
	rec := app.do(req, session)
	expectStatus(t, rec, http.StatusCreated)
	return decodeBody[materialResponse](t, rec).Material
}

func TestMaterialHandlerCreateUpload(t *testing.T) {
	app := newTestApp(t)
	aliceID, session := app.verifiedUser("alice")

	material := createMaterial(t, app, session, "Algebra")
	if material.OwnerID != aliceID || material.Title != "Algebra" {
		t.Fatalf("unexpected material %+v", material)
	}
	if !strings.HasPrefix(material.FileURL, "https://files.example.com/materials/"+aliceID+"/") {
		t.Fatalf("unexpected file url %q", material.FileURL)
	}
	if len(app.objects.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(app.objects.objects))
	}
}

func TestMaterialHandlerCreateWithoutFile(t *testing.T) {
	app := newTestApp(t)
	_, session := app.verifiedUser("alice")

	req := multipartRequest(t, http.MethodPost, "/api/v1/materials", map[string]string{"title": "Links"}, "empty.txt", nil)
	rec := app.do(req, session)
	expectStatus(t, rec, http.StatusCreated)
	if got := decodeBody[materialResponse](t, rec).Material.FileURL; got != "" {
		t.Fatalf("expected no file url, got %q", got)
	}

	rec = app.doJSON(http.MethodPost, "/api/v1/materials", map[string]string{"title": "JSON note"}, session)
	expectStatus(t, rec, http.StatusCreated)
}

func TestMaterialHandlerCreateRejections(t *testing.T) {
	app := newTestApp(t)
	_, session := app.verifiedUser("alice")

	req := multipartRequest(t, http.MethodPost, "/api/v1/materials", map[string]string{"title": "Malware"}, "tool.exe", []byte("MZ"))
	expectErrorCode(t, app.do(req, session), http.StatusUnsupportedMediaType, "unsupported_format")

	req = multipartRequest(t, http.MethodPost, "/api/v1/materials", map[string]string{"title": "Huge"}, "big.txt", bytes.Repeat([]byte("a"), 2048))
	expectErrorCode(t, app.do(req, session), http.StatusRequestEntityTooLarge, "too_large")

	req = multipartRequest(t, http.MethodPost, "/api/v1/materials", map[string]string{"description": "no title"}, "", nil)
	expectErrorCode(t, app.do(req, session), http.StatusBadRequest, "invalid_request")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/materials", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "text/csv")
	expectErrorCode(t, app.do(req, session), http.StatusBadRequest, "invalid_request")

	rec := app.doJSON(http.MethodGet, "/api/v1/materials", nil, session)
	if got := decodeBody[materialListResponse](t, rec).Materials; len(got) != 0 {
		t.Fatalf("rejected uploads must not create materials, got %+v", got)
	}
}

func TestMaterialHandlerOwnership(t *testing.T) {
	app := newTestApp(t)
	_, aliceSession := app.verifiedUser("alice")
	_, malloryIDSession := app.verifiedUser("mallory")
	material := createMaterial(t, app, aliceSession, "Private notes")
	path := "/api/v1/materials/" + material.ID

	rec := app.doJSON(http.MethodPut, path, map[string]string{"title": "Owned"}, malloryIDSession)
	expectErrorCode(t, rec, http.StatusForbidden, "unauthorized")

	rec = app.doJSON(http.MethodPut, path, map[string]string{"title": ""}, malloryIDSession)
	expectErrorCode(t, rec, http.StatusForbidden, "unauthorized")

	rec = app.doJSON(http.MethodPut, path, map[string]string{"title": strings.Repeat("x", 300)}, malloryIDSession)
	expectErrorCode(t, rec, http.StatusForbidden, "unauthorized")

	rec = app.doJSON(http.MethodPut, "/api/v1/materials/missing", map[string]string{"title": ""}, aliceSession)
	expectErrorCode(t, rec, http.StatusNotFound, "not_found")

	rec = app.doJSON(http.MethodPut, path, map[string]string{"title": ""}, aliceSession)
	expectErrorCode(t, rec, http.StatusBadRequest, "invalid_request")

	rec = app.doJSON(http.MethodDelete, path, nil, malloryIDSession)
	expectErrorCode(t, rec, http.StatusForbidden, "unauthorized")

	rec = app.doJSON(http.MethodGet, path, nil, malloryIDSession)
	expectErrorCode(t, rec, http.StatusForbidden, "unauthorized")

	rec = app.doJSON(http.MethodGet, path, nil, aliceSession)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[materialResponse](t, rec).Material.Title; got != "Private notes" {
		t.Fatalf("expected material unchanged, got title %q", got)
	}

	rec = app.doJSON(http.MethodGet, "/api/v1/materials/missing", nil, aliceSession)
	expectErrorCode(t, rec, http.StatusNotFound, "not_found")
}

func TestMaterialHandlerUpdateAndDelete(t *testing.T) {
	app := newTestApp(t)
	_, session := app.verifiedUser("alice")
	material := createMaterial(t, app, session, "Draft")
	path := "/api/v1/materials/" + material.ID

	rec := app.doJSON(http.MethodPut, path, map[string]string{"title": "Final", "description": "reviewed"}, session)
	expectStatus(t, rec, http.StatusOK)
	updated := decodeBody[materialResponse](t, rec).Material
	if updated.Title != "Final" || updated.FileURL != material.FileURL {
		t.Fatalf("unexpected update %+v", updated)
	}

	req := multipartRequest(t, http.MethodPost, path, map[string]string{"_method": "PUT", "title": "Replaced"}, "v2.txt", []byte("second version"))
	rec = app.do(req, session)
	expectStatus(t, rec, http.StatusOK)
	replaced := decodeBody[materialResponse](t, rec).Material
	if replaced.FileURL == material.FileURL || replaced.Title != "Replaced" {
		t.Fatalf("expected file to be replaced, got %+v", replaced)
	}

	req = multipartRequest(t, http.MethodPost, path, map[string]string{"_method": "DELETE"}, "", nil)
	expectStatus(t, app.do(req, session), http.StatusOK)

	expectErrorCode(t, app.doJSON(http.MethodGet, path, nil, session), http.StatusNotFound, "not_found")

	req = multipartRequest(t, http.MethodPost, path, map[string]string{"title": "no override"}, "", nil)
	expectStatus(t, app.do(req, session), http.StatusMethodNotAllowed)
}

func TestMaterialHandlerVisibility(t *testing.T) {
	app := newTestApp(t)
	_, aSession := app.verifiedUser("a")
	_, bSession := app.verifiedUser("b")
	m1 := createMaterial(t, app, aSession, "M1")

	listIDs := func(session string) []string {
		rec := app.doJSON(http.MethodGet, "/api/v1/materials", nil, session)
		expectStatus(t, rec, http.StatusOK)
		var ids []string
		for _, v := range decodeBody[materialListResponse](t, rec).Materials {
			ids = append(ids, v.ID)
		}
		return ids
	}
	contains := func(ids []string, id string) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	}

	if contains(listIDs(bSession), m1.ID) {
		t.Fatal("M1 must not be visible before b adds a")
	}

	expectStatus(t, app.doJSON(http.MethodPost, "/api/v1/friends", emailRequest{Email: "a@example.com"}, bSession), http.StatusCreated)
	if !contains(listIDs(bSession), m1.ID) {
		t.Fatal("M1 must be visible after b adds a")
	}

	rec := app.doJSON(http.MethodGet, "/api/v1/dashboard", nil, bSession)
	expectStatus(t, rec, http.StatusOK)
	dashboard := decodeBody[models.Dashboard](t, rec)
	if len(dashboard.FriendsMaterials) != 1 || dashboard.FriendsMaterials[0].OwnerUsername != "a" || len(dashboard.YourMaterials) != 0 {
		t.Fatalf("unexpected dashboard %+v", dashboard)
	}

	expectStatus(t, app.doJSON(http.MethodDelete, "/api/v1/friends/"+m1.OwnerID, nil, bSession), http.StatusOK)
	if contains(listIDs(bSession), m1.ID) {
		t.Fatal("M1 must not be visible after b removes a")
	}
}
