package project

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/draftcore/draftcore/backend-go/internal/auth"
	"github.com/draftcore/draftcore/backend-go/internal/db"
	"github.com/draftcore/draftcore/backend-go/internal/document"
)

type fixture struct {
	store   db.Store
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "project.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(store.Close)
	for _, u := range []string{"owner", "editor", "stranger"} {
		_, err := store.CreateUser(ctx, db.CreateUserParams{ID: "user_" + u, Email: u + "@example.com", Password: "x", DisplayName: u})
		if err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{store: store, service: NewService(store)}
}

func TestCreateSeedsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	empty, err := f.service.Create(ctx, "Empty", "user_owner", false)
	if err != nil {
		t.Fatal(err)
	}
	sv, err := f.service.LatestSketch(ctx, empty.ID, "user_owner")
	if err != nil || sv.Version != 1 || sv.Sketch.Len() != 0 {
		t.Fatalf("empty project snapshot = %+v, %v", sv, err)
	}

	sample, _ := f.service.Create(ctx, "Sample", "user_owner", true)
	sv, err = f.service.LatestSketch(ctx, sample.ID, "user_owner")
	if err != nil || sv.Sketch.Len() != document.NewSampleSketch().Len() {
		t.Fatalf("sample project snapshot = %+v, %v", sv, err)
	}
}

func TestMembershipRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, _ := f.service.Create(ctx, "Shared", "user_owner", false)

	if _, err := f.service.Get(ctx, p.ID, "user_stranger"); !errors.Is(err, ErrNotMember) {
		t.Errorf("stranger Get error = %v", err)
	}
	if err := f.service.InviteByEmail(ctx, p.ID, "user_stranger", "editor@example.com"); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner invite error = %v", err)
	}
	if err := f.service.InviteByEmail(ctx, p.ID, "user_owner", "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown invitee error = %v", err)
	}
	if err := f.service.InviteByEmail(ctx, p.ID, "user_owner", " Editor@Example.com "); err != nil {
		t.Fatalf("mixed-case invite: %v", err)
	}
	if err := f.service.InviteByEmail(ctx, p.ID, "user_owner", "editor@example.com"); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("second invite error = %v", err)
	}

	members, err := f.service.ListMembers(ctx, p.ID, "user_editor")
	if err != nil || len(members) != 2 {
		t.Errorf("members = %+v, %v", members, err)
	}
	if err := f.service.RemoveMember(ctx, p.ID, "user_owner", "user_owner"); !errors.Is(err, ErrOwnerRemoval) {
		t.Errorf("owner removal error = %v", err)
	}
	if err := f.service.Delete(ctx, p.ID, "user_editor"); !errors.Is(err, ErrForbidden) {
		t.Errorf("editor delete error = %v", err)
	}
	if err := f.service.Delete(ctx, p.ID, "user_owner"); err != nil {
		t.Fatal(err)
	}
	if err := f.service.Delete(ctx, p.ID, "user_owner"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

func TestImportKeepsPreviousOnMalformed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, _ := f.service.Create(ctx, "P", "user_owner", true)

	if _, err := f.service.ImportSketch(ctx, p.ID, "user_owner", []byte(`{"points": []}`)); !errors.Is(err, document.ErrMalformed) {
		t.Fatalf("malformed import error = %v", err)
	}
	sv, _ := f.service.LatestSketch(ctx, p.ID, "user_owner")
	if sv.Version != 1 || sv.Sketch.Len() != document.NewSampleSketch().Len() {
		t.Errorf("snapshot after failed import = v%d with %d entities", sv.Version, sv.Sketch.Len())
	}

	data, _ := document.Encode(document.NewSketch())
	sv, err := f.service.ImportSketch(ctx, p.ID, "user_owner", data)
	if err != nil || sv.Version != 2 || sv.Sketch.Len() != 0 {
		t.Errorf("import = %+v, %v", sv, err)
	}
}

type recordingListener struct {
	projectID string
	version   int
}

func (l *recordingListener) SketchReplaced(projectID string, _ *document.Sketch, version int) {
	l.projectID, l.version = projectID, version
}

func TestSnapshotHandlers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, _ := f.service.Create(ctx, "P", "user_owner", false)
	listener := &recordingListener{}
	h := NewHandler(f.service, listener)

	do := func(method string, body *bytes.Buffer, contentType string, fn http.HandlerFunc, user string) *httptest.ResponseRecorder {
		if body == nil {
			body = &bytes.Buffer{}
		}
		req := httptest.NewRequest(method, "/api/projects/"+p.ID+"/snapshots/latest", body)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req = mux.SetURLVars(req, map[string]string{"projectId": p.ID})
		req = req.WithContext(auth.WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		fn(rec, req)
		return rec
	}

	rec := do(http.MethodPut, bytes.NewBufferString("{"), "", h.PutLatestSnapshot, "user_owner")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed PUT status = %d", rec.Code)
	}

	sample, _ := document.Encode(document.NewSampleSketch())
	rec = do(http.MethodPut, bytes.NewBuffer(sample), "", h.PutLatestSnapshot, "user_owner")
	if rec.Code != http.StatusOK || listener.version != 2 || listener.projectID != p.ID {
		t.Fatalf("PUT status = %d listener = %+v: %s", rec.Code, listener, rec.Body)
	}

	rec = do(http.MethodGet, nil, "", h.GetLatestSnapshot, "user_owner")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Sketch-Version") != "2" {
		t.Errorf("GET status = %d version = %q", rec.Code, rec.Header().Get("X-Sketch-Version"))
	}
	if _, err := document.Decode(rec.Body.Bytes()); err != nil {
		t.Errorf("GET body does not decode: %v", err)
	}

	rec = do(http.MethodGet, nil, "", h.GetLatestSnapshot, "user_stranger")
	if rec.Code != http.StatusForbidden {
		t.Errorf("stranger GET status = %d", rec.Code)
	}

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, _ := mw.CreateFormFile("file", "pattern.json")
	empty, _ := document.Encode(document.NewSketch())
	fw.Write(empty)
	mw.Close()
	rec = do(http.MethodPost, &form, mw.FormDataContentType(), h.Import, "user_owner")
	if rec.Code != http.StatusOK || listener.version != 3 {
		t.Errorf("import status = %d version = %d: %s", rec.Code, listener.version, rec.Body)
	}

	rec = do(http.MethodPost, bytes.NewBufferString("not multipart"), "text/plain", h.Import, "user_owner")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("bad import status = %d", rec.Code)
	}
}
