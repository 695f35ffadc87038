package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockin/internal/devstore"
	"clockin/internal/token"
)

func markRequest(t *testing.T, eventID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("eventId", eventID))
	require.NoError(t, w.WriteField("latitude", "12.3"))
	require.NoError(t, w.WriteField("longitude", "76.5"))
	part, err := w.CreateFormFile("image", "attendance.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg"))
	require.NoError(t, err)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/mark_attendance", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(t *testing.T, db devstore.Store, userID string, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/mark_attendance", func(c *gin.Context) {
		c.Set("claims", token.Claims{Subject: userID})
		markAttendanceHandler(db)(c)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func seededStore(t *testing.T) (*devstore.MemoryStore, devstore.User) {
	t.Helper()
	db := devstore.NewMemoryStore()
	db.Seed(time.Now())
	u, err := db.Authenticate(context.Background(), "student@campus.edu", "password")
	require.NoError(t, err)
	return db, u
}

func TestMarkAttendanceOngoingEvent(t *testing.T) {
	db, u := seededStore(t)

	rec := serve(t, db, u.ID, markRequest(t, "ev-ongoing"))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// Seeded event started 30 minutes ago, past the grace window.
	assert.Equal(t, "late", body["status"])

	statuses, err := db.StatusMap(context.Background(), u.ID, []string{"ev-ongoing"})
	require.NoError(t, err)
	assert.Equal(t, "late", statuses["ev-ongoing"])
}

func TestMarkAttendanceRejectsRepeatAndWindow(t *testing.T) {
	db, u := seededStore(t)

	rec := serve(t, db, u.ID, markRequest(t, "ev-ongoing"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, db, u.ID, markRequest(t, "ev-ongoing"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, db, u.ID, markRequest(t, "ev-upcoming"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, db, u.ID, markRequest(t, "ev-missing"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkAttendanceValidatesPayload(t *testing.T) {
	db, u := seededStore(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("eventId", "ev-ongoing"))
	w.Close()
	req := httptest.NewRequest(http.MethodPost, "/mark_attendance", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := serve(t, db, u.ID, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
