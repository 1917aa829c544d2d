package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]upload) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	for field, f := range files {
		part, err := w.CreateFormFile(field, f.name)
		require.NoError(t, err)

		_, err = part.Write(f.data)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func (s *testServer) createRingtone(t *testing.T, fields map[string]string, files map[string]upload) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, fields, files)

	return s.do(t, http.MethodPost, "/api/admin/ringtones", body, contentType)
}

func storedFiles(t *testing.T, s *testServer, dir string) int {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(s.dir, dir))
	if os.IsNotExist(err) {
		return 0
	}

	require.NoError(t, err)

	return len(entries)
}

func TestCreateRingtone(t *testing.T) {
	t.Run("stores files and creates the ringtone", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.createRingtone(t, map[string]string{
			"name":        "Morning Bird",
			"numericId":   "222333444",
			"description": "Chirps",
			"categoryId":  strconv.FormatInt(s.rock.ID, 10),
			"tagIds":      "[" + strconv.FormatInt(s.funny.ID, 10) + "]",
		}, map[string]upload{
			"audio":     {name: "bird.MP3", data: mp3Bytes},
			"thumbnail": {name: "bird.png", data: pngBytes},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		got := decode[ringtoneEnvelope](t, rec).Ringtone
		assert.Equal(t, "222333444", got.NumericID)
		assert.Equal(t, "morning-bird", got.Slug)
		assert.Contains(t, got.ThumbnailURL, baseURL+"/api/thumbnails/")
		assert.Equal(t, int64(len(mp3Bytes)), got.FileSize)

		assert.Equal(t, 2, storedFiles(t, s, "ringtones"))
		assert.Equal(t, 2, storedFiles(t, s, "thumbnails"))

		found := s.get(t, "/api/ringtones/222333444")
		require.Equal(t, http.StatusOK, found.Code)
		assert.Equal(t, "Rock", decode[ringtoneEnvelope](t, found).Ringtone.Category.Name)
	})

	t.Run("generates a numeric id", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.createRingtone(t, map[string]string{"name": "Auto"}, map[string]upload{
			"audio": {name: "auto.mp3", data: mp3Bytes},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		got := decode[ringtoneEnvelope](t, rec).Ringtone
		assert.Len(t, got.NumericID, catalog.NumericIDLength)
		assert.True(t, catalog.IsNumericID(got.NumericID))
	})

	tests := []struct {
		name   string
		fields map[string]string
		files  map[string]upload
		status int
	}{
		{
			name:   "missing name",
			fields: map[string]string{},
			files:  map[string]upload{"audio": {name: "a.mp3", data: mp3Bytes}},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing audio",
			fields: map[string]string{"name": "x"},
			status: http.StatusBadRequest,
		},
		{
			name:   "disguised script",
			fields: map[string]string{"name": "x"},
			files:  map[string]upload{"audio": {name: "a.mp3", data: []byte("#!/bin/sh\necho hi\n")}},
			status: http.StatusBadRequest,
		},
		{
			name:   "bad tag list",
			fields: map[string]string{"name": "x", "tagIds": "funny"},
			files:  map[string]upload{"audio": {name: "a.mp3", data: mp3Bytes}},
			status: http.StatusBadRequest,
		},
		{
			name:   "non-numeric id",
			fields: map[string]string{"name": "x", "numericId": "12ab"},
			files:  map[string]upload{"audio": {name: "a.mp3", data: mp3Bytes}},
			status: http.StatusBadRequest,
		},
		{
			name:   "duplicate numeric id",
			fields: map[string]string{"name": "x", "numericId": "123456789"},
			files:  map[string]upload{"audio": {name: "a.mp3", data: mp3Bytes}},
			status: http.StatusConflict,
		},
		{
			name:   "unknown category",
			fields: map[string]string{"name": "x", "categoryId": "4242"},
			files:  map[string]upload{"audio": {name: "a.mp3", data: mp3Bytes}},
			status: http.StatusBadRequest,
		},
		{
			name:   "audio as thumbnail",
			fields: map[string]string{"name": "x"},
			files: map[string]upload{
				"audio":     {name: "a.mp3", data: mp3Bytes},
				"thumbnail": {name: "t.png", data: mp3Bytes},
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.createRingtone(t, tt.fields, tt.files)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, 1, storedFiles(t, s, "ringtones"), "failed uploads leave no files behind")
			assert.Equal(t, 1, storedFiles(t, s, "thumbnails"))
		})
	}
}

func TestDeleteRingtone(t *testing.T) {
	s := newTestServer(t)
	path := "/api/admin/ringtones/" + strconv.FormatInt(s.bell.ID, 10)

	rec := s.do(t, http.MethodDelete, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[struct {
		Deleted handlers.RingtoneBody `json:"deleted"`
	}](t, rec)
	assert.Equal(t, "123456789", got.Deleted.NumericID)

	assert.Equal(t, 0, storedFiles(t, s, "ringtones"))
	assert.Equal(t, 0, storedFiles(t, s, "thumbnails"))
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/ringtones/123456789").Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, nil, "").Code)
}
