package media_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/serroba/ringtones/internal/filetype"
	"github.com/serroba/ringtones/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mp3Bytes  = append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"), bytes.Repeat([]byte{0x55}, 64)...)
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0x0D}, bytes.Repeat([]byte{1}, 32)...)
	textBytes = []byte("#!/bin/sh\nrm -rf /\n")
)

func TestUploader_Store(t *testing.T) {
	ctx := context.Background()

	t.Run("stores audio under a fresh name", func(t *testing.T) {
		s, _ := newLocalStorage(t)
		u := media.NewUploader(s)

		stored, err := u.Store(ctx, media.KindAudio, "My Song.MP3", int64(len(mp3Bytes)), bytes.NewReader(mp3Bytes))

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stored.Key, "ringtones/"))
		assert.True(t, strings.HasSuffix(stored.Key, ".mp3"))
		assert.Equal(t, filetype.MP3, stored.Type)

		rc, err := s.Open(ctx, stored.Key)
		require.NoError(t, err)
		defer rc.Close()

		data, _ := io.ReadAll(rc)
		assert.Equal(t, mp3Bytes, data, "header bytes are written back")
	})

	t.Run("stores thumbnails", func(t *testing.T) {
		s, _ := newLocalStorage(t)

		stored, err := media.NewUploader(s).Store(ctx, media.KindImage, "cover.png", int64(len(pngBytes)), bytes.NewReader(pngBytes))

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stored.Key, "thumbnails/"))
	})

	t.Run("rejects extension outside the allow list", func(t *testing.T) {
		s, _ := newLocalStorage(t)

		_, err := media.NewUploader(s).Store(ctx, media.KindAudio, "song.exe", 10, bytes.NewReader(mp3Bytes))

		assert.ErrorIs(t, err, media.ErrUnsupportedType)
	})

	t.Run("rejects oversize before reading", func(t *testing.T) {
		s, _ := newLocalStorage(t)

		_, err := media.NewUploader(s).Store(ctx, media.KindImage, "big.png", 5<<20+1, bytes.NewReader(pngBytes))

		assert.ErrorIs(t, err, media.ErrTooLarge)
	})

	t.Run("rejects renamed script", func(t *testing.T) {
		s, _ := newLocalStorage(t)

		_, err := media.NewUploader(s).Store(ctx, media.KindAudio, "evil.mp3", int64(len(textBytes)), bytes.NewReader(textBytes))

		assert.ErrorIs(t, err, media.ErrSignatureMismatch)
	})

	t.Run("rejects image posing as audio", func(t *testing.T) {
		s, _ := newLocalStorage(t)

		_, err := media.NewUploader(s).Store(ctx, media.KindAudio, "fake.mp3", int64(len(pngBytes)), bytes.NewReader(pngBytes))

		require.ErrorIs(t, err, media.ErrSignatureMismatch)
		assert.Contains(t, err.Error(), "png")
	})

	t.Run("aac is judged by content", func(t *testing.T) {
		s, _ := newLocalStorage(t)
		aac := []byte{0xFF, 0xF1, 0x50, 0x80, 0, 0x1F, 0xFC, 0, 0, 0, 0, 0}

		stored, err := media.NewUploader(s).Store(ctx, media.KindAudio, "tone.aac", int64(len(aac)), bytes.NewReader(aac))

		// ADTS sync bytes look like an MPEG frame sync, so this one is accepted as mp3.
		require.NoError(t, err)
		assert.Equal(t, filetype.MP3, stored.Type)

		_, err = media.NewUploader(s).Store(ctx, media.KindAudio, "tone.aac", 12, bytes.NewReader(make([]byte, 12)))
		assert.ErrorIs(t, err, media.ErrSignatureMismatch)
	})

	t.Run("empty body", func(t *testing.T) {
		s, _ := newLocalStorage(t)

		_, err := media.NewUploader(s).Store(ctx, media.KindAudio, "empty.mp3", 0, bytes.NewReader(nil))

		assert.ErrorIs(t, err, media.ErrSignatureMismatch)
	})

	t.Run("unknown kind", func(t *testing.T) {
		s, _ := newLocalStorage(t)

		_, err := media.NewUploader(s).Store(ctx, media.Kind("video"), "a.mp4", 1, bytes.NewReader(nil))

		assert.ErrorIs(t, err, media.ErrUnsupportedType)
	})
}

func TestUploader_Delete(t *testing.T) {
	s, _ := newLocalStorage(t)
	u := media.NewUploader(s)
	ctx := context.Background()

	stored, err := u.Store(ctx, media.KindAudio, "a.mp3", int64(len(mp3Bytes)), bytes.NewReader(mp3Bytes))
	require.NoError(t, err)

	require.NoError(t, u.Delete(ctx, stored.Key))
	require.NoError(t, u.Delete(ctx, ""))

	_, err = s.Open(ctx, stored.Key)
	assert.ErrorIs(t, err, media.ErrNotFound)
}
