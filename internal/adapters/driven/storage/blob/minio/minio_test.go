package minio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no endpoint", Config{Bucket: "b", AccessKey: "a", SecretKey: "s"}},
		{"no bucket", Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}},
		{"no credentials", Config{Endpoint: "localhost:9000", Bucket: "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestNew_Success(t *testing.T) {
	s, err := New(Config{Endpoint: "https://s3.example.com", Bucket: "ragindex", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		ssl      bool
		wantHost string
		wantSSL  bool
	}{
		{"localhost:9000", false, "localhost:9000", false},
		{"localhost:9000", true, "localhost:9000", true},
		{"http://minio:9000", false, "minio:9000", false},
		{"https://s3.example.com", false, "s3.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, ssl := parseEndpoint(tt.raw, tt.ssl)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSSL, ssl)
		})
	}
}

func TestClassify(t *testing.T) {
	notFound := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	assert.ErrorIs(t, classify(notFound, "get k"), domain.ErrNotFound)

	denied := minio.ErrorResponse{Code: "AccessDenied"}
	err := classify(denied, "put k")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.NotErrorIs(t, err, domain.ErrTransientExternal)

	refused := errors.New("dial tcp 127.0.0.1:9000: connect: connection refused")
	err = classify(refused, "put k")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.ErrorIs(t, err, domain.ErrTransientExternal)

	assert.NoError(t, classify(nil, "x"))
}

func TestStore_Get_NotFoundFromServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>k</Key><BucketName>ragindex</BucketName></Error>`))
	}))
	defer srv.Close()

	s, err := New(Config{Endpoint: srv.URL, Bucket: "ragindex", AccessKey: "a", SecretKey: "s", Region: "us-east-1"})
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "indexes/company_acme/chunks.msgpack")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := s.Exists(context.Background(), "indexes/company_acme/chunks.msgpack")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_EmptyKey(t *testing.T) {
	s, err := New(Config{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Put(context.Background(), "", nil), domain.ErrInvalidInput)
	_, err = s.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
