// Package gcs keeps the metadata cache as a single object in a Cloud
// Storage bucket, using generation preconditions to serialize concurrent
// committers.
package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"go.trai.ch/ladle/internal/adapters/backend/cachedoc"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

// New builds a backend storing the cache document at gs://bucket/object.
// Credentials come from application default credentials.
func New(bucket, object string) ports.Backend {
	return cachedoc.NewRemoteStore(&remote{bucket: bucket, object: object})
}

type remote struct {
	bucket string
	object string
	client *storage.Client
}

func (r *remote) Open(ctx context.Context) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrBackendUnavailable, err.Error()), "bucket", r.bucket)
	}
	r.client = client
	return nil
}

func (r *remote) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *remote) Fetch(ctx context.Context) ([]byte, string, error) {
	rc, err := r.client.Bucket(r.bucket).Object(r.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, cachedoc.TokenAbsent, nil
		}
		if errors.Is(err, storage.ErrBucketNotExist) {
			return nil, "", zerr.With(zerr.Wrap(domain.ErrBackendUnavailable, "bucket does not exist"), "bucket", r.bucket)
		}
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return data, strconv.FormatInt(rc.Attrs.Generation, 10), nil
}

func (r *remote) Put(ctx context.Context, data []byte, expectToken string) error {
	obj := r.client.Bucket(r.bucket).Object(r.object)
	if expectToken == cachedoc.TokenAbsent {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	} else {
		gen, err := strconv.ParseInt(expectToken, 10, 64)
		if err != nil {
			return zerr.With(zerr.Wrap(domain.ErrConflict, "malformed generation token"), "token", expectToken)
		}
		obj = obj.If(storage.Conditions{GenerationMatch: gen})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrConflict, "generation precondition failed"), "bucket", r.bucket), "object", r.object)
		}
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return nil
}
