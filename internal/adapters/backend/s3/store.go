// Package s3 keeps the metadata cache as a single JSON object in an S3
// bucket, using conditional writes to serialize concurrent committers.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"go.trai.ch/ladle/internal/adapters/backend/cachedoc"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

// New builds a backend storing the cache document at s3://bucket/object.
// Credentials and region come from the default AWS config chain.
func New(bucket, object string) ports.Backend {
	return cachedoc.NewRemoteStore(&remote{bucket: bucket, object: object})
}

type remote struct {
	bucket string
	object string
	client *s3.Client
}

func (r *remote) Open(ctx context.Context) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrBackendUnavailable, err.Error()), "bucket", r.bucket)
	}
	r.client = s3.NewFromConfig(cfg)
	return nil
}

func (r *remote) Close() error { return nil }

func (r *remote) Fetch(ctx context.Context) ([]byte, string, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.object),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, cachedoc.TokenAbsent, nil
		}
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return nil, "", zerr.With(zerr.Wrap(domain.ErrBackendUnavailable, "bucket does not exist"), "bucket", r.bucket)
		}
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return data, aws.ToString(out.ETag), nil
}

func (r *remote) Put(ctx context.Context, data []byte, expectToken string) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.object),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if expectToken == cachedoc.TokenAbsent {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(expectToken)
	}

	if _, err := r.client.PutObject(ctx, in); err != nil {
		if isPrecondition(err) {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrConflict, "conditional put rejected"), "bucket", r.bucket), "object", r.object)
		}
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return nil
}

// isPrecondition reports whether err is S3 rejecting the conditional
// write, either as PreconditionFailed for If-Match or as a 412/409 coded
// response for If-None-Match races.
func isPrecondition(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	var respErr interface{ HTTPStatusCode() int }
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusPreconditionFailed
}
