// Package azure keeps the metadata cache as a single block blob, relying
// on ETag access conditions to serialize concurrent committers.
package azure

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"go.trai.ch/ladle/internal/adapters/backend/cachedoc"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

// New builds a backend storing the cache document as container/blobName in
// the given storage account. Credentials come from the default Azure
// credential chain.
func New(account, container, blobName string) ports.Backend {
	return cachedoc.NewRemoteStore(&remote{
		account:   account,
		container: container,
		blob:      blobName,
	})
}

type remote struct {
	account   string
	container string
	blob      string
	client    *azblob.Client
}

func (r *remote) Open(_ context.Context) error {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", r.account)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrBackendUnavailable, err.Error()), "account", r.account)
	}
	r.client = client
	return nil
}

func (r *remote) Close() error { return nil }

func (r *remote) Fetch(ctx context.Context) ([]byte, string, error) {
	resp, err := r.client.DownloadStream(ctx, r.container, r.blob, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, cachedoc.TokenAbsent, nil
		}
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return nil, "", zerr.With(zerr.Wrap(domain.ErrBackendUnavailable, "container does not exist"), "container", r.container)
		}
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	token := ""
	if resp.ETag != nil {
		token = string(*resp.ETag)
	}
	return data, token, nil
}

func (r *remote) Put(ctx context.Context, data []byte, expectToken string) error {
	conds := &blob.AccessConditions{ModifiedAccessConditions: &blob.ModifiedAccessConditions{}}
	if expectToken == cachedoc.TokenAbsent {
		any := azcore.ETagAny
		conds.ModifiedAccessConditions.IfNoneMatch = &any
	} else {
		etag := azcore.ETag(expectToken)
		conds.ModifiedAccessConditions.IfMatch = &etag
	}

	_, err := r.client.UploadBuffer(ctx, r.container, r.blob, data, &azblob.UploadBufferOptions{
		AccessConditions: conds,
	})
	if err != nil {
		if bloberror.HasCode(err, bloberror.ConditionNotMet, bloberror.BlobAlreadyExists) {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrConflict, "conditional upload rejected"), "container", r.container), "blob", r.blob)
		}
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return nil
}
