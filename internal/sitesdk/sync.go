package sitesdk

import (
	"context"

	"github.com/imroc/req/v3"
)

const (
	syncFiles    = "/sync/files"
	syncDownload = "/sync/download/"
	syncUpload   = "/sync/upload"
	syncStatus   = "/sync/status"
)

// SyncAPI exposes the four sync operations of the SiteBox server.
type SyncAPI struct {
	client *req.Client
}

func newSyncAPI(client *req.Client) *SyncAPI {
	return &SyncAPI{
		client: client,
	}
}

// List fetches the server's view of all sites owned by the key's user.
func (a *SyncAPI) List(ctx context.Context) (resp *ListResponse, err error) {
	res, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get(syncFiles)

	if err := handleAPIError(res, err, "sync list"); err != nil {
		return nil, err
	}

	return resp, nil
}

// Download fetches the content of a single site. siteName may contain
// forward slashes for nested sites; they are part of the route and must
// stay unescaped.
func (a *SyncAPI) Download(ctx context.Context, siteName string) (resp *DownloadResponse, err error) {
	res, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get(syncDownload + siteName)

	if err := handleAPIError(res, err, "sync download"); err != nil {
		return nil, err
	}

	return resp, nil
}

// Upload pushes a site's content to the server. A 409 carries name
// suggestions in the error details.
func (a *SyncAPI) Upload(ctx context.Context, params *UploadParams) (resp *UploadResponse, err error) {
	res, err := a.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&resp).
		Post(syncUpload)

	if err := handleAPIError(res, err, "sync upload"); err != nil {
		return nil, err
	}

	return resp, nil
}

// Status returns server liveness plus the server clock used for skew
// compensation.
func (a *SyncAPI) Status(ctx context.Context) (resp *StatusResponse, err error) {
	res, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get(syncStatus)

	if err := handleAPIError(res, err, "sync status"); err != nil {
		return nil, err
	}

	return resp, nil
}
