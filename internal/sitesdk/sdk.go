package sitesdk

import (
	"errors"
	"time"

	"github.com/imroc/req/v3"
	"github.com/sitebox/sitebox/internal/version"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderUserAgent = "User-Agent"

	defaultTimeout = 30 * time.Second
)

// SDK is the client for the SiteBox sync API.
type SDK struct {
	client  *req.Client
	baseURL string
	Sync    *SyncAPI
}

// New creates an SDK bound to baseURL, authenticating every call with the
// given API key. The key is treated as an opaque string.
func New(baseURL string, apiKey string) (*SDK, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetCommonHeader(HeaderUserAgent, "SiteBox/"+version.Version).
		SetCommonHeader(HeaderAPIKey, apiKey).
		SetCommonErrorResult(&apiErrorBody{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &SDK{
		client:  client,
		baseURL: baseURL,
		Sync:    newSyncAPI(client),
	}, nil
}

// BaseURL returns the server base URL the SDK was created with.
func (s *SDK) BaseURL() string {
	return s.baseURL
}

// Close releases idle connections held by the underlying client.
func (s *SDK) Close() {
	s.client.GetClient().CloseIdleConnections()
}

var (
	ErrNoServerURL = errors.New("sdk: server url missing")
	ErrNoAPIKey    = errors.New("sdk: api key missing")
)
