package sitesdk

import "time"

// RemoteFile is one server-side site entry from the list operation.
type RemoteFile struct {
	// Filename is the site name, the server's key (no ".html").
	Filename string `json:"filename"`
	// Path is the relative path form, always ending in ".html".
	Path string `json:"path"`
	// ModifiedAt is the server timestamp of the last write.
	ModifiedAt time.Time `json:"modifiedAt"`
	// Checksum is the content fingerprint as lowercase hex.
	Checksum string `json:"checksum"`
}

// ListResponse is the body of GET /sync/files.
type ListResponse struct {
	Files []*RemoteFile `json:"files"`
}

// DownloadResponse is the body of GET /sync/download/<siteName>.
type DownloadResponse struct {
	Content    string    `json:"content"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Checksum   string    `json:"checksum"`
}

// UploadParams is the body of POST /sync/upload. Filename is the site name
// form, without the ".html" suffix.
type UploadParams struct {
	Filename   string    `json:"filename"`
	Content    string    `json:"content"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// UploadResponse is the 2xx body of POST /sync/upload.
type UploadResponse struct {
	Filename   string    `json:"filename,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Checksum   string    `json:"checksum,omitempty"`
}

// StatusResponse is the body of GET /sync/status. ServerTime anchors the
// client's clock-offset computation.
type StatusResponse struct {
	ServerTime time.Time `json:"serverTime"`
	Version    string    `json:"version,omitempty"`
}
