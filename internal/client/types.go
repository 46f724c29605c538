package client

type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	AuthMethod string `json:"auth_method"`
}

type Tag struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	AssetCount int    `json:"asset_count"`
}

type Asset struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	CaptureMethod  string   `json:"capture_method"`
	SourcePlatform string   `json:"source_platform"`
	SourceURL      *string  `json:"source_url"`
	FileName       string   `json:"file_name"`
	MimeType       string   `json:"mime_type"`
	SizeBytes      *int64   `json:"size_bytes"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	Colors         []string `json:"colors"`
	Tags           []Tag    `json:"tags"`
	CreatedAt      string   `json:"created_at"`
}

type SignedUpload struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

type UploadTicket struct {
	Asset   Asset         `json:"asset"`
	Upload  *SignedUpload `json:"upload"`
	Preview *SignedUpload `json:"preview"`
}

type InitUploadRequest struct {
	FileName       string         `json:"file_name"`
	MimeType       string         `json:"mime_type"`
	SizeBytes      *int64         `json:"size_bytes,omitempty"`
	SourcePlatform string         `json:"source_platform,omitempty"`
	SourceURL      string         `json:"source_url,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
	RemoteOnly     bool           `json:"remote_only,omitempty"`
}

type FinalizeUploadRequest struct {
	AssetID         string   `json:"asset_id"`
	Width           *int     `json:"width,omitempty"`
	Height          *int     `json:"height,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	ContentHash     *string  `json:"content_hash,omitempty"`
	SizeBytes       *int64   `json:"size_bytes,omitempty"`
	TagIDs          []string `json:"tag_ids,omitempty"`
}
