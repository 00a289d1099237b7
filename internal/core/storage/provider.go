package storage

import "time"

type FileMetadata struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

type DiskStats struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
}
