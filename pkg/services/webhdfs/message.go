package webhdfs

import (
	"time"

	"github.com/eniz1806/UniStore/pkg/access"
)

// fileStatus mirrors one FileStatus record of the REST API. Times are epoch
// milliseconds; Type is "FILE" or "DIRECTORY".
type fileStatus struct {
	PathSuffix       string `json:"pathSuffix"`
	Type             string `json:"type"`
	Length           int64  `json:"length"`
	ModificationTime int64  `json:"modificationTime"`
}

func (s fileStatus) metadata() access.Metadata {
	kind := access.KindFile
	if s.Type == "DIRECTORY" {
		kind = access.KindDir
	}
	meta := access.NewMetadata(kind)
	if kind == access.KindFile {
		meta.ContentLength = s.Length
	}
	if s.ModificationTime > 0 {
		meta.LastModified = time.UnixMilli(s.ModificationTime)
	}
	return meta
}

type fileStatusResponse struct {
	FileStatus fileStatus `json:"FileStatus"`
}

type fileStatusesResponse struct {
	FileStatuses struct {
		FileStatus []fileStatus `json:"FileStatus"`
	} `json:"FileStatuses"`
}

type listStatusBatchResponse struct {
	DirectoryListing struct {
		PartialListing struct {
			FileStatuses struct {
				FileStatus []fileStatus `json:"FileStatus"`
			} `json:"FileStatuses"`
		} `json:"partialListing"`
		RemainingEntries int `json:"remainingEntries"`
	} `json:"DirectoryListing"`
}

type booleanResponse struct {
	Boolean bool `json:"boolean"`
}

type locationResponse struct {
	Location string `json:"Location"`
}

type remoteExceptionResponse struct {
	RemoteException struct {
		Exception string `json:"exception"`
		Message   string `json:"message"`
	} `json:"RemoteException"`
}
