package gcs

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/eniz1806/UniStore/pkg/access"
)

// resumableUpload feeds one resumable upload session. Intermediate chunks
// answer 308 Resume Incomplete; the final chunk carries the total size and
// answers 200 or 201.
type resumableUpload struct {
	core    *core
	path    string
	session string
}

func (u *resumableUpload) UploadChunk(ctx context.Context, off int64, b []byte, last bool) error {
	req, err := u.core.newRequest(ctx, http.MethodPut, u.session, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Range", contentRange(off, int64(len(b)), last))

	resp, err := u.core.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if last {
		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			return nil
		}
	} else if resp.StatusCode == http.StatusPermanentRedirect {
		return nil
	}
	return responseError("write", u.path, resp)
}

func (u *resumableUpload) AbortUpload(ctx context.Context) error {
	req, err := u.core.newRequest(ctx, http.MethodDelete, u.session, nil)
	if err != nil {
		return err
	}
	resp, err := u.core.send(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	// Session cancellation answers 499; any response means the session is no
	// longer usable, which is all abort promises.
	return nil
}

func contentRange(off, length int64, last bool) string {
	if length == 0 {
		// Only an empty final chunk reaches here; it finalizes an empty object.
		return fmt.Sprintf("bytes */%d", off)
	}
	if last {
		return fmt.Sprintf("bytes %d-%d/%d", off, off+length-1, off+length)
	}
	return fmt.Sprintf("bytes %d-%d/*", off, off+length-1)
}

var _ access.ChunkUpload = (*resumableUpload)(nil)
