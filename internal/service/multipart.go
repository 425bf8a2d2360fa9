package service

import (
	"io"
	"mime/multipart"
)

// RestreamMultipart re-frames an inbound multipart body under a freshly
// generated boundary without buffering it. Parts are copied one at a time
// through a pipe, preserving each part's own headers (disposition, filename,
// per-part content-type); only the outer boundary changes.
//
// The returned content-type must be set on the outbound request instead of
// the inbound one. The returned body is ready to hand to an HTTP client and
// must be closed by the consumer; closing it early unblocks the copier.
func RestreamMultipart(src *multipart.Reader) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		for {
			part, err := src.NextPart()
			if err == io.EOF {
				pw.CloseWithError(mw.Close())
				return
			}
			if err != nil {
				pw.CloseWithError(err)
				return
			}

			dst, err := mw.CreatePart(part.Header)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.Copy(dst, part); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
	}()

	return pr, mw.FormDataContentType()
}
