// Package recog defines the remote recognition client. The service itself
// is an opaque network endpoint; this package only shapes requests, decodes
// responses, and classifies failures so the pipeline can decide whether a
// retry can help.
package recog

import (
	"context"
	"errors"
	"fmt"

	"github.com/pic2nav/snapsync/internal/model"
)

// Request carries one image to the recognition service.
type Request struct {
	// ImagePath is the prepared upload payload on disk.
	ImagePath string
	// Hint is the coordinate extracted from the image metadata, when any.
	Hint *model.GeoCoordinate
}

// Client is the remote recognition interface.
type Client interface {
	Recognize(ctx context.Context, req Request) (*model.RecognitionResult, error)
}

// Failure kinds. Transient failures are retryable through the pending
// queue; permanent rejections are surfaced immediately and never queued.
type Kind int

const (
	Transient Kind = iota
	Permanent
)

// Error is a classified recognition failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recognition: %s: %v", e.Msg, e.Err)
	}
	return "recognition: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a well-formed rejection from the
// service, i.e. one that retrying cannot improve.
func IsPermanent(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == Permanent
}
