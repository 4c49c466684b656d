package pqbridge

import (
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors. Every error returned by this package wraps exactly one of
// them, so callers can branch with errors.Is.
var (
	// ErrNotFound indicates the object or bucket does not exist.
	ErrNotFound = errors.New("pqbridge: not found")

	// ErrAccessDenied indicates the credentials were rejected or lack permission.
	ErrAccessDenied = errors.New("pqbridge: access denied")

	// ErrTransport indicates a network, service or cancellation failure.
	ErrTransport = errors.New("pqbridge: transport failure")

	// ErrDecode indicates the object could not be decoded as Parquet.
	ErrDecode = errors.New("pqbridge: decode failure")

	// ErrEncode indicates the table could not be encoded as Parquet.
	ErrEncode = errors.New("pqbridge: encode failure")

	// ErrInvalidInput indicates a bad argument such as an empty key.
	ErrInvalidInput = errors.New("pqbridge: invalid input")
)

// Kind names the failure class of an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAccessDenied
	KindTransport
	KindDecode
	KindEncode
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error describes a failed bridge operation.
type Error struct {
	// Op is the operation that failed (e.g. "download", "upload", "list").
	Op string

	// Bucket is the bucket the operation addressed.
	Bucket string

	// Key is the object key or listing prefix, if any.
	Key string

	// Err wraps one sentinel together with the underlying cause.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("pqbridge.%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("pqbridge.%s s3://%s: %v", e.Op, e.Bucket, e.Err)
	default:
		return fmt.Sprintf("pqbridge.%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind reports the failure class of e.
func (e *Error) Kind() Kind {
	return KindOf(e.Err)
}

func newError(op, bucket, key string, kind error, cause error) *Error {
	var err error
	switch {
	case cause == nil:
		err = kind
	case errors.Is(cause, kind):
		err = cause
	default:
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

// KindOf returns the failure class of err, or KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrEncode):
		return KindEncode
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}

// IsNotFound reports whether err means the object or bucket is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied reports whether err means the request was not authorized.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsTransport reports whether err is a network or service failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsDecode reports whether err is a Parquet decode failure.
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}

var accessDeniedCodes = map[string]struct{}{
	"AccessDenied":          {},
	"AllAccessDisabled":     {},
	"ExpiredToken":          {},
	"Forbidden":             {},
	"InvalidAccessKeyId":    {},
	"InvalidToken":          {},
	"SignatureDoesNotMatch": {},
}

// classify maps an SDK error onto one of the sentinel errors.
func classify(err error) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return ErrNotFound
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return ErrNotFound
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NoSuchKey" || code == "NotFound" || code == "NoSuchBucket" {
			return ErrNotFound
		}
		if _, ok := accessDeniedCodes[code]; ok {
			return ErrAccessDenied
		}
	}

	// HEAD responses carry no body, so only the status code is left.
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return ErrAccessDenied
		}
	}

	return ErrTransport
}

func sdkError(op, bucket, key string, err error) *Error {
	return newError(op, bucket, key, classify(err), err)
}
