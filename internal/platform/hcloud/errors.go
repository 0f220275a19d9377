package hcloud

import (
	"errors"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/hstack/internal/util/retry"
)

var (
	// ErrStackNotFound is returned by StackEngine for unknown stack ids.
	ErrStackNotFound = errors.New("stack not found")

	// ErrStackExists is returned when a stack with the same name is registered.
	ErrStackExists = errors.New("stack already exists")

	// ErrResourceNotFound is returned for logical names a stack does not define.
	ErrResourceNotFound = errors.New("stack resource not found")

	// ErrServerNotFound is returned when an instance id does not match a server.
	ErrServerNotFound = errors.New("server not found")

	// ErrInvalidID is returned when an id is not a Hetzner numeric id.
	ErrInvalidID = errors.New("invalid resource id")
)

// isRetryable reports whether an API error is transient: locked resources,
// concurrent modifications, unavailable capacity and rate limiting.
func isRetryable(err error) bool {
	return isHCloudErrorCode(err,
		hcloud.ErrorCodeLocked,
		hcloud.ErrorCodeConflict,
		hcloud.ErrorCodeResourceLocked,
		hcloud.ErrorCodeResourceUnavailable,
		hcloud.ErrorCodeRateLimitExceeded,
	)
}

// isInvalidParameter checks if an error indicates invalid parameters.
// These errors are fatal and should not be retried.
func isInvalidParameter(err error) bool {
	return isHCloudErrorCode(err,
		hcloud.ErrorCodeNotFound,
		hcloud.ErrorCodeInvalidInput,
		hcloud.ErrorCodeInvalidServerType,
		hcloud.ErrorCodeUniquenessError,
	)
}

// classify marks non-transient errors as fatal for retry.Do.
func classify(err error) error {
	if err == nil || isRetryable(err) {
		return err
	}
	return retry.Fatal(err)
}

// isHCloudErrorCode checks if the error is an hcloud API error with one of the given codes.
func isHCloudErrorCode(err error, codes ...hcloud.ErrorCode) bool {
	if err == nil {
		return false
	}

	var hcloudErr hcloud.Error
	if errors.As(err, &hcloudErr) {
		for _, code := range codes {
			if hcloudErr.Code == code {
				return true
			}
		}
	}
	return false
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return isHCloudErrorCode(err, hcloud.ErrorCodeNotFound)
}
