package lookup

import (
	"context"
	"errors"
	"fmt"
)

// ErrResponseMismatch is returned when a response does not answer the request it was read for.
var ErrResponseMismatch = errors.New("response id does not match request id")

// RoundTripper performs a single request/response exchange of encoded messages.
type RoundTripper interface {
	RoundTrip(ctx context.Context, request []byte) ([]byte, error)
}

// Query sends req over rt and decodes the response.  Errors from rt are returned unchanged.  If the routing tier
// reports an error code the decoded response is returned together with a *ResponseError.
func Query(ctx context.Context, rt RoundTripper, req *KeyAddressRequest) (*KeyAddressResponse, error) {
	raw, err := rt.RoundTrip(ctx, req.Marshal())
	if err != nil {
		return nil, err
	}

	resp := &KeyAddressResponse{}
	if err := resp.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("malformed key address response: %w", err)
	}
	if resp.ResponseID != req.RequestID {
		return nil, ErrResponseMismatch
	}
	return resp, resp.Err()
}
