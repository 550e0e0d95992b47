package lookup

import (
	"fmt"
)

// ErrorCode is the error reported by the routing tier in a KeyAddressResponse.
type ErrorCode int32

const (
	NoError     ErrorCode = 0
	KeyDNE      ErrorCode = 1
	WrongThread ErrorCode = 2
	Timeout     ErrorCode = 3
	Lattice     ErrorCode = 4
	NoServers   ErrorCode = 5
)

var errorCodeNames = map[ErrorCode]string{
	NoError:     "NO_ERROR",
	KeyDNE:      "KEY_DNE",
	WrongThread: "WRONG_THREAD",
	Timeout:     "TIMEOUT",
	Lattice:     "LATTICE",
	NoServers:   "NO_SERVERS",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int32(c))
}

// ResponseError is returned when the routing tier answers with an error code.
type ResponseError struct {
	Code ErrorCode
}

func (e *ResponseError) Error() string {
	return "routing tier returned " + e.Code.String()
}

// KeyAddressRequest asks a router which storage threads are responsible for Keys.
type KeyAddressRequest struct {
	// ResponseAddress is where the router sends the response if it cannot answer on the request connection.
	ResponseAddress string
	Keys            []string
	RequestID       string
}

// KeyAddress is the list of storage thread addresses responsible for Key.
type KeyAddress struct {
	Key string
	IPs []string
}

// KeyAddressResponse is a router's answer to a KeyAddressRequest.
type KeyAddressResponse struct {
	Addresses  []KeyAddress
	Error      ErrorCode
	ResponseID string
}

// Err returns a *ResponseError if the response carries an error code, nil otherwise.
func (r *KeyAddressResponse) Err() error {
	if r.Error == NoError {
		return nil
	}
	return &ResponseError{Code: r.Error}
}

// AddressesFor returns the addresses of key, or nil if the response does not mention key.
func (r *KeyAddressResponse) AddressesFor(key string) []string {
	for _, ka := range r.Addresses {
		if ka.Key == key {
			return ka.IPs
		}
	}
	return nil
}
