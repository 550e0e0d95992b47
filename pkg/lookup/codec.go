package lookup

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the routing tier's schema.
const (
	fieldRequestResponseAddress protowire.Number = 1
	fieldRequestKeys            protowire.Number = 2
	fieldRequestID              protowire.Number = 3

	fieldResponseAddresses protowire.Number = 1
	fieldResponseError     protowire.Number = 2
	fieldResponseID        protowire.Number = 3

	fieldKeyAddressKey protowire.Number = 1
	fieldKeyAddressIPs protowire.Number = 2
)

// Marshal encodes the request in protobuf wire format.
func (r *KeyAddressRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, fieldRequestResponseAddress, r.ResponseAddress)
	for _, key := range r.Keys {
		b = protowire.AppendTag(b, fieldRequestKeys, protowire.BytesType)
		b = protowire.AppendString(b, key)
	}
	b = appendString(b, fieldRequestID, r.RequestID)
	return b
}

// Unmarshal decodes a request, unknown fields are skipped.
func (r *KeyAddressRequest) Unmarshal(b []byte) error {
	*r = KeyAddressRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldRequestResponseAddress && typ == protowire.BytesType:
			return consumeString(b, &r.ResponseAddress)
		case num == fieldRequestKeys && typ == protowire.BytesType:
			var key string
			n, err := consumeString(b, &key)
			r.Keys = append(r.Keys, key)
			return n, err
		case num == fieldRequestID && typ == protowire.BytesType:
			return consumeString(b, &r.RequestID)
		}
		return skipField(num, typ, b)
	})
}

// Marshal encodes the response in protobuf wire format.
func (r *KeyAddressResponse) Marshal() []byte {
	var b []byte
	for _, ka := range r.Addresses {
		b = protowire.AppendTag(b, fieldResponseAddresses, protowire.BytesType)
		b = protowire.AppendBytes(b, ka.marshal())
	}
	if r.Error != NoError {
		b = protowire.AppendTag(b, fieldResponseError, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Error))
	}
	b = appendString(b, fieldResponseID, r.ResponseID)
	return b
}

// Unmarshal decodes a response, unknown fields are skipped.
func (r *KeyAddressResponse) Unmarshal(b []byte) error {
	*r = KeyAddressResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldResponseAddresses && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			var ka KeyAddress
			if err := ka.unmarshal(v); err != nil {
				return 0, err
			}
			r.Addresses = append(r.Addresses, ka)
			return n, nil
		case num == fieldResponseError && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			r.Error = ErrorCode(int32(v))
			return n, nil
		case num == fieldResponseID && typ == protowire.BytesType:
			return consumeString(b, &r.ResponseID)
		}
		return skipField(num, typ, b)
	})
}

func (ka *KeyAddress) marshal() []byte {
	var b []byte
	b = appendString(b, fieldKeyAddressKey, ka.Key)
	for _, ip := range ka.IPs {
		b = protowire.AppendTag(b, fieldKeyAddressIPs, protowire.BytesType)
		b = protowire.AppendString(b, ip)
	}
	return b
}

func (ka *KeyAddress) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldKeyAddressKey && typ == protowire.BytesType:
			return consumeString(b, &ka.Key)
		case num == fieldKeyAddressIPs && typ == protowire.BytesType:
			var ip string
			n, err := consumeString(b, &ip)
			ka.IPs = append(ka.IPs, ip)
			return n, err
		}
		return skipField(num, typ, b)
	})
}

// appendString omits empty strings, as proto3 does for default values.
func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func consumeString(b []byte, dst *string) (int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

// consumeFields calls field for every field in b.  field returns the number of bytes of the value it consumed.
func consumeFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
