//go:build gofuzz
// +build gofuzz

package membership

import (
	"fmt"
)

func Fuzz(data []byte) int {
	e, err := Parse(string(data))
	if err != nil {
		return 0
	}
	line, err := Encode(e)
	if err != nil {
		panic(fmt.Errorf("parsed event does not encode: %+v: %v", e, err))
	}
	again, err := Parse(line)
	if err != nil || again != e {
		panic(fmt.Errorf("round trip mismatch: %q -> %+v -> %q", data, e, line))
	}
	return 1
}
