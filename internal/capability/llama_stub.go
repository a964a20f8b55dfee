//go:build !llama

package capability

import "errors"

// This file is compiled when the 'llama' build tag is NOT set, keeping
// default builds and CI CGO-free. The real generator lives in llama.go
// (tagged 'llama'). Without the tag the primary generator strategy fails
// fast, so the registry falls back to the degraded template generator.

func newLlamaGenerator(modelPath string) (Invoker, error) {
	return nil, errors.New("llama support not built (missing 'llama' build tag)")
}
