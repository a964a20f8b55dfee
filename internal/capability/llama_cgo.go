//go:build llama

package capability

// cgo link directives for the in-process llama generator.
// An rpath of $ORIGIN lets the runtime loader find libllama.so and
// libggml*.so next to the built binary without environment variables.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
