package relay

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// zstdDecoder is shared; DecodeAll is safe for concurrent use
var zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

// decodeBody undoes the codings listed in a Content-Encoding value.
// Codings are applied in listed order, so they are removed in reverse.
// An unrecognized coding anywhere in the list returns the body untouched.
func decodeBody(contentEncoding string, body []byte) ([]byte, bool, error) {
	if contentEncoding == "" || len(body) == 0 {
		return body, true, nil
	}

	original := body

	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))

		var (
			decoded []byte
			err     error
		)
		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			decoded, err = readAllFrom(gzip.NewReader(bytes.NewReader(body)))
		case "deflate":
			decoded, err = inflate(body)
		case "br":
			decoded, err = io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		case "zstd":
			decoded, err = zstdDecoder.DecodeAll(body, nil)
		default:
			return original, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("decode %s body: %w", coding, err)
		}
		body = decoded
	}
	return body, true, nil
}

// inflate handles "deflate", which servers send both zlib-wrapped and raw
func inflate(body []byte) ([]byte, error) {
	if decoded, err := readAllFrom(zlib.NewReader(bytes.NewReader(body))); err == nil {
		return decoded, nil
	}

	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	return io.ReadAll(r)
}

func readAllFrom(r io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
