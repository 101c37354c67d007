package service

import (
	"bytes"
	"io"
	"path"
)

func jsonReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func packageName(objectKey string) string {
	return path.Base(objectKey)
}
