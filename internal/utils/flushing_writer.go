package utils

import "io"

type flushableWriter interface {
	Flush() error
}

type flushingWriter struct {
	underlyingWriter io.Writer
}

// NewFlushingWriter wraps the provided writer so every write is flushed immediately when supported.
func NewFlushingWriter(underlyingWriter io.Writer) io.Writer {
	return &flushingWriter{underlyingWriter: underlyingWriter}
}

func (writer *flushingWriter) Write(data []byte) (int, error) {
	bytesWritten, writeError := writer.underlyingWriter.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if flushCapableWriter, flushSupported := writer.underlyingWriter.(flushableWriter); flushSupported {
		if flushError := flushCapableWriter.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}
	return bytesWritten, nil
}
