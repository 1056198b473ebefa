package plugin

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

const (
	errNoInput        = "There was no input to ArtifactSigning plugin"
	errUnparsableBody = "Unable to parse request from notation"
)

// Reader reads the single request line notation writes to the plugin's stdin.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadLine returns the next input line without its line terminator.
func (r *Reader) ReadLine() (string, error) {
	line, err := r.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return "", protocol.NewValidationError(errNoInput)
	}
	return line, nil
}

// MetadataRequest reads and decodes a get-plugin-metadata request.
func (r *Reader) MetadataRequest() (*protocol.MetadataRequest, error) {
	return readRequest[protocol.MetadataRequest](r)
}

// KeyRequest reads and decodes a describe-key request.
func (r *Reader) KeyRequest() (*protocol.KeyRequest, error) {
	return readRequest[protocol.KeyRequest](r)
}

// SignatureRequest reads and decodes a generate-signature request.
func (r *Reader) SignatureRequest() (*protocol.SignatureRequest, error) {
	return readRequest[protocol.SignatureRequest](r)
}

func readRequest[T any](r *Reader) (*T, error) {
	raw, err := r.ReadLine()
	if err != nil {
		return nil, err
	}
	return Decode[T](raw)
}

// Decode parses raw as a T. Field names are matched case-insensitively. Malformed
// JSON and a JSON null both fail with a validation error.
func Decode[T any](raw string) (*T, error) {
	var v *T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, protocol.NewValidationError(err.Error())
	}
	if v == nil {
		return nil, protocol.NewValidationError(errUnparsableBody)
	}
	return v, nil
}
