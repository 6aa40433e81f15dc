package testserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// ReadBody reads and closes the response body.
func ReadBody(res *http.Response) ([]byte, error) {
	defer res.Body.Close()

	return io.ReadAll(res.Body)
}

// ReadText reads and closes the response body as a string.
func ReadText(res *http.Response) (string, error) {
	b, err := ReadBody(res)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadJSON reads the body as a JSON document.
func ReadJSON(res *http.Response) (gjson.Result, error) {
	b, err := ReadBody(res)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(b) {
		return gjson.Result{}, fmt.Errorf("%w: %q", ErrInvalidJSON, b)
	}
	return gjson.ParseBytes(b), nil
}
