package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, EInternal, ErrorCode(errors.New("boom")))
	assert.Equal(t, EConflict, ErrorCode(New(EConflict, "op", "x")))

	wrapped := fmt.Errorf("outer: %w", New(ENotFound, "op", "missing"))
	assert.Equal(t, ENotFound, ErrorCode(wrapped))

	uncoded := &Error{Err: New(EInvalid, "inner", "bad")}
	assert.Equal(t, EInvalid, ErrorCode(uncoded))
}

func TestErrorMessage_HidesInternal(t *testing.T) {
	assert.Equal(t, "An internal error has occurred.", ErrorMessage(errors.New("disk on fire")))
	assert.Equal(t, "An internal error has occurred.", ErrorMessage(Wrap(EInternal, "op", errors.New("disk on fire"))))
	assert.Equal(t, "document abc not found", ErrorMessage(New(ENotFound, "op", "document %s not found", "abc")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[string]int{
		EInvalid:      http.StatusBadRequest,
		EUnauthorized: http.StatusUnauthorized,
		ENotFound:     http.StatusNotFound,
		EConflict:     http.StatusConflict,
		EInternal:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(&Error{Code: code}), code)
	}
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}

func TestError_String(t *testing.T) {
	e := &Error{Code: EInternal, Msg: "saving document", Err: errors.New("locked")}
	assert.Equal(t, "saving document: locked", e.Error())
	assert.Equal(t, "<conflict>", (&Error{Code: EConflict}).Error())
	assert.True(t, errors.Is(e, e.Err))
}
