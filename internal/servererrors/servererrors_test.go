package servererrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerErrorUnwrapsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("placing order: %w", New(http.StatusConflict, ErrInsufficientStock.Error(), []string{"7"}))

	var se *ServerError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.StatusCode)
	assert.Equal(t, "insufficient stock", se.Error())
	assert.Equal(t, []string{"7"}, se.Errors)
}
